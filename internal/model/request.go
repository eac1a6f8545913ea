package model

import "time"

// Request represents a multi-line ask for items by a requester.
type Request struct {
	ID          int64      `json:"id"`
	Reference   string     `json:"reference"`
	ProjectName string     `json:"project_name"`
	RequesterID int64      `json:"requester_id"`
	Reason      string     `json:"reason,omitempty"`
	Priority    string     `json:"priority"`
	DueDate     *time.Time `json:"due_date,omitempty"`
	Status      string     `json:"status"`
	ApprovedBy  *int64     `json:"approved_by,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`

	// Joined fields (not always populated).
	RequesterName string        `json:"requester_name,omitempty"`
	Lines         []RequestLine `json:"items,omitempty"`
}

// RequestLine is one item line of a request. StockBefore and StockAfter
// are snapshots captured when the request is approved.
type RequestLine struct {
	ID          int64 `json:"id"`
	RequestID   int64 `json:"request_id"`
	ItemID      int64 `json:"item_id"`
	Quantity    int   `json:"quantity"`
	StockBefore *int  `json:"stock_before,omitempty"`
	StockAfter  *int  `json:"stock_after,omitempty"`

	// Joined fields (not always populated).
	ItemName string `json:"item_name,omitempty"`
}

// Request statuses.
const (
	RequestStatusPending   = "pending"
	RequestStatusApproved  = "approved"
	RequestStatusRejected  = "rejected"
	RequestStatusCompleted = "completed"
)

// Request priorities.
const (
	PriorityHigh   = "high"
	PriorityMedium = "medium"
	PriorityLow    = "low"
)

// ValidRequestStatus reports whether s is a known request status.
func ValidRequestStatus(s string) bool {
	switch s {
	case RequestStatusPending, RequestStatusApproved, RequestStatusRejected, RequestStatusCompleted:
		return true
	}
	return false
}

// ValidPriority reports whether p is a known priority.
func ValidPriority(p string) bool {
	switch p {
	case PriorityHigh, PriorityMedium, PriorityLow:
		return true
	}
	return false
}
