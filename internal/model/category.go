package model

import "time"

// Category is a plain side table for grouping items. The workflow treats
// an item's category as an opaque string; this table only feeds pickers.
type Category struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Notification is a per-user message created when a request transitions.
type Notification struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	RequestID *int64    `json:"request_id,omitempty"`
	Message   string    `json:"message"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"created_at"`
}
