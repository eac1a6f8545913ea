package model

import "time"

// StockHistoryEntry is an immutable audit record of one quantity change.
// QuantityChange records the nominal requested delta; when a deduction was
// clamped at zero, QuantityAfter reflects the clamped value instead of
// QuantityBefore + QuantityChange.
type StockHistoryEntry struct {
	ID             int64     `json:"id"`
	ItemID         int64     `json:"item_id"`
	ChangeType     string    `json:"change_type"`
	QuantityBefore int       `json:"quantity_before"`
	QuantityChange int       `json:"quantity_change"`
	QuantityAfter  int       `json:"quantity_after"`
	Notes          string    `json:"notes,omitempty"`
	UserID         *int64    `json:"user_id,omitempty"`
	CreatedAt      time.Time `json:"created_at"`

	// Joined fields (not always populated).
	ItemName     string `json:"item_name,omitempty"`
	ItemCategory string `json:"item_category,omitempty"`
	Username     string `json:"username,omitempty"`
}

// Stock change types.
const (
	ChangeTypeOpening    = "opening"
	ChangeTypeRestock    = "restock"
	ChangeTypeRequest    = "request"
	ChangeTypeAdjustment = "adjustment"
	ChangeTypeClosing    = "closing"
)

// ValidChangeType reports whether t is a known change type.
func ValidChangeType(t string) bool {
	switch t {
	case ChangeTypeOpening, ChangeTypeRestock, ChangeTypeRequest, ChangeTypeAdjustment, ChangeTypeClosing:
		return true
	}
	return false
}
