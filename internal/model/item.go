package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Item represents a catalog entry with a tracked warehouse quantity.
type Item struct {
	ID          int64           `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Category    string          `json:"category,omitempty"`
	Quantity    int             `json:"quantity"`
	MinQuantity int             `json:"min_quantity"`
	Unit        string          `json:"unit,omitempty"`
	Price       decimal.Decimal `json:"price"`
	PhotoMime   string          `json:"photo_mime,omitempty"`
	Status      string          `json:"status"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
	DeletedAt   *time.Time      `json:"deleted_at,omitempty"`
}

// Stock statuses, always derived from quantity and the reorder threshold.
const (
	StockStatusIn  = "in-stock"
	StockStatusLow = "low-stock"
	StockStatusOut = "out-of-stock"
)

// DeriveStockStatus computes an item's stock status from its quantity and
// reorder threshold. Every mutation path must persist the result of this
// function; status is never written independently of it.
func DeriveStockStatus(quantity, minQuantity int) string {
	switch {
	case quantity == 0:
		return StockStatusOut
	case quantity <= minQuantity:
		return StockStatusLow
	default:
		return StockStatusIn
	}
}
