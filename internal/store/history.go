package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/stockroom-app/stockroom/internal/model"
)

// DefaultHistoryWindowDays bounds the global recent-history projection.
const DefaultHistoryWindowDays = 30

// recordHistory appends one stock history entry. It must always run inside
// the same transaction as the quantity mutation it documents, so the two
// can never diverge. Change records the nominal delta; before and after
// record the persisted (possibly clamped) values.
func recordHistory(ctx context.Context, tx *sql.Tx, itemID int64, changeType string, before, change, after int, notes string, userID *int64) error {
	if !model.ValidChangeType(changeType) {
		return fmt.Errorf("invalid change type %q", changeType)
	}
	_, err := tx.ExecContext(ctx,
		`INSERT INTO stock_history (item_id, change_type, quantity_before, quantity_change, quantity_after, notes, user_id)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		itemID, changeType, before, change, after, notes, userID,
	)
	if err != nil {
		return fmt.Errorf("recording stock history: %w", err)
	}
	return nil
}

// GetItemHistory returns all history entries for one item, oldest first,
// for running-balance display.
func GetItemHistory(ctx context.Context, db *sql.DB, itemID int64) ([]model.StockHistoryEntry, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT h.id, h.item_id, h.change_type, h.quantity_before, h.quantity_change, h.quantity_after,
		        h.notes, h.user_id, h.created_at, i.name AS item_name, i.category
		 FROM stock_history h
		 JOIN items i ON i.id = h.item_id
		 WHERE h.item_id = ?
		 ORDER BY h.created_at, h.id`, itemID,
	)
	if err != nil {
		return nil, fmt.Errorf("getting item history: %w", err)
	}
	defer rows.Close()

	return scanHistory(rows)
}

// ListRecentHistory returns history entries across all items within the
// lookback window, newest first. A non-positive days falls back to the
// default window.
func ListRecentHistory(ctx context.Context, db *sql.DB, days int) ([]model.StockHistoryEntry, error) {
	if days <= 0 {
		days = DefaultHistoryWindowDays
	}
	rows, err := db.QueryContext(ctx,
		`SELECT h.id, h.item_id, h.change_type, h.quantity_before, h.quantity_change, h.quantity_after,
		        h.notes, h.user_id, h.created_at, i.name AS item_name, i.category
		 FROM stock_history h
		 JOIN items i ON i.id = h.item_id
		 WHERE h.created_at >= datetime('now', ?)
		 ORDER BY h.created_at DESC, h.id DESC`,
		fmt.Sprintf("-%d days", days),
	)
	if err != nil {
		return nil, fmt.Errorf("listing recent history: %w", err)
	}
	defer rows.Close()

	return scanHistory(rows)
}

func scanHistory(rows *sql.Rows) ([]model.StockHistoryEntry, error) {
	var entries []model.StockHistoryEntry
	for rows.Next() {
		var e model.StockHistoryEntry
		var notes, category sql.NullString
		if err := rows.Scan(&e.ID, &e.ItemID, &e.ChangeType, &e.QuantityBefore, &e.QuantityChange, &e.QuantityAfter,
			&notes, &e.UserID, &e.CreatedAt, &e.ItemName, &category); err != nil {
			return nil, fmt.Errorf("scanning stock history: %w", err)
		}
		e.Notes = notes.String
		e.ItemCategory = category.String
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
