package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/stockroom-app/stockroom/internal/model"
)

// NewItem holds the fields for creating a catalog item.
type NewItem struct {
	Name        string
	Description string
	Category    string
	Quantity    int
	MinQuantity int
	Unit        string
	Price       decimal.Decimal
}

// CreateItem creates a new item with a derived stock status. A positive
// initial quantity produces an 'opening' history entry in the same
// transaction.
func CreateItem(ctx context.Context, db *sql.DB, n NewItem, userID *int64) (*model.Item, error) {
	if n.Name == "" {
		return nil, fmt.Errorf("name required")
	}
	if n.Quantity < 0 || n.MinQuantity < 0 {
		return nil, fmt.Errorf("quantities must be non-negative")
	}
	if n.Unit == "" {
		n.Unit = "pcs"
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	status := model.DeriveStockStatus(n.Quantity, n.MinQuantity)
	result, err := tx.ExecContext(ctx,
		`INSERT INTO items (name, description, category, quantity, min_quantity, unit, price, status)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		n.Name, n.Description, n.Category, n.Quantity, n.MinQuantity, n.Unit, n.Price.String(), status,
	)
	if err != nil {
		return nil, fmt.Errorf("creating item: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting item id: %w", err)
	}

	if n.Quantity > 0 {
		if err := recordHistory(ctx, tx, id, model.ChangeTypeOpening, 0, n.Quantity, n.Quantity, "opening stock", userID); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing item creation: %w", err)
	}

	return GetItem(ctx, db, id)
}

// GetItem returns an item by ID, including soft-deleted items so that
// history stays resolvable.
func GetItem(ctx context.Context, db *sql.DB, id int64) (*model.Item, error) {
	item := &model.Item{}
	var description, category, photoMime sql.NullString
	var price string
	err := db.QueryRowContext(ctx,
		`SELECT id, name, description, category, quantity, min_quantity, unit, price, photo_mime,
		        status, created_at, updated_at, deleted_at
		 FROM items WHERE id = ?`, id,
	).Scan(&item.ID, &item.Name, &description, &category, &item.Quantity, &item.MinQuantity,
		&item.Unit, &price, &photoMime, &item.Status, &item.CreatedAt, &item.UpdatedAt, &item.DeletedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting item: %w", err)
	}
	item.Description = description.String
	item.Category = category.String
	item.PhotoMime = photoMime.String
	if item.Price, err = decimal.NewFromString(price); err != nil {
		return nil, fmt.Errorf("parsing item price: %w", err)
	}
	return item, nil
}

// ListItems returns all non-deleted items, optionally filtered by stock
// status, category, or a name substring.
func ListItems(ctx context.Context, db *sql.DB, status, category, search string) ([]model.Item, error) {
	query := `SELECT id, name, description, category, quantity, min_quantity, unit, price, photo_mime,
	                 status, created_at, updated_at, deleted_at
	          FROM items WHERE deleted_at IS NULL`
	var args []any

	if status != "" {
		query += ` AND status = ?`
		args = append(args, status)
	}
	if category != "" {
		query += ` AND category = ?`
		args = append(args, category)
	}
	if search != "" {
		query += ` AND name LIKE ?`
		args = append(args, "%"+search+"%")
	}

	query += ` ORDER BY name`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing items: %w", err)
	}
	defer rows.Close()

	var items []model.Item
	for rows.Next() {
		var item model.Item
		var description, category, photoMime sql.NullString
		var price string
		if err := rows.Scan(&item.ID, &item.Name, &description, &category, &item.Quantity, &item.MinQuantity,
			&item.Unit, &price, &photoMime, &item.Status, &item.CreatedAt, &item.UpdatedAt, &item.DeletedAt); err != nil {
			return nil, fmt.Errorf("scanning item: %w", err)
		}
		item.Description = description.String
		item.Category = category.String
		item.PhotoMime = photoMime.String
		if item.Price, err = decimal.NewFromString(price); err != nil {
			return nil, fmt.Errorf("parsing item price: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// AdjustItemQuantity applies a signed delta to an item's quantity inside one
// transaction: the new quantity is clamped at zero (saturating, never
// negative), the stock status is re-derived, and a history entry is appended
// with the nominal delta. Returns the before and after quantities.
// Fails with ErrItemNotFound if the item does not resolve.
func AdjustItemQuantity(ctx context.Context, db *sql.DB, itemID int64, delta int, changeType, notes string, userID *int64) (before, after int, err error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	before, after, err = adjustItemQuantityTx(ctx, tx, itemID, delta, changeType, notes, userID)
	if err != nil {
		return 0, 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, 0, fmt.Errorf("committing adjustment: %w", err)
	}
	return before, after, nil
}

// adjustItemQuantityTx is the transactional body of AdjustItemQuantity,
// shared with the request approval workflow.
func adjustItemQuantityTx(ctx context.Context, tx *sql.Tx, itemID int64, delta int, changeType, notes string, userID *int64) (before, after int, err error) {
	var minQuantity int
	err = tx.QueryRowContext(ctx,
		`SELECT quantity, min_quantity FROM items WHERE id = ?`, itemID,
	).Scan(&before, &minQuantity)
	if err == sql.ErrNoRows {
		return 0, 0, ErrItemNotFound
	}
	if err != nil {
		return 0, 0, fmt.Errorf("reading item quantity: %w", err)
	}

	// Saturating: never below zero, even if the delta would underflow.
	after = before + delta
	if after < 0 {
		after = 0
	}

	status := model.DeriveStockStatus(after, minQuantity)
	_, err = tx.ExecContext(ctx,
		`UPDATE items SET quantity = ?, status = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		after, status, itemID,
	)
	if err != nil {
		return 0, 0, fmt.Errorf("updating item quantity: %w", err)
	}

	// The recorded delta stays nominal even when the result was clamped.
	if err := recordHistory(ctx, tx, itemID, changeType, before, delta, after, notes, userID); err != nil {
		return 0, 0, err
	}

	return before, after, nil
}

// ItemUpdate holds a partial item edit. Nil fields are left untouched.
// A non-nil Quantity is an absolute set, not a delta.
type ItemUpdate struct {
	Name        *string
	Description *string
	Category    *string
	MinQuantity *int
	Unit        *string
	Price       *decimal.Decimal
	Quantity    *int
	Notes       string
}

// UpdateItem applies a partial update. If the quantity is included it is
// treated as an absolute set and triggers the same before/after capture,
// status recompute, and history append as AdjustItemQuantity (recorded as
// an adjustment). The status is re-derived whenever quantity or the reorder
// threshold changes.
func UpdateItem(ctx context.Context, db *sql.DB, id int64, upd ItemUpdate, userID *int64) (*model.Item, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var name, description, category, unit, price string
	var quantity, minQuantity int
	err = tx.QueryRowContext(ctx,
		`SELECT name, description, category, quantity, min_quantity, unit, price
		 FROM items WHERE id = ? AND deleted_at IS NULL`, id,
	).Scan(&name, &description, &category, &quantity, &minQuantity, &unit, &price)
	if err == sql.ErrNoRows {
		return nil, ErrItemNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reading item: %w", err)
	}

	if upd.Name != nil {
		name = *upd.Name
	}
	if upd.Description != nil {
		description = *upd.Description
	}
	if upd.Category != nil {
		category = *upd.Category
	}
	if upd.Unit != nil {
		unit = *upd.Unit
	}
	if upd.Price != nil {
		price = upd.Price.String()
	}
	if upd.MinQuantity != nil {
		if *upd.MinQuantity < 0 {
			return nil, fmt.Errorf("min quantity must be non-negative")
		}
		minQuantity = *upd.MinQuantity
	}

	before := quantity
	if upd.Quantity != nil {
		quantity = *upd.Quantity
		if quantity < 0 {
			quantity = 0
		}
	}

	status := model.DeriveStockStatus(quantity, minQuantity)
	_, err = tx.ExecContext(ctx,
		`UPDATE items SET name = ?, description = ?, category = ?, quantity = ?, min_quantity = ?,
		        unit = ?, price = ?, status = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?`,
		name, description, category, quantity, minQuantity, unit, price, status, id,
	)
	if err != nil {
		return nil, fmt.Errorf("updating item: %w", err)
	}

	if upd.Quantity != nil && quantity != before {
		notes := upd.Notes
		if notes == "" {
			notes = "manual adjustment"
		}
		if err := recordHistory(ctx, tx, id, model.ChangeTypeAdjustment, before, quantity-before, quantity, notes, userID); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing item update: %w", err)
	}

	return GetItem(ctx, db, id)
}

// DeleteItem soft-deletes an item. The row is never physically removed so
// stock history and request lines stay resolvable.
func DeleteItem(ctx context.Context, db *sql.DB, id int64) error {
	res, err := db.ExecContext(ctx,
		`UPDATE items SET deleted_at = CURRENT_TIMESTAMP WHERE id = ? AND deleted_at IS NULL`,
		id,
	)
	if err != nil {
		return fmt.Errorf("deleting item: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrItemNotFound
	}
	return nil
}

// SetItemPhoto sets an item's photo data.
func SetItemPhoto(ctx context.Context, db *sql.DB, id int64, photo []byte, mime string) error {
	res, err := db.ExecContext(ctx,
		`UPDATE items SET photo = ?, photo_mime = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND deleted_at IS NULL`,
		photo, mime, id,
	)
	if err != nil {
		return fmt.Errorf("setting item photo: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrItemNotFound
	}
	return nil
}

// GetItemPhoto returns an item's photo data and MIME type.
func GetItemPhoto(ctx context.Context, db *sql.DB, id int64) ([]byte, string, error) {
	var photo []byte
	var mime sql.NullString
	err := db.QueryRowContext(ctx,
		`SELECT photo, photo_mime FROM items WHERE id = ?`, id,
	).Scan(&photo, &mime)
	if err == sql.ErrNoRows {
		return nil, "", nil
	}
	if err != nil {
		return nil, "", fmt.Errorf("getting item photo: %w", err)
	}
	return photo, mime.String, nil
}
