package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/stockroom-app/stockroom/internal/model"
)

// RequestLineInput is one item line of a new request.
type RequestLineInput struct {
	ItemID   int64 `json:"item_id"`
	Quantity int   `json:"quantity"`
}

// CreateRequest creates a request and all of its line items in a single
// transaction. Line items must reference existing, non-deleted items.
func CreateRequest(ctx context.Context, db *sql.DB, projectName string, requesterID int64, reason, priority string, dueDate *time.Time, lines []RequestLineInput) (*model.Request, error) {
	if projectName == "" {
		return nil, fmt.Errorf("project name required")
	}
	if len(lines) == 0 {
		return nil, fmt.Errorf("at least one item required")
	}
	if priority == "" {
		priority = model.PriorityMedium
	}
	if !model.ValidPriority(priority) {
		return nil, fmt.Errorf("invalid priority %q", priority)
	}
	for _, line := range lines {
		if line.Quantity <= 0 {
			return nil, fmt.Errorf("item quantity must be positive")
		}
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx,
		`INSERT INTO requests (reference, project_name, requester_id, reason, priority, due_date)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		uuid.NewString(), projectName, requesterID, reason, priority, dueDate,
	)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting request id: %w", err)
	}

	for _, line := range lines {
		var exists int
		err = tx.QueryRowContext(ctx,
			`SELECT 1 FROM items WHERE id = ? AND deleted_at IS NULL`, line.ItemID,
		).Scan(&exists)
		if err == sql.ErrNoRows {
			return nil, ErrItemNotFound
		}
		if err != nil {
			return nil, fmt.Errorf("checking item %d: %w", line.ItemID, err)
		}

		_, err = tx.ExecContext(ctx,
			`INSERT INTO request_items (request_id, item_id, quantity) VALUES (?, ?, ?)`,
			id, line.ItemID, line.Quantity,
		)
		if err != nil {
			return nil, fmt.Errorf("creating request line: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing request creation: %w", err)
	}

	return GetRequest(ctx, db, id)
}

// GetRequest returns a request with its line items.
func GetRequest(ctx context.Context, db *sql.DB, id int64) (*model.Request, error) {
	req := &model.Request{}
	var reason sql.NullString
	err := db.QueryRowContext(ctx,
		`SELECT r.id, r.reference, r.project_name, r.requester_id, r.reason, r.priority, r.due_date,
		        r.status, r.approved_by, r.created_at, r.updated_at, u.username AS requester_name
		 FROM requests r
		 JOIN users u ON u.id = r.requester_id
		 WHERE r.id = ?`, id,
	).Scan(&req.ID, &req.Reference, &req.ProjectName, &req.RequesterID, &reason, &req.Priority,
		&req.DueDate, &req.Status, &req.ApprovedBy, &req.CreatedAt, &req.UpdatedAt, &req.RequesterName)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting request: %w", err)
	}
	req.Reason = reason.String

	if req.Lines, err = getRequestLines(ctx, db, id); err != nil {
		return nil, err
	}
	return req, nil
}

func getRequestLines(ctx context.Context, db *sql.DB, requestID int64) ([]model.RequestLine, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT l.id, l.request_id, l.item_id, l.quantity, l.stock_before, l.stock_after, i.name AS item_name
		 FROM request_items l
		 JOIN items i ON i.id = l.item_id
		 WHERE l.request_id = ?
		 ORDER BY l.id`, requestID,
	)
	if err != nil {
		return nil, fmt.Errorf("getting request lines: %w", err)
	}
	defer rows.Close()

	var lines []model.RequestLine
	for rows.Next() {
		var l model.RequestLine
		if err := rows.Scan(&l.ID, &l.RequestID, &l.ItemID, &l.Quantity, &l.StockBefore, &l.StockAfter, &l.ItemName); err != nil {
			return nil, fmt.Errorf("scanning request line: %w", err)
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}

// ListRequests returns requests newest first, optionally filtered by
// requester or status. Line items are not populated.
func ListRequests(ctx context.Context, db *sql.DB, requesterID int64, status string) ([]model.Request, error) {
	query := `SELECT r.id, r.reference, r.project_name, r.requester_id, r.reason, r.priority, r.due_date,
	                 r.status, r.approved_by, r.created_at, r.updated_at, u.username AS requester_name
	          FROM requests r
	          JOIN users u ON u.id = r.requester_id
	          WHERE 1=1`
	var args []any

	if requesterID > 0 {
		query += ` AND r.requester_id = ?`
		args = append(args, requesterID)
	}
	if status != "" {
		query += ` AND r.status = ?`
		args = append(args, status)
	}

	query += ` ORDER BY r.created_at DESC, r.id DESC`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing requests: %w", err)
	}
	defer rows.Close()

	var requests []model.Request
	for rows.Next() {
		var r model.Request
		var reason sql.NullString
		if err := rows.Scan(&r.ID, &r.Reference, &r.ProjectName, &r.RequesterID, &reason, &r.Priority,
			&r.DueDate, &r.Status, &r.ApprovedBy, &r.CreatedAt, &r.UpdatedAt, &r.RequesterName); err != nil {
			return nil, fmt.Errorf("scanning request: %w", err)
		}
		r.Reason = reason.String
		requests = append(requests, r)
	}
	return requests, rows.Err()
}

// SetRequestStatus transitions a request to newStatus inside one
// transaction.
//
// Approving a pending request deducts stock for every line item: the item's
// quantity is reduced by the requested amount, clamped at zero (requesting
// more than available zeroes the stock instead of failing), the stock status
// is re-derived, a 'request' history entry is appended with the nominal
// negative delta, and before/after snapshots are written onto the line.
// Approving an already-approved request is a no-op on stock, so a retried
// approval can never deduct twice. Any other transition only updates the
// request row. A completed request is immutable.
//
// If any step fails the whole transition rolls back; partial application of
// some lines but not others is never observable.
func SetRequestStatus(ctx context.Context, db *sql.DB, id int64, newStatus string, actorID *int64) error {
	if !model.ValidRequestStatus(newStatus) {
		return fmt.Errorf("invalid status %q", newStatus)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var current, reference string
	var requesterID int64
	err = tx.QueryRowContext(ctx,
		`SELECT status, reference, requester_id FROM requests WHERE id = ?`, id,
	).Scan(&current, &reference, &requesterID)
	if err == sql.ErrNoRows {
		return ErrRequestNotFound
	}
	if err != nil {
		return fmt.Errorf("reading request status: %w", err)
	}

	if current == model.RequestStatusCompleted {
		return ErrRequestImmutable
	}

	// A retried transition to the current status is a no-op: no stock
	// movement, no repeated notification, no approved_by rewrite.
	if current == newStatus {
		return nil
	}

	// Stock is deducted exactly once: only on the transition into approved.
	if newStatus == model.RequestStatusApproved {
		if err := deductRequestStock(ctx, tx, id, reference, actorID); err != nil {
			return err
		}
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE requests SET status = ?, approved_by = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		newStatus, actorID, id,
	)
	if err != nil {
		return fmt.Errorf("updating request status: %w", err)
	}

	if newStatus == model.RequestStatusApproved || newStatus == model.RequestStatusRejected {
		message := fmt.Sprintf("Your request %s was %s", reference, newStatus)
		if err := createNotificationTx(ctx, tx, requesterID, id, message); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing status change: %w", err)
	}
	return nil
}

// deductRequestStock applies the approval deduction for every line of a
// request inside the caller's transaction.
func deductRequestStock(ctx context.Context, tx *sql.Tx, requestID int64, reference string, actorID *int64) error {
	rows, err := tx.QueryContext(ctx,
		`SELECT id, item_id, quantity FROM request_items WHERE request_id = ? ORDER BY id`, requestID,
	)
	if err != nil {
		return fmt.Errorf("reading request lines: %w", err)
	}

	type line struct {
		id       int64
		itemID   int64
		quantity int
	}
	var lines []line
	for rows.Next() {
		var l line
		if err := rows.Scan(&l.id, &l.itemID, &l.quantity); err != nil {
			rows.Close()
			return fmt.Errorf("scanning request line: %w", err)
		}
		lines = append(lines, l)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("reading request lines: %w", err)
	}

	notes := fmt.Sprintf("request %s approved", reference)
	for _, l := range lines {
		before, after, err := adjustItemQuantityTx(ctx, tx, l.itemID, -l.quantity, model.ChangeTypeRequest, notes, actorID)
		if err != nil {
			return err
		}

		// Snapshot for audit display on the request detail view.
		_, err = tx.ExecContext(ctx,
			`UPDATE request_items SET stock_before = ?, stock_after = ? WHERE id = ?`,
			before, after, l.id,
		)
		if err != nil {
			return fmt.Errorf("updating line snapshot: %w", err)
		}
	}
	return nil
}

// DeleteRequest hard-deletes a request and its line items.
func DeleteRequest(ctx context.Context, db *sql.DB, id int64) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM request_items WHERE request_id = ?`, id); err != nil {
		return fmt.Errorf("deleting request lines: %w", err)
	}

	result, err := tx.ExecContext(ctx, `DELETE FROM requests WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting request: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return ErrRequestNotFound
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing request deletion: %w", err)
	}
	return nil
}
