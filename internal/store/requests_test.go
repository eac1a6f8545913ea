package store

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/stockroom-app/stockroom/internal/db"
	"github.com/stockroom-app/stockroom/internal/model"
)

func createTestUser(t *testing.T, database *sql.DB, username, role string) *model.User {
	t.Helper()
	user, err := CreateUser(context.Background(), database, username, "hash", role)
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	return user
}

func TestCreateRequestRoundTrip(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	requester := createTestUser(t, database, "alice", model.RoleUser)
	item1 := createTestItem(t, database, "Hammer", 10, 2)
	item2 := createTestItem(t, database, "Nails", 50, 10)

	req, err := CreateRequest(ctx, database, "Workshop refit", requester.ID, "new benches", model.PriorityHigh, nil,
		[]RequestLineInput{
			{ItemID: item1.ID, Quantity: 2},
			{ItemID: item2.ID, Quantity: 30},
		})
	if err != nil {
		t.Fatalf("CreateRequest: %v", err)
	}
	if req.Status != model.RequestStatusPending {
		t.Errorf("expected pending, got %q", req.Status)
	}
	if req.Reference == "" {
		t.Error("expected non-empty reference")
	}

	// Reading back returns exactly the created lines.
	got, err := GetRequest(ctx, database, req.ID)
	if err != nil {
		t.Fatalf("GetRequest: %v", err)
	}
	if len(got.Lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(got.Lines))
	}
	if got.Lines[0].ItemID != item1.ID || got.Lines[0].Quantity != 2 {
		t.Errorf("unexpected first line: %+v", got.Lines[0])
	}
	if got.Lines[1].ItemID != item2.ID || got.Lines[1].Quantity != 30 {
		t.Errorf("unexpected second line: %+v", got.Lines[1])
	}
	if got.RequesterName != "alice" {
		t.Errorf("expected requester name alice, got %q", got.RequesterName)
	}
}

func TestCreateRequestValidation(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	requester := createTestUser(t, database, "alice", model.RoleUser)
	item := createTestItem(t, database, "Hammer", 10, 2)

	if _, err := CreateRequest(ctx, database, "", requester.ID, "", model.PriorityLow, nil,
		[]RequestLineInput{{ItemID: item.ID, Quantity: 1}}); err == nil {
		t.Error("expected error for empty project name")
	}

	if _, err := CreateRequest(ctx, database, "Project", requester.ID, "", model.PriorityLow, nil, nil); err == nil {
		t.Error("expected error for no lines")
	}

	if _, err := CreateRequest(ctx, database, "Project", requester.ID, "", model.PriorityLow, nil,
		[]RequestLineInput{{ItemID: item.ID, Quantity: 0}}); err == nil {
		t.Error("expected error for zero quantity")
	}

	if _, err := CreateRequest(ctx, database, "Project", requester.ID, "", "urgent", nil,
		[]RequestLineInput{{ItemID: item.ID, Quantity: 1}}); err == nil {
		t.Error("expected error for invalid priority")
	}

	if _, err := CreateRequest(ctx, database, "Project", requester.ID, "", model.PriorityLow, nil,
		[]RequestLineInput{{ItemID: 999, Quantity: 1}}); !errors.Is(err, ErrItemNotFound) {
		t.Errorf("expected ErrItemNotFound for missing item, got %v", err)
	}
}

func TestApproveRequestDeductsStock(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	requester := createTestUser(t, database, "alice", model.RoleUser)
	approver := createTestUser(t, database, "boss", model.RoleManager)
	item := createTestItem(t, database, "Hammer", 10, 2)

	req, _ := CreateRequest(ctx, database, "Project", requester.ID, "", model.PriorityMedium, nil,
		[]RequestLineInput{{ItemID: item.ID, Quantity: 5}})

	if err := SetRequestStatus(ctx, database, req.ID, model.RequestStatusApproved, &approver.ID); err != nil {
		t.Fatalf("SetRequestStatus: %v", err)
	}

	got, _ := GetItem(ctx, database, item.ID)
	if got.Quantity != 5 {
		t.Errorf("expected quantity 5, got %d", got.Quantity)
	}
	if got.Status != model.StockStatusIn {
		t.Errorf("expected in-stock, got %q", got.Status)
	}

	// One 'request' history entry with before 10, change -5, after 5.
	history, _ := GetItemHistory(ctx, database, item.ID)
	if len(history) != 2 { // opening + request
		t.Fatalf("expected 2 history entries, got %d", len(history))
	}
	last := history[1]
	if last.ChangeType != model.ChangeTypeRequest {
		t.Errorf("expected request entry, got %q", last.ChangeType)
	}
	if last.QuantityBefore != 10 || last.QuantityChange != -5 || last.QuantityAfter != 5 {
		t.Errorf("expected {10, -5, 5}, got {%d, %d, %d}", last.QuantityBefore, last.QuantityChange, last.QuantityAfter)
	}

	// Line snapshots and request fields are updated.
	updated, _ := GetRequest(ctx, database, req.ID)
	if updated.Status != model.RequestStatusApproved {
		t.Errorf("expected approved, got %q", updated.Status)
	}
	if updated.ApprovedBy == nil || *updated.ApprovedBy != approver.ID {
		t.Errorf("expected approved_by %d, got %v", approver.ID, updated.ApprovedBy)
	}
	line := updated.Lines[0]
	if line.StockBefore == nil || *line.StockBefore != 10 {
		t.Errorf("expected stock_before 10, got %v", line.StockBefore)
	}
	if line.StockAfter == nil || *line.StockAfter != 5 {
		t.Errorf("expected stock_after 5, got %v", line.StockAfter)
	}
}

func TestApproveRequestClampsInsufficientStock(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	requester := createTestUser(t, database, "alice", model.RoleUser)
	item := createTestItem(t, database, "Hammer", 10, 2)

	// Requesting more than available is permitted and zeroes the stock.
	req, _ := CreateRequest(ctx, database, "Project", requester.ID, "", model.PriorityMedium, nil,
		[]RequestLineInput{{ItemID: item.ID, Quantity: 20}})

	if err := SetRequestStatus(ctx, database, req.ID, model.RequestStatusApproved, nil); err != nil {
		t.Fatalf("SetRequestStatus: %v", err)
	}

	got, _ := GetItem(ctx, database, item.ID)
	if got.Quantity != 0 {
		t.Errorf("expected quantity clamped to 0, got %d", got.Quantity)
	}
	if got.Status != model.StockStatusOut {
		t.Errorf("expected out-of-stock, got %q", got.Status)
	}

	// The history delta stays nominal (-20) while after is the clamped 0.
	history, _ := GetItemHistory(ctx, database, item.ID)
	last := history[len(history)-1]
	if last.QuantityBefore != 10 || last.QuantityChange != -20 || last.QuantityAfter != 0 {
		t.Errorf("expected {10, -20, 0}, got {%d, %d, %d}", last.QuantityBefore, last.QuantityChange, last.QuantityAfter)
	}
}

func TestReapproveIsNoOpOnStock(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	requester := createTestUser(t, database, "alice", model.RoleUser)
	item := createTestItem(t, database, "Hammer", 10, 2)

	req, _ := CreateRequest(ctx, database, "Project", requester.ID, "", model.PriorityMedium, nil,
		[]RequestLineInput{{ItemID: item.ID, Quantity: 5}})

	SetRequestStatus(ctx, database, req.ID, model.RequestStatusApproved, nil)
	if err := SetRequestStatus(ctx, database, req.ID, model.RequestStatusApproved, nil); err != nil {
		t.Fatalf("re-approve: %v", err)
	}

	// Stock deducted exactly once.
	got, _ := GetItem(ctx, database, item.ID)
	if got.Quantity != 5 {
		t.Errorf("expected quantity 5 after double approve, got %d", got.Quantity)
	}

	history, _ := GetItemHistory(ctx, database, item.ID)
	if len(history) != 2 { // opening + one request entry
		t.Errorf("expected 2 history entries, got %d", len(history))
	}

	// The requester is notified exactly once.
	notifications, _ := ListNotifications(ctx, database, requester.ID)
	if len(notifications) != 1 {
		t.Errorf("expected 1 notification after double approve, got %d", len(notifications))
	}
}

func TestReapproveKeepsOriginalApprover(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	requester := createTestUser(t, database, "alice", model.RoleUser)
	manager := createTestUser(t, database, "bob", model.RoleManager)
	other := createTestUser(t, database, "carol", model.RoleManager)
	item := createTestItem(t, database, "Hammer", 10, 2)

	req, _ := CreateRequest(ctx, database, "Project", requester.ID, "", model.PriorityMedium, nil,
		[]RequestLineInput{{ItemID: item.ID, Quantity: 5}})

	SetRequestStatus(ctx, database, req.ID, model.RequestStatusApproved, &manager.ID)
	SetRequestStatus(ctx, database, req.ID, model.RequestStatusApproved, &other.ID)

	got, _ := GetRequest(ctx, database, req.ID)
	if got.ApprovedBy == nil || *got.ApprovedBy != manager.ID {
		t.Errorf("expected approved_by to stay %d, got %v", manager.ID, got.ApprovedBy)
	}
}

func TestRejectRequestLeavesStockAlone(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	requester := createTestUser(t, database, "alice", model.RoleUser)
	item := createTestItem(t, database, "Hammer", 10, 2)

	req, _ := CreateRequest(ctx, database, "Project", requester.ID, "", model.PriorityMedium, nil,
		[]RequestLineInput{{ItemID: item.ID, Quantity: 5}})

	if err := SetRequestStatus(ctx, database, req.ID, model.RequestStatusRejected, nil); err != nil {
		t.Fatalf("SetRequestStatus: %v", err)
	}

	got, _ := GetItem(ctx, database, item.ID)
	if got.Quantity != 10 {
		t.Errorf("expected quantity untouched at 10, got %d", got.Quantity)
	}

	history, _ := GetItemHistory(ctx, database, item.ID)
	if len(history) != 1 { // only the opening entry
		t.Errorf("expected 1 history entry, got %d", len(history))
	}

	updated, _ := GetRequest(ctx, database, req.ID)
	if updated.Status != model.RequestStatusRejected {
		t.Errorf("expected rejected, got %q", updated.Status)
	}
}

func TestApproveRollsBackOnPartialFailure(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	requester := createTestUser(t, database, "alice", model.RoleUser)
	item1 := createTestItem(t, database, "Hammer", 10, 2)
	item2 := createTestItem(t, database, "Nails", 50, 10)

	req, _ := CreateRequest(ctx, database, "Project", requester.ID, "", model.PriorityMedium, nil,
		[]RequestLineInput{
			{ItemID: item1.ID, Quantity: 2},
			{ItemID: item2.ID, Quantity: 5},
		})

	// Break the second line by removing its item row out from under the
	// workflow (FK checks off for the surgery only).
	if _, err := database.ExecContext(ctx, "PRAGMA foreign_keys=OFF"); err != nil {
		t.Fatalf("disabling foreign keys: %v", err)
	}
	if _, err := database.ExecContext(ctx, `DELETE FROM stock_history WHERE item_id = ?`, item2.ID); err != nil {
		t.Fatalf("deleting item history: %v", err)
	}
	if _, err := database.ExecContext(ctx, `DELETE FROM items WHERE id = ?`, item2.ID); err != nil {
		t.Fatalf("deleting item: %v", err)
	}
	if _, err := database.ExecContext(ctx, "PRAGMA foreign_keys=ON"); err != nil {
		t.Fatalf("re-enabling foreign keys: %v", err)
	}

	err := SetRequestStatus(ctx, database, req.ID, model.RequestStatusApproved, nil)
	if !errors.Is(err, ErrItemNotFound) {
		t.Fatalf("expected ErrItemNotFound, got %v", err)
	}

	// The first line's already-applied deduction must be rolled back.
	got, _ := GetItem(ctx, database, item1.ID)
	if got.Quantity != 10 {
		t.Errorf("expected first item rolled back to 10, got %d", got.Quantity)
	}

	history, _ := GetItemHistory(ctx, database, item1.ID)
	if len(history) != 1 {
		t.Errorf("expected no request history after rollback, got %d entries", len(history))
	}

	// The request stays in its prior status.
	updated, _ := GetRequest(ctx, database, req.ID)
	if updated == nil {
		t.Fatal("expected request to still exist")
	}
	if updated.Status != model.RequestStatusPending {
		t.Errorf("expected request still pending, got %q", updated.Status)
	}
}

func TestCompletedRequestIsImmutable(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	requester := createTestUser(t, database, "alice", model.RoleUser)
	item := createTestItem(t, database, "Hammer", 10, 2)

	req, _ := CreateRequest(ctx, database, "Project", requester.ID, "", model.PriorityMedium, nil,
		[]RequestLineInput{{ItemID: item.ID, Quantity: 5}})

	SetRequestStatus(ctx, database, req.ID, model.RequestStatusApproved, nil)
	SetRequestStatus(ctx, database, req.ID, model.RequestStatusCompleted, nil)

	if err := SetRequestStatus(ctx, database, req.ID, model.RequestStatusPending, nil); !errors.Is(err, ErrRequestImmutable) {
		t.Errorf("expected ErrRequestImmutable changing a completed request, got %v", err)
	}
}

func TestSetRequestStatusNotFound(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	err := SetRequestStatus(ctx, database, 999, model.RequestStatusApproved, nil)
	if !errors.Is(err, ErrRequestNotFound) {
		t.Errorf("expected ErrRequestNotFound, got %v", err)
	}
}

func TestTransitionNotifiesRequester(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	requester := createTestUser(t, database, "alice", model.RoleUser)
	item := createTestItem(t, database, "Hammer", 10, 2)

	req, _ := CreateRequest(ctx, database, "Project", requester.ID, "", model.PriorityMedium, nil,
		[]RequestLineInput{{ItemID: item.ID, Quantity: 1}})

	SetRequestStatus(ctx, database, req.ID, model.RequestStatusRejected, nil)

	notifications, err := ListNotifications(ctx, database, requester.ID)
	if err != nil {
		t.Fatalf("ListNotifications: %v", err)
	}
	if len(notifications) != 1 {
		t.Fatalf("expected 1 notification, got %d", len(notifications))
	}
	if notifications[0].Read {
		t.Error("expected notification to start unread")
	}
	if notifications[0].RequestID == nil || *notifications[0].RequestID != req.ID {
		t.Errorf("expected notification for request %d, got %v", req.ID, notifications[0].RequestID)
	}
}

func TestDeleteRequestCascades(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	requester := createTestUser(t, database, "alice", model.RoleUser)
	item := createTestItem(t, database, "Hammer", 10, 2)

	req, _ := CreateRequest(ctx, database, "Project", requester.ID, "", model.PriorityMedium, nil,
		[]RequestLineInput{{ItemID: item.ID, Quantity: 1}})

	if err := DeleteRequest(ctx, database, req.ID); err != nil {
		t.Fatalf("DeleteRequest: %v", err)
	}

	got, _ := GetRequest(ctx, database, req.ID)
	if got != nil {
		t.Error("expected request gone after delete")
	}

	var lines int
	database.QueryRowContext(ctx, `SELECT COUNT(*) FROM request_items WHERE request_id = ?`, req.ID).Scan(&lines)
	if lines != 0 {
		t.Errorf("expected 0 lines after cascade, got %d", lines)
	}

	if err := DeleteRequest(ctx, database, req.ID); !errors.Is(err, ErrRequestNotFound) {
		t.Errorf("expected ErrRequestNotFound for second delete, got %v", err)
	}
}

func TestListRequestsFiltered(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	alice := createTestUser(t, database, "alice", model.RoleUser)
	bob := createTestUser(t, database, "bob", model.RoleUser)
	item := createTestItem(t, database, "Hammer", 10, 2)

	r1, _ := CreateRequest(ctx, database, "Project A", alice.ID, "", model.PriorityLow, nil,
		[]RequestLineInput{{ItemID: item.ID, Quantity: 1}})
	CreateRequest(ctx, database, "Project B", bob.ID, "", model.PriorityLow, nil,
		[]RequestLineInput{{ItemID: item.ID, Quantity: 1}})

	SetRequestStatus(ctx, database, r1.ID, model.RequestStatusApproved, nil)

	all, _ := ListRequests(ctx, database, 0, "")
	if len(all) != 2 {
		t.Errorf("expected 2 requests, got %d", len(all))
	}

	byRequester, _ := ListRequests(ctx, database, alice.ID, "")
	if len(byRequester) != 1 || byRequester[0].ProjectName != "Project A" {
		t.Errorf("expected Project A for alice, got %v", byRequester)
	}

	pending, _ := ListRequests(ctx, database, 0, model.RequestStatusPending)
	if len(pending) != 1 || pending[0].ProjectName != "Project B" {
		t.Errorf("expected Project B pending, got %v", pending)
	}
}
