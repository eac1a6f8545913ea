package store

import (
	"context"
	"testing"

	"github.com/stockroom-app/stockroom/internal/db"
	"github.com/stockroom-app/stockroom/internal/model"
)

func TestGetItemHistoryAscending(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	item := createTestItem(t, database, "Hammer", 5, 1)
	AdjustItemQuantity(ctx, database, item.ID, 3, model.ChangeTypeRestock, "delivery", nil)
	AdjustItemQuantity(ctx, database, item.ID, -2, model.ChangeTypeAdjustment, "breakage", nil)

	history, err := GetItemHistory(ctx, database, item.ID)
	if err != nil {
		t.Fatalf("GetItemHistory: %v", err)
	}
	if len(history) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(history))
	}

	// Oldest first, with a consistent running balance.
	types := []string{model.ChangeTypeOpening, model.ChangeTypeRestock, model.ChangeTypeAdjustment}
	for i, e := range history {
		if e.ChangeType != types[i] {
			t.Errorf("entry %d: expected %q, got %q", i, types[i], e.ChangeType)
		}
		if i > 0 && e.QuantityBefore != history[i-1].QuantityAfter {
			t.Errorf("entry %d: before %d does not chain from prior after %d", i, e.QuantityBefore, history[i-1].QuantityAfter)
		}
	}
	if history[2].QuantityAfter != 6 {
		t.Errorf("expected final balance 6, got %d", history[2].QuantityAfter)
	}
}

func TestListRecentHistoryJoinsItems(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	item := createTestItem(t, database, "Hammer", 5, 1)
	other := createTestItem(t, database, "Nails", 20, 5)
	AdjustItemQuantity(ctx, database, item.ID, 1, model.ChangeTypeRestock, "", nil)

	entries, err := ListRecentHistory(ctx, database, 30)
	if err != nil {
		t.Fatalf("ListRecentHistory: %v", err)
	}
	if len(entries) != 3 { // two openings + one restock
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}

	// Newest first, with item name and category joined for display.
	if entries[0].ChangeType != model.ChangeTypeRestock {
		t.Errorf("expected newest entry first, got %q", entries[0].ChangeType)
	}
	for _, e := range entries {
		if e.ItemName == "" {
			t.Errorf("expected joined item name on entry %d", e.ID)
		}
		if e.ItemCategory != "tools" {
			t.Errorf("expected joined category 'tools', got %q", e.ItemCategory)
		}
	}
	_ = other
}

func TestListRecentHistoryWindow(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	item := createTestItem(t, database, "Hammer", 5, 1)

	// Backdate the opening entry past the lookback window.
	if _, err := database.ExecContext(ctx,
		`UPDATE stock_history SET created_at = datetime('now', '-60 days') WHERE item_id = ?`, item.ID,
	); err != nil {
		t.Fatalf("backdating history: %v", err)
	}

	entries, err := ListRecentHistory(ctx, database, 30)
	if err != nil {
		t.Fatalf("ListRecentHistory: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("expected 0 entries inside window, got %d", len(entries))
	}

	wide, _ := ListRecentHistory(ctx, database, 90)
	if len(wide) != 1 {
		t.Errorf("expected 1 entry in wider window, got %d", len(wide))
	}
}

func TestRecordHistoryRejectsUnknownChangeType(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	item := createTestItem(t, database, "Hammer", 5, 1)

	_, _, err := AdjustItemQuantity(ctx, database, item.ID, 1, "transfer", "", nil)
	if err == nil {
		t.Error("expected error for unknown change type")
	}

	// The failed append must roll back the quantity change with it.
	got, _ := GetItem(ctx, database, item.ID)
	if got.Quantity != 5 {
		t.Errorf("expected quantity rolled back to 5, got %d", got.Quantity)
	}
}
