package api

import (
	"database/sql"
	"net/http"
	"strconv"

	"github.com/stockroom-app/stockroom/internal/model"
	"github.com/stockroom-app/stockroom/internal/store"
)

// HistoryHandler handles the global stock history projection.
type HistoryHandler struct {
	DB *sql.DB
}

// ListRecent handles GET /api/stock-history. The optional ?days= parameter
// overrides the default lookback window.
func (h *HistoryHandler) ListRecent(w http.ResponseWriter, r *http.Request) {
	days := 0
	if v := r.URL.Query().Get("days"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			jsonError(w, http.StatusBadRequest, "invalid days")
			return
		}
		days = n
	}

	entries, err := store.ListRecentHistory(r.Context(), h.DB, days)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to list stock history")
		return
	}
	if entries == nil {
		entries = []model.StockHistoryEntry{}
	}
	jsonResponse(w, http.StatusOK, entries)
}
