package api

import (
	"database/sql"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/stockroom-app/stockroom/internal/model"
	"github.com/stockroom-app/stockroom/internal/store"
)

// RequestsHandler handles item request endpoints.
type RequestsHandler struct {
	DB *sql.DB
}

type createRequestRequest struct {
	ProjectName string                   `json:"project_name"`
	RequesterID int64                    `json:"requester_id"`
	Reason      string                   `json:"reason"`
	Priority    string                   `json:"priority"`
	DueDate     *time.Time               `json:"due_date"`
	Items       []store.RequestLineInput `json:"items"`
}

type setStatusRequest struct {
	Status     string `json:"status"`
	ApprovedBy *int64 `json:"approved_by"`
}

// Create handles POST /api/requests.
func (h *RequestsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createRequestRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.ProjectName == "" || len(req.Items) == 0 {
		jsonError(w, http.StatusBadRequest, "project_name and items required")
		return
	}

	// Default the requester to the authenticated user.
	if req.RequesterID == 0 {
		if claims := GetClaims(r.Context()); claims != nil {
			req.RequesterID = claims.UserID
		}
	}
	if req.RequesterID == 0 {
		jsonError(w, http.StatusBadRequest, "requester_id required")
		return
	}

	request, err := store.CreateRequest(r.Context(), h.DB, req.ProjectName, req.RequesterID, req.Reason, req.Priority, req.DueDate, req.Items)
	if errors.Is(err, store.ErrItemNotFound) {
		jsonError(w, http.StatusBadRequest, "unknown item in request")
		return
	}
	if err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	jsonResponse(w, http.StatusCreated, map[string]any{
		"id":        request.ID,
		"reference": request.Reference,
	})
}

// List handles GET /api/requests.
func (h *RequestsHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var requesterID int64
	if v := q.Get("requester_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			jsonError(w, http.StatusBadRequest, "invalid requester_id")
			return
		}
		requesterID = id
	}

	requests, err := store.ListRequests(r.Context(), h.DB, requesterID, q.Get("status"))
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to list requests")
		return
	}
	if requests == nil {
		requests = []model.Request{}
	}
	jsonResponse(w, http.StatusOK, requests)
}

// Get handles GET /api/requests/{id}.
func (h *RequestsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request id")
		return
	}

	request, err := store.GetRequest(r.Context(), h.DB, id)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to get request")
		return
	}
	if request == nil {
		jsonError(w, http.StatusNotFound, "request not found")
		return
	}

	jsonResponse(w, http.StatusOK, request)
}

// SetStatus handles PATCH /api/requests/{id}/status. Approval deducts
// stock for every line atomically; any other status only updates the
// request row.
func (h *RequestsHandler) SetStatus(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request id")
		return
	}

	var req setStatusRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if !model.ValidRequestStatus(req.Status) {
		jsonError(w, http.StatusBadRequest, "invalid status")
		return
	}

	actor := req.ApprovedBy
	if actor == nil {
		actor = actorID(r)
	}

	err = store.SetRequestStatus(r.Context(), h.DB, id, req.Status, actor)
	switch {
	case errors.Is(err, store.ErrRequestNotFound):
		jsonError(w, http.StatusNotFound, "request not found")
	case errors.Is(err, store.ErrRequestImmutable):
		jsonError(w, http.StatusConflict, "completed requests cannot change status")
	case errors.Is(err, store.ErrItemNotFound):
		jsonError(w, http.StatusInternalServerError, "request references a missing item")
	case err != nil:
		jsonError(w, http.StatusInternalServerError, "failed to update status")
	default:
		jsonSuccess(w)
	}
}

// Delete handles DELETE /api/requests/{id}. Hard delete, cascading to the
// request's line items. Managers can delete any request; a requester can
// delete their own.
func (h *RequestsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request id")
		return
	}

	claims := GetClaims(r.Context())
	if claims != nil && !model.RoleAtLeast(claims.Role, model.RoleManager) {
		request, err := store.GetRequest(r.Context(), h.DB, id)
		if err != nil {
			jsonError(w, http.StatusInternalServerError, "failed to get request")
			return
		}
		if request == nil {
			jsonError(w, http.StatusNotFound, "request not found")
			return
		}
		if request.RequesterID != claims.UserID {
			jsonError(w, http.StatusForbidden, "insufficient permissions")
			return
		}
	}

	err = store.DeleteRequest(r.Context(), h.DB, id)
	if errors.Is(err, store.ErrRequestNotFound) {
		jsonError(w, http.StatusNotFound, "request not found")
		return
	}
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to delete request")
		return
	}

	jsonResponse(w, http.StatusOK, map[string]string{"message": "request deleted"})
}
