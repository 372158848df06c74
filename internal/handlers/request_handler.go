package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/steward/internal/interfaces"
	"github.com/ternarybob/steward/internal/models"
)

// RequestHandler serves the maintenance request API
type RequestHandler struct {
	submission interfaces.SubmissionService
	storage    interfaces.StorageManager
	logger     arbor.ILogger
}

// NewRequestHandler creates a new request handler
func NewRequestHandler(submission interfaces.SubmissionService, storage interfaces.StorageManager, logger arbor.ILogger) *RequestHandler {
	return &RequestHandler{
		submission: submission,
		storage:    storage,
		logger:     logger,
	}
}

// SubmitHandler handles POST /api/requests
func (h *RequestHandler) SubmitHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "POST") {
		return
	}
	principal := RequirePrincipal(w, r)
	if principal == nil {
		return
	}

	var input interfaces.SubmitInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	input.OwnerID = principal.ID

	request, err := h.submission.Submit(r.Context(), &input)
	if err != nil {
		h.logger.Warn().Err(err).Msg("Submission rejected")
		WriteServiceError(w, err)
		return
	}

	// Async submissions return before classification completes; the
	// caller polls task-status or watches the websocket channel.
	statusCode := http.StatusCreated
	if request.IsProcessing() {
		statusCode = http.StatusAccepted
	}
	WriteJSON(w, statusCode, request)
}

// ListHandler handles GET /api/requests with optional status and
// category filters.
func (h *RequestHandler) ListHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}
	if principal := RequirePrincipal(w, r); principal == nil {
		return
	}

	opts := listOptionsFromQuery(r)
	h.writeRequestList(w, r, opts)
}

// ListMineHandler handles GET /api/requests/mine
func (h *RequestHandler) ListMineHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}
	principal := RequirePrincipal(w, r)
	if principal == nil {
		return
	}

	opts := listOptionsFromQuery(r)
	opts.OwnerID = principal.ID
	h.writeRequestList(w, r, opts)
}

// GetHandler handles GET /api/requests/{id}
func (h *RequestHandler) GetHandler(w http.ResponseWriter, r *http.Request, requestID string) {
	if !RequireMethod(w, r, "GET") {
		return
	}
	if principal := RequirePrincipal(w, r); principal == nil {
		return
	}

	request, err := h.storage.RequestStorage().GetRequest(r.Context(), requestID)
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, request)
}

// TaskStatusHandler handles GET /api/requests/{id}/task-status. The
// job is looked up through the request record so callers only need
// the request id.
func (h *RequestHandler) TaskStatusHandler(w http.ResponseWriter, r *http.Request, requestID string) {
	if !RequireMethod(w, r, "GET") {
		return
	}
	if principal := RequirePrincipal(w, r); principal == nil {
		return
	}

	request, err := h.storage.RequestStorage().GetRequest(r.Context(), requestID)
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	if request.JobID == "" {
		WriteError(w, http.StatusNotFound, "No classification job for this request")
		return
	}

	status, err := h.submission.GetStatus(r.Context(), request.JobID)
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, status)
}

// UpdateHandler handles PATCH /api/requests/{id} (admin only)
func (h *RequestHandler) UpdateHandler(w http.ResponseWriter, r *http.Request, requestID string) {
	if !RequireMethod(w, r, "PATCH") {
		return
	}
	if principal := RequireAdmin(w, r); principal == nil {
		return
	}

	var patch interfaces.RequestPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	request, err := h.submission.Update(r.Context(), requestID, &patch)
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, request)
}

// DeleteHandler handles DELETE /api/requests/{id} (owner or admin)
func (h *RequestHandler) DeleteHandler(w http.ResponseWriter, r *http.Request, requestID string) {
	if !RequireMethod(w, r, "DELETE") {
		return
	}
	principal := RequirePrincipal(w, r)
	if principal == nil {
		return
	}

	request, err := h.storage.RequestStorage().GetRequest(r.Context(), requestID)
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	if !principal.IsAdmin() && request.OwnerID != principal.ID {
		WriteError(w, http.StatusForbidden, "Not allowed")
		return
	}

	if err := h.submission.Delete(r.Context(), requestID); err != nil {
		WriteServiceError(w, err)
		return
	}
	WriteSuccess(w, "Request deleted")
}

// ReclassifyHandler handles POST /api/requests/{id}/reclassify (admin only)
func (h *RequestHandler) ReclassifyHandler(w http.ResponseWriter, r *http.Request, requestID string) {
	if !RequireMethod(w, r, "POST") {
		return
	}
	if principal := RequireAdmin(w, r); principal == nil {
		return
	}

	request, err := h.submission.Reclassify(r.Context(), requestID)
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, request)
}

// writeRequestList runs the list query and writes the result
func (h *RequestHandler) writeRequestList(w http.ResponseWriter, r *http.Request, opts *interfaces.RequestListOptions) {
	requests, err := h.storage.RequestStorage().ListRequests(r.Context(), opts)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to list requests")
		WriteServiceError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"requests": requests,
		"count":    len(requests),
	})
}

// listOptionsFromQuery extracts filter and paging parameters
func listOptionsFromQuery(r *http.Request) *interfaces.RequestListOptions {
	opts := &interfaces.RequestListOptions{}

	if status := r.URL.Query().Get("status"); status != "" {
		opts.Status = models.Status(status)
	}
	if category := r.URL.Query().Get("category"); category != "" {
		opts.Category = models.Category(category)
	}
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if limit, err := strconv.Atoi(limitStr); err == nil && limit > 0 {
			opts.Limit = limit
		}
	}
	if offsetStr := r.URL.Query().Get("offset"); offsetStr != "" {
		if offset, err := strconv.Atoi(offsetStr); err == nil && offset >= 0 {
			opts.Offset = offset
		}
	}

	return opts
}
