package handlers

import (
	"net/http"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/steward/internal/interfaces"
)

// StatsHandler serves aggregate request counts
type StatsHandler struct {
	storage interfaces.StorageManager
	logger  arbor.ILogger
}

// NewStatsHandler creates a new stats handler
func NewStatsHandler(storage interfaces.StorageManager, logger arbor.ILogger) *StatsHandler {
	return &StatsHandler{
		storage: storage,
		logger:  logger,
	}
}

// GetStatsHandler handles GET /api/stats
func (h *StatsHandler) GetStatsHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}
	if principal := RequirePrincipal(w, r); principal == nil {
		return
	}

	stats, err := h.storage.RequestStorage().CountStats(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to compute request stats")
		WriteServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, stats)
}
