package api

import (
	"errors"
	"net/http"

	"github.com/apsen86/ChatSystem/internal/chat"
	"github.com/apsen86/ChatSystem/internal/storage"
	"github.com/apsen86/ChatSystem/internal/types"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// AdminHandler serves read-only snapshots of the dispatch state plus the
// manual session-completion hook and archive maintenance
type AdminHandler struct {
	service *chat.Service
	store   storage.Store
	logger  zerolog.Logger
}

// NewAdminHandler creates an AdminHandler
func NewAdminHandler(service *chat.Service, store storage.Store, logger zerolog.Logger) *AdminHandler {
	return &AdminHandler{
		service: service,
		store:   store,
		logger:  logger,
	}
}

// GetSessions handles GET /api/Chat/admin/sessions
func (h *AdminHandler) GetSessions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.service.AllSessions(r.Context()))
}

// GetActiveSessions handles GET /api/Chat/admin/sessions/active
func (h *AdminHandler) GetActiveSessions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.service.ActiveSessions(r.Context()))
}

// GetInactiveSessions handles GET /api/Chat/admin/sessions/inactive
func (h *AdminHandler) GetInactiveSessions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.service.InactiveSessions(r.Context()))
}

// GetQueueStatus handles GET /api/Chat/admin/queue-status
func (h *AdminHandler) GetQueueStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.service.GetQueueStatus(r.Context()))
}

// GetAgents handles GET /api/Chat/admin/agents
func (h *AdminHandler) GetAgents(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.service.Agents(r.Context()))
}

// CompleteSession handles POST /api/Chat/admin/sessions/{sessionId}/complete
func (h *AdminHandler) CompleteSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionId")

	err := h.service.CompleteSession(r.Context(), sessionID)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, map[string]string{"message": "session completed"})
	case errors.Is(err, types.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "session not found"})
	case errors.Is(err, types.ErrInvalidArgument):
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
	default:
		h.logger.Error().Err(err).Str("session_id", sessionID).Msg("complete session failed")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}

// GetArchivedSessions handles GET /api/Chat/admin/archive?date=YYYY-MM-DD
func (h *AdminHandler) GetArchivedSessions(w http.ResponseWriter, r *http.Request) {
	dateKey := r.URL.Query().Get("date")
	if dateKey == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "date query parameter is required"})
		return
	}

	records, err := h.store.GetSessionRecords(dateKey)
	if err != nil {
		h.logger.Error().Err(err).Str("date", dateKey).Msg("archive query failed")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}
	writeJSON(w, http.StatusOK, records)
}

// TruncateArchive handles DELETE /api/Chat/admin/archive
func (h *AdminHandler) TruncateArchive(w http.ResponseWriter, r *http.Request) {
	if err := h.store.TruncateAll(); err != nil {
		h.logger.Error().Err(err).Msg("failed to truncate archive")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}

	h.logger.Info().Msg("session archive truncated")
	writeJSON(w, http.StatusOK, map[string]string{"message": "archive truncated"})
}
