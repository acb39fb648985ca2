// Package api is the HTTP surface over the chat service: the client-facing
// create/poll endpoints and the read-only admin views.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/apsen86/ChatSystem/internal/chat"
	"github.com/apsen86/ChatSystem/internal/clock"
	"github.com/apsen86/ChatSystem/internal/types"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// ChatHandler handles the client-facing chat endpoints
type ChatHandler struct {
	service *chat.Service
	clock   clock.Clock
	logger  zerolog.Logger
}

// NewChatHandler creates a ChatHandler
func NewChatHandler(service *chat.Service, clk clock.Clock, logger zerolog.Logger) *ChatHandler {
	return &ChatHandler{
		service: service,
		clock:   clk,
		logger:  logger,
	}
}

type createRequest struct {
	UserID string `json:"userId"`
}

type createResponse struct {
	SessionID  string `json:"sessionId"`
	Status     string `json:"status"`
	Message    string `json:"message"`
	IsAccepted bool   `json:"isAccepted"`
}

// HandleCreate handles POST /api/Chat/create
func (h *ChatHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
		return
	}
	if req.UserID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "userId is required"})
		return
	}

	session, err := h.service.CreateSession(r.Context(), req.UserID)
	if err != nil {
		if errors.Is(err, types.ErrInvalidArgument) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		h.logger.Error().Err(err).Str("user_id", req.UserID).Msg("create session failed")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}

	resp := createResponse{
		SessionID:  session.ID,
		Status:     string(session.Status()),
		IsAccepted: session.Status() != types.StatusRefused,
	}
	if resp.IsAccepted {
		resp.Message = "Chat session created. Poll every second to keep it alive."
	} else {
		resp.Message = "All queues are currently full. Please try again later."
	}
	writeJSON(w, http.StatusOK, resp)
}

type pollResponse struct {
	SessionID string    `json:"sessionId"`
	Success   bool      `json:"success"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// HandlePoll handles POST /api/Chat/{sessionId}/poll
func (h *ChatHandler) HandlePoll(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionId")

	resp := pollResponse{
		SessionID: sessionID,
		Timestamp: h.clock.Now().UTC(),
	}
	if h.service.Poll(r.Context(), sessionID) {
		resp.Success = true
		resp.Message = "Poll received"
	} else {
		resp.Message = "Session not found"
	}
	writeJSON(w, http.StatusOK, resp)
}

type positionResponse struct {
	SessionID            string   `json:"sessionId"`
	Position             int      `json:"position"`
	EstimatedWaitSeconds *float64 `json:"estimatedWaitSeconds,omitempty"`
}

// HandlePosition handles GET /api/Chat/{sessionId}/position
func (h *ChatHandler) HandlePosition(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionId")

	resp := positionResponse{
		SessionID: sessionID,
		Position:  h.service.QueuePosition(r.Context(), sessionID),
	}
	if wait := h.service.EstimatedWait(r.Context(), sessionID); wait != nil {
		secs := wait.Seconds()
		resp.EstimatedWaitSeconds = &secs
	}
	writeJSON(w, http.StatusOK, resp)
}

type healthResponse struct {
	IsHealthy         bool      `json:"isHealthy"`
	CanAcceptNewChats bool      `json:"canAcceptNewChats"`
	Timestamp         time.Time `json:"timestamp"`
	Message           string    `json:"message,omitempty"`
}

// HandleHealth handles GET /api/Chat/health. A panic while building the
// report is answered with 500 and isHealthy false.
func (h *ChatHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	defer func() {
		if rec := recover(); rec != nil {
			h.logger.Error().Interface("panic", rec).Msg("health check failed")
			writeJSON(w, http.StatusInternalServerError, healthResponse{
				IsHealthy: false,
				Timestamp: h.clock.Now().UTC(),
				Message:   "health check failed",
			})
		}
	}()

	writeJSON(w, http.StatusOK, healthResponse{
		IsHealthy:         true,
		CanAcceptNewChats: h.service.CanAccept(r.Context()),
		Timestamp:         h.clock.Now().UTC(),
	})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
