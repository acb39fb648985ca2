package ws

import (
	"net/http"

	"github.com/apsen86/ChatSystem/internal/config"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// Handler upgrades HTTP requests to websocket connections and attaches the
// client to the hub
type Handler struct {
	hub      *Hub
	config   *config.Config
	upgrader websocket.Upgrader
	logger   zerolog.Logger
}

// NewHandler creates a websocket handler with an origin check built from
// the configured allowed origins
func NewHandler(hub *Hub, cfg *config.Config, logger zerolog.Logger) *Handler {
	allowed := make(map[string]bool, len(cfg.AllowedOrigins))
	for _, origin := range cfg.AllowedOrigins {
		allowed[origin] = true
	}

	return &Handler{
		hub:    hub,
		config: cfg,
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if origin == "" {
					return true
				}
				return allowed[origin]
			},
		},
	}
}

// ServeHTTP handles GET /ws
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error().Err(err).Msg("websocket upgrade failed")
		return
	}

	client := NewClient(h.hub, conn, h.config, h.logger)
	h.hub.register <- client
	client.Start()
}
