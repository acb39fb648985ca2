package ws

import (
	"context"
	"encoding/json"
	"time"

	"github.com/apsen86/ChatSystem/internal/chat"
	"github.com/apsen86/ChatSystem/internal/types"
	"github.com/rs/zerolog"
)

// SnapshotMessage is the dashboard payload sent every tick
type SnapshotMessage struct {
	Type      string                `json:"type"` // always "snapshot"
	Timestamp time.Time             `json:"timestamp"`
	Queue     chat.QueueStatus      `json:"queue"`
	Agents    []types.AgentSnapshot `json:"agents"`
}

// Broadcaster periodically pushes dispatch snapshots to the hub
type Broadcaster struct {
	hub      *Hub
	service  *chat.Service
	interval time.Duration
	logger   zerolog.Logger
}

// NewBroadcaster creates a Broadcaster
func NewBroadcaster(hub *Hub, service *chat.Service, interval time.Duration, logger zerolog.Logger) *Broadcaster {
	return &Broadcaster{
		hub:      hub,
		service:  service,
		interval: interval,
		logger:   logger,
	}
}

// Start begins broadcasting snapshots until the context is cancelled
func (b *Broadcaster) Start(ctx context.Context) {
	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()

	b.logger.Info().Dur("interval", b.interval).Msg("snapshot broadcaster started")

	for {
		select {
		case <-ctx.Done():
			b.logger.Info().Msg("snapshot broadcaster stopped")
			return

		case now := <-ticker.C:
			if b.hub.ClientCount() == 0 {
				continue
			}

			message := SnapshotMessage{
				Type:      "snapshot",
				Timestamp: now.UTC(),
				Queue:     b.service.GetQueueStatus(ctx),
				Agents:    b.service.Agents(ctx),
			}

			data, err := json.Marshal(message)
			if err != nil {
				b.logger.Error().Err(err).Msg("failed to marshal snapshot message")
				continue
			}

			b.hub.Broadcast(data)
			b.logger.Debug().
				Int("clients", b.hub.ClientCount()).
				Msg("broadcasted dispatch snapshot")
		}
	}
}
