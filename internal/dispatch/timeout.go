package dispatch

import (
	"context"

	"github.com/apsen86/ChatSystem/internal/clock"
	"github.com/apsen86/ChatSystem/internal/metrics"
	"github.com/apsen86/ChatSystem/internal/store"
	"github.com/apsen86/ChatSystem/internal/types"
	"github.com/rs/zerolog"
)

// RecordStore is the subset of storage.Store the timeout service needs to
// archive dropped sessions
type RecordStore interface {
	SaveSessionRecord(record types.SessionRecord) error
}

// TimeoutService watches client liveness: it counts missed polls for silent
// sessions and inactivates any session past the threshold, releasing the
// assigned agent's slot.
type TimeoutService struct {
	sessions *store.SessionStore
	agents   *store.AgentStore
	archive  RecordStore
	clock    clock.Clock
	logger   zerolog.Logger
}

// NewTimeoutService creates a timeout service over the given stores
func NewTimeoutService(sessions *store.SessionStore, agents *store.AgentStore, clk clock.Clock, logger zerolog.Logger) *TimeoutService {
	return &TimeoutService{
		sessions: sessions,
		agents:   agents,
		clock:    clk,
		logger:   logger,
	}
}

// SetArchive sets the persistence store for dropped-session records
func (t *TimeoutService) SetArchive(archive RecordStore) {
	t.archive = archive
}

// ProcessTimeouts runs one liveness pass: increment missed-poll counters
// for stale sessions, then inactivate every session past the threshold.
func (t *TimeoutService) ProcessTimeouts(ctx context.Context) error {
	now := t.clock.Now()

	for _, session := range t.sessions.ActiveForMonitoring(ctx) {
		session.IncrementMissedIfStale(now)
	}

	// Assigned and active sessions come from the store's timed-out view;
	// queued sessions go stale the same way but hold no agent slot
	expired := t.sessions.TimedOut(ctx)
	for _, session := range t.sessions.ByStatus(ctx, types.StatusQueued) {
		if session.TimedOut() {
			expired = append(expired, session)
		}
	}

	var touchedAgents []*types.Agent
	for _, session := range expired {
		agentID, missed := session.MarkInactive()

		t.logger.Info().
			Str("session_id", session.ID).
			Str("user_id", session.UserID).
			Int("missed_polls", missed).
			Str("agent_id", agentID).
			Msg("session inactivated after missed polls")
		metrics.SessionsInactivatedTotal.Inc()

		if agentID != "" {
			agent, err := t.agents.Get(ctx, agentID)
			if err != nil {
				t.logger.Error().Err(err).Str("agent_id", agentID).Msg("assigned agent missing on release")
			} else {
				if !agent.CompleteChat() {
					t.logger.Warn().Str("agent_id", agentID).Msg("agent had no chat slot to release")
				}
				touchedAgents = append(touchedAgents, agent)
			}
		}

		if t.archive != nil {
			record := types.RecordFromSnapshot(session.Snapshot(), now)
			go func(sessionID string) {
				if err := t.archive.SaveSessionRecord(record); err != nil {
					t.logger.Error().Err(err).Str("session_id", sessionID).Msg("failed to archive session record")
				}
			}(session.ID)
		}
	}

	// Batch persist the mutated sessions and agents
	for _, session := range expired {
		if err := t.sessions.Save(ctx, session); err != nil {
			return err
		}
	}
	for _, agent := range touchedAgents {
		if err := t.agents.Save(ctx, agent); err != nil {
			return err
		}
	}
	return nil
}
