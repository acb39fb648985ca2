package dispatch

import (
	"context"
	"time"

	"github.com/apsen86/ChatSystem/internal/clock"
	"github.com/apsen86/ChatSystem/internal/metrics"
	"github.com/apsen86/ChatSystem/internal/store"
	"github.com/apsen86/ChatSystem/internal/types"
	"github.com/rs/zerolog"
)

const (
	assignmentRetries = 3
	retryBackoffUnit  = 100 * time.Millisecond
)

// Assigner commits a reserved (session, agent) pair: session first, then
// the agent's slot, then persistence. Every exit path either commits or
// releases the reservation, so a failed assignment never leaks capacity and
// the session never loses its queue position.
type Assigner struct {
	sessions *store.SessionStore
	agents   *store.AgentStore
	capacity *CapacityCalculator
	clock    clock.Clock
	logger   zerolog.Logger
}

// NewAssigner creates an assigner over the given stores
func NewAssigner(sessions *store.SessionStore, agents *store.AgentStore, capacity *CapacityCalculator, clk clock.Clock, logger zerolog.Logger) *Assigner {
	return &Assigner{
		sessions: sessions,
		agents:   agents,
		capacity: capacity,
		clock:    clk,
		logger:   logger,
	}
}

// TryAssign attempts to commit the pair. Returns false when the capacity
// race was lost; the session stays Queued for the next tick. The agent's
// reservation is consumed on success and released on every failure path, so
// callers must not release it again.
func (a *Assigner) TryAssign(ctx context.Context, session *types.ChatSession, agent *types.Agent) (bool, error) {
	if !agent.CanCommit() {
		agent.ReleaseReservation()
		metrics.AssignmentFailuresTotal.Inc()
		return false, nil
	}

	if err := session.AssignToAgent(agent.ID, a.clock.Now()); err != nil {
		// The session left Queued under us (poll timeout or a racing tick)
		agent.ReleaseReservation()
		metrics.AssignmentFailuresTotal.Inc()
		a.logger.Debug().
			Err(err).
			Str("session_id", session.ID).
			Str("agent_id", agent.ID).
			Msg("session no longer assignable")
		return false, nil
	}

	if !agent.ConfirmReservation() && !agent.AssignDirect() {
		// Reservation was lost and no free slot remains; undo the session
		// transition so it keeps its queue position
		session.RevertAssignment()
		agent.ReleaseReservation()
		metrics.AssignmentFailuresTotal.Inc()
		a.logger.Debug().
			Str("session_id", session.ID).
			Str("agent_id", agent.ID).
			Msg("agent capacity gone at commit")
		return false, nil
	}

	if err := a.persist(ctx, session, agent); err != nil {
		// Undo the commit so the session keeps its queue position and the
		// agent's slot is returned
		session.RevertAssignment()
		agent.CompleteChat()
		a.logger.Error().
			Err(err).
			Str("session_id", session.ID).
			Str("agent_id", agent.ID).
			Msg("assignment persistence failed, session stays queued")
		return false, err
	}

	a.capacity.Invalidate(agent.Team)
	metrics.AssignmentsTotal.WithLabelValues(string(agent.Team)).Inc()

	a.logger.Info().
		Str("session_id", session.ID).
		Str("agent_id", agent.ID).
		Str("team", string(agent.Team)).
		Str("seniority", string(agent.Seniority)).
		Msg("session assigned")
	return true, nil
}

// persist saves session then agent, retrying transient store errors with a
// linear backoff. Each failed attempt also calls ReleaseReservation; the
// commit already consumed this pair's reservation, so the call does nothing
// unless the agent still holds a reservation for another pair, which it then
// frees.
func (a *Assigner) persist(ctx context.Context, session *types.ChatSession, agent *types.Agent) error {
	var lastErr error
	for attempt := 1; attempt <= assignmentRetries; attempt++ {
		err := a.sessions.Save(ctx, session)
		if err == nil {
			err = a.agents.Save(ctx, agent)
		}
		if err == nil {
			return nil
		}

		lastErr = err
		agent.ReleaseReservation()
		a.logger.Warn().
			Err(err).
			Int("attempt", attempt).
			Str("session_id", session.ID).
			Msg("assignment persist attempt failed")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt) * retryBackoffUnit):
		}
	}
	return lastErr
}
