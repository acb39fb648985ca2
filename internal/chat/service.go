// Package chat is the in-process public API of the dispatch engine:
// session creation with admission control, client polling, and the
// introspection views the HTTP surface exposes.
package chat

import (
	"context"
	"fmt"
	"time"

	"github.com/apsen86/ChatSystem/internal/clock"
	"github.com/apsen86/ChatSystem/internal/dispatch"
	"github.com/apsen86/ChatSystem/internal/metrics"
	"github.com/apsen86/ChatSystem/internal/schedule"
	"github.com/apsen86/ChatSystem/internal/store"
	"github.com/apsen86/ChatSystem/internal/types"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Service is the public entry point for chat session operations
type Service struct {
	sessions *store.SessionStore
	agents   *store.AgentStore
	capacity *dispatch.CapacityCalculator
	hours    *schedule.BusinessHours
	archive  dispatch.RecordStore
	clock    clock.Clock
	logger   zerolog.Logger
}

// NewService wires the service from its collaborators
func NewService(
	sessions *store.SessionStore,
	agents *store.AgentStore,
	capacity *dispatch.CapacityCalculator,
	hours *schedule.BusinessHours,
	clk clock.Clock,
	logger zerolog.Logger,
) *Service {
	return &Service{
		sessions: sessions,
		agents:   agents,
		capacity: capacity,
		hours:    hours,
		clock:    clk,
		logger:   logger,
	}
}

// SetArchive sets the persistence store for terminal session records
func (s *Service) SetArchive(archive dispatch.RecordStore) {
	s.archive = archive
}

// CreateSession admits a new chat request for the user. The call is
// idempotent per user: an open session is returned as-is. When the queues
// are full a Refused session is created and returned.
func (s *Service) CreateSession(ctx context.Context, userID string) (*types.ChatSession, error) {
	if userID == "" {
		return nil, fmt.Errorf("create session: empty user id: %w", types.ErrInvalidArgument)
	}

	if existing := s.sessions.ActiveByUser(ctx, userID); existing != nil {
		s.logger.Debug().
			Str("session_id", existing.ID).
			Str("user_id", userID).
			Msg("returning existing open session")
		return existing, nil
	}

	now := s.clock.Now()
	id := uuid.New().String()

	if !s.capacity.CanAccept(ctx) {
		session := types.NewRefusedSession(id, userID, now)
		if err := s.sessions.Save(ctx, session); err != nil {
			return nil, err
		}
		metrics.SessionsRefusedTotal.Inc()
		s.logger.Info().
			Str("session_id", id).
			Str("user_id", userID).
			Int("queue_length", s.sessions.QueueLength(ctx)).
			Msg("session refused, queues full")

		s.archiveRecord(session, now)
		return session, nil
	}

	session := types.NewChatSession(id, userID, now)
	if err := s.sessions.Save(ctx, session); err != nil {
		return nil, err
	}
	metrics.SessionsCreatedTotal.Inc()
	s.logger.Info().
		Str("session_id", id).
		Str("user_id", userID).
		Msg("session enqueued")
	return session, nil
}

// Poll records client liveness for a session. Returns false when the
// session id is unknown.
func (s *Service) Poll(ctx context.Context, sessionID string) bool {
	session, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return false
	}

	session.Touch(s.clock.Now())
	if err := s.sessions.Save(ctx, session); err != nil {
		s.logger.Error().Err(err).Str("session_id", sessionID).Msg("failed to persist poll")
		return false
	}
	return true
}

// CanAccept reports whether a new session would currently be admitted
func (s *Service) CanAccept(ctx context.Context) bool {
	return s.capacity.CanAccept(ctx)
}

// QueuePosition returns the 1-based position of a session in its queue,
// 0 when it is not queued
func (s *Service) QueuePosition(ctx context.Context, sessionID string) int {
	return s.sessions.QueuePosition(ctx, sessionID)
}

// EstimatedWait estimates time-to-agent for a queued session: position
// times five minutes, divided by the available agents in the relevant pool.
// Returns nil when the session is not queued or no agent is available.
func (s *Service) EstimatedWait(ctx context.Context, sessionID string) *time.Duration {
	session, err := s.sessions.Get(ctx, sessionID)
	if err != nil || session.Status() != types.StatusQueued {
		return nil
	}

	position := s.sessions.QueuePosition(ctx, sessionID)
	if position == 0 {
		return nil
	}

	available := 0
	for _, a := range s.agents.Accepting(ctx) {
		if session.InOverflow() == (a.Team == types.TeamOverflow) {
			available++
		}
	}
	if available == 0 {
		return nil
	}

	wait := time.Duration(position) * types.EstimatedWaitPerPosition / time.Duration(available)
	return &wait
}

// CompleteSession finishes an active session and releases the agent slot
func (s *Service) CompleteSession(ctx context.Context, sessionID string) error {
	session, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return err
	}

	agentID, err := session.Complete()
	if err != nil {
		return err
	}
	if err := s.sessions.Save(ctx, session); err != nil {
		return err
	}

	if agentID != "" {
		agent, err := s.agents.Get(ctx, agentID)
		if err != nil {
			s.logger.Error().Err(err).Str("agent_id", agentID).Msg("assigned agent missing on completion")
		} else {
			if !agent.CompleteChat() {
				s.logger.Warn().Str("agent_id", agentID).Msg("agent had no chat slot to release")
			}
			if err := s.agents.Save(ctx, agent); err != nil {
				return err
			}
			s.capacity.Invalidate(agent.Team)
		}
	}

	s.logger.Info().
		Str("session_id", sessionID).
		Str("agent_id", agentID).
		Msg("session completed")

	s.archiveRecord(session, s.clock.Now())
	return nil
}

func (s *Service) archiveRecord(session *types.ChatSession, endedAt time.Time) {
	if s.archive == nil {
		return
	}
	record := types.RecordFromSnapshot(session.Snapshot(), endedAt)
	sessionID := session.ID
	go func() {
		if err := s.archive.SaveSessionRecord(record); err != nil {
			s.logger.Error().Err(err).Str("session_id", sessionID).Msg("failed to archive session record")
		}
	}()
}

// QueueStatus is the admin view of queue health
type QueueStatus struct {
	MainQueueLength     int  `json:"mainQueueLength"`
	OverflowQueueLength int  `json:"overflowQueueLength"`
	MainQueueLimit      int  `json:"mainQueueLimit"`
	OverflowQueueLimit  int  `json:"overflowQueueLimit"`
	IsOfficeHours       bool `json:"isOfficeHours"`
	CanAccept           bool `json:"canAccept"`
	AvailableAgents     int  `json:"availableAgents"`
}

// GetQueueStatus returns the current queue health snapshot
func (s *Service) GetQueueStatus(ctx context.Context) QueueStatus {
	return QueueStatus{
		MainQueueLength:     s.sessions.QueueLength(ctx),
		OverflowQueueLength: s.sessions.OverflowQueueLength(ctx),
		MainQueueLimit:      dispatch.QueueLimit(s.capacity.TotalCapacity(ctx)),
		OverflowQueueLimit:  dispatch.QueueLimit(s.capacity.TeamCapacity(ctx, types.TeamOverflow)),
		IsOfficeHours:       s.hours.IsOfficeHours(),
		CanAccept:           s.capacity.CanAccept(ctx),
		AvailableAgents:     len(s.agents.Accepting(ctx)),
	}
}

// AllSessions returns snapshots of every session ordered by creation
func (s *Service) AllSessions(ctx context.Context) []types.SessionSnapshot {
	return snapshots(s.sessions.All(ctx))
}

// ActiveSessions returns snapshots of open sessions
func (s *Service) ActiveSessions(ctx context.Context) []types.SessionSnapshot {
	return snapshots(s.sessions.ActiveForMonitoring(ctx))
}

// InactiveSessions returns snapshots of sessions dropped for missed polls
func (s *Service) InactiveSessions(ctx context.Context) []types.SessionSnapshot {
	return snapshots(s.sessions.ByStatus(ctx, types.StatusInactive))
}

// Agents returns snapshots of the full roster
func (s *Service) Agents(ctx context.Context) []types.AgentSnapshot {
	return s.agents.Snapshots(ctx)
}

func snapshots(sessions []*types.ChatSession) []types.SessionSnapshot {
	out := make([]types.SessionSnapshot, 0, len(sessions))
	for _, session := range sessions {
		out = append(out, session.Snapshot())
	}
	return out
}
