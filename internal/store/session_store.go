package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/apsen86/ChatSystem/internal/types"
)

// SessionStore holds all sessions by id. The main and overflow queues are
// views over the same map: Queued sessions ordered by CreatedAt, split on
// the overflow flag. Deriving the views per call keeps them consistent with
// concurrent status changes without a second bookkeeping structure.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*types.ChatSession
}

// NewSessionStore creates an empty session store
func NewSessionStore() *SessionStore {
	return &SessionStore{
		sessions: make(map[string]*types.ChatSession),
	}
}

// Get returns the session with the given id
func (s *SessionStore) Get(ctx context.Context, id string) (*types.ChatSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.sessions[id]
	if !ok {
		return nil, fmt.Errorf("session %s: %w", id, types.ErrNotFound)
	}
	return session, nil
}

// Save persists a session, inserting it on first write
func (s *SessionStore) Save(ctx context.Context, session *types.ChatSession) error {
	s.mu.Lock()
	s.sessions[session.ID] = session
	s.mu.Unlock()
	return nil
}

// ActiveByUser returns the user's open session (Queued, Assigned or Active),
// or nil when there is none
func (s *SessionStore) ActiveByUser(ctx context.Context, userID string) *types.ChatSession {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, session := range s.sessions {
		if session.UserID == userID && session.Status().IsOpen() {
			return session
		}
	}
	return nil
}

// ByStatus returns all sessions in the given status ordered by CreatedAt
func (s *SessionStore) ByStatus(ctx context.Context, status types.SessionStatus) []*types.ChatSession {
	return s.list(func(sn *types.ChatSession) bool { return sn.Status() == status })
}

// MainQueue returns the Queued sessions outside overflow in FIFO order
func (s *SessionStore) MainQueue(ctx context.Context) []*types.ChatSession {
	return s.list(func(sn *types.ChatSession) bool {
		return sn.Status() == types.StatusQueued && !sn.InOverflow()
	})
}

// OverflowQueue returns the Queued sessions in overflow in FIFO order
func (s *SessionStore) OverflowQueue(ctx context.Context) []*types.ChatSession {
	return s.list(func(sn *types.ChatSession) bool {
		return sn.Status() == types.StatusQueued && sn.InOverflow()
	})
}

// QueueLength returns the main queue depth
func (s *SessionStore) QueueLength(ctx context.Context) int {
	return len(s.MainQueue(ctx))
}

// OverflowQueueLength returns the overflow queue depth
func (s *SessionStore) OverflowQueueLength(ctx context.Context) int {
	return len(s.OverflowQueue(ctx))
}

// TimedOut returns assigned or active sessions past the missed-poll
// threshold
func (s *SessionStore) TimedOut(ctx context.Context) []*types.ChatSession {
	return s.list(func(sn *types.ChatSession) bool {
		st := sn.Status()
		return (st == types.StatusAssigned || st == types.StatusActive) && sn.TimedOut()
	})
}

// ActiveForMonitoring returns every session the liveness monitor watches
func (s *SessionStore) ActiveForMonitoring(ctx context.Context) []*types.ChatSession {
	return s.list(func(sn *types.ChatSession) bool { return sn.Status().IsOpen() })
}

// All returns every session ordered by CreatedAt
func (s *SessionStore) All(ctx context.Context) []*types.ChatSession {
	return s.list(func(*types.ChatSession) bool { return true })
}

// QueuePosition returns the 1-based position of a session in its current
// queue, 0 when the session is not queued
func (s *SessionStore) QueuePosition(ctx context.Context, id string) int {
	session, err := s.Get(ctx, id)
	if err != nil || session.Status() != types.StatusQueued {
		return 0
	}

	var queue []*types.ChatSession
	if session.InOverflow() {
		queue = s.OverflowQueue(ctx)
	} else {
		queue = s.MainQueue(ctx)
	}
	for i, sn := range queue {
		if sn.ID == id {
			return i + 1
		}
	}
	return 0
}

// list snapshots the map under the read lock and filters outside it; each
// session's status read takes its own lock, so the result is consistent per
// session even while the dispatcher and monitor run.
func (s *SessionStore) list(keep func(*types.ChatSession) bool) []*types.ChatSession {
	s.mu.RLock()
	all := make([]*types.ChatSession, 0, len(s.sessions))
	for _, session := range s.sessions {
		all = append(all, session)
	}
	s.mu.RUnlock()

	out := make([]*types.ChatSession, 0, len(all))
	for _, session := range all {
		if keep(session) {
			out = append(out, session)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}
