// Package store holds the in-memory agent and session stores. Operations
// take a context and return errors so a persistent backend can replace the
// maps without touching callers.
package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/apsen86/ChatSystem/internal/types"
)

// AgentStore maintains the fixed agent roster. Load-counter mutations live
// on the Agent itself under its own lock; the store lock only guards the
// map and enumeration order.
type AgentStore struct {
	mu     sync.RWMutex
	agents map[string]*types.Agent
	order  []string // roster order, keeps enumerations deterministic
}

// NewAgentStore creates a store seeded with the given roster
func NewAgentStore(roster []*types.Agent) *AgentStore {
	s := &AgentStore{
		agents: make(map[string]*types.Agent, len(roster)),
		order:  make([]string, 0, len(roster)),
	}
	for _, a := range roster {
		s.agents[a.ID] = a
		s.order = append(s.order, a.ID)
	}
	return s
}

// Get returns the agent with the given id
func (s *AgentStore) Get(ctx context.Context, id string) (*types.Agent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	agent, ok := s.agents[id]
	if !ok {
		return nil, fmt.Errorf("agent %s: %w", id, types.ErrNotFound)
	}
	return agent, nil
}

// All returns every agent in roster order
func (s *AgentStore) All(ctx context.Context) []*types.Agent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listLocked(func(*types.Agent) bool { return true })
}

// ByTeam returns the agents of one team in roster order
func (s *AgentStore) ByTeam(ctx context.Context, team types.Team) []*types.Agent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listLocked(func(a *types.Agent) bool { return a.Team == team })
}

// Active returns agents currently inside their shift
func (s *AgentStore) Active(ctx context.Context) []*types.Agent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listLocked(func(a *types.Agent) bool { return a.IsActive() })
}

// Accepting returns agents that can take one more chat right now
func (s *AgentStore) Accepting(ctx context.Context) []*types.Agent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listLocked(func(a *types.Agent) bool { return a.CanAccept() })
}

// Save persists an agent. The in-memory store shares pointers with callers,
// so this is the upsert point for a future persistent backend.
func (s *AgentStore) Save(ctx context.Context, agent *types.Agent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.agents[agent.ID]; !ok {
		s.order = append(s.order, agent.ID)
	}
	s.agents[agent.ID] = agent
	return nil
}

// TeamCapacity sums the concurrent chat limits of a team's active agents
func (s *AgentStore) TeamCapacity(ctx context.Context, team types.Team) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	total := 0
	for _, id := range s.order {
		a := s.agents[id]
		if a.Team == team && a.IsActive() {
			total += a.MaxConcurrent()
		}
	}
	return total
}

// Snapshots returns wire-form copies of every agent in roster order
func (s *AgentStore) Snapshots(ctx context.Context) []types.AgentSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]types.AgentSnapshot, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.agents[id].Snapshot())
	}
	return out
}

func (s *AgentStore) listLocked(keep func(*types.Agent) bool) []*types.Agent {
	out := make([]*types.Agent, 0, len(s.order))
	for _, id := range s.order {
		if a := s.agents[id]; keep(a) {
			out = append(out, a)
		}
	}
	return out
}
