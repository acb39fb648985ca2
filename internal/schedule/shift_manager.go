package schedule

import (
	"context"

	"github.com/apsen86/ChatSystem/internal/clock"
	"github.com/apsen86/ChatSystem/internal/store"
	"github.com/rs/zerolog"
)

// ShiftManager refreshes every agent's active/accepting flags from their
// shift window. The dispatcher runs it at the top of each tick so routing
// always sees current availability.
type ShiftManager struct {
	agents *store.AgentStore
	clock  clock.Clock
	logger zerolog.Logger
}

// NewShiftManager creates a ShiftManager over the given roster store
func NewShiftManager(agents *store.AgentStore, clk clock.Clock, logger zerolog.Logger) *ShiftManager {
	return &ShiftManager{
		agents: agents,
		clock:  clk,
		logger: logger,
	}
}

// Refresh recomputes shift flags for all agents at the current instant
func (m *ShiftManager) Refresh(ctx context.Context) {
	now := m.clock.Now()

	active := 0
	for _, agent := range m.agents.All(ctx) {
		wasActive := agent.IsActive()
		agent.UpdateShiftStatus(now)

		if agent.IsActive() {
			active++
		}
		if wasActive != agent.IsActive() {
			m.logger.Debug().
				Str("agent_id", agent.ID).
				Str("team", string(agent.Team)).
				Bool("active", agent.IsActive()).
				Msg("agent shift status changed")
		}
	}

	m.logger.Debug().Int("active_agents", active).Msg("shift refresh complete")
}
