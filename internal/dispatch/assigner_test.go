package dispatch

import (
	"context"
	"testing"
	"time"

	"github.com/apsen86/ChatSystem/internal/clock"
	"github.com/apsen86/ChatSystem/internal/schedule"
	"github.com/apsen86/ChatSystem/internal/store"
	"github.com/apsen86/ChatSystem/internal/types"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAssignerFixture(t *testing.T, agents ...*types.Agent) (*Assigner, *store.SessionStore, *store.AgentStore, *clock.Fake) {
	t.Helper()
	clk := clock.NewFake(time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC))
	agentStore := store.NewAgentStore(agents)
	sessionStore := store.NewSessionStore()
	hours := schedule.NewBusinessHours(clk, zerolog.Nop())
	calc := NewCapacityCalculator(agentStore, sessionStore, hours, clk, zerolog.Nop())
	return NewAssigner(sessionStore, agentStore, calc, clk, zerolog.Nop()), sessionStore, agentStore, clk
}

func TestTryAssignCommitsReservation(t *testing.T) {
	ctx := context.Background()
	agent := onShiftAgent("j1", types.SeniorityJunior, types.TeamA)
	assigner, sessions, _, clk := newAssignerFixture(t, agent)

	session := types.NewChatSession("s1", "u1", clk.Now())
	require.NoError(t, sessions.Save(ctx, session))
	require.True(t, agent.TryReserve())

	ok, err := assigner.TryAssign(ctx, session, agent)
	require.NoError(t, err)
	require.True(t, ok)

	assert.Equal(t, types.StatusAssigned, session.Status())
	assert.Equal(t, "j1", session.AssignedAgentID())
	assert.Equal(t, 1, agent.Current())
	assert.Equal(t, 0, agent.Reserved(), "reservation must be consumed by the commit")
}

func TestTryAssignFallsBackToDirectAssign(t *testing.T) {
	ctx := context.Background()
	agent := onShiftAgent("j1", types.SeniorityJunior, types.TeamA)
	assigner, sessions, _, clk := newAssignerFixture(t, agent)

	session := types.NewChatSession("s1", "u1", clk.Now())
	require.NoError(t, sessions.Save(ctx, session))

	// No reservation held: the assigner falls back to a direct slot grab
	ok, err := assigner.TryAssign(ctx, session, agent)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 1, agent.Current())
}

func TestTryAssignRefusesNonQueuedSession(t *testing.T) {
	ctx := context.Background()
	agent := onShiftAgent("j1", types.SeniorityJunior, types.TeamA)
	assigner, sessions, _, clk := newAssignerFixture(t, agent)

	session := types.NewChatSession("s1", "u1", clk.Now())
	require.NoError(t, session.AssignToAgent("someone-else", clk.Now()))
	require.NoError(t, sessions.Save(ctx, session))
	require.True(t, agent.TryReserve())

	ok, err := assigner.TryAssign(ctx, session, agent)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 0, agent.Reserved(), "reservation released on conflict")
	assert.Equal(t, 0, agent.Current())
}

func TestTryAssignAgentWentOffShift(t *testing.T) {
	ctx := context.Background()
	agent := onShiftAgent("j1", types.SeniorityJunior, types.TeamA)
	assigner, sessions, _, clk := newAssignerFixture(t, agent)

	session := types.NewChatSession("s1", "u1", clk.Now())
	require.NoError(t, sessions.Save(ctx, session))
	require.True(t, agent.TryReserve())

	// Shift closed between selection and commit
	agent.SetShiftStatus(false, false)

	ok, err := assigner.TryAssign(ctx, session, agent)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, types.StatusQueued, session.Status(), "session keeps its queue position")
	assert.Equal(t, 0, agent.Reserved())
}

func TestTryAssignCapacityGoneAtCommit(t *testing.T) {
	ctx := context.Background()
	agent := onShiftAgent("j1", types.SeniorityJunior, types.TeamA) // cap 4
	assigner, sessions, _, clk := newAssignerFixture(t, agent)

	// Fill the agent completely via direct assignment
	for i := 0; i < 4; i++ {
		require.True(t, agent.AssignDirect())
	}

	session := types.NewChatSession("s1", "u1", clk.Now())
	require.NoError(t, sessions.Save(ctx, session))

	ok, err := assigner.TryAssign(ctx, session, agent)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, types.StatusQueued, session.Status())
	assert.Equal(t, 4, agent.Current())
}
