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

func mustEastern(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skipf("timezone database unavailable: %v", err)
	}
	return loc
}

// fullRoster returns the fixed startup roster with every agent forced on
// shift so capacity sums are stable regardless of the test clock
func fullRoster(t *testing.T) *store.AgentStore {
	t.Helper()
	agents := store.NewAgentStore(schedule.DefaultRoster(mustEastern(t)))
	for _, a := range agents.All(context.Background()) {
		a.SetShiftStatus(true, true)
	}
	return agents
}

func TestFixedRosterCapacitiesAndLimits(t *testing.T) {
	ctx := context.Background()
	clk := clock.NewFake(time.Date(2025, 6, 2, 14, 0, 0, 0, time.UTC))
	agents := fullRoster(t)
	sessions := store.NewSessionStore()
	hours := schedule.NewBusinessHours(clk, zerolog.Nop())

	calc := NewCapacityCalculator(agents, sessions, hours, clk, zerolog.Nop())

	assert.Equal(t, 21, calc.TeamCapacity(ctx, types.TeamA))
	assert.Equal(t, 22, calc.TeamCapacity(ctx, types.TeamB))
	assert.Equal(t, 12, calc.TeamCapacity(ctx, types.TeamC))
	assert.Equal(t, 24, calc.TeamCapacity(ctx, types.TeamOverflow))
	assert.Equal(t, 55, calc.TotalCapacity(ctx))

	assert.Equal(t, 82, QueueLimit(calc.TotalCapacity(ctx)))
	assert.Equal(t, 36, QueueLimit(calc.TeamCapacity(ctx, types.TeamOverflow)))
}

func TestCapacityCacheTTLAndInvalidation(t *testing.T) {
	ctx := context.Background()
	clk := clock.NewFake(time.Date(2025, 6, 2, 14, 0, 0, 0, time.UTC))
	agents := fullRoster(t)
	sessions := store.NewSessionStore()
	hours := schedule.NewBusinessHours(clk, zerolog.Nop())
	calc := NewCapacityCalculator(agents, sessions, hours, clk, zerolog.Nop())

	require.Equal(t, 21, calc.TeamCapacity(ctx, types.TeamA))

	// Take an agent off shift: the cached value survives until the TTL
	a, err := agents.Get(ctx, "alice-thompson")
	require.NoError(t, err)
	a.SetShiftStatus(false, false)

	assert.Equal(t, 21, calc.TeamCapacity(ctx, types.TeamA), "stale read within TTL")

	clk.Advance(6 * time.Second)
	assert.Equal(t, 16, calc.TeamCapacity(ctx, types.TeamA), "fresh read after TTL")

	// Explicit invalidation bypasses the TTL
	a.SetShiftStatus(true, true)
	calc.Invalidate(types.TeamA)
	assert.Equal(t, 21, calc.TeamCapacity(ctx, types.TeamA))
}

func TestCanAcceptMainQueueLimit(t *testing.T) {
	ctx := context.Background()
	// Sunday: never office hours, so only the main-queue rule applies
	clk := clock.NewFake(time.Date(2025, 6, 1, 14, 0, 0, 0, time.UTC))
	agents := fullRoster(t)
	sessions := store.NewSessionStore()
	hours := schedule.NewBusinessHours(clk, zerolog.Nop())
	calc := NewCapacityCalculator(agents, sessions, hours, clk, zerolog.Nop())

	base := clk.Now()
	for i := 0; i < 81; i++ {
		sessions.Save(ctx, types.NewChatSession(sessionID(i), userID(i), base.Add(time.Duration(i)*time.Millisecond)))
	}
	assert.True(t, calc.CanAccept(ctx), "81 queued of 82 allowed")

	sessions.Save(ctx, types.NewChatSession("s-last", "u-last", base.Add(time.Second)))
	assert.False(t, calc.CanAccept(ctx), "82 queued fills the main queue outside office hours")
}

func TestCanAcceptOverflowRoomDuringOfficeHours(t *testing.T) {
	ctx := context.Background()
	eastern := mustEastern(t)
	// Monday 10:00 Eastern: office hours
	clk := clock.NewFake(time.Date(2025, 6, 2, 10, 0, 0, 0, eastern))
	agents := fullRoster(t)
	sessions := store.NewSessionStore()
	hours := schedule.NewBusinessHours(clk, zerolog.Nop())
	calc := NewCapacityCalculator(agents, sessions, hours, clk, zerolog.Nop())

	base := clk.Now()
	for i := 0; i < 82; i++ {
		sessions.Save(ctx, types.NewChatSession(sessionID(i), userID(i), base.Add(time.Duration(i)*time.Millisecond)))
	}
	require.False(t, sessions.QueueLength(ctx) < 82)

	// Main queue full, overflow queue empty: office hours admit via the
	// overflow sub-limit
	assert.True(t, calc.CanAccept(ctx))

	// Fill the overflow queue to its limit of 36
	for i := 0; i < 36; i++ {
		s := types.NewChatSession("ov-"+sessionID(i), "ov-"+userID(i), base.Add(time.Duration(i)*time.Millisecond))
		require.NoError(t, s.MoveToOverflow())
		sessions.Save(ctx, s)
	}
	assert.False(t, calc.CanAccept(ctx), "both queues at their limits")
}

func sessionID(i int) string { return "s-" + string(rune('0'+i/10)) + string(rune('0'+i%10)) }
func userID(i int) string    { return "u-" + string(rune('0'+i/10)) + string(rune('0'+i%10)) }
