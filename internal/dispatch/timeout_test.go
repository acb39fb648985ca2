package dispatch

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/apsen86/ChatSystem/internal/clock"
	"github.com/apsen86/ChatSystem/internal/store"
	"github.com/apsen86/ChatSystem/internal/types"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeArchive struct {
	mu      sync.Mutex
	records []types.SessionRecord
}

func (f *fakeArchive) SaveSessionRecord(record types.SessionRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records = append(f.records, record)
	return nil
}

func (f *fakeArchive) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.records)
}

func TestTimeoutInactivatesSilentSessionAndReleasesAgent(t *testing.T) {
	ctx := context.Background()
	clk := clock.NewFake(time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC))

	agent := onShiftAgent("j1", types.SeniorityJunior, types.TeamA)
	agents := store.NewAgentStore([]*types.Agent{agent})
	sessions := store.NewSessionStore()
	svc := NewTimeoutService(sessions, agents, clk, zerolog.Nop())

	session := types.NewChatSession("s1", "u1", clk.Now())
	require.NoError(t, session.AssignToAgent("j1", clk.Now()))
	require.True(t, agent.AssignDirect())
	require.NoError(t, sessions.Save(ctx, session))

	// Three silent seconds, one monitor pass each
	for i := 0; i < 3; i++ {
		clk.Advance(time.Second)
		require.NoError(t, svc.ProcessTimeouts(ctx))
	}

	assert.Equal(t, types.StatusInactive, session.Status())
	assert.Equal(t, 0, agent.Current(), "the agent slot must be released exactly once")

	// Further passes are no-ops
	clk.Advance(time.Second)
	require.NoError(t, svc.ProcessTimeouts(ctx))
	assert.Equal(t, 0, agent.Current())
}

func TestTimeoutPollKeepsSessionAlive(t *testing.T) {
	ctx := context.Background()
	clk := clock.NewFake(time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC))

	agents := store.NewAgentStore(nil)
	sessions := store.NewSessionStore()
	svc := NewTimeoutService(sessions, agents, clk, zerolog.Nop())

	session := types.NewChatSession("s1", "u1", clk.Now())
	require.NoError(t, sessions.Save(ctx, session))

	// Two missed passes, then a poll resets the counter
	clk.Advance(time.Second)
	require.NoError(t, svc.ProcessTimeouts(ctx))
	clk.Advance(time.Second)
	require.NoError(t, svc.ProcessTimeouts(ctx))
	session.Touch(clk.Now())

	clk.Advance(time.Second)
	require.NoError(t, svc.ProcessTimeouts(ctx))
	assert.Equal(t, types.StatusQueued, session.Status(), "a poll within the window must restart the countdown")
}

func TestTimeoutInactivatesQueuedSessionWithoutAgentRelease(t *testing.T) {
	ctx := context.Background()
	clk := clock.NewFake(time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC))

	agent := onShiftAgent("j1", types.SeniorityJunior, types.TeamA)
	agents := store.NewAgentStore([]*types.Agent{agent})
	sessions := store.NewSessionStore()
	svc := NewTimeoutService(sessions, agents, clk, zerolog.Nop())

	session := types.NewChatSession("s1", "u1", clk.Now())
	require.NoError(t, sessions.Save(ctx, session))

	for i := 0; i < 3; i++ {
		clk.Advance(time.Second)
		require.NoError(t, svc.ProcessTimeouts(ctx))
	}

	assert.Equal(t, types.StatusInactive, session.Status())
	assert.Equal(t, 0, agent.Current(), "no slot was held, none may be released")
}

func TestTimeoutArchivesDroppedSessions(t *testing.T) {
	ctx := context.Background()
	clk := clock.NewFake(time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC))

	agents := store.NewAgentStore(nil)
	sessions := store.NewSessionStore()
	svc := NewTimeoutService(sessions, agents, clk, zerolog.Nop())

	archive := &fakeArchive{}
	svc.SetArchive(archive)

	session := types.NewChatSession("s1", "u1", clk.Now())
	require.NoError(t, sessions.Save(ctx, session))

	for i := 0; i < 3; i++ {
		clk.Advance(time.Second)
		require.NoError(t, svc.ProcessTimeouts(ctx))
	}

	// The archive write is asynchronous
	deadline := time.Now().Add(time.Second)
	for archive.count() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	require.Equal(t, 1, archive.count())

	archive.mu.Lock()
	record := archive.records[0]
	archive.mu.Unlock()
	assert.Equal(t, "s1", record.SessionID)
	assert.Equal(t, string(types.StatusInactive), record.Status)
	assert.Equal(t, "2025-06-02", record.DateKey)
}
