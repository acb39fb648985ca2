package store

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/apsen86/ChatSystem/internal/types"
)

func testAgent(id string, seniority types.Seniority, team types.Team) *types.Agent {
	a := types.NewAgent(id, "Agent "+id, seniority, team, types.Shift{Start: 0, End: 24 * time.Hour})
	a.SetShiftStatus(true, true)
	return a
}

func TestAgentStoreLookups(t *testing.T) {
	ctx := context.Background()
	s := NewAgentStore([]*types.Agent{
		testAgent("a1", types.SeniorityJunior, types.TeamA),
		testAgent("a2", types.SenioritySenior, types.TeamA),
		testAgent("b1", types.SeniorityMidLevel, types.TeamB),
	})

	if _, err := s.Get(ctx, "a1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := s.Get(ctx, "missing"); err == nil {
		t.Error("expected error for unknown agent")
	}

	teamA := s.ByTeam(ctx, types.TeamA)
	if len(teamA) != 2 {
		t.Errorf("expected 2 agents in TeamA, got %d", len(teamA))
	}
	if teamA[0].ID != "a1" || teamA[1].ID != "a2" {
		t.Errorf("expected roster order a1,a2, got %s,%s", teamA[0].ID, teamA[1].ID)
	}
}

func TestAgentStoreAcceptingPredicate(t *testing.T) {
	ctx := context.Background()
	junior := testAgent("j1", types.SeniorityJunior, types.TeamA)
	offShift := testAgent("j2", types.SeniorityJunior, types.TeamA)
	offShift.SetShiftStatus(false, false)

	s := NewAgentStore([]*types.Agent{junior, offShift})

	accepting := s.Accepting(ctx)
	if len(accepting) != 1 || accepting[0].ID != "j1" {
		t.Fatalf("expected only j1 accepting, got %d agents", len(accepting))
	}

	// Fill the junior to capacity: 4 slots
	for i := 0; i < 4; i++ {
		if !junior.TryReserve() {
			t.Fatalf("reserve %d should succeed", i)
		}
	}
	if junior.TryReserve() {
		t.Error("reserve past capacity should fail")
	}
	if len(s.Accepting(ctx)) != 0 {
		t.Error("full agent must not be accepting")
	}
}

func TestAgentStoreTeamCapacityFixedRoster(t *testing.T) {
	ctx := context.Background()

	// Capacities follow the seniority multipliers:
	// TeamA: TeamLead 5 + MidLevel 6 + MidLevel 6 + Junior 4 = 21
	s := NewAgentStore([]*types.Agent{
		testAgent("lead", types.SeniorityTeamLead, types.TeamA),
		testAgent("mid1", types.SeniorityMidLevel, types.TeamA),
		testAgent("mid2", types.SeniorityMidLevel, types.TeamA),
		testAgent("jr", types.SeniorityJunior, types.TeamA),
	})

	if got := s.TeamCapacity(ctx, types.TeamA); got != 21 {
		t.Errorf("expected capacity 21, got %d", got)
	}

	// Inactive agents contribute nothing
	a, _ := s.Get(ctx, "lead")
	a.SetShiftStatus(false, false)
	if got := s.TeamCapacity(ctx, types.TeamA); got != 16 {
		t.Errorf("expected capacity 16 with lead off shift, got %d", got)
	}
}

func TestAgentReservationLifecycle(t *testing.T) {
	a := testAgent("j1", types.SeniorityJunior, types.TeamA)

	if !a.TryReserve() {
		t.Fatal("reserve should succeed")
	}
	if a.Reserved() != 1 || a.Current() != 0 {
		t.Fatalf("expected reserved=1 current=0, got %d/%d", a.Reserved(), a.Current())
	}

	if !a.ConfirmReservation() {
		t.Fatal("confirm should succeed")
	}
	if a.Reserved() != 0 || a.Current() != 1 {
		t.Fatalf("expected reserved=0 current=1, got %d/%d", a.Reserved(), a.Current())
	}

	// Confirm without a reservation must fail
	if a.ConfirmReservation() {
		t.Error("confirm without reservation should fail")
	}

	// Release with nothing held is a no-op
	a.ReleaseReservation()
	if a.Reserved() != 0 {
		t.Errorf("expected reserved=0 after no-op release, got %d", a.Reserved())
	}

	if !a.CompleteChat() {
		t.Fatal("complete should succeed")
	}
	if a.CompleteChat() {
		t.Error("complete with no chats should fail")
	}
}

func TestAgentConcurrentReservationsNeverExceedCapacity(t *testing.T) {
	a := testAgent("j1", types.SeniorityJunior, types.TeamA) // cap 4

	var wg sync.WaitGroup
	var mu sync.Mutex
	granted := 0

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if a.TryReserve() {
				mu.Lock()
				granted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if granted != 4 {
		t.Errorf("expected exactly 4 granted reservations, got %d", granted)
	}
	if a.Reserved() != 4 {
		t.Errorf("expected reserved=4, got %d", a.Reserved())
	}
}
