// Package dispatch contains the assignment engine: capacity accounting,
// agent selection, the assigner, the liveness timeout service, and the two
// background loops that drive them.
package dispatch

import (
	"context"
	"sync"
	"time"

	"github.com/apsen86/ChatSystem/internal/clock"
	"github.com/apsen86/ChatSystem/internal/schedule"
	"github.com/apsen86/ChatSystem/internal/store"
	"github.com/apsen86/ChatSystem/internal/types"
	"github.com/rs/zerolog"
)

// capacityCacheTTL bounds how stale a cached capacity read may be. The
// final admit decision is always arbitrated by reservation, so short
// staleness here is acceptable.
const capacityCacheTTL = 5 * time.Second

type capacityEntry struct {
	value   int
	expires time.Time
}

// CapacityCalculator computes per-team and total capacity with a short TTL
// cache, and answers the admission predicate for new sessions.
type CapacityCalculator struct {
	agents   *store.AgentStore
	sessions *store.SessionStore
	hours    *schedule.BusinessHours
	clock    clock.Clock
	logger   zerolog.Logger

	mu        sync.Mutex
	teamCache map[types.Team]capacityEntry
	total     *capacityEntry
}

// NewCapacityCalculator creates a calculator over the given stores
func NewCapacityCalculator(agents *store.AgentStore, sessions *store.SessionStore, hours *schedule.BusinessHours, clk clock.Clock, logger zerolog.Logger) *CapacityCalculator {
	return &CapacityCalculator{
		agents:    agents,
		sessions:  sessions,
		hours:     hours,
		clock:     clk,
		logger:    logger,
		teamCache: make(map[types.Team]capacityEntry),
	}
}

// TeamCapacity returns the summed concurrent chat limit of a team's active
// agents, cached for a few seconds
func (c *CapacityCalculator) TeamCapacity(ctx context.Context, team types.Team) int {
	now := c.clock.Now()

	c.mu.Lock()
	if entry, ok := c.teamCache[team]; ok && now.Before(entry.expires) {
		c.mu.Unlock()
		return entry.value
	}
	c.mu.Unlock()

	value := c.agents.TeamCapacity(ctx, team)

	c.mu.Lock()
	c.teamCache[team] = capacityEntry{value: value, expires: now.Add(capacityCacheTTL)}
	c.mu.Unlock()
	return value
}

// TotalCapacity returns the combined capacity of the three rotation teams,
// cached separately from the per-team entries
func (c *CapacityCalculator) TotalCapacity(ctx context.Context) int {
	now := c.clock.Now()

	c.mu.Lock()
	if c.total != nil && now.Before(c.total.expires) {
		value := c.total.value
		c.mu.Unlock()
		return value
	}
	c.mu.Unlock()

	value := 0
	for _, team := range types.RotationTeams {
		value += c.agents.TeamCapacity(ctx, team)
	}

	c.mu.Lock()
	c.total = &capacityEntry{value: value, expires: now.Add(capacityCacheTTL)}
	c.mu.Unlock()
	return value
}

// QueueLimit converts a capacity into the queue admission limit
func QueueLimit(capacity int) int {
	return int(float64(capacity) * types.QueueLimitMultiplier)
}

// CanAccept is the admission predicate for new sessions. A session is
// admitted while the main queue has room, or, during office hours, while
// the overflow queue still has room; in the latter case it enters the main
// queue and the dispatcher promotes it to overflow later.
func (c *CapacityCalculator) CanAccept(ctx context.Context) bool {
	mainLen := c.sessions.QueueLength(ctx)
	if mainLen < QueueLimit(c.TotalCapacity(ctx)) {
		return true
	}

	if !c.hours.IsOfficeHours() {
		return false
	}
	overflowLen := c.sessions.OverflowQueueLength(ctx)
	return overflowLen < QueueLimit(c.TeamCapacity(ctx, types.TeamOverflow))
}

// Invalidate drops the cached capacity for a team and the total. Writers
// call this after committing an assignment so admission sees fresh numbers
// promptly.
func (c *CapacityCalculator) Invalidate(team types.Team) {
	c.mu.Lock()
	delete(c.teamCache, team)
	c.total = nil
	c.mu.Unlock()
}
