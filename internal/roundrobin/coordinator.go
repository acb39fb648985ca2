// Package roundrobin provides keyed monotonic counters for fair rotation
// across teams and seniority cohorts.
package roundrobin

import (
	"fmt"
	"sync"

	"github.com/apsen86/ChatSystem/internal/types"
)

// Coordinator maps string keys to rotation counters. Next is an atomic
// read-modify-write so concurrent pickers never return the same index twice
// in a row for the same key.
type Coordinator struct {
	mu       sync.Mutex
	counters map[string]int
}

// New creates an empty coordinator
func New() *Coordinator {
	return &Coordinator{
		counters: make(map[string]int),
	}
}

// Next returns the current index for key modulo n and advances the stored
// counter to (index+1) mod n. The modulus is applied with the caller's
// current n, not the n of earlier calls, so cohort size changes between
// ticks stay in range.
func (c *Coordinator) Next(key string, n int) (int, error) {
	if n <= 0 {
		return 0, fmt.Errorf("round-robin modulus %d for key %q: %w", n, key, types.ErrInvalidArgument)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	idx := c.counters[key] % n
	c.counters[key] = (idx + 1) % n
	return idx, nil
}

// Reset removes a key so the next pick starts from index 0
func (c *Coordinator) Reset(key string) {
	c.mu.Lock()
	delete(c.counters, key)
	c.mu.Unlock()
}

// TeamKey builds the rotation key for a team
func TeamKey(team types.Team) string {
	return "team_" + string(team)
}

// TeamSeniorityKey builds the rotation key for a seniority cohort inside a
// team
func TeamSeniorityKey(team types.Team, s types.Seniority) string {
	return "team_" + string(team) + "_seniority_" + string(s)
}
