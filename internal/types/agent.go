package types

import (
	"sync"
	"time"
)

// Shift is a daily work window in a fixed location. End may exceed 24h for
// windows that run past midnight (e.g. 15:55-24:05).
type Shift struct {
	Start time.Duration
	End   time.Duration
	Loc   *time.Location
}

const day = 24 * time.Hour

// sinceMidnight returns the elapsed duration since midnight of now in the
// shift's location
func (s Shift) sinceMidnight(now time.Time) time.Duration {
	loc := s.Loc
	if loc == nil {
		loc = time.UTC
	}
	local := now.In(loc)
	midnight := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	return local.Sub(midnight)
}

// Contains reports whether now falls inside the shift window, ends inclusive
func (s Shift) Contains(now time.Time) bool {
	m := s.sinceMidnight(now)
	if s.End <= day {
		return m >= s.Start && m <= s.End
	}
	// Window wraps past midnight: the tail [0, End-24h] belongs to the
	// previous day's shift
	return m >= s.Start || m <= s.End-day
}

// Remaining returns the time until shift end. Only meaningful while the
// shift contains now.
func (s Shift) Remaining(now time.Time) time.Duration {
	m := s.sinceMidnight(now)
	if s.End <= day {
		return s.End - m
	}
	if m >= s.Start {
		return s.End - m
	}
	return s.End - day - m
}

// Agent is a support worker with a fixed seniority and team. Its load
// counters are guarded by a per-agent mutex so reserve/commit/release
// sequences from concurrent assignment attempts never tear.
type Agent struct {
	ID        string
	Name      string
	Seniority Seniority
	Team      Team
	Shift     Shift

	mu                sync.Mutex
	active            bool
	acceptingNewChats bool
	current           int
	reserved          int
}

// NewAgent creates an agent with zero load. Flags start false until the
// shift manager runs.
func NewAgent(id, name string, seniority Seniority, team Team, shift Shift) *Agent {
	return &Agent{
		ID:        id,
		Name:      name,
		Seniority: seniority,
		Team:      team,
		Shift:     shift,
	}
}

// MaxConcurrent returns the agent's concurrent chat limit
func (a *Agent) MaxConcurrent() int {
	return MaxConcurrentFor(a.Seniority)
}

func (a *Agent) canAcceptLocked() bool {
	return a.active && a.acceptingNewChats && a.current+a.reserved < a.MaxConcurrent()
}

// CanAccept reports whether the agent can take one more chat right now
func (a *Agent) CanAccept() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.canAcceptLocked()
}

// Available returns the number of free slots after subtracting in-flight
// reservations
func (a *Agent) Available() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.active || !a.acceptingNewChats {
		return 0
	}
	free := a.MaxConcurrent() - a.current - a.reserved
	if free < 0 {
		return 0
	}
	return free
}

// TryReserve holds one slot for an in-flight assignment attempt. Returns
// false when the agent cannot accept.
func (a *Agent) TryReserve() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.canAcceptLocked() {
		return false
	}
	a.reserved++
	return true
}

// ReleaseReservation returns a held slot. No-op when nothing is reserved, so
// callers may release unconditionally on failure paths.
func (a *Agent) ReleaseReservation() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.reserved > 0 {
		a.reserved--
	}
}

// ConfirmReservation converts a held slot into an assigned chat. Returns
// false when no reservation is held.
func (a *Agent) ConfirmReservation() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.reserved <= 0 {
		return false
	}
	a.reserved--
	a.current++
	return true
}

// CanCommit reports whether a held reservation can still be converted into
// an assigned chat: the shift must still be open. Capacity is already
// guaranteed by the reservation itself, so unlike CanAccept this does not
// count the caller's own held slot against the agent.
func (a *Agent) CanCommit() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.active && a.acceptingNewChats && a.current < a.MaxConcurrent()
}

// AssignDirect takes a slot without a prior reservation. Used when the
// reservation was lost between selection and commit.
func (a *Agent) AssignDirect() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.canAcceptLocked() {
		return false
	}
	a.current++
	return true
}

// CompleteChat releases one assigned chat slot
func (a *Agent) CompleteChat() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.current <= 0 {
		return false
	}
	a.current--
	return true
}

// UpdateShiftStatus refreshes the active/accepting flags from the shift
// window. Agents stop accepting new chats within the handoff window before
// shift end so open chats can drain.
func (a *Agent) UpdateShiftStatus(now time.Time) {
	inShift := a.Shift.Contains(now)
	accepting := inShift && a.Shift.Remaining(now) > ShiftHandoffWindow

	a.mu.Lock()
	a.active = inShift
	a.acceptingNewChats = accepting
	a.mu.Unlock()
}

// SetShiftStatus overrides the shift flags directly. Intended for tests and
// admin tooling.
func (a *Agent) SetShiftStatus(active, accepting bool) {
	a.mu.Lock()
	a.active = active
	a.acceptingNewChats = accepting
	a.mu.Unlock()
}

// IsActive reports whether the agent is inside their shift
func (a *Agent) IsActive() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.active
}

// Current returns the number of chats in progress
func (a *Agent) Current() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.current
}

// Reserved returns the number of held reservations
func (a *Agent) Reserved() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.reserved
}

// AgentSnapshot is the wire form of an agent's state
type AgentSnapshot struct {
	ID                string    `json:"id"`
	Name              string    `json:"name"`
	Seniority         Seniority `json:"seniority"`
	Team              Team      `json:"team"`
	Active            bool      `json:"active"`
	AcceptingNewChats bool      `json:"acceptingNewChats"`
	Current           int       `json:"current"`
	Reserved          int       `json:"reserved"`
	MaxConcurrent     int       `json:"maxConcurrent"`
	Available         int       `json:"available"`
}

// Snapshot returns a consistent copy of the agent's state
func (a *Agent) Snapshot() AgentSnapshot {
	a.mu.Lock()
	defer a.mu.Unlock()

	avail := a.MaxConcurrent() - a.current - a.reserved
	if avail < 0 || !a.active || !a.acceptingNewChats {
		avail = 0
	}
	return AgentSnapshot{
		ID:                a.ID,
		Name:              a.Name,
		Seniority:         a.Seniority,
		Team:              a.Team,
		Active:            a.active,
		AcceptingNewChats: a.acceptingNewChats,
		Current:           a.current,
		Reserved:          a.reserved,
		MaxConcurrent:     a.MaxConcurrent(),
		Available:         avail,
	}
}
