package dispatch

import (
	"context"
	"time"

	"github.com/apsen86/ChatSystem/internal/clock"
	"github.com/apsen86/ChatSystem/internal/metrics"
	"github.com/apsen86/ChatSystem/internal/schedule"
	"github.com/apsen86/ChatSystem/internal/store"
	"github.com/apsen86/ChatSystem/internal/types"
	"github.com/rs/zerolog"
)

// Dispatcher drives assignment: every tick it refreshes shifts, drains the
// head of the main queue against available agents, and during office hours
// promotes stuck sessions to overflow and drains the overflow queue against
// the Overflow team.
type Dispatcher struct {
	sessions *store.SessionStore
	agents   *store.AgentStore
	selector *Selector
	assigner *Assigner
	hours    *schedule.BusinessHours
	shifts   *schedule.ShiftManager
	clock    clock.Clock
	logger   zerolog.Logger

	interval     time.Duration
	batchSize    int
	promoteBatch int
}

// DispatcherOptions are the dispatcher's tunables
type DispatcherOptions struct {
	Interval     time.Duration
	BatchSize    int
	PromoteBatch int
}

// NewDispatcher wires the dispatcher from its collaborators
func NewDispatcher(
	sessions *store.SessionStore,
	agents *store.AgentStore,
	selector *Selector,
	assigner *Assigner,
	hours *schedule.BusinessHours,
	shifts *schedule.ShiftManager,
	clk clock.Clock,
	opts DispatcherOptions,
	logger zerolog.Logger,
) *Dispatcher {
	return &Dispatcher{
		sessions:     sessions,
		agents:       agents,
		selector:     selector,
		assigner:     assigner,
		hours:        hours,
		shifts:       shifts,
		clock:        clk,
		logger:       logger,
		interval:     opts.Interval,
		batchSize:    opts.BatchSize,
		promoteBatch: opts.PromoteBatch,
	}
}

// Start runs the dispatch loop until the context is cancelled
func (d *Dispatcher) Start(ctx context.Context) {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	d.logger.Info().Dur("interval", d.interval).Msg("dispatcher started")

	for {
		select {
		case <-ctx.Done():
			d.logger.Info().Msg("dispatcher stopped")
			return
		case <-ticker.C:
			d.Tick(ctx)
		}
	}
}

// Tick performs a single dispatch pass. Errors are logged, never
// propagated, so one bad pass does not kill the loop.
func (d *Dispatcher) Tick(ctx context.Context) {
	started := time.Now()

	d.shifts.Refresh(ctx)
	d.processMainQueue(ctx)

	if d.hours.IsOfficeHours() {
		// Only sessions already in overflow before this tick's promotion are
		// drained now; freshly promoted ones wait for the next tick
		overflowBatch := d.sessions.OverflowQueue(ctx)
		d.moveUnassignedToOverflow(ctx)
		d.processOverflowQueue(ctx, overflowBatch)
	}

	metrics.MainQueueDepth.Set(float64(d.sessions.QueueLength(ctx)))
	metrics.OverflowQueueDepth.Set(float64(d.sessions.OverflowQueueLength(ctx)))
	metrics.AgentsAccepting.Set(float64(len(d.agents.Accepting(ctx))))
	metrics.DispatchTickDuration.Observe(time.Since(started).Seconds())
}

// processMainQueue offers the head of the main queue to the batch optimizer
func (d *Dispatcher) processMainQueue(ctx context.Context) {
	available := d.agents.Accepting(ctx)
	if len(available) == 0 {
		return
	}

	limit := d.batchSize
	if len(available) < limit {
		limit = len(available)
	}
	batch := d.sessions.MainQueue(ctx)
	if len(batch) == 0 {
		return
	}
	if len(batch) > limit {
		batch = batch[:limit]
	}

	pairs := d.selector.CreateOptimalAssignments(ctx, batch, available)
	d.commit(ctx, pairs)
}

// moveUnassignedToOverflow redirects up to promoteBatch still-queued
// sessions to the overflow queue. They drain on the next tick, bounding
// overflow latency at one interval.
func (d *Dispatcher) moveUnassignedToOverflow(ctx context.Context) {
	remaining := d.sessions.MainQueue(ctx)
	moved := 0
	for _, session := range remaining {
		if moved >= d.promoteBatch {
			break
		}
		if err := session.MoveToOverflow(); err != nil {
			// Lost a race with a concurrent assignment; skip
			continue
		}
		if err := d.sessions.Save(ctx, session); err != nil {
			d.logger.Error().Err(err).Str("session_id", session.ID).Msg("failed to persist overflow move")
			continue
		}
		moved++
		metrics.OverflowPromotionsTotal.Inc()
	}
	if moved > 0 {
		d.logger.Debug().Int("moved", moved).Msg("sessions promoted to overflow")
	}
}

// processOverflowQueue drains the given overflow sessions, oldest first,
// against the Overflow team
func (d *Dispatcher) processOverflowQueue(ctx context.Context, batch []*types.ChatSession) {
	if len(batch) == 0 {
		return
	}
	if len(batch) > d.batchSize {
		batch = batch[:d.batchSize]
	}

	pairs := d.selector.CreateOverflowAssignments(ctx, batch, d.agents.ByTeam(ctx, types.TeamOverflow))
	d.commit(ctx, pairs)
}

// commit runs the assigner over a batch of reserved pairs. TryAssign owns
// the reservation on every path, so failures need no cleanup here.
func (d *Dispatcher) commit(ctx context.Context, pairs []Assignment) {
	for _, pair := range pairs {
		ok, err := d.assigner.TryAssign(ctx, pair.Session, pair.Agent)
		if err != nil {
			d.logger.Error().
				Err(err).
				Str("session_id", pair.Session.ID).
				Str("agent_id", pair.Agent.ID).
				Msg("assignment failed")
			continue
		}
		if !ok {
			d.logger.Debug().
				Str("session_id", pair.Session.ID).
				Str("agent_id", pair.Agent.ID).
				Msg("assignment lost capacity race, session stays queued")
		}
	}
}
