package dispatch

import (
	"context"

	"github.com/apsen86/ChatSystem/internal/roundrobin"
	"github.com/apsen86/ChatSystem/internal/store"
	"github.com/apsen86/ChatSystem/internal/types"
	"github.com/rs/zerolog"
)

// Assignment pairs a queued session with a reserved agent. The reservation
// is held from the moment the selector emits the pair; the caller must
// either commit it through the assigner or release it.
type Assignment struct {
	Session *types.ChatSession
	Agent   *types.Agent
}

// Selector picks agents using a junior-first, capacity-weighted round-robin
// across teams and seniority cohorts.
type Selector struct {
	agents *store.AgentStore
	rr     *roundrobin.Coordinator
	logger zerolog.Logger
}

// NewSelector creates a selector sharing the given rotation counters
func NewSelector(agents *store.AgentStore, rr *roundrobin.Coordinator, logger zerolog.Logger) *Selector {
	return &Selector{
		agents: agents,
		rr:     rr,
		logger: logger,
	}
}

// SelectNext picks one agent. With useOverflow the pick rotates across the
// Overflow team's accepting agents; otherwise a team is chosen by the
// cross-team rotation counter and the seniority walk runs inside it.
// Returns nil when no agent qualifies.
func (s *Selector) SelectNext(ctx context.Context, team types.Team, useOverflow bool) (*types.Agent, error) {
	if useOverflow {
		candidates := accepting(s.agents.ByTeam(ctx, types.TeamOverflow))
		if len(candidates) == 0 {
			return nil, nil
		}
		idx, err := s.rr.Next(roundrobin.TeamKey(types.TeamOverflow), len(candidates))
		if err != nil {
			return nil, err
		}
		return candidates[idx], nil
	}

	// The cross-team rotation reuses Team A's key; per-team seniority
	// counters live under separate keys so the two never collide in
	// practice, and keeping the shared key preserves rotation state across
	// both entry points.
	pos, err := s.rr.Next(roundrobin.TeamKey(types.TeamA), len(types.RotationTeams))
	if err != nil {
		return nil, err
	}
	picked := types.RotationTeams[pos]
	return s.seniorityWalk(picked, s.agents.ByTeam(ctx, picked))
}

// seniorityWalk tries each seniority cohort junior-first and returns an
// agent from the first cohort with free capacity. Within the cohort, agents
// tied at the highest availability rotate via the cohort's counter.
func (s *Selector) seniorityWalk(team types.Team, bucket []*types.Agent) (*types.Agent, error) {
	for _, seniority := range types.SeniorityWalkOrder {
		var cohort []*types.Agent
		maxAvail := 0
		for _, a := range bucket {
			if a.Seniority != seniority {
				continue
			}
			avail := a.Available()
			if avail <= 0 {
				continue
			}
			if avail > maxAvail {
				maxAvail = avail
				cohort = cohort[:0]
			}
			if avail == maxAvail {
				cohort = append(cohort, a)
			}
		}
		if len(cohort) == 0 {
			continue
		}

		idx, err := s.rr.Next(roundrobin.TeamSeniorityKey(team, seniority), len(cohort))
		if err != nil {
			return nil, err
		}
		return cohort[idx], nil
	}
	return nil, nil
}

// CreateOptimalAssignments maps queued sessions onto agents from the three
// rotation teams. Sessions are offered in the given order; each successful
// reservation advances the team rotation so load spreads across teams. A
// reservation failure skips the session for this batch; the agent pool is
// re-evaluated next tick.
func (s *Selector) CreateOptimalAssignments(ctx context.Context, sessions []*types.ChatSession, agents []*types.Agent) []Assignment {
	return s.assignBatch(sessions, agents, types.RotationTeams)
}

// CreateOverflowAssignments runs the batch mapping restricted to the
// Overflow team
func (s *Selector) CreateOverflowAssignments(ctx context.Context, sessions []*types.ChatSession, agents []*types.Agent) []Assignment {
	return s.assignBatch(sessions, agents, []types.Team{types.TeamOverflow})
}

func (s *Selector) assignBatch(sessions []*types.ChatSession, agents []*types.Agent, teams []types.Team) []Assignment {
	buckets := make(map[types.Team][]*types.Agent, len(teams))
	for _, a := range accepting(agents) {
		buckets[a.Team] = append(buckets[a.Team], a)
	}

	var out []Assignment
	teamIndex := 0
	for _, session := range sessions {
		for i := 0; i < len(teams); i++ {
			pos := (teamIndex + i) % len(teams)
			team := teams[pos]

			candidate, err := s.seniorityWalk(team, buckets[team])
			if err != nil {
				s.logger.Error().Err(err).Str("team", string(team)).Msg("seniority walk failed")
				continue
			}
			if candidate == nil {
				continue
			}

			if candidate.TryReserve() {
				out = append(out, Assignment{Session: session, Agent: candidate})
				teamIndex = (pos + 1) % len(teams)
			}
			// A lost reservation race means the candidate filled up since
			// the walk; the session waits for the next tick
			break
		}
	}
	return out
}

func accepting(agents []*types.Agent) []*types.Agent {
	out := make([]*types.Agent, 0, len(agents))
	for _, a := range agents {
		if a.CanAccept() {
			out = append(out, a)
		}
	}
	return out
}
