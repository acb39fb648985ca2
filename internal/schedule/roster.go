package schedule

import (
	"time"

	"github.com/apsen86/ChatSystem/internal/types"
)

// Shift windows in UTC. Team C runs past midnight; the five-minute overlaps
// between teams absorb handoff.
var (
	shiftTeamA = types.Shift{Start: 0, End: 8*time.Hour + 5*time.Minute}
	shiftTeamB = types.Shift{Start: 7*time.Hour + 55*time.Minute, End: 16*time.Hour + 5*time.Minute}
	shiftTeamC = types.Shift{Start: 15*time.Hour + 55*time.Minute, End: 24*time.Hour + 5*time.Minute}
)

// DefaultRoster builds the fixed startup roster. The Overflow team works
// 09:00-17:00 in the Eastern zone, matching the office-hours window it
// serves.
func DefaultRoster(eastern *time.Location) []*types.Agent {
	overflowShift := types.Shift{
		Start: 9 * time.Hour,
		End:   17 * time.Hour,
		Loc:   eastern,
	}

	roster := []*types.Agent{
		types.NewAgent("alice-thompson", "Alice Thompson", types.SeniorityTeamLead, types.TeamA, shiftTeamA),
		types.NewAgent("bob-wilson", "Bob Wilson", types.SeniorityMidLevel, types.TeamA, shiftTeamA),
		types.NewAgent("carol-davis", "Carol Davis", types.SeniorityMidLevel, types.TeamA, shiftTeamA),
		types.NewAgent("david-brown", "David Brown", types.SeniorityJunior, types.TeamA, shiftTeamA),

		types.NewAgent("emma-johnson", "Emma Johnson", types.SenioritySenior, types.TeamB, shiftTeamB),
		types.NewAgent("frank-miller", "Frank Miller", types.SeniorityMidLevel, types.TeamB, shiftTeamB),
		types.NewAgent("grace-lee", "Grace Lee", types.SeniorityJunior, types.TeamB, shiftTeamB),
		types.NewAgent("henry-chen", "Henry Chen", types.SeniorityJunior, types.TeamB, shiftTeamB),

		types.NewAgent("isabel-rodriguez", "Isabel Rodriguez", types.SeniorityMidLevel, types.TeamC, shiftTeamC),
		types.NewAgent("jack-anderson", "Jack Anderson", types.SeniorityMidLevel, types.TeamC, shiftTeamC),

		types.NewAgent("overflow-1", "Overflow Agent 1", types.SeniorityJunior, types.TeamOverflow, overflowShift),
		types.NewAgent("overflow-2", "Overflow Agent 2", types.SeniorityJunior, types.TeamOverflow, overflowShift),
		types.NewAgent("overflow-3", "Overflow Agent 3", types.SeniorityJunior, types.TeamOverflow, overflowShift),
		types.NewAgent("overflow-4", "Overflow Agent 4", types.SeniorityJunior, types.TeamOverflow, overflowShift),
		types.NewAgent("overflow-5", "Overflow Agent 5", types.SeniorityJunior, types.TeamOverflow, overflowShift),
		types.NewAgent("overflow-6", "Overflow Agent 6", types.SeniorityJunior, types.TeamOverflow, overflowShift),
	}

	return roster
}
