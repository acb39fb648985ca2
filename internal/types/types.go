package types

import "time"

// Seniority represents an agent's experience level
type Seniority string

const (
	SeniorityJunior   Seniority = "Junior"
	SeniorityMidLevel Seniority = "MidLevel"
	SenioritySenior   Seniority = "Senior"
	SeniorityTeamLead Seniority = "TeamLead"
)

// SeniorityWalkOrder is the order in which seniorities are considered when
// picking an agent inside a team. Juniors are tried first so senior capacity
// stays free for escalations.
var SeniorityWalkOrder = []Seniority{
	SeniorityJunior,
	SeniorityMidLevel,
	SenioritySenior,
	SeniorityTeamLead,
}

// Team represents a support team
type Team string

const (
	TeamA        Team = "TeamA"
	TeamB        Team = "TeamB"
	TeamC        Team = "TeamC"
	TeamOverflow Team = "Overflow"
)

// RotationTeams are the teams the dispatcher rotates across for main-queue
// sessions. Overflow is excluded; it only serves the overflow queue.
var RotationTeams = []Team{TeamA, TeamB, TeamC}

const (
	// BaseConcurrentCapacity is scaled by the seniority multiplier to give
	// each agent's concurrent chat limit
	BaseConcurrentCapacity = 10

	// QueueLimitMultiplier scales team capacity into the queue admission limit
	QueueLimitMultiplier = 1.5

	// MissedPollThreshold is the number of missed polls after which a session
	// is inactivated
	MissedPollThreshold = 3

	// ExpectedPollInterval is how often a healthy client polls
	ExpectedPollInterval = 1 * time.Second

	// ShiftHandoffWindow is how long before shift end an agent stops
	// accepting new chats
	ShiftHandoffWindow = 5 * time.Minute

	// EstimatedWaitPerPosition is the per-queue-slot wait estimate returned
	// to clients
	EstimatedWaitPerPosition = 5 * time.Minute
)

// seniorityMultipliers scale BaseConcurrentCapacity per seniority. Team leads
// carry less chat load than seniors because of coordination duties.
var seniorityMultipliers = map[Seniority]float64{
	SeniorityJunior:   0.4,
	SeniorityMidLevel: 0.6,
	SenioritySenior:   0.8,
	SeniorityTeamLead: 0.5,
}

// MaxConcurrentFor returns the concurrent chat limit for a seniority
func MaxConcurrentFor(s Seniority) int {
	return int(float64(BaseConcurrentCapacity) * seniorityMultipliers[s])
}
