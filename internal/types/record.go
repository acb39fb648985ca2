package types

import "time"

// SessionRecord is the archived form of a terminal session, keyed for
// per-day queries. Times are ISO-8601 UTC strings.
type SessionRecord struct {
	DateKey         string  `json:"dateKey" dynamodbav:"DateKey"`
	SessionID       string  `json:"sessionId" dynamodbav:"SessionID"`
	UserID          string  `json:"userId" dynamodbav:"UserID"`
	Status          string  `json:"status" dynamodbav:"Status"`
	CreatedAt       string  `json:"createdAt" dynamodbav:"CreatedAt"`
	AssignedAt      string  `json:"assignedAt,omitempty" dynamodbav:"AssignedAt,omitempty"`
	EndedAt         string  `json:"endedAt" dynamodbav:"EndedAt"`
	AssignedAgentID string  `json:"assignedAgentId,omitempty" dynamodbav:"AssignedAgentID,omitempty"`
	PollCount       int     `json:"pollCount" dynamodbav:"PollCount"`
	MissedPollCount int     `json:"missedPollCount" dynamodbav:"MissedPollCount"`
	WaitSecs        float64 `json:"waitSecs" dynamodbav:"WaitSecs"`
	WasInOverflow   bool    `json:"wasInOverflow" dynamodbav:"WasInOverflow"`
}

// RecordFromSnapshot builds the archive record for a session that reached a
// terminal state at endedAt
func RecordFromSnapshot(snap SessionSnapshot, endedAt time.Time) SessionRecord {
	rec := SessionRecord{
		DateKey:         snap.CreatedAt.UTC().Format("2006-01-02"),
		SessionID:       snap.ID,
		UserID:          snap.UserID,
		Status:          string(snap.Status),
		CreatedAt:       snap.CreatedAt.UTC().Format(time.RFC3339),
		EndedAt:         endedAt.UTC().Format(time.RFC3339),
		AssignedAgentID: snap.AssignedAgentID,
		PollCount:       snap.PollCount,
		MissedPollCount: snap.MissedPollCount,
		WasInOverflow:   snap.IsInOverflow,
	}
	if snap.AssignedAt != nil {
		rec.AssignedAt = snap.AssignedAt.UTC().Format(time.RFC3339)
		rec.WaitSecs = snap.AssignedAt.Sub(snap.CreatedAt).Seconds()
	}
	return rec
}
