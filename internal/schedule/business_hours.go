// Package schedule answers time-of-day questions for the dispatcher: office
// hours, shift windows, and the fixed startup roster.
package schedule

import (
	"time"

	"github.com/apsen86/ChatSystem/internal/clock"
	"github.com/rs/zerolog"
)

const easternZone = "America/New_York"

// BusinessHours reports whether the overflow routing window is open:
// Mon-Fri 09:00-17:00 US-Eastern. When the Eastern zone cannot be resolved
// it approximates with 14:00-22:00 UTC.
type BusinessHours struct {
	clock   clock.Clock
	eastern *time.Location
}

// NewBusinessHours creates a BusinessHours checker. A missing timezone
// database is logged once and the UTC approximation takes over.
func NewBusinessHours(clk clock.Clock, logger zerolog.Logger) *BusinessHours {
	loc, err := time.LoadLocation(easternZone)
	if err != nil {
		logger.Warn().Err(err).Str("zone", easternZone).Msg("timezone unavailable, falling back to UTC window")
		loc = nil
	}
	return &BusinessHours{clock: clk, eastern: loc}
}

// IsOfficeHours reports whether the current instant is within office hours
func (b *BusinessHours) IsOfficeHours() bool {
	now := b.clock.Now()

	if b.eastern == nil {
		utc := now.UTC()
		if !isWeekday(utc.Weekday()) {
			return false
		}
		return utc.Hour() >= 14 && utc.Hour() < 22
	}

	local := now.In(b.eastern)
	if !isWeekday(local.Weekday()) {
		return false
	}
	return local.Hour() >= 9 && local.Hour() < 17
}

// IsBusinessDay reports whether today is Mon-Fri, ignoring clock time
func (b *BusinessHours) IsBusinessDay() bool {
	now := b.clock.Now()
	if b.eastern != nil {
		return isWeekday(now.In(b.eastern).Weekday())
	}
	return isWeekday(now.UTC().Weekday())
}

// EasternLocation returns the resolved Eastern zone, or UTC when unavailable
func (b *BusinessHours) EasternLocation() *time.Location {
	if b.eastern == nil {
		return time.UTC
	}
	return b.eastern
}

func isWeekday(d time.Weekday) bool {
	return d != time.Saturday && d != time.Sunday
}
