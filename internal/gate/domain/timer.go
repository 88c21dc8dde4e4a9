package domain

import "time"

// TimerRule is a one-shot temporary block with an absolute expiry.
// At most one timer exists per origin; setting a new one overwrites.
type TimerRule struct {
	EndTime  int64 `json:"endTime"`  // epoch milliseconds
	Duration int   `json:"duration"` // original duration in minutes
}

// NewTimerRule computes the expiry for a block of durationMinutes from now.
func NewTimerRule(now time.Time, durationMinutes int) TimerRule {
	return TimerRule{
		EndTime:  now.Add(time.Duration(durationMinutes) * time.Minute).UnixMilli(),
		Duration: durationMinutes,
	}
}

// Expired reports whether the timer has elapsed. An expired timer is
// logically inert and eligible for purging.
func (t TimerRule) Expired(now time.Time) bool {
	return t.EndTime <= now.UnixMilli()
}

// Active reports whether the timer still blocks at the given instant.
func (t TimerRule) Active(now time.Time) bool {
	return !t.Expired(now)
}
