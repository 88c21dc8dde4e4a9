package httpapi

import (
	"time"

	"github.com/haukened/sitegate/internal/gate/domain"
	"github.com/haukened/sitegate/internal/gate/repos/rules"
)

// Decider is the slice of the decision engine the gateway needs.
type Decider interface {
	Decide(origin string) domain.Verdict
	LastBlocked() (origin string, reason domain.Reason, ok bool)
}

// RuleManager covers every rule mutation and read the API exposes.
type RuleManager interface {
	AddInstant(origin string) error
	RemoveInstant(origin string) error
	AddSchedule(origin string, rule domain.ScheduleRule) (domain.ScheduleRule, error)
	RemoveSchedule(origin string, id int64) error
	SetTimer(origin string, durationMinutes int) (domain.TimerRule, error)
	ClearTimer(origin string) error
	UnblockAll(origin string) error
	Snapshot() domain.RuleSet
	Stats() rules.StoreStats
	Export(now time.Time) domain.Export
	ImportMerge(in domain.Export) error
}

// Authenticator is the vault surface the auth endpoints consume.
type Authenticator interface {
	Signup(password string) error
	Login(password string) error
	Logout()
	LoggedIn() bool
	HasPassword() (bool, error)
}

// CacheStats exposes verdict cache counters for the status endpoint.
type CacheStats interface {
	Stats() (hits, misses, evictions uint64)
	Len() int
}
