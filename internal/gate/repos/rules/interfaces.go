package rules

import "github.com/haukened/sitegate/internal/gate/domain"

// Store abstracts the durable rule index. Save persists a full snapshot
// transactionally; Load materializes the snapshot at startup, skipping
// (not aborting on) individually corrupt entries.
type Store interface {
	Load() (domain.RuleSet, error)
	Save(domain.RuleSet) error
	Close() error
}

// StoreStats captures high-level counts for the persistent store.
type StoreStats struct {
	InstantCount  int
	ScheduleCount int
	TimerCount    int
}
