// Package rules owns the blocking rule set: an explicitly owned in-memory
// mirror for fast synchronous lookup, backed by a durable Store. Every
// mutation is a serialized read-modify-write that persists before the
// caller sees success, so the decision engine never reads stale data right
// after a mutation and concurrent writers cannot lose updates.
package rules

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/haukened/sitegate/internal/gate/common/clock"
	"github.com/haukened/sitegate/internal/gate/common/log"
	"github.com/haukened/sitegate/internal/gate/domain"
)

var (
	// ErrInvalidDuration rejects non-positive timer durations.
	ErrInvalidDuration = errors.New("timer duration must be at least one minute")
	// ErrScheduleNotFound is returned when removal names an unknown id.
	ErrScheduleNotFound = errors.New("schedule not found")
)

// Repository mediates all access to the rule set.
type Repository struct {
	mu     sync.Mutex
	store  Store
	clk    clock.Clock
	logger log.Logger
	rules  domain.RuleSet
	subs   []func()
}

// NewRepository loads the persisted rule set and returns a Repository
// wrapping it.
func NewRepository(store Store, clk clock.Clock, logger log.Logger) (*Repository, error) {
	rs, err := store.Load()
	if err != nil {
		return nil, fmt.Errorf("loading rule store: %w", err)
	}
	return &Repository{
		store:  store,
		clk:    clk,
		logger: logger,
		rules:  rs,
	}, nil
}

// Subscribe registers fn to run after every successful mutation.
// Subscribers are invoked outside the repository lock.
func (r *Repository) Subscribe(fn func()) {
	r.mu.Lock()
	r.subs = append(r.subs, fn)
	r.mu.Unlock()
}

// Snapshot returns a deep copy of the current rule set.
func (r *Repository) Snapshot() domain.RuleSet {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rules.Clone()
}

// Stats reports rule counts per kind.
func (r *Repository) Stats() StoreStats {
	r.mu.Lock()
	defer r.mu.Unlock()
	st := StoreStats{
		InstantCount: len(r.rules.Instant),
		TimerCount:   len(r.rules.Timers),
	}
	for _, list := range r.rules.Schedules {
		st.ScheduleCount += len(list)
	}
	return st
}

// AddInstant adds a permanent block. Idempotent: re-adding an existing
// origin leaves exactly one entry and skips the durable write.
func (r *Repository) AddInstant(origin string) error {
	return r.mutate(func(rs domain.RuleSet) (bool, error) {
		if _, ok := rs.Instant[origin]; ok {
			return false, nil
		}
		rs.Instant[origin] = struct{}{}
		return true, nil
	})
}

// RemoveInstant removes a permanent block. No-op when absent.
func (r *Repository) RemoveInstant(origin string) error {
	return r.mutate(func(rs domain.RuleSet) (bool, error) {
		if _, ok := rs.Instant[origin]; !ok {
			return false, nil
		}
		delete(rs.Instant, origin)
		return true, nil
	})
}

// AddSchedule appends a weekly window for origin, assigning a fresh id
// unique within the origin's list. Returns the stored rule.
func (r *Repository) AddSchedule(origin string, rule domain.ScheduleRule) (domain.ScheduleRule, error) {
	if err := rule.Validate(); err != nil {
		return domain.ScheduleRule{}, err
	}
	var stored domain.ScheduleRule
	err := r.mutate(func(rs domain.RuleSet) (bool, error) {
		rule.ID = freshScheduleID(rs.Schedules[origin], r.clk.Now())
		rs.Schedules[origin] = append(rs.Schedules[origin], rule)
		stored = rule
		return true, nil
	})
	return stored, err
}

// RemoveSchedule deletes the schedule with the given id. The origin's list
// entry disappears entirely when it becomes empty. Removal is by id, never
// by positional index.
func (r *Repository) RemoveSchedule(origin string, id int64) error {
	return r.mutate(func(rs domain.RuleSet) (bool, error) {
		list, ok := rs.Schedules[origin]
		if !ok {
			return false, ErrScheduleNotFound
		}
		kept := list[:0]
		for _, s := range list {
			if s.ID != id {
				kept = append(kept, s)
			}
		}
		if len(kept) == len(list) {
			return false, ErrScheduleNotFound
		}
		if len(kept) == 0 {
			delete(rs.Schedules, origin)
		} else {
			rs.Schedules[origin] = kept
		}
		return true, nil
	})
}

// SetTimer installs a countdown block ending durationMinutes from now,
// overwriting any existing timer for the origin. Timers never stack.
func (r *Repository) SetTimer(origin string, durationMinutes int) (domain.TimerRule, error) {
	if durationMinutes <= 0 {
		return domain.TimerRule{}, ErrInvalidDuration
	}
	var stored domain.TimerRule
	err := r.mutate(func(rs domain.RuleSet) (bool, error) {
		stored = domain.NewTimerRule(r.clk.Now(), durationMinutes)
		rs.Timers[origin] = stored
		return true, nil
	})
	return stored, err
}

// ClearTimer removes the origin's timer. No-op when absent.
func (r *Repository) ClearTimer(origin string) error {
	return r.mutate(func(rs domain.RuleSet) (bool, error) {
		if _, ok := rs.Timers[origin]; !ok {
			return false, nil
		}
		delete(rs.Timers, origin)
		return true, nil
	})
}

// PurgeExpiredTimers removes every timer with endTime <= now and returns
// how many were removed. Invoked by the periodic sweep and at startup.
func (r *Repository) PurgeExpiredTimers(now time.Time) (int, error) {
	purged := 0
	err := r.mutate(func(rs domain.RuleSet) (bool, error) {
		for origin, t := range rs.Timers {
			if t.Expired(now) {
				delete(rs.Timers, origin)
				purged++
			}
		}
		return purged > 0, nil
	})
	if err != nil {
		return 0, err
	}
	return purged, nil
}

// UnblockAll removes the origin's instant rule, schedule list, and timer in
// a single atomic update.
func (r *Repository) UnblockAll(origin string) error {
	return r.mutate(func(rs domain.RuleSet) (bool, error) {
		_, hadInstant := rs.Instant[origin]
		_, hadSchedules := rs.Schedules[origin]
		_, hadTimer := rs.Timers[origin]
		if !hadInstant && !hadSchedules && !hadTimer {
			return false, nil
		}
		delete(rs.Instant, origin)
		delete(rs.Schedules, origin)
		delete(rs.Timers, origin)
		return true, nil
	})
}

// Export materializes the interchange snapshot: instant blocks and
// schedules only, timers excluded.
func (r *Repository) Export(now time.Time) domain.Export {
	snap := r.Snapshot()
	out := domain.Export{
		BlockedSites:    make([]string, 0, len(snap.Instant)),
		ScheduledBlocks: snap.Schedules,
		ExportDate:      now,
	}
	for o := range snap.Instant {
		out.BlockedSites = append(out.BlockedSites, o)
	}
	sort.Strings(out.BlockedSites)
	return out
}

// ImportMerge folds an exported snapshot into the rule set: blockedSites
// union into the instant set, and a shallow merge of scheduledBlocks where
// an imported origin's schedule list replaces the existing list wholesale.
// Imported ids that are missing or collide within a list are reassigned so
// per-origin uniqueness holds for removal by id.
func (r *Repository) ImportMerge(in domain.Export) error {
	return r.mutate(func(rs domain.RuleSet) (bool, error) {
		changed := false
		for _, origin := range in.BlockedSites {
			if _, ok := rs.Instant[origin]; !ok {
				rs.Instant[origin] = struct{}{}
				changed = true
			}
		}
		for origin, list := range in.ScheduledBlocks {
			kept := make([]domain.ScheduleRule, 0, len(list))
			for _, s := range list {
				if err := s.Validate(); err != nil {
					r.logger.Warn(map[string]any{
						"origin": origin,
						"id":     s.ID,
						"error":  err.Error(),
					}, "Skipping invalid imported schedule")
					continue
				}
				if s.ID == 0 || hasScheduleID(kept, s.ID) {
					s.ID = freshScheduleID(kept, r.clk.Now())
				}
				kept = append(kept, s)
			}
			if len(kept) == 0 {
				continue
			}
			rs.Schedules[origin] = kept
			changed = true
		}
		return changed, nil
	})
}

// mutate runs fn against a clone of the rule set, persists the clone when
// fn reports a change, and swaps it in only after the durable write
// succeeds. A failed Save leaves the in-memory mirror untouched.
func (r *Repository) mutate(fn func(domain.RuleSet) (bool, error)) error {
	r.mu.Lock()
	next := r.rules.Clone()
	changed, err := fn(next)
	if err != nil {
		r.mu.Unlock()
		return err
	}
	if !changed {
		r.mu.Unlock()
		return nil
	}
	if err := r.store.Save(next); err != nil {
		r.mu.Unlock()
		r.logger.Error(map[string]any{"error": err.Error()}, "Rule store write failed")
		return fmt.Errorf("persisting rules: %w", err)
	}
	r.rules = next
	subs := append([]func(){}, r.subs...)
	r.mu.Unlock()

	for _, fn := range subs {
		fn()
	}
	return nil
}

// freshScheduleID derives a time-based id, bumping past collisions within
// the origin's existing list.
func freshScheduleID(existing []domain.ScheduleRule, now time.Time) int64 {
	id := now.UnixMilli()
	for hasScheduleID(existing, id) {
		id++
	}
	return id
}

func hasScheduleID(list []domain.ScheduleRule, id int64) bool {
	for _, s := range list {
		if s.ID == id {
			return true
		}
	}
	return false
}
