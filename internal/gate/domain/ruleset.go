package domain

import "sort"

// RuleSet is an immutable-by-convention snapshot of every blocking rule,
// keyed by normalized origin. The repository hands copies of this out so
// the decision engine can evaluate without touching shared state.
type RuleSet struct {
	Instant   map[string]struct{}
	Schedules map[string][]ScheduleRule
	Timers    map[string]TimerRule
}

// NewRuleSet returns an empty rule set with all maps allocated.
func NewRuleSet() RuleSet {
	return RuleSet{
		Instant:   make(map[string]struct{}),
		Schedules: make(map[string][]ScheduleRule),
		Timers:    make(map[string]TimerRule),
	}
}

// Clone returns a deep copy safe for independent mutation.
func (rs RuleSet) Clone() RuleSet {
	out := NewRuleSet()
	for o := range rs.Instant {
		out.Instant[o] = struct{}{}
	}
	for o, list := range rs.Schedules {
		out.Schedules[o] = append([]ScheduleRule(nil), list...)
	}
	for o, t := range rs.Timers {
		out.Timers[o] = t
	}
	return out
}

// HasRules reports whether any rule kind exists for the origin.
func (rs RuleSet) HasRules(origin string) bool {
	if _, ok := rs.Instant[origin]; ok {
		return true
	}
	if _, ok := rs.Schedules[origin]; ok {
		return true
	}
	_, ok := rs.Timers[origin]
	return ok
}

// Origins returns the sorted set of origins carrying at least one rule.
func (rs RuleSet) Origins() []string {
	seen := make(map[string]struct{}, len(rs.Instant)+len(rs.Schedules)+len(rs.Timers))
	for o := range rs.Instant {
		seen[o] = struct{}{}
	}
	for o := range rs.Schedules {
		seen[o] = struct{}{}
	}
	for o := range rs.Timers {
		seen[o] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for o := range seen {
		out = append(out, o)
	}
	sort.Strings(out)
	return out
}
