package domain

import (
	"reflect"
	"testing"
	"time"
)

func sampleRuleSet() RuleSet {
	rs := NewRuleSet()
	rs.Instant["https://a.com"] = struct{}{}
	rs.Schedules["https://b.com"] = []ScheduleRule{{ID: 1, Days: []time.Weekday{time.Monday}, Start: 540, End: 1020}}
	rs.Timers["https://c.com"] = TimerRule{EndTime: 12345, Duration: 5}
	return rs
}

func TestRuleSetHasRules(t *testing.T) {
	rs := sampleRuleSet()
	for _, origin := range []string{"https://a.com", "https://b.com", "https://c.com"} {
		if !rs.HasRules(origin) {
			t.Errorf("HasRules(%q) = false, want true", origin)
		}
	}
	if rs.HasRules("https://d.com") {
		t.Error("HasRules on unknown origin should be false")
	}
}

func TestRuleSetOrigins(t *testing.T) {
	rs := sampleRuleSet()
	want := []string{"https://a.com", "https://b.com", "https://c.com"}
	if got := rs.Origins(); !reflect.DeepEqual(got, want) {
		t.Errorf("Origins() = %v, want %v", got, want)
	}
}

func TestRuleSetCloneIsDeep(t *testing.T) {
	rs := sampleRuleSet()
	cp := rs.Clone()

	cp.Instant["https://new.com"] = struct{}{}
	cp.Schedules["https://b.com"][0].Start = 0
	cp.Timers["https://c.com"] = TimerRule{EndTime: 999, Duration: 1}

	if rs.HasRules("https://new.com") {
		t.Error("mutating clone's instant set leaked into original")
	}
	if rs.Schedules["https://b.com"][0].Start != 540 {
		t.Error("mutating clone's schedule leaked into original")
	}
	if rs.Timers["https://c.com"].EndTime != 12345 {
		t.Error("mutating clone's timer leaked into original")
	}
}
