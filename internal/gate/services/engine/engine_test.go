package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/haukened/sitegate/internal/gate/common/clock"
	"github.com/haukened/sitegate/internal/gate/common/log"
	"github.com/haukened/sitegate/internal/gate/domain"
)

// --- fakes ---

type fakeRules struct {
	rs   domain.RuleSet
	subs []func()
}

func (f *fakeRules) Snapshot() domain.RuleSet { return f.rs.Clone() }
func (f *fakeRules) Subscribe(fn func())      { f.subs = append(f.subs, fn) }
func (f *fakeRules) fireChange() {
	for _, fn := range f.subs {
		fn()
	}
}

type fakeCache struct {
	m          map[string]domain.Verdict
	purgeCalls int
}

func newFakeCache() *fakeCache { return &fakeCache{m: make(map[string]domain.Verdict)} }

func (c *fakeCache) Get(key string) (domain.Verdict, bool) {
	v, ok := c.m[key]
	return v, ok
}
func (c *fakeCache) Put(key string, v domain.Verdict) { c.m[key] = v }
func (c *fakeCache) Purge() {
	c.purgeCalls++
	c.m = make(map[string]domain.Verdict)
}

type fakeFilter struct {
	contains map[string]bool
}

func (f *fakeFilter) MightContain(origin string) bool { return f.contains[origin] }

// passFilter lets everything through to the evaluation stage.
type passFilter struct{}

func (passFilter) MightContain(string) bool { return true }

func monday(hour, minute int) time.Time {
	// 2025-03-03 is a Monday.
	return time.Date(2025, 3, 3, hour, minute, 0, 0, time.UTC)
}

// --- pure Evaluate ---

func TestEvaluatePrecedenceInstantWins(t *testing.T) {
	rs := domain.NewRuleSet()
	rs.Instant["https://example.com"] = struct{}{}
	rs.Schedules["https://example.com"] = []domain.ScheduleRule{
		{ID: 1, Days: []time.Weekday{time.Monday}, Start: 0, End: 1439},
	}
	rs.Timers["https://example.com"] = domain.NewTimerRule(monday(12, 0), 60)

	v := Evaluate(rs, "https://example.com", monday(12, 0), MatchExact)
	assert.True(t, v.Blocked)
	assert.Equal(t, domain.ReasonInstant, v.Reason)
}

func TestEvaluateTimerBeatsSchedule(t *testing.T) {
	rs := domain.NewRuleSet()
	rs.Schedules["https://example.com"] = []domain.ScheduleRule{
		{ID: 1, Days: []time.Weekday{time.Monday}, Start: 0, End: 1439},
	}
	rs.Timers["https://example.com"] = domain.NewTimerRule(monday(12, 0), 60)

	v := Evaluate(rs, "https://example.com", monday(12, 0), MatchExact)
	assert.Equal(t, domain.ReasonTimer, v.Reason)
}

func TestEvaluateExpiredTimerDoesNotBlock(t *testing.T) {
	now := monday(12, 0)
	rs := domain.NewRuleSet()
	rs.Timers["https://example.com"] = domain.TimerRule{EndTime: now.UnixMilli() - 1, Duration: 30}

	v := Evaluate(rs, "https://example.com", now, MatchExact)
	assert.False(t, v.Blocked)
	assert.Equal(t, domain.ReasonNone, v.Reason)
}

func TestEvaluateScheduleScenario(t *testing.T) {
	rs := domain.NewRuleSet()
	rs.Schedules["https://example.com"] = []domain.ScheduleRule{
		{ID: 1, Days: []time.Weekday{time.Monday}, Start: 540, End: 1020}, // Mon 09:00-17:00
	}

	tests := []struct {
		name    string
		now     time.Time
		blocked bool
	}{
		{"Monday 09:00 blocked", monday(9, 0), true},
		{"Monday 17:01 allowed", monday(17, 1), false},
		{"Tuesday 12:00 allowed", monday(12, 0).AddDate(0, 0, 1), false},
	}
	for _, tt := range tests {
		v := Evaluate(rs, "https://example.com", tt.now, MatchExact)
		if v.Blocked != tt.blocked {
			t.Errorf("%s: Blocked = %v, want %v", tt.name, v.Blocked, tt.blocked)
		}
		if tt.blocked && v.Reason != domain.ReasonSchedule {
			t.Errorf("%s: Reason = %v, want schedule", tt.name, v.Reason)
		}
	}
}

func TestEvaluateCorruptScheduleSkipped(t *testing.T) {
	rs := domain.NewRuleSet()
	rs.Schedules["https://example.com"] = []domain.ScheduleRule{
		{ID: 1, Days: nil, Start: 0, End: 1439},                               // corrupt: no days
		{ID: 2, Days: []time.Weekday{time.Monday}, Start: 540, End: 1020},     // healthy
		{ID: 3, Days: []time.Weekday{time.Monday}, Start: -5, End: 9999},      // corrupt: range
	}
	v := Evaluate(rs, "https://example.com", monday(12, 0), MatchExact)
	assert.True(t, v.Blocked, "healthy rule must still match despite corrupt siblings")
	assert.Equal(t, domain.ReasonSchedule, v.Reason)
}

func TestEvaluateExactModeIgnoresSubdomains(t *testing.T) {
	rs := domain.NewRuleSet()
	rs.Instant["https://example.com"] = struct{}{}

	v := Evaluate(rs, "https://sub.example.com", monday(12, 0), MatchExact)
	assert.False(t, v.Blocked, "exact mode must not match subdomains")
}

func TestEvaluateSuffixModeMatchesSubdomains(t *testing.T) {
	rs := domain.NewRuleSet()
	rs.Instant["https://example.com"] = struct{}{}

	tests := []struct {
		origin  string
		blocked bool
	}{
		{"https://example.com", true},
		{"https://sub.example.com", true},
		{"https://deep.sub.example.com", true},
		{"https://notexample.com", false}, // dot-boundary only
		{"http://sub.example.com", false}, // scheme must match
	}
	for _, tt := range tests {
		v := Evaluate(rs, tt.origin, monday(12, 0), MatchSuffix)
		if v.Blocked != tt.blocked {
			t.Errorf("suffix mode %s: Blocked = %v, want %v", tt.origin, v.Blocked, tt.blocked)
		}
	}
}

func TestCandidateOriginsPortRulesMatchExactly(t *testing.T) {
	got := candidateOrigins("https://a.b.example.com:8443", MatchSuffix)
	assert.Equal(t, []string{
		"https://a.b.example.com:8443",
		"https://b.example.com",
		"https://example.com",
		"https://com",
	}, got)
}

// --- Engine pipeline ---

func newTestEngine(t *testing.T, rules *fakeRules, filter OriginFilter) (*Engine, *fakeCache, *clock.MockClock) {
	t.Helper()
	cache := newFakeCache()
	clk := &clock.MockClock{CurrentTime: monday(12, 0)}
	e := New(Options{
		Rules:  rules,
		Cache:  cache,
		Clock:  clk,
		Logger: log.NewNoopLogger(),
		Mode:   MatchExact,
		BuildFilter: func([]string) OriginFilter {
			return filter
		},
	})
	return e, cache, clk
}

func TestEngineTimerFlow(t *testing.T) {
	rules := &fakeRules{rs: domain.NewRuleSet()}
	rules.rs.Timers["https://x.com"] = domain.NewTimerRule(monday(12, 0), 30)
	e, _, clk := newTestEngine(t, rules, passFilter{})

	v := e.Decide("https://x.com")
	require.True(t, v.Blocked)
	assert.Equal(t, domain.ReasonTimer, v.Reason)

	// 31 minutes later the timer has lapsed; the minute-scoped cache key
	// guarantees a fresh evaluation.
	clk.Advance(31 * time.Minute)
	v = e.Decide("https://x.com")
	assert.False(t, v.Blocked)
	assert.Equal(t, domain.ReasonNone, v.Reason)
}

func TestEngineEarlyAllowSkipsEvaluation(t *testing.T) {
	rules := &fakeRules{rs: domain.NewRuleSet()}
	rules.rs.Instant["https://x.com"] = struct{}{}
	// Filter denies knowledge of every origin: engine must allow without
	// consulting cache or snapshot.
	e, cache, _ := newTestEngine(t, rules, &fakeFilter{contains: map[string]bool{}})

	v := e.Decide("https://x.com")
	assert.False(t, v.Blocked)
	assert.Empty(t, cache.m, "early allow must not populate the cache")
}

func TestEngineCachesVerdicts(t *testing.T) {
	rules := &fakeRules{rs: domain.NewRuleSet()}
	rules.rs.Instant["https://x.com"] = struct{}{}
	e, cache, _ := newTestEngine(t, rules, passFilter{})

	e.Decide("https://x.com")
	assert.Len(t, cache.m, 1)

	// Mutate the snapshot behind the engine's back; the cached verdict
	// still answers within the same minute.
	delete(rules.rs.Instant, "https://x.com")
	v := e.Decide("https://x.com")
	assert.True(t, v.Blocked, "same-minute verdict should come from cache")
}

func TestEngineRuleChangePurgesCacheAndRebuildsFilter(t *testing.T) {
	rules := &fakeRules{rs: domain.NewRuleSet()}
	rules.rs.Instant["https://x.com"] = struct{}{}

	builds := 0
	cache := newFakeCache()
	clk := &clock.MockClock{CurrentTime: monday(12, 0)}
	e := New(Options{
		Rules:  rules,
		Cache:  cache,
		Clock:  clk,
		Logger: log.NewNoopLogger(),
		Mode:   MatchExact,
		BuildFilter: func([]string) OriginFilter {
			builds++
			return passFilter{}
		},
	})

	require.True(t, e.Decide("https://x.com").Blocked)

	delete(rules.rs.Instant, "https://x.com")
	rules.fireChange()

	assert.Equal(t, 2, builds, "initial build plus one rebuild")
	assert.Equal(t, 1, cache.purgeCalls)
	assert.False(t, e.Decide("https://x.com").Blocked)
}

func TestEngineLastBlocked(t *testing.T) {
	rules := &fakeRules{rs: domain.NewRuleSet()}
	rules.rs.Instant["https://bad.com"] = struct{}{}
	e, _, _ := newTestEngine(t, rules, passFilter{})

	_, _, ok := e.LastBlocked()
	assert.False(t, ok, "no hint before any block")

	e.Decide("https://fine.com")
	_, _, ok = e.LastBlocked()
	assert.False(t, ok, "allowed navigations leave no hint")

	e.Decide("https://bad.com")
	origin, reason, ok := e.LastBlocked()
	require.True(t, ok)
	assert.Equal(t, "https://bad.com", origin)
	assert.Equal(t, domain.ReasonInstant, reason)
}

func TestEngineSuffixModeProbesParentChain(t *testing.T) {
	rules := &fakeRules{rs: domain.NewRuleSet()}
	rules.rs.Instant["https://example.com"] = struct{}{}
	// Filter only knows the apex; the subdomain probe must still reach it.
	filter := &fakeFilter{contains: map[string]bool{"https://example.com": true}}

	cache := newFakeCache()
	e := New(Options{
		Rules:       rules,
		Cache:       cache,
		Clock:       &clock.MockClock{CurrentTime: monday(12, 0)},
		Logger:      log.NewNoopLogger(),
		Mode:        MatchSuffix,
		BuildFilter: func([]string) OriginFilter { return filter },
	})

	v := e.Decide("https://sub.example.com")
	assert.True(t, v.Blocked)
	assert.Equal(t, domain.ReasonInstant, v.Reason)
}

func TestParseMatchMode(t *testing.T) {
	m, err := ParseMatchMode("exact")
	require.NoError(t, err)
	assert.Equal(t, MatchExact, m)
	m, err = ParseMatchMode(" Suffix ")
	require.NoError(t, err)
	assert.Equal(t, MatchSuffix, m)
	_, err = ParseMatchMode("glob")
	assert.Error(t, err)
}
