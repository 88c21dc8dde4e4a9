// Package engine produces the allow-or-block verdict for a navigation.
//
// The core is Evaluate, a pure function of (rule snapshot, origin, now)
// with fixed precedence: instant rule, then unexpired timer, then any
// active schedule. Engine wraps Evaluate with a filter → cache → evaluate
// read pipeline and keeps the last-blocked hint for the status surface.
package engine

import (
	"strings"
	"sync"
	"time"

	"github.com/haukened/sitegate/internal/gate/common/clock"
	"github.com/haukened/sitegate/internal/gate/common/log"
	"github.com/haukened/sitegate/internal/gate/common/urlx"
	"github.com/haukened/sitegate/internal/gate/domain"
	"github.com/haukened/sitegate/internal/gate/repos/verdicts"
)

// Evaluate decides whether origin is blocked at the given instant.
// Precedence is fixed so the reason shown to the user is deterministic:
// instant wins over timer wins over schedule. A rule that fails
// validation is treated as not matching; one corrupt rule never blocks
// evaluation of the rest.
func Evaluate(rs domain.RuleSet, origin string, now time.Time, mode MatchMode) domain.Verdict {
	candidates := candidateOrigins(origin, mode)

	for _, c := range candidates {
		if _, ok := rs.Instant[c]; ok {
			return domain.BlockedBy(domain.ReasonInstant)
		}
	}
	for _, c := range candidates {
		if t, ok := rs.Timers[c]; ok && t.Active(now) {
			return domain.BlockedBy(domain.ReasonTimer)
		}
	}
	for _, c := range candidates {
		for _, s := range rs.Schedules[c] {
			if s.Validate() != nil {
				continue
			}
			if s.ActiveAt(now) {
				return domain.BlockedBy(domain.ReasonSchedule)
			}
		}
	}
	return domain.Allowed()
}

// candidateOrigins lists the rule keys a navigation origin can match.
// Exact mode yields only the origin itself. Suffix mode also yields each
// dot-boundary parent host under the same scheme; rules carrying an
// explicit port only ever match exactly.
func candidateOrigins(origin string, mode MatchMode) []string {
	if mode == MatchExact {
		return []string{origin}
	}
	out := []string{origin}
	scheme, okS := urlx.Scheme(origin)
	host, okH := urlx.Host(origin)
	if !okS || !okH {
		return out
	}
	for {
		idx := strings.IndexByte(host, '.')
		if idx < 0 {
			break
		}
		host = host[idx+1:]
		if host == "" {
			break
		}
		out = append(out, scheme+"://"+host)
	}
	return out
}

// Options bundles the Engine's collaborators.
type Options struct {
	Rules       RuleSource
	Cache       VerdictCache
	Clock       clock.Clock
	Logger      log.Logger
	Mode        MatchMode
	BuildFilter func(origins []string) OriginFilter
}

// Engine evaluates navigations against the live rule set.
type Engine struct {
	rules       RuleSource
	cache       VerdictCache
	clk         clock.Clock
	logger      log.Logger
	mode        MatchMode
	buildFilter func(origins []string) OriginFilter

	mu          sync.RWMutex
	filter      OriginFilter
	lastOrigin  string
	lastReason  domain.Reason
	everBlocked bool
}

// New constructs an Engine, builds the initial origin filter, and
// subscribes to rule changes so the filter and cache never serve stale
// rule membership.
func New(opts Options) *Engine {
	e := &Engine{
		rules:       opts.Rules,
		cache:       opts.Cache,
		clk:         opts.Clock,
		logger:      opts.Logger,
		mode:        opts.Mode,
		buildFilter: opts.BuildFilter,
	}
	e.rebuildFilter()
	e.rules.Subscribe(e.onRulesChanged)
	return e
}

// Decide returns the verdict for a normalized origin at the current time.
func (e *Engine) Decide(origin string) domain.Verdict {
	now := e.clk.Now()

	// 1) Early-allow when the filter proves no candidate carries rules.
	if !e.mightHaveRules(origin) {
		return domain.Allowed()
	}

	// 2) Verdict cache, scoped to the evaluation minute.
	key := verdicts.Key(origin, now)
	if v, ok := e.cache.Get(key); ok {
		e.recordIfBlocked(origin, v)
		return v
	}

	// 3) Full evaluation against a fresh snapshot.
	v := Evaluate(e.rules.Snapshot(), origin, now, e.mode)
	e.cache.Put(key, v)
	e.recordIfBlocked(origin, v)

	if v.Blocked {
		e.logger.Debug(map[string]any{
			"origin": origin,
			"reason": v.Reason.String(),
		}, "Navigation blocked")
	}
	return v
}

// LastBlocked returns the most recent positive verdict, if any. These are
// transient hints for the blocked-page display, never persisted.
func (e *Engine) LastBlocked() (origin string, reason domain.Reason, ok bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.lastOrigin, e.lastReason, e.everBlocked
}

// Mode returns the active match mode.
func (e *Engine) Mode() MatchMode { return e.mode }

func (e *Engine) recordIfBlocked(origin string, v domain.Verdict) {
	if !v.Blocked {
		return
	}
	e.mu.Lock()
	e.lastOrigin = origin
	e.lastReason = v.Reason
	e.everBlocked = true
	e.mu.Unlock()
}

// mightHaveRules consults the origin filter for every candidate key.
// In suffix mode the parent chain is probed the same way rules are
// matched, so a subdomain navigation cannot slip past an apex rule.
func (e *Engine) mightHaveRules(origin string) bool {
	e.mu.RLock()
	f := e.filter
	e.mu.RUnlock()
	if f == nil {
		return true
	}
	for _, c := range candidateOrigins(origin, e.mode) {
		if f.MightContain(c) {
			return true
		}
	}
	return false
}

// onRulesChanged swaps in a filter built from the new snapshot and drops
// every cached verdict.
func (e *Engine) onRulesChanged() {
	e.rebuildFilter()
	e.cache.Purge()
}

func (e *Engine) rebuildFilter() {
	if e.buildFilter == nil {
		return
	}
	f := e.buildFilter(e.rules.Snapshot().Origins())
	e.mu.Lock()
	e.filter = f
	e.mu.Unlock()
}
