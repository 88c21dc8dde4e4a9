package engine

import "github.com/haukened/sitegate/internal/gate/domain"

// RuleSource supplies rule snapshots and change notifications. Satisfied
// by the rules repository.
type RuleSource interface {
	Snapshot() domain.RuleSet
	Subscribe(fn func())
}

// VerdictCache memoizes verdicts by minute-scoped key.
type VerdictCache interface {
	Get(key string) (domain.Verdict, bool)
	Put(key string, v domain.Verdict)
	Purge()
}

// OriginFilter answers probabilistic membership for ruled origins.
// A false result is authoritative (the origin carries no rules).
type OriginFilter interface {
	MightContain(origin string) bool
}
