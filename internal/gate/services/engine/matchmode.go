package engine

import (
	"fmt"
	"strings"
)

// MatchMode selects how rule origins are matched against navigations.
//
// exact  - the navigation origin must equal the rule origin
// suffix - the rule also matches subdomains of its host (apex-inclusive)
//
// One mode applies globally; the two are never mixed per rule.
type MatchMode uint8

const (
	// MatchExact matches only the exact origin string.
	MatchExact MatchMode = iota
	// MatchSuffix matches the origin and all its subdomains.
	MatchSuffix
)

// String returns a stable string representation of the mode.
func (m MatchMode) String() string {
	switch m {
	case MatchExact:
		return "exact"
	case MatchSuffix:
		return "suffix"
	default:
		return fmt.Sprintf("MatchMode(%d)", m)
	}
}

// ParseMatchMode converts a string into a MatchMode (case-insensitive).
func ParseMatchMode(s string) (MatchMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "exact":
		return MatchExact, nil
	case "suffix":
		return MatchSuffix, nil
	default:
		return 0, fmt.Errorf("unsupported MatchMode: %q", s)
	}
}
