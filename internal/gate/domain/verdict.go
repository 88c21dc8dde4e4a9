package domain

import (
	"fmt"
	"strings"
)

// Reason identifies which rule kind produced a blocking verdict.
type Reason uint8

const (
	// ReasonNone means no rule matched.
	ReasonNone Reason = iota
	// ReasonInstant means a permanent block matched.
	ReasonInstant
	// ReasonTimer means an unexpired countdown timer matched.
	ReasonTimer
	// ReasonSchedule means a weekly schedule window is active.
	ReasonSchedule
)

// String returns a stable string representation of the reason.
func (r Reason) String() string {
	switch r {
	case ReasonNone:
		return "none"
	case ReasonInstant:
		return "instant"
	case ReasonTimer:
		return "timer"
	case ReasonSchedule:
		return "schedule"
	default:
		return fmt.Sprintf("Reason(%d)", r)
	}
}

// ParseReason converts a string into a Reason (case-insensitive).
func ParseReason(s string) (Reason, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "none":
		return ReasonNone, nil
	case "instant":
		return ReasonInstant, nil
	case "timer":
		return ReasonTimer, nil
	case "schedule":
		return ReasonSchedule, nil
	default:
		return 0, fmt.Errorf("unsupported Reason: %q", s)
	}
}

// Verdict is the outcome of evaluating an origin against the rule set.
// Pure value type, no external dependencies.
type Verdict struct {
	Blocked bool
	Reason  Reason
}

// Allowed returns a not-blocked verdict.
func Allowed() Verdict { return Verdict{Blocked: false, Reason: ReasonNone} }

// BlockedBy returns a blocking verdict attributed to the given rule kind.
func BlockedBy(r Reason) Verdict { return Verdict{Blocked: true, Reason: r} }
