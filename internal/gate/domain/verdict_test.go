package domain

import "testing"

func TestReasonString(t *testing.T) {
	tests := []struct {
		r    Reason
		want string
	}{
		{ReasonNone, "none"},
		{ReasonInstant, "instant"},
		{ReasonTimer, "timer"},
		{ReasonSchedule, "schedule"},
		{Reason(42), "Reason(42)"},
	}
	for _, tt := range tests {
		if got := tt.r.String(); got != tt.want {
			t.Errorf("Reason(%d).String() = %q, want %q", tt.r, got, tt.want)
		}
	}
}

func TestParseReason(t *testing.T) {
	for _, r := range []Reason{ReasonNone, ReasonInstant, ReasonTimer, ReasonSchedule} {
		got, err := ParseReason(r.String())
		if err != nil {
			t.Errorf("ParseReason(%q) unexpected error: %v", r.String(), err)
		}
		if got != r {
			t.Errorf("ParseReason(%q) = %v, want %v", r.String(), got, r)
		}
	}
	if _, err := ParseReason("bogus"); err == nil {
		t.Error("ParseReason(bogus) expected error")
	}
	if got, err := ParseReason("  Timer "); err != nil || got != ReasonTimer {
		t.Errorf("ParseReason with whitespace/case = %v, %v", got, err)
	}
}

func TestVerdictConstructors(t *testing.T) {
	if v := Allowed(); v.Blocked || v.Reason != ReasonNone {
		t.Errorf("Allowed() = %+v", v)
	}
	if v := BlockedBy(ReasonInstant); !v.Blocked || v.Reason != ReasonInstant {
		t.Errorf("BlockedBy(instant) = %+v", v)
	}
}
