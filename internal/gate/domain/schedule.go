package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// MinutesPerDay bounds the minute-of-day range [0, 1439].
const MinutesPerDay = 24 * 60

// ScheduleRule is a recurring weekly blocking window. Start and End are
// minutes of day; a window with Start > End crosses midnight.
//
// The evaluator does not shift across day boundaries: an overnight window
// is active on a listed day both in its late-night and early-morning
// portions. Callers wanting correct overnight behavior list the lead-in
// day explicitly.
type ScheduleRule struct {
	ID    int64
	Days  []time.Weekday
	Start int
	End   int
}

// scheduleWire is the persisted/exported JSON shape of a ScheduleRule.
type scheduleWire struct {
	ID        int64  `json:"id"`
	Days      []int  `json:"days"`
	StartTime string `json:"startTime"`
	EndTime   string `json:"endTime"`
}

// ParseMinute converts an "HH:mm" string into a minute of day.
func ParseMinute(s string) (int, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, fmt.Errorf("invalid time of day %q: %w", s, err)
	}
	return t.Hour()*60 + t.Minute(), nil
}

// FormatMinute renders a minute of day as "HH:mm".
func FormatMinute(m int) string {
	return fmt.Sprintf("%02d:%02d", m/60, m%60)
}

// Validate checks the rule for a usable weekday set and in-range minutes.
func (r ScheduleRule) Validate() error {
	if len(r.Days) == 0 {
		return fmt.Errorf("schedule %d: no days listed", r.ID)
	}
	for _, d := range r.Days {
		if d < time.Sunday || d > time.Saturday {
			return fmt.Errorf("schedule %d: weekday %d out of range", r.ID, d)
		}
	}
	if r.Start < 0 || r.Start >= MinutesPerDay {
		return fmt.Errorf("schedule %d: start minute %d out of range", r.ID, r.Start)
	}
	if r.End < 0 || r.End >= MinutesPerDay {
		return fmt.Errorf("schedule %d: end minute %d out of range", r.ID, r.End)
	}
	return nil
}

// ActiveAt reports whether now falls inside the window. Boundaries are
// inclusive on both ends.
func (r ScheduleRule) ActiveAt(now time.Time) bool {
	if !r.listsDay(now.Weekday()) {
		return false
	}
	cur := now.Hour()*60 + now.Minute()
	if r.Start <= r.End {
		return r.Start <= cur && cur <= r.End
	}
	// Window crosses midnight.
	return cur >= r.Start || cur <= r.End
}

func (r ScheduleRule) listsDay(d time.Weekday) bool {
	for _, day := range r.Days {
		if day == d {
			return true
		}
	}
	return false
}

// MarshalJSON renders the rule in its wire shape with "HH:mm" times.
func (r ScheduleRule) MarshalJSON() ([]byte, error) {
	w := scheduleWire{
		ID:        r.ID,
		Days:      make([]int, 0, len(r.Days)),
		StartTime: FormatMinute(r.Start),
		EndTime:   FormatMinute(r.End),
	}
	for _, d := range r.Days {
		w.Days = append(w.Days, int(d))
	}
	return json.Marshal(w)
}

// UnmarshalJSON parses the wire shape, rejecting malformed time strings and
// out-of-range weekdays. A failure here affects only this rule; callers
// skip bad rules rather than aborting the surrounding load.
func (r *ScheduleRule) UnmarshalJSON(data []byte) error {
	var w scheduleWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	start, err := ParseMinute(w.StartTime)
	if err != nil {
		return err
	}
	end, err := ParseMinute(w.EndTime)
	if err != nil {
		return err
	}
	out := ScheduleRule{ID: w.ID, Start: start, End: end}
	for _, d := range w.Days {
		out.Days = append(out.Days, time.Weekday(d))
	}
	if err := out.Validate(); err != nil {
		return err
	}
	*r = out
	return nil
}
