package domain

import (
	"encoding/json"
	"time"
)

// Export is the interchange format for rule backups.
//
// Import semantics: blockedSites is merged as a set union; scheduledBlocks
// is a shallow merge by origin, where an imported origin's schedule list
// replaces the existing list wholesale. Timers are deliberately excluded;
// they are transient by nature.
type Export struct {
	BlockedSites    []string                  `json:"blockedSites"`
	ScheduledBlocks map[string][]ScheduleRule `json:"scheduledBlocks"`
	ExportDate      time.Time                 `json:"exportDate"`
}

// exportWire defers schedule decoding so one malformed entry cannot abort
// the surrounding file.
type exportWire struct {
	BlockedSites    []string                     `json:"blockedSites"`
	ScheduledBlocks map[string][]json.RawMessage `json:"scheduledBlocks"`
	ExportDate      time.Time                    `json:"exportDate"`
}

// UnmarshalJSON parses the interchange shape. A schedule entry with a
// malformed time or weekday drops only that entry; every other rule in the
// file still imports.
func (e *Export) UnmarshalJSON(data []byte) error {
	var w exportWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	out := Export{BlockedSites: w.BlockedSites, ExportDate: w.ExportDate}
	if w.ScheduledBlocks != nil {
		out.ScheduledBlocks = make(map[string][]ScheduleRule, len(w.ScheduledBlocks))
		for origin, raws := range w.ScheduledBlocks {
			list := make([]ScheduleRule, 0, len(raws))
			for _, raw := range raws {
				var s ScheduleRule
				if err := json.Unmarshal(raw, &s); err != nil {
					continue
				}
				list = append(list, s)
			}
			out.ScheduledBlocks[origin] = list
		}
	}
	*e = out
	return nil
}
