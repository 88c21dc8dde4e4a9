package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExportRoundTrip(t *testing.T) {
	out := Export{
		BlockedSites: []string{"https://a.com", "https://b.com"},
		ScheduledBlocks: map[string][]ScheduleRule{
			"https://c.com": {
				{ID: 9, Days: []time.Weekday{time.Monday}, Start: 540, End: 1020},
			},
		},
		ExportDate: time.Date(2025, 3, 3, 12, 0, 0, 0, time.UTC),
	}

	data, err := json.Marshal(out)
	require.NoError(t, err)

	var in Export
	require.NoError(t, json.Unmarshal(data, &in))
	assert.Equal(t, out, in)
}

func TestExportUnmarshalDropsMalformedEntriesOnly(t *testing.T) {
	data := []byte(`{
		"blockedSites": ["https://good.com"],
		"scheduledBlocks": {
			"https://mixed.com": [
				{"id": 1, "days": [1], "startTime": "9am", "endTime": "17:00"},
				{"id": 2, "days": [1], "startTime": "09:00", "endTime": "17:00"},
				{"id": 3, "days": [9], "startTime": "09:00", "endTime": "17:00"}
			],
			"https://allbad.com": [
				{"id": 4, "days": [1], "startTime": "noon", "endTime": "17:00"}
			]
		}
	}`)

	var in Export
	require.NoError(t, json.Unmarshal(data, &in))

	assert.Equal(t, []string{"https://good.com"}, in.BlockedSites)
	require.Len(t, in.ScheduledBlocks["https://mixed.com"], 1, "only the parseable rule survives")
	assert.Equal(t, int64(2), in.ScheduledBlocks["https://mixed.com"][0].ID)
	assert.Empty(t, in.ScheduledBlocks["https://allbad.com"])
}

func TestExportUnmarshalRejectsMalformedFile(t *testing.T) {
	var in Export
	assert.Error(t, json.Unmarshal([]byte(`{"blockedSites": "not-a-list"`), &in))
}
