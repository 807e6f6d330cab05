package calendar

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkarlsen/blockr/internal/interval"
	"github.com/mkarlsen/blockr/internal/store"
)

const sampleICS = `BEGIN:VCALENDAR
VERSION:2.0
PRODID:-//test//test//EN
BEGIN:VEVENT
UID:standup-1
DTSTAMP:20250601T000000Z
DTSTART:20250616T100000Z
DTEND:20250616T103000Z
SUMMARY:Standup
END:VEVENT
BEGIN:VEVENT
UID:block1@blockr
DTSTAMP:20250601T000000Z
DTSTART:20250616T130000Z
DTEND:20250616T140000Z
SUMMARY:Focus: Writing
END:VEVENT
BEGIN:VEVENT
UID:offsite-1
DTSTAMP:20250601T000000Z
DTSTART:20250701T100000Z
DTEND:20250701T160000Z
SUMMARY:Offsite
END:VEVENT
END:VCALENDAR
`

func TestFetchBusySkipsOwnAndOutOfWindow(t *testing.T) {
	path := filepath.Join(t.TempDir(), "busy.ics")
	require.NoError(t, os.WriteFile(path, []byte(sampleICS), 0644))

	window := interval.Interval{
		Start: time.Date(2025, 6, 16, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2025, 6, 23, 0, 0, 0, 0, time.UTC),
	}
	events, err := FetchBusy(context.Background(), path, window)
	require.NoError(t, err)

	// The blockr-owned event and the out-of-window offsite are excluded.
	require.Len(t, events, 1)
	assert.Equal(t, "Standup", events[0].Summary)

	spans := BusyIntervals(events)
	require.Len(t, spans, 1)
	assert.Equal(t, 30, spans[0].Minutes())
}

func TestExportRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "blocks.ics")
	start := time.Date(2025, 6, 16, 9, 0, 0, 0, time.UTC)
	blocks := []store.Block{
		{ID: "01ABC", GoalName: "Writing", StartTime: start, EndTime: start.Add(time.Hour)},
		{ID: "01DEF", GoalName: "Review", StartTime: start.Add(2 * time.Hour), EndTime: start.Add(3 * time.Hour)},
	}

	require.NoError(t, Export(path, blocks))

	// Exported blocks carry the blockr UID marker, so a fetch over the same
	// file must treat them as our own and return nothing busy.
	window := interval.Interval{Start: start.AddDate(0, 0, -1), End: start.AddDate(0, 0, 7)}
	events, err := FetchBusy(context.Background(), path, window)
	require.NoError(t, err)
	assert.Empty(t, events)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "01ABC@blockr")
	assert.Contains(t, string(data), "Focus: Writing")
}
