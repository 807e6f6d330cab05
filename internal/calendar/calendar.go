// Package calendar reads busy time from an external ICS feed and publishes
// applied focus blocks back out as an ICS file.
package calendar

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	ical "github.com/emersion/go-ical"

	"github.com/mkarlsen/blockr/internal/interval"
)

// uidSuffix marks events blockr created. They are skipped when building the
// busy view so a block never counts as its own collision.
const uidSuffix = "@blockr"

// Event is a busy calendar event overlapping the requested window.
type Event struct {
	UID     string
	Summary string
	Span    interval.Interval
}

// FetchBusy retrieves and parses iCalendar events from a URL or file path,
// returning the ones that overlap the window, excluding blockr's own.
func FetchBusy(ctx context.Context, source string, window interval.Interval) ([]Event, error) {
	var r io.ReadCloser

	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
		if err != nil {
			return nil, fmt.Errorf("creating request: %w", err)
		}
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("fetching calendar: %w", err)
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return nil, fmt.Errorf("calendar fetch returned status %d", resp.StatusCode)
		}
		r = resp.Body
	} else {
		f, err := os.Open(source)
		if err != nil {
			return nil, fmt.Errorf("opening calendar file: %w", err)
		}
		r = f
	}
	defer r.Close()

	dec := ical.NewDecoder(r)
	var events []Event

	for {
		cal, err := dec.Decode()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parsing calendar: %w", err)
		}

		for _, component := range cal.Children {
			if component.Name != ical.CompEvent {
				continue
			}
			event := ical.Event{Component: component}

			uid, _ := event.Props.Text(ical.PropUID)
			if strings.HasSuffix(uid, uidSuffix) {
				continue
			}

			start, err := event.DateTimeStart(nil)
			if err != nil {
				continue // skip malformed events
			}
			end, err := event.DateTimeEnd(nil)
			if err != nil {
				continue
			}

			span := interval.Interval{Start: start, End: end}
			if span.Overlaps(window) {
				summary, _ := event.Props.Text(ical.PropSummary)
				events = append(events, Event{UID: uid, Summary: summary, Span: span})
			}
		}
	}

	return events, nil
}

// BusyIntervals strips events down to their spans.
func BusyIntervals(events []Event) []interval.Interval {
	spans := make([]interval.Interval, len(events))
	for i, e := range events {
		spans[i] = e.Span
	}
	return spans
}
