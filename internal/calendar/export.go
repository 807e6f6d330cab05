package calendar

import (
	"fmt"
	"os"
	"time"

	ical "github.com/emersion/go-ical"

	"github.com/mkarlsen/blockr/internal/store"
)

// Export writes the given blocks as a VCALENDAR the user's calendar client
// can subscribe to. The whole file is rewritten each time; block IDs become
// stable UIDs so clients update rather than duplicate.
func Export(path string, blocks []store.Block) error {
	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, "-//blockr//focus blocks//EN")

	now := time.Now().UTC()
	for _, b := range blocks {
		event := ical.NewEvent()
		event.Props.SetText(ical.PropUID, b.ID+uidSuffix)
		event.Props.SetDateTime(ical.PropDateTimeStamp, now)
		event.Props.SetDateTime(ical.PropDateTimeStart, b.StartTime.UTC())
		event.Props.SetDateTime(ical.PropDateTimeEnd, b.EndTime.UTC())
		event.Props.SetText(ical.PropSummary, fmt.Sprintf("Focus: %s", b.GoalName))
		cal.Children = append(cal.Children, event.Component)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating export file: %w", err)
	}
	defer f.Close()

	if err := ical.NewEncoder(f).Encode(cal); err != nil {
		return fmt.Errorf("encoding calendar: %w", err)
	}
	return nil
}
