package meeting

import (
	"fmt"
	"io"

	"github.com/emersion/go-ical"
)

const icalProductID = "-//meetingflow//meetings//EN"

// WriteICS encodes meetings as an iCalendar feed. Declined and cancelled
// meetings are kept with STATUS:CANCELLED so subscribed clients drop them.
func WriteICS(w io.Writer, meetings []Meeting, viewerID string) error {
	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, icalProductID)
	cal.Props.SetText(ical.PropCalendarScale, "GREGORIAN")

	for _, m := range meetings {
		ev := ical.NewEvent()
		ev.Props.SetText(ical.PropUID, m.ID+"@meetingflow")
		ev.Props.SetDateTime(ical.PropDateTimeStamp, m.UpdatedAt.UTC())
		ev.Props.SetDateTime(ical.PropDateTimeStart, m.ScheduledStart.UTC())
		ev.Props.SetDateTime(ical.PropDateTimeEnd, m.ScheduledEnd.UTC())
		ev.Props.SetText(ical.PropSummary, fmt.Sprintf("Meeting with %s", m.Counterpart(viewerID)))
		ev.Props.SetText(ical.PropStatus, icalStatus(m.Status))
		if m.Message != nil {
			ev.Props.SetText(ical.PropDescription, *m.Message)
		}
		cal.Children = append(cal.Children, ev.Component)
	}

	if err := ical.NewEncoder(w).Encode(cal); err != nil {
		return fmt.Errorf("meeting: encode ics: %w", err)
	}
	return nil
}

func icalStatus(s Status) string {
	switch s {
	case StatusPending:
		return "TENTATIVE"
	case StatusAccepted, StatusCompleted:
		return "CONFIRMED"
	case StatusDeclined, StatusCancelled:
		return "CANCELLED"
	default:
		return "TENTATIVE"
	}
}
