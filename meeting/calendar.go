package meeting

import (
	"fmt"
	"sort"
	"time"
)

// Day is a calendar date in the viewer's time zone.
type Day struct {
	Year  int
	Month time.Month
	Day   int
}

// DayOf returns the date of t in loc.
func DayOf(t time.Time, loc *time.Location) Day {
	y, m, d := t.In(loc).Date()
	return Day{Year: y, Month: m, Day: d}
}

func (d Day) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// Calendar groups meetings for presentation. It is derived from the store and
// never authoritative.
type Calendar struct {
	Location *time.Location
	Policy   AdmissionPolicy
}

func (c Calendar) location() *time.Location {
	if c.Location == nil {
		return time.UTC
	}
	return c.Location
}

// IndexByDay groups meetings by the date of their scheduled start, each day
// ordered by start time.
func (c Calendar) IndexByDay(meetings []Meeting) map[Day][]Meeting {
	loc := c.location()
	out := make(map[Day][]Meeting)
	for _, m := range meetings {
		day := DayOf(m.ScheduledStart, loc)
		out[day] = append(out[day], m)
	}
	for _, list := range out {
		sortByStart(list)
	}
	return out
}

// Days returns the keys of an index in chronological order.
func Days(index map[Day][]Meeting) []Day {
	days := make([]Day, 0, len(index))
	for d := range index {
		days = append(days, d)
	}
	sort.Slice(days, func(i, j int) bool {
		return days[i].String() < days[j].String()
	})
	return days
}

// UpcomingAdmissible returns today's accepted meetings that are waiting for
// their entry window or can be entered now, ordered by start.
func (c Calendar) UpcomingAdmissible(meetings []Meeting, now time.Time) []Meeting {
	loc := c.location()
	today := DayOf(now, loc)
	out := make([]Meeting, 0, len(meetings))
	for _, m := range meetings {
		if m.Status != StatusAccepted || DayOf(m.ScheduledStart, loc) != today {
			continue
		}
		switch c.Policy.Admission(m, now).State {
		case AdmissionWaiting, AdmissionCanEnter:
			out = append(out, m)
		}
	}
	sortByStart(out)
	return out
}

func sortByStart(list []Meeting) {
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].ScheduledStart.Before(list[j].ScheduledStart)
	})
}
