package meeting

import (
	"fmt"
	"time"
)

// AdmissionState is the derived, non-persisted classification of whether a
// meeting can currently be entered.
type AdmissionState string

const (
	AdmissionNotReady AdmissionState = "not_ready"
	AdmissionWaiting  AdmissionState = "waiting"
	AdmissionCanEnter AdmissionState = "can_enter"
	AdmissionFinished AdmissionState = "finished"
)

// DefaultEntryBuffer is how long before the scheduled start an accepted meeting opens.
const DefaultEntryBuffer = 10 * time.Minute

// AdmissionResult describes a meeting's admission at a given instant.
type AdmissionResult struct {
	State        AdmissionState
	Label        string
	Enterable    bool
	Remaining    time.Duration
	EntryOpensAt time.Time
}

// AdmissionPolicy maps (meeting, now) to an AdmissionResult. The zero value
// uses DefaultEntryBuffer.
type AdmissionPolicy struct {
	EntryBuffer time.Duration
}

func (p AdmissionPolicy) buffer() time.Duration {
	if p.EntryBuffer <= 0 {
		return DefaultEntryBuffer
	}
	return p.EntryBuffer
}

// Admission classifies m at now. It never mutates m.
func (p AdmissionPolicy) Admission(m Meeting, now time.Time) AdmissionResult {
	opens := m.ScheduledStart.Add(-p.buffer())
	res := AdmissionResult{EntryOpensAt: opens}

	switch {
	case m.Status != StatusAccepted:
		res.State = AdmissionNotReady
		res.Label = notReadyLabel(m.Status)
	case now.Before(opens):
		res.State = AdmissionWaiting
		res.Remaining = opens.Sub(now)
		res.Label = "Available in " + formatRemaining(res.Remaining)
	case now.Before(m.ScheduledEnd):
		res.State = AdmissionCanEnter
		res.Enterable = true
		res.Remaining = m.ScheduledEnd.Sub(now)
		res.Label = fmt.Sprintf("%d min left", ceilMinutes(res.Remaining))
	default:
		res.State = AdmissionFinished
		res.Label = "Finished"
	}
	return res
}

// Admission applies the default policy.
func Admission(m Meeting, now time.Time) AdmissionResult {
	return AdmissionPolicy{}.Admission(m, now)
}

func notReadyLabel(s Status) string {
	switch s {
	case StatusPending:
		return "Awaiting response"
	case StatusDeclined:
		return "Declined"
	case StatusCancelled:
		return "Cancelled"
	case StatusCompleted:
		return "Completed"
	default:
		return "Unavailable"
	}
}

func ceilMinutes(d time.Duration) int64 {
	mins := int64(d / time.Minute)
	if d%time.Minute != 0 {
		mins++
	}
	return mins
}

// formatRemaining renders d as "Xh Ymin", omitting hours below one hour.
func formatRemaining(d time.Duration) string {
	mins := ceilMinutes(d)
	h, m := mins/60, mins%60
	if h == 0 {
		return fmt.Sprintf("%dmin", m)
	}
	return fmt.Sprintf("%dh %dmin", h, m)
}
