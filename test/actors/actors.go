// Package actors drives concurrent meeting traffic against a shared store.
// Every actor loops until stop is closed and tolerates both domain
// rejections and the connection failures injected by the chaos package.
package actors

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"meetingflow/meeting"
	"meetingflow/notify"
)

// Registry shares the ids of created meetings between actors.
type Registry struct {
	mu  sync.Mutex
	ids []string
}

func (r *Registry) Add(id string) {
	r.mu.Lock()
	r.ids = append(r.ids, id)
	r.mu.Unlock()
}

// Pick returns a random known id, preferring recent ones so races concentrate.
func (r *Registry) Pick() (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.ids) == 0 {
		return "", false
	}
	window := min(len(r.ids), 8)
	return r.ids[len(r.ids)-1-rand.Intn(window)], true
}

// Stats counts outcomes per actor kind.
type Stats struct {
	Applied  atomic.Int64
	Rejected atomic.Int64
	Failed   atomic.Int64
}

func (s *Stats) record(err error) {
	switch {
	case err == nil:
		s.Applied.Add(1)
	case errors.Is(err, meeting.ErrInvalidTransition),
		errors.Is(err, meeting.ErrForbidden),
		errors.Is(err, meeting.ErrConflict),
		errors.Is(err, meeting.ErrPastSchedule):
		s.Rejected.Add(1)
	default:
		s.Failed.Add(1)
	}
}

func loop(ctx context.Context, stop <-chan struct{}, pause func() time.Duration, step func()) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-stop:
			return nil
		default:
		}
		step()
		time.Sleep(pause())
	}
}

func jitter(base, spread int) func() time.Duration {
	return func() time.Duration {
		return time.Duration(base+rand.Intn(spread)) * time.Millisecond
	}
}

// Inviter keeps creating meetings from creator to participant.
func Inviter(ctx context.Context, svc *meeting.Service, reg *Registry, stats *Stats, creator, participant string, stop <-chan struct{}) error {
	return loop(ctx, stop, jitter(40, 40), func() {
		start := time.Now().Add(time.Duration(1+rand.Intn(48)) * time.Hour).Truncate(time.Minute)
		m, err := svc.CreateMeeting(ctx, meeting.CreateParams{
			CreatorID:       creator,
			ParticipantID:   participant,
			Start:           start,
			DurationMinutes: 30,
		})
		stats.record(err)
		if err == nil {
			reg.Add(m.ID)
		}
	})
}

// Responder answers invitations as the participant, racing accept against decline.
func Responder(ctx context.Context, svc *meeting.Service, reg *Registry, stats *Stats, participant string, stop <-chan struct{}) error {
	return loop(ctx, stop, jitter(5, 15), func() {
		id, ok := reg.Pick()
		if !ok {
			return
		}
		status := meeting.StatusAccepted
		if rand.Intn(2) == 0 {
			status = meeting.StatusDeclined
		}
		_, err := svc.UpdateMeetingStatus(ctx, id, participant, status)
		stats.record(err)
	})
}

// Canceller cancels meetings as either party.
func Canceller(ctx context.Context, svc *meeting.Service, reg *Registry, stats *Stats, parties [2]string, stop <-chan struct{}) error {
	return loop(ctx, stop, jitter(20, 40), func() {
		id, ok := reg.Pick()
		if !ok {
			return
		}
		_, err := svc.UpdateMeetingStatus(ctx, id, parties[rand.Intn(2)], meeting.StatusCancelled)
		stats.record(err)
	})
}

// Rescheduler moves meetings as either party.
func Rescheduler(ctx context.Context, svc *meeting.Service, reg *Registry, stats *Stats, parties [2]string, stop <-chan struct{}) error {
	durations := []int{30, 60, 90}
	return loop(ctx, stop, jitter(15, 30), func() {
		id, ok := reg.Pick()
		if !ok {
			return
		}
		start := time.Now().Add(time.Duration(2+rand.Intn(72)) * time.Hour).Truncate(time.Minute)
		_, err := svc.RescheduleMeeting(ctx, id, parties[rand.Intn(2)], start, durations[rand.Intn(len(durations))])
		stats.record(err)
	})
}

// Relay drains the outbox the way the serve command does, discarding payloads.
func Relay(ctx context.Context, relay *notify.Relay, stop <-chan struct{}) error {
	return loop(ctx, stop, jitter(50, 50), func() {
		_, _ = relay.Drain(ctx)
	})
}
