// Package notify delivers meeting lifecycle events to the party who did not act.
// Delivery is fire-and-forget from the caller's point of view.
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"
)

const (
	TopicMeetingCreated     = "meeting.created"
	TopicMeetingAccepted    = "meeting.accepted"
	TopicMeetingDeclined    = "meeting.declined"
	TopicMeetingCancelled   = "meeting.cancelled"
	TopicMeetingRescheduled = "meeting.rescheduled"
)

// Event is a lifecycle notification addressed to a single recipient.
type Event struct {
	ID             string    `json:"id"`
	Topic          string    `json:"topic"`
	MeetingID      string    `json:"meeting_id"`
	ActorID        string    `json:"actor_id"`
	RecipientID    string    `json:"recipient_id"`
	Status         string    `json:"status"`
	ScheduledStart time.Time `json:"scheduled_start"`
	ScheduledEnd   time.Time `json:"scheduled_end"`
	OccurredAt     time.Time `json:"occurred_at"`
}

// Notifier accepts events for delivery.
type Notifier interface {
	Notify(ctx context.Context, ev Event) error
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, ev Event) error

func (f NotifierFunc) Notify(ctx context.Context, ev Event) error { return f(ctx, ev) }

// Fanout delivers to every notifier and joins their errors.
type Fanout []Notifier

func (f Fanout) Notify(ctx context.Context, ev Event) error {
	var errs []error
	for _, n := range f {
		if n == nil {
			continue
		}
		if err := n.Notify(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// LogNotifier writes events to a logger. Used when no transport is configured.
type LogNotifier struct {
	Logger *log.Logger
}

func (n LogNotifier) Notify(_ context.Context, ev Event) error {
	logger := n.Logger
	if logger == nil {
		logger = log.Default()
	}
	logger.Printf("notify: %s meeting=%s recipient=%s status=%s", ev.Topic, ev.MeetingID, ev.RecipientID, ev.Status)
	return nil
}

func marshalEvent(ev Event) ([]byte, error) {
	body, err := json.Marshal(ev)
	if err != nil {
		return nil, err
	}
	return body, nil
}
