package meeting

import (
	"errors"
	"testing"
)

func TestTransition_Table(t *testing.T) {
	const (
		creator     = "creator-1"
		participant = "participant-1"
		stranger    = "stranger-1"
	)
	base := Meeting{ID: "m1", CreatorID: creator, ParticipantID: participant}

	cases := []struct {
		from      Status
		actor     string
		requested Status
		want      error
	}{
		{StatusPending, participant, StatusAccepted, nil},
		{StatusPending, participant, StatusDeclined, nil},
		{StatusPending, participant, StatusCancelled, nil},
		{StatusPending, creator, StatusCancelled, nil},
		{StatusAccepted, creator, StatusCancelled, nil},
		{StatusAccepted, participant, StatusCancelled, nil},
		{StatusAccepted, SystemActor, StatusCompleted, nil},

		{StatusPending, creator, StatusAccepted, ErrForbidden},
		{StatusPending, creator, StatusDeclined, ErrForbidden},
		{StatusPending, SystemActor, StatusAccepted, ErrForbidden},
		{StatusAccepted, creator, StatusCompleted, ErrForbidden},
		{StatusPending, stranger, StatusAccepted, ErrNotParty},
		{StatusDeclined, stranger, StatusCancelled, ErrNotParty},

		{StatusPending, SystemActor, StatusCompleted, ErrInvalidTransition},
		{StatusPending, participant, StatusPending, ErrInvalidTransition},
		{StatusAccepted, participant, StatusAccepted, ErrInvalidTransition},
		{StatusAccepted, participant, StatusDeclined, ErrInvalidTransition},
		{StatusDeclined, participant, StatusAccepted, ErrInvalidTransition},
		{StatusCancelled, creator, StatusCancelled, ErrInvalidTransition},
		{StatusCompleted, creator, StatusCancelled, ErrInvalidTransition},
		{StatusCompleted, SystemActor, StatusCompleted, ErrInvalidTransition},
	}

	for _, tc := range cases {
		m := base
		m.Status = tc.from
		got, err := Transition(m, tc.actor, tc.requested)
		if tc.want == nil {
			if err != nil {
				t.Fatalf("%s -> %s by %s: unexpected error %v", tc.from, tc.requested, tc.actor, err)
			}
			if got != tc.requested {
				t.Fatalf("%s -> %s by %s: got status %s", tc.from, tc.requested, tc.actor, got)
			}
			continue
		}
		if !errors.Is(err, tc.want) {
			t.Fatalf("%s -> %s by %s: expected %v, got %v", tc.from, tc.requested, tc.actor, tc.want, err)
		}
	}
}

func TestTransition_ErrorCarriesCurrentStatus(t *testing.T) {
	m := Meeting{CreatorID: "a", ParticipantID: "b", Status: StatusDeclined}
	_, err := Transition(m, "b", StatusAccepted)

	current, ok := CurrentStatus(err)
	if !ok || current != StatusDeclined {
		t.Fatalf("expected current status declined, got %q (ok=%v)", current, ok)
	}
	if IsRetryable(err) || IsValidation(err) {
		t.Fatalf("state errors are neither retryable nor validation: %v", err)
	}
}

func TestTransition_UnknownStatus(t *testing.T) {
	m := Meeting{CreatorID: "a", ParticipantID: "b", Status: StatusPending}
	if _, err := Transition(m, "b", Status("maybe")); !errors.Is(err, ErrUnknownStatus) {
		t.Fatalf("expected ErrUnknownStatus, got %v", err)
	}
}

func TestCanReschedule(t *testing.T) {
	m := Meeting{CreatorID: "a", ParticipantID: "b"}
	for _, s := range []Status{StatusPending, StatusAccepted} {
		m.Status = s
		if err := CanReschedule(m, "a"); err != nil {
			t.Fatalf("creator should reschedule %s meeting: %v", s, err)
		}
		if err := CanReschedule(m, "b"); err != nil {
			t.Fatalf("participant should reschedule %s meeting: %v", s, err)
		}
		if err := CanReschedule(m, SystemActor); !errors.Is(err, ErrForbidden) {
			t.Fatalf("system must not reschedule: %v", err)
		}
		if err := CanReschedule(m, "c"); !errors.Is(err, ErrNotParty) {
			t.Fatalf("stranger must get ErrNotParty: %v", err)
		}
	}
	for _, s := range []Status{StatusDeclined, StatusCancelled, StatusCompleted} {
		m.Status = s
		err := CanReschedule(m, "a")
		if !errors.Is(err, ErrInvalidTransition) {
			t.Fatalf("%s meeting: expected ErrInvalidTransition, got %v", s, err)
		}
		if current, _ := CurrentStatus(err); current != s {
			t.Fatalf("expected current %s, got %s", s, current)
		}
	}
}

func TestParseStatus(t *testing.T) {
	got, err := ParseStatus(" Accepted ")
	if err != nil || got != StatusAccepted {
		t.Fatalf("expected accepted, got %q (%v)", got, err)
	}
	if _, err := ParseStatus("archived"); !errors.Is(err, ErrUnknownStatus) {
		t.Fatalf("expected ErrUnknownStatus, got %v", err)
	}
}
