package meeting

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"meetingflow/clock"
	"meetingflow/notify"
)

// ConnectionChecker reports whether two users are connected. The result is
// trusted as given.
type ConnectionChecker interface {
	AreConnected(ctx context.Context, userA, userB string) (bool, error)
}

type meetingNotifier interface {
	Notify(ctx context.Context, ev notify.Event) error
}

// Service exposes the meeting operations consumed by the API layer.
type Service struct {
	store       Store
	validator   *Validator
	policy      AdmissionPolicy
	connections ConnectionChecker
	notifier    meetingNotifier
	clock       clock.Clock
	idGenerator func() string
	timeout     time.Duration
	logger      *log.Logger
}

// NewService wires a Service around store with default validation and admission rules.
func NewService(store Store) *Service {
	return &Service{
		store:       store,
		validator:   NewValidator(nil),
		clock:       clock.System,
		idGenerator: func() string { return uuid.NewString() },
		logger:      log.Default(),
	}
}

func (s *Service) WithValidator(v *Validator) *Service {
	s.validator = v
	return s
}

func (s *Service) WithAdmissionPolicy(p AdmissionPolicy) *Service {
	s.policy = p
	return s
}

func (s *Service) WithConnections(c ConnectionChecker) *Service {
	s.connections = c
	return s
}

func (s *Service) WithNotifier(n meetingNotifier) *Service {
	s.notifier = n
	return s
}

func (s *Service) WithClock(c clock.Clock) *Service {
	s.clock = c
	return s
}

func (s *Service) WithIDGenerator(gen func() string) *Service {
	s.idGenerator = gen
	return s
}

// WithStoreTimeout bounds every store call. Zero leaves the caller's deadline alone.
func (s *Service) WithStoreTimeout(d time.Duration) *Service {
	s.timeout = d
	return s
}

func (s *Service) WithLogger(l *log.Logger) *Service {
	s.logger = l
	return s
}

// Policy returns the admission policy in use.
func (s *Service) Policy() AdmissionPolicy {
	return s.policy
}

// CreateMeeting validates params against the server clock and stores a pending meeting.
func (s *Service) CreateMeeting(ctx context.Context, params CreateParams) (Meeting, error) {
	creatorID := strings.TrimSpace(params.CreatorID)
	participantID := strings.TrimSpace(params.ParticipantID)
	if creatorID == "" || participantID == "" {
		return Meeting{}, fmt.Errorf("%w: creator and participant ids", ErrMissingField)
	}
	if creatorID == participantID {
		return Meeting{}, ErrSameParticipant
	}
	if creatorID == SystemActor || participantID == SystemActor {
		return Meeting{}, ErrForbidden
	}

	var message *string
	if trimmed := strings.TrimSpace(params.Message); trimmed != "" {
		if utf8.RuneCountInString(trimmed) > MaxMessageLength {
			return Meeting{}, ErrMessageTooLong
		}
		message = &trimmed
	}

	now := s.clock.Now()
	end, err := s.validator.Validate(params.Start, params.DurationMinutes, now)
	if err != nil {
		return Meeting{}, err
	}

	if s.connections != nil {
		cctx, cancel := s.storeContext(ctx)
		ok, err := s.connections.AreConnected(cctx, creatorID, participantID)
		cancel()
		if err != nil {
			return Meeting{}, classify(fmt.Errorf("meeting: check connection: %w", err))
		}
		if !ok {
			return Meeting{}, ErrNotConnected
		}
	}

	m := Meeting{
		ID:             s.idGenerator(),
		CreatorID:      creatorID,
		ParticipantID:  participantID,
		ScheduledStart: params.Start,
		ScheduledEnd:   end,
		Status:         StatusPending,
		Message:        message,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	cctx, cancel := s.storeContext(ctx)
	defer cancel()
	created, err := s.store.Create(cctx, m)
	if err != nil {
		return Meeting{}, classify(err)
	}

	s.emit(ctx, notify.TopicMeetingCreated, created, creatorID)
	return created, nil
}

// UpdateMeetingStatus applies a status transition requested by actorID.
func (s *Service) UpdateMeetingStatus(ctx context.Context, meetingID, actorID string, requested Status) (Meeting, error) {
	if !requested.Valid() {
		return Meeting{}, fmt.Errorf("%w: %q", ErrUnknownStatus, requested)
	}
	updated, err := s.mutate(ctx, meetingID, func(m Meeting, _ time.Time) (Meeting, error) {
		next, err := Transition(m, actorID, requested)
		if err != nil {
			return Meeting{}, err
		}
		m.Status = next
		return m, nil
	})
	if err != nil {
		return Meeting{}, err
	}

	s.emit(ctx, topicFor(updated.Status), updated, actorID)
	return updated, nil
}

// RescheduleMeeting moves a pending or accepted meeting to a new window. The
// status is left untouched and the start is checked against the clock at
// request time.
func (s *Service) RescheduleMeeting(ctx context.Context, meetingID, actorID string, newStart time.Time, newDurationMinutes int) (Meeting, error) {
	updated, err := s.mutate(ctx, meetingID, func(m Meeting, now time.Time) (Meeting, error) {
		if err := CanReschedule(m, actorID); err != nil {
			return Meeting{}, err
		}
		end, err := s.validator.Validate(newStart, newDurationMinutes, now)
		if err != nil {
			return Meeting{}, err
		}
		m.ScheduledStart = newStart
		m.ScheduledEnd = end
		return m, nil
	})
	if err != nil {
		return Meeting{}, err
	}

	s.emit(ctx, notify.TopicMeetingRescheduled, updated, actorID)
	return updated, nil
}

// Complete marks an accepted meeting completed once its scheduled end has passed.
func (s *Service) Complete(ctx context.Context, meetingID string) (Meeting, error) {
	return s.mutate(ctx, meetingID, func(m Meeting, now time.Time) (Meeting, error) {
		next, err := Transition(m, SystemActor, StatusCompleted)
		if err != nil {
			return Meeting{}, err
		}
		if now.Before(m.ScheduledEnd) {
			return Meeting{}, &TransitionError{Current: m.Status, Requested: StatusCompleted}
		}
		m.Status = next
		return m, nil
	})
}

// ListMeetings returns every meeting userID created or was invited to.
func (s *Service) ListMeetings(ctx context.Context, userID string) ([]Meeting, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, fmt.Errorf("%w: user id", ErrMissingField)
	}
	cctx, cancel := s.storeContext(ctx)
	defer cancel()
	list, err := s.store.ListForUser(cctx, userID)
	if err != nil {
		return nil, classify(err)
	}
	return list, nil
}

// GetMeeting returns the meeting if actorID is one of its parties.
func (s *Service) GetMeeting(ctx context.Context, meetingID, actorID string) (Meeting, error) {
	m, err := s.load(ctx, meetingID)
	if err != nil {
		return Meeting{}, err
	}
	if !m.IsParty(actorID) {
		return Meeting{}, ErrNotParty
	}
	return m, nil
}

// GetAdmission computes the admission of a meeting at now. It never writes.
func (s *Service) GetAdmission(ctx context.Context, meetingID string, now time.Time) (AdmissionResult, error) {
	m, err := s.load(ctx, meetingID)
	if err != nil {
		return AdmissionResult{}, err
	}
	return s.policy.Admission(m, now), nil
}

// mutate loads the meeting, applies change and persists it with a version
// compare-and-swap. When the swap loses, change is evaluated once more against
// the fresh record: a rejection is returned as-is, otherwise ErrConflict.
func (s *Service) mutate(ctx context.Context, meetingID string, change func(Meeting, time.Time) (Meeting, error)) (Meeting, error) {
	current, err := s.load(ctx, meetingID)
	if err != nil {
		return Meeting{}, err
	}

	now := s.clock.Now()
	next, err := change(current, now)
	if err != nil {
		return Meeting{}, err
	}
	next.UpdatedAt = now

	cctx, cancel := s.storeContext(ctx)
	updated, err := s.store.Update(cctx, next, current.Version)
	cancel()
	if err == nil {
		return updated, nil
	}
	if !errors.Is(err, ErrConflict) {
		return Meeting{}, classify(err)
	}

	fresh, loadErr := s.load(ctx, meetingID)
	if loadErr != nil {
		return Meeting{}, loadErr
	}
	if _, err := change(fresh, s.clock.Now()); err != nil {
		return Meeting{}, err
	}
	return Meeting{}, ErrConflict
}

func (s *Service) load(ctx context.Context, meetingID string) (Meeting, error) {
	if strings.TrimSpace(meetingID) == "" {
		return Meeting{}, fmt.Errorf("%w: meeting id", ErrMissingField)
	}
	cctx, cancel := s.storeContext(ctx)
	defer cancel()
	m, err := s.store.Get(cctx, meetingID)
	if err != nil {
		return Meeting{}, classify(err)
	}
	return m, nil
}

func (s *Service) storeContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}

// emit hands an event for the non-acting party to the notifier. Failures are
// logged and never returned.
func (s *Service) emit(ctx context.Context, topic string, m Meeting, actorID string) {
	if s.notifier == nil || topic == "" {
		return
	}
	ev := notify.Event{
		ID:             s.idGenerator(),
		Topic:          topic,
		MeetingID:      m.ID,
		ActorID:        actorID,
		RecipientID:    m.Counterpart(actorID),
		Status:         string(m.Status),
		ScheduledStart: m.ScheduledStart,
		ScheduledEnd:   m.ScheduledEnd,
		OccurredAt:     m.UpdatedAt,
	}
	nctx, cancel := s.storeContext(context.WithoutCancel(ctx))
	defer cancel()
	if err := s.notifier.Notify(nctx, ev); err != nil {
		s.logger.Printf("meeting: notify %s for %s: %v", topic, m.ID, err)
	}
}

func topicFor(status Status) string {
	switch status {
	case StatusAccepted:
		return notify.TopicMeetingAccepted
	case StatusDeclined:
		return notify.TopicMeetingDeclined
	case StatusCancelled:
		return notify.TopicMeetingCancelled
	default:
		return ""
	}
}

// classify maps context deadline failures to ErrTimeout and leaves the rest untouched.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, ErrTimeout) {
		return fmt.Errorf("%w: %w", ErrTimeout, err)
	}
	return err
}
