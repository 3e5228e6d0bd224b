package meeting

import (
	"errors"
	"fmt"
)

var (
	// ErrPastSchedule signals a start time that is not after the server clock.
	ErrPastSchedule = errors.New("meeting: start must be in the future")
	// ErrInvalidDuration signals a duration outside the configured allow-list.
	ErrInvalidDuration = errors.New("meeting: invalid duration")
	// ErrSameParticipant signals a creator inviting themselves.
	ErrSameParticipant = errors.New("meeting: creator and participant must differ")
	// ErrNotConnected signals a participant the creator is not connected with.
	ErrNotConnected = errors.New("meeting: participant is not a connection")
	// ErrMissingField signals an empty required identifier or timestamp.
	ErrMissingField = errors.New("meeting: missing required field")
	// ErrMessageTooLong signals a note longer than MaxMessageLength.
	ErrMessageTooLong = errors.New("meeting: message too long")
	// ErrUnknownStatus signals a status label outside the enumeration.
	ErrUnknownStatus = errors.New("meeting: unknown status")

	// ErrForbidden signals an actor not permitted to perform the request.
	ErrForbidden = errors.New("meeting: forbidden")
	// ErrNotParty is the ErrForbidden variant returned to users who are neither
	// creator nor participant. Callers render it like ErrNotFound.
	ErrNotParty = fmt.Errorf("%w: not a party to the meeting", ErrForbidden)

	// ErrInvalidTransition signals an edge not defined from the current status.
	ErrInvalidTransition = errors.New("meeting: invalid transition")
	// ErrNotFound signals the meeting does not exist.
	ErrNotFound = errors.New("meeting: not found")

	// ErrConflict signals the record changed between read and write.
	ErrConflict = errors.New("meeting: concurrent update")
	// ErrTimeout signals a store call exceeded its deadline.
	ErrTimeout = errors.New("meeting: store timeout")
)

// TransitionError carries the persisted status observed when a requested change
// was rejected, so callers can refresh instead of resubmitting blindly.
type TransitionError struct {
	Current   Status
	Requested Status
}

func (e *TransitionError) Error() string {
	if e.Requested == "" {
		return fmt.Sprintf("meeting: cannot reschedule a %s meeting", e.Current)
	}
	return fmt.Sprintf("meeting: invalid transition %s -> %s", e.Current, e.Requested)
}

func (e *TransitionError) Is(target error) bool {
	return target == ErrInvalidTransition
}

// CurrentStatus extracts the status carried by a TransitionError anywhere in err's chain.
func CurrentStatus(err error) (Status, bool) {
	var te *TransitionError
	if errors.As(err, &te) {
		return te.Current, true
	}
	return "", false
}

// IsValidation reports whether err was rejected before reaching the store.
func IsValidation(err error) bool {
	for _, target := range []error{ErrPastSchedule, ErrInvalidDuration, ErrSameParticipant, ErrNotConnected, ErrMissingField, ErrMessageTooLong, ErrUnknownStatus} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// IsRetryable reports whether err is transient and the caller may resubmit.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConflict) || errors.Is(err, ErrTimeout)
}
