package meeting

import (
	"fmt"
	"strings"
	"time"
)

// Status represents the lifecycle of a meeting record.
type Status string

const (
	StatusPending   Status = "pending"
	StatusAccepted  Status = "accepted"
	StatusDeclined  Status = "declined"
	StatusCancelled Status = "cancelled"
	StatusCompleted Status = "completed"
)

// SystemActor is the actor id used for transitions the service applies on its own,
// such as completing a meeting after its scheduled end.
const SystemActor = "system"

// MaxMessageLength bounds the optional note attached to an invitation, in runes.
const MaxMessageLength = 500

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusAccepted, StatusDeclined, StatusCancelled, StatusCompleted:
		return true
	default:
		return false
	}
}

// Terminal reports whether no further change is permitted from s.
func (s Status) Terminal() bool {
	switch s {
	case StatusDeclined, StatusCancelled, StatusCompleted:
		return true
	case StatusPending, StatusAccepted:
		return false
	default:
		return false
	}
}

// ParseStatus converts a wire label into a Status.
func ParseStatus(raw string) (Status, error) {
	s := Status(strings.ToLower(strings.TrimSpace(raw)))
	if !s.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownStatus, raw)
	}
	return s, nil
}

// Meeting is the domain representation of a scheduled call between two users.
// It mirrors the meetings table.
type Meeting struct {
	ID             string
	CreatorID      string
	ParticipantID  string
	ScheduledStart time.Time
	ScheduledEnd   time.Time
	Status         Status
	Message        *string
	Version        int64
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// IsParty reports whether userID is the creator or the participant.
func (m Meeting) IsParty(userID string) bool {
	return userID != "" && (userID == m.CreatorID || userID == m.ParticipantID)
}

// Counterpart returns the party that is not userID. The system actor addresses
// the participant.
func (m Meeting) Counterpart(userID string) string {
	if userID == m.ParticipantID {
		return m.CreatorID
	}
	return m.ParticipantID
}

// Duration returns the scheduled length of the meeting.
func (m Meeting) Duration() time.Duration {
	return m.ScheduledEnd.Sub(m.ScheduledStart)
}

// CreateParams contains the caller supplied fields for a new meeting.
type CreateParams struct {
	CreatorID       string
	ParticipantID   string
	Start           time.Time
	DurationMinutes int
	Message         string
}
