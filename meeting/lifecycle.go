package meeting

// Role identifies how an actor relates to a meeting.
type Role int

const (
	RoleNone Role = iota
	RoleCreator
	RoleParticipant
	RoleSystem
)

func (r Role) String() string {
	switch r {
	case RoleCreator:
		return "creator"
	case RoleParticipant:
		return "participant"
	case RoleSystem:
		return "system"
	default:
		return "none"
	}
}

// RoleOf resolves actorID against the meeting's parties.
func RoleOf(m Meeting, actorID string) Role {
	switch {
	case actorID == "":
		return RoleNone
	case actorID == SystemActor:
		return RoleSystem
	case actorID == m.CreatorID:
		return RoleCreator
	case actorID == m.ParticipantID:
		return RoleParticipant
	default:
		return RoleNone
	}
}

type edge struct {
	from Status
	to   Status
}

// transitionTable is the only place role legality is decided.
var transitionTable = map[edge][]Role{
	{StatusPending, StatusAccepted}:   {RoleParticipant},
	{StatusPending, StatusDeclined}:   {RoleParticipant},
	{StatusPending, StatusCancelled}:  {RoleCreator, RoleParticipant},
	{StatusAccepted, StatusCancelled}: {RoleCreator, RoleParticipant},
	{StatusAccepted, StatusCompleted}: {RoleSystem},
}

// Transition validates moving m to requested on behalf of actorID and returns
// the resulting status. Non-parties are rejected before the current status is
// consulted so the error reveals nothing about the record.
func Transition(m Meeting, actorID string, requested Status) (Status, error) {
	if !requested.Valid() {
		return "", ErrUnknownStatus
	}
	role := RoleOf(m, actorID)
	if role == RoleNone {
		return "", ErrNotParty
	}
	if m.Status.Terminal() {
		return "", &TransitionError{Current: m.Status, Requested: requested}
	}

	allowed, ok := transitionTable[edge{from: m.Status, to: requested}]
	if !ok {
		return "", &TransitionError{Current: m.Status, Requested: requested}
	}
	for _, r := range allowed {
		if r == role {
			return requested, nil
		}
	}
	return "", ErrForbidden
}

// CanReschedule checks that actorID may move m's time window. Either party may
// reschedule while the meeting is pending or accepted.
func CanReschedule(m Meeting, actorID string) error {
	switch RoleOf(m, actorID) {
	case RoleCreator, RoleParticipant:
	case RoleSystem:
		return ErrForbidden
	default:
		return ErrNotParty
	}
	switch m.Status {
	case StatusPending, StatusAccepted:
		return nil
	default:
		return &TransitionError{Current: m.Status}
	}
}
