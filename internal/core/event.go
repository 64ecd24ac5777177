package core

// EventKind is a push the core emits to a connection.
type EventKind int

const (
	// EventInvited notifies a target that someone wants to start a session.
	EventInvited EventKind = iota
	// EventAnswered relays a target's decision back to the inviter.
	EventAnswered
)

func (k EventKind) String() string {
	switch k {
	case EventInvited:
		return "invited"
	case EventAnswered:
		return "answered"
	default:
		return "unknown"
	}
}

// Event is delivered to connections; exactly one payload is set, matching Kind.
type Event struct {
	Kind   EventKind
	Invite *InviteNotification
	Answer *AnswerMessage
}
