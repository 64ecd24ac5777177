package core

import (
	"context"
	"encoding/json"
	"time"
)

// StatusOK is echoed in every successful response.
const StatusOK = "OK"

// Conn is the handle stored in the registry for a live connection.
// Deliver must be safe to call from goroutines other than the connection's own.
type Conn interface {
	ID() string
	UserID() string
	Deliver(ctx context.Context, ev *Event) error
	Close(reason string)
}

// Directory resolves a user identifier to its registered connection.
type Directory interface {
	Lookup(userID string) (Conn, bool)
}

// Entry is a registry record.
type Entry struct {
	Conn          Conn
	EstablishedAt time.Time
}

// Presence is a fan-out time snapshot of a target.
type Presence string

const (
	PresenceOnline  Presence = "online"
	PresenceOffline Presence = "offline"
)

// Decision is the target's reply to an invite.
type Decision string

const (
	DecisionAccept Decision = "accept"
	DecisionReject Decision = "reject"
)

// MediaType is relayed verbatim; unknown values are not rejected.
type MediaType string

const (
	MediaAudio MediaType = "audio"
	MediaVideo MediaType = "video"
	MediaAll   MediaType = "all"
)

// SessionType is the optional "type" hint inside typeOfSession.
type SessionType string

const (
	SessionCall       SessionType = "CALL"
	SessionGroup      SessionType = "GROUP"
	SessionDiscussion SessionType = "DISCUSSION"
)

// InviteRequest is one invite as received from the sender.
// Targets is the serialized target list; it is parsed during fan-out.
type InviteRequest struct {
	SenderID       string
	DeclaredCount  int
	Targets        string
	MediaType      MediaType
	SessionContext string
}

// TargetStatus reports one target, in input order.
type TargetStatus struct {
	UserID   string
	Presence Presence
}

// InviteNotification is pushed to each online target.
type InviteNotification struct {
	FromID         string
	MediaType      MediaType
	SessionContext string
}

// AnswerMessage is relayed to the inviter.
type AnswerMessage struct {
	TargetID  string
	InviterID string
	MediaType MediaType
	Decision  Decision
}

// InviteResult is the aggregate returned to the sender.
type InviteResult struct {
	SenderID       string
	DeclaredCount  int
	MediaType      MediaType
	SessionContext string

	// Targets is nil when fan-out was skipped or aborted.
	Targets []TargetStatus
	// Err is the cause of an aborted fan-out; the response still echoes the scalars.
	Err error

	Delivered int
	Failed    int
}

// SessionTypeOf extracts the "type" field when sessionContext is a JSON object.
func SessionTypeOf(sessionContext string) (SessionType, bool) {
	var hint struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal([]byte(sessionContext), &hint); err != nil || hint.Type == "" {
		return "", false
	}
	return SessionType(hint.Type), true
}
