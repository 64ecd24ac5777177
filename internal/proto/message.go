package proto

import (
	"bytes"
	"encoding/json"
)

// Version is the JSON-RPC protocol version carried by every envelope.
const Version = "2.0"

// Method is an inbound dispatch key.
type Method string

const (
	// MethodJoinCloud is the liveness/connect method; it makes a connection usable.
	MethodJoinCloud Method = "joinCloud"
	// MethodPing is an alias of MethodJoinCloud kept for keep-alive clients.
	MethodPing Method = "ping"
	// MethodInvited fans an invite out to a list of targets.
	MethodInvited Method = "invited"
	// MethodAnswer relays a target's decision to the inviter.
	MethodAnswer Method = "answer"
)

// Server-to-client push methods.
const (
	NotifyInvited  = "onInvited"
	NotifyAnswered = "onAnswered"
)

// Methods is the closed set of inbound methods the server handles.
var Methods = []Method{MethodJoinCloud, MethodPing, MethodInvited, MethodAnswer}

// Known reports whether m belongs to Methods.
func (m Method) Known() bool {
	for _, k := range Methods {
		if k == m {
			return true
		}
	}
	return false
}

// Liveness reports whether m is accepted before the connection joined.
func (m Method) Liveness() bool {
	return m == MethodJoinCloud || m == MethodPing
}

// Request is the inbound envelope. Requests without an id are notifications.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  Method          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// IsNotification reports whether no response is expected.
func (r *Request) IsNotification() bool {
	id := bytes.TrimSpace(r.ID)
	return len(id) == 0 || bytes.Equal(id, []byte("null"))
}

// Response is the reply to a request; exactly one of Result and Error is set.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  any             `json:"result,omitempty"`
	Error   *Error          `json:"error,omitempty"`
}

// Notification is a server push without id.
type Notification struct {
	JSONRPC string `json:"jsonrpc"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
}

// JSON-RPC error codes.
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603
)

// Error describes a protocol-level error response.
type Error struct {
	Code    int        `json:"code"`
	Message string     `json:"message"`
	Data    *ErrorData `json:"data,omitempty"`
}

// ErrorData carries the error kind and what it refers to.
type ErrorData struct {
	Kind   string `json:"kind"`
	Method string `json:"method,omitempty"`
	Field  string `json:"field,omitempty"`
}

// StatusResult answers joinCloud/ping.
type StatusResult struct {
	Status string `json:"status"`
}

// TargetState is one entry of InviteResult.Targets.
type TargetState struct {
	UserID string `json:"userId"`
	State  string `json:"state"`
}

// InviteResult is returned to the inviter.
type InviteResult struct {
	Status        string `json:"status"`
	UserID        string `json:"userId"`
	Number        int    `json:"number"`
	TypeOfSession string `json:"typeOfSession"`
	TypeOfMedia   string `json:"typeOfMedia"`
	// Targets is nil when fan-out was skipped or aborted, which omits the key.
	Targets *[]TargetState `json:"targets,omitempty"`
}

// InvitedParams is pushed to every online target as onInvited.
type InvitedParams struct {
	FromID        string `json:"fromId"`
	TypeOfMedia   string `json:"typeOfMedia"`
	TypeOfSession string `json:"typeOfSession"`
}

// AnsweredParams is pushed to the inviter as onAnswered.
type AnsweredParams struct {
	TargetID    string `json:"targetId"`
	InviterID   string `json:"inviterId"`
	TypeOfMedia string `json:"typeOfMedia"`
	Decision    string `json:"decision"`
}
