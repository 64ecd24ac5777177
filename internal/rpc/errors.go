package rpc

import (
	"github.com/vovakirdan/wirecall-server/internal/core"
	"github.com/vovakirdan/wirecall-server/internal/proto"
)

// ToProtoError maps a handler error onto a JSON-RPC error object.
func ToProtoError(err error) *proto.Error {
	ce, ok := core.AsCoreError(err)
	if !ok {
		return &proto.Error{Code: proto.CodeInternalError, Message: "internal error"}
	}

	code := proto.CodeInternalError
	switch ce.Kind {
	case core.KindProtocolViolation:
		code = proto.CodeInvalidRequest
	case core.KindMissingParameter, core.KindMalformedPayload:
		code = proto.CodeInvalidParams
	}

	return &proto.Error{
		Code:    code,
		Message: ce.Message,
		Data: &proto.ErrorData{
			Kind:   string(ce.Kind),
			Method: ce.Method,
			Field:  ce.Field,
		},
	}
}

// ParseError builds the error sent for an envelope that could not be decoded.
func ParseError(err error) *proto.Error {
	return &proto.Error{
		Code:    proto.CodeParseError,
		Message: "invalid envelope: " + err.Error(),
		Data:    &proto.ErrorData{Kind: string(core.KindMalformedPayload)},
	}
}

func inviteResultToProto(res core.InviteResult) proto.InviteResult {
	out := proto.InviteResult{
		Status:        core.StatusOK,
		UserID:        res.SenderID,
		Number:        res.DeclaredCount,
		TypeOfSession: res.SessionContext,
		TypeOfMedia:   string(res.MediaType),
	}
	if res.Targets != nil {
		states := make([]proto.TargetState, 0, len(res.Targets))
		for _, t := range res.Targets {
			states = append(states, proto.TargetState{UserID: t.UserID, State: string(t.Presence)})
		}
		out.Targets = &states
	}
	return out
}
