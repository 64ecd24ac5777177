package http

import (
	"fmt"

	"github.com/vovakirdan/wirecall-server/internal/core"
	"github.com/vovakirdan/wirecall-server/internal/proto"
)

func notificationFromEvent(event *core.Event) (proto.Notification, error) {
	switch event.Kind {
	case core.EventInvited:
		if event.Invite == nil {
			return proto.Notification{}, fmt.Errorf("event %s without payload", event.Kind)
		}
		return proto.Notification{
			JSONRPC: proto.Version,
			Method:  proto.NotifyInvited,
			Params: proto.InvitedParams{
				FromID:        event.Invite.FromID,
				TypeOfMedia:   string(event.Invite.MediaType),
				TypeOfSession: event.Invite.SessionContext,
			},
		}, nil
	case core.EventAnswered:
		if event.Answer == nil {
			return proto.Notification{}, fmt.Errorf("event %s without payload", event.Kind)
		}
		return proto.Notification{
			JSONRPC: proto.Version,
			Method:  proto.NotifyAnswered,
			Params: proto.AnsweredParams{
				TargetID:    event.Answer.TargetID,
				InviterID:   event.Answer.InviterID,
				TypeOfMedia: string(event.Answer.MediaType),
				Decision:    string(event.Answer.Decision),
			},
		}, nil
	default:
		return proto.Notification{}, fmt.Errorf("unsupported event kind %s", event.Kind)
	}
}
