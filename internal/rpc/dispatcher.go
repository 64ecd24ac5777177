package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/wirecall-server/internal/core"
	"github.com/vovakirdan/wirecall-server/internal/proto"
)

// ErrUnknownMethod is returned by Dispatch for methods outside proto.Methods.
// No response is written for them.
var ErrUnknownMethod = errors.New("unknown method")

// Conn is a registered connection that can also answer requests.
type Conn interface {
	core.Conn
	Reply(ctx context.Context, id json.RawMessage, result any) error
	ReplyError(ctx context.Context, id json.RawMessage, rpcErr *proto.Error) error
}

// handlerFunc returns the result to send, or nil when the method never replies.
type handlerFunc func(ctx context.Context, conn Conn, sess *Session, req *proto.Request) (any, error)

// Dispatcher routes inbound requests through a closed method table.
type Dispatcher struct {
	svc      *core.Service
	handlers map[proto.Method]handlerFunc
	log      *zerolog.Logger
}

// NewDispatcher builds the method table and checks it covers proto.Methods exactly.
func NewDispatcher(svc *core.Service, logger *zerolog.Logger) (*Dispatcher, error) {
	if svc == nil {
		return nil, errors.New("rpc: nil service")
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	d := &Dispatcher{svc: svc, log: logger}
	d.handlers = map[proto.Method]handlerFunc{
		proto.MethodJoinCloud: d.handleKeepAlive,
		proto.MethodPing:      d.handleKeepAlive,
		proto.MethodInvited:   d.handleInvite,
		proto.MethodAnswer:    d.handleAnswer,
	}
	if err := checkTable(d.handlers); err != nil {
		return nil, err
	}
	return d, nil
}

func checkTable(handlers map[proto.Method]handlerFunc) error {
	if len(handlers) != len(proto.Methods) {
		return fmt.Errorf("rpc: method table has %d entries, want %d", len(handlers), len(proto.Methods))
	}
	for _, m := range proto.Methods {
		if handlers[m] == nil {
			return fmt.Errorf("rpc: no handler for method %q", m)
		}
	}
	return nil
}

// Dispatch handles one request. Requests are expected to arrive sequentially
// per connection. The returned error is for logging; the connection stays open.
func (d *Dispatcher) Dispatch(ctx context.Context, conn Conn, sess *Session, req *proto.Request) error {
	// Until joinCloud only the liveness methods are accepted, known or not.
	if !sess.Connected() && !req.Method.Liveness() {
		err := core.ProtocolViolation(string(req.Method))
		return d.fail(ctx, conn, req, err)
	}

	handler, ok := d.handlers[req.Method]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownMethod, req.Method)
	}

	result, err := handler(ctx, conn, sess, req)
	if err != nil {
		return d.fail(ctx, conn, req, err)
	}
	if result == nil || req.IsNotification() {
		return nil
	}
	if err := conn.Reply(ctx, req.ID, result); err != nil {
		return core.DeliveryFailure(conn.UserID(), err)
	}
	return nil
}

func (d *Dispatcher) fail(ctx context.Context, conn Conn, req *proto.Request, err error) error {
	if req.IsNotification() {
		return err
	}
	if werr := conn.ReplyError(ctx, req.ID, ToProtoError(err)); werr != nil {
		return errors.Join(err, core.DeliveryFailure(conn.UserID(), werr))
	}
	return err
}

func (d *Dispatcher) handleKeepAlive(_ context.Context, conn Conn, sess *Session, req *proto.Request) (any, error) {
	if sess.markConnected() {
		d.log.Debug().
			Str("conn_id", conn.ID()).
			Str("user_id", conn.UserID()).
			Str("method", string(req.Method)).
			Msg("connection joined")
	}
	return proto.StatusResult{Status: d.svc.KeepAlive()}, nil
}

func (d *Dispatcher) handleInvite(ctx context.Context, conn Conn, _ *Session, req *proto.Request) (any, error) {
	params, err := proto.DecodeInvite(req.Params)
	if err != nil {
		return nil, err
	}

	res := d.svc.Invite(ctx, core.InviteRequest{
		SenderID:       params.UserID,
		DeclaredCount:  params.Number,
		Targets:        params.Targets,
		MediaType:      core.MediaType(params.TypeOfMedia),
		SessionContext: params.TypeOfSession,
	})
	if res.Err != nil {
		d.log.Warn().
			Err(res.Err).
			Str("conn_id", conn.ID()).
			Str("user_id", params.UserID).
			Msg("invite fan-out aborted")
	}
	return inviteResultToProto(res), nil
}

func (d *Dispatcher) handleAnswer(ctx context.Context, conn Conn, _ *Session, req *proto.Request) (any, error) {
	params, err := proto.DecodeAnswer(req.Params)
	if err != nil {
		return nil, err
	}

	d.svc.Answer(ctx, core.AnswerMessage{
		TargetID:  params.TargetID,
		InviterID: params.InviterID,
		MediaType: core.MediaType(params.TypeOfMedia),
		Decision:  core.Decision(params.Decision),
	})
	return nil, nil
}
