package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vovakirdan/wirecall-server/internal/core"
	"github.com/vovakirdan/wirecall-server/internal/core/coretest"
	"github.com/vovakirdan/wirecall-server/internal/proto"
)

type reply struct {
	id     string
	result any
	err    *proto.Error
}

type fakeConn struct {
	*coretest.Conn

	mu       sync.Mutex
	replies  []reply
	writeErr error
}

func newFakeConn(id, userID string) *fakeConn {
	return &fakeConn{Conn: coretest.NewConn(id, userID)}
}

func (c *fakeConn) Reply(_ context.Context, id json.RawMessage, result any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.writeErr != nil {
		return c.writeErr
	}
	c.replies = append(c.replies, reply{id: string(id), result: result})
	return nil
}

func (c *fakeConn) ReplyError(_ context.Context, id json.RawMessage, rpcErr *proto.Error) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.writeErr != nil {
		return c.writeErr
	}
	c.replies = append(c.replies, reply{id: string(id), err: rpcErr})
	return nil
}

func (c *fakeConn) Replies() []reply {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]reply(nil), c.replies...)
}

func request(id, method, params string) *proto.Request {
	r := &proto.Request{JSONRPC: proto.Version, Method: proto.Method(method)}
	if id != "" {
		r.ID = json.RawMessage(id)
	}
	if params != "" {
		r.Params = json.RawMessage(params)
	}
	return r
}

func newDispatcher(t *testing.T, conns ...*coretest.Conn) *Dispatcher {
	t.Helper()
	svc := core.NewService(coretest.NewDirectory(conns...), core.Options{}, nil)
	d, err := NewDispatcher(svc, nil)
	require.NoError(t, err)
	return d
}

func TestDispatch_Rejects_Before_Join(t *testing.T) {
	req := require.New(t)
	d := newDispatcher(t)
	conn := newFakeConn("c1", "A")
	sess := NewSession()

	// Given a fresh connection
	// When invited arrives before joinCloud
	err := d.Dispatch(context.Background(), conn, sess,
		request("1", "invited", `{"userId":"A","number":1,"targets":["B"],"typeOfMedia":"audio","typeOfSession":"S"}`))

	// Then a protocol violation is answered and the state is unchanged
	req.ErrorIs(err, core.ErrProtocolViolation)
	req.Equal(StateUnconnected, sess.State())
	replies := conn.Replies()
	req.Len(replies, 1)
	req.Equal("1", replies[0].id)
	req.Equal(proto.CodeInvalidRequest, replies[0].err.Code)
	req.Equal(string(core.KindProtocolViolation), replies[0].err.Data.Kind)
}

func TestDispatch_Join_Is_Idempotent(t *testing.T) {
	req := require.New(t)
	d := newDispatcher(t)
	conn := newFakeConn("c1", "A")
	sess := NewSession()

	for i, method := range []string{"joinCloud", "ping", "joinCloud"} {
		req.NoError(d.Dispatch(context.Background(), conn, sess, request(`"k`+method+`"`, method, "")))
		req.Equal(StateConnected, sess.State(), "after call %d", i)
	}

	replies := conn.Replies()
	req.Len(replies, 3)
	for _, r := range replies {
		req.Nil(r.err)
		req.Equal(proto.StatusResult{Status: core.StatusOK}, r.result)
	}
}

func TestDispatch_Ping_Alone_Connects(t *testing.T) {
	d := newDispatcher(t)
	sess := NewSession()
	require.NoError(t, d.Dispatch(context.Background(), newFakeConn("c1", "A"), sess, request("1", "ping", "")))
	require.True(t, sess.Connected())
}

func TestDispatch_Invite_Replies_With_Target_States(t *testing.T) {
	req := require.New(t)
	target := coretest.NewConn("c-b", "B")
	d := newDispatcher(t, target)
	conn := newFakeConn("c-a", "A")
	sess := NewSession()
	req.NoError(d.Dispatch(context.Background(), conn, sess, request("1", "joinCloud", "")))

	err := d.Dispatch(context.Background(), conn, sess,
		request("2", "invited", `{"userId":"A","number":2,"targets":"[{\"userId\":\"B\"},{\"userId\":\"C\"}]","typeOfMedia":"video","typeOfSession":"S9"}`))
	req.NoError(err)

	replies := conn.Replies()
	req.Len(replies, 2)
	res, ok := replies[1].result.(proto.InviteResult)
	req.True(ok)
	req.Equal("A", res.UserID)
	req.Equal(2, res.Number)
	req.Equal("S9", res.TypeOfSession)
	req.Equal("video", res.TypeOfMedia)
	req.NotNil(res.Targets)
	req.Equal([]proto.TargetState{{UserID: "B", State: "online"}, {UserID: "C", State: "offline"}}, *res.Targets)

	events := target.Events()
	req.Len(events, 1)
	req.Equal("A", events[0].Invite.FromID)
}

func TestDispatch_Invite_Aborted_Echoes_Scalars(t *testing.T) {
	req := require.New(t)
	d := newDispatcher(t)
	conn := newFakeConn("c-a", "A")
	sess := NewSession()
	req.NoError(d.Dispatch(context.Background(), conn, sess, request("1", "joinCloud", "")))

	req.NoError(d.Dispatch(context.Background(), conn, sess,
		request("2", "invited", `{"userId":"A","number":1,"targets":"not json","typeOfMedia":"audio","typeOfSession":"S"}`)))

	res := conn.Replies()[1].result.(proto.InviteResult)
	req.Nil(res.Targets)
	req.Equal(core.StatusOK, res.Status)
	req.Equal(1, res.Number)
}

func TestDispatch_Missing_Parameter_Names_Field(t *testing.T) {
	req := require.New(t)
	d := newDispatcher(t)
	conn := newFakeConn("c-a", "A")
	sess := NewSession()
	req.NoError(d.Dispatch(context.Background(), conn, sess, request("1", "joinCloud", "")))

	err := d.Dispatch(context.Background(), conn, sess, request("2", "invited", `{"number":1}`))
	req.ErrorIs(err, core.ErrMissingParameter)

	last := conn.Replies()[1]
	req.Equal(proto.CodeInvalidParams, last.err.Code)
	req.Equal("userId", last.err.Data.Field)
	req.Equal("invited", last.err.Data.Method)
}

func TestDispatch_Answer_Never_Replies_To_Answerer(t *testing.T) {
	req := require.New(t)
	inviter := coretest.NewConn("c-a", "A")
	d := newDispatcher(t, inviter)
	answerer := newFakeConn("c-b", "B")
	sess := NewSession()
	req.NoError(d.Dispatch(context.Background(), answerer, sess, request("1", "joinCloud", "")))

	params := `{"targetId":"B","inviterId":"A","typeOfMedia":"audio","decision":"accept"}`
	req.NoError(d.Dispatch(context.Background(), answerer, sess, request("2", "answer", params)))

	offline := `{"targetId":"B","inviterId":"Z","typeOfMedia":"audio","decision":"reject"}`
	req.NoError(d.Dispatch(context.Background(), answerer, sess, request("3", "answer", offline)))

	req.Len(answerer.Replies(), 1)
	events := inviter.Events()
	req.Len(events, 1)
	req.Equal(core.EventAnswered, events[0].Kind)
	req.Equal(core.DecisionAccept, events[0].Answer.Decision)
}

func TestDispatch_Unknown_Method_Has_No_Response(t *testing.T) {
	req := require.New(t)
	d := newDispatcher(t)
	conn := newFakeConn("c-a", "A")
	sess := NewSession()
	req.NoError(d.Dispatch(context.Background(), conn, sess, request("", "joinCloud", "")))

	err := d.Dispatch(context.Background(), conn, sess, request("1", "hangup", ""))

	req.ErrorIs(err, ErrUnknownMethod)
	req.Empty(conn.Replies())
}

func TestDispatch_Unknown_Method_Before_Join_Is_Protocol_Violation(t *testing.T) {
	req := require.New(t)
	d := newDispatcher(t)
	conn := newFakeConn("c-a", "A")
	sess := NewSession()

	err := d.Dispatch(context.Background(), conn, sess, request("7", "hangup", ""))

	req.ErrorIs(err, core.ErrProtocolViolation)
	req.NotErrorIs(err, ErrUnknownMethod)
	req.Equal(StateUnconnected, sess.State())
	replies := conn.Replies()
	req.Len(replies, 1)
	req.Equal("7", replies[0].id)
	req.Equal(proto.CodeInvalidRequest, replies[0].err.Code)
	req.Equal("hangup", replies[0].err.Data.Method)
}

func TestDispatch_Notifications_Get_No_Response(t *testing.T) {
	req := require.New(t)
	d := newDispatcher(t)
	conn := newFakeConn("c-a", "A")
	sess := NewSession()

	err := d.Dispatch(context.Background(), conn, sess, request("", "invited", `{}`))
	req.ErrorIs(err, core.ErrProtocolViolation)

	req.NoError(d.Dispatch(context.Background(), conn, sess, request("", "joinCloud", "")))
	req.True(sess.Connected())
	req.Empty(conn.Replies())
}

func TestDispatch_Reply_Write_Failure_Is_Delivery_Failure(t *testing.T) {
	d := newDispatcher(t)
	conn := newFakeConn("c-a", "A")
	conn.writeErr = errors.New("closed")

	err := d.Dispatch(context.Background(), conn, NewSession(), request("1", "joinCloud", ""))
	require.ErrorIs(t, err, core.ErrDeliveryFailure)
}

func TestToProtoError_Unknown_Error_Is_Internal(t *testing.T) {
	e := ToProtoError(errors.New("boom"))
	require.Equal(t, proto.CodeInternalError, e.Code)
	require.Nil(t, e.Data)
}
