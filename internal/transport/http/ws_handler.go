package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"sync"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/wirecall-server/internal/config"
	"github.com/vovakirdan/wirecall-server/internal/core"
	"github.com/vovakirdan/wirecall-server/internal/presence"
	"github.com/vovakirdan/wirecall-server/internal/proto"
	"github.com/vovakirdan/wirecall-server/internal/rpc"
	"github.com/vovakirdan/wirecall-server/internal/utils"
)

const (
	// codeRateLimited is a server-defined JSON-RPC error code.
	codeRateLimited = -32000
	kindRateLimited = "rate_limited"

	reasonReplaced = "replaced by a newer connection"
)

// WSHandler upgrades HTTP connections and feeds their frames to the dispatcher.
type WSHandler struct {
	registry   *presence.Registry
	dispatcher *rpc.Dispatcher
	cfg        config.WSConfig
	log        *zerolog.Logger
}

// NewWSHandler builds a new WebSocket handler.
func NewWSHandler(registry *presence.Registry, dispatcher *rpc.Dispatcher, cfg config.WSConfig, logger *zerolog.Logger) *WSHandler {
	return &WSHandler{registry: registry, dispatcher: dispatcher, cfg: cfg, log: logger}
}

// ServeHTTP serves GET /ws?userId=<id>. It is mounted outside the gin engine:
// gin marks the response written once the 101 goes out and then refuses the hijack.
func (h *WSHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get(h.cfg.UserIDParam)
	if userID == "" {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(ErrorResponse{Error: "missing " + h.cfg.UserIDParam + " query parameter"})
		return
	}

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: h.cfg.InsecureSkipOrigin,
	})
	if err != nil {
		h.log.Error().Err(err).Str("user_id", userID).Msg("ws accept error")
		return
	}
	defer ws.CloseNow()
	ws.SetReadLimit(h.cfg.ReadLimit)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	conn := newWSConn(ctx, utils.NewID(), userID, ws)
	logger := h.log.With().Str("conn_id", conn.ID()).Str("user_id", userID).Logger()

	h.bind(conn, &logger)
	defer func() {
		if h.registry.Release(userID, conn) {
			logger.Debug().Msg("connection released")
		}
	}()

	err = h.readLoop(ctx, conn, &logger)

	status := websocket.StatusNormalClosure
	reason := "closing"
	if err != nil && !errors.Is(err, context.Canceled) {
		if errors.Is(err, io.EOF) {
			err = nil
		}
		if s := websocket.CloseStatus(err); s != -1 {
			status = s
		}
		if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
			err = nil
		}
		if err != nil {
			if status == websocket.StatusNormalClosure {
				status = websocket.StatusInternalError
			}
			reason = err.Error()
			logger.Warn().Err(err).Msg("ws connection closed with error")
		}
	}

	_ = ws.Close(status, reason)
	logger.Info().Msg("connection closed")
}

// bind registers conn under its user id and closes the connection it replaces.
func (h *WSHandler) bind(conn core.Conn, logger *zerolog.Logger) {
	if prev, replaced := h.registry.Register(conn.UserID(), conn); replaced {
		logger.Info().Str("replaced_conn_id", prev.ID()).Msg("user reconnected, closing previous connection")
		prev.Close(reasonReplaced)
	}
	logger.Info().Msg("connection registered")
}

// readLoop handles one frame at a time; a request is fully processed,
// including its fan-out, before the next frame is read.
func (h *WSHandler) readLoop(ctx context.Context, conn *wsConn, logger *zerolog.Logger) error {
	sess := rpc.NewSession()
	limiter := newRateLimiter(h.cfg.RateLimit)

	for {
		_, data, err := conn.ws.Read(ctx)
		if err != nil {
			return err
		}

		var req proto.Request
		if err := json.Unmarshal(data, &req); err != nil {
			logger.Debug().Err(err).Msg("undecodable envelope")
			if werr := conn.ReplyError(ctx, nil, rpc.ParseError(err)); werr != nil {
				return werr
			}
			continue
		}

		if !limiter.allow() {
			logger.Warn().Str("method", string(req.Method)).Msg("rate limit exceeded")
			if req.IsNotification() {
				continue
			}
			if werr := conn.ReplyError(ctx, req.ID, &proto.Error{
				Code:    codeRateLimited,
				Message: "rate limit exceeded",
				Data:    &proto.ErrorData{Kind: kindRateLimited, Method: string(req.Method)},
			}); werr != nil {
				return werr
			}
			continue
		}

		if err := h.dispatcher.Dispatch(ctx, conn, sess, &req); err != nil {
			event := logger.Debug()
			if errors.Is(err, rpc.ErrUnknownMethod) || errors.Is(err, core.ErrDeliveryFailure) {
				event = logger.Warn()
			}
			event.Err(err).Str("method", string(req.Method)).Msg("request failed")
		}
	}
}

// wsConn is the registry handle of a WebSocket connection.
// Pushes are written synchronously and bound to the receiving connection's
// lifetime, never to the sender's request.
type wsConn struct {
	id     string
	userID string
	ws     *websocket.Conn
	ctx    context.Context

	closeOnce sync.Once
}

func newWSConn(ctx context.Context, id, userID string, ws *websocket.Conn) *wsConn {
	return &wsConn{id: id, userID: userID, ws: ws, ctx: ctx}
}

func (c *wsConn) ID() string     { return c.id }
func (c *wsConn) UserID() string { return c.userID }

func (c *wsConn) Deliver(_ context.Context, ev *core.Event) error {
	n, err := notificationFromEvent(ev)
	if err != nil {
		return err
	}
	return wsjson.Write(c.ctx, c.ws, n)
}

func (c *wsConn) Reply(ctx context.Context, id json.RawMessage, result any) error {
	return wsjson.Write(ctx, c.ws, proto.Response{JSONRPC: proto.Version, ID: id, Result: result})
}

func (c *wsConn) ReplyError(ctx context.Context, id json.RawMessage, rpcErr *proto.Error) error {
	return wsjson.Write(ctx, c.ws, proto.Response{JSONRPC: proto.Version, ID: id, Error: rpcErr})
}

// Close starts the close handshake without waiting for the peer; the
// connection's own read loop observes it and unwinds.
func (c *wsConn) Close(reason string) {
	c.closeOnce.Do(func() {
		go func() {
			_ = c.ws.Close(websocket.StatusPolicyViolation, reason)
		}()
	})
}

var _ rpc.Conn = (*wsConn)(nil)
