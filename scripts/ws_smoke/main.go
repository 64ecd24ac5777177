package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/vovakirdan/wirecall-server/internal/proto"
)

func main() {
	if err := run(); err != nil {
		log.Printf("ws_smoke: %v", err)
		os.Exit(1)
	}
}

func run() error {
	addr := flag.String("addr", "ws://localhost:8080/ws", "WebSocket address")
	user := flag.String("user", "tester", "user id to connect as")
	targets := flag.String("targets", "", "comma separated user ids to invite; empty only joins")
	media := flag.String("media", "audio", "typeOfMedia sent with the invite")
	session := flag.String("session", "smoke-session", "typeOfSession sent with the invite")
	timeout := flag.Duration("timeout", 5*time.Second, "total timeout for the run")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	u, err := url.Parse(*addr)
	if err != nil {
		return fmt.Errorf("parse addr: %w", err)
	}
	q := u.Query()
	q.Set("userId", *user)
	u.RawQuery = q.Encode()

	conn, _, err := websocket.Dial(ctx, u.String(), nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "bye")

	mustSend := func(id int, method proto.Method, params any) error {
		req := proto.Request{JSONRPC: proto.Version, ID: json.RawMessage(fmt.Sprint(id)), Method: method}
		if params != nil {
			raw, err := json.Marshal(params)
			if err != nil {
				return fmt.Errorf("marshal %s: %w", method, err)
			}
			req.Params = raw
		}
		if err := wsjson.Write(ctx, conn, req); err != nil {
			return fmt.Errorf("send %s: %w", method, err)
		}
		return nil
	}

	if err := mustSend(1, proto.MethodJoinCloud, nil); err != nil {
		return err
	}

	if ids := splitIDs(*targets); len(ids) > 0 {
		list, err := json.Marshal(ids)
		if err != nil {
			return fmt.Errorf("marshal targets: %w", err)
		}
		if err := mustSend(2, proto.MethodInvited, proto.InviteParams{
			UserID:        *user,
			Number:        len(ids),
			Targets:       string(list),
			TypeOfMedia:   *media,
			TypeOfSession: *session,
		}); err != nil {
			return err
		}
	}

	for {
		var frame json.RawMessage
		if err := wsjson.Read(ctx, conn, &frame); err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				return nil
			}
			return fmt.Errorf("read: %w", err)
		}
		fmt.Printf("Received: %s\n", frame)
	}
}

func splitIDs(s string) []string {
	var ids []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			ids = append(ids, part)
		}
	}
	return ids
}
