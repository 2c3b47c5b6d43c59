// Command ws_smoke exercises the session broker end to end: it dials
// the server, creates a session, draws one trace, pings, and prints
// every event it receives until interrupted.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"pixelsync/internal/proto"
)

func main() {
	if err := run(); err != nil {
		log.Printf("ws_smoke: %v", err)
		os.Exit(1)
	}
}

func run() error {
	addr := flag.String("addr", "ws://localhost:8080/ws", "WebSocket address")
	name := flag.String("name", "smoke-session", "session name")
	user := flag.String("user", "smoke-user", "display name")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	conn, _, err := websocket.Dial(ctx, *addr, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "bye")

	send := func(msgType string, payload any) error {
		env, encErr := proto.Encode(msgType, payload)
		if encErr != nil {
			return fmt.Errorf("encode %s: %w", msgType, encErr)
		}
		return wsjson.Write(ctx, conn, env)
	}

	if err := send(proto.TypeCreateSession, proto.CreateSessionData{
		SessionName: *name,
		UserName:    *user,
		UserColor:   "#e43b44",
	}); err != nil {
		return err
	}

	if err := send(proto.TypeTraceComplete, proto.TraceCompleteData{
		Trace: proto.Trace{
			Tool:      "pencil",
			BrushSize: 1,
			Color:     "#e43b44",
			Points:    []proto.Point{{X: 0, Y: 0}, {X: 3, Y: 3}},
		},
	}); err != nil {
		return err
	}

	if err := send(proto.TypePing, proto.PingData{Timestamp: time.Now().UnixMilli()}); err != nil {
		return err
	}

	fmt.Printf("connected to %s, session %q; Ctrl+C to exit\n", *addr, *name)

	for {
		var env proto.Envelope
		if err := wsjson.Read(ctx, conn, &env); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("read: %w", err)
		}
		printEvent(env)
	}
}

func printEvent(env proto.Envelope) {
	switch env.Type {
	case proto.TypeSessionCreated:
		var data proto.SessionCreatedData
		if json.Unmarshal(env.Data, &data) == nil {
			fmt.Printf("<- session_created id=%s member=%s\n", data.SessionID, data.MemberID)
			return
		}
	case proto.TypePong:
		var data proto.PongData
		if json.Unmarshal(env.Data, &data) == nil {
			fmt.Printf("<- pong rtt=%dms\n", time.Now().UnixMilli()-data.Timestamp)
			return
		}
	case proto.TypeError:
		var data proto.ErrorData
		if json.Unmarshal(env.Data, &data) == nil {
			fmt.Printf("<- error %q\n", data.Error)
			return
		}
	}
	fmt.Printf("<- %s %s\n", env.Type, string(env.Data))
}
