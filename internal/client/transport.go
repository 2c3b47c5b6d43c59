package client

import (
	"context"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"pixelsync/internal/proto"
)

// transport abstracts the WebSocket connection so controller tests can
// substitute an in-memory pipe.
type transport interface {
	Read(ctx context.Context) (proto.Envelope, error)
	Write(ctx context.Context, env proto.Envelope) error
	Close(reason string) error
}

// dialFunc opens a transport to the given URL.
type dialFunc func(ctx context.Context, url string) (transport, error)

// wsTransport is the production transport over coder/websocket.
type wsTransport struct {
	conn *websocket.Conn
}

func dialWebSocket(ctx context.Context, url string) (transport, error) {
	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		return nil, err
	}
	// Full-state snapshots from the host can be large.
	conn.SetReadLimit(32 << 20)
	return &wsTransport{conn: conn}, nil
}

func (t *wsTransport) Read(ctx context.Context) (proto.Envelope, error) {
	var env proto.Envelope
	if err := wsjson.Read(ctx, t.conn, &env); err != nil {
		return proto.Envelope{}, err
	}
	return env, nil
}

func (t *wsTransport) Write(ctx context.Context, env proto.Envelope) error {
	return wsjson.Write(ctx, t.conn, env)
}

func (t *wsTransport) Close(reason string) error {
	return t.conn.Close(websocket.StatusNormalClosure, reason)
}
