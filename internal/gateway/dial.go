package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"runtime"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/soyeahso/kirpich/internal/version"
)

// CallError is an error response received from the bridge.
type CallError struct {
	Method string
	Shape  ErrorShape
}

func (e *CallError) Error() string {
	return fmt.Sprintf("%s: %s (%s)", e.Method, e.Shape.Message, e.Shape.Code)
}

// Conn is a command-line connection to a running bridge. Calls are
// serialized; events received while waiting for a response are dropped.
type Conn struct {
	ws    *websocket.Conn
	Hello HelloOK

	mu  sync.Mutex
	seq int
}

// Dial connects to the bridge WebSocket at url and completes the
// handshake.
func Dial(ctx context.Context, url string, auth ConnectAuth) (*Conn, error) {
	dialer := websocket.Dialer{HandshakeTimeout: handshakeTimeout}
	ws, _, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dialing bridge: %w", err)
	}

	c := &Conn{ws: ws}
	if err := c.handshake(ctx, auth); err != nil {
		ws.Close()
		return nil, err
	}
	return c, nil
}

func (c *Conn) handshake(ctx context.Context, auth ConnectAuth) error {
	c.deadline(ctx)

	var challenge Frame
	if err := c.ws.ReadJSON(&challenge); err != nil {
		return fmt.Errorf("reading challenge: %w", err)
	}
	if challenge.Event != EventChallenge {
		return fmt.Errorf("unexpected first frame %q", challenge.Event)
	}

	var hello HelloOK
	err := c.roundTrip(ctx, "connect", ConnectParams{
		MinProtocol: ProtocolVersion,
		MaxProtocol: ProtocolVersion,
		Client: ClientInfo{
			ID:       "kirpich-cli",
			Version:  version.Version,
			Platform: runtime.GOOS,
			Mode:     "cli",
		},
		Auth:      &auth,
		UserAgent: version.UserAgent(),
	}, &hello)
	if err != nil {
		return err
	}
	c.Hello = hello
	return nil
}

// Call invokes method and decodes the response payload into out, which
// may be nil.
func (c *Conn) Call(ctx context.Context, method string, params, out any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.deadline(ctx)
	return c.roundTrip(ctx, method, params, out)
}

func (c *Conn) roundTrip(ctx context.Context, method string, params, out any) error {
	c.seq++
	id := strconv.Itoa(c.seq)
	req, err := NewRequest(id, method, params)
	if err != nil {
		return err
	}
	if err := c.ws.WriteJSON(req); err != nil {
		return fmt.Errorf("sending %s: %w", method, err)
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		var f Frame
		if err := c.ws.ReadJSON(&f); err != nil {
			return fmt.Errorf("reading %s response: %w", method, err)
		}
		if f.Type != FrameTypeResponse || f.ID != id {
			continue
		}
		if f.OK == nil || !*f.OK {
			shape := ErrorShape{Code: CodeInternal, Message: "malformed error response"}
			if f.Error != nil {
				shape = *f.Error
			}
			return &CallError{Method: method, Shape: shape}
		}
		if out == nil || len(f.Payload) == 0 {
			return nil
		}
		return json.Unmarshal(f.Payload, out)
	}
}

func (c *Conn) deadline(ctx context.Context) {
	d, ok := ctx.Deadline()
	if !ok {
		d = time.Now().Add(writeTimeout)
	}
	c.ws.SetReadDeadline(d)
	c.ws.SetWriteDeadline(d)
}

// Close closes the connection.
func (c *Conn) Close() error {
	c.ws.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	return c.ws.Close()
}
