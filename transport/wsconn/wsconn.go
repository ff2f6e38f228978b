// Package wsconn carries dnet messages as WebSocket text frames.
package wsconn

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/mrjvadi/go-dnet/transport"
)

// Dialer opens WebSocket connections.
type Dialer struct {
	Header           http.Header
	HandshakeTimeout time.Duration
	// ReadLimit caps the size of one inbound frame; zero means no limit.
	ReadLimit int64
}

func (d *Dialer) Dial(ctx context.Context, endpoint string, ev transport.Events) (transport.Conn, error) {
	wd := *websocket.DefaultDialer
	if d.HandshakeTimeout > 0 {
		wd.HandshakeTimeout = d.HandshakeTimeout
	}
	ws, resp, err := wd.DialContext(ctx, endpoint, d.Header)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", endpoint, err)
	}
	if d.ReadLimit > 0 {
		ws.SetReadLimit(d.ReadLimit)
	}

	c := &Conn{ws: ws, ev: ev.Fill(), done: make(chan struct{})}
	c.ev.Open()
	go c.readLoop()
	return c, nil
}

// Conn is an open WebSocket connection.
type Conn struct {
	ws *websocket.Conn
	ev transport.Events

	// gorilla allows one concurrent writer
	writeMu sync.Mutex
	once    sync.Once
	done    chan struct{}
}

func (c *Conn) readLoop() {
	defer c.ev.Close()
	for {
		typ, data, err := c.ws.ReadMessage()
		if err != nil {
			select {
			case <-c.done:
			default:
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					c.ev.Error(err)
				}
				_ = c.ws.Close()
			}
			return
		}
		if typ != websocket.TextMessage && typ != websocket.BinaryMessage {
			continue
		}
		c.ev.Frame(data)
	}
}

func (c *Conn) Send(ctx context.Context, msg []byte) error {
	select {
	case <-c.done:
		return transport.ErrClosed
	default:
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Time{}
	}
	if err := c.ws.SetWriteDeadline(deadline); err != nil {
		return err
	}
	if err := c.ws.WriteMessage(websocket.TextMessage, msg); err != nil {
		if errors.Is(err, websocket.ErrCloseSent) {
			return transport.ErrClosed
		}
		return fmt.Errorf("write: %w", err)
	}
	return nil
}

// Close sends a normal close frame and closes the socket.
func (c *Conn) Close() error {
	var err error
	c.once.Do(func() {
		close(c.done)
		c.writeMu.Lock()
		_ = c.ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		c.writeMu.Unlock()
		err = c.ws.Close()
	})
	return err
}
