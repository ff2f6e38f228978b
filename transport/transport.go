// Package transport defines the boundary between the dnet router and the
// duplex connection that carries its messages.
package transport

import (
	"context"
	"errors"
)

// ErrClosed is returned by Send after the connection has been closed.
var ErrClosed = errors.New("transport: connection closed")

// Events are the hooks a Dialer installs on the connection it opens.
// Frame must be called from a single goroutine, in arrival order.
type Events struct {
	Frame func(raw []byte)
	Open  func()
	Error func(err error)
	Close func()
}

// Conn is an established connection.
type Conn interface {
	// Send writes one serialized message.
	Send(ctx context.Context, msg []byte) error
	Close() error
}

// Dialer opens a connection to endpoint and wires ev to it.
type Dialer interface {
	Dial(ctx context.Context, endpoint string, ev Events) (Conn, error)
}

// DialerFunc adapts a function to Dialer.
type DialerFunc func(ctx context.Context, endpoint string, ev Events) (Conn, error)

func (f DialerFunc) Dial(ctx context.Context, endpoint string, ev Events) (Conn, error) {
	return f(ctx, endpoint, ev)
}

// Fill replaces missing hooks with no-ops so implementations can call them unconditionally.
func (ev Events) Fill() Events {
	if ev.Frame == nil {
		ev.Frame = func([]byte) {}
	}
	if ev.Open == nil {
		ev.Open = func() {}
	}
	if ev.Error == nil {
		ev.Error = func(error) {}
	}
	if ev.Close == nil {
		ev.Close = func() {}
	}
	return ev
}
