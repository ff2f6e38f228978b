// Package memconn is an in-process transport. The test side of a Pipe reads
// what the router sent and injects frames for it to dispatch.
package memconn

import (
	"context"
	"errors"
	"sync"

	"github.com/mrjvadi/go-dnet/transport"
)

var ErrNoConn = errors.New("memconn: no open connection")

// Pipe is a Dialer whose connections are driven by the caller.
type Pipe struct {
	mu       sync.Mutex
	sent     chan []byte
	conn     *Conn
	endpoint string
	dialErr  error
	sendErr  error
}

// NewPipe returns a pipe that buffers up to buffer sent messages.
func NewPipe(buffer int) *Pipe {
	if buffer <= 0 {
		buffer = 64
	}
	return &Pipe{sent: make(chan []byte, buffer)}
}

// FailDial makes the next dials return err; nil restores normal dialing.
func (p *Pipe) FailDial(err error) {
	p.mu.Lock()
	p.dialErr = err
	p.mu.Unlock()
}

// FailSend makes Send return err; nil restores normal sending.
func (p *Pipe) FailSend(err error) {
	p.mu.Lock()
	p.sendErr = err
	p.mu.Unlock()
}

func (p *Pipe) Dial(_ context.Context, endpoint string, ev transport.Events) (transport.Conn, error) {
	p.mu.Lock()
	if p.dialErr != nil {
		err := p.dialErr
		p.mu.Unlock()
		return nil, err
	}
	c := &Conn{
		pipe:  p,
		ev:    ev.Fill(),
		inbox: make(chan []byte, cap(p.sent)),
		done:  make(chan struct{}),
	}
	p.conn = c
	p.endpoint = endpoint
	p.mu.Unlock()

	c.ev.Open()
	go c.loop()
	return c, nil
}

// Sent yields every message the router sent, in order.
func (p *Pipe) Sent() <-chan []byte { return p.sent }

// Endpoint is the endpoint of the last dial.
func (p *Pipe) Endpoint() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.endpoint
}

// Deliver queues a frame on the current connection.
func (p *Pipe) Deliver(frame []byte) error {
	c := p.current()
	if c == nil {
		return ErrNoConn
	}
	select {
	case <-c.done:
		return transport.ErrClosed
	default:
	}
	select {
	case c.inbox <- frame:
		return nil
	case <-c.done:
		return transport.ErrClosed
	}
}

// Fail reports err on the current connection and closes it.
func (p *Pipe) Fail(err error) {
	c := p.current()
	if c == nil {
		return
	}
	c.ev.Error(err)
	_ = c.Close()
}

func (p *Pipe) current() *Conn {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.conn
}

// Conn is one connection opened by a Pipe.
type Conn struct {
	pipe  *Pipe
	ev    transport.Events
	inbox chan []byte
	done  chan struct{}
	once  sync.Once
}

func (c *Conn) loop() {
	defer c.ev.Close()
	for {
		select {
		case <-c.done:
			return
		case frame := <-c.inbox:
			c.ev.Frame(frame)
		}
	}
}

func (c *Conn) Send(ctx context.Context, msg []byte) error {
	c.pipe.mu.Lock()
	err := c.pipe.sendErr
	c.pipe.mu.Unlock()
	if err != nil {
		return err
	}
	b := append([]byte(nil), msg...)
	select {
	case <-c.done:
		return transport.ErrClosed
	default:
	}
	select {
	case c.pipe.sent <- b:
		return nil
	case <-c.done:
		return transport.ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Conn) Close() error {
	c.once.Do(func() { close(c.done) })
	return nil
}
