// Package natsconn carries dnet messages over NATS subjects.
package natsconn

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/mrjvadi/go-dnet/transport"
)

var ErrNoSubjects = errors.New("natsconn: outbound and inbound subjects are required")

// Dialer connects to a NATS server. Messages are published on Outbound and
// frames are read from every Inbound subject through a single channel, which
// keeps them in arrival order.
type Dialer struct {
	Name     string
	Outbound string
	Inbound  []string
	Timeout  time.Duration
	// Buffer is the pending-frame channel size.
	Buffer int
}

func (d *Dialer) Dial(ctx context.Context, endpoint string, ev transport.Events) (transport.Conn, error) {
	if d.Outbound == "" || len(d.Inbound) == 0 {
		return nil, ErrNoSubjects
	}
	ev = ev.Fill()
	timeout := d.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if dl, ok := ctx.Deadline(); ok {
		left := time.Until(dl)
		if left <= 0 {
			return nil, context.DeadlineExceeded
		}
		if left < timeout {
			timeout = left
		}
	}

	c := &Conn{outbound: d.Outbound, ev: ev, done: make(chan struct{})}
	nc, err := nats.Connect(endpoint,
		nats.Name(d.Name),
		nats.Timeout(timeout),
		nats.NoReconnect(),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				ev.Error(err)
			}
		}),
		nats.ClosedHandler(func(_ *nats.Conn) {
			c.stop()
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	c.nc = nc

	buf := d.Buffer
	if buf <= 0 {
		buf = 1024
	}
	ch := make(chan *nats.Msg, buf)
	for _, subj := range d.Inbound {
		sub, err := nc.ChanSubscribe(subj, ch)
		if err != nil {
			nc.Close()
			return nil, fmt.Errorf("nats subscribe %s: %w", subj, err)
		}
		c.subs = append(c.subs, sub)
	}
	if err := flush(ctx, nc, timeout); err != nil {
		nc.Close()
		return nil, fmt.Errorf("nats flush: %w", err)
	}

	ev.Open()
	go c.readLoop(ch)
	return c, nil
}

// flush waits for the server to acknowledge the subscriptions. nats.go only
// accepts a context that carries a deadline.
func flush(ctx context.Context, nc *nats.Conn, timeout time.Duration) error {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return nc.FlushWithContext(ctx)
}

// Conn is an open NATS connection.
type Conn struct {
	nc       *nats.Conn
	subs     []*nats.Subscription
	outbound string
	ev       transport.Events
	once     sync.Once
	done     chan struct{}
}

func (c *Conn) readLoop(ch <-chan *nats.Msg) {
	defer c.ev.Close()
	for {
		select {
		case <-c.done:
			return
		case msg := <-ch:
			c.ev.Frame(msg.Data)
		}
	}
}

func (c *Conn) stop() {
	c.once.Do(func() { close(c.done) })
}

func (c *Conn) Send(ctx context.Context, msg []byte) error {
	select {
	case <-c.done:
		return transport.ErrClosed
	default:
	}
	if err := c.nc.Publish(c.outbound, msg); err != nil {
		if errors.Is(err, nats.ErrConnectionClosed) {
			return transport.ErrClosed
		}
		return fmt.Errorf("nats publish: %w", err)
	}
	if _, ok := ctx.Deadline(); ok {
		return c.nc.FlushWithContext(ctx)
	}
	return nil
}

func (c *Conn) Close() error {
	for _, sub := range c.subs {
		_ = sub.Unsubscribe()
	}
	c.nc.Close()
	c.stop()
	return nil
}
