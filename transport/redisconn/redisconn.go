// Package redisconn carries dnet messages over Redis Pub/Sub: messages are
// published on one channel and frames arrive on one or more subscribed channels.
package redisconn

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/mrjvadi/go-dnet/transport"
)

var ErrNoChannels = errors.New("redisconn: outbound and inbound channels are required")

// Dialer opens Pub/Sub connections. The endpoint is a redis:// URL unless
// Client is set, in which case Client is used and left open on Close.
type Dialer struct {
	Client      *redis.Client
	Outbound    string
	Inbound     []string
	ChannelSize int
	Logger      *zap.Logger
}

func (d *Dialer) Dial(ctx context.Context, endpoint string, ev transport.Events) (transport.Conn, error) {
	if d.Outbound == "" || len(d.Inbound) == 0 {
		return nil, ErrNoChannels
	}
	logger := d.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	rdb, owned := d.Client, false
	if rdb == nil {
		opts, err := redis.ParseURL(endpoint)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		rdb, owned = redis.NewClient(opts), true
	}
	if err := rdb.Ping(ctx).Err(); err != nil {
		if owned {
			_ = rdb.Close()
		}
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	sub := rdb.Subscribe(ctx, d.Inbound...)
	// wait for the subscription to be confirmed before anything is published
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		if owned {
			_ = rdb.Close()
		}
		return nil, fmt.Errorf("redis subscribe: %w", err)
	}

	size := d.ChannelSize
	if size <= 0 {
		size = 1024
	}
	c := &Conn{
		rdb:      rdb,
		owned:    owned,
		sub:      sub,
		outbound: d.Outbound,
		ev:       ev.Fill(),
		logger:   logger,
		done:     make(chan struct{}),
	}
	c.ev.Open()
	go c.readLoop(sub.Channel(redis.WithChannelSize(size)))
	return c, nil
}

// Conn is an open Pub/Sub connection.
type Conn struct {
	rdb      *redis.Client
	owned    bool
	sub      *redis.PubSub
	outbound string
	ev       transport.Events
	logger   *zap.Logger
	once     sync.Once
	done     chan struct{}
}

func (c *Conn) readLoop(ch <-chan *redis.Message) {
	defer c.ev.Close()
	for msg := range ch {
		c.ev.Frame([]byte(msg.Payload))
	}
	c.logger.Debug("redisconn: subscription channel closed", zap.String("outbound", c.outbound))
}

func (c *Conn) Send(ctx context.Context, msg []byte) error {
	select {
	case <-c.done:
		return transport.ErrClosed
	default:
	}
	if err := c.rdb.Publish(ctx, c.outbound, msg).Err(); err != nil {
		return fmt.Errorf("redis publish: %w", err)
	}
	return nil
}

func (c *Conn) Close() error {
	var err error
	c.once.Do(func() {
		close(c.done)
		err = c.sub.Close()
		if c.owned {
			if cerr := c.rdb.Close(); err == nil {
				err = cerr
			}
		}
	})
	return err
}
