// Package config loads client configuration from environment variables.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/mrjvadi/go-dnet/transport"
	"github.com/mrjvadi/go-dnet/transport/natsconn"
	"github.com/mrjvadi/go-dnet/transport/redisconn"
	"github.com/mrjvadi/go-dnet/transport/wsconn"
)

const (
	TransportWebSocket = "ws"
	TransportRedis     = "redis"
	TransportNATS      = "nats"
)

// Config holds dnet client configuration.
type Config struct {
	Endpoint  string `envconfig:"DNET_ENDPOINT"`
	Transport string `envconfig:"DNET_TRANSPORT" default:"ws"`

	// Pub/Sub transports publish on Outbound and read frames from Inbound.
	Outbound   string   `envconfig:"DNET_OUTBOUND" default:"dnet.in"`
	Inbound    []string `envconfig:"DNET_INBOUND" default:"dnet.out"`
	ClientName string   `envconfig:"DNET_CLIENT_NAME" default:"dnet-client"`

	RequestTimeout   time.Duration `envconfig:"DNET_REQUEST_TIMEOUT" default:"5s"`
	HandshakeTimeout time.Duration `envconfig:"DNET_HANDSHAKE_TIMEOUT" default:"10s"`

	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
}

// Load reads the configuration from the environment.
func Load() (*Config, error) {
	var c Config
	if err := envconfig.Process("", &c); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate checks the settings needed to connect.
func (c *Config) Validate() error {
	if c.Endpoint == "" {
		return fmt.Errorf("config: DNET_ENDPOINT is required")
	}
	switch c.Transport {
	case TransportWebSocket:
	case TransportRedis, TransportNATS:
		if c.Outbound == "" || len(c.Inbound) == 0 {
			return fmt.Errorf("config: DNET_OUTBOUND and DNET_INBOUND are required for %s", c.Transport)
		}
	default:
		return fmt.Errorf("config: unknown DNET_TRANSPORT %q (use ws, redis, nats)", c.Transport)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("config: DNET_REQUEST_TIMEOUT must be positive")
	}
	if c.HandshakeTimeout <= 0 {
		return fmt.Errorf("config: DNET_HANDSHAKE_TIMEOUT must be positive")
	}
	return nil
}

// Dialer builds the transport selected by Transport.
func (c *Config) Dialer(logger *zap.Logger) (transport.Dialer, error) {
	switch c.Transport {
	case TransportWebSocket:
		return &wsconn.Dialer{HandshakeTimeout: c.HandshakeTimeout}, nil
	case TransportRedis:
		return &redisconn.Dialer{Outbound: c.Outbound, Inbound: c.Inbound, Logger: logger}, nil
	case TransportNATS:
		return &natsconn.Dialer{
			Name:     c.ClientName,
			Outbound: c.Outbound,
			Inbound:  c.Inbound,
			Timeout:  c.HandshakeTimeout,
		}, nil
	default:
		return nil, fmt.Errorf("config: unknown DNET_TRANSPORT %q", c.Transport)
	}
}

// NewLogger builds a production zap logger at level.
func NewLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(strings.ToLower(level))
	if err != nil {
		return nil, fmt.Errorf("config: invalid LOG_LEVEL %q: %w", level, err)
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	return cfg.Build()
}
