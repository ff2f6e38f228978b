package dnet

import (
	"go.uber.org/zap"
)

type Option func(*Router)

func WithLogger(l *zap.Logger) Option {
	return func(r *Router) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithIDSource replaces the correlation id source (random UUIDs by default).
func WithIDSource(source func() string) Option {
	return func(r *Router) {
		if source != nil {
			r.idSource = source
		}
	}
}
