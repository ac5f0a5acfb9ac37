package app

import (
	"log/slog"
	"time"
)

// DefaultAdmissionTimeout bounds how long an admission may wait for its
// workshop's serialization point and transaction.
const DefaultAdmissionTimeout = 5 * time.Second

type options struct {
	logger  *slog.Logger
	timeout time.Duration
}

// Option configures a Portal.
type Option func(*options)

// WithLogger sets the structured logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithAdmissionTimeout bounds the wait for a workshop's serialization point.
func WithAdmissionTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.timeout = d
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{
		logger:  slog.Default(),
		timeout: DefaultAdmissionTimeout,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
