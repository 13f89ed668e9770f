package app

import (
	"io"
	"log/slog"
	"math/rand"
	"time"
)

// RetryPolicy bounds how often a unit of work is replayed after a conflict.
type RetryPolicy struct {
	MaxAttempts     int
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// DefaultRetryPolicy is used when no policy is configured.
var DefaultRetryPolicy = RetryPolicy{
	MaxAttempts:     5,
	InitialInterval: 20 * time.Millisecond,
	MaxInterval:     500 * time.Millisecond,
}

// Option customizes a service.
type Option func(*options)

type options struct {
	now      func() time.Time
	logger   *slog.Logger
	retry    RetryPolicy
	pick     func(n int) int
	identity IdentityVerifier
}

func buildOptions(opts []Option) options {
	o := options{
		now:    time.Now,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		retry:  DefaultRetryPolicy,
		pick:   rand.Intn,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithClock allows deterministic timestamps in tests.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

func WithRetryPolicy(p RetryPolicy) Option {
	return func(o *options) {
		if p.MaxAttempts > 0 {
			o.retry = p
		}
	}
}

// WithPicker replaces the random choice used for shuffles and hint templates.
// pick(n) must return a value in [0, n).
func WithPicker(pick func(n int) int) Option {
	return func(o *options) { o.pick = pick }
}

// WithIdentityVerifier enables sign-in with identity provider tokens on Accounts.
func WithIdentityVerifier(v IdentityVerifier) Option {
	return func(o *options) { o.identity = v }
}
