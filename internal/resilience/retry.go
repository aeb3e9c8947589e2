// Package resilience retries operations that fail for reasons expected to
// pass: Census servers throttling a download, or the gazetteer store
// rejecting a write under contention.
package resilience

import (
	"context"
	"math"
	"math/rand"
	"time"

	"go.uber.org/zap"
)

// RetryConfig controls the retry loop.
type RetryConfig struct {
	// MaxAttempts counts the first try as well, so 1 disables retries.
	MaxAttempts int

	// InitialBackoff is the delay after the first failed attempt.
	InitialBackoff time.Duration

	// MaxBackoff caps the delay between attempts.
	MaxBackoff time.Duration

	// Multiplier grows the delay after every failed attempt.
	Multiplier float64

	// JitterFraction randomizes each delay by up to this fraction in either
	// direction, so parallel workers do not retry in lockstep.
	JitterFraction float64

	// ShouldRetry decides whether an error is worth another attempt.
	// IsTransient when nil.
	ShouldRetry func(err error) bool

	// OnRetry runs before each backoff sleep with the failed attempt number,
	// counted from one.
	OnRetry func(attempt int, err error)
}

// DefaultRetryConfig covers the operations this tool retries: three
// attempts, half a second initial backoff doubling to at most thirty
// seconds, a quarter jitter.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:    3,
		InitialBackoff: 500 * time.Millisecond,
		MaxBackoff:     30 * time.Second,
		Multiplier:     2,
		JitterFraction: 0.25,
	}
}

// Do runs fn until it succeeds, fails permanently, exhausts the attempts or
// ctx is cancelled. The error of the last attempt is returned.
func Do(ctx context.Context, cfg RetryConfig, fn func(ctx context.Context) error) error {
	_, err := DoVal(ctx, cfg, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

// DoVal is Do for functions that return a value. Failed attempts discard
// their value; the value of the succeeding attempt is returned as is.
func DoVal[T any](ctx context.Context, cfg RetryConfig, fn func(ctx context.Context) (T, error)) (T, error) {
	cfg = cfg.withDefaults()
	shouldRetry := cfg.ShouldRetry
	if shouldRetry == nil {
		shouldRetry = IsTransient
	}

	var zero T
	var lastErr error
	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		val, err := fn(ctx)
		if err == nil {
			return val, nil
		}
		lastErr = err

		if ctx.Err() != nil || !shouldRetry(err) || attempt == cfg.MaxAttempts {
			break
		}
		if cfg.OnRetry != nil {
			cfg.OnRetry(attempt, err)
		}
		if !sleep(ctx, cfg.backoff(attempt)) {
			break
		}
	}
	return zero, lastErr
}

func (cfg RetryConfig) withDefaults() RetryConfig {
	def := DefaultRetryConfig()
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = def.MaxAttempts
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = def.InitialBackoff
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = def.MaxBackoff
	}
	if cfg.Multiplier <= 0 {
		cfg.Multiplier = def.Multiplier
	}
	if cfg.JitterFraction < 0 {
		cfg.JitterFraction = 0
	}
	return cfg
}

// backoff returns the delay after the given failed attempt: exponential in
// the attempt number, capped, jittered.
func (cfg RetryConfig) backoff(attempt int) time.Duration {
	d := float64(cfg.InitialBackoff) * math.Pow(cfg.Multiplier, float64(attempt-1))
	d = math.Min(d, float64(cfg.MaxBackoff))
	if cfg.JitterFraction > 0 {
		d += d * cfg.JitterFraction * (2*rand.Float64() - 1)
	}
	return time.Duration(math.Max(d, 0))
}

// sleep waits for d and reports false when ctx was cancelled first.
func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// RetryLogger returns an OnRetry callback that warns through the global
// logger.
func RetryLogger(component, operation string) func(int, error) {
	return func(attempt int, err error) {
		zap.L().Warn("retrying",
			zap.String("component", component),
			zap.String("operation", operation),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
	}
}
