// Package retry wraps stage execution in a bounded retry loop with
// exponential backoff and jitter. Only failures classified as transient
// trigger re-invocation; everything else propagates immediately.
package retry

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"net"
	"syscall"
	"time"
)

// ErrTransient marks a failure as retryable. Wrap errors with Transient to
// opt them into the retry loop, or rely on the network failure classes
// recognized by IsTransient.
var ErrTransient = errors.New("transient failure")

// Transient wraps err so IsTransient reports it as retryable.
// Returns nil when err is nil.
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrTransient, err)
}

// IsTransient reports whether err is a retryable failure: anything wrapped
// with Transient, a timeout, or a connection-level network failure.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrTransient) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	return errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ETIMEDOUT)
}

// Policy bounds the retry loop: up to MaxAttempts invocations with intervals
// starting at InitialInterval, multiplied by BackoffFactor each attempt,
// capped at MaxInterval, with optional random jitter.
type Policy struct {
	MaxAttempts     int
	InitialInterval time.Duration
	BackoffFactor   float64
	MaxInterval     time.Duration
	Jitter          bool
}

// DefaultPolicy mirrors the configuration defaults: 3 attempts starting at
// 1s, doubling, capped at 30s, with jitter.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:     3,
		InitialInterval: time.Second,
		BackoffFactor:   2.0,
		MaxInterval:     30 * time.Second,
		Jitter:          true,
	}
}

// Do invokes fn until it succeeds, fails non-transiently, or the attempt
// ceiling is reached. The final error is returned unchanged so callers can
// classify it. Context cancellation aborts the backoff wait.
func (p Policy) Do(ctx context.Context, fn func(context.Context) error) error {
	attempts := max(p.MaxAttempts, 1)
	interval := p.InitialInterval

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		err = fn(ctx)
		if err == nil || !IsTransient(err) {
			return err
		}
		if attempt == attempts {
			break
		}

		if err := sleep(ctx, p.backoff(interval)); err != nil {
			return err
		}
		interval = p.next(interval)
	}

	return err
}

// backoff applies jitter to the interval: a random duration in
// [interval/2, interval] when enabled.
func (p Policy) backoff(interval time.Duration) time.Duration {
	if !p.Jitter || interval <= 0 {
		return interval
	}
	half := interval / 2
	return half + rand.N(half+1)
}

func (p Policy) next(interval time.Duration) time.Duration {
	factor := p.BackoffFactor
	if factor <= 1 {
		factor = 1
	}
	next := time.Duration(float64(interval) * factor)
	if p.MaxInterval > 0 && next > p.MaxInterval {
		next = p.MaxInterval
	}
	return next
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
