package retry_test

import (
	"context"
	"errors"
	"fmt"
	"net"
	"syscall"
	"testing"
	"time"

	"github.com/JaimeStill/dossier/pkg/retry"
)

func fastPolicy(attempts int) retry.Policy {
	return retry.Policy{
		MaxAttempts:     attempts,
		InitialInterval: time.Microsecond,
		BackoffFactor:   2.0,
		MaxInterval:     time.Millisecond,
	}
}

func TestDoSucceedsFirstAttempt(t *testing.T) {
	calls := 0
	err := fastPolicy(3).Do(context.Background(), func(context.Context) error {
		calls++
		return nil
	})
	if err != nil {
		t.Fatalf("Do() error: %v", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestDoRetriesTransientUpToCeiling(t *testing.T) {
	boom := retry.Transient(errors.New("boom"))
	calls := 0

	err := fastPolicy(3).Do(context.Background(), func(context.Context) error {
		calls++
		return boom
	})

	if calls != 3 {
		t.Errorf("calls = %d, want exactly MaxAttempts", calls)
	}
	if !errors.Is(err, retry.ErrTransient) {
		t.Errorf("Do() final error = %v, want the transient failure", err)
	}
}

func TestDoRecoversMidway(t *testing.T) {
	calls := 0
	err := fastPolicy(5).Do(context.Background(), func(context.Context) error {
		calls++
		if calls < 3 {
			return retry.Transient(errors.New("flaky"))
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Do() error: %v", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestDoNonTransientFailsImmediately(t *testing.T) {
	boom := errors.New("permanent")
	calls := 0

	err := fastPolicy(5).Do(context.Background(), func(context.Context) error {
		calls++
		return boom
	})

	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
	if !errors.Is(err, boom) {
		t.Errorf("Do() error = %v, want %v", err, boom)
	}
}

func TestDoContextCancelDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	policy := retry.Policy{MaxAttempts: 3, InitialInterval: time.Minute}
	calls := 0

	done := make(chan error, 1)
	go func() {
		done <- policy.Do(ctx, func(context.Context) error {
			calls++
			return retry.Transient(errors.New("slow"))
		})
	}()

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Do() error = %v, want context.Canceled", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Do() did not abort backoff on cancellation")
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"wrapped transient", retry.Transient(errors.New("x")), true},
		{"deadline exceeded", context.DeadlineExceeded, true},
		{"net timeout", &net.OpError{Err: timeoutErr{}}, true},
		{"connection refused", fmt.Errorf("dial: %w", syscall.ECONNREFUSED), true},
		{"connection reset", syscall.ECONNRESET, true},
		{"plain error", errors.New("boom"), false},
		{"canceled", context.Canceled, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := retry.IsTransient(tt.err); got != tt.want {
				t.Errorf("IsTransient(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestTransientNil(t *testing.T) {
	if retry.Transient(nil) != nil {
		t.Error("Transient(nil) should be nil")
	}
}
