package llm

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRetry(t *testing.T) {
	tests := []struct {
		name      string
		attempts  int
		errs      []error
		wantCalls int
		wantErr   bool
	}{
		{
			name:      "first try succeeds",
			attempts:  3,
			errs:      []error{nil},
			wantCalls: 1,
			wantErr:   false,
		},
		{
			name:     "transient then success",
			attempts: 3,
			errs: []error{
				&Error{Op: "generate", Transient: true, Err: errors.New("temporary")},
				nil,
			},
			wantCalls: 2,
			wantErr:   false,
		},
		{
			name:     "permanent error stops immediately",
			attempts: 3,
			errs: []error{
				&Error{Op: "generate", Transient: false, Err: errors.New("bad request")},
			},
			wantCalls: 1,
			wantErr:   true,
		},
		{
			name:     "plain error stops immediately",
			attempts: 3,
			errs: []error{
				errors.New("not a provider error"),
			},
			wantCalls: 1,
			wantErr:   true,
		},
		{
			name:     "attempts exhausted",
			attempts: 3,
			errs: []error{
				&Error{Op: "generate", Transient: true, Err: errors.New("one")},
				&Error{Op: "generate", Transient: true, Err: errors.New("two")},
				&Error{Op: "generate", Transient: true, Err: errors.New("three")},
			},
			wantCalls: 3,
			wantErr:   true,
		},
		{
			name:     "attempts floor of one",
			attempts: 0,
			errs: []error{
				&Error{Op: "generate", Transient: true, Err: errors.New("one")},
			},
			wantCalls: 1,
			wantErr:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			err := Retry(context.Background(), tt.attempts, time.Millisecond, func(ctx context.Context) error {
				call := tt.errs[calls]
				calls++
				return call
			})

			if calls != tt.wantCalls {
				t.Errorf("Retry() made %d calls, want %d", calls, tt.wantCalls)
			}
			if tt.wantErr && err == nil {
				t.Error("Retry() expected error, got nil")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("Retry() unexpected error: %v", err)
			}
		})
	}
}

func TestRetry_ReturnsLastError(t *testing.T) {
	first := &Error{Op: "generate", Transient: true, Err: errors.New("first")}
	last := &Error{Op: "generate", Transient: true, Err: errors.New("last")}

	calls := 0
	err := Retry(context.Background(), 2, time.Millisecond, func(ctx context.Context) error {
		calls++
		if calls == 1 {
			return first
		}
		return last
	})

	if !errors.Is(err, last.Err) {
		t.Errorf("Retry() error = %v, want the last attempt's error", err)
	}
}

func TestRetry_ContextCanceledDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	calls := 0
	err := Retry(ctx, 5, time.Hour, func(ctx context.Context) error {
		calls++
		cancel()
		return &Error{Op: "generate", Transient: true, Err: errors.New("temporary")}
	})

	if calls != 1 {
		t.Errorf("Retry() made %d calls after cancellation, want 1", calls)
	}
	if err == nil {
		t.Error("Retry() expected error, got nil")
	}
}

func TestWithJitter(t *testing.T) {
	base := 100 * time.Millisecond
	for i := 0; i < 50; i++ {
		d := withJitter(base)
		if d < base || d > base+base/2 {
			t.Fatalf("withJitter(%v) = %v, want within [%v, %v]", base, d, base, base+base/2)
		}
	}
	if withJitter(0) != 0 {
		t.Errorf("withJitter(0) = %v, want 0", withJitter(0))
	}
}
