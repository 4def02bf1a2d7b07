package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{
			name: "transient provider error",
			err:  &Error{Op: "generate", Transient: true, Err: errors.New("timeout")},
			want: true,
		},
		{
			name: "permanent provider error",
			err:  &Error{Op: "generate", Transient: false, Err: errors.New("bad request")},
			want: false,
		},
		{
			name: "wrapped transient error",
			err:  fmt.Errorf("call failed: %w", &Error{Op: "embed", Transient: true, Err: errors.New("timeout")}),
			want: true,
		},
		{
			name: "plain error",
			err:  errors.New("something else"),
			want: false,
		},
		{
			name: "nil error",
			err:  nil,
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsTransient(tt.err); got != tt.want {
				t.Errorf("IsTransient() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNewStatusError(t *testing.T) {
	tests := []struct {
		status        int
		wantTransient bool
	}{
		{http.StatusTooManyRequests, true},
		{http.StatusInternalServerError, true},
		{http.StatusBadGateway, true},
		{http.StatusServiceUnavailable, true},
		{http.StatusBadRequest, false},
		{http.StatusUnauthorized, false},
		{http.StatusNotFound, false},
		{http.StatusUnprocessableEntity, false},
	}

	for _, tt := range tests {
		err := newStatusError("generate", tt.status, fmt.Errorf("bad status %d", tt.status))
		if err.Transient != tt.wantTransient {
			t.Errorf("newStatusError(%d) transient = %v, want %v", tt.status, err.Transient, tt.wantTransient)
		}
	}
}

func TestNewTransportError(t *testing.T) {
	if err := newTransportError("generate", context.Canceled); err.Transient {
		t.Error("newTransportError(context.Canceled) should be permanent")
	}
	if err := newTransportError("generate", errors.New("connection refused")); !err.Transient {
		t.Error("newTransportError(connection error) should be transient")
	}
}

func TestError_Unwrap(t *testing.T) {
	inner := errors.New("inner")
	err := &Error{Op: "embed", Transient: true, Err: inner}
	if !errors.Is(err, inner) {
		t.Error("errors.Is() should reach the wrapped error")
	}
	if err.Error() == "" {
		t.Error("Error() should describe the failure")
	}
}
