package errors

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		contains []string
	}{
		{
			name: "error with cause",
			err: Wrap(KindFetch, "refresh", "token endpoint unreachable",
				errors.New("connection refused")),
			contains: []string{"[fetch:refresh]", "token endpoint unreachable", "connection refused"},
		},
		{
			name:     "error without cause",
			err:      New(KindToken, "verify", "token revoked"),
			contains: []string{"[token:verify]", "token revoked"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errStr := tt.err.Error()
			for _, substr := range tt.contains {
				if !strings.Contains(errStr, substr) {
					t.Errorf("error string %q does not contain %q", errStr, substr)
				}
			}
		})
	}
}

func TestError_Unwrap(t *testing.T) {
	originalErr := errors.New("original error")
	wrappedErr := Wrap(KindFetch, "test", "wrapped", originalErr)

	if !errors.Is(wrappedErr, originalErr) {
		t.Error("Unwrap should return the original error")
	}
}

func TestWrap_NilError(t *testing.T) {
	if err := Wrap(KindConfig, "load", "should vanish", nil); err != nil {
		t.Errorf("expected nil for nil cause, got %v", err)
	}
}

func TestWrap_PreservesTypedError(t *testing.T) {
	inner := New(KindFetch, "fetch", "backend rejected")
	outer := Wrap(KindToken, "refresh", "refresh failed", fmt.Errorf("context: %w", inner))

	if outer.Kind != KindFetch {
		t.Errorf("expected inner kind to win, got %s", outer.Kind)
	}
}

func TestIsKind(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		kind     Kind
		expected bool
	}{
		{
			name:     "direct error kind match",
			err:      New(KindFetch, "test", "message"),
			kind:     KindFetch,
			expected: true,
		},
		{
			name:     "wrapped error kind match",
			err:      Wrap(KindStorage, "test", "message", errors.New("cause")),
			kind:     KindStorage,
			expected: true,
		},
		{
			name:     "error kind mismatch",
			err:      New(KindConfig, "test", "message"),
			kind:     KindFetch,
			expected: false,
		},
		{
			name:     "non-typed error",
			err:      errors.New("plain error"),
			kind:     KindConfig,
			expected: false,
		},
		{
			name:     "nil error",
			err:      nil,
			kind:     KindConfig,
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsKind(tt.err, tt.kind); got != tt.expected {
				t.Errorf("IsKind() = %v, want %v", got, tt.expected)
			}
		})
	}
}
