package types

import (
	"errors"
	"testing"
)

func TestError_ChainingAndHelpers(t *testing.T) {
	t.Parallel()

	root := errors.New("root")
	err := NewError(ErrProvider, "upstream failed").
		WithCause(root).
		WithDetails("502 from feed registry").
		WithRetryable(true).
		WithProvider("chainlink")

	if err.Code != ErrProvider {
		t.Fatalf("expected code %s, got %s", ErrProvider, err.Code)
	}
	if !IsRetryable(err) {
		t.Fatalf("expected retryable")
	}
	if !errors.Is(err, root) {
		t.Fatalf("expected errors.Is unwrap to root")
	}
	if got := err.Error(); got == "" {
		t.Fatalf("expected non-empty error string")
	}
	if err.UserMessage() == "" {
		t.Fatalf("expected non-empty user message")
	}
}

func TestIsRetriableKind(t *testing.T) {
	t.Parallel()

	for _, k := range []ErrorCode{ErrRateLimit, ErrTimeout, ErrNetwork, ErrProvider} {
		if !IsRetriableKind(k) {
			t.Fatalf("expected %s to be retriable", k)
		}
	}
	for _, k := range []ErrorCode{ErrValidation, ErrAuth, ErrUnsupported, ErrRouting} {
		if IsRetriableKind(k) {
			t.Fatalf("expected %s to not be retriable", k)
		}
	}
}
