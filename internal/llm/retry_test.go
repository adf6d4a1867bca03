package llm

import (
	"context"
	"testing"
	"time"
)

func fastPolicy(attempts int) RetryPolicy {
	return RetryPolicy{MaxAttempts: attempts, BaseDelay: time.Millisecond, Multiplier: 1.1}
}

func TestRetryStopsOnSuccess(t *testing.T) {
	calls := 0
	err := fastPolicy(5).Do(context.Background(), func() error {
		calls++
		if calls < 3 {
			return Errf(KindRateLimited, "slow down")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 calls, got %d", calls)
	}
}

func TestRetryExhaustsOnRateLimit(t *testing.T) {
	calls := 0
	err := fastPolicy(3).Do(context.Background(), func() error {
		calls++
		return Errf(KindRateLimited, "slow down")
	})
	if err == nil {
		t.Fatalf("expected terminal failure")
	}
	if calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", calls)
	}
	if kind, ok := KindOf(err); !ok || kind != KindRateLimited {
		t.Fatalf("kind lost through retry: %v", err)
	}
}

func TestNoRetryOnAuthError(t *testing.T) {
	calls := 0
	err := fastPolicy(5).Do(context.Background(), func() error {
		calls++
		return Errf(KindAuth, "bad key")
	})
	if err == nil {
		t.Fatalf("expected failure")
	}
	if calls != 1 {
		t.Fatalf("auth errors must not be retried, got %d calls", calls)
	}
	if kind, _ := KindOf(err); kind != KindAuth {
		t.Fatalf("unexpected kind: %v", kind)
	}
}

func TestKindOfUnwrapsChains(t *testing.T) {
	base := Errf(KindModelLoading, "warming up")
	wrapped := wrap(KindTransient, "outer", base)
	// Outermost kind wins.
	if kind, ok := KindOf(wrapped); !ok || kind != KindTransient {
		t.Fatalf("got %v", kind)
	}
	if _, ok := KindOf(context.Canceled); ok {
		t.Fatalf("plain errors must not carry a kind")
	}
}
