package backoff

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestDo_SucceedsFirstAttempt(t *testing.T) {
	calls := 0
	got, err := Do(context.Background(), DefaultPolicy(), "op", func(ctx context.Context) (int, error) {
		calls++
		return 42, nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 42 || calls != 1 {
		t.Errorf("got %d after %d calls, want 42 after 1", got, calls)
	}
}

func TestDo_RetriesOnce(t *testing.T) {
	calls := 0
	p := Policy{Timeout: time.Second, Retries: 1, Delay: time.Millisecond}
	_, err := Do(context.Background(), p, "search", func(ctx context.Context) (string, error) {
		calls++
		return "", errors.New("connection refused")
	})
	if err == nil {
		t.Fatal("expected error after exhausting retries")
	}
	if calls != 2 {
		t.Errorf("expected 2 attempts, got %d", calls)
	}
}

func TestDo_RecoversOnRetry(t *testing.T) {
	calls := 0
	p := Policy{Timeout: time.Second, Retries: 1, Delay: time.Millisecond}
	got, err := Do(context.Background(), p, "search", func(ctx context.Context) (string, error) {
		calls++
		if calls == 1 {
			return "", errors.New("temporary")
		}
		return "ok", nil
	})
	if err != nil || got != "ok" {
		t.Fatalf("expected recovery, got %q, %v", got, err)
	}
}

func TestDo_PermanentErrorIsNotRetried(t *testing.T) {
	calls := 0
	sentinel := errors.New("bad request")
	p := Policy{Timeout: time.Second, Retries: 3, Delay: time.Millisecond}
	_, err := Do(context.Background(), p, "search", func(ctx context.Context) (int, error) {
		calls++
		return 0, Permanent(sentinel)
	})
	if !errors.Is(err, sentinel) {
		t.Errorf("expected wrapped sentinel, got %v", err)
	}
	if calls != 1 {
		t.Errorf("expected 1 attempt, got %d", calls)
	}
}

func TestDo_AttemptDeadline(t *testing.T) {
	p := Policy{Timeout: 10 * time.Millisecond, Retries: 0}
	_, err := Do(context.Background(), p, "slow", func(ctx context.Context) (int, error) {
		<-ctx.Done()
		return 0, ctx.Err()
	})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", err)
	}
}

func TestPolicy_RetriesAreCapped(t *testing.T) {
	p := Policy{Retries: 50}.normalized()
	if p.Retries != maxRetries {
		t.Errorf("expected retries capped at %d, got %d", maxRetries, p.Retries)
	}
}

func TestDo_OnceMakesSingleAttempt(t *testing.T) {
	calls := 0
	p := Policy{Timeout: time.Second, Retries: 2, Delay: time.Millisecond}.Once()
	_, err := Do(context.Background(), p, "append", func(ctx context.Context) (int, error) {
		calls++
		return 0, errors.New("timeout after commit")
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Errorf("expected 1 attempt, got %d", calls)
	}
}

func TestDo_CancelledContextStopsRetrying(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	p := Policy{Timeout: time.Second, Retries: 3, Delay: time.Hour}
	_, err := Do(ctx, p, "search", func(ctx context.Context) (int, error) {
		calls++
		cancel()
		return 0, errors.New("connection reset")
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Errorf("expected 1 attempt after cancellation, got %d", calls)
	}
}

func TestPermanent(t *testing.T) {
	if Permanent(nil) != nil {
		t.Error("Permanent(nil) should be nil")
	}
	if !IsPermanent(Permanent(errors.New("bad"))) {
		t.Error("expected permanent marker")
	}
	if IsPermanent(errors.New("transient")) {
		t.Error("plain error reported as permanent")
	}
}
