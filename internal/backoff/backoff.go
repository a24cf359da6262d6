package backoff

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	cbackoff "github.com/cenkalti/backoff/v4"
)

const (
	defaultTimeout = 5 * time.Second
	defaultDelay   = 200 * time.Millisecond
	maxRetries     = 3
)

// Policy bounds a single outbound backend call
type Policy struct {
	Timeout time.Duration // per attempt
	Retries int           // extra attempts after the first
	Delay   time.Duration // pause between attempts
}

// DefaultPolicy is one retry with a five second deadline per attempt
func DefaultPolicy() Policy {
	return Policy{Timeout: defaultTimeout, Retries: 1, Delay: defaultDelay}
}

// Once returns p without retries, for calls that must not be repeated
// (a second import starts a second operation, a second append duplicates the log id)
func (p Policy) Once() Policy {
	p.Retries = 0
	return p
}

func (p Policy) normalized() Policy {
	if p.Timeout <= 0 {
		p.Timeout = defaultTimeout
	}
	if p.Retries < 0 {
		p.Retries = 0
	}
	if p.Retries > maxRetries {
		p.Retries = maxRetries
	}
	if p.Delay < 0 {
		p.Delay = 0
	}
	return p
}

// schedule is a constant delay between attempts, stopped early by ctx
func (p Policy) schedule(ctx context.Context) cbackoff.BackOffContext {
	return cbackoff.WithContext(
		cbackoff.WithMaxRetries(cbackoff.NewConstantBackOff(p.Delay), uint64(p.Retries)),
		ctx,
	)
}

// Permanent marks err as not worth retrying (bad request, decode failure)
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return cbackoff.Permanent(err)
}

// IsPermanent reports whether err was marked with Permanent
func IsPermanent(err error) bool {
	var p *cbackoff.PermanentError
	return errors.As(err, &p)
}

// Do runs fn with a per-attempt deadline, retrying transient failures up to p.Retries times.
// The parent context's cancellation stops retrying immediately.
func Do[T any](ctx context.Context, p Policy, op string, fn func(ctx context.Context) (T, error)) (T, error) {
	p = p.normalized()

	attempt := func() (T, error) {
		attemptCtx, cancel := context.WithTimeout(ctx, p.Timeout)
		defer cancel()
		return fn(attemptCtx)
	}
	notify := func(err error, next time.Duration) {
		slog.Debug("retrying backend call", "op", op, "after", next, "error", err)
	}

	result, err := cbackoff.RetryNotifyWithData(attempt, p.schedule(ctx), notify)
	if err != nil {
		var zero T
		return zero, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}
