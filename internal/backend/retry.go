package backend

import (
	"context"
	"log/slog"
	"time"
)

// RetryPolicy bounds the retries one Client invocation may perform. It is
// attached to the invocation, never persisted.
type RetryPolicy struct {
	MaxAttempts   int
	TotalDeadline time.Duration
	InitialDelay  time.Duration
	Multiplier    float64
	MaxDelay      time.Duration
}

// DefaultRetryPolicy matches the service defaults.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:   3,
		TotalDeadline: 2 * time.Minute,
		InitialDelay:  time.Second,
		Multiplier:    2,
		MaxDelay:      30 * time.Second,
	}
}

// Delay returns the backoff before re-attempt number attempt (0-indexed over
// completed attempts): min(InitialDelay × Multiplier^attempt, MaxDelay).
func (p RetryPolicy) Delay(attempt int) time.Duration {
	mult := p.Multiplier
	if mult <= 0 {
		mult = 2
	}
	d := time.Duration(float64(p.InitialDelay) * pow(mult, attempt))
	if p.MaxDelay > 0 && d > p.MaxDelay {
		d = p.MaxDelay
	}
	return d
}

func pow(base float64, n int) float64 {
	out := 1.0
	for i := 0; i < n; i++ {
		out *= base
	}
	return out
}

// Client wraps an Engine with retry, backoff, and deadline handling. On a
// retryable error it re-invokes the engine until the policy is exhausted,
// then surfaces the last error; non-retryable errors surface immediately.
type Client struct {
	engine Engine
	policy RetryPolicy
	log    *slog.Logger
}

// NewClient builds a retrying client around engine.
func NewClient(engine Engine, policy RetryPolicy, log *slog.Logger) *Client {
	if log == nil {
		log = slog.Default()
	}
	if policy.MaxAttempts <= 0 {
		policy.MaxAttempts = 1
	}
	return &Client{engine: engine, policy: policy, log: log}
}

// Name returns the wrapped engine's name.
func (c *Client) Name() string { return c.engine.Name() }

// Parse invokes the engine under the retry policy. The total deadline covers
// all attempts and their backoff waits; expiry aborts the in-flight attempt.
func (c *Client) Parse(ctx context.Context, req Request) (Native, error) {
	if c.policy.TotalDeadline > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.policy.TotalDeadline)
		defer cancel()
	}

	var lastErr error
	for attempt := 0; attempt < c.policy.MaxAttempts; attempt++ {
		if attempt > 0 {
			delay := c.policy.Delay(attempt - 1)
			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				// Deadline elapsed mid-backoff: surface the last attempt's
				// error rather than retry further.
				return nil, lastErr
			case <-timer.C:
			}
		}

		out, err := c.engine.Parse(ctx, req)
		if err == nil {
			return out, nil
		}
		lastErr = err

		if !IsRetryable(err) {
			return nil, err
		}
		if ctx.Err() != nil {
			return nil, lastErr
		}
		c.log.Warn("retryable parse error",
			"engine", c.engine.Name(),
			"attempt", attempt,
			"error", err,
		)
	}
	return nil, lastErr
}
