package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"
)

// ErrInvalidRequest marks a malformed request. Errors wrapping it are never
// retried.
var ErrInvalidRequest = errors.New("invalid provider request")

// RetryConfig bounds a provider call.
type RetryConfig struct {
	MaxAttempts    int           // default 3
	BaseDelay      time.Duration // doubles each attempt, default 1s
	MaxDelay       time.Duration // backoff cap, default 10s
	AttemptTimeout time.Duration // per-attempt deadline, default 60s

	// sleep is replaceable in tests.
	sleep func(time.Duration)
}

// WithSleep returns a copy of cfg using fn instead of time.Sleep. Test hook.
func (cfg RetryConfig) WithSleep(fn func(time.Duration)) RetryConfig {
	cfg.sleep = fn
	return cfg
}

func (cfg RetryConfig) withDefaults() RetryConfig {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = time.Second
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = 10 * time.Second
	}
	if cfg.AttemptTimeout <= 0 {
		cfg.AttemptTimeout = 60 * time.Second
	}
	if cfg.sleep == nil {
		cfg.sleep = time.Sleep
	}
	return cfg
}

// Do executes op with bounded retries and exponential backoff. Each attempt
// runs under its own deadline; exceeding it counts as a retryable failure.
// Non-retryable errors propagate immediately. Exhausting all attempts returns
// one summarizing error wrapping the last failure.
func Do[T any](ctx context.Context, cfg RetryConfig, op func(ctx context.Context) (T, error)) (T, error) {
	cfg = cfg.withDefaults()

	var zero T
	var lastErr error
	delay := cfg.BaseDelay

	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		if ctx.Err() != nil {
			return zero, ctx.Err()
		}

		attemptCtx, cancel := context.WithTimeout(ctx, cfg.AttemptTimeout)
		result, err := op(attemptCtx)
		cancel()

		if err == nil {
			return result, nil
		}
		lastErr = err

		// The caller going away is terminal regardless of classification.
		if ctx.Err() != nil {
			return zero, ctx.Err()
		}
		if !IsRetryable(err) {
			return zero, err
		}
		if attempt == cfg.MaxAttempts {
			break
		}

		cfg.sleep(delay)
		delay *= 2
		if delay > cfg.MaxDelay {
			delay = cfg.MaxDelay
		}
	}

	return zero, fmt.Errorf("provider call failed after %d attempts: %w", cfg.MaxAttempts, lastErr)
}

// IsRetryable classifies a provider failure. Timeouts and transient server
// errors are retryable; client/validation errors are not.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrInvalidRequest) || errors.Is(err, context.Canceled) {
		return false
	}
	// An attempt deadline surfaces as DeadlineExceeded; the caller-canceled
	// case is filtered in the Do loop before classification matters.
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return retryableStatus(httpErr.StatusCode)
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}
	return false
}

func retryableStatus(code int) bool {
	if code == 408 || code == 429 {
		return true
	}
	return code >= 500 && code <= 599
}
