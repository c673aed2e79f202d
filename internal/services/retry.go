package services

import (
	"context"
	"log/slog"
	"math"
	"strings"
	"time"
)

// RetryPolicy controls how persistence calls are retried. A zero MaxRetries
// disables retrying.
type RetryPolicy struct {
	MaxRetries    int
	InitialDelay  time.Duration
	MaxDelay      time.Duration
	BackoffFactor float64
}

// DefaultRetryPolicy retries transient store errors three times.
var DefaultRetryPolicy = RetryPolicy{
	MaxRetries:    3,
	InitialDelay:  500 * time.Millisecond,
	MaxDelay:      10 * time.Second,
	BackoffFactor: 2.0,
}

// withRetry calls fn until it succeeds, returns a non-retryable error, or the
// policy is exhausted. The last error is returned.
func withRetry(ctx context.Context, logger *slog.Logger, policy RetryPolicy, op string, fn func() error) error {
	var err error
	for attempt := 0; ; attempt++ {
		err = fn()
		if err == nil {
			return nil
		}
		if !isRetryable(err) || attempt >= policy.MaxRetries {
			return err
		}
		logger.Warn("retry: backing off", "op", op, "attempt", attempt+1, "err", err)
		if !sleepWithBackoff(ctx, policy, attempt) {
			return err
		}
	}
}

// sleepWithBackoff waits for the backoff duration. It reports false when the
// context ends first.
func sleepWithBackoff(ctx context.Context, policy RetryPolicy, attempt int) bool {
	timer := time.NewTimer(calculateBackoff(policy, attempt))
	defer timer.Stop()

	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}

// calculateBackoff computes the delay for a given attempt using exponential backoff.
func calculateBackoff(policy RetryPolicy, attempt int) time.Duration {
	delay := float64(policy.InitialDelay) * math.Pow(policy.BackoffFactor, float64(attempt))
	if time.Duration(delay) > policy.MaxDelay {
		return policy.MaxDelay
	}
	return time.Duration(delay)
}

func isRetryable(err error) bool {
	return isRetryableMsg(err.Error())
}

// isRetryableMsg checks if an error message indicates a transient store condition.
func isRetryableMsg(msg string) bool {
	lower := strings.ToLower(msg)
	retryablePatterns := []string{
		"timeout", "timed out",
		"connection reset", "connection refused", "broken pipe", "eof",
		"too many connections", "deadlock", "database is locked",
	}
	for _, pattern := range retryablePatterns {
		if strings.Contains(lower, pattern) {
			return true
		}
	}
	return false
}
