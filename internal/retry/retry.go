// Package retry provides generic helpers for retrying transient failures and
// for trying an ordered list of candidates until one succeeds.
package retry

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net"
	"strings"
	"time"
)

// Config controls backoff behavior for Do.
type Config struct {
	MaxRetries  int
	InitialWait time.Duration
	MaxWait     time.Duration
	Multiplier  float64
	// Retryable decides whether err is worth another attempt. Nil means
	// IsTransient.
	Retryable func(error) bool
	// DelayHint may return a server-suggested wait (Retry-After) for err.
	// Non-positive values fall back to exponential backoff.
	DelayHint func(error) time.Duration
}

// DefaultConfig suits HTTP calls to external gateways.
var DefaultConfig = Config{
	MaxRetries:  3,
	InitialWait: 500 * time.Millisecond,
	MaxWait:     10 * time.Second,
	Multiplier:  2.0,
}

// Do retries fn up to MaxRetries times with exponential backoff. It stops on
// the first non-retryable error or when ctx is done.
func Do[T any](ctx context.Context, cfg Config, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	var lastErr error
	retryable := cfg.Retryable
	if retryable == nil {
		retryable = IsTransient
	}

	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, err
		}
		result, err := fn(ctx)
		if err == nil {
			return result, nil
		}
		lastErr = err
		if !retryable(err) || attempt == cfg.MaxRetries {
			break
		}
		select {
		case <-time.After(cfg.wait(err, attempt)):
		case <-ctx.Done():
			return zero, ctx.Err()
		}
	}
	return zero, lastErr
}

func (c Config) wait(err error, attempt int) time.Duration {
	if c.DelayHint != nil {
		if hint := c.DelayHint(err); hint > 0 {
			if c.MaxWait > 0 && hint > c.MaxWait {
				return c.MaxWait
			}
			return hint
		}
	}
	return c.backoff(attempt)
}

func (c Config) backoff(attempt int) time.Duration {
	multiplier := c.Multiplier
	if multiplier < 1 {
		multiplier = 1
	}
	wait := time.Duration(float64(c.InitialWait) * math.Pow(multiplier, float64(attempt)))
	if c.MaxWait > 0 && wait > c.MaxWait {
		wait = c.MaxWait
	}
	if wait < 0 {
		return 0
	}
	return wait
}

// IsTransient reports network-level failures that are usually worth retrying.
func IsTransient(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}
	return false
}

// AttemptError records one failed candidate.
type AttemptError struct {
	Candidate string
	Err       error
}

// ExhaustedError is returned by TryInOrder when every candidate failed.
type ExhaustedError struct {
	Attempts []AttemptError
}

func (e *ExhaustedError) Error() string {
	if len(e.Attempts) == 0 {
		return "no candidates to try"
	}
	parts := make([]string, 0, len(e.Attempts))
	for _, attempt := range e.Attempts {
		parts = append(parts, fmt.Sprintf("%s: %v", attempt.Candidate, attempt.Err))
	}
	return fmt.Sprintf("all %d candidates failed: %s", len(e.Attempts), strings.Join(parts, "; "))
}

// Unwrap exposes every attempt error to errors.Is and errors.As.
func (e *ExhaustedError) Unwrap() []error {
	errs := make([]error, 0, len(e.Attempts))
	for _, attempt := range e.Attempts {
		errs = append(errs, attempt.Err)
	}
	return errs
}

// Last returns the most recent attempt error, if any.
func (e *ExhaustedError) Last() error {
	if len(e.Attempts) == 0 {
		return nil
	}
	return e.Attempts[len(e.Attempts)-1].Err
}

// TryInOrder calls fn for each candidate in order and returns the first
// success along with the candidate that produced it. Context cancellation
// stops iteration immediately.
func TryInOrder[T any](ctx context.Context, candidates []string, fn func(context.Context, string) (T, error)) (T, string, error) {
	var zero T
	exhausted := &ExhaustedError{}
	for _, candidate := range candidates {
		if err := ctx.Err(); err != nil {
			return zero, "", err
		}
		result, err := fn(ctx, candidate)
		if err == nil {
			return result, candidate, nil
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			if ctx.Err() != nil {
				return zero, candidate, err
			}
		}
		exhausted.Attempts = append(exhausted.Attempts, AttemptError{Candidate: candidate, Err: err})
	}
	return zero, "", exhausted
}
