// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package ai

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/poiesic/gleaner/core"
)

// RetryPolicy bounds how a RetryingCompleter retries transient failures.
type RetryPolicy struct {
	// MaxAttempts counts the first attempt. Must be > 0.
	MaxAttempts int
	MinDelay    time.Duration
	MaxDelay    time.Duration
	Multiplier  float64
}

// DefaultRetryPolicy returns three attempts with 4s and 8s waits between them.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		MinDelay:    4 * time.Second,
		MaxDelay:    10 * time.Second,
		Multiplier:  2,
	}
}

// Delay returns the wait before the attempt following attempt n (1-based).
// The result is clamped to [MinDelay, MaxDelay].
func (p RetryPolicy) Delay(n int) time.Duration {
	d := float64(p.MinDelay)
	for i := 1; i < n; i++ {
		d *= p.Multiplier
		if d >= float64(p.MaxDelay) {
			break
		}
	}
	delay := time.Duration(d)
	if delay > p.MaxDelay {
		delay = p.MaxDelay
	}
	if delay < p.MinDelay {
		delay = p.MinDelay
	}
	return delay
}

// Observer receives one notification per attempt made by a RetryingCompleter.
// The metrics package provides a Prometheus implementation.
type Observer interface {
	ObserveAttempt(profile string, attempt int, elapsed time.Duration, err error)
}

// RetryingCompleter wraps a Completer with bounded exponential backoff.
// Only transient errors are retried. All returned errors wrap
// core.ErrExtractionFailed.
type RetryingCompleter struct {
	next     Completer
	policy   RetryPolicy
	logger   *slog.Logger
	observer Observer
	sleep    func(ctx context.Context, d time.Duration) error
}

// RetryOption configures a RetryingCompleter.
type RetryOption func(*RetryingCompleter)

// WithRetryLogger sets the logger used to report retries.
func WithRetryLogger(logger *slog.Logger) RetryOption {
	return func(r *RetryingCompleter) {
		r.logger = logger
	}
}

// WithObserver sets an attempt observer.
func WithObserver(o Observer) RetryOption {
	return func(r *RetryingCompleter) {
		r.observer = o
	}
}

// NewRetryingCompleter wraps next with the given policy.
func NewRetryingCompleter(next Completer, policy RetryPolicy, opts ...RetryOption) *RetryingCompleter {
	r := &RetryingCompleter{
		next:   next,
		policy: policy,
		logger: slog.Default(),
		sleep:  sleepContext,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.With("component", "llm-retry")
	return r
}

// Complete calls the wrapped Completer, retrying transient failures.
func (r *RetryingCompleter) Complete(ctx context.Context, prompt Prompt, profile Profile) (string, error) {
	if r.policy.MaxAttempts <= 0 {
		return "", fmt.Errorf("%w: %w", core.ErrExtractionFailed, ErrInvalidMaxAttempts)
	}

	var lastErr error
	for attempt := 1; attempt <= r.policy.MaxAttempts; attempt++ {
		start := time.Now()
		reply, err := r.next.Complete(ctx, prompt, profile)
		if r.observer != nil {
			r.observer.ObserveAttempt(profile.Name, attempt, time.Since(start), err)
		}
		if err == nil {
			if attempt > 1 {
				r.logger.Debug("llm call succeeded after retry", "profile", profile.Name, "attempt", attempt)
			}
			return reply, nil
		}
		lastErr = err

		if !IsTransient(err) {
			return "", fmt.Errorf("%w: %w", core.ErrExtractionFailed, err)
		}
		if attempt == r.policy.MaxAttempts {
			break
		}

		delay := r.policy.Delay(attempt)
		r.logger.Warn("llm call failed, will retry",
			"profile", profile.Name,
			"attempt", attempt,
			"maxAttempts", r.policy.MaxAttempts,
			"delay", delay,
			"error", err)

		if err := r.sleep(ctx, delay); err != nil {
			return "", fmt.Errorf("%w: %w", core.ErrExtractionFailed, err)
		}
	}

	return "", fmt.Errorf("%w: after %d attempts: %w", core.ErrExtractionFailed, r.policy.MaxAttempts, lastErr)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
