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


// Package retry provides a reusable retry policy for fallible operations
// such as embedding and store calls.
package retry

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// ErrInvalidMaxAttempts indicates a policy was configured with a
// non-positive attempt count.
var ErrInvalidMaxAttempts = errors.New("max attempts must be > 0")

// Policy describes how an operation is retried: the maximum number of
// attempts and the delay before each re-attempt.
type Policy struct {
	// MaxAttempts is the maximum number of attempts (must be > 0).
	MaxAttempts int

	// Delay returns the wait before re-attempting after the given attempt
	// number (1-based). Nil means no delay between attempts.
	Delay func(attempt int) time.Duration
}

// LinearDelay returns a delay function growing as attempt × base.
func LinearDelay(base time.Duration) func(int) time.Duration {
	return func(attempt int) time.Duration {
		return time.Duration(attempt) * base
	}
}

// ExponentialDelay returns a delay function doubling from base on each attempt.
func ExponentialDelay(base time.Duration) func(int) time.Duration {
	return func(attempt int) time.Duration {
		delay := base
		for i := 1; i < attempt; i++ {
			delay *= 2
		}
		return delay
	}
}

// DefaultPolicy returns the policy used when callers don't configure one:
// 3 attempts with linear 1s backoff.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: 3,
		Delay:       LinearDelay(time.Second),
	}
}

// Do runs the operation until it succeeds, the attempts are exhausted, or the
// context is cancelled. Returns the error from the last attempt if all
// attempts fail.
func (p Policy) Do(ctx context.Context, operation func() error) error {
	if p.MaxAttempts <= 0 {
		return ErrInvalidMaxAttempts
	}

	var lastErr error
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		// Check context before attempting
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		lastErr = operation()
		if lastErr == nil {
			if attempt > 1 {
				slog.Debug("operation succeeded after retry", "attempt", attempt)
			}
			return nil // Success
		}

		slog.Debug("operation failed, will retry", "attempt", attempt, "maxAttempts", p.MaxAttempts, "error", lastErr)

		// Don't sleep after the last attempt
		if attempt == p.MaxAttempts {
			break
		}

		var delay time.Duration
		if p.Delay != nil {
			delay = p.Delay(attempt)
		}
		if delay <= 0 {
			continue
		}

		// Sleep with context awareness
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
			// Continue to next attempt
		}
	}

	return lastErr
}
