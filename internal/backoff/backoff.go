// Package backoff computes retry delays for gavelctl's reconnect
// attempts against a daemon socket that may be mid-restart or stale.
package backoff

import (
	"math"
	"math/rand"
	"time"
)

const maxBackoff = 5 * time.Second

// Next calculates the delay before retry attempt (0-indexed), as
// base * 2^attempt capped at maxBackoff, plus up to 10% jitter on top
// of the capped value.
func Next(base time.Duration, attempt int) time.Duration {
	const maxAttempt = 10
	if attempt > maxAttempt {
		attempt = maxAttempt
	}

	scaled := float64(base) * math.Pow(2, float64(attempt))
	if time.Duration(scaled) > maxBackoff {
		scaled = float64(maxBackoff)
	}

	jitter := time.Duration(rand.Float64() * scaled * 0.1)
	return time.Duration(scaled) + jitter
}

// ShouldRetry reports whether another attempt is allowed given the
// retries already made and the configured maximum.
func ShouldRetry(attempts, maxAttempts int) bool {
	return attempts < maxAttempts
}
