package retry

import "time"

// DefaultBase is the first backoff delay.
const DefaultBase = 500 * time.Millisecond

// Backoff returns the delay to sleep after the given zero-based failed
// attempt: base doubled per attempt, clamped to limit. The sequence is
// non-decreasing and never exceeds limit.
func Backoff(base, limit time.Duration, attempt int) time.Duration {
	if base <= 0 || limit <= 0 {
		return 0
	}
	if attempt > 62 {
		return limit
	}
	d := base << uint(attempt)
	if d <= 0 || d > limit {
		return limit
	}
	return d
}
