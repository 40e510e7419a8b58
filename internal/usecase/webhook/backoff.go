package webhook

import "time"

// retrySchedule maps attempt number to delay. The last entry is a flat
// ceiling: bounded staleness matters more here than an unbounded exponential
// curve, since providers usually recover within the hour.
var retrySchedule = []time.Duration{
	5 * time.Minute,
	15 * time.Minute,
	60 * time.Minute,
}

// NextRetryDelay returns the backoff delay before the given attempt.
// attempt is 1-based; attempts past the schedule stay at the ceiling.
func NextRetryDelay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if attempt > len(retrySchedule) {
		attempt = len(retrySchedule)
	}

	return retrySchedule[attempt-1]
}

// ShouldDeadLetter reports whether an event that just failed has exhausted
// its attempt budget.
func ShouldDeadLetter(attempts, maxAttempts int) bool {
	return attempts >= maxAttempts
}
