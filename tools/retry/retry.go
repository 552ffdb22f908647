// Package retry provides a bounded-retry state machine: an attempt counter,
// a delay policy and a terminal success/failure outcome. Sleeping is
// injectable so callers can unit-test retry behavior without real timers.
package retry

import "time"

// Policy describes how many attempts an operation gets and how long to wait
// between them.
type Policy struct {
	Attempts int
	Delay    func(attempt int) time.Duration
	Sleep    func(d time.Duration) // defaults to time.Sleep
}

// Fixed returns a policy with a constant delay between attempts.
func Fixed(attempts int, d time.Duration) Policy {
	return Policy{
		Attempts: attempts,
		Delay:    func(int) time.Duration { return d },
	}
}

// Exponential returns a policy whose delay doubles per attempt:
// base, 2*base, 4*base, ...
func Exponential(attempts int, base time.Duration) Policy {
	return Policy{
		Attempts: attempts,
		Delay:    func(attempt int) time.Duration { return base << attempt },
	}
}

// Run invokes op up to p.Attempts times. A nil error stops the loop
// immediately. A non-retryable error is returned as-is without further
// attempts. After the final attempt the last error is returned.
func (p Policy) Run(op func(attempt int) error, retryable func(error) bool) error {
	sleep := p.Sleep
	if sleep == nil {
		sleep = time.Sleep
	}

	var err error
	for attempt := 0; attempt < p.Attempts; attempt++ {
		if err = op(attempt); err == nil {
			return nil
		}
		if retryable != nil && !retryable(err) {
			return err
		}
		if attempt < p.Attempts-1 {
			sleep(p.Delay(attempt))
		}
	}
	return err
}
