// Package lockout implements the account lockout decision. The decision is
// based solely on the lockout timestamp, never on the attempt counter, so two
// concurrent attempts racing on the counter cannot disagree about whether the
// account is barred.
package lockout

import "time"

// Policy holds the operator-configured thresholds.
type Policy struct {
	// MaxAttempts is the number of consecutive failures that triggers a lockout.
	MaxAttempts int
	// Window is how long the account stays barred after the threshold is hit.
	Window time.Duration
}

// Decision is the outcome of evaluating the policy for one attempt.
type Decision struct {
	Allowed bool
	// Remaining is how long the lockout still lasts; zero when Allowed.
	Remaining time.Duration
}

// Evaluate decides whether an authentication attempt may proceed.
// A set lockoutUntil in the future bars the attempt; an elapsed one is
// treated as allowed, and the caller is responsible for clearing the state.
func (p Policy) Evaluate(lockoutUntil *time.Time, now time.Time) Decision {
	if lockoutUntil != nil && lockoutUntil.After(now) {
		return Decision{Allowed: false, Remaining: lockoutUntil.Sub(now)}
	}
	return Decision{Allowed: true}
}

// RemainingAttempts reports how many failures are left before lockout.
// Messaging only; the authorization decision never consults it.
func (p Policy) RemainingAttempts(failedCount int) int {
	if r := p.MaxAttempts - failedCount; r > 0 {
		return r
	}
	return 0
}

// Triggers reports whether a failure count reaches the lockout threshold.
func (p Policy) Triggers(failedCount int) bool {
	return p.MaxAttempts > 0 && failedCount >= p.MaxAttempts
}
