package entitlement

import "time"

// TrialDuration is the fixed length of the one-time trial window.
const TrialDuration = 24 * time.Hour

// Status is the derived subscription state of an account. It is never stored:
// always recomputed from (premium flag, trial start, current time).
type Status string

const (
	StatusNone         Status = "none"
	StatusTrial        Status = "trial"
	StatusTrialExpired Status = "trial_expired"
	StatusPremium      Status = "premium"
)

// ResolveStatus derives the subscription status. Premium overrides everything
// and never expires here; the purchase backend owns renewal.
func ResolveStatus(premium bool, trialStart *time.Time, now time.Time) Status {
	if premium {
		return StatusPremium
	}
	if trialStart == nil {
		return StatusNone
	}
	if now.Sub(*trialStart) < TrialDuration {
		return StatusTrial
	}
	return StatusTrialExpired
}

// TrialRemaining returns how much of the trial window is left. Zero when no
// trial was started or the window has passed.
func TrialRemaining(trialStart *time.Time, now time.Time) time.Duration {
	if trialStart == nil {
		return 0
	}
	remaining := TrialDuration - now.Sub(*trialStart)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// CanAccessAllContent reports whether the status unlocks the full catalog.
// The breathing carve-out is a product policy applied at the content gate,
// deliberately not here.
func CanAccessAllContent(status Status) bool {
	return status == StatusTrial || status == StatusPremium
}
