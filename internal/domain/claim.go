package domain

import "time"

// DefaultClaimAmount is the reward paid per claim, in whole tokens.
const DefaultClaimAmount = "1"

// Claim is proof of a completed reward disbursement. Rows are append-only.
type Claim struct {
	ID              int64
	UserID          int64
	ClaimedAt       time.Time
	TransactionHash *string
	Amount          string
}

type ClaimState string

const (
	ClaimStateNeverClaimed ClaimState = "never_claimed"
	ClaimStateCoolingDown  ClaimState = "cooling_down"
	ClaimStateReady        ClaimState = "ready"
)

// Eligibility is the claim state of a user at a given instant.
type Eligibility struct {
	State         ClaimState
	NextClaimTime time.Time
	Remaining     time.Duration
}

// CanClaim reports whether a new claim may be recorded.
func (e Eligibility) CanClaim() bool {
	return e.State != ClaimStateCoolingDown
}

// EvaluateEligibility derives the claim state from the latest claim. last may be nil.
func EvaluateEligibility(last *Claim, now time.Time, cooldown time.Duration) Eligibility {
	if last == nil {
		return Eligibility{State: ClaimStateNeverClaimed}
	}
	next := last.ClaimedAt.Add(cooldown)
	if now.Sub(last.ClaimedAt) >= cooldown {
		return Eligibility{State: ClaimStateReady, NextClaimTime: next}
	}
	remaining := next.Sub(now)
	if remaining < 0 {
		remaining = 0
	}
	return Eligibility{
		State:         ClaimStateCoolingDown,
		NextClaimTime: next,
		Remaining:     remaining,
	}
}
