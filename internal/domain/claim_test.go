package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestEvaluateEligibility(t *testing.T) {
	cooldown := 24 * time.Hour
	claimedAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	last := &Claim{UserID: 1, ClaimedAt: claimedAt}

	t.Run("never claimed", func(t *testing.T) {
		e := EvaluateEligibility(nil, claimedAt, cooldown)
		assert.Equal(t, ClaimStateNeverClaimed, e.State)
		assert.True(t, e.CanClaim())
	})

	t.Run("remaining shrinks while cooling down", func(t *testing.T) {
		prev := cooldown + time.Second
		for _, elapsed := range []time.Duration{0, time.Minute, time.Hour, 23 * time.Hour, cooldown - time.Millisecond} {
			e := EvaluateEligibility(last, claimedAt.Add(elapsed), cooldown)
			assert.Equal(t, ClaimStateCoolingDown, e.State)
			assert.False(t, e.CanClaim())
			assert.Equal(t, claimedAt.Add(cooldown), e.NextClaimTime)
			assert.Less(t, e.Remaining, prev)
			prev = e.Remaining
		}
	})

	t.Run("ready at the boundary", func(t *testing.T) {
		e := EvaluateEligibility(last, claimedAt.Add(cooldown), cooldown)
		assert.Equal(t, ClaimStateReady, e.State)
		assert.True(t, e.CanClaim())
		assert.Zero(t, e.Remaining)
	})

	t.Run("clock skew does not go negative", func(t *testing.T) {
		e := EvaluateEligibility(last, claimedAt.Add(-time.Hour), cooldown)
		assert.Equal(t, ClaimStateCoolingDown, e.State)
		assert.Equal(t, cooldown+time.Hour, e.Remaining)
	})
}
