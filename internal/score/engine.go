// Package score derives the composite Quotient Score from raw social graph metrics.
package score

import (
	"math"

	"frame-weaver/internal/domain"
)

const (
	reputationWeight = 0.5
	followerWeight   = 0.3
	engagementWeight = 0.2

	// log10(100000) saturates the follower term.
	followerLogScale = 5.0
	// Following more accounts than follow you costs at most half the engagement term.
	maxEngagementPenalty = 0.5
)

// Breakdown holds the normalized terms that make up a composite score.
type Breakdown struct {
	Reputation float64
	Followers  float64
	Engagement float64
	Composite  float64
}

// Terms computes the normalized score terms for the given metrics.
func Terms(rawReputation float64, followers, following int64) Breakdown {
	if followers < 0 {
		followers = 0
	}
	if following < 0 {
		following = 0
	}

	reputation := clamp01(rawReputation)
	followerNorm := clamp01(math.Log10(float64(followers)+1) / followerLogScale)

	// No followers means no ratio to penalize, so engagement stays at 1.
	ratio := 0.0
	if followers > 0 {
		ratio = math.Min(float64(following)/float64(followers), 1)
	}
	engagementNorm := 1 - ratio*maxEngagementPenalty

	composite := reputation*reputationWeight + followerNorm*followerWeight + engagementNorm*engagementWeight
	composite = clamp01(math.Round(composite*1000) / 1000)

	return Breakdown{
		Reputation: reputation,
		Followers:  followerNorm,
		Engagement: engagementNorm,
		Composite:  composite,
	}
}

// Compute returns the score snapshot for an identity. The raw reputation score is
// passed through untouched.
func Compute(identity domain.Identity) domain.ScoreSnapshot {
	b := Terms(identity.RawReputationScore, identity.FollowerCount, identity.FollowingCount)
	return domain.ScoreSnapshot{
		IdentityID:         identity.ID,
		Username:           identity.Username,
		DisplayName:        identity.DisplayName,
		AvatarURL:          identity.AvatarURL,
		RawReputationScore: identity.RawReputationScore,
		CompositeScore:     b.Composite,
		FollowerCount:      identity.FollowerCount,
		FollowingCount:     identity.FollowingCount,
	}
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Min(math.Max(v, 0), 1)
}
