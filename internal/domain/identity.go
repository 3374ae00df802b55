package domain

// Identity is the raw account record returned by the identity metrics provider.
type Identity struct {
	ID                 int64
	Username           string
	DisplayName        string
	AvatarURL          string
	RawReputationScore float64
	FollowerCount      int64
	FollowingCount     int64
}

// ScoreSnapshot is recomputed on every request and never persisted.
type ScoreSnapshot struct {
	IdentityID         int64
	Username           string
	DisplayName        string
	AvatarURL          string
	RawReputationScore float64
	CompositeScore     float64
	FollowerCount      int64
	FollowingCount     int64
}
