package domain

import "time"

// User is the locally stored profile of a Farcaster identity. The profile fields are
// captured the first time the identity is seen.
type User struct {
	ID            int64
	IdentityID    int64
	Username      string
	DisplayName   string
	AvatarURL     string
	WalletAddress *string
	CreatedAt     time.Time
}
