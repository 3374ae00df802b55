package http

import (
	"time"

	"frame-weaver/internal/domain"
)

type UserResponse struct {
	ID            int64     `json:"id"`
	IdentityID    int64     `json:"identityId"`
	Username      string    `json:"username"`
	DisplayName   string    `json:"displayName"`
	AvatarURL     string    `json:"avatarUrl"`
	WalletAddress *string   `json:"walletAddress"`
	CreatedAt     time.Time `json:"createdAt"`
}

type ScoreResponse struct {
	IdentityID         int64   `json:"identityId"`
	Username           string  `json:"username"`
	DisplayName        string  `json:"displayName"`
	AvatarURL          string  `json:"avatarUrl"`
	RawReputationScore float64 `json:"rawReputationScore"`
	CompositeScore     float64 `json:"compositeScore"`
	FollowerCount      int64   `json:"followerCount"`
	FollowingCount     int64   `json:"followingCount"`
}

type MintRecordResponse struct {
	ID              int64     `json:"id"`
	UserID          int64     `json:"userId"`
	TokenID         string    `json:"tokenId"`
	MintedAt        time.Time `json:"mintedAt"`
	TransactionHash *string   `json:"transactionHash"`
	RawScore        float64   `json:"rawScore"`
	CompositeScore  float64   `json:"compositeScore"`
}

type ClaimResponse struct {
	ID              int64     `json:"id"`
	UserID          int64     `json:"userId"`
	ClaimedAt       time.Time `json:"claimedAt"`
	TransactionHash *string   `json:"transactionHash"`
	Amount          string    `json:"amount"`
}

type CanClaimResponse struct {
	CanClaim      bool       `json:"canClaim"`
	NextClaimTime *time.Time `json:"nextClaimTime,omitempty"`
	RemainingMs   *int64     `json:"remainingMs,omitempty"`
}

func userToResponse(u domain.User) UserResponse {
	return UserResponse{
		ID:            u.ID,
		IdentityID:    u.IdentityID,
		Username:      u.Username,
		DisplayName:   u.DisplayName,
		AvatarURL:     u.AvatarURL,
		WalletAddress: u.WalletAddress,
		CreatedAt:     u.CreatedAt,
	}
}

func scoreToResponse(s domain.ScoreSnapshot) ScoreResponse {
	return ScoreResponse{
		IdentityID:         s.IdentityID,
		Username:           s.Username,
		DisplayName:        s.DisplayName,
		AvatarURL:          s.AvatarURL,
		RawReputationScore: s.RawReputationScore,
		CompositeScore:     s.CompositeScore,
		FollowerCount:      s.FollowerCount,
		FollowingCount:     s.FollowingCount,
	}
}

func mintRecordToResponse(r domain.MintRecord) MintRecordResponse {
	return MintRecordResponse{
		ID:              r.ID,
		UserID:          r.UserID,
		TokenID:         r.TokenID,
		MintedAt:        r.MintedAt,
		TransactionHash: r.TransactionHash,
		RawScore:        r.RawScore,
		CompositeScore:  r.CompositeScore,
	}
}

func claimToResponse(c domain.Claim) ClaimResponse {
	return ClaimResponse{
		ID:              c.ID,
		UserID:          c.UserID,
		ClaimedAt:       c.ClaimedAt,
		TransactionHash: c.TransactionHash,
		Amount:          c.Amount,
	}
}

func eligibilityToResponse(e domain.Eligibility) CanClaimResponse {
	if e.CanClaim() {
		return CanClaimResponse{CanClaim: true}
	}
	next := e.NextClaimTime.UTC()
	remaining := e.Remaining.Milliseconds()
	return CanClaimResponse{
		CanClaim:      false,
		NextClaimTime: &next,
		RemainingMs:   &remaining,
	}
}
