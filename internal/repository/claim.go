package repository

import (
	"context"
	"time"

	"frame-weaver/internal/domain"
)

// ClaimRepository is the append-only reward ledger.
type ClaimRepository interface {
	Init(ctx context.Context) error
	// InsertIfEligible appends the claim only if the user has no claim with
	// claimed_at after windowStart. The check and the insert are atomic; a
	// violation yields ErrConflict.
	InsertIfEligible(ctx context.Context, claim *domain.Claim, windowStart time.Time) error
	Latest(ctx context.Context, userID int64) (*domain.Claim, error)
	ListByUser(ctx context.Context, userID int64) ([]domain.Claim, error)

	// AcquireLease takes the per-user disbursement lease if it is free or expired.
	AcquireLease(ctx context.Context, userID int64, token string, now time.Time, ttl time.Duration) (bool, error)
	ReleaseLease(ctx context.Context, userID int64, token string) error
}
