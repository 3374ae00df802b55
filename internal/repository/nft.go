package repository

import (
	"context"

	"frame-weaver/internal/domain"
)

// NFTRepository stores mint records. There is no uniqueness per user.
type NFTRepository interface {
	Init(ctx context.Context) error
	Create(ctx context.Context, record *domain.MintRecord) (int64, error)
	ListByUser(ctx context.Context, userID int64) ([]domain.MintRecord, error)
	GetByTokenID(ctx context.Context, tokenID string) (*domain.MintRecord, error)
}
