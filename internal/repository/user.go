package repository

import (
	"context"

	"frame-weaver/internal/domain"
)

// UserRepository defines persistence operations for User entities.
type UserRepository interface {
	Init(ctx context.Context) error
	// Create inserts a user. A duplicate identity id yields ErrAlreadyExists.
	Create(ctx context.Context, user *domain.User) (int64, error)
	GetByIdentityID(ctx context.Context, identityID int64) (*domain.User, error)
	GetByID(ctx context.Context, id int64) (*domain.User, error)
	UpdateWallet(ctx context.Context, identityID int64, walletAddress string) (*domain.User, error)
}
