package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"

	"frame-weaver/internal/domain"
	"frame-weaver/internal/repository"
)

// GetOrCreateInput is the first-seen profile of an identity.
type GetOrCreateInput struct {
	IdentityID  int64
	Username    string
	DisplayName string
	AvatarURL   string
}

// UserService is the user directory keyed by identity id.
type UserService interface {
	// GetOrCreate returns the stored user for the identity, creating it on first sight.
	// Stored profile fields are never overwritten by later calls.
	GetOrCreate(ctx context.Context, in GetOrCreateInput) (*domain.User, error)
	UpdateWallet(ctx context.Context, identityID int64, walletAddress string) (*domain.User, error)
	GetByID(ctx context.Context, id int64) (*domain.User, error)
}

type userService struct {
	users  repository.UserRepository
	logger logrus.FieldLogger
}

func NewUserService(users repository.UserRepository, logger logrus.FieldLogger) UserService {
	return &userService{
		users:  users,
		logger: logger,
	}
}

func (s *userService) GetOrCreate(ctx context.Context, in GetOrCreateInput) (*domain.User, error) {
	in.Username = strings.TrimSpace(in.Username)
	if in.IdentityID <= 0 {
		return nil, invalid("identityId must be a positive integer")
	}
	if in.Username == "" {
		return nil, invalid("username is required")
	}

	existing, err := s.users.GetByIdentityID(ctx, in.IdentityID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	user := &domain.User{
		IdentityID:  in.IdentityID,
		Username:    in.Username,
		DisplayName: strings.TrimSpace(in.DisplayName),
		AvatarURL:   strings.TrimSpace(in.AvatarURL),
	}
	if _, err := s.users.Create(ctx, user); err != nil {
		if !errors.Is(err, repository.ErrAlreadyExists) {
			return nil, err
		}
		// lost the race to a concurrent creator; its row wins
		winner, err := s.users.GetByIdentityID(ctx, in.IdentityID)
		if err != nil {
			return nil, fmt.Errorf("re-read user after conflict: %w", err)
		}
		return winner, nil
	}

	s.logger.WithFields(logrus.Fields{"user_id": user.ID, "identity_id": user.IdentityID}).Info("user created")
	return user, nil
}

func (s *userService) UpdateWallet(ctx context.Context, identityID int64, walletAddress string) (*domain.User, error) {
	walletAddress = strings.TrimSpace(walletAddress)
	if identityID <= 0 {
		return nil, invalid("identityId must be a positive integer")
	}
	if walletAddress == "" {
		return nil, invalid("wallet address required")
	}
	if !isWalletAddress(walletAddress) {
		return nil, invalid("wallet address must be a 0x-prefixed hex address")
	}

	user, err := s.users.UpdateWallet(ctx, identityID, walletAddress)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

func (s *userService) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	if id <= 0 {
		return nil, invalid("userId must be a positive integer")
	}
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

func isWalletAddress(addr string) bool {
	return strings.HasPrefix(addr, "0x") && common.IsHexAddress(addr)
}
