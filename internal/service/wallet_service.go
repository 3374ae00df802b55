package service

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Treasury reports on the admin wallet that pays rewards and gas.
type Treasury interface {
	Account() string
	TokenBalance(ctx context.Context) (string, error)
	NativeBalance(ctx context.Context) (string, error)
}

// WalletInfo is the admin wallet state. Balances are decimal strings in whole units.
type WalletInfo struct {
	Configured    bool
	AdminAddress  string
	TokenBalance  string
	NativeBalance string
}

type WalletService interface {
	Info(ctx context.Context) (*WalletInfo, error)
}

type walletService struct {
	treasury Treasury
	logger   logrus.FieldLogger
}

// NewWalletService builds the admin wallet reporter. A nil treasury yields
// ErrDisbursementUnavailable.
func NewWalletService(treasury Treasury, logger logrus.FieldLogger) WalletService {
	return &walletService{treasury: treasury, logger: logger}
}

func (s *walletService) Info(ctx context.Context) (*WalletInfo, error) {
	if s.treasury == nil {
		return nil, ErrDisbursementUnavailable
	}

	info := &WalletInfo{Configured: true, AdminAddress: s.treasury.Account()}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		balance, err := s.treasury.TokenBalance(gctx)
		if err != nil {
			return fmt.Errorf("token balance: %w", err)
		}
		info.TokenBalance = balance
		return nil
	})
	g.Go(func() error {
		balance, err := s.treasury.NativeBalance(gctx)
		if err != nil {
			return fmt.Errorf("native balance: %w", err)
		}
		info.NativeBalance = balance
		return nil
	})
	if err := g.Wait(); err != nil {
		s.logger.WithError(err).WithField("admin", info.AdminAddress).Warn("read admin wallet")
		return nil, err
	}
	return info, nil
}
