package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"frame-weaver/internal/domain"
	"frame-weaver/internal/metrics"
	"frame-weaver/internal/repository"
)

const (
	DefaultClaimCooldown = 24 * time.Hour
	DefaultClaimTimeout  = 90 * time.Second
	// minimum margin between the disbursement timeout and lease expiry
	leaseMargin = 30 * time.Second
)

const releaseTimeout = 5 * time.Second

// Disburser sends a reward and returns the confirmed transaction hash.
type Disburser interface {
	Transfer(ctx context.Context, to, amount string) (string, error)
}

// ClaimConfig tunes the claim ledger. Zero values fall back to defaults.
type ClaimConfig struct {
	Amount   string
	Cooldown time.Duration
	// Timeout bounds sending and confirming one disbursement.
	Timeout time.Duration
	// LeaseTTL is raised to Timeout+30s when shorter.
	LeaseTTL time.Duration
	Now      func() time.Time
}

// ClaimService gates reward disbursement to one claim per user per cooldown window.
type ClaimService interface {
	Eligibility(ctx context.Context, userID int64) (domain.Eligibility, error)
	// Claim disburses the reward and records it. The row exists only if the
	// transfer confirmed.
	Claim(ctx context.Context, userID int64, walletAddress string) (*domain.Claim, error)
	History(ctx context.Context, userID int64) ([]domain.Claim, error)
}

type claimService struct {
	claims    repository.ClaimRepository
	users     repository.UserRepository
	disburser Disburser
	cfg       ClaimConfig
	logger    logrus.FieldLogger
	metrics   *metrics.Metrics
}

// NewClaimService builds the claim ledger. A nil disburser makes every claim fail
// with ErrDisbursementUnavailable while eligibility keeps working.
func NewClaimService(
	claims repository.ClaimRepository,
	users repository.UserRepository,
	disburser Disburser,
	cfg ClaimConfig,
	logger logrus.FieldLogger,
	m *metrics.Metrics,
) ClaimService {
	if cfg.Amount == "" {
		cfg.Amount = domain.DefaultClaimAmount
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = DefaultClaimCooldown
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultClaimTimeout
	}
	if cfg.LeaseTTL < cfg.Timeout+leaseMargin {
		cfg.LeaseTTL = cfg.Timeout + leaseMargin
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &claimService{
		claims:    claims,
		users:     users,
		disburser: disburser,
		cfg:       cfg,
		logger:    logger,
		metrics:   m,
	}
}

func (s *claimService) now() time.Time {
	return s.cfg.Now().UTC()
}

func (s *claimService) Eligibility(ctx context.Context, userID int64) (domain.Eligibility, error) {
	if err := s.requireUser(ctx, userID); err != nil {
		return domain.Eligibility{}, err
	}
	return s.evaluate(ctx, userID)
}

func (s *claimService) evaluate(ctx context.Context, userID int64) (domain.Eligibility, error) {
	last, err := s.claims.Latest(ctx, userID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return domain.Eligibility{}, err
	}
	return domain.EvaluateEligibility(last, s.now(), s.cfg.Cooldown), nil
}

func (s *claimService) Claim(ctx context.Context, userID int64, walletAddress string) (*domain.Claim, error) {
	walletAddress = strings.TrimSpace(walletAddress)
	if userID <= 0 || walletAddress == "" {
		s.metrics.Claim(metrics.ResultInvalid)
		return nil, invalid("User ID and wallet address required")
	}
	if !isWalletAddress(walletAddress) {
		s.metrics.Claim(metrics.ResultInvalid)
		return nil, invalid("wallet address must be a 0x-prefixed hex address")
	}
	if s.disburser == nil {
		s.metrics.Claim(metrics.ResultUnavailable)
		return nil, ErrDisbursementUnavailable
	}
	if err := s.requireUser(ctx, userID); err != nil {
		return nil, err
	}

	// fast path, the authoritative check runs under the lease
	if elig, err := s.evaluate(ctx, userID); err != nil {
		return nil, err
	} else if !elig.CanClaim() {
		s.metrics.Claim(metrics.ResultCooldown)
		return nil, &CooldownError{NextClaimTime: elig.NextClaimTime, Remaining: elig.Remaining}
	}

	token := uuid.NewString()
	acquired, err := s.claims.AcquireLease(ctx, userID, token, s.now(), s.cfg.LeaseTTL)
	if err != nil {
		return nil, fmt.Errorf("acquire claim lease: %w", err)
	}
	if !acquired {
		s.metrics.Claim(metrics.ResultInProgress)
		return nil, ErrClaimInProgress
	}
	defer s.release(ctx, userID, token)

	elig, err := s.evaluate(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !elig.CanClaim() {
		s.metrics.Claim(metrics.ResultCooldown)
		return nil, &CooldownError{NextClaimTime: elig.NextClaimTime, Remaining: elig.Remaining}
	}

	log := s.logger.WithFields(logrus.Fields{"user_id": userID, "wallet": walletAddress})

	started := time.Now()
	txCtx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	hash, err := s.disburser.Transfer(txCtx, walletAddress, s.cfg.Amount)
	cancel()
	if err != nil {
		s.metrics.Claim(metrics.ResultFailed)
		log.WithError(err).Error("reward disbursement failed")
		return nil, fmt.Errorf("%w: %v", ErrTransaction, err)
	}
	s.metrics.ObserveConfirmation(time.Since(started))

	claim := &domain.Claim{
		UserID:          userID,
		ClaimedAt:       s.now(),
		TransactionHash: &hash,
		Amount:          s.cfg.Amount,
	}
	// the tokens are gone, so the row must land even if the caller hung up
	writeCtx := context.WithoutCancel(ctx)
	err = s.claims.InsertIfEligible(writeCtx, claim, claim.ClaimedAt.Add(-s.cfg.Cooldown))
	if err != nil {
		log = log.WithField("tx_hash", hash)
		if errors.Is(err, repository.ErrConflict) {
			s.metrics.Claim(metrics.ResultCooldown)
			log.Error("claim disbursed but ledger already holds a claim in window")
			return nil, fmt.Errorf("%w: concurrent claim recorded", ErrCooldown)
		}
		s.metrics.Claim(metrics.ResultFailed)
		log.WithError(err).Error("claim disbursed but not recorded")
		return nil, fmt.Errorf("record claim: %w", err)
	}

	s.metrics.Claim(metrics.ResultSuccess)
	log.WithField("tx_hash", hash).Info("reward claimed")
	return claim, nil
}

func (s *claimService) History(ctx context.Context, userID int64) ([]domain.Claim, error) {
	if err := s.requireUser(ctx, userID); err != nil {
		return nil, err
	}
	return s.claims.ListByUser(ctx, userID)
}

func (s *claimService) requireUser(ctx context.Context, userID int64) error {
	if userID <= 0 {
		return invalid("userId must be a positive integer")
	}
	if _, err := s.users.GetByID(ctx, userID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		}
		return err
	}
	return nil
}

func (s *claimService) release(ctx context.Context, userID int64, token string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), releaseTimeout)
	defer cancel()
	if err := s.claims.ReleaseLease(ctx, userID, token); err != nil {
		s.logger.WithError(err).WithField("user_id", userID).Warn("release claim lease")
	}
}
