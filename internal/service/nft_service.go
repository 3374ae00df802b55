package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"frame-weaver/internal/domain"
	"frame-weaver/internal/metrics"
	"frame-weaver/internal/repository"
	"frame-weaver/internal/storage"
)

const (
	DefaultMintTimeout   = 2 * time.Minute
	metadataURLExpiry    = 15 * time.Minute
	metadataUploadWindow = 30 * time.Second
)

// Minter mints one score card token to a wallet.
type Minter interface {
	Mint(ctx context.Context, to string, meta domain.MintMetadata) (domain.MintReceipt, error)
}

// RecordInput registers a mint that already happened elsewhere.
type RecordInput struct {
	UserID          int64
	TokenID         string
	TransactionHash *string
	RawScore        float64
	CompositeScore  float64
}

// MintInput requests a server-side mint.
type MintInput struct {
	UserID         int64
	WalletAddress  string
	IdentityID     int64
	Username       string
	RawScore       float64
	CompositeScore float64
}

// MintResult is the outcome of a server-side mint.
type MintResult struct {
	TransactionHash string
	TokenID         string
	Record          *domain.MintRecord
}

// NFTMetadata is the token metadata document published to object storage.
type NFTMetadata struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Image       string         `json:"image,omitempty"`
	Attributes  []NFTAttribute `json:"attributes"`
}

type NFTAttribute struct {
	TraitType string `json:"trait_type"`
	Value     any    `json:"value"`
}

// NFTService keeps mint records. Users may mint without limit.
type NFTService interface {
	Record(ctx context.Context, in RecordInput) (*domain.MintRecord, error)
	ListByUser(ctx context.Context, userID int64) ([]domain.MintRecord, error)
	Mint(ctx context.Context, in MintInput) (*MintResult, error)
	// MetadataURL returns a temporary link to the published metadata of tokenID.
	MetadataURL(ctx context.Context, tokenID string) (string, error)
}

// NFTConfig tunes server-side minting.
type NFTConfig struct {
	Timeout time.Duration
	Now     func() time.Time
}

type nftService struct {
	nfts    repository.NFTRepository
	users   repository.UserRepository
	minter  Minter
	store   storage.Service
	cfg     NFTConfig
	logger  logrus.FieldLogger
	metrics *metrics.Metrics
}

// NewNFTService builds the mint ledger. minter and store are optional.
func NewNFTService(
	nfts repository.NFTRepository,
	users repository.UserRepository,
	minter Minter,
	store storage.Service,
	cfg NFTConfig,
	logger logrus.FieldLogger,
	m *metrics.Metrics,
) NFTService {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultMintTimeout
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &nftService{
		nfts:    nfts,
		users:   users,
		minter:  minter,
		store:   store,
		cfg:     cfg,
		logger:  logger,
		metrics: m,
	}
}

func (s *nftService) Record(ctx context.Context, in RecordInput) (*domain.MintRecord, error) {
	in.TokenID = strings.TrimSpace(in.TokenID)
	if in.UserID <= 0 || in.TokenID == "" {
		return nil, invalid("userId and tokenId are required")
	}
	if err := validScores(in.RawScore, in.CompositeScore); err != nil {
		return nil, err
	}
	if _, err := s.user(ctx, in.UserID); err != nil {
		return nil, err
	}

	record := &domain.MintRecord{
		UserID:          in.UserID,
		TokenID:         in.TokenID,
		MintedAt:        s.cfg.Now().UTC(),
		TransactionHash: in.TransactionHash,
		RawScore:        in.RawScore,
		CompositeScore:  in.CompositeScore,
	}
	if _, err := s.nfts.Create(ctx, record); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return record, nil
}

func (s *nftService) ListByUser(ctx context.Context, userID int64) ([]domain.MintRecord, error) {
	if userID <= 0 {
		return nil, invalid("userId must be a positive integer")
	}
	return s.nfts.ListByUser(ctx, userID)
}

func (s *nftService) Mint(ctx context.Context, in MintInput) (*MintResult, error) {
	in.WalletAddress = strings.TrimSpace(in.WalletAddress)
	if in.UserID <= 0 || in.WalletAddress == "" {
		s.metrics.Mint(metrics.ResultInvalid)
		return nil, invalid("userId and walletAddress are required")
	}
	if !isWalletAddress(in.WalletAddress) {
		s.metrics.Mint(metrics.ResultInvalid)
		return nil, invalid("wallet address must be a 0x-prefixed hex address")
	}
	if err := validScores(in.RawScore, in.CompositeScore); err != nil {
		s.metrics.Mint(metrics.ResultInvalid)
		return nil, err
	}
	if s.minter == nil {
		s.metrics.Mint(metrics.ResultUnavailable)
		return nil, ErrMintUnavailable
	}
	user, err := s.user(ctx, in.UserID)
	if err != nil {
		return nil, err
	}
	if in.IdentityID != 0 && in.IdentityID != user.IdentityID {
		s.metrics.Mint(metrics.ResultInvalid)
		return nil, invalid("identityId does not belong to user")
	}

	username := strings.TrimSpace(in.Username)
	if username == "" {
		username = user.Username
	}
	meta := domain.MintMetadata{
		Name:           fmt.Sprintf("Quotient Score: @%s", username),
		Description:    fmt.Sprintf("Quotient reputation score card for @%s", username),
		Username:       username,
		IdentityID:     user.IdentityID,
		RawScore:       in.RawScore,
		CompositeScore: in.CompositeScore,
	}

	log := s.logger.WithFields(logrus.Fields{"user_id": user.ID, "wallet": in.WalletAddress})

	started := time.Now()
	mintCtx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	receipt, err := s.minter.Mint(mintCtx, in.WalletAddress, meta)
	cancel()
	if err != nil {
		s.metrics.Mint(metrics.ResultFailed)
		if receipt.TransactionHash != "" {
			log = log.WithField("tx_hash", receipt.TransactionHash)
		}
		log.WithError(err).Error("nft mint failed")
		return nil, fmt.Errorf("%w: %v", ErrTransaction, err)
	}
	if strings.TrimSpace(receipt.TokenID) == "" {
		s.metrics.Mint(metrics.ResultFailed)
		log.WithField("tx_hash", receipt.TransactionHash).Error("nft minted without a token id, not recorded")
		return nil, fmt.Errorf("%w: minted token id unknown for %s", ErrTransaction, receipt.TransactionHash)
	}
	s.metrics.ObserveConfirmation(time.Since(started))

	hash := receipt.TransactionHash
	record := &domain.MintRecord{
		UserID:          user.ID,
		TokenID:         receipt.TokenID,
		MintedAt:        s.cfg.Now().UTC(),
		TransactionHash: &hash,
		RawScore:        in.RawScore,
		CompositeScore:  in.CompositeScore,
	}
	writeCtx := context.WithoutCancel(ctx)
	if _, err := s.nfts.Create(writeCtx, record); err != nil {
		s.metrics.Mint(metrics.ResultFailed)
		log.WithError(err).WithField("tx_hash", hash).Error("nft minted but not recorded")
		return nil, fmt.Errorf("record mint: %w", err)
	}

	s.publishMetadata(writeCtx, user, meta, receipt.TokenID)
	s.metrics.Mint(metrics.ResultSuccess)
	log.WithFields(logrus.Fields{"tx_hash": hash, "token_id": receipt.TokenID}).Info("nft minted")

	return &MintResult{
		TransactionHash: hash,
		TokenID:         receipt.TokenID,
		Record:          record,
	}, nil
}

// publishMetadata failures are logged only, the mint itself already succeeded.
func (s *nftService) publishMetadata(ctx context.Context, user *domain.User, meta domain.MintMetadata, tokenID string) {
	if s.store == nil || tokenID == "" {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, metadataUploadWindow)
	defer cancel()

	doc := NFTMetadata{
		Name:        meta.Name,
		Description: meta.Description,
		Image:       user.AvatarURL,
		Attributes: []NFTAttribute{
			{TraitType: "Username", Value: meta.Username},
			{TraitType: "FID", Value: meta.IdentityID},
			{TraitType: "Raw Score", Value: meta.RawScore},
			{TraitType: "Quotient Score", Value: meta.CompositeScore},
		},
	}
	location, err := s.store.PutJSON(ctx, metadataKey(tokenID), doc)
	if err != nil {
		s.logger.WithError(err).WithField("token_id", tokenID).Warn("publish nft metadata")
		return
	}
	s.logger.WithFields(logrus.Fields{"token_id": tokenID, "location": location}).Debug("nft metadata published")
}

func (s *nftService) MetadataURL(ctx context.Context, tokenID string) (string, error) {
	tokenID = strings.TrimSpace(tokenID)
	if tokenID == "" {
		return "", invalid("tokenId is required")
	}
	if s.store == nil {
		return "", ErrMetadataUnavailable
	}
	if _, err := s.nfts.GetByTokenID(ctx, tokenID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", ErrNFTNotFound
		}
		return "", err
	}
	return s.store.ObjectURL(ctx, metadataKey(tokenID), metadataURLExpiry)
}

func (s *nftService) user(ctx context.Context, userID int64) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

func metadataKey(tokenID string) string {
	return "nfts/" + tokenID + ".json"
}

func validScores(raw, composite float64) error {
	for _, v := range []float64{raw, composite} {
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 || v > 1 {
			return invalid("scores must be numbers between 0 and 1")
		}
	}
	return nil
}
