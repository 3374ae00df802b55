package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"frame-weaver/internal/domain"
	"frame-weaver/internal/metrics"
	"frame-weaver/internal/neynar"
	"frame-weaver/internal/score"
)

// IdentityProvider returns raw metrics for an identity.
type IdentityProvider interface {
	Identity(ctx context.Context, identityID int64) (domain.Identity, error)
}

// ScoreService fetches metrics and computes a fresh snapshot on every call.
type ScoreService interface {
	Scores(ctx context.Context, identityID int64) (*domain.ScoreSnapshot, error)
}

type scoreService struct {
	provider IdentityProvider
	logger   logrus.FieldLogger
	metrics  *metrics.Metrics
}

// NewScoreService builds the score service. A nil provider makes every lookup fail
// with ErrProviderUnavailable.
func NewScoreService(provider IdentityProvider, logger logrus.FieldLogger, m *metrics.Metrics) ScoreService {
	return &scoreService{provider: provider, logger: logger, metrics: m}
}

func (s *scoreService) Scores(ctx context.Context, identityID int64) (*domain.ScoreSnapshot, error) {
	if identityID <= 0 {
		s.metrics.ScoreLookup(metrics.ResultInvalid)
		return nil, invalid("identityId must be a positive integer")
	}
	if s.provider == nil {
		s.metrics.ScoreLookup(metrics.ResultUnavailable)
		return nil, fmt.Errorf("%w: api key not configured", ErrProviderUnavailable)
	}

	identity, err := s.provider.Identity(ctx, identityID)
	if err != nil {
		if errors.Is(err, neynar.ErrIdentityNotFound) {
			s.metrics.ScoreLookup(metrics.ResultNotFound)
			return nil, ErrIdentityNotFound
		}
		s.metrics.ScoreLookup(metrics.ResultFailed)
		s.logger.WithError(err).WithField("identity_id", identityID).Warn("fetch identity metrics")
		return nil, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}

	snapshot := score.Compute(identity)
	s.metrics.ScoreLookup(metrics.ResultSuccess)
	return &snapshot, nil
}
