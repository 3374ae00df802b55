package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"frame-weaver/internal/domain"
	"frame-weaver/internal/repository"
)

var _ repository.ClaimRepository = (*ClaimRepository)(nil)

const claimColumns = `id, user_id, claimed_at, transaction_hash, amount`

// ClaimRepository stores the reward ledger and disbursement leases in Postgres.
type ClaimRepository struct {
	pool *pgxpool.Pool
}

func NewClaimRepository(pool *pgxpool.Pool) *ClaimRepository {
	return &ClaimRepository{pool: pool}
}

func (r *ClaimRepository) Init(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS claims (
			id BIGSERIAL PRIMARY KEY,
			user_id BIGINT NOT NULL REFERENCES users(id),
			claimed_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			transaction_hash TEXT,
			amount TEXT NOT NULL DEFAULT '1'
		);`,
		`CREATE INDEX IF NOT EXISTS claims_user_claimed_at_idx ON claims (user_id, claimed_at DESC);`,
		`CREATE TABLE IF NOT EXISTS claim_leases (
			user_id BIGINT PRIMARY KEY,
			token TEXT NOT NULL,
			expires_at TIMESTAMPTZ NOT NULL
		);`,
	}
	for _, stmt := range stmts {
		if _, err := r.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("apply claim migrations: %w", err)
		}
	}
	return nil
}

func (r *ClaimRepository) InsertIfEligible(ctx context.Context, claim *domain.Claim, windowStart time.Time) error {
	if claim.Amount == "" {
		claim.Amount = domain.DefaultClaimAmount
	}
	claim.ClaimedAt = claim.ClaimedAt.UTC().Truncate(time.Microsecond)

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	// NOT EXISTS alone is racy under read committed; the per-user advisory lock
	// serializes writers until commit.
	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, claim.UserID); err != nil {
		return fmt.Errorf("lock user claims: %w", err)
	}

	row := tx.QueryRow(ctx, `
		INSERT INTO claims (user_id, claimed_at, transaction_hash, amount)
		SELECT $1::bigint, $2::timestamptz, $3::text, $4::text
		WHERE NOT EXISTS (
			SELECT 1 FROM claims WHERE user_id = $1 AND claimed_at > $5
		)
		RETURNING id`,
		claim.UserID, claim.ClaimedAt, claim.TransactionHash, claim.Amount, windowStart.UTC(),
	)
	if err := row.Scan(&claim.ID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return repository.ErrConflict
		}
		if pgCode(err) == foreignKeyViolation {
			return repository.ErrNotFound
		}
		return fmt.Errorf("insert claim: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit claim: %w", err)
	}
	return nil
}

func (r *ClaimRepository) Latest(ctx context.Context, userID int64) (*domain.Claim, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+claimColumns+` FROM claims
		WHERE user_id = $1
		ORDER BY claimed_at DESC, id DESC
		LIMIT 1`, userID)
	return scanClaim(row)
}

func (r *ClaimRepository) ListByUser(ctx context.Context, userID int64) ([]domain.Claim, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+claimColumns+` FROM claims
		WHERE user_id = $1
		ORDER BY claimed_at DESC, id DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("query claims: %w", err)
	}
	defer rows.Close()

	claims := []domain.Claim{}
	for rows.Next() {
		claim, err := scanClaim(rows)
		if err != nil {
			return nil, err
		}
		claims = append(claims, *claim)
	}
	return claims, rows.Err()
}

func (r *ClaimRepository) AcquireLease(ctx context.Context, userID int64, token string, now time.Time, ttl time.Duration) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		INSERT INTO claim_leases (user_id, token, expires_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id) DO UPDATE SET token = EXCLUDED.token, expires_at = EXCLUDED.expires_at
		WHERE claim_leases.expires_at <= $4`,
		userID, token, now.Add(ttl).UTC(), now.UTC(),
	)
	if err != nil {
		return false, fmt.Errorf("acquire claim lease: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *ClaimRepository) ReleaseLease(ctx context.Context, userID int64, token string) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM claim_leases WHERE user_id = $1 AND token = $2`, userID, token); err != nil {
		return fmt.Errorf("release claim lease: %w", err)
	}
	return nil
}

func scanClaim(row pgx.Row) (*domain.Claim, error) {
	var claim domain.Claim
	if err := row.Scan(&claim.ID, &claim.UserID, &claim.ClaimedAt, &claim.TransactionHash, &claim.Amount); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan claim: %w", err)
	}
	claim.ClaimedAt = claim.ClaimedAt.UTC()
	return &claim, nil
}
