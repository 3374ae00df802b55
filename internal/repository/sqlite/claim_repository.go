package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"frame-weaver/internal/domain"
	"frame-weaver/internal/repository"
)

const createClaimsTables = `
CREATE TABLE IF NOT EXISTS claims (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id INTEGER NOT NULL,
	claimed_at INTEGER NOT NULL,
	transaction_hash TEXT NULL,
	amount TEXT NOT NULL DEFAULT '1',
	FOREIGN KEY(user_id) REFERENCES users(id)
);
CREATE INDEX IF NOT EXISTS idx_claims_user_claimed_at ON claims(user_id, claimed_at);
CREATE TABLE IF NOT EXISTS claim_leases (
	user_id INTEGER PRIMARY KEY,
	token TEXT NOT NULL,
	expires_at INTEGER NOT NULL
);
`

type ClaimRepository struct {
	db *sql.DB
}

func NewClaimRepository(db *sql.DB) repository.ClaimRepository {
	return &ClaimRepository{db: db}
}

func (r *ClaimRepository) Init(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, createClaimsTables); err != nil {
		return fmt.Errorf("create claims tables: %w", err)
	}
	return nil
}

func (r *ClaimRepository) InsertIfEligible(ctx context.Context, claim *domain.Claim, windowStart time.Time) error {
	if claim.Amount == "" {
		claim.Amount = domain.DefaultClaimAmount
	}
	claim.ClaimedAt = claim.ClaimedAt.UTC().Truncate(time.Millisecond)

	// one statement, so the existence check and the insert share sqlite's write lock
	res, err := r.db.ExecContext(ctx, `
INSERT INTO claims (user_id, claimed_at, transaction_hash, amount)
SELECT ?, ?, ?, ?
WHERE NOT EXISTS (
	SELECT 1 FROM claims WHERE user_id = ? AND claimed_at > ?
)`,
		claim.UserID,
		toMillis(claim.ClaimedAt),
		nullString(claim.TransactionHash),
		claim.Amount,
		claim.UserID,
		toMillis(windowStart),
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return repository.ErrNotFound
		}
		return fmt.Errorf("insert claim: %w", err)
	}

	aff, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("claim rows affected: %w", err)
	}
	if aff == 0 {
		return repository.ErrConflict
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("claim last insert id: %w", err)
	}
	claim.ID = id
	return nil
}

func (r *ClaimRepository) Latest(ctx context.Context, userID int64) (*domain.Claim, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, user_id, claimed_at, transaction_hash, amount
FROM claims
WHERE user_id = ?
ORDER BY claimed_at DESC, id DESC
LIMIT 1`,
		userID,
	)
	return scanClaim(row)
}

func (r *ClaimRepository) ListByUser(ctx context.Context, userID int64) ([]domain.Claim, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, user_id, claimed_at, transaction_hash, amount
FROM claims
WHERE user_id = ?
ORDER BY claimed_at DESC, id DESC`,
		userID,
	)
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
	res, err := r.db.ExecContext(ctx, `
INSERT INTO claim_leases (user_id, token, expires_at)
VALUES (?, ?, ?)
ON CONFLICT(user_id) DO UPDATE SET token = excluded.token, expires_at = excluded.expires_at
WHERE claim_leases.expires_at <= ?`,
		userID,
		token,
		toMillis(now.Add(ttl)),
		toMillis(now),
	)
	if err != nil {
		return false, fmt.Errorf("acquire claim lease: %w", err)
	}
	aff, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("claim lease rows affected: %w", err)
	}
	return aff > 0, nil
}

func (r *ClaimRepository) ReleaseLease(ctx context.Context, userID int64, token string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM claim_leases WHERE user_id = ? AND token = ?`, userID, token); err != nil {
		return fmt.Errorf("release claim lease: %w", err)
	}
	return nil
}

func scanClaim(row interface {
	Scan(dest ...any) error
}) (*domain.Claim, error) {
	var (
		claim     domain.Claim
		claimedAt int64
		txHash    sql.NullString
	)
	if err := row.Scan(&claim.ID, &claim.UserID, &claimedAt, &txHash, &claim.Amount); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan claim: %w", err)
	}
	claim.ClaimedAt = fromMillis(claimedAt)
	claim.TransactionHash = stringPtr(txHash)
	return &claim, nil
}
