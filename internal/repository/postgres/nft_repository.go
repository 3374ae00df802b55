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

var _ repository.NFTRepository = (*NFTRepository)(nil)

const nftColumns = `id, user_id, token_id, minted_at, transaction_hash, raw_score, composite_score`

// NFTRepository stores mint records in Postgres.
type NFTRepository struct {
	pool *pgxpool.Pool
}

func NewNFTRepository(pool *pgxpool.Pool) *NFTRepository {
	return &NFTRepository{pool: pool}
}

func (r *NFTRepository) Init(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS nfts (
			id BIGSERIAL PRIMARY KEY,
			user_id BIGINT NOT NULL REFERENCES users(id),
			token_id TEXT NOT NULL,
			minted_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			transaction_hash TEXT,
			raw_score DOUBLE PRECISION NOT NULL,
			composite_score DOUBLE PRECISION NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS nfts_user_id_idx ON nfts (user_id);`,
		`CREATE INDEX IF NOT EXISTS nfts_token_id_idx ON nfts (token_id);`,
	}
	for _, stmt := range stmts {
		if _, err := r.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("apply nft migrations: %w", err)
		}
	}
	return nil
}

func (r *NFTRepository) Create(ctx context.Context, record *domain.MintRecord) (int64, error) {
	if record.MintedAt.IsZero() {
		record.MintedAt = time.Now()
	}
	row := r.pool.QueryRow(ctx, `
		INSERT INTO nfts (user_id, token_id, minted_at, transaction_hash, raw_score, composite_score)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+nftColumns,
		record.UserID, record.TokenID, record.MintedAt.UTC(), record.TransactionHash, record.RawScore, record.CompositeScore,
	)
	created, err := scanMintRecord(row)
	if err != nil {
		if pgCode(err) == foreignKeyViolation {
			return 0, repository.ErrNotFound
		}
		return 0, fmt.Errorf("insert nft: %w", err)
	}
	*record = *created
	return record.ID, nil
}

func (r *NFTRepository) ListByUser(ctx context.Context, userID int64) ([]domain.MintRecord, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+nftColumns+` FROM nfts
		WHERE user_id = $1
		ORDER BY minted_at DESC, id DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("query nfts: %w", err)
	}
	defer rows.Close()

	records := []domain.MintRecord{}
	for rows.Next() {
		record, err := scanMintRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *record)
	}
	return records, rows.Err()
}

func (r *NFTRepository) GetByTokenID(ctx context.Context, tokenID string) (*domain.MintRecord, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+nftColumns+` FROM nfts
		WHERE token_id = $1
		ORDER BY id DESC
		LIMIT 1`, tokenID)
	return scanMintRecord(row)
}

func scanMintRecord(row pgx.Row) (*domain.MintRecord, error) {
	var record domain.MintRecord
	if err := row.Scan(
		&record.ID,
		&record.UserID,
		&record.TokenID,
		&record.MintedAt,
		&record.TransactionHash,
		&record.RawScore,
		&record.CompositeScore,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	record.MintedAt = record.MintedAt.UTC()
	return &record, nil
}
