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

const createNFTsTable = `
CREATE TABLE IF NOT EXISTS nfts (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id INTEGER NOT NULL,
	token_id TEXT NOT NULL,
	minted_at INTEGER NOT NULL,
	transaction_hash TEXT NULL,
	raw_score REAL NOT NULL,
	composite_score REAL NOT NULL,
	FOREIGN KEY(user_id) REFERENCES users(id)
);
CREATE INDEX IF NOT EXISTS idx_nfts_user_id ON nfts(user_id);
CREATE INDEX IF NOT EXISTS idx_nfts_token_id ON nfts(token_id);
`

type NFTRepository struct {
	db *sql.DB
}

func NewNFTRepository(db *sql.DB) repository.NFTRepository {
	return &NFTRepository{db: db}
}

func (r *NFTRepository) Init(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, createNFTsTable); err != nil {
		return fmt.Errorf("create nfts table: %w", err)
	}
	return nil
}

func (r *NFTRepository) Create(ctx context.Context, record *domain.MintRecord) (int64, error) {
	if record.MintedAt.IsZero() {
		record.MintedAt = time.Now()
	}
	record.MintedAt = record.MintedAt.UTC().Truncate(time.Millisecond)

	res, err := r.db.ExecContext(ctx, `
INSERT INTO nfts (user_id, token_id, minted_at, transaction_hash, raw_score, composite_score)
VALUES (?, ?, ?, ?, ?, ?)`,
		record.UserID,
		record.TokenID,
		toMillis(record.MintedAt),
		nullString(record.TransactionHash),
		record.RawScore,
		record.CompositeScore,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return 0, repository.ErrNotFound
		}
		return 0, fmt.Errorf("insert nft: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("nft last insert id: %w", err)
	}
	record.ID = id
	return id, nil
}

func (r *NFTRepository) ListByUser(ctx context.Context, userID int64) ([]domain.MintRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, user_id, token_id, minted_at, transaction_hash, raw_score, composite_score
FROM nfts
WHERE user_id = ?
ORDER BY minted_at DESC, id DESC`,
		userID,
	)
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
	row := r.db.QueryRowContext(ctx, `
SELECT id, user_id, token_id, minted_at, transaction_hash, raw_score, composite_score
FROM nfts
WHERE token_id = ?
ORDER BY id DESC
LIMIT 1`,
		tokenID,
	)
	return scanMintRecord(row)
}

func scanMintRecord(row interface {
	Scan(dest ...any) error
}) (*domain.MintRecord, error) {
	var (
		record   domain.MintRecord
		mintedAt int64
		txHash   sql.NullString
	)
	if err := row.Scan(
		&record.ID,
		&record.UserID,
		&record.TokenID,
		&mintedAt,
		&txHash,
		&record.RawScore,
		&record.CompositeScore,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan nft: %w", err)
	}
	record.MintedAt = fromMillis(mintedAt)
	record.TransactionHash = stringPtr(txHash)
	return &record, nil
}
