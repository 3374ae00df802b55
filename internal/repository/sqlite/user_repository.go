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

const createUsersTable = `
CREATE TABLE IF NOT EXISTS users (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	identity_id INTEGER NOT NULL UNIQUE,
	username TEXT NOT NULL,
	display_name TEXT NOT NULL,
	avatar_url TEXT NOT NULL,
	wallet_address TEXT NULL,
	created_at INTEGER NOT NULL
);
`

type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) repository.UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Init(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, createUsersTable); err != nil {
		return fmt.Errorf("create users table: %w", err)
	}
	return nil
}

func (r *UserRepository) Create(ctx context.Context, user *domain.User) (int64, error) {
	user.CreatedAt = time.Now().UTC().Truncate(time.Millisecond)

	res, err := r.db.ExecContext(ctx, `
INSERT INTO users (identity_id, username, display_name, avatar_url, wallet_address, created_at)
VALUES (?, ?, ?, ?, ?, ?)`,
		user.IdentityID,
		user.Username,
		user.DisplayName,
		user.AvatarURL,
		nullString(user.WalletAddress),
		toMillis(user.CreatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, repository.ErrAlreadyExists
		}
		return 0, fmt.Errorf("insert user: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("user last insert id: %w", err)
	}
	user.ID = id
	return id, nil
}

func (r *UserRepository) GetByIdentityID(ctx context.Context, identityID int64) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, identity_id, username, display_name, avatar_url, wallet_address, created_at
FROM users
WHERE identity_id = ?`,
		identityID,
	)
	return scanUser(row)
}

func (r *UserRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, identity_id, username, display_name, avatar_url, wallet_address, created_at
FROM users
WHERE id = ?`,
		id,
	)
	return scanUser(row)
}

func (r *UserRepository) UpdateWallet(ctx context.Context, identityID int64, walletAddress string) (*domain.User, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE users SET wallet_address = ? WHERE identity_id = ?`, walletAddress, identityID)
	if err != nil {
		return nil, fmt.Errorf("update wallet: %w", err)
	}
	aff, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("wallet update rows affected: %w", err)
	}
	if aff == 0 {
		return nil, repository.ErrNotFound
	}
	return r.GetByIdentityID(ctx, identityID)
}

func scanUser(row interface {
	Scan(dest ...any) error
}) (*domain.User, error) {
	var (
		user      domain.User
		wallet    sql.NullString
		createdAt int64
	)
	if err := row.Scan(
		&user.ID,
		&user.IdentityID,
		&user.Username,
		&user.DisplayName,
		&user.AvatarURL,
		&wallet,
		&createdAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}
	user.WalletAddress = stringPtr(wallet)
	user.CreatedAt = fromMillis(createdAt)
	return &user, nil
}
