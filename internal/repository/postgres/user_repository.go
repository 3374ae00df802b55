package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"frame-weaver/internal/domain"
	"frame-weaver/internal/repository"
)

// Ensure UserRepository satisfies the repository interface at compile time.
var _ repository.UserRepository = (*UserRepository)(nil)

const userColumns = `id, identity_id, username, display_name, avatar_url, wallet_address, created_at`

// UserRepository stores users in Postgres.
type UserRepository struct {
	pool *pgxpool.Pool
}

func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

func (r *UserRepository) Init(ctx context.Context) error {
	const stmt = `CREATE TABLE IF NOT EXISTS users (
		id BIGSERIAL PRIMARY KEY,
		identity_id BIGINT UNIQUE NOT NULL,
		username TEXT NOT NULL,
		display_name TEXT NOT NULL,
		avatar_url TEXT NOT NULL,
		wallet_address TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`
	if _, err := r.pool.Exec(ctx, stmt); err != nil {
		return fmt.Errorf("create users table: %w", err)
	}
	return nil
}

func (r *UserRepository) Create(ctx context.Context, user *domain.User) (int64, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO users (identity_id, username, display_name, avatar_url, wallet_address)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+userColumns,
		user.IdentityID, user.Username, user.DisplayName, user.AvatarURL, user.WalletAddress,
	)
	created, err := scanUser(row)
	if err != nil {
		if pgCode(err) == uniqueViolation {
			return 0, repository.ErrAlreadyExists
		}
		return 0, fmt.Errorf("insert user: %w", err)
	}
	*user = *created
	return user.ID, nil
}

func (r *UserRepository) GetByIdentityID(ctx context.Context, identityID int64) (*domain.User, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE identity_id = $1`, identityID)
	return scanUser(row)
}

func (r *UserRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	return scanUser(row)
}

func (r *UserRepository) UpdateWallet(ctx context.Context, identityID int64, walletAddress string) (*domain.User, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE users SET wallet_address = $2
		WHERE identity_id = $1
		RETURNING `+userColumns,
		identityID, walletAddress,
	)
	return scanUser(row)
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var user domain.User
	if err := row.Scan(
		&user.ID,
		&user.IdentityID,
		&user.Username,
		&user.DisplayName,
		&user.AvatarURL,
		&user.WalletAddress,
		&user.CreatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	user.CreatedAt = user.CreatedAt.UTC()
	return &user, nil
}
