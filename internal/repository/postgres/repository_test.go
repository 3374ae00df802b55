package postgres

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"frame-weaver/internal/domain"
	"frame-weaver/internal/repository"
)

// These tests need a disposable database; set FRAME_TEST_DATABASE_URL to run them.
func openTestPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	dbURL := os.Getenv("FRAME_TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("set FRAME_TEST_DATABASE_URL to run postgres repository tests")
	}

	ctx := context.Background()
	pool, err := Open(ctx, dbURL)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	for _, stmt := range []string{
		`DROP TABLE IF EXISTS claim_leases`,
		`DROP TABLE IF EXISTS claims`,
		`DROP TABLE IF EXISTS nfts`,
		`DROP TABLE IF EXISTS users`,
	} {
		_, err := pool.Exec(ctx, stmt)
		require.NoError(t, err)
	}
	require.NoError(t, NewUserRepository(pool).Init(ctx))
	require.NoError(t, NewClaimRepository(pool).Init(ctx))
	require.NoError(t, NewNFTRepository(pool).Init(ctx))
	return pool
}

func TestPostgresRepositories(t *testing.T) {
	pool := openTestPool(t)
	ctx := context.Background()

	users := NewUserRepository(pool)
	user := &domain.User{IdentityID: time.Now().UnixNano() % 1_000_000, Username: "bob", DisplayName: "Bob", AvatarURL: "https://img/b.png"}
	_, err := users.Create(ctx, user)
	require.NoError(t, err)

	_, err = users.Create(ctx, &domain.User{IdentityID: user.IdentityID, Username: "dup"})
	assert.ErrorIs(t, err, repository.ErrAlreadyExists)

	updated, err := users.UpdateWallet(ctx, user.IdentityID, "0x1234")
	require.NoError(t, err)
	require.NotNil(t, updated.WalletAddress)
	assert.Equal(t, user.ID, updated.ID)

	claims := NewClaimRepository(pool)
	now := time.Now().UTC()
	first := &domain.Claim{UserID: user.ID, ClaimedAt: now}
	require.NoError(t, claims.InsertIfEligible(ctx, first, now.Add(-24*time.Hour)))

	second := &domain.Claim{UserID: user.ID, ClaimedAt: now.Add(time.Hour)}
	assert.ErrorIs(t, claims.InsertIfEligible(ctx, second, second.ClaimedAt.Add(-24*time.Hour)), repository.ErrConflict)

	latest, err := claims.Latest(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, latest.ID)

	ok, err := claims.AcquireLease(ctx, user.ID, "a", now, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = claims.AcquireLease(ctx, user.ID, "b", now, time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)
	require.NoError(t, claims.ReleaseLease(ctx, user.ID, "a"))

	nfts := NewNFTRepository(pool)
	for _, tokenID := range []string{"1", "2"} {
		_, err := nfts.Create(ctx, &domain.MintRecord{UserID: user.ID, TokenID: tokenID, RawScore: 0.5, CompositeScore: 0.4})
		require.NoError(t, err)
	}
	records, err := nfts.ListByUser(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "2", records[0].TokenID)
}
