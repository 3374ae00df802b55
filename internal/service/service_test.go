package service

import (
	"context"
	"database/sql"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"

	"frame-weaver/internal/domain"
	"frame-weaver/internal/repository"
	"frame-weaver/internal/repository/sqlite"
)

const (
	walletA = "0x1111111111111111111111111111111111111111"
	walletB = "0x2222222222222222222222222222222222222222"
)

type testRepos struct {
	db     *sql.DB
	users  repository.UserRepository
	claims repository.ClaimRepository
	nfts   repository.NFTRepository
}

func newTestRepos(t *testing.T) testRepos {
	t.Helper()
	db, err := sqlite.Open(filepath.Join(t.TempDir(), "frame.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	r := testRepos{
		db:     db,
		users:  sqlite.NewUserRepository(db),
		claims: sqlite.NewClaimRepository(db),
		nfts:   sqlite.NewNFTRepository(db),
	}
	ctx := context.Background()
	require.NoError(t, r.users.Init(ctx))
	require.NoError(t, r.claims.Init(ctx))
	require.NoError(t, r.nfts.Init(ctx))
	return r
}

func newTestLogger() logrus.FieldLogger {
	logger, _ := test.NewNullLogger()
	return logger
}

func seedUser(t *testing.T, r testRepos, identityID int64) *domain.User {
	t.Helper()
	u := &domain.User{IdentityID: identityID, Username: "alice", DisplayName: "Alice", AvatarURL: "https://img/alice.png"}
	_, err := r.users.Create(context.Background(), u)
	require.NoError(t, err)
	return u
}

// fakeClock is safe for concurrent reads.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}
