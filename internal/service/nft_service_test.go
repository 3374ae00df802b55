package service

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"frame-weaver/internal/domain"
	"frame-weaver/internal/metrics"
)

type fakeMinter struct {
	mu   sync.Mutex
	next int
	err  error
	noID bool
	meta []domain.MintMetadata
}

func (f *fakeMinter) Mint(_ context.Context, _ string, meta domain.MintMetadata) (domain.MintReceipt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return domain.MintReceipt{}, f.err
	}
	f.next++
	f.meta = append(f.meta, meta)
	if f.noID {
		return domain.MintReceipt{TransactionHash: "0xmint"}, nil
	}
	return domain.MintReceipt{TransactionHash: "0xmint", TokenID: strconv.Itoa(f.next)}, nil
}

type fakeStore struct {
	mu   sync.Mutex
	puts map[string]any
	err  error
}

func (f *fakeStore) PutJSON(_ context.Context, key string, value any) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	if f.puts == nil {
		f.puts = map[string]any{}
	}
	f.puts[key] = value
	return "s3://bucket/" + key, nil
}

func (f *fakeStore) ObjectURL(_ context.Context, key string, _ time.Duration) (string, error) {
	return "https://bucket.example/" + key + "?signed", nil
}

func TestRecordAndList(t *testing.T) {
	ctx := context.Background()
	r := newTestRepos(t)
	user := seedUser(t, r, 41)
	svc := NewNFTService(r.nfts, r.users, nil, nil, NFTConfig{Now: newFakeClock().Now}, newTestLogger(), nil)

	for _, token := range []string{"1", "2", "3"} {
		_, err := svc.Record(ctx, RecordInput{UserID: user.ID, TokenID: token, RawScore: 0.5, CompositeScore: 0.4})
		require.NoError(t, err)
	}

	records, err := svc.ListByUser(ctx, user.ID)
	require.NoError(t, err)
	assert.Len(t, records, 3)

	records, err = svc.ListByUser(ctx, user.ID+1)
	require.NoError(t, err)
	assert.Empty(t, records)

	_, err = svc.Record(ctx, RecordInput{UserID: user.ID, TokenID: "", RawScore: 0.5})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.Record(ctx, RecordInput{UserID: user.ID, TokenID: "9", RawScore: 1.5})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.Record(ctx, RecordInput{UserID: user.ID + 1, TokenID: "9", RawScore: 0.1})
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestMintUnlimitedAndPublishesMetadata(t *testing.T) {
	ctx := context.Background()
	r := newTestRepos(t)
	user := seedUser(t, r, 42)
	minter := &fakeMinter{}
	store := &fakeStore{}
	svc := NewNFTService(r.nfts, r.users, minter, store, NFTConfig{}, newTestLogger(), metrics.New())

	for i := 0; i < 2; i++ {
		res, err := svc.Mint(ctx, MintInput{UserID: user.ID, WalletAddress: walletA, RawScore: 0.7, CompositeScore: 0.6})
		require.NoError(t, err)
		assert.Equal(t, "0xmint", res.TransactionHash)
		assert.NotZero(t, res.Record.ID)
	}

	records, err := svc.ListByUser(ctx, user.ID)
	require.NoError(t, err)
	assert.Len(t, records, 2)

	require.Len(t, minter.meta, 2)
	assert.Equal(t, "alice", minter.meta[0].Username)
	assert.Equal(t, int64(42), minter.meta[0].IdentityID)

	require.Contains(t, store.puts, "nfts/1.json")
	doc, ok := store.puts["nfts/1.json"].(NFTMetadata)
	require.True(t, ok)
	assert.Equal(t, "https://img/alice.png", doc.Image)

	url, err := svc.MetadataURL(ctx, "1")
	require.NoError(t, err)
	assert.Contains(t, url, "nfts/1.json")

	_, err = svc.MetadataURL(ctx, "77")
	assert.ErrorIs(t, err, ErrNFTNotFound)
}

func TestMintFailures(t *testing.T) {
	ctx := context.Background()
	r := newTestRepos(t)
	user := seedUser(t, r, 43)

	unconfigured := NewNFTService(r.nfts, r.users, nil, nil, NFTConfig{}, newTestLogger(), nil)
	_, err := unconfigured.Mint(ctx, MintInput{UserID: user.ID, WalletAddress: walletA, RawScore: 0.1, CompositeScore: 0.1})
	assert.ErrorIs(t, err, ErrMintUnavailable)

	_, err = unconfigured.MetadataURL(ctx, "1")
	assert.ErrorIs(t, err, ErrMetadataUnavailable)

	failing := NewNFTService(r.nfts, r.users, &fakeMinter{err: errors.New("reverted")}, nil, NFTConfig{}, newTestLogger(), nil)
	_, err = failing.Mint(ctx, MintInput{UserID: user.ID, WalletAddress: walletA, RawScore: 0.1, CompositeScore: 0.1})
	assert.ErrorIs(t, err, ErrTransaction)

	_, err = failing.Mint(ctx, MintInput{UserID: user.ID, WalletAddress: walletA, IdentityID: 999, RawScore: 0.1, CompositeScore: 0.1})
	assert.ErrorIs(t, err, ErrValidation)

	records, err := failing.ListByUser(ctx, user.ID)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestMintMetadataFailureKeepsRecord(t *testing.T) {
	ctx := context.Background()
	r := newTestRepos(t)
	user := seedUser(t, r, 44)
	svc := NewNFTService(r.nfts, r.users, &fakeMinter{}, &fakeStore{err: errors.New("denied")}, NFTConfig{}, newTestLogger(), nil)

	res, err := svc.Mint(ctx, MintInput{UserID: user.ID, WalletAddress: walletA, RawScore: 0.3, CompositeScore: 0.2})
	require.NoError(t, err)
	assert.Equal(t, "1", res.TokenID)
}

func TestMintWithoutTokenIDRecordsNothing(t *testing.T) {
	ctx := context.Background()
	r := newTestRepos(t)
	user := seedUser(t, r, 45)
	store := &fakeStore{}
	svc := NewNFTService(r.nfts, r.users, &fakeMinter{noID: true}, store, NFTConfig{}, newTestLogger(), nil)

	_, err := svc.Mint(ctx, MintInput{UserID: user.ID, WalletAddress: walletA, RawScore: 0.3, CompositeScore: 0.2})
	assert.ErrorIs(t, err, ErrTransaction)
	assert.ErrorContains(t, err, "0xmint")

	records, err := svc.ListByUser(ctx, user.ID)
	require.NoError(t, err)
	assert.Empty(t, records)
	assert.Empty(t, store.puts)
}

func TestRecordUsesInjectedClock(t *testing.T) {
	ctx := context.Background()
	r := newTestRepos(t)
	user := seedUser(t, r, 46)
	clock := newFakeClock()
	svc := NewNFTService(r.nfts, r.users, &fakeMinter{}, nil, NFTConfig{Now: clock.Now}, newTestLogger(), nil)

	_, err := svc.Record(ctx, RecordInput{UserID: user.ID, TokenID: "3", RawScore: 0.5, CompositeScore: 0.4})
	require.NoError(t, err)
	_, err = svc.Mint(ctx, MintInput{UserID: user.ID, WalletAddress: walletA, RawScore: 0.5, CompositeScore: 0.4})
	require.NoError(t, err)

	records, err := svc.ListByUser(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, records, 2)
	for _, rec := range records {
		assert.True(t, clock.Now().Equal(rec.MintedAt), rec.MintedAt)
	}
}
