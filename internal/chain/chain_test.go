package chain

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"frame-weaver/internal/domain"
)

const testKey = "0x4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318"

type fakeBackend struct {
	mu          sync.Mutex
	nonce       uint64
	sent        []*types.Transaction
	receipt     func(tx *types.Transaction) *types.Receipt
	callResult  []byte
	callErr     error
	receiptErr  error
	balance     *big.Int
	estimateErr error
}

func (f *fakeBackend) PendingNonceAt(context.Context, common.Address) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.nonce, nil
}

func (f *fakeBackend) SuggestGasTipCap(context.Context) (*big.Int, error) {
	return big.NewInt(1_000_000), nil
}

func (f *fakeBackend) HeaderByNumber(context.Context, *big.Int) (*types.Header, error) {
	return &types.Header{BaseFee: big.NewInt(5_000_000)}, nil
}

func (f *fakeBackend) EstimateGas(context.Context, ethereum.CallMsg) (uint64, error) {
	return 50_000, f.estimateErr
}

func (f *fakeBackend) SendTransaction(_ context.Context, tx *types.Transaction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, tx)
	f.nonce++
	return nil
}

func (f *fakeBackend) TransactionReceipt(_ context.Context, hash common.Hash) (*types.Receipt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, tx := range f.sent {
		if tx.Hash() == hash && f.receipt != nil {
			if r := f.receipt(tx); r != nil {
				return r, nil
			}
		}
	}
	if f.receiptErr != nil {
		return nil, f.receiptErr
	}
	return nil, ethereum.NotFound
}

func (f *fakeBackend) CallContract(context.Context, ethereum.CallMsg, *big.Int) ([]byte, error) {
	return f.callResult, f.callErr
}

func (f *fakeBackend) BalanceAt(context.Context, common.Address, *big.Int) (*big.Int, error) {
	if f.balance == nil {
		return nil, errors.New("balance unavailable")
	}
	return f.balance, nil
}

func newTestSigner(t *testing.T, backend Backend) *Signer {
	t.Helper()
	signer, err := NewSignerWithBackend(backend, Config{
		PrivateKey:     testKey,
		ConfirmTimeout: 100 * time.Millisecond,
		PollInterval:   5 * time.Millisecond,
	})
	require.NoError(t, err)
	return signer
}

func successReceipt(logs ...*types.Log) func(*types.Transaction) *types.Receipt {
	return func(tx *types.Transaction) *types.Receipt {
		return &types.Receipt{Status: types.ReceiptStatusSuccessful, TxHash: tx.Hash(), Logs: logs}
	}
}

func TestNewSignerRequiresKey(t *testing.T) {
	_, err := NewSigner(context.Background(), Config{})
	assert.ErrorIs(t, err, ErrNotConfigured)

	_, err = NewSignerWithBackend(&fakeBackend{}, Config{PrivateKey: "0xnothex"})
	assert.Error(t, err)
}

func TestParseUnits(t *testing.T) {
	v, err := ParseUnits("1", 18)
	require.NoError(t, err)
	assert.Equal(t, "1000000000000000000", v.String())

	v, err = ParseUnits("0.25", 18)
	require.NoError(t, err)
	assert.Equal(t, "250000000000000000", v.String())

	v, err = ParseUnits("0.5", 2)
	require.NoError(t, err)
	assert.Equal(t, "50", v.String())

	v, err = ParseUnits("1.50", 1)
	require.NoError(t, err)
	assert.Equal(t, "15", v.String())

	v, err = ParseUnits("1e0", 18)
	require.NoError(t, err)
	assert.Equal(t, "1000000000000000000", v.String())

	v, err = ParseUnits("2.5e-1", 2)
	require.NoError(t, err)
	assert.Equal(t, "25", v.String())

	for _, bad := range []string{"", "-1", "1.2.3", "abc", "0", "0.001", "1e-3"} {
		_, err := ParseUnits(bad, 2)
		assert.Error(t, err, bad)
	}

	_, err = ParseUnits("1", 40)
	assert.Error(t, err)
}

func TestFormatUnits(t *testing.T) {
	assert.Equal(t, "1.5", FormatUnits(big.NewInt(1500), 3))
	assert.Equal(t, "0", FormatUnits(nil, 18))
	v, _ := new(big.Int).SetString("2000000000000000000", 10)
	assert.Equal(t, "2", FormatUnits(v, 18))
}

func TestTokenTransfer(t *testing.T) {
	backend := &fakeBackend{nonce: 7, receipt: successReceipt()}
	signer := newTestSigner(t, backend)
	transfer, err := NewTokenTransfer(signer, "", 18)
	require.NoError(t, err)

	dest := "0x00000000000000000000000000000000000000aa"
	hash, err := transfer.Transfer(context.Background(), dest, "1")
	require.NoError(t, err)

	require.Len(t, backend.sent, 1)
	tx := backend.sent[0]
	assert.Equal(t, tx.Hash().Hex(), hash)
	assert.Equal(t, uint64(7), tx.Nonce())
	assert.Equal(t, common.HexToAddress(DefaultTokenAddress), *tx.To())
	assert.Equal(t, uint64(60_000), tx.Gas())
	assert.Equal(t, big.NewInt(DefaultChainID), tx.ChainId())

	method := erc20ABI.Methods["transfer"]
	assert.Equal(t, method.ID, tx.Data()[:4])
	args, err := method.Inputs.Unpack(tx.Data()[4:])
	require.NoError(t, err)
	assert.Equal(t, common.HexToAddress(dest), args[0])
	assert.Equal(t, "1000000000000000000", args[1].(*big.Int).String())

	sender, err := types.Sender(types.LatestSignerForChainID(tx.ChainId()), tx)
	require.NoError(t, err)
	assert.Equal(t, signer.Address(), sender)
}

func TestTransferRejectsBadAddress(t *testing.T) {
	backend := &fakeBackend{}
	transfer, err := NewTokenTransfer(newTestSigner(t, backend), "", 18)
	require.NoError(t, err)

	_, err = transfer.Transfer(context.Background(), "not-an-address", "1")
	assert.ErrorIs(t, err, ErrInvalidAddress)
	assert.Empty(t, backend.sent)
}

func TestTransferReverted(t *testing.T) {
	backend := &fakeBackend{receipt: func(tx *types.Transaction) *types.Receipt {
		return &types.Receipt{Status: types.ReceiptStatusFailed, TxHash: tx.Hash()}
	}}
	transfer, err := NewTokenTransfer(newTestSigner(t, backend), "", 18)
	require.NoError(t, err)

	hash, err := transfer.Transfer(context.Background(), "0x00000000000000000000000000000000000000aa", "1")
	assert.ErrorIs(t, err, ErrTransactionFailed)
	assert.Equal(t, backend.sent[0].Hash().Hex(), hash)
}

func TestTransferConfirmationTimeout(t *testing.T) {
	backend := &fakeBackend{}
	transfer, err := NewTokenTransfer(newTestSigner(t, backend), "", 18)
	require.NoError(t, err)

	_, err = transfer.Transfer(context.Background(), "0x00000000000000000000000000000000000000aa", "1")
	assert.ErrorIs(t, err, ErrConfirmationTimeout)
}

func TestTransferEstimateFailure(t *testing.T) {
	backend := &fakeBackend{estimateErr: errors.New("boom")}
	transfer, err := NewTokenTransfer(newTestSigner(t, backend), "", 18)
	require.NoError(t, err)

	_, err = transfer.Transfer(context.Background(), "0x00000000000000000000000000000000000000aa", "1")
	assert.ErrorContains(t, err, "estimate gas")
	assert.Empty(t, backend.sent)
}

func TestDropMinterReadsTokenIDFromLogs(t *testing.T) {
	receiver := common.HexToAddress("0x00000000000000000000000000000000000000bb")
	contract := common.HexToAddress(DefaultDropAddress)
	mintLog := &types.Log{
		Address: contract,
		Topics: []common.Hash{
			transferTopic,
			common.Hash{},
			common.BytesToHash(receiver.Bytes()),
			common.BigToHash(big.NewInt(42)),
		},
	}
	backend := &fakeBackend{receipt: successReceipt(mintLog)}
	minter, err := NewDropMinter(newTestSigner(t, backend), "")
	require.NoError(t, err)

	receipt, err := minter.Mint(context.Background(), receiver.Hex(), domain.MintMetadata{})
	require.NoError(t, err)
	assert.Equal(t, "42", receipt.TokenID)
	assert.Equal(t, backend.sent[0].Hash().Hex(), receipt.TransactionHash)
	assert.Equal(t, dropABI.Methods["claim"].ID, backend.sent[0].Data()[:4])
}

func TestDropMinterFallsBackToNextTokenID(t *testing.T) {
	out, err := dropABI.Methods["nextTokenIdToClaim"].Outputs.Pack(big.NewInt(8))
	require.NoError(t, err)
	backend := &fakeBackend{receipt: successReceipt(), callResult: out}
	minter, err := NewDropMinter(newTestSigner(t, backend), "")
	require.NoError(t, err)

	receipt, err := minter.Mint(context.Background(), "0x00000000000000000000000000000000000000bb", domain.MintMetadata{})
	require.NoError(t, err)
	assert.Equal(t, "7", receipt.TokenID)
}

func TestDropMinterTokenIDUnknown(t *testing.T) {
	backend := &fakeBackend{receipt: successReceipt(), callErr: errors.New("rpc down")}
	minter, err := NewDropMinter(newTestSigner(t, backend), "")
	require.NoError(t, err)

	receipt, err := minter.Mint(context.Background(), "0x00000000000000000000000000000000000000bb", domain.MintMetadata{})
	assert.ErrorIs(t, err, ErrTokenIDUnknown)
	assert.ErrorContains(t, err, "rpc down")
	assert.Empty(t, receipt.TokenID)
	assert.Equal(t, backend.sent[0].Hash().Hex(), receipt.TransactionHash)
}

func TestDropMinterRejectsZeroNextTokenID(t *testing.T) {
	out, err := dropABI.Methods["nextTokenIdToClaim"].Outputs.Pack(big.NewInt(0))
	require.NoError(t, err)
	backend := &fakeBackend{receipt: successReceipt(), callResult: out}
	minter, err := NewDropMinter(newTestSigner(t, backend), "")
	require.NoError(t, err)

	_, err = minter.Mint(context.Background(), "0x00000000000000000000000000000000000000bb", domain.MintMetadata{})
	assert.ErrorIs(t, err, ErrTokenIDUnknown)
}

func TestConfirmationTimeoutKeepsLastRPCError(t *testing.T) {
	backend := &fakeBackend{receiptErr: errors.New("429 too many requests")}
	transfer, err := NewTokenTransfer(newTestSigner(t, backend), "", 18)
	require.NoError(t, err)

	_, err = transfer.Transfer(context.Background(), "0x00000000000000000000000000000000000000aa", "1")
	assert.ErrorIs(t, err, ErrConfirmationTimeout)
	assert.ErrorContains(t, err, "429 too many requests")
}

func TestTokenTransferBalances(t *testing.T) {
	tokens, _ := new(big.Int).SetString("1250000000000000000000", 10)
	out, err := erc20ABI.Methods["balanceOf"].Outputs.Pack(tokens)
	require.NoError(t, err)
	wei, _ := new(big.Int).SetString("30000000000000000", 10)
	backend := &fakeBackend{callResult: out, balance: wei}
	signer := newTestSigner(t, backend)
	transfer, err := NewTokenTransfer(signer, "", 18)
	require.NoError(t, err)

	assert.Equal(t, signer.Address().Hex(), transfer.Account())

	balance, err := transfer.TokenBalance(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "1250", balance)

	eth, err := transfer.NativeBalance(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "0.03", eth)
}

func TestTokenTransferBalanceErrors(t *testing.T) {
	backend := &fakeBackend{callErr: errors.New("rpc down")}
	transfer, err := NewTokenTransfer(newTestSigner(t, backend), "", 18)
	require.NoError(t, err)

	_, err = transfer.TokenBalance(context.Background())
	assert.ErrorContains(t, err, "balanceOf")

	_, err = transfer.NativeBalance(context.Background())
	assert.ErrorContains(t, err, "native balance")
}
