// Package chain sends reward transfers and NFT mints from the admin wallet.
package chain

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
)

const (
	DefaultRPCURL         = "https://mainnet.base.org"
	DefaultChainID        = 8453
	defaultConfirmTimeout = 60 * time.Second
	defaultPollInterval   = 2 * time.Second
)

var (
	// ErrNotConfigured is returned by NewSigner when no private key is set.
	ErrNotConfigured = errors.New("admin wallet private key not configured")
	// ErrInvalidAddress rejects destinations that are not hex addresses.
	ErrInvalidAddress = errors.New("invalid address")
	// ErrConfirmationTimeout means no receipt arrived within the confirmation window.
	ErrConfirmationTimeout = errors.New("transaction confirmation timed out")
	// ErrTransactionFailed means the transaction was mined but reverted.
	ErrTransactionFailed = errors.New("transaction reverted")
	// ErrTokenIDUnknown means a mint confirmed but its token id could not be determined.
	ErrTokenIDUnknown = errors.New("minted token id unknown")
)

// Backend is the subset of the JSON-RPC client the signer needs.
type Backend interface {
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasTipCap(ctx context.Context) (*big.Int, error)
	HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
}

type Config struct {
	RPCURL         string
	ChainID        int64
	PrivateKey     string
	ConfirmTimeout time.Duration
	PollInterval   time.Duration
}

// Signer signs and submits transactions for a single account.
type Signer struct {
	backend        Backend
	key            *ecdsa.PrivateKey
	from           common.Address
	chainID        *big.Int
	confirmTimeout time.Duration
	pollInterval   time.Duration

	// serializes nonce allocation for this account
	mu sync.Mutex
}

// NewSigner dials the RPC endpoint and loads the admin key.
func NewSigner(ctx context.Context, cfg Config) (*Signer, error) {
	if strings.TrimSpace(cfg.PrivateKey) == "" {
		return nil, ErrNotConfigured
	}
	rpcURL := cfg.RPCURL
	if rpcURL == "" {
		rpcURL = DefaultRPCURL
	}
	client, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("dial rpc: %w", err)
	}
	signer, err := NewSignerWithBackend(client, cfg)
	if err != nil {
		client.Close()
		return nil, err
	}
	return signer, nil
}

// NewSignerWithBackend builds a Signer on an existing backend.
func NewSignerWithBackend(backend Backend, cfg Config) (*Signer, error) {
	raw := strings.TrimPrefix(strings.TrimSpace(cfg.PrivateKey), "0x")
	if raw == "" {
		return nil, ErrNotConfigured
	}
	key, err := crypto.HexToECDSA(raw)
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}

	chainID := cfg.ChainID
	if chainID == 0 {
		chainID = DefaultChainID
	}
	confirm := cfg.ConfirmTimeout
	if confirm <= 0 {
		confirm = defaultConfirmTimeout
	}
	poll := cfg.PollInterval
	if poll <= 0 {
		poll = defaultPollInterval
	}

	return &Signer{
		backend:        backend,
		key:            key,
		from:           crypto.PubkeyToAddress(key.PublicKey),
		chainID:        big.NewInt(chainID),
		confirmTimeout: confirm,
		pollInterval:   poll,
	}, nil
}

// Address returns the admin account address.
func (s *Signer) Address() common.Address {
	return s.from
}

// NativeBalance returns the admin account's ETH balance in wei.
func (s *Signer) NativeBalance(ctx context.Context) (*big.Int, error) {
	balance, err := s.backend.BalanceAt(ctx, s.from, nil)
	if err != nil {
		return nil, fmt.Errorf("native balance: %w", err)
	}
	return balance, nil
}

// send submits a contract call and waits for its receipt. The hash is returned
// whenever the transaction reached the network, including on failure.
func (s *Signer) send(ctx context.Context, to common.Address, data []byte) (common.Hash, *types.Receipt, error) {
	tx, err := s.signAndSend(ctx, to, data)
	if err != nil {
		return common.Hash{}, nil, err
	}

	receipt, err := s.waitMined(ctx, tx.Hash())
	if err != nil {
		return tx.Hash(), nil, err
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return tx.Hash(), receipt, fmt.Errorf("%w: %s", ErrTransactionFailed, tx.Hash().Hex())
	}
	return tx.Hash(), receipt, nil
}

func (s *Signer) signAndSend(ctx context.Context, to common.Address, data []byte) (*types.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	nonce, err := s.backend.PendingNonceAt(ctx, s.from)
	if err != nil {
		return nil, fmt.Errorf("pending nonce: %w", err)
	}
	tip, err := s.backend.SuggestGasTipCap(ctx)
	if err != nil {
		return nil, fmt.Errorf("suggest gas tip: %w", err)
	}
	head, err := s.backend.HeaderByNumber(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("latest header: %w", err)
	}
	feeCap := new(big.Int).Set(tip)
	if head.BaseFee != nil {
		feeCap.Add(feeCap, new(big.Int).Mul(head.BaseFee, big.NewInt(2)))
	}

	gas, err := s.backend.EstimateGas(ctx, ethereum.CallMsg{
		From:  s.from,
		To:    &to,
		Value: big.NewInt(0),
		Data:  data,
	})
	if err != nil {
		return nil, fmt.Errorf("estimate gas: %w", err)
	}
	gas += gas / 5

	tx := types.NewTx(&types.DynamicFeeTx{
		ChainID:   s.chainID,
		Nonce:     nonce,
		GasTipCap: tip,
		GasFeeCap: feeCap,
		Gas:       gas,
		To:        &to,
		Value:     big.NewInt(0),
		Data:      data,
	})
	signed, err := types.SignTx(tx, types.LatestSignerForChainID(s.chainID), s.key)
	if err != nil {
		return nil, fmt.Errorf("sign tx: %w", err)
	}
	if err := s.backend.SendTransaction(ctx, signed); err != nil {
		return nil, fmt.Errorf("send tx: %w", err)
	}
	return signed, nil
}

func (s *Signer) waitMined(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	waitCtx, cancel := context.WithTimeout(ctx, s.confirmTimeout)
	defer cancel()

	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	var lastErr error
	for {
		receipt, err := s.backend.TransactionReceipt(waitCtx, hash)
		if err == nil && receipt != nil {
			return receipt, nil
		}
		// the tx is already broadcast, RPC errors are retried until the deadline
		if err != nil && !errors.Is(err, ethereum.NotFound) {
			lastErr = err
		}

		select {
		case <-waitCtx.Done():
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			if lastErr != nil {
				return nil, fmt.Errorf("%w: %s (last rpc error: %v)", ErrConfirmationTimeout, hash.Hex(), lastErr)
			}
			return nil, fmt.Errorf("%w: %s", ErrConfirmationTimeout, hash.Hex())
		case <-ticker.C:
		}
	}
}

func parseAddress(addr string) (common.Address, error) {
	addr = strings.TrimSpace(addr)
	if !common.IsHexAddress(addr) {
		return common.Address{}, fmt.Errorf("%w: %q", ErrInvalidAddress, addr)
	}
	return common.HexToAddress(addr), nil
}
