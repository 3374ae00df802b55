package chain

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// DefaultTokenAddress is $DEGEN on Base.
const DefaultTokenAddress = "0x4ed4E862860beD51a9570b96d89aF5E1B0Effed4"

const erc20ABIJSON = `[
	{"type":"function","name":"transfer","stateMutability":"nonpayable",
	 "inputs":[{"name":"_to","type":"address"},{"name":"_value","type":"uint256"}],
	 "outputs":[{"name":"","type":"bool"}]},
	{"type":"function","name":"balanceOf","stateMutability":"view",
	 "inputs":[{"name":"_owner","type":"address"}],
	 "outputs":[{"name":"balance","type":"uint256"}]}
]`

var erc20ABI = mustParseABI(erc20ABIJSON)

// TokenTransfer pays ERC-20 rewards from the signer's account.
type TokenTransfer struct {
	signer   *Signer
	token    common.Address
	decimals int
}

func NewTokenTransfer(signer *Signer, token string, decimals int) (*TokenTransfer, error) {
	if token == "" {
		token = DefaultTokenAddress
	}
	addr, err := parseAddress(token)
	if err != nil {
		return nil, fmt.Errorf("token address: %w", err)
	}
	if decimals <= 0 {
		decimals = 18
	}
	return &TokenTransfer{signer: signer, token: addr, decimals: decimals}, nil
}

// Transfer sends amount tokens to the destination and waits for confirmation.
func (t *TokenTransfer) Transfer(ctx context.Context, to, amount string) (string, error) {
	dest, err := parseAddress(to)
	if err != nil {
		return "", err
	}
	value, err := ParseUnits(amount, t.decimals)
	if err != nil {
		return "", err
	}
	data, err := erc20ABI.Pack("transfer", dest, value)
	if err != nil {
		return "", fmt.Errorf("pack transfer: %w", err)
	}

	hash, _, err := t.signer.send(ctx, t.token, data)
	if err != nil {
		return hash.Hex(), err
	}
	return hash.Hex(), nil
}

// Account returns the paying address.
func (t *TokenTransfer) Account() string {
	return t.signer.Address().Hex()
}

// TokenBalance returns the paying account's token balance in whole tokens.
func (t *TokenTransfer) TokenBalance(ctx context.Context) (string, error) {
	data, err := erc20ABI.Pack("balanceOf", t.signer.Address())
	if err != nil {
		return "", fmt.Errorf("pack balanceOf: %w", err)
	}
	out, err := t.signer.backend.CallContract(ctx, ethereum.CallMsg{To: &t.token, Data: data}, nil)
	if err != nil {
		return "", fmt.Errorf("call balanceOf: %w", err)
	}
	values, err := erc20ABI.Unpack("balanceOf", out)
	if err != nil {
		return "", fmt.Errorf("unpack balanceOf: %w", err)
	}
	if len(values) == 0 {
		return "", fmt.Errorf("unpack balanceOf: empty result")
	}
	balance, ok := values[0].(*big.Int)
	if !ok {
		return "", fmt.Errorf("unpack balanceOf: unexpected type %T", values[0])
	}
	return FormatUnits(balance, t.decimals), nil
}

// NativeBalance returns the paying account's ETH balance, which funds gas.
func (t *TokenTransfer) NativeBalance(ctx context.Context) (string, error) {
	wei, err := t.signer.NativeBalance(ctx)
	if err != nil {
		return "", err
	}
	return FormatUnits(wei, 18), nil
}

func mustParseABI(def string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(def))
	if err != nil {
		panic(fmt.Sprintf("parse abi: %v", err))
	}
	return parsed
}
