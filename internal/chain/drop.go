package chain

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"

	"frame-weaver/internal/domain"
)

// DefaultDropAddress is the score card drop contract on Base.
const DefaultDropAddress = "0x5F6287187781Bb591dEA8d8F40Fe791E13f78FC2"

// nativeToken is the currency sentinel drop contracts use for ETH.
var nativeToken = common.HexToAddress("0xEeeeeEeeeEeEeeEeEeEeeEEEeeeeEeeeeeeeEEeE")

var transferTopic = crypto.Keccak256Hash([]byte("Transfer(address,address,uint256)"))

const dropABIJSON = `[
	{"type":"function","name":"claim","stateMutability":"payable",
	 "inputs":[
		{"name":"_receiver","type":"address"},
		{"name":"_quantity","type":"uint256"},
		{"name":"_currency","type":"address"},
		{"name":"_pricePerToken","type":"uint256"},
		{"name":"_allowlistProof","type":"tuple","components":[
			{"name":"proof","type":"bytes32[]"},
			{"name":"quantityLimitPerWallet","type":"uint256"},
			{"name":"pricePerToken","type":"uint256"},
			{"name":"currency","type":"address"}
		]},
		{"name":"_data","type":"bytes"}
	 ],
	 "outputs":[]},
	{"type":"function","name":"nextTokenIdToClaim","stateMutability":"view",
	 "inputs":[],"outputs":[{"name":"","type":"uint256"}]}
]`

var dropABI = mustParseABI(dropABIJSON)

type allowlistProof struct {
	Proof                  [][32]byte
	QuantityLimitPerWallet *big.Int
	PricePerToken          *big.Int
	Currency               common.Address
}

// DropMinter claims one free token from a drop contract for a recipient.
type DropMinter struct {
	signer   *Signer
	contract common.Address
}

func NewDropMinter(signer *Signer, contract string) (*DropMinter, error) {
	if contract == "" {
		contract = DefaultDropAddress
	}
	addr, err := parseAddress(contract)
	if err != nil {
		return nil, fmt.Errorf("drop address: %w", err)
	}
	return &DropMinter{signer: signer, contract: addr}, nil
}

// Mint claims a token to the given address. Metadata is published off-chain, the
// drop contract only needs the receiver.
func (m *DropMinter) Mint(ctx context.Context, to string, _ domain.MintMetadata) (domain.MintReceipt, error) {
	receiver, err := parseAddress(to)
	if err != nil {
		return domain.MintReceipt{}, err
	}

	proof := allowlistProof{
		Proof:                  [][32]byte{},
		QuantityLimitPerWallet: big.NewInt(0),
		PricePerToken:          big.NewInt(0),
		Currency:               nativeToken,
	}
	data, err := dropABI.Pack("claim", receiver, big.NewInt(1), nativeToken, big.NewInt(0), proof, []byte{})
	if err != nil {
		return domain.MintReceipt{}, fmt.Errorf("pack claim: %w", err)
	}

	hash, receipt, err := m.signer.send(ctx, m.contract, data)
	if err != nil {
		return domain.MintReceipt{TransactionHash: hash.Hex()}, err
	}

	tokenID := m.mintedTokenID(receipt, receiver)
	if tokenID == "" {
		tokenID, err = m.lastClaimedTokenID(ctx)
		if err != nil {
			return domain.MintReceipt{TransactionHash: hash.Hex()}, fmt.Errorf("%w: %s: %v", ErrTokenIDUnknown, hash.Hex(), err)
		}
	}
	return domain.MintReceipt{TransactionHash: hash.Hex(), TokenID: tokenID}, nil
}

// mintedTokenID reads the id from the ERC-721 Transfer(0x0 -> receiver) log.
func (m *DropMinter) mintedTokenID(receipt *types.Receipt, receiver common.Address) string {
	for _, log := range receipt.Logs {
		if log.Address != m.contract || len(log.Topics) != 4 || log.Topics[0] != transferTopic {
			continue
		}
		if common.BytesToAddress(log.Topics[1].Bytes()) != (common.Address{}) {
			continue
		}
		if common.BytesToAddress(log.Topics[2].Bytes()) != receiver {
			continue
		}
		return new(big.Int).SetBytes(log.Topics[3].Bytes()).String()
	}
	return ""
}

// lastClaimedTokenID falls back to nextTokenIdToClaim-1, which is only exact
// when no other claim landed in between.
func (m *DropMinter) lastClaimedTokenID(ctx context.Context) (string, error) {
	data, err := dropABI.Pack("nextTokenIdToClaim")
	if err != nil {
		return "", fmt.Errorf("pack nextTokenIdToClaim: %w", err)
	}
	out, err := m.signer.backend.CallContract(ctx, ethereum.CallMsg{To: &m.contract, Data: data}, nil)
	if err != nil {
		return "", fmt.Errorf("call nextTokenIdToClaim: %w", err)
	}
	values, err := dropABI.Unpack("nextTokenIdToClaim", out)
	if err != nil {
		return "", fmt.Errorf("unpack nextTokenIdToClaim: %w", err)
	}
	if len(values) == 0 {
		return "", fmt.Errorf("unpack nextTokenIdToClaim: empty result")
	}
	next, ok := values[0].(*big.Int)
	if !ok || next.Sign() == 0 {
		return "", fmt.Errorf("nextTokenIdToClaim returned %v", values[0])
	}
	return new(big.Int).Sub(next, big.NewInt(1)).String(), nil
}
