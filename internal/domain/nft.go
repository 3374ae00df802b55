package domain

import "time"

// MintRecord captures one successful mint of a score card NFT.
type MintRecord struct {
	ID              int64
	UserID          int64
	TokenID         string
	MintedAt        time.Time
	TransactionHash *string
	RawScore        float64
	CompositeScore  float64
}

// MintMetadata describes the token being minted.
type MintMetadata struct {
	Name           string
	Description    string
	Username       string
	IdentityID     int64
	RawScore       float64
	CompositeScore float64
}

// MintReceipt is the on-chain outcome of a mint.
type MintReceipt struct {
	TransactionHash string
	TokenID         string
}
