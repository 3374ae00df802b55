package service

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrValidation marks malformed or missing input. Match with errors.Is.
	ErrValidation = errors.New("validation failed")
	// ErrUserNotFound indicates no local user matches the request.
	ErrUserNotFound = errors.New("user not found")
	// ErrIdentityNotFound indicates the identity provider knows no such account.
	ErrIdentityNotFound = errors.New("user not found on identity provider")
	// ErrNFTNotFound indicates no mint record carries the token id.
	ErrNFTNotFound = errors.New("nft not found")
	// ErrCooldown is returned when a claim is attempted inside the cooldown window.
	ErrCooldown = errors.New("already claimed within cooldown window")
	// ErrClaimInProgress means another request holds the user's disbursement lease.
	ErrClaimInProgress = errors.New("claim already in progress")
	// ErrProviderUnavailable means the identity provider is not configured or unreachable.
	ErrProviderUnavailable = errors.New("identity provider unavailable")
	// ErrDisbursementUnavailable means no reward signer is configured.
	ErrDisbursementUnavailable = errors.New("reward service temporarily unavailable")
	// ErrMintUnavailable means no mint signer is configured.
	ErrMintUnavailable = errors.New("nft minting not configured")
	// ErrMetadataUnavailable means no metadata store is configured.
	ErrMetadataUnavailable = errors.New("nft metadata storage not configured")
	// ErrTransaction wraps failed or timed out on-chain operations. Nothing was recorded.
	ErrTransaction = errors.New("on-chain transaction failed")
)

// ValidationError carries a caller-facing message.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

func invalid(format string, args ...any) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// CooldownError reports when the next claim becomes possible.
type CooldownError struct {
	NextClaimTime time.Time
	Remaining     time.Duration
}

func (e *CooldownError) Error() string {
	return fmt.Sprintf("%s, next claim at %s", ErrCooldown, e.NextClaimTime.Format(time.RFC3339))
}

func (e *CooldownError) Is(target error) bool { return target == ErrCooldown }
