package settlement

import (
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
)

var (
	ErrNoProvider       = errors.New("no wallet provider available")
	ErrInvalidAddress   = errors.New("invalid recipient address")
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrInvalidSignature = errors.New("invalid transaction signature")
	ErrOnChainRejected  = errors.New("transaction rejected on chain")
	ErrNetworkExhausted = errors.New("all rpc endpoints failed")
	ErrNotConfirmed     = errors.New("transaction not confirmed")
)

// RejectedError carries the execution error reported for a failed transaction.
// It matches ErrOnChainRejected with errors.Is.
type RejectedError struct {
	Endpoint  string
	Signature solana.Signature
	Payload   any
}

func (e *RejectedError) Error() string {
	if e.Signature.IsZero() {
		return fmt.Sprintf("%s via %s: %v", ErrOnChainRejected, e.Endpoint, e.Payload)
	}
	return fmt.Sprintf("%s via %s: signature %s: %v", ErrOnChainRejected, e.Endpoint, e.Signature, e.Payload)
}

func (e *RejectedError) Unwrap() error {
	return ErrOnChainRejected
}
