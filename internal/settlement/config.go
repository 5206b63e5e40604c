package settlement

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/rs/zerolog"

	"bountyledger/internal/infra"
)

// NewFromConfig builds a submitter for the configured mint and endpoints.
func NewFromConfig(wallet Wallet, cfg infra.SettlementConfig, logger zerolog.Logger) (*Submitter, error) {
	mint, err := solana.PublicKeyFromBase58(cfg.TokenMint)
	if err != nil {
		return nil, fmt.Errorf("parse token mint %q: %w", cfg.TokenMint, err)
	}
	endpoints := NewRPCEndpoints(cfg.PrimaryRPCURL, cfg.FallbackRPCURL, cfg.ConfirmAttempts)
	if len(endpoints) == 0 {
		return nil, fmt.Errorf("at least one rpc endpoint is required")
	}
	opts := []Option{
		WithConfirmDelay(cfg.ConfirmInterval),
		WithRequestTimeout(cfg.RequestTimeout),
		WithLogger(logger),
	}
	if cfg.SubmitTimeout > 0 {
		opts = append(opts, WithTimeout(cfg.SubmitTimeout))
	}
	return NewSubmitter(wallet, mint, endpoints, opts...), nil
}
