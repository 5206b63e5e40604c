// Package settlement submits SPL token transfers that back ledger contributions
// and confirms them across an ordered list of RPC endpoints.
package settlement

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gagliardetto/solana-go"
	associatedtokenaccount "github.com/gagliardetto/solana-go/programs/associated-token-account"
	"github.com/gagliardetto/solana-go/programs/token"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/gagliardetto/solana-go/rpc/jsonrpc"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"bountyledger/internal/observability"
)

// TokenDecimals is the base-unit exponent of the settlement mint.
const TokenDecimals = 6

// rpcPreflightFailure is returned by sendTransaction when simulation fails.
const rpcPreflightFailure = -32002

const (
	defaultConfirmDelay  = 2 * time.Second
	defaultSubmitTimeout = 90 * time.Second
)

// Submitter builds, signs, submits and confirms token transfers.
type Submitter struct {
	wallet         Wallet
	mint           solana.PublicKey
	endpoints      []Endpoint
	delay          time.Duration
	timeout        time.Duration
	requestTimeout time.Duration
	commitment     rpc.CommitmentType
	logger         zerolog.Logger
	metrics        *observability.SettlementMetrics
}

// Option customises the submitter.
type Option func(*Submitter)

// WithConfirmDelay sets the fixed delay between confirmation polls.
func WithConfirmDelay(d time.Duration) Option {
	return func(s *Submitter) { s.delay = d }
}

// WithTimeout bounds a whole Submit or Confirm call.
func WithTimeout(d time.Duration) Option {
	return func(s *Submitter) { s.timeout = d }
}

// WithRequestTimeout bounds each individual RPC request.
func WithRequestTimeout(d time.Duration) Option {
	return func(s *Submitter) { s.requestTimeout = d }
}

// WithCommitment sets the commitment used for blockhash lookups.
func WithCommitment(c rpc.CommitmentType) Option {
	return func(s *Submitter) { s.commitment = c }
}

// WithLogger sets the submitter logger.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Submitter) { s.logger = l }
}

// WithMetrics overrides the default metrics registry.
func WithMetrics(m *observability.SettlementMetrics) Option {
	return func(s *Submitter) { s.metrics = m }
}

// NewSubmitter creates a submitter that pays with wallet in the given mint and
// tries endpoints in order. wallet may be nil when only Confirm is used.
func NewSubmitter(wallet Wallet, mint solana.PublicKey, endpoints []Endpoint, opts ...Option) *Submitter {
	s := &Submitter{
		wallet:     wallet,
		mint:       mint,
		endpoints:  endpoints,
		delay:      defaultConfirmDelay,
		timeout:    defaultSubmitTimeout,
		commitment: rpc.CommitmentConfirmed,
		logger:     zerolog.Nop(),
		metrics:    observability.Settlement(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// BaseUnits converts a token amount to base units, rounding half away from zero.
func BaseUnits(amount decimal.Decimal) (uint64, error) {
	if amount.Sign() <= 0 {
		return 0, fmt.Errorf("%w: amount must be greater than zero, got %s", ErrInvalidAmount, amount)
	}
	units := amount.Shift(TokenDecimals).Round(0)
	if units.Sign() <= 0 {
		return 0, fmt.Errorf("%w: amount %s is below one base unit", ErrInvalidAmount, amount)
	}
	n := units.BigInt()
	if !n.IsUint64() {
		return 0, fmt.Errorf("%w: amount %s overflows base units", ErrInvalidAmount, amount)
	}
	return n.Uint64(), nil
}

// Submit transfers amount tokens from the wallet to recipient and returns the
// signature of the first transaction that confirms.
//
// An execution error reported by the chain ends the call with ErrOnChainRejected;
// a rejected transaction is never resubmitted. Network failures and transactions
// that stay unconfirmed for an endpoint's whole polling budget move on to the
// next endpoint. When every endpoint fails the returned error wraps
// ErrNetworkExhausted together with each endpoint's error.
func (s *Submitter) Submit(ctx context.Context, recipient string, amount decimal.Decimal) (solana.Signature, error) {
	start := time.Now()
	defer func() { s.metrics.ObserveSubmit(time.Since(start)) }()

	if s.wallet == nil || s.wallet.PublicKey().IsZero() {
		return solana.Signature{}, ErrNoProvider
	}
	to, err := solana.PublicKeyFromBase58(strings.TrimSpace(recipient))
	if err != nil {
		return solana.Signature{}, fmt.Errorf("%w: %q: %v", ErrInvalidAddress, recipient, err)
	}
	units, err := BaseUnits(amount)
	if err != nil {
		return solana.Signature{}, err
	}
	if len(s.endpoints) == 0 {
		return solana.Signature{}, fmt.Errorf("%w: no endpoints configured", ErrNetworkExhausted)
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var failures []error
	for _, ep := range s.endpoints {
		if err := ctx.Err(); err != nil {
			failures = append(failures, err)
			break
		}
		s.metrics.RecordAttempt(ep.Name)
		sig, err := s.submitVia(ctx, ep, to, units)
		if err == nil {
			s.metrics.RecordResult(ep.Name, "confirmed")
			s.logger.Info().
				Str("endpoint", ep.Name).
				Str("signature", sig.String()).
				Str("recipient", to.String()).
				Uint64("base_units", units).
				Msg("settlement: transfer confirmed")
			return sig, nil
		}
		if errors.Is(err, ErrOnChainRejected) {
			s.metrics.RecordResult(ep.Name, "rejected")
			s.logger.Error().Err(err).Str("endpoint", ep.Name).Msg("settlement: transfer rejected")
			return solana.Signature{}, err
		}
		s.metrics.RecordResult(ep.Name, "failed")
		s.logger.Warn().Err(err).Str("endpoint", ep.Name).Msg("settlement: endpoint failed")
		failures = append(failures, fmt.Errorf("%s: %w", ep.Name, err))
	}
	return solana.Signature{}, fmt.Errorf("%w: %w", ErrNetworkExhausted, errors.Join(failures...))
}

func (s *Submitter) submitVia(ctx context.Context, ep Endpoint, recipient solana.PublicKey, units uint64) (solana.Signature, error) {
	payer := s.wallet.PublicKey()
	instructions, err := s.transferInstructions(ctx, ep, payer, recipient, units)
	if err != nil {
		return solana.Signature{}, err
	}

	reqCtx, cancel := s.requestContext(ctx)
	latest, err := ep.Client.GetLatestBlockhash(reqCtx, s.commitment)
	cancel()
	if err != nil {
		return solana.Signature{}, fmt.Errorf("get latest blockhash: %w", err)
	}
	if latest == nil || latest.Value == nil {
		return solana.Signature{}, errors.New("get latest blockhash: empty response")
	}

	tx, err := solana.NewTransaction(instructions, latest.Value.Blockhash, solana.TransactionPayer(payer))
	if err != nil {
		return solana.Signature{}, fmt.Errorf("build transaction: %w", err)
	}

	reqCtx, cancel = s.requestContext(ctx)
	sig, err := s.wallet.SignAndSendTransaction(reqCtx, ep.Client, tx)
	cancel()
	if err != nil {
		var rpcErr *jsonrpc.RPCError
		if errors.As(err, &rpcErr) && rpcErr.Code == rpcPreflightFailure {
			return solana.Signature{}, &RejectedError{Endpoint: ep.Name, Payload: rpcErr}
		}
		return solana.Signature{}, fmt.Errorf("send transaction: %w", err)
	}
	s.logger.Debug().Str("endpoint", ep.Name).Str("signature", sig.String()).Msg("settlement: transaction sent")

	if err := s.await(ctx, ep, sig); err != nil {
		return solana.Signature{}, err
	}
	return sig, nil
}

// transferInstructions creates missing associated token accounts before the
// TransferChecked instruction.
func (s *Submitter) transferInstructions(ctx context.Context, ep Endpoint, payer, recipient solana.PublicKey, units uint64) ([]solana.Instruction, error) {
	source, _, err := solana.FindAssociatedTokenAddress(payer, s.mint)
	if err != nil {
		return nil, fmt.Errorf("derive sender token account: %w", err)
	}
	destination, _, err := solana.FindAssociatedTokenAddress(recipient, s.mint)
	if err != nil {
		return nil, fmt.Errorf("derive recipient token account: %w", err)
	}

	var instructions []solana.Instruction
	for _, acct := range []struct {
		owner   solana.PublicKey
		address solana.PublicKey
	}{
		{payer, source},
		{recipient, destination},
	} {
		exists, err := s.accountExists(ctx, ep, acct.address)
		if err != nil {
			return nil, err
		}
		if !exists {
			instructions = append(instructions,
				associatedtokenaccount.NewCreateInstruction(payer, acct.owner, s.mint).Build())
		}
	}

	instructions = append(instructions, token.NewTransferCheckedInstruction(
		units,
		TokenDecimals,
		source,
		s.mint,
		destination,
		payer,
		nil,
	).Build())
	return instructions, nil
}

func (s *Submitter) accountExists(ctx context.Context, ep Endpoint, address solana.PublicKey) (bool, error) {
	reqCtx, cancel := s.requestContext(ctx)
	defer cancel()
	_, err := ep.Client.GetAccountInfo(reqCtx, address)
	if errors.Is(err, rpc.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("get account %s: %w", address, err)
	}
	return true, nil
}

func (s *Submitter) requestContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.requestTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.requestTimeout)
}
