package settlement

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cenkalti/backoff/v5"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
)

// Confirm checks that a transaction signed elsewhere, such as by a browser
// wallet, has landed. It polls the endpoints in order with the same budget and
// error rules as Submit.
func (s *Submitter) Confirm(ctx context.Context, signature string) error {
	sig, err := solana.SignatureFromBase58(strings.TrimSpace(signature))
	if err != nil || sig.IsZero() {
		return fmt.Errorf("%w: %q", ErrInvalidSignature, signature)
	}
	if len(s.endpoints) == 0 {
		return fmt.Errorf("%w: no endpoints configured", ErrNetworkExhausted)
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var failures []error
	for _, ep := range s.endpoints {
		if err := ctx.Err(); err != nil {
			failures = append(failures, err)
			break
		}
		err := s.await(ctx, ep, sig)
		if err == nil {
			return nil
		}
		if errors.Is(err, ErrOnChainRejected) {
			return err
		}
		s.logger.Warn().Err(err).Str("endpoint", ep.Name).Str("signature", sig.String()).Msg("settlement: confirm failed")
		failures = append(failures, fmt.Errorf("%s: %w", ep.Name, err))
	}
	return fmt.Errorf("%w: %w", ErrNetworkExhausted, errors.Join(failures...))
}

// await polls the signature status with a constant delay until it is confirmed,
// rejected, or the endpoint's attempt budget runs out.
func (s *Submitter) await(ctx context.Context, ep Endpoint, sig solana.Signature) error {
	attempt := 0
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		attempt++
		reqCtx, cancel := s.requestContext(ctx)
		defer cancel()
		out, err := ep.Client.GetSignatureStatuses(reqCtx, true, sig)
		if err != nil {
			s.logger.Debug().Err(err).Str("endpoint", ep.Name).Int("attempt", attempt).Msg("settlement: status poll failed")
			return struct{}{}, fmt.Errorf("get signature status: %w", err)
		}
		var status *rpc.SignatureStatusesResult
		if out != nil && len(out.Value) > 0 {
			status = out.Value[0]
		}
		switch {
		case status == nil:
			return struct{}{}, fmt.Errorf("%w: signature %s not found", ErrNotConfirmed, sig)
		case status.Err != nil:
			return struct{}{}, backoff.Permanent(&RejectedError{Endpoint: ep.Name, Signature: sig, Payload: status.Err})
		case status.ConfirmationStatus == rpc.ConfirmationStatusConfirmed,
			status.ConfirmationStatus == rpc.ConfirmationStatusFinalized:
			return struct{}{}, nil
		default:
			return struct{}{}, fmt.Errorf("%w: signature %s is %q", ErrNotConfirmed, sig, status.ConfirmationStatus)
		}
	}, backoff.WithBackOff(backoff.NewConstantBackOff(s.delay)), backoff.WithMaxTries(uint(ep.attempts())))
	return err
}
