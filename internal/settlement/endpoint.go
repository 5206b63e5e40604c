package settlement

import (
	"context"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
)

// DefaultAttempts is the confirmation polling budget of an endpoint that does
// not set its own.
const DefaultAttempts = 3

// RPCClient is the subset of the Solana JSON-RPC API the submitter uses.
// *rpc.Client satisfies it.
type RPCClient interface {
	GetLatestBlockhash(ctx context.Context, commitment rpc.CommitmentType) (*rpc.GetLatestBlockhashResult, error)
	GetAccountInfo(ctx context.Context, account solana.PublicKey) (*rpc.GetAccountInfoResult, error)
	GetSignatureStatuses(ctx context.Context, searchTransactionHistory bool, transactionSignatures ...solana.Signature) (*rpc.GetSignatureStatusesResult, error)
	SendTransaction(ctx context.Context, transaction *solana.Transaction) (solana.Signature, error)
}

// Endpoint is one RPC provider in the fallback order.
type Endpoint struct {
	Name     string
	Client   RPCClient
	Attempts int
}

// NewRPCEndpoint connects an endpoint to a JSON-RPC URL.
func NewRPCEndpoint(name, url string, attempts int) Endpoint {
	return Endpoint{Name: name, Client: rpc.New(url), Attempts: attempts}
}

// NewRPCEndpoints builds the primary and fallback endpoints. Empty URLs are skipped.
func NewRPCEndpoints(primaryURL, fallbackURL string, attempts int) []Endpoint {
	var endpoints []Endpoint
	if primaryURL != "" {
		endpoints = append(endpoints, NewRPCEndpoint("primary", primaryURL, attempts))
	}
	if fallbackURL != "" && fallbackURL != primaryURL {
		endpoints = append(endpoints, NewRPCEndpoint("fallback", fallbackURL, attempts))
	}
	return endpoints
}

func (e Endpoint) attempts() int {
	if e.Attempts <= 0 {
		return DefaultAttempts
	}
	return e.Attempts
}

var _ RPCClient = (*rpc.Client)(nil)
