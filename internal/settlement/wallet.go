package settlement

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// Wallet is the signing capability a settlement is performed with. Browser
// wallets sign and broadcast in one step, so the interface does the same.
type Wallet interface {
	PublicKey() solana.PublicKey
	SignAndSendTransaction(ctx context.Context, client RPCClient, tx *solana.Transaction) (solana.Signature, error)
}

// KeypairWallet signs with a local ed25519 key.
type KeypairWallet struct {
	key solana.PrivateKey
}

// NewKeypairWallet wraps a private key.
func NewKeypairWallet(key solana.PrivateKey) *KeypairWallet {
	return &KeypairWallet{key: key}
}

// LoadKeypairWallet reads a solana-keygen JSON key file.
func LoadKeypairWallet(path string) (*KeypairWallet, error) {
	key, err := solana.PrivateKeyFromSolanaKeygenFile(path)
	if err != nil {
		return nil, fmt.Errorf("load keypair %s: %w", path, err)
	}
	return NewKeypairWallet(key), nil
}

func (w *KeypairWallet) PublicKey() solana.PublicKey {
	if w == nil || len(w.key) == 0 {
		return solana.PublicKey{}
	}
	return w.key.PublicKey()
}

func (w *KeypairWallet) SignAndSendTransaction(ctx context.Context, client RPCClient, tx *solana.Transaction) (solana.Signature, error) {
	owner := w.PublicKey()
	_, err := tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		if key.Equals(owner) {
			return &w.key
		}
		return nil
	})
	if err != nil {
		return solana.Signature{}, fmt.Errorf("sign transaction: %w", err)
	}
	return client.SendTransaction(ctx, tx)
}
