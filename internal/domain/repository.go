package domain

import (
	"context"

	"github.com/shopspring/decimal"
)

// LedgerStore is the relational store behind the contribution ledger.
// Reads outside InTx observe committed state only.
type LedgerStore interface {
	InTx(ctx context.Context, fn func(tx LedgerTx) error) error
	GetReport(ctx context.Context, reportID string) (*Report, error)
	GetContribution(ctx context.Context, contributionID string) (*Contribution, error)
	ListContributions(ctx context.Context, reportID string) ([]Contribution, error)
}

// LedgerTx is the set of writes available inside one storage transaction.
// Lock methods hold a row lock until the transaction ends and return ErrNotFound
// when the row does not exist.
type LedgerTx interface {
	LockReport(ctx context.Context, reportID string) (*Report, error)
	LockContribution(ctx context.Context, contributionID string) (*Contribution, error)
	InsertContribution(ctx context.Context, c *Contribution) error
	UpdateTransferredAmount(ctx context.Context, contributionID string, amount decimal.Decimal, transferredToID string) error
	SumActiveAmounts(ctx context.Context, reportID string) (decimal.Decimal, error)
	SetBountyAmount(ctx context.Context, reportID string, amount decimal.Decimal) error
}

// NotificationRepository persists user-facing notices.
type NotificationRepository interface {
	Create(ctx context.Context, n *Notification) error
}
