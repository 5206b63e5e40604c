package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Contribution is a unit of value attached to a report's bounty.
type Contribution struct {
	ID                   string
	ReportID             string
	ContributorID        string
	ContributorName      string
	ContributorAvatar    string
	Amount               decimal.Decimal
	Comment              string
	TransactionSignature *string
	TransferredFromID    *string
	TransferredToID      *string
	IsActive             bool
	CreatedAt            time.Time
}

// Report is the slice of the externally owned report entity the ledger reads and writes.
type Report struct {
	ID           string
	OwnerID      string
	Title        string
	BountyAmount decimal.Decimal
	ArchivedAt   *time.Time
	CreatedAt    time.Time
}

// Archived reports the soft-archive state. Archived reports still accept contributions.
func (r Report) Archived() bool {
	return r.ArchivedAt != nil
}
