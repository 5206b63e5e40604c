package ledger

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"bountyledger/internal/domain"
)

// Recompute derives a report's bounty from its active contributions and stores
// it. The report row is locked first so the sum cannot interleave with a
// concurrent Add or Transfer on the same report.
func (s *Service) Recompute(ctx context.Context, reportID string) (_ decimal.Decimal, err error) {
	start := s.now()
	defer func() { s.record("recompute", start, err) }()

	if err := validateID("report", reportID); err != nil {
		return decimal.Zero, err
	}
	var total decimal.Decimal
	err = s.store.InTx(ctx, func(tx domain.LedgerTx) error {
		if _, err := tx.LockReport(ctx, reportID); err != nil {
			return err
		}
		var err error
		total, err = recompute(ctx, tx, reportID)
		return err
	})
	if err != nil {
		return decimal.Zero, storageErr(err)
	}
	s.logger.Debug().Str("report_id", reportID).Str("bounty_amount", total.String()).Msg("ledger: bounty recomputed")
	return total, nil
}

// recompute always sums the full active set. The stored bounty is never adjusted
// by a delta.
func recompute(ctx context.Context, tx domain.LedgerTx, reportID string) (decimal.Decimal, error) {
	total, err := tx.SumActiveAmounts(ctx, reportID)
	if err != nil {
		return decimal.Zero, fmt.Errorf("sum active contributions: %w", err)
	}
	if err := tx.SetBountyAmount(ctx, reportID, total); err != nil {
		return decimal.Zero, fmt.Errorf("set bounty amount: %w", err)
	}
	return total, nil
}
