package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"bountyledger/internal/domain"
)

// AddRequest describes new value attached to a report.
type AddRequest struct {
	ReportID             string
	ContributorID        string
	ContributorName      string
	ContributorAvatar    string
	Amount               decimal.Decimal
	Comment              string
	TransactionSignature string
}

// Add records a contribution and recomputes the report's bounty in the same
// transaction. Soft-archived reports still accept contributions.
func (s *Service) Add(ctx context.Context, req AddRequest) (_ *domain.Contribution, err error) {
	start := s.now()
	defer func() { s.record("add", start, err) }()

	contributorID := strings.TrimSpace(req.ContributorID)
	if contributorID == "" {
		return nil, fmt.Errorf("%w: contributor id is required", domain.ErrInvalidContributor)
	}
	if err := ValidateAmount(req.Amount); err != nil {
		return nil, err
	}
	if err := validateID("report", req.ReportID); err != nil {
		return nil, err
	}

	contribution := domain.Contribution{
		ID:                s.newID(),
		ReportID:          req.ReportID,
		ContributorID:     contributorID,
		ContributorName:   strings.TrimSpace(req.ContributorName),
		ContributorAvatar: strings.TrimSpace(req.ContributorAvatar),
		Amount:            req.Amount,
		Comment:           strings.TrimSpace(req.Comment),
		IsActive:          true,
		CreatedAt:         s.now().UTC(),
	}
	if sig := strings.TrimSpace(req.TransactionSignature); sig != "" {
		contribution.TransactionSignature = &sig
	}

	var report domain.Report
	err = s.store.InTx(ctx, func(tx domain.LedgerTx) error {
		locked, err := tx.LockReport(ctx, req.ReportID)
		if err != nil {
			return err
		}
		if err := tx.InsertContribution(ctx, &contribution); err != nil {
			return fmt.Errorf("insert contribution: %w", err)
		}
		total, err := recompute(ctx, tx, req.ReportID)
		if err != nil {
			return err
		}
		report = *locked
		report.BountyAmount = total
		return nil
	})
	if err != nil {
		err = storageErr(err)
		event := s.logger.Warn()
		if errors.Is(err, domain.ErrStorage) {
			event = s.logger.Error()
		}
		event.Err(err).Str("report_id", req.ReportID).Msg("ledger: add contribution failed")
		return nil, err
	}

	s.logger.Info().
		Str("contribution_id", contribution.ID).
		Str("report_id", contribution.ReportID).
		Str("amount", contribution.Amount.String()).
		Str("bounty_amount", report.BountyAmount.String()).
		Msg("ledger: contribution added")

	s.notifyContribution(ctx, report, contribution)
	return &contribution, nil
}

func (s *Service) notifyContribution(ctx context.Context, report domain.Report, contribution domain.Contribution) {
	if s.notifier == nil || report.OwnerID == "" || report.OwnerID == contribution.ContributorID {
		return
	}
	s.notifications.Add(1)
	go func() {
		defer s.notifications.Done()
		notifyCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.notifyTimeout)
		defer cancel()
		if err := s.notifier.BountyContributed(notifyCtx, report, contribution); err != nil {
			s.logger.Warn().Err(err).
				Str("report_id", report.ID).
				Str("contribution_id", contribution.ID).
				Msg("ledger: bounty notification failed")
		}
	}()
}
