package ledger

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"bountyledger/internal/domain"
)

// TransferRequest moves part of a contribution to another report.
type TransferRequest struct {
	SourceContributionID string
	TargetReportID       string
	Amount               decimal.Decimal
	RequesterID          string
	RequesterName        string
	Comment              string
}

// TransferResult holds both sides of a completed transfer.
type TransferResult struct {
	Source      domain.Contribution
	Destination domain.Contribution
}

// Transfer splits a contribution between its report and the target report.
//
// The source row is locked for the duration of the transaction, so concurrent
// transfers out of the same contribution are evaluated one after the other, each
// against the amount the previous one left behind.
func (s *Service) Transfer(ctx context.Context, req TransferRequest) (_ *TransferResult, err error) {
	start := s.now()
	defer func() { s.record("transfer", start, err) }()

	if err := ValidateAmount(req.Amount); err != nil {
		return nil, err
	}
	requesterID := strings.TrimSpace(req.RequesterID)
	if requesterID == "" {
		return nil, fmt.Errorf("%w: requester id is required", domain.ErrUnauthorized)
	}
	if err := validateID("contribution", req.SourceContributionID); err != nil {
		return nil, err
	}
	if err := validateID("report", req.TargetReportID); err != nil {
		return nil, err
	}

	var result TransferResult
	err = s.store.InTx(ctx, func(tx domain.LedgerTx) error {
		source, err := tx.LockContribution(ctx, req.SourceContributionID)
		if err != nil {
			return err
		}
		if source.ContributorID != requesterID {
			return fmt.Errorf("%w: contribution %s belongs to another contributor", domain.ErrUnauthorized, source.ID)
		}
		if !source.IsActive {
			return fmt.Errorf("%w: contribution %s is no longer active", domain.ErrInactive, source.ID)
		}
		if source.ReportID == req.TargetReportID {
			return fmt.Errorf("%w: contribution %s already backs report %s", domain.ErrSelfTransfer, source.ID, source.ReportID)
		}
		if err := checkRetention(source.Amount, req.Amount); err != nil {
			return err
		}

		reportIDs := []string{source.ReportID, req.TargetReportID}
		sort.Strings(reportIDs)
		for _, id := range reportIDs {
			if _, err := tx.LockReport(ctx, id); err != nil {
				return err
			}
		}

		remaining := source.Amount.Sub(req.Amount)
		destination := domain.Contribution{
			ID:                s.newID(),
			ReportID:          req.TargetReportID,
			ContributorID:     source.ContributorID,
			ContributorName:   firstNonEmpty(req.RequesterName, source.ContributorName),
			ContributorAvatar: source.ContributorAvatar,
			Amount:            req.Amount,
			Comment:           firstNonEmpty(req.Comment, fmt.Sprintf("Transferred from contribution %s", source.ID)),
			TransferredFromID: &source.ID,
			IsActive:          true,
			CreatedAt:         s.now().UTC(),
		}
		if err := tx.InsertContribution(ctx, &destination); err != nil {
			return fmt.Errorf("insert destination contribution: %w", err)
		}
		if err := tx.UpdateTransferredAmount(ctx, source.ID, remaining, destination.ID); err != nil {
			return fmt.Errorf("update source contribution: %w", err)
		}
		for _, id := range reportIDs {
			if _, err := recompute(ctx, tx, id); err != nil {
				return err
			}
		}

		source.Amount = remaining
		source.TransferredToID = &destination.ID
		result = TransferResult{Source: *source, Destination: destination}
		return nil
	})
	if err != nil {
		err = storageErr(err)
		event := s.logger.Warn()
		if !domain.IsRuleViolation(err) {
			event = s.logger.Error()
		}
		event.Err(err).
			Str("contribution_id", req.SourceContributionID).
			Str("target_report_id", req.TargetReportID).
			Msg("ledger: transfer rejected")
		return nil, err
	}

	s.logger.Info().
		Str("source_id", result.Source.ID).
		Str("destination_id", result.Destination.ID).
		Str("amount", req.Amount.String()).
		Str("remaining", result.Source.Amount.String()).
		Msg("ledger: transfer completed")
	return &result, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
