package ledger

import (
	"context"
	"fmt"

	"bountyledger/internal/domain"
)

// Report returns the committed report state.
func (s *Service) Report(ctx context.Context, reportID string) (*domain.Report, error) {
	if err := validateID("report", reportID); err != nil {
		return nil, err
	}
	r, err := s.store.GetReport(ctx, reportID)
	return r, storageErr(err)
}

// Contribution returns one contribution by id.
func (s *Service) Contribution(ctx context.Context, contributionID string) (*domain.Contribution, error) {
	if err := validateID("contribution", contributionID); err != nil {
		return nil, err
	}
	c, err := s.store.GetContribution(ctx, contributionID)
	return c, storageErr(err)
}

// Contributions lists the contributions currently attached to a report, oldest first.
func (s *Service) Contributions(ctx context.Context, reportID string) ([]domain.Contribution, error) {
	if err := validateID("report", reportID); err != nil {
		return nil, err
	}
	if _, err := s.store.GetReport(ctx, reportID); err != nil {
		return nil, storageErr(err)
	}
	items, err := s.store.ListContributions(ctx, reportID)
	return items, storageErr(err)
}

// Lineage returns the chain of contributions that led to contributionID, starting
// at the originally funded contribution and ending with contributionID itself.
// Chains have no length limit; a link that revisits a contribution is reported as
// corrupt storage.
func (s *Service) Lineage(ctx context.Context, contributionID string) ([]domain.Contribution, error) {
	if err := validateID("contribution", contributionID); err != nil {
		return nil, err
	}
	var chain []domain.Contribution
	seen := make(map[string]struct{})
	next := contributionID
	for {
		if _, ok := seen[next]; ok {
			return nil, fmt.Errorf("%w: lineage of %s revisits contribution %s", domain.ErrStorage, contributionID, next)
		}
		seen[next] = struct{}{}
		c, err := s.store.GetContribution(ctx, next)
		if err != nil {
			return nil, storageErr(err)
		}
		chain = append(chain, *c)
		if c.TransferredFromID == nil {
			break
		}
		next = *c.TransferredFromID
	}
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain, nil
}
