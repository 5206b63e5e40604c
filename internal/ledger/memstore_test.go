package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"

	"bountyledger/internal/domain"
)

// memStore is an in-memory LedgerStore. InTx serializes transactions with a
// mutex and works on a copy that is swapped in only on success.
type memStore struct {
	mu            sync.Mutex
	reports       map[string]domain.Report
	contributions map[string]domain.Contribution
	order         []string
	failInsert    error
	txCount       int
}

func newMemStore() *memStore {
	return &memStore{
		reports:       make(map[string]domain.Report),
		contributions: make(map[string]domain.Contribution),
	}
}

func (m *memStore) putReport(r domain.Report) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reports[r.ID] = r
}

func (m *memStore) InTx(ctx context.Context, fn func(tx domain.LedgerTx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.txCount++
	tx := &memTx{
		reports:       make(map[string]domain.Report, len(m.reports)),
		contributions: make(map[string]domain.Contribution, len(m.contributions)),
		order:         append([]string(nil), m.order...),
		failInsert:    m.failInsert,
	}
	for k, v := range m.reports {
		tx.reports[k] = v
	}
	for k, v := range m.contributions {
		tx.contributions[k] = v
	}
	if err := fn(tx); err != nil {
		return err
	}
	m.reports = tx.reports
	m.contributions = tx.contributions
	m.order = tx.order
	return nil
}

func (m *memStore) GetReport(_ context.Context, id string) (*domain.Report, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.reports[id]
	if !ok {
		return nil, fmt.Errorf("%w: report %s", domain.ErrNotFound, id)
	}
	return &r, nil
}

func (m *memStore) GetContribution(_ context.Context, id string) (*domain.Contribution, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.contributions[id]
	if !ok {
		return nil, fmt.Errorf("%w: contribution %s", domain.ErrNotFound, id)
	}
	return &c, nil
}

func (m *memStore) ListContributions(_ context.Context, reportID string) ([]domain.Contribution, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Contribution
	for _, id := range m.order {
		if c := m.contributions[id]; c.ReportID == reportID {
			out = append(out, c)
		}
	}
	return out, nil
}

type memTx struct {
	reports       map[string]domain.Report
	contributions map[string]domain.Contribution
	order         []string
	failInsert    error
}

func (t *memTx) LockReport(_ context.Context, id string) (*domain.Report, error) {
	r, ok := t.reports[id]
	if !ok {
		return nil, fmt.Errorf("%w: report %s", domain.ErrNotFound, id)
	}
	return &r, nil
}

func (t *memTx) LockContribution(_ context.Context, id string) (*domain.Contribution, error) {
	c, ok := t.contributions[id]
	if !ok {
		return nil, fmt.Errorf("%w: contribution %s", domain.ErrNotFound, id)
	}
	return &c, nil
}

func (t *memTx) InsertContribution(_ context.Context, c *domain.Contribution) error {
	if t.failInsert != nil {
		return t.failInsert
	}
	if _, ok := t.reports[c.ReportID]; !ok {
		return errors.New("foreign key violation")
	}
	if c.TransactionSignature != nil {
		for _, existing := range t.contributions {
			if existing.TransactionSignature != nil && *existing.TransactionSignature == *c.TransactionSignature {
				return fmt.Errorf("%w: %s", domain.ErrDuplicateSignature, *c.TransactionSignature)
			}
		}
	}
	t.contributions[c.ID] = *c
	t.order = append(t.order, c.ID)
	return nil
}

func (t *memTx) UpdateTransferredAmount(_ context.Context, id string, amount decimal.Decimal, toID string) error {
	c, ok := t.contributions[id]
	if !ok {
		return fmt.Errorf("%w: contribution %s", domain.ErrNotFound, id)
	}
	c.Amount = amount
	c.TransferredToID = &toID
	t.contributions[id] = c
	return nil
}

func (t *memTx) SumActiveAmounts(_ context.Context, reportID string) (decimal.Decimal, error) {
	total := decimal.Zero
	for _, c := range t.contributions {
		if c.ReportID == reportID && c.IsActive {
			total = total.Add(c.Amount)
		}
	}
	return total, nil
}

func (t *memTx) SetBountyAmount(_ context.Context, reportID string, amount decimal.Decimal) error {
	r, ok := t.reports[reportID]
	if !ok {
		return fmt.Errorf("%w: report %s", domain.ErrNotFound, reportID)
	}
	r.BountyAmount = amount
	t.reports[reportID] = r
	return nil
}

// setContribution overwrites a committed contribution, bypassing the ledger.
func (m *memStore) setContribution(c domain.Contribution) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.contributions[c.ID]; !ok {
		m.order = append(m.order, c.ID)
	}
	m.contributions[c.ID] = c
}
