package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/cenkalti/backoff/v5"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"

	"bountyledger/internal/domain"
	"bountyledger/internal/infra"
	"bountyledger/internal/observability"
	"bountyledger/internal/sqlinline"
)

const (
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
	pgUniqueViolation      = "23505"
	signatureConstraint    = "contributions_transaction_signature_key"
	maxTxAttempts          = 3
)

// LedgerStorePG implements domain.LedgerStore on PostgreSQL. Row locks are taken
// with SELECT ... FOR UPDATE inside read-committed transactions.
type LedgerStorePG struct {
	runner  *infra.SQLRunner
	metrics *observability.LedgerMetrics
}

// NewLedgerStore creates a ledger store backed by the runner's pool.
func NewLedgerStore(runner *infra.SQLRunner) *LedgerStorePG {
	return &LedgerStorePG{runner: runner, metrics: observability.Ledger()}
}

// InTx runs fn in a read-committed transaction, retrying the whole transaction
// when Postgres aborts it with a serialization failure or deadlock.
func (s *LedgerStorePG) InTx(ctx context.Context, fn func(tx domain.LedgerTx) error) error {
	attempt := 0
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		attempt++
		err := s.runner.InTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted}, func(tx *infra.SQLRunner) error {
			return fn(&ledgerTxPG{sql: tx})
		})
		if err == nil {
			return struct{}{}, nil
		}
		if isRetryable(err) && attempt < maxTxAttempts {
			s.metrics.RecordTxRetry("postgres")
			s.runner.Logger.Warn().Err(err).Int("attempt", attempt).Msg("ledger store: retrying transaction")
			return struct{}{}, err
		}
		return struct{}{}, backoff.Permanent(err)
	}, backoff.WithBackOff(backoff.NewExponentialBackOff()), backoff.WithMaxTries(maxTxAttempts))
	return err
}

// Ping checks that the pool can reach the database.
func (s *LedgerStorePG) Ping(ctx context.Context) error {
	return s.runner.Pool.Ping(ctx)
}

// GetReport loads a report outside any transaction.
func (s *LedgerStorePG) GetReport(ctx context.Context, reportID string) (*domain.Report, error) {
	return scanReport(s.runner.QueryRow(ctx, sqlinline.QSelectReport, reportID), reportID)
}

// GetContribution loads a contribution outside any transaction.
func (s *LedgerStorePG) GetContribution(ctx context.Context, contributionID string) (*domain.Contribution, error) {
	return scanContribution(s.runner.QueryRow(ctx, sqlinline.QSelectContribution, contributionID), contributionID)
}

// ListContributions returns every contribution attached to a report, oldest first.
func (s *LedgerStorePG) ListContributions(ctx context.Context, reportID string) ([]domain.Contribution, error) {
	rows, err := s.runner.Query(ctx, sqlinline.QListContributionsByReport, reportID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []domain.Contribution
	for rows.Next() {
		c, err := scanContribution(rows, "")
		if err != nil {
			return nil, err
		}
		items = append(items, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

type ledgerTxPG struct {
	sql *infra.SQLRunner
}

func (t *ledgerTxPG) LockReport(ctx context.Context, reportID string) (*domain.Report, error) {
	return scanReport(t.sql.QueryRow(ctx, sqlinline.QLockReport, reportID), reportID)
}

func (t *ledgerTxPG) LockContribution(ctx context.Context, contributionID string) (*domain.Contribution, error) {
	return scanContribution(t.sql.QueryRow(ctx, sqlinline.QLockContribution, contributionID), contributionID)
}

func (t *ledgerTxPG) InsertContribution(ctx context.Context, c *domain.Contribution) error {
	_, err := t.sql.Exec(ctx, sqlinline.QInsertContribution,
		c.ID,
		c.ReportID,
		c.ContributorID,
		c.ContributorName,
		c.ContributorAvatar,
		c.Amount.String(),
		c.Comment,
		c.TransactionSignature,
		c.TransferredFromID,
		c.IsActive,
		c.CreatedAt,
	)
	if isDuplicateSignature(err) {
		return fmt.Errorf("%w: %s", domain.ErrDuplicateSignature, *c.TransactionSignature)
	}
	return err
}

func (t *ledgerTxPG) UpdateTransferredAmount(ctx context.Context, contributionID string, amount decimal.Decimal, transferredToID string) error {
	tag, err := t.sql.Exec(ctx, sqlinline.QUpdateTransferredAmount, contributionID, amount.String(), transferredToID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() != 1 {
		return fmt.Errorf("%w: contribution %s", domain.ErrNotFound, contributionID)
	}
	return nil
}

func (t *ledgerTxPG) SumActiveAmounts(ctx context.Context, reportID string) (decimal.Decimal, error) {
	var raw string
	if err := t.sql.QueryRow(ctx, sqlinline.QSumActiveContributions, reportID).Scan(&raw); err != nil {
		return decimal.Zero, err
	}
	return decimal.NewFromString(raw)
}

func (t *ledgerTxPG) SetBountyAmount(ctx context.Context, reportID string, amount decimal.Decimal) error {
	tag, err := t.sql.Exec(ctx, sqlinline.QSetBountyAmount, reportID, amount.String())
	if err != nil {
		return err
	}
	if tag.RowsAffected() != 1 {
		return fmt.Errorf("%w: report %s", domain.ErrNotFound, reportID)
	}
	return nil
}

func scanReport(row pgx.Row, reportID string) (*domain.Report, error) {
	var (
		r      domain.Report
		bounty string
	)
	if err := row.Scan(&r.ID, &r.OwnerID, &r.Title, &bounty, &r.ArchivedAt, &r.CreatedAt); err != nil {
		if infra.IsNoRows(err) {
			return nil, fmt.Errorf("%w: report %s", domain.ErrNotFound, reportID)
		}
		return nil, err
	}
	amount, err := decimal.NewFromString(bounty)
	if err != nil {
		return nil, fmt.Errorf("parse bounty amount of report %s: %w", r.ID, err)
	}
	r.BountyAmount = amount
	return &r, nil
}

func scanContribution(row pgx.Row, contributionID string) (*domain.Contribution, error) {
	var (
		c      domain.Contribution
		amount string
	)
	err := row.Scan(
		&c.ID,
		&c.ReportID,
		&c.ContributorID,
		&c.ContributorName,
		&c.ContributorAvatar,
		&amount,
		&c.Comment,
		&c.TransactionSignature,
		&c.TransferredFromID,
		&c.TransferredToID,
		&c.IsActive,
		&c.CreatedAt,
	)
	if err != nil {
		if infra.IsNoRows(err) {
			return nil, fmt.Errorf("%w: contribution %s", domain.ErrNotFound, contributionID)
		}
		return nil, err
	}
	parsed, err := decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("parse amount of contribution %s: %w", c.ID, err)
	}
	c.Amount = parsed
	return &c, nil
}

func isRetryable(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == pgSerializationFailure || pgErr.Code == pgDeadlockDetected
}

func isDuplicateSignature(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == pgUniqueViolation && pgErr.ConstraintName == signatureConstraint
}

var (
	_ domain.LedgerStore = (*LedgerStorePG)(nil)
	_ domain.LedgerTx    = (*ledgerTxPG)(nil)
)

// InsertReport stores a report row. Reports are owned by the surrounding
// application; this is used for seeding and tests.
func (s *LedgerStorePG) InsertReport(ctx context.Context, r *domain.Report) error {
	_, err := s.runner.Exec(ctx, sqlinline.QInsertReport,
		r.ID,
		r.OwnerID,
		r.Title,
		r.BountyAmount.String(),
		r.ArchivedAt,
		r.CreatedAt,
	)
	return err
}
