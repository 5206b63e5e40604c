// Package sqlitestore provides an embedded SQLite implementation of the ledger
// store. Write transactions begin with BEGIN IMMEDIATE, which takes the database
// write lock up front, so every LedgerTx is serialized against other writers.
package sqlitestore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/shopspring/decimal"
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"

	"bountyledger/internal/adapter/sqlitestore/migrations"
	"bountyledger/internal/domain"
	"bountyledger/internal/observability"
)

const (
	busyTimeoutMillis = 10000
	maxTxAttempts     = 3
)

const contributionColumns = `id, report_id, contributor_id, contributor_name, contributor_profile_pic, amount, comment,
       transaction_signature, transferred_from_id, transferred_to_id, is_active, created_at`

const reportColumns = `id, owner_id, title, bounty_amount, archived_at, created_at`

// Store persists ledger state in SQLite.
type Store struct {
	sqlDB   *sql.DB
	metrics *observability.LedgerMetrics
}

// Open opens a SQLite ledger store and applies embedded migrations.
func Open(ctx context.Context, path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	sqlDB, err := sql.Open("sqlite", dsn(filepath.Clean(path)))
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := applyMigrations(ctx, sqlDB, migrations.FS); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{sqlDB: sqlDB, metrics: observability.Ledger()}, nil
}

func dsn(path string) string {
	q := url.Values{}
	q.Set("_txlock", "immediate")
	q.Add("_pragma", fmt.Sprintf("busy_timeout(%d)", busyTimeoutMillis))
	q.Add("_pragma", "journal_mode(WAL)")
	q.Add("_pragma", "foreign_keys(1)")
	q.Add("_pragma", "synchronous(NORMAL)")
	return path + "?" + q.Encode()
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// Ping checks that the database file is still reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.sqlDB.PingContext(ctx)
}

// DB exposes the underlying handle to collaborators sharing the database file.
func (s *Store) DB() *sql.DB {
	return s.sqlDB
}

// InTx runs fn inside an immediate transaction, retrying when the database stays
// busy past the busy timeout.
func (s *Store) InTx(ctx context.Context, fn func(tx domain.LedgerTx) error) error {
	attempt := 0
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		attempt++
		err := s.inTx(ctx, fn)
		if err == nil {
			return struct{}{}, nil
		}
		if isBusy(err) && attempt < maxTxAttempts {
			s.metrics.RecordTxRetry("sqlite")
			return struct{}{}, err
		}
		return struct{}{}, backoff.Permanent(err)
	}, backoff.WithBackOff(backoff.NewExponentialBackOff()), backoff.WithMaxTries(maxTxAttempts))
	return err
}

func (s *Store) inTx(ctx context.Context, fn func(tx domain.LedgerTx) error) (err error) {
	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()
	if err = fn(&ledgerTx{tx: tx}); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// GetReport loads a report.
func (s *Store) GetReport(ctx context.Context, reportID string) (*domain.Report, error) {
	return selectReport(ctx, s.sqlDB, reportID)
}

// GetContribution loads a contribution.
func (s *Store) GetContribution(ctx context.Context, contributionID string) (*domain.Contribution, error) {
	return selectContribution(ctx, s.sqlDB, contributionID)
}

// ListContributions returns the contributions of a report, oldest first.
func (s *Store) ListContributions(ctx context.Context, reportID string) ([]domain.Contribution, error) {
	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT `+contributionColumns+` FROM contributions WHERE report_id = ? ORDER BY created_at, id`,
		reportID,
	)
	if err != nil {
		return nil, fmt.Errorf("list contributions: %w", err)
	}
	defer rows.Close()

	var items []domain.Contribution
	for rows.Next() {
		c, err := scanContribution(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate contributions: %w", err)
	}
	return items, nil
}

// InsertReport stores a report row. Reports are owned by the surrounding
// application; this is used for seeding and tests.
func (s *Store) InsertReport(ctx context.Context, r *domain.Report) error {
	createdAt := r.CreatedAt.UTC()
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	var archivedAt sql.NullInt64
	if r.ArchivedAt != nil {
		archivedAt = sql.NullInt64{Int64: toMillis(*r.ArchivedAt), Valid: true}
	}
	_, err := s.sqlDB.ExecContext(ctx,
		`INSERT INTO reports (id, owner_id, title, bounty_amount, archived_at, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		r.ID,
		r.OwnerID,
		r.Title,
		r.BountyAmount.String(),
		archivedAt,
		toMillis(createdAt),
		toMillis(createdAt),
	)
	if err != nil {
		return fmt.Errorf("insert report: %w", err)
	}
	return nil
}

// CreateNotification implements domain.NotificationRepository.
func (s *Store) CreateNotification(ctx context.Context, n *domain.Notification) error {
	var reportID sql.NullString
	if n.ReportID != "" {
		reportID = sql.NullString{String: n.ReportID, Valid: true}
	}
	_, err := s.sqlDB.ExecContext(ctx,
		`INSERT INTO notifications (id, recipient_id, kind, report_id, message, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		n.ID,
		n.RecipientID,
		string(n.Kind),
		reportID,
		n.Message,
		toMillis(n.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}

// Notifications adapts the store to domain.NotificationRepository.
func (s *Store) Notifications() domain.NotificationRepository {
	return notificationRepo{store: s}
}

type notificationRepo struct {
	store *Store
}

func (r notificationRepo) Create(ctx context.Context, n *domain.Notification) error {
	return r.store.CreateNotification(ctx, n)
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type ledgerTx struct {
	tx *sql.Tx
}

// LockReport reads the report. The immediate transaction already holds the
// database write lock.
func (t *ledgerTx) LockReport(ctx context.Context, reportID string) (*domain.Report, error) {
	return selectReport(ctx, t.tx, reportID)
}

func (t *ledgerTx) LockContribution(ctx context.Context, contributionID string) (*domain.Contribution, error) {
	return selectContribution(ctx, t.tx, contributionID)
}

func (t *ledgerTx) InsertContribution(ctx context.Context, c *domain.Contribution) error {
	_, err := t.tx.ExecContext(ctx,
		`INSERT INTO contributions (`+contributionColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID,
		c.ReportID,
		c.ContributorID,
		c.ContributorName,
		c.ContributorAvatar,
		c.Amount.String(),
		c.Comment,
		nullString(c.TransactionSignature),
		nullString(c.TransferredFromID),
		nullString(c.TransferredToID),
		c.IsActive,
		toMillis(c.CreatedAt),
	)
	if isDuplicateSignature(err) {
		return fmt.Errorf("%w: %s", domain.ErrDuplicateSignature, *c.TransactionSignature)
	}
	return err
}

func (t *ledgerTx) UpdateTransferredAmount(ctx context.Context, contributionID string, amount decimal.Decimal, transferredToID string) error {
	res, err := t.tx.ExecContext(ctx,
		`UPDATE contributions SET amount = ?, transferred_to_id = ? WHERE id = ?`,
		amount.String(),
		transferredToID,
		contributionID,
	)
	if err != nil {
		return err
	}
	return expectOneRow(res, "contribution", contributionID)
}

// SumActiveAmounts adds the stored decimal strings exactly.
func (t *ledgerTx) SumActiveAmounts(ctx context.Context, reportID string) (decimal.Decimal, error) {
	rows, err := t.tx.QueryContext(ctx,
		`SELECT amount FROM contributions WHERE report_id = ? AND is_active = 1`,
		reportID,
	)
	if err != nil {
		return decimal.Zero, err
	}
	defer rows.Close()

	total := decimal.Zero
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return decimal.Zero, err
		}
		amount, err := decimal.NewFromString(raw)
		if err != nil {
			return decimal.Zero, fmt.Errorf("parse amount %q: %w", raw, err)
		}
		total = total.Add(amount)
	}
	return total, rows.Err()
}

func (t *ledgerTx) SetBountyAmount(ctx context.Context, reportID string, amount decimal.Decimal) error {
	res, err := t.tx.ExecContext(ctx,
		`UPDATE reports SET bounty_amount = ?, updated_at = ? WHERE id = ?`,
		amount.String(),
		toMillis(time.Now()),
		reportID,
	)
	if err != nil {
		return err
	}
	return expectOneRow(res, "report", reportID)
}

func selectReport(ctx context.Context, q queryer, reportID string) (*domain.Report, error) {
	var (
		r          domain.Report
		bounty     string
		archivedAt sql.NullInt64
		createdAt  int64
	)
	err := q.QueryRowContext(ctx, `SELECT `+reportColumns+` FROM reports WHERE id = ?`, reportID).
		Scan(&r.ID, &r.OwnerID, &r.Title, &bounty, &archivedAt, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: report %s", domain.ErrNotFound, reportID)
	}
	if err != nil {
		return nil, fmt.Errorf("select report: %w", err)
	}
	amount, err := decimal.NewFromString(bounty)
	if err != nil {
		return nil, fmt.Errorf("parse bounty amount of report %s: %w", r.ID, err)
	}
	r.BountyAmount = amount
	r.CreatedAt = fromMillis(createdAt)
	if archivedAt.Valid {
		at := fromMillis(archivedAt.Int64)
		r.ArchivedAt = &at
	}
	return &r, nil
}

func selectContribution(ctx context.Context, q queryer, contributionID string) (*domain.Contribution, error) {
	row := q.QueryRowContext(ctx, `SELECT `+contributionColumns+` FROM contributions WHERE id = ?`, contributionID)
	c, err := scanContribution(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: contribution %s", domain.ErrNotFound, contributionID)
	}
	return c, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanContribution(row scanner) (*domain.Contribution, error) {
	var (
		c           domain.Contribution
		amount      string
		signature   sql.NullString
		fromID      sql.NullString
		toID        sql.NullString
		createdAtMs int64
	)
	err := row.Scan(
		&c.ID,
		&c.ReportID,
		&c.ContributorID,
		&c.ContributorName,
		&c.ContributorAvatar,
		&amount,
		&c.Comment,
		&signature,
		&fromID,
		&toID,
		&c.IsActive,
		&createdAtMs,
	)
	if err != nil {
		return nil, err
	}
	parsed, err := decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("parse amount of contribution %s: %w", c.ID, err)
	}
	c.Amount = parsed
	c.TransactionSignature = stringPtr(signature)
	c.TransferredFromID = stringPtr(fromID)
	c.TransferredToID = stringPtr(toID)
	c.CreatedAt = fromMillis(createdAtMs)
	return &c, nil
}

func expectOneRow(res sql.Result, kind, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n != 1 {
		return fmt.Errorf("%w: %s %s", domain.ErrNotFound, kind, id)
	}
	return nil
}

func isBusy(err error) bool {
	var sqliteErr *msqlite.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	return sqliteErr.Code()&0xff == sqlite3lib.SQLITE_BUSY
}

func isDuplicateSignature(err error) bool {
	var sqliteErr *msqlite.Error
	if !errors.As(err, &sqliteErr) || sqliteErr.Code() != sqlite3lib.SQLITE_CONSTRAINT_UNIQUE {
		return false
	}
	return strings.Contains(sqliteErr.Error(), "contributions.transaction_signature")
}

func nullString(v *string) sql.NullString {
	if v == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *v, Valid: true}
}

func stringPtr(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}

func toMillis(t time.Time) int64 {
	return t.UTC().UnixMilli()
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

var (
	_ domain.LedgerStore = (*Store)(nil)
	_ domain.LedgerTx    = (*ledgerTx)(nil)
)
