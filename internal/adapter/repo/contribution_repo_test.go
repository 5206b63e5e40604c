package repo

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"bountyledger/internal/domain"
	"bountyledger/internal/infra"
	"bountyledger/internal/ledger"
)

func newTestStore(t *testing.T) *LedgerStorePG {
	t.Helper()
	dsn := os.Getenv("LEDGER_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("LEDGER_TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(pool.Close)
	if err := EnsureSchema(ctx, pool); err != nil {
		t.Fatalf("schema: %v", err)
	}
	return NewLedgerStore(infra.NewSQLRunner(pool, zerolog.Nop()))
}

func seedReport(t *testing.T, store *LedgerStorePG, owner string) string {
	t.Helper()
	r := &domain.Report{
		ID:        uuid.NewString(),
		OwnerID:   owner,
		Title:     "phishing drainer",
		CreatedAt: time.Now().UTC(),
	}
	if err := store.InsertReport(context.Background(), r); err != nil {
		t.Fatalf("insert report: %v", err)
	}
	return r.ID
}

func TestLedgerStorePGConcurrentTransfers(t *testing.T) {
	store := newTestStore(t)
	svc := ledger.NewService(store)
	ctx := context.Background()

	source := seedReport(t, store, "owner-1")
	target := seedReport(t, store, "owner-2")
	c, err := svc.Add(ctx, ledger.AddRequest{ReportID: source, ContributorID: "alice", Amount: decimal.NewFromInt(100)})
	if err != nil {
		t.Fatalf("add: %v", err)
	}

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		okCount  int
		rejected int
	)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Transfer(ctx, ledger.TransferRequest{
				SourceContributionID: c.ID,
				TargetReportID:       target,
				Amount:               decimal.NewFromInt(60),
				RequesterID:          "alice",
			})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				okCount++
			case errors.Is(err, domain.ErrExceedsRetention):
				rejected++
			default:
				t.Errorf("unexpected transfer error: %v", err)
			}
		}()
	}
	wg.Wait()

	if okCount != 1 || rejected != 1 {
		t.Fatalf("expected one success and one rejection, got ok=%d rejected=%d", okCount, rejected)
	}

	src, err := store.GetReport(ctx, source)
	if err != nil {
		t.Fatalf("get source report: %v", err)
	}
	dst, err := store.GetReport(ctx, target)
	if err != nil {
		t.Fatalf("get target report: %v", err)
	}
	if !src.BountyAmount.Equal(decimal.NewFromInt(40)) || !dst.BountyAmount.Equal(decimal.NewFromInt(60)) {
		t.Fatalf("unexpected bounties: source=%s target=%s", src.BountyAmount, dst.BountyAmount)
	}
}

func TestLedgerStorePGNotFound(t *testing.T) {
	store := newTestStore(t)
	_, err := store.GetContribution(context.Background(), uuid.NewString())
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestLedgerStorePGRejectsReplayedSignature(t *testing.T) {
	store := newTestStore(t)
	svc := ledger.NewService(store)
	ctx := context.Background()

	reportID := seedReport(t, store, "owner-1")
	sig := "replay-" + uuid.NewString()
	req := ledger.AddRequest{ReportID: reportID, ContributorID: "alice", Amount: decimal.NewFromInt(1000), TransactionSignature: sig}
	if _, err := svc.Add(ctx, req); err != nil {
		t.Fatalf("first add: %v", err)
	}
	if _, err := svc.Add(ctx, req); !errors.Is(err, domain.ErrDuplicateSignature) {
		t.Fatalf("expected ErrDuplicateSignature, got %v", err)
	}
	report, err := store.GetReport(ctx, reportID)
	if err != nil {
		t.Fatalf("get report: %v", err)
	}
	if !report.BountyAmount.Equal(decimal.NewFromInt(1000)) {
		t.Fatalf("bounty = %s, want 1000", report.BountyAmount)
	}
}

func TestIsRetryable(t *testing.T) {
	cases := map[string]bool{
		"40001": true,
		"40P01": true,
		"23505": false,
	}
	for code, want := range cases {
		if got := isRetryable(&pgconn.PgError{Code: code}); got != want {
			t.Fatalf("code %s: expected %v, got %v", code, want, got)
		}
	}
	if isRetryable(context.Canceled) {
		t.Fatalf("non-postgres errors must not be retried")
	}
}


func TestIsDuplicateSignature(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"signature index", &pgconn.PgError{Code: "23505", ConstraintName: "contributions_transaction_signature_key"}, true},
		{"wrapped", fmt.Errorf("exec: %w", &pgconn.PgError{Code: "23505", ConstraintName: "contributions_transaction_signature_key"}), true},
		{"primary key", &pgconn.PgError{Code: "23505", ConstraintName: "contributions_pkey"}, false},
		{"other code", &pgconn.PgError{Code: "23503", ConstraintName: "contributions_transaction_signature_key"}, false},
		{"nil", nil, false},
	}
	for _, tt := range tests {
		if got := isDuplicateSignature(tt.err); got != tt.want {
			t.Fatalf("%s: expected %v, got %v", tt.name, tt.want, got)
		}
	}
}
