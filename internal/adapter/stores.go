// Package adapter selects and opens the configured storage backend.
package adapter

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"bountyledger/internal/adapter/repo"
	"bountyledger/internal/adapter/sqlitestore"
	"bountyledger/internal/domain"
	"bountyledger/internal/infra"
)

// Stores bundles the repositories the ledger and notifier run on.
type Stores struct {
	Backend       string
	Ledger        domain.LedgerStore
	Notifications domain.NotificationRepository

	ping  func(context.Context) error
	close func()
}

// Ping checks that the selected backend is reachable.
func (s *Stores) Ping(ctx context.Context) error {
	if s == nil || s.ping == nil {
		return fmt.Errorf("store is not open")
	}
	return s.ping(ctx)
}

// Close releases the underlying database handles.
func (s *Stores) Close() {
	if s != nil && s.close != nil {
		s.close()
	}
}

// Open connects to Postgres when DATABASE_URL is set and falls back to the
// embedded SQLite file otherwise. Schemas are created on first use.
func Open(ctx context.Context, cfg *infra.Config, logger zerolog.Logger) (*Stores, error) {
	if cfg.DatabaseURL != "" {
		pool, err := infra.NewDBPool(ctx, cfg)
		if err != nil {
			return nil, err
		}
		if err := repo.EnsureSchema(ctx, pool); err != nil {
			pool.Close()
			return nil, err
		}
		runner := infra.NewSQLRunner(pool, logger)
		ledgerStore := repo.NewLedgerStore(runner)
		return &Stores{
			Backend:       "postgres",
			Ledger:        ledgerStore,
			Notifications: repo.NewNotificationRepository(runner),
			ping:          ledgerStore.Ping,
			close:         pool.Close,
		}, nil
	}

	store, err := sqlitestore.Open(ctx, cfg.SQLitePath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite store: %w", err)
	}
	return &Stores{
		Backend:       "sqlite",
		Ledger:        store,
		Notifications: store.Notifications(),
		ping:          store.Ping,
		close:         func() { _ = store.Close() },
	}, nil
}
