package adapter

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"

	"bountyledger/internal/infra"
)

func TestOpenFallsBackToSQLite(t *testing.T) {
	cfg := &infra.Config{SQLitePath: filepath.Join(t.TempDir(), "ledger.db")}
	stores, err := Open(context.Background(), cfg, zerolog.Nop())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer stores.Close()

	if stores.Backend != "sqlite" {
		t.Fatalf("backend = %q", stores.Backend)
	}
	if stores.Ledger == nil || stores.Notifications == nil {
		t.Fatalf("stores not wired: %+v", stores)
	}
	if err := stores.Ping(context.Background()); err != nil {
		t.Fatalf("ping: %v", err)
	}
}

func TestOpenRequiresPath(t *testing.T) {
	if _, err := Open(context.Background(), &infra.Config{}, zerolog.Nop()); err == nil {
		t.Fatalf("expected error without any store configured")
	}
}
