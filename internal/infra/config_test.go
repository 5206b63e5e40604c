package infra

import (
	"testing"
	"time"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("DATABASE_URL", "postgres://example")
	t.Setenv("SQLITE_PATH", "")
	t.Setenv("JWT_SECRET", "test-secret")
}

func TestLoadConfigSettlementDefaults(t *testing.T) {
	setRequired(t)
	t.Setenv("SOLANA_PRIMARY_RPC_URL", "")
	t.Setenv("CONFIRM_ATTEMPTS", "")
	t.Setenv("CONFIRM_INTERVAL_MS", "")
	t.Setenv("SUBMIT_TIMEOUT_SECONDS", "")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.Settlement.PrimaryRPCURL != defaultPrimaryRPCURL {
		t.Fatalf("PrimaryRPCURL mismatch: got %q want %q", cfg.Settlement.PrimaryRPCURL, defaultPrimaryRPCURL)
	}
	if cfg.Settlement.ConfirmAttempts != 3 {
		t.Fatalf("ConfirmAttempts mismatch: got %d want 3", cfg.Settlement.ConfirmAttempts)
	}
	if cfg.Settlement.ConfirmInterval != 2*time.Second {
		t.Fatalf("ConfirmInterval mismatch: got %s want 2s", cfg.Settlement.ConfirmInterval)
	}
	if cfg.Settlement.SubmitTimeout != 90*time.Second {
		t.Fatalf("SubmitTimeout mismatch: got %s want 90s", cfg.Settlement.SubmitTimeout)
	}
	if cfg.Settlement.TokenMint != defaultTokenMint {
		t.Fatalf("TokenMint mismatch: got %q", cfg.Settlement.TokenMint)
	}
}

func TestLoadConfigAcceptsSQLiteOnly(t *testing.T) {
	setRequired(t)
	t.Setenv("DATABASE_URL", "")
	t.Setenv("SQLITE_PATH", "/tmp/ledger.db")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.SQLitePath != "/tmp/ledger.db" {
		t.Fatalf("SQLitePath mismatch: got %q", cfg.SQLitePath)
	}
}

func TestLoadConfigRequiresStore(t *testing.T) {
	setRequired(t)
	t.Setenv("DATABASE_URL", "")

	if _, err := LoadConfig(); err == nil {
		t.Fatalf("LoadConfig expected error without DATABASE_URL or SQLITE_PATH")
	}
}

func TestLoadConfigParsesCORSOrigins(t *testing.T) {
	setRequired(t)
	t.Setenv("CORS_ALLOWED_ORIGINS", " https://a.example , ,https://b.example")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	expected := []string{"https://a.example", "https://b.example"}
	if len(cfg.CORSOrigins) != len(expected) {
		t.Fatalf("CORSOrigins mismatch: got %#v want %#v", cfg.CORSOrigins, expected)
	}
	for i, origin := range expected {
		if cfg.CORSOrigins[i] != origin {
			t.Fatalf("CORSOrigins[%d] = %q, want %q", i, cfg.CORSOrigins[i], origin)
		}
	}
}

func TestLoadConfigVerifySignaturesFlag(t *testing.T) {
	setRequired(t)
	t.Setenv("VERIFY_SIGNATURES", "true")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if !cfg.Settlement.VerifySignatures {
		t.Fatalf("VerifySignatures = false, want true")
	}
}
