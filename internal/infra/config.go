package infra

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	defaultPrimaryRPCURL  = "https://api.mainnet-beta.solana.com"
	defaultFallbackRPCURL = "https://solana-rpc.publicnode.com"
	// USDC on Solana mainnet.
	defaultTokenMint = "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv           string
	LogLevel         string
	Port             string
	DatabaseURL      string
	DBMaxConns       int
	SQLitePath       string
	JWTSecret        string
	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration
	RateLimitPerMin  int
	CORSOrigins      []string
	NotifyLocale     string

	Settlement SettlementConfig
}

// SettlementConfig configures the on-chain transaction submitter.
type SettlementConfig struct {
	PrimaryRPCURL    string
	FallbackRPCURL   string
	TokenMint        string
	ConfirmAttempts  int
	ConfirmInterval  time.Duration
	RequestTimeout   time.Duration
	SubmitTimeout    time.Duration
	VerifySignatures bool
}

// LoadConfig loads configuration from environment variables and applies defaults where needed.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		AppEnv:           getEnv("APP_ENV", "development"),
		LogLevel:         os.Getenv("LOG_LEVEL"),
		Port:             getEnv("PORT", "8080"),
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		DBMaxConns:       getEnvInt("DB_MAX_CONNS", 10),
		SQLitePath:       os.Getenv("SQLITE_PATH"),
		JWTSecret:        os.Getenv("JWT_SECRET"),
		HTTPReadTimeout:  time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)),
		HTTPWriteTimeout: time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 30)),
		HTTPIdleTimeout:  time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
		RateLimitPerMin:  getEnvInt("RATE_LIMIT_PER_MINUTE", 30),
		CORSOrigins:      getEnvList("CORS_ALLOWED_ORIGINS"),
		NotifyLocale:     getEnv("NOTIFY_LOCALE", "en"),
		Settlement:       LoadSettlementConfig(),
	}

	if cfg.DatabaseURL == "" && cfg.SQLitePath == "" {
		return nil, fmt.Errorf("DATABASE_URL or SQLITE_PATH is required")
	}

	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	if cfg.Settlement.ConfirmAttempts <= 0 {
		return nil, fmt.Errorf("CONFIRM_ATTEMPTS must be positive")
	}

	return cfg, nil
}

// LoadSettlementConfig reads the on-chain settlement settings on their own, for
// tools that do not run the HTTP API.
func LoadSettlementConfig() SettlementConfig {
	return SettlementConfig{
		PrimaryRPCURL:    getEnv("SOLANA_PRIMARY_RPC_URL", defaultPrimaryRPCURL),
		FallbackRPCURL:   getEnv("SOLANA_FALLBACK_RPC_URL", defaultFallbackRPCURL),
		TokenMint:        getEnv("TOKEN_MINT", defaultTokenMint),
		ConfirmAttempts:  getEnvInt("CONFIRM_ATTEMPTS", 3),
		ConfirmInterval:  time.Millisecond * time.Duration(getEnvInt("CONFIRM_INTERVAL_MS", 2000)),
		RequestTimeout:   time.Second * time.Duration(getEnvInt("RPC_REQUEST_TIMEOUT_SECONDS", 10)),
		SubmitTimeout:    time.Second * time.Duration(getEnvInt("SUBMIT_TIMEOUT_SECONDS", 90)),
		VerifySignatures: getEnvBool("VERIFY_SIGNATURES", false),
	}
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
