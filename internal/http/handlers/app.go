package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"bountyledger/internal/domain"
	"bountyledger/internal/ledger"
	"bountyledger/internal/middleware"
)

// Ledger is the set of ledger operations exposed over HTTP.
type Ledger interface {
	Add(ctx context.Context, req ledger.AddRequest) (*domain.Contribution, error)
	Transfer(ctx context.Context, req ledger.TransferRequest) (*ledger.TransferResult, error)
	Recompute(ctx context.Context, reportID string) (decimal.Decimal, error)
	Report(ctx context.Context, reportID string) (*domain.Report, error)
	Contribution(ctx context.Context, contributionID string) (*domain.Contribution, error)
	Contributions(ctx context.Context, reportID string) ([]domain.Contribution, error)
	Lineage(ctx context.Context, contributionID string) ([]domain.Contribution, error)
}

// SignatureVerifier confirms that a client-submitted transaction landed on chain.
type SignatureVerifier interface {
	Confirm(ctx context.Context, signature string) error
}

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type App struct {
	Ledger   Ledger
	Verifier SignatureVerifier
	Store    Pinger
	Logger   zerolog.Logger
}

// NewApp wires the handlers. verifier and store may be nil.
func NewApp(l Ledger, verifier SignatureVerifier, store Pinger, logger zerolog.Logger) *App {
	return &App{Ledger: l, Verifier: verifier, Store: store, Logger: logger}
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, code int, codeStr, msg string) {
	a.json(w, code, map[string]any{
		"error": map[string]string{
			"code":    codeStr,
			"message": msg,
		},
	})
}

// ledgerError maps ledger rule violations to client errors carrying the rule
// message. Anything else is logged and reported as a generic server error.
func (a *App) ledgerError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		a.error(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, domain.ErrInvalidAmount), errors.Is(err, domain.ErrInvalidContributor):
		a.error(w, http.StatusBadRequest, "bad_request", err.Error())
	case errors.Is(err, domain.ErrUnauthorized):
		a.error(w, http.StatusForbidden, "forbidden", err.Error())
	case errors.Is(err, domain.ErrDuplicateSignature):
		a.error(w, http.StatusConflict, "duplicate_signature", err.Error())
	case errors.Is(err, domain.ErrInactive):
		a.error(w, http.StatusConflict, "inactive", err.Error())
	case errors.Is(err, domain.ErrExceedsRetention):
		a.error(w, http.StatusUnprocessableEntity, "exceeds_retention", err.Error())
	case errors.Is(err, domain.ErrSelfTransfer):
		a.error(w, http.StatusUnprocessableEntity, "self_transfer", err.Error())
	default:
		a.logger(r).Error().Err(err).Str("path", r.URL.Path).Msg("ledger request failed")
		a.error(w, http.StatusInternalServerError, "internal", "internal error")
	}
}

func (a *App) logger(r *http.Request) *zerolog.Logger {
	if l := zerolog.Ctx(r.Context()); l.GetLevel() != zerolog.Disabled {
		return l
	}
	return &a.Logger
}

func (a *App) currentUserID(r *http.Request) string {
	return middleware.UserIDFromContext(r.Context())
}

func (a *App) currentUserName(r *http.Request) string {
	return middleware.UserNameFromContext(r.Context())
}
