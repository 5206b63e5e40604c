package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"bountyledger/internal/domain"
	"bountyledger/internal/ledger"
	"bountyledger/internal/settlement"
)

type contributionResponse struct {
	ID                    string    `json:"id"`
	ReportID              string    `json:"report_id"`
	ContributorID         string    `json:"contributor_id"`
	ContributorName       string    `json:"contributor_name"`
	ContributorProfilePic string    `json:"contributor_profile_pic,omitempty"`
	Amount                string    `json:"amount"`
	Comment               string    `json:"comment,omitempty"`
	TransactionSignature  *string   `json:"transaction_signature"`
	TransferredFromID     *string   `json:"transferred_from_id"`
	TransferredToID       *string   `json:"transferred_to_id"`
	IsActive              bool      `json:"is_active"`
	CreatedAt             time.Time `json:"created_at"`
}

func toContributionResponse(c domain.Contribution) contributionResponse {
	return contributionResponse{
		ID:                    c.ID,
		ReportID:              c.ReportID,
		ContributorID:         c.ContributorID,
		ContributorName:       c.ContributorName,
		ContributorProfilePic: c.ContributorAvatar,
		Amount:                c.Amount.String(),
		Comment:               c.Comment,
		TransactionSignature:  c.TransactionSignature,
		TransferredFromID:     c.TransferredFromID,
		TransferredToID:       c.TransferredToID,
		IsActive:              c.IsActive,
		CreatedAt:             c.CreatedAt,
	}
}

func toContributionList(items []domain.Contribution) []contributionResponse {
	out := make([]contributionResponse, 0, len(items))
	for _, c := range items {
		out = append(out, toContributionResponse(c))
	}
	return out
}

type reportResponse struct {
	ID           string     `json:"id"`
	OwnerID      string     `json:"owner_id"`
	Title        string     `json:"title"`
	BountyAmount string     `json:"bounty_amount"`
	ArchivedAt   *time.Time `json:"archived_at"`
	CreatedAt    time.Time  `json:"created_at"`
}

type contributionRequest struct {
	Amount                decimal.Decimal `json:"amount"`
	Comment               string          `json:"comment"`
	TransactionSignature  string          `json:"transaction_signature"`
	ContributorName       string          `json:"contributor_name"`
	ContributorProfilePic string          `json:"contributor_profile_pic"`
}

type transferRequest struct {
	TargetReportID string          `json:"target_report_id"`
	Amount         decimal.Decimal `json:"amount"`
	Comment        string          `json:"comment"`
}

func (a *App) ReportGet(w http.ResponseWriter, r *http.Request) {
	report, err := a.Ledger.Report(r.Context(), chi.URLParam(r, "reportID"))
	if err != nil {
		a.ledgerError(w, r, err)
		return
	}
	a.json(w, http.StatusOK, reportResponse{
		ID:           report.ID,
		OwnerID:      report.OwnerID,
		Title:        report.Title,
		BountyAmount: report.BountyAmount.String(),
		ArchivedAt:   report.ArchivedAt,
		CreatedAt:    report.CreatedAt,
	})
}

func (a *App) ReportContributions(w http.ResponseWriter, r *http.Request) {
	items, err := a.Ledger.Contributions(r.Context(), chi.URLParam(r, "reportID"))
	if err != nil {
		a.ledgerError(w, r, err)
		return
	}
	a.json(w, http.StatusOK, map[string]any{"items": toContributionList(items)})
}

func (a *App) ContributionsCreate(w http.ResponseWriter, r *http.Request) {
	var req contributionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "authentication required")
		return
	}

	signature := strings.TrimSpace(req.TransactionSignature)
	if signature != "" && a.Verifier != nil {
		if err := a.Verifier.Confirm(r.Context(), signature); err != nil {
			a.verificationError(w, r, err)
			return
		}
	}

	name := strings.TrimSpace(req.ContributorName)
	if name == "" {
		name = a.currentUserName(r)
	}
	contribution, err := a.Ledger.Add(r.Context(), ledger.AddRequest{
		ReportID:             chi.URLParam(r, "reportID"),
		ContributorID:        userID,
		ContributorName:      name,
		ContributorAvatar:    req.ContributorProfilePic,
		Amount:               req.Amount,
		Comment:              req.Comment,
		TransactionSignature: signature,
	})
	if err != nil {
		a.ledgerError(w, r, err)
		return
	}
	a.json(w, http.StatusCreated, toContributionResponse(*contribution))
}

func (a *App) verificationError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, settlement.ErrInvalidSignature):
		a.error(w, http.StatusBadRequest, "bad_request", err.Error())
	case errors.Is(err, settlement.ErrOnChainRejected):
		a.error(w, http.StatusUnprocessableEntity, "transaction_rejected", "transaction failed on chain")
	default:
		a.logger(r).Warn().Err(err).Msg("signature verification failed")
		a.error(w, http.StatusBadGateway, "unverified", "transaction could not be confirmed")
	}
}

func (a *App) ReportRecompute(w http.ResponseWriter, r *http.Request) {
	reportID := chi.URLParam(r, "reportID")
	total, err := a.Ledger.Recompute(r.Context(), reportID)
	if err != nil {
		a.ledgerError(w, r, err)
		return
	}
	a.json(w, http.StatusOK, map[string]any{"id": reportID, "bounty_amount": total.String()})
}

func (a *App) ContributionGet(w http.ResponseWriter, r *http.Request) {
	c, err := a.Ledger.Contribution(r.Context(), chi.URLParam(r, "contributionID"))
	if err != nil {
		a.ledgerError(w, r, err)
		return
	}
	a.json(w, http.StatusOK, toContributionResponse(*c))
}

func (a *App) ContributionLineage(w http.ResponseWriter, r *http.Request) {
	chain, err := a.Ledger.Lineage(r.Context(), chi.URLParam(r, "contributionID"))
	if err != nil {
		a.ledgerError(w, r, err)
		return
	}
	a.json(w, http.StatusOK, map[string]any{"items": toContributionList(chain)})
}

func (a *App) TransfersCreate(w http.ResponseWriter, r *http.Request) {
	var req transferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	result, err := a.Ledger.Transfer(r.Context(), ledger.TransferRequest{
		SourceContributionID: chi.URLParam(r, "contributionID"),
		TargetReportID:       req.TargetReportID,
		Amount:               req.Amount,
		RequesterID:          a.currentUserID(r),
		RequesterName:        a.currentUserName(r),
		Comment:              req.Comment,
	})
	if err != nil {
		a.ledgerError(w, r, err)
		return
	}
	a.json(w, http.StatusCreated, map[string]any{
		"source":      toContributionResponse(result.Source),
		"destination": toContributionResponse(result.Destination),
	})
}
