package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/intentionbank/backend/internal/models"
	"github.com/intentionbank/backend/internal/services"
	"go.uber.org/zap"
)

type LedgerHandler struct {
	accounts *services.AccountService
	ledger   *services.LedgerService
	logger   *zap.Logger
}

func NewLedgerHandler(accounts *services.AccountService, ledger *services.LedgerService, logger *zap.Logger) *LedgerHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LedgerHandler{accounts: accounts, ledger: ledger, logger: logger}
}

type BalanceResponse struct {
	AccountID int64      `json:"account_id"`
	Currency  string     `json:"currency" example:"USD"`
	Balance   string     `json:"balance" example:"70.00"`
	AsOf      *time.Time `json:"as_of,omitempty"`
}

type TransferResponse struct {
	TransferID string        `json:"transfer_id"`
	Debit      EntryResponse `json:"debit"`
	Credit     EntryResponse `json:"credit"`
}

// authorizeAccounts checks the caller may act on every positive id. Zero ids
// are left for the service to reject as invalid input.
func authorizeAccounts(ctx context.Context, accounts *services.AccountService, user *models.User, ids ...int64) error {
	for _, id := range ids {
		if id <= 0 {
			continue
		}
		if _, err := accounts.Authorized(ctx, user, id); err != nil {
			return err
		}
	}
	return nil
}

// PostEntry appends a ledger entry
// @Summary Post ledger entry
// @Description Posts one entry. Repeating an idempotency_key for the same account returns the original entry.
// @Tags Ledger
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body services.PostEntryInput true "Entry"
// @Success 200 {object} EntryResponse
// @Failure 400 {object} services.ErrorResponse
// @Failure 403 {object} services.ErrorResponse
// @Failure 404 {object} services.ErrorResponse
// @Router /ledger/entries [post]
func (h *LedgerHandler) PostEntry(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req services.PostEntryInput
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := authorizeAccounts(r.Context(), h.accounts, user, req.AccountID); err != nil {
		fail(w, r, h.logger, "post entry", err)
		return
	}

	entry, err := h.ledger.PostEntry(r.Context(), user.ID, req)
	if err != nil {
		fail(w, r, h.logger, "post entry", err)
		return
	}
	writeJSON(w, http.StatusOK, entryResponse(entry))
}

// ListEntries pages through an account's ledger
// @Summary List ledger entries
// @Tags Ledger
// @Produce json
// @Security BearerAuth
// @Param id path int true "Account ID"
// @Param limit query int false "Page size"
// @Param offset query int false "Offset"
// @Success 200 {array} EntryResponse
// @Failure 403 {object} services.ErrorResponse
// @Failure 404 {object} services.ErrorResponse
// @Router /accounts/{id}/ledger [get]
func (h *LedgerHandler) ListEntries(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	limit, err := queryInt(r, "limit")
	if err != nil {
		services.SendErrorResponse(w, err.Error(), http.StatusBadRequest, nil)
		return
	}
	offset, err := queryInt(r, "offset")
	if err != nil {
		services.SendErrorResponse(w, err.Error(), http.StatusBadRequest, nil)
		return
	}

	if _, err := h.accounts.Authorized(r.Context(), user, id); err != nil {
		fail(w, r, h.logger, "list entries", err)
		return
	}
	entries, err := h.ledger.ListEntries(r.Context(), id, limit, offset)
	if err != nil {
		fail(w, r, h.logger, "list entries", err)
		return
	}
	writeJSON(w, http.StatusOK, entryResponses(entries))
}

// Balance derives an account's posted balance
// @Summary Account balance
// @Description Trust accounts include their direct children. as_of excludes entries at or after that instant.
// @Tags Ledger
// @Produce json
// @Security BearerAuth
// @Param id path int true "Account ID"
// @Param currency query string false "ISO currency" default(USD)
// @Param as_of query string false "RFC 3339 timestamp"
// @Success 200 {object} BalanceResponse
// @Failure 400 {object} services.ErrorResponse
// @Failure 403 {object} services.ErrorResponse
// @Failure 404 {object} services.ErrorResponse
// @Router /accounts/{id}/balance [get]
func (h *LedgerHandler) Balance(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}

	var asOf *time.Time
	if v := r.URL.Query().Get("as_of"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			services.SendErrorResponse(w, "as_of must be an RFC 3339 timestamp", http.StatusBadRequest, nil)
			return
		}
		asOf = &t
	}
	currency := h.ledger.NormalizeCurrency(r.URL.Query().Get("currency"))

	if _, err := h.accounts.Authorized(r.Context(), user, id); err != nil {
		fail(w, r, h.logger, "balance", err)
		return
	}
	balance, err := h.ledger.GetBalance(r.Context(), id, currency, asOf)
	if err != nil {
		fail(w, r, h.logger, "balance", err)
		return
	}
	writeJSON(w, http.StatusOK, BalanceResponse{
		AccountID: id,
		Currency:  currency,
		Balance:   money(balance),
		AsOf:      asOf,
	})
}

// CreateTransfer moves value between two accounts
// @Summary Create transfer
// @Description Posts a debit on the source and a credit on the destination atomically. The caller must be allowed to act on both accounts.
// @Tags Ledger
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body services.TransferInput true "Transfer"
// @Success 200 {object} TransferResponse
// @Failure 400 {object} services.ErrorResponse
// @Failure 403 {object} services.ErrorResponse
// @Failure 404 {object} services.ErrorResponse
// @Failure 409 {object} services.ErrorResponse
// @Router /transfers [post]
func (h *LedgerHandler) CreateTransfer(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req services.TransferInput
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := authorizeAccounts(r.Context(), h.accounts, user, req.FromAccountID, req.ToAccountID); err != nil {
		fail(w, r, h.logger, "transfer", err)
		return
	}

	t, err := h.ledger.CreateTransfer(r.Context(), user.ID, req)
	if err != nil {
		fail(w, r, h.logger, "transfer", err)
		return
	}
	writeJSON(w, http.StatusOK, TransferResponse{
		TransferID: t.TransferID,
		Debit:      entryResponse(t.Debit),
		Credit:     entryResponse(t.Credit),
	})
}

// ClaimWelcomeBonus credits the one-time welcome deposit
// @Summary Claim welcome bonus
// @Description Creates the Wealth Builder account if needed. Repeated claims return the original entry.
// @Tags Ledger
// @Produce json
// @Security BearerAuth
// @Success 200 {object} EntryResponse
// @Router /welcome-bonus [post]
func (h *LedgerHandler) ClaimWelcomeBonus(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	entry, err := h.ledger.ClaimWelcomeBonus(r.Context(), user)
	if err != nil {
		fail(w, r, h.logger, "welcome bonus", err)
		return
	}
	writeJSON(w, http.StatusOK, entryResponse(entry))
}
