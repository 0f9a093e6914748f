package handlers

import (
	"net/http"
	"time"

	"github.com/intentionbank/backend/internal/models"
	"github.com/intentionbank/backend/internal/services"
	"go.uber.org/zap"
)

type TransactionHandler struct {
	accounts *services.AccountService
	txns     *services.TransactionService
	logger   *zap.Logger
}

func NewTransactionHandler(accounts *services.AccountService, txns *services.TransactionService, logger *zap.Logger) *TransactionHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TransactionHandler{accounts: accounts, txns: txns, logger: logger}
}

type TransactionResponse struct {
	ID          int64     `json:"id"`
	AccountID   int64     `json:"account_id"`
	Amount      string    `json:"amount" example:"-12.50"`
	Currency    string    `json:"currency" example:"USD"`
	Description *string   `json:"description,omitempty"`
	Category    *string   `json:"category,omitempty"`
	Status      string    `json:"status" example:"completed"`
	CreatedAt   time.Time `json:"created_at"`
}

func transactionResponse(t *models.Transaction) TransactionResponse {
	return TransactionResponse{
		ID:          t.ID,
		AccountID:   t.AccountID,
		Amount:      money(t.Amount),
		Currency:    t.Currency,
		Description: t.Description,
		Category:    t.Category,
		Status:      t.Status,
		CreatedAt:   t.CreatedAt,
	}
}

// Record appends an activity row to an account
// @Summary Record transaction
// @Description Activity log only. Balances come from the ledger.
// @Tags Transactions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Account ID"
// @Param request body services.RecordTransactionInput true "Transaction"
// @Success 201 {object} TransactionResponse
// @Failure 400 {object} services.ErrorResponse
// @Failure 403 {object} services.ErrorResponse
// @Failure 404 {object} services.ErrorResponse
// @Router /accounts/{id}/transactions [post]
func (h *TransactionHandler) Record(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}

	var req services.RecordTransactionInput
	if !decodeJSON(w, r, &req) {
		return
	}
	if _, err := h.accounts.Authorized(r.Context(), user, id); err != nil {
		fail(w, r, h.logger, "record transaction", err)
		return
	}

	txn, err := h.txns.Record(r.Context(), id, req)
	if err != nil {
		fail(w, r, h.logger, "record transaction", err)
		return
	}
	writeJSON(w, http.StatusCreated, transactionResponse(txn))
}

// List returns an account's activity rows, newest first
// @Summary List transactions
// @Tags Transactions
// @Produce json
// @Security BearerAuth
// @Param id path int true "Account ID"
// @Success 200 {array} TransactionResponse
// @Failure 403 {object} services.ErrorResponse
// @Failure 404 {object} services.ErrorResponse
// @Router /accounts/{id}/transactions [get]
func (h *TransactionHandler) List(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}

	if _, err := h.accounts.Authorized(r.Context(), user, id); err != nil {
		fail(w, r, h.logger, "list transactions", err)
		return
	}
	txns, err := h.txns.List(r.Context(), id)
	if err != nil {
		fail(w, r, h.logger, "list transactions", err)
		return
	}

	out := make([]TransactionResponse, 0, len(txns))
	for _, t := range txns {
		out = append(out, transactionResponse(t))
	}
	writeJSON(w, http.StatusOK, out)
}
