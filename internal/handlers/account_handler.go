package handlers

import (
	"net/http"

	"github.com/intentionbank/backend/internal/services"
	"go.uber.org/zap"
)

type AccountHandler struct {
	accounts *services.AccountService
	logger   *zap.Logger
}

func NewAccountHandler(accounts *services.AccountService, logger *zap.Logger) *AccountHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AccountHandler{accounts: accounts, logger: logger}
}

type UpdateAccountRequest struct {
	Name string `json:"name" example:"Rainy Day"`
}

// List returns the caller's accounts
// @Summary List accounts
// @Tags Accounts
// @Produce json
// @Security BearerAuth
// @Success 200 {array} models.Account
// @Failure 401 {object} services.ErrorResponse
// @Router /accounts [get]
func (h *AccountHandler) List(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	accounts, err := h.accounts.ListForOwner(r.Context(), user.ID)
	if err != nil {
		fail(w, r, h.logger, "list accounts", err)
		return
	}
	writeJSON(w, http.StatusOK, accounts)
}

// Create opens an account for the caller
// @Summary Create account
// @Description A parent account must be a trust the caller may act for
// @Tags Accounts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body services.CreateAccountInput true "Account"
// @Success 201 {object} models.Account
// @Failure 400 {object} services.ErrorResponse
// @Failure 403 {object} services.ErrorResponse
// @Failure 404 {object} services.ErrorResponse
// @Router /accounts [post]
func (h *AccountHandler) Create(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req services.CreateAccountInput
	if !decodeJSON(w, r, &req) {
		return
	}

	account, err := h.accounts.Create(r.Context(), user, req)
	if err != nil {
		fail(w, r, h.logger, "create account", err)
		return
	}
	writeJSON(w, http.StatusCreated, account)
}

// Get returns one account
// @Summary Get account
// @Tags Accounts
// @Produce json
// @Security BearerAuth
// @Param id path int true "Account ID"
// @Success 200 {object} models.Account
// @Failure 403 {object} services.ErrorResponse
// @Failure 404 {object} services.ErrorResponse
// @Router /accounts/{id} [get]
func (h *AccountHandler) Get(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}

	account, err := h.accounts.Authorized(r.Context(), user, id)
	if err != nil {
		fail(w, r, h.logger, "get account", err)
		return
	}
	writeJSON(w, http.StatusOK, account)
}

// Update renames an account
// @Summary Rename account
// @Tags Accounts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Account ID"
// @Param request body UpdateAccountRequest true "New name"
// @Success 200 {object} models.Account
// @Failure 400 {object} services.ErrorResponse
// @Failure 403 {object} services.ErrorResponse
// @Failure 404 {object} services.ErrorResponse
// @Router /accounts/{id} [patch]
func (h *AccountHandler) Update(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}

	var req UpdateAccountRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	account, err := h.accounts.Authorized(r.Context(), user, id)
	if err != nil {
		fail(w, r, h.logger, "rename account", err)
		return
	}
	account, err = h.accounts.Rename(r.Context(), account, req.Name)
	if err != nil {
		fail(w, r, h.logger, "rename account", err)
		return
	}
	writeJSON(w, http.StatusOK, account)
}

// Delete removes an account, its children and everything booked on them
// @Summary Delete account
// @Tags Accounts
// @Produce json
// @Security BearerAuth
// @Param id path int true "Account ID"
// @Success 200 {object} services.DeleteResult
// @Failure 403 {object} services.ErrorResponse
// @Failure 404 {object} services.ErrorResponse
// @Router /accounts/{id} [delete]
func (h *AccountHandler) Delete(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}

	account, err := h.accounts.Authorized(r.Context(), user, id)
	if err != nil {
		fail(w, r, h.logger, "delete account", err)
		return
	}
	result, err := h.accounts.Delete(r.Context(), user, account)
	if err != nil {
		fail(w, r, h.logger, "delete account", err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// Summary counts the caller's accounts and ledger entries
// @Summary Console summary
// @Tags Accounts
// @Produce json
// @Security BearerAuth
// @Success 200 {object} services.Summary
// @Router /summary [get]
func (h *AccountHandler) Summary(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	summary, err := h.accounts.Summary(r.Context(), user.ID)
	if err != nil {
		fail(w, r, h.logger, "summary", err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}
