package handlers

import (
	"net/http"
	"strconv"

	"github.com/intentionbank/backend/internal/services"
	"go.uber.org/zap"
)

type StatementHandler struct {
	accounts   *services.AccountService
	statements *services.StatementService
	tier       *services.TierService
	logger     *zap.Logger
}

func NewStatementHandler(accounts *services.AccountService, statements *services.StatementService, tier *services.TierService, logger *zap.Logger) *StatementHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StatementHandler{accounts: accounts, statements: statements, tier: tier, logger: logger}
}

// Get builds a monthly statement
// @Summary Monthly statement
// @Description Premium only. Covers every account of the caller unless account_id is given.
// @Tags Statements
// @Produce json
// @Security BearerAuth
// @Param month query string true "Month (YYYY-MM)"
// @Param account_id query int false "Account ID"
// @Success 200 {object} services.Statement
// @Failure 400 {object} services.ErrorResponse
// @Failure 402 {object} services.ErrorResponse
// @Failure 403 {object} services.ErrorResponse
// @Failure 404 {object} services.ErrorResponse
// @Router /statements [get]
func (h *StatementHandler) Get(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	if err := h.tier.RequirePremium(user, "Statements"); err != nil {
		services.WriteError(w, err)
		return
	}

	year, month, err := services.ParseMonth(r.URL.Query().Get("month"))
	if err != nil {
		services.WriteError(w, err)
		return
	}

	var accountIDs []int64
	if v := r.URL.Query().Get("account_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil || id <= 0 {
			services.SendErrorResponse(w, "Invalid account_id", http.StatusBadRequest, nil)
			return
		}
		if _, err := h.accounts.Authorized(r.Context(), user, id); err != nil {
			fail(w, r, h.logger, "statement", err)
			return
		}
		accountIDs = []int64{id}
	} else {
		accounts, err := h.accounts.ListForOwner(r.Context(), user.ID)
		if err != nil {
			fail(w, r, h.logger, "statement", err)
			return
		}
		for _, a := range accounts {
			accountIDs = append(accountIDs, a.ID)
		}
	}

	statement, err := h.statements.Generate(r.Context(), accountIDs, year, month, "")
	if err != nil {
		fail(w, r, h.logger, "statement", err)
		return
	}
	writeJSON(w, http.StatusOK, statement)
}
