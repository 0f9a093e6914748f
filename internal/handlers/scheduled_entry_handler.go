package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/intentionbank/backend/internal/models"
	"github.com/intentionbank/backend/internal/services"
	"go.uber.org/zap"
)

type ScheduledEntryHandler struct {
	accounts  *services.AccountService
	scheduled *services.ScheduledEntryService
	logger    *zap.Logger
}

func NewScheduledEntryHandler(accounts *services.AccountService, scheduled *services.ScheduledEntryService, logger *zap.Logger) *ScheduledEntryHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ScheduledEntryHandler{accounts: accounts, scheduled: scheduled, logger: logger}
}

type ScheduledEntryResponse struct {
	ID              int64                  `json:"id"`
	AccountID       int64                  `json:"account_id"`
	CreatedByUserID int64                  `json:"created_by_user_id"`
	Direction       models.Direction       `json:"direction" example:"credit"`
	Amount          string                 `json:"amount" example:"50.00"`
	Currency        string                 `json:"currency" example:"USD"`
	EntryType       string                 `json:"entry_type" example:"scheduled"`
	Status          models.ScheduledStatus `json:"status" example:"pending"`
	Reference       *string                `json:"reference,omitempty"`
	Memo            *string                `json:"memo,omitempty"`
	ScheduledFor    time.Time              `json:"scheduled_for"`
	CreatedAt       time.Time              `json:"created_at"`
	PostedAt        *time.Time             `json:"posted_at,omitempty"`
	PostedEntryID   *int64                 `json:"posted_entry_id,omitempty"`
}

func scheduledResponse(s *models.ScheduledEntry) ScheduledEntryResponse {
	return ScheduledEntryResponse{
		ID:              s.ID,
		AccountID:       s.AccountID,
		CreatedByUserID: s.CreatedByUserID,
		Direction:       s.Direction,
		Amount:          money(s.Amount),
		Currency:        s.Currency,
		EntryType:       s.EntryType,
		Status:          s.Status,
		Reference:       s.Reference,
		Memo:            s.Memo,
		ScheduledFor:    s.ScheduledFor,
		CreatedAt:       s.CreatedAt,
		PostedAt:        s.PostedAt,
		PostedEntryID:   s.PostedEntryID,
	}
}

// Create schedules a future entry
// @Summary Create scheduled entry
// @Description Free-tier users may create a limited number per rolling window.
// @Tags Scheduled
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body services.CreateScheduledEntryInput true "Scheduled entry"
// @Success 200 {object} ScheduledEntryResponse
// @Failure 400 {object} services.ErrorResponse
// @Failure 402 {object} services.ErrorResponse
// @Failure 403 {object} services.ErrorResponse
// @Failure 404 {object} services.ErrorResponse
// @Router /scheduled-entries [post]
func (h *ScheduledEntryHandler) Create(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req services.CreateScheduledEntryInput
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := authorizeAccounts(r.Context(), h.accounts, user, req.AccountID); err != nil {
		fail(w, r, h.logger, "schedule entry", err)
		return
	}

	entry, err := h.scheduled.Create(r.Context(), user, req)
	if err != nil {
		fail(w, r, h.logger, "schedule entry", err)
		return
	}
	writeJSON(w, http.StatusOK, scheduledResponse(entry))
}

// List returns an account's scheduled entries
// @Summary List scheduled entries
// @Tags Scheduled
// @Produce json
// @Security BearerAuth
// @Param id path int true "Account ID"
// @Param include_posted query bool false "Include already posted entries"
// @Success 200 {array} ScheduledEntryResponse
// @Failure 403 {object} services.ErrorResponse
// @Failure 404 {object} services.ErrorResponse
// @Router /accounts/{id}/scheduled-entries [get]
func (h *ScheduledEntryHandler) List(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	includePosted := false
	if v := r.URL.Query().Get("include_posted"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			services.SendErrorResponse(w, "include_posted must be a boolean", http.StatusBadRequest, nil)
			return
		}
		includePosted = b
	}

	if _, err := h.accounts.Authorized(r.Context(), user, id); err != nil {
		fail(w, r, h.logger, "list scheduled entries", err)
		return
	}
	entries, err := h.scheduled.ListForAccount(r.Context(), id, includePosted)
	if err != nil {
		fail(w, r, h.logger, "list scheduled entries", err)
		return
	}

	out := make([]ScheduledEntryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, scheduledResponse(e))
	}
	writeJSON(w, http.StatusOK, out)
}
