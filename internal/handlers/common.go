package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/intentionbank/backend/internal/logger"
	"github.com/intentionbank/backend/internal/middleware"
	"github.com/intentionbank/backend/internal/models"
	"github.com/intentionbank/backend/internal/services"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const maxBodyBytes = 1_048_576

// decodeJSON reads exactly one JSON object from the body into dst. It writes
// the error response itself and reports whether the handler may continue.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		services.SendErrorResponse(w, "Invalid request body", http.StatusBadRequest, nil)
		return false
	}

	if err := dec.Decode(&struct{}{}); err != io.EOF {
		services.SendErrorResponse(w, "Request body must only contain a single JSON object", http.StatusBadRequest, nil)
		return false
	}
	return true
}

// fail renders err. Unclassified errors are logged since the client only sees
// a generic message.
func fail(w http.ResponseWriter, r *http.Request, fallback *zap.Logger, op string, err error) {
	if services.StatusFor(err) == http.StatusInternalServerError {
		logger.FromContext(r.Context(), fallback).Error(op+" failed", zap.Error(err))
	}
	services.WriteError(w, err)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// currentUser returns the caller or answers 401.
func currentUser(w http.ResponseWriter, r *http.Request) (*models.User, bool) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		services.WriteError(w, services.ErrUnauthenticated)
		return nil, false
	}
	return user, true
}

func idParam(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		services.SendErrorResponse(w, "Invalid "+name, http.StatusBadRequest, nil)
		return 0, false
	}
	return id, true
}

func queryInt(r *http.Request, name string) (int, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, errors.New(name + " must be a non-negative integer")
	}
	return n, nil
}

func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}

type EntryResponse struct {
	ID              int64              `json:"id"`
	AccountID       int64              `json:"account_id"`
	CreatedByUserID int64              `json:"created_by_user_id"`
	Direction       models.Direction   `json:"direction" example:"credit"`
	Amount          string             `json:"amount" example:"100.00"`
	Currency        string             `json:"currency" example:"USD"`
	EntryType       string             `json:"entry_type" example:"manual"`
	Status          models.EntryStatus `json:"status" example:"posted"`
	Reference       *string            `json:"reference,omitempty"`
	ExternalRef     *string            `json:"external_ref,omitempty"`
	IdempotencyKey  *string            `json:"idempotency_key,omitempty"`
	Memo            *string            `json:"memo,omitempty"`
	Metadata        models.Metadata    `json:"meta,omitempty" swaggertype:"object"`
	IsReversal      bool               `json:"is_reversal"`
	ReversedEntryID *int64             `json:"reversed_entry_id,omitempty"`
	CreatedAt       time.Time          `json:"created_at"`
}

func entryResponse(e *models.LedgerEntry) EntryResponse {
	return EntryResponse{
		ID:              e.ID,
		AccountID:       e.AccountID,
		CreatedByUserID: e.CreatedByUserID,
		Direction:       e.Direction,
		Amount:          money(e.Amount),
		Currency:        e.Currency,
		EntryType:       e.EntryType,
		Status:          e.Status,
		Reference:       e.Reference,
		ExternalRef:     e.ExternalRef,
		IdempotencyKey:  e.IdempotencyKey,
		Memo:            e.Memo,
		Metadata:        e.Metadata,
		IsReversal:      e.IsReversal,
		ReversedEntryID: e.ReversedEntryID,
		CreatedAt:       e.CreatedAt,
	}
}

func entryResponses(entries []*models.LedgerEntry) []EntryResponse {
	out := make([]EntryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, entryResponse(e))
	}
	return out
}
