package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type entryRequest struct {
	AccountID int64  `validate:"required,gt=0"`
	Direction string `validate:"required,oneof=credit debit"`
	Currency  string `validate:"required,len=3"`
}

func TestValidationHelper_ValidateStruct(t *testing.T) {
	vh := NewValidationHelper()

	t.Run("valid struct", func(t *testing.T) {
		err := vh.ValidateStruct(&entryRequest{AccountID: 1, Direction: "credit", Currency: "USD"})
		assert.NoError(t, err)
	})

	t.Run("invalid struct", func(t *testing.T) {
		err := vh.ValidateStruct(&entryRequest{Direction: "sideways", Currency: "DOLLARS"})
		require.Error(t, err)

		validationErrors, ok := err.(validator.ValidationErrors)
		require.True(t, ok)
		assert.Len(t, validationErrors, 3)
	})

	t.Run("invalid direction", func(t *testing.T) {
		err := vh.ValidateStruct(&entryRequest{AccountID: 1, Direction: "up", Currency: "USD"})
		require.Error(t, err)

		validationErrors, ok := err.(validator.ValidationErrors)
		require.True(t, ok)
		require.Len(t, validationErrors, 1)
		assert.Equal(t, "Direction", validationErrors[0].Field())
		assert.Equal(t, "oneof", validationErrors[0].Tag())
	})
}

func TestSendErrorResponse(t *testing.T) {
	t.Run("without validation errors", func(t *testing.T) {
		w := httptest.NewRecorder()

		SendErrorResponse(w, "Something went wrong", http.StatusInternalServerError, nil)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

		var response ErrorResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.Equal(t, "Something went wrong", response.Error)
		assert.Nil(t, response.Details)
	})

	t.Run("with validation errors", func(t *testing.T) {
		validationErr := NewValidationHelper().ValidateStruct(&entryRequest{})
		require.Error(t, validationErr)

		w := httptest.NewRecorder()
		SendErrorResponse(w, "Validation failed", http.StatusBadRequest, validationErr)

		var response ErrorResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.Equal(t, "Validation failed", response.Error)
		assert.Contains(t, response.Details, "AccountID")
		assert.Contains(t, response.Details, "Direction")
		assert.Contains(t, response.Details, "Currency")
	})

	t.Run("non-validator error carries no details", func(t *testing.T) {
		w := httptest.NewRecorder()
		SendErrorResponse(w, "Invalid request", http.StatusBadRequest, errors.New("plain"))

		var response ErrorResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.Nil(t, response.Details)
	})
}

func TestStatusFor(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{invalidf("amount must be greater than zero"), http.StatusBadRequest},
		{fmt.Errorf("account 4: %w", ErrNotFound), http.StatusNotFound},
		{ErrForbidden, http.StatusForbidden},
		{ErrPaymentRequired, http.StatusPaymentRequired},
		{ErrConflict, http.StatusConflict},
		{ErrUnauthenticated, http.StatusUnauthorized},
		{errors.New("connection reset"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, StatusFor(tc.err), tc.err.Error())
	}
}

func TestWriteError(t *testing.T) {
	t.Run("validation error with fields", func(t *testing.T) {
		err := validationFailed(NewValidationHelper().ValidateStruct(&entryRequest{AccountID: 1, Direction: "x", Currency: "USD"}))
		w := httptest.NewRecorder()
		WriteError(w, err)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		var response ErrorResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.Equal(t, "Validation failed", response.Error)
		assert.Contains(t, response.Details, "Direction")
	})

	t.Run("internal errors are not exposed", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteError(w, errors.New("pq: relation \"ledger_entries\" does not exist"))

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		var response ErrorResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.Equal(t, "Internal server error", response.Error)
	})

	t.Run("not found keeps message", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteError(w, fmt.Errorf("account 9: %w", ErrNotFound))

		assert.Equal(t, http.StatusNotFound, w.Code)
		var response ErrorResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.Equal(t, "account 9: not found", response.Error)
	})
}

func TestServicesShareValidator(t *testing.T) {
	f := newFixture(t)

	assert.Same(t, inputValidator, f.accounts.validator)
	assert.Same(t, inputValidator, f.ledger.validator)
	assert.Same(t, inputValidator, f.scheduled.validator)
	assert.Same(t, inputValidator, f.txns.validator)
}
