package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-redis/redismock/v8"
	"github.com/golang-jwt/jwt/v5"
	"github.com/intentionbank/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func signToken(t *testing.T, method jwt.SigningMethod, secret string, claims Claims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(method, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func validClaims() Claims {
	return Claims{
		UserID:  42,
		Email:   "owner@example.com",
		Role:    "admin",
		Premium: true,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
}

// protected echoes the authenticated identity.
func protected(t *testing.T, seen **models.User) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := UserFromContext(r.Context())
		require.True(t, ok)
		*seen = user
		w.WriteHeader(http.StatusNoContent)
	})
}

func serve(h http.Handler, authHeader string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/accounts", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestAuthenticator_ValidToken(t *testing.T) {
	var seen *models.User
	auth := NewAuthenticator(testSecret, nil, nil)
	token := signToken(t, jwt.SigningMethodHS256, testSecret, validClaims())

	rec := serve(auth.Middleware(protected(t, &seen)), "Bearer "+token)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	require.NotNil(t, seen)
	assert.Equal(t, int64(42), seen.ID)
	assert.Equal(t, models.RoleAdmin, seen.Role)
	assert.True(t, seen.IsPremium)
	assert.Equal(t, "owner@example.com", seen.Email)
}

func TestAuthenticator_Rejects(t *testing.T) {
	expired := validClaims()
	expired.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))
	noUser := validClaims()
	noUser.UserID = 0

	tests := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"wrong scheme", "Basic abc"},
		{"extra parts", "Bearer a b"},
		{"garbage", "Bearer not-a-jwt"},
		{"wrong secret", "Bearer " + signToken(t, jwt.SigningMethodHS256, "other", validClaims())},
		{"unexpected alg", "Bearer " + signToken(t, jwt.SigningMethodHS384, testSecret, validClaims())},
		{"expired", "Bearer " + signToken(t, jwt.SigningMethodHS256, testSecret, expired)},
		{"no user id", "Bearer " + signToken(t, jwt.SigningMethodHS256, testSecret, noUser)},
	}

	auth := NewAuthenticator(testSecret, nil, nil)
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run")
	})
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(auth.Middleware(next), tt.header)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Contains(t, rec.Body.String(), `"error"`)
		})
	}
}

func TestAuthenticator_Revocation(t *testing.T) {
	token := signToken(t, jwt.SigningMethodHS256, testSecret, validClaims())
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	t.Run("revoked", func(t *testing.T) {
		db, mock := redismock.NewClientMock()
		mock.ExpectExists(RevokedKeyPrefix + token).SetVal(1)

		rec := serve(NewAuthenticator(testSecret, db, nil).Middleware(next), "Bearer "+token)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("active", func(t *testing.T) {
		db, mock := redismock.NewClientMock()
		mock.ExpectExists(RevokedKeyPrefix + token).SetVal(0)

		rec := serve(NewAuthenticator(testSecret, db, nil).Middleware(next), "Bearer "+token)

		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("redis unavailable", func(t *testing.T) {
		db, mock := redismock.NewClientMock()
		mock.ExpectExists(RevokedKeyPrefix + token).SetErr(errors.New("connection refused"))

		rec := serve(NewAuthenticator(testSecret, db, nil).Middleware(next), "Bearer "+token)

		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})
}

func TestUserFromContext(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	_, ok := UserFromContext(req.Context())
	assert.False(t, ok)

	ctx := WithUser(req.Context(), &models.User{ID: 7})
	user, ok := UserFromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, int64(7), user.ID)

	_, ok = UserFromContext(WithUser(req.Context(), nil))
	assert.False(t, ok)
}
