package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-redis/redis/v8"
	"github.com/golang-jwt/jwt/v5"
	"github.com/intentionbank/backend/internal/models"
	"github.com/intentionbank/backend/internal/services"
	"go.uber.org/zap"
)

type contextKey string

const userContextKey contextKey = "user"

// RevokedKeyPrefix marks tokens the auth service has logged out.
const RevokedKeyPrefix = "blacklist:"

var errRevoked = errors.New("token revoked")

// Claims carried by access tokens.
type Claims struct {
	UserID  int64  `json:"user_id"`
	Email   string `json:"email,omitempty"`
	Role    string `json:"role"`
	Premium bool   `json:"premium"`
	jwt.RegisteredClaims
}

// Authenticator establishes the caller's identity from a bearer token.
// Ownership checks are left to services.Authorize.
type Authenticator struct {
	secret []byte
	rdb    *redis.Client
	logger *zap.Logger
}

// NewAuthenticator builds an Authenticator. rdb may be nil, in which case
// revocation is not checked.
func NewAuthenticator(secret string, rdb *redis.Client, logger *zap.Logger) *Authenticator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Authenticator{secret: []byte(secret), rdb: rdb, logger: logger}
}

func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Get token from Authorization header
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			services.SendErrorResponse(w, "Authorization header required", http.StatusUnauthorized, nil)
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			services.SendErrorResponse(w, "Invalid authorization header format", http.StatusUnauthorized, nil)
			return
		}

		user, err := a.Authenticate(r.Context(), parts[1])
		if err != nil {
			if errors.Is(err, errRevoked) || errors.Is(err, services.ErrUnauthenticated) {
				services.SendErrorResponse(w, "Invalid token", http.StatusUnauthorized, nil)
				return
			}
			a.logger.Error("token revocation check failed", zap.Error(err))
			services.SendErrorResponse(w, "Authentication unavailable", http.StatusServiceUnavailable, nil)
			return
		}

		next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
	})
}

// Authenticate validates tokenString and returns the identity it carries.
func (a *Authenticator) Authenticate(ctx context.Context, tokenString string) (*models.User, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return a.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg(), jwt.SigningMethodHS512.Alg()}))
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("parse token: %v: %w", err, services.ErrUnauthenticated)
	}
	if claims.UserID <= 0 {
		return nil, fmt.Errorf("token has no user_id: %w", services.ErrUnauthenticated)
	}

	if a.rdb != nil {
		n, err := a.rdb.Exists(ctx, RevokedKeyPrefix+tokenString).Result()
		if err != nil {
			return nil, fmt.Errorf("check revocation: %w", err)
		}
		if n > 0 {
			return nil, errRevoked
		}
	}

	return &models.User{
		ID:        claims.UserID,
		Email:     claims.Email,
		Role:      models.ParseRole(claims.Role),
		IsPremium: claims.Premium,
	}, nil
}

// WithUser stores user on ctx.
func WithUser(ctx context.Context, user *models.User) context.Context {
	return context.WithValue(ctx, userContextKey, user)
}

// UserFromContext returns the authenticated user, if any.
func UserFromContext(ctx context.Context) (*models.User, bool) {
	user, ok := ctx.Value(userContextKey).(*models.User)
	return user, ok && user != nil
}
