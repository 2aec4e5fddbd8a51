package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/forgo/saga/onboarding/internal/model"
	"github.com/forgo/saga/onboarding/pkg/jwt"
)

// TokenValidator validates bearer access tokens
type TokenValidator interface {
	Validate(token string) (*jwt.Claims, error)
}

// ClaimsKey is the context key for JWT claims
const ClaimsKey contextKey = "claims"

// Auth rejects requests without a valid bearer token and stores the
// caller's claims in the request context
func Auth(validator TokenValidator) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				model.NewUnauthorizedError("missing or malformed authorization header").WriteJSON(w)
				return
			}

			claims, err := validator.Validate(token)
			if err != nil {
				switch {
				case errors.Is(err, jwt.ErrTokenExpired):
					model.NewUnauthorizedError("token expired").WriteJSON(w)
				case errors.Is(err, jwt.ErrInvalidSignature):
					model.NewUnauthorizedError("invalid token signature").WriteJSON(w)
				default:
					model.NewUnauthorizedError("invalid token").WriteJSON(w)
				}
				return
			}

			ctx := context.WithValue(r.Context(), UserIDKey, claims.UserID)
			ctx = context.WithValue(ctx, ClaimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return "", false
	}
	return strings.TrimSpace(token), true
}

// GetUserID extracts the authenticated user ID from context
func GetUserID(ctx context.Context) string {
	if id, ok := ctx.Value(UserIDKey).(string); ok {
		return id
	}
	return ""
}

// GetClaims extracts the JWT claims from context
func GetClaims(ctx context.Context) *jwt.Claims {
	if claims, ok := ctx.Value(ClaimsKey).(*jwt.Claims); ok {
		return claims
	}
	return nil
}
