package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v4"
)

type contextKey string

const userContextKey contextKey = "user"

const (
	jwtClaimUserID  = "user_id"
	jwtClaimPurpose = "purpose"
)

// Authenticate returns middleware that accepts HS256 access tokens from the
// Authorization header and stores their claims in the request context.
// Tokens mailed for email confirmation or password reset are refused.
func Authenticate(secret string) func(http.Handler) http.Handler {
	key := []byte(secret)
	parser := jwt.Parser{ValidMethods: []string{jwt.SigningMethodHS256.Alg()}}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			tokenString, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || strings.TrimSpace(tokenString) == "" {
				unauthorized(w, "missing bearer token")
				return
			}

			claims := jwt.MapClaims{}
			token, err := parser.ParseWithClaims(strings.TrimSpace(tokenString), claims, func(t *jwt.Token) (interface{}, error) {
				return key, nil
			})
			if err != nil || !token.Valid {
				unauthorized(w, "invalid or expired token")
				return
			}
			if _, scoped := claims[jwtClaimPurpose]; scoped {
				unauthorized(w, "token cannot be used for API access")
				return
			}
			if _, err := userIDFromClaims(claims); err != nil {
				unauthorized(w, err.Error())
				return
			}

			ctx := context.WithValue(r.Context(), userContextKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetUserIDFromContext returns the id of the authenticated user.
func GetUserIDFromContext(ctx context.Context) (int, error) {
	claims, ok := ctx.Value(userContextKey).(jwt.MapClaims)
	if !ok {
		return 0, errors.New("user claims not found in context")
	}
	return userIDFromClaims(claims)
}

// WithUserID returns a context carrying userID as if it had been
// authenticated. Used by handler tests.
func WithUserID(ctx context.Context, userID int) context.Context {
	return context.WithValue(ctx, userContextKey, jwt.MapClaims{jwtClaimUserID: float64(userID)})
}

func userIDFromClaims(claims jwt.MapClaims) (int, error) {
	raw, ok := claims[jwtClaimUserID]
	if !ok {
		return 0, fmt.Errorf("missing '%s' claim in token", jwtClaimUserID)
	}
	f, ok := raw.(float64)
	if !ok {
		return 0, fmt.Errorf("invalid type for '%s' claim: %T", jwtClaimUserID, raw)
	}
	if f != float64(int(f)) || f <= 0 {
		return 0, fmt.Errorf("invalid user ID value in '%s' claim", jwtClaimUserID)
	}
	return int(f), nil
}

func unauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
