package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"trading-mcp/internal/handler/http/respond"

	"github.com/golang-jwt/jwt/v5"
)

type ctxKey string

const ctxSubject ctxKey = "subject"

// SubjectFromContext returns the authenticated subject claim, or "" when the
// request was not authenticated (auth disabled).
func SubjectFromContext(ctx context.Context) string {
	if sub, ok := ctx.Value(ctxSubject).(string); ok {
		return sub
	}
	return ""
}

// BearerAuth returns middleware that requires a valid JWT bearer token on
// every request. Tokens are verified with HS256 against the shared secret;
// the subject claim is stored in the request context for downstream logging.
//
// The health and metrics endpoints live on the sidecar listener, so this
// middleware protects every path it is mounted on.
func BearerAuth(secret []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sub, err := validateJWT(r.Header.Get("Authorization"), secret)
			if err != nil {
				respond.SafeError(w, http.StatusUnauthorized, fmt.Errorf("unauthorized: %w", err))
				return
			}
			ctx := context.WithValue(r.Context(), ctxSubject, sub)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func validateJWT(authz string, secret []byte) (string, error) {
	const prefix = "Bearer "
	if !strings.HasPrefix(authz, prefix) {
		return "", errors.New("missing bearer token")
	}
	tokenString := strings.TrimPrefix(authz, prefix)
	tok, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, errors.New("unexpected signing method")
		}
		return secret, nil
	})
	if err != nil || !tok.Valid {
		return "", errors.New("invalid token")
	}
	claims, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return "", errors.New("invalid claims")
	}
	if exp, ok := claims["exp"].(float64); !ok || int64(exp) < time.Now().Unix() {
		return "", errors.New("token expired")
	}
	sub, ok := claims["sub"].(string)
	if !ok {
		return "", errors.New("invalid sub claim")
	}
	return sub, nil
}
