package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/xraph/debtbook"
)

type ctxKey struct{}

// AccountFrom returns the account the request was authenticated as.
func AccountFrom(ctx context.Context) (string, bool) {
	account, ok := ctx.Value(ctxKey{}).(string)
	return account, ok && account != ""
}

// WithAccount returns a context carrying account.
func WithAccount(ctx context.Context, account string) context.Context {
	return context.WithValue(ctx, ctxKey{}, account)
}

// AuthMiddleware verifies an HS256 bearer token and stores its subject
// claim as the request's account.
func AuthMiddleware(secret []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			account, err := authenticate(r, secret)
			if err != nil {
				writeError(w, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithAccount(r.Context(), account)))
		})
	}
}

func authenticate(r *http.Request, secret []byte) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", fmt.Errorf("%w: authorization header is required", debtbook.ErrUnauthorized)
	}
	raw, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || raw == "" {
		return "", fmt.Errorf("%w: expected a bearer token", debtbook.ErrUnauthorized)
	}

	token, err := jwt.Parse(raw, func(*jwt.Token) (any, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return "", fmt.Errorf("%w: %w", debtbook.ErrUnauthorized, err)
	}

	sub, err := token.Claims.GetSubject()
	if err != nil || strings.TrimSpace(sub) == "" {
		return "", fmt.Errorf("%w: token has no subject", debtbook.ErrUnauthorized)
	}
	return sub, nil
}

// IssueToken signs an HS256 token for account valid for ttl.
func IssueToken(secret []byte, account string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   account,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}
