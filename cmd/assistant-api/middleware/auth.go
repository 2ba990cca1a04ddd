// Package middleware provides HTTP middleware for the assistant API.
package middleware

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/spherical-ai/spherical/libs/shop-assistant/internal/orders"
)

type contextKey string

const (
	// UserIDKey is the context key for the caller's user ID.
	UserIDKey contextKey = "user_id"
	// RolesKey is the context key for the caller's roles.
	RolesKey contextKey = "roles"
)

// Role is a caller role.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleCustomer Role = "customer"
)

// Token maps a static bearer token to an identity.
type Token struct {
	Token  string
	UserID string
	Roles  []Role
}

// AuthConfig holds authentication configuration.
type AuthConfig struct {
	// Enabled switches from development headers to bearer tokens.
	Enabled bool
	Tokens  []Token
}

// Auth identifies the caller. It never rejects a request that carries no
// credentials: anonymous callers reach the assistant with an empty identity.
//
// With auth disabled the identity comes from X-User-ID and X-User-Roles
// (comma separated). With auth enabled it comes from a configured bearer
// token, and an unknown token is rejected.
func Auth(cfg AuthConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !cfg.Enabled {
				ctx := withIdentity(r.Context(), r.Header.Get("X-User-ID"), parseRoles(r.Header.Get("X-User-Roles")))
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}

			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				next.ServeHTTP(w, r)
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
				writeJSONError(w, http.StatusUnauthorized, "invalid authorization header format")
				return
			}

			tok, ok := lookupToken(cfg.Tokens, strings.TrimSpace(parts[1]))
			if !ok {
				writeJSONError(w, http.StatusUnauthorized, "invalid token")
				return
			}

			ctx := withIdentity(r.Context(), tok.UserID, tok.Roles)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func lookupToken(tokens []Token, presented string) (Token, bool) {
	for _, t := range tokens {
		if t.Token != "" && subtle.ConstantTimeCompare([]byte(t.Token), []byte(presented)) == 1 {
			return t, true
		}
	}
	return Token{}, false
}

func withIdentity(ctx context.Context, userID string, roles []Role) context.Context {
	userID = strings.TrimSpace(userID)
	if userID != "" {
		ctx = context.WithValue(ctx, UserIDKey, userID)
	}
	if len(roles) > 0 {
		ctx = context.WithValue(ctx, RolesKey, roles)
	}
	return ctx
}

func parseRoles(header string) []Role {
	var roles []Role
	for _, part := range strings.Split(header, ",") {
		if p := strings.ToLower(strings.TrimSpace(part)); p != "" {
			roles = append(roles, Role(p))
		}
	}
	return roles
}

// UserFromContext extracts the user ID from context.
func UserFromContext(ctx context.Context) string {
	if v := ctx.Value(UserIDKey); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// RolesFromContext extracts the roles from context.
func RolesFromContext(ctx context.Context) []Role {
	if v := ctx.Value(RolesKey); v != nil {
		if roles, ok := v.([]Role); ok {
			return roles
		}
	}
	return nil
}

// HasRole checks if the context has a specific role.
func HasRole(ctx context.Context, role Role) bool {
	for _, r := range RolesFromContext(ctx) {
		if r == role {
			return true
		}
	}
	return false
}

// CallerFromContext returns the caller the order rules are evaluated for.
func CallerFromContext(ctx context.Context) orders.Caller {
	return orders.Caller{
		UserID:  UserFromContext(ctx),
		IsAdmin: HasRole(ctx, RoleAdmin),
	}
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(`{"error":"` + message + `"}`))
}
