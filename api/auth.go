/*
auth.go - JWT bearer authentication middleware

PURPOSE:
  Verifies the Authorization header and hands the rest of the stack an
  authenticated caller as a (userId, role) pair plus the email claim used
  by the first-login provisioning path. The core never sees credentials;
  token issuance belongs to the identity provider and is not done here.

CLAIMS:
  uid   - stable user id (empty on a first login, before provisioning)
  email - login email
  role  - USER | APPROVER | ADMIN
*/
package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/amiltenov/DigiLeave/leave"
)

// Identity is the authenticated caller.
type Identity struct {
	UserID string
	Email  string
	Role   leave.Role
}

type contextKey struct{}

var identityKey contextKey

// IdentityFrom returns the caller identity stored by the middleware.
func IdentityFrom(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey).(Identity)
	return id, ok
}

// WithIdentity returns a context carrying the identity. Exported for
// handler tests that bypass the middleware.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// Authenticator verifies bearer tokens with the given HMAC secret and
// rejects requests without a valid one.
func Authenticator(secret []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
			if raw == "" || raw == r.Header.Get("Authorization") {
				writeError(w, http.StatusUnauthorized, "missing bearer token", nil)
				return
			}

			claims := jwt.MapClaims{}
			_, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, jwt.ErrSignatureInvalid
				}
				return secret, nil
			})
			if err != nil {
				writeError(w, http.StatusUnauthorized, "invalid token", err)
				return
			}

			id := Identity{
				UserID: stringClaim(claims, "uid"),
				Email:  stringClaim(claims, "email"),
				Role:   leave.Role(stringClaim(claims, "role")),
			}
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
		})
	}
}

// RequireRole gates a route group to the given roles.
func RequireRole(roles ...leave.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := IdentityFrom(r.Context())
			if !ok {
				writeError(w, http.StatusUnauthorized, "not authenticated", nil)
				return
			}
			for _, role := range roles {
				if id.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}
			writeError(w, http.StatusForbidden, "forbidden", nil)
		})
	}
}

func stringClaim(claims jwt.MapClaims, key string) string {
	if v, ok := claims[key].(string); ok {
		return v
	}
	return ""
}
