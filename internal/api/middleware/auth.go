package middleware

import (
	"context"
	"errors"
	"net/http"
	"todo_collab/internal/common"
	"todo_collab/internal/common/security"

	"github.com/charmbracelet/log"
	"github.com/go-chi/jwtauth/v5"
)

// IdentityResolver checks verified claims against current state (revoked
// tokens, deleted users, changed roles).
type IdentityResolver interface {
	ResolveIdentity(ctx context.Context, claimed security.Identity) (security.Identity, error)
}

// Authenticator requires a verified token and stores the resolved identity
// in the request context. It must run after jwtauth.Verifier.
func Authenticator(resolver IdentityResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, claims, err := jwtauth.FromContext(r.Context())
			if err != nil || token == nil {
				msg := "Authorization token required"
				if err != nil && !errors.Is(err, jwtauth.ErrNoTokenFound) {
					msg = "Invalid token: " + err.Error()
				}
				common.RespondWithError(w, http.StatusUnauthorized, msg)
				return
			}

			userID, err := security.GetUserIDFromClaims(claims)
			if err != nil {
				common.RespondWithError(w, http.StatusUnauthorized, "Invalid token claims: "+err.Error())
				return
			}
			role, err := security.GetUserRoleFromClaims(claims)
			if err != nil {
				common.RespondWithError(w, http.StatusUnauthorized, "Invalid token claims: "+err.Error())
				return
			}
			tokenID, err := security.GetTokenIDFromClaims(claims)
			if err != nil {
				common.RespondWithError(w, http.StatusUnauthorized, "Invalid token claims: "+err.Error())
				return
			}
			expiresAt, err := security.GetExpiryFromClaims(claims)
			if err != nil {
				common.RespondWithError(w, http.StatusUnauthorized, "Invalid token claims: "+err.Error())
				return
			}

			ident, err := resolver.ResolveIdentity(r.Context(), security.Identity{
				UserID:    userID,
				Role:      role,
				TokenID:   tokenID,
				ExpiresAt: expiresAt,
			})
			if err != nil {
				if !errors.Is(err, common.ErrUnauthorized) {
					log.Error("identity resolution failed", "user_id", userID, "err", err)
				}
				common.RespondWithErr(w, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(security.WithIdentity(r.Context(), ident)))
		})
	}
}

func AdminOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ident, ok := security.IdentityFromContext(r.Context())
		if !ok {
			common.RespondWithError(w, http.StatusUnauthorized, "Authentication required")
			return
		}
		if !ident.IsAdmin() {
			common.RespondWithError(w, http.StatusForbidden, "Admin access required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// GetIdentityFromContext returns the identity stored by Authenticator.
func GetIdentityFromContext(ctx context.Context) (security.Identity, bool) {
	return security.IdentityFromContext(ctx)
}
