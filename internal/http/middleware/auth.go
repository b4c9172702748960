package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/malabartours/bookings/internal/http/response"
	"github.com/malabartours/bookings/pkg/auth"
	"github.com/malabartours/bookings/pkg/logger"
)

type ctxKey string

const CtxClaims ctxKey = "claims"

// RequireJWT authenticates the bearer token and, when roles are given,
// authorizes against them. super_admin passes every role check.
func RequireJWT(secret string, roles ...string) func(http.Handler) http.Handler {
	allowed := make(map[string]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authz := r.Header.Get("Authorization")
			if !strings.HasPrefix(authz, "Bearer ") {
				response.Unauthorized(w, "invalid authorization header")
				return
			}
			claims, err := auth.Parse(strings.TrimPrefix(authz, "Bearer "), secret)
			if err != nil {
				response.WriteError(w, http.StatusUnauthorized, "invalid authorization token", response.CodeInvalidToken)
				return
			}
			if len(allowed) > 0 && !allowed[claims.Role] && claims.Role != "super_admin" {
				response.Forbidden(w, "insufficient role")
				return
			}
			ctx := context.WithValue(r.Context(), CtxClaims, claims)
			ctx = context.WithValue(ctx, logger.ActorIDKey, claims.Sub)
			ctx = context.WithValue(ctx, logger.RoleKey, claims.Role)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// OptionalJWT parses the bearer token into request claims when one is sent,
// and lets anonymous requests through untouched. A token that is present but
// invalid is still a 401; silently downgrading it to anonymous would let a
// stale token fall back to guest semantics.
func OptionalJWT(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authz := r.Header.Get("Authorization")
			if authz == "" {
				next.ServeHTTP(w, r)
				return
			}
			if !strings.HasPrefix(authz, "Bearer ") {
				response.Unauthorized(w, "invalid authorization header")
				return
			}
			claims, err := auth.Parse(strings.TrimPrefix(authz, "Bearer "), secret)
			if err != nil {
				response.WriteError(w, http.StatusUnauthorized, "invalid authorization token", response.CodeInvalidToken)
				return
			}
			ctx := context.WithValue(r.Context(), CtxClaims, claims)
			ctx = context.WithValue(ctx, logger.ActorIDKey, claims.Sub)
			ctx = context.WithValue(ctx, logger.RoleKey, claims.Role)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func Claims(r *http.Request) *auth.Claims {
	v := r.Context().Value(CtxClaims)
	if v == nil {
		return nil
	}
	return v.(*auth.Claims)
}
