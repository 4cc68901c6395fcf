// Package middleware holds the HTTP middleware chain: request ID, request
// time, and bearer-token authentication. Auth resolves the actor and tenant
// from token claims into the request context; inactive or deleted tenants are
// refused here so their users never reach tenant-owned data.
package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"fleetcomply/internal/platform/jwt"
	tenant "fleetcomply/internal/tenant/models"
	id "fleetcomply/pkg/domain"
	dErrors "fleetcomply/pkg/domain-errors"
	"fleetcomply/pkg/platform/httputil"
	"fleetcomply/pkg/requestcontext"
)

// TokenValidator verifies a bearer token and returns its claims.
type TokenValidator interface {
	ValidateToken(tokenString string) (*jwt.Claims, error)
}

// TenantResolver loads the tenant named in the token so the gate can refuse
// inactive ones.
type TenantResolver interface {
	FindTenant(ctx context.Context, tenantID id.TenantID) (*tenant.Tenant, error)
}

// RequireAuth authenticates the request from its Authorization header. On
// success the actor ID, and for tenant-bound tokens the tenant ID, are set on
// the request context. Tokens naming an inactive tenant are rejected.
func RequireAuth(validator TokenValidator, tenants TenantResolver, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			const bearerPrefix = "Bearer "
			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), bearerPrefix)
			if !ok {
				logger.WarnContext(ctx, "unauthorized access - missing token",
					"request_id", requestcontext.RequestID(ctx))
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "missing or invalid Authorization header"))
				return
			}

			claims, err := validator.ValidateToken(token)
			if err != nil {
				logger.WarnContext(ctx, "unauthorized access - invalid token",
					"error", err,
					"request_id", requestcontext.RequestID(ctx))
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "invalid or expired token"))
				return
			}

			actorID, err := id.ParseUserID(claims.ActorID)
			if err != nil {
				logger.WarnContext(ctx, "unauthorized access - malformed actor claim",
					"request_id", requestcontext.RequestID(ctx))
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "invalid token claims"))
				return
			}
			ctx = requestcontext.WithActorID(ctx, actorID)

			if claims.TenantID != "" {
				tenantID, err := id.ParseTenantID(claims.TenantID)
				if err != nil {
					logger.WarnContext(ctx, "unauthorized access - malformed tenant claim",
						"request_id", requestcontext.RequestID(ctx))
					httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "invalid token claims"))
					return
				}
				ten, err := tenants.FindTenant(ctx, tenantID)
				if err != nil {
					logger.WarnContext(ctx, "unauthorized access - unknown tenant",
						"tenant_id", tenantID,
						"error", err,
						"request_id", requestcontext.RequestID(ctx))
					httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "invalid token claims"))
					return
				}
				if !ten.IsActive() {
					logger.WarnContext(ctx, "forbidden access - inactive tenant",
						"tenant_id", tenantID,
						"request_id", requestcontext.RequestID(ctx))
					httputil.WriteError(w, dErrors.New(dErrors.CodeForbidden, "tenant is not active"))
					return
				}
				ctx = requestcontext.WithTenantID(ctx, tenantID)
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
