// Package requestcontext provides HTTP-independent accessors for request-scoped values.
//
// The current tenant and actor travel in context.Context rather than any
// process-global slot. A pooled worker goroutine can never observe another
// request's tenant because the context dies with the request; there is
// nothing to clear and nothing to leak.
//
// Usage in services (read values):
//
//	tenantID := requestcontext.TenantID(ctx)
//	actorID := requestcontext.ActorID(ctx)
//	now := requestcontext.Now(ctx)
//
// Usage in middleware (set values):
//
//	ctx = requestcontext.WithTenantID(ctx, tenantID)
//	ctx = requestcontext.WithActorID(ctx, actorID)
//
// Usage in tests (inject values):
//
//	ctx = requestcontext.WithTime(ctx, fixedTime)
//	ctx = requestcontext.WithTenantID(ctx, tenantA)
package requestcontext

import (
	"context"
	"time"

	id "fleetcomply/pkg/domain"
)

// Context key types (unexported for encapsulation).
type (
	tenantIDKey    struct{}
	actorIDKey     struct{}
	requestIDKey   struct{}
	requestTimeKey struct{}
	bulkImportKey  struct{}
)

// Exported context keys for tests that need raw context.WithValue.
var (
	ContextKeyTenantID    = tenantIDKey{}
	ContextKeyActorID     = actorIDKey{}
	ContextKeyRequestID   = requestIDKey{}
	ContextKeyRequestTime = requestTimeKey{}
	ContextKeyBulkImport  = bulkImportKey{}
)

// TenantID retrieves the current tenant from the context.
// Returns the zero value (nil UUID) if no tenant is set; scoped store reads
// treat that as "no tenant" and return empty results, never cross-tenant data.
func TenantID(ctx context.Context) id.TenantID {
	if tenantID, ok := ctx.Value(ContextKeyTenantID).(id.TenantID); ok {
		return tenantID
	}
	return id.TenantID{}
}

// WithTenantID injects the current tenant into the context.
func WithTenantID(ctx context.Context, tenantID id.TenantID) context.Context {
	return context.WithValue(ctx, ContextKeyTenantID, tenantID)
}

// HasTenant reports whether a tenant is set on the context.
func HasTenant(ctx context.Context) bool {
	return !TenantID(ctx).IsNil()
}

// ActorID retrieves the authenticated actor from the context.
// Returns the zero value (nil UUID) if not set.
func ActorID(ctx context.Context) id.UserID {
	if actorID, ok := ctx.Value(ContextKeyActorID).(id.UserID); ok {
		return actorID
	}
	return id.UserID{}
}

// WithActorID injects the authenticated actor into the context.
func WithActorID(ctx context.Context, actorID id.UserID) context.Context {
	return context.WithValue(ctx, ContextKeyActorID, actorID)
}

// RequestID retrieves the request ID from the context.
func RequestID(ctx context.Context) string {
	if reqID, ok := ctx.Value(ContextKeyRequestID).(string); ok {
		return reqID
	}
	return ""
}

// WithRequestID injects a request ID into the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ContextKeyRequestID, requestID)
}

// Now retrieves the request-scoped time from context.
// Falls back to time.Now() for non-HTTP contexts (workers, CLI, tests that
// don't pin the clock).
func Now(ctx context.Context) time.Time {
	if t, ok := ctx.Value(ContextKeyRequestTime).(time.Time); ok {
		return t
	}
	return time.Now()
}

// WithTime injects a specific time into a context. Useful for:
//   - Service unit tests that don't run the HTTP middleware chain
//   - Workers that need a consistent time within a batch
func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, ContextKeyRequestTime, t)
}

// BulkImport reports whether the context is in bulk-import mode. Migrations
// and fixture loaders set this to save records with an explicitly supplied
// tenant when no request tenant exists.
func BulkImport(ctx context.Context) bool {
	if b, ok := ctx.Value(ContextKeyBulkImport).(bool); ok {
		return b
	}
	return false
}

// WithBulkImport marks the context as a bulk-import operation.
func WithBulkImport(ctx context.Context) context.Context {
	return context.WithValue(ctx, ContextKeyBulkImport, true)
}
