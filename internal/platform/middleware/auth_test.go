package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fleetcomply/internal/platform/jwt"
	tenant "fleetcomply/internal/tenant/models"
	id "fleetcomply/pkg/domain"
	"fleetcomply/pkg/platform/sentinel"
	"fleetcomply/pkg/requestcontext"
)

type fakeTenants struct {
	tenants map[id.TenantID]*tenant.Tenant
}

func (f *fakeTenants) FindTenant(_ context.Context, tenantID id.TenantID) (*tenant.Tenant, error) {
	if t, ok := f.tenants[tenantID]; ok {
		return t, nil
	}
	return nil, sentinel.ErrNotFound
}

func TestRequireAuth(t *testing.T) {
	now := time.Date(2026, time.March, 15, 12, 0, 0, 0, time.UTC)
	svc := jwt.NewService("test-signing-key", "fleetcomply")
	logger := slog.New(slog.DiscardHandler)

	active, err := tenant.NewTenant(id.NewTenantID(), "Acme Insurance", "acme", now)
	require.NoError(t, err)
	inactive, err := tenant.NewTenant(id.NewTenantID(), "Bongo Fleet", "bongo", now)
	require.NoError(t, err)
	inactive.Active = false

	resolver := &fakeTenants{tenants: map[id.TenantID]*tenant.Tenant{
		active.ID:   active,
		inactive.ID: inactive,
	}}

	actorID := uuid.New()

	var gotTenant id.TenantID
	var gotActor id.UserID
	handler := RequireAuth(svc, resolver, logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotTenant = requestcontext.TenantID(r.Context())
		gotActor = requestcontext.ActorID(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	do := func(t *testing.T, authHeader string) *httptest.ResponseRecorder {
		t.Helper()
		gotTenant, gotActor = id.TenantID{}, id.UserID{}
		req := httptest.NewRequest(http.MethodGet, "/policies", nil)
		if authHeader != "" {
			req.Header.Set("Authorization", authHeader)
		}
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		return w
	}

	t.Run("valid token sets actor and tenant", func(t *testing.T) {
		token, err := svc.GenerateToken(actorID, uuid.UUID(active.ID), "admin", time.Hour)
		require.NoError(t, err)

		w := do(t, "Bearer "+token)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, active.ID, gotTenant)
		assert.Equal(t, actorID.String(), gotActor.String())
	})

	t.Run("super admin token sets no tenant", func(t *testing.T) {
		token, err := svc.GenerateToken(actorID, uuid.Nil, "admin", time.Hour)
		require.NoError(t, err)

		w := do(t, "Bearer "+token)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.True(t, gotTenant.IsNil())
	})

	t.Run("missing header", func(t *testing.T) {
		w := do(t, "")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("expired token", func(t *testing.T) {
		token, err := svc.GenerateToken(actorID, uuid.UUID(active.ID), "admin", -time.Minute)
		require.NoError(t, err)

		w := do(t, "Bearer "+token)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("inactive tenant is refused", func(t *testing.T) {
		token, err := svc.GenerateToken(actorID, uuid.UUID(inactive.ID), "admin", time.Hour)
		require.NoError(t, err)

		w := do(t, "Bearer "+token)
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("unknown tenant is refused", func(t *testing.T) {
		token, err := svc.GenerateToken(actorID, uuid.New(), "admin", time.Hour)
		require.NoError(t, err)

		w := do(t, "Bearer "+token)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestRequestID(t *testing.T) {
	var seen string
	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = requestcontext.RequestID(r.Context())
	}))

	t.Run("generates when absent", func(t *testing.T) {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.NotEmpty(t, seen)
		assert.Equal(t, seen, w.Header().Get(RequestIDHeader))
	})

	t.Run("honors caller-supplied ID", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(RequestIDHeader, "req-123")
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		assert.Equal(t, "req-123", seen)
	})
}

func TestRequestTime(t *testing.T) {
	var seen time.Time
	handler := RequestTime(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = requestcontext.Now(r.Context())
	}))

	before := time.Now()
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	after := time.Now()

	assert.False(t, seen.Before(before))
	assert.False(t, seen.After(after))
}
