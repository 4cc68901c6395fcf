// Package http is the thin transport surface over the compliance service.
// Handlers decode requests, delegate, and translate coded errors to HTTP
// statuses; no business rules live here.
package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"fleetcomply/internal/compliance/service"
	"fleetcomply/internal/platform/middleware"
	dErrors "fleetcomply/pkg/domain-errors"
	"fleetcomply/pkg/platform/httputil"
)

// Handler serves the compliance API.
type Handler struct {
	svc    *service.Service
	logger *slog.Logger
}

// New creates the API handler.
func New(svc *service.Service, logger *slog.Logger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

// Router assembles the full route tree. Health and metrics stay outside the
// auth gate; everything else requires a bearer token.
func (h *Handler) Router(validator middleware.TokenValidator, tenants middleware.TenantResolver) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestTime)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(validator, tenants, h.logger))

		r.Route("/policies", func(r chi.Router) {
			r.Get("/", h.handleListPolicies)
			r.Post("/", h.handleCreatePolicy)
			r.Route("/{policyID}", func(r chi.Router) {
				r.Post("/renew", h.handleRenewPolicy)
				r.Post("/activate", h.handleActivatePolicy)
				r.Post("/cancel", h.handleCancelPolicy)
				r.Delete("/", h.handleDeletePolicy)
				r.Get("/payments", h.handleListPayments)
				r.Post("/payments", h.handleRecordPayment)
			})
		})

		r.Route("/payments/{paymentID}", func(r chi.Router) {
			r.Post("/verify", h.handleVerifyPayment)
			r.Post("/reject", h.handleRejectPayment)
		})

		r.Route("/permit-types", func(r chi.Router) {
			r.Post("/", h.handleCreatePermitType)
			r.Post("/{permitTypeID}/conflicts", h.handleDeclarePermitConflict)
		})

		r.Route("/permits", func(r chi.Router) {
			r.Get("/", h.handleListPermits)
			r.Post("/", h.handleCreatePermit)
			r.Route("/{permitID}", func(r chi.Router) {
				r.Post("/activate", h.handleActivatePermit)
				r.Post("/cancel", h.handleCancelPermit)
				r.Delete("/", h.handleDeletePermit)
			})
		})

		r.Route("/licenses", func(r chi.Router) {
			r.Get("/", h.handleListLicenses)
			r.Post("/", h.handleCreateLicense)
			r.Route("/{licenseID}", func(r chi.Router) {
				r.Post("/activate", h.handleActivateLicense)
				r.Post("/cancel", h.handleCancelLicense)
				r.Delete("/", h.handleDeleteLicense)
			})
		})

		r.Get("/vehicles/{vehicleID}/compliance", h.handleVehicleCompliance)
		r.Get("/compliance/summary", h.handleTenantSummary)
	})

	return r
}

// writeErr logs unexpected failures and writes the coded error response.
func (h *Handler) writeErr(w http.ResponseWriter, r *http.Request, err error) {
	if dErrors.CodeOf(err) == dErrors.CodeInternal {
		h.logger.ErrorContext(r.Context(), "request failed",
			"method", r.Method, "path", r.URL.Path, "error", err)
	}
	httputil.WriteError(w, err)
}

// parseDate reads a YYYY-MM-DD date.
func parseDate(raw string) (time.Time, error) {
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}, dErrors.Newf(dErrors.CodeInvalidInput, "invalid date: %s", raw)
	}
	return t, nil
}

// parseOptionalDate reads a YYYY-MM-DD date, nil when empty.
func parseOptionalDate(raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	t, err := parseDate(raw)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
