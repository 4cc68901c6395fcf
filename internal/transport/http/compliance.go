package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	id "fleetcomply/pkg/domain"
	dErrors "fleetcomply/pkg/domain-errors"
	"fleetcomply/pkg/platform/httputil"
	"fleetcomply/pkg/requestcontext"
)

func (h *Handler) handleVehicleCompliance(w http.ResponseWriter, r *http.Request) {
	vehicleID, err := id.ParseVehicleID(chi.URLParam(r, "vehicleID"))
	if err != nil {
		h.writeErr(w, r, dErrors.New(dErrors.CodeInvalidInput, "invalid vehicle id"))
		return
	}
	report, err := h.svc.ComputeComplianceStatus(r.Context(), vehicleID)
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, report)
}

func (h *Handler) handleTenantSummary(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := requestcontext.TenantID(ctx)
	if tenantID.IsNil() {
		h.writeErr(w, r, dErrors.New(dErrors.CodeForbidden, "a tenant-bound token is required"))
		return
	}
	summary, err := h.svc.TenantSummary(ctx, tenantID)
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, summary)
}
