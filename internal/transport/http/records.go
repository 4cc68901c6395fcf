package http

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"fleetcomply/internal/compliance/models"
	"fleetcomply/internal/compliance/service"
	id "fleetcomply/pkg/domain"
	dErrors "fleetcomply/pkg/domain-errors"
	"fleetcomply/pkg/platform/httputil"
	"fleetcomply/pkg/requestcontext"
)

type createPolicyRequest struct {
	VehicleID      string `json:"vehicle_id"`
	StartDate      string `json:"start_date"`
	EndDate        string `json:"end_date"`
	PremiumAmount  int64  `json:"premium_amount"`
	CoverageAmount *int64 `json:"coverage_amount,omitempty"`
	PolicyType     string `json:"policy_type,omitempty"`
	Notes          string `json:"notes,omitempty"`
}

func (h *Handler) handleCreatePolicy(w http.ResponseWriter, r *http.Request) {
	var req createPolicyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeErr(w, r, dErrors.New(dErrors.CodeInvalidInput, "invalid request body"))
		return
	}
	vehicleID, err := id.ParseVehicleID(req.VehicleID)
	if err != nil {
		h.writeErr(w, r, dErrors.New(dErrors.CodeInvalidInput, "invalid vehicle_id").WithField("vehicle_id"))
		return
	}
	start, err := parseDate(req.StartDate)
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	end, err := parseDate(req.EndDate)
	if err != nil {
		h.writeErr(w, r, err)
		return
	}

	policy, err := h.svc.CreatePolicy(r.Context(), service.CreatePolicyInput{
		VehicleID:      vehicleID,
		StartDate:      start,
		EndDate:        end,
		PremiumAmount:  req.PremiumAmount,
		CoverageAmount: req.CoverageAmount,
		PolicyType:     req.PolicyType,
		Notes:          req.Notes,
	}, requestcontext.ActorID(r.Context()))
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, policy)
}

type renewPolicyRequest struct {
	PremiumAmount int64 `json:"premium_amount"`
	DurationDays  int   `json:"duration_days"`
}

func (h *Handler) handleRenewPolicy(w http.ResponseWriter, r *http.Request) {
	policyID, err := id.ParsePolicyID(chi.URLParam(r, "policyID"))
	if err != nil {
		h.writeErr(w, r, dErrors.New(dErrors.CodeInvalidInput, "invalid policy id"))
		return
	}
	var req renewPolicyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeErr(w, r, dErrors.New(dErrors.CodeInvalidInput, "invalid request body"))
		return
	}
	policy, err := h.svc.RenewPolicy(r.Context(), policyID, req.PremiumAmount, req.DurationDays,
		requestcontext.ActorID(r.Context()))
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, policy)
}

func (h *Handler) handleListPolicies(w http.ResponseWriter, r *http.Request) {
	policies, err := h.svc.ListPolicies(r.Context())
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"policies": policies})
}

type createPermitTypeRequest struct {
	Name string `json:"name"`
}

func (h *Handler) handleCreatePermitType(w http.ResponseWriter, r *http.Request) {
	var req createPermitTypeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeErr(w, r, dErrors.New(dErrors.CodeInvalidInput, "invalid request body"))
		return
	}
	ctx := r.Context()
	permitType, err := h.svc.CreatePermitType(ctx, requestcontext.TenantID(ctx), req.Name,
		requestcontext.ActorID(ctx))
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, permitType)
}

type declareConflictRequest struct {
	ConflictsWithID string `json:"conflicts_with_id"`
}

func (h *Handler) handleDeclarePermitConflict(w http.ResponseWriter, r *http.Request) {
	typeID, err := id.ParsePermitTypeID(chi.URLParam(r, "permitTypeID"))
	if err != nil {
		h.writeErr(w, r, dErrors.New(dErrors.CodeInvalidInput, "invalid permit type id"))
		return
	}
	var req declareConflictRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeErr(w, r, dErrors.New(dErrors.CodeInvalidInput, "invalid request body"))
		return
	}
	otherID, err := id.ParsePermitTypeID(req.ConflictsWithID)
	if err != nil {
		h.writeErr(w, r, dErrors.New(dErrors.CodeInvalidInput, "invalid conflicts_with_id").WithField("conflicts_with_id"))
		return
	}
	ctx := r.Context()
	if err := h.svc.DeclarePermitConflict(ctx, requestcontext.TenantID(ctx), typeID, otherID,
		requestcontext.ActorID(ctx)); err != nil {
		h.writeErr(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type createPermitRequest struct {
	VehicleID       string `json:"vehicle_id"`
	PermitTypeID    string `json:"permit_type_id"`
	ReferenceNumber string `json:"reference_number"`
	StartDate       string `json:"start_date"`
	EndDate         string `json:"end_date,omitempty"`
}

func (h *Handler) handleCreatePermit(w http.ResponseWriter, r *http.Request) {
	var req createPermitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeErr(w, r, dErrors.New(dErrors.CodeInvalidInput, "invalid request body"))
		return
	}
	vehicleID, err := id.ParseVehicleID(req.VehicleID)
	if err != nil {
		h.writeErr(w, r, dErrors.New(dErrors.CodeInvalidInput, "invalid vehicle_id").WithField("vehicle_id"))
		return
	}
	typeID, err := id.ParsePermitTypeID(req.PermitTypeID)
	if err != nil {
		h.writeErr(w, r, dErrors.New(dErrors.CodeInvalidInput, "invalid permit_type_id").WithField("permit_type_id"))
		return
	}
	start, err := parseDate(req.StartDate)
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	end, err := parseOptionalDate(req.EndDate)
	if err != nil {
		h.writeErr(w, r, err)
		return
	}

	permit, err := h.svc.CreatePermit(r.Context(), service.CreatePermitInput{
		VehicleID:       vehicleID,
		PermitTypeID:    typeID,
		ReferenceNumber: req.ReferenceNumber,
		StartDate:       start,
		EndDate:         end,
	}, requestcontext.ActorID(r.Context()))
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, permit)
}

func (h *Handler) handleListPermits(w http.ResponseWriter, r *http.Request) {
	permits, err := h.svc.ListPermits(r.Context())
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"permits": permits})
}

type createLicenseRequest struct {
	VehicleID     string `json:"vehicle_id"`
	LicenseNumber string `json:"license_number"`
	LicenseType   string `json:"license_type"`
	Route         string `json:"route,omitempty"`
	StartDate     string `json:"start_date"`
	EndDate       string `json:"end_date,omitempty"`
}

func (h *Handler) handleCreateLicense(w http.ResponseWriter, r *http.Request) {
	var req createLicenseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeErr(w, r, dErrors.New(dErrors.CodeInvalidInput, "invalid request body"))
		return
	}
	vehicleID, err := id.ParseVehicleID(req.VehicleID)
	if err != nil {
		h.writeErr(w, r, dErrors.New(dErrors.CodeInvalidInput, "invalid vehicle_id").WithField("vehicle_id"))
		return
	}
	start, err := parseDate(req.StartDate)
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	end, err := parseOptionalDate(req.EndDate)
	if err != nil {
		h.writeErr(w, r, err)
		return
	}

	license, err := h.svc.CreateLicense(r.Context(), service.CreateLicenseInput{
		VehicleID:     vehicleID,
		LicenseNumber: req.LicenseNumber,
		LicenseType:   req.LicenseType,
		Route:         req.Route,
		StartDate:     start,
		EndDate:       end,
	}, requestcontext.ActorID(r.Context()))
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, license)
}

func (h *Handler) handleListLicenses(w http.ResponseWriter, r *http.Request) {
	licenses, err := h.svc.ListLicenses(r.Context())
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"licenses": licenses})
}

// Lifecycle endpoints share their implementation across the three kinds.

type cancelRequest struct {
	Reason string `json:"reason"`
	Note   string `json:"note,omitempty"`
}

func (h *Handler) activate(w http.ResponseWriter, r *http.Request, kind models.Kind, param string) {
	ctx := r.Context()
	entity, err := h.svc.Activate(ctx, kind, chi.URLParam(r, param), requestcontext.ActorID(ctx))
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, entity)
}

func (h *Handler) cancel(w http.ResponseWriter, r *http.Request, kind models.Kind, param string) {
	var req cancelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeErr(w, r, dErrors.New(dErrors.CodeInvalidInput, "invalid request body"))
		return
	}
	ctx := r.Context()
	entity, err := h.svc.Cancel(ctx, kind, chi.URLParam(r, param), requestcontext.ActorID(ctx),
		models.CancellationReason(req.Reason), req.Note)
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, entity)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request, kind models.Kind, param string) {
	ctx := r.Context()
	if err := h.svc.Delete(ctx, kind, chi.URLParam(r, param), requestcontext.ActorID(ctx)); err != nil {
		h.writeErr(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleActivatePolicy(w http.ResponseWriter, r *http.Request) {
	h.activate(w, r, models.KindPolicy, "policyID")
}

func (h *Handler) handleCancelPolicy(w http.ResponseWriter, r *http.Request) {
	h.cancel(w, r, models.KindPolicy, "policyID")
}

func (h *Handler) handleDeletePolicy(w http.ResponseWriter, r *http.Request) {
	h.delete(w, r, models.KindPolicy, "policyID")
}

func (h *Handler) handleActivatePermit(w http.ResponseWriter, r *http.Request) {
	h.activate(w, r, models.KindPermit, "permitID")
}

func (h *Handler) handleCancelPermit(w http.ResponseWriter, r *http.Request) {
	h.cancel(w, r, models.KindPermit, "permitID")
}

func (h *Handler) handleDeletePermit(w http.ResponseWriter, r *http.Request) {
	h.delete(w, r, models.KindPermit, "permitID")
}

func (h *Handler) handleActivateLicense(w http.ResponseWriter, r *http.Request) {
	h.activate(w, r, models.KindLicense, "licenseID")
}

func (h *Handler) handleCancelLicense(w http.ResponseWriter, r *http.Request) {
	h.cancel(w, r, models.KindLicense, "licenseID")
}

func (h *Handler) handleDeleteLicense(w http.ResponseWriter, r *http.Request) {
	h.delete(w, r, models.KindLicense, "licenseID")
}
