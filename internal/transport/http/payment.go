package http

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"fleetcomply/internal/compliance/models"
	id "fleetcomply/pkg/domain"
	dErrors "fleetcomply/pkg/domain-errors"
	"fleetcomply/pkg/platform/httputil"
	"fleetcomply/pkg/requestcontext"
)

type recordPaymentRequest struct {
	Amount          int64  `json:"amount"`
	Method          string `json:"method"`
	ReferenceNumber string `json:"reference_number"`
}

func (h *Handler) handleRecordPayment(w http.ResponseWriter, r *http.Request) {
	policyID, err := id.ParsePolicyID(chi.URLParam(r, "policyID"))
	if err != nil {
		h.writeErr(w, r, dErrors.New(dErrors.CodeInvalidInput, "invalid policy id"))
		return
	}
	var req recordPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeErr(w, r, dErrors.New(dErrors.CodeInvalidInput, "invalid request body"))
		return
	}

	payment, err := h.svc.RecordPayment(r.Context(), policyID, requestcontext.ActorID(r.Context()),
		req.Amount, models.PaymentMethod(req.Method), req.ReferenceNumber)
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, payment)
}

func (h *Handler) handleListPayments(w http.ResponseWriter, r *http.Request) {
	policyID, err := id.ParsePolicyID(chi.URLParam(r, "policyID"))
	if err != nil {
		h.writeErr(w, r, dErrors.New(dErrors.CodeInvalidInput, "invalid policy id"))
		return
	}
	payments, err := h.svc.PolicyPayments(r.Context(), policyID)
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"payments": payments})
}

func (h *Handler) handleVerifyPayment(w http.ResponseWriter, r *http.Request) {
	paymentID, err := id.ParsePaymentID(chi.URLParam(r, "paymentID"))
	if err != nil {
		h.writeErr(w, r, dErrors.New(dErrors.CodeInvalidInput, "invalid payment id"))
		return
	}
	payment, err := h.svc.VerifyPayment(r.Context(), paymentID, requestcontext.ActorID(r.Context()))
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, payment)
}

type rejectPaymentRequest struct {
	Note string `json:"note,omitempty"`
}

func (h *Handler) handleRejectPayment(w http.ResponseWriter, r *http.Request) {
	paymentID, err := id.ParsePaymentID(chi.URLParam(r, "paymentID"))
	if err != nil {
		h.writeErr(w, r, dErrors.New(dErrors.CodeInvalidInput, "invalid payment id"))
		return
	}
	var req rejectPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeErr(w, r, dErrors.New(dErrors.CodeInvalidInput, "invalid request body"))
		return
	}
	payment, err := h.svc.RejectPayment(r.Context(), paymentID, requestcontext.ActorID(r.Context()), req.Note)
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, payment)
}
