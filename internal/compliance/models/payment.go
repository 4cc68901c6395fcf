package models

import (
	"strings"
	"time"

	id "fleetcomply/pkg/domain"
	dErrors "fleetcomply/pkg/domain-errors"
)

// PaymentMethod is the enumerated channel a payment arrived through.
type PaymentMethod string

const (
	PaymentMethodCash         PaymentMethod = "cash"
	PaymentMethodBankTransfer PaymentMethod = "bank_transfer"
	PaymentMethodMobileMoney  PaymentMethod = "mobile_money"
	PaymentMethodCheck        PaymentMethod = "check"
	PaymentMethodCard         PaymentMethod = "card"
)

// Valid reports whether m is a known payment method.
func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentMethodCash, PaymentMethodBankTransfer, PaymentMethodMobileMoney,
		PaymentMethodCheck, PaymentMethodCard:
		return true
	}
	return false
}

// ReviewStatus is the derived review state of a payment.
type ReviewStatus string

const (
	ReviewPending  ReviewStatus = "pending"
	ReviewApproved ReviewStatus = "approved"
	ReviewRejected ReviewStatus = "rejected"
)

// Payment is a payment recorded against a policy.
//
// Business rules:
//   - Amount is positive and must equal the policy premium exactly; partial
//     payments are rejected at creation, never accumulated
//   - A policy holds at most one non-rejected payment at a time
//   - Payments are immutable once verified
//
// Amounts are integer minor currency units.
type Payment struct {
	ID       id.PaymentID `json:"id"`
	TenantID id.TenantID  `json:"tenant_id"`
	PolicyID id.PolicyID  `json:"policy_id"`

	Amount          int64         `json:"amount"`
	Method          PaymentMethod `json:"method"`
	ReferenceNumber string        `json:"reference_number"`
	PayerName       string        `json:"payer_name,omitempty"`
	Notes           string        `json:"notes,omitempty"`
	PaymentDate     time.Time     `json:"payment_date"`

	Verified   bool       `json:"verified"`
	VerifiedBy id.UserID  `json:"verified_by,omitempty"`
	VerifiedAt *time.Time `json:"verified_at,omitempty"`

	RejectedBy    id.UserID  `json:"rejected_by,omitempty"`
	RejectedAt    *time.Time `json:"rejected_at,omitempty"`
	RejectionNote string     `json:"rejection_note,omitempty"`

	CreatedBy id.UserID  `json:"created_by,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
}

// NewPayment builds an unverified payment for a policy.
func NewPayment(paymentID id.PaymentID, tenantID id.TenantID, policyID id.PolicyID,
	amount int64, method PaymentMethod, reference string, createdBy id.UserID, now time.Time) (*Payment, error) {

	p := &Payment{
		ID:              paymentID,
		TenantID:        tenantID,
		PolicyID:        policyID,
		Amount:          amount,
		Method:          method,
		ReferenceNumber: strings.TrimSpace(reference),
		PaymentDate:     now,
		CreatedBy:       createdBy,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// Validate checks payment invariants.
func (p *Payment) Validate() error {
	if p.ID.IsNil() {
		return dErrors.New(dErrors.CodeInvariantViolation, "payment requires an id").WithField("id")
	}
	if p.TenantID.IsNil() {
		return dErrors.New(dErrors.CodeInvariantViolation, "payment requires a tenant").WithField("tenant_id")
	}
	if p.PolicyID.IsNil() {
		return dErrors.New(dErrors.CodeInvariantViolation, "payment requires a policy").WithField("policy_id")
	}
	if p.Amount <= 0 {
		return dErrors.New(dErrors.CodeInvariantViolation, "payment amount must be positive").WithField("amount")
	}
	if !p.Method.Valid() {
		return dErrors.Newf(dErrors.CodeInvariantViolation, "unknown payment method: %s", p.Method).WithField("method")
	}
	if p.ReferenceNumber == "" {
		return dErrors.New(dErrors.CodeInvariantViolation, "payment reference is required").WithField("reference_number")
	}
	return nil
}

// ReviewStatus derives the payment's review state from its verification and
// rejection fields.
func (p *Payment) ReviewStatus() ReviewStatus {
	if p.Verified {
		return ReviewApproved
	}
	if p.RejectedAt != nil {
		return ReviewRejected
	}
	return ReviewPending
}

// IsRejected reports whether the payment was rejected. Rejected payments
// release the single-payment slot on their policy.
func (p *Payment) IsRejected() bool {
	return p.RejectedAt != nil
}

// Verify marks the payment approved.
func (p *Payment) Verify(by id.UserID, now time.Time) error {
	if p.Verified {
		return dErrors.New(dErrors.CodeInvalidTransition, "payment is already verified")
	}
	if p.IsRejected() {
		return dErrors.New(dErrors.CodeInvalidTransition, "cannot verify a rejected payment")
	}
	p.Verified = true
	p.VerifiedBy = by
	p.VerifiedAt = &now
	p.UpdatedAt = now
	return nil
}

// Reject marks the payment rejected.
func (p *Payment) Reject(by id.UserID, note string, now time.Time) error {
	if p.Verified {
		return dErrors.New(dErrors.CodeInvalidTransition, "cannot reject a verified payment")
	}
	if p.IsRejected() {
		return dErrors.New(dErrors.CodeInvalidTransition, "payment is already rejected")
	}
	p.RejectedBy = by
	p.RejectedAt = &now
	p.RejectionNote = strings.TrimSpace(note)
	p.UpdatedAt = now
	return nil
}
