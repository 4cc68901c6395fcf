package models

import (
	"fmt"
	"strings"
	"time"

	id "fleetcomply/pkg/domain"
	dErrors "fleetcomply/pkg/domain-errors"
)

// Policy is an insurance policy covering a vehicle.
//
// Business rules:
//   - A policy becomes active only after full verified payment
//   - A vehicle holds at most one active policy over any window
//   - PolicyNumber is unique per tenant among non-deleted policies
//   - Policies always carry an end date
//
// Monetary amounts are integer minor currency units; the exact-payment rule
// requires exact arithmetic.
type Policy struct {
	Record

	ID           id.PolicyID `json:"id"`
	PolicyNumber string      `json:"policy_number"`

	// PremiumAmount and CoverageAmount are in minor currency units.
	PremiumAmount  int64  `json:"premium_amount"`
	CoverageAmount *int64 `json:"coverage_amount,omitempty"`

	PolicyType string `json:"policy_type,omitempty"`
	Notes      string `json:"notes,omitempty"`
}

// NewPolicy builds a policy in pending_payment for a vehicle. The caller
// supplies the tenant resolved from the vehicle; tenant consistency with the
// actor is checked at the service layer.
func NewPolicy(policyID id.PolicyID, tenantID id.TenantID, vehicleID id.VehicleID,
	number string, start, end time.Time, premium int64, createdBy id.UserID, now time.Time) (*Policy, error) {

	p := &Policy{
		Record: Record{
			TenantID:  tenantID,
			VehicleID: vehicleID,
			StartDate: startOfDay(start),
			Status:    StatusPendingPayment,
			CreatedBy: createdBy,
			UpdatedBy: createdBy,
			CreatedAt: now,
			UpdatedAt: now,
		},
		ID:            policyID,
		PolicyNumber:  strings.TrimSpace(number),
		PremiumAmount: premium,
	}
	endDay := startOfDay(end)
	p.EndDate = &endDay

	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// Validate checks policy invariants on top of the shared record ones.
func (p *Policy) Validate() error {
	if err := p.Record.Validate(); err != nil {
		return err
	}
	if p.ID.IsNil() {
		return dErrors.New(dErrors.CodeInvariantViolation, "policy requires an id").WithField("id")
	}
	if p.PolicyNumber == "" {
		return dErrors.New(dErrors.CodeInvariantViolation, "policy number is required").WithField("policy_number")
	}
	if p.PremiumAmount <= 0 {
		return dErrors.New(dErrors.CodeInvariantViolation, "premium must be positive").WithField("premium_amount")
	}
	if p.EndDate == nil {
		return dErrors.New(dErrors.CodeInvariantViolation, "policy requires an end date").WithField("end_date")
	}
	return nil
}

// Kind implements Entity.
func (p *Policy) Kind() Kind { return KindPolicy }

// Rec implements Entity.
func (p *Policy) Rec() *Record { return &p.Record }

// Ref implements Entity.
func (p *Policy) Ref() string { return p.ID.String() }

// FormatPolicyNumber renders the tenant-scoped policy number:
// POL-{YEAR}-{TENANT_SLUG}-{SEQUENCE}.
func FormatPolicyNumber(year int, tenantSlug string, sequence int) string {
	return fmt.Sprintf("POL-%d-%s-%05d", year, strings.ToUpper(tenantSlug), sequence)
}

// FormatPolicyNumberPrefix renders the year-and-tenant prefix shared by all
// of a tenant's policy numbers for a year, used to derive the next sequence.
func FormatPolicyNumberPrefix(year int, tenantSlug string) string {
	return fmt.Sprintf("POL-%d-%s-", year, strings.ToUpper(tenantSlug))
}
