package models

import (
	"strings"
	"time"

	id "fleetcomply/pkg/domain"
	dErrors "fleetcomply/pkg/domain-errors"
)

// PermitType is tenant-scoped configuration: a named category of road-use
// permit plus the set of types it conflicts with. The conflicts_with relation
// is symmetric but may be declared from either side, so conflict lookups
// check both directions.
type PermitType struct {
	ID       id.PermitTypeID `json:"id"`
	TenantID id.TenantID     `json:"tenant_id"`
	Name     string          `json:"name"`
	Active   bool            `json:"active"`

	// ConflictsWith lists the permit types declared incompatible from this
	// side of the relation.
	ConflictsWith []id.PermitTypeID `json:"conflicts_with,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewPermitType builds an active permit type.
func NewPermitType(typeID id.PermitTypeID, tenantID id.TenantID, name string, now time.Time) (*PermitType, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "permit type name is required").WithField("name")
	}
	if tenantID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "permit type requires a tenant").WithField("tenant_id")
	}
	return &PermitType{
		ID:        typeID,
		TenantID:  tenantID,
		Name:      name,
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// Permit is a road-use permit attached to a vehicle. Permits of conflicting
// types must not have overlapping active windows on the same vehicle.
type Permit struct {
	Record

	ID              id.PermitID     `json:"id"`
	PermitTypeID    id.PermitTypeID `json:"permit_type_id"`
	ReferenceNumber string          `json:"reference_number"`
}

// NewPermit builds a draft permit.
func NewPermit(permitID id.PermitID, tenantID id.TenantID, vehicleID id.VehicleID,
	permitTypeID id.PermitTypeID, reference string, start time.Time, end *time.Time,
	createdBy id.UserID, now time.Time) (*Permit, error) {

	p := &Permit{
		Record: Record{
			TenantID:  tenantID,
			VehicleID: vehicleID,
			StartDate: startOfDay(start),
			Status:    StatusDraft,
			CreatedBy: createdBy,
			UpdatedBy: createdBy,
			CreatedAt: now,
			UpdatedAt: now,
		},
		ID:              permitID,
		PermitTypeID:    permitTypeID,
		ReferenceNumber: strings.TrimSpace(reference),
	}
	if end != nil {
		endDay := startOfDay(*end)
		p.EndDate = &endDay
	}

	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// Validate checks permit invariants on top of the shared record ones.
func (p *Permit) Validate() error {
	if err := p.Record.Validate(); err != nil {
		return err
	}
	if p.ID.IsNil() {
		return dErrors.New(dErrors.CodeInvariantViolation, "permit requires an id").WithField("id")
	}
	if p.PermitTypeID.IsNil() {
		return dErrors.New(dErrors.CodeInvariantViolation, "permit requires a permit type").WithField("permit_type_id")
	}
	if p.ReferenceNumber == "" {
		return dErrors.New(dErrors.CodeInvariantViolation, "reference number is required").WithField("reference_number")
	}
	return nil
}

// Kind implements Entity.
func (p *Permit) Kind() Kind { return KindPermit }

// Rec implements Entity.
func (p *Permit) Rec() *Record { return &p.Record }

// Ref implements Entity.
func (p *Permit) Ref() string { return p.ID.String() }
