package models

import (
	"strings"
	"time"

	id "fleetcomply/pkg/domain"
	dErrors "fleetcomply/pkg/domain-errors"
)

// RegistrationLicense is a road-transport registration license (LATRA-style)
// attached to a vehicle. Licenses of the same license type must not have
// overlapping active windows on the same vehicle; different types never
// conflict.
type RegistrationLicense struct {
	Record

	ID               id.LicenseID `json:"id"`
	LicenseNumber    string       `json:"license_number"`
	LicenseType      string       `json:"license_type"`
	Route            string       `json:"route,omitempty"`
	IssuingAuthority string       `json:"issuing_authority,omitempty"`
}

// NewRegistrationLicense builds a draft license. A nil end date means the
// license is open-ended.
func NewRegistrationLicense(licenseID id.LicenseID, tenantID id.TenantID, vehicleID id.VehicleID,
	number, licenseType, route string, start time.Time, end *time.Time,
	createdBy id.UserID, now time.Time) (*RegistrationLicense, error) {

	l := &RegistrationLicense{
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
		ID:               licenseID,
		LicenseNumber:    strings.TrimSpace(number),
		LicenseType:      strings.TrimSpace(licenseType),
		Route:            strings.TrimSpace(route),
		IssuingAuthority: "LATRA",
	}
	if end != nil {
		endDay := startOfDay(*end)
		l.EndDate = &endDay
	}

	if err := l.Validate(); err != nil {
		return nil, err
	}
	return l, nil
}

// Validate checks license invariants on top of the shared record ones.
func (l *RegistrationLicense) Validate() error {
	if err := l.Record.Validate(); err != nil {
		return err
	}
	if l.ID.IsNil() {
		return dErrors.New(dErrors.CodeInvariantViolation, "license requires an id").WithField("id")
	}
	if l.LicenseNumber == "" {
		return dErrors.New(dErrors.CodeInvariantViolation, "license number is required").WithField("license_number")
	}
	if l.LicenseType == "" {
		return dErrors.New(dErrors.CodeInvariantViolation, "license type is required").WithField("license_type")
	}
	return nil
}

// Kind implements Entity.
func (l *RegistrationLicense) Kind() Kind { return KindLicense }

// Rec implements Entity.
func (l *RegistrationLicense) Rec() *Record { return &l.Record }

// Ref implements Entity.
func (l *RegistrationLicense) Ref() string { return l.ID.String() }
