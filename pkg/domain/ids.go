// Package domain provides typed identifiers for the compliance domain.
//
// Each aggregate gets its own UUID-backed type so the compiler rejects
// cross-entity ID mixups (passing a VehicleID where a PolicyID is expected).
package domain

import (
	"github.com/google/uuid"

	dErrors "fleetcomply/pkg/domain-errors"
)

type (
	TenantID     uuid.UUID
	UserID       uuid.UUID
	CustomerID   uuid.UUID
	VehicleID    uuid.UUID
	PolicyID     uuid.UUID
	PermitID     uuid.UUID
	PermitTypeID uuid.UUID
	LicenseID    uuid.UUID
	PaymentID    uuid.UUID
)

func (id TenantID) String() string     { return uuid.UUID(id).String() }
func (id UserID) String() string       { return uuid.UUID(id).String() }
func (id CustomerID) String() string   { return uuid.UUID(id).String() }
func (id VehicleID) String() string    { return uuid.UUID(id).String() }
func (id PolicyID) String() string     { return uuid.UUID(id).String() }
func (id PermitID) String() string     { return uuid.UUID(id).String() }
func (id PermitTypeID) String() string { return uuid.UUID(id).String() }
func (id LicenseID) String() string    { return uuid.UUID(id).String() }
func (id PaymentID) String() string    { return uuid.UUID(id).String() }

func (id TenantID) IsNil() bool     { return uuid.UUID(id) == uuid.Nil }
func (id UserID) IsNil() bool       { return uuid.UUID(id) == uuid.Nil }
func (id CustomerID) IsNil() bool   { return uuid.UUID(id) == uuid.Nil }
func (id VehicleID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }
func (id PolicyID) IsNil() bool     { return uuid.UUID(id) == uuid.Nil }
func (id PermitID) IsNil() bool     { return uuid.UUID(id) == uuid.Nil }
func (id PermitTypeID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id LicenseID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }
func (id PaymentID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }

// NewTenantID and friends mint fresh identifiers.
func NewTenantID() TenantID         { return TenantID(uuid.New()) }
func NewUserID() UserID             { return UserID(uuid.New()) }
func NewCustomerID() CustomerID     { return CustomerID(uuid.New()) }
func NewVehicleID() VehicleID       { return VehicleID(uuid.New()) }
func NewPolicyID() PolicyID         { return PolicyID(uuid.New()) }
func NewPermitID() PermitID         { return PermitID(uuid.New()) }
func NewPermitTypeID() PermitTypeID { return PermitTypeID(uuid.New()) }
func NewLicenseID() LicenseID       { return LicenseID(uuid.New()) }
func NewPaymentID() PaymentID       { return PaymentID(uuid.New()) }

// MarshalText renders IDs as canonical UUID strings in JSON and logs.
func (id TenantID) MarshalText() ([]byte, error)     { return []byte(id.String()), nil }
func (id UserID) MarshalText() ([]byte, error)       { return []byte(id.String()), nil }
func (id CustomerID) MarshalText() ([]byte, error)   { return []byte(id.String()), nil }
func (id VehicleID) MarshalText() ([]byte, error)    { return []byte(id.String()), nil }
func (id PolicyID) MarshalText() ([]byte, error)     { return []byte(id.String()), nil }
func (id PermitID) MarshalText() ([]byte, error)     { return []byte(id.String()), nil }
func (id PermitTypeID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }
func (id LicenseID) MarshalText() ([]byte, error)    { return []byte(id.String()), nil }
func (id PaymentID) MarshalText() ([]byte, error)    { return []byte(id.String()), nil }

func (id *TenantID) UnmarshalText(b []byte) error { return unmarshalID((*uuid.UUID)(id), b) }
func (id *UserID) UnmarshalText(b []byte) error   { return unmarshalID((*uuid.UUID)(id), b) }
func (id *CustomerID) UnmarshalText(b []byte) error {
	return unmarshalID((*uuid.UUID)(id), b)
}
func (id *VehicleID) UnmarshalText(b []byte) error { return unmarshalID((*uuid.UUID)(id), b) }
func (id *PolicyID) UnmarshalText(b []byte) error  { return unmarshalID((*uuid.UUID)(id), b) }
func (id *PermitID) UnmarshalText(b []byte) error  { return unmarshalID((*uuid.UUID)(id), b) }
func (id *PermitTypeID) UnmarshalText(b []byte) error {
	return unmarshalID((*uuid.UUID)(id), b)
}
func (id *LicenseID) UnmarshalText(b []byte) error { return unmarshalID((*uuid.UUID)(id), b) }
func (id *PaymentID) UnmarshalText(b []byte) error { return unmarshalID((*uuid.UUID)(id), b) }

func unmarshalID(dst *uuid.UUID, b []byte) error {
	u, err := uuid.ParseBytes(b)
	if err != nil {
		return err
	}
	*dst = u
	return nil
}

// parseUUID enforces the shared invariant: IDs must be valid, non-nil UUIDs.
func parseUUID(s, kind string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.Newf(dErrors.CodeInvalidInput, "%s id is required", kind)
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.Newf(dErrors.CodeInvalidInput, "%s id is not a valid UUID", kind)
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.Newf(dErrors.CodeInvalidInput, "%s id must not be the nil UUID", kind)
	}
	return u, nil
}

func ParseTenantID(s string) (TenantID, error) {
	u, err := parseUUID(s, "tenant")
	return TenantID(u), err
}

func ParseUserID(s string) (UserID, error) {
	u, err := parseUUID(s, "user")
	return UserID(u), err
}

func ParseCustomerID(s string) (CustomerID, error) {
	u, err := parseUUID(s, "customer")
	return CustomerID(u), err
}

func ParseVehicleID(s string) (VehicleID, error) {
	u, err := parseUUID(s, "vehicle")
	return VehicleID(u), err
}

func ParsePolicyID(s string) (PolicyID, error) {
	u, err := parseUUID(s, "policy")
	return PolicyID(u), err
}

func ParsePermitID(s string) (PermitID, error) {
	u, err := parseUUID(s, "permit")
	return PermitID(u), err
}

func ParsePermitTypeID(s string) (PermitTypeID, error) {
	u, err := parseUUID(s, "permit type")
	return PermitTypeID(u), err
}

func ParseLicenseID(s string) (LicenseID, error) {
	u, err := parseUUID(s, "license")
	return LicenseID(u), err
}

func ParsePaymentID(s string) (PaymentID, error) {
	u, err := parseUUID(s, "payment")
	return PaymentID(u), err
}
