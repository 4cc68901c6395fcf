// Package models holds the fleet entities compliance records attach to.
package models

import (
	"strings"
	"time"

	id "fleetcomply/pkg/domain"
	dErrors "fleetcomply/pkg/domain-errors"
)

// Customer owns vehicles within a tenant.
type Customer struct {
	ID       id.CustomerID `json:"id"`
	TenantID id.TenantID   `json:"tenant_id"`

	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`

	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
}

// NewCustomer builds a customer under a tenant.
func NewCustomer(customerID id.CustomerID, tenantID id.TenantID, name string, now time.Time) (*Customer, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "customer name cannot be empty").WithField("name")
	}
	if tenantID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "customer requires a tenant").WithField("tenant_id")
	}
	return &Customer{
		ID:        customerID,
		TenantID:  tenantID,
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// Vehicle is the unit compliance records attach to. A vehicle belongs to
// exactly one customer; its tenant must equal the owning customer's tenant.
type Vehicle struct {
	ID         id.VehicleID  `json:"id"`
	TenantID   id.TenantID   `json:"tenant_id"`
	CustomerID id.CustomerID `json:"customer_id"`

	RegistrationNumber string `json:"registration_number"`
	Make               string `json:"make,omitempty"`
	Model              string `json:"model,omitempty"`
	Year               int    `json:"year,omitempty"`

	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
}

// NewVehicle builds a vehicle under a customer. The tenant is taken from the
// owner, never supplied independently, so the cross-reference invariant
// holds by construction.
func NewVehicle(vehicleID id.VehicleID, owner *Customer, registration string, now time.Time) (*Vehicle, error) {
	if owner == nil {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "vehicle requires an owner").WithField("customer_id")
	}
	registration = strings.ToUpper(strings.TrimSpace(registration))
	if registration == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "registration number is required").WithField("registration_number")
	}
	return &Vehicle{
		ID:                 vehicleID,
		TenantID:           owner.TenantID,
		CustomerID:         owner.ID,
		RegistrationNumber: registration,
		CreatedAt:          now,
		UpdatedAt:          now,
	}, nil
}
