package models

import (
	"regexp"
	"strings"
	"time"

	id "fleetcomply/pkg/domain"
	dErrors "fleetcomply/pkg/domain-errors"
)

// Tenant is an isolated insurance organization; the unit of data partitioning.
//
// Invariants:
//   - Name is non-empty and at most 255 characters
//   - Slug is non-empty, lowercase, URL-safe, unique per deployment
//   - A soft-deleted or inactive tenant's users cannot reach tenant-owned
//     data: the middleware boundary refuses to establish a tenant context
//     for them, and without a tenant context the scoped read paths return
//     nothing
//
// Deactivation is an immediate security boundary: records under the tenant
// need no cascading status change because every read path checks the tenant
// first.
type Tenant struct {
	ID   id.TenantID `json:"id"`
	Name string      `json:"name"`
	Slug string      `json:"slug"`

	Active bool `json:"active"`

	// Settings holds tenant-specific configuration such as
	// expiry_reminder_days or fleet_policy_enabled.
	Settings map[string]any `json:"settings,omitempty"`

	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
}

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

// NewTenant builds an active tenant.
func NewTenant(tenantID id.TenantID, name, slug string, now time.Time) (*Tenant, error) {
	name = strings.TrimSpace(name)
	slug = strings.TrimSpace(strings.ToLower(slug))
	if name == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "tenant name cannot be empty").WithField("name")
	}
	if len(name) > 255 {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "tenant name must be 255 characters or less").WithField("name")
	}
	if !slugPattern.MatchString(slug) {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "tenant slug must be lowercase and URL-safe").WithField("slug")
	}
	return &Tenant{
		ID:        tenantID,
		Name:      name,
		Slug:      slug,
		Active:    true,
		Settings:  map[string]any{},
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// IsActive reports whether the tenant may access the system. Soft-deleted
// tenants are never active.
func (t *Tenant) IsActive() bool {
	return t.Active && t.DeletedAt == nil
}

// CanDeactivate checks the active -> inactive transition.
func (t *Tenant) CanDeactivate() error {
	if !t.Active {
		return dErrors.New(dErrors.CodeInvariantViolation, "tenant is already inactive")
	}
	return nil
}

// ApplyDeactivation transitions the tenant to inactive.
// Call CanDeactivate first to validate the transition.
func (t *Tenant) ApplyDeactivation(now time.Time) {
	t.Active = false
	t.UpdatedAt = now
}

// CanReactivate checks the inactive -> active transition.
func (t *Tenant) CanReactivate() error {
	if t.Active {
		return dErrors.New(dErrors.CodeInvariantViolation, "tenant is already active")
	}
	if t.DeletedAt != nil {
		return dErrors.New(dErrors.CodeInvariantViolation, "cannot reactivate a deleted tenant")
	}
	return nil
}

// ApplyReactivation transitions the tenant back to active.
func (t *Tenant) ApplyReactivation(now time.Time) {
	t.Active = true
	t.UpdatedAt = now
}

// SoftDelete hides the tenant and everything under it from normal paths.
func (t *Tenant) SoftDelete(now time.Time) {
	t.DeletedAt = &now
	t.UpdatedAt = now
}
