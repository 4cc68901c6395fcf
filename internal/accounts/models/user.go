package models

import (
	"strings"
	"time"

	id "fleetcomply/pkg/domain"
	dErrors "fleetcomply/pkg/domain-errors"
)

// Role is a tenant-scoped permission level.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleManager Role = "manager"
	RoleStaff   Role = "staff"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleManager, RoleStaff:
		return true
	}
	return false
}

// User is an actor inside a tenant, or a platform-level super admin.
//
// Super admins administer the platform itself: they carry no tenant and are
// barred from mutating business data. Lifecycle operations reject them even
// when a tenant happens to be set on their record.
type User struct {
	ID       id.UserID   `json:"id"`
	TenantID id.TenantID `json:"tenant_id,omitempty"`

	Name  string `json:"name"`
	Email string `json:"email"`
	Role  Role   `json:"role"`

	SuperAdmin bool `json:"super_admin"`
	Active     bool `json:"active"`

	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
}

// NewUser builds an active tenant user.
func NewUser(userID id.UserID, tenantID id.TenantID, name, email string, role Role, now time.Time) (*User, error) {
	name = strings.TrimSpace(name)
	email = strings.ToLower(strings.TrimSpace(email))
	if name == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "user name cannot be empty").WithField("name")
	}
	if email == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "user email cannot be empty").WithField("email")
	}
	if !role.Valid() {
		return nil, dErrors.Newf(dErrors.CodeInvariantViolation, "unknown role: %s", role).WithField("role")
	}
	if tenantID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "user requires a tenant").WithField("tenant_id")
	}
	return &User{
		ID:        userID,
		TenantID:  tenantID,
		Name:      name,
		Email:     email,
		Role:      role,
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// CanManageCompliance reports whether the user's role permits lifecycle
// mutations (activation, cancellation, payment verification).
func (u *User) CanManageCompliance() bool {
	return u.Role == RoleAdmin || u.Role == RoleManager
}
