package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	accounts "fleetcomply/internal/accounts/models"
	fleet "fleetcomply/internal/fleet/models"
	tenant "fleetcomply/internal/tenant/models"
	id "fleetcomply/pkg/domain"
)

// Directory lookups: tenants, users and vehicles. The compliance service only
// reads these; their write paths live with the tenant and fleet services.

func (s *Store) FindTenant(ctx context.Context, tenantID id.TenantID) (*tenant.Tenant, error) {
	query := `
		SELECT id, name, slug, active, created_at, updated_at, deleted_at
		FROM tenants WHERE id = $1
	`
	var (
		t         tenant.Tenant
		tid       uuid.UUID
		deletedAt = nullTime(nil)
	)
	err := s.q(ctx).QueryRowContext(ctx, query, uuid.UUID(tenantID)).
		Scan(&tid, &t.Name, &t.Slug, &t.Active, &t.CreatedAt, &t.UpdatedAt, &deletedAt)
	if err != nil {
		return nil, fmt.Errorf("find tenant: %w", mapErr(err))
	}
	t.ID = id.TenantID(tid)
	t.DeletedAt = timePtr(deletedAt)
	return &t, nil
}

func (s *Store) FindUser(ctx context.Context, userID id.UserID) (*accounts.User, error) {
	query := `
		SELECT id, tenant_id, name, email, role, super_admin, active, created_at, updated_at, deleted_at
		FROM users WHERE id = $1 AND active AND deleted_at IS NULL
	`
	var (
		u         accounts.User
		uid       uuid.UUID
		tenantID  uuid.NullUUID
		role      string
		deletedAt = nullTime(nil)
	)
	err := s.q(ctx).QueryRowContext(ctx, query, uuid.UUID(userID)).
		Scan(&uid, &tenantID, &u.Name, &u.Email, &role, &u.SuperAdmin, &u.Active,
			&u.CreatedAt, &u.UpdatedAt, &deletedAt)
	if err != nil {
		return nil, fmt.Errorf("find user: %w", mapErr(err))
	}
	u.ID = id.UserID(uid)
	if tenantID.Valid {
		u.TenantID = id.TenantID(tenantID.UUID)
	}
	u.Role = accounts.Role(role)
	u.DeletedAt = timePtr(deletedAt)
	return &u, nil
}

func (s *Store) FindVehicle(ctx context.Context, vehicleID id.VehicleID) (*fleet.Vehicle, error) {
	query := `
		SELECT id, tenant_id, customer_id, registration_number, make, model, year,
		       created_at, updated_at, deleted_at
		FROM vehicles WHERE id = $1 AND deleted_at IS NULL
	`
	v, err := scanVehicle(s.q(ctx).QueryRowContext(ctx, query, uuid.UUID(vehicleID)))
	if err != nil {
		return nil, fmt.Errorf("find vehicle: %w", mapErr(err))
	}
	return v, nil
}

func (s *Store) VehiclesByTenant(ctx context.Context, tenantID id.TenantID) ([]*fleet.Vehicle, error) {
	query := `
		SELECT id, tenant_id, customer_id, registration_number, make, model, year,
		       created_at, updated_at, deleted_at
		FROM vehicles WHERE tenant_id = $1 AND deleted_at IS NULL
		ORDER BY registration_number
	`
	rows, err := s.q(ctx).QueryContext(ctx, query, uuid.UUID(tenantID))
	if err != nil {
		return nil, fmt.Errorf("vehicles by tenant: %w", err)
	}
	defer rows.Close()

	vehicles := []*fleet.Vehicle{}
	for rows.Next() {
		v, err := scanVehicle(rows)
		if err != nil {
			return nil, fmt.Errorf("scan vehicle: %w", err)
		}
		vehicles = append(vehicles, v)
	}
	return vehicles, rows.Err()
}

func scanVehicle(sc rowScanner) (*fleet.Vehicle, error) {
	var (
		v                    fleet.Vehicle
		vid, tid, customerID uuid.UUID
		deletedAt            = nullTime(nil)
	)
	err := sc.Scan(&vid, &tid, &customerID, &v.RegistrationNumber, &v.Make, &v.Model, &v.Year,
		&v.CreatedAt, &v.UpdatedAt, &deletedAt)
	if err != nil {
		return nil, err
	}
	v.ID = id.VehicleID(vid)
	v.TenantID = id.TenantID(tid)
	v.CustomerID = id.CustomerID(customerID)
	v.DeletedAt = timePtr(deletedAt)
	return &v, nil
}
