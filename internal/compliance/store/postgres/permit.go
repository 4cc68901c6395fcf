package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"fleetcomply/internal/compliance/models"
	id "fleetcomply/pkg/domain"
	"fleetcomply/pkg/requestcontext"
)

const permitColumns = `
	id, tenant_id, vehicle_id, permit_type_id, reference_number,
	start_date, end_date, status,
	activated_at, cancelled_at, cancelled_by, cancellation_reason, cancellation_note,
	created_by, updated_by, created_at, updated_at, deleted_at`

func (s *Store) CreatePermit(ctx context.Context, p *models.Permit) error {
	tenantID, err := saveTenant(ctx, p.TenantID)
	if err != nil {
		return fmt.Errorf("create permit: %w", err)
	}
	query := `
		INSERT INTO permits (` + permitColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
	`
	_, err = s.q(ctx).ExecContext(ctx, query,
		uuid.UUID(p.ID), uuid.UUID(tenantID), uuid.UUID(p.VehicleID),
		uuid.UUID(p.PermitTypeID), p.ReferenceNumber,
		p.StartDate, nullTime(p.EndDate), string(p.Status),
		nullTime(p.ActivatedAt), nullTime(p.CancelledAt), nullID(uuid.UUID(p.CancelledBy)),
		string(p.CancellationReason), p.CancellationNote,
		uuid.UUID(p.CreatedBy), uuid.UUID(p.UpdatedBy), p.CreatedAt, p.UpdatedAt, nullTime(p.DeletedAt),
	)
	if err != nil {
		return fmt.Errorf("create permit: %w", mapErr(err))
	}
	return nil
}

func (s *Store) FindPermitForUpdate(ctx context.Context, permitID id.PermitID) (*models.Permit, error) {
	query := `SELECT ` + permitColumns + ` FROM permits WHERE id = $1 AND deleted_at IS NULL FOR UPDATE`
	p, err := scanPermit(s.q(ctx).QueryRowContext(ctx, query, uuid.UUID(permitID)))
	if err != nil {
		return nil, fmt.Errorf("find permit for update: %w", mapErr(err))
	}
	return p, nil
}

func scanPermit(row *sql.Row) (*models.Permit, error) {
	var (
		p                        models.Permit
		pid, tenantID, vehicleID uuid.UUID
		permitTypeID             uuid.UUID
		createdBy, updatedBy     uuid.UUID
		cancelledBy              uuid.NullUUID
		status, reason           string
		endDate, activatedAt     sql.NullTime
		cancelledAt, deletedAt   sql.NullTime
	)
	err := row.Scan(
		&pid, &tenantID, &vehicleID, &permitTypeID, &p.ReferenceNumber,
		&p.StartDate, &endDate, &status,
		&activatedAt, &cancelledAt, &cancelledBy, &reason, &p.CancellationNote,
		&createdBy, &updatedBy, &p.CreatedAt, &p.UpdatedAt, &deletedAt,
	)
	if err != nil {
		return nil, err
	}
	p.ID = id.PermitID(pid)
	p.PermitTypeID = id.PermitTypeID(permitTypeID)
	fillRecord(&p.Record, tenantID, vehicleID, createdBy, updatedBy, cancelledBy,
		status, reason, endDate, activatedAt, cancelledAt, deletedAt)
	return &p, nil
}

func (s *Store) UpdatePermit(ctx context.Context, p *models.Permit) error {
	query := `
		UPDATE permits SET
			permit_type_id = $2, reference_number = $3,
			start_date = $4, end_date = $5, status = $6,
			activated_at = $7, cancelled_at = $8, cancelled_by = $9,
			cancellation_reason = $10, cancellation_note = $11,
			updated_by = $12, updated_at = $13, deleted_at = $14
		WHERE id = $1
	`
	res, err := s.q(ctx).ExecContext(ctx, query,
		uuid.UUID(p.ID), uuid.UUID(p.PermitTypeID), p.ReferenceNumber,
		p.StartDate, nullTime(p.EndDate), string(p.Status),
		nullTime(p.ActivatedAt), nullTime(p.CancelledAt), nullID(uuid.UUID(p.CancelledBy)),
		string(p.CancellationReason), p.CancellationNote,
		uuid.UUID(p.UpdatedBy), p.UpdatedAt, nullTime(p.DeletedAt),
	)
	if err != nil {
		return fmt.Errorf("update permit: %w", mapErr(err))
	}
	return requireRow(res)
}

func (s *Store) ListPermits(ctx context.Context) ([]*models.Permit, error) {
	tenantID := requestcontext.TenantID(ctx)
	if tenantID.IsNil() {
		return []*models.Permit{}, nil
	}
	query := `
		SELECT ` + permitColumns + ` FROM permits
		WHERE tenant_id = $1 AND deleted_at IS NULL
		ORDER BY created_at DESC
	`
	rows, err := s.q(ctx).QueryContext(ctx, query, uuid.UUID(tenantID))
	if err != nil {
		return nil, fmt.Errorf("list permits: %w", err)
	}
	return collectPermits(rows)
}

func (s *Store) ActivePermitsByVehicle(ctx context.Context, tenantID id.TenantID, vehicleID id.VehicleID) ([]*models.Permit, error) {
	query := `
		SELECT ` + permitColumns + ` FROM permits
		WHERE tenant_id = $1 AND vehicle_id = $2 AND status = $3 AND deleted_at IS NULL
	`
	rows, err := s.q(ctx).QueryContext(ctx, query,
		uuid.UUID(tenantID), uuid.UUID(vehicleID), string(models.StatusActive))
	if err != nil {
		return nil, fmt.Errorf("active permits by vehicle: %w", err)
	}
	return collectPermits(rows)
}

func (s *Store) ExpirablePermits(ctx context.Context, before time.Time) ([]*models.Permit, error) {
	query := `
		SELECT ` + permitColumns + ` FROM permits
		WHERE status = $1 AND end_date IS NOT NULL AND end_date < $2 AND deleted_at IS NULL
	`
	rows, err := s.q(ctx).QueryContext(ctx, query, string(models.StatusActive), before)
	if err != nil {
		return nil, fmt.Errorf("expirable permits: %w", err)
	}
	return collectPermits(rows)
}

func collectPermits(rows *sql.Rows) ([]*models.Permit, error) {
	defer rows.Close()
	permits := []*models.Permit{}
	for rows.Next() {
		var (
			p                        models.Permit
			pid, tenantID, vehicleID uuid.UUID
			permitTypeID             uuid.UUID
			createdBy, updatedBy     uuid.UUID
			cancelledBy              uuid.NullUUID
			status, reason           string
			endDate, activatedAt     sql.NullTime
			cancelledAt, deletedAt   sql.NullTime
		)
		err := rows.Scan(
			&pid, &tenantID, &vehicleID, &permitTypeID, &p.ReferenceNumber,
			&p.StartDate, &endDate, &status,
			&activatedAt, &cancelledAt, &cancelledBy, &reason, &p.CancellationNote,
			&createdBy, &updatedBy, &p.CreatedAt, &p.UpdatedAt, &deletedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan permit: %w", err)
		}
		p.ID = id.PermitID(pid)
		p.PermitTypeID = id.PermitTypeID(permitTypeID)
		fillRecord(&p.Record, tenantID, vehicleID, createdBy, updatedBy, cancelledBy,
			status, reason, endDate, activatedAt, cancelledAt, deletedAt)
		permits = append(permits, &p)
	}
	return permits, rows.Err()
}

// --- permit types ---

func (s *Store) CreatePermitType(ctx context.Context, t *models.PermitType) error {
	tenantID, err := saveTenant(ctx, t.TenantID)
	if err != nil {
		return fmt.Errorf("create permit type: %w", err)
	}
	query := `
		INSERT INTO permit_types (id, tenant_id, name, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err = s.q(ctx).ExecContext(ctx, query,
		uuid.UUID(t.ID), uuid.UUID(tenantID), t.Name, t.Active, t.CreatedAt, t.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create permit type: %w", mapErr(err))
	}
	return nil
}

func (s *Store) FindPermitType(ctx context.Context, tenantID id.TenantID, typeID id.PermitTypeID) (*models.PermitType, error) {
	query := `
		SELECT id, tenant_id, name, active, created_at, updated_at
		FROM permit_types WHERE id = $1 AND tenant_id = $2
	`
	var (
		t        models.PermitType
		tid, ten uuid.UUID
	)
	err := s.q(ctx).QueryRowContext(ctx, query, uuid.UUID(typeID), uuid.UUID(tenantID)).
		Scan(&tid, &ten, &t.Name, &t.Active, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("find permit type: %w", mapErr(err))
	}
	t.ID = id.PermitTypeID(tid)
	t.TenantID = id.TenantID(ten)
	return &t, nil
}

func (s *Store) DeclareConflict(ctx context.Context, tenantID id.TenantID, a, b id.PermitTypeID) error {
	query := `
		INSERT INTO permit_type_conflicts (tenant_id, permit_type_id, conflicts_with_id)
		VALUES ($1, $2, $3)
		ON CONFLICT DO NOTHING
	`
	_, err := s.q(ctx).ExecContext(ctx, query,
		uuid.UUID(tenantID), uuid.UUID(a), uuid.UUID(b))
	if err != nil {
		return fmt.Errorf("declare permit type conflict: %w", mapErr(err))
	}
	return nil
}

// ConflictingTypeIDs reads the conflict relation in both directions; it may
// have been declared from either side.
func (s *Store) ConflictingTypeIDs(ctx context.Context, tenantID id.TenantID, typeID id.PermitTypeID) ([]id.PermitTypeID, error) {
	query := `
		SELECT conflicts_with_id FROM permit_type_conflicts
		WHERE tenant_id = $1 AND permit_type_id = $2
		UNION
		SELECT permit_type_id FROM permit_type_conflicts
		WHERE tenant_id = $1 AND conflicts_with_id = $2
	`
	rows, err := s.q(ctx).QueryContext(ctx, query, uuid.UUID(tenantID), uuid.UUID(typeID))
	if err != nil {
		return nil, fmt.Errorf("conflicting type ids: %w", err)
	}
	defer rows.Close()

	var out []id.PermitTypeID
	for rows.Next() {
		var u uuid.UUID
		if err := rows.Scan(&u); err != nil {
			return nil, fmt.Errorf("scan conflicting type id: %w", err)
		}
		out = append(out, id.PermitTypeID(u))
	}
	return out, rows.Err()
}
