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

const licenseColumns = `
	id, tenant_id, vehicle_id, license_number, license_type, route, issuing_authority,
	start_date, end_date, status,
	activated_at, cancelled_at, cancelled_by, cancellation_reason, cancellation_note,
	created_by, updated_by, created_at, updated_at, deleted_at`

func (s *Store) CreateLicense(ctx context.Context, l *models.RegistrationLicense) error {
	tenantID, err := saveTenant(ctx, l.TenantID)
	if err != nil {
		return fmt.Errorf("create license: %w", err)
	}
	query := `
		INSERT INTO registration_licenses (` + licenseColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
	`
	_, err = s.q(ctx).ExecContext(ctx, query,
		uuid.UUID(l.ID), uuid.UUID(tenantID), uuid.UUID(l.VehicleID),
		l.LicenseNumber, l.LicenseType, l.Route, l.IssuingAuthority,
		l.StartDate, nullTime(l.EndDate), string(l.Status),
		nullTime(l.ActivatedAt), nullTime(l.CancelledAt), nullID(uuid.UUID(l.CancelledBy)),
		string(l.CancellationReason), l.CancellationNote,
		uuid.UUID(l.CreatedBy), uuid.UUID(l.UpdatedBy), l.CreatedAt, l.UpdatedAt, nullTime(l.DeletedAt),
	)
	if err != nil {
		return fmt.Errorf("create license: %w", mapErr(err))
	}
	return nil
}

func (s *Store) FindLicenseForUpdate(ctx context.Context, licenseID id.LicenseID) (*models.RegistrationLicense, error) {
	query := `SELECT ` + licenseColumns + ` FROM registration_licenses WHERE id = $1 AND deleted_at IS NULL FOR UPDATE`
	l, err := scanLicense(s.q(ctx).QueryRowContext(ctx, query, uuid.UUID(licenseID)))
	if err != nil {
		return nil, fmt.Errorf("find license for update: %w", mapErr(err))
	}
	return l, nil
}

func (s *Store) UpdateLicense(ctx context.Context, l *models.RegistrationLicense) error {
	query := `
		UPDATE registration_licenses SET
			license_number = $2, license_type = $3, route = $4, issuing_authority = $5,
			start_date = $6, end_date = $7, status = $8,
			activated_at = $9, cancelled_at = $10, cancelled_by = $11,
			cancellation_reason = $12, cancellation_note = $13,
			updated_by = $14, updated_at = $15, deleted_at = $16
		WHERE id = $1
	`
	res, err := s.q(ctx).ExecContext(ctx, query,
		uuid.UUID(l.ID), l.LicenseNumber, l.LicenseType, l.Route, l.IssuingAuthority,
		l.StartDate, nullTime(l.EndDate), string(l.Status),
		nullTime(l.ActivatedAt), nullTime(l.CancelledAt), nullID(uuid.UUID(l.CancelledBy)),
		string(l.CancellationReason), l.CancellationNote,
		uuid.UUID(l.UpdatedBy), l.UpdatedAt, nullTime(l.DeletedAt),
	)
	if err != nil {
		return fmt.Errorf("update license: %w", mapErr(err))
	}
	return requireRow(res)
}

func (s *Store) ListLicenses(ctx context.Context) ([]*models.RegistrationLicense, error) {
	tenantID := requestcontext.TenantID(ctx)
	if tenantID.IsNil() {
		return []*models.RegistrationLicense{}, nil
	}
	query := `
		SELECT ` + licenseColumns + ` FROM registration_licenses
		WHERE tenant_id = $1 AND deleted_at IS NULL
		ORDER BY created_at DESC
	`
	rows, err := s.q(ctx).QueryContext(ctx, query, uuid.UUID(tenantID))
	if err != nil {
		return nil, fmt.Errorf("list licenses: %w", err)
	}
	return collectLicenses(rows)
}

func (s *Store) ActiveLicensesByVehicle(ctx context.Context, tenantID id.TenantID, vehicleID id.VehicleID) ([]*models.RegistrationLicense, error) {
	query := `
		SELECT ` + licenseColumns + ` FROM registration_licenses
		WHERE tenant_id = $1 AND vehicle_id = $2 AND status = $3 AND deleted_at IS NULL
	`
	rows, err := s.q(ctx).QueryContext(ctx, query,
		uuid.UUID(tenantID), uuid.UUID(vehicleID), string(models.StatusActive))
	if err != nil {
		return nil, fmt.Errorf("active licenses by vehicle: %w", err)
	}
	return collectLicenses(rows)
}

func (s *Store) ExpirableLicenses(ctx context.Context, before time.Time) ([]*models.RegistrationLicense, error) {
	query := `
		SELECT ` + licenseColumns + ` FROM registration_licenses
		WHERE status = $1 AND end_date IS NOT NULL AND end_date < $2 AND deleted_at IS NULL
	`
	rows, err := s.q(ctx).QueryContext(ctx, query, string(models.StatusActive), before)
	if err != nil {
		return nil, fmt.Errorf("expirable licenses: %w", err)
	}
	return collectLicenses(rows)
}

func scanLicense(row *sql.Row) (*models.RegistrationLicense, error) {
	var (
		l                        models.RegistrationLicense
		lid, tenantID, vehicleID uuid.UUID
		createdBy, updatedBy     uuid.UUID
		cancelledBy              uuid.NullUUID
		status, reason           string
		endDate, activatedAt     sql.NullTime
		cancelledAt, deletedAt   sql.NullTime
	)
	err := row.Scan(
		&lid, &tenantID, &vehicleID, &l.LicenseNumber, &l.LicenseType, &l.Route, &l.IssuingAuthority,
		&l.StartDate, &endDate, &status,
		&activatedAt, &cancelledAt, &cancelledBy, &reason, &l.CancellationNote,
		&createdBy, &updatedBy, &l.CreatedAt, &l.UpdatedAt, &deletedAt,
	)
	if err != nil {
		return nil, err
	}
	l.ID = id.LicenseID(lid)
	fillRecord(&l.Record, tenantID, vehicleID, createdBy, updatedBy, cancelledBy,
		status, reason, endDate, activatedAt, cancelledAt, deletedAt)
	return &l, nil
}

func collectLicenses(rows *sql.Rows) ([]*models.RegistrationLicense, error) {
	defer rows.Close()
	licenses := []*models.RegistrationLicense{}
	for rows.Next() {
		var (
			l                        models.RegistrationLicense
			lid, tenantID, vehicleID uuid.UUID
			createdBy, updatedBy     uuid.UUID
			cancelledBy              uuid.NullUUID
			status, reason           string
			endDate, activatedAt     sql.NullTime
			cancelledAt, deletedAt   sql.NullTime
		)
		err := rows.Scan(
			&lid, &tenantID, &vehicleID, &l.LicenseNumber, &l.LicenseType, &l.Route, &l.IssuingAuthority,
			&l.StartDate, &endDate, &status,
			&activatedAt, &cancelledAt, &cancelledBy, &reason, &l.CancellationNote,
			&createdBy, &updatedBy, &l.CreatedAt, &l.UpdatedAt, &deletedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan license: %w", err)
		}
		l.ID = id.LicenseID(lid)
		fillRecord(&l.Record, tenantID, vehicleID, createdBy, updatedBy, cancelledBy,
			status, reason, endDate, activatedAt, cancelledAt, deletedAt)
		licenses = append(licenses, &l)
	}
	return licenses, rows.Err()
}
