package postgres

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"fleetcomply/internal/compliance/models"
	id "fleetcomply/pkg/domain"
	"fleetcomply/pkg/platform/sentinel"
)

// rowScanner abstracts *sql.Row and *sql.Rows for shared scan helpers.
type rowScanner interface {
	Scan(dest ...any) error
}

// fillRecord populates the embedded lifecycle record from scanned columns.
func fillRecord(r *models.Record, tenantID, vehicleID, createdBy, updatedBy uuid.UUID,
	cancelledBy uuid.NullUUID, status, reason string,
	endDate, activatedAt, cancelledAt, deletedAt sql.NullTime) {

	r.TenantID = id.TenantID(tenantID)
	r.VehicleID = id.VehicleID(vehicleID)
	r.Status = models.Status(status)
	r.CancellationReason = models.CancellationReason(reason)
	r.CreatedBy = id.UserID(createdBy)
	r.UpdatedBy = id.UserID(updatedBy)
	if cancelledBy.Valid {
		r.CancelledBy = id.UserID(cancelledBy.UUID)
	}
	r.EndDate = timePtr(endDate)
	r.ActivatedAt = timePtr(activatedAt)
	r.CancelledAt = timePtr(cancelledAt)
	r.DeletedAt = timePtr(deletedAt)
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time.UTC()
	return &v
}

func nullInt64(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}

// nullID maps the nil UUID to SQL NULL for optional reference columns.
func nullID(u uuid.UUID) uuid.NullUUID {
	if u == uuid.Nil {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: u, Valid: true}
}

// requireRow maps a zero-row UPDATE to the not-found sentinel.
func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}
