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

const policyColumns = `
	id, tenant_id, vehicle_id, policy_number, premium_amount, coverage_amount,
	policy_type, notes, start_date, end_date, status,
	activated_at, cancelled_at, cancelled_by, cancellation_reason, cancellation_note,
	created_by, updated_by, created_at, updated_at, deleted_at`

func (s *Store) CreatePolicy(ctx context.Context, p *models.Policy) error {
	tenantID, err := saveTenant(ctx, p.TenantID)
	if err != nil {
		return fmt.Errorf("create policy: %w", err)
	}
	query := `
		INSERT INTO policies (` + policyColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)
	`
	_, err = s.q(ctx).ExecContext(ctx, query,
		uuid.UUID(p.ID), uuid.UUID(tenantID), uuid.UUID(p.VehicleID),
		p.PolicyNumber, p.PremiumAmount, nullInt64(p.CoverageAmount),
		p.PolicyType, p.Notes, p.StartDate, nullTime(p.EndDate), string(p.Status),
		nullTime(p.ActivatedAt), nullTime(p.CancelledAt), nullID(uuid.UUID(p.CancelledBy)),
		string(p.CancellationReason), p.CancellationNote,
		uuid.UUID(p.CreatedBy), uuid.UUID(p.UpdatedBy), p.CreatedAt, p.UpdatedAt, nullTime(p.DeletedAt),
	)
	if err != nil {
		return fmt.Errorf("create policy: %w", mapErr(err))
	}
	return nil
}

func (s *Store) FindPolicy(ctx context.Context, policyID id.PolicyID) (*models.Policy, error) {
	query := `SELECT ` + policyColumns + ` FROM policies WHERE id = $1 AND deleted_at IS NULL`
	p, err := scanPolicy(s.q(ctx).QueryRowContext(ctx, query, uuid.UUID(policyID)))
	if err != nil {
		return nil, fmt.Errorf("find policy: %w", mapErr(err))
	}
	return p, nil
}

func (s *Store) FindPolicyForUpdate(ctx context.Context, policyID id.PolicyID) (*models.Policy, error) {
	query := `SELECT ` + policyColumns + ` FROM policies WHERE id = $1 AND deleted_at IS NULL FOR UPDATE`
	p, err := scanPolicy(s.q(ctx).QueryRowContext(ctx, query, uuid.UUID(policyID)))
	if err != nil {
		return nil, fmt.Errorf("find policy for update: %w", mapErr(err))
	}
	return p, nil
}

func (s *Store) UpdatePolicy(ctx context.Context, p *models.Policy) error {
	query := `
		UPDATE policies SET
			policy_number = $2, premium_amount = $3, coverage_amount = $4,
			policy_type = $5, notes = $6, start_date = $7, end_date = $8, status = $9,
			activated_at = $10, cancelled_at = $11, cancelled_by = $12,
			cancellation_reason = $13, cancellation_note = $14,
			updated_by = $15, updated_at = $16, deleted_at = $17
		WHERE id = $1
	`
	res, err := s.q(ctx).ExecContext(ctx, query,
		uuid.UUID(p.ID), p.PolicyNumber, p.PremiumAmount, nullInt64(p.CoverageAmount),
		p.PolicyType, p.Notes, p.StartDate, nullTime(p.EndDate), string(p.Status),
		nullTime(p.ActivatedAt), nullTime(p.CancelledAt), nullID(uuid.UUID(p.CancelledBy)),
		string(p.CancellationReason), p.CancellationNote,
		uuid.UUID(p.UpdatedBy), p.UpdatedAt, nullTime(p.DeletedAt),
	)
	if err != nil {
		return fmt.Errorf("update policy: %w", mapErr(err))
	}
	return requireRow(res)
}

// ListPolicies is the scoped read path: tenant from context, soft-deleted
// excluded, empty without a tenant.
func (s *Store) ListPolicies(ctx context.Context) ([]*models.Policy, error) {
	tenantID := requestcontext.TenantID(ctx)
	if tenantID.IsNil() {
		return []*models.Policy{}, nil
	}
	query := `
		SELECT ` + policyColumns + ` FROM policies
		WHERE tenant_id = $1 AND deleted_at IS NULL
		ORDER BY created_at DESC
	`
	rows, err := s.q(ctx).QueryContext(ctx, query, uuid.UUID(tenantID))
	if err != nil {
		return nil, fmt.Errorf("list policies: %w", err)
	}
	return collectPolicies(rows)
}

func (s *Store) ActivePoliciesByVehicle(ctx context.Context, tenantID id.TenantID, vehicleID id.VehicleID) ([]*models.Policy, error) {
	query := `
		SELECT ` + policyColumns + ` FROM policies
		WHERE tenant_id = $1 AND vehicle_id = $2 AND status = $3 AND deleted_at IS NULL
	`
	rows, err := s.q(ctx).QueryContext(ctx, query,
		uuid.UUID(tenantID), uuid.UUID(vehicleID), string(models.StatusActive))
	if err != nil {
		return nil, fmt.Errorf("active policies by vehicle: %w", err)
	}
	return collectPolicies(rows)
}

func (s *Store) CountPoliciesByNumberPrefix(ctx context.Context, tenantID id.TenantID, prefix string) (int, error) {
	query := `
		SELECT COUNT(*) FROM policies
		WHERE tenant_id = $1 AND policy_number LIKE $2 || '%' AND deleted_at IS NULL
	`
	var count int
	if err := s.q(ctx).QueryRowContext(ctx, query, uuid.UUID(tenantID), prefix).Scan(&count); err != nil {
		return 0, fmt.Errorf("count policies by number prefix: %w", err)
	}
	return count, nil
}

func (s *Store) ExpirablePolicies(ctx context.Context, before time.Time) ([]*models.Policy, error) {
	query := `
		SELECT ` + policyColumns + ` FROM policies
		WHERE status = $1 AND end_date IS NOT NULL AND end_date < $2 AND deleted_at IS NULL
	`
	rows, err := s.q(ctx).QueryContext(ctx, query, string(models.StatusActive), before)
	if err != nil {
		return nil, fmt.Errorf("expirable policies: %w", err)
	}
	return collectPolicies(rows)
}

func scanPolicy(row *sql.Row) (*models.Policy, error) {
	var (
		p                        models.Policy
		pid, tenantID, vehicleID uuid.UUID
		createdBy, updatedBy     uuid.UUID
		cancelledBy              uuid.NullUUID
		coverage                 sql.NullInt64
		status, reason           string
		endDate, activatedAt     sql.NullTime
		cancelledAt, deletedAt   sql.NullTime
	)
	err := row.Scan(
		&pid, &tenantID, &vehicleID, &p.PolicyNumber, &p.PremiumAmount, &coverage,
		&p.PolicyType, &p.Notes, &p.StartDate, &endDate, &status,
		&activatedAt, &cancelledAt, &cancelledBy, &reason, &p.CancellationNote,
		&createdBy, &updatedBy, &p.CreatedAt, &p.UpdatedAt, &deletedAt,
	)
	if err != nil {
		return nil, err
	}
	p.ID = id.PolicyID(pid)
	fillRecord(&p.Record, tenantID, vehicleID, createdBy, updatedBy, cancelledBy,
		status, reason, endDate, activatedAt, cancelledAt, deletedAt)
	if coverage.Valid {
		cov := coverage.Int64
		p.CoverageAmount = &cov
	}
	return &p, nil
}

func collectPolicies(rows *sql.Rows) ([]*models.Policy, error) {
	defer rows.Close()
	policies := []*models.Policy{}
	for rows.Next() {
		var (
			p                        models.Policy
			pid, tenantID, vehicleID uuid.UUID
			createdBy, updatedBy     uuid.UUID
			cancelledBy              uuid.NullUUID
			coverage                 sql.NullInt64
			status, reason           string
			endDate, activatedAt     sql.NullTime
			cancelledAt, deletedAt   sql.NullTime
		)
		err := rows.Scan(
			&pid, &tenantID, &vehicleID, &p.PolicyNumber, &p.PremiumAmount, &coverage,
			&p.PolicyType, &p.Notes, &p.StartDate, &endDate, &status,
			&activatedAt, &cancelledAt, &cancelledBy, &reason, &p.CancellationNote,
			&createdBy, &updatedBy, &p.CreatedAt, &p.UpdatedAt, &deletedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan policy: %w", err)
		}
		p.ID = id.PolicyID(pid)
		fillRecord(&p.Record, tenantID, vehicleID, createdBy, updatedBy, cancelledBy,
			status, reason, endDate, activatedAt, cancelledAt, deletedAt)
		if coverage.Valid {
			cov := coverage.Int64
			p.CoverageAmount = &cov
		}
		policies = append(policies, &p)
	}
	return policies, rows.Err()
}
