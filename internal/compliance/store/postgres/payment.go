package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"fleetcomply/internal/compliance/models"
	id "fleetcomply/pkg/domain"
)

const paymentColumns = `
	id, tenant_id, policy_id, amount, method, reference_number, payer_name, notes, payment_date,
	verified, verified_by, verified_at, rejected_by, rejected_at, rejection_note,
	created_by, created_at, updated_at, deleted_at`

func (s *Store) CreatePayment(ctx context.Context, p *models.Payment) error {
	tenantID, err := saveTenant(ctx, p.TenantID)
	if err != nil {
		return fmt.Errorf("create payment: %w", err)
	}
	query := `
		INSERT INTO policy_payments (` + paymentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
	`
	_, err = s.q(ctx).ExecContext(ctx, query,
		uuid.UUID(p.ID), uuid.UUID(tenantID), uuid.UUID(p.PolicyID),
		p.Amount, string(p.Method), p.ReferenceNumber, p.PayerName, p.Notes, p.PaymentDate,
		p.Verified, nullID(uuid.UUID(p.VerifiedBy)), nullTime(p.VerifiedAt),
		nullID(uuid.UUID(p.RejectedBy)), nullTime(p.RejectedAt), p.RejectionNote,
		uuid.UUID(p.CreatedBy), p.CreatedAt, p.UpdatedAt, nullTime(p.DeletedAt),
	)
	if err != nil {
		return fmt.Errorf("create payment: %w", mapErr(err))
	}
	return nil
}

func (s *Store) FindPaymentForUpdate(ctx context.Context, paymentID id.PaymentID) (*models.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM policy_payments WHERE id = $1 AND deleted_at IS NULL FOR UPDATE`
	p, err := scanPayment(s.q(ctx).QueryRowContext(ctx, query, uuid.UUID(paymentID)))
	if err != nil {
		return nil, fmt.Errorf("find payment for update: %w", mapErr(err))
	}
	return p, nil
}

func (s *Store) UpdatePayment(ctx context.Context, p *models.Payment) error {
	query := `
		UPDATE policy_payments SET
			amount = $2, method = $3, reference_number = $4, payer_name = $5, notes = $6,
			payment_date = $7, verified = $8, verified_by = $9, verified_at = $10,
			rejected_by = $11, rejected_at = $12, rejection_note = $13,
			updated_at = $14, deleted_at = $15
		WHERE id = $1
	`
	res, err := s.q(ctx).ExecContext(ctx, query,
		uuid.UUID(p.ID), p.Amount, string(p.Method), p.ReferenceNumber, p.PayerName, p.Notes,
		p.PaymentDate, p.Verified, nullID(uuid.UUID(p.VerifiedBy)), nullTime(p.VerifiedAt),
		nullID(uuid.UUID(p.RejectedBy)), nullTime(p.RejectedAt), p.RejectionNote,
		p.UpdatedAt, nullTime(p.DeletedAt),
	)
	if err != nil {
		return fmt.Errorf("update payment: %w", mapErr(err))
	}
	return requireRow(res)
}

func (s *Store) PaymentsByPolicy(ctx context.Context, tenantID id.TenantID, policyID id.PolicyID) ([]*models.Payment, error) {
	query := `
		SELECT ` + paymentColumns + ` FROM policy_payments
		WHERE tenant_id = $1 AND policy_id = $2 AND deleted_at IS NULL
		ORDER BY created_at DESC
	`
	rows, err := s.q(ctx).QueryContext(ctx, query, uuid.UUID(tenantID), uuid.UUID(policyID))
	if err != nil {
		return nil, fmt.Errorf("payments by policy: %w", err)
	}
	defer rows.Close()

	payments := []*models.Payment{}
	for rows.Next() {
		p, err := scanPaymentRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scan payment: %w", err)
		}
		payments = append(payments, p)
	}
	return payments, rows.Err()
}

func (s *Store) VerifiedTotalByPolicy(ctx context.Context, tenantID id.TenantID, policyID id.PolicyID) (int64, error) {
	query := `
		SELECT COALESCE(SUM(amount), 0) FROM policy_payments
		WHERE tenant_id = $1 AND policy_id = $2
		  AND verified AND rejected_at IS NULL AND deleted_at IS NULL
	`
	var total int64
	if err := s.q(ctx).QueryRowContext(ctx, query, uuid.UUID(tenantID), uuid.UUID(policyID)).Scan(&total); err != nil {
		return 0, fmt.Errorf("verified total by policy: %w", err)
	}
	return total, nil
}

func scanPayment(row *sql.Row) (*models.Payment, error) {
	return scanPaymentFrom(row)
}

func scanPaymentRow(rows *sql.Rows) (*models.Payment, error) {
	return scanPaymentFrom(rows)
}

func scanPaymentFrom(sc rowScanner) (*models.Payment, error) {
	var (
		p                       models.Payment
		pid, tenantID, policyID uuid.UUID
		createdBy               uuid.UUID
		verifiedBy, rejectedBy  uuid.NullUUID
		method                  string
		verifiedAt, rejectedAt  sql.NullTime
		deletedAt               sql.NullTime
	)
	err := sc.Scan(
		&pid, &tenantID, &policyID, &p.Amount, &method, &p.ReferenceNumber,
		&p.PayerName, &p.Notes, &p.PaymentDate,
		&p.Verified, &verifiedBy, &verifiedAt, &rejectedBy, &rejectedAt, &p.RejectionNote,
		&createdBy, &p.CreatedAt, &p.UpdatedAt, &deletedAt,
	)
	if err != nil {
		return nil, err
	}
	p.ID = id.PaymentID(pid)
	p.TenantID = id.TenantID(tenantID)
	p.PolicyID = id.PolicyID(policyID)
	p.Method = models.PaymentMethod(method)
	p.CreatedBy = id.UserID(createdBy)
	if verifiedBy.Valid {
		p.VerifiedBy = id.UserID(verifiedBy.UUID)
	}
	if rejectedBy.Valid {
		p.RejectedBy = id.UserID(rejectedBy.UUID)
	}
	p.VerifiedAt = timePtr(verifiedAt)
	p.RejectedAt = timePtr(rejectedAt)
	p.DeletedAt = timePtr(deletedAt)
	return &p, nil
}
