// Package postgres persists compliance data in PostgreSQL.
//
// Stores are pure I/O; guards and transitions belong to the service layer.
// Lifecycle loads use SELECT ... FOR UPDATE so concurrent transitions on one
// record serialize at the row lock, and every guard the service runs inside
// RunInTx observes a settled row.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"fleetcomply/internal/compliance/service"
	id "fleetcomply/pkg/domain"
	"fleetcomply/pkg/platform/sentinel"
	"fleetcomply/pkg/platform/tx"
	"fleetcomply/pkg/requestcontext"
)

// Store implements every compliance persistence port against one database.
type Store struct {
	db *sql.DB
}

// New constructs a PostgreSQL-backed store.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// RunInTx opens a transaction, stores it in the context for the nested store
// calls, and commits or rolls back around fn.
func (s *Store) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	dbTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx.WithTx(ctx, dbTx)); err != nil {
		if rbErr := dbTx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			return fmt.Errorf("rollback after %w: %v", err, rbErr)
		}
		return err
	}
	if err := dbTx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// querier is the common subset of *sql.DB and *sql.Tx the stores need.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// q returns the transaction from context when inside RunInTx, else the pool.
func (s *Store) q(ctx context.Context) querier {
	if dbTx, ok := tx.From(ctx); ok {
		return dbTx
	}
	return s.db
}

// saveTenant resolves the owning tenant for a new row, the write side of
// tenant scoping: an unset tenant is populated from the request context, a
// set tenant must match it, and a context without a tenant may only write
// explicitly-owned rows in bulk-import mode (fixtures, migrations).
func saveTenant(ctx context.Context, current id.TenantID) (id.TenantID, error) {
	if requestcontext.HasTenant(ctx) {
		scope := requestcontext.TenantID(ctx)
		if current.IsNil() {
			return scope, nil
		}
		if current != scope {
			return id.TenantID{}, fmt.Errorf("save crosses the tenant boundary: %w", sentinel.ErrInvalidState)
		}
		return current, nil
	}
	if current.IsNil() || !requestcontext.BulkImport(ctx) {
		return id.TenantID{}, fmt.Errorf("save without a resolvable tenant: %w", sentinel.ErrInvalidState)
	}
	return current, nil
}

// mapErr translates driver errors to the shared sentinels.
func mapErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return sentinel.ErrNotFound
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return sentinel.ErrConflict
	}
	return err
}

// Stores bundles the postgres store into the service's port set.
func (s *Store) Stores() service.Stores {
	return service.Stores{
		Policies:    s,
		Permits:     s,
		PermitTypes: s,
		Licenses:    s,
		Payments:    s,
		Vehicles:    s,
		Tenants:     s,
		Actors:      s,
		Tx:          s,
	}
}

var (
	_ service.PolicyStore     = (*Store)(nil)
	_ service.PermitStore     = (*Store)(nil)
	_ service.PermitTypeStore = (*Store)(nil)
	_ service.LicenseStore    = (*Store)(nil)
	_ service.PaymentStore    = (*Store)(nil)
	_ service.VehicleStore    = (*Store)(nil)
	_ service.TenantStore     = (*Store)(nil)
	_ service.ActorStore      = (*Store)(nil)
	_ service.Tx              = (*Store)(nil)
)
