// Package service implements the compliance core: creation services, the
// lifecycle state machine, the payment gate, and compliance status queries.
package service

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	accounts "fleetcomply/internal/accounts/models"
	"fleetcomply/internal/compliance/models"
	fleet "fleetcomply/internal/fleet/models"
	"fleetcomply/internal/notification"
	"fleetcomply/internal/platform/metrics"
	tenant "fleetcomply/internal/tenant/models"
	id "fleetcomply/pkg/domain"
)

// PolicyStore is the policy slice of the scoped data access layer.
//
// ListPolicies is the default read path: it resolves the current tenant from
// the request context, filters to it, and excludes soft-deleted rows; with no
// tenant set it returns an empty result, never cross-tenant data.
//
// The remaining methods are the administrative path used by lifecycle
// internals: they bypass the implicit scope but always take the tenant filter
// (or a primary key) explicitly from the caller.
type PolicyStore interface {
	CreatePolicy(ctx context.Context, policy *models.Policy) error
	FindPolicy(ctx context.Context, policyID id.PolicyID) (*models.Policy, error)
	// FindPolicyForUpdate loads a non-deleted policy under an exclusive row
	// lock for the duration of the surrounding transaction.
	FindPolicyForUpdate(ctx context.Context, policyID id.PolicyID) (*models.Policy, error)
	UpdatePolicy(ctx context.Context, policy *models.Policy) error
	ListPolicies(ctx context.Context) ([]*models.Policy, error)
	ActivePoliciesByVehicle(ctx context.Context, tenantID id.TenantID, vehicleID id.VehicleID) ([]*models.Policy, error)
	CountPoliciesByNumberPrefix(ctx context.Context, tenantID id.TenantID, prefix string) (int, error)
	// ExpirablePolicies lists active policies across all tenants whose end
	// date is strictly before the given day. Used by the expiry sweep.
	ExpirablePolicies(ctx context.Context, before time.Time) ([]*models.Policy, error)
}

// PermitStore mirrors PolicyStore for road-use permits.
type PermitStore interface {
	CreatePermit(ctx context.Context, permit *models.Permit) error
	FindPermitForUpdate(ctx context.Context, permitID id.PermitID) (*models.Permit, error)
	UpdatePermit(ctx context.Context, permit *models.Permit) error
	ListPermits(ctx context.Context) ([]*models.Permit, error)
	ActivePermitsByVehicle(ctx context.Context, tenantID id.TenantID, vehicleID id.VehicleID) ([]*models.Permit, error)
	ExpirablePermits(ctx context.Context, before time.Time) ([]*models.Permit, error)
}

// PermitTypeStore holds tenant-scoped permit type configuration.
type PermitTypeStore interface {
	CreatePermitType(ctx context.Context, permitType *models.PermitType) error
	FindPermitType(ctx context.Context, tenantID id.TenantID, typeID id.PermitTypeID) (*models.PermitType, error)
	// DeclareConflict records a mutual incompatibility between two types of
	// the same tenant. The relation is stored once but read symmetrically.
	DeclareConflict(ctx context.Context, tenantID id.TenantID, a, b id.PermitTypeID) error
	// ConflictingTypeIDs resolves the conflict set for a type, checking the
	// relation in both directions.
	ConflictingTypeIDs(ctx context.Context, tenantID id.TenantID, typeID id.PermitTypeID) ([]id.PermitTypeID, error)
}

// LicenseStore mirrors PolicyStore for registration licenses.
type LicenseStore interface {
	CreateLicense(ctx context.Context, license *models.RegistrationLicense) error
	FindLicenseForUpdate(ctx context.Context, licenseID id.LicenseID) (*models.RegistrationLicense, error)
	UpdateLicense(ctx context.Context, license *models.RegistrationLicense) error
	ListLicenses(ctx context.Context) ([]*models.RegistrationLicense, error)
	ActiveLicensesByVehicle(ctx context.Context, tenantID id.TenantID, vehicleID id.VehicleID) ([]*models.RegistrationLicense, error)
	ExpirableLicenses(ctx context.Context, before time.Time) ([]*models.RegistrationLicense, error)
}

// PaymentStore holds policy payments.
type PaymentStore interface {
	CreatePayment(ctx context.Context, payment *models.Payment) error
	FindPaymentForUpdate(ctx context.Context, paymentID id.PaymentID) (*models.Payment, error)
	UpdatePayment(ctx context.Context, payment *models.Payment) error
	PaymentsByPolicy(ctx context.Context, tenantID id.TenantID, policyID id.PolicyID) ([]*models.Payment, error)
	// VerifiedTotalByPolicy sums verified, non-rejected, non-deleted payment
	// amounts for a policy.
	VerifiedTotalByPolicy(ctx context.Context, tenantID id.TenantID, policyID id.PolicyID) (int64, error)
}

// VehicleStore resolves vehicles for tenant-consistency checks and tenant
// compliance summaries.
type VehicleStore interface {
	FindVehicle(ctx context.Context, vehicleID id.VehicleID) (*fleet.Vehicle, error)
	VehiclesByTenant(ctx context.Context, tenantID id.TenantID) ([]*fleet.Vehicle, error)
}

// TenantStore resolves tenants for creation-time checks and for the slug
// embedded in generated policy numbers.
type TenantStore interface {
	FindTenant(ctx context.Context, tenantID id.TenantID) (*tenant.Tenant, error)
}

// ActorStore resolves the acting user for authorization checks.
type ActorStore interface {
	FindUser(ctx context.Context, userID id.UserID) (*accounts.User, error)
}

// Tx runs fn inside one atomic transaction. Any error rolls the whole
// attempt back; no partial lifecycle writes are ever persisted.
type Tx interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// ReportCache is the optional read-side cache for compliance reports. It is
// never consulted for lifecycle decisions.
type ReportCache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Service orchestrates compliance record lifecycles.
type Service struct {
	policies    PolicyStore
	permits     PermitStore
	permitTypes PermitTypeStore
	licenses    LicenseStore
	payments    PaymentStore
	vehicles    VehicleStore
	tenants     TenantStore
	actors      ActorStore
	tx          Tx

	publisher notification.Publisher
	logger    *slog.Logger
	metrics   *metrics.Metrics
	cache     ReportCache
	tracer    trace.Tracer

	riskWindowDays int
}

// Option configures the Service.
type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithPublisher(publisher notification.Publisher) Option {
	return func(s *Service) { s.publisher = publisher }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithReportCache(cache ReportCache) Option {
	return func(s *Service) { s.cache = cache }
}

// WithRiskWindowDays overrides the default expiry risk window used by
// compliance status queries.
func WithRiskWindowDays(days int) Option {
	return func(s *Service) { s.riskWindowDays = days }
}

// Stores bundles the persistence ports so New keeps a readable signature.
type Stores struct {
	Policies    PolicyStore
	Permits     PermitStore
	PermitTypes PermitTypeStore
	Licenses    LicenseStore
	Payments    PaymentStore
	Vehicles    VehicleStore
	Tenants     TenantStore
	Actors      ActorStore
	Tx          Tx
}

// New constructs a Service.
func New(stores Stores, opts ...Option) *Service {
	s := &Service{
		policies:       stores.Policies,
		permits:        stores.Permits,
		permitTypes:    stores.PermitTypes,
		licenses:       stores.Licenses,
		payments:       stores.Payments,
		vehicles:       stores.Vehicles,
		tenants:        stores.Tenants,
		actors:         stores.Actors,
		tx:             stores.Tx,
		tracer:         otel.Tracer("fleetcomply/compliance"),
		riskWindowDays: DefaultRiskWindowDays,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// DefaultRiskWindowDays is how far ahead compliance queries look for
// expiring coverage when the caller does not say.
const DefaultRiskWindowDays = 30
