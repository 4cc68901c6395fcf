// Package memory provides an in-memory store implementing every compliance
// persistence port. It backs unit tests and local development.
//
// RunInTx serializes callers behind one mutex, which emulates the exclusive
// row locking of the SQL store coarsely: only one lifecycle transaction runs
// at a time, so every guard observes a settled state.
package memory

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	accounts "fleetcomply/internal/accounts/models"
	"fleetcomply/internal/compliance/models"
	"fleetcomply/internal/compliance/service"
	fleet "fleetcomply/internal/fleet/models"
	tenant "fleetcomply/internal/tenant/models"
	id "fleetcomply/pkg/domain"
	"fleetcomply/pkg/platform/sentinel"
	"fleetcomply/pkg/requestcontext"
)

// InMemory holds all entities in maps keyed by ID. Reads and writes copy
// values on the way in and out so callers never alias stored state.
type InMemory struct {
	mu sync.Mutex
	// txMu serializes RunInTx bodies.
	txMu sync.Mutex

	tenants     map[id.TenantID]*tenant.Tenant
	users       map[id.UserID]*accounts.User
	customers   map[id.CustomerID]*fleet.Customer
	vehicles    map[id.VehicleID]*fleet.Vehicle
	policies    map[id.PolicyID]*models.Policy
	permits     map[id.PermitID]*models.Permit
	permitTypes map[id.PermitTypeID]*models.PermitType
	licenses    map[id.LicenseID]*models.RegistrationLicense
	payments    map[id.PaymentID]*models.Payment

	// conflicts stores declared permit type incompatibilities one-directionally;
	// lookups check both directions.
	conflicts map[id.PermitTypeID][]id.PermitTypeID
}

// New creates an empty store.
func New() *InMemory {
	return &InMemory{
		tenants:     make(map[id.TenantID]*tenant.Tenant),
		users:       make(map[id.UserID]*accounts.User),
		customers:   make(map[id.CustomerID]*fleet.Customer),
		vehicles:    make(map[id.VehicleID]*fleet.Vehicle),
		policies:    make(map[id.PolicyID]*models.Policy),
		permits:     make(map[id.PermitID]*models.Permit),
		permitTypes: make(map[id.PermitTypeID]*models.PermitType),
		licenses:    make(map[id.LicenseID]*models.RegistrationLicense),
		payments:    make(map[id.PaymentID]*models.Payment),
		conflicts:   make(map[id.PermitTypeID][]id.PermitTypeID),
	}
}

// RunInTx serializes fn behind the transaction mutex. The in-memory store has
// no rollback; service-layer guards run before any write, so a failed guard
// simply leaves the maps untouched.
func (s *InMemory) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()
	return fn(ctx)
}

// --- seed helpers (tests and local development) ---

// SeedTenant stores a tenant.
func (s *InMemory) SeedTenant(t *tenant.Tenant) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *t
	s.tenants[t.ID] = &cp
}

// SeedUser stores a user.
func (s *InMemory) SeedUser(u *accounts.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *u
	s.users[u.ID] = &cp
}

// SeedCustomer stores a customer.
func (s *InMemory) SeedCustomer(c *fleet.Customer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *c
	s.customers[c.ID] = &cp
}

// SeedVehicle stores a vehicle.
func (s *InMemory) SeedVehicle(v *fleet.Vehicle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *v
	s.vehicles[v.ID] = &cp
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

// --- TenantStore ---

func (s *InMemory) FindTenant(_ context.Context, tenantID id.TenantID) (*tenant.Tenant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tenants[tenantID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

// --- ActorStore ---

func (s *InMemory) FindUser(_ context.Context, userID id.UserID) (*accounts.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok || !u.Active {
		return nil, sentinel.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

// --- VehicleStore ---

func (s *InMemory) FindVehicle(_ context.Context, vehicleID id.VehicleID) (*fleet.Vehicle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.vehicles[vehicleID]
	if !ok || v.DeletedAt != nil {
		return nil, sentinel.ErrNotFound
	}
	cp := *v
	return &cp, nil
}

func (s *InMemory) VehiclesByTenant(_ context.Context, tenantID id.TenantID) ([]*fleet.Vehicle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*fleet.Vehicle
	for _, v := range s.vehicles {
		if v.TenantID == tenantID && v.DeletedAt == nil {
			cp := *v
			out = append(out, &cp)
		}
	}
	return out, nil
}

// --- PolicyStore ---

func (s *InMemory) CreatePolicy(ctx context.Context, policy *models.Policy) error {
	tenantID, err := saveTenant(ctx, policy.TenantID)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.policies[policy.ID]; exists {
		return sentinel.ErrConflict
	}
	for _, p := range s.policies {
		if p.TenantID == tenantID && p.DeletedAt == nil && p.PolicyNumber == policy.PolicyNumber {
			return sentinel.ErrConflict
		}
	}
	cp := clonePolicy(policy)
	cp.TenantID = tenantID
	s.policies[policy.ID] = cp
	return nil
}

func (s *InMemory) FindPolicy(_ context.Context, policyID id.PolicyID) (*models.Policy, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.policies[policyID]
	if !ok || p.DeletedAt != nil {
		return nil, sentinel.ErrNotFound
	}
	return clonePolicy(p), nil
}

func (s *InMemory) FindPolicyForUpdate(ctx context.Context, policyID id.PolicyID) (*models.Policy, error) {
	return s.FindPolicy(ctx, policyID)
}

func (s *InMemory) UpdatePolicy(_ context.Context, policy *models.Policy) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.policies[policy.ID]; !ok {
		return sentinel.ErrNotFound
	}
	s.policies[policy.ID] = clonePolicy(policy)
	return nil
}

func (s *InMemory) ListPolicies(ctx context.Context) ([]*models.Policy, error) {
	tenantID := requestcontext.TenantID(ctx)
	out := []*models.Policy{}
	if tenantID.IsNil() {
		return out, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.policies {
		if p.TenantID == tenantID && p.DeletedAt == nil {
			out = append(out, clonePolicy(p))
		}
	}
	return out, nil
}

func (s *InMemory) ActivePoliciesByVehicle(_ context.Context, tenantID id.TenantID, vehicleID id.VehicleID) ([]*models.Policy, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.Policy
	for _, p := range s.policies {
		if p.TenantID == tenantID && p.VehicleID == vehicleID &&
			p.Status == models.StatusActive && p.DeletedAt == nil {
			out = append(out, clonePolicy(p))
		}
	}
	return out, nil
}

func (s *InMemory) CountPoliciesByNumberPrefix(_ context.Context, tenantID id.TenantID, prefix string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for _, p := range s.policies {
		if p.TenantID == tenantID && p.DeletedAt == nil && strings.HasPrefix(p.PolicyNumber, prefix) {
			count++
		}
	}
	return count, nil
}

func (s *InMemory) ExpirablePolicies(_ context.Context, before time.Time) ([]*models.Policy, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.Policy
	for _, p := range s.policies {
		if p.Status == models.StatusActive && p.DeletedAt == nil &&
			p.EndDate != nil && p.EndDate.Before(before) {
			out = append(out, clonePolicy(p))
		}
	}
	return out, nil
}

// --- PermitStore ---

func (s *InMemory) CreatePermit(ctx context.Context, permit *models.Permit) error {
	tenantID, err := saveTenant(ctx, permit.TenantID)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.permits[permit.ID]; exists {
		return sentinel.ErrConflict
	}
	cp := clonePermit(permit)
	cp.TenantID = tenantID
	s.permits[permit.ID] = cp
	return nil
}

func (s *InMemory) FindPermitForUpdate(_ context.Context, permitID id.PermitID) (*models.Permit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.permits[permitID]
	if !ok || p.DeletedAt != nil {
		return nil, sentinel.ErrNotFound
	}
	return clonePermit(p), nil
}

func (s *InMemory) UpdatePermit(_ context.Context, permit *models.Permit) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.permits[permit.ID]; !ok {
		return sentinel.ErrNotFound
	}
	s.permits[permit.ID] = clonePermit(permit)
	return nil
}

func (s *InMemory) ListPermits(ctx context.Context) ([]*models.Permit, error) {
	tenantID := requestcontext.TenantID(ctx)
	out := []*models.Permit{}
	if tenantID.IsNil() {
		return out, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.permits {
		if p.TenantID == tenantID && p.DeletedAt == nil {
			out = append(out, clonePermit(p))
		}
	}
	return out, nil
}

func (s *InMemory) ActivePermitsByVehicle(_ context.Context, tenantID id.TenantID, vehicleID id.VehicleID) ([]*models.Permit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.Permit
	for _, p := range s.permits {
		if p.TenantID == tenantID && p.VehicleID == vehicleID &&
			p.Status == models.StatusActive && p.DeletedAt == nil {
			out = append(out, clonePermit(p))
		}
	}
	return out, nil
}

func (s *InMemory) ExpirablePermits(_ context.Context, before time.Time) ([]*models.Permit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.Permit
	for _, p := range s.permits {
		if p.Status == models.StatusActive && p.DeletedAt == nil &&
			p.EndDate != nil && p.EndDate.Before(before) {
			out = append(out, clonePermit(p))
		}
	}
	return out, nil
}

// --- PermitTypeStore ---

func (s *InMemory) CreatePermitType(ctx context.Context, permitType *models.PermitType) error {
	tenantID, err := saveTenant(ctx, permitType.TenantID)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.permitTypes[permitType.ID]; exists {
		return sentinel.ErrConflict
	}
	cp := clonePermitType(permitType)
	cp.TenantID = tenantID
	s.permitTypes[permitType.ID] = cp
	return nil
}

func (s *InMemory) FindPermitType(_ context.Context, tenantID id.TenantID, typeID id.PermitTypeID) (*models.PermitType, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.permitTypes[typeID]
	if !ok || t.TenantID != tenantID {
		return nil, sentinel.ErrNotFound
	}
	return clonePermitType(t), nil
}

func (s *InMemory) DeclareConflict(_ context.Context, tenantID id.TenantID, a, b id.PermitTypeID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ta, okA := s.permitTypes[a]
	tb, okB := s.permitTypes[b]
	if !okA || !okB || ta.TenantID != tenantID || tb.TenantID != tenantID {
		return sentinel.ErrNotFound
	}
	for _, existing := range s.conflicts[a] {
		if existing == b {
			return nil
		}
	}
	s.conflicts[a] = append(s.conflicts[a], b)
	return nil
}

func (s *InMemory) ConflictingTypeIDs(_ context.Context, tenantID id.TenantID, typeID id.PermitTypeID) ([]id.PermitTypeID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.permitTypes[typeID]
	if !ok || t.TenantID != tenantID {
		return nil, sentinel.ErrNotFound
	}
	seen := make(map[id.PermitTypeID]struct{})
	var out []id.PermitTypeID
	for _, other := range s.conflicts[typeID] {
		if _, dup := seen[other]; !dup {
			seen[other] = struct{}{}
			out = append(out, other)
		}
	}
	// Reverse direction: types that declared a conflict with typeID.
	for declarer, targets := range s.conflicts {
		for _, target := range targets {
			if target == typeID {
				if _, dup := seen[declarer]; !dup {
					seen[declarer] = struct{}{}
					out = append(out, declarer)
				}
			}
		}
	}
	return out, nil
}

// --- LicenseStore ---

func (s *InMemory) CreateLicense(ctx context.Context, license *models.RegistrationLicense) error {
	tenantID, err := saveTenant(ctx, license.TenantID)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.licenses[license.ID]; exists {
		return sentinel.ErrConflict
	}
	for _, l := range s.licenses {
		if l.TenantID == tenantID && l.DeletedAt == nil && l.LicenseNumber == license.LicenseNumber {
			return sentinel.ErrConflict
		}
	}
	cp := cloneLicense(license)
	cp.TenantID = tenantID
	s.licenses[license.ID] = cp
	return nil
}

func (s *InMemory) FindLicenseForUpdate(_ context.Context, licenseID id.LicenseID) (*models.RegistrationLicense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.licenses[licenseID]
	if !ok || l.DeletedAt != nil {
		return nil, sentinel.ErrNotFound
	}
	return cloneLicense(l), nil
}

func (s *InMemory) UpdateLicense(_ context.Context, license *models.RegistrationLicense) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.licenses[license.ID]; !ok {
		return sentinel.ErrNotFound
	}
	s.licenses[license.ID] = cloneLicense(license)
	return nil
}

func (s *InMemory) ListLicenses(ctx context.Context) ([]*models.RegistrationLicense, error) {
	tenantID := requestcontext.TenantID(ctx)
	out := []*models.RegistrationLicense{}
	if tenantID.IsNil() {
		return out, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, l := range s.licenses {
		if l.TenantID == tenantID && l.DeletedAt == nil {
			out = append(out, cloneLicense(l))
		}
	}
	return out, nil
}

func (s *InMemory) ActiveLicensesByVehicle(_ context.Context, tenantID id.TenantID, vehicleID id.VehicleID) ([]*models.RegistrationLicense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.RegistrationLicense
	for _, l := range s.licenses {
		if l.TenantID == tenantID && l.VehicleID == vehicleID &&
			l.Status == models.StatusActive && l.DeletedAt == nil {
			out = append(out, cloneLicense(l))
		}
	}
	return out, nil
}

func (s *InMemory) ExpirableLicenses(_ context.Context, before time.Time) ([]*models.RegistrationLicense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.RegistrationLicense
	for _, l := range s.licenses {
		if l.Status == models.StatusActive && l.DeletedAt == nil &&
			l.EndDate != nil && l.EndDate.Before(before) {
			out = append(out, cloneLicense(l))
		}
	}
	return out, nil
}

// --- PaymentStore ---

func (s *InMemory) CreatePayment(ctx context.Context, payment *models.Payment) error {
	tenantID, err := saveTenant(ctx, payment.TenantID)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.payments[payment.ID]; exists {
		return sentinel.ErrConflict
	}
	cp := clonePayment(payment)
	cp.TenantID = tenantID
	s.payments[payment.ID] = cp
	return nil
}

func (s *InMemory) FindPaymentForUpdate(_ context.Context, paymentID id.PaymentID) (*models.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.payments[paymentID]
	if !ok || p.DeletedAt != nil {
		return nil, sentinel.ErrNotFound
	}
	return clonePayment(p), nil
}

func (s *InMemory) UpdatePayment(_ context.Context, payment *models.Payment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.payments[payment.ID]; !ok {
		return sentinel.ErrNotFound
	}
	s.payments[payment.ID] = clonePayment(payment)
	return nil
}

func (s *InMemory) PaymentsByPolicy(_ context.Context, tenantID id.TenantID, policyID id.PolicyID) ([]*models.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.Payment
	for _, p := range s.payments {
		if p.TenantID == tenantID && p.PolicyID == policyID && p.DeletedAt == nil {
			out = append(out, clonePayment(p))
		}
	}
	return out, nil
}

func (s *InMemory) VerifiedTotalByPolicy(_ context.Context, tenantID id.TenantID, policyID id.PolicyID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var total int64
	for _, p := range s.payments {
		if p.TenantID == tenantID && p.PolicyID == policyID &&
			p.Verified && !p.IsRejected() && p.DeletedAt == nil {
			total += p.Amount
		}
	}
	return total, nil
}

// --- clone helpers ---

func clonePolicy(p *models.Policy) *models.Policy {
	cp := *p
	cp.Record = cloneRecord(&p.Record)
	if p.CoverageAmount != nil {
		v := *p.CoverageAmount
		cp.CoverageAmount = &v
	}
	return &cp
}

func clonePermit(p *models.Permit) *models.Permit {
	cp := *p
	cp.Record = cloneRecord(&p.Record)
	return &cp
}

func cloneLicense(l *models.RegistrationLicense) *models.RegistrationLicense {
	cp := *l
	cp.Record = cloneRecord(&l.Record)
	return &cp
}

func clonePermitType(t *models.PermitType) *models.PermitType {
	cp := *t
	cp.ConflictsWith = append([]id.PermitTypeID(nil), t.ConflictsWith...)
	return &cp
}

func clonePayment(p *models.Payment) *models.Payment {
	cp := *p
	cp.VerifiedAt = cloneTime(p.VerifiedAt)
	cp.RejectedAt = cloneTime(p.RejectedAt)
	cp.DeletedAt = cloneTime(p.DeletedAt)
	return &cp
}

func cloneRecord(r *models.Record) models.Record {
	cp := *r
	cp.EndDate = cloneTime(r.EndDate)
	cp.ActivatedAt = cloneTime(r.ActivatedAt)
	cp.CancelledAt = cloneTime(r.CancelledAt)
	cp.DeletedAt = cloneTime(r.DeletedAt)
	return cp
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

var (
	_ service.PolicyStore     = (*InMemory)(nil)
	_ service.PermitStore     = (*InMemory)(nil)
	_ service.PermitTypeStore = (*InMemory)(nil)
	_ service.LicenseStore    = (*InMemory)(nil)
	_ service.PaymentStore    = (*InMemory)(nil)
	_ service.VehicleStore    = (*InMemory)(nil)
	_ service.TenantStore     = (*InMemory)(nil)
	_ service.ActorStore      = (*InMemory)(nil)
	_ service.Tx              = (*InMemory)(nil)
)

// Stores bundles the in-memory store into the service's port set.
func (s *InMemory) Stores() service.Stores {
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
