package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"fleetcomply/internal/compliance/models"
	id "fleetcomply/pkg/domain"
	"fleetcomply/pkg/platform/sentinel"
	"fleetcomply/pkg/requestcontext"
)

// =============================================================================
// In-Memory Store Test Suite
// =============================================================================
// The scoped read paths are the tenant isolation boundary; these tests prove
// the default paths never return another tenant's rows or soft-deleted rows,
// and that the store copies values instead of aliasing them.

type MemoryStoreSuite struct {
	suite.Suite
	store *InMemory
	now   time.Time

	tenantA id.TenantID
	tenantB id.TenantID
	vehicle id.VehicleID
}

func TestMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(MemoryStoreSuite))
}

func (s *MemoryStoreSuite) SetupTest() {
	s.store = New()
	s.now = time.Date(2026, time.March, 15, 12, 0, 0, 0, time.UTC)
	s.tenantA = id.NewTenantID()
	s.tenantB = id.NewTenantID()
	s.vehicle = id.NewVehicleID()
}

// bulkCtx seeds rows the way a fixture loader would: no request tenant,
// bulk-import mode on.
func (s *MemoryStoreSuite) bulkCtx() context.Context {
	return requestcontext.WithBulkImport(context.Background())
}

func (s *MemoryStoreSuite) policy(tenantID id.TenantID, number string) *models.Policy {
	p, err := models.NewPolicy(id.NewPolicyID(), tenantID, s.vehicle, number,
		models.Date(2026, time.April, 1), models.Date(2026, time.September, 30),
		10000, id.NewUserID(), s.now)
	s.Require().NoError(err)
	return p
}

// =============================================================================
// Scoped read paths
// =============================================================================

func (s *MemoryStoreSuite) TestListPoliciesScoping() {
	ctx := s.bulkCtx()
	s.Require().NoError(s.store.CreatePolicy(ctx, s.policy(s.tenantA, "POL-A-1")))
	s.Require().NoError(s.store.CreatePolicy(ctx, s.policy(s.tenantA, "POL-A-2")))
	s.Require().NoError(s.store.CreatePolicy(ctx, s.policy(s.tenantB, "POL-B-1")))

	s.Run("returns only the context tenant's rows", func() {
		scoped := requestcontext.WithTenantID(ctx, s.tenantA)
		policies, err := s.store.ListPolicies(scoped)
		s.Require().NoError(err)
		s.Len(policies, 2)
		for _, p := range policies {
			s.Equal(s.tenantA, p.TenantID)
		}
	})

	s.Run("returns empty without a tenant in context", func() {
		policies, err := s.store.ListPolicies(ctx)
		s.Require().NoError(err)
		s.Empty(policies)
	})

	s.Run("excludes soft-deleted rows", func() {
		scoped := requestcontext.WithTenantID(ctx, s.tenantA)
		policies, err := s.store.ListPolicies(scoped)
		s.Require().NoError(err)
		s.Require().Len(policies, 2)

		policies[0].SoftDelete(s.now)
		s.Require().NoError(s.store.UpdatePolicy(ctx, policies[0]))

		remaining, err := s.store.ListPolicies(scoped)
		s.Require().NoError(err)
		s.Len(remaining, 1)
	})
}

func (s *MemoryStoreSuite) TestFindExcludesDeleted() {
	ctx := s.bulkCtx()
	p := s.policy(s.tenantA, "POL-DEL")
	s.Require().NoError(s.store.CreatePolicy(ctx, p))

	p.SoftDelete(s.now)
	s.Require().NoError(s.store.UpdatePolicy(ctx, p))

	_, err := s.store.FindPolicy(ctx, p.ID)
	s.ErrorIs(err, sentinel.ErrNotFound)
	_, err = s.store.FindPolicyForUpdate(ctx, p.ID)
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *MemoryStoreSuite) TestReadsDoNotAliasStoredState() {
	ctx := s.bulkCtx()
	p := s.policy(s.tenantA, "POL-ALIAS")
	s.Require().NoError(s.store.CreatePolicy(ctx, p))

	loaded, err := s.store.FindPolicy(ctx, p.ID)
	s.Require().NoError(err)
	loaded.Status = models.StatusCancelled

	again, err := s.store.FindPolicy(ctx, p.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusPendingPayment, again.Status)
}

// =============================================================================
// Save-side tenant resolution
// =============================================================================

func (s *MemoryStoreSuite) TestCreateTenantResolution() {
	s.Run("save without a resolvable tenant is refused", func() {
		err := s.store.CreatePolicy(context.Background(), s.policy(s.tenantA, "POL-NOCTX"))
		s.ErrorIs(err, sentinel.ErrInvalidState)
	})

	s.Run("bulk import may write explicitly owned rows", func() {
		err := s.store.CreatePolicy(s.bulkCtx(), s.policy(s.tenantA, "POL-BULK"))
		s.NoError(err)
	})

	s.Run("unset tenant is populated from the request context", func() {
		scoped := requestcontext.WithTenantID(context.Background(), s.tenantA)
		p := s.policy(s.tenantA, "POL-CTX")
		p.TenantID = id.TenantID{}
		s.Require().NoError(s.store.CreatePolicy(scoped, p))

		loaded, err := s.store.FindPolicy(scoped, p.ID)
		s.Require().NoError(err)
		s.Equal(s.tenantA, loaded.TenantID)
	})

	s.Run("save cannot cross the tenant boundary", func() {
		scoped := requestcontext.WithTenantID(context.Background(), s.tenantA)
		err := s.store.CreatePolicy(scoped, s.policy(s.tenantB, "POL-CROSS"))
		s.ErrorIs(err, sentinel.ErrInvalidState)
	})
}

// =============================================================================
// Uniqueness
// =============================================================================

func (s *MemoryStoreSuite) TestPolicyNumberUniquePerTenant() {
	ctx := s.bulkCtx()
	s.Require().NoError(s.store.CreatePolicy(ctx, s.policy(s.tenantA, "POL-DUP")))

	s.Run("same number in same tenant conflicts", func() {
		err := s.store.CreatePolicy(ctx, s.policy(s.tenantA, "POL-DUP"))
		s.ErrorIs(err, sentinel.ErrConflict)
	})

	s.Run("same number in another tenant is fine", func() {
		s.NoError(s.store.CreatePolicy(ctx, s.policy(s.tenantB, "POL-DUP")))
	})

	s.Run("deleting the holder frees the number", func() {
		scoped := requestcontext.WithTenantID(ctx, s.tenantA)
		policies, err := s.store.ListPolicies(scoped)
		s.Require().NoError(err)
		s.Require().Len(policies, 1)
		policies[0].SoftDelete(s.now)
		s.Require().NoError(s.store.UpdatePolicy(ctx, policies[0]))

		s.NoError(s.store.CreatePolicy(ctx, s.policy(s.tenantA, "POL-DUP")))
	})
}

// =============================================================================
// Permit type conflicts
// =============================================================================

func (s *MemoryStoreSuite) TestConflictingTypeIDsBothDirections() {
	ctx := s.bulkCtx()
	city, err := models.NewPermitType(id.NewPermitTypeID(), s.tenantA, "City", s.now)
	s.Require().NoError(err)
	intercity, err := models.NewPermitType(id.NewPermitTypeID(), s.tenantA, "Intercity", s.now)
	s.Require().NoError(err)
	s.Require().NoError(s.store.CreatePermitType(ctx, city))
	s.Require().NoError(s.store.CreatePermitType(ctx, intercity))

	// Declared from one side only.
	s.Require().NoError(s.store.DeclareConflict(ctx, s.tenantA, city.ID, intercity.ID))

	forward, err := s.store.ConflictingTypeIDs(ctx, s.tenantA, city.ID)
	s.Require().NoError(err)
	s.Equal([]id.PermitTypeID{intercity.ID}, forward)

	reverse, err := s.store.ConflictingTypeIDs(ctx, s.tenantA, intercity.ID)
	s.Require().NoError(err)
	s.Equal([]id.PermitTypeID{city.ID}, reverse)

	s.Run("declaring again is idempotent", func() {
		s.Require().NoError(s.store.DeclareConflict(ctx, s.tenantA, city.ID, intercity.ID))
		forward, err := s.store.ConflictingTypeIDs(ctx, s.tenantA, city.ID)
		s.Require().NoError(err)
		s.Len(forward, 1)
	})

	s.Run("other tenant cannot see the types", func() {
		_, err := s.store.ConflictingTypeIDs(ctx, s.tenantB, city.ID)
		s.ErrorIs(err, sentinel.ErrNotFound)
	})
}

// =============================================================================
// Payments
// =============================================================================

func (s *MemoryStoreSuite) TestVerifiedTotalByPolicy() {
	ctx := s.bulkCtx()
	policyID := id.NewPolicyID()

	mk := func(amount int64, verified, rejected bool) {
		p, err := models.NewPayment(id.NewPaymentID(), s.tenantA, policyID,
			amount, models.PaymentMethodCash, "R-"+id.NewPaymentID().String()[:8], id.NewUserID(), s.now)
		s.Require().NoError(err)
		if verified {
			s.Require().NoError(p.Verify(id.NewUserID(), s.now))
		}
		if rejected {
			s.Require().NoError(p.Reject(id.NewUserID(), "bad", s.now))
		}
		s.Require().NoError(s.store.CreatePayment(ctx, p))
	}

	mk(10000, true, false)
	mk(500, false, false) // pending: not counted
	mk(700, false, true)  // rejected: not counted

	total, err := s.store.VerifiedTotalByPolicy(ctx, s.tenantA, policyID)
	s.Require().NoError(err)
	s.Equal(int64(10000), total)

	other, err := s.store.VerifiedTotalByPolicy(ctx, s.tenantB, policyID)
	s.Require().NoError(err)
	s.Zero(other)
}

// =============================================================================
// Expirable listings
// =============================================================================

func (s *MemoryStoreSuite) TestExpirablePolicies() {
	ctx := s.bulkCtx()

	past := s.policy(s.tenantA, "POL-PAST")
	past.ApplyActivation(s.now, id.NewUserID())
	endPast := models.Date(2026, time.March, 1)
	past.EndDate = &endPast
	s.Require().NoError(s.store.CreatePolicy(ctx, past))

	future := s.policy(s.tenantA, "POL-FUTURE")
	future.ApplyActivation(s.now, id.NewUserID())
	s.Require().NoError(s.store.CreatePolicy(ctx, future))

	pending := s.policy(s.tenantA, "POL-PENDING")
	endPending := models.Date(2026, time.March, 1)
	pending.EndDate = &endPending
	s.Require().NoError(s.store.CreatePolicy(ctx, pending))

	expirable, err := s.store.ExpirablePolicies(ctx, models.Date(2026, time.March, 15))
	s.Require().NoError(err)
	s.Require().Len(expirable, 1)
	s.Equal("POL-PAST", expirable[0].PolicyNumber)
}
