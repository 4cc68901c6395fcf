package service_test

import (
	"time"

	"fleetcomply/internal/compliance/models"
	"fleetcomply/internal/compliance/service"
	dErrors "fleetcomply/pkg/domain-errors"
	"fleetcomply/pkg/requestcontext"
)

// =============================================================================
// Policy creation and numbering
// =============================================================================

func (s *ServiceSuite) TestCreatePolicy() {
	s.Run("generates sequential tenant-scoped numbers", func() {
		first := s.newPolicy(models.Date(2026, time.April, 1), models.Date(2026, time.September, 30), 10000)
		s.Equal("POL-2026-ACME-00001", first.PolicyNumber)
		s.Equal(models.StatusPendingPayment, first.Status)
		s.Equal(s.tenantA.ID, first.TenantID)

		second := s.newPolicy(models.Date(2027, time.April, 1), models.Date(2027, time.September, 30), 10000)
		s.Equal("POL-2026-ACME-00002", second.PolicyNumber)
	})

	s.Run("actor from another tenant cannot create", func() {
		_, err := s.service.CreatePolicy(s.ctx(), service.CreatePolicyInput{
			VehicleID:     s.vehicle.ID,
			StartDate:     models.Date(2026, time.April, 1),
			EndDate:       models.Date(2026, time.September, 30),
			PremiumAmount: 10000,
		}, s.outsider.ID)
		s.Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	s.Run("end date before start date is rejected", func() {
		_, err := s.service.CreatePolicy(s.ctx(), service.CreatePolicyInput{
			VehicleID:     s.vehicle.ID,
			StartDate:     models.Date(2026, time.September, 30),
			EndDate:       models.Date(2026, time.April, 1),
			PremiumAmount: 10000,
		}, s.admin.ID)
		s.Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInvariantViolation))
	})

	s.Run("inactive tenant cannot create", func() {
		s.Require().NoError(s.tenantA.CanDeactivate())
		s.tenantA.ApplyDeactivation(s.now)
		s.store.SeedTenant(s.tenantA)

		_, err := s.service.CreatePolicy(s.ctx(), service.CreatePolicyInput{
			VehicleID:     s.vehicle.ID,
			StartDate:     models.Date(2026, time.April, 1),
			EndDate:       models.Date(2026, time.September, 30),
			PremiumAmount: 10000,
		}, s.admin.ID)
		s.Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})
}

func (s *ServiceSuite) TestRenewPolicy() {
	coverage := int64(5000000)
	prev := s.newPolicy(models.Date(2026, time.April, 1), models.Date(2026, time.September, 30), 10000)
	prev.CoverageAmount = &coverage
	prev.PolicyType = "comprehensive"
	s.Require().NoError(s.store.UpdatePolicy(s.ctx(), prev))

	renewed, err := s.service.RenewPolicy(s.ctx(), prev.ID, 12000, 365, s.admin.ID)
	s.Require().NoError(err)

	s.Equal(models.StatusPendingPayment, renewed.Status)
	s.Equal(models.Date(2026, time.October, 1), renewed.StartDate)
	s.Require().NotNil(renewed.EndDate)
	s.Equal(models.Date(2027, time.September, 30), *renewed.EndDate)
	s.Equal(int64(12000), renewed.PremiumAmount)
	s.Equal("comprehensive", renewed.PolicyType)
	s.Require().NotNil(renewed.CoverageAmount)
	s.Equal(coverage, *renewed.CoverageAmount)
	s.NotEqual(prev.PolicyNumber, renewed.PolicyNumber)
	s.Equal("POL-2026-ACME-00002", renewed.PolicyNumber)

	s.Run("non-positive duration is rejected", func() {
		_, err := s.service.RenewPolicy(s.ctx(), prev.ID, 12000, 0, s.admin.ID)
		s.Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})
}

// =============================================================================
// Permit and license creation
// =============================================================================

func (s *ServiceSuite) TestCreatePermit() {
	s.Run("permit type must belong to the vehicle's tenant", func() {
		foreign, err := s.service.CreatePermitType(s.ctxFor(s.tenantB.ID), s.tenantB.ID, "Foreign Type", s.outsider.ID)
		s.Require().NoError(err)

		_, err = s.service.CreatePermit(s.ctx(), service.CreatePermitInput{
			VehicleID:       s.vehicle.ID,
			PermitTypeID:    foreign.ID,
			ReferenceNumber: "PRM-X",
			StartDate:       models.Date(2026, time.April, 1),
		}, s.admin.ID)
		s.Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	s.Run("permits start in draft", func() {
		permitType := s.newPermitType("City Transport")
		permit := s.newPermit(permitType.ID, models.Date(2026, time.April, 1), nil)
		s.Equal(models.StatusDraft, permit.Status)
		s.Nil(permit.EndDate)
	})
}

func (s *ServiceSuite) TestCreateLicense() {
	first := s.newLicense("LIC-100", "passenger", models.Date(2026, time.April, 1), nil)
	s.Equal(models.StatusDraft, first.Status)
	s.Equal("LATRA", first.IssuingAuthority)

	s.Run("license number must be unique within the tenant", func() {
		_, err := s.service.CreateLicense(s.ctx(), service.CreateLicenseInput{
			VehicleID:     s.vehicle.ID,
			LicenseNumber: "LIC-100",
			LicenseType:   "passenger",
			StartDate:     models.Date(2026, time.May, 1),
		}, s.admin.ID)
		s.Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})
}

// =============================================================================
// Soft delete
// =============================================================================

func (s *ServiceSuite) TestDelete() {
	s.Run("active record must be cancelled first", func() {
		policy := s.activatedPolicy(models.Date(2026, time.January, 1), models.Date(2026, time.June, 30), 10000)
		err := s.service.Delete(s.ctx(), models.KindPolicy, policy.ID.String(), s.admin.ID)
		s.Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidTransition))
	})

	s.Run("draft record is hidden from scoped reads after deletion", func() {
		permitType := s.newPermitType("Cargo")
		permit := s.newPermit(permitType.ID, models.Date(2026, time.April, 1), nil)

		err := s.service.Delete(s.ctx(), models.KindPermit, permit.ID.String(), s.admin.ID)
		s.Require().NoError(err)

		scoped := requestcontext.WithTenantID(s.ctx(), s.tenantA.ID)
		permits, err := s.service.ListPermits(scoped)
		s.Require().NoError(err)
		s.Empty(permits)

		// And invisible to lifecycle loads.
		_, err = s.service.Activate(s.ctx(), models.KindPermit, permit.ID.String(), s.admin.ID)
		s.Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}
