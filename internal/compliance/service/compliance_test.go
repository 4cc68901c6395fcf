package service_test

import (
	"time"

	"fleetcomply/internal/compliance/models"
	"fleetcomply/internal/compliance/service"
	fleet "fleetcomply/internal/fleet/models"
	id "fleetcomply/pkg/domain"
	dErrors "fleetcomply/pkg/domain-errors"
)

// =============================================================================
// Vehicle compliance status
// =============================================================================

func (s *ServiceSuite) TestComputeComplianceStatus() {
	s.Run("vehicle without an active policy is non-compliant", func() {
		report, err := s.service.ComputeComplianceStatus(s.ctx(), s.vehicle.ID)
		s.Require().NoError(err)
		s.Equal(service.LevelNonCompliant, report.Level)
		s.Contains(report.Issues, "no active insurance policy")
	})

	s.Run("active coverage ending beyond the risk window is compliant", func() {
		s.activatedPolicy(models.Date(2026, time.January, 1), models.Date(2026, time.December, 31), 10000)

		report, err := s.service.ComputeComplianceStatus(s.ctx(), s.vehicle.ID)
		s.Require().NoError(err)
		s.Equal(service.LevelCompliant, report.Level)
		s.Empty(report.Issues)
		s.Empty(report.ExpiringSoon)
	})
}

func (s *ServiceSuite) TestComputeComplianceStatusAtRisk() {
	policy := s.activatedPolicy(models.Date(2026, time.January, 1), models.Date(2026, time.April, 10), 10000)

	report, err := s.service.ComputeComplianceStatus(s.ctx(), s.vehicle.ID)
	s.Require().NoError(err)
	s.Equal(service.LevelAtRisk, report.Level)
	s.Contains(report.ExpiringSoon, "policy "+policy.PolicyNumber)
}

func (s *ServiceSuite) TestComputeComplianceStatusLapsed() {
	// Active but past its end date: the sweep has not caught it yet, and the
	// vehicle must already read as non-compliant.
	policy := s.activatedPolicy(models.Date(2026, time.January, 1), models.Date(2026, time.March, 1), 10000)

	report, err := s.service.ComputeComplianceStatus(s.ctx(), s.vehicle.ID)
	s.Require().NoError(err)
	s.Equal(service.LevelNonCompliant, report.Level)
	s.Contains(report.Issues, "policy "+policy.PolicyNumber+" coverage has lapsed")
}

func (s *ServiceSuite) TestComputeComplianceStatusRiskWindowOverride() {
	svc := service.New(s.store.Stores(), service.WithRiskWindowDays(7))
	s.activatedPolicy(models.Date(2026, time.January, 1), models.Date(2026, time.April, 10), 10000)

	// April 10 is outside a 7-day window from March 15.
	report, err := svc.ComputeComplianceStatus(s.ctx(), s.vehicle.ID)
	s.Require().NoError(err)
	s.Equal(service.LevelCompliant, report.Level)
}

// =============================================================================
// Tenant summary
// =============================================================================

func (s *ServiceSuite) TestTenantSummary() {
	s.activatedPolicy(models.Date(2026, time.January, 1), models.Date(2026, time.December, 31), 10000)

	bare, err := fleet.NewVehicle(id.NewVehicleID(), s.customer, "T456DEF", s.now)
	s.Require().NoError(err)
	s.store.SeedVehicle(bare)

	summary, err := s.service.TenantSummary(s.ctx(), s.tenantA.ID)
	s.Require().NoError(err)
	s.Equal(2, summary.TotalVehicles)
	s.Equal(1, summary.Compliant)
	s.Equal(1, summary.NonCompliant)
	s.Zero(summary.AtRisk)
}

func (s *ServiceSuite) TestComplianceReadTenantScoping() {
	s.activatedPolicy(models.Date(2026, time.January, 1), models.Date(2026, time.December, 31), 10000)

	s.Run("another tenant cannot read the vehicle's report", func() {
		_, err := s.service.ComputeComplianceStatus(s.ctxFor(s.tenantB.ID), s.vehicle.ID)
		s.Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("another tenant cannot read the fleet summary", func() {
		_, err := s.service.TenantSummary(s.ctxFor(s.tenantB.ID), s.tenantA.ID)
		s.Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}
