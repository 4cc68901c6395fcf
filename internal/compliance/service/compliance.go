package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"fleetcomply/internal/compliance/models"
	id "fleetcomply/pkg/domain"
	dErrors "fleetcomply/pkg/domain-errors"
	"fleetcomply/pkg/requestcontext"
)

// ComplianceLevel is the overall compliance grade of a vehicle.
type ComplianceLevel string

const (
	LevelCompliant    ComplianceLevel = "compliant"
	LevelAtRisk       ComplianceLevel = "at_risk"
	LevelNonCompliant ComplianceLevel = "non_compliant"
)

// VehicleCompliance is the derived compliance report for one vehicle.
type VehicleCompliance struct {
	VehicleID id.VehicleID    `json:"vehicle_id"`
	Level     ComplianceLevel `json:"level"`

	// Issues names what is missing or lapsed; empty when compliant.
	Issues []string `json:"issues,omitempty"`

	// ExpiringSoon names active records whose end date falls inside the
	// risk window.
	ExpiringSoon []string `json:"expiring_soon,omitempty"`

	ComputedAt time.Time `json:"computed_at"`
}

// TenantComplianceSummary aggregates vehicle compliance levels for a tenant.
type TenantComplianceSummary struct {
	TenantID      id.TenantID `json:"tenant_id"`
	TotalVehicles int         `json:"total_vehicles"`
	Compliant     int         `json:"compliant"`
	AtRisk        int         `json:"at_risk"`
	NonCompliant  int         `json:"non_compliant"`
	ComputedAt    time.Time   `json:"computed_at"`
}

const reportCacheTTL = 5 * time.Minute

// ComputeComplianceStatus derives the compliance report for a vehicle as of
// the request time:
//
//   - non_compliant when the vehicle holds no active policy, or any active
//     record's end date has already passed
//   - at_risk when any active record's end date falls within the risk window
//   - compliant otherwise
//
// Reports are read-side only and may be served from cache; lifecycle
// decisions never consult them.
func (s *Service) ComputeComplianceStatus(ctx context.Context, vehicleID id.VehicleID) (*VehicleCompliance, error) {
	ctx, span := s.tracer.Start(ctx, "compliance.ComputeComplianceStatus")
	defer span.End()

	vehicle, _, err := s.resolveVehicle(ctx, vehicleID)
	if err != nil {
		return nil, err
	}
	if !tenantVisible(ctx, vehicle.TenantID) {
		return nil, dErrors.New(dErrors.CodeNotFound, "vehicle not found").WithField("vehicle_id")
	}

	now := requestcontext.Now(ctx)
	cacheKey := fmt.Sprintf("compliance:vehicle:%s:%s", vehicle.ID, startOfDay(now).Format("2006-01-02"))
	if s.cache != nil {
		if raw, err := s.cache.Get(ctx, cacheKey); err == nil && raw != nil {
			var cached VehicleCompliance
			if err := json.Unmarshal(raw, &cached); err == nil {
				return &cached, nil
			}
		}
	}

	report := &VehicleCompliance{VehicleID: vehicle.ID, ComputedAt: now}

	policies, err := s.policies.ActivePoliciesByVehicle(ctx, vehicle.TenantID, vehicle.ID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list active policies")
	}
	permits, err := s.permits.ActivePermitsByVehicle(ctx, vehicle.TenantID, vehicle.ID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list active permits")
	}
	licenses, err := s.licenses.ActiveLicensesByVehicle(ctx, vehicle.TenantID, vehicle.ID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list active licenses")
	}

	today := startOfDay(now)
	horizon := today.AddDate(0, 0, s.riskWindowDays)

	if len(policies) == 0 {
		report.Issues = append(report.Issues, "no active insurance policy")
	}

	check := func(label string, rec *models.Record) {
		if rec.EndDate == nil {
			return
		}
		switch {
		case rec.EndDate.Before(today):
			report.Issues = append(report.Issues, label+" coverage has lapsed")
		case !rec.EndDate.After(horizon):
			report.ExpiringSoon = append(report.ExpiringSoon, label)
		}
	}
	for _, p := range policies {
		check("policy "+p.PolicyNumber, &p.Record)
	}
	for _, p := range permits {
		check("permit "+p.ReferenceNumber, &p.Record)
	}
	for _, l := range licenses {
		check("license "+l.LicenseNumber, &l.Record)
	}

	switch {
	case len(report.Issues) > 0:
		report.Level = LevelNonCompliant
	case len(report.ExpiringSoon) > 0:
		report.Level = LevelAtRisk
	default:
		report.Level = LevelCompliant
	}

	if s.cache != nil {
		if raw, err := json.Marshal(report); err == nil {
			if err := s.cache.Set(ctx, cacheKey, raw, reportCacheTTL); err != nil {
				s.logger.WarnContext(ctx, "compliance report cache write failed",
					"vehicle_id", vehicle.ID, "error", err)
			}
		}
	}
	return report, nil
}

// TenantSummary aggregates per-vehicle compliance across a tenant's fleet.
func (s *Service) TenantSummary(ctx context.Context, tenantID id.TenantID) (*TenantComplianceSummary, error) {
	ctx, span := s.tracer.Start(ctx, "compliance.TenantSummary")
	defer span.End()

	if !tenantVisible(ctx, tenantID) {
		return nil, dErrors.New(dErrors.CodeNotFound, "tenant not found")
	}
	ten, err := s.tenants.FindTenant(ctx, tenantID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load tenant")
	}
	if !ten.IsActive() {
		return nil, dErrors.New(dErrors.CodeForbidden, "tenant is not active")
	}

	vehicles, err := s.vehicles.VehiclesByTenant(ctx, tenantID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list tenant vehicles")
	}

	summary := &TenantComplianceSummary{
		TenantID:      tenantID,
		TotalVehicles: len(vehicles),
		ComputedAt:    requestcontext.Now(ctx),
	}
	for _, vehicle := range vehicles {
		report, err := s.ComputeComplianceStatus(ctx, vehicle.ID)
		if err != nil {
			return nil, err
		}
		switch report.Level {
		case LevelCompliant:
			summary.Compliant++
		case LevelAtRisk:
			summary.AtRisk++
		case LevelNonCompliant:
			summary.NonCompliant++
		}
	}
	return summary, nil
}
