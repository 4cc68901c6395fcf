package service

import (
	"context"
	"errors"
	"time"

	"fleetcomply/internal/compliance/models"
	fleet "fleetcomply/internal/fleet/models"
	tenant "fleetcomply/internal/tenant/models"
	id "fleetcomply/pkg/domain"
	dErrors "fleetcomply/pkg/domain-errors"
	"fleetcomply/pkg/platform/sentinel"
	"fleetcomply/pkg/requestcontext"
)

// CreatePolicyInput carries the caller-supplied fields for a new policy.
// Tenant is never part of the input: it is resolved from the vehicle, and the
// actor must belong to the same tenant.
type CreatePolicyInput struct {
	VehicleID id.VehicleID
	StartDate time.Time
	EndDate   time.Time

	// PremiumAmount and CoverageAmount are in minor currency units.
	PremiumAmount  int64
	CoverageAmount *int64

	PolicyType string
	Notes      string
}

// CreatePolicy creates a policy in pending_payment with a generated,
// tenant-scoped policy number.
func (s *Service) CreatePolicy(ctx context.Context, in CreatePolicyInput, actorID id.UserID) (*models.Policy, error) {
	ctx, span := s.tracer.Start(ctx, "compliance.CreatePolicy")
	defer span.End()

	var policy *models.Policy
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		vehicle, ten, err := s.resolveVehicle(txCtx, in.VehicleID)
		if err != nil {
			return err
		}
		actor, err := s.authorize(txCtx, actorID, vehicle.TenantID)
		if err != nil {
			return err
		}

		now := requestcontext.Now(txCtx)
		number, err := s.nextPolicyNumber(txCtx, vehicle.TenantID, ten.Slug, now)
		if err != nil {
			return err
		}

		policy, err = models.NewPolicy(id.NewPolicyID(), vehicle.TenantID, vehicle.ID,
			number, in.StartDate, in.EndDate, in.PremiumAmount, actor.ID, now)
		if err != nil {
			return err
		}
		policy.CoverageAmount = in.CoverageAmount
		policy.PolicyType = in.PolicyType
		policy.Notes = in.Notes

		if err := s.policies.CreatePolicy(txCtx, policy); err != nil {
			if errors.Is(err, sentinel.ErrConflict) {
				return dErrors.New(dErrors.CodeConflict, "policy number already in use").
					WithField("policy_number")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to persist policy")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "policy created",
		"policy_id", policy.ID, "policy_number", policy.PolicyNumber, "vehicle_id", policy.VehicleID)
	return policy, nil
}

// RenewPolicy creates a fresh pending_payment policy continuing an existing
// one: same vehicle, coverage and type, a new number, and a window starting
// the day after the old policy ends. The old policy is left untouched; it
// expires on its own schedule.
func (s *Service) RenewPolicy(ctx context.Context, policyID id.PolicyID, premium int64,
	durationDays int, actorID id.UserID) (*models.Policy, error) {

	ctx, span := s.tracer.Start(ctx, "compliance.RenewPolicy")
	defer span.End()

	if durationDays <= 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "renewal duration must be positive").
			WithField("duration_days")
	}

	var renewed *models.Policy
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		prev, err := s.policies.FindPolicyForUpdate(txCtx, policyID)
		if err != nil {
			return wrapLoadErr(err, "policy")
		}
		actor, err := s.authorize(txCtx, actorID, prev.TenantID)
		if err != nil {
			return err
		}

		ten, err := s.tenants.FindTenant(txCtx, prev.TenantID)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load tenant")
		}
		if !ten.IsActive() {
			return dErrors.New(dErrors.CodeForbidden, "tenant is not active")
		}

		now := requestcontext.Now(txCtx)
		start := prev.EndDate.AddDate(0, 0, 1)
		end := start.AddDate(0, 0, durationDays-1)

		number, err := s.nextPolicyNumber(txCtx, prev.TenantID, ten.Slug, now)
		if err != nil {
			return err
		}

		renewed, err = models.NewPolicy(id.NewPolicyID(), prev.TenantID, prev.VehicleID,
			number, start, end, premium, actor.ID, now)
		if err != nil {
			return err
		}
		renewed.CoverageAmount = prev.CoverageAmount
		renewed.PolicyType = prev.PolicyType

		if err := s.policies.CreatePolicy(txCtx, renewed); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to persist renewal")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "policy renewed",
		"previous_policy_id", policyID, "policy_id", renewed.ID, "policy_number", renewed.PolicyNumber)
	return renewed, nil
}

// CreatePermitInput carries the caller-supplied fields for a new permit.
type CreatePermitInput struct {
	VehicleID       id.VehicleID
	PermitTypeID    id.PermitTypeID
	ReferenceNumber string
	StartDate       time.Time
	EndDate         *time.Time
}

// CreatePermit creates a draft permit. The permit type must belong to the
// vehicle's tenant and be active.
func (s *Service) CreatePermit(ctx context.Context, in CreatePermitInput, actorID id.UserID) (*models.Permit, error) {
	ctx, span := s.tracer.Start(ctx, "compliance.CreatePermit")
	defer span.End()

	var permit *models.Permit
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		vehicle, _, err := s.resolveVehicle(txCtx, in.VehicleID)
		if err != nil {
			return err
		}
		actor, err := s.authorize(txCtx, actorID, vehicle.TenantID)
		if err != nil {
			return err
		}

		permitType, err := s.permitTypes.FindPermitType(txCtx, vehicle.TenantID, in.PermitTypeID)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.New(dErrors.CodeInvalidInput, "permit type not found for tenant").
					WithField("permit_type_id")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load permit type")
		}
		if !permitType.Active {
			return dErrors.Newf(dErrors.CodeInvalidInput, "permit type %s is inactive", permitType.Name).
				WithField("permit_type_id")
		}

		now := requestcontext.Now(txCtx)
		permit, err = models.NewPermit(id.NewPermitID(), vehicle.TenantID, vehicle.ID,
			permitType.ID, in.ReferenceNumber, in.StartDate, in.EndDate, actor.ID, now)
		if err != nil {
			return err
		}
		if err := s.permits.CreatePermit(txCtx, permit); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to persist permit")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "permit created",
		"permit_id", permit.ID, "reference_number", permit.ReferenceNumber, "vehicle_id", permit.VehicleID)
	return permit, nil
}

// CreateLicenseInput carries the caller-supplied fields for a new
// registration license.
type CreateLicenseInput struct {
	VehicleID     id.VehicleID
	LicenseNumber string
	LicenseType   string
	Route         string
	StartDate     time.Time
	EndDate       *time.Time
}

// CreateLicense creates a draft registration license. License numbers are
// unique per tenant among non-deleted records.
func (s *Service) CreateLicense(ctx context.Context, in CreateLicenseInput, actorID id.UserID) (*models.RegistrationLicense, error) {
	ctx, span := s.tracer.Start(ctx, "compliance.CreateLicense")
	defer span.End()

	var license *models.RegistrationLicense
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		vehicle, _, err := s.resolveVehicle(txCtx, in.VehicleID)
		if err != nil {
			return err
		}
		actor, err := s.authorize(txCtx, actorID, vehicle.TenantID)
		if err != nil {
			return err
		}

		now := requestcontext.Now(txCtx)
		license, err = models.NewRegistrationLicense(id.NewLicenseID(), vehicle.TenantID, vehicle.ID,
			in.LicenseNumber, in.LicenseType, in.Route, in.StartDate, in.EndDate, actor.ID, now)
		if err != nil {
			return err
		}
		if err := s.licenses.CreateLicense(txCtx, license); err != nil {
			if errors.Is(err, sentinel.ErrConflict) {
				return dErrors.New(dErrors.CodeConflict, "license number already in use").
					WithField("license_number")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to persist license")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "license created",
		"license_id", license.ID, "license_number", license.LicenseNumber, "vehicle_id", license.VehicleID)
	return license, nil
}

// CreatePermitType registers a permit type under the actor's tenant.
func (s *Service) CreatePermitType(ctx context.Context, tenantID id.TenantID, name string,
	actorID id.UserID) (*models.PermitType, error) {

	ctx, span := s.tracer.Start(ctx, "compliance.CreatePermitType")
	defer span.End()

	if _, err := s.authorize(ctx, actorID, tenantID); err != nil {
		return nil, err
	}

	permitType, err := models.NewPermitType(id.NewPermitTypeID(), tenantID, name, requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}
	if err := s.permitTypes.CreatePermitType(ctx, permitType); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to persist permit type")
	}
	return permitType, nil
}

// DeclarePermitConflict records a mutual incompatibility between two permit
// types of one tenant.
func (s *Service) DeclarePermitConflict(ctx context.Context, tenantID id.TenantID, a, b id.PermitTypeID,
	actorID id.UserID) error {

	ctx, span := s.tracer.Start(ctx, "compliance.DeclarePermitConflict")
	defer span.End()

	if _, err := s.authorize(ctx, actorID, tenantID); err != nil {
		return err
	}
	if a == b {
		return dErrors.New(dErrors.CodeValidation, "a permit type cannot conflict with itself")
	}
	for _, typeID := range []id.PermitTypeID{a, b} {
		if _, err := s.permitTypes.FindPermitType(ctx, tenantID, typeID); err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.New(dErrors.CodeInvalidInput, "permit type not found for tenant")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load permit type")
		}
	}
	if err := s.permitTypes.DeclareConflict(ctx, tenantID, a, b); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to persist permit type conflict")
	}
	return nil
}

// resolveVehicle loads the vehicle and its tenant, refusing creation when the
// tenant is inactive or deleted.
func (s *Service) resolveVehicle(ctx context.Context, vehicleID id.VehicleID) (*fleet.Vehicle, *tenant.Tenant, error) {
	if vehicleID.IsNil() {
		return nil, nil, dErrors.New(dErrors.CodeValidation, "vehicle is required").WithField("vehicle_id")
	}
	vehicle, err := s.vehicles.FindVehicle(ctx, vehicleID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, nil, dErrors.New(dErrors.CodeNotFound, "vehicle not found").WithField("vehicle_id")
		}
		return nil, nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load vehicle")
	}
	ten, err := s.tenants.FindTenant(ctx, vehicle.TenantID)
	if err != nil {
		return nil, nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load tenant")
	}
	if !ten.IsActive() {
		return nil, nil, dErrors.New(dErrors.CodeForbidden, "tenant is not active")
	}
	return vehicle, ten, nil
}

// nextPolicyNumber generates the next tenant-scoped policy number for the
// current year by counting existing numbers under the year prefix.
func (s *Service) nextPolicyNumber(ctx context.Context, tenantID id.TenantID, slug string, now time.Time) (string, error) {
	prefix := models.FormatPolicyNumberPrefix(now.UTC().Year(), slug)
	count, err := s.policies.CountPoliciesByNumberPrefix(ctx, tenantID, prefix)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to count policies for numbering")
	}
	return models.FormatPolicyNumber(now.UTC().Year(), slug, count+1), nil
}
