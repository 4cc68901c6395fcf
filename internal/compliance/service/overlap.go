package service

import (
	"context"
	"time"

	"fleetcomply/internal/compliance/models"
	id "fleetcomply/pkg/domain"
	dErrors "fleetcomply/pkg/domain-errors"
)

// checkOverlap runs the per-kind coexistence guard for an entity about to be
// activated. It is always called inside the activation transaction, after the
// candidate's row is locked, so the set of active siblings cannot change
// under it.
//
// Rules by kind:
//   - policy: at most one active policy per vehicle over any date window
//     (closed intervals; policies always carry an end date)
//   - permit: permits of conflicting types must not overlap on the vehicle;
//     the conflict relation is resolved in both directions
//   - license: licenses of the same license type must not overlap on the
//     vehicle; different types coexist freely
func (s *Service) checkOverlap(ctx context.Context, entity models.Entity) error {
	switch e := entity.(type) {
	case *models.Policy:
		return s.checkPolicyOverlap(ctx, e)
	case *models.Permit:
		return s.checkPermitConflict(ctx, e)
	case *models.RegistrationLicense:
		return s.checkLicenseOverlap(ctx, e)
	}
	return dErrors.Newf(dErrors.CodeInternal, "unknown entity type %T", entity)
}

func (s *Service) checkPolicyOverlap(ctx context.Context, policy *models.Policy) error {
	others, err := s.policies.ActivePoliciesByVehicle(ctx, policy.TenantID, policy.VehicleID)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to list active policies for vehicle")
	}
	for _, other := range others {
		if other.ID == policy.ID {
			continue
		}
		if models.Overlaps(policy.StartDate, *policy.EndDate, other.StartDate, *other.EndDate) {
			return dErrors.Newf(dErrors.CodeOverlap,
				"vehicle already holds active policy %s over an overlapping window", other.PolicyNumber).
				WithEntityRef(other.Ref())
		}
	}
	return nil
}

func (s *Service) checkPermitConflict(ctx context.Context, permit *models.Permit) error {
	conflicting, err := s.permitTypes.ConflictingTypeIDs(ctx, permit.TenantID, permit.PermitTypeID)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to resolve permit type conflicts")
	}
	conflictSet := make(map[id.PermitTypeID]struct{}, len(conflicting))
	for _, typeID := range conflicting {
		conflictSet[typeID] = struct{}{}
	}

	others, err := s.permits.ActivePermitsByVehicle(ctx, permit.TenantID, permit.VehicleID)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to list active permits for vehicle")
	}
	for _, other := range others {
		if other.ID == permit.ID {
			continue
		}
		if _, conflicts := conflictSet[other.PermitTypeID]; !conflicts {
			continue
		}
		if models.OverlapsOpenEnded(permit.StartDate, permit.EndDate, other.StartDate, other.EndDate) {
			return dErrors.Newf(dErrors.CodeConflict,
				"vehicle holds active permit %s of a conflicting type over an overlapping window", other.ReferenceNumber).
				WithEntityRef(other.Ref())
		}
	}
	return nil
}

func (s *Service) checkLicenseOverlap(ctx context.Context, license *models.RegistrationLicense) error {
	others, err := s.licenses.ActiveLicensesByVehicle(ctx, license.TenantID, license.VehicleID)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to list active licenses for vehicle")
	}
	for _, other := range others {
		if other.ID == license.ID {
			continue
		}
		if other.LicenseType != license.LicenseType {
			continue
		}
		if models.OverlapsOpenEnded(license.StartDate, license.EndDate, other.StartDate, other.EndDate) {
			return dErrors.Newf(dErrors.CodeOverlap,
				"vehicle already holds active %s license %s over an overlapping window",
				other.LicenseType, other.LicenseNumber).
				WithEntityRef(other.Ref())
		}
	}
	return nil
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
