package service

import (
	"context"

	"fleetcomply/internal/compliance/models"
	id "fleetcomply/pkg/domain"
	dErrors "fleetcomply/pkg/domain-errors"
	"fleetcomply/pkg/requestcontext"
)

// The list methods are the scoped read path: the store resolves the current
// tenant from the request context, filters to it, and excludes soft-deleted
// rows. With no tenant in context they return empty results.

func (s *Service) ListPolicies(ctx context.Context) ([]*models.Policy, error) {
	policies, err := s.policies.ListPolicies(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list policies")
	}
	return policies, nil
}

func (s *Service) ListPermits(ctx context.Context) ([]*models.Permit, error) {
	permits, err := s.permits.ListPermits(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list permits")
	}
	return permits, nil
}

func (s *Service) ListLicenses(ctx context.Context) ([]*models.RegistrationLicense, error) {
	licenses, err := s.licenses.ListLicenses(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list licenses")
	}
	return licenses, nil
}

// PolicyPayments lists a policy's payments, newest first. A policy owned by
// another tenant is indistinguishable from a missing one.
func (s *Service) PolicyPayments(ctx context.Context, policyID id.PolicyID) ([]*models.Payment, error) {
	policy, err := s.policies.FindPolicy(ctx, policyID)
	if err != nil {
		return nil, wrapLoadErr(err, "policy")
	}
	if !tenantVisible(ctx, policy.TenantID) {
		return nil, dErrors.New(dErrors.CodeNotFound, "policy not found")
	}
	payments, err := s.payments.PaymentsByPolicy(ctx, policy.TenantID, policy.ID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list policy payments")
	}
	return payments, nil
}

// tenantVisible reports whether the caller may see a record owned by the
// given tenant. Contexts without a tenant (the expiry sweep, platform
// admins) are unscoped.
func tenantVisible(ctx context.Context, owner id.TenantID) bool {
	return !requestcontext.HasTenant(ctx) || requestcontext.TenantID(ctx) == owner
}
