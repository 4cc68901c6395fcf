package service

import (
	"context"

	"fleetcomply/internal/compliance/models"
	dErrors "fleetcomply/pkg/domain-errors"
	"fleetcomply/pkg/requestcontext"
)

// SweepExpired expires every active record, across all tenants, whose end
// date has passed. Each record is expired in its own transaction so one
// contended row never stalls the rest of the sweep. Per-record failures are
// logged and counted, not propagated.
func (s *Service) SweepExpired(ctx context.Context) (expired, failed int, err error) {
	ctx, span := s.tracer.Start(ctx, "compliance.SweepExpired")
	defer span.End()

	today := startOfDay(requestcontext.Now(ctx))

	policies, err := s.policies.ExpirablePolicies(ctx, today)
	if err != nil {
		return 0, 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list expirable policies")
	}
	permits, err := s.permits.ExpirablePermits(ctx, today)
	if err != nil {
		return 0, 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list expirable permits")
	}
	licenses, err := s.licenses.ExpirableLicenses(ctx, today)
	if err != nil {
		return 0, 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list expirable licenses")
	}

	type candidate struct {
		kind models.Kind
		ref  string
	}
	var candidates []candidate
	for _, p := range policies {
		candidates = append(candidates, candidate{models.KindPolicy, p.Ref()})
	}
	for _, p := range permits {
		candidates = append(candidates, candidate{models.KindPermit, p.Ref()})
	}
	for _, l := range licenses {
		candidates = append(candidates, candidate{models.KindLicense, l.Ref()})
	}

	for _, c := range candidates {
		if ctx.Err() != nil {
			return expired, failed, ctx.Err()
		}
		if _, err := s.Expire(ctx, c.kind, c.ref); err != nil {
			// The record may have been cancelled or expired since listing.
			if dErrors.HasCode(err, dErrors.CodeInvalidTransition) {
				continue
			}
			failed++
			s.logger.WarnContext(ctx, "expiry sweep failed for record",
				"kind", c.kind, "entity_ref", c.ref, "error", err)
			continue
		}
		expired++
	}

	if expired > 0 || failed > 0 {
		s.logger.InfoContext(ctx, "expiry sweep finished", "expired", expired, "failed", failed)
	}
	return expired, failed, nil
}
