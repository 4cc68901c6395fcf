package service

import (
	"context"
	"errors"

	accounts "fleetcomply/internal/accounts/models"
	"fleetcomply/internal/compliance/models"
	"fleetcomply/internal/notification"
	id "fleetcomply/pkg/domain"
	dErrors "fleetcomply/pkg/domain-errors"
	"fleetcomply/pkg/platform/sentinel"
	"fleetcomply/pkg/requestcontext"
)

// Activate transitions a compliance record to active.
//
// The record is loaded under an exclusive row lock and every guard runs
// inside the same transaction as the state write, so two concurrent
// activations for one vehicle cannot both pass the overlap check before
// either commits. Guards, in order:
//
//  1. actor belongs to the record's tenant, is not a platform super admin,
//     and holds role admin or manager
//  2. status is draft or pending_payment (already-active and terminal states
//     are rejected)
//  3. policies only: verified payment covers the premium
//  4. no overlap/type-conflict with other active records on the vehicle
func (s *Service) Activate(ctx context.Context, kind models.Kind, entityID string, actorID id.UserID) (models.Entity, error) {
	ctx, span := s.tracer.Start(ctx, "compliance.Activate")
	defer span.End()

	var activated models.Entity
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		entity, err := s.loadForUpdate(txCtx, kind, entityID)
		if err != nil {
			return err
		}
		rec := entity.Rec()

		actor, err := s.authorize(txCtx, actorID, rec.TenantID)
		if err != nil {
			return err
		}

		if rec.Status == models.StatusActive {
			return dErrors.New(dErrors.CodeInvalidTransition, "record is already active")
		}
		if !rec.Status.CanTransitionTo(models.StatusActive) {
			return dErrors.Newf(dErrors.CodeInvalidTransition, "cannot activate record with status %s", rec.Status)
		}

		if policy, ok := entity.(*models.Policy); ok {
			if err := s.checkFullyPaid(txCtx, policy); err != nil {
				return err
			}
		}

		if err := s.checkOverlap(txCtx, entity); err != nil {
			if s.metrics != nil && (dErrors.HasCode(err, dErrors.CodeOverlap) || dErrors.HasCode(err, dErrors.CodeConflict)) {
				s.metrics.OverlapRejections.WithLabelValues(kind.String()).Inc()
			}
			return err
		}

		rec.ApplyActivation(requestcontext.Now(txCtx), actor.ID)
		if err := s.update(txCtx, entity); err != nil {
			return err
		}
		activated = entity
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.RecordsActivated.WithLabelValues(kind.String()).Inc()
	}
	s.logger.InfoContext(ctx, "compliance record activated",
		"kind", kind, "entity_ref", activated.Ref(), "actor_id", actorID)
	return activated, nil
}

// Cancel transitions a record to cancelled and writes the cancellation trail.
// A non-empty reason from the allowed set is mandatory. Expired records
// cannot be cancelled. The cancellation notification is emitted after commit
// and its failure never affects the result.
func (s *Service) Cancel(ctx context.Context, kind models.Kind, entityID string, actorID id.UserID,
	reason models.CancellationReason, note string) (models.Entity, error) {

	ctx, span := s.tracer.Start(ctx, "compliance.Cancel")
	defer span.End()

	if reason == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "cancellation reason is required").WithField("reason")
	}
	if !reason.Valid() {
		return nil, dErrors.Newf(dErrors.CodeValidation, "invalid cancellation reason: %s", reason).WithField("reason")
	}

	var cancelled models.Entity
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		entity, err := s.loadForUpdate(txCtx, kind, entityID)
		if err != nil {
			return err
		}
		rec := entity.Rec()

		actor, err := s.authorize(txCtx, actorID, rec.TenantID)
		if err != nil {
			return err
		}

		switch rec.Status {
		case models.StatusCancelled:
			return dErrors.New(dErrors.CodeInvalidTransition, "record is already cancelled")
		case models.StatusExpired:
			return dErrors.New(dErrors.CodeInvalidTransition, "cannot cancel an expired record")
		}

		rec.ApplyCancellation(requestcontext.Now(txCtx), actor.ID, reason, note)
		if err := s.update(txCtx, entity); err != nil {
			return err
		}
		cancelled = entity
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.RecordsCancelled.WithLabelValues(kind.String()).Inc()
	}
	s.emit(ctx, notification.EventRecordCancelled, cancelled, string(reason), note, actorID)
	return cancelled, nil
}

// Expire retires an active record whose end date has passed. It is invoked
// by the background sweep, not by actors, so no authorization gate applies.
func (s *Service) Expire(ctx context.Context, kind models.Kind, entityID string) (models.Entity, error) {
	ctx, span := s.tracer.Start(ctx, "compliance.Expire")
	defer span.End()

	var expired models.Entity
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		entity, err := s.loadForUpdate(txCtx, kind, entityID)
		if err != nil {
			return err
		}
		rec := entity.Rec()

		if rec.Status != models.StatusActive {
			return dErrors.New(dErrors.CodeInvalidTransition, "only active records can be expired")
		}
		if rec.EndDate == nil {
			return dErrors.New(dErrors.CodeInvalidTransition, "cannot expire an open-ended record")
		}
		now := requestcontext.Now(txCtx)
		if !rec.EndDate.Before(startOfDay(now)) {
			return dErrors.New(dErrors.CodeInvalidTransition, "cannot expire a record before its end date")
		}

		rec.ApplyExpiry(now)
		if err := s.update(txCtx, entity); err != nil {
			return err
		}
		expired = entity
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.RecordsExpired.WithLabelValues(kind.String()).Inc()
	}
	s.emit(ctx, notification.EventRecordExpired, expired, "", "", id.UserID{})
	return expired, nil
}

// authorize loads the actor and enforces the shared mutation gate: same
// tenant, not a platform super admin, role admin or manager.
func (s *Service) authorize(ctx context.Context, actorID id.UserID, tenantID id.TenantID) (*accounts.User, error) {
	if actorID.IsNil() {
		return nil, dErrors.New(dErrors.CodeForbidden, "actor is required")
	}
	actor, err := s.actors.FindUser(ctx, actorID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeForbidden, "actor not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load actor")
	}
	if actor.SuperAdmin {
		return nil, dErrors.New(dErrors.CodeForbidden, "platform admins cannot modify compliance data")
	}
	if actor.TenantID != tenantID {
		return nil, dErrors.New(dErrors.CodeForbidden, "actor must belong to the record's tenant")
	}
	if !actor.CanManageCompliance() {
		return nil, dErrors.New(dErrors.CodeForbidden, "only admins or managers can manage compliance records")
	}
	return actor, nil
}

// loadForUpdate dispatches over the closed kind set and loads the entity
// under an exclusive row lock, excluding soft-deleted rows.
func (s *Service) loadForUpdate(ctx context.Context, kind models.Kind, entityID string) (models.Entity, error) {
	switch kind {
	case models.KindPolicy:
		policyID, err := id.ParsePolicyID(entityID)
		if err != nil {
			return nil, err
		}
		policy, err := s.policies.FindPolicyForUpdate(ctx, policyID)
		if err != nil {
			return nil, wrapLoadErr(err, "policy")
		}
		return policy, nil
	case models.KindPermit:
		permitID, err := id.ParsePermitID(entityID)
		if err != nil {
			return nil, err
		}
		permit, err := s.permits.FindPermitForUpdate(ctx, permitID)
		if err != nil {
			return nil, wrapLoadErr(err, "permit")
		}
		return permit, nil
	case models.KindLicense:
		licenseID, err := id.ParseLicenseID(entityID)
		if err != nil {
			return nil, err
		}
		license, err := s.licenses.FindLicenseForUpdate(ctx, licenseID)
		if err != nil {
			return nil, wrapLoadErr(err, "license")
		}
		return license, nil
	}
	return nil, dErrors.Newf(dErrors.CodeInvalidInput, "unknown compliance kind: %s", kind)
}

// update persists a mutated entity via the matching store.
func (s *Service) update(ctx context.Context, entity models.Entity) error {
	var err error
	switch e := entity.(type) {
	case *models.Policy:
		err = s.policies.UpdatePolicy(ctx, e)
	case *models.Permit:
		err = s.permits.UpdatePermit(ctx, e)
	case *models.RegistrationLicense:
		err = s.licenses.UpdateLicense(ctx, e)
	default:
		return dErrors.Newf(dErrors.CodeInternal, "unknown entity type %T", entity)
	}
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to persist lifecycle transition")
	}
	return nil
}

// emit publishes a notification event, best-effort. Failures are logged and
// swallowed; the lifecycle result is already committed.
func (s *Service) emit(ctx context.Context, kind notification.EventKind, entity models.Entity,
	reason, note string, actorID id.UserID) {

	if s.publisher == nil {
		return
	}
	rec := entity.Rec()
	event := notification.Event{
		Kind:       kind,
		TenantID:   rec.TenantID,
		EntityKind: entity.Kind().String(),
		EntityRef:  entity.Ref(),
		VehicleID:  rec.VehicleID,
		Reason:     reason,
		Note:       note,
		ActorID:    actorID,
		OccurredAt: requestcontext.Now(ctx),
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "notification emission failed",
			"event", kind, "entity_ref", entity.Ref(), "error", err)
	}
}

func wrapLoadErr(err error, kind string) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.Newf(dErrors.CodeNotFound, "%s not found", kind)
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load "+kind)
}
