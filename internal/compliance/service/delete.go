package service

import (
	"context"

	"fleetcomply/internal/compliance/models"
	id "fleetcomply/pkg/domain"
	dErrors "fleetcomply/pkg/domain-errors"
	"fleetcomply/pkg/requestcontext"
)

// Delete soft-deletes a compliance record, hiding it from the default read
// paths. Active records must be cancelled first; deletion is for drafts and
// finished records, not a shortcut around the lifecycle.
func (s *Service) Delete(ctx context.Context, kind models.Kind, entityID string, actorID id.UserID) error {
	ctx, span := s.tracer.Start(ctx, "compliance.Delete")
	defer span.End()

	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		entity, err := s.loadForUpdate(txCtx, kind, entityID)
		if err != nil {
			return err
		}
		rec := entity.Rec()

		if _, err := s.authorize(txCtx, actorID, rec.TenantID); err != nil {
			return err
		}
		if rec.Status == models.StatusActive {
			return dErrors.New(dErrors.CodeInvalidTransition, "cancel an active record before deleting it")
		}

		rec.SoftDelete(requestcontext.Now(txCtx))
		return s.update(txCtx, entity)
	})
	if err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "compliance record deleted", "kind", kind, "entity_id", entityID)
	return nil
}
