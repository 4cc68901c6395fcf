package service

import (
	"context"

	"fleetcomply/internal/compliance/models"
	id "fleetcomply/pkg/domain"
	dErrors "fleetcomply/pkg/domain-errors"
	"fleetcomply/pkg/requestcontext"
)

// checkFullyPaid enforces the payment gate on policy activation: the sum of
// verified payments must equal the premium exactly.
func (s *Service) checkFullyPaid(ctx context.Context, policy *models.Policy) error {
	paid, err := s.payments.VerifiedTotalByPolicy(ctx, policy.TenantID, policy.ID)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to sum verified payments")
	}
	if paid != policy.PremiumAmount {
		return dErrors.Newf(dErrors.CodePaymentRequired,
			"policy requires full verified payment: verified %d of premium %d", paid, policy.PremiumAmount).
			WithEntityRef(policy.Ref())
	}
	return nil
}

// RecordPayment records an unverified payment against a policy.
//
// Two rules are enforced here rather than at verification time, so a bad
// payment never even enters review:
//   - the amount must equal the policy premium exactly; partial payments are
//     rejected, never accumulated
//   - a policy holds at most one non-rejected payment; a rejected payment
//     releases the slot
func (s *Service) RecordPayment(ctx context.Context, policyID id.PolicyID, actorID id.UserID,
	amount int64, method models.PaymentMethod, reference string) (*models.Payment, error) {

	ctx, span := s.tracer.Start(ctx, "compliance.RecordPayment")
	defer span.End()

	var payment *models.Payment
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		policy, err := s.policies.FindPolicyForUpdate(txCtx, policyID)
		if err != nil {
			return wrapLoadErr(err, "policy")
		}

		actor, err := s.authorize(txCtx, actorID, policy.TenantID)
		if err != nil {
			return err
		}

		if policy.Status.IsTerminal() {
			return dErrors.Newf(dErrors.CodeInvalidTransition,
				"cannot record a payment against a %s policy", policy.Status)
		}
		if amount != policy.PremiumAmount {
			return dErrors.Newf(dErrors.CodeValidation,
				"payment amount %d must equal the policy premium %d", amount, policy.PremiumAmount).
				WithField("amount")
		}

		existing, err := s.payments.PaymentsByPolicy(txCtx, policy.TenantID, policy.ID)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to list policy payments")
		}
		for _, p := range existing {
			if !p.IsRejected() {
				return dErrors.New(dErrors.CodeConflict,
					"policy already has a pending or verified payment").WithEntityRef(p.ID.String())
			}
		}

		now := requestcontext.Now(txCtx)
		payment, err = models.NewPayment(id.NewPaymentID(), policy.TenantID, policy.ID,
			amount, method, reference, actor.ID, now)
		if err != nil {
			return err
		}
		if err := s.payments.CreatePayment(txCtx, payment); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to persist payment")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.PaymentsRecorded.Inc()
	}
	s.logger.InfoContext(ctx, "payment recorded",
		"payment_id", payment.ID, "policy_id", policyID, "amount", payment.Amount, "method", payment.Method)
	return payment, nil
}

// VerifyPayment marks a payment approved and then attempts to activate the
// parent policy. The activation attempt is opportunistic: if it fails (an
// overlap surfaced, the policy was cancelled meanwhile) the payment stays
// verified and the failure is logged, not returned.
func (s *Service) VerifyPayment(ctx context.Context, paymentID id.PaymentID, actorID id.UserID) (*models.Payment, error) {
	ctx, span := s.tracer.Start(ctx, "compliance.VerifyPayment")
	defer span.End()

	var payment *models.Payment
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		var err error
		payment, err = s.payments.FindPaymentForUpdate(txCtx, paymentID)
		if err != nil {
			return wrapLoadErr(err, "payment")
		}

		actor, err := s.authorize(txCtx, actorID, payment.TenantID)
		if err != nil {
			return err
		}

		now := requestcontext.Now(txCtx)
		if err := payment.Verify(actor.ID, now); err != nil {
			return err
		}
		if err := s.payments.UpdatePayment(txCtx, payment); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to persist payment verification")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.PaymentsVerified.Inc()
	}
	s.logger.InfoContext(ctx, "payment verified", "payment_id", paymentID, "policy_id", payment.PolicyID)

	if _, err := s.Activate(ctx, models.KindPolicy, payment.PolicyID.String(), actorID); err != nil {
		s.logger.WarnContext(ctx, "policy activation after payment verification failed",
			"policy_id", payment.PolicyID, "payment_id", paymentID, "error", err)
	}
	return payment, nil
}

// RejectPayment marks a payment rejected, releasing the single-payment slot
// on its policy so a corrected payment can be recorded.
func (s *Service) RejectPayment(ctx context.Context, paymentID id.PaymentID, actorID id.UserID, note string) (*models.Payment, error) {
	ctx, span := s.tracer.Start(ctx, "compliance.RejectPayment")
	defer span.End()

	var payment *models.Payment
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		var err error
		payment, err = s.payments.FindPaymentForUpdate(txCtx, paymentID)
		if err != nil {
			return wrapLoadErr(err, "payment")
		}

		actor, err := s.authorize(txCtx, actorID, payment.TenantID)
		if err != nil {
			return err
		}

		now := requestcontext.Now(txCtx)
		if err := payment.Reject(actor.ID, note, now); err != nil {
			return err
		}
		if err := s.payments.UpdatePayment(txCtx, payment); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to persist payment rejection")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.PaymentsRejected.Inc()
	}
	s.logger.InfoContext(ctx, "payment rejected", "payment_id", paymentID, "policy_id", payment.PolicyID)
	return payment, nil
}
