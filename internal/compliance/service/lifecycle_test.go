package service_test

import (
	"errors"
	"time"

	"fleetcomply/internal/compliance/models"
	"fleetcomply/internal/notification"
	dErrors "fleetcomply/pkg/domain-errors"
)

// =============================================================================
// Activation: payment gate
// =============================================================================

func (s *ServiceSuite) TestActivatePolicyPaymentGate() {
	start := models.Date(2026, time.April, 1)
	end := models.Date(2026, time.September, 30)

	s.Run("unpaid policy cannot activate", func() {
		policy := s.newPolicy(start, end, 10000)

		_, err := s.service.Activate(s.ctx(), models.KindPolicy, policy.ID.String(), s.admin.ID)
		s.Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodePaymentRequired))
	})

	s.Run("partial payment is rejected at recording", func() {
		policy := s.newPolicy(start.AddDate(1, 0, 0), end.AddDate(1, 0, 0), 10000)

		_, err := s.service.RecordPayment(s.ctx(), policy.ID, s.admin.ID,
			5000, models.PaymentMethodCash, "RCPT-1")
		s.Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
		s.Equal("amount", dErrors.FieldOf(err))
	})

	s.Run("exact verified payment activates the policy", func() {
		policy := s.newPolicy(start.AddDate(2, 0, 0), end.AddDate(2, 0, 0), 10000)
		s.payAndVerify(policy)

		reloaded, err := s.store.FindPolicy(s.ctx(), policy.ID)
		s.Require().NoError(err)
		s.Equal(models.StatusActive, reloaded.Status)
		s.NotNil(reloaded.ActivatedAt)
		s.Equal(s.now, *reloaded.ActivatedAt)
	})
}

// =============================================================================
// Activation: overlap and conflict guards
// =============================================================================

func (s *ServiceSuite) TestActivatePolicyOverlap() {
	s.activatedPolicy(models.Date(2026, time.January, 1), models.Date(2026, time.December, 31), 10000)

	s.Run("overlapping window is rejected", func() {
		second := s.newPolicy(models.Date(2026, time.June, 1), models.Date(2027, time.May, 31), 12000)
		payment, err := s.service.RecordPayment(s.ctx(), second.ID, s.admin.ID,
			12000, models.PaymentMethodBankTransfer, "RCPT-2")
		s.Require().NoError(err)

		// Verification succeeds; the opportunistic activation fails silently.
		_, err = s.service.VerifyPayment(s.ctx(), payment.ID, s.admin.ID)
		s.Require().NoError(err)

		reloaded, err := s.store.FindPolicy(s.ctx(), second.ID)
		s.Require().NoError(err)
		s.Equal(models.StatusPendingPayment, reloaded.Status)

		_, err = s.service.Activate(s.ctx(), models.KindPolicy, second.ID.String(), s.admin.ID)
		s.Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeOverlap))
	})

	s.Run("adjacent window activates", func() {
		next := s.newPolicy(models.Date(2027, time.January, 1), models.Date(2027, time.December, 31), 12000)
		s.payAndVerify(next)

		reloaded, err := s.store.FindPolicy(s.ctx(), next.ID)
		s.Require().NoError(err)
		s.Equal(models.StatusActive, reloaded.Status)
	})
}

func (s *ServiceSuite) TestActivatePermitConflict() {
	city := s.newPermitType("City Transport")
	intercity := s.newPermitType("Intercity Transport")
	cargo := s.newPermitType("Cargo")

	err := s.service.DeclarePermitConflict(s.ctx(), s.tenantA.ID, city.ID, intercity.ID, s.admin.ID)
	s.Require().NoError(err)

	start := models.Date(2026, time.April, 1)
	first := s.newPermit(city.ID, start, nil)
	_, err = s.service.Activate(s.ctx(), models.KindPermit, first.ID.String(), s.admin.ID)
	s.Require().NoError(err)

	s.Run("conflicting type with overlapping window is rejected", func() {
		second := s.newPermit(intercity.ID, models.Date(2026, time.May, 1), nil)
		_, err := s.service.Activate(s.ctx(), models.KindPermit, second.ID.String(), s.admin.ID)
		s.Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})

	s.Run("conflict is symmetric regardless of declaration side", func() {
		// The conflict was declared from city's side; an active intercity
		// permit must block a city permit just the same.
		_, err := s.service.Cancel(s.ctx(), models.KindPermit, first.ID.String(), s.admin.ID,
			models.ReasonOther, "swap types")
		s.Require().NoError(err)

		inter := s.newPermit(intercity.ID, start, nil)
		_, err = s.service.Activate(s.ctx(), models.KindPermit, inter.ID.String(), s.admin.ID)
		s.Require().NoError(err)

		cityAgain := s.newPermit(city.ID, models.Date(2026, time.June, 1), nil)
		_, err = s.service.Activate(s.ctx(), models.KindPermit, cityAgain.ID.String(), s.admin.ID)
		s.Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})

	s.Run("non-conflicting type coexists", func() {
		other := s.newPermit(cargo.ID, models.Date(2026, time.April, 10), nil)
		_, err := s.service.Activate(s.ctx(), models.KindPermit, other.ID.String(), s.admin.ID)
		s.NoError(err)
	})
}

func (s *ServiceSuite) TestActivateLicenseOverlap() {
	start := models.Date(2026, time.April, 1)
	first := s.newLicense("LIC-001", "passenger", start, nil)
	_, err := s.service.Activate(s.ctx(), models.KindLicense, first.ID.String(), s.admin.ID)
	s.Require().NoError(err)

	s.Run("same license type with overlapping window is rejected", func() {
		second := s.newLicense("LIC-002", "passenger", models.Date(2026, time.June, 1), nil)
		_, err := s.service.Activate(s.ctx(), models.KindLicense, second.ID.String(), s.admin.ID)
		s.Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeOverlap))
	})

	s.Run("different license type coexists", func() {
		cargo := s.newLicense("LIC-003", "cargo", models.Date(2026, time.June, 1), nil)
		_, err := s.service.Activate(s.ctx(), models.KindLicense, cargo.ID.String(), s.admin.ID)
		s.NoError(err)
	})
}

// =============================================================================
// Cancellation
// =============================================================================

func (s *ServiceSuite) TestCancel() {
	policy := s.activatedPolicy(models.Date(2026, time.January, 1), models.Date(2026, time.December, 31), 10000)

	s.Run("reason is mandatory", func() {
		_, err := s.service.Cancel(s.ctx(), models.KindPolicy, policy.ID.String(), s.admin.ID, "", "")
		s.Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
		s.Equal("reason", dErrors.FieldOf(err))
	})

	s.Run("reason must come from the allowed set", func() {
		_, err := s.service.Cancel(s.ctx(), models.KindPolicy, policy.ID.String(), s.admin.ID,
			models.CancellationReason("bored"), "")
		s.Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("cancellation writes the full trail and bounds the active window", func() {
		cancelTime := time.Date(2026, time.March, 20, 12, 0, 0, 0, time.UTC)
		cancelled, err := s.service.Cancel(s.ctxAt(cancelTime), models.KindPolicy, policy.ID.String(),
			s.manager.ID, models.ReasonVehicleSold, "sold at auction")
		s.Require().NoError(err)

		rec := cancelled.Rec()
		s.Equal(models.StatusCancelled, rec.Status)
		s.Equal(models.ReasonVehicleSold, rec.CancellationReason)
		s.Equal("sold at auction", rec.CancellationNote)
		s.Equal(s.manager.ID, rec.CancelledBy)
		s.Require().NotNil(rec.CancelledAt)
		s.Equal(cancelTime, *rec.CancelledAt)

		// In force the day before cancellation, not the day after.
		s.True(rec.IsActiveAt(models.Date(2026, time.March, 19)))
		s.False(rec.IsActiveAt(models.Date(2026, time.March, 21)))
	})

	s.Run("cancelling twice fails", func() {
		_, err := s.service.Cancel(s.ctx(), models.KindPolicy, policy.ID.String(), s.admin.ID,
			models.ReasonOther, "")
		s.Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidTransition))
	})

	s.Run("cancelled record cannot be reactivated", func() {
		_, err := s.service.Activate(s.ctx(), models.KindPolicy, policy.ID.String(), s.admin.ID)
		s.Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidTransition))
	})
}

func (s *ServiceSuite) TestCancelEmitsNotification() {
	policy := s.activatedPolicy(models.Date(2026, time.January, 1), models.Date(2026, time.December, 31), 10000)

	_, err := s.service.Cancel(s.ctx(), models.KindPolicy, policy.ID.String(), s.admin.ID,
		models.ReasonCustomerRequest, "")
	s.Require().NoError(err)

	events := s.publisher.Events()
	s.Require().Len(events, 1)
	s.Equal(notification.EventRecordCancelled, events[0].Kind)
	s.Equal(policy.ID.String(), events[0].EntityRef)
	s.Equal(string(models.ReasonCustomerRequest), events[0].Reason)
	s.Equal(s.tenantA.ID, events[0].TenantID)
}

func (s *ServiceSuite) TestNotificationFailureDoesNotAffectLifecycle() {
	policy := s.activatedPolicy(models.Date(2026, time.January, 1), models.Date(2026, time.December, 31), 10000)
	s.publisher.FailWith = errors.New("broker unreachable")

	cancelled, err := s.service.Cancel(s.ctx(), models.KindPolicy, policy.ID.String(), s.admin.ID,
		models.ReasonDataError, "")
	s.Require().NoError(err)
	s.Equal(models.StatusCancelled, cancelled.Rec().Status)

	reloaded, err := s.store.FindPolicy(s.ctx(), policy.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusCancelled, reloaded.Status)
}

// =============================================================================
// Expiry
// =============================================================================

func (s *ServiceSuite) TestExpire() {
	policy := s.activatedPolicy(models.Date(2026, time.April, 1), models.Date(2026, time.April, 30), 10000)

	s.Run("cannot expire before the end date has passed", func() {
		_, err := s.service.Expire(s.ctxAt(models.Date(2026, time.April, 30)), models.KindPolicy, policy.ID.String())
		s.Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidTransition))
	})

	s.Run("expires once the end date is strictly in the past", func() {
		expired, err := s.service.Expire(s.ctxAt(models.Date(2026, time.May, 1)), models.KindPolicy, policy.ID.String())
		s.Require().NoError(err)
		s.Equal(models.StatusExpired, expired.Rec().Status)

		// Coverage ran through the end of the final day.
		s.True(expired.Rec().IsActiveAt(models.Date(2026, time.April, 30)))
		s.False(expired.Rec().IsActiveAt(models.Date(2026, time.May, 1)))
	})

	s.Run("expired record cannot be cancelled", func() {
		_, err := s.service.Cancel(s.ctx(), models.KindPolicy, policy.ID.String(), s.admin.ID,
			models.ReasonOther, "")
		s.Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidTransition))
	})

	s.Run("open-ended record cannot expire", func() {
		permitType := s.newPermitType("Cargo")
		permit := s.newPermit(permitType.ID, models.Date(2026, time.January, 1), nil)
		_, err := s.service.Activate(s.ctx(), models.KindPermit, permit.ID.String(), s.admin.ID)
		s.Require().NoError(err)

		_, err = s.service.Expire(s.ctxAt(models.Date(2027, time.January, 1)), models.KindPermit, permit.ID.String())
		s.Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidTransition))
	})
}

func (s *ServiceSuite) TestSweepExpired() {
	s.activatedPolicy(models.Date(2026, time.January, 1), models.Date(2026, time.March, 10), 10000)
	keeper := s.activatedPolicy(models.Date(2026, time.March, 11), models.Date(2026, time.December, 31), 10000)

	end := models.Date(2026, time.March, 1)
	license := s.newLicense("LIC-SWEEP", "passenger", models.Date(2026, time.January, 1), &end)
	_, err := s.service.Activate(s.ctx(), models.KindLicense, license.ID.String(), s.admin.ID)
	s.Require().NoError(err)

	expired, failed, err := s.service.SweepExpired(s.ctx())
	s.Require().NoError(err)
	s.Equal(2, expired)
	s.Zero(failed)

	reloaded, err := s.store.FindPolicy(s.ctx(), keeper.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusActive, reloaded.Status)
}

// =============================================================================
// Authorization
// =============================================================================

func (s *ServiceSuite) TestLifecycleAuthorization() {
	policy := s.newPolicy(models.Date(2026, time.April, 1), models.Date(2026, time.September, 30), 10000)

	s.Run("actor from another tenant is rejected", func() {
		_, err := s.service.Activate(s.ctx(), models.KindPolicy, policy.ID.String(), s.outsider.ID)
		s.Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	s.Run("platform super admin is rejected even with a matching tenant", func() {
		_, err := s.service.Activate(s.ctx(), models.KindPolicy, policy.ID.String(), s.superAdmin.ID)
		s.Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	s.Run("staff role is rejected", func() {
		_, err := s.service.Cancel(s.ctx(), models.KindPolicy, policy.ID.String(), s.staff.ID,
			models.ReasonOther, "")
		s.Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	s.Run("unknown actor is rejected", func() {
		_, err := s.service.Activate(s.ctx(), models.KindPolicy, policy.ID.String(), s.admin.ID)
		// admin is known; the unpaid policy hits the payment gate, proving the
		// actor cleared authorization.
		s.True(dErrors.HasCode(err, dErrors.CodePaymentRequired))
	})
}
