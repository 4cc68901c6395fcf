package service_test

import (
	"time"

	"fleetcomply/internal/compliance/models"
	dErrors "fleetcomply/pkg/domain-errors"
)

// =============================================================================
// Payment recording
// =============================================================================

func (s *ServiceSuite) TestRecordPayment() {
	policy := s.newPolicy(models.Date(2026, time.April, 1), models.Date(2026, time.September, 30), 10000)

	s.Run("records a pending payment for the exact premium", func() {
		payment, err := s.service.RecordPayment(s.ctx(), policy.ID, s.admin.ID,
			10000, models.PaymentMethodMobileMoney, "MM-001")
		s.Require().NoError(err)
		s.Equal(models.ReviewPending, payment.ReviewStatus())
		s.False(payment.Verified)
		s.Equal(int64(10000), payment.Amount)
	})

	s.Run("second payment is rejected while one is pending", func() {
		_, err := s.service.RecordPayment(s.ctx(), policy.ID, s.admin.ID,
			10000, models.PaymentMethodCash, "RCPT-DUP")
		s.Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})

	s.Run("overpayment is rejected", func() {
		other := s.newPolicy(models.Date(2027, time.April, 1), models.Date(2027, time.September, 30), 10000)
		_, err := s.service.RecordPayment(s.ctx(), other.ID, s.admin.ID,
			15000, models.PaymentMethodCash, "RCPT-OVER")
		s.Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("staff cannot record payments", func() {
		_, err := s.service.RecordPayment(s.ctx(), policy.ID, s.staff.ID,
			10000, models.PaymentMethodCash, "RCPT-STAFF")
		s.Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})
}

func (s *ServiceSuite) TestRecordPaymentAgainstTerminalPolicy() {
	policy := s.activatedPolicy(models.Date(2026, time.January, 1), models.Date(2026, time.June, 30), 10000)
	_, err := s.service.Cancel(s.ctx(), models.KindPolicy, policy.ID.String(), s.admin.ID,
		models.ReasonCustomerRequest, "")
	s.Require().NoError(err)

	_, err = s.service.RecordPayment(s.ctx(), policy.ID, s.admin.ID,
		10000, models.PaymentMethodCash, "RCPT-LATE")
	s.Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidTransition))
}

// =============================================================================
// Payment verification
// =============================================================================

func (s *ServiceSuite) TestVerifyPayment() {
	policy := s.newPolicy(models.Date(2026, time.April, 1), models.Date(2026, time.September, 30), 10000)
	payment, err := s.service.RecordPayment(s.ctx(), policy.ID, s.admin.ID,
		10000, models.PaymentMethodBankTransfer, "BT-001")
	s.Require().NoError(err)

	s.Run("staff cannot verify", func() {
		_, err := s.service.VerifyPayment(s.ctx(), payment.ID, s.staff.ID)
		s.Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	s.Run("manager verification activates the policy", func() {
		verified, err := s.service.VerifyPayment(s.ctx(), payment.ID, s.manager.ID)
		s.Require().NoError(err)
		s.True(verified.Verified)
		s.Equal(s.manager.ID, verified.VerifiedBy)
		s.Equal(models.ReviewApproved, verified.ReviewStatus())

		reloaded, err := s.store.FindPolicy(s.ctx(), policy.ID)
		s.Require().NoError(err)
		s.Equal(models.StatusActive, reloaded.Status)
	})

	s.Run("verifying twice fails", func() {
		_, err := s.service.VerifyPayment(s.ctx(), payment.ID, s.admin.ID)
		s.Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidTransition))
	})

	s.Run("verified payment cannot be rejected", func() {
		_, err := s.service.RejectPayment(s.ctx(), payment.ID, s.admin.ID, "too late")
		s.Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidTransition))
	})
}

// =============================================================================
// Payment rejection
// =============================================================================

func (s *ServiceSuite) TestRejectPayment() {
	policy := s.newPolicy(models.Date(2026, time.April, 1), models.Date(2026, time.September, 30), 10000)
	payment, err := s.service.RecordPayment(s.ctx(), policy.ID, s.admin.ID,
		10000, models.PaymentMethodCheck, "CHK-001")
	s.Require().NoError(err)

	s.Run("rejection records the trail", func() {
		rejected, err := s.service.RejectPayment(s.ctx(), payment.ID, s.admin.ID, "check bounced")
		s.Require().NoError(err)
		s.Equal(models.ReviewRejected, rejected.ReviewStatus())
		s.Equal("check bounced", rejected.RejectionNote)
		s.Equal(s.admin.ID, rejected.RejectedBy)
	})

	s.Run("rejection releases the single-payment slot", func() {
		replacement, err := s.service.RecordPayment(s.ctx(), policy.ID, s.admin.ID,
			10000, models.PaymentMethodCash, "RCPT-REPLACE")
		s.Require().NoError(err)
		s.Equal(models.ReviewPending, replacement.ReviewStatus())
	})

	s.Run("rejected payment does not satisfy the payment gate", func() {
		_, err := s.service.Activate(s.ctx(), models.KindPolicy, policy.ID.String(), s.admin.ID)
		s.Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodePaymentRequired))
	})

	s.Run("rejecting twice fails", func() {
		_, err := s.service.RejectPayment(s.ctx(), payment.ID, s.admin.ID, "again")
		s.Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidTransition))
	})
}

// =============================================================================
// Payment reads
// =============================================================================

func (s *ServiceSuite) TestPolicyPaymentsTenantScoping() {
	policy := s.newPolicy(models.Date(2026, time.April, 1), models.Date(2026, time.September, 30), 10000)
	s.payAndVerify(policy)

	s.Run("owning tenant sees the payments", func() {
		payments, err := s.service.PolicyPayments(s.ctx(), policy.ID)
		s.Require().NoError(err)
		s.Len(payments, 1)
	})

	s.Run("another tenant cannot tell the policy from a missing one", func() {
		payments, err := s.service.PolicyPayments(s.ctxFor(s.tenantB.ID), policy.ID)
		s.Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
		s.Nil(payments)
	})
}
