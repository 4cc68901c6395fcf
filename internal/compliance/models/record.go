package models

import (
	"time"

	id "fleetcomply/pkg/domain"
	dErrors "fleetcomply/pkg/domain-errors"
)

// Record is the shared shape of all time-bound compliance entities
// (Policy, Permit, RegistrationLicense). It is embedded, never used alone.
//
// Invariants:
//   - TenantID is set on creation and never changes
//   - TenantID equals the owning vehicle's tenant
//   - EndDate, when present, is on or after StartDate
//   - Once Status is active, descriptive fields are immutable; only the
//     lifecycle fields (status, cancellation trail) may change, and only
//     through the lifecycle service
//
// Status, ActivatedAt, CancelledAt, CancelledBy, CancellationReason and
// CancellationNote are the complete lifecycle audit trail. They are never
// back-dated or written outside the lifecycle service.
type Record struct {
	TenantID  id.TenantID  `json:"tenant_id"`
	VehicleID id.VehicleID `json:"vehicle_id"`

	// StartDate and EndDate are calendar dates stored at UTC midnight.
	// A nil EndDate means the record is open-ended.
	StartDate time.Time  `json:"start_date"`
	EndDate   *time.Time `json:"end_date,omitempty"`

	Status Status `json:"status"`

	ActivatedAt        *time.Time         `json:"activated_at,omitempty"`
	CancelledAt        *time.Time         `json:"cancelled_at,omitempty"`
	CancelledBy        id.UserID          `json:"cancelled_by,omitempty"`
	CancellationReason CancellationReason `json:"cancellation_reason,omitempty"`
	CancellationNote   string             `json:"cancellation_note,omitempty"`

	CreatedBy id.UserID  `json:"created_by,omitempty"`
	UpdatedBy id.UserID  `json:"updated_by,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
}

// Validate checks the shared invariants.
func (r *Record) Validate() error {
	if r.TenantID.IsNil() {
		return dErrors.New(dErrors.CodeInvariantViolation, "record requires a tenant").WithField("tenant_id")
	}
	if r.VehicleID.IsNil() {
		return dErrors.New(dErrors.CodeInvariantViolation, "record requires a vehicle").WithField("vehicle_id")
	}
	if r.StartDate.IsZero() {
		return dErrors.New(dErrors.CodeInvariantViolation, "record requires a start date").WithField("start_date")
	}
	if !r.Status.Valid() {
		return dErrors.Newf(dErrors.CodeInvariantViolation, "unknown status: %s", r.Status).WithField("status")
	}
	if r.EndDate != nil && r.EndDate.Before(r.StartDate) {
		return dErrors.New(dErrors.CodeInvariantViolation, "end date must be on or after start date").WithField("end_date")
	}
	return nil
}

// IsDeleted reports whether the record is soft-deleted.
func (r *Record) IsDeleted() bool {
	return r.DeletedAt != nil
}

// IsImmutable reports whether descriptive fields are frozen. Active records
// can only move through lifecycle transitions; edits require cancelling and
// recreating the record.
func (r *Record) IsImmutable() bool {
	return r.Status == StatusActive
}

// SoftDelete marks the record hidden from default read paths.
func (r *Record) SoftDelete(now time.Time) {
	r.DeletedAt = &now
	r.UpdatedAt = now
}

// ApplyActivation transitions the record to active. Callers run the full
// guard chain (tenant, role, payment, overlap) first.
func (r *Record) ApplyActivation(now time.Time, actor id.UserID) {
	r.Status = StatusActive
	r.ActivatedAt = &now
	r.UpdatedBy = actor
	r.UpdatedAt = now
}

// ApplyCancellation transitions the record to cancelled and writes the
// cancellation trail.
func (r *Record) ApplyCancellation(now time.Time, actor id.UserID, reason CancellationReason, note string) {
	r.Status = StatusCancelled
	r.CancelledAt = &now
	r.CancelledBy = actor
	r.CancellationReason = reason
	r.CancellationNote = note
	r.UpdatedBy = actor
	r.UpdatedAt = now
}

// ApplyExpiry transitions the record to expired.
func (r *Record) ApplyExpiry(now time.Time) {
	r.Status = StatusExpired
	r.UpdatedAt = now
}

// ActiveWindow derives the half-open interval during which the record was
// actually in force, from its status and lifecycle timestamps. A record
// cancelled after activation was in force from activation until cancellation,
// even though its current status is cancelled.
//
// Returns (nil, nil) when the record never became active. A nil end means
// the window is still open.
func (r *Record) ActiveWindow() (start, end *time.Time) {
	if r.ActivatedAt == nil {
		return nil, nil
	}
	// Coverage counts from the start of the activation day, so a record
	// activated mid-morning is already in force for that date.
	from := startOfDay(*r.ActivatedAt)

	switch r.Status {
	case StatusCancelled:
		if r.CancelledAt != nil {
			return &from, r.CancelledAt
		}
		return nil, nil
	case StatusExpired:
		if r.EndDate != nil {
			// Expired coverage runs through the end of its final day.
			until := endOfDay(*r.EndDate)
			return &from, &until
		}
		return nil, nil
	case StatusActive:
		return &from, nil
	}
	return nil, nil
}

// IsActiveAt reports whether the record was in force at the given date.
func (r *Record) IsActiveAt(date time.Time) bool {
	start, end := r.ActiveWindow()
	if start == nil {
		return false
	}
	at := startOfDay(date)
	if at.Before(*start) {
		return false
	}
	if end != nil && at.After(*end) {
		return false
	}
	return true
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func endOfDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 23, 59, 59, int(time.Second-time.Nanosecond), time.UTC)
}

// Date normalizes a timestamp to a calendar date at UTC midnight, the
// canonical representation for StartDate/EndDate.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}
