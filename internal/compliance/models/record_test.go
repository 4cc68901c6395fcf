package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "fleetcomply/pkg/domain"
	dErrors "fleetcomply/pkg/domain-errors"
)

func validRecord() Record {
	end := Date(2024, 12, 31)
	return Record{
		TenantID:  id.NewTenantID(),
		VehicleID: id.NewVehicleID(),
		StartDate: Date(2024, 1, 1),
		EndDate:   &end,
		Status:    StatusDraft,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
}

func TestRecordValidate(t *testing.T) {
	t.Run("accepts a well-formed record", func(t *testing.T) {
		r := validRecord()
		require.NoError(t, r.Validate())
	})

	t.Run("rejects end date before start date", func(t *testing.T) {
		r := validRecord()
		end := Date(2023, 12, 31)
		r.EndDate = &end
		err := r.Validate()
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))
		assert.Equal(t, "end_date", dErrors.FieldOf(err))
	})

	t.Run("end date equal to start date is legal", func(t *testing.T) {
		r := validRecord()
		sameDay := r.StartDate
		r.EndDate = &sameDay
		require.NoError(t, r.Validate())
	})

	t.Run("open-ended record is legal", func(t *testing.T) {
		r := validRecord()
		r.EndDate = nil
		require.NoError(t, r.Validate())
	})

	t.Run("rejects missing tenant", func(t *testing.T) {
		r := validRecord()
		r.TenantID = id.TenantID{}
		assert.Error(t, r.Validate())
	})
}

func TestRecordImmutability(t *testing.T) {
	r := validRecord()
	assert.False(t, r.IsImmutable())
	r.ApplyActivation(time.Now(), id.NewUserID())
	assert.True(t, r.IsImmutable())
}

func TestActiveWindow(t *testing.T) {
	actor := id.NewUserID()
	activated := time.Date(2024, 2, 1, 10, 0, 0, 0, time.UTC)

	t.Run("never-activated record has no window", func(t *testing.T) {
		r := validRecord()
		start, end := r.ActiveWindow()
		assert.Nil(t, start)
		assert.Nil(t, end)
		assert.False(t, r.IsActiveAt(Date(2024, 3, 1)))
	})

	t.Run("active record has an open window from activation", func(t *testing.T) {
		r := validRecord()
		r.ApplyActivation(activated, actor)
		start, end := r.ActiveWindow()
		require.NotNil(t, start)
		assert.Equal(t, Date(2024, 2, 1), *start, "window opens at the start of the activation day")
		assert.Nil(t, end)
		assert.True(t, r.IsActiveAt(Date(2024, 2, 1)), "in force on the activation day itself")
		assert.True(t, r.IsActiveAt(Date(2024, 6, 1)))
		assert.False(t, r.IsActiveAt(Date(2024, 1, 15)))
	})

	t.Run("cancelled record was in force until cancellation", func(t *testing.T) {
		r := validRecord()
		r.ApplyActivation(activated, actor)
		cancelled := time.Date(2024, 5, 10, 9, 0, 0, 0, time.UTC)
		r.ApplyCancellation(cancelled, actor, ReasonCustomerRequest, "sold the truck")

		start, end := r.ActiveWindow()
		require.NotNil(t, start)
		require.NotNil(t, end)
		assert.Equal(t, cancelled, *end)

		assert.True(t, r.IsActiveAt(Date(2024, 5, 9)), "day before cancellation")
		assert.False(t, r.IsActiveAt(Date(2024, 5, 11)), "day after cancellation")
	})

	t.Run("expired record was in force through its end date", func(t *testing.T) {
		r := validRecord()
		r.ApplyActivation(activated, actor)
		r.ApplyExpiry(time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC))

		assert.True(t, r.IsActiveAt(Date(2024, 12, 31)))
		assert.False(t, r.IsActiveAt(Date(2025, 1, 1)))
	})

	t.Run("cancellation trail is recorded", func(t *testing.T) {
		r := validRecord()
		r.ApplyActivation(activated, actor)
		cancelled := time.Date(2024, 5, 10, 9, 0, 0, 0, time.UTC)
		r.ApplyCancellation(cancelled, actor, ReasonVehicleSold, "note")

		assert.Equal(t, StatusCancelled, r.Status)
		assert.Equal(t, actor, r.CancelledBy)
		assert.Equal(t, ReasonVehicleSold, r.CancellationReason)
		assert.Equal(t, "note", r.CancellationNote)
		require.NotNil(t, r.CancelledAt)
		assert.Equal(t, cancelled, *r.CancelledAt)
	})
}

func TestSoftDelete(t *testing.T) {
	r := validRecord()
	assert.False(t, r.IsDeleted())
	r.SoftDelete(time.Now())
	assert.True(t, r.IsDeleted())
}
