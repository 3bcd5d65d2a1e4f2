package usecase

import (
	"context"
	"testing"
	"time"

	"tour-booking/internal/data/entity"
	"tour-booking/internal/dto/request"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateDeparture(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	starts := baseTime.Add(72 * time.Hour)
	ends := starts.Add(24 * time.Hour)

	_, err := f.svc.Departure.CreateDeparture(ctx, f.customer, &request.CreateDepartureRequest{
		TourID: f.tour.ID.String(), StartsAt: &starts, EndsAt: &ends, TotalCapacity: 10,
	})
	assert.ErrorIs(t, err, ErrForbidden)

	d, err := f.svc.Departure.CreateDeparture(ctx, f.operator, &request.CreateDepartureRequest{
		TourID: f.tour.ID.String(), StartsAt: &starts, EndsAt: &ends, TotalCapacity: 10,
	})
	require.NoError(t, err)
	assert.Equal(t, 10, d.AvailableSeats)
	assert.Equal(t, entity.DepartureStatusScheduled, d.Status)

	got, err := f.svc.Departure.GetDeparture(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, d.ID, got.ID)

	t.Run("ends before start", func(t *testing.T) {
		_, err := f.svc.Departure.CreateDeparture(ctx, f.operator, &request.CreateDepartureRequest{
			TourID: f.tour.ID.String(), StartsAt: &ends, EndsAt: &starts, TotalCapacity: 10,
		})
		assert.ErrorIs(t, err, ErrValidation)
	})

	t.Run("only one bound", func(t *testing.T) {
		_, err := f.svc.Departure.CreateDeparture(ctx, f.operator, &request.CreateDepartureRequest{
			TourID: f.tour.ID.String(), StartsAt: &starts, TotalCapacity: 10,
		})
		assert.ErrorIs(t, err, ErrValidation)
	})

	t.Run("in the past", func(t *testing.T) {
		past := baseTime.Add(-time.Hour)
		_, err := f.svc.Departure.CreateDeparture(ctx, f.operator, &request.CreateDepartureRequest{
			TourID: f.tour.ID.String(), StartsAt: &past, EndsAt: &ends, TotalCapacity: 10,
		})
		assert.ErrorIs(t, err, ErrValidation)
	})

	t.Run("unknown tour", func(t *testing.T) {
		_, err := f.svc.Departure.CreateDeparture(ctx, f.operator, &request.CreateDepartureRequest{
			TourID: uuid.NewString(), StartsAt: &starts, EndsAt: &ends, TotalCapacity: 10,
		})
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("second open-dated departure", func(t *testing.T) {
		req := &request.CreateDepartureRequest{TourID: f.tour.ID.String(), TotalCapacity: 5}
		_, err := f.svc.Departure.CreateDeparture(ctx, f.operator, req)
		require.NoError(t, err)
		_, err = f.svc.Departure.CreateDeparture(ctx, f.operator, req)
		assert.ErrorIs(t, err, ErrOpenDatedExists)
	})
}

func TestUpdateDepartureStatus(t *testing.T) {
	ctx := context.Background()
	status := func(s entity.DepartureStatus) *request.UpdateDepartureStatusRequest {
		return &request.UpdateDepartureStatusRequest{Status: string(s)}
	}

	t.Run("cancel rejected while bookings are active", func(t *testing.T) {
		f := newFixture(t)
		d := f.departure(4)
		b := f.book(t, f.customer, d.ID, 1)

		_, err := f.svc.Departure.UpdateStatus(ctx, f.operator, d.ID.String(), status(entity.DepartureStatusCancelled))
		assert.ErrorIs(t, err, ErrDepartureHasBookings)

		_, err = f.svc.Booking.CancelBooking(ctx, f.customer, b.ID)
		require.NoError(t, err)
		got, err := f.svc.Departure.UpdateStatus(ctx, f.operator, d.ID.String(), status(entity.DepartureStatusCancelled))
		require.NoError(t, err)
		assert.Equal(t, entity.DepartureStatusCancelled, got.Status)
	})

	t.Run("skipping in progress is rejected", func(t *testing.T) {
		f := newFixture(t)
		d := f.departure(4)

		_, err := f.svc.Departure.UpdateStatus(ctx, f.operator, d.ID.String(), status(entity.DepartureStatusCompleted))
		assert.ErrorIs(t, err, ErrInvalidTransition)
	})

	t.Run("completion completes confirmed bookings", func(t *testing.T) {
		f := newFixture(t)
		d := f.departure(4)
		confirmed := f.paid(t, f.customer, d.ID, 2)
		pending := f.book(t, f.other, d.ID, 1)

		_, err := f.svc.Departure.UpdateStatus(ctx, f.operator, d.ID.String(), status(entity.DepartureStatusInProgress))
		require.NoError(t, err)
		_, err = f.svc.Departure.UpdateStatus(ctx, f.operator, d.ID.String(), status(entity.DepartureStatusCompleted))
		require.NoError(t, err)

		assert.Equal(t, entity.BookingStatusCompleted, f.booking(t, confirmed).Status)
		assert.Equal(t, entity.BookingPaid, f.booking(t, confirmed).PaymentStatus)
		assert.Equal(t, entity.BookingStatusPending, f.booking(t, pending.ID).Status)
		assert.Contains(t, eventTypes(f), EventBookingCompleted)
		assert.Contains(t, eventTypes(f), EventDepartureStatus)

		png, err := f.svc.Booking.GetVoucher(ctx, f.customer, confirmed)
		require.NoError(t, err)
		assert.NotEmpty(t, png)
	})

	t.Run("customer cannot manage departures", func(t *testing.T) {
		f := newFixture(t)
		d := f.departure(4)

		_, err := f.svc.Departure.UpdateStatus(ctx, f.customer, d.ID.String(), status(entity.DepartureStatusInProgress))
		assert.ErrorIs(t, err, ErrForbidden)
	})
}

func TestPayment_RejectedOnceDepartureStarted(t *testing.T) {
	ctx := context.Background()
	status := func(s entity.DepartureStatus) *request.UpdateDepartureStatusRequest {
		return &request.UpdateDepartureStatusRequest{Status: string(s)}
	}

	t.Run("initiate after completion", func(t *testing.T) {
		f := newFixture(t)
		d := f.departure(4)
		b := f.book(t, f.customer, d.ID, 1)

		_, err := f.svc.Departure.UpdateStatus(ctx, f.operator, d.ID.String(), status(entity.DepartureStatusInProgress))
		require.NoError(t, err)
		_, err = f.svc.Departure.UpdateStatus(ctx, f.operator, d.ID.String(), status(entity.DepartureStatusCompleted))
		require.NoError(t, err)

		_, err = f.svc.Payment.InitiatePayment(ctx, f.customer, &request.InitiatePaymentRequest{BookingID: b.ID, Method: "card"})
		assert.ErrorIs(t, err, ErrBookingNotPayable)

		got := f.booking(t, b.ID)
		assert.Equal(t, entity.BookingStatusPending, got.Status)
		assert.Equal(t, entity.BookingUnpaid, got.PaymentStatus)
	})

	t.Run("settle completed after completion", func(t *testing.T) {
		f := newFixture(t)
		d := f.departure(4)
		b := f.book(t, f.customer, d.ID, 1)
		p, err := f.svc.Payment.InitiatePayment(ctx, f.customer, &request.InitiatePaymentRequest{BookingID: b.ID, Method: "card"})
		require.NoError(t, err)

		_, err = f.svc.Departure.UpdateStatus(ctx, f.operator, d.ID.String(), status(entity.DepartureStatusInProgress))
		require.NoError(t, err)
		_, err = f.svc.Departure.UpdateStatus(ctx, f.operator, d.ID.String(), status(entity.DepartureStatusCompleted))
		require.NoError(t, err)

		_, err = f.svc.Payment.SettlePayment(ctx, f.operator, p.ID, &request.SettlePaymentRequest{Outcome: "completed"})
		assert.ErrorIs(t, err, ErrBookingNotPayable)

		got := f.booking(t, b.ID)
		assert.Equal(t, entity.BookingStatusPending, got.Status)
		assert.Equal(t, entity.BookingUnpaid, got.PaymentStatus)
		assert.NotContains(t, eventTypes(f), EventBookingConfirmed)

		// the gateway can still report the failure, which releases the seat
		settled, err := f.svc.Payment.SettlePayment(ctx, f.operator, p.ID, &request.SettlePaymentRequest{Outcome: "failed"})
		require.NoError(t, err)
		assert.Equal(t, entity.PaymentStatusFailed, settled.Status)
		assert.Equal(t, entity.BookingStatusCancelled, f.booking(t, b.ID).Status)
		f.assertCapacityInvariant(t, d.ID)
	})

	t.Run("settle completed while in progress", func(t *testing.T) {
		f := newFixture(t)
		d := f.departure(4)
		b := f.book(t, f.customer, d.ID, 2)
		p, err := f.svc.Payment.InitiatePayment(ctx, f.customer, &request.InitiatePaymentRequest{BookingID: b.ID, Method: "card"})
		require.NoError(t, err)

		_, err = f.svc.Departure.UpdateStatus(ctx, f.operator, d.ID.String(), status(entity.DepartureStatusInProgress))
		require.NoError(t, err)

		_, err = f.svc.Payment.SettlePayment(ctx, f.operator, p.ID, &request.SettlePaymentRequest{Outcome: "completed"})
		assert.ErrorIs(t, err, ErrBookingNotPayable)
		assert.Equal(t, 2, 4-f.available(t, d.ID))
	})
}
