package usecase

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"tour-booking/internal/data/entity"
	"tour-booking/internal/dto/request"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBookingLifecycle_EndToEnd(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	d := f.departure(2)

	first := f.book(t, f.customer, d.ID, 2)
	assert.Equal(t, 0, f.available(t, d.ID))
	assert.Equal(t, entity.NewMoney(500, 0), first.TotalPrice)

	_, err := f.svc.Booking.CreateBooking(ctx, f.other, &request.CreateBookingRequest{
		DepartureID:  d.ID.String(),
		Participants: 1,
	})
	assert.ErrorIs(t, err, ErrCapacityExceeded)
	f.assertCapacityInvariant(t, d.ID)

	cancelled, err := f.svc.Booking.CancelBooking(ctx, f.customer, first.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.BookingStatusCancelled, cancelled.Status)
	assert.Equal(t, 2, f.available(t, d.ID))

	bookingID := f.paid(t, f.other, d.ID, 1)
	b := f.booking(t, bookingID)
	assert.Equal(t, entity.BookingStatusConfirmed, b.Status)
	assert.Equal(t, entity.BookingPaid, b.PaymentStatus)
	assert.Equal(t, 1, f.available(t, d.ID))
	f.assertCapacityInvariant(t, d.ID)

	refund, err := f.svc.Refund.RequestRefund(ctx, f.other, &request.RequestRefundRequest{
		BookingID: bookingID,
		Reason:    "cannot travel",
	})
	require.NoError(t, err)
	assert.Equal(t, entity.NewMoney(250, 0), refund.Amount)

	decided, err := f.svc.Refund.DecideRefund(ctx, f.admin, refund.ID, &request.DecideRefundRequest{
		Decision: string(entity.RefundStatusApproved),
	})
	require.NoError(t, err)
	assert.Equal(t, entity.RefundStatusApproved, decided.Status)

	b = f.booking(t, bookingID)
	assert.Equal(t, entity.BookingStatusCancelled, b.Status)
	assert.Equal(t, entity.BookingRefunded, b.PaymentStatus)
	assert.Equal(t, 2, f.available(t, d.ID))
	f.assertCapacityInvariant(t, d.ID)

	assert.Equal(t, []string{
		EventBookingCreated,
		EventBookingCancelled,
		EventBookingCreated,
		EventPaymentInitiated,
		EventPaymentCompleted,
		EventBookingConfirmed,
		EventRefundRequested,
		EventRefundApproved,
		EventBookingCancelled,
	}, eventTypes(f))
}

func TestCreateBooking_ConcurrentLastSeat(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	d := f.departure(1)

	var (
		wg        sync.WaitGroup
		succeeded atomic.Int32
		rejected  atomic.Int32
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			actor := Actor{UserID: uuid.New(), Role: entity.RoleCustomer}
			_, err := f.svc.Booking.CreateBooking(ctx, actor, &request.CreateBookingRequest{
				DepartureID:  d.ID.String(),
				Participants: 1,
			})
			switch {
			case err == nil:
				succeeded.Add(1)
			case assert.ErrorIs(t, err, ErrCapacityExceeded):
				rejected.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), succeeded.Load())
	assert.Equal(t, int32(19), rejected.Load())
	assert.Equal(t, 0, f.available(t, d.ID))
	f.assertCapacityInvariant(t, d.ID)
}

func TestCreateBooking_Rejections(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	d := f.departure(5)

	t.Run("validation", func(t *testing.T) {
		_, err := f.svc.Booking.CreateBooking(ctx, f.customer, &request.CreateBookingRequest{
			DepartureID:  d.ID.String(),
			Participants: 0,
		})
		assert.ErrorIs(t, err, ErrValidation)
	})

	t.Run("both targets", func(t *testing.T) {
		_, err := f.svc.Booking.CreateBooking(ctx, f.customer, &request.CreateBookingRequest{
			DepartureID:  d.ID.String(),
			TourID:       f.tour.ID.String(),
			Participants: 1,
		})
		assert.ErrorIs(t, err, ErrValidation)
	})

	t.Run("unknown departure", func(t *testing.T) {
		_, err := f.svc.Booking.CreateBooking(ctx, f.customer, &request.CreateBookingRequest{
			DepartureID:  uuid.NewString(),
			Participants: 1,
		})
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("departure not scheduled", func(t *testing.T) {
		cancelled := f.departure(5)
		_, err := f.svc.Departure.UpdateStatus(ctx, f.operator, cancelled.ID.String(), &request.UpdateDepartureStatusRequest{
			Status: string(entity.DepartureStatusCancelled),
		})
		require.NoError(t, err)

		_, err = f.svc.Booking.CreateBooking(ctx, f.customer, &request.CreateBookingRequest{
			DepartureID:  cancelled.ID.String(),
			Participants: 1,
		})
		assert.ErrorIs(t, err, ErrDepartureNotBookable)
	})

	assert.Equal(t, 5, f.available(t, d.ID))
	assert.NotContains(t, eventTypes(f), EventBookingCreated)
}

func TestCreateBooking_OpenDatedTour(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.svc.Booking.CreateBooking(ctx, f.customer, &request.CreateBookingRequest{
		TourID:       f.tour.ID.String(),
		Participants: 1,
	})
	assert.ErrorIs(t, err, ErrNotFound)

	open, err := f.svc.Departure.CreateDeparture(ctx, f.operator, &request.CreateDepartureRequest{
		TourID:        f.tour.ID.String(),
		TotalCapacity: 3,
	})
	require.NoError(t, err)

	b, err := f.svc.Booking.CreateBooking(ctx, f.customer, &request.CreateBookingRequest{
		TourID:       f.tour.ID.String(),
		Participants: 3,
	})
	require.NoError(t, err)
	assert.Equal(t, open.ID, b.DepartureID)
	assert.Equal(t, 0, f.available(t, uuid.MustParse(open.ID)))
}

func TestCreateBooking_AppliesBestDiscount(t *testing.T) {
	f := newFixture(t)
	d := f.departure(10)

	for _, pct := range []int{10, 25} {
		f.store.SeedDiscount(entity.Discount{
			BaseSimple: entity.BaseSimple{ID: uuid.New()},
			TourID:     f.tour.ID,
			Percentage: pct,
			StartsAt:   baseTime.AddDate(0, 0, -1),
			EndsAt:     baseTime.AddDate(0, 0, 1),
			IsActive:   true,
		})
	}

	b := f.book(t, f.customer, d.ID, 2)
	assert.Equal(t, entity.NewMoney(375, 0), b.TotalPrice)
}

func TestCancelBooking(t *testing.T) {
	ctx := context.Background()

	t.Run("other customer is forbidden", func(t *testing.T) {
		f := newFixture(t)
		d := f.departure(3)
		b := f.book(t, f.customer, d.ID, 1)

		_, err := f.svc.Booking.CancelBooking(ctx, f.other, b.ID)
		assert.ErrorIs(t, err, ErrForbidden)
		assert.Equal(t, 2, f.available(t, d.ID))
	})

	t.Run("operator may cancel any booking", func(t *testing.T) {
		f := newFixture(t)
		d := f.departure(3)
		b := f.book(t, f.customer, d.ID, 1)

		_, err := f.svc.Booking.CancelBooking(ctx, f.operator, b.ID)
		require.NoError(t, err)
		assert.Equal(t, 3, f.available(t, d.ID))
	})

	t.Run("paid booking", func(t *testing.T) {
		f := newFixture(t)
		d := f.departure(3)
		id := f.paid(t, f.customer, d.ID, 1)

		_, err := f.svc.Booking.CancelBooking(ctx, f.customer, id)
		assert.ErrorIs(t, err, ErrAlreadyPaid)
		assert.Equal(t, 2, f.available(t, d.ID))
	})

	t.Run("twice", func(t *testing.T) {
		f := newFixture(t)
		d := f.departure(3)
		b := f.book(t, f.customer, d.ID, 2)

		_, err := f.svc.Booking.CancelBooking(ctx, f.customer, b.ID)
		require.NoError(t, err)
		_, err = f.svc.Booking.CancelBooking(ctx, f.customer, b.ID)
		assert.ErrorIs(t, err, ErrInvalidTransition)
		assert.Equal(t, 3, f.available(t, d.ID))
		f.assertCapacityInvariant(t, d.ID)
	})

	t.Run("unknown booking", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.Booking.CancelBooking(ctx, f.customer, uuid.NewString())
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("pending payment is failed", func(t *testing.T) {
		f := newFixture(t)
		d := f.departure(3)
		b := f.book(t, f.customer, d.ID, 1)
		p, err := f.svc.Payment.InitiatePayment(ctx, f.customer, &request.InitiatePaymentRequest{
			BookingID: b.ID,
			Method:    string(entity.PaymentMethodEWallet),
		})
		require.NoError(t, err)

		_, err = f.svc.Booking.CancelBooking(ctx, f.customer, b.ID)
		require.NoError(t, err)

		_, err = f.svc.Payment.SettlePayment(ctx, f.operator, p.ID, &request.SettlePaymentRequest{
			Outcome: string(entity.PaymentStatusCompleted),
		})
		assert.ErrorIs(t, err, ErrAlreadySettled)
		assert.Equal(t, entity.BookingStatusCancelled, f.booking(t, b.ID).Status)
	})
}

func TestSettlePayment(t *testing.T) {
	ctx := context.Background()

	t.Run("failed outcome releases seats once", func(t *testing.T) {
		f := newFixture(t)
		d := f.departure(4)
		b := f.book(t, f.customer, d.ID, 3)
		p, err := f.svc.Payment.InitiatePayment(ctx, f.customer, &request.InitiatePaymentRequest{
			BookingID: b.ID,
			Method:    string(entity.PaymentMethodCard),
		})
		require.NoError(t, err)
		assert.Equal(t, b.TotalPrice, p.Amount)

		settled, err := f.svc.Payment.SettlePayment(ctx, f.operator, p.ID, &request.SettlePaymentRequest{
			Outcome: string(entity.PaymentStatusFailed),
		})
		require.NoError(t, err)
		assert.Equal(t, entity.PaymentStatusFailed, settled.Status)
		assert.Equal(t, 4, f.available(t, d.ID))

		booking := f.booking(t, b.ID)
		assert.Equal(t, entity.BookingStatusCancelled, booking.Status)
		assert.Equal(t, entity.BookingUnpaid, booking.PaymentStatus)

		_, err = f.svc.Payment.SettlePayment(ctx, f.operator, p.ID, &request.SettlePaymentRequest{
			Outcome: string(entity.PaymentStatusFailed),
		})
		assert.ErrorIs(t, err, ErrAlreadySettled)
		assert.Equal(t, 4, f.available(t, d.ID))
		f.assertCapacityInvariant(t, d.ID)
	})

	t.Run("customer cannot settle", func(t *testing.T) {
		f := newFixture(t)
		d := f.departure(2)
		b := f.book(t, f.customer, d.ID, 1)
		p, err := f.svc.Payment.InitiatePayment(ctx, f.customer, &request.InitiatePaymentRequest{
			BookingID: b.ID,
			Method:    string(entity.PaymentMethodCash),
		})
		require.NoError(t, err)

		_, err = f.svc.Payment.SettlePayment(ctx, f.customer, p.ID, &request.SettlePaymentRequest{
			Outcome: string(entity.PaymentStatusCompleted),
		})
		assert.ErrorIs(t, err, ErrForbidden)
	})

	t.Run("concurrent settlements apply once", func(t *testing.T) {
		f := newFixture(t)
		d := f.departure(2)
		b := f.book(t, f.customer, d.ID, 1)
		p, err := f.svc.Payment.InitiatePayment(ctx, f.customer, &request.InitiatePaymentRequest{
			BookingID: b.ID,
			Method:    string(entity.PaymentMethodCard),
		})
		require.NoError(t, err)

		var (
			wg sync.WaitGroup
			ok atomic.Int32
		)
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if _, err := f.svc.Payment.SettlePayment(ctx, f.operator, p.ID, &request.SettlePaymentRequest{
					Outcome: string(entity.PaymentStatusCompleted),
				}); err == nil {
					ok.Add(1)
				}
			}()
		}
		wg.Wait()

		assert.Equal(t, int32(1), ok.Load())
		assert.Equal(t, entity.BookingStatusConfirmed, f.booking(t, b.ID).Status)
	})
}

func TestInitiatePayment_Rejections(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	d := f.departure(3)
	b := f.book(t, f.customer, d.ID, 1)

	_, err := f.svc.Payment.InitiatePayment(ctx, f.other, &request.InitiatePaymentRequest{
		BookingID: b.ID,
		Method:    string(entity.PaymentMethodCard),
	})
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = f.svc.Payment.InitiatePayment(ctx, f.customer, &request.InitiatePaymentRequest{
		BookingID: b.ID,
		Method:    "cheque",
	})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = f.svc.Payment.InitiatePayment(ctx, f.customer, &request.InitiatePaymentRequest{
		BookingID: b.ID,
		Method:    string(entity.PaymentMethodCard),
	})
	require.NoError(t, err)

	_, err = f.svc.Payment.InitiatePayment(ctx, f.customer, &request.InitiatePaymentRequest{
		BookingID: b.ID,
		Method:    string(entity.PaymentMethodCard),
	})
	assert.ErrorIs(t, err, ErrBookingNotPayable)
}

func TestRefund(t *testing.T) {
	ctx := context.Background()

	t.Run("unpaid booking", func(t *testing.T) {
		f := newFixture(t)
		d := f.departure(3)
		b := f.book(t, f.customer, d.ID, 1)

		_, err := f.svc.Refund.RequestRefund(ctx, f.customer, &request.RequestRefundRequest{
			BookingID: b.ID,
			Reason:    "changed plans",
		})
		assert.ErrorIs(t, err, ErrNoCompletedPayment)
	})

	t.Run("amount above payment", func(t *testing.T) {
		f := newFixture(t)
		d := f.departure(3)
		id := f.paid(t, f.customer, d.ID, 1)
		amount := entity.NewMoney(251, 0)

		_, err := f.svc.Refund.RequestRefund(ctx, f.customer, &request.RequestRefundRequest{
			BookingID: id,
			Amount:    &amount,
			Reason:    "changed plans",
		})
		assert.ErrorIs(t, err, ErrRefundAmountExceeded)
	})

	t.Run("second request", func(t *testing.T) {
		f := newFixture(t)
		d := f.departure(3)
		id := f.paid(t, f.customer, d.ID, 1)
		req := &request.RequestRefundRequest{BookingID: id, Reason: "changed plans"}

		_, err := f.svc.Refund.RequestRefund(ctx, f.customer, req)
		require.NoError(t, err)
		_, err = f.svc.Refund.RequestRefund(ctx, f.customer, req)
		assert.ErrorIs(t, err, ErrAlreadyRefunded)
	})

	t.Run("rejected keeps the booking", func(t *testing.T) {
		f := newFixture(t)
		d := f.departure(3)
		id := f.paid(t, f.customer, d.ID, 2)
		rf, err := f.svc.Refund.RequestRefund(ctx, f.customer, &request.RequestRefundRequest{BookingID: id, Reason: "changed plans"})
		require.NoError(t, err)

		_, err = f.svc.Refund.DecideRefund(ctx, f.operator, rf.ID, &request.DecideRefundRequest{Decision: "approved"})
		assert.ErrorIs(t, err, ErrForbidden)

		_, err = f.svc.Refund.DecideRefund(ctx, f.admin, rf.ID, &request.DecideRefundRequest{Decision: "rejected"})
		require.NoError(t, err)
		_, err = f.svc.Refund.DecideRefund(ctx, f.admin, rf.ID, &request.DecideRefundRequest{Decision: "approved"})
		assert.ErrorIs(t, err, ErrAlreadyDecided)

		b := f.booking(t, id)
		assert.Equal(t, entity.BookingStatusConfirmed, b.Status)
		assert.Equal(t, entity.BookingPaid, b.PaymentStatus)
		assert.Equal(t, 1, f.available(t, d.ID))
	})

	t.Run("approved after departure started keeps seats", func(t *testing.T) {
		f := newFixture(t)
		d := f.departure(3)
		id := f.paid(t, f.customer, d.ID, 2)
		rf, err := f.svc.Refund.RequestRefund(ctx, f.customer, &request.RequestRefundRequest{BookingID: id, Reason: "sick on day two"})
		require.NoError(t, err)

		_, err = f.svc.Departure.UpdateStatus(ctx, f.operator, d.ID.String(), &request.UpdateDepartureStatusRequest{
			Status: string(entity.DepartureStatusInProgress),
		})
		require.NoError(t, err)

		_, err = f.svc.Refund.DecideRefund(ctx, f.admin, rf.ID, &request.DecideRefundRequest{Decision: "approved"})
		require.NoError(t, err)

		b := f.booking(t, id)
		assert.Equal(t, entity.BookingRefunded, b.PaymentStatus)
		assert.Equal(t, entity.BookingStatusConfirmed, b.Status)
		assert.Equal(t, 1, f.available(t, d.ID))
		f.assertCapacityInvariant(t, d.ID)
	})
}

func TestGetBooking_Visibility(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	d := f.departure(3)
	id := f.paid(t, f.customer, d.ID, 1)

	got, err := f.svc.Booking.GetBooking(ctx, f.customer, id)
	require.NoError(t, err)
	require.NotNil(t, got.Payment)
	assert.Equal(t, entity.PaymentStatusCompleted, got.Payment.Status)
	assert.Nil(t, got.Refund)

	_, err = f.svc.Booking.GetBooking(ctx, f.other, id)
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = f.svc.Booking.GetVoucher(ctx, f.other, id)
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = f.svc.Booking.CancelBooking(ctx, f.other, id)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = f.svc.Booking.GetBooking(ctx, f.other, uuid.NewString())
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = f.svc.Booking.GetBooking(ctx, f.operator, id)
	assert.NoError(t, err)
}

func TestGetUserBookings_Paginates(t *testing.T) {
	f := newFixture(t)
	d := f.departure(10)
	for i := 0; i < 3; i++ {
		f.book(t, f.customer, d.ID, 1)
		f.clock.Advance(1)
	}
	f.book(t, f.other, d.ID, 1)

	page, err := f.svc.Booking.GetUserBookings(context.Background(), f.customer, &request.PaginatedRequest{Page: 1, PerPage: 2})
	require.NoError(t, err)
	assert.Len(t, page.Data, 2)
	assert.Equal(t, int64(3), page.Pagination.Total)
	assert.Equal(t, 2, page.Pagination.TotalPages)

	page, err = f.svc.Booking.GetUserBookings(context.Background(), f.customer, &request.PaginatedRequest{Page: 2, PerPage: 2})
	require.NoError(t, err)
	assert.Len(t, page.Data, 1)
	assert.Equal(t, 2, page.Pagination.Page)

	// out-of-range values fall back to the first page of the default size
	page, err = f.svc.Booking.GetUserBookings(context.Background(), f.customer, &request.PaginatedRequest{})
	require.NoError(t, err)
	assert.Len(t, page.Data, 3)
	assert.Equal(t, 1, page.Pagination.Page)
	assert.Equal(t, 10, page.Pagination.PerPage)
	assert.Equal(t, 1, page.Pagination.TotalPages)
}

func TestGetVoucher(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	d := f.departure(3)

	pending := f.book(t, f.customer, d.ID, 1)
	_, err := f.svc.Booking.GetVoucher(ctx, f.customer, pending.ID)
	assert.ErrorIs(t, err, ErrVoucherUnavailable)

	id := f.paid(t, f.customer, d.ID, 1)
	png, err := f.svc.Booking.GetVoucher(ctx, f.customer, id)
	require.NoError(t, err)
	assert.Equal(t, []byte("\x89PNG"), png[:4])
}
