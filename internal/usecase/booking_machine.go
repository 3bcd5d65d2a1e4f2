package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tour-booking/internal/data/entity"
	"tour-booking/internal/data/repository"
	"tour-booking/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// bookingStateMachine owns every booking status change. Each method runs
// against repositories bound to the caller's transaction and expects the
// booking row to be locked already.
type bookingStateMachine struct {
	ledger *CapacityLedger
	log    *zap.Logger
}

func newBookingStateMachine(ledger *CapacityLedger, log *zap.Logger) *bookingStateMachine {
	return &bookingStateMachine{
		ledger: ledger,
		log:    log.With(zap.String("component", "booking_state_machine")),
	}
}

// Create reserves seats and inserts a PENDING, UNPAID booking.
func (m *bookingStateMachine) Create(ctx context.Context, repo *repository.Repository, userID uuid.UUID, departure *entity.Departure, participants int, total entity.Money, now time.Time) (*entity.Booking, error) {
	if _, err := m.ledger.Reserve(ctx, repo, departure.ID, participants); err != nil {
		if errors.Is(err, ErrInsufficientCapacity) {
			return nil, fmt.Errorf("%w: %w", ErrCapacityExceeded, err)
		}
		return nil, err
	}

	booking := &entity.Booking{
		Base: entity.Base{
			ID:        uuid.New(),
			CreatedAt: now,
			UpdatedAt: now,
		},
		OrderCode:     utils.GenerateOrderCode(now),
		UserID:        userID,
		DepartureID:   departure.ID,
		TourID:        departure.TourID,
		Participants:  participants,
		TotalPrice:    total,
		Status:        entity.BookingStatusPending,
		PaymentStatus: entity.BookingUnpaid,
	}

	if err := repo.Booking.Create(ctx, booking); err != nil {
		return nil, err
	}

	if err := appendEvent(ctx, repo, aggregateBooking, booking.ID.String(), EventBookingCreated, newBookingEvent(booking, now), now); err != nil {
		return nil, err
	}

	return booking, nil
}

// Cancel is the caller-initiated cancellation of an unpaid, pending booking.
// A still pending payment is closed as failed so a late gateway callback
// cannot confirm a cancelled booking.
func (m *bookingStateMachine) Cancel(ctx context.Context, repo *repository.Repository, b *entity.Booking, actor Actor, now time.Time) error {
	if !actor.CanAccess(b) {
		return fmt.Errorf("cancel booking %s: %w", b.ID, ErrForbidden)
	}

	payment, err := repo.Payment.FindByBookingID(ctx, b.ID)
	if err != nil {
		return err
	}
	if b.PaymentStatus != entity.BookingUnpaid || (payment != nil && payment.Status == entity.PaymentStatusCompleted) {
		return fmt.Errorf("cancel booking %s: %w", b.ID, ErrAlreadyPaid)
	}
	if b.Status != entity.BookingStatusPending {
		return fmt.Errorf("cancel booking %s in status %s: %w", b.ID, b.Status, ErrInvalidTransition)
	}

	if payment != nil && payment.Status == entity.PaymentStatusPending {
		if _, err := repo.Payment.MarkSettled(ctx, payment.ID, entity.PaymentStatusFailed, now); err != nil {
			return err
		}
	}

	if _, err := m.ledger.Release(ctx, repo, b.DepartureID, b.Participants); err != nil {
		return err
	}

	return m.apply(ctx, repo, b, entity.BookingStatusCancelled, entity.BookingUnpaid, EventBookingCancelled, now, nil)
}

func (m *bookingStateMachine) MarkConfirmed(ctx context.Context, repo *repository.Repository, b *entity.Booking, payment *entity.Payment, now time.Time) error {
	return m.apply(ctx, repo, b, entity.BookingStatusConfirmed, entity.BookingPaid, EventBookingConfirmed, now, func(ev *bookingEvent) {
		ev.PaymentID = payment.ID.String()
	})
}

// MarkCancelledByPayment cancels a booking whose payment failed and returns its seats.
func (m *bookingStateMachine) MarkCancelledByPayment(ctx context.Context, repo *repository.Repository, b *entity.Booking, payment *entity.Payment, now time.Time) error {
	if !b.Status.CanTransitionTo(entity.BookingStatusCancelled) {
		return m.bypass(b, entity.BookingStatusCancelled)
	}
	if _, err := m.ledger.Release(ctx, repo, b.DepartureID, b.Participants); err != nil {
		return err
	}
	return m.apply(ctx, repo, b, entity.BookingStatusCancelled, entity.BookingUnpaid, EventBookingCancelled, now, func(ev *bookingEvent) {
		ev.PaymentID = payment.ID.String()
	})
}

// MarkCancelledByRefund records an approved refund. Seats are returned and the
// booking cancelled only when releaseSeats is set; otherwise the booking keeps
// its status and only the payment status changes.
func (m *bookingStateMachine) MarkCancelledByRefund(ctx context.Context, repo *repository.Repository, b *entity.Booking, refund *entity.Refund, releaseSeats bool, now time.Time) error {
	withRefund := func(ev *bookingEvent) {
		ev.RefundID = refund.ID.String()
		amount := refund.Amount
		ev.Amount = &amount
	}

	if !releaseSeats {
		return m.apply(ctx, repo, b, b.Status, entity.BookingRefunded, "", now, nil)
	}

	if !b.Status.CanTransitionTo(entity.BookingStatusCancelled) {
		return m.bypass(b, entity.BookingStatusCancelled)
	}
	if _, err := m.ledger.Release(ctx, repo, b.DepartureID, b.Participants); err != nil {
		return err
	}
	return m.apply(ctx, repo, b, entity.BookingStatusCancelled, entity.BookingRefunded, EventBookingCancelled, now, withRefund)
}

func (m *bookingStateMachine) MarkCompleted(ctx context.Context, repo *repository.Repository, b *entity.Booking, now time.Time) error {
	return m.apply(ctx, repo, b, entity.BookingStatusCompleted, b.PaymentStatus, EventBookingCompleted, now, nil)
}

// apply persists the new state and, unless eventType is empty, its outbox
// event. A status change outside the transition table is an internal error.
func (m *bookingStateMachine) apply(ctx context.Context, repo *repository.Repository, b *entity.Booking, to entity.BookingStatus, pay entity.BookingPaymentStatus, eventType string, now time.Time, decorate func(*bookingEvent)) error {
	if to != b.Status && !b.Status.CanTransitionTo(to) {
		return m.bypass(b, to)
	}

	if err := repo.Booking.UpdateState(ctx, b.ID, to, pay); err != nil {
		return err
	}

	from := b.Status
	b.Status = to
	b.PaymentStatus = pay
	b.UpdatedAt = now

	if eventType != "" {
		ev := newBookingEvent(b, now)
		if decorate != nil {
			decorate(&ev)
		}
		if err := appendEvent(ctx, repo, aggregateBooking, b.ID.String(), eventType, ev, now); err != nil {
			return err
		}
	}

	m.log.Info("Booking transitioned",
		zap.String("booking_id", b.ID.String()),
		zap.String("from", string(from)),
		zap.String("to", string(to)),
		zap.String("payment_status", string(pay)),
	)
	return nil
}

func (m *bookingStateMachine) bypass(b *entity.Booking, to entity.BookingStatus) error {
	m.log.DPanic("Booking transition outside state table",
		zap.String("booking_id", b.ID.String()),
		zap.String("from", string(b.Status)),
		zap.String("to", string(to)),
	)
	return fmt.Errorf("booking %s %s -> %s: %w", b.ID, b.Status, to, ErrInvalidTransition)
}
