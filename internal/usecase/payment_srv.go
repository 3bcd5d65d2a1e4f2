package usecase

import (
	"context"
	"fmt"
	"time"

	"tour-booking/internal/data/entity"
	"tour-booking/internal/data/repository"
	"tour-booking/internal/dto/request"
	"tour-booking/internal/dto/response"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type PaymentService interface {
	InitiatePayment(ctx context.Context, actor Actor, req *request.InitiatePaymentRequest) (*response.PaymentResponse, error)
	// SettlePayment applies the gateway outcome exactly once.
	SettlePayment(ctx context.Context, actor Actor, paymentID string, req *request.SettlePaymentRequest) (*response.PaymentResponse, error)
}

type paymentService struct {
	repo    *repository.Repository
	tx      repository.Transactor
	machine *bookingStateMachine
	log     *zap.Logger
	now     func() time.Time
}

func NewPaymentService(repo *repository.Repository, tx repository.Transactor, machine *bookingStateMachine, log *zap.Logger, now func() time.Time) PaymentService {
	return &paymentService{
		repo:    repo,
		tx:      tx,
		machine: machine,
		log:     log.With(zap.String("service", "payment")),
		now:     now,
	}
}

func (s *paymentService) InitiatePayment(ctx context.Context, actor Actor, req *request.InitiatePaymentRequest) (*response.PaymentResponse, error) {
	if err := validate(req); err != nil {
		s.log.Warn("Initiate payment validation failed", zap.Error(err))
		return nil, err
	}
	bookingID, err := parseID("booking", req.BookingID)
	if err != nil {
		return nil, err
	}

	var payment *entity.Payment
	err = s.tx.WithinTx(ctx, func(ctx context.Context, repo *repository.Repository) error {
		booking, err := lockBooking(ctx, repo, bookingID)
		if err != nil {
			return err
		}
		if !actor.CanAccess(booking) {
			return fmt.Errorf("pay booking %s: %w", booking.ID, ErrForbidden)
		}
		if booking.Status != entity.BookingStatusPending || booking.PaymentStatus != entity.BookingUnpaid {
			return fmt.Errorf("booking %s is %s/%s: %w", booking.ID, booking.Status, booking.PaymentStatus, ErrBookingNotPayable)
		}
		if err := ensureNotStarted(ctx, repo, booking); err != nil {
			return err
		}

		existing, err := repo.Payment.FindByBookingID(ctx, booking.ID)
		if err != nil {
			return err
		}
		if existing != nil {
			return fmt.Errorf("booking %s already has payment %s: %w", booking.ID, existing.ID, ErrBookingNotPayable)
		}

		now := s.now()
		payment = &entity.Payment{
			Base: entity.Base{
				ID:        uuid.New(),
				CreatedAt: now,
				UpdatedAt: now,
			},
			BookingID: booking.ID,
			Method:    entity.PaymentMethod(req.Method),
			Amount:    booking.TotalPrice,
			Status:    entity.PaymentStatusPending,
		}
		if err := repo.Payment.Create(ctx, payment); err != nil {
			return err
		}

		return appendEvent(ctx, repo, aggregateBooking, booking.ID.String(), EventPaymentInitiated, newPaymentEvent(payment, now), now)
	})
	if err != nil {
		logRejection(s.log, "Initiate payment rejected", err, zap.String("booking_id", req.BookingID))
		return nil, err
	}

	s.log.Info("Payment initiated",
		zap.String("payment_id", payment.ID.String()),
		zap.String("booking_id", payment.BookingID.String()),
		zap.String("amount", payment.Amount.String()),
	)

	resp := response.PaymentToResponse(payment)
	return &resp, nil
}

func (s *paymentService) SettlePayment(ctx context.Context, actor Actor, paymentID string, req *request.SettlePaymentRequest) (*response.PaymentResponse, error) {
	if !actor.Can(entity.CapSettlePayments) {
		return nil, fmt.Errorf("settle payment: %w", ErrForbidden)
	}
	if err := validate(req); err != nil {
		s.log.Warn("Settle payment validation failed", zap.Error(err))
		return nil, err
	}
	id, err := parseID("payment", paymentID)
	if err != nil {
		return nil, err
	}
	outcome := entity.PaymentStatus(req.Outcome)

	var payment *entity.Payment
	err = s.tx.WithinTx(ctx, func(ctx context.Context, repo *repository.Repository) error {
		p, err := repo.Payment.FindByID(ctx, id)
		if err != nil {
			return err
		}
		if p == nil {
			return fmt.Errorf("payment %s: %w", id, ErrNotFound)
		}

		// booking first, then payment, then departure
		booking, err := lockBooking(ctx, repo, p.BookingID)
		if err != nil {
			return err
		}

		now := s.now()
		settled, err := repo.Payment.MarkSettled(ctx, p.ID, outcome, now)
		if err != nil {
			return err
		}
		if !settled {
			return fmt.Errorf("payment %s: %w", p.ID, ErrAlreadySettled)
		}
		if outcome == entity.PaymentStatusCompleted {
			if err := ensureNotStarted(ctx, repo, booking); err != nil {
				return err
			}
		}
		p.Status = outcome
		p.SettledAt = &now
		p.UpdatedAt = now

		eventType := EventPaymentCompleted
		if outcome == entity.PaymentStatusFailed {
			eventType = EventPaymentFailed
		}
		if err := appendEvent(ctx, repo, aggregateBooking, booking.ID.String(), eventType, newPaymentEvent(p, now), now); err != nil {
			return err
		}

		if outcome == entity.PaymentStatusCompleted {
			err = s.machine.MarkConfirmed(ctx, repo, booking, p, now)
		} else {
			err = s.machine.MarkCancelledByPayment(ctx, repo, booking, p, now)
		}
		if err != nil {
			return err
		}

		payment = p
		return nil
	})
	if err != nil {
		logRejection(s.log, "Settle payment rejected", err,
			zap.String("payment_id", paymentID),
			zap.String("outcome", req.Outcome),
		)
		return nil, err
	}

	s.log.Info("Payment settled",
		zap.String("payment_id", payment.ID.String()),
		zap.String("booking_id", payment.BookingID.String()),
		zap.String("status", string(payment.Status)),
	)

	resp := response.PaymentToResponse(payment)
	return &resp, nil
}

// ensureNotStarted locks the booking's departure and rejects payment once the
// departure has left SCHEDULED, so no booking is confirmed on a running or
// finished departure.
func ensureNotStarted(ctx context.Context, repo *repository.Repository, booking *entity.Booking) error {
	departure, err := repo.Departure.FindByIDForUpdate(ctx, booking.DepartureID)
	if err != nil {
		return err
	}
	if departure == nil {
		return fmt.Errorf("departure %s: %w", booking.DepartureID, ErrNotFound)
	}
	if departure.HasStarted() {
		return fmt.Errorf("booking %s departure is %s: %w", booking.ID, departure.Status, ErrBookingNotPayable)
	}
	return nil
}

func newPaymentEvent(p *entity.Payment, at time.Time) paymentEvent {
	return paymentEvent{
		PaymentID:  p.ID.String(),
		BookingID:  p.BookingID.String(),
		Method:     p.Method,
		Amount:     p.Amount,
		Status:     p.Status,
		OccurredAt: at,
	}
}
