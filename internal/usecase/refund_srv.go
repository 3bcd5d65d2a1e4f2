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

type RefundService interface {
	RequestRefund(ctx context.Context, actor Actor, req *request.RequestRefundRequest) (*response.RefundResponse, error)
	DecideRefund(ctx context.Context, actor Actor, refundID string, req *request.DecideRefundRequest) (*response.RefundResponse, error)
}

type refundService struct {
	repo    *repository.Repository
	tx      repository.Transactor
	machine *bookingStateMachine
	log     *zap.Logger
	now     func() time.Time
}

func NewRefundService(repo *repository.Repository, tx repository.Transactor, machine *bookingStateMachine, log *zap.Logger, now func() time.Time) RefundService {
	return &refundService{
		repo:    repo,
		tx:      tx,
		machine: machine,
		log:     log.With(zap.String("service", "refund")),
		now:     now,
	}
}

func (s *refundService) RequestRefund(ctx context.Context, actor Actor, req *request.RequestRefundRequest) (*response.RefundResponse, error) {
	if err := validate(req); err != nil {
		s.log.Warn("Request refund validation failed", zap.Error(err))
		return nil, err
	}
	bookingID, err := parseID("booking", req.BookingID)
	if err != nil {
		return nil, err
	}

	var refund *entity.Refund
	err = s.tx.WithinTx(ctx, func(ctx context.Context, repo *repository.Repository) error {
		booking, err := lockBooking(ctx, repo, bookingID)
		if err != nil {
			return err
		}
		if !actor.CanAccess(booking) {
			return fmt.Errorf("refund booking %s: %w", booking.ID, ErrForbidden)
		}

		existing, err := repo.Refund.FindByBookingID(ctx, booking.ID)
		if err != nil {
			return err
		}
		if existing != nil || booking.PaymentStatus == entity.BookingRefunded {
			return fmt.Errorf("booking %s: %w", booking.ID, ErrAlreadyRefunded)
		}

		payment, err := repo.Payment.FindByBookingID(ctx, booking.ID)
		if err != nil {
			return err
		}
		if payment == nil || payment.Status != entity.PaymentStatusCompleted {
			return fmt.Errorf("booking %s: %w", booking.ID, ErrNoCompletedPayment)
		}

		amount := payment.Amount
		if req.Amount != nil {
			amount = *req.Amount
		}
		if amount <= 0 {
			return fmt.Errorf("refund amount %s: %w", amount, ErrValidation)
		}
		if amount > payment.Amount {
			return fmt.Errorf("refund %s of payment %s: %w", amount, payment.Amount, ErrRefundAmountExceeded)
		}

		now := s.now()
		refund = &entity.Refund{
			Base: entity.Base{
				ID:        uuid.New(),
				CreatedAt: now,
				UpdatedAt: now,
			},
			BookingID: booking.ID,
			PaymentID: payment.ID,
			Amount:    amount,
			Reason:    req.Reason,
			Status:    entity.RefundStatusPending,
		}
		if err := repo.Refund.Create(ctx, refund); err != nil {
			return err
		}

		return appendEvent(ctx, repo, aggregateBooking, booking.ID.String(), EventRefundRequested, newRefundEvent(refund, now), now)
	})
	if err != nil {
		logRejection(s.log, "Request refund rejected", err, zap.String("booking_id", req.BookingID))
		return nil, err
	}

	s.log.Info("Refund requested",
		zap.String("refund_id", refund.ID.String()),
		zap.String("booking_id", refund.BookingID.String()),
		zap.String("amount", refund.Amount.String()),
	)

	resp := response.RefundToResponse(refund)
	return &resp, nil
}

func (s *refundService) DecideRefund(ctx context.Context, actor Actor, refundID string, req *request.DecideRefundRequest) (*response.RefundResponse, error) {
	if !actor.Can(entity.CapDecideRefunds) {
		return nil, fmt.Errorf("decide refund: %w", ErrForbidden)
	}
	if err := validate(req); err != nil {
		s.log.Warn("Decide refund validation failed", zap.Error(err))
		return nil, err
	}
	id, err := parseID("refund", refundID)
	if err != nil {
		return nil, err
	}
	decision := entity.RefundStatus(req.Decision)

	var refund *entity.Refund
	err = s.tx.WithinTx(ctx, func(ctx context.Context, repo *repository.Repository) error {
		rf, err := repo.Refund.FindByID(ctx, id)
		if err != nil {
			return err
		}
		if rf == nil {
			return fmt.Errorf("refund %s: %w", id, ErrNotFound)
		}

		booking, err := lockBooking(ctx, repo, rf.BookingID)
		if err != nil {
			return err
		}

		now := s.now()
		decided, err := repo.Refund.MarkDecided(ctx, rf.ID, decision, now)
		if err != nil {
			return err
		}
		if !decided {
			return fmt.Errorf("refund %s: %w", rf.ID, ErrAlreadyDecided)
		}
		rf.Status = decision
		rf.DecidedAt = &now
		rf.UpdatedAt = now

		eventType := EventRefundRejected
		if decision == entity.RefundStatusApproved {
			eventType = EventRefundApproved
		}
		if err := appendEvent(ctx, repo, aggregateBooking, booking.ID.String(), eventType, newRefundEvent(rf, now), now); err != nil {
			return err
		}

		if decision == entity.RefundStatusApproved {
			departure, err := repo.Departure.FindByIDForUpdate(ctx, booking.DepartureID)
			if err != nil {
				return err
			}
			if departure == nil {
				return fmt.Errorf("departure %s: %w", booking.DepartureID, ErrNotFound)
			}

			release := !departure.HasStarted() && booking.Status.HoldsSeats()
			if err := s.machine.MarkCancelledByRefund(ctx, repo, booking, rf, release, now); err != nil {
				return err
			}
		}

		refund = rf
		return nil
	})
	if err != nil {
		logRejection(s.log, "Decide refund rejected", err,
			zap.String("refund_id", refundID),
			zap.String("decision", req.Decision),
		)
		return nil, err
	}

	s.log.Info("Refund decided",
		zap.String("refund_id", refund.ID.String()),
		zap.String("booking_id", refund.BookingID.String()),
		zap.String("status", string(refund.Status)),
	)

	resp := response.RefundToResponse(refund)
	return &resp, nil
}

func newRefundEvent(r *entity.Refund, at time.Time) refundEvent {
	return refundEvent{
		RefundID:   r.ID.String(),
		BookingID:  r.BookingID.String(),
		PaymentID:  r.PaymentID.String(),
		Amount:     r.Amount,
		Status:     r.Status,
		Reason:     r.Reason,
		OccurredAt: at,
	}
}
