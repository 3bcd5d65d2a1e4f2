package usecase

import (
	"context"
	"fmt"
	"time"

	"tour-booking/internal/data/entity"
	"tour-booking/internal/data/repository"
	"tour-booking/internal/dto/request"
	"tour-booking/internal/dto/response"
	"tour-booking/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type BookingService interface {
	CreateBooking(ctx context.Context, actor Actor, req *request.CreateBookingRequest) (*response.BookingResponse, error)
	CancelBooking(ctx context.Context, actor Actor, bookingID string) (*response.BookingResponse, error)
	GetBooking(ctx context.Context, actor Actor, bookingID string) (*response.BookingResponse, error)
	GetUserBookings(ctx context.Context, actor Actor, req *request.PaginatedRequest) (*response.PaginatedResponse[response.BookingResponse], error)
	// GetVoucher renders the QR voucher of a paid, confirmed or completed booking.
	GetVoucher(ctx context.Context, actor Actor, bookingID string) ([]byte, error)
}

type bookingService struct {
	repo    *repository.Repository
	tx      repository.Transactor
	machine *bookingStateMachine
	log     *zap.Logger
	now     func() time.Time
}

func NewBookingService(repo *repository.Repository, tx repository.Transactor, machine *bookingStateMachine, log *zap.Logger, now func() time.Time) BookingService {
	return &bookingService{
		repo:    repo,
		tx:      tx,
		machine: machine,
		log:     log.With(zap.String("service", "booking")),
		now:     now,
	}
}

func (s *bookingService) CreateBooking(ctx context.Context, actor Actor, req *request.CreateBookingRequest) (*response.BookingResponse, error) {
	if err := validate(req); err != nil {
		s.log.Warn("Create booking validation failed", zap.Error(err))
		return nil, err
	}
	if !actor.Can(entity.CapBookOwn) {
		return nil, fmt.Errorf("create booking: %w", ErrForbidden)
	}

	var booking *entity.Booking
	err := s.tx.WithinTx(ctx, func(ctx context.Context, repo *repository.Repository) error {
		now := s.now()

		departure, err := s.resolveDeparture(ctx, repo, req)
		if err != nil {
			return err
		}
		if departure.Status != entity.DepartureStatusScheduled {
			return fmt.Errorf("departure %s is %s: %w", departure.ID, departure.Status, ErrDepartureNotBookable)
		}
		if departure.StartsAt != nil && !departure.StartsAt.After(now) {
			return fmt.Errorf("departure %s already started: %w", departure.ID, ErrDepartureNotBookable)
		}

		tour, err := repo.Tour.FindByID(ctx, departure.TourID)
		if err != nil {
			return err
		}
		if tour == nil {
			return fmt.Errorf("tour %s: %w", departure.TourID, ErrNotFound)
		}
		if !tour.IsActive {
			return fmt.Errorf("tour %s is inactive: %w", tour.ID, ErrDepartureNotBookable)
		}

		discounts, err := repo.Tour.FindActiveDiscounts(ctx, tour.ID, now)
		if err != nil {
			return err
		}
		total := TotalPrice(UnitPrice(tour.BasePrice, discounts, now), req.Participants)

		booking, err = s.machine.Create(ctx, repo, actor.UserID, departure, req.Participants, total, now)
		return err
	})
	if err != nil {
		logRejection(s.log, "Create booking rejected", err,
			zap.String("user_id", actor.UserID.String()),
			zap.Int("participants", req.Participants),
		)
		return nil, err
	}

	s.log.Info("Booking created",
		zap.String("booking_id", booking.ID.String()),
		zap.String("order_code", booking.OrderCode),
		zap.String("departure_id", booking.DepartureID.String()),
		zap.Int("participants", booking.Participants),
	)

	resp := response.BookingToResponse(booking)
	return &resp, nil
}

func (s *bookingService) resolveDeparture(ctx context.Context, repo *repository.Repository, req *request.CreateBookingRequest) (*entity.Departure, error) {
	if req.DepartureID != "" {
		id, err := parseID("departure", req.DepartureID)
		if err != nil {
			return nil, err
		}
		d, err := repo.Departure.FindByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if d == nil {
			return nil, fmt.Errorf("departure %s: %w", id, ErrNotFound)
		}
		return d, nil
	}

	tourID, err := parseID("tour", req.TourID)
	if err != nil {
		return nil, err
	}
	d, err := repo.Departure.FindOpenDatedByTourID(ctx, tourID)
	if err != nil {
		return nil, err
	}
	if d == nil {
		return nil, fmt.Errorf("open-dated departure for tour %s: %w", tourID, ErrNotFound)
	}
	return d, nil
}

func (s *bookingService) CancelBooking(ctx context.Context, actor Actor, bookingID string) (*response.BookingResponse, error) {
	id, err := parseID("booking", bookingID)
	if err != nil {
		return nil, err
	}

	var booking *entity.Booking
	err = s.tx.WithinTx(ctx, func(ctx context.Context, repo *repository.Repository) error {
		b, err := lockBooking(ctx, repo, id)
		if err != nil {
			return err
		}
		if err := s.machine.Cancel(ctx, repo, b, actor, s.now()); err != nil {
			return err
		}
		booking = b
		return nil
	})
	if err != nil {
		logRejection(s.log, "Cancel booking rejected", err,
			zap.String("booking_id", bookingID),
			zap.String("user_id", actor.UserID.String()),
		)
		return nil, err
	}

	s.log.Info("Booking cancelled",
		zap.String("booking_id", booking.ID.String()),
		zap.String("by", actor.UserID.String()),
	)

	resp := response.BookingToResponse(booking)
	return &resp, nil
}

func (s *bookingService) GetBooking(ctx context.Context, actor Actor, bookingID string) (*response.BookingResponse, error) {
	booking, err := s.findAccessible(ctx, actor, bookingID)
	if err != nil {
		return nil, err
	}

	resp := response.BookingToResponse(booking)

	payment, err := s.repo.Payment.FindByBookingID(ctx, booking.ID)
	if err != nil {
		return nil, err
	}
	if payment != nil {
		p := response.PaymentToResponse(payment)
		resp.Payment = &p
	}

	refund, err := s.repo.Refund.FindByBookingID(ctx, booking.ID)
	if err != nil {
		return nil, err
	}
	if refund != nil {
		r := response.RefundToResponse(refund)
		resp.Refund = &r
	}

	return &resp, nil
}

func (s *bookingService) GetUserBookings(ctx context.Context, actor Actor, req *request.PaginatedRequest) (*response.PaginatedResponse[response.BookingResponse], error) {
	page, limit := utils.NormalizePage(req.Page, req.PerPage)

	bookings, err := s.repo.Booking.FindByUserID(ctx, actor.UserID, limit, utils.CalculateOffset(page, limit))
	if err != nil {
		return nil, err
	}

	total, err := s.repo.Booking.CountByUserID(ctx, actor.UserID)
	if err != nil {
		return nil, err
	}

	items := make([]response.BookingResponse, 0, len(bookings))
	for _, b := range bookings {
		items = append(items, response.BookingToResponse(b))
	}

	return response.NewPaginatedResponse(items, page, limit, total), nil
}

func (s *bookingService) GetVoucher(ctx context.Context, actor Actor, bookingID string) ([]byte, error) {
	booking, err := s.findAccessible(ctx, actor, bookingID)
	if err != nil {
		return nil, err
	}

	if booking.PaymentStatus != entity.BookingPaid ||
		(booking.Status != entity.BookingStatusConfirmed && booking.Status != entity.BookingStatusCompleted) {
		s.log.Warn("Voucher requested for unpaid booking",
			zap.String("booking_id", booking.ID.String()),
			zap.String("status", string(booking.Status)),
		)
		return nil, fmt.Errorf("booking %s is %s/%s: %w", booking.ID, booking.Status, booking.PaymentStatus, ErrVoucherUnavailable)
	}

	png, err := RenderVoucher(booking)
	if err != nil {
		s.log.Error("Failed to render voucher", zap.Error(err), zap.String("booking_id", booking.ID.String()))
		return nil, fmt.Errorf("render voucher: %w", err)
	}
	return png, nil
}

func (s *bookingService) findAccessible(ctx context.Context, actor Actor, bookingID string) (*entity.Booking, error) {
	id, err := parseID("booking", bookingID)
	if err != nil {
		return nil, err
	}

	booking, err := s.repo.Booking.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if booking == nil {
		return nil, fmt.Errorf("booking %s: %w", id, ErrNotFound)
	}
	if !actor.CanAccess(booking) {
		return nil, fmt.Errorf("booking %s: %w", id, ErrForbidden)
	}
	return booking, nil
}

func lockBooking(ctx context.Context, repo *repository.Repository, id uuid.UUID) (*entity.Booking, error) {
	booking, err := repo.Booking.FindByIDForUpdate(ctx, id)
	if err != nil {
		return nil, err
	}
	if booking == nil {
		return nil, fmt.Errorf("booking %s: %w", id, ErrNotFound)
	}
	return booking, nil
}
