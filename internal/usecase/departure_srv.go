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

type DepartureService interface {
	CreateDeparture(ctx context.Context, actor Actor, req *request.CreateDepartureRequest) (*response.DepartureResponse, error)
	GetDeparture(ctx context.Context, departureID string) (*response.DepartureResponse, error)
	// UpdateStatus moves a departure through its lifecycle. Completing it
	// completes every confirmed booking in the same transaction.
	UpdateStatus(ctx context.Context, actor Actor, departureID string, req *request.UpdateDepartureStatusRequest) (*response.DepartureResponse, error)
}

type departureService struct {
	repo    *repository.Repository
	tx      repository.Transactor
	machine *bookingStateMachine
	log     *zap.Logger
	now     func() time.Time
}

func NewDepartureService(repo *repository.Repository, tx repository.Transactor, machine *bookingStateMachine, log *zap.Logger, now func() time.Time) DepartureService {
	return &departureService{
		repo:    repo,
		tx:      tx,
		machine: machine,
		log:     log.With(zap.String("service", "departure")),
		now:     now,
	}
}

func (s *departureService) CreateDeparture(ctx context.Context, actor Actor, req *request.CreateDepartureRequest) (*response.DepartureResponse, error) {
	if !actor.Can(entity.CapManageDepartures) {
		return nil, fmt.Errorf("create departure: %w", ErrForbidden)
	}
	if err := validate(req); err != nil {
		s.log.Warn("Create departure validation failed", zap.Error(err))
		return nil, err
	}
	if (req.StartsAt == nil) != (req.EndsAt == nil) {
		return nil, fmt.Errorf("starts_at and ends_at must be given together: %w", ErrValidation)
	}
	tourID, err := parseID("tour", req.TourID)
	if err != nil {
		return nil, err
	}

	var departure *entity.Departure
	err = s.tx.WithinTx(ctx, func(ctx context.Context, repo *repository.Repository) error {
		now := s.now()
		if req.StartsAt != nil && !req.StartsAt.After(now) {
			return fmt.Errorf("departure must start in the future: %w", ErrValidation)
		}

		tour, err := repo.Tour.FindByID(ctx, tourID)
		if err != nil {
			return err
		}
		if tour == nil {
			return fmt.Errorf("tour %s: %w", tourID, ErrNotFound)
		}

		if req.StartsAt == nil {
			existing, err := repo.Departure.FindOpenDatedByTourID(ctx, tourID)
			if err != nil {
				return err
			}
			if existing != nil {
				return fmt.Errorf("tour %s: %w", tourID, ErrOpenDatedExists)
			}
		}

		departure = &entity.Departure{
			Base: entity.Base{
				ID:        uuid.New(),
				CreatedAt: now,
				UpdatedAt: now,
			},
			TourID:         tourID,
			StartsAt:       req.StartsAt,
			EndsAt:         req.EndsAt,
			TotalCapacity:  req.TotalCapacity,
			AvailableSeats: req.TotalCapacity,
			Status:         entity.DepartureStatusScheduled,
		}
		return repo.Departure.Create(ctx, departure)
	})
	if err != nil {
		logRejection(s.log, "Create departure rejected", err, zap.String("tour_id", req.TourID))
		return nil, err
	}

	s.log.Info("Departure created",
		zap.String("departure_id", departure.ID.String()),
		zap.String("tour_id", departure.TourID.String()),
		zap.Int("capacity", departure.TotalCapacity),
		zap.Bool("open_dated", departure.IsOpenDated()),
	)

	resp := response.DepartureToResponse(departure)
	return &resp, nil
}

func (s *departureService) GetDeparture(ctx context.Context, departureID string) (*response.DepartureResponse, error) {
	id, err := parseID("departure", departureID)
	if err != nil {
		return nil, err
	}

	departure, err := s.repo.Departure.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if departure == nil {
		return nil, fmt.Errorf("departure %s: %w", id, ErrNotFound)
	}

	resp := response.DepartureToResponse(departure)
	return &resp, nil
}

func (s *departureService) UpdateStatus(ctx context.Context, actor Actor, departureID string, req *request.UpdateDepartureStatusRequest) (*response.DepartureResponse, error) {
	if !actor.Can(entity.CapManageDepartures) {
		return nil, fmt.Errorf("update departure: %w", ErrForbidden)
	}
	if err := validate(req); err != nil {
		s.log.Warn("Update departure validation failed", zap.Error(err))
		return nil, err
	}
	id, err := parseID("departure", departureID)
	if err != nil {
		return nil, err
	}
	target := entity.DepartureStatus(req.Status)

	var (
		departure *entity.Departure
		completed int
	)
	err = s.tx.WithinTx(ctx, func(ctx context.Context, repo *repository.Repository) error {
		d, err := repo.Departure.FindByID(ctx, id)
		if err != nil {
			return err
		}
		if d == nil {
			return fmt.Errorf("departure %s: %w", id, ErrNotFound)
		}

		// bookings are locked before the departure row
		var confirmed []*entity.Booking
		if target == entity.DepartureStatusCompleted {
			confirmed, err = repo.Booking.FindByDepartureID(ctx, id, entity.BookingStatusConfirmed)
			if err != nil {
				return err
			}
		}

		d, err = repo.Departure.FindByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if !d.Status.CanTransitionTo(target) {
			return fmt.Errorf("departure %s %s -> %s: %w", id, d.Status, target, ErrInvalidTransition)
		}

		if target == entity.DepartureStatusCancelled {
			active, err := repo.Booking.CountActiveByDepartureID(ctx, id)
			if err != nil {
				return err
			}
			if active > 0 {
				return fmt.Errorf("departure %s has %d active bookings: %w", id, active, ErrDepartureHasBookings)
			}
		}

		if err := repo.Departure.UpdateStatus(ctx, id, target); err != nil {
			return err
		}

		now := s.now()
		from := d.Status
		d.Status = target
		d.UpdatedAt = now

		if err := appendEvent(ctx, repo, aggregateDeparture, id.String(), EventDepartureStatus, departureEvent{
			DepartureID: id.String(),
			TourID:      d.TourID.String(),
			From:        from,
			To:          target,
			OccurredAt:  now,
		}, now); err != nil {
			return err
		}

		for _, b := range confirmed {
			if err := s.machine.MarkCompleted(ctx, repo, b, now); err != nil {
				return err
			}
		}

		departure = d
		completed = len(confirmed)
		return nil
	})
	if err != nil {
		logRejection(s.log, "Update departure status rejected", err,
			zap.String("departure_id", departureID),
			zap.String("status", req.Status),
		)
		return nil, err
	}

	s.log.Info("Departure status updated",
		zap.String("departure_id", departure.ID.String()),
		zap.String("status", string(departure.Status)),
		zap.Int("bookings_completed", completed),
	)

	resp := response.DepartureToResponse(departure)
	return &resp, nil
}
