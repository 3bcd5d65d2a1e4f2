package usecase

import (
	"context"
	"errors"
	"fmt"

	"tour-booking/internal/data/entity"
	"tour-booking/internal/data/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CapacityLedger is the only writer of a departure's available seats. Every
// call runs against repositories bound to the caller's transaction.
type CapacityLedger struct {
	log *zap.Logger
}

func NewCapacityLedger(log *zap.Logger) *CapacityLedger {
	return &CapacityLedger{log: log.With(zap.String("component", "capacity_ledger"))}
}

// Reserve takes count seats in one conditional update and returns the seats left.
func (l *CapacityLedger) Reserve(ctx context.Context, repo *repository.Repository, departureID uuid.UUID, count int) (int, error) {
	if count < 1 {
		return 0, fmt.Errorf("reserve %d seats: %w", count, ErrValidation)
	}

	remaining, err := repo.Departure.Reserve(ctx, departureID, count)
	if err == nil {
		l.log.Debug("Seats reserved",
			zap.String("departure_id", departureID.String()),
			zap.Int("count", count),
			zap.Int("remaining", remaining),
		)
		return remaining, nil
	}
	if !errors.Is(err, repository.ErrInsufficientCapacity) {
		return 0, fmt.Errorf("reserve seats: %w", err)
	}

	// the update matched nothing, find out why
	d, err := repo.Departure.FindByID(ctx, departureID)
	if err != nil {
		return 0, fmt.Errorf("reserve seats: %w", err)
	}

	switch {
	case d == nil:
		return 0, fmt.Errorf("departure %s: %w", departureID, ErrNotFound)
	case d.Status != entity.DepartureStatusScheduled:
		return 0, fmt.Errorf("departure %s is %s: %w", departureID, d.Status, ErrDepartureNotBookable)
	default:
		return 0, fmt.Errorf("departure %s has %d seats left, %d requested: %w",
			departureID, d.AvailableSeats, count, ErrInsufficientCapacity)
	}
}

// Release returns count seats. An increment past total capacity means seats
// were released twice; it is logged at DPanic and clamped.
func (l *CapacityLedger) Release(ctx context.Context, repo *repository.Repository, departureID uuid.UUID, count int) (int, error) {
	if count < 1 {
		return 0, fmt.Errorf("release %d seats: %w", count, ErrValidation)
	}

	remaining, clamped, err := repo.Departure.Release(ctx, departureID, count)
	if errors.Is(err, repository.ErrNotFound) {
		return 0, fmt.Errorf("departure %s: %w", departureID, ErrNotFound)
	}
	if err != nil {
		return 0, fmt.Errorf("release seats: %w", err)
	}

	if clamped {
		l.log.DPanic("Seat release exceeded total capacity",
			zap.String("departure_id", departureID.String()),
			zap.Int("count", count),
			zap.Int("available_seats", remaining),
		)
	}

	return remaining, nil
}
