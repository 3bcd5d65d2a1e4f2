package repository

import (
	"context"
	"errors"
	"fmt"

	"tour-booking/internal/data/entity"
	"tour-booking/pkg/database"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

type DepartureRepository interface {
	Create(ctx context.Context, departure *entity.Departure) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Departure, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*entity.Departure, error)
	FindOpenDatedByTourID(ctx context.Context, tourID uuid.UUID) (*entity.Departure, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status entity.DepartureStatus) error

	// Reserve atomically takes count seats from a scheduled departure and
	// returns the seats left. ErrInsufficientCapacity when no row matched.
	Reserve(ctx context.Context, id uuid.UUID, count int) (int, error)
	// Release returns count seats, never exceeding total capacity. clamped is
	// true when the increment had to be cut at the capacity bound.
	Release(ctx context.Context, id uuid.UUID, count int) (remaining int, clamped bool, err error)
}

type departureRepository struct {
	db  database.DBTX
	log *zap.Logger
}

func NewDepartureRepository(db database.DBTX, log *zap.Logger) DepartureRepository {
	return &departureRepository{
		db:  db,
		log: log.With(zap.String("repository", "departure")),
	}
}

const departureColumns = `id, tour_id, starts_at, ends_at, total_capacity, available_seats, status, created_at, updated_at`

func scanDeparture(row pgx.Row) (*entity.Departure, error) {
	var d entity.Departure
	err := row.Scan(
		&d.ID,
		&d.TourID,
		&d.StartsAt,
		&d.EndsAt,
		&d.TotalCapacity,
		&d.AvailableSeats,
		&d.Status,
		&d.CreatedAt,
		&d.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *departureRepository) Create(ctx context.Context, d *entity.Departure) error {
	query := `
		INSERT INTO departures (` + departureColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.db.Exec(ctx, query,
		d.ID,
		d.TourID,
		d.StartsAt,
		d.EndsAt,
		d.TotalCapacity,
		d.AvailableSeats,
		d.Status,
		d.CreatedAt,
		d.UpdatedAt,
	)

	if err != nil {
		r.log.Error("Failed to create departure",
			zap.Error(err),
			zap.String("tour_id", d.TourID.String()),
		)
		return fmt.Errorf("create departure for tour %s: %w", d.TourID.String(), err)
	}

	return nil
}

func (r *departureRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Departure, error) {
	query := `SELECT ` + departureColumns + ` FROM departures WHERE id = $1`
	return r.findOne(ctx, "find departure", query, id)
}

func (r *departureRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*entity.Departure, error) {
	query := `SELECT ` + departureColumns + ` FROM departures WHERE id = $1 FOR UPDATE`
	return r.findOne(ctx, "lock departure", query, id)
}

func (r *departureRepository) FindOpenDatedByTourID(ctx context.Context, tourID uuid.UUID) (*entity.Departure, error) {
	query := `SELECT ` + departureColumns + ` FROM departures WHERE tour_id = $1 AND starts_at IS NULL`
	return r.findOne(ctx, "find open-dated departure", query, tourID)
}

func (r *departureRepository) findOne(ctx context.Context, op, query string, id uuid.UUID) (*entity.Departure, error) {
	d, err := scanDeparture(r.db.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to "+op,
			zap.Error(err),
			zap.String("id", id.String()),
		)
		return nil, fmt.Errorf("%s %s: %w", op, id.String(), err)
	}
	return d, nil
}

func (r *departureRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status entity.DepartureStatus) error {
	query := `
		UPDATE departures
		SET status = $2, updated_at = NOW()
		WHERE id = $1
	`

	result, err := r.db.Exec(ctx, query, id, status)
	if err != nil {
		r.log.Error("Failed to update departure status",
			zap.Error(err),
			zap.String("departure_id", id.String()),
			zap.String("status", string(status)),
		)
		return fmt.Errorf("update departure %s status: %w", id.String(), err)
	}

	if result.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

func (r *departureRepository) Reserve(ctx context.Context, id uuid.UUID, count int) (int, error) {
	query := `
		UPDATE departures
		SET available_seats = available_seats - $2, updated_at = NOW()
		WHERE id = $1
		  AND status = 'scheduled'
		  AND available_seats >= $2
		RETURNING available_seats
	`

	var remaining int
	err := r.db.QueryRow(ctx, query, id, count).Scan(&remaining)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrInsufficientCapacity
	}
	if err != nil {
		r.log.Error("Failed to reserve seats",
			zap.Error(err),
			zap.String("departure_id", id.String()),
			zap.Int("count", count),
		)
		return 0, fmt.Errorf("reserve %d seats on departure %s: %w", count, id.String(), err)
	}

	return remaining, nil
}

func (r *departureRepository) Release(ctx context.Context, id uuid.UUID, count int) (int, bool, error) {
	query := `
		WITH cur AS (
			SELECT id, total_capacity, available_seats
			FROM departures
			WHERE id = $1
			FOR UPDATE
		)
		UPDATE departures d
		SET available_seats = LEAST(cur.total_capacity, cur.available_seats + $2), updated_at = NOW()
		FROM cur
		WHERE d.id = cur.id
		RETURNING d.available_seats, cur.available_seats + $2 > cur.total_capacity
	`

	var (
		remaining int
		clamped   bool
	)
	err := r.db.QueryRow(ctx, query, id, count).Scan(&remaining, &clamped)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, false, ErrNotFound
	}
	if err != nil {
		r.log.Error("Failed to release seats",
			zap.Error(err),
			zap.String("departure_id", id.String()),
			zap.Int("count", count),
		)
		return 0, false, fmt.Errorf("release %d seats on departure %s: %w", count, id.String(), err)
	}

	return remaining, clamped, nil
}
