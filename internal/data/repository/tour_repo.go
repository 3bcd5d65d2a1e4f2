package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tour-booking/internal/data/entity"
	"tour-booking/pkg/database"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

// TourRepository is the read-only view of the catalog needed for pricing.
type TourRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Tour, error)
	FindActiveDiscounts(ctx context.Context, tourID uuid.UUID, at time.Time) ([]*entity.Discount, error)
}

type tourRepository struct {
	db  database.DBTX
	log *zap.Logger
}

func NewTourRepository(db database.DBTX, log *zap.Logger) TourRepository {
	return &tourRepository{
		db:  db,
		log: log.With(zap.String("repository", "tour")),
	}
}

func (r *tourRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Tour, error) {
	query := `
		SELECT id, category_id, title, base_price, is_active, created_at, updated_at
		FROM tours
		WHERE id = $1
	`

	var tour entity.Tour
	err := r.db.QueryRow(ctx, query, id).Scan(
		&tour.ID,
		&tour.CategoryID,
		&tour.Title,
		&tour.BasePrice,
		&tour.IsActive,
		&tour.CreatedAt,
		&tour.UpdatedAt,
	)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find tour by ID",
			zap.Error(err),
			zap.String("tour_id", id.String()),
		)
		return nil, fmt.Errorf("find tour by ID %s: %w", id.String(), err)
	}

	return &tour, nil
}

func (r *tourRepository) FindActiveDiscounts(ctx context.Context, tourID uuid.UUID, at time.Time) ([]*entity.Discount, error) {
	query := `
		SELECT id, tour_id, percentage, starts_at, ends_at, is_active, created_at
		FROM discounts
		WHERE tour_id = $1
		  AND is_active
		  AND starts_at <= $2
		  AND ends_at >= $2
		ORDER BY percentage DESC
	`

	rows, err := r.db.Query(ctx, query, tourID, at)
	if err != nil {
		r.log.Error("Failed to find active discounts",
			zap.Error(err),
			zap.String("tour_id", tourID.String()),
		)
		return nil, fmt.Errorf("find discounts for tour %s: %w", tourID.String(), err)
	}
	defer rows.Close()

	var discounts []*entity.Discount
	for rows.Next() {
		var d entity.Discount
		if err := rows.Scan(
			&d.ID,
			&d.TourID,
			&d.Percentage,
			&d.StartsAt,
			&d.EndsAt,
			&d.IsActive,
			&d.CreatedAt,
		); err != nil {
			r.log.Error("Failed to scan discount", zap.Error(err))
			return nil, fmt.Errorf("scan discount: %w", err)
		}
		discounts = append(discounts, &d)
	}

	return discounts, rows.Err()
}
