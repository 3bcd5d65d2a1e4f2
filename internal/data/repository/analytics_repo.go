package repository

import (
	"context"
	"fmt"
	"time"

	"tour-booking/internal/data/entity"
	"tour-booking/pkg/database"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

// HistoryFilter narrows the analytics history. Nil fields mean no filter.
type HistoryFilter struct {
	CategoryID *uuid.UUID
	TourID     *uuid.UUID
}

func (f HistoryFilter) MatchesTour(tourID, categoryID uuid.UUID) bool {
	if f.TourID != nil && *f.TourID != tourID {
		return false
	}
	if f.CategoryID != nil && *f.CategoryID != categoryID {
		return false
	}
	return true
}

type TourFact struct {
	TourID     uuid.UUID
	CategoryID uuid.UUID
	Title      string
	Category   string
}

type BookingFact struct {
	BookingID    uuid.UUID
	TourID       uuid.UUID
	DepartureID  uuid.UUID
	Participants int
	Status       entity.BookingStatus
	CreatedAt    time.Time
}

type PaymentFact struct {
	BookingID uuid.UUID
	TourID    uuid.UUID
	Amount    entity.Money
	Status    entity.PaymentStatus
	SettledAt *time.Time
	CreatedAt time.Time
}

type RefundFact struct {
	BookingID uuid.UUID
	TourID    uuid.UUID
	Amount    entity.Money
	Status    entity.RefundStatus
	DecidedAt *time.Time
}

// History is the committed booking/payment/refund record the analytics
// aggregator reads, loaded from one snapshot.
type History struct {
	Tours      []TourFact
	Bookings   []BookingFact
	Payments   []PaymentFact
	Refunds    []RefundFact
	Departures []*entity.Departure
}

type AnalyticsRepository interface {
	LoadHistory(ctx context.Context, filter HistoryFilter) (*History, error)
}

type analyticsRepository struct {
	db  database.DBTX
	log *zap.Logger
}

func NewAnalyticsRepository(db database.DBTX, log *zap.Logger) AnalyticsRepository {
	return &analyticsRepository{
		db:  db,
		log: log.With(zap.String("repository", "analytics")),
	}
}

const tourFilter = `($1::uuid IS NULL OR t.category_id = $1) AND ($2::uuid IS NULL OR t.id = $2)`

func (r *analyticsRepository) LoadHistory(ctx context.Context, filter HistoryFilter) (*History, error) {
	var (
		h   History
		err error
	)

	h.Tours, err = queryFacts(ctx, r, "tours", `
		SELECT t.id, t.category_id, t.title, c.name
		FROM tours t
		JOIN categories c ON c.id = t.category_id
		WHERE `+tourFilter+`
		ORDER BY t.id
	`, filter, func(row pgx.Rows) (TourFact, error) {
		var f TourFact
		err := row.Scan(&f.TourID, &f.CategoryID, &f.Title, &f.Category)
		return f, err
	})
	if err != nil {
		return nil, err
	}

	h.Bookings, err = queryFacts(ctx, r, "bookings", `
		SELECT b.id, b.tour_id, b.departure_id, b.participants, b.status, b.created_at
		FROM bookings b
		JOIN tours t ON t.id = b.tour_id
		WHERE `+tourFilter, filter, func(row pgx.Rows) (BookingFact, error) {
		var f BookingFact
		err := row.Scan(&f.BookingID, &f.TourID, &f.DepartureID, &f.Participants, &f.Status, &f.CreatedAt)
		return f, err
	})
	if err != nil {
		return nil, err
	}

	h.Payments, err = queryFacts(ctx, r, "payments", `
		SELECT p.booking_id, b.tour_id, p.amount, p.status, p.settled_at, p.created_at
		FROM payments p
		JOIN bookings b ON b.id = p.booking_id
		JOIN tours t ON t.id = b.tour_id
		WHERE `+tourFilter, filter, func(row pgx.Rows) (PaymentFact, error) {
		var f PaymentFact
		err := row.Scan(&f.BookingID, &f.TourID, &f.Amount, &f.Status, &f.SettledAt, &f.CreatedAt)
		return f, err
	})
	if err != nil {
		return nil, err
	}

	h.Refunds, err = queryFacts(ctx, r, "refunds", `
		SELECT rf.booking_id, b.tour_id, rf.amount, rf.status, rf.decided_at
		FROM refunds rf
		JOIN bookings b ON b.id = rf.booking_id
		JOIN tours t ON t.id = b.tour_id
		WHERE `+tourFilter, filter, func(row pgx.Rows) (RefundFact, error) {
		var f RefundFact
		err := row.Scan(&f.BookingID, &f.TourID, &f.Amount, &f.Status, &f.DecidedAt)
		return f, err
	})
	if err != nil {
		return nil, err
	}

	h.Departures, err = queryFacts(ctx, r, "departures", `
		SELECT d.id, d.tour_id, d.starts_at, d.ends_at, d.total_capacity, d.available_seats,
		       d.status, d.created_at, d.updated_at
		FROM departures d
		JOIN tours t ON t.id = d.tour_id
		WHERE `+tourFilter+`
		ORDER BY d.starts_at NULLS LAST, d.id
	`, filter, func(row pgx.Rows) (*entity.Departure, error) {
		return scanDeparture(row)
	})
	if err != nil {
		return nil, err
	}

	return &h, nil
}

func queryFacts[T any](ctx context.Context, r *analyticsRepository, name, query string, filter HistoryFilter, scan func(pgx.Rows) (T, error)) ([]T, error) {
	rows, err := r.db.Query(ctx, query, filter.CategoryID, filter.TourID)
	if err != nil {
		r.log.Error("Failed to load analytics history", zap.String("table", name), zap.Error(err))
		return nil, fmt.Errorf("load %s history: %w", name, err)
	}
	defer rows.Close()

	var out []T
	for rows.Next() {
		item, err := scan(rows)
		if err != nil {
			r.log.Error("Failed to scan analytics row", zap.String("table", name), zap.Error(err))
			return nil, fmt.Errorf("scan %s history: %w", name, err)
		}
		out = append(out, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s history: %w", name, err)
	}
	return out, nil
}
