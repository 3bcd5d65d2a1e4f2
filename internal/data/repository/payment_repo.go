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

type PaymentRepository interface {
	Create(ctx context.Context, payment *entity.Payment) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Payment, error)
	FindByBookingID(ctx context.Context, bookingID uuid.UUID) (*entity.Payment, error)
	// MarkSettled moves a pending payment to status. It reports false when the
	// payment was already settled.
	MarkSettled(ctx context.Context, id uuid.UUID, status entity.PaymentStatus, at time.Time) (bool, error)
}

type paymentRepository struct {
	db  database.DBTX
	log *zap.Logger
}

func NewPaymentRepository(db database.DBTX, log *zap.Logger) PaymentRepository {
	return &paymentRepository{
		db:  db,
		log: log.With(zap.String("repository", "payment")),
	}
}

const paymentColumns = `id, booking_id, method, amount, status, settled_at, created_at, updated_at`

func (r *paymentRepository) Create(ctx context.Context, payment *entity.Payment) error {
	query := `
		INSERT INTO payments (` + paymentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.db.Exec(ctx, query,
		payment.ID,
		payment.BookingID,
		payment.Method,
		payment.Amount,
		payment.Status,
		payment.SettledAt,
		payment.CreatedAt,
		payment.UpdatedAt,
	)

	if err != nil {
		r.log.Error("Failed to create payment",
			zap.Error(err),
			zap.String("booking_id", payment.BookingID.String()),
		)
		return fmt.Errorf("create payment for booking %s: %w", payment.BookingID.String(), err)
	}

	return nil
}

func (r *paymentRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Payment, error) {
	return r.findOne(ctx, "id", id)
}

func (r *paymentRepository) FindByBookingID(ctx context.Context, bookingID uuid.UUID) (*entity.Payment, error) {
	return r.findOne(ctx, "booking_id", bookingID)
}

func (r *paymentRepository) findOne(ctx context.Context, column string, id uuid.UUID) (*entity.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE ` + column + ` = $1`

	var p entity.Payment
	err := r.db.QueryRow(ctx, query, id).Scan(
		&p.ID,
		&p.BookingID,
		&p.Method,
		&p.Amount,
		&p.Status,
		&p.SettledAt,
		&p.CreatedAt,
		&p.UpdatedAt,
	)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find payment",
			zap.Error(err),
			zap.String(column, id.String()),
		)
		return nil, fmt.Errorf("find payment by %s %s: %w", column, id.String(), err)
	}

	return &p, nil
}

func (r *paymentRepository) MarkSettled(ctx context.Context, id uuid.UUID, status entity.PaymentStatus, at time.Time) (bool, error) {
	query := `
		UPDATE payments
		SET status = $2, settled_at = $3, updated_at = $3
		WHERE id = $1 AND status = 'pending'
	`

	result, err := r.db.Exec(ctx, query, id, status, at)
	if err != nil {
		r.log.Error("Failed to settle payment",
			zap.Error(err),
			zap.String("payment_id", id.String()),
			zap.String("status", string(status)),
		)
		return false, fmt.Errorf("settle payment %s: %w", id.String(), err)
	}

	return result.RowsAffected() == 1, nil
}
