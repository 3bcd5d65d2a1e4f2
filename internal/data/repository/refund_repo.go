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

type RefundRepository interface {
	Create(ctx context.Context, refund *entity.Refund) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Refund, error)
	FindByBookingID(ctx context.Context, bookingID uuid.UUID) (*entity.Refund, error)
	// MarkDecided moves a pending refund to status. It reports false when the
	// refund was already decided.
	MarkDecided(ctx context.Context, id uuid.UUID, status entity.RefundStatus, at time.Time) (bool, error)
}

type refundRepository struct {
	db  database.DBTX
	log *zap.Logger
}

func NewRefundRepository(db database.DBTX, log *zap.Logger) RefundRepository {
	return &refundRepository{
		db:  db,
		log: log.With(zap.String("repository", "refund")),
	}
}

const refundColumns = `id, booking_id, payment_id, amount, reason, status, decided_at, created_at, updated_at`

func (r *refundRepository) Create(ctx context.Context, refund *entity.Refund) error {
	query := `
		INSERT INTO refunds (` + refundColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.db.Exec(ctx, query,
		refund.ID,
		refund.BookingID,
		refund.PaymentID,
		refund.Amount,
		refund.Reason,
		refund.Status,
		refund.DecidedAt,
		refund.CreatedAt,
		refund.UpdatedAt,
	)

	if err != nil {
		r.log.Error("Failed to create refund",
			zap.Error(err),
			zap.String("booking_id", refund.BookingID.String()),
		)
		return fmt.Errorf("create refund for booking %s: %w", refund.BookingID.String(), err)
	}

	return nil
}

func (r *refundRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Refund, error) {
	return r.findOne(ctx, "id", id)
}

func (r *refundRepository) FindByBookingID(ctx context.Context, bookingID uuid.UUID) (*entity.Refund, error) {
	return r.findOne(ctx, "booking_id", bookingID)
}

func (r *refundRepository) findOne(ctx context.Context, column string, id uuid.UUID) (*entity.Refund, error) {
	query := `SELECT ` + refundColumns + ` FROM refunds WHERE ` + column + ` = $1`

	var rf entity.Refund
	err := r.db.QueryRow(ctx, query, id).Scan(
		&rf.ID,
		&rf.BookingID,
		&rf.PaymentID,
		&rf.Amount,
		&rf.Reason,
		&rf.Status,
		&rf.DecidedAt,
		&rf.CreatedAt,
		&rf.UpdatedAt,
	)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find refund",
			zap.Error(err),
			zap.String(column, id.String()),
		)
		return nil, fmt.Errorf("find refund by %s %s: %w", column, id.String(), err)
	}

	return &rf, nil
}

func (r *refundRepository) MarkDecided(ctx context.Context, id uuid.UUID, status entity.RefundStatus, at time.Time) (bool, error) {
	query := `
		UPDATE refunds
		SET status = $2, decided_at = $3, updated_at = $3
		WHERE id = $1 AND status = 'pending'
	`

	result, err := r.db.Exec(ctx, query, id, status, at)
	if err != nil {
		r.log.Error("Failed to decide refund",
			zap.Error(err),
			zap.String("refund_id", id.String()),
			zap.String("status", string(status)),
		)
		return false, fmt.Errorf("decide refund %s: %w", id.String(), err)
	}

	return result.RowsAffected() == 1, nil
}
