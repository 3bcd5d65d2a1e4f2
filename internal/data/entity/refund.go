package entity

import (
	"time"

	"github.com/google/uuid"
)

type RefundStatus string

const (
	RefundStatusPending  RefundStatus = "pending"
	RefundStatusApproved RefundStatus = "approved"
	RefundStatusRejected RefundStatus = "rejected"
)

type Refund struct {
	Base
	BookingID uuid.UUID    `db:"booking_id"`
	PaymentID uuid.UUID    `db:"payment_id"`
	Amount    Money        `db:"amount"`
	Reason    string       `db:"reason"`
	Status    RefundStatus `db:"status"`
	DecidedAt *time.Time   `db:"decided_at"`
}
