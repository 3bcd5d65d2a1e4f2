package entity

import (
	"time"

	"github.com/google/uuid"
)

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusCompleted PaymentStatus = "completed"
	PaymentStatusFailed    PaymentStatus = "failed"
)

type PaymentMethod string

const (
	PaymentMethodCard         PaymentMethod = "card"
	PaymentMethodBankTransfer PaymentMethod = "bank_transfer"
	PaymentMethodEWallet      PaymentMethod = "e_wallet"
	PaymentMethodCash         PaymentMethod = "cash"
)

type Payment struct {
	Base
	BookingID uuid.UUID     `db:"booking_id"`
	Method    PaymentMethod `db:"method"`
	Amount    Money         `db:"amount"`
	Status    PaymentStatus `db:"status"`
	SettledAt *time.Time    `db:"settled_at"`
}

func (p *Payment) IsSettled() bool {
	return p.Status != PaymentStatusPending
}
