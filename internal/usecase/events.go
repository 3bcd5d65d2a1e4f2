package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"tour-booking/internal/data/entity"
	"tour-booking/internal/data/repository"
	"tour-booking/pkg/outbox"
)

const (
	EventBookingCreated   = "booking.created"
	EventBookingCancelled = "booking.cancelled"
	EventBookingConfirmed = "booking.confirmed"
	EventBookingCompleted = "booking.completed"
	EventPaymentInitiated = "payment.initiated"
	EventPaymentCompleted = "payment.completed"
	EventPaymentFailed    = "payment.failed"
	EventRefundRequested  = "refund.requested"
	EventRefundApproved   = "refund.approved"
	EventRefundRejected   = "refund.rejected"
	EventDepartureStatus  = "departure.status_changed"
	aggregateBooking      = "booking"
	aggregateDeparture    = "departure"
)

type bookingEvent struct {
	BookingID     string                      `json:"booking_id"`
	OrderCode     string                      `json:"order_code"`
	UserID        string                      `json:"user_id"`
	DepartureID   string                      `json:"departure_id"`
	Participants  int                         `json:"participants"`
	TotalPrice    entity.Money                `json:"total_price"`
	Status        entity.BookingStatus        `json:"status"`
	PaymentStatus entity.BookingPaymentStatus `json:"payment_status"`
	PaymentID     string                      `json:"payment_id,omitempty"`
	RefundID      string                      `json:"refund_id,omitempty"`
	Amount        *entity.Money               `json:"amount,omitempty"`
	OccurredAt    time.Time                   `json:"occurred_at"`
}

func newBookingEvent(b *entity.Booking, at time.Time) bookingEvent {
	return bookingEvent{
		BookingID:     b.ID.String(),
		OrderCode:     b.OrderCode,
		UserID:        b.UserID.String(),
		DepartureID:   b.DepartureID.String(),
		Participants:  b.Participants,
		TotalPrice:    b.TotalPrice,
		Status:        b.Status,
		PaymentStatus: b.PaymentStatus,
		OccurredAt:    at,
	}
}

type departureEvent struct {
	DepartureID string                 `json:"departure_id"`
	TourID      string                 `json:"tour_id"`
	From        entity.DepartureStatus `json:"from"`
	To          entity.DepartureStatus `json:"to"`
	OccurredAt  time.Time              `json:"occurred_at"`
}

// appendEvent records a domain event in the caller's transaction.
func appendEvent(ctx context.Context, repo *repository.Repository, aggregateType, aggregateID, eventType string, payload any, at time.Time) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode %s event: %w", eventType, err)
	}

	return repo.Outbox.Append(ctx, &outbox.Event{
		AggregateType: aggregateType,
		AggregateID:   aggregateID,
		Type:          eventType,
		Payload:       body,
		CreatedAt:     at,
	})
}

type paymentEvent struct {
	PaymentID  string               `json:"payment_id"`
	BookingID  string               `json:"booking_id"`
	Method     entity.PaymentMethod `json:"method"`
	Amount     entity.Money         `json:"amount"`
	Status     entity.PaymentStatus `json:"status"`
	OccurredAt time.Time            `json:"occurred_at"`
}

type refundEvent struct {
	RefundID   string              `json:"refund_id"`
	BookingID  string              `json:"booking_id"`
	PaymentID  string              `json:"payment_id"`
	Amount     entity.Money        `json:"amount"`
	Status     entity.RefundStatus `json:"status"`
	Reason     string              `json:"reason,omitempty"`
	OccurredAt time.Time           `json:"occurred_at"`
}
