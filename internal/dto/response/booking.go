package response

import (
	"time"

	"tour-booking/internal/data/entity"
)

type BookingResponse struct {
	ID            string                      `json:"id"`
	OrderCode     string                      `json:"order_code"`
	UserID        string                      `json:"user_id"`
	DepartureID   string                      `json:"departure_id"`
	TourID        string                      `json:"tour_id"`
	Participants  int                         `json:"participants"`
	TotalPrice    entity.Money                `json:"total_price"`
	Status        entity.BookingStatus        `json:"status"`
	PaymentStatus entity.BookingPaymentStatus `json:"payment_status"`
	Payment       *PaymentResponse            `json:"payment,omitempty"`
	Refund        *RefundResponse             `json:"refund,omitempty"`
	CreatedAt     time.Time                   `json:"created_at"`
	UpdatedAt     time.Time                   `json:"updated_at"`
}

type PaymentResponse struct {
	ID        string               `json:"id"`
	BookingID string               `json:"booking_id"`
	Method    entity.PaymentMethod `json:"method"`
	Amount    entity.Money         `json:"amount"`
	Status    entity.PaymentStatus `json:"status"`
	SettledAt *time.Time           `json:"settled_at,omitempty"`
	CreatedAt time.Time            `json:"created_at"`
}

type RefundResponse struct {
	ID        string              `json:"id"`
	BookingID string              `json:"booking_id"`
	PaymentID string              `json:"payment_id"`
	Amount    entity.Money        `json:"amount"`
	Reason    string              `json:"reason"`
	Status    entity.RefundStatus `json:"status"`
	DecidedAt *time.Time          `json:"decided_at,omitempty"`
	CreatedAt time.Time           `json:"created_at"`
}

// Helper converters
func BookingToResponse(b *entity.Booking) BookingResponse {
	return BookingResponse{
		ID:            b.ID.String(),
		OrderCode:     b.OrderCode,
		UserID:        b.UserID.String(),
		DepartureID:   b.DepartureID.String(),
		TourID:        b.TourID.String(),
		Participants:  b.Participants,
		TotalPrice:    b.TotalPrice,
		Status:        b.Status,
		PaymentStatus: b.PaymentStatus,
		CreatedAt:     b.CreatedAt,
		UpdatedAt:     b.UpdatedAt,
	}
}

func PaymentToResponse(p *entity.Payment) PaymentResponse {
	return PaymentResponse{
		ID:        p.ID.String(),
		BookingID: p.BookingID.String(),
		Method:    p.Method,
		Amount:    p.Amount,
		Status:    p.Status,
		SettledAt: p.SettledAt,
		CreatedAt: p.CreatedAt,
	}
}

func RefundToResponse(r *entity.Refund) RefundResponse {
	return RefundResponse{
		ID:        r.ID.String(),
		BookingID: r.BookingID.String(),
		PaymentID: r.PaymentID.String(),
		Amount:    r.Amount,
		Reason:    r.Reason,
		Status:    r.Status,
		DecidedAt: r.DecidedAt,
		CreatedAt: r.CreatedAt,
	}
}
