package request

import "tour-booking/internal/data/entity"

type RequestRefundRequest struct {
	BookingID string `json:"booking_id" validate:"required,uuid"`
	// Amount defaults to the full payment amount when omitted.
	Amount *entity.Money `json:"amount,omitempty" validate:"omitempty,gt=0"`
	Reason string        `json:"reason" validate:"required,min=3,max=500"`
}

type DecideRefundRequest struct {
	Decision string `json:"decision" validate:"required,oneof=approved rejected"`
}
