package request

// CreateBookingRequest targets either a dated departure or a tour sold
// without dates, never both.
type CreateBookingRequest struct {
	DepartureID  string `json:"departure_id" validate:"required_without=TourID,excluded_with=TourID,omitempty,uuid"`
	TourID       string `json:"tour_id" validate:"required_without=DepartureID,omitempty,uuid"`
	Participants int    `json:"participants" validate:"required,gte=1,lte=100"`
}

type InitiatePaymentRequest struct {
	BookingID string `json:"booking_id" validate:"required,uuid"`
	Method    string `json:"method" validate:"required,oneof=card bank_transfer e_wallet cash"`
}

// SettlePaymentRequest is the body a gateway callback posts.
type SettlePaymentRequest struct {
	Outcome string `json:"outcome" validate:"required,oneof=completed failed"`
}
