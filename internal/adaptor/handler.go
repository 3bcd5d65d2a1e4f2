package adaptor

import (
	"tour-booking/internal/usecase"

	"go.uber.org/zap"
)

type Handler struct {
	Auth      *AuthHandler
	Booking   *BookingHandler
	Payment   *PaymentHandler
	Refund    *RefundHandler
	Departure *DepartureHandler
	Analytics *AnalyticsHandler
	Health    *HealthHandler
}

func NewHandler(service *usecase.Service, pinger Pinger, log *zap.Logger) *Handler {
	return &Handler{
		Auth:      NewAuthHandler(service.Auth, log),
		Booking:   NewBookingHandler(service.Booking, log),
		Payment:   NewPaymentHandler(service.Payment, log),
		Refund:    NewRefundHandler(service.Refund, log),
		Departure: NewDepartureHandler(service.Departure, log),
		Analytics: NewAnalyticsHandler(service.Analytics, log),
		Health:    NewHealthHandler(pinger, log),
	}
}
