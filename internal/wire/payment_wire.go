package wire

import (
	"net/http"

	"tour-booking/internal/adaptor"
	"tour-booking/internal/data/entity"
	"tour-booking/pkg/middleware"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

func wirePayment(
	r chi.Router,
	paymentHandler *adaptor.PaymentHandler,
	auth func(http.Handler) http.Handler,
	limiter *middleware.RateLimiter,
	log *zap.Logger,
) {
	r.Route("/api/payments", func(r chi.Router) {
		r.Use(auth)

		r.With(limiter.Handler).Post("/", paymentHandler.InitiatePayment)

		// POST /api/payments/{id}/settle - gateway callback, operators only
		r.With(middleware.RequireCapability(entity.CapSettlePayments, log)).
			Post("/{id}/settle", paymentHandler.SettlePayment)
	})
}
