package wire

import (
	"net/http"

	"tour-booking/internal/adaptor"
	"tour-booking/pkg/middleware"

	"github.com/go-chi/chi/v5"
)

func wireBooking(
	r chi.Router,
	bookingHandler *adaptor.BookingHandler,
	auth func(http.Handler) http.Handler,
	limiter *middleware.RateLimiter,
	d Deps,
) {
	idempotent := middleware.Idempotency(d.Cache, d.Config.Redis.IdempotencyTTL, d.Log)

	r.Group(func(r chi.Router) {
		r.Use(auth)

		// POST /api/bookings - reserve seats, replays are rejected by Idempotency-Key
		r.With(limiter.Handler, idempotent).Post("/api/bookings", bookingHandler.CreateBooking)

		// GET /api/user/bookings - the caller's booking history
		r.Get("/api/user/bookings", bookingHandler.GetUserBookings)

		r.Get("/api/bookings/{id}", bookingHandler.GetBooking)
		r.With(limiter.Handler).Put("/api/bookings/{id}/cancel", bookingHandler.CancelBooking)
		r.Get("/api/bookings/{id}/voucher", bookingHandler.GetVoucher)
	})
}
