package wire

import (
	"net/http"

	"tour-booking/internal/adaptor"
	"tour-booking/internal/data/entity"
	"tour-booking/pkg/middleware"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

func wireDeparture(r chi.Router, departureHandler *adaptor.DepartureHandler, auth func(http.Handler) http.Handler, log *zap.Logger) {
	// ==================== PUBLIC ROUTES ====================
	r.Get("/api/departures/{id}", departureHandler.GetDeparture)

	// ==================== ADMIN ROUTES ====================
	r.Route("/api/admin/departures", func(r chi.Router) {
		r.Use(auth)
		r.Use(middleware.RequireCapability(entity.CapManageDepartures, log))

		r.Post("/", departureHandler.CreateDeparture)
		r.Put("/{id}/status", departureHandler.UpdateStatus)
	})
}
