package wire

import (
	"net/http"

	"tour-booking/internal/adaptor"
	"tour-booking/internal/data/entity"
	"tour-booking/pkg/middleware"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

func wireAnalytics(r chi.Router, analyticsHandler *adaptor.AnalyticsHandler, auth func(http.Handler) http.Handler, log *zap.Logger) {
	r.With(auth, middleware.RequireCapability(entity.CapViewAnalytics, log)).
		Get("/api/admin/analytics", analyticsHandler.GetAnalytics)
}
