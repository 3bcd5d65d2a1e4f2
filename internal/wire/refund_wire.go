package wire

import (
	"net/http"

	"tour-booking/internal/adaptor"
	"tour-booking/internal/data/entity"
	"tour-booking/pkg/middleware"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

func wireRefund(r chi.Router, refundHandler *adaptor.RefundHandler, auth func(http.Handler) http.Handler, log *zap.Logger) {
	r.With(auth).Post("/api/refunds", refundHandler.RequestRefund)

	// ==================== ADMIN ROUTES ====================
	r.Route("/api/admin/refunds", func(r chi.Router) {
		r.Use(auth)
		r.Use(middleware.RequireCapability(entity.CapDecideRefunds, log))

		r.Put("/{id}/decision", refundHandler.DecideRefund)
	})
}
