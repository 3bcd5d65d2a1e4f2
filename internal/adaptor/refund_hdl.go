package adaptor

import (
	"net/http"

	"tour-booking/internal/dto/request"
	"tour-booking/internal/usecase"
	"tour-booking/pkg/utils"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type RefundHandler struct {
	service usecase.RefundService
	log     *zap.Logger
}

func NewRefundHandler(service usecase.RefundService, log *zap.Logger) *RefundHandler {
	return &RefundHandler{
		service: service,
		log:     log.With(zap.String("handler", "refund")),
	}
}

// RequestRefund handles POST /api/refunds
func (h *RefundHandler) RequestRefund(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}

	var req request.RequestRefundRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	refund, err := h.service.RequestRefund(r.Context(), actor, &req)
	if err != nil {
		handleServiceError(w, h.log, err, "request refund")
		return
	}

	utils.ResponseCreated(w, "Refund requested", refund)
}

// DecideRefund handles PUT /api/admin/refunds/{id}/decision
func (h *RefundHandler) DecideRefund(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}

	var req request.DecideRefundRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	refund, err := h.service.DecideRefund(r.Context(), actor, chi.URLParam(r, "id"), &req)
	if err != nil {
		handleServiceError(w, h.log, err, "decide refund")
		return
	}

	utils.ResponseSuccess(w, "Refund decided", refund)
}
