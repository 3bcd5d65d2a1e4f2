package adaptor

import (
	"net/http"

	"tour-booking/internal/dto/request"
	"tour-booking/internal/usecase"
	"tour-booking/pkg/utils"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type PaymentHandler struct {
	service usecase.PaymentService
	log     *zap.Logger
}

func NewPaymentHandler(service usecase.PaymentService, log *zap.Logger) *PaymentHandler {
	return &PaymentHandler{
		service: service,
		log:     log.With(zap.String("handler", "payment")),
	}
}

// InitiatePayment handles POST /api/payments
func (h *PaymentHandler) InitiatePayment(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}

	var req request.InitiatePaymentRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	payment, err := h.service.InitiatePayment(r.Context(), actor, &req)
	if err != nil {
		handleServiceError(w, h.log, err, "initiate payment")
		return
	}

	utils.ResponseCreated(w, "Payment initiated", payment)
}

// SettlePayment handles POST /api/payments/{id}/settle, the gateway callback.
func (h *PaymentHandler) SettlePayment(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}

	var req request.SettlePaymentRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	payment, err := h.service.SettlePayment(r.Context(), actor, chi.URLParam(r, "id"), &req)
	if err != nil {
		handleServiceError(w, h.log, err, "settle payment")
		return
	}

	utils.ResponseSuccess(w, "Payment settled", payment)
}
