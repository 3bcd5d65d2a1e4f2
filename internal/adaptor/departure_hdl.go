package adaptor

import (
	"net/http"

	"tour-booking/internal/dto/request"
	"tour-booking/internal/usecase"
	"tour-booking/pkg/utils"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type DepartureHandler struct {
	service usecase.DepartureService
	log     *zap.Logger
}

func NewDepartureHandler(service usecase.DepartureService, log *zap.Logger) *DepartureHandler {
	return &DepartureHandler{
		service: service,
		log:     log.With(zap.String("handler", "departure")),
	}
}

// GetDeparture handles GET /api/departures/{id} (public)
func (h *DepartureHandler) GetDeparture(w http.ResponseWriter, r *http.Request) {
	departure, err := h.service.GetDeparture(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, h.log, err, "get departure")
		return
	}

	utils.ResponseSuccess(w, "success", departure)
}

// CreateDeparture handles POST /api/admin/departures
func (h *DepartureHandler) CreateDeparture(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}

	var req request.CreateDepartureRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	departure, err := h.service.CreateDeparture(r.Context(), actor, &req)
	if err != nil {
		handleServiceError(w, h.log, err, "create departure")
		return
	}

	utils.ResponseCreated(w, "Departure created", departure)
}

// UpdateStatus handles PUT /api/admin/departures/{id}/status
func (h *DepartureHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}

	var req request.UpdateDepartureStatusRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	departure, err := h.service.UpdateStatus(r.Context(), actor, chi.URLParam(r, "id"), &req)
	if err != nil {
		handleServiceError(w, h.log, err, "update departure status")
		return
	}

	utils.ResponseSuccess(w, "Departure updated", departure)
}
