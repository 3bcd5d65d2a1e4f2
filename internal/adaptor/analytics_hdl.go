package adaptor

import (
	"net/http"

	"tour-booking/internal/dto/request"
	"tour-booking/internal/usecase"
	"tour-booking/pkg/utils"

	"go.uber.org/zap"
)

type AnalyticsHandler struct {
	service usecase.AnalyticsService
	log     *zap.Logger
}

func NewAnalyticsHandler(service usecase.AnalyticsService, log *zap.Logger) *AnalyticsHandler {
	return &AnalyticsHandler{
		service: service,
		log:     log.With(zap.String("handler", "analytics")),
	}
}

// GetAnalytics handles GET /api/admin/analytics?category=&tour=&window_days=&year=
func (h *AnalyticsHandler) GetAnalytics(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}

	query := r.URL.Query()
	req := &request.AnalyticsRequest{
		CategoryID: query.Get("category"),
		TourID:     query.Get("tour"),
		WindowDays: utils.ParseInt(query.Get("window_days"), 0),
		Year:       utils.ParseInt(query.Get("year"), 0),
	}
	if validationErrors := utils.ValidateStruct(req); len(validationErrors) > 0 {
		utils.ResponseBadRequest(w, "Validation failed", validationErrors)
		return
	}

	snapshot, err := h.service.GetAnalytics(r.Context(), actor, req)
	if err != nil {
		handleServiceError(w, h.log, err, "get analytics")
		return
	}

	utils.ResponseSuccess(w, "success", snapshot)
}
