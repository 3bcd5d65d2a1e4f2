package adaptor

import (
	"context"
	"net/http"
	"time"

	"tour-booking/pkg/utils"

	"go.uber.org/zap"
)

// Pinger reports whether a backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthHandler struct {
	pinger Pinger
	log    *zap.Logger
}

func NewHealthHandler(pinger Pinger, log *zap.Logger) *HealthHandler {
	return &HealthHandler{
		pinger: pinger,
		log:    log.With(zap.String("handler", "health")),
	}
}

// Health handles GET /health
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	if h.pinger != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := h.pinger.Ping(ctx); err != nil {
			h.log.Warn("Health check failed", zap.Error(err))
			utils.ResponseServiceUnavailable(w, "Database unreachable")
			return
		}
	}

	utils.ResponseSuccess(w, "OK", map[string]string{"status": "healthy"})
}
