package wire

import (
	"tour-booking/internal/adaptor"
	"tour-booking/internal/usecase"
	"tour-booking/pkg/cache"
	"tour-booking/pkg/middleware"
	"tour-booking/pkg/utils"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// App holds the assembled HTTP surface.
type App struct {
	Router *chi.Mux
}

// Deps are the collaborators the router needs beyond the services.
type Deps struct {
	Service *usecase.Service
	Cache   cache.Cache
	Pinger  adaptor.Pinger
	Config  *utils.Config
	Log     *zap.Logger
}

func Wiring(d Deps) *App {
	handler := adaptor.NewHandler(d.Service, d.Pinger, d.Log)
	return &App{
		Router: setupRouter(handler, d),
	}
}

func setupRouter(handler *adaptor.Handler, d Deps) *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logger(d.Log))
	r.Use(middleware.Recover(d.Log))
	r.Use(middleware.CORS(d.Config.App.CORSOrigin))

	auth := middleware.AuthSession(d.Service.Auth, d.Log)
	limiter := middleware.NewRateLimiter(d.Config.RateLimit.RPS, d.Config.RateLimit.Burst, d.Log)

	wireAuth(r, handler.Auth, auth)
	wireBooking(r, handler.Booking, auth, limiter, d)
	wirePayment(r, handler.Payment, auth, limiter, d.Log)
	wireRefund(r, handler.Refund, auth, d.Log)
	wireDeparture(r, handler.Departure, auth, d.Log)
	wireAnalytics(r, handler.Analytics, auth, d.Log)

	r.Get("/health", handler.Health.Health)

	return r
}
