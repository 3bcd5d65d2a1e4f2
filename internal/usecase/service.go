package usecase

import (
	"fmt"
	"time"

	"tour-booking/internal/data/repository"
	"tour-booking/pkg/cache"
	"tour-booking/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type Service struct {
	Auth      AuthService
	Booking   BookingService
	Payment   PaymentService
	Refund    RefundService
	Departure DepartureService
	Analytics AnalyticsService
}

// Deps are the collaborators shared by every service.
type Deps struct {
	Repo   *repository.Repository
	Tx     repository.Transactor
	Cache  cache.Cache
	Config *utils.Config
	Log    *zap.Logger
	// Now defaults to time.Now.
	Now func() time.Time
}

func NewService(d Deps) *Service {
	if d.Now == nil {
		d.Now = time.Now
	}

	machine := newBookingStateMachine(NewCapacityLedger(d.Log), d.Log)

	return &Service{
		Auth:      NewAuthService(d.Repo, d.Config, d.Log, d.Now),
		Booking:   NewBookingService(d.Repo, d.Tx, machine, d.Log, d.Now),
		Payment:   NewPaymentService(d.Repo, d.Tx, machine, d.Log, d.Now),
		Refund:    NewRefundService(d.Repo, d.Tx, machine, d.Log, d.Now),
		Departure: NewDepartureService(d.Repo, d.Tx, machine, d.Log, d.Now),
		Analytics: NewAnalyticsService(d.Tx, d.Cache, d.Config, d.Log, d.Now),
	}
}

// parseID turns a path or body identifier into a UUID, failing as a validation error.
func parseID(kind, raw string) (uuid.UUID, error) {
	id, err := utils.ParseUUID(raw)
	if err != nil {
		return id, fmt.Errorf("invalid %s ID %q: %w", kind, raw, ErrValidation)
	}
	return id, nil
}

func validate(req any) error {
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		return fmt.Errorf("%w: %s", ErrValidation, utils.FormatValidationErrors(errs))
	}
	return nil
}
