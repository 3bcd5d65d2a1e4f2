package repository

import (
	"tour-booking/pkg/database"

	"go.uber.org/zap"
)

// Repository groups every repository bound to the same query surface, either
// the pool or one open transaction.
type Repository struct {
	User      UserRepository
	Session   SessionRepository
	Tour      TourRepository
	Departure DepartureRepository
	Booking   BookingRepository
	Payment   PaymentRepository
	Refund    RefundRepository
	Analytics AnalyticsRepository
	Outbox    OutboxRepository
}

func NewRepository(db database.DBTX, log *zap.Logger) *Repository {
	return &Repository{
		User:      NewUserRepository(db, log),
		Session:   NewSessionRepository(db, log),
		Tour:      NewTourRepository(db, log),
		Departure: NewDepartureRepository(db, log),
		Booking:   NewBookingRepository(db, log),
		Payment:   NewPaymentRepository(db, log),
		Refund:    NewRefundRepository(db, log),
		Analytics: NewAnalyticsRepository(db, log),
		Outbox:    NewOutboxRepository(db, log),
	}
}
