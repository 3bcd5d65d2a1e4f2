package usecase

import (
	"tour-booking/internal/data/entity"

	"github.com/google/uuid"
)

// Actor is the authenticated caller, resolved by the session middleware.
type Actor struct {
	UserID uuid.UUID
	Role   entity.UserRole
}

func (a Actor) Can(c entity.Capability) bool {
	return a.Role.Can(c)
}

// CanAccess reports whether the actor owns the booking or may manage any booking.
func (a Actor) CanAccess(b *entity.Booking) bool {
	return b.UserID == a.UserID || a.Can(entity.CapManageBookings)
}
