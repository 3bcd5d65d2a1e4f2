package entity

import (
	"time"

	"github.com/google/uuid"
)

type DepartureStatus string

const (
	DepartureStatusScheduled  DepartureStatus = "scheduled"
	DepartureStatusInProgress DepartureStatus = "in_progress"
	DepartureStatusCompleted  DepartureStatus = "completed"
	DepartureStatusCancelled  DepartureStatus = "cancelled"
)

var departureTransitions = map[DepartureStatus][]DepartureStatus{
	DepartureStatusScheduled:  {DepartureStatusInProgress, DepartureStatusCancelled},
	DepartureStatusInProgress: {DepartureStatusCompleted},
	DepartureStatusCompleted:  {},
	DepartureStatusCancelled:  {},
}

func (s DepartureStatus) IsValid() bool {
	_, ok := departureTransitions[s]
	return ok
}

func (s DepartureStatus) CanTransitionTo(target DepartureStatus) bool {
	for _, t := range departureTransitions[s] {
		if t == target {
			return true
		}
	}
	return false
}

// Departure is one bookable occurrence of a tour. StartsAt and EndsAt are nil
// for the open-dated departure of a tour sold without fixed dates.
type Departure struct {
	Base
	TourID         uuid.UUID       `db:"tour_id"`
	StartsAt       *time.Time      `db:"starts_at"`
	EndsAt         *time.Time      `db:"ends_at"`
	TotalCapacity  int             `db:"total_capacity"`
	AvailableSeats int             `db:"available_seats"`
	Status         DepartureStatus `db:"status"`
}

func (d *Departure) IsOpenDated() bool {
	return d.StartsAt == nil
}

// HasStarted reports whether refunds may no longer return seats to inventory.
func (d *Departure) HasStarted() bool {
	return d.Status == DepartureStatusInProgress || d.Status == DepartureStatusCompleted
}

func (d *Departure) BookedSeats() int {
	return d.TotalCapacity - d.AvailableSeats
}
