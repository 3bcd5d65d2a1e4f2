package response

import (
	"time"

	"tour-booking/internal/data/entity"
)

type DepartureResponse struct {
	ID             string                 `json:"id"`
	TourID         string                 `json:"tour_id"`
	StartsAt       *time.Time             `json:"starts_at,omitempty"`
	EndsAt         *time.Time             `json:"ends_at,omitempty"`
	OpenDated      bool                   `json:"open_dated"`
	TotalCapacity  int                    `json:"total_capacity"`
	AvailableSeats int                    `json:"available_seats"`
	BookedSeats    int                    `json:"booked_seats"`
	Status         entity.DepartureStatus `json:"status"`
}

func DepartureToResponse(d *entity.Departure) DepartureResponse {
	return DepartureResponse{
		ID:             d.ID.String(),
		TourID:         d.TourID.String(),
		StartsAt:       d.StartsAt,
		EndsAt:         d.EndsAt,
		OpenDated:      d.IsOpenDated(),
		TotalCapacity:  d.TotalCapacity,
		AvailableSeats: d.AvailableSeats,
		BookedSeats:    d.BookedSeats(),
		Status:         d.Status,
	}
}
