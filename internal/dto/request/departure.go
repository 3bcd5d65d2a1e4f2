package request

import "time"

// CreateDepartureRequest creates a dated departure, or the tour's open-dated
// departure when both timestamps are omitted.
type CreateDepartureRequest struct {
	TourID        string     `json:"tour_id" validate:"required,uuid"`
	StartsAt      *time.Time `json:"starts_at,omitempty"`
	EndsAt        *time.Time `json:"ends_at,omitempty" validate:"omitempty,gtfield=StartsAt"`
	TotalCapacity int        `json:"total_capacity" validate:"required,gte=1,lte=10000"`
}

type UpdateDepartureStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=in_progress completed cancelled"`
}
