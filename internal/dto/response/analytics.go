package response

import (
	"time"

	"tour-booking/internal/data/entity"
)

type AnalyticsScope struct {
	CategoryID string `json:"category_id,omitempty"`
	TourID     string `json:"tour_id,omitempty"`
	WindowDays int    `json:"window_days"`
	Year       int    `json:"year"`
}

// AnalyticsSnapshot is computed from one consistent read of the history.
// TotalRevenue is gross; NetRevenue subtracts approved refunds.
type AnalyticsSnapshot struct {
	Scope          AnalyticsScope       `json:"scope"`
	GeneratedAt    time.Time            `json:"generated_at"`
	TotalRevenue   entity.Money         `json:"total_revenue"`
	RefundedAmount entity.Money         `json:"refunded_amount"`
	NetRevenue     entity.Money         `json:"net_revenue"`
	TotalBookings  int                  `json:"total_bookings"`
	Growth         GrowthSummary        `json:"growth"`
	PopularTours   []TourPopularity     `json:"popular_tours"`
	CategoryShare  []CategoryShare      `json:"category_share"`
	MonthlySales   []MonthlySales       `json:"monthly_sales"`
	Occupancy      []DepartureOccupancy `json:"occupancy"`
}

type GrowthSummary struct {
	WindowDays      int          `json:"window_days"`
	CurrentRevenue  entity.Money `json:"current_revenue"`
	PreviousRevenue entity.Money `json:"previous_revenue"`
	GrowthPercent   float64      `json:"growth_percent"`
}

type TourPopularity struct {
	TourID       string `json:"tour_id"`
	Title        string `json:"title"`
	BookingCount int    `json:"booking_count"`
}

type CategoryShare struct {
	CategoryID   string       `json:"category_id"`
	Name         string       `json:"name"`
	Revenue      entity.Money `json:"revenue"`
	SharePercent float64      `json:"share_percent"`
}

type MonthlySales struct {
	Month    int          `json:"month"`
	Name     string       `json:"name"`
	Bookings int          `json:"bookings"`
	Revenue  entity.Money `json:"revenue"`
}

type DepartureOccupancy struct {
	DepartureID   string                 `json:"departure_id"`
	TourID        string                 `json:"tour_id"`
	StartsAt      *time.Time             `json:"starts_at,omitempty"`
	Status        entity.DepartureStatus `json:"status"`
	TotalCapacity int                    `json:"total_capacity"`
	BookedSeats   int                    `json:"booked_seats"`
	OccupancyRate float64                `json:"occupancy_rate"`
}
