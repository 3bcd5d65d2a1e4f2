package entity

import (
	"time"

	"github.com/google/uuid"
)

type Category struct {
	Base
	Name string `db:"name"`
}

type Tour struct {
	Base
	CategoryID uuid.UUID `db:"category_id"`
	Title      string    `db:"title"`
	BasePrice  Money     `db:"base_price"`
	IsActive   bool      `db:"is_active"`
}

// Discount is a percentage off a tour's base price, valid within [StartsAt, EndsAt].
type Discount struct {
	BaseSimple
	TourID     uuid.UUID `db:"tour_id"`
	Percentage int       `db:"percentage"`
	StartsAt   time.Time `db:"starts_at"`
	EndsAt     time.Time `db:"ends_at"`
	IsActive   bool      `db:"is_active"`
}

func (d *Discount) CoversAt(t time.Time) bool {
	return d.IsActive && !t.Before(d.StartsAt) && !t.After(d.EndsAt)
}
