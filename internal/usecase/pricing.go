package usecase

import (
	"time"

	"tour-booking/internal/data/entity"
)

// UnitPrice applies the largest discount covering at to the base price.
func UnitPrice(base entity.Money, discounts []*entity.Discount, at time.Time) entity.Money {
	best := 0
	for _, d := range discounts {
		if d.CoversAt(at) && d.Percentage > best {
			best = d.Percentage
		}
	}
	return base.ApplyPercentDiscount(best)
}

func TotalPrice(unit entity.Money, participants int) entity.Money {
	return unit.Mul(participants)
}
