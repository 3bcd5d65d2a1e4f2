package usecase

import (
	"math"
	"sort"
	"time"

	"tour-booking/internal/data/entity"
	"tour-booking/internal/data/repository"
	"tour-booking/internal/dto/response"

	"github.com/google/uuid"
)

// snapshotParams are the resolved knobs of one analytics computation.
type snapshotParams struct {
	Scope      response.AnalyticsScope
	WindowDays int
	Year       int
	Now        time.Time
}

func buildSnapshot(h *repository.History, p snapshotParams) *response.AnalyticsSnapshot {
	gross, refunded := revenueTotals(h)

	return &response.AnalyticsSnapshot{
		Scope:          p.Scope,
		GeneratedAt:    p.Now,
		TotalRevenue:   gross,
		RefundedAmount: refunded,
		NetRevenue:     gross - refunded,
		TotalBookings:  len(h.Bookings),
		Growth:         revenueGrowth(h.Payments, p.Now, p.WindowDays),
		PopularTours:   tourPopularity(h),
		CategoryShare:  categoryShare(h),
		MonthlySales:   monthlySales(h, p.Year, p.Now.Location()),
		Occupancy:      occupancy(h.Departures),
	}
}

func revenueTotals(h *repository.History) (gross, refunded entity.Money) {
	for _, p := range h.Payments {
		if p.Status == entity.PaymentStatusCompleted {
			gross += p.Amount
		}
	}
	for _, r := range h.Refunds {
		if r.Status == entity.RefundStatusApproved {
			refunded += r.Amount
		}
	}
	return gross, refunded
}

// settledAt falls back to creation time for rows written before settled_at existed.
func settledAt(p repository.PaymentFact) time.Time {
	if p.SettledAt != nil {
		return *p.SettledAt
	}
	return p.CreatedAt
}

// revenueGrowth compares completed revenue in [now-w, now] with [now-2w, now-w).
func revenueGrowth(payments []repository.PaymentFact, now time.Time, windowDays int) response.GrowthSummary {
	window := time.Duration(windowDays) * 24 * time.Hour
	currentFrom := now.Add(-window)
	previousFrom := currentFrom.Add(-window)

	g := response.GrowthSummary{WindowDays: windowDays}
	for _, p := range payments {
		if p.Status != entity.PaymentStatusCompleted {
			continue
		}
		at := settledAt(p)
		switch {
		case !at.Before(currentFrom) && !at.After(now):
			g.CurrentRevenue += p.Amount
		case !at.Before(previousFrom) && at.Before(currentFrom):
			g.PreviousRevenue += p.Amount
		}
	}

	g.GrowthPercent = growthPercent(g.CurrentRevenue, g.PreviousRevenue)
	return g
}

// growthPercent is 100 when there was no previous revenue to compare with.
func growthPercent(current, previous entity.Money) float64 {
	if previous == 0 {
		if current == 0 {
			return 0
		}
		return 100
	}
	return round2(float64(current-previous) / float64(previous) * 100)
}

func tourPopularity(h *repository.History) []response.TourPopularity {
	counts := make(map[uuid.UUID]int, len(h.Tours))
	for _, b := range h.Bookings {
		counts[b.TourID]++
	}

	out := make([]response.TourPopularity, 0, len(h.Tours))
	for _, t := range h.Tours {
		out = append(out, response.TourPopularity{
			TourID:       t.TourID.String(),
			Title:        t.Title,
			BookingCount: counts[t.TourID],
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].BookingCount != out[j].BookingCount {
			return out[i].BookingCount > out[j].BookingCount
		}
		return out[i].TourID < out[j].TourID
	})
	return out
}

func categoryShare(h *repository.History) []response.CategoryShare {
	categoryOf := make(map[uuid.UUID]uuid.UUID, len(h.Tours))
	byCategory := make(map[uuid.UUID]*response.CategoryShare)
	var order []uuid.UUID

	for _, t := range h.Tours {
		categoryOf[t.TourID] = t.CategoryID
		if _, ok := byCategory[t.CategoryID]; !ok {
			byCategory[t.CategoryID] = &response.CategoryShare{
				CategoryID: t.CategoryID.String(),
				Name:       t.Category,
			}
			order = append(order, t.CategoryID)
		}
	}

	var total entity.Money
	for _, p := range h.Payments {
		if p.Status != entity.PaymentStatusCompleted {
			continue
		}
		share, ok := byCategory[categoryOf[p.TourID]]
		if !ok {
			continue
		}
		share.Revenue += p.Amount
		total += p.Amount
	}

	out := make([]response.CategoryShare, 0, len(order))
	for _, id := range order {
		share := byCategory[id]
		if total > 0 && len(h.Bookings) > 0 {
			share.SharePercent = round2(float64(share.Revenue) / float64(total) * 100)
		}
		out = append(out, *share)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Revenue != out[j].Revenue {
			return out[i].Revenue > out[j].Revenue
		}
		return out[i].CategoryID < out[j].CategoryID
	})
	return out
}

// monthlySales always returns twelve entries, January first. Bookings are
// bucketed by creation month and carry the completed revenue they produced.
func monthlySales(h *repository.History, year int, loc *time.Location) []response.MonthlySales {
	out := make([]response.MonthlySales, 12)
	for i := range out {
		m := time.Month(i + 1)
		out[i] = response.MonthlySales{Month: int(m), Name: m.String()}
	}

	monthOf := make(map[uuid.UUID]int, len(h.Bookings))
	for _, b := range h.Bookings {
		created := b.CreatedAt.In(loc)
		if created.Year() != year {
			continue
		}
		idx := int(created.Month()) - 1
		monthOf[b.BookingID] = idx
		out[idx].Bookings++
	}

	for _, p := range h.Payments {
		if p.Status != entity.PaymentStatusCompleted {
			continue
		}
		if idx, ok := monthOf[p.BookingID]; ok {
			out[idx].Revenue += p.Amount
		}
	}
	return out
}

func occupancy(departures []*entity.Departure) []response.DepartureOccupancy {
	out := make([]response.DepartureOccupancy, 0, len(departures))
	for _, d := range departures {
		o := response.DepartureOccupancy{
			DepartureID:   d.ID.String(),
			TourID:        d.TourID.String(),
			StartsAt:      d.StartsAt,
			Status:        d.Status,
			TotalCapacity: d.TotalCapacity,
			BookedSeats:   d.BookedSeats(),
		}
		if d.TotalCapacity > 0 {
			o.OccupancyRate = round2(float64(o.BookedSeats) / float64(d.TotalCapacity) * 100)
		}
		out = append(out, o)
	}
	return out
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
