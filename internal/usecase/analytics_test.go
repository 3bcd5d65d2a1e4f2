package usecase

import (
	"context"
	"testing"
	"time"

	"tour-booking/internal/data/entity"
	"tour-booking/internal/data/repository"
	"tour-booking/internal/dto/request"
	"tour-booking/internal/dto/response"
	"tour-booking/pkg/cache"
	"tour-booking/pkg/utils"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func settled(at time.Time, amount entity.Money) repository.PaymentFact {
	return repository.PaymentFact{Amount: amount, Status: entity.PaymentStatusCompleted, SettledAt: &at, CreatedAt: at}
}

func TestRevenueGrowth(t *testing.T) {
	now := baseTime
	day := 24 * time.Hour

	t.Run("no previous revenue", func(t *testing.T) {
		g := revenueGrowth([]repository.PaymentFact{
			settled(now.Add(-2*day), entity.NewMoney(500, 0)),
		}, now, 30)
		assert.Equal(t, entity.NewMoney(500, 0), g.CurrentRevenue)
		assert.Zero(t, g.PreviousRevenue)
		assert.Equal(t, 100.0, g.GrowthPercent)
	})

	t.Run("windows split", func(t *testing.T) {
		failed := settled(now.Add(-day), entity.NewMoney(999, 0))
		failed.Status = entity.PaymentStatusFailed

		g := revenueGrowth([]repository.PaymentFact{
			settled(now.Add(-day), entity.NewMoney(150, 0)),
			settled(now.Add(-40*day), entity.NewMoney(100, 0)),
			settled(now.Add(-90*day), entity.NewMoney(700, 0)),
			failed,
		}, now, 30)
		assert.Equal(t, entity.NewMoney(150, 0), g.CurrentRevenue)
		assert.Equal(t, entity.NewMoney(100, 0), g.PreviousRevenue)
		assert.Equal(t, 50.0, g.GrowthPercent)
		assert.Equal(t, 30, g.WindowDays)
	})

	t.Run("decline", func(t *testing.T) {
		g := revenueGrowth([]repository.PaymentFact{
			settled(now.Add(-3*day), entity.NewMoney(50, 0)),
			settled(now.Add(-10*day), entity.NewMoney(200, 0)),
		}, now, 7)
		assert.Equal(t, -75.0, g.GrowthPercent)
	})

	t.Run("nothing at all", func(t *testing.T) {
		assert.Zero(t, revenueGrowth(nil, now, 30).GrowthPercent)
	})
}

func TestBuildSnapshot(t *testing.T) {
	now := time.Date(2026, time.June, 15, 12, 0, 0, 0, time.UTC)
	catA, catB := uuid.MustParse("00000000-0000-0000-0000-00000000000a"), uuid.MustParse("00000000-0000-0000-0000-00000000000b")
	tour1, tour2, tour3 := uuid.MustParse("00000000-0000-0000-0000-000000000001"), uuid.MustParse("00000000-0000-0000-0000-000000000002"), uuid.MustParse("00000000-0000-0000-0000-000000000003")
	b1, b2, b3, b4 := uuid.New(), uuid.New(), uuid.New(), uuid.New()

	march := time.Date(2026, time.March, 3, 0, 0, 0, 0, time.UTC)
	may := time.Date(2026, time.May, 20, 0, 0, 0, 0, time.UTC)
	lastYear := time.Date(2025, time.December, 30, 0, 0, 0, 0, time.UTC)

	h := &repository.History{
		Tours: []repository.TourFact{
			{TourID: tour1, CategoryID: catA, Title: "Reef", Category: "Sea"},
			{TourID: tour2, CategoryID: catA, Title: "Lagoon", Category: "Sea"},
			{TourID: tour3, CategoryID: catB, Title: "Summit", Category: "Mountain"},
		},
		Bookings: []repository.BookingFact{
			{BookingID: b1, TourID: tour2, CreatedAt: march, Status: entity.BookingStatusConfirmed},
			{BookingID: b2, TourID: tour2, CreatedAt: may, Status: entity.BookingStatusCancelled},
			{BookingID: b3, TourID: tour3, CreatedAt: may, Status: entity.BookingStatusConfirmed},
			{BookingID: b4, TourID: tour1, CreatedAt: lastYear, Status: entity.BookingStatusCompleted},
		},
		Payments: []repository.PaymentFact{
			{BookingID: b1, TourID: tour2, Amount: entity.NewMoney(300, 0), Status: entity.PaymentStatusCompleted, CreatedAt: march},
			{BookingID: b2, TourID: tour2, Amount: entity.NewMoney(80, 0), Status: entity.PaymentStatusFailed, CreatedAt: may},
			{BookingID: b3, TourID: tour3, Amount: entity.NewMoney(100, 0), Status: entity.PaymentStatusCompleted, CreatedAt: may},
			{BookingID: b4, TourID: tour1, Amount: entity.NewMoney(100, 0), Status: entity.PaymentStatusCompleted, CreatedAt: lastYear},
		},
		Refunds: []repository.RefundFact{
			{BookingID: b1, TourID: tour2, Amount: entity.NewMoney(50, 0), Status: entity.RefundStatusApproved},
			{BookingID: b3, TourID: tour3, Amount: entity.NewMoney(100, 0), Status: entity.RefundStatusRejected},
		},
		Departures: []*entity.Departure{
			{Base: entity.Base{ID: uuid.New()}, TourID: tour1, TotalCapacity: 8, AvailableSeats: 2, Status: entity.DepartureStatusScheduled},
			{Base: entity.Base{ID: uuid.New()}, TourID: tour3, TotalCapacity: 0, AvailableSeats: 0, Status: entity.DepartureStatusCancelled},
		},
	}

	s := buildSnapshot(h, snapshotParams{WindowDays: 30, Year: 2026, Now: now})

	assert.Equal(t, entity.NewMoney(500, 0), s.TotalRevenue)
	assert.Equal(t, entity.NewMoney(50, 0), s.RefundedAmount)
	assert.Equal(t, entity.NewMoney(450, 0), s.NetRevenue)
	assert.Equal(t, 4, s.TotalBookings)

	require.Len(t, s.PopularTours, 3)
	assert.Equal(t, tour2.String(), s.PopularTours[0].TourID)
	assert.Equal(t, 2, s.PopularTours[0].BookingCount)
	// ties break on tour ID
	assert.Equal(t, tour1.String(), s.PopularTours[1].TourID)
	assert.Equal(t, tour3.String(), s.PopularTours[2].TourID)

	assert.Equal(t, []response.CategoryShare{
		{CategoryID: catA.String(), Name: "Sea", Revenue: entity.NewMoney(400, 0), SharePercent: 80},
		{CategoryID: catB.String(), Name: "Mountain", Revenue: entity.NewMoney(100, 0), SharePercent: 20},
	}, s.CategoryShare)

	require.Len(t, s.MonthlySales, 12)
	assert.Equal(t, "January", s.MonthlySales[0].Name)
	assert.Equal(t, 1, s.MonthlySales[2].Bookings)
	assert.Equal(t, entity.NewMoney(300, 0), s.MonthlySales[2].Revenue)
	assert.Equal(t, 2, s.MonthlySales[4].Bookings)
	assert.Equal(t, entity.NewMoney(100, 0), s.MonthlySales[4].Revenue)
	assert.Zero(t, s.MonthlySales[11].Bookings)

	require.Len(t, s.Occupancy, 2)
	assert.Equal(t, 6, s.Occupancy[0].BookedSeats)
	assert.Equal(t, 75.0, s.Occupancy[0].OccupancyRate)
	assert.Zero(t, s.Occupancy[1].OccupancyRate)
}

func TestCategoryShare_NoRevenue(t *testing.T) {
	h := &repository.History{
		Tours: []repository.TourFact{{TourID: uuid.New(), CategoryID: uuid.New(), Category: "Sea"}},
	}
	shares := categoryShare(h)
	require.Len(t, shares, 1)
	assert.Zero(t, shares[0].SharePercent)
}

func TestGetAnalytics(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	d := f.departure(5)
	f.paid(t, f.customer, d.ID, 2)
	f.book(t, f.other, d.ID, 1)

	_, err := f.svc.Analytics.GetAnalytics(ctx, f.operator, &request.AnalyticsRequest{})
	assert.ErrorIs(t, err, ErrForbidden)

	s, err := f.svc.Analytics.GetAnalytics(ctx, f.admin, &request.AnalyticsRequest{})
	require.NoError(t, err)
	assert.Equal(t, entity.NewMoney(500, 0), s.TotalRevenue)
	assert.Equal(t, 2, s.TotalBookings)
	assert.Equal(t, 30, s.Scope.WindowDays)
	assert.Equal(t, 2026, s.Scope.Year)
	assert.Equal(t, 100.0, s.Growth.GrowthPercent)
	require.Len(t, s.Occupancy, 1)
	assert.Equal(t, 3, s.Occupancy[0].BookedSeats)

	other, err := f.svc.Analytics.GetAnalytics(ctx, f.admin, &request.AnalyticsRequest{TourID: uuid.NewString()})
	require.NoError(t, err)
	assert.Zero(t, other.TotalBookings)

	_, err = f.svc.Analytics.GetAnalytics(ctx, f.admin, &request.AnalyticsRequest{WindowDays: 1000})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestGetAnalytics_UsesCache(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	d := f.departure(5)
	f.book(t, f.customer, d.ID, 1)

	mc := cache.NewMemoryCache()
	svc := NewAnalyticsService(f.store, mc, &utils.Config{
		Analytics: utils.AnalyticsConfig{WindowDays: 7, CacheTTL: time.Minute},
	}, zap.NewNop(), f.clock.Now)

	first, err := svc.GetAnalytics(ctx, f.admin, &request.AnalyticsRequest{})
	require.NoError(t, err)
	assert.Equal(t, 7, first.Scope.WindowDays)
	assert.Equal(t, 1, first.TotalBookings)

	f.book(t, f.customer, d.ID, 1)

	second, err := svc.GetAnalytics(ctx, f.admin, &request.AnalyticsRequest{})
	require.NoError(t, err)
	assert.Equal(t, 1, second.TotalBookings, "served from cache")

	fresh, err := svc.GetAnalytics(ctx, f.admin, &request.AnalyticsRequest{Year: 2025})
	require.NoError(t, err)
	assert.Equal(t, 2, fresh.TotalBookings)
}
