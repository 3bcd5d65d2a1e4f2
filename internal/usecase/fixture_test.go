package usecase

import (
	"context"
	"sync"
	"testing"
	"time"

	"tour-booking/internal/data/entity"
	"tour-booking/internal/data/repository/memory"
	"tour-booking/internal/dto/request"
	"tour-booking/internal/dto/response"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var baseTime = time.Date(2026, time.March, 10, 9, 0, 0, 0, time.UTC)

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type fixture struct {
	store    *memory.Store
	svc      *Service
	clock    *testClock
	category entity.Category
	tour     entity.Tour
	customer Actor
	other    Actor
	operator Actor
	admin    Actor
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureWithLogger(t, zap.NewNop())
}

func newFixtureWithLogger(t *testing.T, log *zap.Logger) *fixture {
	t.Helper()

	clock := &testClock{t: baseTime}
	store := memory.NewStore()
	store.SetClock(clock.Now)

	f := &fixture{
		store: store,
		clock: clock,
		category: entity.Category{
			Base: entity.Base{ID: uuid.New()},
			Name: "Adventure",
		},
		customer: Actor{UserID: uuid.New(), Role: entity.RoleCustomer},
		other:    Actor{UserID: uuid.New(), Role: entity.RoleCustomer},
		operator: Actor{UserID: uuid.New(), Role: entity.RoleOperator},
		admin:    Actor{UserID: uuid.New(), Role: entity.RoleAdmin},
	}
	f.tour = entity.Tour{
		Base:       entity.Base{ID: uuid.New()},
		CategoryID: f.category.ID,
		Title:      "Volcano Trek",
		BasePrice:  entity.NewMoney(250, 0),
		IsActive:   true,
	}
	store.SeedCategory(f.category)
	store.SeedTour(f.tour)

	f.svc = NewService(Deps{
		Repo: store.Repository(),
		Tx:   store,
		Log:  log,
		Now:  clock.Now,
	})
	return f
}

// departure seeds a scheduled departure of the fixture tour starting in a week.
func (f *fixture) departure(capacity int) entity.Departure {
	starts := baseTime.Add(7 * 24 * time.Hour)
	ends := starts.Add(48 * time.Hour)
	d := entity.Departure{
		Base:           entity.Base{ID: uuid.New(), CreatedAt: baseTime, UpdatedAt: baseTime},
		TourID:         f.tour.ID,
		StartsAt:       &starts,
		EndsAt:         &ends,
		TotalCapacity:  capacity,
		AvailableSeats: capacity,
		Status:         entity.DepartureStatusScheduled,
	}
	f.store.SeedDeparture(d)
	return d
}

func (f *fixture) available(t *testing.T, departureID uuid.UUID) int {
	t.Helper()
	d, err := f.store.Repository().Departure.FindByID(context.Background(), departureID)
	require.NoError(t, err)
	require.NotNil(t, d)
	return d.AvailableSeats
}

// assertCapacityInvariant checks available + held participants == capacity.
func (f *fixture) assertCapacityInvariant(t *testing.T, departureID uuid.UUID) {
	t.Helper()
	ctx := context.Background()
	repo := f.store.Repository()

	d, err := repo.Departure.FindByID(ctx, departureID)
	require.NoError(t, err)

	held := 0
	for _, status := range []entity.BookingStatus{entity.BookingStatusPending, entity.BookingStatusConfirmed} {
		bookings, err := repo.Booking.FindByDepartureID(ctx, departureID, status)
		require.NoError(t, err)
		for _, b := range bookings {
			held += b.Participants
		}
	}
	require.Equal(t, d.TotalCapacity, d.AvailableSeats+held, "capacity invariant broken")
}

func (f *fixture) book(t *testing.T, actor Actor, departureID uuid.UUID, participants int) *response.BookingResponse {
	t.Helper()
	b, err := f.svc.Booking.CreateBooking(context.Background(), actor, &request.CreateBookingRequest{
		DepartureID:  departureID.String(),
		Participants: participants,
	})
	require.NoError(t, err)
	return b
}

// paid books and settles a completed payment, returning the booking ID.
func (f *fixture) paid(t *testing.T, actor Actor, departureID uuid.UUID, participants int) string {
	t.Helper()
	ctx := context.Background()

	b := f.book(t, actor, departureID, participants)
	p, err := f.svc.Payment.InitiatePayment(ctx, actor, &request.InitiatePaymentRequest{
		BookingID: b.ID,
		Method:    string(entity.PaymentMethodCard),
	})
	require.NoError(t, err)

	_, err = f.svc.Payment.SettlePayment(ctx, f.operator, p.ID, &request.SettlePaymentRequest{
		Outcome: string(entity.PaymentStatusCompleted),
	})
	require.NoError(t, err)
	return b.ID
}

func (f *fixture) booking(t *testing.T, id string) *entity.Booking {
	t.Helper()
	b, err := f.store.Repository().Booking.FindByID(context.Background(), uuid.MustParse(id))
	require.NoError(t, err)
	require.NotNil(t, b)
	return b
}

func eventTypes(f *fixture) []string {
	var out []string
	for _, e := range f.store.Events() {
		out = append(out, e.Type)
	}
	return out
}
