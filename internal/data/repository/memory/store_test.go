package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"tour-booking/internal/data/entity"
	"tour-booking/internal/data/repository"
	"tour-booking/pkg/outbox"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedDeparture(s *Store, capacity int) entity.Departure {
	d := entity.Departure{
		Base:           entity.Base{ID: uuid.New()},
		TourID:         uuid.New(),
		TotalCapacity:  capacity,
		AvailableSeats: capacity,
		Status:         entity.DepartureStatusScheduled,
	}
	s.SeedDeparture(d)
	return d
}

func TestWithinTx_RollsBackOnError(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	d := seedDeparture(s, 5)

	errBoom := errors.New("boom")
	err := s.WithinTx(ctx, func(ctx context.Context, repo *repository.Repository) error {
		if _, err := repo.Departure.Reserve(ctx, d.ID, 3); err != nil {
			return err
		}
		require.NoError(t, repo.Outbox.Append(ctx, &outbox.Event{Type: "booking.created"}))
		return errBoom
	})

	assert.ErrorIs(t, err, errBoom)
	got, err := s.Repository().Departure.FindByID(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, got.AvailableSeats)
	assert.Empty(t, s.Events())
}

func TestWithinTx_CommitsOnSuccess(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	d := seedDeparture(s, 5)

	err := s.WithinTx(ctx, func(ctx context.Context, repo *repository.Repository) error {
		remaining, err := repo.Departure.Reserve(ctx, d.ID, 2)
		assert.Equal(t, 3, remaining)
		return err
	})

	require.NoError(t, err)
	got, _ := s.Repository().Departure.FindByID(ctx, d.ID)
	assert.Equal(t, 3, got.AvailableSeats)
}

func TestDeparture_ReserveAndRelease(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	d := seedDeparture(s, 2)
	repo := s.Repository().Departure

	_, err := repo.Reserve(ctx, d.ID, 3)
	assert.ErrorIs(t, err, repository.ErrInsufficientCapacity)

	remaining, err := repo.Reserve(ctx, d.ID, 2)
	require.NoError(t, err)
	assert.Zero(t, remaining)

	remaining, clamped, err := repo.Release(ctx, d.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, remaining)
	assert.False(t, clamped)

	remaining, clamped, err = repo.Release(ctx, d.ID, 5)
	require.NoError(t, err)
	assert.Equal(t, 2, remaining)
	assert.True(t, clamped)

	require.NoError(t, repo.UpdateStatus(ctx, d.ID, entity.DepartureStatusInProgress))
	_, err = repo.Reserve(ctx, d.ID, 1)
	assert.ErrorIs(t, err, repository.ErrInsufficientCapacity)
}

func TestDeparture_ConcurrentReserveNeverOversells(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	d := seedDeparture(s, 10)

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		success int
	)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.WithinTx(ctx, func(ctx context.Context, repo *repository.Repository) error {
				_, err := repo.Departure.Reserve(ctx, d.ID, 1)
				return err
			})
			if err == nil {
				mu.Lock()
				success++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 10, success)
	got, _ := s.Repository().Departure.FindByID(ctx, d.ID)
	assert.Zero(t, got.AvailableSeats)
}

func TestPayment_MarkSettledIsOneShot(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	repo := s.Repository().Payment

	p := &entity.Payment{
		Base:      entity.Base{ID: uuid.New()},
		BookingID: uuid.New(),
		Amount:    entity.NewMoney(100, 0),
		Status:    entity.PaymentStatusPending,
	}
	require.NoError(t, repo.Create(ctx, p))

	dup := *p
	dup.ID = uuid.New()
	assert.ErrorIs(t, repo.Create(ctx, &dup), ErrDuplicate)

	at := time.Now()
	ok, err := repo.MarkSettled(ctx, p.ID, entity.PaymentStatusCompleted, at)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.MarkSettled(ctx, p.ID, entity.PaymentStatusFailed, at)
	require.NoError(t, err)
	assert.False(t, ok)

	got, _ := repo.FindByID(ctx, p.ID)
	assert.Equal(t, entity.PaymentStatusCompleted, got.Status)
}

func TestBooking_FindByUserIDPaginates(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	repo := s.Repository().Booking
	userID := uuid.New()
	base := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		require.NoError(t, repo.Create(ctx, &entity.Booking{
			Base:      entity.Base{ID: uuid.New(), CreatedAt: base.Add(time.Duration(i) * time.Hour)},
			OrderCode: uuid.NewString(),
			UserID:    userID,
		}))
	}

	page, err := repo.FindByUserID(ctx, userID, 2, 0)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, base.Add(4*time.Hour), page[0].CreatedAt)

	page, err = repo.FindByUserID(ctx, userID, 2, 4)
	require.NoError(t, err)
	assert.Len(t, page, 1)

	total, err := repo.CountByUserID(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, int64(5), total)
}

func TestOutbox_LockAndMark(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	repo := s.Repository().Outbox

	for _, typ := range []string{"a", "b", "c"} {
		require.NoError(t, repo.Append(ctx, &outbox.Event{Type: typ}))
	}

	batch, err := repo.LockBatch(ctx, "r", 2, time.Second)
	require.NoError(t, err)
	require.Len(t, batch, 2)
	assert.Equal(t, int64(1), batch[0].ID)

	require.NoError(t, repo.MarkSent(ctx, []int64{1}))
	require.NoError(t, repo.MarkFailed(ctx, 2, "down"))

	batch, err = repo.LockBatch(ctx, "r", 10, time.Second)
	require.NoError(t, err)
	require.Len(t, batch, 2)
	assert.Equal(t, int64(2), batch[0].ID)
	assert.Equal(t, 1, batch[0].RetryCount)
	assert.Equal(t, int64(3), batch[1].ID)
}
