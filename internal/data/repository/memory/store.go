// Package memory is a process-local implementation of the repository
// contracts. Transactions are serialized on one mutex and work on a copy of
// the state that replaces the original only on success.
package memory

import (
	"context"
	"errors"
	"sync"
	"time"

	"tour-booking/internal/data/entity"
	"tour-booking/internal/data/repository"
	"tour-booking/pkg/outbox"

	"github.com/google/uuid"
)

// ErrDuplicate mirrors a unique constraint violation.
var ErrDuplicate = errors.New("duplicate key")

type state struct {
	users      map[uuid.UUID]entity.User
	sessions   map[uuid.UUID]entity.Session
	categories map[uuid.UUID]entity.Category
	tours      map[uuid.UUID]entity.Tour
	discounts  map[uuid.UUID]entity.Discount
	departures map[uuid.UUID]entity.Departure
	bookings   map[uuid.UUID]entity.Booking
	payments   map[uuid.UUID]entity.Payment
	refunds    map[uuid.UUID]entity.Refund
	outbox     []outbox.Event
	nextEvent  int64
}

func newState() *state {
	return &state{
		users:      map[uuid.UUID]entity.User{},
		sessions:   map[uuid.UUID]entity.Session{},
		categories: map[uuid.UUID]entity.Category{},
		tours:      map[uuid.UUID]entity.Tour{},
		discounts:  map[uuid.UUID]entity.Discount{},
		departures: map[uuid.UUID]entity.Departure{},
		bookings:   map[uuid.UUID]entity.Booking{},
		payments:   map[uuid.UUID]entity.Payment{},
		refunds:    map[uuid.UUID]entity.Refund{},
	}
}

func cloneMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// clone copies every table. Rows are stored by value and replaced, never
// modified in place, so a shallow copy per map is enough.
func (s *state) clone() *state {
	return &state{
		users:      cloneMap(s.users),
		sessions:   cloneMap(s.sessions),
		categories: cloneMap(s.categories),
		tours:      cloneMap(s.tours),
		discounts:  cloneMap(s.discounts),
		departures: cloneMap(s.departures),
		bookings:   cloneMap(s.bookings),
		payments:   cloneMap(s.payments),
		refunds:    cloneMap(s.refunds),
		outbox:     append([]outbox.Event(nil), s.outbox...),
		nextEvent:  s.nextEvent,
	}
}

type Store struct {
	mu  sync.Mutex
	st  *state
	now func() time.Time
}

func NewStore() *Store {
	return &Store{st: newState(), now: time.Now}
}

// SetClock replaces the time source used for row timestamps.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// Repository returns repositories that operate outside any transaction, each
// call taking the store lock on its own.
func (s *Store) Repository() *repository.Repository {
	return s.bind(nil)
}

func (s *Store) WithinTx(ctx context.Context, fn repository.TxFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	work := s.st.clone()
	if err := fn(ctx, s.bind(work)); err != nil {
		return err
	}
	s.st = work
	return nil
}

func (s *Store) WithinReadTx(ctx context.Context, fn repository.TxFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	return fn(ctx, s.bind(s.st.clone()))
}

func (s *Store) bind(st *state) *repository.Repository {
	v := &view{store: s, st: st}
	return &repository.Repository{
		User:      &userRepo{v},
		Session:   &sessionRepo{v},
		Tour:      &tourRepo{v},
		Departure: &departureRepo{v},
		Booking:   &bookingRepo{v},
		Payment:   &paymentRepo{v},
		Refund:    &refundRepo{v},
		Analytics: &analyticsRepo{v},
		Outbox:    &outboxRepo{v},
	}
}

// view is either bound to a transaction's working copy or, when st is nil,
// to the live state under the store lock.
type view struct {
	store *Store
	st    *state
}

func (v *view) do(fn func(st *state) error) error {
	if v.st != nil {
		return fn(v.st)
	}
	v.store.mu.Lock()
	defer v.store.mu.Unlock()
	return fn(v.store.st)
}

func (v *view) now() time.Time {
	return v.store.now()
}

// Seeding helpers for the catalog, which has no write path in the service.

func (s *Store) SeedCategory(c entity.Category) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.categories[c.ID] = c
}

func (s *Store) SeedTour(t entity.Tour) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.tours[t.ID] = t
}

func (s *Store) SeedDiscount(d entity.Discount) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.discounts[d.ID] = d
}

func (s *Store) SeedUser(u entity.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.users[u.ID] = u
}

func (s *Store) SeedDeparture(d entity.Departure) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.departures[d.ID] = d
}

func (s *Store) SeedBooking(b entity.Booking) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.bookings[b.ID] = b
}

func (s *Store) SeedPayment(p entity.Payment) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.payments[p.ID] = p
}

func (s *Store) SeedRefund(r entity.Refund) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.refunds[r.ID] = r
}

// Events returns a copy of the outbox in append order.
func (s *Store) Events() []outbox.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]outbox.Event(nil), s.st.outbox...)
}
