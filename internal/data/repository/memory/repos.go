package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"tour-booking/internal/data/entity"
	"tour-booking/internal/data/repository"
	"tour-booking/pkg/outbox"

	"github.com/google/uuid"
)

const maxOutboxRetries = 10

type userRepo struct{ v *view }

func (r *userRepo) Create(_ context.Context, user *entity.User) error {
	return r.v.do(func(st *state) error {
		for _, u := range st.users {
			if u.Email == user.Email || u.Username == user.Username {
				return fmt.Errorf("create user %s: %w", user.Email, ErrDuplicate)
			}
		}
		st.users[user.ID] = *user
		return nil
	})
}

func (r *userRepo) FindByID(_ context.Context, id uuid.UUID) (*entity.User, error) {
	return r.find(func(u entity.User) bool { return u.ID == id })
}

func (r *userRepo) FindByEmail(_ context.Context, email string) (*entity.User, error) {
	return r.find(func(u entity.User) bool { return u.Email == email })
}

func (r *userRepo) FindByUsername(_ context.Context, username string) (*entity.User, error) {
	return r.find(func(u entity.User) bool { return u.Username == username })
}

func (r *userRepo) find(match func(entity.User) bool) (*entity.User, error) {
	var found *entity.User
	err := r.v.do(func(st *state) error {
		for _, u := range st.users {
			if match(u) {
				u := u
				found = &u
				return nil
			}
		}
		return nil
	})
	return found, err
}

type sessionRepo struct{ v *view }

func (r *sessionRepo) Create(_ context.Context, session *entity.Session) error {
	return r.v.do(func(st *state) error {
		if _, ok := st.sessions[session.Token]; ok {
			return fmt.Errorf("create session: %w", ErrDuplicate)
		}
		st.sessions[session.Token] = *session
		return nil
	})
}

func (r *sessionRepo) FindValidSession(_ context.Context, token uuid.UUID, now time.Time) (*entity.Session, error) {
	var found *entity.Session
	err := r.v.do(func(st *state) error {
		if s, ok := st.sessions[token]; ok && s.IsValidAt(now) {
			found = &s
		}
		return nil
	})
	return found, err
}

func (r *sessionRepo) Revoke(_ context.Context, token uuid.UUID, at time.Time) error {
	return r.v.do(func(st *state) error {
		s, ok := st.sessions[token]
		if !ok || s.RevokedAt != nil {
			return repository.ErrNotFound
		}
		s.RevokedAt = &at
		st.sessions[token] = s
		return nil
	})
}

type tourRepo struct{ v *view }

func (r *tourRepo) FindByID(_ context.Context, id uuid.UUID) (*entity.Tour, error) {
	var found *entity.Tour
	err := r.v.do(func(st *state) error {
		if t, ok := st.tours[id]; ok {
			found = &t
		}
		return nil
	})
	return found, err
}

func (r *tourRepo) FindActiveDiscounts(_ context.Context, tourID uuid.UUID, at time.Time) ([]*entity.Discount, error) {
	var out []*entity.Discount
	err := r.v.do(func(st *state) error {
		for _, d := range st.discounts {
			if d.TourID == tourID && d.CoversAt(at) {
				d := d
				out = append(out, &d)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Percentage > out[j].Percentage })
	return out, err
}

type departureRepo struct{ v *view }

func (r *departureRepo) Create(_ context.Context, d *entity.Departure) error {
	return r.v.do(func(st *state) error {
		if d.StartsAt == nil {
			for _, existing := range st.departures {
				if existing.TourID == d.TourID && existing.StartsAt == nil {
					return fmt.Errorf("create open-dated departure for tour %s: %w", d.TourID, ErrDuplicate)
				}
			}
		}
		st.departures[d.ID] = *d
		return nil
	})
}

func (r *departureRepo) FindByID(_ context.Context, id uuid.UUID) (*entity.Departure, error) {
	var found *entity.Departure
	err := r.v.do(func(st *state) error {
		if d, ok := st.departures[id]; ok {
			found = &d
		}
		return nil
	})
	return found, err
}

func (r *departureRepo) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*entity.Departure, error) {
	return r.FindByID(ctx, id)
}

func (r *departureRepo) FindOpenDatedByTourID(_ context.Context, tourID uuid.UUID) (*entity.Departure, error) {
	var found *entity.Departure
	err := r.v.do(func(st *state) error {
		for _, d := range st.departures {
			if d.TourID == tourID && d.StartsAt == nil {
				d := d
				found = &d
				return nil
			}
		}
		return nil
	})
	return found, err
}

func (r *departureRepo) UpdateStatus(_ context.Context, id uuid.UUID, status entity.DepartureStatus) error {
	return r.v.do(func(st *state) error {
		d, ok := st.departures[id]
		if !ok {
			return repository.ErrNotFound
		}
		d.Status = status
		d.UpdatedAt = r.v.now()
		st.departures[id] = d
		return nil
	})
}

func (r *departureRepo) Reserve(_ context.Context, id uuid.UUID, count int) (int, error) {
	var remaining int
	err := r.v.do(func(st *state) error {
		d, ok := st.departures[id]
		if !ok || d.Status != entity.DepartureStatusScheduled || d.AvailableSeats < count {
			return repository.ErrInsufficientCapacity
		}
		d.AvailableSeats -= count
		d.UpdatedAt = r.v.now()
		st.departures[id] = d
		remaining = d.AvailableSeats
		return nil
	})
	return remaining, err
}

func (r *departureRepo) Release(_ context.Context, id uuid.UUID, count int) (int, bool, error) {
	var (
		remaining int
		clamped   bool
	)
	err := r.v.do(func(st *state) error {
		d, ok := st.departures[id]
		if !ok {
			return repository.ErrNotFound
		}
		next := d.AvailableSeats + count
		if next > d.TotalCapacity {
			next = d.TotalCapacity
			clamped = true
		}
		d.AvailableSeats = next
		d.UpdatedAt = r.v.now()
		st.departures[id] = d
		remaining = next
		return nil
	})
	return remaining, clamped, err
}

type bookingRepo struct{ v *view }

func (r *bookingRepo) Create(_ context.Context, b *entity.Booking) error {
	return r.v.do(func(st *state) error {
		for _, existing := range st.bookings {
			if existing.OrderCode == b.OrderCode {
				return fmt.Errorf("create booking %s: %w", b.OrderCode, ErrDuplicate)
			}
		}
		st.bookings[b.ID] = *b
		return nil
	})
}

func (r *bookingRepo) FindByID(_ context.Context, id uuid.UUID) (*entity.Booking, error) {
	var found *entity.Booking
	err := r.v.do(func(st *state) error {
		if b, ok := st.bookings[id]; ok {
			found = &b
		}
		return nil
	})
	return found, err
}

func (r *bookingRepo) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*entity.Booking, error) {
	return r.FindByID(ctx, id)
}

func (r *bookingRepo) FindByUserID(_ context.Context, userID uuid.UUID, limit, offset int) ([]*entity.Booking, error) {
	var all []*entity.Booking
	err := r.v.do(func(st *state) error {
		for _, b := range st.bookings {
			if b.UserID == userID {
				b := b
				all = append(all, &b)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(all, func(i, j int) bool {
		if all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].ID.String() < all[j].ID.String()
		}
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})

	if offset >= len(all) {
		return nil, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], nil
}

func (r *bookingRepo) CountByUserID(_ context.Context, userID uuid.UUID) (int64, error) {
	var n int64
	err := r.v.do(func(st *state) error {
		for _, b := range st.bookings {
			if b.UserID == userID {
				n++
			}
		}
		return nil
	})
	return n, err
}

func (r *bookingRepo) FindByDepartureID(_ context.Context, departureID uuid.UUID, status entity.BookingStatus) ([]*entity.Booking, error) {
	var out []*entity.Booking
	err := r.v.do(func(st *state) error {
		for _, b := range st.bookings {
			if b.DepartureID == departureID && b.Status == status {
				b := b
				out = append(out, &b)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID.String() < out[j].ID.String() })
	return out, err
}

func (r *bookingRepo) CountActiveByDepartureID(_ context.Context, departureID uuid.UUID) (int, error) {
	var n int
	err := r.v.do(func(st *state) error {
		for _, b := range st.bookings {
			if b.DepartureID == departureID && b.Status.HoldsSeats() {
				n++
			}
		}
		return nil
	})
	return n, err
}

func (r *bookingRepo) UpdateState(_ context.Context, id uuid.UUID, status entity.BookingStatus, paymentStatus entity.BookingPaymentStatus) error {
	return r.v.do(func(st *state) error {
		b, ok := st.bookings[id]
		if !ok {
			return repository.ErrNotFound
		}
		b.Status = status
		b.PaymentStatus = paymentStatus
		b.UpdatedAt = r.v.now()
		st.bookings[id] = b
		return nil
	})
}

type paymentRepo struct{ v *view }

func (r *paymentRepo) Create(_ context.Context, p *entity.Payment) error {
	return r.v.do(func(st *state) error {
		for _, existing := range st.payments {
			if existing.BookingID == p.BookingID {
				return fmt.Errorf("create payment for booking %s: %w", p.BookingID, ErrDuplicate)
			}
		}
		st.payments[p.ID] = *p
		return nil
	})
}

func (r *paymentRepo) FindByID(_ context.Context, id uuid.UUID) (*entity.Payment, error) {
	var found *entity.Payment
	err := r.v.do(func(st *state) error {
		if p, ok := st.payments[id]; ok {
			found = &p
		}
		return nil
	})
	return found, err
}

func (r *paymentRepo) FindByBookingID(_ context.Context, bookingID uuid.UUID) (*entity.Payment, error) {
	var found *entity.Payment
	err := r.v.do(func(st *state) error {
		for _, p := range st.payments {
			if p.BookingID == bookingID {
				p := p
				found = &p
				return nil
			}
		}
		return nil
	})
	return found, err
}

func (r *paymentRepo) MarkSettled(_ context.Context, id uuid.UUID, status entity.PaymentStatus, at time.Time) (bool, error) {
	var updated bool
	err := r.v.do(func(st *state) error {
		p, ok := st.payments[id]
		if !ok || p.Status != entity.PaymentStatusPending {
			return nil
		}
		p.Status = status
		p.SettledAt = &at
		p.UpdatedAt = at
		st.payments[id] = p
		updated = true
		return nil
	})
	return updated, err
}

type refundRepo struct{ v *view }

func (r *refundRepo) Create(_ context.Context, rf *entity.Refund) error {
	return r.v.do(func(st *state) error {
		for _, existing := range st.refunds {
			if existing.BookingID == rf.BookingID {
				return fmt.Errorf("create refund for booking %s: %w", rf.BookingID, ErrDuplicate)
			}
		}
		st.refunds[rf.ID] = *rf
		return nil
	})
}

func (r *refundRepo) FindByID(_ context.Context, id uuid.UUID) (*entity.Refund, error) {
	var found *entity.Refund
	err := r.v.do(func(st *state) error {
		if rf, ok := st.refunds[id]; ok {
			found = &rf
		}
		return nil
	})
	return found, err
}

func (r *refundRepo) FindByBookingID(_ context.Context, bookingID uuid.UUID) (*entity.Refund, error) {
	var found *entity.Refund
	err := r.v.do(func(st *state) error {
		for _, rf := range st.refunds {
			if rf.BookingID == bookingID {
				rf := rf
				found = &rf
				return nil
			}
		}
		return nil
	})
	return found, err
}

func (r *refundRepo) MarkDecided(_ context.Context, id uuid.UUID, status entity.RefundStatus, at time.Time) (bool, error) {
	var updated bool
	err := r.v.do(func(st *state) error {
		rf, ok := st.refunds[id]
		if !ok || rf.Status != entity.RefundStatusPending {
			return nil
		}
		rf.Status = status
		rf.DecidedAt = &at
		rf.UpdatedAt = at
		st.refunds[id] = rf
		updated = true
		return nil
	})
	return updated, err
}

type analyticsRepo struct{ v *view }

func (r *analyticsRepo) LoadHistory(_ context.Context, filter repository.HistoryFilter) (*repository.History, error) {
	var h repository.History
	err := r.v.do(func(st *state) error {
		tours := map[uuid.UUID]entity.Tour{}
		for id, t := range st.tours {
			if filter.MatchesTour(t.ID, t.CategoryID) {
				tours[id] = t
				h.Tours = append(h.Tours, repository.TourFact{
					TourID:     t.ID,
					CategoryID: t.CategoryID,
					Title:      t.Title,
					Category:   st.categories[t.CategoryID].Name,
				})
			}
		}

		for _, b := range st.bookings {
			if _, ok := tours[b.TourID]; !ok {
				continue
			}
			h.Bookings = append(h.Bookings, repository.BookingFact{
				BookingID:    b.ID,
				TourID:       b.TourID,
				DepartureID:  b.DepartureID,
				Participants: b.Participants,
				Status:       b.Status,
				CreatedAt:    b.CreatedAt,
			})
		}

		for _, p := range st.payments {
			b, ok := st.bookings[p.BookingID]
			if _, inScope := tours[b.TourID]; !ok || !inScope {
				continue
			}
			h.Payments = append(h.Payments, repository.PaymentFact{
				BookingID: p.BookingID,
				TourID:    b.TourID,
				Amount:    p.Amount,
				Status:    p.Status,
				SettledAt: p.SettledAt,
				CreatedAt: p.CreatedAt,
			})
		}

		for _, rf := range st.refunds {
			b, ok := st.bookings[rf.BookingID]
			if _, inScope := tours[b.TourID]; !ok || !inScope {
				continue
			}
			h.Refunds = append(h.Refunds, repository.RefundFact{
				BookingID: rf.BookingID,
				TourID:    b.TourID,
				Amount:    rf.Amount,
				Status:    rf.Status,
				DecidedAt: rf.DecidedAt,
			})
		}

		for _, d := range st.departures {
			if _, ok := tours[d.TourID]; ok {
				d := d
				h.Departures = append(h.Departures, &d)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(h.Tours, func(i, j int) bool { return h.Tours[i].TourID.String() < h.Tours[j].TourID.String() })
	sort.Slice(h.Departures, func(i, j int) bool { return h.Departures[i].ID.String() < h.Departures[j].ID.String() })
	return &h, nil
}

type outboxRepo struct{ v *view }

func (r *outboxRepo) Append(_ context.Context, event *outbox.Event) error {
	return r.v.do(func(st *state) error {
		st.nextEvent++
		event.ID = st.nextEvent
		event.Status = outbox.StatusPending
		st.outbox = append(st.outbox, *event)
		return nil
	})
}

func (r *outboxRepo) LockBatch(_ context.Context, _ string, batchSize int, _ time.Duration) ([]outbox.Event, error) {
	var out []outbox.Event
	err := r.v.do(func(st *state) error {
		for i := range st.outbox {
			if len(out) >= batchSize {
				break
			}
			ev := &st.outbox[i]
			if ev.Status == outbox.StatusPending || (ev.Status == outbox.StatusFailed && ev.RetryCount < maxOutboxRetries) {
				ev.Status = outbox.StatusInProgress
				out = append(out, *ev)
			}
		}
		return nil
	})
	return out, err
}

func (r *outboxRepo) MarkSent(_ context.Context, ids []int64) error {
	return r.v.do(func(st *state) error {
		sent := make(map[int64]bool, len(ids))
		for _, id := range ids {
			sent[id] = true
		}
		for i := range st.outbox {
			if sent[st.outbox[i].ID] {
				st.outbox[i].Status = outbox.StatusSent
			}
		}
		return nil
	})
}

func (r *outboxRepo) MarkFailed(_ context.Context, id int64, errMsg string) error {
	return r.v.do(func(st *state) error {
		for i := range st.outbox {
			if st.outbox[i].ID == id {
				msg := errMsg
				st.outbox[i].Status = outbox.StatusFailed
				st.outbox[i].RetryCount++
				st.outbox[i].LastError = &msg
			}
		}
		return nil
	})
}
