package app_test

import (
	"context"
	"sync"
	"time"

	"monobook/internal/domain"
)

// ---- fakes ----

// fakeStore is an in-memory implementation of all repository ports. Guarded
// by a mutex so the concurrency tests exercise the service's own locking,
// not data races in the fake.
type fakeStore struct {
	mu         sync.Mutex
	properties []domain.Property
	rooms      []domain.Room
	guests     []domain.Guest
	bookings   []domain.Booking
}

func (f *fakeStore) GetProperty(ctx context.Context, id string) (domain.Property, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.properties {
		if p.ID == id {
			return p, nil
		}
	}
	return domain.Property{}, domain.ErrNotFound
}

func (f *fakeStore) ListProperties(ctx context.Context) ([]domain.Property, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.Property(nil), f.properties...), nil
}

func (f *fakeStore) GetRoom(ctx context.Context, id string) (domain.Room, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.rooms {
		if r.ID == id {
			return r, nil
		}
	}
	return domain.Room{}, domain.ErrNotFound
}

func (f *fakeStore) ListRooms(ctx context.Context, propertyID string) ([]domain.Room, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Room
	for _, r := range f.rooms {
		if r.PropertyID == propertyID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeStore) ListActiveRooms(ctx context.Context) ([]domain.Room, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Room
	for _, r := range f.rooms {
		if r.Status == domain.RoomActive {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeStore) ReplacePricing(ctx context.Context, roomID string, overrides []domain.DateOverride, tiers []domain.GuestTier) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.rooms {
		if f.rooms[i].ID == roomID {
			f.rooms[i].DateOverrides = overrides
			f.rooms[i].GuestTiers = tiers
			return nil
		}
	}
	return domain.ErrNotFound
}

func (f *fakeStore) FindGuest(ctx context.Context, propertyID, name string, email *string) (domain.Guest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, g := range f.guests {
		if g.PropertyID != propertyID || g.Name != name {
			continue
		}
		if email != nil && (g.Email == nil || *g.Email != *email) {
			continue
		}
		return g, nil
	}
	return domain.Guest{}, domain.ErrNotFound
}

func (f *fakeStore) CreateGuest(ctx context.Context, g domain.Guest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.guests = append(f.guests, g)
	return nil
}

func (f *fakeStore) GetBooking(ctx context.Context, id string) (domain.BookingView, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, b := range f.bookings {
		if b.ID == id {
			return f.view(b), nil
		}
	}
	return domain.BookingView{}, domain.ErrNotFound
}

func (f *fakeStore) ListRoomBookings(ctx context.Context, roomID string) ([]domain.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Booking
	for _, b := range f.bookings {
		if b.RoomID == roomID {
			out = append(out, b)
		}
	}
	return out, nil
}

func (f *fakeStore) ListBookings(ctx context.Context, q domain.BookingsQuery) ([]domain.BookingView, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.BookingView
	for _, b := range f.bookings {
		if b.PropertyID != q.PropertyID {
			continue
		}
		if q.Status != nil && b.Status != *q.Status {
			continue
		}
		out = append(out, f.view(b))
	}
	return out, nil
}

func (f *fakeStore) CreateBooking(ctx context.Context, b domain.Booking) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bookings = append(f.bookings, b)
	return nil
}

func (f *fakeStore) UpdateBooking(ctx context.Context, id string, p domain.BookingPatch, cancelledAt *time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.bookings {
		if f.bookings[i].ID != id {
			continue
		}
		if p.CheckIn != nil {
			f.bookings[i].CheckIn = *p.CheckIn
		}
		if p.CheckOut != nil {
			f.bookings[i].CheckOut = *p.CheckOut
		}
		if p.Status != nil {
			f.bookings[i].Status = *p.Status
		}
		if p.TotalPrice != nil {
			f.bookings[i].TotalPrice = *p.TotalPrice
		}
		if cancelledAt != nil {
			f.bookings[i].CancelledAt = cancelledAt
		}
		return nil
	}
	return domain.ErrNotFound
}

// view joins the guest name the way the SQL read model does.
func (f *fakeStore) view(b domain.Booking) domain.BookingView {
	bv := domain.BookingView{Booking: b, CurrencySymbol: b.CurrencyCode}
	if b.CurrencyCode == "USD" {
		bv.CurrencySymbol = "$"
	}
	for _, g := range f.guests {
		if g.ID == b.GuestID {
			name := g.Name
			bv.GuestName = &name
			break
		}
	}
	return bv
}

type fakeCache struct {
	mu      sync.Mutex
	store   map[string]any
	deleted []string
}

func (c *fakeCache) Get(ctx context.Context, key string, dst any) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.store[key]
	if !ok {
		return false, nil
	}
	switch d := dst.(type) {
	case *domain.Room:
		*d = v.(domain.Room)
	case *domain.BookingView:
		*d = v.(domain.BookingView)
	}
	return true, nil
}

func (c *fakeCache) Set(ctx context.Context, key string, v any, ttlSec int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.store == nil {
		c.store = map[string]any{}
	}
	c.store[key] = v
	return nil
}

func (c *fakeCache) Del(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.store, key)
	c.deleted = append(c.deleted, key)
	return nil
}

// ---- helpers ----

func ptr[T any](v T) *T { return &v }

func deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

func date(s string) time.Time {
	t, err := time.Parse(domain.DateLayout, s)
	if err != nil {
		panic(err)
	}
	return t
}

var testCurrencyTable = map[string]string{
	"USD": "$",
	"EUR": "€",
	"GBP": "£",
	"UAH": "₴",
}
