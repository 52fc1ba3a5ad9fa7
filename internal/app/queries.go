package app

import (
	"context"
	"fmt"
	"time"

	"monobook/internal/domain"
)

func roomCacheKey(id string) string    { return fmt.Sprintf("room:%s", id) }
func bookingCacheKey(id string) string { return fmt.Sprintf("booking:%s", id) }

// QueryService serves cached reads of rooms and bookings. Writers invalidate
// the same keys, so a hit is at worst one TTL stale.
type QueryService struct {
	rooms    domain.RoomRepository
	bookings domain.BookingRepository
	cache    domain.Cache
	cacheTTL time.Duration
}

func NewQueryService(r domain.RoomRepository, b domain.BookingRepository, c domain.Cache, ttl time.Duration) *QueryService {
	return &QueryService{rooms: r, bookings: b, cache: c, cacheTTL: ttl}
}

func (s *QueryService) GetRoom(ctx context.Context, id string) (domain.Room, error) {
	key := roomCacheKey(id)
	var room domain.Room
	if ok, _ := s.cache.Get(ctx, key, &room); ok {
		return room, nil
	}
	room, err := s.rooms.GetRoom(ctx, id)
	if err != nil {
		return domain.Room{}, err
	}
	_ = s.cache.Set(ctx, key, room, int(s.cacheTTL.Seconds()))
	return room, nil
}

func (s *QueryService) GetBooking(ctx context.Context, id string) (domain.BookingView, error) {
	key := bookingCacheKey(id)
	var bv domain.BookingView
	if ok, _ := s.cache.Get(ctx, key, &bv); ok {
		return bv, nil
	}
	bv, err := s.bookings.GetBooking(ctx, id)
	if err != nil {
		return domain.BookingView{}, err
	}
	_ = s.cache.Set(ctx, key, bv, int(s.cacheTTL.Seconds()))
	return bv, nil
}

// ListBookings goes straight to the store; list shapes churn with every write
// and are not worth cache bookkeeping.
func (s *QueryService) ListBookings(ctx context.Context, q domain.BookingsQuery) ([]domain.BookingView, error) {
	return s.bookings.ListBookings(ctx, q)
}
