package domain

import (
	"context"
	"time"
)

type PropertyRepository interface {
	GetProperty(ctx context.Context, id string) (Property, error)
	ListProperties(ctx context.Context) ([]Property, error)
}

type RoomRepository interface {
	// GetRoom returns the room with its pricing sub-collections loaded
	// (guest tiers ordered by min_guests, date overrides by date).
	GetRoom(ctx context.Context, id string) (Room, error)
	ListRooms(ctx context.Context, propertyID string) ([]Room, error)
	// ListActiveRooms spans all properties; the search engine's candidate set.
	ListActiveRooms(ctx context.Context) ([]Room, error)
	// ReplacePricing atomically discards and replaces both pricing
	// sub-collections of a room.
	ReplacePricing(ctx context.Context, roomID string, overrides []DateOverride, tiers []GuestTier) error
}

type GuestRepository interface {
	// FindGuest matches by property+name, narrowed by email when supplied.
	// Returns ErrNotFound when no guest matches.
	FindGuest(ctx context.Context, propertyID, name string, email *string) (Guest, error)
	CreateGuest(ctx context.Context, g Guest) error
}

type BookingsQuery struct {
	PropertyID string
	Status     *BookingStatus
}

type BookingRepository interface {
	GetBooking(ctx context.Context, id string) (BookingView, error)
	// ListRoomBookings returns every booking for a room, cancelled included.
	ListRoomBookings(ctx context.Context, roomID string) ([]Booking, error)
	ListBookings(ctx context.Context, q BookingsQuery) ([]BookingView, error)
	CreateBooking(ctx context.Context, b Booking) error
	UpdateBooking(ctx context.Context, id string, p BookingPatch, cancelledAt *time.Time) error
}

// CurrencyRepository reads the fixed currency lookup table: code -> display symbol.
type CurrencyRepository interface {
	CurrencyTable(ctx context.Context) (map[string]string, error)
}

type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, v any, ttlSec int) error
	Del(ctx context.Context, key string) error
}
