package domain

import "time"

// DateLayout is the wire format for stay dates. Check-out is exclusive:
// a stay occupies nights [CheckIn, CheckOut).
const DateLayout = "2006-01-02"

type Property struct {
	ID          string
	AccountID   string
	Name        string
	Description *string
	Street      *string
	City        *string
	State       *string
	PostalCode  *string
	Country     *string
	Lat, Lng    *float64
}

type RoomStatus string

const (
	RoomActive   RoomStatus = "active"
	RoomDraft    RoomStatus = "draft"
	RoomArchived RoomStatus = "archived"
)

func (s RoomStatus) Valid() bool {
	switch s {
	case RoomActive, RoomDraft, RoomArchived:
		return true
	}
	return false
}

type Room struct {
	ID            string
	PropertyID    string
	Name          string
	Type          string
	Description   *string
	Images        []string
	PricePerNight float64
	CurrencyCode  string
	MaxGuests     int
	BedConfig     *string
	Amenities     []string
	Source        *string
	SourceURL     *string
	SyncEnabled   bool
	Status        RoomStatus

	GuestTiers    []GuestTier
	DateOverrides []DateOverride
}

// GuestTier prices a room per night for a guest-count range [MinGuests, MaxGuests].
// Ranges for a room should not overlap; a guest count outside every tier falls
// back to the room base price.
type GuestTier struct {
	MinGuests     int
	MaxGuests     int
	PricePerNight float64
}

func (t GuestTier) Contains(guests int) bool {
	return t.MinGuests <= guests && guests <= t.MaxGuests
}

// DateOverride prices one calendar night, taking precedence over tier and
// base pricing regardless of guest count. Unique per (room, date).
type DateOverride struct {
	Date  time.Time
	Price float64
}

type Guest struct {
	ID         string
	PropertyID string
	Name       string
	Email      *string
	Phone      *string
}
