package domain

import "time"

type BookingStatus string

const (
	BookingPending   BookingStatus = "pending"
	BookingAIPending BookingStatus = "ai_pending"
	BookingConfirmed BookingStatus = "confirmed"
	BookingCancelled BookingStatus = "cancelled"
)

func (s BookingStatus) Valid() bool {
	switch s {
	case BookingPending, BookingAIPending, BookingConfirmed, BookingCancelled:
		return true
	}
	return false
}

// Occupies reports whether a booking in this status blocks the room.
// Cancelled bookings never occupy their date range.
func (s BookingStatus) Occupies() bool {
	return s.Valid() && s != BookingCancelled
}

type Booking struct {
	ID             string
	PropertyID     string
	RoomID         string
	GuestID        string
	CheckIn        time.Time
	CheckOut       time.Time
	TotalPrice     float64
	CurrencyCode   string
	Status         BookingStatus
	Source         string
	ConversationID *string
	AIHandled      bool
	CancelledAt    *time.Time
	CreatedAt      time.Time
}

// BookingView is the read model returned to callers: the booking joined with
// the guest name and the display form of its currency.
type BookingView struct {
	Booking
	GuestName      *string
	CurrencySymbol string
}

// BookingPatch carries an in-place edit. Nil fields are left untouched.
type BookingPatch struct {
	CheckIn    *time.Time
	CheckOut   *time.Time
	Status     *BookingStatus
	TotalPrice *float64
}
