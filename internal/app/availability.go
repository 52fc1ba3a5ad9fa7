package app

import (
	"context"
	"time"

	"monobook/internal/domain"
)

// Overlaps reports whether the half-open ranges [aStart, aEnd) and
// [bStart, bEnd) share at least one night.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && bStart.Before(aEnd)
}

// AvailabilityService answers whether a candidate date range is free of
// occupying bookings for a room. Non-availability is a boolean, not an error;
// callers decide whether it is a failure.
type AvailabilityService struct {
	bookings domain.BookingRepository
}

func NewAvailabilityService(bookings domain.BookingRepository) *AvailabilityService {
	return &AvailabilityService{bookings: bookings}
}

// IsAvailable checks [checkIn, checkOut) against every non-cancelled booking
// for the room. excludeBookingID lets an in-place edit skip the booking being
// edited so it can shrink or shift dates without colliding with itself.
func (s *AvailabilityService) IsAvailable(ctx context.Context, roomID string, checkIn, checkOut time.Time, excludeBookingID string) (bool, error) {
	existing, err := s.bookings.ListRoomBookings(ctx, roomID)
	if err != nil {
		return false, err
	}
	for _, b := range existing {
		if !b.Status.Occupies() {
			continue
		}
		if excludeBookingID != "" && b.ID == excludeBookingID {
			continue
		}
		if Overlaps(checkIn, checkOut, b.CheckIn, b.CheckOut) {
			return false, nil
		}
	}
	return true, nil
}
