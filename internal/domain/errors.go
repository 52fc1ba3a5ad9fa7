package domain

import "errors"

var (
	ErrNotFound = errors.New("monobook: not found")

	// Validation failures surfaced to callers before any write happens.
	ErrInvalidDateRange  = errors.New("monobook: check-out must be after check-in")
	ErrInvalidGuestCount = errors.New("monobook: guest count must be at least 1")
	ErrCapacityExceeded  = errors.New("monobook: guest count exceeds room capacity")
	ErrInvalidCurrency   = errors.New("monobook: unknown currency code")
	ErrInvalidGeoFilter  = errors.New("monobook: lat and lng must be provided together")
	ErrEmptySearch       = errors.New("monobook: at least one search filter is required")
	ErrInvalidIdentifier = errors.New("monobook: malformed identifier")

	// ErrRoomNotAvailable is the expected business outcome when a stay collides
	// with an existing booking; callers present it as a normal negative result,
	// not a system fault.
	ErrRoomNotAvailable = errors.New("monobook: room is not available for the selected dates")
)
