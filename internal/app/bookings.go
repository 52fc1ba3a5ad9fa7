package app

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"monobook/internal/adapters/observability"
	"monobook/internal/domain"
)

// maxBookingGuests is the absolute ceiling regardless of room capacity.
const maxBookingGuests = 20

type CreateBookingInput struct {
	PropertyID string
	RoomID     string

	GuestName  string
	GuestEmail *string
	GuestPhone *string

	CheckIn  time.Time
	CheckOut time.Time
	Guests   int

	// ExplicitPrice overrides the computed total (manual/agent entry escape
	// hatch); the currency still resolves through the fallback chain.
	ExplicitPrice    *float64
	ExplicitCurrency *string

	Status         domain.BookingStatus
	Source         string
	ConversationID *string
	AIHandled      bool
}

// BookingService orchestrates availability, pricing and currency resolution
// to materialize bookings. The availability check and the write for a room
// are serialized under a per-room lock; concurrent creates for overlapping
// dates on one room cannot both succeed.
type BookingService struct {
	rooms      domain.RoomRepository
	guests     domain.GuestRepository
	bookings   domain.BookingRepository
	avail      *AvailabilityService
	currencies *CurrencyResolver
	cache      domain.Cache

	locks roomLocks
}

func NewBookingService(
	rooms domain.RoomRepository,
	guests domain.GuestRepository,
	bookings domain.BookingRepository,
	avail *AvailabilityService,
	currencies *CurrencyResolver,
	cache domain.Cache,
) *BookingService {
	return &BookingService{
		rooms:      rooms,
		guests:     guests,
		bookings:   bookings,
		avail:      avail,
		currencies: currencies,
		cache:      cache,
	}
}

// Create validates and materializes a booking. Each gate is hard: the first
// failure wins and nothing is persisted.
func (s *BookingService) Create(ctx context.Context, in CreateBookingInput) (domain.BookingView, error) {
	room, err := s.rooms.GetRoom(ctx, in.RoomID)
	if err != nil {
		return domain.BookingView{}, err
	}
	if room.PropertyID != in.PropertyID {
		return domain.BookingView{}, domain.ErrNotFound
	}
	if in.Guests < 1 || in.Guests > maxBookingGuests {
		return domain.BookingView{}, domain.ErrInvalidGuestCount
	}
	if in.Guests > room.MaxGuests {
		return domain.BookingView{}, domain.ErrCapacityExceeded
	}
	if !in.CheckIn.Before(in.CheckOut) {
		return domain.BookingView{}, domain.ErrInvalidDateRange
	}
	status := in.Status
	if status == "" {
		status = domain.BookingPending
	}
	if !status.Valid() {
		return domain.BookingView{}, domain.ErrInvalidIdentifier
	}
	cur, err := s.currencies.Resolve(in.ExplicitCurrency, &room.CurrencyCode)
	if err != nil {
		return domain.BookingView{}, err
	}

	// Check-then-write is one unit of work per room.
	unlock := s.locks.lock(in.RoomID)
	defer unlock()

	free, err := s.avail.IsAvailable(ctx, in.RoomID, in.CheckIn, in.CheckOut, "")
	if err != nil {
		return domain.BookingView{}, err
	}
	if !free {
		observability.ObserveBooking("conflict")
		return domain.BookingView{}, domain.ErrRoomNotAvailable
	}

	total := 0.0
	if in.ExplicitPrice != nil {
		total = *in.ExplicitPrice
	} else {
		quote, err := PriceStay(room, in.CheckIn, in.CheckOut, in.Guests)
		if err != nil {
			return domain.BookingView{}, err
		}
		total = quote.Total
	}

	guest, err := s.findOrCreateGuest(ctx, in)
	if err != nil {
		return domain.BookingView{}, err
	}

	b := domain.Booking{
		ID:             uuid.NewString(),
		PropertyID:     in.PropertyID,
		RoomID:         in.RoomID,
		GuestID:        guest.ID,
		CheckIn:        in.CheckIn,
		CheckOut:       in.CheckOut,
		TotalPrice:     total,
		CurrencyCode:   cur.Code,
		Status:         status,
		Source:         in.Source,
		ConversationID: in.ConversationID,
		AIHandled:      in.AIHandled,
		CreatedAt:      time.Now().UTC(),
	}
	if err := s.bookings.CreateBooking(ctx, b); err != nil {
		return domain.BookingView{}, err
	}
	observability.ObserveBooking("created")
	log.Info().
		Str("booking_id", b.ID).
		Str("room_id", b.RoomID).
		Str("source", b.Source).
		Float64("total", b.TotalPrice).
		Msg("booking created")

	name := in.GuestName
	return domain.BookingView{Booking: b, GuestName: &name, CurrencySymbol: cur.Symbol}, nil
}

// Update re-runs the date and availability gates for in-place edits. The
// availability check excludes the booking being edited so it can shrink or
// shift without colliding with itself.
func (s *BookingService) Update(ctx context.Context, id string, p domain.BookingPatch) (domain.BookingView, error) {
	existing, err := s.bookings.GetBooking(ctx, id)
	if err != nil {
		return domain.BookingView{}, err
	}
	if p.Status != nil && !p.Status.Valid() {
		return domain.BookingView{}, domain.ErrInvalidIdentifier
	}

	checkIn, checkOut := existing.CheckIn, existing.CheckOut
	datesChanged := false
	if p.CheckIn != nil {
		checkIn, datesChanged = *p.CheckIn, true
	}
	if p.CheckOut != nil {
		checkOut, datesChanged = *p.CheckOut, true
	}
	if datesChanged && !checkIn.Before(checkOut) {
		return domain.BookingView{}, domain.ErrInvalidDateRange
	}

	// Re-check availability when the occupied range could change: a date edit,
	// or a non-occupying booking being revived into an occupying status.
	revived := p.Status != nil && p.Status.Occupies() && !existing.Status.Occupies()
	var cancelledAt *time.Time
	if p.Status != nil && *p.Status == domain.BookingCancelled {
		now := time.Now().UTC()
		cancelledAt = &now
	}

	unlock := s.locks.lock(existing.RoomID)
	defer unlock()

	if datesChanged || revived {
		free, err := s.avail.IsAvailable(ctx, existing.RoomID, checkIn, checkOut, id)
		if err != nil {
			return domain.BookingView{}, err
		}
		if !free {
			observability.ObserveBooking("conflict")
			return domain.BookingView{}, domain.ErrRoomNotAvailable
		}
	}

	if err := s.bookings.UpdateBooking(ctx, id, p, cancelledAt); err != nil {
		return domain.BookingView{}, err
	}
	s.invalidateBooking(ctx, id)
	return s.bookings.GetBooking(ctx, id)
}

// Cancel is a pure status transition: it never re-checks availability and
// never deletes the row.
func (s *BookingService) Cancel(ctx context.Context, id string) (domain.BookingView, error) {
	if _, err := s.bookings.GetBooking(ctx, id); err != nil {
		return domain.BookingView{}, err
	}
	st := domain.BookingCancelled
	now := time.Now().UTC()
	if err := s.bookings.UpdateBooking(ctx, id, domain.BookingPatch{Status: &st}, &now); err != nil {
		return domain.BookingView{}, err
	}
	observability.ObserveBooking("cancelled")
	s.invalidateBooking(ctx, id)
	return s.bookings.GetBooking(ctx, id)
}

// CheckAvailability answers the standalone availability question.
func (s *BookingService) CheckAvailability(ctx context.Context, roomID string, checkIn, checkOut time.Time) (bool, error) {
	if !checkIn.Before(checkOut) {
		return false, domain.ErrInvalidDateRange
	}
	return s.avail.IsAvailable(ctx, roomID, checkIn, checkOut, "")
}

// SetPricing replaces both pricing sub-collections of a room in one shot.
// It holds the room lock so a total cannot be computed while the collections
// are mid-swap.
func (s *BookingService) SetPricing(ctx context.Context, roomID string, overrides []domain.DateOverride, tiers []domain.GuestTier) (domain.Room, error) {
	room, err := s.rooms.GetRoom(ctx, roomID)
	if err != nil {
		return domain.Room{}, err
	}
	warnOverlappingTiers(roomID, tiers)

	unlock := s.locks.lock(roomID)
	defer unlock()

	if err := s.rooms.ReplacePricing(ctx, roomID, overrides, tiers); err != nil {
		return domain.Room{}, err
	}
	if s.cache != nil {
		_ = s.cache.Del(ctx, roomCacheKey(roomID))
	}
	room, err = s.rooms.GetRoom(ctx, roomID)
	if err != nil {
		return domain.Room{}, err
	}
	return room, nil
}

func (s *BookingService) findOrCreateGuest(ctx context.Context, in CreateBookingInput) (domain.Guest, error) {
	g, err := s.guests.FindGuest(ctx, in.PropertyID, in.GuestName, in.GuestEmail)
	if err == nil {
		return g, nil
	}
	if err != domain.ErrNotFound {
		return domain.Guest{}, err
	}
	g = domain.Guest{
		ID:         uuid.NewString(),
		PropertyID: in.PropertyID,
		Name:       in.GuestName,
		Email:      in.GuestEmail,
		Phone:      in.GuestPhone,
	}
	if err := s.guests.CreateGuest(ctx, g); err != nil {
		return domain.Guest{}, err
	}
	return g, nil
}

func (s *BookingService) invalidateBooking(ctx context.Context, id string) {
	if s.cache != nil {
		_ = s.cache.Del(ctx, bookingCacheKey(id))
	}
}

// warnOverlappingTiers flags tier ranges that intersect. Overlap is accepted
// and logged; the calculator's first-match rule resolves it at read time.
func warnOverlappingTiers(roomID string, tiers []domain.GuestTier) {
	for i := 0; i < len(tiers); i++ {
		for j := i + 1; j < len(tiers); j++ {
			a, b := tiers[i], tiers[j]
			if a.MinGuests <= b.MaxGuests && b.MinGuests <= a.MaxGuests {
				log.Warn().
					Str("room_id", roomID).
					Ints("range_a", []int{a.MinGuests, a.MaxGuests}).
					Ints("range_b", []int{b.MinGuests, b.MaxGuests}).
					Msg("guest tier ranges overlap")
				return
			}
		}
	}
}

// roomLocks hands out one mutex per room id. The zero value is ready to use.
type roomLocks struct {
	mu sync.Mutex
	m  map[string]*sync.Mutex
}

func (l *roomLocks) lock(roomID string) (unlock func()) {
	l.mu.Lock()
	if l.m == nil {
		l.m = make(map[string]*sync.Mutex)
	}
	rm, ok := l.m[roomID]
	if !ok {
		rm = &sync.Mutex{}
		l.m[roomID] = rm
	}
	l.mu.Unlock()
	rm.Lock()
	return rm.Unlock
}
