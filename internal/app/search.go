package app

import (
	"context"
	"math"
	"sort"
	"strings"
	"time"

	"monobook/internal/domain"
)

const (
	// DefaultRadiusKM bounds the geo filter when the caller supplies
	// coordinates without a radius.
	DefaultRadiusKM = 20.0

	// defaultSearchGuests is the candidate guest count for price estimation
	// when the caller does not filter by guests.
	defaultSearchGuests = 2

	earthRadiusKM = 6371.0
)

// petFriendlySynonyms is matched case-insensitively against the amenities
// list; pet friendliness is a keyword convention, not a structured field.
var petFriendlySynonyms = []string{"pet friendly", "pets allowed", "pets welcome", "pet-friendly"}

// SearchFilters are AND-combined: a result must satisfy every supplied filter.
type SearchFilters struct {
	PropertyID   *string
	Query        *string
	PropertyName *string
	RoomName     *string
	City         *string
	Country      *string

	Lat, Lng *float64
	RadiusKM *float64

	Guests            *int
	CheckIn, CheckOut *time.Time
	PetFriendly       bool
	BudgetPerNightMax *float64
	BudgetTotalMax    *float64
}

type RoomMatch struct {
	Room domain.Room
	// NightlyPrice is the effective price of the first night of the requested
	// range, or the base price when no range was given.
	NightlyPrice   float64
	EstimatedTotal *float64 // set only when both dates were supplied
	Currency       Currency
}

type HotelResult struct {
	Property          domain.Property
	DistanceKM        *float64 // set when the geo filter was applied
	PetFriendlyOption bool
	MatchingRooms     []RoomMatch
}

type SearchService struct {
	properties domain.PropertyRepository
	rooms      domain.RoomRepository
	avail      *AvailabilityService
	currencies *CurrencyResolver
}

func NewSearchService(p domain.PropertyRepository, r domain.RoomRepository, a *AvailabilityService, c *CurrencyResolver) *SearchService {
	return &SearchService{properties: p, rooms: r, avail: a, currencies: c}
}

// Search applies property-level filters, then room-level filters, and groups
// matching rooms under their hotel. A hotel appears only when at least one of
// its rooms passed every room-level filter. Ordering is deterministic:
// property id ascending, rooms by room id ascending.
func (s *SearchService) Search(ctx context.Context, f SearchFilters) ([]HotelResult, error) {
	if err := validateFilters(f); err != nil {
		return nil, err
	}

	props, err := s.properties.ListProperties(ctx)
	if err != nil {
		return nil, err
	}
	rooms, err := s.rooms.ListActiveRooms(ctx)
	if err != nil {
		return nil, err
	}
	roomsByProperty := make(map[string][]domain.Room, len(props))
	for _, r := range rooms {
		roomsByProperty[r.PropertyID] = append(roomsByProperty[r.PropertyID], r)
	}

	// Availability and total-budget filtering engage only with a full range.
	datesSet := f.CheckIn != nil && f.CheckOut != nil

	var out []HotelResult
	for _, p := range props {
		if f.PropertyID != nil && p.ID != *f.PropertyID {
			continue
		}
		if !containsFold(p.City, f.City) || !containsFold(p.Country, f.Country) {
			continue
		}
		if f.PropertyName != nil && !strings.Contains(strings.ToLower(p.Name), strings.ToLower(*f.PropertyName)) {
			continue
		}
		var distance *float64
		if f.Lat != nil {
			if p.Lat == nil || p.Lng == nil {
				continue
			}
			d := haversineKM(*f.Lat, *f.Lng, *p.Lat, *p.Lng)
			radius := DefaultRadiusKM
			if f.RadiusKM != nil {
				radius = *f.RadiusKM
			}
			if d > radius {
				continue
			}
			d = math.Round(d*10) / 10
			distance = &d
		}

		var matches []RoomMatch
		petOption := false
		for _, room := range roomsByProperty[p.ID] {
			m, ok, err := s.matchRoom(ctx, p, room, f, datesSet)
			if err != nil {
				return nil, err
			}
			if !ok {
				continue
			}
			if roomIsPetFriendly(room) {
				petOption = true
			}
			matches = append(matches, m)
		}
		if len(matches) == 0 {
			continue
		}
		sort.Slice(matches, func(i, j int) bool { return matches[i].Room.ID < matches[j].Room.ID })
		out = append(out, HotelResult{
			Property:          p,
			DistanceKM:        distance,
			PetFriendlyOption: petOption,
			MatchingRooms:     matches,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Property.ID < out[j].Property.ID })
	return out, nil
}

func (s *SearchService) matchRoom(ctx context.Context, p domain.Property, room domain.Room, f SearchFilters, datesSet bool) (RoomMatch, bool, error) {
	if f.RoomName != nil && !strings.Contains(strings.ToLower(room.Name), strings.ToLower(*f.RoomName)) {
		return RoomMatch{}, false, nil
	}
	if f.Query != nil && !queryMatches(p, room, *f.Query) {
		return RoomMatch{}, false, nil
	}
	if f.Guests != nil && *f.Guests > room.MaxGuests {
		return RoomMatch{}, false, nil
	}
	if f.PetFriendly && !roomIsPetFriendly(room) {
		return RoomMatch{}, false, nil
	}
	if datesSet {
		free, err := s.avail.IsAvailable(ctx, room.ID, *f.CheckIn, *f.CheckOut, "")
		if err != nil {
			return RoomMatch{}, false, err
		}
		if !free {
			return RoomMatch{}, false, nil
		}
	}

	guests := defaultSearchGuests
	if f.Guests != nil {
		guests = *f.Guests
	}
	if guests > room.MaxGuests {
		guests = room.MaxGuests
	}

	nightly := room.PricePerNight
	var estimated *float64
	if datesSet {
		quote, err := PriceStay(room, *f.CheckIn, *f.CheckOut, guests)
		if err != nil {
			return RoomMatch{}, false, err
		}
		nightly = quote.Nights[0].Price
		estimated = &quote.Total
	}
	if f.BudgetPerNightMax != nil && nightly > *f.BudgetPerNightMax {
		return RoomMatch{}, false, nil
	}
	if datesSet && f.BudgetTotalMax != nil && *estimated > *f.BudgetTotalMax {
		return RoomMatch{}, false, nil
	}

	cur, err := s.currencies.Resolve(nil, &room.CurrencyCode)
	if err != nil {
		return RoomMatch{}, false, err
	}
	return RoomMatch{Room: room, NightlyPrice: nightly, EstimatedTotal: estimated, Currency: cur}, true, nil
}

func validateFilters(f SearchFilters) error {
	if (f.Lat == nil) != (f.Lng == nil) {
		return domain.ErrInvalidGeoFilter
	}
	if f.Guests != nil && *f.Guests < 1 {
		return domain.ErrInvalidGuestCount
	}
	geo := f.Lat != nil && f.Lng != nil
	if f.Query == nil && f.PropertyName == nil && f.City == nil && f.Country == nil && f.RoomName == nil && !geo {
		return domain.ErrEmptySearch
	}
	return nil
}

func queryMatches(p domain.Property, room domain.Room, q string) bool {
	q = strings.ToLower(q)
	desc := ""
	if room.Description != nil {
		desc = *room.Description
	}
	for _, field := range []string{p.Name, room.Name, room.Type, desc} {
		if strings.Contains(strings.ToLower(field), q) {
			return true
		}
	}
	return false
}

func roomIsPetFriendly(room domain.Room) bool {
	for _, a := range room.Amenities {
		la := strings.ToLower(a)
		for _, syn := range petFriendlySynonyms {
			if strings.Contains(la, syn) {
				return true
			}
		}
	}
	return false
}

// containsFold is a nil-tolerant case-insensitive substring match for
// optional address fields against an optional filter.
func containsFold(field *string, filter *string) bool {
	if filter == nil {
		return true
	}
	if field == nil {
		return false
	}
	return strings.Contains(strings.ToLower(*field), strings.ToLower(*filter))
}

// haversineKM is the great-circle distance between two coordinates.
func haversineKM(lat1, lng1, lat2, lng2 float64) float64 {
	rad := func(deg float64) float64 { return deg * math.Pi / 180 }
	dLat := rad(lat2 - lat1)
	dLng := rad(lng2 - lng1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(rad(lat1))*math.Cos(rad(lat2))*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * earthRadiusKM * math.Asin(math.Sqrt(a))
}
