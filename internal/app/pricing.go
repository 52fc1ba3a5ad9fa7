package app

import (
	"sort"
	"time"

	"github.com/rs/zerolog/log"

	"monobook/internal/domain"
)

// NightRateSource tags where a night's price came from.
type NightRateSource string

const (
	RateOverride NightRateSource = "override"
	RateTier     NightRateSource = "tier"
	RateBase     NightRateSource = "base"
)

type NightPrice struct {
	Date   time.Time       `json:"date"`
	Price  float64         `json:"price"`
	Source NightRateSource `json:"source"`
}

type Quote struct {
	Nights []NightPrice `json:"nights"`
	Total  float64      `json:"total"`
}

// PriceStay computes the nightly breakdown and total for a stay of
// [checkIn, checkOut) with the given guest count. Per night, precedence is
// date override > matching guest tier > room base price. Pure over the room
// and its pricing sub-collections.
func PriceStay(room domain.Room, checkIn, checkOut time.Time, guests int) (Quote, error) {
	if guests < 1 {
		return Quote{}, domain.ErrInvalidGuestCount
	}
	if guests > room.MaxGuests {
		return Quote{}, domain.ErrCapacityExceeded
	}
	if !checkIn.Before(checkOut) {
		return Quote{}, domain.ErrInvalidDateRange
	}

	nightly, nightlySource := tierNightly(room, guests)

	overrides := make(map[string]float64, len(room.DateOverrides))
	for _, o := range room.DateOverrides {
		overrides[o.Date.Format(domain.DateLayout)] = o.Price
	}

	var q Quote
	for d := checkIn; d.Before(checkOut); d = d.AddDate(0, 0, 1) {
		price, src := nightly, nightlySource
		if p, ok := overrides[d.Format(domain.DateLayout)]; ok {
			price, src = p, RateOverride
		}
		q.Nights = append(q.Nights, NightPrice{Date: d, Price: price, Source: src})
		q.Total += price
	}
	return q, nil
}

// tierNightly picks the nightly rate for the guest count: the first tier
// containing it in min_guests-ascending order, else the base price.
// Overlapping tiers are a data problem, not a runtime failure; log and move on.
func tierNightly(room domain.Room, guests int) (float64, NightRateSource) {
	tiers := append([]domain.GuestTier(nil), room.GuestTiers...)
	sort.Slice(tiers, func(i, j int) bool {
		if tiers[i].MinGuests != tiers[j].MinGuests {
			return tiers[i].MinGuests < tiers[j].MinGuests
		}
		return tiers[i].MaxGuests < tiers[j].MaxGuests
	})

	matched := -1
	for i, t := range tiers {
		if !t.Contains(guests) {
			continue
		}
		if matched >= 0 {
			log.Warn().
				Str("room_id", room.ID).
				Int("guests", guests).
				Msg("overlapping guest tiers; first match wins")
			break
		}
		matched = i
	}
	if matched >= 0 {
		return tiers[matched].PricePerNight, RateTier
	}
	return room.PricePerNight, RateBase
}
