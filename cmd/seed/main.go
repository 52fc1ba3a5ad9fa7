package main

import (
	"context"
	"database/sql"
	"sync"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"

	"monobook/internal/adapters/observability"
	redisad "monobook/internal/adapters/redis"
	"monobook/internal/app"
	"monobook/internal/domain"
	"monobook/internal/shared"
	mysqlrepo "monobook/internal/storage/mysql"
)

// demoProperty bundles a property with its rooms so one worker can seed the
// whole subtree.
type demoProperty struct {
	property domain.Property
	rooms    []domain.Room
}

func main() {
	ctx := context.Background()
	cfg := shared.Load()

	// set global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv)

	log.Info().Int("workers", cfg.SeedWorkers).Msg("seeder starting")

	db, err := sql.Open("mysql", cfg.MySQLDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("sql.Open failed")
	}
	if err := db.Ping(); err != nil {
		log.Fatal().Err(err).Msg("db.Ping failed")
	}
	log.Info().Msg("db ping ok")

	repo := mysqlrepo.New(db)
	cache := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)

	table, err := repo.CurrencyTable(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("loading currency table failed")
	}
	resolver := app.NewCurrencyResolver(table)
	avail := app.NewAvailabilityService(repo)
	bookings := app.NewBookingService(repo, repo, repo, avail, resolver, cache)

	sem := semaphore.NewWeighted(int64(cfg.SeedWorkers))
	var wg sync.WaitGroup

	for _, dp := range demoProperties() {
		dp := dp

		// acquire before launching the goroutine; release inside it
		if err := sem.Acquire(ctx, int64(1)); err != nil {
			log.Fatal().Err(err).Msg("semaphore acquire failed")
		}

		wg.Add(1)
		go func(dp demoProperty) {
			defer wg.Done()
			defer sem.Release(int64(1))

			if err := seedProperty(ctx, repo, dp); err != nil {
				log.Warn().Str("property", dp.property.Name).Err(err).Msg("seed failed")
				return
			}
			log.Info().Str("property", dp.property.Name).Int("rooms", len(dp.rooms)).Msg("seed ok")
		}(dp)
	}

	wg.Wait()

	// a handful of bookings go through the service so the demo data respects
	// the same availability rules as live traffic
	seedBookings(ctx, bookings)

	log.Info().Msg("seeding completed")
}

func seedProperty(ctx context.Context, repo *mysqlrepo.Repo, dp demoProperty) error {
	if err := repo.CreateProperty(ctx, dp.property); err != nil {
		return err
	}
	for _, room := range dp.rooms {
		if err := repo.CreateRoom(ctx, room); err != nil {
			return err
		}
		if len(room.GuestTiers) > 0 || len(room.DateOverrides) > 0 {
			if err := repo.ReplacePricing(ctx, room.ID, room.DateOverrides, room.GuestTiers); err != nil {
				return err
			}
		}
	}
	return nil
}

func seedBookings(ctx context.Context, svc *app.BookingService) {
	in30 := time.Now().UTC().AddDate(0, 0, 30).Truncate(24 * time.Hour)
	for _, b := range []app.CreateBookingInput{
		{
			PropertyID: kyivLoftID,
			RoomID:     kyivStudioID,
			GuestName:  "Olena Armstrong",
			GuestEmail: ptr("olena@example.com"),
			CheckIn:    in30,
			CheckOut:   in30.AddDate(0, 0, 3),
			Guests:     2,
			Status:     domain.BookingConfirmed,
			Source:     "manual",
		},
		{
			PropertyID: lisbonHouseID,
			RoomID:     lisbonDoubleID,
			GuestName:  "Marco Silva",
			CheckIn:    in30.AddDate(0, 0, 7),
			CheckOut:   in30.AddDate(0, 0, 10),
			Guests:     3,
			Status:     domain.BookingConfirmed,
			Source:     "manual",
		},
	} {
		if _, err := svc.Create(ctx, b); err != nil {
			log.Warn().Str("room", b.RoomID).Err(err).Msg("seed booking failed")
		}
	}
}

// Fixed ids keep reruns and the booking seeds deterministic.
var (
	demoAccountID = "7f1c3a52-0000-4000-8000-000000000001"

	kyivLoftID   = "7f1c3a52-0000-4000-8000-000000000010"
	kyivStudioID = "7f1c3a52-0000-4000-8000-000000000011"
	kyivSuiteID  = "7f1c3a52-0000-4000-8000-000000000012"

	lisbonHouseID   = "7f1c3a52-0000-4000-8000-000000000020"
	lisbonDoubleID  = "7f1c3a52-0000-4000-8000-000000000021"
	lisbonFamilyID  = "7f1c3a52-0000-4000-8000-000000000022"
	lisbonRooftopID = "7f1c3a52-0000-4000-8000-000000000023"
)

func demoProperties() []demoProperty {
	peak := time.Now().UTC().AddDate(0, 0, 45).Truncate(24 * time.Hour)

	return []demoProperty{
		{
			property: domain.Property{
				ID:          kyivLoftID,
				AccountID:   demoAccountID,
				Name:        "Dnipro View Loft",
				Description: ptr("Bright loft apartments overlooking the river"),
				City:        ptr("Kyiv"),
				Country:     ptr("Ukraine"),
				Lat:         ptrF(50.4501),
				Lng:         ptrF(30.5234),
			},
			rooms: []domain.Room{
				{
					ID:            kyivStudioID,
					PropertyID:    kyivLoftID,
					Name:          "Studio",
					Type:          "studio",
					Description:   ptr("Compact studio with a workspace"),
					PricePerNight: 55,
					CurrencyCode:  "UAH",
					MaxGuests:     2,
					Amenities:     []string{"wifi", "kitchenette"},
					SyncEnabled:   true,
					Status:        domain.RoomActive,
				},
				{
					ID:            kyivSuiteID,
					PropertyID:    kyivLoftID,
					Name:          "River Suite",
					Type:          "suite",
					Description:   ptr("Corner suite, pets welcome"),
					PricePerNight: 120,
					CurrencyCode:  "UAH",
					MaxGuests:     4,
					Amenities:     []string{"wifi", "balcony", "pets allowed"},
					SyncEnabled:   true,
					Status:        domain.RoomActive,
					GuestTiers: []domain.GuestTier{
						{MinGuests: 3, MaxGuests: 4, PricePerNight: 160},
					},
				},
			},
		},
		{
			property: domain.Property{
				ID:          lisbonHouseID,
				AccountID:   demoAccountID,
				Name:        "Alfama Guest House",
				Description: ptr("Family-run guest house in the old town"),
				Street:      ptr("Rua dos Remedios 12"),
				City:        ptr("Lisbon"),
				Country:     ptr("Portugal"),
				Lat:         ptrF(38.7131),
				Lng:         ptrF(-9.1270),
			},
			rooms: []domain.Room{
				{
					ID:            lisbonDoubleID,
					PropertyID:    lisbonHouseID,
					Name:          "Double Room",
					Type:          "double",
					PricePerNight: 80,
					CurrencyCode:  "EUR",
					MaxGuests:     3,
					Amenities:     []string{"wifi", "air conditioning"},
					SyncEnabled:   true,
					Status:        domain.RoomActive,
					DateOverrides: []domain.DateOverride{
						{Date: peak, Price: 110},
						{Date: peak.AddDate(0, 0, 1), Price: 110},
					},
				},
				{
					ID:            lisbonFamilyID,
					PropertyID:    lisbonHouseID,
					Name:          "Family Room",
					Type:          "family",
					Description:   ptr("Two bedrooms, pet friendly"),
					PricePerNight: 120,
					CurrencyCode:  "EUR",
					MaxGuests:     6,
					BedConfig:     ptr("1 double, 2 twins"),
					Amenities:     []string{"wifi", "pet friendly", "washer"},
					SyncEnabled:   true,
					Status:        domain.RoomActive,
					GuestTiers: []domain.GuestTier{
						{MinGuests: 4, MaxGuests: 6, PricePerNight: 150},
					},
				},
				{
					ID:            lisbonRooftopID,
					PropertyID:    lisbonHouseID,
					Name:          "Rooftop Studio",
					Type:          "studio",
					PricePerNight: 95,
					CurrencyCode:  "EUR",
					MaxGuests:     2,
					Amenities:     []string{"wifi", "terrace"},
					SyncEnabled:   true,
					Status:        domain.RoomDraft,
				},
			},
		},
	}
}

func ptr(s string) *string    { return &s }
func ptrF(f float64) *float64 { return &f }
