package httpserver_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	server "monobook/internal/adapters/http_server"
	"monobook/internal/app"
	"monobook/internal/domain"
)

const (
	propID = "11111111-1111-4111-8111-111111111111"
	roomID = "22222222-2222-4222-8222-222222222222"
)

// ---- fakes ----

type fakeStore struct {
	properties []domain.Property
	rooms      []domain.Room
	guests     []domain.Guest
	bookings   []domain.Booking
}

func (f *fakeStore) GetProperty(ctx context.Context, id string) (domain.Property, error) {
	for _, p := range f.properties {
		if p.ID == id {
			return p, nil
		}
	}
	return domain.Property{}, domain.ErrNotFound
}

func (f *fakeStore) ListProperties(ctx context.Context) ([]domain.Property, error) {
	return f.properties, nil
}

func (f *fakeStore) GetRoom(ctx context.Context, id string) (domain.Room, error) {
	for _, r := range f.rooms {
		if r.ID == id {
			return r, nil
		}
	}
	return domain.Room{}, domain.ErrNotFound
}

func (f *fakeStore) ListRooms(ctx context.Context, propertyID string) ([]domain.Room, error) {
	return f.rooms, nil
}

func (f *fakeStore) ListActiveRooms(ctx context.Context) ([]domain.Room, error) {
	var out []domain.Room
	for _, r := range f.rooms {
		if r.Status == domain.RoomActive {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeStore) ReplacePricing(ctx context.Context, roomID string, overrides []domain.DateOverride, tiers []domain.GuestTier) error {
	for i := range f.rooms {
		if f.rooms[i].ID == roomID {
			f.rooms[i].DateOverrides = overrides
			f.rooms[i].GuestTiers = tiers
			return nil
		}
	}
	return domain.ErrNotFound
}

func (f *fakeStore) FindGuest(ctx context.Context, propertyID, name string, email *string) (domain.Guest, error) {
	for _, g := range f.guests {
		if g.PropertyID == propertyID && g.Name == name {
			return g, nil
		}
	}
	return domain.Guest{}, domain.ErrNotFound
}

func (f *fakeStore) CreateGuest(ctx context.Context, g domain.Guest) error {
	f.guests = append(f.guests, g)
	return nil
}

func (f *fakeStore) GetBooking(ctx context.Context, id string) (domain.BookingView, error) {
	for _, b := range f.bookings {
		if b.ID == id {
			return domain.BookingView{Booking: b, CurrencySymbol: "$"}, nil
		}
	}
	return domain.BookingView{}, domain.ErrNotFound
}

func (f *fakeStore) ListRoomBookings(ctx context.Context, roomID string) ([]domain.Booking, error) {
	var out []domain.Booking
	for _, b := range f.bookings {
		if b.RoomID == roomID {
			out = append(out, b)
		}
	}
	return out, nil
}

func (f *fakeStore) ListBookings(ctx context.Context, q domain.BookingsQuery) ([]domain.BookingView, error) {
	var out []domain.BookingView
	for _, b := range f.bookings {
		if b.PropertyID != q.PropertyID {
			continue
		}
		if q.Status != nil && b.Status != *q.Status {
			continue
		}
		out = append(out, domain.BookingView{Booking: b, CurrencySymbol: "$"})
	}
	return out, nil
}

func (f *fakeStore) CreateBooking(ctx context.Context, b domain.Booking) error {
	f.bookings = append(f.bookings, b)
	return nil
}

func (f *fakeStore) UpdateBooking(ctx context.Context, id string, p domain.BookingPatch, cancelledAt *time.Time) error {
	for i := range f.bookings {
		if f.bookings[i].ID != id {
			continue
		}
		if p.CheckIn != nil {
			f.bookings[i].CheckIn = *p.CheckIn
		}
		if p.CheckOut != nil {
			f.bookings[i].CheckOut = *p.CheckOut
		}
		if p.Status != nil {
			f.bookings[i].Status = *p.Status
		}
		if p.TotalPrice != nil {
			f.bookings[i].TotalPrice = *p.TotalPrice
		}
		if cancelledAt != nil {
			f.bookings[i].CancelledAt = cancelledAt
		}
		return nil
	}
	return domain.ErrNotFound
}

type noCache struct{}

func (noCache) Get(ctx context.Context, key string, dst any) (bool, error) { return false, nil }
func (noCache) Set(ctx context.Context, key string, v any, ttlSec int) error {
	return nil
}
func (noCache) Del(ctx context.Context, key string) error { return nil }

// ---- harness ----

func fixture() *fakeStore {
	return &fakeStore{
		properties: []domain.Property{
			{ID: propID, AccountID: "acc-1", Name: "Dnipro View Hotel", City: strPtr("Kyiv"), Country: strPtr("Ukraine")},
		},
		rooms: []domain.Room{
			{
				ID: roomID, PropertyID: propID, Name: "Garden Suite", Type: "suite",
				PricePerNight: 100, CurrencyCode: "USD", MaxGuests: 4,
				Status: domain.RoomActive,
			},
		},
	}
}

func newAPI(store *fakeStore) http.Handler {
	resolver := app.NewCurrencyResolver(map[string]string{"USD": "$", "EUR": "€"})
	avail := app.NewAvailabilityService(store)
	search := app.NewSearchService(store, store, avail, resolver)
	bookings := app.NewBookingService(store, store, store, avail, resolver, noCache{})
	queries := app.NewQueryService(store, store, noCache{}, time.Minute)

	srv := server.New()
	srv.MountHandlers(&server.Handlers{Q: queries, B: bookings, S: search, C: resolver})
	return srv.Mux()
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("bad JSON body %q: %v", rec.Body.String(), err)
	}
	return out
}

func strPtr(s string) *string { return &s }

// ---- tests ----

func TestHealthz(t *testing.T) {
	rec := do(t, newAPI(fixture()), http.MethodGet, "/healthz", "")
	if rec.Code != http.StatusOK || rec.Body.String() != "ok" {
		t.Fatalf("unexpected health response: %d %q", rec.Code, rec.Body.String())
	}
}

func TestSearchEndpoint(t *testing.T) {
	h := newAPI(fixture())

	rec := do(t, h, http.MethodGet, "/v1/search?city=kyiv&guests=2", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
	body := decode(t, rec)
	if body["count_hotels"].(float64) != 1 || body["count_rooms"].(float64) != 1 {
		t.Fatalf("unexpected counts: %+v", body)
	}

	// unscoped search is a 400
	rec = do(t, h, http.MethodGet, "/v1/search", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for empty search, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/problem+json" {
		t.Fatalf("expected problem+json, got %s", ct)
	}

	// lat without lng is a 400
	rec = do(t, h, http.MethodGet, "/v1/search?lat=50.4", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unpaired geo filter, got %d", rec.Code)
	}
}

func TestCreateBookingEndpoint(t *testing.T) {
	store := fixture()
	h := newAPI(store)

	body := `{"room_id":"` + roomID + `","guest_name":"Olena","check_in":"2026-03-10","check_out":"2026-03-12","guests":2}`
	rec := do(t, h, http.MethodPost, "/v1/properties/"+propID+"/bookings", body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
	resp := decode(t, rec)
	if resp["total_price"].(float64) != 200 || resp["status"] != "pending" {
		t.Fatalf("unexpected booking: %+v", resp)
	}
	if resp["source"] != "manual" {
		t.Fatalf("expected default manual source, got %v", resp["source"])
	}

	// same range again: 409
	rec = do(t, h, http.MethodPost, "/v1/properties/"+propID+"/bookings", body)
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 on overlap, got %d: %s", rec.Code, rec.Body.String())
	}

	// capacity violations are 422
	over := `{"room_id":"` + roomID + `","guest_name":"Olena","check_in":"2026-04-10","check_out":"2026-04-12","guests":5}`
	rec = do(t, h, http.MethodPost, "/v1/properties/"+propID+"/bookings", over)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 over capacity, got %d", rec.Code)
	}

	// malformed ids are 400 before any service work
	rec = do(t, h, http.MethodPost, "/v1/properties/not-a-uuid/bookings", body)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad property id, got %d", rec.Code)
	}
}

func TestGetBookingScopedToProperty(t *testing.T) {
	store := fixture()
	h := newAPI(store)

	body := `{"room_id":"` + roomID + `","guest_name":"Olena","check_in":"2026-03-10","check_out":"2026-03-12","guests":2}`
	rec := do(t, h, http.MethodPost, "/v1/properties/"+propID+"/bookings", body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
	id := decode(t, rec)["id"].(string)

	rec = do(t, h, http.MethodGet, "/v1/properties/"+propID+"/bookings/"+id, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}

	// the same booking under another property id is invisible
	other := "99999999-9999-4999-8999-999999999999"
	rec = do(t, h, http.MethodGet, "/v1/properties/"+other+"/bookings/"+id, "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 across properties, got %d", rec.Code)
	}
}

func TestPatchBookingCancel(t *testing.T) {
	store := fixture()
	h := newAPI(store)

	body := `{"room_id":"` + roomID + `","guest_name":"Olena","check_in":"2026-03-10","check_out":"2026-03-12","guests":2}`
	rec := do(t, h, http.MethodPost, "/v1/properties/"+propID+"/bookings", body)
	id := decode(t, rec)["id"].(string)

	rec = do(t, h, http.MethodPatch, "/v1/properties/"+propID+"/bookings/"+id, `{"status":"cancelled"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
	resp := decode(t, rec)
	if resp["status"] != "cancelled" || resp["cancelled_at"] == nil {
		t.Fatalf("unexpected cancel response: %+v", resp)
	}

	rec = do(t, h, http.MethodPatch, "/v1/properties/"+propID+"/bookings/"+id, `{"status":"definitely"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown status, got %d", rec.Code)
	}
}

func TestAvailabilityEndpoint(t *testing.T) {
	store := fixture()
	h := newAPI(store)

	rec := do(t, h, http.MethodGet, "/v1/rooms/"+roomID+"/availability?check_in=2026-03-10&check_out=2026-03-12", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
	if decode(t, rec)["available"] != true {
		t.Fatal("expected available room")
	}

	rec = do(t, h, http.MethodGet, "/v1/rooms/"+roomID+"/availability?check_in=2026-03-12&check_out=2026-03-10", "")
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for inverted range, got %d", rec.Code)
	}

	rec = do(t, h, http.MethodGet, "/v1/rooms/"+roomID+"/availability?check_in=tomorrow&check_out=2026-03-10", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed date, got %d", rec.Code)
	}
}

func TestSetPricingEndpoint(t *testing.T) {
	store := fixture()
	h := newAPI(store)

	body := `{"guest_tiers":[{"min_guests":2,"max_guests":4,"price_per_night":130}],` +
		`"date_overrides":[{"date":"2026-06-01","price":300}]}`
	rec := do(t, h, http.MethodPut, "/v1/properties/"+propID+"/rooms/"+roomID+"/pricing", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
	resp := decode(t, rec)
	tiers := resp["guest_tiers"].([]any)
	if len(tiers) != 1 || tiers[0].(map[string]any)["price_per_night"].(float64) != 130 {
		t.Fatalf("tiers not replaced: %+v", resp)
	}

	// a malformed tier range is rejected before the write
	bad := `{"guest_tiers":[{"min_guests":3,"max_guests":2,"price_per_night":130}]}`
	rec = do(t, h, http.MethodPut, "/v1/properties/"+propID+"/rooms/"+roomID+"/pricing", bad)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for malformed tier, got %d", rec.Code)
	}
}
