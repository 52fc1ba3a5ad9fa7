package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"monobook/internal/adapters/observability"
	"monobook/internal/app"
	"monobook/internal/domain"
)

type Handlers struct {
	Q *app.QueryService
	B *app.BookingService
	S *app.SearchService
	C *app.CurrencyResolver
}

type problem struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
}

func (s *Server) MountHandlers(h *Handlers) {
	s.mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); _, _ = w.Write([]byte("ok")) })
	s.mux.Get("/v1/search", h.search)
	s.mux.Get("/v1/rooms/{roomID}/availability", h.checkAvailability)
	s.mux.Route("/v1/properties/{propertyID}", func(r chi.Router) {
		r.Get("/bookings", h.listBookings)
		r.Post("/bookings", h.createBooking)
		r.Get("/bookings/{bookingID}", h.getBooking)
		r.Patch("/bookings/{bookingID}", h.updateBooking)
		r.Put("/rooms/{roomID}/pricing", h.setPricing)
	})
}

func writeProblem(w http.ResponseWriter, status int, title, detail string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(problem{Type: "about:blank", Title: title, Status: status, Detail: detail}); err != nil {
		log.Error().Err(err).Msg("write JSON problem response failed")
	}
}

// writeDomainErr maps the error taxonomy onto HTTP statuses. RoomNotAvailable
// is a 409: an expected negative outcome, not a fault.
func writeDomainErr(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeProblem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, domain.ErrRoomNotAvailable):
		writeProblem(w, http.StatusConflict, "Room Not Available", err.Error())
	case errors.Is(err, domain.ErrInvalidDateRange),
		errors.Is(err, domain.ErrInvalidGuestCount),
		errors.Is(err, domain.ErrCapacityExceeded),
		errors.Is(err, domain.ErrInvalidCurrency):
		writeProblem(w, http.StatusUnprocessableEntity, "Validation Failed", err.Error())
	case errors.Is(err, domain.ErrInvalidGeoFilter),
		errors.Is(err, domain.ErrEmptySearch),
		errors.Is(err, domain.ErrInvalidIdentifier):
		writeProblem(w, http.StatusBadRequest, "Bad Request", err.Error())
	default:
		log.Error().Err(err).Msg("request failed")
		writeProblem(w, http.StatusInternalServerError, "Internal Error", "unexpected error")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("write JSON response failed")
	}
}

// ---- wire DTOs ----

type roomDTO struct {
	ID            string       `json:"id"`
	PropertyID    string       `json:"property_id"`
	Name          string       `json:"name"`
	Type          string       `json:"type"`
	Description   *string      `json:"description,omitempty"`
	Images        []string     `json:"images"`
	PricePerNight float64      `json:"price_per_night"`
	Currency      app.Currency `json:"currency"`
	MaxGuests     int          `json:"max_guests"`
	BedConfig     *string      `json:"bed_config,omitempty"`
	Amenities     []string     `json:"amenities"`
	Status        string       `json:"status"`

	GuestTiers    []guestTierDTO    `json:"guest_tiers"`
	DateOverrides []dateOverrideDTO `json:"date_overrides"`
}

type guestTierDTO struct {
	MinGuests     int     `json:"min_guests"`
	MaxGuests     int     `json:"max_guests"`
	PricePerNight float64 `json:"price_per_night"`
}

type dateOverrideDTO struct {
	Date  string  `json:"date"`
	Price float64 `json:"price"`
}

type roomMatchDTO struct {
	roomDTO
	NightlyPrice   float64  `json:"nightly_price"`
	EstimatedTotal *float64 `json:"estimated_total,omitempty"`
}

type hotelResultDTO struct {
	PropertyID        string         `json:"property_id"`
	Name              string         `json:"name"`
	City              *string        `json:"city,omitempty"`
	Country           *string        `json:"country,omitempty"`
	DistanceKM        *float64       `json:"distance_km,omitempty"`
	PetFriendlyOption bool           `json:"pet_friendly_option"`
	MatchingRooms     []roomMatchDTO `json:"matching_rooms"`
}

type searchResponse struct {
	Hotels      []hotelResultDTO `json:"hotels"`
	CountHotels int              `json:"count_hotels"`
	CountRooms  int              `json:"count_rooms"`
}

type bookingDTO struct {
	ID             string       `json:"id"`
	PropertyID     string       `json:"property_id"`
	RoomID         string       `json:"room_id"`
	GuestID        string       `json:"guest_id"`
	GuestName      *string      `json:"guest_name,omitempty"`
	CheckIn        string       `json:"check_in"`
	CheckOut       string       `json:"check_out"`
	TotalPrice     float64      `json:"total_price"`
	Currency       app.Currency `json:"currency"`
	Status         string       `json:"status"`
	Source         string       `json:"source"`
	ConversationID *string      `json:"conversation_id,omitempty"`
	AIHandled      bool         `json:"ai_handled"`
	CancelledAt    *time.Time   `json:"cancelled_at,omitempty"`
}

func newRoomDTO(r domain.Room, cur app.Currency) roomDTO {
	tiers := make([]guestTierDTO, 0, len(r.GuestTiers))
	for _, t := range r.GuestTiers {
		tiers = append(tiers, guestTierDTO{MinGuests: t.MinGuests, MaxGuests: t.MaxGuests, PricePerNight: t.PricePerNight})
	}
	overrides := make([]dateOverrideDTO, 0, len(r.DateOverrides))
	for _, o := range r.DateOverrides {
		overrides = append(overrides, dateOverrideDTO{Date: o.Date.Format(domain.DateLayout), Price: o.Price})
	}
	return roomDTO{
		ID:            r.ID,
		PropertyID:    r.PropertyID,
		Name:          r.Name,
		Type:          r.Type,
		Description:   r.Description,
		Images:        r.Images,
		PricePerNight: r.PricePerNight,
		Currency:      cur,
		MaxGuests:     r.MaxGuests,
		BedConfig:     r.BedConfig,
		Amenities:     r.Amenities,
		Status:        string(r.Status),
		GuestTiers:    tiers,
		DateOverrides: overrides,
	}
}

func newBookingDTO(bv domain.BookingView) bookingDTO {
	return bookingDTO{
		ID:             bv.ID,
		PropertyID:     bv.PropertyID,
		RoomID:         bv.RoomID,
		GuestID:        bv.GuestID,
		GuestName:      bv.GuestName,
		CheckIn:        bv.CheckIn.Format(domain.DateLayout),
		CheckOut:       bv.CheckOut.Format(domain.DateLayout),
		TotalPrice:     bv.TotalPrice,
		Currency:       app.Currency{Code: bv.CurrencyCode, Symbol: bv.CurrencySymbol},
		Status:         string(bv.Status),
		Source:         bv.Source,
		ConversationID: bv.ConversationID,
		AIHandled:      bv.AIHandled,
		CancelledAt:    bv.CancelledAt,
	}
}

// ---- param parsing ----

func parseID(w http.ResponseWriter, raw string) (string, bool) {
	if _, err := uuid.Parse(raw); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid ID", "identifier must be a valid UUID")
		return "", false
	}
	return raw, true
}

func parseDateParam(raw string) (time.Time, error) {
	return time.Parse(domain.DateLayout, raw)
}

func optStr(r *http.Request, key string) *string {
	if v := r.URL.Query().Get(key); v != "" {
		return &v
	}
	return nil
}

func optFloat(r *http.Request, key string) (*float64, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return nil, err
	}
	return &f, nil
}

func optInt(r *http.Request, key string) (*int, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return nil, err
	}
	return &n, nil
}

// ---- handlers ----

func (h *Handlers) search(w http.ResponseWriter, r *http.Request) {
	f := app.SearchFilters{
		Query:        optStr(r, "query"),
		PropertyName: optStr(r, "property_name"),
		RoomName:     optStr(r, "room_name"),
		City:         optStr(r, "city"),
		Country:      optStr(r, "country"),
		PetFriendly:  r.URL.Query().Get("pet_friendly") == "true",
	}
	if pid := r.URL.Query().Get("property_id"); pid != "" {
		id, ok := parseID(w, pid)
		if !ok {
			observability.ObserveSearch("invalid")
			return
		}
		f.PropertyID = &id
	}
	var err error
	if f.Lat, err = optFloat(r, "lat"); err == nil {
		if f.Lng, err = optFloat(r, "lng"); err == nil {
			if f.RadiusKM, err = optFloat(r, "radius_km"); err == nil {
				if f.BudgetPerNightMax, err = optFloat(r, "budget_per_night_max"); err == nil {
					f.BudgetTotalMax, err = optFloat(r, "budget_total_max")
				}
			}
		}
	}
	if err != nil {
		observability.ObserveSearch("invalid")
		writeProblem(w, http.StatusBadRequest, "Bad Request", "numeric query parameter is malformed")
		return
	}
	if f.Guests, err = optInt(r, "guests"); err != nil {
		observability.ObserveSearch("invalid")
		writeProblem(w, http.StatusBadRequest, "Bad Request", "guests must be an integer")
		return
	}
	for key, dst := range map[string]**time.Time{"check_in": &f.CheckIn, "check_out": &f.CheckOut} {
		if raw := r.URL.Query().Get(key); raw != "" {
			d, err := parseDateParam(raw)
			if err != nil {
				observability.ObserveSearch("invalid")
				writeProblem(w, http.StatusBadRequest, "Bad Request", key+" must be YYYY-MM-DD")
				return
			}
			*dst = &d
		}
	}

	results, err := h.S.Search(r.Context(), f)
	if err != nil {
		if errors.Is(err, domain.ErrEmptySearch) || errors.Is(err, domain.ErrInvalidGeoFilter) || errors.Is(err, domain.ErrInvalidGuestCount) {
			observability.ObserveSearch("invalid")
		} else {
			observability.ObserveSearch("error")
		}
		writeDomainErr(w, err)
		return
	}
	observability.ObserveSearch("ok")

	resp := searchResponse{Hotels: make([]hotelResultDTO, 0, len(results))}
	for _, hr := range results {
		dto := hotelResultDTO{
			PropertyID:        hr.Property.ID,
			Name:              hr.Property.Name,
			City:              hr.Property.City,
			Country:           hr.Property.Country,
			DistanceKM:        hr.DistanceKM,
			PetFriendlyOption: hr.PetFriendlyOption,
		}
		for _, m := range hr.MatchingRooms {
			dto.MatchingRooms = append(dto.MatchingRooms, roomMatchDTO{
				roomDTO:        newRoomDTO(m.Room, m.Currency),
				NightlyPrice:   m.NightlyPrice,
				EstimatedTotal: m.EstimatedTotal,
			})
		}
		resp.CountRooms += len(dto.MatchingRooms)
		resp.Hotels = append(resp.Hotels, dto)
	}
	resp.CountHotels = len(resp.Hotels)
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handlers) checkAvailability(w http.ResponseWriter, r *http.Request) {
	roomID, ok := parseID(w, chi.URLParam(r, "roomID"))
	if !ok {
		return
	}
	checkIn, err1 := parseDateParam(r.URL.Query().Get("check_in"))
	checkOut, err2 := parseDateParam(r.URL.Query().Get("check_out"))
	if err1 != nil || err2 != nil {
		writeProblem(w, http.StatusBadRequest, "Bad Request", "check_in and check_out must be YYYY-MM-DD")
		return
	}
	available, err := h.B.CheckAvailability(r.Context(), roomID, checkIn, checkOut)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"available": available})
}

type createBookingRequest struct {
	RoomID         string   `json:"room_id"`
	GuestName      string   `json:"guest_name"`
	GuestEmail     *string  `json:"guest_email,omitempty"`
	GuestPhone     *string  `json:"guest_phone,omitempty"`
	CheckIn        string   `json:"check_in"`
	CheckOut       string   `json:"check_out"`
	Guests         int      `json:"guests"`
	TotalPrice     *float64 `json:"total_price,omitempty"`
	CurrencyCode   *string  `json:"currency_code,omitempty"`
	Status         string   `json:"status,omitempty"`
	Source         string   `json:"source,omitempty"`
	ConversationID *string  `json:"conversation_id,omitempty"`
	AIHandled      bool     `json:"ai_handled"`
}

func (h *Handlers) createBooking(w http.ResponseWriter, r *http.Request) {
	propertyID, ok := parseID(w, chi.URLParam(r, "propertyID"))
	if !ok {
		return
	}
	var req createBookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeProblem(w, http.StatusBadRequest, "Bad Request", "malformed JSON body")
		return
	}
	if _, err := uuid.Parse(req.RoomID); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid ID", "room_id must be a valid UUID")
		return
	}
	if req.GuestName == "" {
		writeProblem(w, http.StatusBadRequest, "Bad Request", "guest_name is required")
		return
	}
	checkIn, err1 := parseDateParam(req.CheckIn)
	checkOut, err2 := parseDateParam(req.CheckOut)
	if err1 != nil || err2 != nil {
		writeProblem(w, http.StatusBadRequest, "Bad Request", "check_in and check_out must be YYYY-MM-DD")
		return
	}
	if req.Guests == 0 {
		req.Guests = 2
	}
	status := domain.BookingStatus(req.Status)
	if req.Status != "" && !status.Valid() {
		writeProblem(w, http.StatusBadRequest, "Bad Request", "unknown booking status")
		return
	}
	source := req.Source
	if source == "" {
		source = "manual"
	}

	bv, err := h.B.Create(r.Context(), app.CreateBookingInput{
		PropertyID:       propertyID,
		RoomID:           req.RoomID,
		GuestName:        req.GuestName,
		GuestEmail:       req.GuestEmail,
		GuestPhone:       req.GuestPhone,
		CheckIn:          checkIn,
		CheckOut:         checkOut,
		Guests:           req.Guests,
		ExplicitPrice:    req.TotalPrice,
		ExplicitCurrency: req.CurrencyCode,
		Status:           status,
		Source:           source,
		ConversationID:   req.ConversationID,
		AIHandled:        req.AIHandled,
	})
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, newBookingDTO(bv))
}

func (h *Handlers) listBookings(w http.ResponseWriter, r *http.Request) {
	propertyID, ok := parseID(w, chi.URLParam(r, "propertyID"))
	if !ok {
		return
	}
	q := domain.BookingsQuery{PropertyID: propertyID}
	if raw := r.URL.Query().Get("status"); raw != "" {
		st := domain.BookingStatus(raw)
		if !st.Valid() {
			writeProblem(w, http.StatusBadRequest, "Bad Request", "unknown booking status")
			return
		}
		q.Status = &st
	}
	items, err := h.Q.ListBookings(r.Context(), q)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	out := make([]bookingDTO, 0, len(items))
	for _, bv := range items {
		out = append(out, newBookingDTO(bv))
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": out})
}

func (h *Handlers) getBooking(w http.ResponseWriter, r *http.Request) {
	propertyID, ok := parseID(w, chi.URLParam(r, "propertyID"))
	if !ok {
		return
	}
	bookingID, ok := parseID(w, chi.URLParam(r, "bookingID"))
	if !ok {
		return
	}
	bv, err := h.Q.GetBooking(r.Context(), bookingID)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	if bv.PropertyID != propertyID {
		writeProblem(w, http.StatusNotFound, "Not Found", "booking not found")
		return
	}
	writeJSON(w, http.StatusOK, newBookingDTO(bv))
}

type updateBookingRequest struct {
	CheckIn    *string  `json:"check_in,omitempty"`
	CheckOut   *string  `json:"check_out,omitempty"`
	Status     *string  `json:"status,omitempty"`
	TotalPrice *float64 `json:"total_price,omitempty"`
}

func (h *Handlers) updateBooking(w http.ResponseWriter, r *http.Request) {
	propertyID, ok := parseID(w, chi.URLParam(r, "propertyID"))
	if !ok {
		return
	}
	bookingID, ok := parseID(w, chi.URLParam(r, "bookingID"))
	if !ok {
		return
	}
	existing, err := h.Q.GetBooking(r.Context(), bookingID)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	if existing.PropertyID != propertyID {
		writeProblem(w, http.StatusNotFound, "Not Found", "booking not found")
		return
	}

	var req updateBookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeProblem(w, http.StatusBadRequest, "Bad Request", "malformed JSON body")
		return
	}
	var patch domain.BookingPatch
	if req.CheckIn != nil {
		d, err := parseDateParam(*req.CheckIn)
		if err != nil {
			writeProblem(w, http.StatusBadRequest, "Bad Request", "check_in must be YYYY-MM-DD")
			return
		}
		patch.CheckIn = &d
	}
	if req.CheckOut != nil {
		d, err := parseDateParam(*req.CheckOut)
		if err != nil {
			writeProblem(w, http.StatusBadRequest, "Bad Request", "check_out must be YYYY-MM-DD")
			return
		}
		patch.CheckOut = &d
	}
	if req.Status != nil {
		st := domain.BookingStatus(*req.Status)
		if !st.Valid() {
			writeProblem(w, http.StatusBadRequest, "Bad Request", "unknown booking status")
			return
		}
		patch.Status = &st
	}
	patch.TotalPrice = req.TotalPrice

	var bv domain.BookingView
	if patch.Status != nil && *patch.Status == domain.BookingCancelled &&
		patch.CheckIn == nil && patch.CheckOut == nil && patch.TotalPrice == nil {
		bv, err = h.B.Cancel(r.Context(), bookingID)
	} else {
		bv, err = h.B.Update(r.Context(), bookingID, patch)
	}
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newBookingDTO(bv))
}

type setPricingRequest struct {
	DateOverrides []dateOverrideDTO `json:"date_overrides"`
	GuestTiers    []guestTierDTO    `json:"guest_tiers"`
}

func (h *Handlers) setPricing(w http.ResponseWriter, r *http.Request) {
	propertyID, ok := parseID(w, chi.URLParam(r, "propertyID"))
	if !ok {
		return
	}
	roomID, ok := parseID(w, chi.URLParam(r, "roomID"))
	if !ok {
		return
	}
	var req setPricingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeProblem(w, http.StatusBadRequest, "Bad Request", "malformed JSON body")
		return
	}
	overrides := make([]domain.DateOverride, 0, len(req.DateOverrides))
	for _, o := range req.DateOverrides {
		d, err := parseDateParam(o.Date)
		if err != nil {
			writeProblem(w, http.StatusBadRequest, "Bad Request", "override date must be YYYY-MM-DD")
			return
		}
		overrides = append(overrides, domain.DateOverride{Date: d, Price: o.Price})
	}
	tiers := make([]domain.GuestTier, 0, len(req.GuestTiers))
	for _, t := range req.GuestTiers {
		if t.MinGuests < 1 || t.MaxGuests < t.MinGuests {
			writeProblem(w, http.StatusUnprocessableEntity, "Validation Failed", "guest tier range is malformed")
			return
		}
		tiers = append(tiers, domain.GuestTier{MinGuests: t.MinGuests, MaxGuests: t.MaxGuests, PricePerNight: t.PricePerNight})
	}

	room, err := h.Q.GetRoom(r.Context(), roomID)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	if room.PropertyID != propertyID {
		writeProblem(w, http.StatusNotFound, "Not Found", "room not found")
		return
	}
	room, err = h.B.SetPricing(r.Context(), roomID, overrides, tiers)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	cur, err := h.C.Resolve(nil, &room.CurrencyCode)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newRoomDTO(room, cur))
}
