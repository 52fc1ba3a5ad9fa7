// Package mcp exposes the search/availability/booking core to AI agents as
// a stateless JSON-RPC 2.0 tool-calling endpoint (initialize, tools/list,
// tools/call). Responses are plain JSON; no session state is kept between
// calls.
package mcp

import (
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"monobook/internal/adapters/observability"
	"monobook/internal/app"
	"monobook/internal/domain"
)

const (
	protocolVersion = "2025-03-26"
	serverName      = "monobook-mcp"

	// agentSource stamps bookings created through this surface regardless of
	// caller-supplied provenance.
	agentSource = "chatgpt"
)

type Server struct {
	search   *app.SearchService
	bookings *app.BookingService
	queries  *app.QueryService

	limMu    sync.Mutex
	limiters map[string]*rate.Limiter
	rps      int
}

func New(search *app.SearchService, bookings *app.BookingService, queries *app.QueryService, rps int) *Server {
	if rps <= 0 {
		rps = 10
	}
	return &Server{
		search:   search,
		bookings: bookings,
		queries:  queries,
		limiters: make(map[string]*rate.Limiter),
		rps:      rps,
	}
}

// ---- JSON-RPC framing ----

type rpcRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  any             `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
}

type toolContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// toolResult mirrors the MCP tools/call result shape. Tool failures travel
// as isError results, not protocol errors, so agents can read the message.
type toolResult struct {
	Content           []toolContent `json:"content"`
	StructuredContent any           `json:"structuredContent,omitempty"`
	IsError           bool          `json:"isError,omitempty"`
}

func textResult(text string, structured any) toolResult {
	return toolResult{Content: []toolContent{{Type: "text", Text: text}}, StructuredContent: structured}
}

func errorResult(msg string) toolResult {
	return toolResult{
		Content:           []toolContent{{Type: "text", Text: msg}},
		StructuredContent: map[string]string{"error": msg},
		IsError:           true,
	}
}

func (s *Server) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if !s.allow(r) {
			writeRPC(w, rpcResponse{JSONRPC: "2.0", Error: &rpcError{Code: -32000, Message: "rate limit exceeded"}})
			return
		}
		var req rpcRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeRPC(w, rpcResponse{JSONRPC: "2.0", Error: &rpcError{Code: -32700, Message: "parse error"}})
			return
		}
		resp := rpcResponse{JSONRPC: "2.0", ID: req.ID}
		switch req.Method {
		case "initialize":
			resp.Result = map[string]any{
				"protocolVersion": protocolVersion,
				"serverInfo":      map[string]string{"name": serverName, "version": "1.0.0"},
				"capabilities":    map[string]any{"tools": map[string]any{}},
			}
		case "tools/list":
			resp.Result = map[string]any{"tools": toolDescriptors()}
		case "tools/call":
			resp.Result = s.callTool(r, req)
		default:
			resp.Error = &rpcError{Code: -32601, Message: "method not found"}
		}
		writeRPC(w, resp)
	})
}

func writeRPC(w http.ResponseWriter, resp rpcResponse) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		log.Error().Err(err).Msg("write JSON-RPC response failed")
	}
}

// allow applies a per-client token bucket keyed by remote IP.
func (s *Server) allow(r *http.Request) bool {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	s.limMu.Lock()
	lim, ok := s.limiters[host]
	if !ok {
		lim = rate.NewLimiter(rate.Limit(s.rps), s.rps)
		s.limiters[host] = lim
	}
	s.limMu.Unlock()
	return lim.Allow()
}

// ---- tools ----

func toolDescriptors() []map[string]any {
	str := map[string]any{"type": "string"}
	num := map[string]any{"type": "number"}
	integer := map[string]any{"type": "integer"}
	boolean := map[string]any{"type": "boolean"}
	return []map[string]any{
		{
			"name":        "search_hotels",
			"description": "Search hotels and rooms by text, location, dates, guests and budget. All filters are combined with AND.",
			"inputSchema": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"property_id": str, "query": str, "property_name": str, "room_name": str,
					"city": str, "country": str,
					"lat": num, "lng": num, "radius_km": num,
					"guests":   integer,
					"check_in": str, "check_out": str,
					"pet_friendly":         boolean,
					"budget_per_night_max": num, "budget_total_max": num,
				},
			},
		},
		{
			"name":        "check_availability",
			"description": "Check whether a room is available for specific check-in and check-out dates.",
			"inputSchema": map[string]any{
				"type":       "object",
				"properties": map[string]any{"property_id": str, "room_id": str, "check_in": str, "check_out": str},
				"required":   []string{"property_id", "room_id", "check_in", "check_out"},
			},
		},
		{
			"name":        "create_booking",
			"description": "Create a confirmed booking for a room and guest details.",
			"inputSchema": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"property_id": str, "room_id": str, "guest_name": str, "guest_email": str,
					"check_in": str, "check_out": str, "guests": integer,
				},
				"required": []string{"property_id", "room_id", "guest_name", "check_in", "check_out"},
			},
		},
	}
}

type callParams struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

func (s *Server) callTool(r *http.Request, req rpcRequest) toolResult {
	var p callParams
	if err := json.Unmarshal(req.Params, &p); err != nil {
		return errorResult("invalid tool call parameters")
	}

	var (
		res toolResult
		err error
	)
	switch p.Name {
	case "search_hotels":
		res, err = s.searchHotels(r, p.Arguments)
	case "check_availability":
		res, err = s.checkAvailability(r, p.Arguments)
	case "create_booking":
		res, err = s.createBooking(r, req, p.Arguments)
	default:
		return errorResult(fmt.Sprintf("unknown tool: %s", p.Name))
	}
	if err != nil {
		res = errorResult(err.Error())
	}
	status := "success"
	if res.IsError {
		status = "error"
	}
	observability.ObserveToolCall(p.Name, status)
	log.Info().
		Str("tool", p.Name).
		Str("status", status).
		Str("source", agentSource).
		Msg("tool call")
	return res
}

type searchArgs struct {
	PropertyID        *string  `json:"property_id"`
	Query             *string  `json:"query"`
	PropertyName      *string  `json:"property_name"`
	RoomName          *string  `json:"room_name"`
	City              *string  `json:"city"`
	Country           *string  `json:"country"`
	Lat               *float64 `json:"lat"`
	Lng               *float64 `json:"lng"`
	RadiusKM          *float64 `json:"radius_km"`
	Guests            *int     `json:"guests"`
	CheckIn           *string  `json:"check_in"`
	CheckOut          *string  `json:"check_out"`
	PetFriendly       bool     `json:"pet_friendly"`
	BudgetPerNightMax *float64 `json:"budget_per_night_max"`
	BudgetTotalMax    *float64 `json:"budget_total_max"`
}

func (s *Server) searchHotels(r *http.Request, raw json.RawMessage) (toolResult, error) {
	var a searchArgs
	if err := json.Unmarshal(raw, &a); err != nil {
		return toolResult{}, fmt.Errorf("invalid search_hotels arguments")
	}
	if a.PropertyID != nil {
		if err := validateID(*a.PropertyID); err != nil {
			return toolResult{}, err
		}
	}
	f := app.SearchFilters{
		PropertyID:        a.PropertyID,
		Query:             a.Query,
		PropertyName:      a.PropertyName,
		RoomName:          a.RoomName,
		City:              a.City,
		Country:           a.Country,
		Lat:               a.Lat,
		Lng:               a.Lng,
		RadiusKM:          a.RadiusKM,
		Guests:            a.Guests,
		PetFriendly:       a.PetFriendly,
		BudgetPerNightMax: a.BudgetPerNightMax,
		BudgetTotalMax:    a.BudgetTotalMax,
	}
	var err error
	if f.CheckIn, err = optDate(a.CheckIn); err != nil {
		return toolResult{}, err
	}
	if f.CheckOut, err = optDate(a.CheckOut); err != nil {
		return toolResult{}, err
	}

	results, err := s.search.Search(r.Context(), f)
	if err != nil {
		return toolResult{}, err
	}

	hotels := make([]map[string]any, 0, len(results))
	rooms := 0
	for _, hr := range results {
		matching := make([]map[string]any, 0, len(hr.MatchingRooms))
		for _, m := range hr.MatchingRooms {
			room := map[string]any{
				"id":              m.Room.ID,
				"name":            m.Room.Name,
				"type":            m.Room.Type,
				"description":     deref(m.Room.Description),
				"price_per_night": m.NightlyPrice,
				"max_guests":      m.Room.MaxGuests,
				"amenities":       m.Room.Amenities,
				"images":          m.Room.Images,
				"currency":        m.Currency,
			}
			if m.EstimatedTotal != nil {
				room["estimated_total_price"] = *m.EstimatedTotal
			}
			matching = append(matching, room)
		}
		rooms += len(matching)
		hotel := map[string]any{
			"property_id":         hr.Property.ID,
			"name":                hr.Property.Name,
			"city":                deref(hr.Property.City),
			"country":             deref(hr.Property.Country),
			"pet_friendly_option": hr.PetFriendlyOption,
			"matching_rooms":      matching,
		}
		if hr.DistanceKM != nil {
			hotel["distance_km"] = *hr.DistanceKM
		}
		hotels = append(hotels, hotel)
	}
	structured := map[string]any{
		"hotels":       hotels,
		"count_hotels": len(hotels),
		"count_rooms":  rooms,
	}
	return textResult(fmt.Sprintf("Found %d hotel(s) with %d matching room(s).", len(hotels), rooms), structured), nil
}

type availabilityArgs struct {
	PropertyID string `json:"property_id"`
	RoomID     string `json:"room_id"`
	CheckIn    string `json:"check_in"`
	CheckOut   string `json:"check_out"`
}

func (s *Server) checkAvailability(r *http.Request, raw json.RawMessage) (toolResult, error) {
	var a availabilityArgs
	if err := json.Unmarshal(raw, &a); err != nil {
		return toolResult{}, fmt.Errorf("invalid check_availability arguments")
	}
	if err := validateID(a.PropertyID); err != nil {
		return toolResult{}, err
	}
	if err := validateID(a.RoomID); err != nil {
		return toolResult{}, err
	}
	checkIn, err := parseDate(a.CheckIn)
	if err != nil {
		return toolResult{}, err
	}
	checkOut, err := parseDate(a.CheckOut)
	if err != nil {
		return toolResult{}, err
	}

	room, err := s.queries.GetRoom(r.Context(), a.RoomID)
	if err != nil {
		return toolResult{}, err
	}
	if room.PropertyID != a.PropertyID {
		return toolResult{}, domain.ErrNotFound
	}
	available, err := s.bookings.CheckAvailability(r.Context(), a.RoomID, checkIn, checkOut)
	if err != nil {
		return toolResult{}, err
	}

	structured := map[string]any{
		"available": available,
		"room_id":   a.RoomID,
		"check_in":  a.CheckIn,
		"check_out": a.CheckOut,
		"room": map[string]any{
			"id":              room.ID,
			"property_id":     room.PropertyID,
			"name":            room.Name,
			"type":            room.Type,
			"description":     deref(room.Description),
			"price_per_night": room.PricePerNight,
			"max_guests":      room.MaxGuests,
			"amenities":       room.Amenities,
			"images":          room.Images,
		},
	}
	state := "available"
	if !available {
		state = "unavailable"
	}
	return textResult(fmt.Sprintf("Room %s is %s for %s to %s.", room.Name, state, a.CheckIn, a.CheckOut), structured), nil
}

type bookingArgs struct {
	PropertyID string  `json:"property_id"`
	RoomID     string  `json:"room_id"`
	GuestName  string  `json:"guest_name"`
	GuestEmail *string `json:"guest_email"`
	CheckIn    string  `json:"check_in"`
	CheckOut   string  `json:"check_out"`
	Guests     int     `json:"guests"`
}

func (s *Server) createBooking(r *http.Request, req rpcRequest, raw json.RawMessage) (toolResult, error) {
	var a bookingArgs
	if err := json.Unmarshal(raw, &a); err != nil {
		return toolResult{}, fmt.Errorf("invalid create_booking arguments")
	}
	if err := validateID(a.PropertyID); err != nil {
		return toolResult{}, err
	}
	if err := validateID(a.RoomID); err != nil {
		return toolResult{}, err
	}
	checkIn, err := parseDate(a.CheckIn)
	if err != nil {
		return toolResult{}, err
	}
	checkOut, err := parseDate(a.CheckOut)
	if err != nil {
		return toolResult{}, err
	}
	if a.Guests == 0 {
		a.Guests = 2
	}
	var conversationID *string
	if len(req.ID) > 0 {
		cid := string(req.ID)
		conversationID = &cid
	}

	// The agent surface always materializes a confirmed booking with agent
	// provenance, whatever the caller asked for.
	bv, err := s.bookings.Create(r.Context(), app.CreateBookingInput{
		PropertyID:     a.PropertyID,
		RoomID:         a.RoomID,
		GuestName:      a.GuestName,
		GuestEmail:     a.GuestEmail,
		CheckIn:        checkIn,
		CheckOut:       checkOut,
		Guests:         a.Guests,
		Status:         domain.BookingConfirmed,
		Source:         agentSource,
		ConversationID: conversationID,
		AIHandled:      true,
	})
	if err != nil {
		return toolResult{}, err
	}

	structured := map[string]any{
		"booking_id":  bv.ID,
		"status":      string(bv.Status),
		"guest_name":  a.GuestName,
		"room_id":     bv.RoomID,
		"check_in":    a.CheckIn,
		"check_out":   a.CheckOut,
		"nights":      int(checkOut.Sub(checkIn).Hours() / 24),
		"total_price": bv.TotalPrice,
		"currency":    app.Currency{Code: bv.CurrencyCode, Symbol: bv.CurrencySymbol},
	}
	confirmation := bv.ID
	if len(confirmation) > 8 {
		confirmation = confirmation[:8]
	}
	return textResult(fmt.Sprintf("Booking created successfully! Confirmation ID: %s", confirmation), structured), nil
}

// ---- helpers ----

func validateID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return domain.ErrInvalidIdentifier
	}
	return nil
}

func parseDate(raw string) (time.Time, error) {
	d, err := time.Parse(domain.DateLayout, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("dates must be YYYY-MM-DD: %w", domain.ErrInvalidDateRange)
	}
	return d, nil
}

func optDate(raw *string) (*time.Time, error) {
	if raw == nil || *raw == "" {
		return nil, nil
	}
	d, err := parseDate(*raw)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
