package mysql

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"monobook/internal/domain"
)

type Repo struct{ db *sql.DB }

func New(db *sql.DB) *Repo { return &Repo{db: db} }

func nullStr(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}

func nullF64(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

func nullTime(v sql.NullTime) *time.Time {
	if !v.Valid {
		return nil
	}
	t := v.Time
	return &t
}

func valStr(p *string) any {
	if p == nil {
		return nil
	}
	return *p
}

func valF64(p *float64) any {
	if p == nil {
		return nil
	}
	return *p
}

// ---- properties ----

func (r *Repo) GetProperty(ctx context.Context, id string) (domain.Property, error) {
	row := r.db.QueryRowContext(ctx, getPropertySQL, id)
	p, err := scanProperty(row)
	if err == sql.ErrNoRows {
		return domain.Property{}, domain.ErrNotFound
	}
	return p, err
}

func (r *Repo) ListProperties(ctx context.Context) ([]domain.Property, error) {
	rows, err := r.db.QueryContext(ctx, listPropertiesSQL)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Property
	for rows.Next() {
		p, err := scanProperty(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

type scanner interface{ Scan(dest ...any) error }

func scanProperty(s scanner) (domain.Property, error) {
	var p domain.Property
	var desc, street, city, state, postal, country sql.NullString
	var lat, lng sql.NullFloat64
	if err := s.Scan(&p.ID, &p.AccountID, &p.Name, &desc, &street, &city, &state, &postal, &country, &lat, &lng); err != nil {
		return domain.Property{}, err
	}
	p.Description = nullStr(desc)
	p.Street = nullStr(street)
	p.City = nullStr(city)
	p.State = nullStr(state)
	p.PostalCode = nullStr(postal)
	p.Country = nullStr(country)
	p.Lat = nullF64(lat)
	p.Lng = nullF64(lng)
	return p, nil
}

// ---- rooms ----

func (r *Repo) GetRoom(ctx context.Context, id string) (domain.Room, error) {
	row := r.db.QueryRowContext(ctx, getRoomSQL, id)
	room, err := scanRoom(row)
	if err == sql.ErrNoRows {
		return domain.Room{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Room{}, err
	}
	if err := r.loadPricing(ctx, map[string]*domain.Room{room.ID: &room}); err != nil {
		return domain.Room{}, err
	}
	return room, nil
}

func (r *Repo) ListRooms(ctx context.Context, propertyID string) ([]domain.Room, error) {
	return r.listRooms(ctx, listRoomsSQL, propertyID)
}

func (r *Repo) ListActiveRooms(ctx context.Context) ([]domain.Room, error) {
	return r.listRooms(ctx, listActiveRoomsSQL)
}

func (r *Repo) listRooms(ctx context.Context, query string, args ...any) ([]domain.Room, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Room
	for rows.Next() {
		room, err := scanRoom(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, room)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	byID := make(map[string]*domain.Room, len(out))
	for i := range out {
		byID[out[i].ID] = &out[i]
	}
	if err := r.loadPricing(ctx, byID); err != nil {
		return nil, err
	}
	return out, nil
}

func scanRoom(s scanner) (domain.Room, error) {
	var room domain.Room
	var desc, bedConfig, source, sourceURL sql.NullString
	var imagesJSON, amenitiesJSON []byte
	var status string
	if err := s.Scan(
		&room.ID, &room.PropertyID, &room.Name, &room.Type, &desc,
		&imagesJSON, &room.PricePerNight, &room.CurrencyCode, &room.MaxGuests,
		&bedConfig, &amenitiesJSON, &source, &sourceURL, &room.SyncEnabled, &status,
	); err != nil {
		return domain.Room{}, err
	}
	room.Description = nullStr(desc)
	room.BedConfig = nullStr(bedConfig)
	room.Source = nullStr(source)
	room.SourceURL = nullStr(sourceURL)
	room.Status = domain.RoomStatus(status)
	_ = json.Unmarshal(imagesJSON, &room.Images)
	_ = json.Unmarshal(amenitiesJSON, &room.Amenities)
	return room, nil
}

// loadPricing attaches guest tiers and date overrides to the given rooms in
// two IN-list queries.
func (r *Repo) loadPricing(ctx context.Context, rooms map[string]*domain.Room) error {
	if len(rooms) == 0 {
		return nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(rooms)), ",")
	args := make([]any, 0, len(rooms))
	for id := range rooms {
		args = append(args, id)
	}

	tierRows, err := r.db.QueryContext(ctx, fmt.Sprintf(listGuestTiersSQL, placeholders), args...)
	if err != nil {
		return err
	}
	defer tierRows.Close()
	for tierRows.Next() {
		var roomID string
		var t domain.GuestTier
		if err := tierRows.Scan(&roomID, &t.MinGuests, &t.MaxGuests, &t.PricePerNight); err != nil {
			return err
		}
		if room, ok := rooms[roomID]; ok {
			room.GuestTiers = append(room.GuestTiers, t)
		}
	}
	if err := tierRows.Err(); err != nil {
		return err
	}

	ovrRows, err := r.db.QueryContext(ctx, fmt.Sprintf(listDateOverridesSQL, placeholders), args...)
	if err != nil {
		return err
	}
	defer ovrRows.Close()
	for ovrRows.Next() {
		var roomID string
		var o domain.DateOverride
		if err := ovrRows.Scan(&roomID, &o.Date, &o.Price); err != nil {
			return err
		}
		if room, ok := rooms[roomID]; ok {
			room.DateOverrides = append(room.DateOverrides, o)
		}
	}
	return ovrRows.Err()
}

// ReplacePricing swaps both pricing sub-collections in one transaction: the
// old rows are fully discarded, never merged.
func (r *Repo) ReplacePricing(ctx context.Context, roomID string, overrides []domain.DateOverride, tiers []domain.GuestTier) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, deleteGuestTiersSQL, roomID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, deleteDateOverridesSQL, roomID); err != nil {
		return err
	}
	if len(tiers) > 0 {
		values := make([]string, 0, len(tiers))
		args := make([]any, 0, len(tiers)*4)
		for _, t := range tiers {
			values = append(values, "(?,?,?,?)")
			args = append(args, roomID, t.MinGuests, t.MaxGuests, t.PricePerNight)
		}
		if _, err := tx.ExecContext(ctx, insertGuestTiersPrefix+strings.Join(values, ","), args...); err != nil {
			return err
		}
	}
	if len(overrides) > 0 {
		values := make([]string, 0, len(overrides))
		args := make([]any, 0, len(overrides)*3)
		for _, o := range overrides {
			values = append(values, "(?,?,?)")
			args = append(args, roomID, o.Date.Format(domain.DateLayout), o.Price)
		}
		if _, err := tx.ExecContext(ctx, insertDateOverridesPrefix+strings.Join(values, ","), args...); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// ---- seed writes ----

func (r *Repo) CreateProperty(ctx context.Context, p domain.Property) error {
	_, err := r.db.ExecContext(ctx, insertPropertySQL,
		p.ID, p.AccountID, p.Name, valStr(p.Description), valStr(p.Street),
		valStr(p.City), valStr(p.State), valStr(p.PostalCode), valStr(p.Country),
		valF64(p.Lat), valF64(p.Lng),
	)
	return err
}

func (r *Repo) CreateRoom(ctx context.Context, room domain.Room) error {
	images, _ := json.Marshal(room.Images)
	amenities, _ := json.Marshal(room.Amenities)
	_, err := r.db.ExecContext(ctx, insertRoomSQL,
		room.ID, room.PropertyID, room.Name, room.Type, valStr(room.Description),
		string(images), room.PricePerNight, room.CurrencyCode, room.MaxGuests,
		valStr(room.BedConfig), string(amenities), valStr(room.Source),
		valStr(room.SourceURL), room.SyncEnabled, string(room.Status),
	)
	return err
}

// ---- guests ----

func (r *Repo) FindGuest(ctx context.Context, propertyID, name string, email *string) (domain.Guest, error) {
	query := findGuestSQL
	args := []any{propertyID, name}
	if email != nil {
		query += " AND email = ?"
		args = append(args, *email)
	}
	query += " LIMIT 1"

	var g domain.Guest
	var em, ph sql.NullString
	err := r.db.QueryRowContext(ctx, query, args...).Scan(&g.ID, &g.PropertyID, &g.Name, &em, &ph)
	if err == sql.ErrNoRows {
		return domain.Guest{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Guest{}, err
	}
	g.Email = nullStr(em)
	g.Phone = nullStr(ph)
	return g, nil
}

func (r *Repo) CreateGuest(ctx context.Context, g domain.Guest) error {
	_, err := r.db.ExecContext(ctx, insertGuestSQL, g.ID, g.PropertyID, g.Name, valStr(g.Email), valStr(g.Phone))
	return err
}

// ---- bookings ----

func (r *Repo) GetBooking(ctx context.Context, id string) (domain.BookingView, error) {
	row := r.db.QueryRowContext(ctx, getBookingSQL, id)
	bv, err := scanBookingView(row)
	if err == sql.ErrNoRows {
		return domain.BookingView{}, domain.ErrNotFound
	}
	return bv, err
}

func (r *Repo) ListRoomBookings(ctx context.Context, roomID string) ([]domain.Booking, error) {
	rows, err := r.db.QueryContext(ctx, listRoomBookingsSQL, roomID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (r *Repo) ListBookings(ctx context.Context, q domain.BookingsQuery) ([]domain.BookingView, error) {
	query := listBookingsSQL
	args := []any{q.PropertyID}
	if q.Status != nil {
		query += " AND b.status = ?"
		args = append(args, string(*q.Status))
	}
	query += listBookingsOrder

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.BookingView
	for rows.Next() {
		bv, err := scanBookingView(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, bv)
	}
	return out, rows.Err()
}

func scanBookingFields(s scanner, b *domain.Booking, extra ...any) error {
	var conversationID sql.NullString
	var cancelledAt sql.NullTime
	var status, source string
	dest := []any{
		&b.ID, &b.PropertyID, &b.RoomID, &b.GuestID, &b.CheckIn, &b.CheckOut,
		&b.TotalPrice, &b.CurrencyCode, &status, &source, &conversationID,
		&b.AIHandled, &cancelledAt, &b.CreatedAt,
	}
	dest = append(dest, extra...)
	if err := s.Scan(dest...); err != nil {
		return err
	}
	b.Status = domain.BookingStatus(status)
	b.Source = source
	b.ConversationID = nullStr(conversationID)
	b.CancelledAt = nullTime(cancelledAt)
	return nil
}

func scanBooking(s scanner) (domain.Booking, error) {
	var b domain.Booking
	return b, scanBookingFields(s, &b)
}

func scanBookingView(s scanner) (domain.BookingView, error) {
	var bv domain.BookingView
	var guestName, display sql.NullString
	if err := scanBookingFields(s, &bv.Booking, &guestName, &display); err != nil {
		return domain.BookingView{}, err
	}
	bv.GuestName = nullStr(guestName)
	switch {
	case display.Valid && strings.TrimSpace(display.String) != "":
		bv.CurrencySymbol = display.String
	case bv.CurrencyCode == "USD":
		bv.CurrencySymbol = "$"
	default:
		bv.CurrencySymbol = bv.CurrencyCode
	}
	return bv, nil
}

func (r *Repo) CreateBooking(ctx context.Context, b domain.Booking) error {
	_, err := r.db.ExecContext(ctx, insertBookingSQL,
		b.ID, b.PropertyID, b.RoomID, b.GuestID,
		b.CheckIn.Format(domain.DateLayout), b.CheckOut.Format(domain.DateLayout),
		b.TotalPrice, b.CurrencyCode, string(b.Status), b.Source,
		valStr(b.ConversationID), b.AIHandled, b.CreatedAt,
	)
	return err
}

func (r *Repo) UpdateBooking(ctx context.Context, id string, p domain.BookingPatch, cancelledAt *time.Time) error {
	var sets []string
	var args []any
	if p.CheckIn != nil {
		sets = append(sets, "check_in = ?")
		args = append(args, p.CheckIn.Format(domain.DateLayout))
	}
	if p.CheckOut != nil {
		sets = append(sets, "check_out = ?")
		args = append(args, p.CheckOut.Format(domain.DateLayout))
	}
	if p.Status != nil {
		sets = append(sets, "status = ?")
		args = append(args, string(*p.Status))
	}
	if p.TotalPrice != nil {
		sets = append(sets, "total_price = ?")
		args = append(args, *p.TotalPrice)
	}
	if cancelledAt != nil {
		sets = append(sets, "cancelled_at = ?")
		args = append(args, *cancelledAt)
	}
	if len(sets) == 0 {
		return nil
	}
	args = append(args, id)
	res, err := r.db.ExecContext(ctx, "UPDATE bookings SET "+strings.Join(sets, ", ")+" WHERE id = ?", args...)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		// MySQL reports 0 for no-op updates too; confirm existence.
		var exists int
		if err := r.db.QueryRowContext(ctx, "SELECT 1 FROM bookings WHERE id = ?", id).Scan(&exists); err == sql.ErrNoRows {
			return domain.ErrNotFound
		}
	}
	return nil
}

// ---- currencies ----

func (r *Repo) CurrencyTable(ctx context.Context) (map[string]string, error) {
	rows, err := r.db.QueryContext(ctx, listCurrenciesSQL)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var code string
		var display sql.NullString
		if err := rows.Scan(&code, &display); err != nil {
			return nil, err
		}
		if display.Valid && strings.TrimSpace(display.String) != "" {
			out[code] = strings.TrimSpace(display.String)
		} else {
			out[code] = code
		}
	}
	return out, rows.Err()
}
