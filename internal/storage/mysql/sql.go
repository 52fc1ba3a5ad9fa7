package mysql

// -----------------------------------------------------------------------------
// PROPERTY / ROOM READS
// -----------------------------------------------------------------------------

const propertyColumns = `
  id, account_id, name, description, street, city, state, postal_code, country, lat, lng`

const getPropertySQL = `SELECT` + propertyColumns + `
FROM properties
WHERE id = ?`

const listPropertiesSQL = `SELECT` + propertyColumns + `
FROM properties
ORDER BY id`

const roomColumns = `
  id, property_id, name, type, description, images, price_per_night,
  currency_code, max_guests, bed_config, amenities, source, source_url,
  sync_enabled, status`

const getRoomSQL = `SELECT` + roomColumns + `
FROM rooms
WHERE id = ?`

const listRoomsSQL = `SELECT` + roomColumns + `
FROM rooms
WHERE property_id = ?
ORDER BY id`

const listActiveRoomsSQL = `SELECT` + roomColumns + `
FROM rooms
WHERE status = 'active'
ORDER BY property_id, id`

const listGuestTiersSQL = `
SELECT room_id, min_guests, max_guests, price_per_night
FROM room_guest_tiers
WHERE room_id IN (%s)
ORDER BY room_id, min_guests`

const listDateOverridesSQL = `
SELECT room_id, date, price
FROM room_date_pricing
WHERE room_id IN (%s)
ORDER BY room_id, date`

// -----------------------------------------------------------------------------
// PRICING REPLACE (runs inside one transaction)
// -----------------------------------------------------------------------------

const deleteGuestTiersSQL = `DELETE FROM room_guest_tiers WHERE room_id = ?`
const deleteDateOverridesSQL = `DELETE FROM room_date_pricing WHERE room_id = ?`

const insertGuestTiersPrefix = `INSERT INTO room_guest_tiers
  (room_id, min_guests, max_guests, price_per_night)
VALUES `

// room_date_pricing carries UNIQUE (room_id, date); a duplicate date in one
// replace payload is a caller bug surfaced as a constraint error.
const insertDateOverridesPrefix = `INSERT INTO room_date_pricing
  (room_id, date, price)
VALUES `

// -----------------------------------------------------------------------------
// SEED WRITES (cmd/seed only; the API surface never creates these)
// -----------------------------------------------------------------------------

const insertPropertySQL = `
INSERT INTO properties
  (id, account_id, name, description, street, city, state, postal_code, country, lat, lng)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

const insertRoomSQL = `
INSERT INTO rooms
  (id, property_id, name, type, description, images, price_per_night,
   currency_code, max_guests, bed_config, amenities, source, source_url,
   sync_enabled, status)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

// -----------------------------------------------------------------------------
// GUESTS
// -----------------------------------------------------------------------------

const findGuestSQL = `
SELECT id, property_id, name, email, phone
FROM guests
WHERE property_id = ? AND name = ?`

const insertGuestSQL = `
INSERT INTO guests (id, property_id, name, email, phone)
VALUES (?, ?, ?, ?, ?)`

// -----------------------------------------------------------------------------
// BOOKINGS
// -----------------------------------------------------------------------------

const bookingColumns = `
  b.id, b.property_id, b.room_id, b.guest_id, b.check_in, b.check_out,
  b.total_price, b.currency_code, b.status, b.source, b.conversation_id,
  b.ai_handled, b.cancelled_at, b.created_at`

const getBookingSQL = `SELECT` + bookingColumns + `, g.name, c.display
FROM bookings b
LEFT JOIN guests g ON g.id = b.guest_id
LEFT JOIN currencies c ON c.code = b.currency_code
WHERE b.id = ?`

const listRoomBookingsSQL = `SELECT` + bookingColumns + `
FROM bookings b
WHERE b.room_id = ?
ORDER BY b.check_in, b.id`

const listBookingsSQL = `SELECT` + bookingColumns + `, g.name, c.display
FROM bookings b
LEFT JOIN guests g ON g.id = b.guest_id
LEFT JOIN currencies c ON c.code = b.currency_code
WHERE b.property_id = ?`

const listBookingsOrder = ` ORDER BY b.check_in, b.id`

const insertBookingSQL = `
INSERT INTO bookings
  (id, property_id, room_id, guest_id, check_in, check_out, total_price,
   currency_code, status, source, conversation_id, ai_handled, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

// -----------------------------------------------------------------------------
// CURRENCIES
// -----------------------------------------------------------------------------

const listCurrenciesSQL = `SELECT code, display FROM currencies`
