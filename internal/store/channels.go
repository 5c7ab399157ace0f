package store

import (
	"context"
	"database/sql"
	"time"

	"pricing-sync-service/internal/models"
)

// FindSyncableConnections retrieves active channel connections whose owning
// hotel is still ACTIVE. A suspended hotel's link may remain flagged active
// in the table; it is excluded here so no inventory is pushed for a
// property that is no longer bookable.
func (s *Store) FindSyncableConnections(ctx context.Context) ([]models.ChannelConnection, error) {
	var conns []models.ChannelConnection
	err := s.db.SelectContext(ctx, &conns, `
		SELECT cc.* FROM channel_connections cc
		JOIN hotels h ON h.id = cc.hotel_id
		WHERE cc.active = TRUE AND h.status = $1
		ORDER BY cc.id`, models.HotelStatusActive)
	return conns, err
}

// AdvanceWatermark moves a connection's last-synced timestamp forward.
// Called only after a successful booking pull.
func (s *Store) AdvanceWatermark(ctx context.Context, connectionID int64, syncedAt time.Time) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE channel_connections SET last_synced_at = $1 WHERE id = $2",
		syncedAt, connectionID)
	return err
}

// InsertExternalBooking inserts a channel-originated booking. The unique
// constraint on external_ref makes re-pulling the same external reservation
// a no-op; returns false when the booking already existed.
func (s *Store) InsertExternalBooking(ctx context.Context, booking *models.Booking) (bool, error) {
	err := s.db.GetContext(ctx, booking, `
		INSERT INTO bookings (hotel_id, room_id, check_in, check_out, status, origin, external_ref)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (external_ref) DO NOTHING
		RETURNING id, created_at`,
		booking.HotelID, booking.RoomID, booking.CheckIn, booking.CheckOut,
		booking.Status, booking.Origin, booking.ExternalRef)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// CountConfirmedRoomNights sums the stay nights of CONFIRMED bookings whose
// check-in falls in [from, to). Feeds the occupancy estimate.
func (s *Store) CountConfirmedRoomNights(ctx context.Context, hotelID int64, from, to time.Time) (int, error) {
	var nights sql.NullInt64
	err := s.db.GetContext(ctx, &nights, `
		SELECT SUM(check_out::date - check_in::date) FROM bookings
		WHERE hotel_id = $1 AND status = $2 AND check_in >= $3 AND check_in < $4`,
		hotelID, models.BookingStatusConfirmed, from, to)
	if err != nil {
		return 0, err
	}
	return int(nights.Int64), nil
}

// CountActiveRooms returns the number of active rooms for a hotel
func (s *Store) CountActiveRooms(ctx context.Context, hotelID int64) (int, error) {
	var count int
	err := s.db.GetContext(ctx, &count,
		"SELECT COUNT(*) FROM rooms WHERE hotel_id = $1 AND active = TRUE", hotelID)
	return count, err
}
