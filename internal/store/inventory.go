package store

import (
	"context"
	"time"

	"pricing-sync-service/internal/models"

	"github.com/shopspring/decimal"
)

// UpsertInventory writes the computed price for one (room, stay date) cell.
// Create if absent, overwrite price and timestamp if present. The guard on
// status keeps a concurrent booking confirmation from being downgraded:
// availability of a BOOKED row is owned by the booking workflow, not by the
// pricing batch.
func (s *Store) UpsertInventory(ctx context.Context, roomID int64, stayDate time.Time, price decimal.Decimal) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO inventory_records (room_id, stay_date, price, status, updated_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (room_id, stay_date) DO UPDATE
		SET price = EXCLUDED.price, updated_at = NOW()
		WHERE inventory_records.status <> $5`,
		roomID, stayDate, price, models.InventoryStatusAvailable, models.InventoryStatusBooked)
	return err
}

// GetInventoryForHotel retrieves all inventory records for a hotel's rooms
// within [from, to], ordered for a stable channel push payload.
func (s *Store) GetInventoryForHotel(ctx context.Context, hotelID int64, from, to time.Time) ([]models.InventoryRecord, error) {
	var records []models.InventoryRecord
	err := s.db.SelectContext(ctx, &records, `
		SELECT ir.* FROM inventory_records ir
		JOIN rooms r ON r.id = ir.room_id
		WHERE r.hotel_id = $1 AND ir.stay_date >= $2 AND ir.stay_date <= $3
		ORDER BY ir.room_id, ir.stay_date`,
		hotelID, from, to)
	return records, err
}

// MarkInventoryBooked flips the stay nights of a room to BOOKED. Check-out
// day is exclusive: the guest leaves that morning.
func (s *Store) MarkInventoryBooked(ctx context.Context, roomID int64, checkIn, checkOut time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE inventory_records SET status = $1, updated_at = NOW()
		WHERE room_id = $2 AND stay_date >= $3 AND stay_date < $4`,
		models.InventoryStatusBooked, roomID, checkIn, checkOut)
	return err
}

// UpdateHotelLowestPrice refreshes the hotel-level lowest-price-today cache
func (s *Store) UpdateHotelLowestPrice(ctx context.Context, hotelID int64, price decimal.Decimal, asOf time.Time) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE hotels SET lowest_price_today = $1, lowest_price_at = $2 WHERE id = $3",
		price, asOf, hotelID)
	return err
}
