package service

import (
	"context"
	"fmt"
	"time"

	"pricing-sync-service/internal/models"
	"pricing-sync-service/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type channelStore interface {
	GetInventoryForHotel(ctx context.Context, hotelID int64, from, to time.Time) ([]models.InventoryRecord, error)
	InsertExternalBooking(ctx context.Context, booking *models.Booking) (bool, error)
	AdvanceWatermark(ctx context.Context, connectionID int64, syncedAt time.Time) error
}

type bookingEventPublisher interface {
	PublishBookingImported(ctx context.Context, event *models.BookingImportedEvent) error
}

// ChannelManager performs the two per-connection operations: push the
// current inventory window to the external channel, and pull externally
// created bookings into local records. Every external call carries the
// configured timeout so a stuck channel cannot stall the batch.
type ChannelManager struct {
	store          channelStore
	adapters       *AdapterRegistry
	publisher      bookingEventPublisher
	requestTimeout time.Duration
	logger         *zap.Logger
	now            func() time.Time
}

// NewChannelManager creates a channel manager
func NewChannelManager(
	store channelStore,
	adapters *AdapterRegistry,
	publisher bookingEventPublisher,
	requestTimeout time.Duration,
) *ChannelManager {
	return &ChannelManager{
		store:          store,
		adapters:       adapters,
		publisher:      publisher,
		requestTimeout: requestTimeout,
		logger:         util.GetLogger(),
		now:            time.Now,
	}
}

// SyncInventory pushes the hotel's inventory records for [from, to] to the
// connection's channel. Best-effort idempotent: the channel applies the
// snapshot; re-pushing the same window is harmless.
func (cm *ChannelManager) SyncInventory(ctx context.Context, conn models.ChannelConnection, from, to time.Time) error {
	ctx, span := util.StartSpan(ctx, "ChannelManager.SyncInventory")
	defer span.End()

	adapter, err := cm.adapters.ForChannel(conn.ChannelType)
	if err != nil {
		return err
	}

	records, err := cm.store.GetInventoryForHotel(ctx, conn.HotelID, from, to)
	if err != nil {
		return fmt.Errorf("failed to load inventory: %w", err)
	}
	if len(records) == 0 {
		cm.logger.Info("No inventory to push",
			zap.Int64("connection_id", conn.ID),
			zap.Int64("hotel_id", conn.HotelID))
		return nil
	}

	callCtx, cancel := context.WithTimeout(ctx, cm.requestTimeout)
	defer cancel()

	if err := adapter.PushAvailability(callCtx, conn, records); err != nil {
		return fmt.Errorf("push to %s failed: %w", conn.ChannelType, err)
	}

	cm.logger.Info("Inventory synced to channel",
		zap.Int64("connection_id", conn.ID),
		zap.String("channel", conn.ChannelType),
		zap.Int("records", len(records)))
	return nil
}

// PullBookings imports reservations made on the channel since the
// watermark. The unique external reference makes re-pulls idempotent; the
// watermark advances only after the whole pull has succeeded, so a partial
// failure is retried from the same point next run.
func (cm *ChannelManager) PullBookings(ctx context.Context, conn models.ChannelConnection, since time.Time) (int, error) {
	ctx, span := util.StartSpan(ctx, "ChannelManager.PullBookings")
	defer span.End()

	adapter, err := cm.adapters.ForChannel(conn.ChannelType)
	if err != nil {
		return 0, err
	}

	pullStarted := cm.now()

	callCtx, cancel := context.WithTimeout(ctx, cm.requestTimeout)
	defer cancel()

	external, err := adapter.PullNewBookings(callCtx, conn, since)
	if err != nil {
		return 0, fmt.Errorf("pull from %s failed: %w", conn.ChannelType, err)
	}

	created := 0
	for _, ext := range external {
		booking := &models.Booking{
			HotelID:     conn.HotelID,
			RoomID:      ext.RoomID,
			CheckIn:     ext.CheckIn,
			CheckOut:    ext.CheckOut,
			Status:      models.BookingStatusConfirmed,
			Origin:      conn.ChannelType,
			ExternalRef: ext.Reference,
		}

		inserted, err := cm.store.InsertExternalBooking(ctx, booking)
		if err != nil {
			return created, fmt.Errorf("failed to insert booking %s: %w", ext.Reference, err)
		}
		if !inserted {
			cm.logger.Debug("Booking already imported",
				zap.String("external_ref", ext.Reference))
			continue
		}

		created++
		util.BookingsImportedTotal.WithLabelValues(conn.ChannelType).Inc()

		if cm.publisher != nil {
			event := &models.BookingImportedEvent{
				BaseEvent: models.BaseEvent{
					EventID:   uuid.New().String(),
					EventType: models.EventTypeBookingImported,
					Timestamp: cm.now(),
				},
				BookingID:   booking.ID,
				HotelID:     booking.HotelID,
				RoomID:      booking.RoomID,
				CheckIn:     booking.CheckIn,
				CheckOut:    booking.CheckOut,
				ChannelType: conn.ChannelType,
				ExternalRef: ext.Reference,
				TotalAmount: ext.Amount,
			}
			if err := cm.publisher.PublishBookingImported(ctx, event); err != nil {
				cm.logger.Error("Failed to publish BookingImported event",
					zap.String("external_ref", ext.Reference),
					zap.Error(err))
			}
		}
	}

	if err := cm.store.AdvanceWatermark(ctx, conn.ID, pullStarted); err != nil {
		return created, fmt.Errorf("failed to advance watermark: %w", err)
	}

	cm.logger.Info("Bookings pulled from channel",
		zap.Int64("connection_id", conn.ID),
		zap.String("channel", conn.ChannelType),
		zap.Int("fetched", len(external)),
		zap.Int("created", created))
	return created, nil
}
