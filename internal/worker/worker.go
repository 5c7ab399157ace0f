package worker

import (
	"context"
	"log"
	"time"

	"pricing-sync-service/internal/broker"
	"pricing-sync-service/internal/models"
)

type bookedMarker interface {
	MarkInventoryBooked(ctx context.Context, roomID int64, checkIn, checkOut time.Time) error
}

// InventoryWorker consumes BookingImported events and blocks the booked
// nights in the inventory store, giving channel bookings the same inventory
// effect a local confirmation has.
type InventoryWorker struct {
	consumer     *broker.Consumer
	eventHandler *broker.EventHandler
}

// NewInventoryWorker creates a new inventory worker
func NewInventoryWorker(consumer *broker.Consumer, store bookedMarker) *InventoryWorker {
	eventHandler := broker.NewEventHandler()

	eventHandler.OnBookingImported(func(ctx context.Context, event *models.BookingImportedEvent) error {
		log.Printf("Blocking inventory for imported booking: booking=%d room=%d", event.BookingID, event.RoomID)
		return store.MarkInventoryBooked(ctx, event.RoomID, event.CheckIn, event.CheckOut)
	})

	return &InventoryWorker{
		consumer:     consumer,
		eventHandler: eventHandler,
	}
}

// Start starts the worker
func (w *InventoryWorker) Start(ctx context.Context) error {
	log.Println("Starting inventory worker...")
	return w.consumer.StartConsuming(ctx, w.eventHandler.HandleMessage)
}

// Stop stops the worker
func (w *InventoryWorker) Stop() error {
	log.Println("Stopping inventory worker...")
	return w.consumer.Close()
}
