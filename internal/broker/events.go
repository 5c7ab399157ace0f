package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"pricing-sync-service/internal/models"

	"github.com/segmentio/kafka-go"
)

// EventPublisher handles publishing batch and sync domain events
type EventPublisher struct {
	producer *Producer
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher(producer *Producer) *EventPublisher {
	return &EventPublisher{producer: producer}
}

// PublishPricingRunCompleted publishes the summary of a pricing batch run
func (ep *EventPublisher) PublishPricingRunCompleted(ctx context.Context, event *models.PricingRunCompletedEvent) error {
	return ep.producer.PublishEvent(ctx, "pricing-run", event)
}

// PublishSyncRunCompleted publishes the summary of a channel sync run
func (ep *EventPublisher) PublishSyncRunCompleted(ctx context.Context, event *models.SyncRunCompletedEvent) error {
	return ep.producer.PublishEvent(ctx, "sync-run", event)
}

// PublishBookingImported publishes a newly imported channel booking.
// Keyed by hotel so one property's imports stay ordered.
func (ep *EventPublisher) PublishBookingImported(ctx context.Context, event *models.BookingImportedEvent) error {
	key := fmt.Sprintf("hotel-%d", event.HotelID)
	return ep.producer.PublishEvent(ctx, key, event)
}

// EventHandler routes incoming events to registered handlers
type EventHandler struct {
	onBookingImported func(context.Context, *models.BookingImportedEvent) error
}

// NewEventHandler creates a new event handler
func NewEventHandler() *EventHandler {
	return &EventHandler{}
}

// OnBookingImported registers a handler for BookingImported events
func (eh *EventHandler) OnBookingImported(handler func(context.Context, *models.BookingImportedEvent) error) {
	eh.onBookingImported = handler
}

// HandleMessage routes messages to appropriate handlers
func (eh *EventHandler) HandleMessage(ctx context.Context, msg kafka.Message) error {
	var baseEvent models.BaseEvent
	if err := json.Unmarshal(msg.Value, &baseEvent); err != nil {
		return fmt.Errorf("failed to unmarshal base event: %w", err)
	}

	log.Printf("Handling event: type=%s, id=%s", baseEvent.EventType, baseEvent.EventID)

	switch baseEvent.EventType {
	case models.EventTypeBookingImported:
		if eh.onBookingImported != nil {
			var event models.BookingImportedEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal BookingImported event: %w", err)
			}
			return eh.onBookingImported(ctx, &event)
		}

	case models.EventTypePricingRunCompleted, models.EventTypeSyncRunCompleted:
		// Run summaries are consumed by dashboards, not by this service.

	default:
		log.Printf("Unhandled event type: %s", baseEvent.EventType)
	}

	return nil
}
