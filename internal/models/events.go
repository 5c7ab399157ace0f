package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Event types
const (
	EventTypePricingRunCompleted = "PRICING_RUN_COMPLETED"
	EventTypeSyncRunCompleted    = "SYNC_RUN_COMPLETED"
	EventTypeBookingImported     = "BOOKING_IMPORTED"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// PricingRunCompletedEvent published after every pricing batch run,
// successful or not; downstream dashboards consume the headline counts.
type PricingRunCompletedEvent struct {
	BaseEvent
	HotelsProcessed int   `json:"hotels_processed"`
	HotelsFailed    int   `json:"hotels_failed"`
	RoomsUpdated    int   `json:"rooms_updated"`
	DaysUpdated     int   `json:"inventory_days_updated"`
	Truncated       bool  `json:"truncated"`
	DurationMillis  int64 `json:"duration_ms"`
}

// SyncRunCompletedEvent published after every channel sync batch run.
type SyncRunCompletedEvent struct {
	BaseEvent
	TotalConnections int   `json:"total_connections"`
	SuccessfulSyncs  int   `json:"successful_syncs"`
	FailedSyncs      int   `json:"failed_syncs"`
	BookingsPulled   int   `json:"bookings_pulled"`
	DurationMillis   int64 `json:"duration_ms"`
}

// BookingImportedEvent published once per newly imported channel booking.
// The inventory worker consumes it to mark the stay nights BOOKED.
type BookingImportedEvent struct {
	BaseEvent
	BookingID   int64           `json:"booking_id"`
	HotelID     int64           `json:"hotel_id"`
	RoomID      int64           `json:"room_id"`
	CheckIn     time.Time       `json:"check_in"`
	CheckOut    time.Time       `json:"check_out"`
	ChannelType string          `json:"channel_type"`
	ExternalRef string          `json:"external_ref"`
	TotalAmount decimal.Decimal `json:"total_amount"`
}
