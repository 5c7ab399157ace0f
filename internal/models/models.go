package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Hotel represents a bookable property. The pricing batch only writes the
// lowest-price cache columns; status changes belong to the approval workflow.
type Hotel struct {
	ID               int64            `db:"id" json:"id"`
	Name             string           `db:"name" json:"name"`
	Status           string           `db:"status" json:"status"`
	LowestPriceToday *decimal.Decimal `db:"lowest_price_today" json:"lowest_price_today,omitempty"`
	LowestPriceAt    *time.Time       `db:"lowest_price_at" json:"lowest_price_at,omitempty"`
	CreatedAt        time.Time        `db:"created_at" json:"created_at"`
}

// Room is read-only to the batch engine; partner CRUD owns it.
type Room struct {
	ID        int64           `db:"id" json:"id"`
	HotelID   int64           `db:"hotel_id" json:"hotel_id"`
	Name      string          `db:"name" json:"name"`
	BasePrice decimal.Decimal `db:"base_price" json:"base_price"`
	Active    bool            `db:"active" json:"active"`
	CreatedAt time.Time       `db:"created_at" json:"created_at"`
}

// InventoryRecord is the per-room, per-night price and availability entry.
// Identity is (room_id, stay_date); the pricing batch upserts price and
// timestamp but never touches the availability of a BOOKED row.
type InventoryRecord struct {
	RoomID    int64           `db:"room_id" json:"room_id"`
	StayDate  time.Time       `db:"stay_date" json:"stay_date"`
	Price     decimal.Decimal `db:"price" json:"price"`
	Status    string          `db:"status" json:"status"`
	UpdatedAt time.Time       `db:"updated_at" json:"updated_at"`
}

// SeasonalRule is an admin-defined date range with a price multiplier.
// Ranges are inclusive on both ends and may overlap each other.
type SeasonalRule struct {
	ID         int64           `db:"id" json:"id"`
	Name       string          `db:"name" json:"name"`
	StartDate  time.Time       `db:"start_date" json:"start_date"`
	EndDate    time.Time       `db:"end_date" json:"end_date"`
	Multiplier decimal.Decimal `db:"multiplier" json:"multiplier"`
	Active     bool            `db:"active" json:"active"`
}

// Booking covers both locally made and channel-imported reservations.
// ExternalRef is unique when set, which is what makes channel imports
// idempotent.
type Booking struct {
	ID          int64     `db:"id" json:"id"`
	HotelID     int64     `db:"hotel_id" json:"hotel_id"`
	RoomID      int64     `db:"room_id" json:"room_id"`
	CheckIn     time.Time `db:"check_in" json:"check_in"`
	CheckOut    time.Time `db:"check_out" json:"check_out"`
	Status      string    `db:"status" json:"status"`
	Origin      string    `db:"origin" json:"origin"`
	ExternalRef string    `db:"external_ref" json:"external_ref,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// ChannelConnection links a hotel to an external distribution channel.
type ChannelConnection struct {
	ID           int64     `db:"id" json:"id"`
	HotelID      int64     `db:"hotel_id" json:"hotel_id"`
	ChannelType  string    `db:"channel_type" json:"channel_type"`
	Active       bool      `db:"active" json:"active"`
	LastSyncedAt time.Time `db:"last_synced_at" json:"last_synced_at"`
}

// Hotel statuses
const (
	HotelStatusActive    = "ACTIVE"
	HotelStatusPending   = "PENDING"
	HotelStatusSuspended = "SUSPENDED"
)

// Inventory availability statuses
const (
	InventoryStatusAvailable = "AVAILABLE"
	InventoryStatusBlocked   = "BLOCKED"
	InventoryStatusBooked    = "BOOKED"
)

// Booking statuses
const (
	BookingStatusPending    = "PENDING"
	BookingStatusConfirmed  = "CONFIRMED"
	BookingStatusCancelled  = "CANCELLED"
	BookingStatusCheckedOut = "CHECKED_OUT"
	BookingStatusCompleted  = "COMPLETED"
)

// Booking origins. LOCAL means made on the platform itself; anything else
// is a channel type.
const (
	BookingOriginLocal = "LOCAL"
)

// Channel types
const (
	ChannelTypeBookingCom = "BOOKING_COM"
	ChannelTypeAgoda      = "AGODA"
	ChannelTypeExpedia    = "EXPEDIA"
)

// HotelRunEntry is the per-hotel slot in a pricing run result. A failed
// hotel carries its error message here instead of aborting the batch.
type HotelRunEntry struct {
	HotelID       int64           `json:"hotel_id"`
	HotelName     string          `json:"hotel_name"`
	RoomsUpdated  int             `json:"rooms_updated"`
	DaysUpdated   int             `json:"days_updated"`
	LowestDayRate decimal.Decimal `json:"lowest_day_rate"`
	Error         string          `json:"error,omitempty"`
}

// PricingRunResult aggregates a full pricing batch run.
type PricingRunResult struct {
	HotelsProcessed int             `json:"hotels_processed"`
	HotelsFailed    int             `json:"hotels_failed"`
	RoomsUpdated    int             `json:"rooms_updated"`
	DaysUpdated     int             `json:"inventory_days_updated"`
	Truncated       bool            `json:"truncated"`
	Duration        time.Duration   `json:"duration"`
	PerHotel        []HotelRunEntry `json:"results"`
}

// ConnectionRunEntry is the per-connection slot in a sync run result.
// Both operation outcomes are recorded even when one of them fails.
type ConnectionRunEntry struct {
	ConnectionID    int64  `json:"connection_id"`
	HotelID         int64  `json:"hotel_id"`
	ChannelType     string `json:"channel_type"`
	SyncOK          bool   `json:"sync_ok"`
	SyncError       string `json:"sync_error,omitempty"`
	BookingsPulled  int    `json:"bookings_pulled"`
	PullOK          bool   `json:"pull_ok"`
	PullError       string `json:"pull_error,omitempty"`
}

// SyncRunResult aggregates a full channel sync batch run.
type SyncRunResult struct {
	TotalConnections int                  `json:"total_connections"`
	SuccessfulSyncs  int                  `json:"successful_syncs"`
	FailedSyncs      int                  `json:"failed_syncs"`
	BookingsPulled   int                  `json:"bookings_pulled"`
	Truncated        bool                 `json:"truncated"`
	Duration         time.Duration        `json:"duration"`
	PerConnection    []ConnectionRunEntry `json:"results"`
}
