package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"pricing-sync-service/internal/util"
)

type occupancyStore interface {
	CountConfirmedRoomNights(ctx context.Context, hotelID int64, from, to time.Time) (int, error)
	CountActiveRooms(ctx context.Context, hotelID int64) (int, error)
}

// OccupancyEstimator derives a hotel's near-term demand signal: the
// fraction of room-nights over the lookback window already taken by
// CONFIRMED bookings checking in inside that window.
type OccupancyEstimator struct {
	store        occupancyStore
	lookbackDays int
	logger       *zap.Logger
}

// NewOccupancyEstimator creates a new occupancy estimator
func NewOccupancyEstimator(store occupancyStore, lookbackDays int) *OccupancyEstimator {
	return &OccupancyEstimator{
		store:        store,
		lookbackDays: lookbackDays,
		logger:       util.GetLogger(),
	}
}

// Estimate returns the booked-night ratio in [0,1] for the lookback window
// starting at asOf. A hotel with no active rooms has no demand signal and
// reports 0 rather than failing on the zero denominator.
func (e *OccupancyEstimator) Estimate(ctx context.Context, hotelID int64, asOf time.Time) (float64, error) {
	roomCount, err := e.store.CountActiveRooms(ctx, hotelID)
	if err != nil {
		return 0, fmt.Errorf("failed to count active rooms: %w", err)
	}
	if roomCount == 0 {
		return 0, nil
	}

	from := truncateToDay(asOf)
	to := from.AddDate(0, 0, e.lookbackDays)

	nights, err := e.store.CountConfirmedRoomNights(ctx, hotelID, from, to)
	if err != nil {
		return 0, fmt.Errorf("failed to count confirmed room nights: %w", err)
	}

	ratio := float64(nights) / float64(roomCount*e.lookbackDays)
	if ratio > 1 {
		ratio = 1
	}

	e.logger.Debug("Occupancy estimated",
		zap.Int64("hotel_id", hotelID),
		zap.Int("room_nights", nights),
		zap.Int("active_rooms", roomCount),
		zap.Float64("ratio", ratio))

	return ratio, nil
}
