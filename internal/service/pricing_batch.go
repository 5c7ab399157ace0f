package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"pricing-sync-service/internal/models"
	"pricing-sync-service/internal/util"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ErrRunInProgress is returned when a batch's non-overlap lease is already
// held by another run.
var ErrRunInProgress = errors.New("batch run already in progress")

const pricingLeaseName = "pricing-batch"

type pricingStore interface {
	FindActiveHotels(ctx context.Context) ([]models.Hotel, error)
	FindActiveRooms(ctx context.Context, hotelID int64) ([]models.Room, error)
	FindActiveSeasonalRules(ctx context.Context, from, to time.Time) ([]models.SeasonalRule, error)
	UpsertInventory(ctx context.Context, roomID int64, stayDate time.Time, price decimal.Decimal) error
	UpdateHotelLowestPrice(ctx context.Context, hotelID int64, price decimal.Decimal, asOf time.Time) error
}

type leaseCache interface {
	AcquireRunLease(ctx context.Context, batch string, ttl time.Duration) (bool, error)
	ReleaseRunLease(ctx context.Context, batch string) error
	SetLowestPrice(ctx context.Context, hotelID int64, price decimal.Decimal, ttl time.Duration) error
}

type occupancyEstimator interface {
	Estimate(ctx context.Context, hotelID int64, asOf time.Time) (float64, error)
}

type pricingEventPublisher interface {
	PublishPricingRunCompleted(ctx context.Context, event *models.PricingRunCompletedEvent) error
}

// PricingBatch recomputes every active hotel's nightly rates over the
// rolling horizon. Hotels are processed as an isolated fold: one hotel's
// failure becomes a structured entry in the run result, never an abort.
type PricingBatch struct {
	store       pricingStore
	cache       leaseCache
	estimator   occupancyEstimator
	model       *PricingModel
	publisher   pricingEventPublisher
	horizonDays int
	leaseTTL    time.Duration
	logger      *zap.Logger
	now         func() time.Time
}

// NewPricingBatch creates a pricing batch orchestrator
func NewPricingBatch(
	store pricingStore,
	cache leaseCache,
	estimator occupancyEstimator,
	model *PricingModel,
	publisher pricingEventPublisher,
	horizonDays int,
	leaseTTL time.Duration,
) *PricingBatch {
	return &PricingBatch{
		store:       store,
		cache:       cache,
		estimator:   estimator,
		model:       model,
		publisher:   publisher,
		horizonDays: horizonDays,
		leaseTTL:    leaseTTL,
		logger:      util.GetLogger(),
		now:         time.Now,
	}
}

// Run executes one pricing batch over all active hotels. Stateless between
// invocations; safe to re-run immediately because every write is an upsert.
func (b *PricingBatch) Run(ctx context.Context) (*models.PricingRunResult, error) {
	ctx, span := util.StartSpan(ctx, "PricingBatch.Run")
	defer span.End()

	util.PricingRunsTotal.Inc()
	start := b.now()

	acquired, err := b.cache.AcquireRunLease(ctx, pricingLeaseName, b.leaseTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire run lease: %w", err)
	}
	if !acquired {
		util.RunLeaseContention.WithLabelValues(pricingLeaseName).Inc()
		return nil, ErrRunInProgress
	}
	defer func() {
		if err := b.cache.ReleaseRunLease(context.WithoutCancel(ctx), pricingLeaseName); err != nil {
			b.logger.Error("Failed to release pricing run lease", zap.Error(err))
		}
	}()

	hotels, err := b.store.FindActiveHotels(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load active hotels: %w", err)
	}

	today := truncateToDay(start)
	horizonEnd := today.AddDate(0, 0, b.horizonDays-1)

	// Rules are platform-wide, so one load covers every hotel in the run.
	rules, err := b.store.FindActiveSeasonalRules(ctx, today, horizonEnd)
	if err != nil {
		return nil, fmt.Errorf("failed to load seasonal rules: %w", err)
	}

	result := &models.PricingRunResult{
		PerHotel: make([]models.HotelRunEntry, 0, len(hotels)),
	}

	for _, hotel := range hotels {
		if ctx.Err() != nil {
			// Run budget exhausted: report incomplete coverage instead of
			// silently truncating the summary.
			result.Truncated = true
			b.logger.Warn("Pricing run budget exhausted",
				zap.Int("hotels_remaining", len(hotels)-len(result.PerHotel)))
			break
		}

		entry := b.processHotel(ctx, hotel, today, rules)
		result.PerHotel = append(result.PerHotel, entry)
		result.HotelsProcessed++
		result.RoomsUpdated += entry.RoomsUpdated
		result.DaysUpdated += entry.DaysUpdated

		if entry.Error != "" {
			result.HotelsFailed++
			util.HotelsFailedTotal.WithLabelValues("processing_error").Inc()
			b.logger.Error("Hotel pricing failed",
				zap.Int64("hotel_id", hotel.ID),
				zap.String("error", entry.Error))
		} else {
			util.HotelsProcessedTotal.Inc()
		}
	}

	result.Duration = b.now().Sub(start)
	util.PricingRunDuration.Observe(result.Duration.Seconds())

	b.logger.Info("Pricing run completed",
		zap.Int("hotels_processed", result.HotelsProcessed),
		zap.Int("hotels_failed", result.HotelsFailed),
		zap.Int("rooms_updated", result.RoomsUpdated),
		zap.Int("days_updated", result.DaysUpdated),
		zap.Bool("truncated", result.Truncated),
		zap.Duration("duration", result.Duration))

	if b.publisher != nil {
		event := &models.PricingRunCompletedEvent{
			BaseEvent: models.BaseEvent{
				EventID:   uuid.New().String(),
				EventType: models.EventTypePricingRunCompleted,
				Timestamp: b.now(),
			},
			HotelsProcessed: result.HotelsProcessed,
			HotelsFailed:    result.HotelsFailed,
			RoomsUpdated:    result.RoomsUpdated,
			DaysUpdated:     result.DaysUpdated,
			Truncated:       result.Truncated,
			DurationMillis:  result.Duration.Milliseconds(),
		}
		if err := b.publisher.PublishPricingRunCompleted(ctx, event); err != nil {
			b.logger.Error("Failed to publish PricingRunCompleted event", zap.Error(err))
		}
	}

	return result, nil
}

// processHotel prices one hotel's rooms across the horizon. Any error,
// including a panic from malformed data, is converted into the entry's
// error slot so the batch keeps going.
func (b *PricingBatch) processHotel(
	ctx context.Context,
	hotel models.Hotel,
	today time.Time,
	rules []models.SeasonalRule,
) (entry models.HotelRunEntry) {
	ctx, span := util.StartSpan(ctx, "PricingBatch.processHotel")
	defer span.End()

	entry = models.HotelRunEntry{HotelID: hotel.ID, HotelName: hotel.Name}

	defer func() {
		if r := recover(); r != nil {
			entry.Error = fmt.Sprintf("panic while pricing hotel: %v", r)
		}
	}()

	rooms, err := b.store.FindActiveRooms(ctx, hotel.ID)
	if err != nil {
		entry.Error = fmt.Sprintf("failed to load rooms: %v", err)
		return entry
	}
	if len(rooms) == 0 {
		// No active rooms is zero work, not a failure.
		return entry
	}

	// Occupancy is a hotel-level signal, estimated once per hotel.
	occupancy, err := b.estimator.Estimate(ctx, hotel.ID, today)
	if err != nil {
		entry.Error = fmt.Sprintf("failed to estimate occupancy: %v", err)
		return entry
	}

	dayZeroPrices := make([]decimal.Decimal, 0, len(rooms))

	for _, room := range rooms {
		for d := 0; d < b.horizonDays; d++ {
			stayDate := today.AddDate(0, 0, d)

			price, err := b.model.ComputePrice(room.BasePrice, stayDate, today, occupancy, rules)
			if err != nil {
				entry.Error = fmt.Sprintf("room %d: %v", room.ID, err)
				return entry
			}

			if err := b.store.UpsertInventory(ctx, room.ID, stayDate, price); err != nil {
				entry.Error = fmt.Sprintf("room %d: failed to upsert inventory: %v", room.ID, err)
				return entry
			}
			util.InventoryUpsertsTotal.Inc()
			entry.DaysUpdated++

			if d == 0 {
				dayZeroPrices = append(dayZeroPrices, price)
			}
		}
		entry.RoomsUpdated++
	}

	lowest := dayZeroPrices[0]
	for _, p := range dayZeroPrices[1:] {
		if p.LessThan(lowest) {
			lowest = p
		}
	}
	entry.LowestDayRate = lowest

	if err := b.store.UpdateHotelLowestPrice(ctx, hotel.ID, lowest, b.now()); err != nil {
		entry.Error = fmt.Sprintf("failed to update lowest price: %v", err)
		return entry
	}

	// Hot cache for the search page; DB column remains the source of truth,
	// so a cache failure is logged and swallowed.
	if err := b.cache.SetLowestPrice(ctx, hotel.ID, lowest, 48*time.Hour); err != nil {
		b.logger.Warn("Failed to cache lowest price",
			zap.Int64("hotel_id", hotel.ID),
			zap.Error(err))
	}

	return entry
}
