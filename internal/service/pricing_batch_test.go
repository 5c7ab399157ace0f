package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"pricing-sync-service/config"
	"pricing-sync-service/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePricingStore struct {
	hotels       []models.Hotel
	roomsByHotel map[int64][]models.Room
	rules        []models.SeasonalRule
	roomsErrFor  map[int64]error

	upserts      map[string]decimal.Decimal
	lowestPrices map[int64]decimal.Decimal
}

func newFakePricingStore() *fakePricingStore {
	return &fakePricingStore{
		roomsByHotel: make(map[int64][]models.Room),
		roomsErrFor:  make(map[int64]error),
		upserts:      make(map[string]decimal.Decimal),
		lowestPrices: make(map[int64]decimal.Decimal),
	}
}

func (f *fakePricingStore) FindActiveHotels(context.Context) ([]models.Hotel, error) {
	return f.hotels, nil
}

func (f *fakePricingStore) FindActiveRooms(_ context.Context, hotelID int64) ([]models.Room, error) {
	if err := f.roomsErrFor[hotelID]; err != nil {
		return nil, err
	}
	return f.roomsByHotel[hotelID], nil
}

func (f *fakePricingStore) FindActiveSeasonalRules(context.Context, time.Time, time.Time) ([]models.SeasonalRule, error) {
	return f.rules, nil
}

func (f *fakePricingStore) UpsertInventory(_ context.Context, roomID int64, stayDate time.Time, price decimal.Decimal) error {
	f.upserts[fmt.Sprintf("%d|%s", roomID, stayDate.Format("2006-01-02"))] = price
	return nil
}

func (f *fakePricingStore) UpdateHotelLowestPrice(_ context.Context, hotelID int64, price decimal.Decimal, _ time.Time) error {
	f.lowestPrices[hotelID] = price
	return nil
}

type fakeLeaseCache struct {
	held         bool
	leaseTaken   int
	leaseFreed   int
	cachedLowest map[int64]decimal.Decimal
}

func newFakeLeaseCache() *fakeLeaseCache {
	return &fakeLeaseCache{cachedLowest: make(map[int64]decimal.Decimal)}
}

func (f *fakeLeaseCache) AcquireRunLease(context.Context, string, time.Duration) (bool, error) {
	if f.held {
		return false, nil
	}
	f.leaseTaken++
	return true, nil
}

func (f *fakeLeaseCache) ReleaseRunLease(context.Context, string) error {
	f.leaseFreed++
	return nil
}

func (f *fakeLeaseCache) SetLowestPrice(_ context.Context, hotelID int64, price decimal.Decimal, _ time.Duration) error {
	f.cachedLowest[hotelID] = price
	return nil
}

type fakeEstimator struct {
	ratio  float64
	err    error
	called int
}

func (f *fakeEstimator) Estimate(context.Context, int64, time.Time) (float64, error) {
	f.called++
	return f.ratio, f.err
}

// neutralPricingConfig turns every factor off so day-0 prices equal base
// prices and the arithmetic stays out of the orchestration assertions.
func neutralPricingConfig(horizonDays int) config.PricingConfig {
	return config.PricingConfig{
		HorizonDays:      horizonDays,
		LookbackDays:     7,
		WeekendFactor:    1.0,
		DemandBands:      []config.DemandBand{{MinOccupancy: 0.0, Factor: 1.0}},
		DemandFactorMin:  1.0,
		DemandFactorMax:  1.0,
		LastMinuteWithin: -1,
		LastMinuteFactor: 1.0,
		EarlyBirdBeyond:  10000,
		EarlyBirdFactor:  1.0,
	}
}

func newTestBatch(st *fakePricingStore, cache *fakeLeaseCache, est *fakeEstimator, horizonDays int) *PricingBatch {
	model := NewPricingModel(neutralPricingConfig(horizonDays))
	b := NewPricingBatch(st, cache, est, model, nil, horizonDays, time.Minute)
	b.now = func() time.Time { return testToday.Add(6 * time.Hour) }
	return b
}

func TestPricingBatchLowestPrice(t *testing.T) {
	st := newFakePricingStore()
	st.hotels = []models.Hotel{{ID: 1, Name: "Harbor View"}}
	st.roomsByHotel[1] = []models.Room{
		{ID: 10, HotelID: 1, BasePrice: decimal.NewFromInt(1200)},
		{ID: 11, HotelID: 1, BasePrice: decimal.NewFromInt(1500)},
		{ID: 12, HotelID: 1, BasePrice: decimal.NewFromInt(900)},
	}
	cache := newFakeLeaseCache()

	batch := newTestBatch(st, cache, &fakeEstimator{ratio: 0.5}, 3)
	result, err := batch.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, result.HotelsProcessed)
	assert.Equal(t, 0, result.HotelsFailed)
	assert.Equal(t, 3, result.RoomsUpdated)
	assert.Equal(t, 9, result.DaysUpdated)

	assert.Equal(t, "900.00", st.lowestPrices[1].StringFixed(2))
	assert.Equal(t, "900.00", cache.cachedLowest[1].StringFixed(2))
}

func TestPricingBatchFailureIsolation(t *testing.T) {
	st := newFakePricingStore()
	st.hotels = []models.Hotel{
		{ID: 1, Name: "A"},
		{ID: 2, Name: "B"},
		{ID: 3, Name: "C"},
	}
	st.roomsByHotel[1] = []models.Room{{ID: 10, HotelID: 1, BasePrice: decimal.NewFromInt(100)}}
	st.roomsErrFor[2] = errors.New("connection reset")
	st.roomsByHotel[3] = []models.Room{{ID: 30, HotelID: 3, BasePrice: decimal.NewFromInt(200)}}

	batch := newTestBatch(st, newFakeLeaseCache(), &fakeEstimator{ratio: 0.5}, 2)
	result, err := batch.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, result.HotelsProcessed)
	assert.Equal(t, 1, result.HotelsFailed)

	assert.Empty(t, result.PerHotel[0].Error)
	assert.Contains(t, result.PerHotel[1].Error, "connection reset")
	assert.Empty(t, result.PerHotel[2].Error)

	// Hotels A and C still received their inventory writes.
	assert.Len(t, st.upserts, 4)
	assert.Contains(t, st.lowestPrices, int64(1))
	assert.Contains(t, st.lowestPrices, int64(3))
	assert.NotContains(t, st.lowestPrices, int64(2))
}

func TestPricingBatchIdempotentRerun(t *testing.T) {
	st := newFakePricingStore()
	st.hotels = []models.Hotel{{ID: 1, Name: "A"}}
	st.roomsByHotel[1] = []models.Room{{ID: 10, HotelID: 1, BasePrice: decimal.RequireFromString("123.45")}}

	batch := newTestBatch(st, newFakeLeaseCache(), &fakeEstimator{ratio: 0.7}, 5)

	_, err := batch.Run(context.Background())
	require.NoError(t, err)
	first := make(map[string]string, len(st.upserts))
	for k, v := range st.upserts {
		first[k] = v.String()
	}

	_, err = batch.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, st.upserts, len(first))
	for k, v := range st.upserts {
		assert.Equal(t, first[k], v.String(), "price drifted for %s", k)
	}
}

func TestPricingBatchZeroRoomsIsZeroWork(t *testing.T) {
	st := newFakePricingStore()
	st.hotels = []models.Hotel{{ID: 1, Name: "Empty"}}

	est := &fakeEstimator{ratio: 0.5}
	batch := newTestBatch(st, newFakeLeaseCache(), est, 3)
	result, err := batch.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, result.HotelsProcessed)
	assert.Equal(t, 0, result.HotelsFailed)
	assert.Empty(t, result.PerHotel[0].Error)
	assert.Zero(t, result.PerHotel[0].RoomsUpdated)
	assert.Zero(t, est.called)
	assert.Empty(t, st.upserts)
}

func TestPricingBatchEstimatesOccupancyOncePerHotel(t *testing.T) {
	st := newFakePricingStore()
	st.hotels = []models.Hotel{{ID: 1, Name: "A"}}
	st.roomsByHotel[1] = []models.Room{
		{ID: 10, HotelID: 1, BasePrice: decimal.NewFromInt(100)},
		{ID: 11, HotelID: 1, BasePrice: decimal.NewFromInt(200)},
		{ID: 12, HotelID: 1, BasePrice: decimal.NewFromInt(300)},
	}

	est := &fakeEstimator{ratio: 0.5}
	batch := newTestBatch(st, newFakeLeaseCache(), est, 10)
	_, err := batch.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, est.called)
}

func TestPricingBatchNegativeBasePriceIsPerHotelError(t *testing.T) {
	st := newFakePricingStore()
	st.hotels = []models.Hotel{
		{ID: 1, Name: "Bad"},
		{ID: 2, Name: "Good"},
	}
	st.roomsByHotel[1] = []models.Room{{ID: 10, HotelID: 1, BasePrice: decimal.NewFromInt(-50)}}
	st.roomsByHotel[2] = []models.Room{{ID: 20, HotelID: 2, BasePrice: decimal.NewFromInt(80)}}

	batch := newTestBatch(st, newFakeLeaseCache(), &fakeEstimator{ratio: 0.5}, 2)
	result, err := batch.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, result.HotelsFailed)
	assert.Contains(t, result.PerHotel[0].Error, "base price")
	assert.Empty(t, result.PerHotel[1].Error)
}

func TestPricingBatchRefusedWhenLeaseHeld(t *testing.T) {
	st := newFakePricingStore()
	st.hotels = []models.Hotel{{ID: 1}}
	cache := newFakeLeaseCache()
	cache.held = true

	batch := newTestBatch(st, cache, &fakeEstimator{}, 3)
	_, err := batch.Run(context.Background())
	assert.ErrorIs(t, err, ErrRunInProgress)
}

func TestPricingBatchReleasesLease(t *testing.T) {
	st := newFakePricingStore()
	cache := newFakeLeaseCache()

	batch := newTestBatch(st, cache, &fakeEstimator{}, 3)
	_, err := batch.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, cache.leaseTaken)
	assert.Equal(t, 1, cache.leaseFreed)
}

func TestPricingBatchTruncatesOnExpiredBudget(t *testing.T) {
	st := newFakePricingStore()
	st.hotels = []models.Hotel{{ID: 1}, {ID: 2}}

	batch := newTestBatch(st, newFakeLeaseCache(), &fakeEstimator{}, 3)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := batch.Run(ctx)
	require.NoError(t, err)
	assert.True(t, result.Truncated)
	assert.Zero(t, result.HotelsProcessed)
}
