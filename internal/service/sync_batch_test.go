package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"pricing-sync-service/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSyncStore struct {
	conns []models.ChannelConnection
	err   error
}

func (f *fakeSyncStore) FindSyncableConnections(context.Context) ([]models.ChannelConnection, error) {
	return f.conns, f.err
}

type fakeConnectionSyncer struct {
	syncErrFor map[int64]error
	pullErrFor map[int64]error
	pulledFor  map[int64]int

	sinceSeen map[int64]time.Time
}

func newFakeConnectionSyncer() *fakeConnectionSyncer {
	return &fakeConnectionSyncer{
		syncErrFor: make(map[int64]error),
		pullErrFor: make(map[int64]error),
		pulledFor:  make(map[int64]int),
		sinceSeen:  make(map[int64]time.Time),
	}
}

func (f *fakeConnectionSyncer) SyncInventory(_ context.Context, conn models.ChannelConnection, _, _ time.Time) error {
	return f.syncErrFor[conn.ID]
}

func (f *fakeConnectionSyncer) PullBookings(_ context.Context, conn models.ChannelConnection, since time.Time) (int, error) {
	f.sinceSeen[conn.ID] = since
	return f.pulledFor[conn.ID], f.pullErrFor[conn.ID]
}

func newTestSyncBatch(st *fakeSyncStore, syncer *fakeConnectionSyncer, cache *fakeLeaseCache) *SyncBatch {
	b := NewSyncBatch(st, syncer, cache, nil, 90, 24*time.Hour, time.Minute)
	b.now = func() time.Time { return testToday.Add(12 * time.Hour) }
	return b
}

func TestSyncBatchAggregatesResults(t *testing.T) {
	st := &fakeSyncStore{conns: []models.ChannelConnection{
		{ID: 1, HotelID: 1, ChannelType: models.ChannelTypeBookingCom},
		{ID: 2, HotelID: 2, ChannelType: models.ChannelTypeAgoda},
		{ID: 3, HotelID: 3, ChannelType: models.ChannelTypeExpedia},
	}}
	syncer := newFakeConnectionSyncer()
	syncer.pulledFor[1] = 2
	syncer.pulledFor[3] = 1

	batch := newTestSyncBatch(st, syncer, newFakeLeaseCache())
	result, err := batch.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, result.TotalConnections)
	assert.Equal(t, 3, result.SuccessfulSyncs)
	assert.Zero(t, result.FailedSyncs)
	assert.Equal(t, 3, result.BookingsPulled)
}

func TestSyncBatchFailureIsolation(t *testing.T) {
	st := &fakeSyncStore{conns: []models.ChannelConnection{
		{ID: 1, HotelID: 1, ChannelType: models.ChannelTypeBookingCom},
		{ID: 2, HotelID: 2, ChannelType: models.ChannelTypeAgoda},
		{ID: 3, HotelID: 3, ChannelType: models.ChannelTypeExpedia},
	}}
	syncer := newFakeConnectionSyncer()
	syncer.syncErrFor[2] = errors.New("channel 503")
	syncer.pulledFor[2] = 4

	batch := newTestSyncBatch(st, syncer, newFakeLeaseCache())
	result, err := batch.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, result.SuccessfulSyncs)
	assert.Equal(t, 1, result.FailedSyncs)

	// The pull still ran and was recorded for the failed connection.
	entry := result.PerConnection[1]
	assert.False(t, entry.SyncOK)
	assert.Contains(t, entry.SyncError, "channel 503")
	assert.True(t, entry.PullOK)
	assert.Equal(t, 4, entry.BookingsPulled)
}

func TestSyncBatchPullWindow(t *testing.T) {
	old := testToday.Add(-72 * time.Hour)
	st := &fakeSyncStore{conns: []models.ChannelConnection{
		{ID: 1, HotelID: 1, ChannelType: models.ChannelTypeBookingCom},
		{ID: 2, HotelID: 2, ChannelType: models.ChannelTypeAgoda, LastSyncedAt: old},
		{ID: 3, HotelID: 3, ChannelType: models.ChannelTypeExpedia, LastSyncedAt: testToday.Add(6 * time.Hour)},
	}}
	syncer := newFakeConnectionSyncer()

	batch := newTestSyncBatch(st, syncer, newFakeLeaseCache())
	_, err := batch.Run(context.Background())
	require.NoError(t, err)

	runStarted := testToday.Add(12 * time.Hour)
	lookbackStart := runStarted.Add(-24 * time.Hour)

	// No watermark yet: standard lookback.
	assert.Equal(t, lookbackStart, syncer.sinceSeen[1])
	// Stalled watermark older than the lookback: stretch back to it.
	assert.Equal(t, old, syncer.sinceSeen[2])
	// Fresh watermark inside the lookback: the wider window wins.
	assert.Equal(t, lookbackStart, syncer.sinceSeen[3])
}

func TestSyncBatchRefusedWhenLeaseHeld(t *testing.T) {
	cache := newFakeLeaseCache()
	cache.held = true

	batch := newTestSyncBatch(&fakeSyncStore{}, newFakeConnectionSyncer(), cache)
	_, err := batch.Run(context.Background())
	assert.ErrorIs(t, err, ErrRunInProgress)
}

func TestSyncBatchTruncatesOnExpiredBudget(t *testing.T) {
	st := &fakeSyncStore{conns: []models.ChannelConnection{{ID: 1}, {ID: 2}}}

	batch := newTestSyncBatch(st, newFakeConnectionSyncer(), newFakeLeaseCache())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := batch.Run(ctx)
	require.NoError(t, err)
	assert.True(t, result.Truncated)
	assert.Empty(t, result.PerConnection)
}
