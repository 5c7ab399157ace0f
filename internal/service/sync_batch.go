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

const syncLeaseName = "channel-sync"

type syncStore interface {
	FindSyncableConnections(ctx context.Context) ([]models.ChannelConnection, error)
}

type connectionSyncer interface {
	SyncInventory(ctx context.Context, conn models.ChannelConnection, from, to time.Time) error
	PullBookings(ctx context.Context, conn models.ChannelConnection, since time.Time) (int, error)
}

type syncEventPublisher interface {
	PublishSyncRunCompleted(ctx context.Context, event *models.SyncRunCompletedEvent) error
}

// SyncBatch walks every syncable channel connection, pushing the forward
// inventory window and pulling new external bookings. Connections are
// independent; one channel's outage shows up as a failed entry while the
// rest of the run proceeds.
type SyncBatch struct {
	store          syncStore
	manager        connectionSyncer
	cache          leaseCache
	publisher      syncEventPublisher
	syncWindowDays int
	pullLookback   time.Duration
	leaseTTL       time.Duration
	logger         *zap.Logger
	now            func() time.Time
}

// NewSyncBatch creates a sync batch orchestrator
func NewSyncBatch(
	store syncStore,
	manager connectionSyncer,
	cache leaseCache,
	publisher syncEventPublisher,
	syncWindowDays int,
	pullLookback time.Duration,
	leaseTTL time.Duration,
) *SyncBatch {
	return &SyncBatch{
		store:          store,
		manager:        manager,
		cache:          cache,
		publisher:      publisher,
		syncWindowDays: syncWindowDays,
		pullLookback:   pullLookback,
		leaseTTL:       leaseTTL,
		logger:         util.GetLogger(),
		now:            time.Now,
	}
}

// Run executes one sync batch over all active connections of ACTIVE hotels
func (b *SyncBatch) Run(ctx context.Context) (*models.SyncRunResult, error) {
	ctx, span := util.StartSpan(ctx, "SyncBatch.Run")
	defer span.End()

	util.SyncRunsTotal.Inc()
	start := b.now()

	acquired, err := b.cache.AcquireRunLease(ctx, syncLeaseName, b.leaseTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire run lease: %w", err)
	}
	if !acquired {
		util.RunLeaseContention.WithLabelValues(syncLeaseName).Inc()
		return nil, ErrRunInProgress
	}
	defer func() {
		if err := b.cache.ReleaseRunLease(context.WithoutCancel(ctx), syncLeaseName); err != nil {
			b.logger.Error("Failed to release sync run lease", zap.Error(err))
		}
	}()

	conns, err := b.store.FindSyncableConnections(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load connections: %w", err)
	}

	today := truncateToDay(start)
	windowEnd := today.AddDate(0, 0, b.syncWindowDays-1)

	result := &models.SyncRunResult{
		TotalConnections: len(conns),
		PerConnection:    make([]models.ConnectionRunEntry, 0, len(conns)),
	}

	for _, conn := range conns {
		if ctx.Err() != nil {
			result.Truncated = true
			b.logger.Warn("Sync run budget exhausted",
				zap.Int("connections_remaining", len(conns)-len(result.PerConnection)))
			break
		}

		entry := b.processConnection(ctx, conn, today, windowEnd, start)
		result.PerConnection = append(result.PerConnection, entry)
		result.BookingsPulled += entry.BookingsPulled

		if entry.SyncOK && entry.PullOK {
			result.SuccessfulSyncs++
		} else {
			result.FailedSyncs++
		}
	}

	result.Duration = b.now().Sub(start)
	util.SyncRunDuration.Observe(result.Duration.Seconds())

	b.logger.Info("Sync run completed",
		zap.Int("total_connections", result.TotalConnections),
		zap.Int("successful", result.SuccessfulSyncs),
		zap.Int("failed", result.FailedSyncs),
		zap.Int("bookings_pulled", result.BookingsPulled),
		zap.Bool("truncated", result.Truncated),
		zap.Duration("duration", result.Duration))

	if b.publisher != nil {
		event := &models.SyncRunCompletedEvent{
			BaseEvent: models.BaseEvent{
				EventID:   uuid.New().String(),
				EventType: models.EventTypeSyncRunCompleted,
				Timestamp: b.now(),
			},
			TotalConnections: result.TotalConnections,
			SuccessfulSyncs:  result.SuccessfulSyncs,
			FailedSyncs:      result.FailedSyncs,
			BookingsPulled:   result.BookingsPulled,
			DurationMillis:   result.Duration.Milliseconds(),
		}
		if err := b.publisher.PublishSyncRunCompleted(ctx, event); err != nil {
			b.logger.Error("Failed to publish SyncRunCompleted event", zap.Error(err))
		}
	}

	return result, nil
}

// processConnection runs both operations for one connection. The pull is
// attempted even when the push fails; both outcomes land in the entry.
func (b *SyncBatch) processConnection(
	ctx context.Context,
	conn models.ChannelConnection,
	from, to time.Time,
	runStarted time.Time,
) (entry models.ConnectionRunEntry) {
	entry = models.ConnectionRunEntry{
		ConnectionID: conn.ID,
		HotelID:      conn.HotelID,
		ChannelType:  conn.ChannelType,
	}

	defer func() {
		if r := recover(); r != nil {
			entry.SyncOK = false
			entry.PullOK = false
			entry.PullError = fmt.Sprintf("panic while syncing connection: %v", r)
		}
	}()

	if err := b.manager.SyncInventory(ctx, conn, from, to); err != nil {
		entry.SyncError = err.Error()
		util.ConnectionsFailedTotal.WithLabelValues("push").Inc()
	} else {
		entry.SyncOK = true
		util.ConnectionsSyncedTotal.Inc()
	}

	since := b.pullSince(conn, runStarted)
	pulled, err := b.manager.PullBookings(ctx, conn, since)
	entry.BookingsPulled = pulled
	if err != nil {
		entry.PullError = err.Error()
		util.ConnectionsFailedTotal.WithLabelValues("pull").Inc()
	} else {
		entry.PullOK = true
	}

	return entry
}

// pullSince picks the pull window start: the standard lookback from now,
// stretched back to the connection's watermark when that is older so a
// stalled connection catches up instead of losing bookings.
func (b *SyncBatch) pullSince(conn models.ChannelConnection, runStarted time.Time) time.Time {
	since := runStarted.Add(-b.pullLookback)
	if !conn.LastSyncedAt.IsZero() && conn.LastSyncedAt.Before(since) {
		since = conn.LastSyncedAt
	}
	return since
}
