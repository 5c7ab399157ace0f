package api

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"strconv"
	"time"

	"pricing-sync-service/internal/models"
	"pricing-sync-service/internal/service"
	"pricing-sync-service/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type pricingRunner interface {
	Run(ctx context.Context) (*models.PricingRunResult, error)
}

type syncRunner interface {
	Run(ctx context.Context) (*models.SyncRunResult, error)
}

// Handler exposes the batch triggers to the external scheduler. Both
// endpoints take no business parameters; the schedule itself decides when
// they fire.
type Handler struct {
	pricingBatch pricingRunner
	syncBatch    syncRunner
	cronSecret   string
	runBudget    time.Duration
}

// NewHandler creates a new HTTP handler
func NewHandler(pricingBatch pricingRunner, syncBatch syncRunner, cronSecret string, runBudget time.Duration) *Handler {
	return &Handler{
		pricingBatch: pricingBatch,
		syncBatch:    syncBatch,
		cronSecret:   cronSecret,
		runBudget:    runBudget,
	}
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(prometheusMiddleware())
	router.Use(gin.Logger())

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	cron := router.Group("/internal/cron", h.cronAuth)
	{
		cron.POST("/pricing-run", h.runPricingBatch)
		cron.POST("/channel-sync", h.runSyncBatch)
	}
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// readinessCheck handles readiness check requests
func (h *Handler) readinessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now().Unix(),
	})
}

// cronAuth rejects trigger calls before any batch work starts: a missing
// configured secret is a deployment error (500), a wrong or absent header
// is an unauthorized caller (401).
func (h *Handler) cronAuth(c *gin.Context) {
	if h.cronSecret == "" {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error": "cron secret is not configured",
		})
		return
	}

	provided := c.GetHeader("X-Cron-Secret")
	if subtle.ConstantTimeCompare([]byte(provided), []byte(h.cronSecret)) != 1 {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
			"error": "invalid cron secret",
		})
		return
	}

	c.Next()
}

// runPricingBatch triggers a pricing batch run and returns its summary
func (h *Handler) runPricingBatch(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.runBudget)
	defer cancel()

	result, err := h.pricingBatch.Run(ctx)
	if err != nil {
		if errors.Is(err, service.ErrRunInProgress) {
			c.JSON(http.StatusConflict, gin.H{
				"success": false,
				"error":   err.Error(),
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": result.HotelsFailed == 0 && !result.Truncated,
		"summary": gin.H{
			"hotels_processed":       result.HotelsProcessed,
			"hotels_failed":          result.HotelsFailed,
			"rooms_updated":          result.RoomsUpdated,
			"inventory_days_updated": result.DaysUpdated,
			"truncated":              result.Truncated,
			"duration_ms":            result.Duration.Milliseconds(),
		},
		"results": result.PerHotel,
	})
}

// runSyncBatch triggers a channel sync run and returns its summary
func (h *Handler) runSyncBatch(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.runBudget)
	defer cancel()

	result, err := h.syncBatch.Run(ctx)
	if err != nil {
		if errors.Is(err, service.ErrRunInProgress) {
			c.JSON(http.StatusConflict, gin.H{
				"success": false,
				"error":   err.Error(),
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": result.FailedSyncs == 0 && !result.Truncated,
		"summary": gin.H{
			"total_connections": result.TotalConnections,
			"successful_syncs":  result.SuccessfulSyncs,
			"failed_syncs":      result.FailedSyncs,
			"bookings_pulled":   result.BookingsPulled,
			"truncated":         result.Truncated,
			"duration_ms":       result.Duration.Milliseconds(),
		},
		"results": result.PerConnection,
	})
}

// prometheusMiddleware collects HTTP metrics
func prometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		util.HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Observe(duration)

		util.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Inc()
	}
}
