package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pricing-sync-service/config"
	"pricing-sync-service/internal/api"
	"pricing-sync-service/internal/broker"
	"pricing-sync-service/internal/redisclient"
	"pricing-sync-service/internal/service"
	"pricing-sync-service/internal/store"
	"pricing-sync-service/internal/util"
	"pricing-sync-service/internal/worker"

	"github.com/gin-gonic/gin"
)

func main() {

	cfg := config.Load()

	if err := util.InitLogger(cfg.Server.Env); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer util.SyncLogger()

	logger := util.GetLogger()
	logger.Info("Starting pricing sync service")

	tp, err := util.InitTracer("pricing-sync-service", cfg.Observ.JaegerEndpoint)
	if err != nil {
		log.Fatalf("Failed to initialize tracer: %v", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(ctx); err != nil {
			log.Printf("Error shutting down tracer: %v", err)
		}
	}()

	db, err := store.NewStore(cfg.Database.URL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	log.Println("Database connected")

	redisClient, err := redisclient.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redisClient.Close()
	log.Println("Redis connected")

	producer := broker.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicSync)
	defer producer.Close()
	log.Println("Kafka producer initialized")

	eventPublisher := broker.NewEventPublisher(producer)

	adapters := service.NewAdapterRegistry()
	for channelType, baseURL := range cfg.Channel.BaseURLs {
		adapters.Register(channelType, service.NewRESTAdapter(
			channelType, baseURL,
			cfg.Channel.ClientID, cfg.Channel.ClientSecret,
			cfg.Channel.RequestTimeout,
		))
	}

	pricingModel := service.NewPricingModel(cfg.Pricing)
	estimator := service.NewOccupancyEstimator(db, cfg.Pricing.LookbackDays)
	pricingBatch := service.NewPricingBatch(
		db, redisClient, estimator, pricingModel, eventPublisher,
		cfg.Pricing.HorizonDays, cfg.Cron.LeaseTTL,
	)
	channelManager := service.NewChannelManager(db, adapters, eventPublisher, cfg.Channel.RequestTimeout)
	syncBatch := service.NewSyncBatch(
		db, channelManager, redisClient, eventPublisher,
		cfg.Channel.SyncWindowDays, cfg.Channel.PullLookback, cfg.Cron.LeaseTTL,
	)

	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()

	syncConsumer := broker.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.TopicSync, cfg.Kafka.ConsumerGroup)
	inventoryWorker := worker.NewInventoryWorker(syncConsumer, db)
	go func() {
		if err := inventoryWorker.Start(workerCtx); err != nil {
			log.Printf("Inventory worker error: %v", err)
		}
	}()

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.Default()
	handler := api.NewHandler(pricingBatch, syncBatch, cfg.Cron.Secret, cfg.Cron.RunBudget)
	handler.SetupRoutes(router)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		log.Printf("Starting HTTP server on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	workerCancel()
	inventoryWorker.Stop()

	log.Println("Server exited")
}
