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

	"catalog-service/config"
	"catalog-service/internal/api"
	"catalog-service/internal/availability"
	"catalog-service/internal/broker"
	"catalog-service/internal/catalog"
	"catalog-service/internal/redisclient"
	"catalog-service/internal/service"
	"catalog-service/internal/store"
	"catalog-service/internal/util"
	"catalog-service/internal/worker"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {

	cfg := config.Load()

	if err := util.InitLogger(cfg.Server.Env, cfg.Server.LogLevel); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer util.SyncLogger()

	logger := util.GetLogger()
	logger.Info("Starting catalog service",
		zap.String("env", cfg.Server.Env),
		zap.String("catalog_source", cfg.Catalog.Source))

	tp, err := util.InitTracer("catalog-service", cfg.Server.Env, cfg.Observ.JaegerEndpoint)
	if err != nil {
		logger.Fatal("Failed to initialize tracer", zap.Error(err))
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(ctx); err != nil {
			logger.Warn("Error shutting down tracer", zap.Error(err))
		}
	}()

	readiness := map[string]func(context.Context) error{}

	var source catalog.Source
	switch cfg.Catalog.Source {
	case "postgres":
		db, err := store.NewStore(cfg.Database.URL)
		if err != nil {
			logger.Fatal("Failed to connect to database", zap.Error(err))
		}
		defer db.Close()

		if err := db.Migrate(context.Background()); err != nil {
			logger.Fatal("Failed to migrate database", zap.Error(err))
		}
		logger.Info("Database connected")
		source = db
		readiness["postgres"] = db.Ping
	default:
		source = catalog.NewClient(cfg.Catalog.BaseURL, cfg.Catalog.Timeout)
		logger.Info("Catalog API client initialized", zap.String("base_url", cfg.Catalog.BaseURL))
	}

	redisClient, err := redisclient.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		logger.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer redisClient.Close()
	logger.Info("Redis connected")
	readiness["redis"] = redisClient.Ping

	cachedCatalog := catalog.NewCached(source, redisClient, cfg.Catalog.CacheTTL)

	producer := broker.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TelemetryTopic)
	defer producer.Close()
	logger.Info("Kafka producer initialized", zap.String("topic", cfg.Kafka.TelemetryTopic))

	eventPublisher := broker.NewEventPublisher(producer)
	snapshotPublisher := service.NewSnapshotPublisher(redisClient, cfg.Session.ViewStateTTL)

	policy := availability.Policy{
		OnlineChannel:  cfg.Channel.OnlineChannelID,
		OnlineMinStock: cfg.Channel.OnlineMinStock,
		StoreMinStock:  cfg.Channel.StoreMinStock,
	}

	sessions := service.NewManager(cachedCatalog, eventPublisher, snapshotPublisher, policy, policy.OnlineChannel)
	availabilityService := service.NewAvailabilityService(cachedCatalog, policy)

	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()

	catalogConsumer := broker.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.CatalogEventsTopic, cfg.Kafka.ConsumerGroup)
	catalogWorker := worker.NewCatalogEventsWorker(catalogConsumer, redisClient)
	go func() {
		if err := catalogWorker.Start(workerCtx); err != nil && workerCtx.Err() == nil {
			logger.Error("Catalog events worker error", zap.Error(err))
		}
	}()

	sweeper := worker.NewSessionSweeper(sessions, cfg.Session.SweepInterval, cfg.Session.MaxIdle)
	go func() {
		if err := sweeper.Start(workerCtx); err != nil && workerCtx.Err() == nil {
			logger.Error("Session sweeper error", zap.Error(err))
		}
	}()

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	handler := api.NewHandler(sessions, availabilityService).WithSnapshots(snapshotPublisher)
	for name, check := range readiness {
		handler.WithReadinessCheck(name, check)
	}
	handler.SetupRoutes(router)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		logger.Info("Starting HTTP server", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("Server forced to shutdown", zap.Error(err))
	}

	workerCancel()
	catalogWorker.Stop()
	sweeper.Stop()

	logger.Info("Server exited")
}
