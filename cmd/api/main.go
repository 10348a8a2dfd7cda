// server/cmd/api/main.go
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"recycle-pickup-api-server/config"
	"recycle-pickup-api-server/internal/api/handlers"
	"recycle-pickup-api-server/internal/api/routes"
	"recycle-pickup-api-server/internal/auth"
	"recycle-pickup-api-server/internal/badge"
	"recycle-pickup-api-server/internal/blockchain"
	"recycle-pickup-api-server/internal/cache"
	"recycle-pickup-api-server/internal/database"
	"recycle-pickup-api-server/internal/engine"
	"recycle-pickup-api-server/internal/events"
	"recycle-pickup-api-server/internal/impact"
	"recycle-pickup-api-server/internal/leaderboard"
	"recycle-pickup-api-server/internal/logger"
	"recycle-pickup-api-server/internal/metrics"
	"recycle-pickup-api-server/internal/s3"
	"recycle-pickup-api-server/internal/socket"
	"recycle-pickup-api-server/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"
)

func main() {
	// 1. Load .env (optional) and configuration
	_ = godotenv.Load()
	cfg, err := config.LoadConfig("./config")
	if err != nil {
		logrus.Fatalf("Could not load config: %v", err)
	}

	// 2. Logger
	log := logger.New(cfg.Log)
	if cfg.Log.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Persistence
	var (
		st     store.Store
		health func(context.Context) error
	)
	switch cfg.Store.Driver {
	case "memory":
		log.Warn("Using the in-memory store; data is lost on restart")
		st = store.NewMemory()
	case "mongo":
		connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		mongoStore, err := store.ConnectMongo(connectCtx, cfg.Mongo)
		if err == nil {
			err = mongoStore.EnsureIndexes(connectCtx)
		}
		cancel()
		if err != nil {
			log.Fatalf("Failed to initialize MongoDB store: %v", err)
		}
		defer mongoStore.Close(context.Background())
		st = mongoStore
		health = mongoStore.Ping
		log.WithField("db", cfg.Mongo.DBName).Info("Connected to MongoDB")
	default:
		log.Fatalf("Unknown store driver %q", cfg.Store.Driver)
	}

	// 4. Seed the bootstrap admin
	if err := database.SeedAdmin(ctx, st, cfg.Admin, log); err != nil {
		log.Fatalf("Failed to seed admin: %v", err)
	}

	// 5. Metrics
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	// 6. Lifecycle engine
	weights := impact.WeightsFromConfig(cfg.Score.Weights)
	eng := engine.New(st, engine.Options{
		Calculator: impact.NewCalculator(
			impact.NewRateTable(cfg.Valuation.Rates),
			impact.NewRateTable(cfg.Valuation.CO2Factors),
		),
		Weights:      weights,
		Badges:       badge.NewEvaluator(badge.CatalogFromConfig(cfg.Badges)),
		Timeout:      cfg.Store.Timeout,
		AutoComplete: cfg.Lifecycle.AutoComplete,
		Logger:       log,
		Recorder:     m,
	})

	// 7. WebSocket hub
	wsHub := socket.NewHub(log)
	eng.AddListener(socket.NewNotifier(wsHub))

	// 8. Leaderboard, with the Redis cache when configured
	loc, err := time.LoadLocation(cfg.Leaderboard.Timezone)
	if err != nil {
		log.Fatalf("Invalid leaderboard timezone %q: %v", cfg.Leaderboard.Timezone, err)
	}
	lbOpts := []leaderboard.Option{leaderboard.WithLogger(log), leaderboard.WithTimeout(cfg.Store.Timeout)}
	if cfg.Redis.URL != "" {
		redisClient, err := cache.Connect(ctx, cfg.Redis)
		if err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		defer redisClient.Close()
		lbCache := cache.NewLeaderboard(redisClient, cfg.Redis.TTL, log)
		eng.AddListener(lbCache)
		lbOpts = append(lbOpts, leaderboard.WithCache(lbCache))
		log.Info("Leaderboard cache enabled")
	}
	agg := leaderboard.NewAggregator(st, weights, loc, lbOpts...)

	// 9. Accounting events
	if len(cfg.Kafka.Brokers) > 0 {
		publisher := events.NewPublisher(cfg.Kafka, log)
		defer publisher.Close()
		eng.AddListener(publisher)
		log.WithField("topic", cfg.Kafka.Topic).Info("Publishing accounting events to Kafka")
	}

	// 10. Donation receipt anchoring
	if cfg.Fabric.Enabled {
		fabricSetup, err := blockchain.Initialize(cfg.Fabric)
		if err != nil {
			log.Fatalf("Failed to initialize Fabric setup: %v", err)
		}
		defer fabricSetup.Close()
		eng.AddListener(blockchain.NewReceiptLedger(fabricSetup.Contract, log))
		log.WithField("channel", cfg.Fabric.ChannelName).Info("Anchoring donation receipts on Fabric")
	}

	// 11. Auth and evidence storage
	tokens, err := auth.NewTokenService(cfg.JWT)
	if err != nil {
		log.Fatalf("Invalid JWT configuration: %v", err)
	}
	var evidence handlers.EvidenceStore
	if cfg.S3.Bucket != "" {
		uploader, err := s3.NewUploader(ctx, cfg.S3)
		if err != nil {
			log.Fatalf("Failed to initialize S3 uploader: %v", err)
		}
		evidence = uploader
	}

	// 12. Router
	router := routes.SetupRouter(routes.Deps{
		Engine:           eng,
		Leaderboard:      agg,
		LeaderboardLimit: cfg.Leaderboard.DefaultLimit,
		Users:            st,
		Tokens:           tokens,
		Hub:              wsHub,
		Evidence:         evidence,
		Metrics:          m,
		Log:              log,
		Health:           health,
	})

	// 13. Start server and wait for a shutdown signal
	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Infof("Starting API server on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to run server: %v", err)
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("Graceful shutdown failed")
	}
}
