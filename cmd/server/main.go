// Package main runs the race backend HTTP server with the live timing feed
// and graceful shutdown.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/raceline/backend/config"
	"github.com/raceline/backend/internal/auth"
	"github.com/raceline/backend/internal/events"
	"github.com/raceline/backend/internal/middleware"
	"github.com/raceline/backend/internal/realtime"
	"github.com/raceline/backend/internal/registrations"
	"github.com/raceline/backend/internal/results"
	"github.com/raceline/backend/internal/strava"
	"github.com/raceline/backend/internal/timing"
	"github.com/raceline/backend/pkg/database"
	"github.com/raceline/backend/pkg/queue"
	"github.com/raceline/backend/pkg/redis"
	"github.com/raceline/backend/pkg/response"
	"github.com/raceline/backend/pkg/storage"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	ctx := context.Background()
	pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), logger)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer pool.Close()

	if err := database.Migrate(ctx, pool); err != nil {
		logger.Fatal("migrate", zap.Error(err))
	}

	rdb, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
	if err != nil {
		logger.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()

	var s3Client *storage.S3
	if cfg.AWS.Region != "" {
		s3Cfg := storage.S3Config{
			Region:               cfg.AWS.Region,
			AccessKeyID:          cfg.AWS.AccessKeyID,
			SecretAccessKey:      cfg.AWS.SecretAccessKey,
			PaymentProofsBucket:  cfg.AWS.PaymentProofsBucket,
			PresignExpireMinutes: cfg.AWS.PresignExpireMinutes,
		}
		s3Client, err = storage.NewS3(ctx, s3Cfg, logger)
		if err != nil {
			logger.Warn("s3 disabled", zap.Error(err))
		}
	}

	jwtService := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.ExpireHours)
	redisPubSub := realtime.NewRedisPubSub(rdb.Client, logger)
	hub := realtime.NewHub(logger, redisPubSub, redisPubSub)
	jobQueue := queue.NewQueue(rdb.Client, logger)

	// Auth
	authRepo := auth.NewRepository(pool)
	authHandler := auth.NewHandler(authRepo, jwtService, logger)

	// Events
	eventRepo := events.NewRepository(pool)
	eventHandler := events.NewHandler(eventRepo, logger)

	// Registrations
	registrationRepo := registrations.NewRepository(pool)
	registrationService := registrations.NewService(registrationRepo)
	registrationHandler := registrations.NewHandler(registrationService, registrationRepo, s3Client, logger)

	// Timing
	timingRepo := timing.NewRepository(pool)
	timingEngine := timing.NewEngine(timingRepo)
	timingHandler := timing.NewHandler(timingEngine, hub, logger)

	// Results, personal bests, leaderboards
	resultsRepo := results.NewRepository(pool)
	resultsService := results.NewService(resultsRepo, results.Config{
		StandardDistancesKm: cfg.Leaderboard.StandardDistancesKm,
		ToleranceKm:         cfg.Leaderboard.ToleranceKm,
		TopN:                cfg.Leaderboard.TopN,
	})
	resultsHandler := results.NewHandler(resultsService, logger)

	// Strava sync
	stravaClient := strava.NewClient(cfg.Strava, logger)
	stravaRepo := strava.NewRepository(pool)
	stravaSyncer := strava.NewSyncer(stravaClient, stravaRepo, cfg.Strava, logger)
	stravaHandler := strava.NewHandler(stravaSyncer, stravaRepo, jobQueue, logger)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg.Server.CORSAllowedOrigins))
	router.Use(middleware.Logger(logger))

	// Health
	router.GET("/health", func(c *gin.Context) { response.OK(c, gin.H{"status": "ok"}) })

	// Auth (public)
	authGroup := router.Group("/auth")
	{
		authGroup.POST("/login", authHandler.Login)
		authGroup.POST("/register", authHandler.Register)
	}

	// Public reads: events, results, personal bests, leaderboards
	router.GET("/events", eventHandler.List)
	router.GET("/events/:id", eventHandler.GetByID)
	router.GET("/events/:id/results", resultsHandler.EventResults)
	router.GET("/athletes/:id/personal-bests", resultsHandler.PersonalBests)
	router.GET("/leaderboards/yearly", resultsHandler.YearlyLeaderboard)

	// Protected API (JWT required)
	api := router.Group("")
	api.Use(middleware.JWT(jwtService))
	{
		// Event management (admin)
		api.POST("/events", middleware.RequireRole("admin"), eventHandler.Create)
		api.PATCH("/events/:id", middleware.RequireRole("admin"), eventHandler.Update)
		api.DELETE("/events/:id", middleware.RequireRole("admin"), eventHandler.Delete)
		api.POST("/events/:id/categories", middleware.RequireRole("admin"), eventHandler.AddCategory)
		api.POST("/events/:id/distances", middleware.RequireRole("admin"), eventHandler.AddDistance)

		// Athletes
		api.GET("/athletes", stravaHandler.ListAthletes)
		api.GET("/athletes/:id", stravaHandler.GetAthlete)
		api.PUT("/athletes", middleware.RequireRole("admin"), stravaHandler.UpsertAthlete)

		// Registrations
		api.POST("/events/:id/registrations", registrationHandler.Register)
		api.GET("/events/:id/registrations", registrationHandler.ListByEvent)
		api.PATCH("/registrations/:id/status", middleware.RequireRole("admin"), registrationHandler.UpdateStatus)
		api.POST("/registrations/:id/payment-proof", registrationHandler.UploadPaymentProof)
		api.GET("/registrations/:id/payment-proof-url", middleware.RequireRole("admin"), registrationHandler.PaymentProofURL)

		// Race-day timing (admin or timer)
		timer := middleware.RequireRole("admin", "timer")
		api.POST("/events/:id/distances/:distanceId/start-timer", timer, timingHandler.StartTimer)
		api.POST("/events/:id/finishes", timer, timingHandler.RecordFinish)
		api.POST("/events/:id/registrations/:regId/dorsal", timer, timingHandler.AssignDorsal)

		// Strava activity sync (admin)
		api.POST("/athletes/:id/sync", middleware.RequireRole("admin"), stravaHandler.Sync)
		api.POST("/athletes/:id/sync-jobs", middleware.RequireRole("admin"), stravaHandler.EnqueueSync)
	}

	// WebSocket spectator feed (public)
	router.GET("/ws", realtime.ServeWs(hub, logger))

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Info("server listening", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	logger.Info("server stopped")
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
