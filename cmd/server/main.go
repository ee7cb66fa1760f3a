// Package main runs the poll HTTP API with graceful shutdown.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	mongodriver "go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/quickpoll/backend/config"
	"github.com/quickpoll/backend/internal/auth"
	"github.com/quickpoll/backend/internal/metrics"
	"github.com/quickpoll/backend/internal/middleware"
	"github.com/quickpoll/backend/internal/polls"
	"github.com/quickpoll/backend/internal/storage"
	mongostore "github.com/quickpoll/backend/internal/storage/mongo"
	"github.com/quickpoll/backend/pkg/database"
	"github.com/quickpoll/backend/pkg/queue"
	"github.com/quickpoll/backend/pkg/redis"
	"github.com/quickpoll/backend/pkg/response"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}
	backend, err := storage.ParseBackend(cfg.Store.Backend)
	if err != nil {
		logger.Fatal("store backend", zap.Error(err))
	}

	ctx := context.Background()
	pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), logger)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer pool.Close()

	if err := database.Migrate(ctx, pool, logger); err != nil {
		logger.Fatal("migrate", zap.Error(err))
	}

	deps := storage.Deps{Pool: pool, Logger: logger}

	var rdb *redis.Client
	if backend == storage.BackendRedis || cfg.Activity.Enabled {
		rdb, err = redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
		if err != nil {
			logger.Fatal("redis", zap.Error(err))
		}
		defer rdb.Close()
		deps.Redis = rdb.Client
	}

	if backend == storage.BackendMongo {
		var client *mongodriver.Client
		client, err = mongostore.Connect(ctx, cfg.Mongo.URI)
		if err != nil {
			logger.Fatal("mongo", zap.Error(err))
		}
		defer client.Disconnect(context.Background())
		deps.Mongo = client.Database(cfg.Mongo.Database)
	}

	store, err := storage.Open(ctx, backend, deps)
	if err != nil {
		logger.Fatal("poll store", zap.Error(err))
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	pollMetrics := metrics.NewPollMetrics(reg, "quickpoll")

	jwtService := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.ExpireHours)
	jwtAuth := middleware.JWT(jwtService)

	// Auth
	authRepo := auth.NewRepository(pool)
	authHandler := auth.NewHandler(authRepo, jwtService, logger)

	// Polls
	pollService := polls.NewService(store, authRepo, polls.Options{
		Timeout:     cfg.Store.Timeout,
		MaxAttempts: cfg.Store.MaxAttempts,
	}, logger)
	pollService.SetMetrics(pollMetrics)
	if cfg.Activity.Enabled {
		pollService.SetActivityQueue(queue.NewQueue(rdb.Client, logger))
	}
	pollHandler := polls.NewHandler(pollService, logger)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg.Server.CORSAllowedOrigins))
	router.Use(middleware.Logger(logger))

	router.GET("/health", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := pool.Ping(ctx); err != nil {
			response.ServiceUnavailable(c, "database unavailable")
			return
		}
		if rdb != nil {
			if err := rdb.Healthy(ctx); err != nil {
				response.ServiceUnavailable(c, "redis unavailable")
				return
			}
		}
		response.OK(c, gin.H{"status": "ok", "store": backend})
	})
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))

	api := router.Group("/api")
	authGroup := api.Group("/auth")
	{
		authGroup.POST("/signup", authHandler.Signup)
		authGroup.POST("/login", authHandler.Login)
		authGroup.GET("/me", jwtAuth, authHandler.Me)
	}
	pollHandler.Register(api, jwtAuth)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Info("server listening", zap.String("port", cfg.Server.Port), zap.String("store", string(backend)))
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
