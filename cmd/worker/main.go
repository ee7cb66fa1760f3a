// Package main runs the poll activity worker: tally audit and Kafka forwarding.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	mongodriver "go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/quickpoll/backend/config"
	"github.com/quickpoll/backend/internal/activity"
	"github.com/quickpoll/backend/internal/storage"
	mongostore "github.com/quickpoll/backend/internal/storage/mongo"
	"github.com/quickpoll/backend/internal/worker"
	"github.com/quickpoll/backend/pkg/database"
	"github.com/quickpoll/backend/pkg/queue"
	"github.com/quickpoll/backend/pkg/redis"
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
	if backend == storage.BackendMemory {
		logger.Fatal("worker cannot audit an in-memory store owned by another process")
	}

	ctx := context.Background()
	rdb, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
	if err != nil {
		logger.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()

	deps := storage.Deps{Redis: rdb.Client, Logger: logger}
	switch backend {
	case storage.BackendPostgres:
		pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), logger)
		if err != nil {
			logger.Fatal("database", zap.Error(err))
		}
		defer pool.Close()
		deps.Pool = pool
	case storage.BackendMongo:
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

	var forwarder worker.Forwarder
	if len(cfg.Kafka.Brokers) > 0 {
		publisher := activity.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		defer publisher.Close()
		forwarder = publisher
		logger.Info("forwarding activity to kafka", zap.Strings("brokers", cfg.Kafka.Brokers), zap.String("topic", cfg.Kafka.Topic))
	}

	jobQueue := queue.NewQueue(rdb.Client, logger)
	processor := worker.NewActivityProcessor(store, forwarder, jobQueue, cfg.Store.Timeout, logger)

	workerCtx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		processor.Run(workerCtx)
		close(done)
	}()
	logger.Info("worker started", zap.String("store", string(backend)))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	cancel()
	<-done
	logger.Info("worker stopped")
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
