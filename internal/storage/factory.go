package storage

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"github.com/quickpoll/backend/internal/polls"
	"github.com/quickpoll/backend/internal/storage/memory"
	mongostore "github.com/quickpoll/backend/internal/storage/mongo"
	"github.com/quickpoll/backend/internal/storage/postgres"
	"github.com/quickpoll/backend/internal/storage/redisstore"
)

// Backend names a poll store implementation.
type Backend string

const (
	BackendPostgres Backend = "postgres"
	BackendRedis    Backend = "redis"
	BackendMongo    Backend = "mongo"
	BackendMemory   Backend = "memory"
)

// SupportedBackends lists every backend Open accepts.
func SupportedBackends() []Backend {
	return []Backend{BackendPostgres, BackendRedis, BackendMongo, BackendMemory}
}

// ParseBackend validates a backend name.
func ParseBackend(name string) (Backend, error) {
	b := Backend(name)
	for _, supported := range SupportedBackends() {
		if b == supported {
			return b, nil
		}
	}
	return "", fmt.Errorf("unsupported store backend: %s. Supported: %v", name, SupportedBackends())
}

// Deps carries the connections a backend may need. Only the one matching the backend must be set.
type Deps struct {
	Pool   *pgxpool.Pool
	Redis  *redis.Client
	Mongo  *mongo.Database
	Logger *zap.Logger
}

// Open builds the poll store for backend.
func Open(ctx context.Context, backend Backend, deps Deps) (polls.Store, error) {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.String("store", string(backend)))

	switch backend {
	case BackendPostgres:
		if deps.Pool == nil {
			return nil, fmt.Errorf("postgres store needs a connection pool")
		}
		return postgres.NewStore(deps.Pool, logger), nil
	case BackendRedis:
		if deps.Redis == nil {
			return nil, fmt.Errorf("redis store needs a redis client")
		}
		return redisstore.NewStore(deps.Redis, logger), nil
	case BackendMongo:
		if deps.Mongo == nil {
			return nil, fmt.Errorf("mongo store needs a database")
		}
		s := mongostore.NewStore(deps.Mongo, logger)
		if err := s.EnsureIndexes(ctx); err != nil {
			return nil, fmt.Errorf("mongo indexes: %w", err)
		}
		return s, nil
	case BackendMemory:
		logger.Warn("polls are kept in memory and lost on restart")
		return memory.NewStore(), nil
	default:
		return nil, fmt.Errorf("unsupported store backend: %s", backend)
	}
}
