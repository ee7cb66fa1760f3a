package storage

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quickpoll/backend/internal/storage/memory"
	"github.com/quickpoll/backend/internal/storage/redisstore"
)

func TestParseBackend(t *testing.T) {
	for _, name := range []string{"postgres", "redis", "mongo", "memory"} {
		b, err := ParseBackend(name)
		require.NoError(t, err)
		assert.Equal(t, Backend(name), b)
	}
	_, err := ParseBackend("sqlite")
	assert.Error(t, err)
}

func TestOpenSelectsBackend(t *testing.T) {
	ctx := context.Background()

	s, err := Open(ctx, BackendMemory, Deps{})
	require.NoError(t, err)
	assert.IsType(t, &memory.Store{}, s)

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()
	s, err = Open(ctx, BackendRedis, Deps{Redis: client})
	require.NoError(t, err)
	assert.IsType(t, &redisstore.Store{}, s)
}

func TestOpenRequiresConnection(t *testing.T) {
	ctx := context.Background()
	for _, b := range []Backend{BackendPostgres, BackendRedis, BackendMongo} {
		_, err := Open(ctx, b, Deps{})
		assert.Error(t, err, string(b))
	}
}
