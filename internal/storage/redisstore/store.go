// Package redisstore keeps poll documents as JSON strings in Redis with a sorted index by creation time.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/quickpoll/backend/internal/models"
	"github.com/quickpoll/backend/internal/polls"
)

const (
	keyPrefix = "poll:"
	indexKey  = "polls:index"
)

// Store is a Redis-backed poll store. Replace uses WATCH/MULTI so a concurrent write aborts the transaction.
type Store struct {
	client *redis.Client
	logger *zap.Logger
}

// NewStore creates a Redis poll store.
func NewStore(client *redis.Client, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{client: client, logger: logger}
}

var errPollExists = errors.New("poll exists")

func pollKey(id uuid.UUID) string { return keyPrefix + id.String() }

// Create stores p and indexes it by creation time.
func (s *Store) Create(ctx context.Context, p *models.Poll) error {
	p.Version = 1
	raw, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal poll: %w", err)
	}
	key := pollKey(p.ID)
	err = s.client.Watch(ctx, func(tx *redis.Tx) error {
		n, err := tx.Exists(ctx, key).Result()
		if err != nil {
			return err
		}
		if n > 0 {
			return errPollExists
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, raw, 0)
			pipe.ZAdd(ctx, indexKey, redis.Z{Score: float64(p.CreatedAt.UnixMilli()), Member: p.ID.String()})
			return nil
		})
		return err
	}, key)
	if errors.Is(err, errPollExists) || errors.Is(err, redis.TxFailedErr) {
		return fmt.Errorf("poll %s already exists", p.ID)
	}
	if err != nil {
		return fmt.Errorf("store poll: %w", err)
	}
	return nil
}

// List returns all indexed polls, newest first.
func (s *Store) List(ctx context.Context) ([]*models.Poll, error) {
	ids, err := s.client.ZRevRange(ctx, indexKey, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("read index: %w", err)
	}
	if len(ids) == 0 {
		return []*models.Poll{}, nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = keyPrefix + id
	}
	vals, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("read polls: %w", err)
	}
	list := make([]*models.Poll, 0, len(vals))
	for i, v := range vals {
		str, ok := v.(string)
		if !ok {
			s.logger.Warn("indexed poll missing", zap.String("poll_id", ids[i]))
			continue
		}
		p, err := decode([]byte(str))
		if err != nil {
			return nil, err
		}
		list = append(list, p)
	}
	return list, nil
}

// Get returns a poll by ID.
func (s *Store) Get(ctx context.Context, id uuid.UUID) (*models.Poll, error) {
	raw, err := s.client.Get(ctx, pollKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, polls.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get poll: %w", err)
	}
	return decode(raw)
}

// Replace writes p if the stored version still equals p.Version.
func (s *Store) Replace(ctx context.Context, p *models.Poll) error {
	key := pollKey(p.ID)
	next := *p
	next.Version = p.Version + 1
	raw, err := json.Marshal(&next)
	if err != nil {
		return fmt.Errorf("marshal poll: %w", err)
	}

	err = s.client.Watch(ctx, func(tx *redis.Tx) error {
		cur, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return polls.ErrNotFound
		}
		if err != nil {
			return err
		}
		stored, err := decode(cur)
		if err != nil {
			return err
		}
		if stored.Version != p.Version {
			return polls.ErrConflict
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, raw, 0)
			return nil
		})
		return err
	}, key)

	switch {
	case err == nil:
		p.Version = next.Version
		return nil
	case errors.Is(err, redis.TxFailedErr):
		return polls.ErrConflict
	case errors.Is(err, polls.ErrNotFound), errors.Is(err, polls.ErrConflict):
		return err
	default:
		return fmt.Errorf("replace poll: %w", err)
	}
}

func decode(raw []byte) (*models.Poll, error) {
	var p models.Poll
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("decode poll: %w", err)
	}
	return &p, nil
}
