package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	// QueueActivity is the Redis list key for poll activity jobs.
	QueueActivity = "worker:poll_activity"
	// QueueDLQ is the dead-letter queue for failed jobs after retries.
	QueueDLQ = "worker:dlq"
	// MaxRetries is the number of times to retry a job before moving to DLQ.
	MaxRetries = 3
	// RetryBackoff is the delay between retries.
	RetryBackoff = 10 * time.Second
	// PollTimeout bounds one blocking dequeue so the worker can notice shutdown.
	PollTimeout = 5 * time.Second
)

// JobType identifies the job kind.
type JobType string

const (
	JobTypePollActivity JobType = "poll_activity"
)

// ActivityKind names what happened to a poll.
type ActivityKind string

const (
	ActivityCreated   ActivityKind = "created"
	ActivityVoted     ActivityKind = "voted"
	ActivityCommented ActivityKind = "commented"
)

// PollActivityPayload is the payload for poll activity jobs.
type PollActivityPayload struct {
	PollID        uuid.UUID    `json:"poll_id"`
	UserID        uuid.UUID    `json:"user_id"`
	Kind          ActivityKind `json:"kind"`
	OptionIndexes []int        `json:"option_indexes,omitempty"`
	At            time.Time    `json:"at"`
}

// Job is a generic job envelope.
type Job struct {
	ID        string          `json:"id"`
	Type      JobType         `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	Attempt   int             `json:"attempt"`
	CreatedAt time.Time       `json:"created_at"`
}

// Queue enqueues and dequeues jobs via Redis.
type Queue struct {
	client *redis.Client
	logger *zap.Logger
}

// NewQueue creates a new Redis-backed job queue.
func NewQueue(client *redis.Client, logger *zap.Logger) *Queue {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Queue{client: client, logger: logger}
}

// EnqueuePollActivity enqueues a poll activity job.
func (q *Queue) EnqueuePollActivity(ctx context.Context, payload PollActivityPayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	job := Job{
		ID:        uuid.New().String(),
		Type:      JobTypePollActivity,
		Payload:   body,
		Attempt:   0,
		CreatedAt: time.Now(),
	}
	raw, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}
	if err := q.client.RPush(ctx, QueueActivity, raw).Err(); err != nil {
		return fmt.Errorf("rpush: %w", err)
	}
	q.logger.Debug("enqueued poll activity job",
		zap.String("job_id", job.ID),
		zap.String("poll_id", payload.PollID.String()),
		zap.String("kind", string(payload.Kind)),
	)
	return nil
}

// Dequeue waits up to PollTimeout for a job. It returns a nil job when none arrived.
func (q *Queue) Dequeue(ctx context.Context) (*Job, error) {
	result, err := q.client.BLPop(ctx, PollTimeout, QueueActivity).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	if len(result) < 2 {
		return nil, nil
	}
	var job Job
	if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
		q.logger.Warn("invalid job payload", zap.String("raw", result[1]), zap.Error(err))
		return nil, nil
	}
	return &job, nil
}

// Retry re-enqueues a job with incremented attempt. If attempt >= MaxRetries, pushes to DLQ instead.
func (q *Queue) Retry(ctx context.Context, job *Job) error {
	job.Attempt++
	raw, err := json.Marshal(job)
	if err != nil {
		return err
	}
	if job.Attempt >= MaxRetries {
		if err := q.client.RPush(ctx, QueueDLQ, raw).Err(); err != nil {
			q.logger.Error("dlq push failed", zap.Error(err), zap.String("job_id", job.ID))
			return err
		}
		q.logger.Warn("job moved to DLQ", zap.String("job_id", job.ID), zap.Int("attempt", job.Attempt))
		return nil
	}
	if err := q.client.RPush(ctx, QueueActivity, raw).Err(); err != nil {
		return err
	}
	q.logger.Info("job retried", zap.String("job_id", job.ID), zap.Int("attempt", job.Attempt))
	return nil
}

// DecodePollActivity unpacks a poll activity job payload.
func DecodePollActivity(job *Job) (PollActivityPayload, error) {
	var payload PollActivityPayload
	if job.Type != JobTypePollActivity {
		return payload, fmt.Errorf("unknown job type: %s", job.Type)
	}
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return payload, fmt.Errorf("unmarshal payload: %w", err)
	}
	return payload, nil
}
