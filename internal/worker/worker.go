package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/quickpoll/backend/internal/polls"
	"github.com/quickpoll/backend/pkg/queue"
)

// Forwarder ships activity to an external stream.
type Forwarder interface {
	Forward(ctx context.Context, a queue.PollActivityPayload) error
}

// ActivityProcessor audits polls touched by activity jobs and forwards the activity.
type ActivityProcessor struct {
	store     polls.Store
	forwarder Forwarder
	queue     *queue.Queue
	logger    *zap.Logger
	backoff   time.Duration
	timeout   time.Duration
}

const defaultCallTimeout = 5 * time.Second

// NewActivityProcessor creates an activity processor. forwarder may be nil.
// timeout bounds each store read and each forward.
func NewActivityProcessor(store polls.Store, forwarder Forwarder, q *queue.Queue, timeout time.Duration, logger *zap.Logger) *ActivityProcessor {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = defaultCallTimeout
	}
	return &ActivityProcessor{
		store:     store,
		forwarder: forwarder,
		queue:     q,
		logger:    logger,
		backoff:   queue.RetryBackoff,
		timeout:   timeout,
	}
}

// Process handles one activity job. Tally drift is logged, not retried.
func (p *ActivityProcessor) Process(ctx context.Context, job *queue.Job) error {
	payload, err := queue.DecodePollActivity(job)
	if err != nil {
		return err
	}
	log := p.logger.With(
		zap.String("job_id", job.ID),
		zap.String("poll_id", payload.PollID.String()),
		zap.String("kind", string(payload.Kind)),
	)

	getCtx, cancel := context.WithTimeout(ctx, p.timeout)
	poll, err := p.store.Get(getCtx, payload.PollID)
	cancel()
	if errors.Is(err, polls.ErrNotFound) {
		log.Warn("activity for unknown poll dropped")
		return nil
	}
	if err != nil {
		return fmt.Errorf("load poll: %w", err)
	}
	if err := polls.VerifyTally(poll); err != nil {
		log.Error("poll tally drift", zap.Error(err), zap.Int64("version", poll.Version))
	}

	if p.forwarder != nil {
		fwdCtx, cancel := context.WithTimeout(ctx, p.timeout)
		err := p.forwarder.Forward(fwdCtx, payload)
		cancel()
		if err != nil {
			return fmt.Errorf("forward activity: %w", err)
		}
	}
	log.Debug("activity processed", zap.Int("votes", len(poll.Votes)))
	return nil
}

// Run starts the worker loop: dequeue, process, retry on error.
func (p *ActivityProcessor) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("activity worker stopping")
			return
		default:
		}

		job, err := p.queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			p.logger.Warn("dequeue error", zap.Error(err))
			p.sleep(ctx)
			continue
		}
		if job == nil {
			continue
		}

		p.logger.Debug("processing job", zap.String("job_id", job.ID), zap.String("type", string(job.Type)))
		if err := p.Process(ctx, job); err != nil {
			p.logger.Error("job failed", zap.String("job_id", job.ID), zap.Error(err))
			if reErr := p.queue.Retry(context.WithoutCancel(ctx), job); reErr != nil {
				p.logger.Error("retry enqueue failed", zap.Error(reErr))
			}
			p.sleep(ctx)
		}
	}
}

func (p *ActivityProcessor) sleep(ctx context.Context) {
	t := time.NewTimer(p.backoff)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
