package polls

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/quickpoll/backend/internal/metrics"
	"github.com/quickpoll/backend/internal/models"
	"github.com/quickpoll/backend/pkg/queue"
)

const (
	defaultTimeout     = 5 * time.Second
	defaultMaxAttempts = 3
	activityTimeout    = 2 * time.Second
)

// ActivityQueue receives a job for every successful poll mutation.
type ActivityQueue interface {
	EnqueuePollActivity(ctx context.Context, payload queue.PollActivityPayload) error
}

// Options bounds store access.
type Options struct {
	Timeout     time.Duration // per store call
	MaxAttempts int           // read-check-write attempts before ErrConflict
}

// Service implements poll creation, retrieval, voting and commenting on top of a Store.
type Service struct {
	store       Store
	users       UserDirectory
	activity    ActivityQueue
	metrics     *metrics.PollMetrics
	logger      *zap.Logger
	timeout     time.Duration
	maxAttempts int
	now         func() time.Time
}

// NewService creates a poll service. users may be nil, in which case identities carry ids only.
func NewService(store Store, users UserDirectory, opts Options, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.MaxAttempts < 1 {
		opts.MaxAttempts = defaultMaxAttempts
	}
	return &Service{
		store:       store,
		users:       users,
		logger:      logger,
		timeout:     opts.Timeout,
		maxAttempts: opts.MaxAttempts,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// SetActivityQueue enables activity jobs after each mutation.
func (s *Service) SetActivityQueue(q ActivityQueue) { s.activity = q }

// SetMetrics attaches Prometheus counters.
func (s *Service) SetMetrics(m *metrics.PollMetrics) { s.metrics = m }

// Create validates in and stores a new poll owned by caller.
func (s *Service) Create(ctx context.Context, caller uuid.UUID, in CreateInput) (*PollView, error) {
	p, err := NewPoll(caller, in, s.now())
	if err != nil {
		return nil, err
	}
	if err := s.call(ctx, func(ctx context.Context) error { return s.store.Create(ctx, p) }); err != nil {
		return nil, fmt.Errorf("create poll: %w", err)
	}
	s.logger.Info("poll created",
		zap.String("poll_id", p.ID.String()),
		zap.String("user_id", caller.String()),
		zap.Int("options", len(p.Options)),
		zap.Bool("multiple", p.AllowMultipleVotes),
	)
	s.publish(ctx, queue.PollActivityPayload{PollID: p.ID, UserID: caller, Kind: queue.ActivityCreated, At: p.CreatedAt})
	return s.view(ctx, p)
}

// List returns every poll, newest first.
func (s *Service) List(ctx context.Context) ([]PollView, error) {
	var list []*models.Poll
	err := s.call(ctx, func(ctx context.Context) (err error) {
		list, err = s.store.List(ctx)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("list polls: %w", err)
	}
	return s.views(ctx, list)
}

// Get returns one poll with resolved identities.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*PollView, error) {
	p, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.view(ctx, p)
}

// Results returns the derived per-option tally of a poll.
func (s *Service) Results(ctx context.Context, id uuid.UUID) (*Results, error) {
	p, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return NewResults(p), nil
}

// Vote records caller's choice of indices on poll id.
func (s *Service) Vote(ctx context.Context, caller, id uuid.UUID, indices []int) (*PollView, error) {
	start := time.Now()
	defer s.metrics.ObserveVote(start)

	var recorded []int
	p, err := s.mutate(ctx, id, func(p *models.Poll) (err error) {
		recorded, err = ApplyVote(p, caller, indices, s.now())
		return err
	})
	if err != nil {
		s.metrics.VoteRejected(rejectReason(err))
		return nil, err
	}
	s.metrics.VoteRecorded(p.AllowMultipleVotes, len(recorded))
	s.logger.Debug("vote recorded",
		zap.String("poll_id", id.String()),
		zap.String("user_id", caller.String()),
		zap.Ints("options", recorded),
	)
	s.publish(ctx, queue.PollActivityPayload{PollID: id, UserID: caller, Kind: queue.ActivityVoted, OptionIndexes: recorded, At: s.now()})
	return s.view(ctx, p)
}

// Comment appends a comment by caller to poll id.
func (s *Service) Comment(ctx context.Context, caller, id uuid.UUID, text string) (*PollView, error) {
	// Reject blank text before touching the store.
	if _, err := AppendComment(&models.Poll{}, caller, text, s.now()); err != nil {
		return nil, err
	}
	p, err := s.mutate(ctx, id, func(p *models.Poll) error {
		_, err := AppendComment(p, caller, text, s.now())
		return err
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, queue.PollActivityPayload{PollID: id, UserID: caller, Kind: queue.ActivityCommented, At: s.now()})
	return s.view(ctx, p)
}

func (s *Service) load(ctx context.Context, id uuid.UUID) (*models.Poll, error) {
	var p *models.Poll
	err := s.call(ctx, func(ctx context.Context) (err error) {
		p, err = s.store.Get(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

// mutate runs read, fn, conditional write for one poll, restarting from a fresh read when
// another writer got there first.
func (s *Service) mutate(ctx context.Context, id uuid.UUID, fn func(p *models.Poll) error) (*models.Poll, error) {
	for attempt := 1; ; attempt++ {
		p, err := s.load(ctx, id)
		if err != nil {
			return nil, err
		}
		if err := fn(p); err != nil {
			return nil, err
		}
		err = s.call(ctx, func(ctx context.Context) error { return s.store.Replace(ctx, p) })
		if err == nil {
			return p, nil
		}
		if !errors.Is(err, ErrConflict) {
			return nil, err
		}
		s.metrics.Conflict()
		if attempt >= s.maxAttempts {
			s.logger.Warn("poll update gave up after conflicts",
				zap.String("poll_id", id.String()),
				zap.Int("attempts", attempt),
			)
			return nil, fmt.Errorf("poll %s: %w", id, ErrConflict)
		}
		s.logger.Debug("poll update conflict, retrying", zap.String("poll_id", id.String()), zap.Int("attempt", attempt))
	}
}

// call runs fn under the store deadline and maps an expired deadline to ErrStorageTimeout.
func (s *Service) call(ctx context.Context, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	err := fn(ctx)
	if err == nil || errors.Is(err, ErrNotFound) || errors.Is(err, ErrConflict) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		s.metrics.Timeout()
		return fmt.Errorf("%w: %v", ErrStorageTimeout, err)
	}
	return err
}

func (s *Service) publish(ctx context.Context, payload queue.PollActivityPayload) {
	if s.activity == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), activityTimeout)
	defer cancel()
	if err := s.activity.EnqueuePollActivity(ctx, payload); err != nil {
		s.metrics.ActivityEnqueueFailed()
		s.logger.Warn("enqueue poll activity",
			zap.String("poll_id", payload.PollID.String()),
			zap.String("kind", string(payload.Kind)),
			zap.Error(err),
		)
	}
}

func rejectReason(err error) string {
	switch {
	case errors.Is(err, ErrValidation):
		return "invalid"
	case errors.Is(err, ErrAlreadyVoted):
		return "already_voted"
	case errors.Is(err, ErrDuplicateVote):
		return "duplicate"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrConflict):
		return "conflict"
	case errors.Is(err, ErrStorageTimeout):
		return "timeout"
	default:
		return "error"
	}
}
