package memory

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quickpoll/backend/internal/models"
	"github.com/quickpoll/backend/internal/polls"
)

func samplePoll(title string, at time.Time) *models.Poll {
	return &models.Poll{
		ID:        uuid.New(),
		Title:     title,
		Options:   []models.Option{{Text: "a"}, {Text: "b"}},
		CreatedBy: uuid.New(),
		CreatedAt: at,
	}
}

func TestCreateGetReturnsCopies(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	p := samplePoll("first", time.Now())
	require.NoError(t, s.Create(ctx, p))
	assert.Equal(t, int64(1), p.Version)

	got, err := s.Get(ctx, p.ID)
	require.NoError(t, err)
	got.Options[0].Votes = 99

	again, err := s.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, again.Options[0].Votes)
}

func TestGetMissing(t *testing.T) {
	_, err := NewStore().Get(context.Background(), uuid.New())
	assert.ErrorIs(t, err, polls.ErrNotFound)
}

func TestListNewestFirst(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	base := time.Now()
	old := samplePoll("old", base.Add(-time.Hour))
	mid := samplePoll("mid", base.Add(-time.Minute))
	recent := samplePoll("new", base)
	for _, p := range []*models.Poll{mid, recent, old} {
		require.NoError(t, s.Create(ctx, p))
	}

	list, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, []string{"new", "mid", "old"}, []string{list[0].Title, list[1].Title, list[2].Title})
}

func TestReplaceChecksVersion(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	p := samplePoll("v", time.Now())
	require.NoError(t, s.Create(ctx, p))

	a, _ := s.Get(ctx, p.ID)
	b, _ := s.Get(ctx, p.ID)

	a.Title = "a wins"
	require.NoError(t, s.Replace(ctx, a))
	assert.Equal(t, int64(2), a.Version)

	b.Title = "b loses"
	assert.ErrorIs(t, s.Replace(ctx, b), polls.ErrConflict)

	got, _ := s.Get(ctx, p.ID)
	assert.Equal(t, "a wins", got.Title)
}

func TestReplaceMissing(t *testing.T) {
	err := NewStore().Replace(context.Background(), samplePoll("x", time.Now()))
	assert.ErrorIs(t, err, polls.ErrNotFound)
}

func TestCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewStore().List(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
