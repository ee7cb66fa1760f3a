//go:build integration

package mongo

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quickpoll/backend/internal/models"
	"github.com/quickpoll/backend/internal/polls"
)

func TestMongoStore(t *testing.T) {
	uri := os.Getenv("TEST_MONGO_URI")
	if uri == "" {
		t.Skip("TEST_MONGO_URI not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client, err := Connect(ctx, uri)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Disconnect(context.Background()) })

	db := client.Database("polls_test_" + uuid.NewString()[:8])
	t.Cleanup(func() { _ = db.Drop(context.Background()) })

	s := NewStore(db, nil)
	require.NoError(t, s.EnsureIndexes(ctx))

	p := &models.Poll{
		ID:        uuid.New(),
		Title:     "Lunch?",
		Options:   []models.Option{{Text: "Pizza"}, {Text: "Sushi"}},
		CreatedBy: uuid.New(),
		CreatedAt: time.Now().UTC().Truncate(time.Millisecond),
	}
	require.NoError(t, s.Create(ctx, p))

	a, err := s.Get(ctx, p.ID)
	require.NoError(t, err)
	b, err := s.Get(ctx, p.ID)
	require.NoError(t, err)

	_, err = polls.ApplyVote(a, uuid.New(), []int{1}, time.Now().UTC())
	require.NoError(t, err)
	require.NoError(t, s.Replace(ctx, a))
	assert.ErrorIs(t, s.Replace(ctx, b), polls.ErrConflict)

	list, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, 1, list[0].Options[1].Votes)
	assert.NoError(t, polls.VerifyTally(list[0]))

	_, err = s.Get(ctx, uuid.New())
	assert.ErrorIs(t, err, polls.ErrNotFound)
}
