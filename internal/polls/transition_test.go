package polls

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quickpoll/backend/internal/models"
)

var now = time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

func mustPoll(t *testing.T, multiple bool, options ...string) *models.Poll {
	t.Helper()
	p, err := NewPoll(uuid.New(), CreateInput{Title: "poll", Options: options, AllowMultipleVotes: multiple}, now)
	require.NoError(t, err)
	return p
}

func TestNewPoll(t *testing.T) {
	creator := uuid.New()
	p, err := NewPoll(creator, CreateInput{Title: "  Lunch? ", Options: []string{" Pizza ", "", "   ", "Salad", "Pizza"}}, now)
	require.NoError(t, err)

	assert.Equal(t, "Lunch?", p.Title)
	assert.Equal(t, []models.Option{{Text: "Pizza"}, {Text: "Salad"}, {Text: "Pizza"}}, p.Options)
	assert.Empty(t, p.Votes)
	assert.Empty(t, p.Comments)
	assert.Equal(t, creator, p.CreatedBy)
	assert.Equal(t, now, p.CreatedAt)
	assert.False(t, p.AllowMultipleVotes)
}

func TestNewPollRejects(t *testing.T) {
	cases := map[string]CreateInput{
		"one option":          {Title: "Q", Options: []string{"A"}},
		"blank options":       {Title: "Q", Options: []string{"A", "  "}},
		"empty title":         {Title: "   ", Options: []string{"A", "B"}},
		"no options provided": {Title: "Q"},
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := NewPoll(uuid.New(), in, now)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}
}

func TestApplyVoteSingleMode(t *testing.T) {
	p := mustPoll(t, false, "A", "B")
	u1, u2 := uuid.New(), uuid.New()

	got, err := ApplyVote(p, u1, []int{0}, now)
	require.NoError(t, err)
	assert.Equal(t, []int{0}, got)
	assert.Equal(t, 1, p.Options[0].Votes)

	_, err = ApplyVote(p, u1, []int{1}, now)
	assert.ErrorIs(t, err, ErrAlreadyVoted)

	_, err = ApplyVote(p, u2, []int{1}, now)
	require.NoError(t, err)

	assert.Equal(t, []int{1, 1}, Tally(p))
	assert.NoError(t, VerifyTally(p))
}

func TestApplyVoteSingleModeBatch(t *testing.T) {
	p := mustPoll(t, false, "A", "B", "C")
	u := uuid.New()

	_, err := ApplyVote(p, u, []int{0, 1}, now)
	assert.ErrorIs(t, err, ErrValidation)
	assert.Empty(t, p.Votes)

	_, err = ApplyVote(p, u, []int{2, 2}, now)
	assert.ErrorIs(t, err, ErrValidation)
	assert.Empty(t, p.Votes)

	got, err := ApplyVote(p, u, []int{2}, now)
	require.NoError(t, err)
	assert.Equal(t, []int{2}, got)

	// Once voted, the already-voted rule wins over batch size.
	_, err = ApplyVote(p, u, []int{0, 1}, now)
	assert.ErrorIs(t, err, ErrAlreadyVoted)
}

func TestApplyVoteMultiMode(t *testing.T) {
	p := mustPoll(t, true, "A", "B", "C")
	u := uuid.New()

	got, err := ApplyVote(p, u, []int{0, 1}, now)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1}, got)

	got, err = ApplyVote(p, u, []int{0, 2}, now)
	require.NoError(t, err)
	assert.Equal(t, []int{2}, got)

	_, err = ApplyVote(p, u, []int{2, 0}, now)
	assert.ErrorIs(t, err, ErrDuplicateVote)

	assert.Equal(t, []int{1, 1, 1}, Tally(p))
	assert.Len(t, p.Votes, 3)
	assert.NoError(t, VerifyTally(p))
}

func TestApplyVoteRejectsWholeBatchOnBadIndex(t *testing.T) {
	p := mustPoll(t, true, "A", "B")
	for _, idx := range [][]int{{0, 2}, {-1}, {}, nil} {
		_, err := ApplyVote(p, uuid.New(), idx, now)
		assert.ErrorIs(t, err, ErrValidation, "%v", idx)
	}
	assert.Empty(t, p.Votes)
	assert.Equal(t, 0, p.Options[0].Votes)
}

func TestAppendComment(t *testing.T) {
	p := mustPoll(t, false, "A", "B")
	u := uuid.New()

	c, err := AppendComment(p, u, "  nice  ", now)
	require.NoError(t, err)
	assert.Equal(t, "nice", c.Text)
	require.Len(t, p.Comments, 1)
	assert.Equal(t, u, p.Comments[0].User)

	_, err = AppendComment(p, u, " \n\t", now)
	assert.ErrorIs(t, err, ErrValidation)
	assert.Len(t, p.Comments, 1)
}

func TestVerifyTallyDetectsDrift(t *testing.T) {
	p := mustPoll(t, false, "A", "B")
	_, err := ApplyVote(p, uuid.New(), []int{0}, now)
	require.NoError(t, err)

	p.Options[1].Votes = 1
	assert.ErrorIs(t, VerifyTally(p), ErrTallyDrift)

	p.Options[1].Votes = 0
	p.Votes = append(p.Votes, models.Vote{User: uuid.New(), OptionIndex: 1})
	assert.ErrorIs(t, VerifyTally(p), ErrTallyDrift)
}

func TestNewResults(t *testing.T) {
	p := mustPoll(t, true, "A", "B", "C")
	u1, u2 := uuid.New(), uuid.New()
	_, _ = ApplyVote(p, u1, []int{0, 1}, now)
	_, _ = ApplyVote(p, u2, []int{0}, now)

	r := NewResults(p)
	assert.Equal(t, 3, r.TotalVotes)
	assert.Equal(t, 2, r.Voters)
	assert.Equal(t, OptionResult{Index: 0, Text: "A", Votes: 2, Percent: 66.7}, r.Options[0])
	assert.Equal(t, 33.3, r.Options[1].Percent)
	assert.Equal(t, 0.0, r.Options[2].Percent)
}
