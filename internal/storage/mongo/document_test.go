package mongo

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quickpoll/backend/internal/models"
)

func TestDocumentConversionKeepsVotesAndComments(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	voter := uuid.New()
	p := &models.Poll{
		ID:        uuid.New(),
		Title:     "Lunch?",
		Options:   []models.Option{{Text: "Pizza", Votes: 1}, {Text: "Sushi"}},
		Votes:     []models.Vote{{User: voter, OptionIndex: 0, CreatedAt: now}},
		CreatedBy: uuid.New(),
		CreatedAt: now,
		Comments:  []models.Comment{{ID: uuid.New(), User: voter, Text: "yum", CreatedAt: now}},
		Version:   4,
	}

	doc := toDocument(p)
	assert.Equal(t, p.ID.String(), doc.ID)
	assert.Equal(t, voter.String(), doc.Votes[0].User)

	back, err := fromDocument(doc)
	require.NoError(t, err)
	assert.Equal(t, p, back)
}

func TestFromDocumentRejectsBadIDs(t *testing.T) {
	_, err := fromDocument(&pollDocument{ID: "not-a-uuid"})
	assert.Error(t, err)
}
