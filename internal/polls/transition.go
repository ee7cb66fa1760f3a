package polls

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/quickpoll/backend/internal/models"
)

const minOptions = 2

// CreateInput is the caller-supplied part of a new poll.
type CreateInput struct {
	Title              string
	Options            []string
	AllowMultipleVotes bool
}

// NewPoll builds a fresh poll owned by creator. Blank options are dropped before counting.
func NewPoll(creator uuid.UUID, in CreateInput, now time.Time) (*models.Poll, error) {
	title := strings.TrimSpace(in.Title)
	options := make([]models.Option, 0, len(in.Options))
	for _, text := range in.Options {
		if t := strings.TrimSpace(text); t != "" {
			options = append(options, models.Option{Text: t})
		}
	}
	if title == "" || len(options) < minOptions {
		return nil, invalid("title and at least 2 options are required")
	}
	return &models.Poll{
		ID:                 uuid.New(),
		Title:              title,
		Options:            options,
		Votes:              []models.Vote{},
		AllowMultipleVotes: in.AllowMultipleVotes,
		CreatedBy:          creator,
		CreatedAt:          now,
		Comments:           []models.Comment{},
	}, nil
}

// ApplyVote checks indices against p for user and, when accepted, appends one Vote per
// recorded index and increments the matching counters in place. It returns the recorded
// indices. p is left untouched on error.
func ApplyVote(p *models.Poll, user uuid.UUID, indices []int, now time.Time) ([]int, error) {
	if len(indices) == 0 {
		return nil, invalid("at least one option index is required")
	}
	requested := make([]int, 0, len(indices))
	seen := make(map[int]struct{}, len(indices))
	for _, i := range indices {
		if i < 0 || i >= len(p.Options) {
			return nil, invalid("invalid option index")
		}
		if _, dup := seen[i]; dup {
			continue
		}
		seen[i] = struct{}{}
		requested = append(requested, i)
	}

	prior := p.VoterIndices(user)
	var accepted []int
	if !p.AllowMultipleVotes {
		if len(prior) > 0 {
			return nil, ErrAlreadyVoted
		}
		if len(indices) != 1 {
			return nil, invalid("this poll accepts exactly one option")
		}
		accepted = requested
	} else {
		for _, i := range requested {
			if _, done := prior[i]; !done {
				accepted = append(accepted, i)
			}
		}
		if len(accepted) == 0 {
			return nil, ErrDuplicateVote
		}
	}

	for _, i := range accepted {
		p.Votes = append(p.Votes, models.Vote{User: user, OptionIndex: i, CreatedAt: now})
		p.Options[i].Votes++
	}
	return accepted, nil
}

// AppendComment adds a trimmed comment by user to p.
func AppendComment(p *models.Poll, user uuid.UUID, text string, now time.Time) (models.Comment, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return models.Comment{}, invalid("comment text is required")
	}
	c := models.Comment{ID: uuid.New(), User: user, Text: text, CreatedAt: now}
	p.Comments = append(p.Comments, c)
	return c, nil
}
