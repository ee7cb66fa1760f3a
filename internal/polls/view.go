package polls

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/quickpoll/backend/internal/models"
)

// PollView is the API representation of a poll with user references resolved.
type PollView struct {
	ID                 uuid.UUID         `json:"id"`
	Title              string            `json:"title"`
	Options            []models.Option   `json:"options"`
	Votes              []models.Vote     `json:"votes"`
	AllowMultipleVotes bool              `json:"allowMultipleVotes"`
	CreatedBy          models.UserPublic `json:"createdBy"`
	CreatedAt          time.Time         `json:"createdAt"`
	Comments           []CommentView     `json:"comments"`
}

// CommentView is a comment with its author resolved.
type CommentView struct {
	ID        uuid.UUID         `json:"id"`
	User      models.UserPublic `json:"user"`
	Text      string            `json:"text"`
	CreatedAt time.Time         `json:"createdAt"`
}

// Results is the per-option tally of a poll.
type Results struct {
	PollID             uuid.UUID      `json:"pollId"`
	Title              string         `json:"title"`
	AllowMultipleVotes bool           `json:"allowMultipleVotes"`
	TotalVotes         int            `json:"totalVotes"`
	Voters             int            `json:"voters"`
	Options            []OptionResult `json:"options"`
}

// OptionResult is one row of Results. Percent is of TotalVotes, rounded to one decimal.
type OptionResult struct {
	Index   int     `json:"index"`
	Text    string  `json:"text"`
	Votes   int     `json:"votes"`
	Percent float64 `json:"percent"`
}

// NewResults derives Results from the recorded votes of p.
func NewResults(p *models.Poll) *Results {
	tally := Tally(p)
	voters := make(map[uuid.UUID]struct{})
	for _, v := range p.Votes {
		voters[v.User] = struct{}{}
	}
	r := &Results{
		PollID:             p.ID,
		Title:              p.Title,
		AllowMultipleVotes: p.AllowMultipleVotes,
		TotalVotes:         len(p.Votes),
		Voters:             len(voters),
		Options:            make([]OptionResult, len(p.Options)),
	}
	for i, opt := range p.Options {
		row := OptionResult{Index: i, Text: opt.Text, Votes: tally[i]}
		if r.TotalVotes > 0 {
			row.Percent = math.Round(float64(tally[i])*1000/float64(r.TotalVotes)) / 10
		}
		r.Options[i] = row
	}
	return r
}

func (s *Service) view(ctx context.Context, p *models.Poll) (*PollView, error) {
	views, err := s.views(ctx, []*models.Poll{p})
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

func (s *Service) views(ctx context.Context, list []*models.Poll) ([]PollView, error) {
	users, err := s.lookup(ctx, list)
	if err != nil {
		return nil, err
	}
	out := make([]PollView, 0, len(list))
	for _, p := range list {
		v := PollView{
			ID:                 p.ID,
			Title:              p.Title,
			Options:            append([]models.Option{}, p.Options...),
			Votes:              append([]models.Vote{}, p.Votes...),
			AllowMultipleVotes: p.AllowMultipleVotes,
			CreatedBy:          userRef(users, p.CreatedBy),
			CreatedAt:          p.CreatedAt,
			Comments:           make([]CommentView, 0, len(p.Comments)),
		}
		for _, c := range p.Comments {
			v.Comments = append(v.Comments, CommentView{ID: c.ID, User: userRef(users, c.User), Text: c.Text, CreatedAt: c.CreatedAt})
		}
		out = append(out, v)
	}
	return out, nil
}

func (s *Service) lookup(ctx context.Context, list []*models.Poll) (map[uuid.UUID]models.UserPublic, error) {
	if s.users == nil || len(list) == 0 {
		return nil, nil
	}
	seen := make(map[uuid.UUID]struct{})
	var ids []uuid.UUID
	add := func(id uuid.UUID) {
		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
	}
	for _, p := range list {
		add(p.CreatedBy)
		for _, c := range p.Comments {
			add(c.User)
		}
	}
	var users map[uuid.UUID]models.UserPublic
	err := s.call(ctx, func(ctx context.Context) (err error) {
		users, err = s.users.LookupUsers(ctx, ids)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("resolve users: %w", err)
	}
	return users, nil
}

func userRef(users map[uuid.UUID]models.UserPublic, id uuid.UUID) models.UserPublic {
	if u, ok := users[id]; ok {
		return u
	}
	return models.UserPublic{ID: id}
}
