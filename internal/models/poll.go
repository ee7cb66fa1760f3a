package models

import (
	"time"

	"github.com/google/uuid"
)

// Poll is the stored poll document. Options, Votes and Comments are embedded so that a
// vote and its counter increment always land in the same write.
type Poll struct {
	ID                 uuid.UUID `json:"id"`
	Title              string    `json:"title"`
	Options            []Option  `json:"options"`
	Votes              []Vote    `json:"votes"`
	AllowMultipleVotes bool      `json:"allowMultipleVotes"`
	CreatedBy          uuid.UUID `json:"createdBy"`
	CreatedAt          time.Time `json:"createdAt"`
	Comments           []Comment `json:"comments"`
	Version            int64     `json:"version"`
}

// Option is one choice of a poll; its position in Poll.Options is its index.
type Option struct {
	Text  string `json:"text"`
	Votes int    `json:"votes"`
}

// Vote records that User picked the option at OptionIndex.
type Vote struct {
	User        uuid.UUID `json:"user"`
	OptionIndex int       `json:"optionIndex"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Comment is an append-only remark on a poll.
type Comment struct {
	ID        uuid.UUID `json:"id"`
	User      uuid.UUID `json:"user"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"createdAt"`
}

// Clone returns a deep copy so callers can mutate it without touching stored state.
func (p *Poll) Clone() *Poll {
	if p == nil {
		return nil
	}
	cp := *p
	cp.Options = append([]Option(nil), p.Options...)
	cp.Votes = append([]Vote(nil), p.Votes...)
	cp.Comments = append([]Comment(nil), p.Comments...)
	return &cp
}

// VoterIndices returns the option indices user has already voted for.
func (p *Poll) VoterIndices(user uuid.UUID) map[int]struct{} {
	out := make(map[int]struct{})
	for _, v := range p.Votes {
		if v.User == user {
			out[v.OptionIndex] = struct{}{}
		}
	}
	return out
}
