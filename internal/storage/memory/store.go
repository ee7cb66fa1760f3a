// Package memory keeps polls in process memory. It backs tests and local development.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/quickpoll/backend/internal/models"
	"github.com/quickpoll/backend/internal/polls"
)

// Store is a mutex-guarded map of poll documents.
type Store struct {
	mu    sync.RWMutex
	polls map[uuid.UUID]*models.Poll
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{polls: make(map[uuid.UUID]*models.Poll)}
}

// Create inserts p with version 1.
func (s *Store) Create(ctx context.Context, p *models.Poll) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.polls[p.ID]; ok {
		return fmt.Errorf("poll %s already exists", p.ID)
	}
	p.Version = 1
	s.polls[p.ID] = p.Clone()
	return nil
}

// List returns copies of all polls, newest first.
func (s *Store) List(ctx context.Context) ([]*models.Poll, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	out := make([]*models.Poll, 0, len(s.polls))
	for _, p := range s.polls {
		out = append(out, p.Clone())
	}
	s.mu.RUnlock()
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// Get returns a copy of the poll.
func (s *Store) Get(ctx context.Context, id uuid.UUID) (*models.Poll, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.polls[id]
	if !ok {
		return nil, polls.ErrNotFound
	}
	return p.Clone(), nil
}

// Replace swaps in p if its version is current.
func (s *Store) Replace(ctx context.Context, p *models.Poll) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.polls[p.ID]
	if !ok {
		return polls.ErrNotFound
	}
	if cur.Version != p.Version {
		return polls.ErrConflict
	}
	p.Version++
	s.polls[p.ID] = p.Clone()
	return nil
}
