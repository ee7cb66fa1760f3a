package polls

import (
	"context"

	"github.com/google/uuid"

	"github.com/quickpoll/backend/internal/models"
)

// Store persists poll documents. Implementations must return ErrNotFound for unknown ids
// and hand out copies that the caller may mutate freely.
type Store interface {
	// Create inserts p. The store sets p.Version to 1.
	Create(ctx context.Context, p *models.Poll) error
	// List returns every poll ordered by CreatedAt descending.
	List(ctx context.Context) ([]*models.Poll, error)
	// Get returns the current snapshot of a poll.
	Get(ctx context.Context, id uuid.UUID) (*models.Poll, error)
	// Replace overwrites the stored poll only if its version still equals p.Version,
	// then increments p.Version. A stale version yields ErrConflict.
	Replace(ctx context.Context, p *models.Poll) error
}

// UserDirectory resolves user ids to their public identity.
type UserDirectory interface {
	LookupUsers(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.UserPublic, error)
}
