// Package postgres stores poll documents as JSONB rows guarded by a version column.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/quickpoll/backend/internal/models"
	"github.com/quickpoll/backend/internal/polls"
)

// Store handles poll persistence in PostgreSQL.
type Store struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// NewStore creates a PostgreSQL poll store. The polls table comes from pkg/database migrations.
func NewStore(pool *pgxpool.Pool, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{pool: pool, logger: logger}
}

// Create inserts a new poll.
func (s *Store) Create(ctx context.Context, p *models.Poll) error {
	p.Version = 1
	doc, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal poll: %w", err)
	}
	const query = `INSERT INTO polls (id, document, version, created_at) VALUES ($1, $2, $3, $4)`
	if _, err := s.pool.Exec(ctx, query, p.ID, doc, p.Version, p.CreatedAt); err != nil {
		return fmt.Errorf("insert poll: %w", err)
	}
	return nil
}

// List returns all polls, newest first.
func (s *Store) List(ctx context.Context) ([]*models.Poll, error) {
	rows, err := s.pool.Query(ctx, `SELECT document, version FROM polls ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("query polls: %w", err)
	}
	defer rows.Close()
	var list []*models.Poll
	for rows.Next() {
		var doc []byte
		var version int64
		if err := rows.Scan(&doc, &version); err != nil {
			return nil, fmt.Errorf("scan poll: %w", err)
		}
		p, err := decode(doc, version)
		if err != nil {
			return nil, err
		}
		list = append(list, p)
	}
	return list, rows.Err()
}

// Get returns a poll by ID.
func (s *Store) Get(ctx context.Context, id uuid.UUID) (*models.Poll, error) {
	var doc []byte
	var version int64
	err := s.pool.QueryRow(ctx, `SELECT document, version FROM polls WHERE id = $1`, id).Scan(&doc, &version)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, polls.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get poll: %w", err)
	}
	return decode(doc, version)
}

// Replace writes p only if the row still carries p.Version.
func (s *Store) Replace(ctx context.Context, p *models.Poll) error {
	doc, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal poll: %w", err)
	}
	const query = `UPDATE polls SET document = $3, version = version + 1 WHERE id = $1 AND version = $2`
	tag, err := s.pool.Exec(ctx, query, p.ID, p.Version, doc)
	if err != nil {
		return fmt.Errorf("update poll: %w", err)
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := s.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM polls WHERE id = $1)`, p.ID).Scan(&exists); err != nil {
			return fmt.Errorf("check poll: %w", err)
		}
		if !exists {
			return polls.ErrNotFound
		}
		s.logger.Debug("stale poll version", zap.String("poll_id", p.ID.String()), zap.Int64("version", p.Version))
		return polls.ErrConflict
	}
	p.Version++
	return nil
}

func decode(doc []byte, version int64) (*models.Poll, error) {
	var p models.Poll
	if err := json.Unmarshal(doc, &p); err != nil {
		return nil, fmt.Errorf("decode poll: %w", err)
	}
	p.Version = version
	return &p, nil
}
