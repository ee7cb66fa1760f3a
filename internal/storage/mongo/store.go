// Package mongo stores each poll as one MongoDB document, updated with a version-filtered ReplaceOne.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"

	"github.com/quickpoll/backend/internal/models"
	"github.com/quickpoll/backend/internal/polls"
)

const collectionName = "polls"

type pollDocument struct {
	ID                 string            `bson:"_id"`
	Title              string            `bson:"title"`
	Options            []optionDocument  `bson:"options"`
	Votes              []voteDocument    `bson:"votes"`
	AllowMultipleVotes bool              `bson:"allowMultipleVotes"`
	CreatedBy          string            `bson:"createdBy"`
	CreatedAt          time.Time         `bson:"createdAt"`
	Comments           []commentDocument `bson:"comments"`
	Version            int64             `bson:"version"`
}

type optionDocument struct {
	Text  string `bson:"text"`
	Votes int    `bson:"votes"`
}

type voteDocument struct {
	User        string    `bson:"user"`
	OptionIndex int       `bson:"optionIndex"`
	CreatedAt   time.Time `bson:"createdAt"`
}

type commentDocument struct {
	ID        string    `bson:"id"`
	User      string    `bson:"user"`
	Text      string    `bson:"text"`
	CreatedAt time.Time `bson:"createdAt"`
}

// Store is a MongoDB-backed poll store.
type Store struct {
	coll   *mongo.Collection
	logger *zap.Logger
}

// Connect opens a client and verifies the primary is reachable.
func Connect(ctx context.Context, uri string) (*mongo.Client, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo ping: %w", err)
	}
	return client, nil
}

// NewStore creates a poll store on db.
func NewStore(db *mongo.Database, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{coll: db.Collection(collectionName), logger: logger}
}

// EnsureIndexes creates the createdAt index used by List.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	_, err := s.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "createdAt", Value: -1}},
	})
	return err
}

// Create inserts p with version 1.
func (s *Store) Create(ctx context.Context, p *models.Poll) error {
	p.Version = 1
	if _, err := s.coll.InsertOne(ctx, toDocument(p)); err != nil {
		return fmt.Errorf("insert poll: %w", err)
	}
	return nil
}

// List returns all polls, newest first.
func (s *Store) List(ctx context.Context) ([]*models.Poll, error) {
	cur, err := s.coll.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}))
	if err != nil {
		return nil, fmt.Errorf("find polls: %w", err)
	}
	var docs []pollDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("read polls: %w", err)
	}
	list := make([]*models.Poll, 0, len(docs))
	for i := range docs {
		p, err := fromDocument(&docs[i])
		if err != nil {
			return nil, err
		}
		list = append(list, p)
	}
	return list, nil
}

// Get returns a poll by ID.
func (s *Store) Get(ctx context.Context, id uuid.UUID) (*models.Poll, error) {
	var doc pollDocument
	err := s.coll.FindOne(ctx, bson.M{"_id": id.String()}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, polls.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find poll: %w", err)
	}
	return fromDocument(&doc)
}

// Replace swaps the document only when its version matches p.Version.
func (s *Store) Replace(ctx context.Context, p *models.Poll) error {
	doc := toDocument(p)
	doc.Version = p.Version + 1
	res, err := s.coll.ReplaceOne(ctx, bson.M{"_id": doc.ID, "version": p.Version}, doc)
	if err != nil {
		return fmt.Errorf("replace poll: %w", err)
	}
	if res.MatchedCount == 0 {
		n, err := s.coll.CountDocuments(ctx, bson.M{"_id": doc.ID})
		if err != nil {
			return fmt.Errorf("count poll: %w", err)
		}
		if n == 0 {
			return polls.ErrNotFound
		}
		return polls.ErrConflict
	}
	p.Version = doc.Version
	return nil
}

func toDocument(p *models.Poll) *pollDocument {
	doc := &pollDocument{
		ID:                 p.ID.String(),
		Title:              p.Title,
		Options:            make([]optionDocument, len(p.Options)),
		Votes:              make([]voteDocument, len(p.Votes)),
		AllowMultipleVotes: p.AllowMultipleVotes,
		CreatedBy:          p.CreatedBy.String(),
		CreatedAt:          p.CreatedAt,
		Comments:           make([]commentDocument, len(p.Comments)),
		Version:            p.Version,
	}
	for i, o := range p.Options {
		doc.Options[i] = optionDocument{Text: o.Text, Votes: o.Votes}
	}
	for i, v := range p.Votes {
		doc.Votes[i] = voteDocument{User: v.User.String(), OptionIndex: v.OptionIndex, CreatedAt: v.CreatedAt}
	}
	for i, c := range p.Comments {
		doc.Comments[i] = commentDocument{ID: c.ID.String(), User: c.User.String(), Text: c.Text, CreatedAt: c.CreatedAt}
	}
	return doc
}

func fromDocument(doc *pollDocument) (*models.Poll, error) {
	id, err := uuid.Parse(doc.ID)
	if err != nil {
		return nil, fmt.Errorf("decode poll id: %w", err)
	}
	creator, err := uuid.Parse(doc.CreatedBy)
	if err != nil {
		return nil, fmt.Errorf("decode poll %s creator: %w", doc.ID, err)
	}
	p := &models.Poll{
		ID:                 id,
		Title:              doc.Title,
		Options:            make([]models.Option, len(doc.Options)),
		Votes:              make([]models.Vote, len(doc.Votes)),
		AllowMultipleVotes: doc.AllowMultipleVotes,
		CreatedBy:          creator,
		CreatedAt:          doc.CreatedAt.UTC(),
		Comments:           make([]models.Comment, len(doc.Comments)),
		Version:            doc.Version,
	}
	for i, o := range doc.Options {
		p.Options[i] = models.Option{Text: o.Text, Votes: o.Votes}
	}
	for i, v := range doc.Votes {
		user, err := uuid.Parse(v.User)
		if err != nil {
			return nil, fmt.Errorf("decode poll %s vote: %w", doc.ID, err)
		}
		p.Votes[i] = models.Vote{User: user, OptionIndex: v.OptionIndex, CreatedAt: v.CreatedAt.UTC()}
	}
	for i, c := range doc.Comments {
		cid, err := uuid.Parse(c.ID)
		if err != nil {
			return nil, fmt.Errorf("decode poll %s comment: %w", doc.ID, err)
		}
		user, err := uuid.Parse(c.User)
		if err != nil {
			return nil, fmt.Errorf("decode poll %s comment author: %w", doc.ID, err)
		}
		p.Comments[i] = models.Comment{ID: cid, User: user, Text: c.Text, CreatedAt: c.CreatedAt.UTC()}
	}
	return p, nil
}
