// internal/app/store/spaces/spacestore.go
package spacestore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/tempohub/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Store struct {
	c *mongo.Collection
}

var (
	ErrDuplicateSubdomain = errors.New("a space with this subdomain already exists")
	ErrNotFound           = errors.New("space not found")
)

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("spaces")}
}

// Create inserts a new space.
func (s *Store) Create(ctx context.Context, sp models.Space) (models.Space, error) {
	now := time.Now().UTC()
	sp.ID = primitive.NewObjectID()
	sp.NameCI = text.Fold(sp.Name)
	if sp.Status == "" {
		sp.Status = "active"
	}
	sp.CreatedAt = now
	sp.UpdatedAt = now
	if _, err := s.c.InsertOne(ctx, sp); err != nil {
		if wafflemongo.IsDup(err) {
			return models.Space{}, ErrDuplicateSubdomain
		}
		return models.Space{}, err
	}
	return sp, nil
}

// GetByID retrieves a space by its ID.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.Space, error) {
	var sp models.Space
	err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&sp)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return models.Space{}, ErrNotFound
		}
		return models.Space{}, err
	}
	return sp, nil
}

// GetBySubdomain retrieves a space by its subdomain.
func (s *Store) GetBySubdomain(ctx context.Context, subdomain string) (models.Space, error) {
	var sp models.Space
	err := s.c.FindOne(ctx, bson.M{"subdomain": subdomain}).Decode(&sp)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return models.Space{}, ErrNotFound
		}
		return models.Space{}, err
	}
	return sp, nil
}

// GetFirst returns the first space (for single-space deployments).
// Returns ErrNotFound if no spaces exist.
func (s *Store) GetFirst(ctx context.Context) (models.Space, error) {
	var sp models.Space
	opts := options.FindOne().SetSort(bson.D{{Key: "created_at", Value: 1}})
	err := s.c.FindOne(ctx, bson.M{}, opts).Decode(&sp)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return models.Space{}, ErrNotFound
		}
		return models.Space{}, err
	}
	return sp, nil
}

// Count returns the number of spaces matching the given filter.
func (s *Store) Count(ctx context.Context, filter bson.M) (int64, error) {
	return s.c.CountDocuments(ctx, filter)
}
