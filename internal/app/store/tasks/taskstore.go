// internal/app/store/tasks/taskstore.go
package taskstore

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/dalemusser/tempohub/internal/domain/models"
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
	ErrNotFound  = errors.New("task not found")
	errBadStatus = errors.New("unknown task status")
)

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("tasks")}
}

// Create inserts a new task. New tasks land at the end of their lane.
func (s *Store) Create(ctx context.Context, t models.Task) (models.Task, error) {
	now := time.Now().UTC()
	t.ID = primitive.NewObjectID()
	t.Title = strings.TrimSpace(t.Title)
	t.TitleCI = text.Fold(t.Title)
	if t.Status == "" {
		t.Status = models.TaskStatusTodo
	}
	if !models.ValidTaskStatus(t.Status) {
		return models.Task{}, errBadStatus
	}

	pos, err := s.nextPosition(ctx, t.ProjectID, t.Status)
	if err != nil {
		return models.Task{}, err
	}
	t.Position = pos
	t.CreatedAt = now
	t.UpdatedAt = now

	if _, err := s.c.InsertOne(ctx, t); err != nil {
		return models.Task{}, err
	}
	return t, nil
}

// GetByID retrieves a task.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.Task, error) {
	var t models.Task
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&t); err != nil {
		if err == mongo.ErrNoDocuments {
			return models.Task{}, ErrNotFound
		}
		return models.Task{}, err
	}
	return t, nil
}

// Update applies title and description changes.
func (s *Store) Update(ctx context.Context, id primitive.ObjectID, title, description string) error {
	title = strings.TrimSpace(title)
	res, err := s.c.UpdateByID(ctx, id, bson.M{"$set": bson.M{
		"title":       title,
		"title_ci":    text.Fold(title),
		"description": description,
		"updated_at":  time.Now().UTC(),
	}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// Move changes a task's lane and position within it.
func (s *Store) Move(ctx context.Context, id primitive.ObjectID, status string, position int) error {
	if !models.ValidTaskStatus(status) {
		return errBadStatus
	}
	res, err := s.c.UpdateByID(ctx, id, bson.M{"$set": bson.M{
		"status":     status,
		"position":   position,
		"updated_at": time.Now().UTC(),
	}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// Assign sets or clears the task assignee. A nil userID unassigns.
func (s *Store) Assign(ctx context.Context, id primitive.ObjectID, userID *primitive.ObjectID) error {
	update := bson.M{"$set": bson.M{"updated_at": time.Now().UTC()}}
	if userID == nil {
		update["$unset"] = bson.M{"assignee": ""}
	} else {
		update["$set"].(bson.M)["assignee"] = *userID
	}
	res, err := s.c.UpdateByID(ctx, id, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a task.
func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// FindByProject lists a project's tasks ordered by lane position.
// An empty status returns all lanes.
func (s *Store) FindByProject(ctx context.Context, projectID primitive.ObjectID, status string) ([]models.Task, error) {
	filter := bson.M{"project_id": projectID}
	if status != "" {
		filter["status"] = status
	}
	opts := options.Find().SetSort(bson.D{
		{Key: "status", Value: 1},
		{Key: "position", Value: 1},
	})
	cur, err := s.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.Task
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) nextPosition(ctx context.Context, projectID primitive.ObjectID, status string) (int, error) {
	var last models.Task
	opts := options.FindOne().SetSort(bson.D{{Key: "position", Value: -1}})
	err := s.c.FindOne(ctx, bson.M{"project_id": projectID, "status": status}, opts).Decode(&last)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return 0, nil
		}
		return 0, err
	}
	return last.Position + 1, nil
}
