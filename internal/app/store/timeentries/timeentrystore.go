// internal/app/store/timeentries/timeentrystore.go
package timeentrystore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/tempohub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Store struct {
	c *mongo.Collection
}

var (
	ErrNotFound   = errors.New("time entry not found")
	ErrNotRunning = errors.New("no running timer")
	errBadRange   = errors.New("entry must end after it starts")
)

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("time_entries")}
}

// StartTimer stops the user's running timer, if any, and opens a new
// entry with EndedAt unset. The one-running-timer rule is enforced
// here so callers cannot leave two timers open.
func (s *Store) StartTimer(ctx context.Context, e models.TimeEntry) (models.TimeEntry, error) {
	now := time.Now().UTC()
	if _, err := s.StopRunning(ctx, e.UserID, now); err != nil && err != ErrNotRunning {
		return models.TimeEntry{}, err
	}

	e.ID = primitive.NewObjectID()
	e.StartedAt = now
	e.EndedAt = nil
	e.CreatedAt = now
	e.UpdatedAt = now
	if _, err := s.c.InsertOne(ctx, e); err != nil {
		return models.TimeEntry{}, err
	}
	return e, nil
}

// StopRunning closes the user's running entry at the given time and
// returns it. Returns ErrNotRunning when no timer is open.
func (s *Store) StopRunning(ctx context.Context, userID primitive.ObjectID, at time.Time) (models.TimeEntry, error) {
	at = at.UTC()
	filter := bson.M{"user_id": userID, "ended_at": bson.M{"$exists": false}}
	update := bson.M{"$set": bson.M{"ended_at": at, "updated_at": at}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var e models.TimeEntry
	if err := s.c.FindOneAndUpdate(ctx, filter, update, opts).Decode(&e); err != nil {
		if err == mongo.ErrNoDocuments {
			return models.TimeEntry{}, ErrNotRunning
		}
		return models.TimeEntry{}, err
	}
	return e, nil
}

// GetRunning returns the user's open timer, or ErrNotRunning.
func (s *Store) GetRunning(ctx context.Context, userID primitive.ObjectID) (models.TimeEntry, error) {
	var e models.TimeEntry
	filter := bson.M{"user_id": userID, "ended_at": bson.M{"$exists": false}}
	if err := s.c.FindOne(ctx, filter).Decode(&e); err != nil {
		if err == mongo.ErrNoDocuments {
			return models.TimeEntry{}, ErrNotRunning
		}
		return models.TimeEntry{}, err
	}
	return e, nil
}

// CreateManual inserts a completed entry with explicit start and end.
func (s *Store) CreateManual(ctx context.Context, e models.TimeEntry) (models.TimeEntry, error) {
	if e.EndedAt == nil || !e.EndedAt.After(e.StartedAt) {
		return models.TimeEntry{}, errBadRange
	}
	now := time.Now().UTC()
	e.ID = primitive.NewObjectID()
	e.CreatedAt = now
	e.UpdatedAt = now
	if _, err := s.c.InsertOne(ctx, e); err != nil {
		return models.TimeEntry{}, err
	}
	return e, nil
}

// GetByID retrieves a time entry.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.TimeEntry, error) {
	var e models.TimeEntry
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&e); err != nil {
		if err == mongo.ErrNoDocuments {
			return models.TimeEntry{}, ErrNotFound
		}
		return models.TimeEntry{}, err
	}
	return e, nil
}

// Update changes a completed entry's note and time range.
func (s *Store) Update(ctx context.Context, id primitive.ObjectID, note string, startedAt, endedAt time.Time) error {
	if !endedAt.After(startedAt) {
		return errBadRange
	}
	res, err := s.c.UpdateByID(ctx, id, bson.M{"$set": bson.M{
		"note":       note,
		"started_at": startedAt.UTC(),
		"ended_at":   endedAt.UTC(),
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

// Delete removes a time entry.
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

// FindByUserRange lists a user's entries that started within
// [from, to), newest first.
func (s *Store) FindByUserRange(ctx context.Context, userID primitive.ObjectID, from, to time.Time) ([]models.TimeEntry, error) {
	filter := bson.M{
		"user_id":    userID,
		"started_at": bson.M{"$gte": from.UTC(), "$lt": to.UTC()},
	}
	opts := options.Find().SetSort(bson.D{{Key: "started_at", Value: -1}})
	cur, err := s.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.TimeEntry
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// FindByProjectRange lists a project's entries that started within
// [from, to), newest first.
func (s *Store) FindByProjectRange(ctx context.Context, projectID primitive.ObjectID, from, to time.Time) ([]models.TimeEntry, error) {
	filter := bson.M{
		"project_id": projectID,
		"started_at": bson.M{"$gte": from.UTC(), "$lt": to.UTC()},
	}
	opts := options.Find().SetSort(bson.D{{Key: "started_at", Value: -1}})
	cur, err := s.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.TimeEntry
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ProjectTotalMinutes sums completed tracked minutes for a project.
func (s *Store) ProjectTotalMinutes(ctx context.Context, projectID primitive.ObjectID) (int, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{
			"project_id": projectID,
			"ended_at":   bson.M{"$exists": true},
		}}},
		{{Key: "$project", Value: bson.M{
			"minutes": bson.M{"$divide": bson.A{
				bson.M{"$subtract": bson.A{"$ended_at", "$started_at"}},
				60000,
			}},
		}}},
		{{Key: "$group", Value: bson.M{
			"_id":   nil,
			"total": bson.M{"$sum": "$minutes"},
		}}},
	}
	cur, err := s.c.Aggregate(ctx, pipeline)
	if err != nil {
		return 0, err
	}
	defer cur.Close(ctx)

	var rows []struct {
		Total float64 `bson:"total"`
	}
	if err := cur.All(ctx, &rows); err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0, nil
	}
	return int(rows[0].Total), nil
}

// StaleRunning returns open timers that started before the cutoff.
// Used by the timer cleanup worker to auto-stop forgotten timers.
func (s *Store) StaleRunning(ctx context.Context, cutoff time.Time) ([]models.TimeEntry, error) {
	filter := bson.M{
		"ended_at":   bson.M{"$exists": false},
		"started_at": bson.M{"$lt": cutoff.UTC()},
	}
	cur, err := s.c.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.TimeEntry
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CloseEntry force-closes a specific open entry at the given time.
func (s *Store) CloseEntry(ctx context.Context, id primitive.ObjectID, at time.Time) error {
	at = at.UTC()
	res, err := s.c.UpdateOne(ctx,
		bson.M{"_id": id, "ended_at": bson.M{"$exists": false}},
		bson.M{"$set": bson.M{"ended_at": at, "updated_at": at}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}
