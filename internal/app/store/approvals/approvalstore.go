// internal/app/store/approvals/approvalstore.go
package approvalstore

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
	ErrNotFound = errors.New("timesheet approval not found")
	// ErrAlreadySubmitted means the week has a pending or approved
	// record; only rejected weeks may be submitted again.
	ErrAlreadySubmitted = errors.New("timesheet already submitted for this week")
	ErrNotPending       = errors.New("timesheet is not awaiting review")
)

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("timesheet_approvals")}
}

// Submit records a user's week for review. Resubmitting a rejected
// week reuses the record and moves it back to submitted; a week that
// is already submitted or approved is refused.
func (s *Store) Submit(ctx context.Context, userID, spaceID primitive.ObjectID, weekStart time.Time, totalMinutes int) (models.TimesheetApproval, error) {
	weekStart = weekStart.UTC()
	now := time.Now().UTC()

	var existing models.TimesheetApproval
	filter := bson.M{"user_id": userID, "week_start": weekStart}
	err := s.c.FindOne(ctx, filter).Decode(&existing)
	switch {
	case err == mongo.ErrNoDocuments:
		a := models.TimesheetApproval{
			ID:           primitive.NewObjectID(),
			UserID:       userID,
			SpaceID:      spaceID,
			WeekStart:    weekStart,
			TotalMinutes: totalMinutes,
			Status:       models.ApprovalStatusSubmitted,
			SubmittedAt:  now,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if _, err := s.c.InsertOne(ctx, a); err != nil {
			return models.TimesheetApproval{}, err
		}
		return a, nil
	case err != nil:
		return models.TimesheetApproval{}, err
	}

	if existing.Status != models.ApprovalStatusRejected {
		return models.TimesheetApproval{}, ErrAlreadySubmitted
	}

	update := bson.M{
		"$set": bson.M{
			"status":        models.ApprovalStatusSubmitted,
			"total_minutes": totalMinutes,
			"submitted_at":  now,
			"updated_at":    now,
		},
		"$unset": bson.M{
			"reviewer_id": "",
			"review_note": "",
			"reviewed_at": "",
		},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var a models.TimesheetApproval
	if err := s.c.FindOneAndUpdate(ctx, bson.M{"_id": existing.ID}, update, opts).Decode(&a); err != nil {
		return models.TimesheetApproval{}, err
	}
	return a, nil
}

// Review moves a submitted timesheet to approved or rejected. Only
// records in submitted state can be reviewed.
func (s *Store) Review(ctx context.Context, id, reviewerID primitive.ObjectID, status, note string) (models.TimesheetApproval, error) {
	if status != models.ApprovalStatusApproved && status != models.ApprovalStatusRejected {
		return models.TimesheetApproval{}, errors.New(`review status must be "approved"|"rejected"`)
	}
	now := time.Now().UTC()
	filter := bson.M{"_id": id, "status": models.ApprovalStatusSubmitted}
	update := bson.M{"$set": bson.M{
		"status":      status,
		"reviewer_id": reviewerID,
		"review_note": note,
		"reviewed_at": now,
		"updated_at":  now,
	}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var a models.TimesheetApproval
	if err := s.c.FindOneAndUpdate(ctx, filter, update, opts).Decode(&a); err != nil {
		if err == mongo.ErrNoDocuments {
			// Either the record is gone or it is not in submitted
			// state; distinguish for a precise error.
			if _, gerr := s.GetByID(ctx, id); gerr == ErrNotFound {
				return models.TimesheetApproval{}, ErrNotFound
			}
			return models.TimesheetApproval{}, ErrNotPending
		}
		return models.TimesheetApproval{}, err
	}
	return a, nil
}

// GetByID retrieves an approval record.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.TimesheetApproval, error) {
	var a models.TimesheetApproval
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&a); err != nil {
		if err == mongo.ErrNoDocuments {
			return models.TimesheetApproval{}, ErrNotFound
		}
		return models.TimesheetApproval{}, err
	}
	return a, nil
}

// GetByUserWeek retrieves a user's record for one week.
func (s *Store) GetByUserWeek(ctx context.Context, userID primitive.ObjectID, weekStart time.Time) (models.TimesheetApproval, error) {
	var a models.TimesheetApproval
	filter := bson.M{"user_id": userID, "week_start": weekStart.UTC()}
	if err := s.c.FindOne(ctx, filter).Decode(&a); err != nil {
		if err == mongo.ErrNoDocuments {
			return models.TimesheetApproval{}, ErrNotFound
		}
		return models.TimesheetApproval{}, err
	}
	return a, nil
}

// FindBySpace lists a space's approval records, newest submissions
// first. An empty status returns all.
func (s *Store) FindBySpace(ctx context.Context, spaceID primitive.ObjectID, status string) ([]models.TimesheetApproval, error) {
	filter := bson.M{"space_id": spaceID}
	if status != "" {
		filter["status"] = status
	}
	opts := options.Find().SetSort(bson.D{{Key: "submitted_at", Value: -1}})
	cur, err := s.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.TimesheetApproval
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// FindByUser lists one user's approval records, newest weeks first.
func (s *Store) FindByUser(ctx context.Context, userID primitive.ObjectID) ([]models.TimesheetApproval, error) {
	opts := options.Find().SetSort(bson.D{{Key: "week_start", Value: -1}})
	cur, err := s.c.Find(ctx, bson.M{"user_id": userID}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.TimesheetApproval
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
