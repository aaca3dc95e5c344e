// internal/app/store/projectperms/permstore.go
package permstore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/tempohub/internal/app/permissions"
	"github.com/dalemusser/tempohub/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Store struct {
	c *mongo.Collection
}

var (
	// ErrNotFound means the user has no record for the project. This
	// is a valid state, not a failure: the user simply falls back to
	// space-level permissions.
	ErrNotFound      = errors.New("no project permission record for user")
	ErrAlreadyMember = errors.New("user already has a permission record for this project")
	errBadRole       = errors.New("unknown role")
	errBadAction     = errors.New(`action must be "grant"|"revoke"|"reset"`)
)

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("project_permissions")}
}

// Create adds a user to a project with the given role and no explicit
// overrides. The unique (project_id, user_id) index rejects duplicates.
func (s *Store) Create(ctx context.Context, pp models.ProjectPermission) (models.ProjectPermission, error) {
	if !permissions.ValidRole(pp.Role) {
		return models.ProjectPermission{}, errBadRole
	}
	now := time.Now().UTC()
	pp.ID = primitive.NewObjectID()
	pp.ExplicitPermissions = nil
	pp.CreatedAt = now
	pp.UpdatedAt = now

	if _, err := s.c.InsertOne(ctx, pp); err != nil {
		if wafflemongo.IsDup(err) {
			return models.ProjectPermission{}, ErrAlreadyMember
		}
		return models.ProjectPermission{}, err
	}
	return pp, nil
}

// GetByProjectUser retrieves one user's record for one project.
// ErrNotFound is the normal answer for non-members.
func (s *Store) GetByProjectUser(ctx context.Context, projectID, userID primitive.ObjectID) (models.ProjectPermission, error) {
	var pp models.ProjectPermission
	filter := bson.M{"project_id": projectID, "user_id": userID}
	if err := s.c.FindOne(ctx, filter).Decode(&pp); err != nil {
		if err == mongo.ErrNoDocuments {
			return models.ProjectPermission{}, ErrNotFound
		}
		return models.ProjectPermission{}, err
	}
	return pp, nil
}

// SetRole changes the user's project-scope role. Setting the same role
// again is a no-op; the caller can tell from the return whether an
// update actually happened, so repeated saves do not spam the audit
// log.
func (s *Store) SetRole(ctx context.Context, projectID, userID primitive.ObjectID, role string) (changed bool, err error) {
	if !permissions.ValidRole(role) {
		return false, errBadRole
	}
	res, err := s.c.UpdateOne(ctx,
		bson.M{"project_id": projectID, "user_id": userID},
		bson.M{"$set": bson.M{"role": role, "updated_at": time.Now().UTC()}},
	)
	if err != nil {
		return false, err
	}
	if res.MatchedCount == 0 {
		return false, ErrNotFound
	}
	return res.ModifiedCount > 0, nil
}

// ApplyAction applies one override action to a set of permissions:
//
//	grant  - explicit_permissions.<perm> = true
//	revoke - explicit_permissions.<perm> = false
//	reset  - remove the key (defer to role)
//
// All three are idempotent; re-applying the stored state changes
// nothing.
func (s *Store) ApplyAction(ctx context.Context, projectID, userID primitive.ObjectID, action string, perms []string) error {
	if len(perms) == 0 {
		return nil
	}
	for _, p := range perms {
		if !permissions.ValidPermission(p) {
			return errors.New("unknown permission: " + p)
		}
	}

	var update bson.M
	switch action {
	case "grant", "revoke":
		set := bson.M{"updated_at": time.Now().UTC()}
		for _, p := range perms {
			set["explicit_permissions."+p] = action == "grant"
		}
		update = bson.M{"$set": set}
	case "reset":
		unset := bson.M{}
		for _, p := range perms {
			unset["explicit_permissions."+p] = ""
		}
		update = bson.M{
			"$unset": unset,
			"$set":   bson.M{"updated_at": time.Now().UTC()},
		}
	default:
		return errBadAction
	}

	res, err := s.c.UpdateOne(ctx,
		bson.M{"project_id": projectID, "user_id": userID},
		update,
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// SetExpiry sets or clears the membership expiry.
func (s *Store) SetExpiry(ctx context.Context, projectID, userID primitive.ObjectID, expiresAt *time.Time) error {
	update := bson.M{"$set": bson.M{"updated_at": time.Now().UTC()}}
	if expiresAt == nil {
		update["$unset"] = bson.M{"expires_at": ""}
	} else {
		update["$set"].(bson.M)["expires_at"] = expiresAt.UTC()
	}
	res, err := s.c.UpdateOne(ctx,
		bson.M{"project_id": projectID, "user_id": userID},
		update,
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// Remove deletes a user's permission record, dropping them back to
// space-level access only.
func (s *Store) Remove(ctx context.Context, projectID, userID primitive.ObjectID) error {
	res, err := s.c.DeleteOne(ctx, bson.M{"project_id": projectID, "user_id": userID})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// ListByProject returns all permission records for a project, ordered
// by creation time so the member list is stable.
func (s *Store) ListByProject(ctx context.Context, projectID primitive.ObjectID) ([]models.ProjectPermission, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})
	cur, err := s.c.Find(ctx, bson.M{"project_id": projectID}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.ProjectPermission
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListByUser returns all of a user's project permission records.
func (s *Store) ListByUser(ctx context.Context, userID primitive.ObjectID) ([]models.ProjectPermission, error) {
	cur, err := s.c.Find(ctx, bson.M{"user_id": userID})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.ProjectPermission
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
