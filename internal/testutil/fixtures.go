package testutil

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/dalemusser/tempohub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// WithChiURLParam adds a chi URL parameter to the request context.
// Use this in handler tests that need to access chi.URLParam values.
// Calls stack, so routes with several parameters work.
func WithChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx, ok := r.Context().Value(chi.RouteCtxKey).(*chi.Context)
	if !ok || rctx == nil {
		rctx = chi.NewRouteContext()
		r = r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
	}
	rctx.URLParams.Add(key, value)
	return r
}

// Fixtures provides helper methods for creating test data.
type Fixtures struct {
	db *mongo.Database
	t  *testing.T
}

// NewFixtures creates a new Fixtures instance for the given test database.
func NewFixtures(t *testing.T, db *mongo.Database) *Fixtures {
	t.Helper()
	return &Fixtures{db: db, t: t}
}

// DB returns the underlying database for direct access in tests.
func (f *Fixtures) DB() *mongo.Database {
	return f.db
}

// CreateSpace creates a test space with the given name and subdomain.
func (f *Fixtures) CreateSpace(ctx context.Context, name, subdomain string) models.Space {
	f.t.Helper()

	now := time.Now().UTC()
	sp := models.Space{
		ID:        primitive.NewObjectID(),
		Name:      name,
		NameCI:    text.Fold(name),
		Subdomain: subdomain,
		Status:    "active",
		CreatedAt: now,
		UpdatedAt: now,
	}

	if _, err := f.db.Collection("spaces").InsertOne(ctx, sp); err != nil {
		f.t.Fatalf("failed to create test space: %v", err)
	}
	return sp
}

// CreateUser creates a test user with the given space role.
func (f *Fixtures) CreateUser(ctx context.Context, fullName, email, role string, spaceID primitive.ObjectID) models.User {
	f.t.Helper()

	now := time.Now().UTC()
	user := models.User{
		ID:         primitive.NewObjectID(),
		FullName:   fullName,
		FullNameCI: text.Fold(fullName),
		Email:      email,
		EmailCI:    text.Fold(email),
		Role:       role,
		Status:     "active",
		SpaceID:    spaceID,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if _, err := f.db.Collection("users").InsertOne(ctx, user); err != nil {
		f.t.Fatalf("failed to create test user: %v", err)
	}
	return user
}

// CreateDisabledUser creates a test user with disabled status.
func (f *Fixtures) CreateDisabledUser(ctx context.Context, fullName, email string, spaceID primitive.ObjectID) models.User {
	f.t.Helper()

	u := f.CreateUser(ctx, fullName, email, "member", spaceID)
	_, err := f.db.Collection("users").UpdateByID(ctx, u.ID, bson.M{
		"$set": bson.M{"status": "disabled"},
	})
	if err != nil {
		f.t.Fatalf("failed to disable test user: %v", err)
	}
	u.Status = "disabled"
	return u
}

// CreateProject creates a test project in the given space.
func (f *Fixtures) CreateProject(ctx context.Context, name string, spaceID, createdBy primitive.ObjectID) models.Project {
	f.t.Helper()

	now := time.Now().UTC()
	p := models.Project{
		ID:        primitive.NewObjectID(),
		Name:      name,
		NameCI:    text.Fold(name),
		SpaceID:   spaceID,
		Status:    "active",
		CreatedBy: createdBy,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if _, err := f.db.Collection("projects").InsertOne(ctx, p); err != nil {
		f.t.Fatalf("failed to create test project: %v", err)
	}
	return p
}

// CreateProjectPermission creates a permission record with a role and
// optional explicit overrides.
func (f *Fixtures) CreateProjectPermission(ctx context.Context, projectID, userID, spaceID primitive.ObjectID, role string, overrides map[string]bool) models.ProjectPermission {
	f.t.Helper()

	now := time.Now().UTC()
	pp := models.ProjectPermission{
		ID:                  primitive.NewObjectID(),
		ProjectID:           projectID,
		UserID:              userID,
		SpaceID:             spaceID,
		Role:                role,
		ExplicitPermissions: overrides,
		GrantedBy:           userID,
		CreatedAt:           now,
		UpdatedAt:           now,
	}

	if _, err := f.db.Collection("project_permissions").InsertOne(ctx, pp); err != nil {
		f.t.Fatalf("failed to create test project permission: %v", err)
	}
	return pp
}

// CreateTask creates a test task in the given project.
func (f *Fixtures) CreateTask(ctx context.Context, title string, projectID, spaceID, createdBy primitive.ObjectID) models.Task {
	f.t.Helper()

	now := time.Now().UTC()
	task := models.Task{
		ID:        primitive.NewObjectID(),
		Title:     title,
		TitleCI:   text.Fold(title),
		ProjectID: projectID,
		SpaceID:   spaceID,
		Status:    models.TaskStatusTodo,
		CreatedBy: createdBy,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if _, err := f.db.Collection("tasks").InsertOne(ctx, task); err != nil {
		f.t.Fatalf("failed to create test task: %v", err)
	}
	return task
}

// CreateTimeEntry creates a completed time entry spanning the given range.
func (f *Fixtures) CreateTimeEntry(ctx context.Context, userID, spaceID, projectID primitive.ObjectID, startedAt, endedAt time.Time) models.TimeEntry {
	f.t.Helper()

	now := time.Now().UTC()
	end := endedAt.UTC()
	e := models.TimeEntry{
		ID:        primitive.NewObjectID(),
		UserID:    userID,
		SpaceID:   spaceID,
		Project:   projectID,
		StartedAt: startedAt.UTC(),
		EndedAt:   &end,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if _, err := f.db.Collection("time_entries").InsertOne(ctx, e); err != nil {
		f.t.Fatalf("failed to create test time entry: %v", err)
	}
	return e
}
