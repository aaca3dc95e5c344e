package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Task statuses, modeled as fixed lanes.
const (
	TaskStatusTodo       = "todo"
	TaskStatusInProgress = "in_progress"
	TaskStatusReview     = "review"
	TaskStatusDone       = "done"
)

// Task represents a unit of work inside a project.
type Task struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Title       string             `bson:"title" json:"title"`
	TitleCI     string             `bson:"title_ci" json:"title_ci"`
	Description string             `bson:"description,omitempty" json:"description,omitempty"`

	ProjectID primitive.ObjectID  `bson:"project_id" json:"project_id"`
	SpaceID   primitive.ObjectID  `bson:"space_id" json:"space_id"`
	Assignee  *primitive.ObjectID `bson:"assignee,omitempty" json:"assignee,omitempty"`

	Status string `bson:"status" json:"status"`
	// Position orders tasks within a status lane. Persisted so lists
	// come back in a stable order; reordering semantics beyond that
	// are a client concern.
	Position int `bson:"position" json:"position"`

	CreatedBy primitive.ObjectID `bson:"created_by" json:"created_by"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time          `bson:"updated_at" json:"updated_at"`
}

// ValidTaskStatus reports whether s is one of the fixed task lanes.
func ValidTaskStatus(s string) bool {
	switch s {
	case TaskStatusTodo, TaskStatusInProgress, TaskStatusReview, TaskStatusDone:
		return true
	}
	return false
}
