package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Project represents a unit of work inside a space.
//
// NOTE:
//   - Membership is not embedded on Project. Use the
//     project_permissions collection to discover a project's members,
//     their roles, and their explicit overrides.
type Project struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name        string             `bson:"name" json:"name"`
	NameCI      string             `bson:"name_ci" json:"name_ci"`
	Description string             `bson:"description" json:"description"`
	SpaceID     primitive.ObjectID `bson:"space_id" json:"space_id"`

	// Budget in minutes of tracked time; zero means no budget.
	BudgetMinutes int `bson:"budget_minutes,omitempty" json:"budget_minutes,omitempty"`

	Status string `bson:"status" json:"status"` // active | archived

	CreatedBy primitive.ObjectID `bson:"created_by" json:"created_by"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time          `bson:"updated_at" json:"updated_at"`
}
