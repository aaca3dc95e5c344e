package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Space represents a top-level tenant container in TempoHub. Each
// space is isolated from others and holds its own projects, members,
// time entries, and timesheets. All major entities belong to exactly
// one space via their space_id field.
type Space struct {
	ID primitive.ObjectID `bson:"_id,omitempty" json:"id"`

	Name   string `bson:"name" json:"name"`
	NameCI string `bson:"name_ci" json:"name_ci"` // Case-insensitive for search

	// Subdomain for this space (e.g., "acme" for acme.tempohub.app).
	// Must be unique across all spaces.
	Subdomain string `bson:"subdomain" json:"subdomain"`

	// Status: "active" or "disabled"
	Status string `bson:"status" json:"status"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}
