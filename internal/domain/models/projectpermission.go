package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ProjectPermission is the per-(user, project) permission record: the
// user's project-scope role plus explicit per-permission overrides.
//
// ExplicitPermissions maps permission value to true (explicit grant)
// or false (explicit revoke). Absence of a key means "defer to role"
// and is semantically distinct from false; resetting an override
// removes the key entirely.
type ProjectPermission struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ProjectID primitive.ObjectID `bson:"project_id" json:"project_id"`
	UserID    primitive.ObjectID `bson:"user_id" json:"user_id"`
	SpaceID   primitive.ObjectID `bson:"space_id" json:"space_id"`

	Role                string          `bson:"role" json:"role"`
	ExplicitPermissions map[string]bool `bson:"explicit_permissions,omitempty" json:"explicit_permissions"`

	// ExpiresAt optionally bounds the membership (guest access).
	ExpiresAt *time.Time `bson:"expires_at,omitempty" json:"expires_at"`

	GrantedBy primitive.ObjectID `bson:"granted_by" json:"granted_by"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time          `bson:"updated_at" json:"updated_at"`
}
