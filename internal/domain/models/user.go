package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User represents any account in a space: owners, admins, managers,
// members, editors, viewers, and guests.
//
// NOTE:
//   - Role is the user's *space-scope* role. Project-scope roles and
//     explicit permission overrides live in the project_permissions
//     collection, never embedded on User.
type User struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	FullName   string             `bson:"full_name" json:"full_name"`
	FullNameCI string             `bson:"full_name_ci" json:"full_name_ci"` // lowercase, diacritics-stripped
	Email      string             `bson:"email" json:"email"`
	EmailCI    string             `bson:"email_ci" json:"email_ci"`
	AuthMethod string             `bson:"auth_method,omitempty" json:"auth_method,omitempty"` // password | google

	// PasswordHash is a bcrypt hash; empty for OAuth-only accounts.
	PasswordHash string `bson:"password_hash,omitempty" json:"-"`

	Role    string             `bson:"role" json:"role"`     // space-scope role
	Status  string             `bson:"status" json:"status"` // active | disabled
	SpaceID primitive.ObjectID `bson:"space_id" json:"space_id"`

	// SpacePermissions optionally lists permission values granted at
	// space scope, beyond the role defaults.
	SpacePermissions []string `bson:"space_permissions,omitempty" json:"space_permissions,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}
