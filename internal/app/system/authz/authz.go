// Package authz provides request-level helpers for reading the
// current user's identity and space-scope role. Project-scope
// decisions belong to the policy layer (internal/app/policy), which
// consults the permission resolver; these helpers cover only the
// coarse space-level checks.
package authz

import (
	"net/http"
	"strings"

	"github.com/dalemusser/tempohub/internal/app/system/auth"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// UserCtx returns the user's space role (lowercased), name, Mongo
// ObjectID, and a found flag. If no user is present in context or the
// user ID is malformed, it returns "visitor", "", NilObjectID, false.
// This ensures callers can trust that ok=true means a valid,
// authenticated user with a valid ObjectID.
func UserCtx(r *http.Request) (role string, name string, userID primitive.ObjectID, ok bool) {
	user, ok := auth.CurrentUser(r)
	if !ok {
		return "visitor", "", primitive.NilObjectID, false
	}
	userID, err := primitive.ObjectIDFromHex(user.ID)
	if err != nil {
		// Malformed user ID in session - fail closed.
		return "visitor", "", primitive.NilObjectID, false
	}
	return strings.ToLower(user.Role), user.Name, userID, true
}

// UserSpaceID returns the current user's space ID. Returns
// NilObjectID if the user is not logged in or the ID is malformed.
func UserSpaceID(r *http.Request) primitive.ObjectID {
	user, ok := auth.CurrentUser(r)
	if !ok || user.SpaceID == "" {
		return primitive.NilObjectID
	}
	sid, err := primitive.ObjectIDFromHex(user.SpaceID)
	if err != nil {
		return primitive.NilObjectID
	}
	return sid
}

// SpacePermissions returns the explicit space-scope permission list
// for the current user, or nil.
func SpacePermissions(r *http.Request) []string {
	user, ok := auth.CurrentUser(r)
	if !ok {
		return nil
	}
	return user.SpacePermissions
}

// IsOwner reports whether the current request's user is the space owner.
func IsOwner(r *http.Request) bool {
	role, _, _, ok := UserCtx(r)
	return ok && role == "owner"
}

// IsAdmin reports whether the current request's user is an admin.
// Note: owners are also considered admins for permission purposes.
func IsAdmin(r *http.Request) bool {
	role, _, _, ok := UserCtx(r)
	return ok && (role == "admin" || role == "owner")
}

// HasAnyRole reports whether the current request's user has any of
// the given space roles. Returns false if no user is present.
func HasAnyRole(r *http.Request, roles ...string) bool {
	role, _, _, ok := UserCtx(r)
	if !ok {
		return false
	}
	for _, want := range roles {
		if role == strings.ToLower(strings.TrimSpace(want)) {
			return true
		}
	}
	return false
}

// Role returns the current user's space role (lowercased) and whether
// a user is present.
func Role(r *http.Request) (string, bool) {
	role, _, _, ok := UserCtx(r)
	return role, ok
}
