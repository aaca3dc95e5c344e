// Package projectpolicy answers "can this user do X on this project"
// by building a permission resolver from the session user's space
// scope and their stored project permission record.
//
// Authorization layers, lowest to highest precedence:
//   - space role defaults (plus any explicit space-scope permission list)
//   - project role defaults
//   - explicit per-permission overrides on the project record
//
// Role layers are additive: a project role never subtracts what the
// space scope granted. Only an explicit revoke does.
package projectpolicy

import (
	"context"
	"net/http"
	"time"

	"github.com/dalemusser/tempohub/internal/app/permissions"
	permstore "github.com/dalemusser/tempohub/internal/app/store/projectperms"
	"github.com/dalemusser/tempohub/internal/app/system/auth"
	"github.com/dalemusser/tempohub/internal/app/system/authz"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// Policy resolves project-scope permissions for request users.
type Policy struct {
	perms *permstore.Store
}

// New builds a Policy over the given database.
func New(db *mongo.Database) *Policy {
	return &Policy{perms: permstore.New(db)}
}

// Membership is the user's project record reduced to resolver inputs.
type Membership struct {
	// HasRecord is false when the user has no permission record for
	// the project (or it expired). They still resolve against their
	// space scope.
	HasRecord bool
	Role      string
	Overrides map[string]permissions.OverrideState
}

// MembershipFor loads and reduces the user's project permission record.
// A missing record is a valid state, not an error. An expired record
// is treated as absent.
func (p *Policy) MembershipFor(ctx context.Context, projectID, userID primitive.ObjectID) (Membership, error) {
	rec, err := p.perms.GetByProjectUser(ctx, projectID, userID)
	if err != nil {
		if err == permstore.ErrNotFound {
			return Membership{}, nil
		}
		return Membership{}, err
	}
	if rec.ExpiresAt != nil && rec.ExpiresAt.Before(time.Now().UTC()) {
		return Membership{}, nil
	}

	m := Membership{HasRecord: true, Role: rec.Role}
	if len(rec.ExplicitPermissions) > 0 {
		m.Overrides = make(map[string]permissions.OverrideState, len(rec.ExplicitPermissions))
		for perm, granted := range rec.ExplicitPermissions {
			if granted {
				m.Overrides[perm] = permissions.Grant
			} else {
				m.Overrides[perm] = permissions.Revoke
			}
		}
	}
	return m, nil
}

// ResolverFor builds a permission resolver for the request's user on
// the given project. Returns (nil, nil) when no user is signed in.
func (p *Policy) ResolverFor(ctx context.Context, r *http.Request, projectID primitive.ObjectID) (*permissions.Resolver, error) {
	user, ok := auth.CurrentUser(r)
	if !ok {
		return nil, nil
	}
	userID, err := primitive.ObjectIDFromHex(user.ID)
	if err != nil {
		return nil, nil
	}
	return p.ResolverForUser(ctx, user, userID, projectID)
}

// ResolverForUser is ResolverFor with the user already in hand, for
// callers resolving permissions of someone other than the requester.
func (p *Policy) ResolverForUser(ctx context.Context, user *auth.SessionUser, userID, projectID primitive.ObjectID) (*permissions.Resolver, error) {
	m, err := p.MembershipFor(ctx, projectID, userID)
	if err != nil {
		return nil, err
	}
	return permissions.NewResolver(permissions.Input{
		SpaceRole:        user.Role,
		SpacePermissions: user.SpacePermissions,
		ProjectRole:      m.Role,
		Overrides:        m.Overrides,
	}), nil
}

// Can reports whether the request's user holds the permission on the
// project. A missing user fails closed.
func (p *Policy) Can(ctx context.Context, r *http.Request, projectID primitive.ObjectID, permission string) (bool, error) {
	res, err := p.ResolverFor(ctx, r, projectID)
	if err != nil {
		return false, err
	}
	if res == nil {
		return false, nil
	}
	return res.Granted(permission), nil
}

// CanManageMembers reports whether the request's user may add members
// and change roles or overrides on the project. Space admins and
// owners always can; otherwise the resolver decides.
func (p *Policy) CanManageMembers(ctx context.Context, r *http.Request, projectID primitive.ObjectID) (bool, error) {
	if authz.IsAdmin(r) {
		return true, nil
	}
	return p.Can(ctx, r, projectID, permissions.CanManageMembers)
}
