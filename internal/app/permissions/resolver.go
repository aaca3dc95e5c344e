package permissions

import "sort"

// OverrideState is the tri-state value of an explicit per-user,
// per-project permission override. Inherit means "defer to role" and
// is distinct from having no stored override only at the API boundary
// (a reset clears the stored override back to Inherit).
type OverrideState int

const (
	// Inherit defers to the role layers.
	Inherit OverrideState = iota
	// Grant forces the permission on regardless of role defaults.
	Grant
	// Revoke forces the permission off regardless of role defaults.
	Revoke
)

// Audit source types, in precedence order. Higher level wins.
const (
	SourceSpaceRole      = "space_role"
	SourceProjectRole    = "project_role"
	SourceExplicitGrant  = "explicit_grant"
	SourceExplicitRevoke = "explicit_revoke"
)

// Precedence levels for audit sources.
const (
	LevelSpaceRole   = 1
	LevelProjectRole = 2
	LevelExplicit    = 3
)

// EffectivePermission is the resolved grant decision for one
// permission. It is derived on demand and never persisted.
type EffectivePermission struct {
	Value string `json:"value"`
	// Granted is the final decision after applying precedence.
	Granted bool `json:"granted"`
	// Explicit is the override value if one exists, else nil.
	Explicit *bool `json:"explicit"`
	// InheritedFromRole is what the role layers alone would grant,
	// before any explicit override.
	InheritedFromRole bool `json:"inherited_from_role"`
}

// AuditSource describes one contributing layer in a permission
// decision. A permission's full trail is sorted by Level descending;
// the first entry determined the final decision.
type AuditSource struct {
	Type        string `json:"type"`
	Source      string `json:"source"`
	Level       int    `json:"level"`
	Description string `json:"description"`
}

// Input carries everything a resolution needs. SpaceRole is always
// present; ProjectRole is empty when the user has no project
// membership. SpacePermissions optionally lists permission values
// granted explicitly at space scope (used when no project-scoped
// grant exists yet). Overrides maps permission value to its override
// state; absent means Inherit.
type Input struct {
	SpaceRole        string
	SpacePermissions []string
	ProjectRole      string
	Overrides        map[string]OverrideState
}

// Resolver computes effective permissions for one (user, project)
// context. It is a pure value: construct it from already-fetched
// inputs and call Resolve/AuditTrail as needed. It performs no I/O.
type Resolver struct {
	in         Input
	spacePerms map[string]bool
}

// NewResolver builds a Resolver over the static catalog and the given
// per-user inputs.
func NewResolver(in Input) *Resolver {
	r := &Resolver{in: in}
	if len(in.SpacePermissions) > 0 {
		r.spacePerms = make(map[string]bool, len(in.SpacePermissions))
		for _, v := range in.SpacePermissions {
			r.spacePerms[v] = true
		}
	}
	return r
}

// spaceGrants reports whether the space layer grants the permission:
// either the space role's defaults include it, or it was explicitly
// listed in SpacePermissions.
func (r *Resolver) spaceGrants(permission string) bool {
	if RoleGrants(r.in.SpaceRole, permission) {
		return true
	}
	return r.spacePerms[permission]
}

// projectGrants reports whether the project role layer grants the
// permission. False when the user has no project role.
func (r *Resolver) projectGrants(permission string) bool {
	return r.in.ProjectRole != "" && RoleGrants(r.in.ProjectRole, permission)
}

// inheritedFromRole combines the role layers. Layers are additive in
// the upward direction: a narrower-scope role cannot silently revoke
// what a broader scope granted. Only an explicit override can.
func (r *Resolver) inheritedFromRole(permission string) bool {
	return r.spaceGrants(permission) || r.projectGrants(permission)
}

// Resolve computes the effective grant state of a single permission.
// Unknown permission values resolve to denied (fail-closed).
func (r *Resolver) Resolve(permission string) EffectivePermission {
	if !ValidPermission(permission) {
		return EffectivePermission{Value: permission}
	}

	inherited := r.inheritedFromRole(permission)
	eff := EffectivePermission{
		Value:             permission,
		Granted:           inherited,
		InheritedFromRole: inherited,
	}

	// Explicit always wins, in either direction.
	switch r.in.Overrides[permission] {
	case Grant:
		v := true
		eff.Granted = true
		eff.Explicit = &v
	case Revoke:
		v := false
		eff.Granted = false
		eff.Explicit = &v
	}
	return eff
}

// ResolveAll resolves every permission in the catalog, in catalog
// order.
func (r *Resolver) ResolveAll() []EffectivePermission {
	out := make([]EffectivePermission, 0, len(catalog))
	for _, p := range catalog {
		out = append(out, r.Resolve(p.Value))
	}
	return out
}

// Granted reports whether the permission resolves to granted.
func (r *Resolver) Granted(permission string) bool {
	return r.Resolve(permission).Granted
}

// AuditTrail returns the provenance chain for a permission, sorted by
// level descending so the first entry is the one that determined the
// final decision. Unknown permissions return an empty trail.
func (r *Resolver) AuditTrail(permission string) []AuditSource {
	if !ValidPermission(permission) {
		return nil
	}

	var trail []AuditSource

	if r.spaceGrants(permission) {
		label := r.in.SpaceRole
		if role, ok := LookupRole(r.in.SpaceRole); ok {
			label = role.Label
		}
		trail = append(trail, AuditSource{
			Type:        SourceSpaceRole,
			Source:      "Space Role: " + label,
			Level:       LevelSpaceRole,
			Description: "Inherited from the global space role",
		})
	}

	if r.projectGrants(permission) {
		label := r.in.ProjectRole
		if role, ok := LookupRole(r.in.ProjectRole); ok {
			label = role.Label
		}
		trail = append(trail, AuditSource{
			Type:        SourceProjectRole,
			Source:      "Project Role: " + label,
			Level:       LevelProjectRole,
			Description: "Granted by the role in this project",
		})
	}

	switch r.in.Overrides[permission] {
	case Grant:
		trail = append(trail, AuditSource{
			Type:        SourceExplicitGrant,
			Source:      "Explicit Grant",
			Level:       LevelExplicit,
			Description: "Granted directly to this user for this project",
		})
	case Revoke:
		trail = append(trail, AuditSource{
			Type:        SourceExplicitRevoke,
			Source:      "Explicit Revoke",
			Level:       LevelExplicit,
			Description: "Revoked directly from this user for this project",
		})
	}

	sort.SliceStable(trail, func(i, j int) bool {
		return trail[i].Level > trail[j].Level
	})
	return trail
}
