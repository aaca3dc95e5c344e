// internal/app/features/projectperms/types.go
package projectperms

import (
	"time"

	"github.com/dalemusser/tempohub/internal/app/permissions"
)

// optionsResponse is the static role/permission catalog payload the
// permission editor is built from. PermissionDetails is the flat
// catalog; Permissions groups the same entries by category. Role
// defaults are included so the client never hard-codes a fallback
// table.
type optionsResponse struct {
	Roles             []permissions.Role                  `json:"roles"`
	Permissions       map[string][]permissions.Permission `json:"permissions"`
	PermissionDetails []permissions.Permission            `json:"permission_details"`
	RoleDefaults      map[string][]string                 `json:"role_defaults"`
}

type addMemberRequest struct {
	UserID    string     `json:"user_id"`
	Role      string     `json:"role"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

type setRoleRequest struct {
	Role string `json:"role"`
}

type setPermissionsRequest struct {
	// Action is "grant", "revoke", or "reset".
	Action      string   `json:"action"`
	Permissions []string `json:"permissions"`
}

type applyTemplateRequest struct {
	Role    string   `json:"role"`
	UserIDs []string `json:"user_ids"`
	// Grants and Revokes optionally layer explicit overrides on top of
	// the template role.
	Grants  []string `json:"grants,omitempty"`
	Revokes []string `json:"revokes,omitempty"`
}

// memberResponse is one member row: the permission record joined with
// user identity.
type memberResponse struct {
	UserID              string          `json:"user_id"`
	FullName            string          `json:"full_name"`
	Email               string          `json:"email"`
	Role                string          `json:"role"`
	ExplicitPermissions map[string]bool `json:"explicit_permissions"`
	ExpiresAt           *time.Time      `json:"expires_at,omitempty"`
	CreatedAt           time.Time       `json:"created_at"`
	UpdatedAt           time.Time       `json:"updated_at"`
}

// effectivePermission is one resolved permission with its provenance
// trail, ordered so the first source decided the outcome.
type effectivePermission struct {
	permissions.EffectivePermission
	Sources []permissions.AuditSource `json:"sources"`
}

type effectiveResponse struct {
	UserID      string                `json:"user_id"`
	ProjectID   string                `json:"project_id"`
	SpaceRole   string                `json:"space_role"`
	ProjectRole string                `json:"project_role,omitempty"`
	Permissions []effectivePermission `json:"permissions"`
}

// templateFailure reports one user the template could not be fully
// applied to.
type templateFailure struct {
	UserID string `json:"user_id"`
	Error  string `json:"error"`
}

type applyTemplateResponse struct {
	// Status is "applied" or "partially_failed". Applied users keep the
	// template even when others fail; there is no rollback.
	Status   string            `json:"status"`
	Applied  int               `json:"applied"`
	Failures []templateFailure `json:"failures,omitempty"`
}
