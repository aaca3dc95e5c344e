// Package permissions implements the effective-permission model for
// project access: a static role/permission catalog, per-role default
// grant sets, and a resolver that combines space roles, project roles,
// and explicit per-user overrides into effective grant decisions with
// full provenance.
package permissions

// Role identifies a named bundle of default permissions. The same role
// values are used at space (tenant) scope and at project scope; the
// default grant sets differ only in what scope they are applied to.
type Role struct {
	Value       string `json:"value" bson:"value"`
	Label       string `json:"label" bson:"label"`
	Description string `json:"description" bson:"description"`
}

// Permission is an atomic capability, grouped into a category for
// presentation.
type Permission struct {
	Value       string `json:"value" bson:"value"`
	Label       string `json:"label" bson:"label"`
	Description string `json:"description" bson:"description"`
	Category    string `json:"category" bson:"category"`
}

// Role values. Roles are statically enumerated; they are not
// user-creatable.
const (
	RoleOwner   = "owner"
	RoleAdmin   = "admin"
	RoleManager = "manager"
	RoleMember  = "member"
	RoleEditor  = "editor"
	RoleViewer  = "viewer"
	RoleGuest   = "guest"
)

// Permission values.
const (
	CanViewProject    = "can_view_project"
	CanEditProject    = "can_edit_project"
	CanArchiveProject = "can_archive_project"
	CanViewBudget     = "can_view_budget"
	CanManageMembers  = "can_manage_members"

	CanViewContent   = "can_view_content"
	CanEditContent   = "can_edit_content"
	CanDeleteContent = "can_delete_content"
	CanAssignTasks   = "can_assign_tasks"

	CanTrackTime      = "can_track_time"
	CanEditOwnEntries = "can_edit_own_entries"
	CanEditAllEntries = "can_edit_all_entries"

	CanSubmitTimesheets  = "can_submit_timesheets"
	CanViewAllTimesheets = "can_view_all_timesheets"
	CanApproveTimesheets = "can_approve_timesheets"

	CanViewReports = "can_view_reports"
)

// Category names used for grouping in the catalog payload.
const (
	CategoryProjects     = "Projects"
	CategoryTasks        = "Tasks"
	CategoryTimeTracking = "Time Tracking"
	CategoryTimesheets   = "Timesheets"
	CategoryApprovals    = "Approvals"
	CategoryReports      = "Reports"
)

// roles is the authoritative ordered role list.
var roles = []Role{
	{Value: RoleOwner, Label: "Owner", Description: "Full control, including ownership transfer and deletion"},
	{Value: RoleAdmin, Label: "Admin", Description: "Full management of projects, tasks, members, and timesheets"},
	{Value: RoleManager, Label: "Manager", Description: "Manages members, budgets, and timesheet approvals"},
	{Value: RoleMember, Label: "Member", Description: "Works on tasks and tracks time"},
	{Value: RoleEditor, Label: "Editor", Description: "Edits content and tracks time, no member management"},
	{Value: RoleViewer, Label: "Viewer", Description: "No default grants; access is given per permission"},
	{Value: RoleGuest, Label: "Guest", Description: "No default grants; intended for external collaborators"},
}

// catalog is the authoritative ordered permission list. Order matters:
// ResolveAll and the options payload preserve it.
var catalog = []Permission{
	{Value: CanViewProject, Label: "View project", Description: "See the project, its settings, and activity", Category: CategoryProjects},
	{Value: CanEditProject, Label: "Edit project", Description: "Change project name, description, and settings", Category: CategoryProjects},
	{Value: CanArchiveProject, Label: "Archive project", Description: "Archive or restore the project", Category: CategoryProjects},
	{Value: CanViewBudget, Label: "View budget", Description: "See project budget and spend figures", Category: CategoryProjects},
	{Value: CanManageMembers, Label: "Manage members", Description: "Add and remove members, change roles and permissions", Category: CategoryProjects},

	{Value: CanViewContent, Label: "View tasks", Description: "See tasks and their details", Category: CategoryTasks},
	{Value: CanEditContent, Label: "Edit tasks", Description: "Create and edit tasks", Category: CategoryTasks},
	{Value: CanDeleteContent, Label: "Delete tasks", Description: "Delete tasks permanently", Category: CategoryTasks},
	{Value: CanAssignTasks, Label: "Assign tasks", Description: "Assign tasks to other members", Category: CategoryTasks},

	{Value: CanTrackTime, Label: "Track time", Description: "Start timers and create time entries", Category: CategoryTimeTracking},
	{Value: CanEditOwnEntries, Label: "Edit own entries", Description: "Edit and delete own time entries", Category: CategoryTimeTracking},
	{Value: CanEditAllEntries, Label: "Edit all entries", Description: "Edit and delete any member's time entries", Category: CategoryTimeTracking},

	{Value: CanSubmitTimesheets, Label: "Submit timesheets", Description: "Submit weekly timesheets for approval", Category: CategoryTimesheets},
	{Value: CanViewAllTimesheets, Label: "View all timesheets", Description: "See every member's timesheets", Category: CategoryTimesheets},

	{Value: CanApproveTimesheets, Label: "Approve timesheets", Description: "Approve or reject submitted timesheets", Category: CategoryApprovals},

	{Value: CanViewReports, Label: "View reports", Description: "See time and progress reports", Category: CategoryReports},
}

// roleDefaults maps each role to the permission values it grants by
// default. The mapping is total: every role value has an entry, and an
// empty set is a valid entry (viewer, guest). This table is the single
// source of truth for role defaults; there is no client-side fallback.
var roleDefaults = map[string][]string{
	RoleOwner:   allPermissionValues(),
	RoleAdmin:   allPermissionValues(),
	RoleManager: {
		CanViewProject, CanEditProject, CanViewBudget, CanManageMembers,
		CanViewContent, CanEditContent, CanAssignTasks,
		CanTrackTime, CanEditOwnEntries,
		CanSubmitTimesheets, CanViewAllTimesheets,
		CanApproveTimesheets,
		CanViewReports,
	},
	RoleMember: {
		CanViewProject,
		CanViewContent, CanEditContent,
		CanTrackTime, CanEditOwnEntries,
		CanSubmitTimesheets,
	},
	RoleEditor: {
		CanViewProject,
		CanViewContent, CanEditContent,
		CanTrackTime,
		CanSubmitTimesheets,
	},
	RoleViewer: {},
	RoleGuest:  {},
}

func allPermissionValues() []string {
	vals := make([]string, 0, len(catalog))
	for _, p := range catalog {
		vals = append(vals, p.Value)
	}
	return vals
}

// Roles returns the ordered role list.
func Roles() []Role {
	out := make([]Role, len(roles))
	copy(out, roles)
	return out
}

// Catalog returns the ordered permission catalog.
func Catalog() []Permission {
	out := make([]Permission, len(catalog))
	copy(out, catalog)
	return out
}

// CatalogByCategory returns the catalog grouped by category. Within a
// category, catalog order is preserved.
func CatalogByCategory() map[string][]Permission {
	out := make(map[string][]Permission)
	for _, p := range catalog {
		out[p.Category] = append(out[p.Category], p)
	}
	return out
}

// Lookup returns the catalog entry for the given permission value.
func Lookup(value string) (Permission, bool) {
	for _, p := range catalog {
		if p.Value == value {
			return p, true
		}
	}
	return Permission{}, false
}

// LookupRole returns the role entry for the given role value.
func LookupRole(value string) (Role, bool) {
	for _, r := range roles {
		if r.Value == value {
			return r, true
		}
	}
	return Role{}, false
}

// ValidRole reports whether value is a known role.
func ValidRole(value string) bool {
	_, ok := LookupRole(value)
	return ok
}

// ValidPermission reports whether value is a known permission.
func ValidPermission(value string) bool {
	_, ok := Lookup(value)
	return ok
}

// DefaultsFor returns the set of permission values the given role
// grants by default. Unknown roles grant nothing.
func DefaultsFor(role string) map[string]bool {
	set := make(map[string]bool)
	for _, v := range roleDefaults[role] {
		set[v] = true
	}
	return set
}

// RoleGrants reports whether the given role grants the permission by
// default. Unknown roles and unknown permissions grant nothing.
func RoleGrants(role, permission string) bool {
	for _, v := range roleDefaults[role] {
		if v == permission {
			return true
		}
	}
	return false
}
