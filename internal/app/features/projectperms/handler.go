// internal/app/features/projectperms/handler.go
//
// Project permission management: membership records, project-scope
// roles, explicit per-permission overrides, effective-permission
// resolution with provenance, and bulk template application.
package projectperms

import (
	"context"
	"net/http"
	"sort"
	"strings"
	"sync"

	"github.com/dalemusser/tempohub/internal/app/permissions"
	"github.com/dalemusser/tempohub/internal/app/policy/projectpolicy"
	permstore "github.com/dalemusser/tempohub/internal/app/store/projectperms"
	projectstore "github.com/dalemusser/tempohub/internal/app/store/projects"
	userstore "github.com/dalemusser/tempohub/internal/app/store/users"
	"github.com/dalemusser/tempohub/internal/app/system/apiutil"
	"github.com/dalemusser/tempohub/internal/app/system/auditlog"
	"github.com/dalemusser/tempohub/internal/app/system/authz"
	"github.com/dalemusser/tempohub/internal/app/system/timeouts"
	"github.com/dalemusser/tempohub/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"github.com/sourcegraph/conc/pool"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// maxTemplateWorkers bounds the fan-out when applying a template to
// many users at once.
const maxTemplateWorkers = 8

// Handler serves the project permission endpoints.
type Handler struct {
	Log      *zap.Logger
	Policy   *projectpolicy.Policy
	AuditLog *auditlog.Logger
	Perms    *permstore.Store
	Users    *userstore.Store
	Projects *projectstore.Store
}

// NewHandler constructs a projectperms Handler.
func NewHandler(db *mongo.Database, audit *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{
		Log:      logger,
		Policy:   projectpolicy.New(db),
		AuditLog: audit,
		Perms:    permstore.New(db),
		Users:    userstore.New(db),
		Projects: projectstore.New(db),
	}
}

// HandleOptions handles GET .../permissions/options: the static role
// and permission catalog plus per-role default grant sets.
func (h *Handler) HandleOptions(w http.ResponseWriter, r *http.Request) {
	defaults := make(map[string][]string, len(permissions.Roles()))
	for _, role := range permissions.Roles() {
		vals := make([]string, 0)
		for v := range permissions.DefaultsFor(role.Value) {
			vals = append(vals, v)
		}
		sort.Strings(vals)
		defaults[role.Value] = vals
	}

	apiutil.WriteJSON(w, http.StatusOK, optionsResponse{
		Roles:             permissions.Roles(),
		Permissions:       permissions.CatalogByCategory(),
		PermissionDetails: permissions.Catalog(),
		RoleDefaults:      defaults,
	})
}

// HandleListMembers handles GET .../members.
func (h *Handler) HandleListMembers(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	project, ok := h.loadProject(ctx, w, r)
	if !ok {
		return
	}
	if !h.requireView(ctx, w, r, project.ID) {
		return
	}

	records, err := h.Perms.ListByProject(ctx, project.ID)
	if err != nil {
		apiutil.WriteServerError(w, h.Log, "permissions: list members", err)
		return
	}

	ids := make([]primitive.ObjectID, 0, len(records))
	for _, rec := range records {
		ids = append(ids, rec.UserID)
	}
	users, err := h.Users.FindByIDs(ctx, ids)
	if err != nil {
		apiutil.WriteServerError(w, h.Log, "permissions: member user lookup", err)
		return
	}
	byID := make(map[primitive.ObjectID]models.User, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}

	out := make([]memberResponse, 0, len(records))
	for _, rec := range records {
		m := memberResponse{
			UserID:              rec.UserID.Hex(),
			Role:                rec.Role,
			ExplicitPermissions: rec.ExplicitPermissions,
			ExpiresAt:           rec.ExpiresAt,
			CreatedAt:           rec.CreatedAt,
			UpdatedAt:           rec.UpdatedAt,
		}
		if u, ok := byID[rec.UserID]; ok {
			m.FullName = u.FullName
			m.Email = u.Email
		}
		out = append(out, m)
	}

	apiutil.WriteJSON(w, http.StatusOK, struct {
		Members []memberResponse `json:"members"`
	}{Members: out})
}

// HandleGetMember handles GET .../permissions/{userID}. A 404
// here is the normal answer for a user with no permission record; they
// still resolve against their space role.
func (h *Handler) HandleGetMember(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	project, ok := h.loadProject(ctx, w, r)
	if !ok {
		return
	}
	if !h.requireView(ctx, w, r, project.ID) {
		return
	}

	userID, ok := parseUserID(w, r)
	if !ok {
		return
	}

	rec, err := h.Perms.GetByProjectUser(ctx, project.ID, userID)
	if err != nil {
		if err == permstore.ErrNotFound {
			apiutil.WriteNotFound(w, "No permission record for this user.")
			return
		}
		apiutil.WriteServerError(w, h.Log, "permissions: get member", err)
		return
	}

	apiutil.WriteJSON(w, http.StatusOK, memberResponse{
		UserID:              rec.UserID.Hex(),
		Role:                rec.Role,
		ExplicitPermissions: rec.ExplicitPermissions,
		ExpiresAt:           rec.ExpiresAt,
		CreatedAt:           rec.CreatedAt,
		UpdatedAt:           rec.UpdatedAt,
	})
}

// HandleGetEffective handles GET .../permissions/{userID}/effective.
// The full catalog is resolved for the target user with a provenance
// trail per permission, sorted so the deciding source comes first.
func (h *Handler) HandleGetEffective(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	project, ok := h.loadProject(ctx, w, r)
	if !ok {
		return
	}

	userID, ok := parseUserID(w, r)
	if !ok {
		return
	}

	// Users may always inspect their own effective permissions; seeing
	// someone else's requires member management rights.
	_, _, actorID, signedIn := authz.UserCtx(r)
	if !signedIn {
		apiutil.WriteUnauthorized(w)
		return
	}
	if actorID != userID {
		if !h.requireManage(ctx, w, r, project.ID) {
			return
		}
	}

	target, err := h.Users.GetByID(ctx, userID)
	if err != nil {
		if err == userstore.ErrNotFound {
			apiutil.WriteNotFound(w, "User not found.")
			return
		}
		apiutil.WriteServerError(w, h.Log, "permissions: effective target lookup", err)
		return
	}
	if target.SpaceID != project.SpaceID {
		apiutil.WriteNotFound(w, "User not found.")
		return
	}

	membership, err := h.Policy.MembershipFor(ctx, project.ID, userID)
	if err != nil {
		apiutil.WriteServerError(w, h.Log, "permissions: membership lookup", err)
		return
	}

	resolver := permissions.NewResolver(permissions.Input{
		SpaceRole:        strings.ToLower(target.Role),
		SpacePermissions: target.SpacePermissions,
		ProjectRole:      membership.Role,
		Overrides:        membership.Overrides,
	})

	resolved := resolver.ResolveAll()
	out := make([]effectivePermission, 0, len(resolved))
	for _, eff := range resolved {
		out = append(out, effectivePermission{
			EffectivePermission: eff,
			Sources:             resolver.AuditTrail(eff.Value),
		})
	}

	apiutil.WriteJSON(w, http.StatusOK, effectiveResponse{
		UserID:      userID.Hex(),
		ProjectID:   project.ID.Hex(),
		SpaceRole:   strings.ToLower(target.Role),
		ProjectRole: membership.Role,
		Permissions: out,
	})
}

// HandleAddMember handles POST .../permissions/users.
func (h *Handler) HandleAddMember(w http.ResponseWriter, r *http.Request) {
	var req addMemberRequest
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		apiutil.WriteBadRequest(w, "invalid JSON body")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	project, ok := h.loadProject(ctx, w, r)
	if !ok {
		return
	}
	if !h.requireManage(ctx, w, r, project.ID) {
		return
	}

	fields := map[string]string{}
	userID, err := primitive.ObjectIDFromHex(req.UserID)
	if err != nil {
		fields["user_id"] = "user_id must be a valid ID"
	}
	if !permissions.ValidRole(req.Role) {
		fields["role"] = "unknown role"
	}
	if len(fields) > 0 {
		apiutil.WriteValidationError(w, "Invalid member request.", fields)
		return
	}

	target, err := h.Users.GetByID(ctx, userID)
	if err != nil {
		if err == userstore.ErrNotFound {
			apiutil.WriteNotFound(w, "User not found.")
			return
		}
		apiutil.WriteServerError(w, h.Log, "permissions: add member user lookup", err)
		return
	}
	if target.SpaceID != project.SpaceID {
		apiutil.WriteNotFound(w, "User not found.")
		return
	}

	_, _, actorID, _ := authz.UserCtx(r)
	rec, err := h.Perms.Create(ctx, models.ProjectPermission{
		ProjectID: project.ID,
		UserID:    userID,
		SpaceID:   project.SpaceID,
		Role:      req.Role,
		ExpiresAt: req.ExpiresAt,
		GrantedBy: actorID,
	})
	if err != nil {
		if err == permstore.ErrAlreadyMember {
			apiutil.WriteConflict(w, "User is already a member of this project.")
			return
		}
		apiutil.WriteServerError(w, h.Log, "permissions: add member", err)
		return
	}

	h.AuditLog.MemberAddedToProject(ctx, r, actorID, userID, project.ID, &project.SpaceID, req.Role)

	apiutil.WriteJSON(w, http.StatusCreated, memberResponse{
		UserID:              rec.UserID.Hex(),
		FullName:            target.FullName,
		Email:               target.Email,
		Role:                rec.Role,
		ExplicitPermissions: rec.ExplicitPermissions,
		ExpiresAt:           rec.ExpiresAt,
		CreatedAt:           rec.CreatedAt,
		UpdatedAt:           rec.UpdatedAt,
	})
}

// HandleSetRole handles PUT .../permissions/{userID}/role.
// Saving the role the user already has is a quiet no-op and produces
// no audit entry.
func (h *Handler) HandleSetRole(w http.ResponseWriter, r *http.Request) {
	var req setRoleRequest
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		apiutil.WriteBadRequest(w, "invalid JSON body")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	project, ok := h.loadProject(ctx, w, r)
	if !ok {
		return
	}
	if !h.requireManage(ctx, w, r, project.ID) {
		return
	}

	userID, ok := parseUserID(w, r)
	if !ok {
		return
	}
	if !permissions.ValidRole(req.Role) {
		apiutil.WriteValidationError(w, "Invalid role.", map[string]string{"role": "unknown role"})
		return
	}

	prev, err := h.Perms.GetByProjectUser(ctx, project.ID, userID)
	if err != nil {
		if err == permstore.ErrNotFound {
			apiutil.WriteNotFound(w, "No permission record for this user.")
			return
		}
		apiutil.WriteServerError(w, h.Log, "permissions: set role lookup", err)
		return
	}

	changed, err := h.Perms.SetRole(ctx, project.ID, userID, req.Role)
	if err != nil {
		if err == permstore.ErrNotFound {
			apiutil.WriteNotFound(w, "No permission record for this user.")
			return
		}
		apiutil.WriteServerError(w, h.Log, "permissions: set role", err)
		return
	}

	if changed {
		_, _, actorID, _ := authz.UserCtx(r)
		h.AuditLog.ProjectRoleChanged(ctx, r, actorID, userID, project.ID, &project.SpaceID, prev.Role, req.Role)
	}

	apiutil.WriteJSON(w, http.StatusOK, map[string]any{
		"role":    req.Role,
		"changed": changed,
	})
}

// HandleSetPermissions handles PUT .../permissions/{userID}/permissions:
// one override action (grant, revoke, reset) applied to a batch of
// permission values. All three actions are idempotent.
func (h *Handler) HandleSetPermissions(w http.ResponseWriter, r *http.Request) {
	var req setPermissionsRequest
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		apiutil.WriteBadRequest(w, "invalid JSON body")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	project, ok := h.loadProject(ctx, w, r)
	if !ok {
		return
	}
	if !h.requireManage(ctx, w, r, project.ID) {
		return
	}

	userID, ok := parseUserID(w, r)
	if !ok {
		return
	}

	fields := map[string]string{}
	if req.Action != "grant" && req.Action != "revoke" && req.Action != "reset" {
		fields["action"] = `action must be "grant", "revoke", or "reset"`
	}
	if len(req.Permissions) == 0 {
		fields["permissions"] = "at least one permission is required"
	}
	for _, p := range req.Permissions {
		if !permissions.ValidPermission(p) {
			fields["permissions"] = "unknown permission: " + p
			break
		}
	}
	if len(fields) > 0 {
		apiutil.WriteValidationError(w, "Invalid permission change.", fields)
		return
	}

	if err := h.Perms.ApplyAction(ctx, project.ID, userID, req.Action, req.Permissions); err != nil {
		if err == permstore.ErrNotFound {
			apiutil.WriteNotFound(w, "No permission record for this user.")
			return
		}
		apiutil.WriteServerError(w, h.Log, "permissions: apply action", err)
		return
	}

	_, _, actorID, _ := authz.UserCtx(r)
	h.AuditLog.PermissionsChanged(ctx, r, actorID, userID, project.ID, &project.SpaceID, req.Action, req.Permissions)

	rec, err := h.Perms.GetByProjectUser(ctx, project.ID, userID)
	if err != nil {
		apiutil.WriteServerError(w, h.Log, "permissions: reload after change", err)
		return
	}

	apiutil.WriteJSON(w, http.StatusOK, memberResponse{
		UserID:              rec.UserID.Hex(),
		Role:                rec.Role,
		ExplicitPermissions: rec.ExplicitPermissions,
		ExpiresAt:           rec.ExpiresAt,
		CreatedAt:           rec.CreatedAt,
		UpdatedAt:           rec.UpdatedAt,
	})
}

// HandleRemoveMember handles DELETE .../permissions/{userID}.
// The user drops back to whatever their space role grants.
func (h *Handler) HandleRemoveMember(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	project, ok := h.loadProject(ctx, w, r)
	if !ok {
		return
	}
	if !h.requireManage(ctx, w, r, project.ID) {
		return
	}

	userID, ok := parseUserID(w, r)
	if !ok {
		return
	}

	if err := h.Perms.Remove(ctx, project.ID, userID); err != nil {
		if err == permstore.ErrNotFound {
			apiutil.WriteNotFound(w, "No permission record for this user.")
			return
		}
		apiutil.WriteServerError(w, h.Log, "permissions: remove member", err)
		return
	}

	_, _, actorID, _ := authz.UserCtx(r)
	h.AuditLog.MemberRemovedFromProject(ctx, r, actorID, userID, project.ID, &project.SpaceID)

	apiutil.WriteJSON(w, http.StatusOK, map[string]string{"status": "removed"})
}

// HandleApplyTemplate handles POST .../permissions/apply-template: set
// a role plus a fixed override layout on many users at once. Users are
// processed concurrently; each user is all-or-nothing, but the batch
// is not. Failures are reported per user and applied users keep the
// template.
func (h *Handler) HandleApplyTemplate(w http.ResponseWriter, r *http.Request) {
	var req applyTemplateRequest
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		apiutil.WriteBadRequest(w, "invalid JSON body")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Batch())
	defer cancel()

	project, ok := h.loadProject(ctx, w, r)
	if !ok {
		return
	}
	if !h.requireManage(ctx, w, r, project.ID) {
		return
	}

	fields := map[string]string{}
	if !permissions.ValidRole(req.Role) {
		fields["role"] = "unknown role"
	}
	if len(req.UserIDs) == 0 {
		fields["user_ids"] = "at least one user is required"
	}
	for _, p := range append(append([]string{}, req.Grants...), req.Revokes...) {
		if !permissions.ValidPermission(p) {
			fields["permissions"] = "unknown permission: " + p
			break
		}
	}
	if _, dup := fields["permissions"]; !dup {
		granted := make(map[string]bool, len(req.Grants))
		for _, p := range req.Grants {
			granted[p] = true
		}
		for _, p := range req.Revokes {
			if granted[p] {
				fields["permissions"] = "listed in both grants and revokes: " + p
				break
			}
		}
	}
	if len(fields) > 0 {
		apiutil.WriteValidationError(w, "Invalid template request.", fields)
		return
	}

	userIDs := make([]primitive.ObjectID, 0, len(req.UserIDs))
	for _, raw := range req.UserIDs {
		id, err := primitive.ObjectIDFromHex(raw)
		if err != nil {
			apiutil.WriteValidationError(w, "Invalid template request.",
				map[string]string{"user_ids": "invalid user ID: " + raw})
			return
		}
		userIDs = append(userIDs, id)
	}

	_, _, actorID, _ := authz.UserCtx(r)

	var (
		mu       sync.Mutex
		applied  int
		failures []templateFailure
	)
	p := pool.New().WithMaxGoroutines(maxTemplateWorkers)
	for _, userID := range userIDs {
		p.Go(func() {
			err := h.applyTemplateToUser(ctx, project, actorID, userID, req)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failures = append(failures, templateFailure{UserID: userID.Hex(), Error: err.Error()})
				return
			}
			applied++
		})
	}
	p.Wait()

	sort.Slice(failures, func(i, j int) bool { return failures[i].UserID < failures[j].UserID })

	h.AuditLog.TemplateApplied(ctx, r, actorID, project.ID, &project.SpaceID, req.Role, len(userIDs), len(failures))

	resp := applyTemplateResponse{Status: "applied", Applied: applied, Failures: failures}
	status := http.StatusOK
	if len(failures) > 0 {
		resp.Status = "partially_failed"
		status = http.StatusMultiStatus
	}
	apiutil.WriteJSON(w, status, resp)
}

// applyTemplateToUser applies the template to one user: ensure a
// record with the template role, then move the stored overrides to
// the template's layout. The stored and target layouts are diffed
// first so only the permissions that actually change are written; a
// user already matching the template generates no writes at all.
func (h *Handler) applyTemplateToUser(ctx context.Context, project models.Project, actorID, userID primitive.ObjectID, req applyTemplateRequest) error {
	prev := map[string]permissions.OverrideState{}
	_, err := h.Perms.Create(ctx, models.ProjectPermission{
		ProjectID: project.ID,
		UserID:    userID,
		SpaceID:   project.SpaceID,
		Role:      req.Role,
		GrantedBy: actorID,
	})
	if err == permstore.ErrAlreadyMember {
		rec, err := h.Perms.GetByProjectUser(ctx, project.ID, userID)
		if err != nil {
			return err
		}
		for perm, granted := range rec.ExplicitPermissions {
			if granted {
				prev[perm] = permissions.Grant
			} else {
				prev[perm] = permissions.Revoke
			}
		}
		if rec.Role != req.Role {
			if _, err := h.Perms.SetRole(ctx, project.ID, userID, req.Role); err != nil {
				return err
			}
		}
	} else if err != nil {
		return err
	}

	next := make(map[string]permissions.OverrideState, len(req.Grants)+len(req.Revokes))
	for _, p := range req.Grants {
		next[p] = permissions.Grant
	}
	for _, p := range req.Revokes {
		next[p] = permissions.Revoke
	}

	cs := permissions.Diff(prev, next)
	if err := h.Perms.ApplyAction(ctx, project.ID, userID, "grant", cs.ToGrant); err != nil {
		return err
	}
	if err := h.Perms.ApplyAction(ctx, project.ID, userID, "revoke", cs.ToRevoke); err != nil {
		return err
	}
	return h.Perms.ApplyAction(ctx, project.ID, userID, "reset", cs.ToReset)
}

// loadProject resolves the {projectID} URL parameter to a project in
// the requester's space. Projects in other spaces read as not found.
func (h *Handler) loadProject(ctx context.Context, w http.ResponseWriter, r *http.Request) (models.Project, bool) {
	raw := chi.URLParam(r, "projectID")
	projectID, err := primitive.ObjectIDFromHex(raw)
	if err != nil {
		apiutil.WriteBadRequest(w, "invalid project ID")
		return models.Project{}, false
	}

	project, err := h.Projects.GetByID(ctx, projectID)
	if err != nil {
		if err == projectstore.ErrNotFound {
			apiutil.WriteNotFound(w, "Project not found.")
			return models.Project{}, false
		}
		apiutil.WriteServerError(w, h.Log, "permissions: project lookup", err)
		return models.Project{}, false
	}

	if project.SpaceID != authz.UserSpaceID(r) {
		apiutil.WriteNotFound(w, "Project not found.")
		return models.Project{}, false
	}
	return project, true
}

// requireManage writes a 403 and returns false when the requester may
// not manage members on the project.
func (h *Handler) requireManage(ctx context.Context, w http.ResponseWriter, r *http.Request, projectID primitive.ObjectID) bool {
	ok, err := h.Policy.CanManageMembers(ctx, r, projectID)
	if err != nil {
		apiutil.WriteServerError(w, h.Log, "permissions: manage check", err)
		return false
	}
	if !ok {
		apiutil.WriteForbidden(w, "")
		return false
	}
	return true
}

// requireView writes a 403 and returns false when the requester may
// not view the project.
func (h *Handler) requireView(ctx context.Context, w http.ResponseWriter, r *http.Request, projectID primitive.ObjectID) bool {
	ok, err := h.Policy.Can(ctx, r, projectID, permissions.CanViewProject)
	if err != nil {
		apiutil.WriteServerError(w, h.Log, "permissions: view check", err)
		return false
	}
	if !ok && !authz.IsAdmin(r) {
		apiutil.WriteForbidden(w, "")
		return false
	}
	return true
}

func parseUserID(w http.ResponseWriter, r *http.Request) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "userID"))
	if err != nil {
		apiutil.WriteBadRequest(w, "invalid user ID")
		return primitive.NilObjectID, false
	}
	return id, true
}
