// internal/app/features/members/handler.go
package members

import (
	"net/http"
	"strings"

	"github.com/dalemusser/tempohub/internal/app/permissions"
	userstore "github.com/dalemusser/tempohub/internal/app/store/users"
	"github.com/dalemusser/tempohub/internal/app/system/apiutil"
	"github.com/dalemusser/tempohub/internal/app/system/auditlog"
	"github.com/dalemusser/tempohub/internal/app/system/authz"
	"github.com/dalemusser/tempohub/internal/app/system/htmlsanitize"
	"github.com/dalemusser/tempohub/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// Handler manages the accounts of a space: listing, creating,
// space-role changes, enable/disable, and space-scope permission
// grants. All mutations are admin-or-owner only; touching an owner
// account takes the owner role.
type Handler struct {
	Log      *zap.Logger
	AuditLog *auditlog.Logger

	Users *userstore.Store
}

func NewHandler(db *mongo.Database, audit *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{
		Log:      logger,
		AuditLog: audit,
		Users:    userstore.New(db),
	}
}

// HandleList lists the users of the caller's space, optionally
// filtered by space role. Any signed-in user may list; the member
// directory backs assignee and reviewer pickers.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if _, _, _, ok := authz.UserCtx(r); !ok {
		apiutil.WriteUnauthorized(w)
		return
	}

	role := r.URL.Query().Get("role")
	if role != "" && !permissions.ValidRole(role) {
		apiutil.WriteValidationError(w, "Unknown role filter.",
			map[string]string{"role": "unknown role"})
		return
	}

	users, err := h.Users.FindBySpace(ctx, authz.UserSpaceID(r), role)
	if err != nil {
		apiutil.WriteServerError(w, h.Log, "members: list", err)
		return
	}

	out := make([]memberView, 0, len(users))
	for _, u := range users {
		out = append(out, toMemberView(u))
	}
	apiutil.WriteJSON(w, http.StatusOK, out)
}

// HandleGet returns one user of the caller's space.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	user, ok := h.loadMember(w, r)
	if !ok {
		return
	}
	apiutil.WriteJSON(w, http.StatusOK, toMemberView(*user))
}

// HandleCreate creates an account in the caller's space. A password
// makes it a password account; without one the user must sign in
// through Google. Granting the owner role takes the owner role.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actorRole, _, actorID, ok := authz.UserCtx(r)
	if !ok {
		apiutil.WriteUnauthorized(w)
		return
	}
	if !authz.IsAdmin(r) {
		apiutil.WriteForbidden(w, "")
		return
	}

	var req createRequest
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		apiutil.WriteBadRequest(w, "invalid JSON body")
		return
	}

	fields := map[string]string{}
	if strings.TrimSpace(req.FullName) == "" {
		fields["full_name"] = "required"
	}
	if strings.TrimSpace(req.Email) == "" {
		fields["email"] = "required"
	}
	if !permissions.ValidRole(req.Role) {
		fields["role"] = "unknown role"
	}
	if req.Password != "" && len(req.Password) < 8 {
		fields["password"] = "must be at least 8 characters"
	}
	if len(fields) > 0 {
		apiutil.WriteValidationError(w, "The user could not be created.", fields)
		return
	}
	if req.Role == "owner" && !authz.IsOwner(r) {
		apiutil.WriteForbidden(w, "Only an owner can grant the owner role.")
		return
	}

	u := models.User{
		FullName:   htmlsanitize.StripTags(req.FullName),
		Email:      req.Email,
		Role:       req.Role,
		Status:     "active",
		SpaceID:    authz.UserSpaceID(r),
		AuthMethod: "google",
	}
	if req.Password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if err != nil {
			apiutil.WriteServerError(w, h.Log, "members: hash password", err)
			return
		}
		u.PasswordHash = string(hash)
		u.AuthMethod = "password"
	}

	created, err := h.Users.Create(ctx, u)
	if err != nil {
		if err == userstore.ErrDuplicateEmail {
			apiutil.WriteConflict(w, "A user with this email already exists.")
			return
		}
		apiutil.WriteServerError(w, h.Log, "members: create", err)
		return
	}

	spaceID := authz.UserSpaceID(r)
	h.AuditLog.UserCreated(ctx, r, actorID, created.ID, &spaceID, actorRole, created.Role)

	apiutil.WriteJSON(w, http.StatusCreated, toMemberView(created))
}

// HandleSetRole changes a user's space-scope role.
func (h *Handler) HandleSetRole(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	_, _, actorID, ok := authz.UserCtx(r)
	if !ok {
		apiutil.WriteUnauthorized(w)
		return
	}
	if !authz.IsAdmin(r) {
		apiutil.WriteForbidden(w, "")
		return
	}

	var req roleRequest
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		apiutil.WriteBadRequest(w, "invalid JSON body")
		return
	}
	if !permissions.ValidRole(req.Role) {
		apiutil.WriteValidationError(w, "Unknown role.",
			map[string]string{"role": "unknown role"})
		return
	}

	user, ok := h.loadMember(w, r)
	if !ok {
		return
	}
	if user.ID == actorID {
		apiutil.WriteForbidden(w, "You cannot change your own role.")
		return
	}
	if (user.Role == "owner" || req.Role == "owner") && !authz.IsOwner(r) {
		apiutil.WriteForbidden(w, "Only an owner can change owner roles.")
		return
	}

	if user.Role == req.Role {
		apiutil.WriteJSON(w, http.StatusOK, toMemberView(*user))
		return
	}

	if err := h.Users.UpdateRole(ctx, user.ID, req.Role); err != nil {
		apiutil.WriteServerError(w, h.Log, "members: update role", err)
		return
	}

	spaceID := authz.UserSpaceID(r)
	h.AuditLog.SpaceRoleChanged(ctx, r, actorID, user.ID, &spaceID, user.Role, req.Role)

	user.Role = req.Role
	apiutil.WriteJSON(w, http.StatusOK, toMemberView(*user))
}

// HandleSetStatus disables or re-enables a user. Disabled users fail
// sign-in and their sessions stop resolving on the next request.
func (h *Handler) HandleSetStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	_, _, actorID, ok := authz.UserCtx(r)
	if !ok {
		apiutil.WriteUnauthorized(w)
		return
	}
	if !authz.IsAdmin(r) {
		apiutil.WriteForbidden(w, "")
		return
	}

	var req statusRequest
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		apiutil.WriteBadRequest(w, "invalid JSON body")
		return
	}
	if req.Status != "active" && req.Status != "disabled" {
		apiutil.WriteValidationError(w, "Unknown status.",
			map[string]string{"status": "must be active or disabled"})
		return
	}

	user, ok := h.loadMember(w, r)
	if !ok {
		return
	}
	if user.ID == actorID {
		apiutil.WriteForbidden(w, "You cannot disable your own account.")
		return
	}
	if user.Role == "owner" && !authz.IsOwner(r) {
		apiutil.WriteForbidden(w, "Only an owner can disable an owner.")
		return
	}

	if user.Status != req.Status {
		if err := h.Users.SetStatus(ctx, user.ID, req.Status); err != nil {
			apiutil.WriteServerError(w, h.Log, "members: set status", err)
			return
		}
		spaceID := authz.UserSpaceID(r)
		h.AuditLog.UserStatusChanged(ctx, r, actorID, user.ID, &spaceID, req.Status)
		user.Status = req.Status
	}

	apiutil.WriteJSON(w, http.StatusOK, toMemberView(*user))
}

// HandleSetPermissions replaces a user's explicit space-scope
// permission list. These grants sit alongside the role defaults and
// apply across the whole space, unlike per-project overrides.
func (h *Handler) HandleSetPermissions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if _, _, _, ok := authz.UserCtx(r); !ok {
		apiutil.WriteUnauthorized(w)
		return
	}
	if !authz.IsAdmin(r) {
		apiutil.WriteForbidden(w, "")
		return
	}

	var req permissionsRequest
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		apiutil.WriteBadRequest(w, "invalid JSON body")
		return
	}
	for _, p := range req.Permissions {
		if !permissions.ValidPermission(p) {
			apiutil.WriteValidationError(w, "Unknown permission.",
				map[string]string{"permissions": "unknown permission: " + p})
			return
		}
	}

	user, ok := h.loadMember(w, r)
	if !ok {
		return
	}

	if err := h.Users.UpdateSpacePermissions(ctx, user.ID, req.Permissions); err != nil {
		apiutil.WriteServerError(w, h.Log, "members: update permissions", err)
		return
	}

	user.SpacePermissions = req.Permissions
	apiutil.WriteJSON(w, http.StatusOK, toMemberView(*user))
}

// loadMember resolves the {userID} route param to a user in the
// caller's space. Users in other spaces read as not found.
func (h *Handler) loadMember(w http.ResponseWriter, r *http.Request) (*models.User, bool) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "userID"))
	if err != nil {
		apiutil.WriteNotFound(w, "User not found.")
		return nil, false
	}
	user, err := h.Users.GetByID(r.Context(), id)
	if err != nil {
		if err == userstore.ErrNotFound {
			apiutil.WriteNotFound(w, "User not found.")
			return nil, false
		}
		apiutil.WriteServerError(w, h.Log, "members: load user", err)
		return nil, false
	}
	if user.SpaceID != authz.UserSpaceID(r) {
		apiutil.WriteNotFound(w, "User not found.")
		return nil, false
	}
	return user, true
}

func toMemberView(u models.User) memberView {
	return memberView{
		ID:               u.ID.Hex(),
		FullName:         u.FullName,
		Email:            u.Email,
		Role:             u.Role,
		Status:           u.Status,
		AuthMethod:       u.AuthMethod,
		SpacePermissions: u.SpacePermissions,
		CreatedAt:        u.CreatedAt,
	}
}
