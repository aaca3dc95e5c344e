// internal/app/features/projects/handler.go
package projects

import (
	"context"
	"net/http"
	"strings"

	"github.com/dalemusser/tempohub/internal/app/permissions"
	"github.com/dalemusser/tempohub/internal/app/policy/projectpolicy"
	projectstore "github.com/dalemusser/tempohub/internal/app/store/projects"
	timeentrystore "github.com/dalemusser/tempohub/internal/app/store/timeentries"
	"github.com/dalemusser/tempohub/internal/app/system/apiutil"
	"github.com/dalemusser/tempohub/internal/app/system/auditlog"
	"github.com/dalemusser/tempohub/internal/app/system/authz"
	"github.com/dalemusser/tempohub/internal/app/system/htmlsanitize"
	"github.com/dalemusser/tempohub/internal/app/system/timeouts"
	"github.com/dalemusser/tempohub/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler serves project CRUD and lifecycle endpoints.
type Handler struct {
	Log      *zap.Logger
	Policy   *projectpolicy.Policy
	AuditLog *auditlog.Logger
	Projects *projectstore.Store
	Entries  *timeentrystore.Store
}

// NewHandler constructs a projects Handler.
func NewHandler(db *mongo.Database, audit *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{
		Log:      logger,
		Policy:   projectpolicy.New(db),
		AuditLog: audit,
		Projects: projectstore.New(db),
		Entries:  timeentrystore.New(db),
	}
}

// HandleList handles GET /api/projects. Optional ?status=active|archived.
// Projects the user cannot view are silently omitted.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	status := r.URL.Query().Get("status")
	if status != "" && status != "active" && status != "archived" {
		apiutil.WriteBadRequest(w, "status must be active or archived")
		return
	}

	all, err := h.Projects.FindBySpace(ctx, authz.UserSpaceID(r), status)
	if err != nil {
		apiutil.WriteServerError(w, h.Log, "projects: list", err)
		return
	}

	admin := authz.IsAdmin(r)
	out := make([]projectResponse, 0, len(all))
	for _, p := range all {
		if !admin {
			ok, err := h.Policy.Can(ctx, r, p.ID, permissions.CanViewProject)
			if err != nil {
				apiutil.WriteServerError(w, h.Log, "projects: view check", err)
				return
			}
			if !ok {
				continue
			}
		}
		showBudget := admin
		if !showBudget {
			showBudget, err = h.Policy.Can(ctx, r, p.ID, permissions.CanViewBudget)
			if err != nil {
				apiutil.WriteServerError(w, h.Log, "projects: budget check", err)
				return
			}
		}
		out = append(out, h.toResponse(ctx, p, showBudget, false))
	}

	apiutil.WriteJSON(w, http.StatusOK, out)
}

// HandleCreate handles POST /api/projects.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	if !authz.HasAnyRole(r, "owner", "admin", "manager") {
		apiutil.WriteForbidden(w, "")
		return
	}

	var req createProjectRequest
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		apiutil.WriteBadRequest(w, "invalid JSON body")
		return
	}

	fields := map[string]string{}
	if strings.TrimSpace(req.Name) == "" {
		fields["name"] = "name is required"
	}
	if req.BudgetMinutes < 0 {
		fields["budget_minutes"] = "budget cannot be negative"
	}
	if len(fields) > 0 {
		apiutil.WriteValidationError(w, "Invalid project.", fields)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	_, _, actorID, _ := authz.UserCtx(r)
	spaceID := authz.UserSpaceID(r)

	p, err := h.Projects.Create(ctx, models.Project{
		Name:          htmlsanitize.StripTags(req.Name),
		Description:   htmlsanitize.Sanitize(req.Description),
		SpaceID:       spaceID,
		BudgetMinutes: req.BudgetMinutes,
		CreatedBy:     actorID,
	})
	if err != nil {
		if err == projectstore.ErrDuplicateName {
			apiutil.WriteConflict(w, "A project with this name already exists.")
			return
		}
		apiutil.WriteServerError(w, h.Log, "projects: create", err)
		return
	}

	h.AuditLog.ProjectCreated(ctx, r, actorID, p.ID, &spaceID, p.Name)
	h.Log.Info("project created",
		zap.String("project_id", p.ID.Hex()),
		zap.String("space_id", spaceID.Hex()))

	apiutil.WriteJSON(w, http.StatusCreated, h.toResponse(ctx, p, true, false))
}

// HandleGet handles GET /api/projects/{projectID}. Spend against the
// budget is included for callers with budget visibility.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	p, ok := h.loadProject(ctx, w, r)
	if !ok {
		return
	}
	if !h.requireCan(ctx, w, r, p.ID, permissions.CanViewProject) {
		return
	}

	showBudget := authz.IsAdmin(r)
	if !showBudget {
		var err error
		showBudget, err = h.Policy.Can(ctx, r, p.ID, permissions.CanViewBudget)
		if err != nil {
			apiutil.WriteServerError(w, h.Log, "projects: budget check", err)
			return
		}
	}

	apiutil.WriteJSON(w, http.StatusOK, h.toResponse(ctx, p, showBudget, showBudget))
}

// HandleUpdate handles PUT /api/projects/{projectID}.
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	var req updateProjectRequest
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		apiutil.WriteBadRequest(w, "invalid JSON body")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	p, ok := h.loadProject(ctx, w, r)
	if !ok {
		return
	}
	if !h.requireCan(ctx, w, r, p.ID, permissions.CanEditProject) {
		return
	}

	fields := map[string]string{}
	if strings.TrimSpace(req.Name) == "" {
		fields["name"] = "name is required"
	}
	if req.BudgetMinutes < 0 {
		fields["budget_minutes"] = "budget cannot be negative"
	}
	if len(fields) > 0 {
		apiutil.WriteValidationError(w, "Invalid project.", fields)
		return
	}

	desc := htmlsanitize.Sanitize(req.Description)
	name := htmlsanitize.StripTags(req.Name)
	if err := h.Projects.Update(ctx, p.ID, name, desc, req.BudgetMinutes); err != nil {
		if err == projectstore.ErrDuplicateName {
			apiutil.WriteConflict(w, "A project with this name already exists.")
			return
		}
		if err == projectstore.ErrNotFound {
			apiutil.WriteNotFound(w, "Project not found.")
			return
		}
		apiutil.WriteServerError(w, h.Log, "projects: update", err)
		return
	}

	_, _, actorID, _ := authz.UserCtx(r)
	h.AuditLog.ProjectUpdated(ctx, r, actorID, p.ID, &p.SpaceID, changedFields(p, req, desc))

	updated, err := h.Projects.GetByID(ctx, p.ID)
	if err != nil {
		apiutil.WriteServerError(w, h.Log, "projects: reload after update", err)
		return
	}
	apiutil.WriteJSON(w, http.StatusOK, h.toResponse(ctx, updated, true, false))
}

// HandleArchive handles POST /api/projects/{projectID}/archive.
// Archiving is reversible and keeps all tasks and time entries.
func (h *Handler) HandleArchive(w http.ResponseWriter, r *http.Request) {
	h.setStatus(w, r, "archived")
}

// HandleRestore handles POST /api/projects/{projectID}/restore.
func (h *Handler) HandleRestore(w http.ResponseWriter, r *http.Request) {
	h.setStatus(w, r, "active")
}

func (h *Handler) setStatus(w http.ResponseWriter, r *http.Request, status string) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	p, ok := h.loadProject(ctx, w, r)
	if !ok {
		return
	}
	if !h.requireCan(ctx, w, r, p.ID, permissions.CanArchiveProject) {
		return
	}

	if err := h.Projects.SetStatus(ctx, p.ID, status); err != nil {
		if err == projectstore.ErrNotFound {
			apiutil.WriteNotFound(w, "Project not found.")
			return
		}
		apiutil.WriteServerError(w, h.Log, "projects: set status", err)
		return
	}

	_, _, actorID, _ := authz.UserCtx(r)
	if status == "archived" {
		h.AuditLog.ProjectArchived(ctx, r, actorID, p.ID, &p.SpaceID)
	} else {
		h.AuditLog.ProjectRestored(ctx, r, actorID, p.ID, &p.SpaceID)
	}

	apiutil.WriteJSON(w, http.StatusOK, map[string]string{"status": status})
}

// toResponse builds the payload, hiding budget fields when the caller
// lacks budget visibility. Spend is an extra aggregation query, so it
// is computed only when asked for.
func (h *Handler) toResponse(ctx context.Context, p models.Project, showBudget, withSpend bool) projectResponse {
	resp := projectResponse{
		ID:          p.ID.Hex(),
		Name:        p.Name,
		Description: p.Description,
		Status:      p.Status,
		CreatedBy:   p.CreatedBy.Hex(),
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
	if showBudget {
		budget := p.BudgetMinutes
		resp.BudgetMinutes = &budget
		if withSpend {
			if spent, err := h.Entries.ProjectTotalMinutes(ctx, p.ID); err == nil {
				resp.SpentMinutes = &spent
			} else {
				h.Log.Warn("projects: spend aggregation failed",
					zap.Error(err), zap.String("project_id", p.ID.Hex()))
			}
		}
	}
	return resp
}

func (h *Handler) loadProject(ctx context.Context, w http.ResponseWriter, r *http.Request) (models.Project, bool) {
	projectID, err := primitive.ObjectIDFromHex(chi.URLParam(r, "projectID"))
	if err != nil {
		apiutil.WriteBadRequest(w, "invalid project ID")
		return models.Project{}, false
	}

	p, err := h.Projects.GetByID(ctx, projectID)
	if err != nil {
		if err == projectstore.ErrNotFound {
			apiutil.WriteNotFound(w, "Project not found.")
			return models.Project{}, false
		}
		apiutil.WriteServerError(w, h.Log, "projects: lookup", err)
		return models.Project{}, false
	}
	if p.SpaceID != authz.UserSpaceID(r) {
		apiutil.WriteNotFound(w, "Project not found.")
		return models.Project{}, false
	}
	return p, true
}

func (h *Handler) requireCan(ctx context.Context, w http.ResponseWriter, r *http.Request, projectID primitive.ObjectID, permission string) bool {
	if authz.IsAdmin(r) {
		return true
	}
	ok, err := h.Policy.Can(ctx, r, projectID, permission)
	if err != nil {
		apiutil.WriteServerError(w, h.Log, "projects: permission check", err)
		return false
	}
	if !ok {
		apiutil.WriteForbidden(w, "")
		return false
	}
	return true
}

func changedFields(prev models.Project, req updateProjectRequest, sanitizedDesc string) string {
	var changed []string
	if strings.TrimSpace(req.Name) != prev.Name {
		changed = append(changed, "name")
	}
	if sanitizedDesc != prev.Description {
		changed = append(changed, "description")
	}
	if req.BudgetMinutes != prev.BudgetMinutes {
		changed = append(changed, "budget_minutes")
	}
	return strings.Join(changed, ",")
}
