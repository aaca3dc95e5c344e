// internal/app/features/tasks/handler.go
package tasks

import (
	"context"
	"net/http"
	"strings"

	"github.com/dalemusser/tempohub/internal/app/permissions"
	"github.com/dalemusser/tempohub/internal/app/policy/projectpolicy"
	projectstore "github.com/dalemusser/tempohub/internal/app/store/projects"
	taskstore "github.com/dalemusser/tempohub/internal/app/store/tasks"
	userstore "github.com/dalemusser/tempohub/internal/app/store/users"
	"github.com/dalemusser/tempohub/internal/app/system/apiutil"
	"github.com/dalemusser/tempohub/internal/app/system/authz"
	"github.com/dalemusser/tempohub/internal/app/system/htmlsanitize"
	"github.com/dalemusser/tempohub/internal/app/system/timeouts"
	"github.com/dalemusser/tempohub/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler serves the task board endpoints for a project.
type Handler struct {
	Log      *zap.Logger
	Policy   *projectpolicy.Policy
	Tasks    *taskstore.Store
	Users    *userstore.Store
	Projects *projectstore.Store
}

// NewHandler constructs a tasks Handler.
func NewHandler(db *mongo.Database, logger *zap.Logger) *Handler {
	return &Handler{
		Log:      logger,
		Policy:   projectpolicy.New(db),
		Tasks:    taskstore.New(db),
		Users:    userstore.New(db),
		Projects: projectstore.New(db),
	}
}

// HandleList handles GET .../tasks. Optional ?status= filters to one
// lane; tasks come back ordered by lane position.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	project, ok := h.loadProject(ctx, w, r)
	if !ok {
		return
	}
	if !h.requireCan(ctx, w, r, project.ID, permissions.CanViewContent) {
		return
	}

	status := r.URL.Query().Get("status")
	if status != "" && !models.ValidTaskStatus(status) {
		apiutil.WriteBadRequest(w, "unknown task status")
		return
	}

	tasks, err := h.Tasks.FindByProject(ctx, project.ID, status)
	if err != nil {
		apiutil.WriteServerError(w, h.Log, "tasks: list", err)
		return
	}

	out := make([]taskResponse, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, toResponse(t))
	}
	apiutil.WriteJSON(w, http.StatusOK, out)
}

// HandleCreate handles POST .../tasks.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req createTaskRequest
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
	if !h.requireCan(ctx, w, r, project.ID, permissions.CanEditContent) {
		return
	}

	fields := map[string]string{}
	if strings.TrimSpace(req.Title) == "" {
		fields["title"] = "title is required"
	}
	if req.Status != "" && !models.ValidTaskStatus(req.Status) {
		fields["status"] = "unknown task status"
	}

	var assignee *primitive.ObjectID
	if req.Assignee != "" {
		id, err := primitive.ObjectIDFromHex(req.Assignee)
		if err != nil {
			fields["assignee"] = "assignee must be a valid user ID"
		} else {
			assignee = &id
		}
	}
	if len(fields) > 0 {
		apiutil.WriteValidationError(w, "Invalid task.", fields)
		return
	}

	// Assigning at creation needs the same right as assigning later.
	if assignee != nil {
		if !h.requireCan(ctx, w, r, project.ID, permissions.CanAssignTasks) {
			return
		}
		if !h.assigneeInSpace(ctx, w, *assignee, project.SpaceID) {
			return
		}
	}

	_, _, actorID, _ := authz.UserCtx(r)
	t, err := h.Tasks.Create(ctx, models.Task{
		Title:       htmlsanitize.StripTags(req.Title),
		Description: htmlsanitize.Sanitize(req.Description),
		ProjectID:   project.ID,
		SpaceID:     project.SpaceID,
		Assignee:    assignee,
		Status:      req.Status,
		CreatedBy:   actorID,
	})
	if err != nil {
		apiutil.WriteServerError(w, h.Log, "tasks: create", err)
		return
	}

	apiutil.WriteJSON(w, http.StatusCreated, toResponse(t))
}

// HandleUpdate handles PUT .../tasks/{taskID}.
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	var req updateTaskRequest
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		apiutil.WriteBadRequest(w, "invalid JSON body")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	project, task, ok := h.loadTask(ctx, w, r)
	if !ok {
		return
	}
	if !h.requireCan(ctx, w, r, project.ID, permissions.CanEditContent) {
		return
	}

	if strings.TrimSpace(req.Title) == "" {
		apiutil.WriteValidationError(w, "Invalid task.", map[string]string{"title": "title is required"})
		return
	}

	if err := h.Tasks.Update(ctx, task.ID, htmlsanitize.StripTags(req.Title), htmlsanitize.Sanitize(req.Description)); err != nil {
		if err == taskstore.ErrNotFound {
			apiutil.WriteNotFound(w, "Task not found.")
			return
		}
		apiutil.WriteServerError(w, h.Log, "tasks: update", err)
		return
	}

	updated, err := h.Tasks.GetByID(ctx, task.ID)
	if err != nil {
		apiutil.WriteServerError(w, h.Log, "tasks: reload after update", err)
		return
	}
	apiutil.WriteJSON(w, http.StatusOK, toResponse(updated))
}

// HandleMove handles PUT .../tasks/{taskID}/move: lane and position.
func (h *Handler) HandleMove(w http.ResponseWriter, r *http.Request) {
	var req moveTaskRequest
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		apiutil.WriteBadRequest(w, "invalid JSON body")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	project, task, ok := h.loadTask(ctx, w, r)
	if !ok {
		return
	}
	if !h.requireCan(ctx, w, r, project.ID, permissions.CanEditContent) {
		return
	}

	fields := map[string]string{}
	if !models.ValidTaskStatus(req.Status) {
		fields["status"] = "unknown task status"
	}
	if req.Position < 0 {
		fields["position"] = "position cannot be negative"
	}
	if len(fields) > 0 {
		apiutil.WriteValidationError(w, "Invalid move.", fields)
		return
	}

	if err := h.Tasks.Move(ctx, task.ID, req.Status, req.Position); err != nil {
		if err == taskstore.ErrNotFound {
			apiutil.WriteNotFound(w, "Task not found.")
			return
		}
		apiutil.WriteServerError(w, h.Log, "tasks: move", err)
		return
	}

	apiutil.WriteJSON(w, http.StatusOK, map[string]any{
		"status":   req.Status,
		"position": req.Position,
	})
}

// HandleAssign handles PUT .../tasks/{taskID}/assign. An empty
// assignee unassigns the task.
func (h *Handler) HandleAssign(w http.ResponseWriter, r *http.Request) {
	var req assignTaskRequest
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		apiutil.WriteBadRequest(w, "invalid JSON body")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	project, task, ok := h.loadTask(ctx, w, r)
	if !ok {
		return
	}
	if !h.requireCan(ctx, w, r, project.ID, permissions.CanAssignTasks) {
		return
	}

	var assignee *primitive.ObjectID
	if req.Assignee != "" {
		id, err := primitive.ObjectIDFromHex(req.Assignee)
		if err != nil {
			apiutil.WriteValidationError(w, "Invalid assignment.",
				map[string]string{"assignee": "assignee must be a valid user ID"})
			return
		}
		if !h.assigneeInSpace(ctx, w, id, project.SpaceID) {
			return
		}
		assignee = &id
	}

	if err := h.Tasks.Assign(ctx, task.ID, assignee); err != nil {
		if err == taskstore.ErrNotFound {
			apiutil.WriteNotFound(w, "Task not found.")
			return
		}
		apiutil.WriteServerError(w, h.Log, "tasks: assign", err)
		return
	}

	apiutil.WriteJSON(w, http.StatusOK, map[string]string{"assignee": req.Assignee})
}

// HandleDelete handles DELETE .../tasks/{taskID}.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	project, task, ok := h.loadTask(ctx, w, r)
	if !ok {
		return
	}
	if !h.requireCan(ctx, w, r, project.ID, permissions.CanDeleteContent) {
		return
	}

	if err := h.Tasks.Delete(ctx, task.ID); err != nil {
		if err == taskstore.ErrNotFound {
			apiutil.WriteNotFound(w, "Task not found.")
			return
		}
		apiutil.WriteServerError(w, h.Log, "tasks: delete", err)
		return
	}

	apiutil.WriteJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func toResponse(t models.Task) taskResponse {
	resp := taskResponse{
		ID:          t.ID.Hex(),
		Title:       t.Title,
		Description: t.Description,
		ProjectID:   t.ProjectID.Hex(),
		Status:      t.Status,
		Position:    t.Position,
		CreatedBy:   t.CreatedBy.Hex(),
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
	if t.Assignee != nil {
		resp.Assignee = t.Assignee.Hex()
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
		apiutil.WriteServerError(w, h.Log, "tasks: project lookup", err)
		return models.Project{}, false
	}
	if p.SpaceID != authz.UserSpaceID(r) {
		apiutil.WriteNotFound(w, "Project not found.")
		return models.Project{}, false
	}
	return p, true
}

// loadTask resolves both URL parameters and checks the task belongs to
// the routed project.
func (h *Handler) loadTask(ctx context.Context, w http.ResponseWriter, r *http.Request) (models.Project, models.Task, bool) {
	project, ok := h.loadProject(ctx, w, r)
	if !ok {
		return models.Project{}, models.Task{}, false
	}

	taskID, err := primitive.ObjectIDFromHex(chi.URLParam(r, "taskID"))
	if err != nil {
		apiutil.WriteBadRequest(w, "invalid task ID")
		return models.Project{}, models.Task{}, false
	}
	task, err := h.Tasks.GetByID(ctx, taskID)
	if err != nil {
		if err == taskstore.ErrNotFound {
			apiutil.WriteNotFound(w, "Task not found.")
			return models.Project{}, models.Task{}, false
		}
		apiutil.WriteServerError(w, h.Log, "tasks: lookup", err)
		return models.Project{}, models.Task{}, false
	}
	if task.ProjectID != project.ID {
		apiutil.WriteNotFound(w, "Task not found.")
		return models.Project{}, models.Task{}, false
	}
	return project, task, true
}

func (h *Handler) assigneeInSpace(ctx context.Context, w http.ResponseWriter, userID, spaceID primitive.ObjectID) bool {
	u, err := h.Users.GetByID(ctx, userID)
	if err != nil {
		if err == userstore.ErrNotFound {
			apiutil.WriteNotFound(w, "Assignee not found.")
			return false
		}
		apiutil.WriteServerError(w, h.Log, "tasks: assignee lookup", err)
		return false
	}
	if u.SpaceID != spaceID {
		apiutil.WriteNotFound(w, "Assignee not found.")
		return false
	}
	return true
}

func (h *Handler) requireCan(ctx context.Context, w http.ResponseWriter, r *http.Request, projectID primitive.ObjectID, permission string) bool {
	if authz.IsAdmin(r) {
		return true
	}
	ok, err := h.Policy.Can(ctx, r, projectID, permission)
	if err != nil {
		apiutil.WriteServerError(w, h.Log, "tasks: permission check", err)
		return false
	}
	if !ok {
		apiutil.WriteForbidden(w, "")
		return false
	}
	return true
}
