// internal/app/features/timeentries/handler.go
package timeentries

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/dalemusser/tempohub/internal/app/permissions"
	"github.com/dalemusser/tempohub/internal/app/policy/projectpolicy"
	projectstore "github.com/dalemusser/tempohub/internal/app/store/projects"
	taskstore "github.com/dalemusser/tempohub/internal/app/store/tasks"
	timeentrystore "github.com/dalemusser/tempohub/internal/app/store/timeentries"
	"github.com/dalemusser/tempohub/internal/app/system/apiutil"
	"github.com/dalemusser/tempohub/internal/app/system/authz"
	"github.com/dalemusser/tempohub/internal/app/system/timeouts"
	"github.com/dalemusser/tempohub/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

var (
	errBadFrom   = errors.New("from must be an RFC 3339 timestamp")
	errBadTo     = errors.New("to must be an RFC 3339 timestamp")
	errBadWindow = errors.New("to must be after from")
)

// Handler serves timers and manual time entries.
type Handler struct {
	Log      *zap.Logger
	Policy   *projectpolicy.Policy
	Entries  *timeentrystore.Store
	Tasks    *taskstore.Store
	Projects *projectstore.Store
}

// NewHandler constructs a timeentries Handler.
func NewHandler(db *mongo.Database, logger *zap.Logger) *Handler {
	return &Handler{
		Log:      logger,
		Policy:   projectpolicy.New(db),
		Entries:  timeentrystore.New(db),
		Tasks:    taskstore.New(db),
		Projects: projectstore.New(db),
	}
}

// HandleStartTimer handles POST /api/timeentries/timer/start. Starting
// a timer closes any previously running one first; a user never has
// two open timers.
func (h *Handler) HandleStartTimer(w http.ResponseWriter, r *http.Request) {
	var req startTimerRequest
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		apiutil.WriteBadRequest(w, "invalid JSON body")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	project, taskID, ok := h.resolveTarget(ctx, w, r, req.ProjectID, req.TaskID)
	if !ok {
		return
	}
	if !h.requireCan(ctx, w, r, project.ID, permissions.CanTrackTime) {
		return
	}

	_, _, actorID, _ := authz.UserCtx(r)
	e, err := h.Entries.StartTimer(ctx, models.TimeEntry{
		UserID:  actorID,
		SpaceID: project.SpaceID,
		Project: project.ID,
		TaskID:  taskID,
		Note:    req.Note,
	})
	if err != nil {
		apiutil.WriteServerError(w, h.Log, "timeentries: start timer", err)
		return
	}

	h.Log.Info("timer started",
		zap.String("user_id", actorID.Hex()),
		zap.String("project_id", project.ID.Hex()))

	apiutil.WriteJSON(w, http.StatusCreated, toResponse(e))
}

// HandleStopTimer handles POST /api/timeentries/timer/stop.
func (h *Handler) HandleStopTimer(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	_, _, actorID, ok := authz.UserCtx(r)
	if !ok {
		apiutil.WriteUnauthorized(w)
		return
	}

	e, err := h.Entries.StopRunning(ctx, actorID, time.Now().UTC())
	if err != nil {
		if err == timeentrystore.ErrNotRunning {
			apiutil.WriteNotFound(w, "No running timer.")
			return
		}
		apiutil.WriteServerError(w, h.Log, "timeentries: stop timer", err)
		return
	}

	apiutil.WriteJSON(w, http.StatusOK, toResponse(e))
}

// HandleGetTimer handles GET /api/timeentries/timer.
func (h *Handler) HandleGetTimer(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	_, _, actorID, ok := authz.UserCtx(r)
	if !ok {
		apiutil.WriteUnauthorized(w)
		return
	}

	e, err := h.Entries.GetRunning(ctx, actorID)
	if err != nil {
		if err == timeentrystore.ErrNotRunning {
			apiutil.WriteNotFound(w, "No running timer.")
			return
		}
		apiutil.WriteServerError(w, h.Log, "timeentries: get timer", err)
		return
	}

	apiutil.WriteJSON(w, http.StatusOK, toResponse(e))
}

// HandleCreateManual handles POST /api/timeentries: a completed entry
// with an explicit range.
func (h *Handler) HandleCreateManual(w http.ResponseWriter, r *http.Request) {
	var req manualEntryRequest
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		apiutil.WriteBadRequest(w, "invalid JSON body")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	project, taskID, ok := h.resolveTarget(ctx, w, r, req.ProjectID, req.TaskID)
	if !ok {
		return
	}
	if !h.requireCan(ctx, w, r, project.ID, permissions.CanTrackTime) {
		return
	}

	if req.StartedAt.IsZero() || req.EndedAt.IsZero() || !req.EndedAt.After(req.StartedAt) {
		apiutil.WriteValidationError(w, "Invalid time range.",
			map[string]string{"ended_at": "entry must end after it starts"})
		return
	}

	_, _, actorID, _ := authz.UserCtx(r)
	end := req.EndedAt.UTC()
	e, err := h.Entries.CreateManual(ctx, models.TimeEntry{
		UserID:    actorID,
		SpaceID:   project.SpaceID,
		Project:   project.ID,
		TaskID:    taskID,
		Note:      req.Note,
		StartedAt: req.StartedAt.UTC(),
		EndedAt:   &end,
	})
	if err != nil {
		apiutil.WriteServerError(w, h.Log, "timeentries: create manual", err)
		return
	}

	apiutil.WriteJSON(w, http.StatusCreated, toResponse(e))
}

// HandleList handles GET /api/timeentries?from=&to=&user_id=. Entries
// are the caller's own unless they are a space admin asking about
// someone else.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	_, _, actorID, ok := authz.UserCtx(r)
	if !ok {
		apiutil.WriteUnauthorized(w)
		return
	}

	userID := actorID
	if raw := r.URL.Query().Get("user_id"); raw != "" {
		id, err := primitive.ObjectIDFromHex(raw)
		if err != nil {
			apiutil.WriteBadRequest(w, "invalid user ID")
			return
		}
		if id != actorID && !authz.IsAdmin(r) {
			apiutil.WriteForbidden(w, "")
			return
		}
		userID = id
	}

	from, to, err := parseRange(r)
	if err != nil {
		apiutil.WriteBadRequest(w, err.Error())
		return
	}

	entries, err := h.Entries.FindByUserRange(ctx, userID, from, to)
	if err != nil {
		apiutil.WriteServerError(w, h.Log, "timeentries: list", err)
		return
	}

	out := make([]entryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, toResponse(e))
	}
	apiutil.WriteJSON(w, http.StatusOK, out)
}

// HandleUpdate handles PUT /api/timeentries/{entryID}. Editing your
// own entry needs can_edit_own_entries on its project; editing someone
// else's needs can_edit_all_entries.
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	var req updateEntryRequest
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		apiutil.WriteBadRequest(w, "invalid JSON body")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	e, ok := h.loadEntry(ctx, w, r)
	if !ok {
		return
	}
	if !h.requireEditRights(ctx, w, r, e) {
		return
	}
	if e.Running() {
		apiutil.WriteConflict(w, "Stop the timer before editing this entry.")
		return
	}

	if req.StartedAt.IsZero() || req.EndedAt.IsZero() || !req.EndedAt.After(req.StartedAt) {
		apiutil.WriteValidationError(w, "Invalid time range.",
			map[string]string{"ended_at": "entry must end after it starts"})
		return
	}

	if err := h.Entries.Update(ctx, e.ID, req.Note, req.StartedAt, req.EndedAt); err != nil {
		if err == timeentrystore.ErrNotFound {
			apiutil.WriteNotFound(w, "Time entry not found.")
			return
		}
		apiutil.WriteServerError(w, h.Log, "timeentries: update", err)
		return
	}

	updated, err := h.Entries.GetByID(ctx, e.ID)
	if err != nil {
		apiutil.WriteServerError(w, h.Log, "timeentries: reload after update", err)
		return
	}
	apiutil.WriteJSON(w, http.StatusOK, toResponse(updated))
}

// HandleDelete handles DELETE /api/timeentries/{entryID}.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	e, ok := h.loadEntry(ctx, w, r)
	if !ok {
		return
	}
	if !h.requireEditRights(ctx, w, r, e) {
		return
	}

	if err := h.Entries.Delete(ctx, e.ID); err != nil {
		if err == timeentrystore.ErrNotFound {
			apiutil.WriteNotFound(w, "Time entry not found.")
			return
		}
		apiutil.WriteServerError(w, h.Log, "timeentries: delete", err)
		return
	}

	apiutil.WriteJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func toResponse(e models.TimeEntry) entryResponse {
	resp := entryResponse{
		ID:              e.ID.Hex(),
		UserID:          e.UserID.Hex(),
		ProjectID:       e.Project.Hex(),
		Note:            e.Note,
		StartedAt:       e.StartedAt,
		EndedAt:         e.EndedAt,
		Running:         e.Running(),
		DurationMinutes: e.DurationMinutes(time.Now().UTC()),
	}
	if e.TaskID != nil {
		resp.TaskID = e.TaskID.Hex()
	}
	return resp
}

// resolveTarget validates the project (and optional task) a new entry
// points at, scoped to the caller's space.
func (h *Handler) resolveTarget(ctx context.Context, w http.ResponseWriter, r *http.Request, rawProject, rawTask string) (models.Project, *primitive.ObjectID, bool) {
	projectID, err := primitive.ObjectIDFromHex(rawProject)
	if err != nil {
		apiutil.WriteValidationError(w, "Invalid entry.",
			map[string]string{"project_id": "project_id must be a valid ID"})
		return models.Project{}, nil, false
	}

	project, err := h.Projects.GetByID(ctx, projectID)
	if err != nil {
		if err == projectstore.ErrNotFound {
			apiutil.WriteNotFound(w, "Project not found.")
			return models.Project{}, nil, false
		}
		apiutil.WriteServerError(w, h.Log, "timeentries: project lookup", err)
		return models.Project{}, nil, false
	}
	if project.SpaceID != authz.UserSpaceID(r) {
		apiutil.WriteNotFound(w, "Project not found.")
		return models.Project{}, nil, false
	}
	if project.Status != "active" {
		apiutil.WriteConflict(w, "Time cannot be tracked on an archived project.")
		return models.Project{}, nil, false
	}

	var taskID *primitive.ObjectID
	if rawTask != "" {
		id, err := primitive.ObjectIDFromHex(rawTask)
		if err != nil {
			apiutil.WriteValidationError(w, "Invalid entry.",
				map[string]string{"task_id": "task_id must be a valid ID"})
			return models.Project{}, nil, false
		}
		task, err := h.Tasks.GetByID(ctx, id)
		if err != nil || task.ProjectID != project.ID {
			apiutil.WriteNotFound(w, "Task not found.")
			return models.Project{}, nil, false
		}
		taskID = &id
	}

	return project, taskID, true
}

func (h *Handler) loadEntry(ctx context.Context, w http.ResponseWriter, r *http.Request) (models.TimeEntry, bool) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "entryID"))
	if err != nil {
		apiutil.WriteBadRequest(w, "invalid entry ID")
		return models.TimeEntry{}, false
	}
	e, err := h.Entries.GetByID(ctx, id)
	if err != nil {
		if err == timeentrystore.ErrNotFound {
			apiutil.WriteNotFound(w, "Time entry not found.")
			return models.TimeEntry{}, false
		}
		apiutil.WriteServerError(w, h.Log, "timeentries: lookup", err)
		return models.TimeEntry{}, false
	}
	if e.SpaceID != authz.UserSpaceID(r) {
		apiutil.WriteNotFound(w, "Time entry not found.")
		return models.TimeEntry{}, false
	}
	return e, true
}

func (h *Handler) requireEditRights(ctx context.Context, w http.ResponseWriter, r *http.Request, e models.TimeEntry) bool {
	if authz.IsAdmin(r) {
		return true
	}
	_, _, actorID, _ := authz.UserCtx(r)
	needed := permissions.CanEditAllEntries
	if e.UserID == actorID {
		needed = permissions.CanEditOwnEntries
	}
	ok, err := h.Policy.Can(ctx, r, e.Project, needed)
	if err != nil {
		apiutil.WriteServerError(w, h.Log, "timeentries: permission check", err)
		return false
	}
	if !ok {
		apiutil.WriteForbidden(w, "")
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
		apiutil.WriteServerError(w, h.Log, "timeentries: permission check", err)
		return false
	}
	if !ok {
		apiutil.WriteForbidden(w, "")
		return false
	}
	return true
}

// parseRange reads from/to query params (RFC 3339). Defaults cover the
// last 7 days.
func parseRange(r *http.Request) (time.Time, time.Time, error) {
	now := time.Now().UTC()
	from, to := now.AddDate(0, 0, -7), now

	if raw := r.URL.Query().Get("from"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return time.Time{}, time.Time{}, errBadFrom
		}
		from = t.UTC()
	}
	if raw := r.URL.Query().Get("to"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return time.Time{}, time.Time{}, errBadTo
		}
		to = t.UTC()
	}
	if !to.After(from) {
		return time.Time{}, time.Time{}, errBadWindow
	}
	return from, to, nil
}
