// internal/app/features/reports/handler.go
package reports

import (
	"context"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/dalemusser/tempohub/internal/app/permissions"
	"github.com/dalemusser/tempohub/internal/app/policy/projectpolicy"
	projectstore "github.com/dalemusser/tempohub/internal/app/store/projects"
	timeentrystore "github.com/dalemusser/tempohub/internal/app/store/timeentries"
	userstore "github.com/dalemusser/tempohub/internal/app/store/users"
	"github.com/dalemusser/tempohub/internal/app/system/apiutil"
	"github.com/dalemusser/tempohub/internal/app/system/authz"
	"github.com/dalemusser/tempohub/internal/app/system/timeouts"
	"github.com/dalemusser/tempohub/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"github.com/sourcegraph/conc/pool"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

const dateFormat = "2006-01-02"

// summaryWorkers bounds the fan-out when totaling many projects for
// the space summary.
const summaryWorkers = 8

// Handler serves time reports: per-user totals for one project, and
// per-project totals across the space. Totals count completed entries
// only; a running timer is not yet time spent.
type Handler struct {
	Log      *zap.Logger
	Policy   *projectpolicy.Policy
	Entries  *timeentrystore.Store
	Users    *userstore.Store
	Projects *projectstore.Store
}

func NewHandler(db *mongo.Database, logger *zap.Logger) *Handler {
	return &Handler{
		Log:      logger,
		Policy:   projectpolicy.New(db),
		Entries:  timeentrystore.New(db),
		Users:    userstore.New(db),
		Projects: projectstore.New(db),
	}
}

// spaceGrants reports whether the request's user holds the permission
// at space scope.
func spaceGrants(r *http.Request, permission string) bool {
	if authz.IsAdmin(r) {
		return true
	}
	role, _, _, ok := authz.UserCtx(r)
	if !ok {
		return false
	}
	if permissions.RoleGrants(role, permission) {
		return true
	}
	for _, p := range authz.SpacePermissions(r) {
		if p == permission {
			return true
		}
	}
	return false
}

// parseRange reads the from/to query params as inclusive dates. With
// neither set, the range covers the last 30 days.
func parseRange(w http.ResponseWriter, r *http.Request, now time.Time) (time.Time, time.Time, bool) {
	from := now.AddDate(0, 0, -30).Truncate(24 * time.Hour)
	// Exclusive upper bound: start of tomorrow.
	to := now.Truncate(24 * time.Hour).AddDate(0, 0, 1)

	if v := r.URL.Query().Get("from"); v != "" {
		parsed, err := time.Parse(dateFormat, v)
		if err != nil {
			apiutil.WriteValidationError(w, "Invalid from date.",
				map[string]string{"from": "must be a YYYY-MM-DD date"})
			return time.Time{}, time.Time{}, false
		}
		from = parsed
	}
	if v := r.URL.Query().Get("to"); v != "" {
		parsed, err := time.Parse(dateFormat, v)
		if err != nil {
			apiutil.WriteValidationError(w, "Invalid to date.",
				map[string]string{"to": "must be a YYYY-MM-DD date"})
			return time.Time{}, time.Time{}, false
		}
		to = parsed.AddDate(0, 0, 1)
	}
	if to.Before(from) {
		apiutil.WriteValidationError(w, "Invalid date range.",
			map[string]string{"to": "must not be before from"})
		return time.Time{}, time.Time{}, false
	}
	return from, to, true
}

// HandleProjectReport returns per-user completed time for one project
// over a date range.
//
//	GET /api/reports/projects/{projectID}?from=2026-03-01&to=2026-03-31
func (h *Handler) HandleProjectReport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if _, _, _, ok := authz.UserCtx(r); !ok {
		apiutil.WriteUnauthorized(w)
		return
	}

	project, ok := h.loadProject(ctx, w, r)
	if !ok {
		return
	}
	if !authz.IsAdmin(r) {
		allowed, err := h.Policy.Can(ctx, r, project.ID, permissions.CanViewReports)
		if err != nil {
			apiutil.WriteServerError(w, h.Log, "reports: permission check", err)
			return
		}
		if !allowed {
			apiutil.WriteForbidden(w, "")
			return
		}
	}

	now := time.Now().UTC()
	from, to, ok := parseRange(w, r, now)
	if !ok {
		return
	}

	entries, err := h.Entries.FindByProjectRange(ctx, project.ID, from, to)
	if err != nil {
		apiutil.WriteServerError(w, h.Log, "reports: list entries", err)
		return
	}

	minutes := map[primitive.ObjectID]int{}
	counts := map[primitive.ObjectID]int{}
	total := 0
	for _, e := range entries {
		if e.Running() {
			continue
		}
		d := e.DurationMinutes(now)
		minutes[e.UserID] += d
		counts[e.UserID]++
		total += d
	}

	ids := make([]primitive.ObjectID, 0, len(minutes))
	for id := range minutes {
		ids = append(ids, id)
	}
	users, err := h.Users.FindByIDs(ctx, ids)
	if err != nil {
		apiutil.WriteServerError(w, h.Log, "reports: load users", err)
		return
	}
	byID := make(map[primitive.ObjectID]models.User, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}

	rows := make([]userTotal, 0, len(minutes))
	for id, m := range minutes {
		u := byID[id]
		rows = append(rows, userTotal{
			UserID:       id.Hex(),
			FullName:     u.FullName,
			Email:        u.Email,
			TotalMinutes: m,
			EntryCount:   counts[id],
		})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].TotalMinutes != rows[j].TotalMinutes {
			return rows[i].TotalMinutes > rows[j].TotalMinutes
		}
		return rows[i].UserID < rows[j].UserID
	})

	apiutil.WriteJSON(w, http.StatusOK, projectReport{
		ProjectID:    project.ID.Hex(),
		ProjectName:  project.Name,
		From:         from.Format(dateFormat),
		To:           to.AddDate(0, 0, -1).Format(dateFormat),
		TotalMinutes: total,
		Users:        rows,
	})
}

// HandleSpaceSummary returns per-project completed time across the
// space over a date range. Projects are totaled concurrently.
//
//	GET /api/reports/summary?from=2026-03-01&to=2026-03-31
func (h *Handler) HandleSpaceSummary(w http.ResponseWriter, r *http.Request) {
	if _, _, _, ok := authz.UserCtx(r); !ok {
		apiutil.WriteUnauthorized(w)
		return
	}
	if !spaceGrants(r, permissions.CanViewReports) {
		apiutil.WriteForbidden(w, "")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Batch())
	defer cancel()

	now := time.Now().UTC()
	from, to, ok := parseRange(w, r, now)
	if !ok {
		return
	}

	projects, err := h.Projects.FindBySpace(ctx, authz.UserSpaceID(r), "")
	if err != nil {
		apiutil.WriteServerError(w, h.Log, "reports: list projects", err)
		return
	}

	var (
		mu       sync.Mutex
		firstErr error
		rows     = make([]projectSummary, 0, len(projects))
	)
	p := pool.New().WithMaxGoroutines(summaryWorkers)
	for _, project := range projects {
		p.Go(func() {
			entries, err := h.Entries.FindByProjectRange(ctx, project.ID, from, to)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if firstErr == nil {
					firstErr = err
				}
				return
			}
			row := projectSummary{
				ProjectID:     project.ID.Hex(),
				Name:          project.Name,
				Status:        project.Status,
				BudgetMinutes: project.BudgetMinutes,
			}
			for _, e := range entries {
				if e.Running() {
					continue
				}
				row.TotalMinutes += e.DurationMinutes(now)
				row.EntryCount++
			}
			rows = append(rows, row)
		})
	}
	p.Wait()

	if firstErr != nil {
		apiutil.WriteServerError(w, h.Log, "reports: total projects", firstErr)
		return
	}

	sort.Slice(rows, func(i, j int) bool {
		if rows[i].TotalMinutes != rows[j].TotalMinutes {
			return rows[i].TotalMinutes > rows[j].TotalMinutes
		}
		return rows[i].Name < rows[j].Name
	})

	total := 0
	for _, row := range rows {
		total += row.TotalMinutes
	}

	apiutil.WriteJSON(w, http.StatusOK, summaryResponse{
		From:         from.Format(dateFormat),
		To:           to.AddDate(0, 0, -1).Format(dateFormat),
		TotalMinutes: total,
		Projects:     rows,
	})
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
		apiutil.WriteServerError(w, h.Log, "reports: lookup project", err)
		return models.Project{}, false
	}
	if p.SpaceID != authz.UserSpaceID(r) {
		apiutil.WriteNotFound(w, "Project not found.")
		return models.Project{}, false
	}
	return p, true
}
