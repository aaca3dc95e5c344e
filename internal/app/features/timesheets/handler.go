// internal/app/features/timesheets/handler.go
package timesheets

import (
	"net/http"
	"time"

	"github.com/dalemusser/tempohub/internal/app/permissions"
	approvalstore "github.com/dalemusser/tempohub/internal/app/store/approvals"
	timeentrystore "github.com/dalemusser/tempohub/internal/app/store/timeentries"
	userstore "github.com/dalemusser/tempohub/internal/app/store/users"
	"github.com/dalemusser/tempohub/internal/app/system/apiutil"
	"github.com/dalemusser/tempohub/internal/app/system/auditlog"
	"github.com/dalemusser/tempohub/internal/app/system/authz"
	"github.com/dalemusser/tempohub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler serves weekly timesheet views and week submission.
// Timesheets are space-scope: rights come from the user's space role
// and space permission list, not from any single project.
type Handler struct {
	Log      *zap.Logger
	AuditLog *auditlog.Logger

	Entries   *timeentrystore.Store
	Approvals *approvalstore.Store
	Users     *userstore.Store
}

func NewHandler(db *mongo.Database, audit *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{
		Log:       logger,
		AuditLog:  audit,
		Entries:   timeentrystore.New(db),
		Approvals: approvalstore.New(db),
		Users:     userstore.New(db),
	}
}

// spaceGrants reports whether the request's user holds the permission
// at space scope. Admins and owners always do.
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

// HandleGetWeek returns one user's timesheet for one week: entries
// grouped per day, day and week totals, and the approval record if
// the week has been submitted.
//
//	GET /api/timesheets?week=2026-03-02&user_id=...
//
// week defaults to the current week, user_id to the caller. Viewing
// someone else's timesheet requires can_view_all_timesheets.
func (h *Handler) HandleGetWeek(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	_, _, callerID, ok := authz.UserCtx(r)
	if !ok {
		apiutil.WriteUnauthorized(w)
		return
	}

	targetID := callerID
	if q := r.URL.Query().Get("user_id"); q != "" && q != callerID.Hex() {
		id, err := primitive.ObjectIDFromHex(q)
		if err != nil {
			apiutil.WriteBadRequest(w, "invalid user ID")
			return
		}
		if !spaceGrants(r, permissions.CanViewAllTimesheets) {
			apiutil.WriteForbidden(w, "You may only view your own timesheet.")
			return
		}
		target, err := h.Users.GetByID(ctx, id)
		if err != nil {
			if err == userstore.ErrNotFound {
				apiutil.WriteNotFound(w, "User not found.")
				return
			}
			apiutil.WriteServerError(w, h.Log, "timesheets: load target user", err)
			return
		}
		if target.SpaceID != authz.UserSpaceID(r) {
			apiutil.WriteNotFound(w, "User not found.")
			return
		}
		targetID = id
	}

	now := time.Now().UTC()
	weekStart := weekStartFor(now)
	if q := r.URL.Query().Get("week"); q != "" {
		parsed, err := time.Parse(dateFormat, q)
		if err != nil {
			apiutil.WriteValidationError(w, "Invalid week date.",
				map[string]string{"week": "must be a YYYY-MM-DD date"})
			return
		}
		weekStart = weekStartFor(parsed)
	}

	entries, err := h.Entries.FindByUserRange(ctx, targetID, weekStart, weekStart.AddDate(0, 0, 7))
	if err != nil {
		apiutil.WriteServerError(w, h.Log, "timesheets: list entries", err)
		return
	}
	days, total := buildWeek(weekStart, entries, now)

	resp := weekResponse{
		UserID:       targetID.Hex(),
		WeekStart:    weekStart.Format(dateFormat),
		TotalMinutes: total,
		Days:         days,
	}

	approval, err := h.Approvals.GetByUserWeek(ctx, targetID, weekStart)
	switch err {
	case nil:
		v := toApprovalView(approval)
		resp.Approval = &v
	case approvalstore.ErrNotFound:
	default:
		apiutil.WriteServerError(w, h.Log, "timesheets: load approval", err)
		return
	}

	apiutil.WriteJSON(w, http.StatusOK, resp)
}

// HandleSubmit submits the caller's week for approval. The recorded
// total counts completed entries only; a week with an open timer or
// no tracked time is refused, as is one already awaiting review or
// approved. A rejected week may be submitted again.
func (h *Handler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	_, _, userID, ok := authz.UserCtx(r)
	if !ok {
		apiutil.WriteUnauthorized(w)
		return
	}
	if !spaceGrants(r, permissions.CanSubmitTimesheets) {
		apiutil.WriteForbidden(w, "")
		return
	}

	var req submitRequest
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		apiutil.WriteBadRequest(w, "invalid JSON body")
		return
	}
	if req.WeekStart == "" {
		apiutil.WriteValidationError(w, "A week is required.",
			map[string]string{"week_start": "required"})
		return
	}
	parsed, err := time.Parse(dateFormat, req.WeekStart)
	if err != nil {
		apiutil.WriteValidationError(w, "Invalid week date.",
			map[string]string{"week_start": "must be a YYYY-MM-DD date"})
		return
	}
	weekStart := weekStartFor(parsed)
	if weekStart.After(weekStartFor(time.Now().UTC())) {
		apiutil.WriteValidationError(w, "Future weeks cannot be submitted.",
			map[string]string{"week_start": "must be the current week or earlier"})
		return
	}

	entries, err := h.Entries.FindByUserRange(ctx, userID, weekStart, weekStart.AddDate(0, 0, 7))
	if err != nil {
		apiutil.WriteServerError(w, h.Log, "timesheets: list entries", err)
		return
	}
	if hasRunning(entries) {
		apiutil.WriteConflict(w, "Stop the running timer before submitting this week.")
		return
	}
	total := completedTotal(entries)
	if total == 0 {
		apiutil.WriteValidationError(w, "There is no tracked time in this week.",
			map[string]string{"week_start": "week has no completed entries"})
		return
	}

	approval, err := h.Approvals.Submit(ctx, userID, authz.UserSpaceID(r), weekStart, total)
	if err != nil {
		if err == approvalstore.ErrAlreadySubmitted {
			apiutil.WriteConflict(w, "This week has already been submitted.")
			return
		}
		apiutil.WriteServerError(w, h.Log, "timesheets: submit", err)
		return
	}

	spaceID := authz.UserSpaceID(r)
	h.AuditLog.TimesheetSubmitted(ctx, r, userID, &spaceID, weekStart.Format(dateFormat), total)

	apiutil.WriteJSON(w, http.StatusCreated, toApprovalView(approval))
}

// HandleHistory lists the caller's own submissions, newest weeks
// first.
func (h *Handler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	_, _, userID, ok := authz.UserCtx(r)
	if !ok {
		apiutil.WriteUnauthorized(w)
		return
	}

	records, err := h.Approvals.FindByUser(ctx, userID)
	if err != nil {
		apiutil.WriteServerError(w, h.Log, "timesheets: list submissions", err)
		return
	}

	out := make([]approvalView, 0, len(records))
	for _, a := range records {
		out = append(out, toApprovalView(a))
	}
	apiutil.WriteJSON(w, http.StatusOK, out)
}

func toApprovalView(a models.TimesheetApproval) approvalView {
	return approvalView{
		ID:           a.ID.Hex(),
		WeekStart:    a.WeekStart.Format(dateFormat),
		TotalMinutes: a.TotalMinutes,
		Status:       a.Status,
		ReviewNote:   a.ReviewNote,
		SubmittedAt:  a.SubmittedAt,
		ReviewedAt:   a.ReviewedAt,
	}
}

func toEntrySummary(e models.TimeEntry, now time.Time) entrySummary {
	s := entrySummary{
		ID:              e.ID.Hex(),
		ProjectID:       e.Project.Hex(),
		Note:            e.Note,
		StartedAt:       e.StartedAt,
		EndedAt:         e.EndedAt,
		Running:         e.Running(),
		DurationMinutes: e.DurationMinutes(now),
	}
	if e.TaskID != nil {
		s.TaskID = e.TaskID.Hex()
	}
	return s
}
