// internal/app/features/approvals/handler.go
package approvals

import (
	"net/http"

	"github.com/dalemusser/tempohub/internal/app/permissions"
	approvalstore "github.com/dalemusser/tempohub/internal/app/store/approvals"
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
)

const weekFormat = "2006-01-02"

// Handler serves the timesheet review queue. Review rights are space
// scope: can_approve_timesheets from the space role or permission
// list, with admins and owners always allowed.
type Handler struct {
	Log      *zap.Logger
	AuditLog *auditlog.Logger

	Approvals *approvalstore.Store
	Users     *userstore.Store
}

func NewHandler(db *mongo.Database, audit *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{
		Log:       logger,
		AuditLog:  audit,
		Approvals: approvalstore.New(db),
		Users:     userstore.New(db),
	}
}

func canReview(r *http.Request) bool {
	if authz.IsAdmin(r) {
		return true
	}
	role, _, _, ok := authz.UserCtx(r)
	if !ok {
		return false
	}
	if permissions.RoleGrants(role, permissions.CanApproveTimesheets) {
		return true
	}
	for _, p := range authz.SpacePermissions(r) {
		if p == permissions.CanApproveTimesheets {
			return true
		}
	}
	return false
}

// HandleList returns the space's submissions, newest first, with the
// submitter's name and email joined in.
//
//	GET /api/approvals?status=submitted
//
// An empty status returns every record; otherwise it must be one of
// submitted, approved, rejected.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !canReview(r) {
		apiutil.WriteForbidden(w, "")
		return
	}

	status := r.URL.Query().Get("status")
	switch status {
	case "", models.ApprovalStatusSubmitted, models.ApprovalStatusApproved, models.ApprovalStatusRejected:
	default:
		apiutil.WriteValidationError(w, "Unknown status filter.",
			map[string]string{"status": `must be "submitted"|"approved"|"rejected"`})
		return
	}

	records, err := h.Approvals.FindBySpace(ctx, authz.UserSpaceID(r), status)
	if err != nil {
		apiutil.WriteServerError(w, h.Log, "approvals: list", err)
		return
	}

	userIDs := make([]primitive.ObjectID, 0, len(records))
	seen := make(map[primitive.ObjectID]bool, len(records))
	for _, a := range records {
		if !seen[a.UserID] {
			seen[a.UserID] = true
			userIDs = append(userIDs, a.UserID)
		}
	}
	users, err := h.Users.FindByIDs(ctx, userIDs)
	if err != nil {
		apiutil.WriteServerError(w, h.Log, "approvals: load submitters", err)
		return
	}
	byID := make(map[primitive.ObjectID]models.User, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}

	out := make([]queueItem, 0, len(records))
	for _, a := range records {
		out = append(out, toQueueItem(a, byID[a.UserID]))
	}
	apiutil.WriteJSON(w, http.StatusOK, out)
}

// HandleGet returns one approval record with the submitter joined in.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !canReview(r) {
		apiutil.WriteForbidden(w, "")
		return
	}

	a, ok := h.loadApproval(w, r)
	if !ok {
		return
	}

	var u models.User
	switch user, err := h.Users.GetByID(ctx, a.UserID); {
	case err == nil:
		u = *user
	case err != userstore.ErrNotFound:
		apiutil.WriteServerError(w, h.Log, "approvals: load submitter", err)
		return
	}
	apiutil.WriteJSON(w, http.StatusOK, toQueueItem(a, u))
}

// HandleReview approves or rejects a submitted timesheet. Reviewers
// cannot review their own submission. Only records awaiting review
// can be moved; a rejected week returns to the queue if the user
// resubmits it.
func (h *Handler) HandleReview(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	_, _, reviewerID, ok := authz.UserCtx(r)
	if !ok {
		apiutil.WriteUnauthorized(w)
		return
	}
	if !canReview(r) {
		apiutil.WriteForbidden(w, "")
		return
	}

	var req reviewRequest
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		apiutil.WriteBadRequest(w, "invalid JSON body")
		return
	}
	if req.Status != models.ApprovalStatusApproved && req.Status != models.ApprovalStatusRejected {
		apiutil.WriteValidationError(w, "Invalid review status.",
			map[string]string{"status": `must be "approved"|"rejected"`})
		return
	}

	a, ok := h.loadApproval(w, r)
	if !ok {
		return
	}
	if a.UserID == reviewerID {
		apiutil.WriteForbidden(w, "You cannot review your own timesheet.")
		return
	}

	note := htmlsanitize.Sanitize(req.Note)
	reviewed, err := h.Approvals.Review(ctx, a.ID, reviewerID, req.Status, note)
	if err != nil {
		switch err {
		case approvalstore.ErrNotFound:
			apiutil.WriteNotFound(w, "Timesheet not found.")
		case approvalstore.ErrNotPending:
			apiutil.WriteConflict(w, "This timesheet is not awaiting review.")
		default:
			apiutil.WriteServerError(w, h.Log, "approvals: review", err)
		}
		return
	}

	spaceID := authz.UserSpaceID(r)
	h.AuditLog.TimesheetReviewed(ctx, r, reviewerID, reviewed.UserID, &spaceID,
		reviewed.Status, reviewed.WeekStart.Format(weekFormat))

	var u models.User
	switch user, err := h.Users.GetByID(ctx, reviewed.UserID); {
	case err == nil:
		u = *user
	case err != userstore.ErrNotFound:
		apiutil.WriteServerError(w, h.Log, "approvals: load submitter", err)
		return
	}
	apiutil.WriteJSON(w, http.StatusOK, toQueueItem(reviewed, u))
}

// loadApproval resolves the routed approval record. Records in other
// spaces read as not found.
func (h *Handler) loadApproval(w http.ResponseWriter, r *http.Request) (models.TimesheetApproval, bool) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "approvalID"))
	if err != nil {
		apiutil.WriteNotFound(w, "Timesheet not found.")
		return models.TimesheetApproval{}, false
	}
	a, err := h.Approvals.GetByID(r.Context(), id)
	if err != nil {
		if err == approvalstore.ErrNotFound {
			apiutil.WriteNotFound(w, "Timesheet not found.")
			return models.TimesheetApproval{}, false
		}
		apiutil.WriteServerError(w, h.Log, "approvals: load", err)
		return models.TimesheetApproval{}, false
	}
	if a.SpaceID != authz.UserSpaceID(r) {
		apiutil.WriteNotFound(w, "Timesheet not found.")
		return models.TimesheetApproval{}, false
	}
	return a, true
}

func toQueueItem(a models.TimesheetApproval, u models.User) queueItem {
	return queueItem{
		ID:           a.ID.Hex(),
		UserID:       a.UserID.Hex(),
		UserName:     u.FullName,
		UserEmail:    u.Email,
		WeekStart:    a.WeekStart.Format(weekFormat),
		TotalMinutes: a.TotalMinutes,
		Status:       a.Status,
		ReviewNote:   a.ReviewNote,
		SubmittedAt:  a.SubmittedAt,
		ReviewedAt:   a.ReviewedAt,
	}
}
