// internal/app/features/auditlog/handler.go
package auditlog

import (
	"net/http"
	"time"

	"github.com/dalemusser/tempohub/internal/app/store/audit"
	"github.com/dalemusser/tempohub/internal/app/system/apiutil"
	"github.com/dalemusser/tempohub/internal/app/system/authz"
	"github.com/dalemusser/tempohub/internal/app/system/paging"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

const dateFormat = "2006-01-02"

// Handler serves the space's audit trail: who signed in, who changed
// which role or permission, and which timesheets were reviewed.
// Admin and owner only.
type Handler struct {
	Log    *zap.Logger
	Events *audit.Store
}

func NewHandler(db *mongo.Database, logger *zap.Logger) *Handler {
	return &Handler{
		Log:    logger,
		Events: audit.New(db),
	}
}

var categories = map[string]bool{
	audit.CategoryAuth:        true,
	audit.CategoryAdmin:       true,
	audit.CategoryPermissions: true,
	audit.CategoryTimesheets:  true,
}

// HandleList returns a page of audit events for the caller's space,
// newest first.
//
//	GET /api/auditlog?category=permissions&event_type=permission_granted
//	    &user_id=...&project_id=...&from=2026-03-01&to=2026-03-31&page=2
//
// from and to are inclusive dates. Pages are fixed-size; has_next
// reports whether another page exists.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if _, _, _, ok := authz.UserCtx(r); !ok {
		apiutil.WriteUnauthorized(w)
		return
	}
	if !authz.IsAdmin(r) {
		apiutil.WriteForbidden(w, "")
		return
	}

	spaceID := authz.UserSpaceID(r)
	filter := audit.QueryFilter{SpaceID: &spaceID}
	q := r.URL.Query()

	if c := q.Get("category"); c != "" {
		if !categories[c] {
			apiutil.WriteValidationError(w, "Unknown category.",
				map[string]string{"category": "unknown category"})
			return
		}
		filter.Category = c
	}
	filter.EventType = q.Get("event_type")

	if v := q.Get("user_id"); v != "" {
		id, err := primitive.ObjectIDFromHex(v)
		if err != nil {
			apiutil.WriteBadRequest(w, "invalid user ID")
			return
		}
		filter.UserID = &id
	}
	if v := q.Get("project_id"); v != "" {
		id, err := primitive.ObjectIDFromHex(v)
		if err != nil {
			apiutil.WriteBadRequest(w, "invalid project ID")
			return
		}
		filter.ProjectID = &id
	}

	if v := q.Get("from"); v != "" {
		from, err := time.Parse(dateFormat, v)
		if err != nil {
			apiutil.WriteValidationError(w, "Invalid from date.",
				map[string]string{"from": "must be a YYYY-MM-DD date"})
			return
		}
		filter.StartTime = &from
	}
	if v := q.Get("to"); v != "" {
		to, err := time.Parse(dateFormat, v)
		if err != nil {
			apiutil.WriteValidationError(w, "Invalid to date.",
				map[string]string{"to": "must be a YYYY-MM-DD date"})
			return
		}
		// End of the named day, since the store's bound is inclusive.
		end := to.AddDate(0, 0, 1).Add(-time.Nanosecond)
		filter.EndTime = &end
	}

	page, ok := paging.ParsePage(r)
	if !ok {
		apiutil.WriteBadRequest(w, "invalid page")
		return
	}
	filter.Limit = paging.LimitPlusOne()
	filter.Offset = paging.Offset(page)

	events, err := h.Events.Query(ctx, filter)
	if err != nil {
		apiutil.WriteServerError(w, h.Log, "auditlog: query", err)
		return
	}
	hasNext := paging.Trim(&events)

	total, err := h.Events.CountByFilter(ctx, filter)
	if err != nil {
		apiutil.WriteServerError(w, h.Log, "auditlog: count", err)
		return
	}

	out := make([]eventView, 0, len(events))
	for _, e := range events {
		out = append(out, toEventView(e))
	}
	apiutil.WriteJSON(w, http.StatusOK, listResponse{
		Events:  out,
		Page:    page,
		HasNext: hasNext,
		Total:   total,
	})
}

func toEventView(e audit.Event) eventView {
	v := eventView{
		ID:            e.ID.Hex(),
		Timestamp:     e.Timestamp,
		Category:      e.Category,
		EventType:     e.EventType,
		IP:            e.IP,
		Success:       e.Success,
		FailureReason: e.FailureReason,
		Details:       e.Details,
	}
	if e.UserID != nil {
		v.UserID = e.UserID.Hex()
	}
	if e.ActorID != nil {
		v.ActorID = e.ActorID.Hex()
	}
	if e.ProjectID != nil {
		v.ProjectID = e.ProjectID.Hex()
	}
	return v
}
