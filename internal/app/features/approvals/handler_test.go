package approvals_test

import (
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/dalemusser/tempohub/internal/app/features/approvals"
	approvalstore "github.com/dalemusser/tempohub/internal/app/store/approvals"
	"github.com/dalemusser/tempohub/internal/app/system/auditlog"
	"github.com/dalemusser/tempohub/internal/domain/models"
	"github.com/dalemusser/tempohub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

func newTestHandler(t *testing.T) (*approvals.Handler, *testutil.Fixtures) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	var audit *auditlog.Logger
	return approvals.NewHandler(db, audit, zap.NewNop()), testutil.NewFixtures(t, db)
}

var testWeek = time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

func submitWeek(t *testing.T, fx *testutil.Fixtures, userID, spaceID primitive.ObjectID, minutes int) models.TimesheetApproval {
	t.Helper()
	ctx, cancel := testutil.TestContext()
	defer cancel()
	a, err := approvalstore.New(fx.DB()).Submit(ctx, userID, spaceID, testWeek, minutes)
	if err != nil {
		t.Fatalf("failed to submit test week: %v", err)
	}
	return a
}

func TestHandleList_JoinsSubmitter(t *testing.T) {
	h, fx := newTestHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	space := fx.CreateSpace(ctx, "Acme", "acme")
	user := fx.CreateUser(ctx, "Pat", "pat@example.com", "member", space.ID)
	submitWeek(t, fx, user.ID, space.ID, 420)

	req := testutil.NewAuthenticatedRequest("GET", "/api/approvals?status=submitted", testutil.AdminUser(space.ID))
	rec := testutil.NewRecorder()

	h.HandleList(rec, req)

	rec.AssertStatus(t, http.StatusOK)
	rec.AssertContains(t, `"user_name":"Pat"`)
	rec.AssertContains(t, `"total_minutes":420`)
	rec.AssertContains(t, `"week_start":"2026-03-02"`)
}

func TestHandleList_MemberForbidden(t *testing.T) {
	h, fx := newTestHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	space := fx.CreateSpace(ctx, "Acme", "acme")

	req := testutil.NewAuthenticatedRequest("GET", "/api/approvals", testutil.MemberUser(space.ID))
	rec := testutil.NewRecorder()

	h.HandleList(rec, req)

	rec.AssertStatus(t, http.StatusForbidden)
}

func TestHandleList_UnknownStatusFilter(t *testing.T) {
	h, fx := newTestHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	space := fx.CreateSpace(ctx, "Acme", "acme")

	req := testutil.NewAuthenticatedRequest("GET", "/api/approvals?status=pending", testutil.AdminUser(space.ID))
	rec := testutil.NewRecorder()

	h.HandleList(rec, req)

	rec.AssertStatus(t, http.StatusUnprocessableEntity)
}

func TestHandleReview_ApprovesSubmittedWeek(t *testing.T) {
	h, fx := newTestHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	space := fx.CreateSpace(ctx, "Acme", "acme")
	user := fx.CreateUser(ctx, "Pat", "pat@example.com", "member", space.ID)
	manager := fx.CreateUser(ctx, "Mia", "mia@example.com", "manager", space.ID)
	a := submitWeek(t, fx, user.ID, space.ID, 420)

	asManager := testutil.AsUser(manager.ID, manager.FullName, manager.Email, manager.Role, space.ID)
	req := testutil.NewAuthenticatedJSONRequest("POST", "/review",
		`{"status":"approved","note":"Looks right."}`, asManager)
	req = testutil.WithChiURLParam(req, "approvalID", a.ID.Hex())
	rec := testutil.NewRecorder()

	h.HandleReview(rec, req)

	rec.AssertStatus(t, http.StatusOK)
	rec.AssertContains(t, `"status":"approved"`)
	rec.AssertContains(t, "Looks right.")

	// A reviewed week cannot be reviewed again.
	req = testutil.NewAuthenticatedJSONRequest("POST", "/review",
		`{"status":"rejected"}`, asManager)
	req = testutil.WithChiURLParam(req, "approvalID", a.ID.Hex())
	rec = testutil.NewRecorder()
	h.HandleReview(rec, req)
	rec.AssertStatus(t, http.StatusConflict)
}

func TestHandleReview_OwnTimesheetForbidden(t *testing.T) {
	h, fx := newTestHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	space := fx.CreateSpace(ctx, "Acme", "acme")
	manager := fx.CreateUser(ctx, "Mia", "mia@example.com", "manager", space.ID)
	a := submitWeek(t, fx, manager.ID, space.ID, 420)

	asManager := testutil.AsUser(manager.ID, manager.FullName, manager.Email, manager.Role, space.ID)
	req := testutil.NewAuthenticatedJSONRequest("POST", "/review",
		`{"status":"approved"}`, asManager)
	req = testutil.WithChiURLParam(req, "approvalID", a.ID.Hex())
	rec := testutil.NewRecorder()

	h.HandleReview(rec, req)

	rec.AssertStatus(t, http.StatusForbidden)
}

func TestHandleReview_SanitizesNote(t *testing.T) {
	h, fx := newTestHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	space := fx.CreateSpace(ctx, "Acme", "acme")
	user := fx.CreateUser(ctx, "Pat", "pat@example.com", "member", space.ID)
	a := submitWeek(t, fx, user.ID, space.ID, 60)

	req := testutil.NewAuthenticatedJSONRequest("POST", "/review",
		`{"status":"rejected","note":"<script>alert(1)</script>Missing Friday."}`, testutil.AdminUser(space.ID))
	req = testutil.WithChiURLParam(req, "approvalID", a.ID.Hex())
	rec := testutil.NewRecorder()

	h.HandleReview(rec, req)

	rec.AssertStatus(t, http.StatusOK)
	rec.AssertContains(t, "Missing Friday.")
	if body := rec.Body.String(); strings.Contains(body, "<script>") || strings.Contains(body, "alert(1)") {
		t.Errorf("expected note to be sanitized, got %s", body)
	}
}

func TestHandleReview_OtherSpaceNotFound(t *testing.T) {
	h, fx := newTestHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	space := fx.CreateSpace(ctx, "Acme", "acme")
	elsewhere := fx.CreateSpace(ctx, "Globex", "globex")
	outsider := fx.CreateUser(ctx, "Out", "out@example.com", "member", elsewhere.ID)
	a := submitWeek(t, fx, outsider.ID, elsewhere.ID, 60)

	req := testutil.NewAuthenticatedJSONRequest("POST", "/review",
		`{"status":"approved"}`, testutil.AdminUser(space.ID))
	req = testutil.WithChiURLParam(req, "approvalID", a.ID.Hex())
	rec := testutil.NewRecorder()

	h.HandleReview(rec, req)

	rec.AssertStatus(t, http.StatusNotFound)
}

func TestHandleReview_RejectedWeekCanBeResubmitted(t *testing.T) {
	h, fx := newTestHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	space := fx.CreateSpace(ctx, "Acme", "acme")
	user := fx.CreateUser(ctx, "Pat", "pat@example.com", "member", space.ID)
	a := submitWeek(t, fx, user.ID, space.ID, 60)

	req := testutil.NewAuthenticatedJSONRequest("POST", "/review",
		`{"status":"rejected","note":"Incomplete."}`, testutil.AdminUser(space.ID))
	req = testutil.WithChiURLParam(req, "approvalID", a.ID.Hex())
	rec := testutil.NewRecorder()
	h.HandleReview(rec, req)
	rec.AssertStatus(t, http.StatusOK)

	resubmitted, err := approvalstore.New(fx.DB()).Submit(ctx, user.ID, space.ID, testWeek, 90)
	if err != nil {
		t.Fatalf("expected rejected week to be resubmittable: %v", err)
	}
	if resubmitted.Status != models.ApprovalStatusSubmitted {
		t.Errorf("resubmitted status: got %s, want submitted", resubmitted.Status)
	}
	if resubmitted.ReviewNote != "" {
		t.Errorf("expected review note cleared on resubmit, got %q", resubmitted.ReviewNote)
	}
}
