package projects_test

import (
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/dalemusser/tempohub/internal/app/features/projects"
	"github.com/dalemusser/tempohub/internal/app/system/auditlog"
	"github.com/dalemusser/tempohub/internal/testutil"
	"go.uber.org/zap"
)

func newTestHandler(t *testing.T) (*projects.Handler, *testutil.Fixtures) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	var audit *auditlog.Logger
	return projects.NewHandler(db, audit, zap.NewNop()), testutil.NewFixtures(t, db)
}

func TestHandleCreate_SanitizesDescription(t *testing.T) {
	h, fx := newTestHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	space := fx.CreateSpace(ctx, "Acme", "acme")

	body := `{"name":"Launch","description":"<p>Plan</p><script>alert(1)</script>","budget_minutes":600}`
	req := testutil.NewAuthenticatedJSONRequest("POST", "/api/projects", body, testutil.AdminUser(space.ID))
	rec := testutil.NewRecorder()

	h.HandleCreate(rec, req)

	rec.AssertStatus(t, http.StatusCreated)
	rec.AssertContains(t, "<p>Plan</p>")
	if got := rec.Body.String(); strings.Contains(got, "<script>") {
		t.Error("expected script tag to be stripped from description")
	}
}

func TestHandleCreate_StripsMarkupFromName(t *testing.T) {
	h, fx := newTestHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	space := fx.CreateSpace(ctx, "Acme", "acme")

	body := `{"name":"<b>Launch</b>","budget_minutes":0}`
	req := testutil.NewAuthenticatedJSONRequest("POST", "/api/projects", body, testutil.AdminUser(space.ID))
	rec := testutil.NewRecorder()

	h.HandleCreate(rec, req)

	rec.AssertStatus(t, http.StatusCreated)
	rec.AssertContains(t, `"name":"Launch"`)
}

func TestHandleCreate_MemberForbidden(t *testing.T) {
	h, fx := newTestHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	space := fx.CreateSpace(ctx, "Acme", "acme")

	req := testutil.NewAuthenticatedJSONRequest("POST", "/api/projects",
		`{"name":"Launch"}`, testutil.MemberUser(space.ID))
	rec := testutil.NewRecorder()

	h.HandleCreate(rec, req)

	rec.AssertStatus(t, http.StatusForbidden)
}

func TestHandleGet_BudgetHiddenFromMembers(t *testing.T) {
	h, fx := newTestHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	space := fx.CreateSpace(ctx, "Acme", "acme")
	owner := fx.CreateUser(ctx, "Owner", "owner@example.com", "owner", space.ID)
	project := fx.CreateProject(ctx, "Launch", space.ID, owner.ID)

	// Member role grants can_view_project but not can_view_budget.
	req := testutil.NewAuthenticatedRequest("GET", "/api/projects/"+project.ID.Hex(), testutil.MemberUser(space.ID))
	req = testutil.WithChiURLParam(req, "projectID", project.ID.Hex())
	rec := testutil.NewRecorder()

	h.HandleGet(rec, req)

	rec.AssertStatus(t, http.StatusOK)
	if strings.Contains(rec.Body.String(), "budget_minutes") {
		t.Error("expected budget to be hidden from members")
	}

	// Admins see it.
	req = testutil.NewAuthenticatedRequest("GET", "/api/projects/"+project.ID.Hex(), testutil.AdminUser(space.ID))
	req = testutil.WithChiURLParam(req, "projectID", project.ID.Hex())
	rec = testutil.NewRecorder()

	h.HandleGet(rec, req)

	rec.AssertStatus(t, http.StatusOK)
	rec.AssertContains(t, "budget_minutes")
}

func TestHandleGet_IncludesSpendForBudgetViewers(t *testing.T) {
	h, fx := newTestHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	space := fx.CreateSpace(ctx, "Acme", "acme")
	owner := fx.CreateUser(ctx, "Owner", "owner@example.com", "owner", space.ID)
	project := fx.CreateProject(ctx, "Launch", space.ID, owner.ID)

	start := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	fx.CreateTimeEntry(ctx, owner.ID, space.ID, project.ID, start, start.Add(90*time.Minute))

	req := testutil.NewAuthenticatedRequest("GET", "/api/projects/"+project.ID.Hex(), testutil.AdminUser(space.ID))
	req = testutil.WithChiURLParam(req, "projectID", project.ID.Hex())
	rec := testutil.NewRecorder()

	h.HandleGet(rec, req)

	rec.AssertStatus(t, http.StatusOK)
	rec.AssertContains(t, `"spent_minutes":90`)
}

func TestHandleArchiveAndRestore(t *testing.T) {
	h, fx := newTestHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	space := fx.CreateSpace(ctx, "Acme", "acme")
	owner := fx.CreateUser(ctx, "Owner", "owner@example.com", "owner", space.ID)
	project := fx.CreateProject(ctx, "Launch", space.ID, owner.ID)

	admin := testutil.AdminUser(space.ID)

	req := testutil.NewAuthenticatedRequest("POST", "/archive", admin)
	req = testutil.WithChiURLParam(req, "projectID", project.ID.Hex())
	rec := testutil.NewRecorder()

	h.HandleArchive(rec, req)

	rec.AssertStatus(t, http.StatusOK)
	rec.AssertContains(t, "archived")

	req = testutil.NewAuthenticatedRequest("POST", "/restore", admin)
	req = testutil.WithChiURLParam(req, "projectID", project.ID.Hex())
	rec = testutil.NewRecorder()

	h.HandleRestore(rec, req)

	rec.AssertStatus(t, http.StatusOK)
	rec.AssertContains(t, "active")
}

func TestHandleList_FiltersByStatus(t *testing.T) {
	h, fx := newTestHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	space := fx.CreateSpace(ctx, "Acme", "acme")
	owner := fx.CreateUser(ctx, "Owner", "owner@example.com", "owner", space.ID)
	fx.CreateProject(ctx, "Active One", space.ID, owner.ID)

	req := testutil.NewAuthenticatedRequest("GET", "/api/projects?status=archived", testutil.AdminUser(space.ID))
	rec := testutil.NewRecorder()

	h.HandleList(rec, req)

	rec.AssertStatus(t, http.StatusOK)
	if strings.Contains(rec.Body.String(), "Active One") {
		t.Error("archived filter must not return active projects")
	}

	req = testutil.NewAuthenticatedRequest("GET", "/api/projects?status=active", testutil.AdminUser(space.ID))
	rec = testutil.NewRecorder()

	h.HandleList(rec, req)

	rec.AssertStatus(t, http.StatusOK)
	rec.AssertContains(t, "Active One")
}

