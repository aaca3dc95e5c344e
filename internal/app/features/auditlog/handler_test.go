package auditlog_test

import (
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/dalemusser/tempohub/internal/app/features/auditlog"
	"github.com/dalemusser/tempohub/internal/app/store/audit"
	"github.com/dalemusser/tempohub/internal/app/system/paging"
	"github.com/dalemusser/tempohub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

func newTestHandler(t *testing.T) (*auditlog.Handler, *audit.Store, *testutil.Fixtures) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	return auditlog.NewHandler(db, zap.NewNop()), audit.New(db), testutil.NewFixtures(t, db)
}

func logEvent(t *testing.T, store *audit.Store, e audit.Event) {
	t.Helper()
	ctx, cancel := testutil.TestContext()
	defer cancel()
	if err := store.Log(ctx, e); err != nil {
		t.Fatalf("failed to log test event: %v", err)
	}
}

func TestHandleList_FiltersByCategory(t *testing.T) {
	h, store, fx := newTestHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	space := fx.CreateSpace(ctx, "Acme", "acme")
	userID := primitive.NewObjectID()

	logEvent(t, store, audit.Event{
		SpaceID:   &space.ID,
		Category:  audit.CategoryPermissions,
		EventType: audit.EventPermissionGranted,
		UserID:    &userID,
		Success:   true,
	})
	logEvent(t, store, audit.Event{
		SpaceID:   &space.ID,
		Category:  audit.CategoryAuth,
		EventType: audit.EventLoginSuccess,
		UserID:    &userID,
		Success:   true,
	})

	req := testutil.NewAuthenticatedRequest("GET", "/api/auditlog?category=permissions", testutil.AdminUser(space.ID))
	rec := testutil.NewRecorder()

	h.HandleList(rec, req)

	rec.AssertStatus(t, http.StatusOK)
	rec.AssertContains(t, `"event_type":"permission_granted"`)
	rec.AssertContains(t, `"total":1`)
	if strings.Contains(rec.Body.String(), "login_success") {
		t.Error("expected the category filter to exclude auth events")
	}
}

func TestHandleList_ScopedToSpace(t *testing.T) {
	h, store, fx := newTestHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	space := fx.CreateSpace(ctx, "Acme", "acme")
	other := fx.CreateSpace(ctx, "Globex", "globex")

	logEvent(t, store, audit.Event{
		SpaceID:   &other.ID,
		Category:  audit.CategoryAdmin,
		EventType: audit.EventUserCreated,
		Success:   true,
	})

	req := testutil.NewAuthenticatedRequest("GET", "/api/auditlog", testutil.AdminUser(space.ID))
	rec := testutil.NewRecorder()

	h.HandleList(rec, req)

	rec.AssertStatus(t, http.StatusOK)
	rec.AssertContains(t, `"total":0`)
}

func TestHandleList_MemberForbidden(t *testing.T) {
	h, _, fx := newTestHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	space := fx.CreateSpace(ctx, "Acme", "acme")

	req := testutil.NewAuthenticatedRequest("GET", "/api/auditlog", testutil.MemberUser(space.ID))
	rec := testutil.NewRecorder()

	h.HandleList(rec, req)

	rec.AssertStatus(t, http.StatusForbidden)
}

func TestHandleList_UnknownCategory(t *testing.T) {
	h, _, fx := newTestHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	space := fx.CreateSpace(ctx, "Acme", "acme")

	req := testutil.NewAuthenticatedRequest("GET", "/api/auditlog?category=billing", testutil.AdminUser(space.ID))
	rec := testutil.NewRecorder()

	h.HandleList(rec, req)

	rec.AssertStatus(t, http.StatusUnprocessableEntity)
}

func TestHandleList_Pages(t *testing.T) {
	h, store, fx := newTestHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	space := fx.CreateSpace(ctx, "Acme", "acme")
	base := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	for i := 0; i < paging.PageSize+1; i++ {
		logEvent(t, store, audit.Event{
			SpaceID:   &space.ID,
			Timestamp: base.Add(time.Duration(i) * time.Minute),
			Category:  audit.CategoryAuth,
			EventType: audit.EventLoginSuccess,
			Success:   true,
		})
	}

	req := testutil.NewAuthenticatedRequest("GET", "/api/auditlog", testutil.AdminUser(space.ID))
	rec := testutil.NewRecorder()
	h.HandleList(rec, req)

	rec.AssertStatus(t, http.StatusOK)
	rec.AssertContains(t, `"has_next":true`)
	rec.AssertContains(t, `"page":1`)

	req = testutil.NewAuthenticatedRequest("GET", "/api/auditlog?page=2", testutil.AdminUser(space.ID))
	rec = testutil.NewRecorder()
	h.HandleList(rec, req)

	rec.AssertStatus(t, http.StatusOK)
	rec.AssertContains(t, `"has_next":false`)
	rec.AssertContains(t, `"page":2`)
}

func TestHandleList_DateRange(t *testing.T) {
	h, store, fx := newTestHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	space := fx.CreateSpace(ctx, "Acme", "acme")

	logEvent(t, store, audit.Event{
		SpaceID:   &space.ID,
		Timestamp: time.Date(2026, 2, 10, 12, 0, 0, 0, time.UTC),
		Category:  audit.CategoryAuth,
		EventType: audit.EventLogout,
		Success:   true,
	})
	logEvent(t, store, audit.Event{
		SpaceID:   &space.ID,
		Timestamp: time.Date(2026, 3, 2, 23, 30, 0, 0, time.UTC),
		Category:  audit.CategoryAuth,
		EventType: audit.EventLoginSuccess,
		Success:   true,
	})

	req := testutil.NewAuthenticatedRequest("GET", "/api/auditlog?from=2026-03-01&to=2026-03-02", testutil.AdminUser(space.ID))
	rec := testutil.NewRecorder()

	h.HandleList(rec, req)

	rec.AssertStatus(t, http.StatusOK)
	rec.AssertContains(t, `"event_type":"login_success"`)
	rec.AssertContains(t, `"total":1`)
	if strings.Contains(rec.Body.String(), "logout") {
		t.Error("expected events before the range to be excluded")
	}
}
