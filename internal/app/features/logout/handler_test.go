package logout_test

import (
	"net/http"
	"strings"
	"testing"

	"github.com/dalemusser/tempohub/internal/app/features/logout"
	"github.com/dalemusser/tempohub/internal/app/system/auditlog"
	"github.com/dalemusser/tempohub/internal/app/system/auth"
	"github.com/dalemusser/tempohub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

func newTestSessionManager(t *testing.T) *auth.SessionManager {
	t.Helper()
	sm, err := auth.NewSessionManager(strings.Repeat("k", 32), "tempohub-session", "", false, zap.NewNop())
	if err != nil {
		t.Fatalf("failed to build session manager: %v", err)
	}
	return sm
}

func TestHandleLogout_SignedIn(t *testing.T) {
	var audit *auditlog.Logger
	h := logout.NewHandler(newTestSessionManager(t), audit, zap.NewNop())

	spaceID := primitive.NewObjectID()
	req := testutil.NewAuthenticatedRequest("POST", "/api/logout", testutil.MemberUser(spaceID))
	rec := testutil.NewRecorder()

	h.HandleLogout(rec, req)

	rec.AssertStatus(t, http.StatusOK)
	rec.AssertContains(t, "signed_out")

	cleared := false
	for _, c := range rec.Result().Cookies() {
		if c.Name == "tempohub-session" && c.MaxAge < 0 {
			cleared = true
		}
	}
	if !cleared {
		t.Error("expected the session cookie to be expired")
	}
}

func TestHandleLogout_AlreadySignedOut(t *testing.T) {
	var audit *auditlog.Logger
	h := logout.NewHandler(newTestSessionManager(t), audit, zap.NewNop())

	req := testutil.NewRequest("POST", "/api/logout")
	rec := testutil.NewRecorder()

	h.HandleLogout(rec, req)

	rec.AssertStatus(t, http.StatusOK)
}
