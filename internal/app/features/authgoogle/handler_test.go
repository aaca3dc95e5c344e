package authgoogle_test

import (
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/dalemusser/tempohub/internal/app/features/authgoogle"
	"github.com/dalemusser/tempohub/internal/app/store/oauthstate"
	"github.com/dalemusser/tempohub/internal/app/system/auditlog"
	"github.com/dalemusser/tempohub/internal/app/system/auth"
	"github.com/dalemusser/tempohub/internal/testutil"
	"go.uber.org/zap"
)

func newTestHandler(t *testing.T) (*authgoogle.Handler, *oauthstate.Store) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	sm, err := auth.NewSessionManager(strings.Repeat("k", 32), "tempohub-session", "", false, zap.NewNop())
	if err != nil {
		t.Fatalf("failed to build session manager: %v", err)
	}
	var audit *auditlog.Logger
	h := authgoogle.NewHandler(db, sm, audit, "client-id", "client-secret", "https://tempohub.test", zap.NewNop())
	return h, oauthstate.New(db)
}

func TestServeStart_RedirectsToGoogle(t *testing.T) {
	h, states := newTestHandler(t)

	req := testutil.NewRequest("GET", "/auth/google")
	rec := testutil.NewRecorder()

	h.ServeStart(rec, req)

	rec.AssertStatus(t, http.StatusTemporaryRedirect)

	loc := rec.Header().Get("Location")
	if !strings.Contains(loc, "accounts.google.com") {
		t.Errorf("expected redirect to Google, got %q", loc)
	}
	if !strings.Contains(loc, "state=") {
		t.Errorf("expected state parameter in redirect, got %q", loc)
	}

	// The state embedded in the redirect must be stored and valid.
	stateParam := extractQueryParam(t, loc, "state")
	ctx, cancel := testutil.TestContext()
	defer cancel()
	_, _, valid, err := states.Validate(ctx, stateParam)
	if err != nil {
		t.Fatalf("state validation failed: %v", err)
	}
	if !valid {
		t.Error("expected stored state to validate")
	}
}

func TestServeStart_RejectsExternalReturnURL(t *testing.T) {
	h, states := newTestHandler(t)

	req := testutil.NewRequest("GET", "/auth/google?return=https://evil.example/phish")
	rec := testutil.NewRecorder()

	h.ServeStart(rec, req)

	rec.AssertStatus(t, http.StatusTemporaryRedirect)

	stateParam := extractQueryParam(t, rec.Header().Get("Location"), "state")
	ctx, cancel := testutil.TestContext()
	defer cancel()
	returnURL, _, valid, err := states.Validate(ctx, stateParam)
	if err != nil {
		t.Fatalf("state validation failed: %v", err)
	}
	if !valid {
		t.Fatal("expected stored state to validate")
	}
	if returnURL != "" {
		t.Errorf("expected external return URL to be dropped, got %q", returnURL)
	}
}

func TestServeCallback_InvalidState(t *testing.T) {
	h, _ := newTestHandler(t)

	req := testutil.NewRequest("GET", "/auth/google/callback?state=bogus&code=abc")
	rec := testutil.NewRecorder()

	h.ServeCallback(rec, req)

	rec.AssertStatus(t, http.StatusTemporaryRedirect)
	if loc := rec.Header().Get("Location"); !strings.Contains(loc, "auth_error=expired") {
		t.Errorf("expected expired-state redirect, got %q", loc)
	}
}

func TestServeCallback_StateIsOneTimeUse(t *testing.T) {
	h, states := newTestHandler(t)

	ctx, cancel := testutil.TestContext()
	defer cancel()
	if err := states.Save(ctx, "once-token", "", "", time.Now().UTC().Add(5*time.Minute)); err != nil {
		t.Fatalf("failed to save state: %v", err)
	}

	_, _, valid, err := states.Validate(ctx, "once-token")
	if err != nil || !valid {
		t.Fatalf("first validation: valid=%v err=%v", valid, err)
	}

	// The second use must fail; the callback treats it as expired.
	req := testutil.NewRequest("GET", "/auth/google/callback?state=once-token&code=abc")
	rec := testutil.NewRecorder()

	h.ServeCallback(rec, req)

	rec.AssertStatus(t, http.StatusTemporaryRedirect)
	if loc := rec.Header().Get("Location"); !strings.Contains(loc, "auth_error=expired") {
		t.Errorf("expected expired-state redirect, got %q", loc)
	}
}

func TestServeCallback_ProviderError(t *testing.T) {
	h, _ := newTestHandler(t)

	req := testutil.NewRequest("GET", "/auth/google/callback?error=access_denied")
	rec := testutil.NewRecorder()

	h.ServeCallback(rec, req)

	rec.AssertStatus(t, http.StatusTemporaryRedirect)
	if loc := rec.Header().Get("Location"); !strings.Contains(loc, "auth_error=cancelled") {
		t.Errorf("expected cancelled redirect, got %q", loc)
	}
}

func extractQueryParam(t *testing.T, rawURL, key string) string {
	t.Helper()
	idx := strings.Index(rawURL, "?")
	if idx < 0 {
		t.Fatalf("no query string in %q", rawURL)
	}
	for _, pair := range strings.Split(rawURL[idx+1:], "&") {
		kv := strings.SplitN(pair, "=", 2)
		if len(kv) == 2 && kv[0] == key {
			return kv[1]
		}
	}
	t.Fatalf("parameter %q not found in %q", key, rawURL)
	return ""
}
