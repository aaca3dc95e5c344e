package projectperms_test

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/dalemusser/tempohub/internal/app/features/projectperms"
	"github.com/dalemusser/tempohub/internal/app/permissions"
	permstore "github.com/dalemusser/tempohub/internal/app/store/projectperms"
	"github.com/dalemusser/tempohub/internal/app/system/auditlog"
	"github.com/dalemusser/tempohub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

func newTestHandler(t *testing.T) (*projectperms.Handler, *testutil.Fixtures) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	var audit *auditlog.Logger
	return projectperms.NewHandler(db, audit, zap.NewNop()), testutil.NewFixtures(t, db)
}

func dataOf(t *testing.T, rec *testutil.ResponseRecorder) map[string]any {
	t.Helper()
	var envelope struct {
		Data map[string]any `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	return envelope.Data
}

func TestHandleOptions_IncludesRolesAndDefaults(t *testing.T) {
	h, _ := newTestHandler(t)

	req := testutil.NewRequest("GET", "/api/projects/x/permissions/options")
	rec := testutil.NewRecorder()

	h.HandleOptions(rec, req)

	rec.AssertStatus(t, http.StatusOK)
	rec.AssertContains(t, `"roles"`)
	rec.AssertContains(t, `"role_defaults"`)
	rec.AssertContains(t, permissions.CanManageMembers)

	data := dataOf(t, rec)
	details, ok := data["permission_details"].([]any)
	if !ok {
		t.Fatal("expected permission_details list")
	}
	if len(details) != len(permissions.Catalog()) {
		t.Errorf("permission_details: got %d entries, want %d", len(details), len(permissions.Catalog()))
	}
	first, ok := details[0].(map[string]any)
	if !ok {
		t.Fatal("expected permission_details entries to be objects")
	}
	for _, field := range []string{"value", "label", "description", "category"} {
		if _, ok := first[field]; !ok {
			t.Errorf("permission_details entry missing %q", field)
		}
	}
	defaults, ok := data["role_defaults"].(map[string]any)
	if !ok {
		t.Fatal("expected role_defaults object")
	}
	// Viewer and guest grant nothing by default but must still appear.
	for _, role := range []string{"viewer", "guest"} {
		vals, ok := defaults[role].([]any)
		if !ok {
			t.Fatalf("expected role_defaults entry for %q", role)
		}
		if len(vals) != 0 {
			t.Errorf("role %q: expected empty defaults, got %v", role, vals)
		}
	}
}

func TestHandleAddMember_AndDuplicate(t *testing.T) {
	h, fx := newTestHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	space := fx.CreateSpace(ctx, "Acme", "acme")
	target := fx.CreateUser(ctx, "Pat Lee", "pat@example.com", "member", space.ID)
	admin := testutil.AdminUser(space.ID)
	project := fx.CreateProject(ctx, "Launch", space.ID, target.ID)

	body := `{"user_id":"` + target.ID.Hex() + `","role":"editor"}`
	req := testutil.NewAuthenticatedJSONRequest("POST", "/users", body, admin)
	req = testutil.WithChiURLParam(req, "projectID", project.ID.Hex())
	rec := testutil.NewRecorder()

	h.HandleAddMember(rec, req)

	rec.AssertStatus(t, http.StatusCreated)
	rec.AssertContains(t, `"role":"editor"`)

	// A second add for the same user conflicts.
	req = testutil.NewAuthenticatedJSONRequest("POST", "/users", body, admin)
	req = testutil.WithChiURLParam(req, "projectID", project.ID.Hex())
	rec = testutil.NewRecorder()

	h.HandleAddMember(rec, req)

	rec.AssertStatus(t, http.StatusConflict)
}

func TestHandleAddMember_RequiresManagePermission(t *testing.T) {
	h, fx := newTestHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	space := fx.CreateSpace(ctx, "Acme", "acme")
	target := fx.CreateUser(ctx, "Pat Lee", "pat@example.com", "member", space.ID)
	project := fx.CreateProject(ctx, "Launch", space.ID, target.ID)

	body := `{"user_id":"` + target.ID.Hex() + `","role":"editor"}`
	req := testutil.NewAuthenticatedJSONRequest("POST", "/users", body, testutil.MemberUser(space.ID))
	req = testutil.WithChiURLParam(req, "projectID", project.ID.Hex())
	rec := testutil.NewRecorder()

	h.HandleAddMember(rec, req)

	rec.AssertStatus(t, http.StatusForbidden)
}

func TestHandleGetMember_NonMemberIs404(t *testing.T) {
	h, fx := newTestHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	space := fx.CreateSpace(ctx, "Acme", "acme")
	user := fx.CreateUser(ctx, "Pat Lee", "pat@example.com", "member", space.ID)
	project := fx.CreateProject(ctx, "Launch", space.ID, user.ID)

	req := testutil.NewAuthenticatedRequest("GET", "/members/"+user.ID.Hex(), testutil.AdminUser(space.ID))
	req = testutil.WithChiURLParam(req, "projectID", project.ID.Hex())
	req = testutil.WithChiURLParam(req, "userID", user.ID.Hex())
	rec := testutil.NewRecorder()

	h.HandleGetMember(rec, req)

	// No record is a normal state: the user falls back to space scope.
	rec.AssertStatus(t, http.StatusNotFound)
}

func TestHandleSetRole_NoAuditOnNoop(t *testing.T) {
	h, fx := newTestHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	space := fx.CreateSpace(ctx, "Acme", "acme")
	user := fx.CreateUser(ctx, "Pat Lee", "pat@example.com", "member", space.ID)
	project := fx.CreateProject(ctx, "Launch", space.ID, user.ID)
	fx.CreateProjectPermission(ctx, project.ID, user.ID, space.ID, "editor", nil)

	admin := testutil.AdminUser(space.ID)

	// Saving the same role reports changed=false.
	req := testutil.NewAuthenticatedJSONRequest("PUT", "/role", `{"role":"editor"}`, admin)
	req = testutil.WithChiURLParam(req, "projectID", project.ID.Hex())
	req = testutil.WithChiURLParam(req, "userID", user.ID.Hex())
	rec := testutil.NewRecorder()

	h.HandleSetRole(rec, req)

	rec.AssertStatus(t, http.StatusOK)
	rec.AssertContains(t, `"changed":false`)

	// A real change reports changed=true.
	req = testutil.NewAuthenticatedJSONRequest("PUT", "/role", `{"role":"manager"}`, admin)
	req = testutil.WithChiURLParam(req, "projectID", project.ID.Hex())
	req = testutil.WithChiURLParam(req, "userID", user.ID.Hex())
	rec = testutil.NewRecorder()

	h.HandleSetRole(rec, req)

	rec.AssertStatus(t, http.StatusOK)
	rec.AssertContains(t, `"changed":true`)
}

func TestHandleSetPermissions_GrantRevokeReset(t *testing.T) {
	h, fx := newTestHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	space := fx.CreateSpace(ctx, "Acme", "acme")
	user := fx.CreateUser(ctx, "Pat Lee", "pat@example.com", "member", space.ID)
	project := fx.CreateProject(ctx, "Launch", space.ID, user.ID)
	fx.CreateProjectPermission(ctx, project.ID, user.ID, space.ID, "viewer", nil)

	admin := testutil.AdminUser(space.ID)
	perms := permstore.New(fx.DB())

	do := func(body string) *testutil.ResponseRecorder {
		req := testutil.NewAuthenticatedJSONRequest("PUT", "/permissions", body, admin)
		req = testutil.WithChiURLParam(req, "projectID", project.ID.Hex())
		req = testutil.WithChiURLParam(req, "userID", user.ID.Hex())
		rec := testutil.NewRecorder()
		h.HandleSetPermissions(rec, req)
		return rec
	}

	rec := do(`{"action":"grant","permissions":["` + permissions.CanViewBudget + `"]}`)
	rec.AssertStatus(t, http.StatusOK)

	stored, err := perms.GetByProjectUser(ctx, project.ID, user.ID)
	if err != nil {
		t.Fatalf("failed to load record: %v", err)
	}
	if v, ok := stored.ExplicitPermissions[permissions.CanViewBudget]; !ok || !v {
		t.Errorf("expected explicit grant, got %v", stored.ExplicitPermissions)
	}

	rec = do(`{"action":"revoke","permissions":["` + permissions.CanViewBudget + `"]}`)
	rec.AssertStatus(t, http.StatusOK)

	stored, _ = perms.GetByProjectUser(ctx, project.ID, user.ID)
	if v, ok := stored.ExplicitPermissions[permissions.CanViewBudget]; !ok || v {
		t.Errorf("expected explicit revoke, got %v", stored.ExplicitPermissions)
	}

	rec = do(`{"action":"reset","permissions":["` + permissions.CanViewBudget + `"]}`)
	rec.AssertStatus(t, http.StatusOK)

	stored, _ = perms.GetByProjectUser(ctx, project.ID, user.ID)
	if _, ok := stored.ExplicitPermissions[permissions.CanViewBudget]; ok {
		t.Errorf("expected override removed, got %v", stored.ExplicitPermissions)
	}
}

func TestHandleSetPermissions_UnknownPermission(t *testing.T) {
	h, fx := newTestHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	space := fx.CreateSpace(ctx, "Acme", "acme")
	user := fx.CreateUser(ctx, "Pat Lee", "pat@example.com", "member", space.ID)
	project := fx.CreateProject(ctx, "Launch", space.ID, user.ID)
	fx.CreateProjectPermission(ctx, project.ID, user.ID, space.ID, "viewer", nil)

	req := testutil.NewAuthenticatedJSONRequest("PUT", "/permissions",
		`{"action":"grant","permissions":["can_rule_the_world"]}`, testutil.AdminUser(space.ID))
	req = testutil.WithChiURLParam(req, "projectID", project.ID.Hex())
	req = testutil.WithChiURLParam(req, "userID", user.ID.Hex())
	rec := testutil.NewRecorder()

	h.HandleSetPermissions(rec, req)

	rec.AssertStatus(t, http.StatusUnprocessableEntity)
}

func TestHandleGetEffective_OverrideBeatsRoles(t *testing.T) {
	h, fx := newTestHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	space := fx.CreateSpace(ctx, "Acme", "acme")
	// Manager space role grants can_view_budget by default; the
	// explicit revoke on the project record must win anyway.
	user := fx.CreateUser(ctx, "Pat Lee", "pat@example.com", "manager", space.ID)
	project := fx.CreateProject(ctx, "Launch", space.ID, user.ID)
	fx.CreateProjectPermission(ctx, project.ID, user.ID, space.ID, "manager",
		map[string]bool{permissions.CanViewBudget: false})

	req := testutil.NewAuthenticatedRequest("GET", "/effective", testutil.AdminUser(space.ID))
	req = testutil.WithChiURLParam(req, "projectID", project.ID.Hex())
	req = testutil.WithChiURLParam(req, "userID", user.ID.Hex())
	rec := testutil.NewRecorder()

	h.HandleGetEffective(rec, req)

	rec.AssertStatus(t, http.StatusOK)

	var envelope struct {
		Data struct {
			SpaceRole   string `json:"space_role"`
			ProjectRole string `json:"project_role"`
			Permissions []struct {
				Value             string `json:"value"`
				Granted           bool   `json:"granted"`
				Explicit          *bool  `json:"explicit"`
				InheritedFromRole bool   `json:"inherited_from_role"`
				Sources           []struct {
					Type  string `json:"type"`
					Level int    `json:"level"`
				} `json:"sources"`
			} `json:"permissions"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}

	if envelope.Data.SpaceRole != "manager" {
		t.Errorf("space_role: got %q, want %q", envelope.Data.SpaceRole, "manager")
	}

	var found bool
	for _, p := range envelope.Data.Permissions {
		if p.Value != permissions.CanViewBudget {
			continue
		}
		found = true
		if p.Granted {
			t.Error("expected explicit revoke to deny can_view_budget")
		}
		if !p.InheritedFromRole {
			t.Error("expected role layers to grant can_view_budget")
		}
		if p.Explicit == nil || *p.Explicit {
			t.Errorf("expected explicit=false, got %v", p.Explicit)
		}
		if len(p.Sources) == 0 {
			t.Fatal("expected a provenance trail")
		}
		// The trail is sorted by level descending; the deciding
		// explicit revoke comes first.
		if p.Sources[0].Type != permissions.SourceExplicitRevoke {
			t.Errorf("first source: got %q, want %q", p.Sources[0].Type, permissions.SourceExplicitRevoke)
		}
		for i := 1; i < len(p.Sources); i++ {
			if p.Sources[i].Level > p.Sources[i-1].Level {
				t.Error("expected sources sorted by level descending")
			}
		}
	}
	if !found {
		t.Fatal("can_view_budget missing from effective permissions")
	}
}

func TestHandleGetEffective_SelfInspectionAllowed(t *testing.T) {
	h, fx := newTestHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	space := fx.CreateSpace(ctx, "Acme", "acme")
	user := fx.CreateUser(ctx, "Pat Lee", "pat@example.com", "member", space.ID)
	project := fx.CreateProject(ctx, "Launch", space.ID, user.ID)
	fx.CreateProjectPermission(ctx, project.ID, user.ID, space.ID, "viewer", nil)

	self := testutil.AsUser(user.ID, user.FullName, user.Email, user.Role, space.ID)
	req := testutil.NewAuthenticatedRequest("GET", "/effective", self)
	req = testutil.WithChiURLParam(req, "projectID", project.ID.Hex())
	req = testutil.WithChiURLParam(req, "userID", user.ID.Hex())
	rec := testutil.NewRecorder()

	h.HandleGetEffective(rec, req)

	rec.AssertStatus(t, http.StatusOK)
}

func TestHandleGetEffective_OtherUserNeedsManage(t *testing.T) {
	h, fx := newTestHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	space := fx.CreateSpace(ctx, "Acme", "acme")
	user := fx.CreateUser(ctx, "Pat Lee", "pat@example.com", "member", space.ID)
	project := fx.CreateProject(ctx, "Launch", space.ID, user.ID)

	req := testutil.NewAuthenticatedRequest("GET", "/effective", testutil.MemberUser(space.ID))
	req = testutil.WithChiURLParam(req, "projectID", project.ID.Hex())
	req = testutil.WithChiURLParam(req, "userID", user.ID.Hex())
	rec := testutil.NewRecorder()

	h.HandleGetEffective(rec, req)

	rec.AssertStatus(t, http.StatusForbidden)
}

func TestHandleApplyTemplate_AppliesToAllUsers(t *testing.T) {
	h, fx := newTestHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	space := fx.CreateSpace(ctx, "Acme", "acme")
	u1 := fx.CreateUser(ctx, "One", "one@example.com", "member", space.ID)
	u2 := fx.CreateUser(ctx, "Two", "two@example.com", "member", space.ID)
	project := fx.CreateProject(ctx, "Launch", space.ID, u1.ID)
	// u2 is already a member with a stale override; the template must
	// overwrite both role and overrides.
	fx.CreateProjectPermission(ctx, project.ID, u2.ID, space.ID, "viewer",
		map[string]bool{permissions.CanViewBudget: true})

	body := `{"role":"editor","user_ids":["` + u1.ID.Hex() + `","` + u2.ID.Hex() + `"],` +
		`"revokes":["` + permissions.CanEditContent + `"]}`
	req := testutil.NewAuthenticatedJSONRequest("POST", "/apply-template", body, testutil.AdminUser(space.ID))
	req = testutil.WithChiURLParam(req, "projectID", project.ID.Hex())
	rec := testutil.NewRecorder()

	h.HandleApplyTemplate(rec, req)

	rec.AssertStatus(t, http.StatusOK)
	rec.AssertContains(t, `"status":"applied"`)
	rec.AssertContains(t, `"applied":2`)

	perms := permstore.New(fx.DB())
	for _, uid := range []primitive.ObjectID{u1.ID, u2.ID} {
		stored, err := perms.GetByProjectUser(ctx, project.ID, uid)
		if err != nil {
			t.Fatalf("user %s: failed to load record: %v", uid.Hex(), err)
		}
		if stored.Role != "editor" {
			t.Errorf("user %s: role got %q, want %q", uid.Hex(), stored.Role, "editor")
		}
		if v, ok := stored.ExplicitPermissions[permissions.CanEditContent]; !ok || v {
			t.Errorf("user %s: expected explicit revoke of can_edit_content, got %v",
				uid.Hex(), stored.ExplicitPermissions)
		}
		if _, ok := stored.ExplicitPermissions[permissions.CanViewBudget]; ok {
			t.Errorf("user %s: expected stale override cleared, got %v",
				uid.Hex(), stored.ExplicitPermissions)
		}
	}
}

func TestHandleApplyTemplate_MatchingUserWritesNothing(t *testing.T) {
	h, fx := newTestHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	space := fx.CreateSpace(ctx, "Acme", "acme")
	user := fx.CreateUser(ctx, "One", "one@example.com", "member", space.ID)
	project := fx.CreateProject(ctx, "Launch", space.ID, user.ID)
	// Stored state already equals the template layout.
	fx.CreateProjectPermission(ctx, project.ID, user.ID, space.ID, "editor",
		map[string]bool{permissions.CanEditContent: false})

	perms := permstore.New(fx.DB())
	before, err := perms.GetByProjectUser(ctx, project.ID, user.ID)
	if err != nil {
		t.Fatalf("failed to load record: %v", err)
	}

	body := `{"role":"editor","user_ids":["` + user.ID.Hex() + `"],` +
		`"revokes":["` + permissions.CanEditContent + `"]}`
	req := testutil.NewAuthenticatedJSONRequest("POST", "/apply-template", body, testutil.AdminUser(space.ID))
	req = testutil.WithChiURLParam(req, "projectID", project.ID.Hex())
	rec := testutil.NewRecorder()

	h.HandleApplyTemplate(rec, req)

	rec.AssertStatus(t, http.StatusOK)
	rec.AssertContains(t, `"applied":1`)

	stored, err := perms.GetByProjectUser(ctx, project.ID, user.ID)
	if err != nil {
		t.Fatalf("failed to load record: %v", err)
	}
	if !stored.UpdatedAt.Equal(before.UpdatedAt) {
		t.Errorf("expected no writes for a user already matching the template, updated_at moved from %v to %v",
			before.UpdatedAt, stored.UpdatedAt)
	}
}

func TestHandleApplyTemplate_GrantRevokeOverlap(t *testing.T) {
	h, fx := newTestHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	space := fx.CreateSpace(ctx, "Acme", "acme")
	user := fx.CreateUser(ctx, "One", "one@example.com", "member", space.ID)
	project := fx.CreateProject(ctx, "Launch", space.ID, user.ID)

	body := `{"role":"editor","user_ids":["` + user.ID.Hex() + `"],` +
		`"grants":["` + permissions.CanEditContent + `"],` +
		`"revokes":["` + permissions.CanEditContent + `"]}`
	req := testutil.NewAuthenticatedJSONRequest("POST", "/apply-template", body, testutil.AdminUser(space.ID))
	req = testutil.WithChiURLParam(req, "projectID", project.ID.Hex())
	rec := testutil.NewRecorder()

	h.HandleApplyTemplate(rec, req)

	rec.AssertStatus(t, http.StatusUnprocessableEntity)
	rec.AssertContains(t, "both grants and revokes")
}

func TestHandleApplyTemplate_UnknownRole(t *testing.T) {
	h, fx := newTestHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	space := fx.CreateSpace(ctx, "Acme", "acme")
	user := fx.CreateUser(ctx, "One", "one@example.com", "member", space.ID)
	project := fx.CreateProject(ctx, "Launch", space.ID, user.ID)

	body := `{"role":"emperor","user_ids":["` + user.ID.Hex() + `"]}`
	req := testutil.NewAuthenticatedJSONRequest("POST", "/apply-template", body, testutil.AdminUser(space.ID))
	req = testutil.WithChiURLParam(req, "projectID", project.ID.Hex())
	rec := testutil.NewRecorder()

	h.HandleApplyTemplate(rec, req)

	rec.AssertStatus(t, http.StatusUnprocessableEntity)
}

func TestLoadProject_OtherSpaceReadsAsNotFound(t *testing.T) {
	h, fx := newTestHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	spaceA := fx.CreateSpace(ctx, "Acme", "acme")
	spaceB := fx.CreateSpace(ctx, "Rival", "rival")
	owner := fx.CreateUser(ctx, "Owner A", "a@example.com", "owner", spaceA.ID)
	project := fx.CreateProject(ctx, "Secret", spaceA.ID, owner.ID)

	req := testutil.NewAuthenticatedRequest("GET", "/members", testutil.AdminUser(spaceB.ID))
	req = testutil.WithChiURLParam(req, "projectID", project.ID.Hex())
	rec := testutil.NewRecorder()

	h.HandleListMembers(rec, req)

	rec.AssertStatus(t, http.StatusNotFound)
}
