package projectpolicy_test

import (
	"testing"
	"time"

	"github.com/dalemusser/tempohub/internal/app/permissions"
	"github.com/dalemusser/tempohub/internal/app/policy/projectpolicy"
	"github.com/dalemusser/tempohub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func setup(t *testing.T) (*projectpolicy.Policy, *testutil.Fixtures) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	return projectpolicy.New(db), testutil.NewFixtures(t, db)
}

func TestMembershipFor_MissingRecordIsNotAnError(t *testing.T) {
	p, _ := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	m, err := p.MembershipFor(ctx, primitive.NewObjectID(), primitive.NewObjectID())
	if err != nil {
		t.Fatalf("expected no error for a non-member: %v", err)
	}
	if m.HasRecord {
		t.Error("expected no record for a non-member")
	}
}

func TestMembershipFor_ExpiredRecordTreatedAbsent(t *testing.T) {
	p, fx := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	space := fx.CreateSpace(ctx, "Acme", "acme")
	owner := fx.CreateUser(ctx, "Owner", "owner@example.com", "owner", space.ID)
	guest := fx.CreateUser(ctx, "Guest", "guest@example.com", "guest", space.ID)
	project := fx.CreateProject(ctx, "Launch", space.ID, owner.ID)

	pp := fx.CreateProjectPermission(ctx, project.ID, guest.ID, space.ID, "editor", nil)
	expired := time.Now().UTC().Add(-time.Hour)
	if _, err := fx.DB().Collection("project_permissions").UpdateByID(ctx, pp.ID,
		map[string]any{"$set": map[string]any{"expires_at": expired}}); err != nil {
		t.Fatalf("failed to expire record: %v", err)
	}

	m, err := p.MembershipFor(ctx, project.ID, guest.ID)
	if err != nil {
		t.Fatalf("membership lookup failed: %v", err)
	}
	if m.HasRecord {
		t.Error("expected expired membership to read as absent")
	}
}

func TestMembershipFor_ReducesOverrides(t *testing.T) {
	p, fx := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	space := fx.CreateSpace(ctx, "Acme", "acme")
	owner := fx.CreateUser(ctx, "Owner", "owner@example.com", "owner", space.ID)
	user := fx.CreateUser(ctx, "Pat", "pat@example.com", "member", space.ID)
	project := fx.CreateProject(ctx, "Launch", space.ID, owner.ID)

	fx.CreateProjectPermission(ctx, project.ID, user.ID, space.ID, "member", map[string]bool{
		permissions.CanViewBudget: true,
		permissions.CanEditContent: false,
	})

	m, err := p.MembershipFor(ctx, project.ID, user.ID)
	if err != nil {
		t.Fatalf("membership lookup failed: %v", err)
	}
	if !m.HasRecord || m.Role != "member" {
		t.Fatalf("unexpected membership: %+v", m)
	}
	if m.Overrides[permissions.CanViewBudget] != permissions.Grant {
		t.Error("expected stored true to reduce to an explicit grant")
	}
	if m.Overrides[permissions.CanEditContent] != permissions.Revoke {
		t.Error("expected stored false to reduce to an explicit revoke")
	}
}

func TestCan_FailsClosedWithoutUser(t *testing.T) {
	p, fx := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	space := fx.CreateSpace(ctx, "Acme", "acme")
	owner := fx.CreateUser(ctx, "Owner", "owner@example.com", "owner", space.ID)
	project := fx.CreateProject(ctx, "Launch", space.ID, owner.ID)

	r := testutil.NewRequest("GET", "/")
	ok, err := p.Can(ctx, r, project.ID, permissions.CanViewProject)
	if err != nil {
		t.Fatalf("policy check failed: %v", err)
	}
	if ok {
		t.Error("expected an anonymous request to be denied")
	}
}

func TestCan_ExplicitRevokeBeatsSpaceRole(t *testing.T) {
	p, fx := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	space := fx.CreateSpace(ctx, "Acme", "acme")
	owner := fx.CreateUser(ctx, "Owner", "owner@example.com", "owner", space.ID)
	user := fx.CreateUser(ctx, "Mia", "mia@example.com", "manager", space.ID)
	project := fx.CreateProject(ctx, "Launch", space.ID, owner.ID)

	fx.CreateProjectPermission(ctx, project.ID, user.ID, space.ID, "member", map[string]bool{
		permissions.CanViewBudget: false,
	})

	asUser := testutil.AsUser(user.ID, user.FullName, user.Email, user.Role, space.ID)
	r := testutil.NewAuthenticatedRequest("GET", "/", asUser)

	ok, err := p.Can(ctx, r, project.ID, permissions.CanViewBudget)
	if err != nil {
		t.Fatalf("policy check failed: %v", err)
	}
	if ok {
		t.Error("expected explicit revoke to override the space role grant")
	}

	// The manager's other space grants are untouched.
	ok, err = p.Can(ctx, r, project.ID, permissions.CanManageMembers)
	if err != nil {
		t.Fatalf("policy check failed: %v", err)
	}
	if !ok {
		t.Error("expected unrelated space grants to survive")
	}
}
