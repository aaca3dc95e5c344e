package indexes_test

import (
	"testing"

	"github.com/dalemusser/tempohub/internal/app/system/indexes"
	"github.com/dalemusser/tempohub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

func TestEnsureAll(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	// EnsureAll should succeed on a clean database
	err := indexes.EnsureAll(ctx, db)
	if err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}
}

func TestEnsureAll_Idempotent(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	// First call
	err := indexes.EnsureAll(ctx, db)
	if err != nil {
		t.Fatalf("First EnsureAll failed: %v", err)
	}

	// Second call should also succeed (idempotent)
	err = indexes.EnsureAll(ctx, db)
	if err != nil {
		t.Fatalf("Second EnsureAll failed: %v", err)
	}
}

func listIndexNames(t *testing.T, db *mongo.Database, collection string) map[string]bool {
	t.Helper()
	ctx, cancel := testutil.TestContext()
	defer cancel()

	cur, err := db.Collection(collection).Indexes().List(ctx)
	if err != nil {
		t.Fatalf("List indexes failed: %v", err)
	}
	defer cur.Close(ctx)

	names := make(map[string]bool)
	for cur.Next(ctx) {
		var idx bson.M
		if err := cur.Decode(&idx); err != nil {
			continue
		}
		if name, ok := idx["name"].(string); ok {
			names[name] = true
		}
	}
	return names
}

func TestEnsureAll_CreatesUserIndexes(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}

	names := listIndexNames(t, db, "users")
	expected := []string{
		"uniq_users_space_emailci",
		"idx_users_space_role_status_fullnameci_id",
		"idx_users_space",
	}
	for _, name := range expected {
		if !names[name] {
			t.Errorf("expected index %q to exist on users collection", name)
		}
	}
}

func TestEnsureAll_CreatesProjectPermissionIndexes(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}

	names := listIndexNames(t, db, "project_permissions")
	expected := []string{
		"uniq_pp_project_user",
		"idx_pp_project_role_user",
		"idx_pp_user_role_project",
		"idx_pp_space_role_project",
	}
	for _, name := range expected {
		if !names[name] {
			t.Errorf("expected index %q to exist on project_permissions collection", name)
		}
	}
}

func TestEnsureAll_CreatesTimeTrackingIndexes(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}

	entries := listIndexNames(t, db, "time_entries")
	for _, name := range []string{"idx_entries_user_started", "idx_entries_project_started"} {
		if !entries[name] {
			t.Errorf("expected index %q to exist on time_entries collection", name)
		}
	}

	approvals := listIndexNames(t, db, "timesheet_approvals")
	for _, name := range []string{"uniq_approvals_user_week", "idx_approvals_space_status_submitted"} {
		if !approvals[name] {
			t.Errorf("expected index %q to exist on timesheet_approvals collection", name)
		}
	}
}
