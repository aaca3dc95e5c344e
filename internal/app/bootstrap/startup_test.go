package bootstrap

import (
	"testing"

	"github.com/dalemusser/tempohub/internal/domain/models"
	"github.com/dalemusser/tempohub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"
)

func testAppConfig() AppConfig {
	return AppConfig{
		OwnerEmail:     "owner@example.com",
		OwnerName:      "First Owner",
		SpaceName:      "Acme",
		SpaceSubdomain: "acme",
	}
}

func TestEnsureOwner_CreatesSpaceAndOwner(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	deps := DBDeps{MongoDatabase: db}

	if err := ensureOwner(ctx, deps, testAppConfig(), zap.NewNop()); err != nil {
		t.Fatalf("ensureOwner failed: %v", err)
	}

	var space models.Space
	if err := db.Collection("spaces").FindOne(ctx, bson.M{"subdomain": "acme"}).Decode(&space); err != nil {
		t.Fatalf("failed to find created space: %v", err)
	}
	if space.Status != "active" {
		t.Errorf("space status: got %q, want active", space.Status)
	}

	var user models.User
	if err := db.Collection("users").FindOne(ctx, bson.M{"email": "owner@example.com"}).Decode(&user); err != nil {
		t.Fatalf("failed to find created owner: %v", err)
	}
	if user.Role != "owner" {
		t.Errorf("owner role: got %q, want owner", user.Role)
	}
	if user.SpaceID != space.ID {
		t.Error("owner not placed in the bootstrap space")
	}
	if user.PasswordHash != "" {
		t.Error("bootstrap owner must not get a password hash")
	}
}

func TestEnsureOwner_PromotesExistingUser(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	fx := testutil.NewFixtures(t, db)
	space := fx.CreateSpace(ctx, "Acme", "acme")
	existing := fx.CreateUser(ctx, "Pat", "owner@example.com", "member", space.ID)

	deps := DBDeps{MongoDatabase: db}

	if err := ensureOwner(ctx, deps, testAppConfig(), zap.NewNop()); err != nil {
		t.Fatalf("ensureOwner failed: %v", err)
	}

	var user models.User
	if err := db.Collection("users").FindOne(ctx, bson.M{"_id": existing.ID}).Decode(&user); err != nil {
		t.Fatalf("failed to find user: %v", err)
	}
	if user.Role != "owner" {
		t.Errorf("expected promotion to owner, got %q", user.Role)
	}

	// No duplicate account for the same email.
	n, err := db.Collection("users").CountDocuments(ctx, bson.M{"email": "owner@example.com"})
	if err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 owner account, got %d", n)
	}
}

func TestEnsureOwner_Idempotent(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	deps := DBDeps{MongoDatabase: db}
	cfg := testAppConfig()

	for i := 0; i < 2; i++ {
		if err := ensureOwner(ctx, deps, cfg, zap.NewNop()); err != nil {
			t.Fatalf("ensureOwner run %d failed: %v", i+1, err)
		}
	}

	spaces, err := db.Collection("spaces").CountDocuments(ctx, bson.M{})
	if err != nil {
		t.Fatalf("count spaces failed: %v", err)
	}
	if spaces != 1 {
		t.Errorf("expected 1 space after repeat runs, got %d", spaces)
	}
	users, err := db.Collection("users").CountDocuments(ctx, bson.M{})
	if err != nil {
		t.Fatalf("count users failed: %v", err)
	}
	if users != 1 {
		t.Errorf("expected 1 user after repeat runs, got %d", users)
	}
}

func TestEnsureOwner_DisabledWhenUnset(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	deps := DBDeps{MongoDatabase: db}

	if err := ensureOwner(ctx, deps, AppConfig{}, zap.NewNop()); err != nil {
		t.Fatalf("ensureOwner failed: %v", err)
	}

	n, err := db.Collection("spaces").CountDocuments(ctx, bson.M{})
	if err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if n != 0 {
		t.Errorf("expected no spaces created, got %d", n)
	}
}
