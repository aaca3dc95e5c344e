package testutil

import (
	"net/http"
	"net/http/httptest"
	"strings"

	"github.com/dalemusser/tempohub/internal/app/system/auth"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// TestUser represents user data for testing HTTP handlers.
type TestUser struct {
	ID               string
	Name             string
	Email            string
	Role             string
	SpaceID          string
	SpacePermissions []string
}

// OwnerUser returns a TestUser with owner role.
func OwnerUser(spaceID primitive.ObjectID) TestUser {
	return TestUser{
		ID:      primitive.NewObjectID().Hex(),
		Name:    "Test Owner",
		Email:   "owner@test.com",
		Role:    "owner",
		SpaceID: spaceID.Hex(),
	}
}

// AdminUser returns a TestUser with admin role.
func AdminUser(spaceID primitive.ObjectID) TestUser {
	return TestUser{
		ID:      primitive.NewObjectID().Hex(),
		Name:    "Test Admin",
		Email:   "admin@test.com",
		Role:    "admin",
		SpaceID: spaceID.Hex(),
	}
}

// MemberUser returns a TestUser with member role.
func MemberUser(spaceID primitive.ObjectID) TestUser {
	return TestUser{
		ID:      primitive.NewObjectID().Hex(),
		Name:    "Test Member",
		Email:   "member@test.com",
		Role:    "member",
		SpaceID: spaceID.Hex(),
	}
}

// ViewerUser returns a TestUser with viewer role.
func ViewerUser(spaceID primitive.ObjectID) TestUser {
	return TestUser{
		ID:      primitive.NewObjectID().Hex(),
		Name:    "Test Viewer",
		Email:   "viewer@test.com",
		Role:    "viewer",
		SpaceID: spaceID.Hex(),
	}
}

// AsUser converts a models.User-shaped identity into a TestUser.
func AsUser(id primitive.ObjectID, name, email, role string, spaceID primitive.ObjectID) TestUser {
	return TestUser{
		ID:      id.Hex(),
		Name:    name,
		Email:   email,
		Role:    role,
		SpaceID: spaceID.Hex(),
	}
}

// WithUser adds a user to the request context for testing authenticated handlers.
// This bypasses the session middleware and injects the user directly.
func WithUser(r *http.Request, user TestUser) *http.Request {
	sessionUser := &auth.SessionUser{
		ID:               user.ID,
		Name:             user.Name,
		Email:            user.Email,
		Role:             user.Role,
		SpaceID:          user.SpaceID,
		SpacePermissions: user.SpacePermissions,
	}
	return auth.WithTestUser(r, sessionUser)
}

// NewRequest creates an HTTP request for testing.
func NewRequest(method, target string) *http.Request {
	return httptest.NewRequest(method, target, nil)
}

// NewJSONRequest creates an HTTP request carrying a JSON body.
func NewJSONRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

// NewAuthenticatedJSONRequest creates a JSON request with a user in context.
func NewAuthenticatedJSONRequest(method, target, body string, user TestUser) *http.Request {
	return WithUser(NewJSONRequest(method, target, body), user)
}

// NewAuthenticatedRequest creates an HTTP request with a user in context.
func NewAuthenticatedRequest(method, target string, user TestUser) *http.Request {
	req := httptest.NewRequest(method, target, nil)
	return WithUser(req, user)
}

// ResponseRecorder wraps httptest.ResponseRecorder with helper methods.
type ResponseRecorder struct {
	*httptest.ResponseRecorder
}

// NewRecorder creates a new ResponseRecorder.
func NewRecorder() *ResponseRecorder {
	return &ResponseRecorder{httptest.NewRecorder()}
}

// AssertStatus checks the response status code.
func (r *ResponseRecorder) AssertStatus(t interface{ Errorf(string, ...any) }, expected int) {
	if r.Code != expected {
		t.Errorf("status code: got %d, want %d", r.Code, expected)
	}
}

// AssertContains checks if the response body contains the expected string.
func (r *ResponseRecorder) AssertContains(t interface{ Errorf(string, ...any) }, expected string) {
	if !strings.Contains(r.Body.String(), expected) {
		t.Errorf("response body does not contain %q", expected)
	}
}
