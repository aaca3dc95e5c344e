// internal/app/features/members/types.go
package members

import "time"

type createRequest struct {
	FullName string `json:"full_name"`
	Email    string `json:"email"`
	Role     string `json:"role"`
	// Password is optional; accounts created without one can only
	// sign in through Google.
	Password string `json:"password"`
}

type roleRequest struct {
	Role string `json:"role"`
}

type statusRequest struct {
	Status string `json:"status"`
}

type permissionsRequest struct {
	Permissions []string `json:"permissions"`
}

type memberView struct {
	ID               string    `json:"id"`
	FullName         string    `json:"full_name"`
	Email            string    `json:"email"`
	Role             string    `json:"role"`
	Status           string    `json:"status"`
	AuthMethod       string    `json:"auth_method,omitempty"`
	SpacePermissions []string  `json:"space_permissions,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
}
