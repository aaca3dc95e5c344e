// internal/app/features/projects/types.go
package projects

import "time"

type createProjectRequest struct {
	Name          string `json:"name"`
	Description   string `json:"description,omitempty"`
	BudgetMinutes int    `json:"budget_minutes,omitempty"`
}

type updateProjectRequest struct {
	Name          string `json:"name"`
	Description   string `json:"description,omitempty"`
	BudgetMinutes int    `json:"budget_minutes,omitempty"`
}

// projectResponse is the project payload. BudgetMinutes is omitted
// for callers without budget visibility.
type projectResponse struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Description   string    `json:"description"`
	Status        string    `json:"status"`
	BudgetMinutes *int      `json:"budget_minutes,omitempty"`
	SpentMinutes  *int      `json:"spent_minutes,omitempty"`
	CreatedBy     string    `json:"created_by"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}
