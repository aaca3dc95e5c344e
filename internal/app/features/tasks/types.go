// internal/app/features/tasks/types.go
package tasks

import "time"

type createTaskRequest struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Status      string `json:"status,omitempty"`
	Assignee    string `json:"assignee,omitempty"`
}

type updateTaskRequest struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
}

type moveTaskRequest struct {
	Status   string `json:"status"`
	Position int    `json:"position"`
}

type assignTaskRequest struct {
	// Assignee is a user ID; empty unassigns.
	Assignee string `json:"assignee"`
}

type taskResponse struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	ProjectID   string    `json:"project_id"`
	Assignee    string    `json:"assignee,omitempty"`
	Status      string    `json:"status"`
	Position    int       `json:"position"`
	CreatedBy   string    `json:"created_by"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
