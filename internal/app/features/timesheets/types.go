// internal/app/features/timesheets/types.go
package timesheets

import "time"

type submitRequest struct {
	WeekStart string `json:"week_start"`
}

type entrySummary struct {
	ID              string     `json:"id"`
	ProjectID       string     `json:"project_id"`
	TaskID          string     `json:"task_id,omitempty"`
	Note            string     `json:"note,omitempty"`
	StartedAt       time.Time  `json:"started_at"`
	EndedAt         *time.Time `json:"ended_at,omitempty"`
	Running         bool       `json:"running"`
	DurationMinutes int        `json:"duration_minutes"`
}

type dayView struct {
	Date         string         `json:"date"`
	TotalMinutes int            `json:"total_minutes"`
	Entries      []entrySummary `json:"entries"`
}

type approvalView struct {
	ID           string     `json:"id"`
	WeekStart    string     `json:"week_start"`
	TotalMinutes int        `json:"total_minutes"`
	Status       string     `json:"status"`
	ReviewNote   string     `json:"review_note,omitempty"`
	SubmittedAt  time.Time  `json:"submitted_at"`
	ReviewedAt   *time.Time `json:"reviewed_at,omitempty"`
}

type weekResponse struct {
	UserID       string        `json:"user_id"`
	WeekStart    string        `json:"week_start"`
	TotalMinutes int           `json:"total_minutes"`
	Days         []dayView     `json:"days"`
	Approval     *approvalView `json:"approval,omitempty"`
}
