// internal/app/features/timeentries/types.go
package timeentries

import "time"

type startTimerRequest struct {
	ProjectID string `json:"project_id"`
	TaskID    string `json:"task_id,omitempty"`
	Note      string `json:"note,omitempty"`
}

type manualEntryRequest struct {
	ProjectID string    `json:"project_id"`
	TaskID    string    `json:"task_id,omitempty"`
	Note      string    `json:"note,omitempty"`
	StartedAt time.Time `json:"started_at"`
	EndedAt   time.Time `json:"ended_at"`
}

type updateEntryRequest struct {
	Note      string    `json:"note,omitempty"`
	StartedAt time.Time `json:"started_at"`
	EndedAt   time.Time `json:"ended_at"`
}

type entryResponse struct {
	ID              string     `json:"id"`
	UserID          string     `json:"user_id"`
	ProjectID       string     `json:"project_id"`
	TaskID          string     `json:"task_id,omitempty"`
	Note            string     `json:"note,omitempty"`
	StartedAt       time.Time  `json:"started_at"`
	EndedAt         *time.Time `json:"ended_at,omitempty"`
	Running         bool       `json:"running"`
	DurationMinutes int        `json:"duration_minutes"`
}
