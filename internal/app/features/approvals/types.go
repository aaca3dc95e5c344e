// internal/app/features/approvals/types.go
package approvals

import "time"

type reviewRequest struct {
	Status string `json:"status"`
	Note   string `json:"note,omitempty"`
}

type queueItem struct {
	ID           string     `json:"id"`
	UserID       string     `json:"user_id"`
	UserName     string     `json:"user_name,omitempty"`
	UserEmail    string     `json:"user_email,omitempty"`
	WeekStart    string     `json:"week_start"`
	TotalMinutes int        `json:"total_minutes"`
	Status       string     `json:"status"`
	ReviewNote   string     `json:"review_note,omitempty"`
	SubmittedAt  time.Time  `json:"submitted_at"`
	ReviewedAt   *time.Time `json:"reviewed_at,omitempty"`
}
