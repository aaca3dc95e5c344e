// internal/app/features/auditlog/types.go
package auditlog

import "time"

type eventView struct {
	ID            string            `json:"id"`
	Timestamp     time.Time         `json:"timestamp"`
	Category      string            `json:"category"`
	EventType     string            `json:"event_type"`
	UserID        string            `json:"user_id,omitempty"`
	ActorID       string            `json:"actor_id,omitempty"`
	ProjectID     string            `json:"project_id,omitempty"`
	IP            string            `json:"ip,omitempty"`
	Success       bool              `json:"success"`
	FailureReason string            `json:"failure_reason,omitempty"`
	Details       map[string]string `json:"details,omitempty"`
}

type listResponse struct {
	Events  []eventView `json:"events"`
	Page    int         `json:"page"`
	HasNext bool        `json:"has_next"`
	Total   int64       `json:"total"`
}
