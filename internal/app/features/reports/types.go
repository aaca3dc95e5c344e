// internal/app/features/reports/types.go
package reports

type userTotal struct {
	UserID       string `json:"user_id"`
	FullName     string `json:"full_name,omitempty"`
	Email        string `json:"email,omitempty"`
	TotalMinutes int    `json:"total_minutes"`
	EntryCount   int    `json:"entry_count"`
}

type projectReport struct {
	ProjectID    string      `json:"project_id"`
	ProjectName  string      `json:"project_name"`
	From         string      `json:"from"`
	To           string      `json:"to"`
	TotalMinutes int         `json:"total_minutes"`
	Users        []userTotal `json:"users"`
}

type projectSummary struct {
	ProjectID     string `json:"project_id"`
	Name          string `json:"name"`
	Status        string `json:"status"`
	BudgetMinutes int    `json:"budget_minutes,omitempty"`
	TotalMinutes  int    `json:"total_minutes"`
	EntryCount    int    `json:"entry_count"`
}

type summaryResponse struct {
	From         string           `json:"from"`
	To           string           `json:"to"`
	TotalMinutes int              `json:"total_minutes"`
	Projects     []projectSummary `json:"projects"`
}
