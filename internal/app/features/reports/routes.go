// internal/app/features/reports/routes.go
package reports

import "github.com/go-chi/chi/v5"

// Routes returns the reports subrouter, mounted under /api/reports
// behind RequireSignedIn.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()

	r.Get("/summary", h.HandleSpaceSummary)
	r.Get("/projects/{projectID}", h.HandleProjectReport)

	return r
}
