// internal/app/features/timesheets/routes.go
package timesheets

import "github.com/go-chi/chi/v5"

// Routes returns the timesheet subrouter, mounted under
// /api/timesheets behind RequireSignedIn.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.HandleGetWeek)
	r.Get("/submissions", h.HandleHistory)
	r.Post("/submit", h.HandleSubmit)

	return r
}
