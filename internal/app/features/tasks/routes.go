// internal/app/features/tasks/routes.go
package tasks

import "github.com/go-chi/chi/v5"

// Routes returns the task subrouter, mounted under
// /api/projects/{projectID}/tasks behind RequireSignedIn.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.HandleList)
	r.Post("/", h.HandleCreate)

	r.Route("/{taskID}", func(r chi.Router) {
		r.Put("/", h.HandleUpdate)
		r.Delete("/", h.HandleDelete)
		r.Put("/move", h.HandleMove)
		r.Put("/assign", h.HandleAssign)
	})

	return r
}
