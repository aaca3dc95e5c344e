// internal/app/features/projects/routes.go
package projects

import "github.com/go-chi/chi/v5"

// Routes returns the project subrouter, mounted under /api/projects.
// Callers are already behind RequireSignedIn. The permissions,
// members, and tasks subrouters nest under /{projectID} so their
// handlers can read the projectID URL parameter.
func Routes(h *Handler, perms, members, tasks chi.Router) chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.HandleList)
	r.Post("/", h.HandleCreate)

	r.Route("/{projectID}", func(r chi.Router) {
		r.Get("/", h.HandleGet)
		r.Put("/", h.HandleUpdate)
		r.Post("/archive", h.HandleArchive)
		r.Post("/restore", h.HandleRestore)

		r.Mount("/permissions", perms)
		r.Mount("/members", members)
		r.Mount("/tasks", tasks)
	})

	return r
}
