// internal/app/features/members/routes.go
package members

import "github.com/go-chi/chi/v5"

// Routes returns the member management subrouter, mounted under
// /api/members behind RequireSignedIn.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.HandleList)
	r.Post("/", h.HandleCreate)
	r.Route("/{userID}", func(r chi.Router) {
		r.Get("/", h.HandleGet)
		r.Put("/role", h.HandleSetRole)
		r.Put("/status", h.HandleSetStatus)
		r.Put("/permissions", h.HandleSetPermissions)
	})

	return r
}
