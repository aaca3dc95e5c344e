// internal/app/features/projectperms/routes.go
package projectperms

import "github.com/go-chi/chi/v5"

// Routes returns the permission subrouter, mounted under
// /api/projects/{projectID}/permissions. Callers are already behind
// RequireSignedIn.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()

	r.Get("/options", h.HandleOptions)
	r.Post("/users", h.HandleAddMember)
	r.Post("/apply-template", h.HandleApplyTemplate)

	r.Route("/{userID}", func(r chi.Router) {
		r.Get("/", h.HandleGetMember)
		r.Delete("/", h.HandleRemoveMember)
		r.Get("/effective", h.HandleGetEffective)
		r.Put("/role", h.HandleSetRole)
		r.Put("/permissions", h.HandleSetPermissions)
	})

	return r
}

// MembersRoutes returns the member directory subrouter, mounted under
// /api/projects/{projectID}/members. The batch template tools read it
// to pick users.
func MembersRoutes(h *Handler) chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.HandleListMembers)

	return r
}
