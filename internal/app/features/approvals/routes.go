// internal/app/features/approvals/routes.go
package approvals

import "github.com/go-chi/chi/v5"

// Routes returns the approval queue subrouter, mounted under
// /api/approvals behind RequireSignedIn.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.HandleList)
	r.Route("/{approvalID}", func(r chi.Router) {
		r.Get("/", h.HandleGet)
		r.Post("/review", h.HandleReview)
	})

	return r
}
