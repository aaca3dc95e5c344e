// internal/app/features/timeentries/routes.go
package timeentries

import "github.com/go-chi/chi/v5"

// Routes returns the time entry subrouter, mounted under
// /api/timeentries behind RequireSignedIn.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.HandleList)
	r.Post("/", h.HandleCreateManual)

	r.Route("/timer", func(r chi.Router) {
		r.Get("/", h.HandleGetTimer)
		r.Post("/start", h.HandleStartTimer)
		r.Post("/stop", h.HandleStopTimer)
	})

	r.Route("/{entryID}", func(r chi.Router) {
		r.Put("/", h.HandleUpdate)
		r.Delete("/", h.HandleDelete)
	})

	return r
}
