package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/Josephabidoyefreelance/wavespeed-fresh/internal/http/handlers"
)

// NewRouter assembles the inbound HTTP surface.
func NewRouter(app *handlers.App) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
		middleware.Logger,
	)

	r.Get("/healthz", app.Health)
	r.Get("/app", app.FormPage)

	r.Route("/api", func(r chi.Router) {
		r.Post("/start-batch", app.StartBatch)
		r.Get("/batches/{recordID}", app.GetBatch)
	})

	r.Post("/webhooks/{provider}", app.ProviderWebhook)

	return r
}
