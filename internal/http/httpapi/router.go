package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/IkonicR/ads-x-create-v2-sub005/internal/http/handlers"
	"github.com/IkonicR/ads-x-create-v2-sub005/internal/middleware"
)

// NewRouter assembles the API surface.
func NewRouter(app *handlers.App, allowedOrigins []string) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.RequestID,
		chimw.RealIP,
		chimw.Recoverer,
		middleware.Logger(app.Logger),
		middleware.CORS(allowedOrigins),
	)

	r.Get("/v1/healthz", app.Health)

	r.Route("/v1/images", func(r chi.Router) {
		r.Post("/generations", app.ImagesGenerate)
	})
	r.Route("/v1/jobs", func(r chi.Router) {
		r.Get("/{job_id}", app.JobStatus)
		r.Delete("/{job_id}", app.CancelJob)
	})
	r.Route("/v1/businesses/{business_id}", func(r chi.Router) {
		r.Get("/jobs/pending", app.PendingJobs)
		r.Get("/assets", app.BusinessAssets)
	})

	return r
}
