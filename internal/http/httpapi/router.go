package httpapi

import (
	"net/http"

	"server/internal/http/handlers"
	appmw "server/internal/middleware"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Options tunes the router beyond the handler set.
type Options struct {
	CORSOrigins []string
	VideoDir    string
}

func NewRouter(app *handlers.App, opts Options) http.Handler {
	r := chi.NewRouter()

	r.Use(
		appmw.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
		appmw.Logger(app.Logger),
	)
	if len(opts.CORSOrigins) > 0 {
		r.Use(appmw.CORS(opts.CORSOrigins))
	}

	r.Route("/v1", func(r chi.Router) {
		r.Get("/healthz", app.Health)
		r.Route("/video", func(r chi.Router) {
			r.Post("/generations", app.GenerationsCreate)
			r.Get("/generations", app.GenerationsList)
			r.Get("/generations/{id}", app.GenerationsGet)
			r.Delete("/generations/{id}", app.GenerationsDelete)
			r.Post("/estimates", app.GenerationsEstimate)
		})
		r.Route("/keys", func(r chi.Router) {
			r.Post("/", app.KeysAdd)
			r.Get("/", app.KeysList)
			r.Post("/{id}/validate", app.KeysValidate)
			r.Delete("/{id}", app.KeysDelete)
		})
		r.Get("/providers", app.ProvidersList)
		r.Get("/usage/stats", app.UsageStats)
	})

	if opts.VideoDir != "" {
		fs := http.StripPrefix("/videos/", http.FileServer(http.Dir(opts.VideoDir)))
		r.Get("/videos/*", fs.ServeHTTP)
	}

	return r
}
