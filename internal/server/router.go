package server

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/arabot777/idea2product-guard/internal/guard"
	"github.com/arabot777/idea2product-guard/internal/handlers"
	mw2 "github.com/arabot777/idea2product-guard/internal/mw"
	"github.com/arabot777/idea2product-guard/internal/rulestore"
	"github.com/arabot777/idea2product-guard/internal/version"
)

type Options struct {
	EnableCORS bool
	DevNoStore bool
}

type Deps struct {
	Store    *rulestore.Store
	Sessions guard.SessionProvider
	Guard    *guard.Guard
}

// BuildRouter wires the guard service: the decision endpoint, the
// operator surface, and health/version.
func BuildRouter(d Deps, opts Options, mw ...func(http.Handler) http.Handler) http.Handler {
	g := d.Guard
	if g == nil {
		g = guard.New(d.Store, d.Sessions)
	}

	r := chi.NewRouter()
	if opts.DevNoStore {
		r.Use(mw2.NoStore)
	}

	// baseline
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	if opts.EnableCORS {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   []string{"*"},
			AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders:   []string{"Content-Type", "Authorization"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}
	for _, m := range mw {
		r.Use(m)
	}

	// tracing + logger
	r.Use(mw2.Trace())
	r.Use(mw2.Logger(mw2.LogOpts{
		SkipPaths:     []string{"/healthz", "/version"},
		RedactHeaders: []string{"Authorization"},
	}))

	check := handlers.NewCheckHandler(g)
	rules := handlers.NewRulesHandler(d.Store)

	r.Get("/healthz", healthCheckHandler)
	r.Get("/version", handlers.Version)

	r.Post("/v1/check", check.ServeHTTP)

	// The admin surface is itself gated through the engine.
	r.Route("/admin", func(ar chi.Router) {
		ar.Use(g.Component("admin.rules"))
		ar.Get("/rules", rules.List)
		ar.Post("/rules/reload", rules.Reload)
	})

	return r
}

func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"status":  "healthy",
		"version": version.Version,
	})
}
