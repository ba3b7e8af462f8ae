package api

import (
	"net/http"

	"github.com/balu-dk/e3dc-gateway/internal/api/handlers"
	"github.com/balu-dk/e3dc-gateway/internal/api/middleware"
	"github.com/balu-dk/e3dc-gateway/internal/e3dc"
	"github.com/balu-dk/e3dc-gateway/internal/metrics"
	"github.com/balu-dk/e3dc-gateway/internal/service"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// Realm is announced in the Basic auth challenge
const Realm = "e3dc-gateway"

// Options configures the API server
type Options struct {
	Gateway  *service.Gateway
	Verifier middleware.Verifier

	// Metrics and MetricsHandler are optional.
	Metrics        *metrics.AppMetrics
	MetricsHandler http.Handler

	// LegacyStatusCodes keeps 501 for validation and refused device operations.
	LegacyStatusCodes bool
	// AllowedOrigins enables CORS for the given origins when non-empty.
	AllowedOrigins []string
}

// API handles the API server
type API struct {
	router  chi.Router
	handler *handlers.Handler
}

// NewAPI creates a new API server
func NewAPI(opts Options) *API {
	router := chi.NewRouter()
	handler := handlers.NewHandler(opts.Gateway, handlers.ErrorReporter{Legacy: opts.LegacyStatusCodes})

	// Setup middleware
	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.Logger)
	router.Use(chimiddleware.Recoverer)
	if opts.Metrics != nil {
		router.Use(middleware.Metrics(opts.Metrics, router))
	}

	// CORS configuration
	if len(opts.AllowedOrigins) > 0 {
		router.Use(cors.Handler(cors.Options{
			AllowedOrigins:   opts.AllowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	// Every route, including unknown ones, sits behind the admin credential.
	router.Use(middleware.BasicAuth(Realm, opts.Verifier))
	router.Use(chimiddleware.SetHeader("Content-Type", "application/json"))

	router.NotFound(handler.NotFound)
	router.MethodNotAllowed(handler.MethodNotAllowed)

	// Setup routes
	router.Route("/api", func(r chi.Router) {
		// Telemetry and current settings
		for _, resource := range e3dc.ReadResources() {
			r.Get("/"+string(resource), handler.Read(resource))
		}

		// Mutations
		r.Post("/"+string(e3dc.ResourcePowerSettings), handler.UpdatePowerSettings)
		r.Post("/"+string(e3dc.ResourceIdlePeriods), handler.UpdateIdlePeriods)

		// History
		r.Get("/db_data", handler.GetDBData)
	})

	router.Get("/healthz", handler.Health)
	if opts.MetricsHandler != nil {
		router.Method(http.MethodGet, "/metrics", opts.MetricsHandler)
	}

	return &API{
		router:  router,
		handler: handler,
	}
}

// ServeHTTP satisfies the http.Handler interface
func (a *API) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.router.ServeHTTP(w, r)
}
