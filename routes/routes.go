package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/upb/math-agent/app"
	"github.com/upb/math-agent/handlers"
	"github.com/upb/math-agent/middleware"
)

// SetupRoutes configures all application routes and middleware
func SetupRoutes(deps *app.Dependencies) http.Handler {
	cfg := deps.Config
	r := chi.NewRouter()

	// Core middleware
	r.Use(middleware.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(chimw.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.Server.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", middleware.RequestIDHeader, "Mcp-Session-Id"},
		ExposedHeaders:   []string{middleware.RequestIDHeader, "Retry-After", "Mcp-Session-Id"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	metricsEnabled := deps.MetricsRegistry != nil
	mcpEnabled := cfg.Server.MCPEnabled && deps.SearchServer != nil

	r.Get("/", handlers.InfoHandler(cfg.Environment, metricsEnabled, mcpEnabled))

	if metricsEnabled {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(deps.MetricsRegistry, promhttp.HandlerOpts{}))
	}

	// Streamable MCP sessions outlive a single request, so /mcp is mounted outside the timeout.
	if mcpEnabled {
		r.Mount("/mcp", deps.SearchServer.HTTPHandler())
	}

	solveHandler := handlers.NewSolveHandler(deps.Router, deps.Logger)
	feedbackHandler := handlers.NewFeedbackHandler(deps.Feedback, deps.Logger)
	healthHandler := handlers.NewHealthHandler(deps.Retriever, deps.StoreHealth, handlers.HealthInfo{
		LLMConfigured:    cfg.LLM.APIKey != "",
		SearchConfigured: deps.SearchConfigured(),
		FeedbackStore:    deps.Repos.Kind,
	}, deps.Logger).
		WithProviders(deps.Providers).
		WithFeedbackQueue(deps.Feedback)

	r.Route("/api", func(r chi.Router) {
		r.Use(chimw.Timeout(cfg.Routing.RequestTimeout()))

		r.Get("/health", healthHandler.HandleHealth)
		r.Get("/health/ready", healthHandler.HandleReadiness)

		r.Group(func(r chi.Router) {
			if deps.RateLimiter != nil {
				r.Use(middleware.RateLimit(deps.RateLimiter, deps.Logger))
			}
			r.Post("/solve", solveHandler.HandleSolve)
		})

		r.Route("/feedback", func(r chi.Router) {
			r.Post("/", feedbackHandler.HandleSubmit)
			r.Get("/stats", feedbackHandler.HandleStats)
			r.Get("/recent", feedbackHandler.HandleRecent)
		})
	})

	r.NotFound(handlers.NotFound)

	return r
}
