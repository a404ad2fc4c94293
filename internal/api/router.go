package api

import (
	"net/http"

	"github.com/Rrens/chatwidget/internal/api/handler"
	customMiddleware "github.com/Rrens/chatwidget/internal/api/middleware"
	"github.com/Rrens/chatwidget/internal/config"
	"github.com/Rrens/chatwidget/internal/llm"
	"github.com/Rrens/chatwidget/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Dependencies are the services the HTTP layer routes to
type Dependencies struct {
	Widgets     *service.WidgetService
	LLM         *llm.Router
	RateLimiter customMiddleware.Limiter
	Checks      []handler.ReadinessCheck
}

// NewRouter creates and configures the HTTP router
func NewRouter(cfg *config.Config, deps Dependencies) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(customMiddleware.Logger)
	r.Use(middleware.Recoverer)

	// CORS
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.Server.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		ExposedHeaders:   []string{"X-Request-ID", "X-RateLimit-Remaining", "X-RateLimit-Reset"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	if cfg.Metrics.Enabled {
		r.Handle(cfg.Metrics.Path, promhttp.Handler())
	}

	widgetHandler := handler.NewWidgetHandler(deps.Widgets)
	streamHandler := handler.NewStreamHandler(deps.Widgets, nil)

	r.Route("/api/v1", func(r chi.Router) {
		// Health check
		r.Get("/health", handler.HealthCheck)
		r.Get("/ready", handler.ReadyCheck(deps.Checks...))
		r.Get("/llm-providers", handler.ListLLMProviders(deps.LLM))

		r.Route("/widgets", func(r chi.Router) {
			// websocket streams are long lived, keep them out of the request timeout
			r.Get("/{widgetID}/ws", streamHandler.Connect)

			r.Group(func(r chi.Router) {
				r.Use(middleware.Timeout(cfg.Server.MiddlewareTimeout))
				if deps.RateLimiter != nil {
					r.Use(customMiddleware.NewRateLimitMiddleware(deps.RateLimiter).Limit)
				}

				r.Post("/", widgetHandler.Create)

				r.Route("/{widgetID}", func(r chi.Router) {
					r.Get("/", widgetHandler.Get)
					r.Delete("/", widgetHandler.Delete)
					r.Get("/events", widgetHandler.Events)
					r.Post("/open", widgetHandler.Open)
					r.Post("/messages", widgetHandler.SendMessage)
					r.Post("/quick-replies", widgetHandler.SelectQuickReply)
					r.Post("/clear", widgetHandler.Clear)
					r.Post("/end", widgetHandler.End)
				})
			})
		})
	})

	return r
}
