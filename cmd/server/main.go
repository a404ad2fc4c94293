package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/Rrens/chatwidget/internal/api"
	"github.com/Rrens/chatwidget/internal/api/handler"
	customMiddleware "github.com/Rrens/chatwidget/internal/api/middleware"
	"github.com/Rrens/chatwidget/internal/config"
	"github.com/Rrens/chatwidget/internal/domain"
	"github.com/Rrens/chatwidget/internal/llm"
	"github.com/Rrens/chatwidget/internal/llm/anthropic"
	"github.com/Rrens/chatwidget/internal/llm/gemini"
	"github.com/Rrens/chatwidget/internal/llm/ollama"
	"github.com/Rrens/chatwidget/internal/llm/openai"
	"github.com/Rrens/chatwidget/internal/repository/chatapi"
	"github.com/Rrens/chatwidget/internal/repository/memory"
	"github.com/Rrens/chatwidget/internal/repository/postgres"
	"github.com/Rrens/chatwidget/internal/repository/redis"
	"github.com/Rrens/chatwidget/internal/service"
	"github.com/Rrens/chatwidget/internal/widget"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	// Load .env file - try multiple locations
	for _, p := range []string{".env", "../.env", "../../.env"} {
		if err := godotenv.Load(p); err == nil {
			break
		}
	}

	// Setup logger
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if os.Getenv("ENV") != "production" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	if level, err := zerolog.ParseLevel(cfg.Logging.Level); err == nil {
		zerolog.SetGlobalLevel(level)
	}

	log.Info().
		Str("host", cfg.Server.Host).
		Int("port", cfg.Server.Port).
		Msg("Starting chat widget server")

	ctx := context.Background()
	var checks []handler.ReadinessCheck

	// Initialize Redis
	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient, err = redis.NewClient(ctx, cfg.Redis)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to Redis")
		}
		defer redisClient.Close()
		checks = append(checks, handler.ReadinessCheck{Name: "redis", Ping: redisClient.Ping})
	}

	// Initialize history store
	var store domain.HistoryStore
	switch backend := cfg.Persistence.ResolvedBackend(); backend {
	case "api":
		apiStore := chatapi.NewStore(cfg.Persistence.BaseURL, cfg.Persistence.Timeout)
		checks = append(checks, handler.ReadinessCheck{Name: "history_api", Ping: apiStore.Ping})
		store = apiStore
	case "postgres":
		if cfg.Database.AutoMigrate {
			if err := postgres.RunMigrations(cfg.Database.DSN()); err != nil {
				log.Fatal().Err(err).Msg("Failed to migrate database")
			}
		}
		db, err := postgres.NewDB(ctx, cfg.Database)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to database")
		}
		defer db.Close()
		checks = append(checks, handler.ReadinessCheck{Name: "postgres", Ping: db.Ping})
		store = postgres.NewHistoryStore(db.Pool)
	case "redis":
		if redisClient == nil {
			log.Fatal().Msg("Redis history backend requires redis.enabled")
		}
		store = redis.NewHistoryStore(redisClient, cfg.Persistence.TTL)
	case "memory":
		log.Warn().Msg("No persistence backend configured, chat history is kept in memory")
		store = memory.NewStore()
	default:
		log.Fatal().Str("backend", backend).Msg("Unknown persistence backend")
	}

	// Initialize LLM Router with providers
	llmRouter := newLLMRouter(cfg.LLM)

	// Initialize rate limiter
	var limiter customMiddleware.Limiter
	if redisClient != nil {
		limiter = redis.NewRateLimiter(redisClient, cfg.RateLimit.RequestsPerMinute, cfg.RateLimit.Burst)
	} else {
		local := customMiddleware.NewLocalLimiter(cfg.RateLimit.RequestsPerMinute, cfg.RateLimit.Burst)
		defer local.Shutdown()
		limiter = local
	}

	// Initialize services
	widgets := service.NewWidgetService(
		store,
		llmRouter,
		widget.ScriptFromConfig(cfg.Script),
		widget.OptionsFromConfig(cfg.Widget),
		cfg.Sessions.EvictAfter,
	)

	// Initialize router
	router := api.NewRouter(cfg, api.Dependencies{
		Widgets:     widgets,
		LLM:         llmRouter,
		RateLimiter: limiter,
		Checks:      checks,
	})

	// Create HTTP server
	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start server in goroutine
	go func() {
		log.Info().Msgf("Server listening on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	widgets.Shutdown()

	log.Info().Msg("Server stopped")
}

func newLLMRouter(cfg config.LLMConfig) *llm.Router {
	llmRouter := llm.NewRouter(cfg.DefaultProvider)

	log.Info().Msgf("Initializing LLM providers. Default: %s", cfg.DefaultProvider)

	if cfg.Gemini.APIKey != "" {
		llmRouter.RegisterProvider(gemini.NewProvider(cfg.Gemini))
	} else {
		log.Warn().Msg("Gemini API Key is empty, skipping registration")
	}
	if cfg.OpenAI.APIKey != "" {
		llmRouter.RegisterProvider(openai.NewProvider(cfg.OpenAI.APIKey, cfg.OpenAI.Model, cfg.OpenAI.BaseURL))
	}
	if cfg.Anthropic.APIKey != "" {
		llmRouter.RegisterProvider(anthropic.NewProvider(cfg.Anthropic.APIKey, cfg.Anthropic.Model))
	}
	if cfg.Ollama.Host != "" {
		log.Info().Str("host", cfg.Ollama.Host).Msg("Registering Ollama provider")
		llmRouter.RegisterProvider(ollama.NewProvider(cfg.Ollama.Host, cfg.Ollama.DefaultModel))
	}

	if _, err := llmRouter.GetProvider(""); err != nil {
		log.Warn().Err(err).Msg("Default LLM provider unavailable, every reply will be the error message")
	}

	return llmRouter
}
