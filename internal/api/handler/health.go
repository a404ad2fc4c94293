package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/Rrens/chatwidget/internal/api/response"
	"github.com/Rrens/chatwidget/internal/llm"
)

// ReadinessCheck pings one named dependency
type ReadinessCheck struct {
	Name string
	Ping func(ctx context.Context) error
}

// HealthCheck returns a simple health check response
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	response.OK(w, map[string]string{
		"status": "ok",
	})
}

// ReadyCheck returns readiness status including dependency connectivity
func ReadyCheck(checks ...ReadinessCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()

		failed := map[string]string{}
		for _, c := range checks {
			if err := c.Ping(ctx); err != nil {
				failed[c.Name] = err.Error()
			}
		}

		if len(failed) > 0 {
			response.Error(w, http.StatusServiceUnavailable, map[string]any{
				"status": "not ready",
				"checks": failed,
			})
			return
		}

		response.OK(w, map[string]string{
			"status": "ready",
		})
	}
}

// ListLLMProviders returns the registered generation providers
func ListLLMProviders(router *llm.Router) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		response.OK(w, map[string]any{
			"providers":        router.GetProvidersInfo(),
			"default_provider": router.DefaultProvider(),
		})
	}
}
