package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/dialcast/internal/httpserver/deps"
	"github.com/MrSnakeDoc/dialcast/internal/httpserver/handlers"
	"github.com/MrSnakeDoc/dialcast/internal/httpserver/mw"
)

func init() { Register(registerApps) }

func registerApps(r chi.Router, d deps.Deps) {
	launch := r
	if d.LaunchBurst > 0 {
		launch = r.With(mw.RateLimit(mw.RateLimitConfig{
			Burst:             d.LaunchBurst,
			RefillPerIPPerMin: d.LaunchRefillPerMin,
			MaxEntries:        4096,
			TrustProxy:        d.TrustProxy,
		}))
	}

	r.Get("/apps/{appName}", handlers.AppStatus(d))
	launch.Post("/apps/{appName}", handlers.LaunchApp(d))
	r.Delete("/apps/{appName}", handlers.StopApp(d))
}
