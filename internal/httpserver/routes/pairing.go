package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/dialcast/internal/httpserver/deps"
	"github.com/MrSnakeDoc/dialcast/internal/httpserver/handlers"
)

func init() { Register(registerPairing) }

func registerPairing(r chi.Router, d deps.Deps) {
	r.Get(handlers.PairingPath, handlers.PairingCode(d))
}
