package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/dialcast/internal/httpserver/deps"
	"github.com/MrSnakeDoc/dialcast/internal/httpserver/mw"
)

type Registrar func(r chi.Router, d deps.Deps)

var registry []Registrar

// Register adds a registrar; every file in this package registers itself from init().
func Register(reg Registrar) {
	registry = append(registry, reg)
}

// RegisterAll mounts every registered route. The LAN guard is applied to all of them.
func RegisterAll(r chi.Router, d deps.Deps) {
	guarded := r.With(mw.AllowOnlyCIDRS(d.AllowedCIDRS, d.TrustProxy, d.Logger))
	for _, reg := range registry {
		reg(guarded, d)
	}
}
