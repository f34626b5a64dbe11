package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/dialcast/internal/httpserver/deps"
	"github.com/MrSnakeDoc/dialcast/internal/httpserver/handlers"
)

func init() { Register(registerDevice) }

func registerDevice(r chi.Router, d deps.Deps) {
	r.Get(handlers.DescriptorPath, handlers.DeviceDescriptor(d))
}
