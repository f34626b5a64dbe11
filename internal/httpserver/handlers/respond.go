package handlers

import (
	"net/http"
	"strconv"

	"github.com/MrSnakeDoc/dialcast/internal/httpserver/deps"
	"github.com/MrSnakeDoc/dialcast/internal/logger"
)

func writeBody(w http.ResponseWriter, status int, contentType string, body []byte, d deps.Deps) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	w.WriteHeader(status)
	if len(body) == 0 {
		return
	}
	if _, err := w.Write(body); err != nil {
		d.Logger.Debug("failed to write response", logger.Error(err))
	}
}
