package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/MrSnakeDoc/dialcast/internal/httpserver/deps"
)

type pairingResponse struct {
	Code      string `json:"code"`
	Formatted string `json:"formatted"`
}

func PairingCode(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "no-store")
		w.WriteHeader(http.StatusOK)

		_ = json.NewEncoder(w).Encode(pairingResponse{
			Code:      d.Pairing.Normalized(),
			Formatted: d.Pairing.Formatted(),
		})
	}
}
