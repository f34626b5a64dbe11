package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/MrSnakeDoc/dialcast/internal/httpserver/deps"
)

const (
	DescriptorPath = "/ssdp/device-desc.xml"
	PairingPath    = "/pairing/code"
)

// Root prints a short plaintext guide, including the TV code for manual linking.
func Root(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		appName := d.App.Name()
		body := strings.Join([]string{
			fmt.Sprintf("DIAL Cast Receiver (%s)", d.FriendlyName),
			fmt.Sprintf("This endpoint serves the %s DIAL namespace.", appName),
			"SSDP descriptor: " + DescriptorPath,
			"App status: /apps/" + appName,
			"TV code (use Link with TV code if discovery fails):",
			"  " + d.Pairing.Formatted(),
			"Pairing code API: " + PairingPath,
		}, "\n")

		writeBody(w, http.StatusOK, "text/plain; charset=utf-8", []byte(body), d)
	}
}
