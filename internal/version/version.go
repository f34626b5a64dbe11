package version

import (
	"runtime"
)

// Set at build time with -ldflags "-X github.com/MrSnakeDoc/dialcast/internal/version.Version=...".
var (
	Version   = "dev"             // ex: v0.1.0
	Commit    = "none"            // ex: abcd123
	BuildDate = "unknown"         // ex: 2025-08-11T18:42:00Z
	GoVersion = runtime.Version() // go version
)

// SSDPServer is the SERVER header sent in discovery replies.
func SSDPServer() string {
	return "Linux/1.0 UPnP/1.0 dialcast/" + Version
}
