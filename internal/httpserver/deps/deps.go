package deps

import (
	"time"

	"github.com/MrSnakeDoc/dialcast/internal/cast"
	"github.com/MrSnakeDoc/dialcast/internal/events"
	"github.com/MrSnakeDoc/dialcast/internal/logger"
	"github.com/MrSnakeDoc/dialcast/internal/pairing"
)

type Deps struct {
	Logger             logger.Logger
	TimeNow            func() time.Time  // for testing, defaults to time.Now
	FriendlyName       string            // name shown in the cast target list
	ApplicationURL     string            // externally reachable base URL, ex: "http://192.168.1.10:8009"
	UDN                string            // device uuid (without "uuid:")
	App                *cast.Application // the single DIAL application served
	Pairing            pairing.Code      // TV code checked on launch
	RequirePairingCode bool              // reject launches that carry no valid code
	Events             events.Publisher  // launch/stop notifications, never nil
	AllowedCIDRS       []string          // IPs allowed to reach the DIAL routes (empty = everyone)
	TrustProxy         bool              // true if running behind a trusted reverse proxy
	LaunchBurst        int               // per-client launch burst (0 = no limit)
	LaunchRefillPerMin int               // launch tokens regained per minute
}

func (d Deps) Now() time.Time {
	if d.TimeNow != nil {
		return d.TimeNow()
	}
	return time.Now()
}
