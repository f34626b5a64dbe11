package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/dialcast/internal/events"
	"github.com/MrSnakeDoc/dialcast/internal/httpserver/deps"
	"github.com/MrSnakeDoc/dialcast/internal/logger"
	"github.com/MrSnakeDoc/dialcast/internal/playback"
)

const (
	maxLaunchBody  = 64 << 10
	publishTimeout = 500 * time.Millisecond

	msgPairingRejected = "Invalid or missing pairing code"
)

// AppStatus reports the DIAL application state.
func AppStatus(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !knownApp(w, r, d) {
			return
		}

		status, err := d.App.StatusXML(d.ApplicationURL)
		if err != nil {
			d.Logger.Error("failed to render app status", logger.Error(err))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}
		writeBody(w, http.StatusOK, "application/xml", status, d)
	}
}

// LaunchApp checks the pairing code, launches the application and points the
// client at the new instance through the Location header.
func LaunchApp(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !knownApp(w, r, d) {
			return
		}

		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxLaunchBody))
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				http.Error(w, http.StatusText(http.StatusRequestEntityTooLarge), http.StatusRequestEntityTooLarge)
				return
			}
			http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
			return
		}

		params := ParseLaunchParams(body, r.Header.Get("Content-Type"))

		candidate := pairingCandidate(params)
		if (d.RequirePairingCode || candidate != "") && !d.Pairing.Matches(candidate) {
			d.Logger.Warn("launch rejected",
				logger.String("app", d.App.Name()),
				logger.String("remote_ip", r.RemoteAddr),
				logger.Bool("code_supplied", candidate != ""))
			http.Error(w, msgPairingRejected, http.StatusForbidden)
			return
		}

		// playback keeps going if the client hangs up; each backend call has its own timeout
		launchID := d.App.Launch(context.WithoutCancel(r.Context()), params)

		d.Logger.Info("app launched",
			logger.String("app", d.App.Name()),
			logger.String("launch_id", launchID),
			logger.String("video_id", playback.VideoID(params)))

		publish(r.Context(), d, events.Event{
			Type:      events.TypeLaunch,
			App:       d.App.Name(),
			LaunchID:  launchID,
			VideoID:   playback.VideoID(params),
			Timestamp: d.Now(),
		})

		w.Header().Set("Location", d.App.RunPath(d.ApplicationURL, launchID))
		w.Header().Set("Content-Length", "0")
		w.WriteHeader(http.StatusCreated)
	}
}

// StopApp stops the application. The last launch stays visible in the status.
func StopApp(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !knownApp(w, r, d) {
			return
		}

		d.App.Stop()
		d.Logger.Info("app stopped", logger.String("app", d.App.Name()))

		publish(r.Context(), d, events.Event{
			Type:      events.TypeStop,
			App:       d.App.Name(),
			Timestamp: d.Now(),
		})

		writeBody(w, http.StatusOK, "text/plain; charset=utf-8", nil, d)
	}
}

func knownApp(w http.ResponseWriter, r *http.Request, d deps.Deps) bool {
	if chi.URLParam(r, "appName") != d.App.Name() {
		http.NotFound(w, r)
		return false
	}
	return true
}

// publish is best-effort: listeners are told about state changes but never hold up the response.
func publish(ctx context.Context, d deps.Deps, ev events.Event) {
	if d.Events == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	if err := d.Events.Publish(ctx, ev); err != nil {
		d.Logger.Warn("failed to publish event",
			logger.String("type", string(ev.Type)),
			logger.Error(err))
	}
}
