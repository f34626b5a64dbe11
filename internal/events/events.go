package events

import (
	"context"
	"time"
)

// Type of a receiver event.
type Type string

const (
	TypeLaunch Type = "launch"
	TypeStop   Type = "stop"
)

// Event is what listeners receive when the cast application changes state.
type Event struct {
	Type      Type      `json:"type"`
	App       string    `json:"app"`
	LaunchID  string    `json:"launchId,omitempty"`
	VideoID   string    `json:"videoId,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Publisher fans events out to interested listeners.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
	Close() error
}

// Nop drops every event. Used when no broker is configured.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }
func (Nop) Close() error                         { return nil }
