package cast

import (
	"context"
	"encoding/xml"
	"maps"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/MrSnakeDoc/dialcast/internal/playback"
)

// State of a DIAL application.
type State string

const (
	StateStopped State = "stopped"
	StateRunning State = "running"
)

// LaunchRecord describes the most recent launch request.
type LaunchRecord struct {
	ID         string
	Timestamp  time.Time
	Parameters map[string]string
}

// Application is the in-memory state of a single DIAL application.
// Handlers call it concurrently, so every field is guarded by mu.
type Application struct {
	name string
	sink playback.Sink
	now  func() time.Time

	mu         sync.Mutex
	running    bool
	lastLaunch *LaunchRecord
}

// NewApplication returns a stopped application that forwards launches to sink.
func NewApplication(name string, sink playback.Sink) *Application {
	return &Application{
		name: name,
		sink: sink,
		now:  time.Now,
	}
}

func (a *Application) Name() string { return a.name }

// Launch marks the application running, records params as the latest launch
// and hands them to the playback sink. It returns the new launch id.
func (a *Application) Launch(ctx context.Context, params map[string]string) string {
	record := &LaunchRecord{
		ID:         uuid.NewString(),
		Timestamp:  a.now(),
		Parameters: maps.Clone(params),
	}
	if record.Parameters == nil {
		record.Parameters = map[string]string{}
	}

	a.mu.Lock()
	a.running = true
	a.lastLaunch = record
	a.mu.Unlock()

	if a.sink != nil {
		a.sink.HandleLaunch(ctx, maps.Clone(record.Parameters))
	}
	return record.ID
}

// Stop marks the application stopped. The last launch is kept for status reports.
func (a *Application) Stop() {
	a.mu.Lock()
	a.running = false
	a.mu.Unlock()
}

// State returns the current state.
func (a *Application) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return stateOf(a.running)
}

// LastLaunch returns a copy of the latest launch record, if any.
func (a *Application) LastLaunch() (LaunchRecord, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.lastLaunch == nil {
		return LaunchRecord{}, false
	}
	rec := *a.lastLaunch
	rec.Parameters = maps.Clone(rec.Parameters)
	return rec, true
}

// RunPath returns the DIAL instance resource for launchID.
func (a *Application) RunPath(baseURL, launchID string) string {
	return baseURL + "/apps/" + a.name + "/" + launchID
}

type statusOptions struct {
	AllowStop bool `xml:"allowStop,attr"`
}

type statusLink struct {
	Rel  string `xml:"rel,attr"`
	Href string `xml:"href,attr"`
}

type statusDocument struct {
	XMLName xml.Name      `xml:"urn:dial-multiscreen-org:schemas:dial service"`
	Name    string        `xml:"name"`
	Options statusOptions `xml:"options"`
	State   State         `xml:"state"`
	Link    *statusLink   `xml:"link,omitempty"`
}

// StatusXML renders the DIAL application status fragment. The run link is only
// present once a launch happened.
func (a *Application) StatusXML(baseURL string) ([]byte, error) {
	a.mu.Lock()
	doc := statusDocument{
		Name:    a.name,
		Options: statusOptions{AllowStop: true},
		State:   stateOf(a.running),
	}
	if a.lastLaunch != nil {
		doc.Link = &statusLink{Rel: "run", Href: a.RunPath(baseURL, a.lastLaunch.ID)}
	}
	a.mu.Unlock()

	return xml.Marshal(doc)
}

func stateOf(running bool) State {
	if running {
		return StateRunning
	}
	return StateStopped
}
