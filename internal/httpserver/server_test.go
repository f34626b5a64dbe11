package httpserver

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"errors"
	"io"
	"maps"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/MrSnakeDoc/dialcast/internal/cast"
	"github.com/MrSnakeDoc/dialcast/internal/events"
	"github.com/MrSnakeDoc/dialcast/internal/httpserver/deps"
	"github.com/MrSnakeDoc/dialcast/internal/logger"
	"github.com/MrSnakeDoc/dialcast/internal/pairing"
)

const testAppURL = "http://192.168.1.10:8009"

type recordingSink struct {
	mu    sync.Mutex
	calls []map[string]string
}

func (s *recordingSink) HandleLaunch(_ context.Context, params map[string]string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, params)
}

func (s *recordingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, ev events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return p.err
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) types() []events.Type {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]events.Type, 0, len(p.events))
	for _, ev := range p.events {
		out = append(out, ev.Type)
	}
	return out
}

type fixture struct {
	srv  *httptest.Server
	sink *recordingSink
	pub  *recordingPublisher
	app  *cast.Application
}

func newFixture(t *testing.T, mutate func(d *deps.Deps)) *fixture {
	t.Helper()
	sink := &recordingSink{}
	pub := &recordingPublisher{}
	app := cast.NewApplication("YouTube", sink)

	d := deps.Deps{
		Logger:         logger.Nop(),
		FriendlyName:   "Living Room",
		ApplicationURL: testAppURL,
		UDN:            "0f0e0d0c-1111-2222-3333-444455556666",
		App:            app,
		Pairing:        pairing.New("123456789012"),
		Events:         pub,
	}
	if mutate != nil {
		mutate(&d)
	}

	srv := httptest.NewServer(New(d.Logger, d).Handler())
	t.Cleanup(srv.Close)
	return &fixture{srv: srv, sink: sink, pub: pub, app: app}
}

func (f *fixture) do(t *testing.T, method, path, contentType, body string) (*http.Response, string) {
	t.Helper()
	req, err := http.NewRequest(method, f.srv.URL+path, strings.NewReader(body))
	if err != nil {
		t.Fatalf("failed to build request: %v", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s failed: %v", method, path, err)
	}
	defer resp.Body.Close()
	data, _ := io.ReadAll(resp.Body)
	return resp, string(data)
}

func TestRoot(t *testing.T) {
	f := newFixture(t, nil)

	resp, body := f.do(t, http.MethodGet, "/", "", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if !strings.HasPrefix(resp.Header.Get("Content-Type"), "text/plain") {
		t.Errorf("Content-Type = %q, want text/plain", resp.Header.Get("Content-Type"))
	}
	for _, want := range []string{"Living Room", "DIAL namespace", "/ssdp/device-desc.xml", "/apps/YouTube", "123-456-789-012", "/pairing/code"} {
		if !strings.Contains(body, want) {
			t.Errorf("root body missing %q:\n%s", want, body)
		}
	}
}

func TestDeviceDescriptor(t *testing.T) {
	f := newFixture(t, nil)

	resp, body := f.do(t, http.MethodGet, "/ssdp/device-desc.xml", "", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if resp.Header.Get("Content-Type") != "application/xml" {
		t.Errorf("Content-Type = %q, want application/xml", resp.Header.Get("Content-Type"))
	}
	if resp.Header.Get("Application-URL") != testAppURL+"/apps" {
		t.Errorf("Application-URL = %q", resp.Header.Get("Application-URL"))
	}

	var doc deviceDoc
	if err := xml.Unmarshal([]byte(body), &doc); err != nil {
		t.Fatalf("descriptor is not well-formed XML: %v\n%s", err, body)
	}
	if doc.Device.FriendlyName != "Living Room" {
		t.Errorf("friendlyName = %q", doc.Device.FriendlyName)
	}
	if doc.Device.UDN != "uuid:0f0e0d0c-1111-2222-3333-444455556666" {
		t.Errorf("UDN = %q", doc.Device.UDN)
	}
	if doc.URLBase != testAppURL || doc.Device.PresentationURL != testAppURL {
		t.Errorf("base urls = %q / %q, want %q", doc.URLBase, doc.Device.PresentationURL, testAppURL)
	}
	if doc.Device.ServiceType != "urn:dial-multiscreen-org:service:dial:1" {
		t.Errorf("serviceType = %q", doc.Device.ServiceType)
	}
}

type deviceDoc struct {
	URLBase string `xml:"URLBase"`
	Device  struct {
		FriendlyName    string `xml:"friendlyName"`
		UDN             string `xml:"UDN"`
		PresentationURL string `xml:"presentationURL"`
		ServiceType     string `xml:"serviceList>service>serviceType"`
	} `xml:"device"`
}

func TestPairingCodeEndpoint(t *testing.T) {
	f := newFixture(t, nil)

	resp, body := f.do(t, http.MethodGet, "/pairing/code", "", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if resp.Header.Get("Content-Type") != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", resp.Header.Get("Content-Type"))
	}

	var got struct {
		Code      string `json:"code"`
		Formatted string `json:"formatted"`
	}
	if err := json.Unmarshal([]byte(body), &got); err != nil {
		t.Fatalf("invalid json %q: %v", body, err)
	}
	if got.Code != "123456789012" || got.Formatted != "123-456-789-012" {
		t.Errorf("pairing payload = %+v", got)
	}
}

func TestAppLifecycle(t *testing.T) {
	f := newFixture(t, nil)

	resp, body := f.do(t, http.MethodGet, "/apps/YouTube", "", "")
	if resp.StatusCode != http.StatusOK || !strings.Contains(body, "<state>stopped</state>") {
		t.Fatalf("initial status = %d %s", resp.StatusCode, body)
	}
	if strings.Contains(body, "<link") {
		t.Errorf("status should not link an instance before launch: %s", body)
	}

	resp, _ = f.do(t, http.MethodPost, "/apps/YouTube", "", "v=99")
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("launch status = %d, want 201", resp.StatusCode)
	}
	loc := resp.Header.Get("Location")
	prefix := testAppURL + "/apps/YouTube/"
	if !strings.HasPrefix(loc, prefix) || len(loc) == len(prefix) {
		t.Fatalf("Location = %q, want %s<launch id>", loc, prefix)
	}
	launchID := strings.TrimPrefix(loc, prefix)

	rec, ok := f.app.LastLaunch()
	if !ok || rec.ID != launchID || !maps.Equal(rec.Parameters, map[string]string{"v": "99"}) {
		t.Errorf("LastLaunch() = %+v, %v", rec, ok)
	}
	if f.sink.count() != 1 {
		t.Errorf("sink calls = %d, want 1", f.sink.count())
	}

	_, body = f.do(t, http.MethodGet, "/apps/YouTube", "", "")
	if !strings.Contains(body, "<state>running</state>") || !strings.Contains(body, loc) {
		t.Errorf("status after launch = %s", body)
	}

	resp, body = f.do(t, http.MethodDelete, "/apps/YouTube", "", "")
	if resp.StatusCode != http.StatusOK || body != "" {
		t.Errorf("stop = %d %q, want 200 with empty body", resp.StatusCode, body)
	}

	_, body = f.do(t, http.MethodGet, "/apps/YouTube", "", "")
	if !strings.Contains(body, "<state>stopped</state>") || !strings.Contains(body, launchID) {
		t.Errorf("status after stop = %s", body)
	}

	got := f.pub.types()
	if len(got) != 2 || got[0] != events.TypeLaunch || got[1] != events.TypeStop {
		t.Errorf("published events = %v, want [launch stop]", got)
	}
}

func TestPairingPolicy(t *testing.T) {
	tests := []struct {
		name        string
		require     bool
		contentType string
		body        string
		want        int
	}{
		{name: "not required, no code", body: "v=1", want: http.StatusCreated},
		{name: "not required, wrong code still checked", body: "v=1&code=000", want: http.StatusForbidden},
		{name: "not required, right code", body: "v=1&code=123456789012", want: http.StatusCreated},
		{name: "required, no code", require: true, body: "v=1", want: http.StatusForbidden},
		{name: "required, empty body", require: true, body: "", want: http.StatusForbidden},
		{name: "required, json code", require: true, contentType: "application/json", body: `{"v":"1","pairingCode":"1234-567-89012"}`, want: http.StatusCreated},
		{name: "required, form code", require: true, body: "v=1&pairingCode=1234-567-89012", want: http.StatusCreated},
		{name: "required, numeric json code", require: true, contentType: "application/json", body: `{"v":"1","code":123456789012}`, want: http.StatusCreated},
		{name: "required, wrong code", require: true, body: "v=1&pairingCode=1234", want: http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, func(d *deps.Deps) { d.RequirePairingCode = tt.require })

			resp, body := f.do(t, http.MethodPost, "/apps/YouTube", tt.contentType, tt.body)
			if resp.StatusCode != tt.want {
				t.Fatalf("status = %d, want %d (%s)", resp.StatusCode, tt.want, body)
			}

			if tt.want == http.StatusForbidden {
				if !strings.Contains(body, "pairing code") {
					t.Errorf("rejection should explain itself, got %q", body)
				}
				if f.sink.count() != 0 || f.app.State() != cast.StateStopped {
					t.Error("rejected launch must not change state or reach the sink")
				}
				if _, ok := f.app.LastLaunch(); ok {
					t.Error("rejected launch must not be recorded")
				}
			}
		})
	}
}

func TestUnknownRoutesAndApps(t *testing.T) {
	f := newFixture(t, nil)

	tests := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/apps/Netflix"},
		{http.MethodPost, "/apps/Netflix"},
		{http.MethodDelete, "/apps/Netflix"},
		{http.MethodGet, "/apps/YouTube/some-launch-id"},
		{http.MethodGet, "/nope"},
		{http.MethodPut, "/apps/YouTube"},
		{http.MethodPost, "/"},
		{http.MethodDelete, "/pairing/code"},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			resp, _ := f.do(t, tt.method, tt.path, "", "")
			if resp.StatusCode != http.StatusNotFound {
				t.Errorf("status = %d, want 404", resp.StatusCode)
			}
		})
	}

	if f.sink.count() != 0 {
		t.Error("unknown app must not launch anything")
	}
}

func TestPublishFailureDoesNotBreakLaunch(t *testing.T) {
	f := newFixture(t, nil)
	f.pub.err = errors.New("broker down")

	resp, _ := f.do(t, http.MethodPost, "/apps/YouTube", "", "v=1")
	if resp.StatusCode != http.StatusCreated {
		t.Errorf("status = %d, want 201 even when publishing fails", resp.StatusCode)
	}
}

func TestAllowedCIDRS(t *testing.T) {
	f := newFixture(t, func(d *deps.Deps) { d.AllowedCIDRS = []string{"10.99.0.0/16"} })

	resp, _ := f.do(t, http.MethodGet, "/", "", "")
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("status = %d, want 403 for a client outside the allowed ranges", resp.StatusCode)
	}

	open := newFixture(t, func(d *deps.Deps) { d.AllowedCIDRS = []string{"127.0.0.0/8"} })
	resp, _ = open.do(t, http.MethodGet, "/", "", "")
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200 for loopback client", resp.StatusCode)
	}
}

func TestLaunchRateLimit(t *testing.T) {
	f := newFixture(t, func(d *deps.Deps) {
		d.LaunchBurst = 2
		d.LaunchRefillPerMin = 1
	})

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		resp, _ := f.do(t, http.MethodPost, "/apps/YouTube", "", "v=1")
		codes = append(codes, resp.StatusCode)
	}
	if codes[0] != http.StatusCreated || codes[1] != http.StatusCreated || codes[2] != http.StatusTooManyRequests {
		t.Errorf("statuses = %v, want [201 201 429]", codes)
	}

	// reads are not throttled
	resp, _ := f.do(t, http.MethodGet, "/apps/YouTube", "", "")
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status read = %d, want 200", resp.StatusCode)
	}
}
