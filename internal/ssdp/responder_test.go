package ssdp

import (
	"context"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/MrSnakeDoc/dialcast/internal/logger"
)

const testLocation = "http://127.0.0.1:8009/ssdp/device-desc.xml"

func startResponder(t *testing.T) (*Responder, *net.UDPAddr) {
	t.Helper()
	r := NewResponder(Config{
		Port:     0,
		Location: testLocation,
		UDN:      "1234-abcd",
		Server:   "Linux/1.0 UPnP/1.0 dialcast/test",
	}, logger.Nop())

	if err := r.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	t.Cleanup(r.Stop)

	port := r.Addr().(*net.UDPAddr).Port
	return r, &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: port}
}

func query(t *testing.T, to *net.UDPAddr, payload string, wait time.Duration) (string, bool) {
	t.Helper()
	client, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		t.Fatalf("failed to open client socket: %v", err)
	}
	defer client.Close()

	if _, err := client.WriteToUDP([]byte(payload), to); err != nil {
		t.Fatalf("failed to send query: %v", err)
	}
	_ = client.SetReadDeadline(time.Now().Add(wait))

	buf := make([]byte, 2048)
	n, _, err := client.ReadFromUDP(buf)
	if err != nil {
		return "", false
	}
	return string(buf[:n]), true
}

func TestResponderAnswersDIALSearch(t *testing.T) {
	_, addr := startResponder(t)

	search := "M-SEARCH * HTTP/1.1\r\n" +
		"HOST: 239.255.255.250:1900\r\n" +
		"MAN: \"ssdp:discover\"\r\n" +
		"MX: 1\r\n" +
		"ST: " + SearchTarget + "\r\n\r\n"

	reply, ok := query(t, addr, search, 2*time.Second)
	if !ok {
		t.Fatal("no reply to a DIAL M-SEARCH")
	}
	if !strings.HasPrefix(reply, "HTTP/1.1 200 OK\r\n") {
		t.Errorf("reply should start with a 200 status line, got %q", reply)
	}
	for _, want := range []string{
		"LOCATION: " + testLocation + "\r\n",
		"ST: " + SearchTarget + "\r\n",
		"USN: uuid:1234-abcd::" + SearchTarget + "\r\n",
		"CACHE-CONTROL: max-age=1800\r\n",
	} {
		if !strings.Contains(reply, want) {
			t.Errorf("reply missing %q:\n%s", want, reply)
		}
	}
}

func TestResponderIgnoresOtherTraffic(t *testing.T) {
	_, addr := startResponder(t)

	tests := []struct {
		name    string
		payload string
	}{
		{name: "other search target", payload: "M-SEARCH * HTTP/1.1\r\nST: ssdp:all\r\n\r\n"},
		{name: "notify", payload: "NOTIFY * HTTP/1.1\r\nNT: " + SearchTarget + "\r\n\r\n"},
		{name: "garbage", payload: "\xff\xfe\x00garbage"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if reply, ok := query(t, addr, tt.payload, 300*time.Millisecond); ok {
				t.Errorf("unexpected reply %q", reply)
			}
		})
	}

	// the loop must still be alive after junk
	if _, ok := query(t, addr, "M-SEARCH\r\nST: "+SearchTarget+"\r\n", 2*time.Second); !ok {
		t.Error("responder stopped answering after ignored datagrams")
	}
}

func TestResponderStop(t *testing.T) {
	r := NewResponder(Config{Port: 0, Location: testLocation, UDN: "u"}, logger.Nop())

	// never started
	r.Stop()

	if err := r.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := r.Start(context.Background()); err == nil {
		t.Error("second Start() should fail")
	}

	done := make(chan struct{})
	go func() {
		r.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop() did not return")
	}

	if r.Addr() != nil {
		t.Error("Addr() should be nil after Stop()")
	}
	r.Stop()
}

func TestIsDIALSearch(t *testing.T) {
	tests := []struct {
		name     string
		payload  string
		expected bool
	}{
		{name: "dial search", payload: "M-SEARCH * HTTP/1.1\r\nST: " + SearchTarget, expected: true},
		{name: "invalid utf8 inside token", payload: "M-SE\xffARCH " + SearchTarget, expected: true},
		{name: "missing method", payload: "ST: " + SearchTarget, expected: false},
		{name: "missing target", payload: "M-SEARCH * HTTP/1.1\r\nST: ssdp:all", expected: false},
		{name: "empty", payload: "", expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsDIALSearch([]byte(tt.payload)); got != tt.expected {
				t.Errorf("IsDIALSearch() = %v, want %v", got, tt.expected)
			}
		})
	}
}
