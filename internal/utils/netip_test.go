package utils

import (
	"net/http/httptest"
	"testing"
)

func TestClientIP(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		xff        string
		trustProxy bool
		expected   string
	}{
		{name: "remote addr", remoteAddr: "192.168.1.20:5555", expected: "192.168.1.20"},
		{name: "xff ignored without trust", remoteAddr: "10.0.0.1:1", xff: "1.2.3.4", expected: "10.0.0.1"},
		{name: "xff first entry with trust", remoteAddr: "10.0.0.1:1", xff: "1.2.3.4, 5.6.7.8", trustProxy: true, expected: "1.2.3.4"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/", nil)
			r.RemoteAddr = tt.remoteAddr
			if tt.xff != "" {
				r.Header.Set("X-Forwarded-For", tt.xff)
			}
			if got := ClientIP(r, tt.trustProxy); got != tt.expected {
				t.Errorf("ClientIP() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestIPMatcher(t *testing.T) {
	m := NewIPMatcher([]string{"192.168.1.0/24", "10.0.0.7", "junk"})

	if m.IsEmpty() {
		t.Fatal("matcher should not be empty")
	}
	for ip, want := range map[string]bool{
		"192.168.1.42": true,
		"10.0.0.7":     true,
		"10.0.0.8":     false,
		"not-an-ip":    false,
	} {
		if got := m.Allow(ip); got != want {
			t.Errorf("Allow(%q) = %v, want %v", ip, got, want)
		}
	}
}

func TestAdvertiseHost(t *testing.T) {
	if got := AdvertiseHost("tv.lan", "0.0.0.0"); got != "tv.lan" {
		t.Errorf("override should win, got %q", got)
	}
	if got := AdvertiseHost("", "127.0.0.1"); got != "127.0.0.1" {
		t.Errorf("concrete bind host should be kept, got %q", got)
	}
	if got := AdvertiseHost("", "0.0.0.0"); IsUnspecifiedHost(got) {
		t.Errorf("wildcard bind should resolve to a concrete host, got %q", got)
	}
}

func TestIsUnspecifiedHost(t *testing.T) {
	for host, want := range map[string]bool{
		"":          true,
		"0.0.0.0":   true,
		"::":        true,
		"127.0.0.1": false,
		"localhost": false,
	} {
		if got := IsUnspecifiedHost(host); got != want {
			t.Errorf("IsUnspecifiedHost(%q) = %v, want %v", host, got, want)
		}
	}
}
