package ssdp

import (
	"fmt"
	"strings"
)

const (
	// SearchTarget is the DIAL service type clients search for.
	SearchTarget = "urn:dial-multiscreen-org:service:dial:1"
	// DefaultPort is the well-known SSDP port.
	DefaultPort = 1900
	// MulticastAddr is the SSDP IPv4 group.
	MulticastAddr = "239.255.255.250"

	searchMethod = "M-SEARCH"
	maxAge       = 1800
)

// IsDIALSearch reports whether payload is an M-SEARCH for the DIAL service.
// Bytes that are not valid UTF-8 are dropped before matching.
func IsDIALSearch(payload []byte) bool {
	msg := strings.ToValidUTF8(string(payload), "")
	return strings.Contains(msg, searchMethod) && strings.Contains(msg, SearchTarget)
}

// USN builds the unique service name advertised for udn.
func USN(udn string) string {
	return "uuid:" + udn + "::" + SearchTarget
}

// BuildResponse renders the unicast search response.
func BuildResponse(location, udn, server string) []byte {
	var b strings.Builder
	b.WriteString("HTTP/1.1 200 OK\r\n")
	fmt.Fprintf(&b, "CACHE-CONTROL: max-age=%d\r\n", maxAge)
	b.WriteString("EXT:\r\n")
	fmt.Fprintf(&b, "LOCATION: %s\r\n", location)
	fmt.Fprintf(&b, "SERVER: %s\r\n", server)
	fmt.Fprintf(&b, "ST: %s\r\n", SearchTarget)
	fmt.Fprintf(&b, "USN: %s\r\n", USN(udn))
	b.WriteString("\r\n")
	return []byte(b.String())
}
