// Package privacy reduces client-identifying material to coarse,
// non-identifying labels before it is allowed into logs or audit entries.
package privacy

import (
	"fmt"
	"net"
	"strings"

	"github.com/mssola/useragent"
)

// AnonymizeIP truncates an IP address to remove the host-identifying portion.
//
// For IPv4 addresses the last octet is zeroed (e.g. "192.168.1.47" ->
// "192.168.1.0"), masking to a /24 network. For IPv6 the last 80 bits are
// zeroed, keeping only the /48 prefix.
//
// Returns "invalid" for unparseable addresses and "unknown" for empty input.
func AnonymizeIP(ip string) string {
	if ip == "" || ip == "unknown" {
		return "unknown"
	}

	parsed := net.ParseIP(ip)
	if parsed == nil {
		return "invalid"
	}

	if v4 := parsed.To4(); v4 != nil {
		return fmt.Sprintf("%d.%d.%d.0", v4[0], v4[1], v4[2])
	}

	return fmt.Sprintf("%02x%02x:%02x%02x:%02x%02x::",
		parsed[0], parsed[1],
		parsed[2], parsed[3],
		parsed[4], parsed[5])
}

// BrowserFamily extracts a coarse browser-family label from a User-Agent
// string ("chrome", "firefox", ...). Never returns version numbers or the raw
// string.
func BrowserFamily(userAgentString string) string {
	if userAgentString == "" {
		return "unknown"
	}
	ua := useragent.New(userAgentString)
	browser, _ := ua.Browser()
	browser = strings.ToLower(strings.TrimSpace(browser))
	if browser == "" {
		return "unknown"
	}
	return browser
}

// OSFamily extracts a coarse OS-family label ("mac os x", "linux", ...).
func OSFamily(userAgentString string) string {
	if userAgentString == "" {
		return "unknown"
	}
	ua := useragent.New(userAgentString)
	osName := strings.ToLower(strings.TrimSpace(ua.OSInfo().Name))
	if osName == "" {
		return "unknown"
	}
	return osName
}

// ClientSignature builds the anonymized client signature recorded in audit
// entries: coarse browser family, coarse OS family, and a truncated IP.
// Example: "chrome/mac os x/203.0.113.0".
func ClientSignature(userAgentString, ip string) string {
	return BrowserFamily(userAgentString) + "/" + OSFamily(userAgentString) + "/" + AnonymizeIP(ip)
}
