package models

import (
	"net"
	"strings"
)

// SanitizeKeySegment escapes delimiter characters in rate limit key segments
// to prevent key collision attacks where user-controlled identifiers containing
// ':' could manipulate adjacent rate limit buckets.
//
// IPv6 addresses are the common case here: "::1" becomes "__1".
func SanitizeKeySegment(s string) string {
	return strings.ReplaceAll(s, ":", "_")
}

// NewIPRateLimitKey builds the bucket key for a client IP on a route class.
func NewIPRateLimitKey(class, ip string) string {
	if ip == "" {
		ip = "unknown"
	}
	return "rl:ip:" + SanitizeKeySegment(class) + ":" + SanitizeKeySegment(ip)
}

// AnonymizeIP truncates an address for logging: /24 for IPv4, /48 for IPv6.
func AnonymizeIP(ip string) string {
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return ""
	}
	if v4 := parsed.To4(); v4 != nil {
		return v4.Mask(net.CIDRMask(24, 32)).String()
	}
	return parsed.Mask(net.CIDRMask(48, 128)).String()
}
