// Package urls validates and resolves the links handed to and produced by the scraper.
package urls

import (
	"net/url"
	"strings"
)

const magnetPrefix = "magnet:"

// IsValid reports whether s parses as an absolute URL with both a scheme and a host.
func IsValid(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return false
	}
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	return u.Scheme != "" && u.Host != ""
}

// IsMagnet reports whether s is a magnet URI.
func IsMagnet(s string) bool {
	s = strings.TrimSpace(s)
	return len(s) > len(magnetPrefix) && strings.EqualFold(s[:len(magnetPrefix)], magnetPrefix)
}

// IsValidLink accepts absolute URLs and magnet URIs, the two link shapes an item may carry.
func IsValidLink(s string) bool {
	return IsValid(s) || IsMagnet(s)
}

// Resolve joins ref against base. Magnet URIs are returned unchanged; an empty
// string is returned when either side cannot be parsed.
func Resolve(base, ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return ""
	}
	if IsMagnet(ref) {
		return ref
	}

	refURL, err := url.Parse(ref)
	if err != nil {
		return ""
	}
	if refURL.IsAbs() {
		return refURL.String()
	}

	baseURL, err := url.Parse(strings.TrimSpace(base))
	if err != nil || !baseURL.IsAbs() {
		return ""
	}
	return baseURL.ResolveReference(refURL).String()
}

// Hostname returns the host part of raw without port, or "" when raw is not a URL.
func Hostname(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return ""
	}
	return u.Hostname()
}
