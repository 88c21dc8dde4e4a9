// Package urlx normalizes navigation URLs into canonical origins.
// An origin is scheme + host (+ port when non-default), no path or query.
package urlx

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"golang.org/x/net/idna"
)

// ErrInvalidURL indicates a URL that cannot be reduced to a web origin.
// Inputs failing with this error are rejected at the edge and never stored.
var ErrInvalidURL = errors.New("invalid url")

// internalSchemes are browser-internal or extension schemes that must never
// be evaluated against blocking rules (prevents redirect loops).
var internalSchemes = map[string]struct{}{
	"about":                {},
	"chrome":               {},
	"chrome-extension":     {},
	"moz-extension":        {},
	"edge":                 {},
	"safari-web-extension": {},
	"devtools":             {},
	"view-source":          {},
	"file":                 {},
	"data":                 {},
	"blob":                 {},
	"javascript":           {},
}

// defaultPorts maps schemes to ports that are stripped during normalization.
var defaultPorts = map[string]string{
	"http":  "80",
	"https": "443",
}

// IsInternal reports whether raw uses a browser-internal scheme.
// Unparseable input is treated as not internal; it will fail origin
// normalization instead.
func IsInternal(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	_, ok := internalSchemes[strings.ToLower(u.Scheme)]
	return ok
}

// NormalizeOrigin reduces a navigation URL to its canonical origin:
// lowercase scheme and host, IDNA (punycode) host form, no trailing dot,
// default ports stripped. Only http and https URLs have origins here.
func NormalizeOrigin(raw string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}

	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return "", fmt.Errorf("%w: unsupported scheme %q", ErrInvalidURL, u.Scheme)
	}

	host := strings.ToLower(u.Hostname())
	host = strings.TrimSuffix(host, ".")
	if host == "" {
		return "", fmt.Errorf("%w: missing host", ErrInvalidURL)
	}

	// Convert unicode hostnames to their punycode form so the same site
	// always maps to the same origin key.
	ascii, err := idna.Lookup.ToASCII(host)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}

	port := u.Port()
	if port == defaultPorts[scheme] {
		port = ""
	}
	if port != "" {
		return fmt.Sprintf("%s://%s:%s", scheme, ascii, port), nil
	}
	return fmt.Sprintf("%s://%s", scheme, ascii), nil
}

// Host returns the host part of a normalized origin. The second return is
// false when the origin does not look like scheme://host[:port].
func Host(origin string) (string, bool) {
	u, err := url.Parse(origin)
	if err != nil || u.Host == "" {
		return "", false
	}
	return u.Hostname(), true
}

// Scheme returns the scheme part of a normalized origin.
func Scheme(origin string) (string, bool) {
	u, err := url.Parse(origin)
	if err != nil || u.Scheme == "" {
		return "", false
	}
	return u.Scheme, true
}
