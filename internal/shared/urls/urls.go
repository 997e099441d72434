// Package urls provides validation and normalization of user-entered
// server addresses.
//
// Normalization turns raw input into a canonical absolute http(s) URL:
// loopback hosts and bare IPv4 addresses default to http, everything else
// defaults to https. The functions are pure and total; malformed input
// yields a typed error, never a panic.
package urls

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"regexp"
	"strings"
)

// Validation errors. All are user-displayable as-is.
var (
	ErrEmptyInput        = errors.New("server address is empty")
	ErrInvalidFormat     = errors.New("server address is not a valid URL")
	ErrUnsupportedScheme = errors.New("only http and https schemes are supported")
)

const displayFallbackLen = 20

var (
	// dottedQuad matches a bare IPv4 address with optional port and path.
	dottedQuad = regexp.MustCompile(`^\d{1,3}(\.\d{1,3}){3}(:\d+)?(/.*)?$`)

	privateIP = regexp.MustCompile(`^(192\.168\.|10\.)`)
)

// Normalize trims raw input and prefixes a scheme when missing: http for
// loopback hosts and bare IPv4 addresses, https otherwise. Input that
// already carries a scheme passes through unchanged.
func Normalize(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", ErrEmptyInput
	}

	if strings.Contains(trimmed, "://") {
		return trimmed, nil
	}

	if isLoopbackInput(trimmed) || dottedQuad.MatchString(trimmed) {
		return "http://" + trimmed, nil
	}
	return "https://" + trimmed, nil
}

// Validate normalizes raw input and verifies the result parses as a
// well-formed absolute http(s) URL.
func Validate(raw string) (string, error) {
	normalized, err := Normalize(raw)
	if err != nil {
		return "", err
	}

	u, err := url.Parse(normalized)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidFormat, strings.TrimSpace(raw))
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedScheme, u.Scheme)
	}
	if u.Host == "" {
		return "", fmt.Errorf("%w: %q", ErrInvalidFormat, strings.TrimSpace(raw))
	}
	return normalized, nil
}

// DisplayName derives a short human-readable name from a server URL:
// loopback hosts collapse to localhost, private-range IPs show verbatim,
// and public domains collapse to their last two labels. Derivation never
// fails; malformed input falls back to a raw prefix.
func DisplayName(rawURL string) string {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || u.Host == "" {
		return rawFallback(rawURL)
	}

	host := u.Hostname()
	port := u.Port()
	if host == "" {
		return rawFallback(rawURL)
	}

	var name string
	switch {
	case isLoopbackHost(host):
		name = "localhost"
	case privateIP.MatchString(host), net.ParseIP(host) != nil:
		name = host
	default:
		labels := strings.Split(host, ".")
		if len(labels) > 2 {
			labels = labels[len(labels)-2:]
		}
		name = strings.Join(labels, ".")
	}

	if port != "" {
		name += ":" + port
	}
	return name
}

func rawFallback(rawURL string) string {
	trimmed := strings.TrimSpace(rawURL)
	if len(trimmed) > displayFallbackLen {
		return trimmed[:displayFallbackLen]
	}
	return trimmed
}

// isLoopbackInput checks a scheme-less input string for a loopback host.
func isLoopbackInput(input string) bool {
	host := input
	if i := strings.IndexAny(host, "/:"); i >= 0 {
		host = host[:i]
	}
	return isLoopbackHost(host)
}

func isLoopbackHost(host string) bool {
	if host == "localhost" {
		return true
	}
	if ip := net.ParseIP(host); ip != nil {
		return ip.IsLoopback()
	}
	return false
}
