package shortener

import (
	"errors"
	"net/url"
	"strings"
)

const MaxURLLength = 2048

// blockedHostPrefixes is a deliberately coarse private-network blocklist.
// It misses IPv6 ranges and over-blocks 172.* beyond 172.16.0.0/12; treat it
// as an abuse heuristic, not a security boundary.
var blockedHostPrefixes = []string{"192.168.", "10.", "172."}

// ValidateDestinationURL accepts absolute http/https URLs with a public-ish
// host and rejects everything else. Deterministic, no side effects.
func ValidateDestinationURL(rawURL string) error {
	if rawURL == "" {
		return errors.New("url cannot be empty")
	}
	if len(rawURL) > MaxURLLength {
		return errors.New("url too long (max 2048 characters)")
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return errors.New("invalid url format")
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return errors.New("url scheme must be http or https")
	}

	host := strings.ToLower(parsed.Hostname())
	if host == "" {
		return errors.New("url must include host")
	}
	if host == "localhost" || host == "127.0.0.1" {
		return errors.New("url host is not allowed")
	}
	for _, prefix := range blockedHostPrefixes {
		if strings.HasPrefix(host, prefix) {
			return errors.New("url host is not allowed")
		}
	}

	return nil
}
