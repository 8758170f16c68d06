package utils

import (
	"fmt"
	"net/url"
	"strings"
)

// SanitizeLinkURL validates and normalizes an externally supplied link.
// Only web URLs are accepted, and raw spaces (which some sources emit
// unencoded) are %20-encoded so the link survives an href.
func SanitizeLinkURL(rawURL string) (string, error) {
	parsed, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return "", err
	}
	scheme := strings.ToLower(parsed.Scheme)
	if scheme != "http" && scheme != "https" {
		return "", fmt.Errorf("unsupported URL scheme %q", parsed.Scheme)
	}
	if parsed.Host == "" {
		return "", fmt.Errorf("URL has no host: %q", rawURL)
	}

	encoded := scheme + "://" + parsed.Host + parsed.EscapedPath()
	if parsed.RawQuery != "" {
		encoded += "?" + strings.ReplaceAll(parsed.RawQuery, " ", "%20")
	}
	return encoded, nil
}
