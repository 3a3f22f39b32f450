package urlutil

import (
	"fmt"
	"net/url"
)

// ValidateURL performs comprehensive URL validation
func ValidateURL(urlStr string) error {
	parsed, err := url.Parse(urlStr)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}

	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("invalid URL scheme: must be http or https, got %s", parsed.Scheme)
	}

	if parsed.Host == "" {
		return fmt.Errorf("invalid URL: missing host")
	}

	return nil
}

// ResolveURL resolves a possibly-relative href against base. It fails when
// either side does not parse or the result is still not absolute.
func ResolveURL(base, href string) (string, error) {
	u, err := url.Parse(href)
	if err != nil {
		return "", fmt.Errorf("invalid href: %w", err)
	}
	if !u.IsAbs() {
		baseURL, err := url.Parse(base)
		if err != nil {
			return "", fmt.Errorf("invalid base URL: %w", err)
		}
		u = baseURL.ResolveReference(u)
	}
	if !u.IsAbs() || u.Host == "" {
		return "", fmt.Errorf("href %q does not resolve to an absolute URL", href)
	}
	return u.String(), nil
}
