package crawl

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const maxBodyBytes = 5 * 1024 * 1024

// allowedParams is the fixed set of query parameters normalization keeps.
// Everything else (tracking parameters in particular) is dropped.
var allowedParams = []string{"id", "page", "category", "tag"}

// FetchError is a transport-level or content-negotiation failure. Fetch
// failures are transient from the frontier's point of view.
type FetchError struct {
	URL string
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

type Fetcher struct {
	client         *http.Client
	userAgent      string
	allowedDomains []string
	blockedDomains []string
}

func NewFetcher(timeout time.Duration, userAgent string, allowed, blocked []string) *Fetcher {
	return &Fetcher{
		client: &http.Client{
			Timeout: timeout,
		},
		userAgent:      userAgent,
		allowedDomains: allowed,
		blockedDomains: blocked,
	}
}

// Fetch issues a single GET and returns the HTML body. Redirects are
// followed; non-HTML responses and HTTP errors fail fast.
func (f *Fetcher) Fetch(ctx context.Context, rawurl string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawurl, nil)
	if err != nil {
		return "", &FetchError{URL: rawurl, Err: fmt.Errorf("build request: %w", err)}
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", &FetchError{URL: rawurl, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return "", &FetchError{URL: rawurl, Err: fmt.Errorf("HTTP %d", resp.StatusCode)}
	}

	contentType := resp.Header.Get("Content-Type")
	if !strings.Contains(contentType, "text/html") && !strings.Contains(contentType, "application/xhtml") {
		return "", &FetchError{URL: rawurl, Err: fmt.Errorf("invalid content type: %s", contentType)}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", &FetchError{URL: rawurl, Err: fmt.Errorf("read body: %w", err)}
	}
	return string(body), nil
}

// IsAllowed rejects hosts matching the blocklist and, when an allowlist is
// configured, hosts absent from it.
func (f *Fetcher) IsAllowed(rawurl string) bool {
	u, err := url.Parse(rawurl)
	if err != nil {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	host := u.Hostname()

	for _, blocked := range f.blockedDomains {
		if strings.Contains(host, blocked) {
			return false
		}
	}
	if len(f.allowedDomains) > 0 {
		for _, allowed := range f.allowedDomains {
			if strings.Contains(host, allowed) {
				return true
			}
		}
		return false
	}
	return true
}

// NormalizeURL resolves rawurl against base (when given), strips the
// fragment and drops every query parameter outside the allowed set.
// Normalization is idempotent: applying it twice yields the same string.
func NormalizeURL(rawurl, base string) (string, bool) {
	u, err := url.Parse(strings.TrimSpace(rawurl))
	if err != nil {
		return "", false
	}
	if base != "" {
		b, err := url.Parse(base)
		if err != nil {
			return "", false
		}
		u = b.ResolveReference(u)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", false
	}

	u.Fragment = ""
	if u.RawQuery != "" {
		params := u.Query()
		kept := url.Values{}
		for _, name := range allowedParams {
			if params.Has(name) {
				kept.Set(name, params.Get(name))
			}
		}
		u.RawQuery = kept.Encode()
	}
	return u.String(), true
}
