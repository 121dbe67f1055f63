// Package github implements the repository and user search ports against the
// GitHub REST API.
package github

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/gofri/go-github-ratelimit/v2/github_ratelimit"
	"github.com/gregjones/httpcache"

	"github.com/akravch/gitscout/internal/domain/port/driven"
)

// perPage is the maximum page size accepted by the listing endpoints.
const perPage = 100

// Page is one fetched page of a listing: the raw response body plus the
// next-page URL taken from the Link header, or "" on the last page.
type Page struct {
	Body    []byte
	NextURL string
}

// Fetcher issues a single paginated GET against the GitHub REST API.
// Cancellation is the caller's responsibility via the request context.
type Fetcher struct {
	httpClient *http.Client
}

// NewFetcher creates a Fetcher with the following transport stack:
//  1. httpcache (ETag-based conditional request caching)
//  2. go-github-ratelimit (secondary rate limit middleware, sleeps on 429)
func NewFetcher() *Fetcher {
	cacheTransport := httpcache.NewMemoryCacheTransport()
	return &Fetcher{httpClient: github_ratelimit.NewClient(cacheTransport)}
}

// NewFetcherWithHTTPClient creates a Fetcher with a custom http.Client.
// This constructor is intended for testing, allowing injection of an
// httptest server's client.
func NewFetcherWithHTTPClient(httpClient *http.Client) *Fetcher {
	return &Fetcher{httpClient: httpClient}
}

// Fetch performs one GET of rawURL with per_page and, when token is
// non-empty, access_token appended to the query string. The path of rawURL
// is never modified, so next-page URLs from Link headers can be passed back
// verbatim.
func (f *Fetcher) Fetch(ctx context.Context, rawURL, token string) (*Page, error) {
	u, err := url.Parse(rawURL)
	if err != nil || !u.IsAbs() {
		return nil, fmt.Errorf("%w: %q", driven.ErrRequestFormat, rawURL)
	}

	q := u.Query()
	q.Set("per_page", strconv.Itoa(perPage))
	if token != "" {
		q.Set("access_token", token)
	}
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", driven.ErrRequestFormat, err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil || errors.Is(err, context.Canceled) {
			return nil, fmt.Errorf("fetch %s: %w", u.Path, driven.ErrCancelled)
		}
		return nil, fmt.Errorf("fetch %s: %w", u.Path, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, fmt.Errorf("fetch %s: %w", u.Path, driven.ErrNotFound)
	case http.StatusUnauthorized:
		return nil, fmt.Errorf("fetch %s: %w", u.Path, driven.ErrUnauthorized)
	default:
		return nil, fmt.Errorf("fetch %s: unexpected status %d", u.Path, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("fetch %s: %w", u.Path, driven.ErrCancelled)
		}
		return nil, fmt.Errorf("read response body for %s: %w", u.Path, err)
	}

	logRateLimit(resp, u.Path)

	return &Page{Body: body, NextURL: nextPageURL(resp.Header.Get("Link"))}, nil
}

// nextPageURL extracts the rel="next" target from a Link header. Links are
// separated by ", "; within a link the URL and its relation are separated by
// "; " and the URL is wrapped in angle brackets. Returns "" when no next
// link exists.
func nextPageURL(link string) string {
	if link == "" {
		return ""
	}

	for _, l := range strings.Split(link, ", ") {
		parts := strings.Split(l, "; ")
		if len(parts) < 2 || parts[len(parts)-1] != `rel="next"` {
			continue
		}

		target := parts[0]
		if strings.HasPrefix(target, "<") && strings.HasSuffix(target, ">") {
			return target[1 : len(target)-1]
		}
	}

	return ""
}

// logRateLimit logs the GitHub API rate limit status after each page fetch.
func logRateLimit(resp *http.Response, endpoint string) {
	remaining := resp.Header.Get("X-RateLimit-Remaining")
	if remaining == "" {
		return
	}

	slog.Debug("github api call",
		"endpoint", endpoint,
		"rate_remaining", remaining,
		"rate_limit", resp.Header.Get("X-RateLimit-Limit"),
	)

	if n, err := strconv.Atoi(remaining); err == nil && n < 100 {
		slog.Warn("github rate limit low", "remaining", n)
	}
}
