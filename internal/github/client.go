// SPDX-License-Identifier: MPL-2.0

package github

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
)

const (
	// DefaultBaseURL is the public GitHub REST API endpoint.
	DefaultBaseURL = "https://api.github.com"

	// apiVersion pins the REST API version sent with every request.
	apiVersion = "2022-11-28"

	// maxJSONResponseBytes is the upper bound on JSON API response size (10 MB).
	maxJSONResponseBytes = 10 << 20

	// apiTimeout bounds metadata requests. Asset downloads use a separate
	// client without an overall timeout.
	apiTimeout = 30 * time.Second
)

type (
	// Token is a GitHub bearer token. The empty token means anonymous access.
	Token string

	// Client queries the GitHub REST API on behalf of a token passed per call.
	Client struct {
		httpClient     *http.Client
		downloadClient *http.Client
		baseURL        string
		userAgent      string
		logger         *log.Logger
	}

	// ClientOption configures a Client during construction.
	ClientOption func(*Client)
)

// Anonymous reports whether the token is empty.
func (t Token) Anonymous() bool {
	return strings.TrimSpace(string(t)) == ""
}

// String never reveals the token, so a Token is safe to log or format.
func (t Token) String() string {
	if t.Anonymous() {
		return "<anonymous>"
	}
	return "<redacted>"
}

// WithHTTPClient sets the client used for API metadata requests.
func WithHTTPClient(c *http.Client) ClientOption {
	return func(g *Client) {
		g.httpClient = c
	}
}

// WithDownloadClient sets the client used for asset downloads.
func WithDownloadClient(c *http.Client) ClientOption {
	return func(g *Client) {
		g.downloadClient = c
	}
}

// WithBaseURL overrides the GitHub API base URL, primarily for test servers.
func WithBaseURL(base string) ClientOption {
	return func(g *Client) {
		g.baseURL = strings.TrimRight(base, "/")
	}
}

// WithUserAgent sets the User-Agent header sent with every request.
func WithUserAgent(ua string) ClientOption {
	return func(g *Client) {
		g.userAgent = ua
	}
}

// WithLogger sets the logger used for diagnostics.
func WithLogger(l *log.Logger) ClientOption {
	return func(g *Client) {
		g.logger = l
	}
}

// NewClient creates a Client with sensible defaults.
// Defaults: baseURL=DefaultBaseURL, userAgent="hdr-installer/dev", a 30s API
// timeout, and downloads without an overall timeout.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		httpClient:     &http.Client{Timeout: apiTimeout},
		downloadClient: &http.Client{},
		baseURL:        DefaultBaseURL,
		userAgent:      "hdr-installer/dev",
		logger:         log.Default().WithPrefix("github"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the configured API base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// OpenAsset starts downloading an asset from its API URL and returns the
// streaming body together with the advertised length (-1 when unknown).
// Redirects are followed; the Authorization header is dropped by net/http
// when a redirect leaves the original host. The caller closes the body.
func (c *Client) OpenAsset(ctx context.Context, token Token, assetURL string) (io.ReadCloser, int64, error) {
	req, err := c.newRequest(ctx, token, assetURL, "application/octet-stream")
	if err != nil {
		return nil, 0, &TransportError{Op: "downloading asset", URL: redactURL(assetURL), Err: err}
	}

	resp, err := c.downloadClient.Do(req)
	if err != nil {
		return nil, 0, &TransportError{Op: "downloading asset", URL: redactURL(assetURL), Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_ = resp.Body.Close() // nothing useful in an error body
		return nil, 0, &TransportError{Op: "downloading asset", URL: redactURL(assetURL), Status: resp.StatusCode}
	}

	return resp.Body, resp.ContentLength, nil
}

// getJSON performs a GET against an API URL and returns the response with a
// size-limited body. Rate-limit exhaustion is reported as a RateLimitError;
// any other status is returned to the caller for classification.
func (c *Client) getJSON(ctx context.Context, token Token, op, reqURL string) (*http.Response, io.Reader, error) {
	req, err := c.newRequest(ctx, token, reqURL, "application/vnd.github+json")
	if err != nil {
		return nil, nil, &TransportError{Op: op, URL: redactURL(reqURL), Err: err}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, &TransportError{Op: op, URL: redactURL(reqURL), Err: err}
	}

	if resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusTooManyRequests {
		if rlErr := checkRateLimit(resp); rlErr != nil {
			_ = resp.Body.Close() // rate-limit body carries no extra detail
			return nil, nil, rlErr
		}
	}

	return resp, io.LimitReader(resp.Body, maxJSONResponseBytes), nil
}

// newRequest creates a GET request with the common GitHub headers.
func (c *Client) newRequest(ctx context.Context, token Token, reqURL, accept string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("Accept", accept)
	req.Header.Set("X-GitHub-Api-Version", apiVersion)
	req.Header.Set("User-Agent", c.userAgent)

	// Only attach the token when the request targets a known GitHub host.
	if !token.Anonymous() && isGitHubHost(req.URL, c.baseURL) {
		req.Header.Set("Authorization", "Bearer "+strings.TrimSpace(string(token)))
	}

	return req, nil
}

// repoURL builds "<base>/repos/<owner>/<name><suffix>" after validating the
// repository name.
func (c *Client) repoURL(repo, suffix string) (string, error) {
	owner, name, ok := strings.Cut(repo, "/")
	if !ok || owner == "" || name == "" || strings.Contains(name, "/") {
		return "", fmt.Errorf("%w: %q", ErrInvalidRepository, repo)
	}
	return fmt.Sprintf("%s/repos/%s/%s%s", c.baseURL, url.PathEscape(owner), url.PathEscape(name), suffix), nil
}

// checkRateLimit inspects the X-RateLimit-* response headers and returns a
// RateLimitError when the remaining quota is zero.
func checkRateLimit(resp *http.Response) error {
	remaining := resp.Header.Get("X-RateLimit-Remaining")
	if remaining == "" {
		return nil
	}

	rem, err := strconv.Atoi(remaining)
	if err != nil || rem > 0 {
		return nil //nolint:nilerr // Non-numeric header is non-fatal.
	}

	// Best-effort: malformed companion headers default to zero.
	limit, _ := strconv.Atoi(resp.Header.Get("X-RateLimit-Limit"))                 //nolint:errcheck // Best-effort header parsing.
	resetUnix, _ := strconv.ParseInt(resp.Header.Get("X-RateLimit-Reset"), 10, 64) //nolint:errcheck // Best-effort header parsing.

	return &RateLimitError{
		Limit:     limit,
		Remaining: 0,
		ResetAt:   time.Unix(resetUnix, 0),
	}
}

// parseLinkHeader extracts the URL for the "next" page from a GitHub API Link header.
// Returns an empty string if no next page exists.
//
// Example header: <https://api.github.com/...?page=2>; rel="next", <...>; rel="last"
func parseLinkHeader(header string) string {
	for part := range strings.SplitSeq(header, ",") {
		part = strings.TrimSpace(part)
		if !strings.Contains(part, `rel="next"`) {
			continue
		}
		start := strings.Index(part, "<")
		end := strings.Index(part, ">")
		if start >= 0 && end > start {
			return part[start+1 : end]
		}
	}
	return ""
}

// isGitHubHost reports whether reqURL targets a known GitHub host, so the auth
// token can be safely attached. It matches the configured API base URL host and,
// when the base is api.github.com, also trusts github.com.
func isGitHubHost(reqURL *url.URL, baseURL string) bool {
	base, err := url.Parse(baseURL)
	if err != nil {
		return false
	}
	if strings.EqualFold(reqURL.Host, base.Host) {
		return true
	}
	return strings.EqualFold(base.Host, "api.github.com") && strings.EqualFold(reqURL.Host, "github.com")
}

// redactURL strips query parameters and fragments from a URL so signed
// download links never end up in logs or error messages.
func redactURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "<invalid-url>"
	}
	u.RawQuery = ""
	u.Fragment = ""
	u.User = nil
	return u.String()
}
