// SPDX-License-Identifier: MPL-2.0

package github

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	"golang.org/x/mod/semver"
)

const (
	// defaultPerPage is the number of releases fetched per API page.
	defaultPerPage = 100

	// maxPages is the upper bound on pagination to avoid runaway requests.
	maxPages = 10
)

type (
	// Release is a published release of a repository.
	Release struct {
		Name        string    // Display title
		Tag         string    // Git tag, e.g. "v1.2.0"
		Body        string    // Release notes (markdown)
		Prerelease  bool      // True for alpha/beta/RC releases
		PublishedAt time.Time // Zero when unpublished
	}

	// Asset is a downloadable file attached to a release.
	Asset struct {
		URL         string // API asset URL, downloaded with Accept: application/octet-stream
		ContentType string // MIME type declared by the uploader
		Name        string // Final filename
		Size        int64  // Declared size in bytes, 0 when unknown
	}

	// wireRelease uses pointers so that absent and null fields can be told
	// apart from empty strings.
	wireRelease struct {
		Name        *string           `json:"name"`
		TagName     *string           `json:"tag_name"`
		Body        *string           `json:"body"`
		Draft       bool              `json:"draft"`
		Prerelease  bool              `json:"prerelease"`
		PublishedAt *time.Time        `json:"published_at"`
		Assets      []json.RawMessage `json:"assets"`
	}

	wireAsset struct {
		URL         *string `json:"url"`
		ContentType *string `json:"content_type"`
		Name        *string `json:"name"`
		Size        int64   `json:"size"`
	}
)

// ListReleases returns the published releases of repo in server order
// (newest first). Entries missing a name, tag or body are skipped, as are
// drafts. On any failure the returned slice is empty and the error says why:
// ErrPermissionDenied, a *TransportError, a *RateLimitError or
// ErrMalformedResponse.
func (c *Client) ListReleases(ctx context.Context, token Token, repo string) ([]Release, error) {
	const op = "listing releases"

	if !c.CheckPermission(ctx, token, repo, PermPull) {
		return nil, fmt.Errorf("%s for %s: %w", op, repo, ErrPermissionDenied)
	}

	pageURL, err := c.repoURL(repo, fmt.Sprintf("/releases?per_page=%d", defaultPerPage))
	if err != nil {
		return nil, err
	}

	var all []Release
	for page := 0; page < maxPages && pageURL != ""; page++ {
		releases, next, err := c.listPage(ctx, token, op, pageURL)
		if err != nil {
			return nil, err
		}
		all = append(all, releases...)
		pageURL = next
	}

	c.logger.Debug("listed releases", "repo", repo, "count", len(all))
	return all, nil
}

func (c *Client) listPage(ctx context.Context, token Token, op, pageURL string) ([]Release, string, error) {
	resp, body, err := c.getJSON(ctx, token, op, pageURL)
	if err != nil {
		return nil, "", err
	}
	defer func() { _ = resp.Body.Close() }() // read-only response body

	if resp.StatusCode != http.StatusOK {
		return nil, "", &TransportError{Op: op, URL: redactURL(pageURL), Status: resp.StatusCode}
	}

	var entries []json.RawMessage
	if err := json.NewDecoder(body).Decode(&entries); err != nil {
		return nil, "", fmt.Errorf("%w: %s: %v", ErrMalformedResponse, op, err)
	}

	releases := make([]Release, 0, len(entries))
	for _, raw := range entries {
		if r, ok := parseRelease(raw); ok {
			releases = append(releases, r)
		}
	}
	return releases, parseLinkHeader(resp.Header.Get("Link")), nil
}

// parseRelease converts one list entry. Entries that are not objects, that
// lack a required field, or that are drafts are rejected.
func parseRelease(raw json.RawMessage) (Release, bool) {
	var wr wireRelease
	if err := json.Unmarshal(raw, &wr); err != nil {
		return Release{}, false
	}
	if wr.Name == nil || wr.TagName == nil || wr.Body == nil || wr.Draft {
		return Release{}, false
	}
	r := Release{
		Name:       *wr.Name,
		Tag:        *wr.TagName,
		Body:       *wr.Body,
		Prerelease: wr.Prerelease,
	}
	if wr.PublishedAt != nil {
		r.PublishedAt = *wr.PublishedAt
	}
	return r, true
}

// ResolveAssets returns the assets of the release tagged tag in repo. Assets
// missing a URL, content type or name are skipped. A tag with no release
// yields ErrReleaseNotFound.
func (c *Client) ResolveAssets(ctx context.Context, token Token, repo, tag string) ([]Asset, error) {
	const op = "resolving release assets"

	if !c.CheckPermission(ctx, token, repo, PermPull) {
		return nil, fmt.Errorf("%s for %s: %w", op, repo, ErrPermissionDenied)
	}

	reqURL, err := c.repoURL(repo, "/releases/tags/"+url.PathEscape(tag))
	if err != nil {
		return nil, err
	}

	resp, body, err := c.getJSON(ctx, token, op, reqURL)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }() // read-only response body

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%s %s@%s: %w", op, repo, tag, ErrReleaseNotFound)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &TransportError{Op: op, URL: redactURL(reqURL), Status: resp.StatusCode}
	}

	var obj map[string]json.RawMessage
	if err := json.NewDecoder(body).Decode(&obj); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformedResponse, op, err)
	}
	rawAssets, ok := obj["assets"]
	if !ok {
		return nil, fmt.Errorf("%w: %s: release has no assets field", ErrMalformedResponse, op)
	}
	var entries []json.RawMessage
	if err := json.Unmarshal(rawAssets, &entries); err != nil {
		return nil, fmt.Errorf("%w: %s: assets: %v", ErrMalformedResponse, op, err)
	}

	assets := make([]Asset, 0, len(entries))
	for _, raw := range entries {
		var wa wireAsset
		if err := json.Unmarshal(raw, &wa); err != nil {
			continue
		}
		if wa.URL == nil || wa.ContentType == nil || wa.Name == nil {
			continue
		}
		assets = append(assets, Asset{
			URL:         *wa.URL,
			ContentType: *wa.ContentType,
			Name:        *wa.Name,
			Size:        wa.Size,
		})
	}

	c.logger.Debug("resolved assets", "repo", repo, "tag", tag, "count", len(assets))
	return assets, nil
}

// LatestRelease returns the highest stable release of repo by semantic
// version. Tags without a leading "v" are compared as if they had one.
func (c *Client) LatestRelease(ctx context.Context, token Token, repo string) (Release, error) {
	releases, err := c.ListReleases(ctx, token, repo)
	if err != nil {
		return Release{}, err
	}

	stable := slices.DeleteFunc(releases, func(r Release) bool {
		return r.Prerelease || !semver.IsValid(CanonicalVersion(r.Tag))
	})
	if len(stable) == 0 {
		return Release{}, fmt.Errorf("latest release of %s: %w", repo, ErrReleaseNotFound)
	}

	sortReleasesBySemverDesc(stable)
	return stable[0], nil
}

// CanonicalVersion prefixes a bare version with "v" so that semver accepts it.
func CanonicalVersion(v string) string {
	v = strings.TrimSpace(v)
	if v == "" || strings.HasPrefix(v, "v") {
		return v
	}
	return "v" + v
}

// sortReleasesBySemverDesc sorts releases by semantic version in descending order.
// Uses a stable sort so releases with identical tags preserve their original ordering.
func sortReleasesBySemverDesc(releases []Release) {
	slices.SortStableFunc(releases, func(a, b Release) int {
		return semver.Compare(CanonicalVersion(b.Tag), CanonicalVersion(a.Tag))
	})
}
