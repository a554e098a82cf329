// SPDX-License-Identifier: MPL-2.0

package github

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// Permission is a set of repository permissions.
type Permission uint8

const (
	// PermAdmin grants repository administration.
	PermAdmin Permission = 1 << iota
	// PermPush grants write access.
	PermPush
	// PermPull grants read access, which is all that is needed to list and
	// download releases.
	PermPull

	// PermNone is the empty permission set.
	PermNone Permission = 0

	permAll = PermAdmin | PermPush | PermPull
)

type (
	// wireRepository is the subset of the repository response that permission
	// checks read. A response without full_name is not a repository.
	wireRepository struct {
		FullName    *string          `json:"full_name"`
		Permissions *wirePermissions `json:"permissions"`
	}

	wirePermissions struct {
		Admin bool `json:"admin"`
		Push  bool `json:"push"`
		Pull  bool `json:"pull"`
	}
)

// Has reports whether every bit of required is present in p.
func (p Permission) Has(required Permission) bool {
	return p&required == required
}

func (p Permission) String() string {
	if p&permAll == 0 {
		return "none"
	}
	var names []string
	if p&PermAdmin != 0 {
		names = append(names, "admin")
	}
	if p&PermPush != 0 {
		names = append(names, "push")
	}
	if p&PermPull != 0 {
		names = append(names, "pull")
	}
	return strings.Join(names, "|")
}

// CheckPermission reports whether token holds every permission in required
// on repo. Anonymous callers can only ever hold PermPull, and only on public
// repositories. Any failure to establish the answer yields false.
func (c *Client) CheckPermission(ctx context.Context, token Token, repo string, required Permission) bool {
	if token.Anonymous() && required&^PermPull != 0 {
		return false
	}

	granted, err := c.Permissions(ctx, token, repo)
	if err != nil {
		c.logger.Debug("permission check failed closed", "repo", repo, "required", required, "err", err)
		return false
	}
	return granted.Has(required)
}

// Permissions returns the permissions token holds on repo. An anonymous
// token yields PermPull exactly when the repository is publicly readable.
func (c *Client) Permissions(ctx context.Context, token Token, repo string) (Permission, error) {
	const op = "checking repository permissions"

	reqURL, err := c.repoURL(repo, "")
	if err != nil {
		return PermNone, err
	}

	resp, body, err := c.getJSON(ctx, token, op, reqURL)
	if err != nil {
		return PermNone, err
	}
	defer func() { _ = resp.Body.Close() }() // read-only response body

	switch {
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusUnauthorized:
		// Private repositories answer 404 to callers who cannot see them.
		return PermNone, fmt.Errorf("%w: %s answered %d", ErrPermissionDenied, repo, resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return PermNone, &TransportError{Op: op, URL: redactURL(reqURL), Status: resp.StatusCode}
	}

	var wr wireRepository
	if err := json.NewDecoder(body).Decode(&wr); err != nil {
		return PermNone, fmt.Errorf("%w: decoding repository %s: %v", ErrMalformedResponse, repo, err)
	}
	if wr.FullName == nil {
		return PermNone, fmt.Errorf("%w: repository %s has no full_name", ErrMalformedResponse, repo)
	}

	if token.Anonymous() {
		return PermPull, nil
	}
	return wr.Permissions.toPermission() & permAll, nil
}

func (w *wirePermissions) toPermission() Permission {
	if w == nil {
		return PermNone
	}
	var p Permission
	if w.Admin {
		p |= PermAdmin
	}
	if w.Push {
		p |= PermPush
	}
	if w.Pull {
		p |= PermPull
	}
	return p
}
