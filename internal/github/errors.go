// SPDX-License-Identifier: MPL-2.0

package github

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrPermissionDenied is returned when the caller lacks the permission an
	// operation needs, or when the permission could not be established.
	ErrPermissionDenied = errors.New("permission denied")

	// ErrReleaseNotFound is returned when a requested release tag does not exist.
	ErrReleaseNotFound = errors.New("release not found")

	// ErrMalformedResponse is returned when a response body is not valid JSON
	// or does not have the expected shape.
	ErrMalformedResponse = errors.New("malformed API response")

	// ErrRateLimited is matched by RateLimitError through errors.Is.
	ErrRateLimited = errors.New("rate limit exceeded")

	// ErrInvalidRepository is returned for repository names not of the form owner/name.
	ErrInvalidRepository = errors.New("invalid repository name")
)

type (
	// TransportError describes a failed HTTP exchange: either the request
	// could not be completed (Err set) or the server answered with an
	// unexpected status (Status set).
	TransportError struct {
		Op     string
		URL    string
		Status int
		Err    error
	}

	// RateLimitError is returned when the GitHub API rate limit is exceeded.
	RateLimitError struct {
		Limit     int
		Remaining int
		ResetAt   time.Time
	}
)

func (e *TransportError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.URL, e.Err)
	}
	return fmt.Sprintf("%s: %s: unexpected status %d", e.Op, e.URL, e.Status)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Error formats the rate limit details as a human-readable message.
func (e *RateLimitError) Error() string {
	return fmt.Sprintf("GitHub API rate limit exceeded (%d remaining, resets at %s)",
		e.Remaining, e.ResetAt.UTC().Format("15:04 UTC"))
}

// Is lets errors.Is(err, ErrRateLimited) match any RateLimitError.
func (e *RateLimitError) Is(target error) bool {
	return target == ErrRateLimited
}
