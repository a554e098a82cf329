// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestActionableError_Error(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		err      *ActionableError
		expected string
	}{
		{
			name:     "operation only",
			err:      &ActionableError{Operation: "list releases"},
			expected: "failed to list releases",
		},
		{
			name: "operation with resource",
			err: &ActionableError{
				Operation: "list releases",
				Resource:  "blu-dev/HDR-Release-Builds",
			},
			expected: "failed to list releases: blu-dev/HDR-Release-Builds",
		},
		{
			name: "operation with cause",
			err: &ActionableError{
				Operation: "read token",
				Cause:     errors.New("permission denied"),
			},
			expected: "failed to read token: permission denied",
		},
		{
			name: "full context",
			err: &ActionableError{
				Operation: "install release",
				Resource:  "v1.2.0",
				Issue:     InstallFailedId,
				Cause:     errors.New("disk full"),
			},
			expected: "failed to install release: v1.2.0: disk full",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := tt.err.Error(); got != tt.expected {
				t.Errorf("Error() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestActionableError_ErrorsIs(t *testing.T) {
	t.Parallel()

	sentinel := errors.New("rate limited")
	err := NewErrorContext().
		WithOperation("resolve assets").
		Wrap(fmt.Errorf("GET /repos: %w", sentinel)).
		BuildError()

	if !errors.Is(err, sentinel) {
		t.Error("errors.Is should find the sentinel through the chain")
	}

	var ae *ActionableError
	ok := errors.As(err, &ae)
	if !ok {
		t.Fatal("errors.AsType should find *ActionableError")
	}
	if ae.Unwrap() == nil {
		t.Error("Unwrap() should return the cause")
	}
	if (&ActionableError{Operation: "x"}).Unwrap() != nil {
		t.Error("Unwrap() should return nil without a cause")
	}
}

func TestActionableError_Format(t *testing.T) {
	t.Parallel()

	inner := errors.New("connection reset")
	err := &ActionableError{
		Operation:   "download asset",
		Resource:    "hdr-switch.zip",
		Suggestions: []string{"Check your connection", "Retry the install"},
		Cause:       fmt.Errorf("read body: %w", inner),
	}

	tests := []struct {
		name     string
		verbose  bool
		contains []string
		excludes []string
	}{
		{
			name:     "non-verbose",
			verbose:  false,
			contains: []string{"failed to download asset: hdr-switch.zip", "• Check your connection", "• Retry the install"},
			excludes: []string{"Error chain:"},
		},
		{
			name:     "verbose",
			verbose:  true,
			contains: []string{"Error chain:", "1. read body: connection reset", "2. connection reset"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := err.Format(tt.verbose)
			for _, want := range tt.contains {
				if !strings.Contains(got, want) {
					t.Errorf("Format(%v) missing %q in:\n%s", tt.verbose, want, got)
				}
			}
			for _, unwanted := range tt.excludes {
				if strings.Contains(got, unwanted) {
					t.Errorf("Format(%v) should not contain %q", tt.verbose, unwanted)
				}
			}
		})
	}
}

func TestActionableError_HasSuggestions(t *testing.T) {
	t.Parallel()

	if !(&ActionableError{Operation: "x", Suggestions: []string{"y"}}).HasSuggestions() {
		t.Error("HasSuggestions() should be true with suggestions")
	}
	if (&ActionableError{Operation: "x"}).HasSuggestions() {
		t.Error("HasSuggestions() should be false without suggestions")
	}
}

func TestErrorContext_Build(t *testing.T) {
	t.Parallel()

	if NewErrorContext().WithResource("config.cue").Build() != nil {
		t.Error("Build() without operation should return nil")
	}
	if NewErrorContext().BuildError() != nil {
		t.Error("BuildError() without operation should return a nil error")
	}

	cause := errors.New("unexpected token")
	err := NewErrorContext().
		WithOperation("load configuration").
		WithResource("/home/u/.config/hdr-installer/config.cue").
		WithSuggestion("Check the syntax").
		WithSuggestions("Run 'hdr-installer config init'", "Remove the file").
		WithIssue(ConfigLoadFailedId).
		Wrap(cause).
		Build()

	if err == nil {
		t.Fatal("Build() returned nil")
	}
	if err.Operation != "load configuration" {
		t.Errorf("Operation = %q", err.Operation)
	}
	if err.Resource != "/home/u/.config/hdr-installer/config.cue" {
		t.Errorf("Resource = %q", err.Resource)
	}
	if len(err.Suggestions) != 3 {
		t.Errorf("Suggestions count = %d, want 3", len(err.Suggestions))
	}
	if err.Issue != ConfigLoadFailedId {
		t.Errorf("Issue = %d, want %d", err.Issue, ConfigLoadFailedId)
	}
	if !errors.Is(err.Cause, cause) {
		t.Errorf("Cause = %v", err.Cause)
	}
}

func TestWrapWithContext(t *testing.T) {
	t.Parallel()

	cause := errors.New("no such file")
	err := WrapWithContext(cause, "read token", "/tmp/oauth.txt")
	if err == nil {
		t.Fatal("WrapWithContext returned nil")
	}
	if err.Operation != "read token" || err.Resource != "/tmp/oauth.txt" {
		t.Errorf("got %+v", err)
	}
	if !errors.Is(err, cause) {
		t.Error("cause should be reachable")
	}

	if WrapWithContext(nil, "read token", "x") != nil {
		t.Error("WrapWithContext(nil) should return nil")
	}
}

func TestErrorContext_Reuse(t *testing.T) {
	t.Parallel()

	ctx := NewErrorContext().
		WithOperation("install release").
		WithIssue(InstallFailedId)

	first := ctx.Wrap(errors.New("first")).Build()
	second := ctx.Wrap(errors.New("second")).Build()

	if first.Cause.Error() == second.Cause.Error() {
		t.Error("reused context should allow different causes")
	}
	if first.Issue != second.Issue {
		t.Error("reused context should keep the issue")
	}
}
