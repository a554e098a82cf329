// SPDX-License-Identifier: MPL-2.0

package session

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/hdr-community/hdr-installer/internal/catalog"
	"github.com/hdr-community/hdr-installer/internal/github"
)

type fakeChecker struct {
	readable map[string]bool
	calls    []string
}

func (f *fakeChecker) CheckPermission(_ context.Context, _ github.Token, repo string, required github.Permission) bool {
	f.calls = append(f.calls, repo)
	return required == github.PermPull && f.readable[repo]
}

// clearTokenEnv blanks both override variables for the test.
func clearTokenEnv(t *testing.T) {
	t.Helper()
	t.Setenv(EnvToken, "")
	t.Setenv(EnvGitHubToken, "")
}

func TestLoadToken(t *testing.T) {
	tests := []struct {
		name    string
		content *string
		env     map[string]string
		want    github.Token
		source  TokenSource
	}{
		{name: "missing file is anonymous", want: "", source: SourceNone},
		{name: "trimmed", content: ptr("  ghp_abc\n"), want: "ghp_abc", source: SourceFile},
		{name: "blank file is anonymous", content: ptr("\n\t\n"), want: "", source: SourceNone},
		{
			name:    "env overrides file",
			content: ptr("from-file"),
			env:     map[string]string{EnvToken: "from-env"},
			want:    "from-env",
			source:  SourceEnv,
		},
		{
			name:   "github token fallback",
			env:    map[string]string{EnvGitHubToken: "gh-env"},
			want:   "gh-env",
			source: SourceEnv,
		},
		{
			name:   "own variable wins over GITHUB_TOKEN",
			env:    map[string]string{EnvToken: "mine", EnvGitHubToken: "theirs"},
			want:   "mine",
			source: SourceEnv,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearTokenEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			path := filepath.Join(t.TempDir(), "oauth.txt")
			if tt.content != nil {
				if err := os.WriteFile(path, []byte(*tt.content), 0o600); err != nil {
					t.Fatal(err)
				}
			}

			got, source, err := LoadTokenWithSource(path)
			if err != nil {
				t.Fatalf("LoadTokenWithSource() error = %v", err)
			}
			if got != tt.want || source != tt.source {
				t.Errorf("LoadTokenWithSource() = %q, %s; want %q, %s", got, source, tt.want, tt.source)
			}
		})
	}
}

func TestLoadToken_UnreadablePath(t *testing.T) {
	clearTokenEnv(t)

	// A directory exists but cannot be read as a token.
	if _, err := LoadToken(t.TempDir()); err == nil {
		t.Fatal("expected error reading a directory as token file")
	}
}

func TestNew(t *testing.T) {
	t.Parallel()

	channels := []catalog.Channel{
		{Title: "Release", Repository: "blu-dev/HDR-Release-Builds"},
		{Title: "Beta", Repository: "blu-dev/HDR-Beta-Builds"},
		{Title: "Release again", Repository: "blu-dev/HDR-Release-Builds"},
	}
	checker := &fakeChecker{readable: map[string]bool{"blu-dev/HDR-Release-Builds": true}}

	s := New(context.Background(), checker, "tok", channels)

	if !slices.Equal(checker.calls, []string{"blu-dev/HDR-Release-Builds", "blu-dev/HDR-Beta-Builds"}) {
		t.Errorf("checked %v; each repository should be checked once, in order", checker.calls)
	}
	if s.Anonymous() || s.Token() != "tok" {
		t.Errorf("token = %q", s.Token())
	}
	if !s.CanRead("blu-dev/HDR-Release-Builds") || s.CanRead("blu-dev/HDR-Beta-Builds") {
		t.Error("CanRead disagrees with the checker")
	}
	if s.CanRead("unknown/repo") {
		t.Error("unconfigured repositories must not be readable")
	}

	acc := s.Accessible()
	if len(acc) != 2 || acc[0].Title != "Release" || acc[1].Title != "Release again" {
		t.Errorf("Accessible() = %+v", acc)
	}
	all := s.Channels()
	if len(all) != 3 || all[1].Readable {
		t.Errorf("Channels() = %+v", all)
	}
}

func TestNew_Anonymous(t *testing.T) {
	t.Parallel()

	s := New(context.Background(), &fakeChecker{}, "", nil)
	if !s.Anonymous() {
		t.Error("empty token should be anonymous")
	}
	if len(s.Accessible()) != 0 {
		t.Error("no channels configured, none accessible")
	}
}

func ptr(s string) *string { return &s }
