// SPDX-License-Identifier: MPL-2.0

// Package session holds who the user is for the lifetime of one run: the
// GitHub token and which configured channels that token can read.
package session

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"runtime"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/hdr-community/hdr-installer/internal/catalog"
	"github.com/hdr-community/hdr-installer/internal/github"
)

const (
	// EnvToken overrides the token file.
	EnvToken = "HDR_INSTALLER_TOKEN"
	// EnvGitHubToken is consulted after EnvToken.
	EnvGitHubToken = "GITHUB_TOKEN"
)

type (
	// PermissionChecker is satisfied by *github.Client.
	PermissionChecker interface {
		CheckPermission(ctx context.Context, token github.Token, repo string, required github.Permission) bool
	}

	// ChannelAccess is a configured channel together with whether the
	// session can read it.
	ChannelAccess struct {
		catalog.Channel
		Readable bool
	}

	// Session is created once at startup and passed to whatever needs it.
	Session struct {
		token    github.Token
		channels []ChannelAccess
		readable map[string]bool
	}

	// TokenSource describes where a token came from.
	TokenSource string
)

const (
	SourceNone TokenSource = "none"
	SourceFile TokenSource = "file"
	SourceEnv  TokenSource = "env"
)

// LoadToken reads a personal access token from path. A missing file means
// anonymous access. EnvToken and then EnvGitHubToken take precedence over the
// file when set.
func LoadToken(path string) (github.Token, error) {
	tok, _, err := LoadTokenWithSource(path)
	return tok, err
}

// LoadTokenWithSource is LoadToken that also reports where the token came from.
func LoadTokenWithSource(path string) (github.Token, TokenSource, error) {
	logger := log.Default().WithPrefix("session")

	for _, name := range []string{EnvToken, EnvGitHubToken} {
		if v := strings.TrimSpace(os.Getenv(name)); v != "" {
			logger.Debug("using token from environment", "var", name)
			return github.Token(v), SourceEnv, nil
		}
	}

	if path == "" {
		return "", SourceNone, nil
	}

	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		logger.Debug("no token file; continuing anonymously", "path", path)
		return "", SourceNone, nil
	}
	if err != nil {
		return "", SourceNone, fmt.Errorf("reading token file %s: %w", path, err)
	}
	if runtime.GOOS != "windows" && info.Mode().Perm()&0o077 != 0 {
		logger.Warn("token file is readable by other users", "path", path, "mode", info.Mode().Perm())
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", SourceNone, fmt.Errorf("reading token file %s: %w", path, err)
	}

	tok := github.Token(strings.TrimSpace(string(data)))
	if tok.Anonymous() {
		return "", SourceNone, nil
	}
	return tok, SourceFile, nil
}

// New evaluates read access to every channel, in order.
func New(ctx context.Context, checker PermissionChecker, token github.Token, channels []catalog.Channel) *Session {
	s := &Session{
		token:    token,
		channels: make([]ChannelAccess, 0, len(channels)),
		readable: make(map[string]bool, len(channels)),
	}
	for _, ch := range channels {
		ok, seen := s.readable[ch.Repository]
		if !seen {
			ok = checker.CheckPermission(ctx, token, ch.Repository, github.PermPull)
			s.readable[ch.Repository] = ok
		}
		s.channels = append(s.channels, ChannelAccess{Channel: ch, Readable: ok})
	}
	return s
}

// Token returns the session's token; empty when anonymous.
func (s *Session) Token() github.Token {
	return s.token
}

// Anonymous reports whether the session has no token.
func (s *Session) Anonymous() bool {
	return s.token.Anonymous()
}

// CanRead reports whether repo was found readable when the session was created.
func (s *Session) CanRead(repo string) bool {
	return s.readable[repo]
}

// Channels returns every configured channel with its access flag.
func (s *Session) Channels() []ChannelAccess {
	out := make([]ChannelAccess, len(s.channels))
	copy(out, s.channels)
	return out
}

// Accessible returns the readable channels in configured order.
func (s *Session) Accessible() []catalog.Channel {
	var out []catalog.Channel
	for _, ch := range s.channels {
		if ch.Readable {
			out = append(out, ch.Channel)
		}
	}
	return out
}
