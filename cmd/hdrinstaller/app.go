// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"path/filepath"

	"github.com/charmbracelet/log"

	"github.com/hdr-community/hdr-installer/internal/acquire"
	"github.com/hdr-community/hdr-installer/internal/config"
	"github.com/hdr-community/hdr-installer/internal/github"
	"github.com/hdr-community/hdr-installer/internal/issue"
	"github.com/hdr-community/hdr-installer/internal/session"
	"github.com/hdr-community/hdr-installer/internal/tui"
)

type (
	// ConfirmFunc asks the user a yes/no question.
	ConfirmFunc func(title, description string) (bool, error)

	// Dependencies holds the services the CLI is built from. Zero fields get
	// production defaults.
	Dependencies struct {
		Config     config.Provider
		HTTPClient *http.Client
		Confirm    ConfirmFunc
	}

	// App is the CLI composition root.
	App struct {
		Config     config.Provider
		HTTPClient *http.Client
		Confirm    ConfirmFunc
	}

	// rootFlags are the persistent flags shared by every command.
	rootFlags struct {
		configPath  string
		installRoot string
		verbose     bool
	}

	// services is what a single command invocation works with.
	services struct {
		cfg     *config.Config
		verbose bool
		logger  *log.Logger
		client  *github.Client
		token   github.Token
		source  session.TokenSource
	}
)

// NewApp wires the CLI services.
func NewApp(deps Dependencies) *App {
	if deps.Config == nil {
		deps.Config = config.NewProvider()
	}
	if deps.Confirm == nil {
		deps.Confirm = tui.Confirm
	}
	return &App{
		Config:     deps.Config,
		HTTPClient: deps.HTTPClient,
		Confirm:    deps.Confirm,
	}
}

// loadConfig reads configuration and applies the command-line overrides.
// The returned flag is the effective verbosity.
func (a *App) loadConfig(ctx context.Context, flags *rootFlags) (*config.Config, bool, error) {
	cfg, err := a.Config.Load(ctx, config.LoadOptions{ConfigFilePath: flags.configPath})
	if err != nil {
		return nil, flags.verbose, err
	}
	if flags.installRoot != "" {
		root, err := filepath.Abs(flags.installRoot)
		if err != nil {
			return nil, flags.verbose, issue.NewErrorContext().
				WithOperation("resolve install root").
				WithResource(flags.installRoot).
				Wrap(err).
				BuildError()
		}
		cfg.InstallRoot = root
	}
	return cfg, flags.verbose || cfg.UI.Verbose, nil
}

// newServices builds the logger, API client and token for one command. Logs
// go to logOut. The logger also becomes the package default so helpers that
// log through log.Default() share its level and destination.
func (a *App) newServices(cfg *config.Config, verbose bool, logOut io.Writer) (*services, error) {
	logger := newLogger(logOut, verbose)
	log.SetDefault(logger)

	ua := cfg.API.UserAgent
	if ua == "" {
		ua = "hdr-installer/" + Version
	}
	opts := []github.ClientOption{
		github.WithBaseURL(cfg.API.BaseURL),
		github.WithUserAgent(ua),
		github.WithLogger(logger.WithPrefix("github")),
	}
	if a.HTTPClient != nil {
		opts = append(opts, github.WithHTTPClient(a.HTTPClient), github.WithDownloadClient(a.HTTPClient))
	}

	token, source, err := session.LoadTokenWithSource(cfg.TokenFile)
	if err != nil {
		return nil, issue.NewErrorContext().
			WithOperation("read token").
			WithResource(cfg.TokenFile).
			WithIssue(issue.TokenInvalidId).
			WithSuggestion("Check the token file permissions or remove it to continue anonymously").
			Wrap(err).
			BuildError()
	}

	return &services{
		cfg:     cfg,
		verbose: verbose,
		logger:  logger,
		client:  github.NewClient(opts...),
		token:   token,
		source:  source,
	}, nil
}

// prepare is loadConfig followed by newServices.
func (a *App) prepare(ctx context.Context, flags *rootFlags, logOut io.Writer) (*services, error) {
	cfg, verbose, err := a.loadConfig(ctx, flags)
	if err != nil {
		return nil, err
	}
	return a.newServices(cfg, verbose, logOut)
}

func newLogger(w io.Writer, verbose bool) *log.Logger {
	level := log.WarnLevel
	if verbose {
		level = log.DebugLevel
	}
	return log.NewWithOptions(w, log.Options{
		Level:           level,
		ReportTimestamp: verbose,
	})
}

// openSession checks read access to every configured channel.
func (s *services) openSession(ctx context.Context) *session.Session {
	return session.New(ctx, s.client, s.token, s.cfg.Channels)
}

// pipeline returns an acquisition pipeline rooted at the configured install root.
func (s *services) pipeline() (*acquire.Pipeline, error) {
	p, err := acquire.NewPipeline(s.client, s.cfg.InstallRoot,
		acquire.WithLogger(s.logger.WithPrefix("acquire")),
		acquire.WithMinisignKey(s.cfg.Verify.MinisignPublicKey),
		acquire.WithRequireChecksums(s.cfg.Verify.RequireChecksums),
		acquire.WithProgressInterval(s.cfg.UI.ProgressInterval()),
	)
	if err != nil {
		return nil, issue.NewErrorContext().
			WithOperation("prepare installer").
			WithResource(s.cfg.InstallRoot).
			WithIssue(issue.ConfigLoadFailedId).
			Wrap(err).
			BuildError()
	}
	return p, nil
}

// describeSession is the one-line session summary shown by browse and channels.
func (s *services) describeSession() string {
	if s.token.Anonymous() {
		return fmt.Sprintf("anonymous · install root: %s", s.cfg.InstallRoot)
	}
	return fmt.Sprintf("authenticated (%s) · install root: %s", s.source, s.cfg.InstallRoot)
}
