// SPDX-License-Identifier: MPL-2.0

// Package cmd contains all CLI commands for hdr-installer.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"

	"github.com/hdr-community/hdr-installer/internal/issue"
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
	// BuildDate is the build timestamp (set via -ldflags).
	BuildDate = "unknown"
)

// NewRootCommand builds the command tree. Running it without a subcommand
// opens the interactive browser.
func NewRootCommand(app *App) *cobra.Command {
	flags := &rootFlags{}

	rootCmd := &cobra.Command{
		Use:   "hdr-installer",
		Short: "Browse and install HDR releases from GitHub",
		Long: TitleStyle.Render("hdr-installer") + SubtitleStyle.Render(" - Browse and install HDR releases from GitHub") + `

hdr-installer lists the releases of the configured HDR channels, shows
their release notes and unpacks the one you pick into your install root.
Private channels need a GitHub token in oauth.txt or $HDR_INSTALLER_TOKEN.

` + SubtitleStyle.Render("Examples:") + `
  hdr-installer                          Browse channels interactively
  hdr-installer channels                 Show which channels you can read
  hdr-installer list "Install HDR-Beta"  List the releases of one channel
  hdr-installer install "Install HDR" v1.2.0 --yes
  hdr-installer config show              Show current configuration`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runBrowse(cmd.Context(), app, flags)
		},
	}

	rootCmd.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().StringVar(&flags.configPath, "config", "", "config file (default is $HOME/.config/hdr-installer/config.cue)")
	rootCmd.PersistentFlags().StringVar(&flags.installRoot, "install-root", "", "directory releases are installed into (overrides install_root)")

	rootCmd.AddCommand(
		newBrowseCommand(app, flags),
		newChannelsCommand(app, flags),
		newListCommand(app, flags),
		newInstallCommand(app, flags),
		newConfigCommand(app, flags),
		newCheckUpdateCommand(app, flags),
	)
	return rootCmd
}

// getVersionString returns a formatted version string for display.
func getVersionString() string {
	if Version == "dev" {
		return "dev (built from source)"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
}

// Execute runs the CLI. This is called by main.main().
func Execute() {
	rootCmd := NewRootCommand(NewApp(Dependencies{}))
	if err := fang.Execute(
		context.Background(),
		rootCmd,
		fang.WithVersion(getVersionString()),
		fang.WithNotifySignal(os.Interrupt),
		fang.WithErrorHandler(handleError),
	); err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.Code)
		}
		os.Exit(ExitUsage)
	}
}

// handleError prints errors the commands have not already reported.
func handleError(w io.Writer, styles fang.Styles, err error) {
	var exitErr *ExitError
	if errors.As(err, &exitErr) && (exitErr.reported || exitErr.Err == nil) {
		return
	}
	var ae *issue.ActionableError
	if errors.As(err, &ae) {
		fmt.Fprintln(w, ErrorStyle.Render("Error: ")+ae.Format(false))
		return
	}
	fang.DefaultErrorHandler(w, styles, err)
}

// formatErrorForDisplay formats an error for user display.
// If the error is an ActionableError, it uses the Format method.
// In verbose mode, shows the full error chain.
func formatErrorForDisplay(err error, verboseMode bool) string {
	var ae *issue.ActionableError
	if errors.As(err, &ae) {
		return ae.Format(verboseMode)
	}
	return err.Error()
}

// reportError prints err to w and marks it reported so Execute stays quiet.
func reportError(w io.Writer, code int, err error, verbose bool) error {
	fmt.Fprintln(w, ErrorStyle.Render("Error: ")+formatErrorForDisplay(err, verbose))
	return &ExitError{Code: code, Err: err, reported: true}
}
