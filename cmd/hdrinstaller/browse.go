// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/hdr-community/hdr-installer/internal/catalog"
	"github.com/hdr-community/hdr-installer/internal/config"
	"github.com/hdr-community/hdr-installer/internal/issue"
	"github.com/hdr-community/hdr-installer/internal/navtree"
	"github.com/hdr-community/hdr-installer/internal/tui"
)

// logFileName receives browser logs in verbose mode. The alternate screen
// owns the terminal while browsing.
const logFileName = "hdr-installer.log"

func newBrowseCommand(app *App, flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "browse",
		Short: "Browse channels and install releases interactively",
		Long: `Open the interactive browser. Pick a channel, then a release to read its
notes and install it. Up/down move, enter selects, esc goes back, q quits.

This is also what runs when hdr-installer is started without a command.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runBrowse(cmd.Context(), app, flags)
		},
	}
}

func runBrowse(ctx context.Context, app *App, flags *rootFlags) error {
	if !tui.IsInteractive() {
		return &ExitError{Code: ExitUsage, Err: issue.NewErrorContext().
			WithOperation("start browser").
			WithIssue(issue.NotInteractiveId).
			WithSuggestions("Run hdr-installer from a terminal", "Use 'hdr-installer list' and 'hdr-installer install' in scripts").
			Wrap(tui.ErrNotInteractive).
			BuildError()}
	}

	cfg, verbose, err := app.loadConfig(ctx, flags)
	if err != nil {
		return &ExitError{Code: ExitUsage, Err: err}
	}

	logOut, closeLog, err := browseLogOutput(verbose)
	if err != nil {
		return &ExitError{Code: ExitUsage, Err: err}
	}
	defer closeLog()

	svc, err := app.newServices(cfg, verbose, logOut)
	if err != nil {
		return &ExitError{Code: ExitUsage, Err: err}
	}
	pipeline, err := svc.pipeline()
	if err != nil {
		return &ExitError{Code: ExitUsage, Err: err}
	}

	sess := svc.openSession(ctx)
	t := navtree.New[catalog.Payload]()
	defer func() {
		if !t.Destroy(t.Root()) {
			svc.logger.Warn("catalog tree was not released")
		}
	}()

	env := &catalog.Env{Acquirer: pipeline}
	n := catalog.Build(ctx, t, env, sess, svc.client, cfg.Channels, cfg.RootTitle)
	svc.logger.Info("catalog ready", "channels", n, "anonymous", sess.Anonymous())

	browser := tui.NewBrowser(ctx, navtree.NewCursor(t, t.Root()), env, tui.Options{
		Status:     svc.describeSession(),
		NotesStyle: cfg.UI.ColorScheme.String(),
		Logger:     svc.logger.WithPrefix("browser"),
	})

	_, err = tea.NewProgram(browser, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	// A signal can end the program mid-download; the tree must not be
	// destroyed while the acquisition still runs a focus callback.
	browser.Wait()
	if err != nil && !(errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil) {
		return &ExitError{Code: ExitUsage, Err: err}
	}
	return nil
}

// browseLogOutput returns where browser logs go: a file in the config
// directory when verbose, nowhere otherwise.
func browseLogOutput(verbose bool) (io.Writer, func(), error) {
	if !verbose {
		return io.Discard, func() {}, nil
	}
	dir, err := config.ConfigDir()
	if err != nil {
		return nil, nil, err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, nil, err
	}
	f, err := os.OpenFile(filepath.Join(dir, logFileName), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, nil, err
	}
	return f, func() { _ = f.Close() }, nil
}
