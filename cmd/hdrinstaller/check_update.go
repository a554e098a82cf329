// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"golang.org/x/mod/semver"

	"github.com/hdr-community/hdr-installer/internal/github"
)

// checkUpdateParams bundles the inputs of check-update so runCheckUpdate can
// be tested against a fake API.
type checkUpdateParams struct {
	stdout  io.Writer
	client  *github.Client
	token   github.Token
	repo    string
	current string
}

func newCheckUpdateCommand(app *App, flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "check-update",
		Short: "Check whether a newer hdr-installer release exists",
		Long: `Compare this build with the newest stable release of the installer's own
repository (app.repository in the configuration). Nothing is downloaded.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := app.prepare(cmd.Context(), flags, cmd.ErrOrStderr())
			if err != nil {
				return &ExitError{Code: ExitUsage, Err: err}
			}
			return runCheckUpdate(cmd.Context(), checkUpdateParams{
				stdout:  cmd.OutOrStdout(),
				client:  svc.client,
				token:   svc.token,
				repo:    svc.cfg.App.Repository,
				current: Version,
			})
		},
	}
}

func runCheckUpdate(ctx context.Context, p checkUpdateParams) error {
	latest, err := p.client.LatestRelease(ctx, p.token, p.repo)
	if err != nil {
		code := ExitTransport
		switch {
		case errors.Is(err, github.ErrReleaseNotFound):
			code = ExitDoesNotExist
		case errors.Is(err, github.ErrPermissionDenied):
			code = ExitAccessDenied
		}
		return &ExitError{Code: code, Err: fmt.Errorf("checking for updates: %w", err)}
	}

	current := github.CanonicalVersion(p.current)
	latestVersion := github.CanonicalVersion(latest.Tag)
	if !semver.IsValid(current) {
		fmt.Fprintf(p.stdout, "Latest release: %s %s\n", CmdStyle.Render(latest.Tag),
			SubtitleStyle.Render("(this is a development build)"))
		return nil
	}

	if semver.Compare(latestVersion, current) > 0 {
		fmt.Fprintf(p.stdout, "%s %s → %s\n", WarningStyle.Render("Update available:"),
			CmdStyle.Render(current), CmdStyle.Render(latestVersion))
		if latest.Name != "" && latest.Name != latest.Tag {
			fmt.Fprintln(p.stdout, SubtitleStyle.Render(latest.Name))
		}
		fmt.Fprintf(p.stdout, "Download it from https://github.com/%s/releases/tag/%s\n", p.repo, latest.Tag)
		return nil
	}

	fmt.Fprintf(p.stdout, "%s hdr-installer %s is up to date.\n", SuccessStyle.Render("✓"), current)
	return nil
}
