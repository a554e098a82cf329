// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/hdr-community/hdr-installer/internal/session"
)

// Channel access labels.
const (
	accessReadable  = "readable"
	accessDenied    = "denied"
	accessAnonymous = "anonymous"
)

type channelsParams struct {
	stdout io.Writer
	svc    *services
}

func newChannelsCommand(app *App, flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "channels",
		Short: "Show the configured channels and whether you can read them",
		Long: `List every configured channel with its repository and access state:

  readable   releases can be listed and installed
  denied     the token does not grant read access
  anonymous  no token is configured and the repository is not public`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := app.prepare(cmd.Context(), flags, cmd.ErrOrStderr())
			if err != nil {
				return &ExitError{Code: ExitUsage, Err: err}
			}
			return runChannels(cmd.Context(), channelsParams{stdout: cmd.OutOrStdout(), svc: svc})
		},
	}
}

func runChannels(ctx context.Context, p channelsParams) error {
	sess := p.svc.openSession(ctx)

	fmt.Fprintln(p.stdout, TitleStyle.Render("Channels"))
	fmt.Fprintln(p.stdout, SubtitleStyle.Render(p.svc.describeSession()))
	fmt.Fprintln(p.stdout)

	width := 0
	for _, ch := range sess.Channels() {
		width = max(width, len(ch.Title))
	}
	for _, ch := range sess.Channels() {
		label := channelAccessLabel(ch, sess.Anonymous())
		style := SuccessStyle
		if label != accessReadable {
			style = WarningStyle
		}
		fmt.Fprintf(p.stdout, "  %-*s  %s  %s\n", width, ch.Title, CmdStyle.Render(ch.Repository), style.Render(label))
	}

	if len(sess.Accessible()) == 0 {
		fmt.Fprintln(p.stdout)
		fmt.Fprintln(p.stdout, WarningStyle.Render("No channel is readable."))
		if sess.Anonymous() {
			fmt.Fprintln(p.stdout, SubtitleStyle.Render("Put a GitHub token in the token file or $HDR_INSTALLER_TOKEN to see private channels."))
		}
	}
	return nil
}

func channelAccessLabel(ch session.ChannelAccess, anonymous bool) string {
	switch {
	case ch.Readable:
		return accessReadable
	case anonymous:
		return accessAnonymous
	default:
		return accessDenied
	}
}
