// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hdr-community/hdr-installer/internal/catalog"
	"github.com/hdr-community/hdr-installer/internal/navtree"
)

type (
	listParams struct {
		stdout  io.Writer
		svc     *services
		channel string
		json    bool
	}

	listedRelease struct {
		Title string `json:"title"`
		Tag   string `json:"tag"`
	}

	listedChannel struct {
		Title      string          `json:"title"`
		Repository string          `json:"repository"`
		Releases   []listedRelease `json:"releases"`
		Message    string          `json:"message,omitempty"`
	}
)

func newListCommand(app *App, flags *rootFlags) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "list [channel]",
		Short: "List the releases of readable channels",
		Long: `List the releases of every readable channel, newest first, or of a single
channel given by title or repository.`,
		Example: `  hdr-installer list
  hdr-installer list "Install HDR-Beta"
  hdr-installer list blu-dev/HDR-Release-Builds --json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := app.prepare(cmd.Context(), flags, cmd.ErrOrStderr())
			if err != nil {
				return &ExitError{Code: ExitUsage, Err: err}
			}
			p := listParams{stdout: cmd.OutOrStdout(), svc: svc, json: asJSON}
			if len(args) == 1 {
				p.channel = args[0]
			}
			return runList(cmd.Context(), p)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print machine-readable JSON")
	return cmd
}

func runList(ctx context.Context, p listParams) error {
	channels := p.svc.cfg.Channels
	if p.channel != "" {
		ch, ok := findChannel(channels, p.channel)
		if !ok {
			return &ExitError{Code: ExitUsage, Err: fmt.Errorf("unknown channel %q", p.channel)}
		}
		channels = []catalog.Channel{ch}
	}

	sess := p.svc.openSession(ctx)
	t := navtree.New[catalog.Payload]()
	defer t.Destroy(t.Root())
	catalog.Build(ctx, t, &catalog.Env{}, sess, p.svc.client, channels, p.svc.cfg.RootTitle)

	// Build attaches one node per readable channel, in order.
	var listed []listedChannel
	nodes := t.Children(t.Root())
	for _, ch := range channels {
		if !sess.CanRead(ch.Repository) || len(nodes) == 0 {
			continue
		}
		id := nodes[0]
		nodes = nodes[1:]

		lc := listedChannel{Title: ch.Title, Repository: ch.Repository, Releases: []listedRelease{}}
		for _, d := range catalog.Releases(t, id) {
			lc.Releases = append(lc.Releases, listedRelease{Title: d.Title(), Tag: d.Download().Tag})
		}
		if payload, ok := t.Payload(id); ok {
			if empty, ok := payload.(*catalog.Empty); ok {
				lc.Message = empty.Message()
			}
		}
		listed = append(listed, lc)
	}

	if p.json {
		if listed == nil {
			listed = []listedChannel{}
		}
		data, err := json.MarshalIndent(listed, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(p.stdout, string(data))
		return err
	}

	if len(listed) == 0 {
		fmt.Fprintln(p.stdout, WarningStyle.Render(catalog.NoChannelsMessage))
		return nil
	}
	for i, lc := range listed {
		if i > 0 {
			fmt.Fprintln(p.stdout)
		}
		fmt.Fprintf(p.stdout, "%s %s\n", TitleStyle.Render(lc.Title), SubtitleStyle.Render("("+lc.Repository+")"))
		if len(lc.Releases) == 0 {
			fmt.Fprintln(p.stdout, "  "+SubtitleStyle.Render(lc.Message))
			continue
		}
		for _, r := range lc.Releases {
			fmt.Fprintf(p.stdout, "  %s  %s\n", CmdStyle.Render(r.Tag), r.Title)
		}
	}
	return nil
}

// findChannel matches a channel by title, case-insensitively, or by repository.
func findChannel(channels []catalog.Channel, name string) (catalog.Channel, bool) {
	for _, ch := range channels {
		if strings.EqualFold(ch.Title, name) || strings.EqualFold(ch.Repository, name) {
			return ch, true
		}
	}
	return catalog.Channel{}, false
}
