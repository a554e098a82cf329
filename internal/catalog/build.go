// SPDX-License-Identifier: MPL-2.0

package catalog

import (
	"context"

	"github.com/charmbracelet/log"

	"github.com/hdr-community/hdr-installer/internal/github"
	"github.com/hdr-community/hdr-installer/internal/navtree"
)

// NoChannelsMessage is shown at the root when no channel is readable.
const NoChannelsMessage = "No channels are available. Check your token and configured repositories."

// DefaultEmptyMessage is shown for a channel without releases that sets no
// empty_message of its own.
const DefaultEmptyMessage = "No releases are available."

type (
	// Channel is a release stream offered at the top level.
	Channel struct {
		Title        string `json:"title" toml:"title" mapstructure:"title"`
		Repository   string `json:"repository" toml:"repository" mapstructure:"repository"`
		EmptyMessage string `json:"empty_message,omitempty" toml:"empty_message,omitempty" mapstructure:"empty_message"`
	}

	// Access answers which repositories the current user may read.
	Access interface {
		Token() github.Token
		CanRead(repo string) bool
	}

	// Lister lists the releases of a repository.
	Lister interface {
		ListReleases(ctx context.Context, token github.Token, repo string) ([]github.Release, error)
	}
)

// Build fills t below its root: one child per readable channel, a Menu of
// releases with one Downloadable per release, or an Empty node when the
// channel has none. The root becomes a Menu over the channel titles, or an
// Empty node titled rootTitle when nothing is readable. It returns the number
// of channels attached.
//
// A listing failure is logged and the channel shown as empty.
func Build(ctx context.Context, t *Tree, env *Env, access Access, lister Lister, channels []Channel, rootTitle string) int {
	logger := log.Default().WithPrefix("catalog")
	root := t.Root()
	token := access.Token()

	var titles []string
	for _, ch := range channels {
		if !access.CanRead(ch.Repository) {
			logger.Debug("channel not readable", "channel", ch.Title, "repo", ch.Repository)
			continue
		}

		releases, err := lister.ListReleases(ctx, token, ch.Repository)
		if err != nil {
			logger.Warn("listing releases failed", "repo", ch.Repository, "err", err)
			releases = nil
		}

		id, ok := t.SpawnChild(root)
		if !ok {
			break
		}
		titles = append(titles, ch.Title)

		if len(releases) == 0 {
			msg := ch.EmptyMessage
			if msg == "" {
				msg = DefaultEmptyMessage
			}
			MakeEmpty(t, id, env, ch.Title, msg)
			continue
		}

		names := make([]string, 0, len(releases))
		for _, r := range releases {
			child, ok := t.SpawnChild(id)
			if !ok {
				break
			}
			names = append(names, r.Name)
			MakeDownloadable(t, child, env, r.Name, r.Body, Download{
				Token:      token,
				Repository: ch.Repository,
				Tag:        r.Tag,
			})
		}
		MakeMenu(t, id, env, ch.Title, names)
	}

	if len(titles) == 0 {
		MakeEmpty(t, root, env, rootTitle, NoChannelsMessage)
		return 0
	}
	MakeMenu(t, root, env, rootTitle, titles)
	return len(titles)
}

// Releases returns the Downloadable children of a channel Menu in order.
func Releases(t *Tree, channel navtree.NodeID) []*Downloadable {
	var out []*Downloadable
	for _, c := range t.Children(channel) {
		if p, _ := t.Payload(c); p != nil {
			if d, ok := p.(*Downloadable); ok {
				out = append(out, d)
			}
		}
	}
	return out
}
