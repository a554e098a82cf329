// SPDX-License-Identifier: MPL-2.0

package catalog

import (
	"context"
	"slices"

	"github.com/hdr-community/hdr-installer/internal/acquire"
	"github.com/hdr-community/hdr-installer/internal/navtree"
)

// Kind identifies which payload variant a node carries.
type Kind int

const (
	// KindNone is reported for dead handles and nodes without a payload.
	KindNone Kind = iota
	KindMenu
	KindDownloadable
	KindEmpty
)

type (
	// Payload is implemented by *Menu, *Downloadable and *Empty only.
	Payload interface {
		Kind() Kind
		Title() string
		payload()
	}

	// Tree is the navigation tree over catalog payloads.
	Tree = navtree.Tree[Payload]

	// Cursor walks a catalog Tree.
	Cursor = navtree.Cursor[Payload]

	// Download identifies one release to acquire.
	Download = acquire.Descriptor

	// Menu is a titled list of entries. Entry i labels child i of the node.
	Menu struct {
		title    string
		entries  []string
		selected int
	}

	// Downloadable is a release whose focus downloads and installs it.
	Downloadable struct {
		title    string
		body     string
		download Download
	}

	// Empty stands in for a channel with nothing to offer.
	Empty struct {
		title   string
		message string
	}

	// Screen receives what a focused node wants shown.
	Screen interface {
		Title(title string)
		Entry(label string, selected bool)
		Message(text string)
		// Notes receives release notes in markdown.
		Notes(markdown string)
		Report(title string, res acquire.Result)
	}

	// Acquirer runs an acquisition to completion. *acquire.Pipeline
	// satisfies it.
	Acquirer interface {
		Acquire(ctx context.Context, d acquire.Descriptor, progress acquire.Progress) acquire.Result
	}

	// Env is what focus callbacks render into and acquire with.
	Env struct {
		Screen   Screen
		Acquirer Acquirer
		Progress acquire.Progress
	}
)

func (k Kind) String() string {
	switch k {
	case KindMenu:
		return "menu"
	case KindDownloadable:
		return "downloadable"
	case KindEmpty:
		return "empty"
	default:
		return "none"
	}
}

func (*Menu) Kind() Kind         { return KindMenu }
func (*Downloadable) Kind() Kind { return KindDownloadable }
func (*Empty) Kind() Kind        { return KindEmpty }

func (m *Menu) Title() string         { return m.title }
func (d *Downloadable) Title() string { return d.title }
func (e *Empty) Title() string        { return e.title }

func (*Menu) payload()         {}
func (*Downloadable) payload() {}
func (*Empty) payload()        {}

// Body returns the release notes.
func (d *Downloadable) Body() string { return d.body }

// Download returns the descriptor the node acquires.
func (d *Downloadable) Download() Download { return d.download }

// Message returns the placeholder text.
func (e *Empty) Message() string { return e.message }

// MakeMenu turns id into a Menu with the first entry selected.
func MakeMenu(t *Tree, id navtree.NodeID, env *Env, title string, entries []string) bool {
	m := &Menu{title: title, entries: slices.Clone(entries)}
	return attach(t, id, env, m)
}

// MakeDownloadable turns id into a Downloadable for d.
func MakeDownloadable(t *Tree, id navtree.NodeID, env *Env, title, body string, d Download) bool {
	return attach(t, id, env, &Downloadable{title: title, body: body, download: d})
}

// MakeEmpty turns id into an Empty placeholder.
func MakeEmpty(t *Tree, id navtree.NodeID, env *Env, title, message string) bool {
	return attach(t, id, env, &Empty{title: title, message: message})
}

func attach(t *Tree, id navtree.NodeID, env *Env, p Payload) bool {
	return t.Attach(id, p, func(ctx context.Context, t *Tree, id navtree.NodeID) {
		focusPayload(ctx, env, t, id)
	}, destroyPayload)
}

// KindOf reports the payload variant of id.
func KindOf(t *Tree, id navtree.NodeID) Kind {
	p, ok := t.Payload(id)
	if !ok || p == nil {
		return KindNone
	}
	return p.Kind()
}

// TitleOf returns the title of id's payload, or "" when it has none.
func TitleOf(t *Tree, id navtree.NodeID) string {
	p, ok := t.Payload(id)
	if !ok || p == nil {
		return ""
	}
	return p.Title()
}

func menuOf(t *Tree, id navtree.NodeID) *Menu {
	p, _ := t.Payload(id)
	m, _ := p.(*Menu)
	return m
}

// MenuSelect selects entry n modulo the entry count; negative n counts from
// the end. It reports false and changes nothing when id is not a Menu or the
// Menu has no entries.
func MenuSelect(t *Tree, id navtree.NodeID, n int) bool {
	m := menuOf(t, id)
	if m == nil || len(m.entries) == 0 {
		return false
	}
	k := len(m.entries)
	m.selected = ((n % k) + k) % k
	return true
}

// MenuMove moves the selection by delta, wrapping at either end.
func MenuMove(t *Tree, id navtree.NodeID, delta int) bool {
	m := menuOf(t, id)
	if m == nil {
		return false
	}
	return MenuSelect(t, id, m.selected+delta)
}

// MenuSelected returns the selected index of a Menu.
func MenuSelected(t *Tree, id navtree.NodeID) (int, bool) {
	m := menuOf(t, id)
	if m == nil {
		return 0, false
	}
	return m.selected, true
}

// MenuEntryCount returns the number of entries, or 0 when id is not a Menu.
func MenuEntryCount(t *Tree, id navtree.NodeID) int {
	if m := menuOf(t, id); m != nil {
		return len(m.entries)
	}
	return 0
}

// MenuEntries returns a copy of a Menu's entries.
func MenuEntries(t *Tree, id navtree.NodeID) []string {
	if m := menuOf(t, id); m != nil {
		return slices.Clone(m.entries)
	}
	return nil
}
