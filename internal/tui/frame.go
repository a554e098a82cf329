// SPDX-License-Identifier: MPL-2.0

package tui

import (
	"strings"
	"sync"

	"github.com/hdr-community/hdr-installer/internal/acquire"
	"github.com/hdr-community/hdr-installer/internal/catalog"

	"github.com/charmbracelet/glamour"
)

// renderMarkdown is swapped out in tests.
var renderMarkdown = func(md, style string, width int) (string, error) {
	opts := []glamour.TermRendererOption{glamour.WithStylePath(style)}
	if width > 0 {
		opts = append(opts, glamour.WithWordWrap(width))
	}
	r, err := glamour.NewTermRenderer(opts...)
	if err != nil {
		return "", err
	}
	return r.Render(md)
}

type (
	entry struct {
		label    string
		selected bool
	}

	// frame collects what one focus draws. It is written by focus callbacks,
	// which for a Downloadable run off the update loop, and read by View.
	frame struct {
		mu          sync.Mutex
		title       string
		entries     []entry
		message     string
		notes       string
		reportTitle string
		result      *acquire.Result
	}

	// frameSnapshot is a consistent copy of a frame for rendering.
	frameSnapshot struct {
		title       string
		entries     []entry
		message     string
		notes       string
		reportTitle string
		result      *acquire.Result
	}
)

var _ catalog.Screen = (*frame)(nil)

func (f *frame) Title(title string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.title = title
}

func (f *frame) Entry(label string, selected bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, entry{label: label, selected: selected})
}

func (f *frame) Message(text string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.message = text
}

func (f *frame) Notes(markdown string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.notes = markdown
}

func (f *frame) Report(title string, res acquire.Result) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reportTitle = title
	f.result = &res
}

func (f *frame) reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.title, f.message, f.notes, f.reportTitle = "", "", "", ""
	f.entries = f.entries[:0]
	f.result = nil
}

func (f *frame) snapshot() frameSnapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return frameSnapshot{
		title:       f.title,
		entries:     append([]entry(nil), f.entries...),
		message:     f.message,
		notes:       f.notes,
		reportTitle: f.reportTitle,
		result:      f.result,
	}
}

// render draws a browsing frame: title, entries or message, then notes.
func (s frameSnapshot) render(st Styles, notes string) string {
	var b strings.Builder
	b.WriteString(st.Title.Render(s.title))
	b.WriteString("\n")
	for _, e := range s.entries {
		if e.selected {
			b.WriteString(st.Selected.Render("> " + e.label))
		} else {
			b.WriteString(st.Entry.Render(e.label))
		}
		b.WriteString("\n")
	}
	if s.message != "" {
		b.WriteString(st.Message.Render(s.message))
		b.WriteString("\n")
	}
	if notes != "" {
		b.WriteString("\n")
		b.WriteString(notes)
	}
	return b.String()
}
