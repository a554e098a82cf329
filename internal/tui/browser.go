// SPDX-License-Identifier: MPL-2.0

package tui

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/hdr-community/hdr-installer/internal/acquire"
	"github.com/hdr-community/hdr-installer/internal/catalog"
	"github.com/hdr-community/hdr-installer/internal/navtree"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
)

const (
	tickInterval = 100 * time.Millisecond
	maxBarWidth  = 60
)

// State is the browser's interaction mode.
type State int

const (
	// StateBrowsing moves through menus.
	StateBrowsing State = iota
	// StateAcquiring shows progress while a Downloadable focus runs.
	StateAcquiring
	// StateReporting shows the outcome until a key is pressed.
	StateReporting
)

type (
	tickMsg            time.Time
	acquisitionDoneMsg struct{}

	// Options configure a Browser.
	Options struct {
		// Status is shown on the bottom line, e.g. the session and install root.
		Status string
		// NotesStyle is the glamour style for release notes ("auto", "dark",
		// "light" or "notty").
		NotesStyle string
		Logger     *log.Logger
	}

	// Browser is the bubbletea model driving a catalog cursor.
	Browser struct {
		ctx    context.Context
		cursor *catalog.Cursor
		frame  *frame
		prog   *progressState
		keys   keyMap
		help   help.Model
		spin   spinner.Model
		bar    progress.Model
		styles Styles
		logger *log.Logger

		status     string
		notesStyle string

		state          State
		width          int
		acquiringTitle string
		cancelAcquire  context.CancelFunc
		acquireDone    chan struct{}
		quitAfter      bool
		quitting       bool

		notesSource string
		notesWidth  int
		notesCache  string
	}
)

// NewBrowser returns a browser over cursor. It installs its own screen and
// progress into env, which must be the Env the tree's payloads were made
// with, and draws the cursor's current node.
func NewBrowser(ctx context.Context, cursor *catalog.Cursor, env *catalog.Env, opts Options) *Browser {
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard)
	}
	if opts.NotesStyle == "" {
		opts.NotesStyle = "auto"
	}
	styles := DefaultStyles()

	spin := spinner.New()
	spin.Spinner = spinner.Dot
	spin.Style = styles.Spinner

	b := &Browser{
		ctx:        ctx,
		cursor:     cursor,
		frame:      &frame{},
		prog:       &progressState{},
		keys:       defaultKeyMap(),
		help:       help.New(),
		spin:       spin,
		bar:        progress.New(progress.WithDefaultGradient(), progress.WithWidth(40)),
		styles:     styles,
		logger:     opts.Logger,
		status:     opts.Status,
		notesStyle: opts.NotesStyle,
	}
	env.Screen = b.frame
	env.Progress = b.prog
	b.refocus()
	return b
}

// State returns the current interaction mode.
func (b *Browser) State() State { return b.state }

// Init implements tea.Model.
func (b *Browser) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (b *Browser) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		b.width = msg.Width
		b.help.Width = msg.Width
		b.bar.Width = min(max(msg.Width-4, 10), maxBarWidth)
		return b, nil

	case tea.KeyMsg:
		return b.handleKey(msg)

	case tickMsg:
		if b.state == StateAcquiring {
			return b, tick()
		}
		return b, nil

	case spinner.TickMsg:
		if b.state != StateAcquiring {
			return b, nil
		}
		var cmd tea.Cmd
		b.spin, cmd = b.spin.Update(msg)
		return b, cmd

	case acquisitionDoneMsg:
		b.state = StateReporting
		if b.cancelAcquire != nil {
			b.cancelAcquire()
			b.cancelAcquire = nil
		}
		if snap := b.frame.snapshot(); snap.result != nil {
			b.logger.Info("acquisition finished", "release", snap.reportTitle, "outcome", snap.result.Outcome)
		}
		if b.quitAfter {
			b.quitting = true
			return b, tea.Quit
		}
		return b, nil
	}

	return b, nil
}

func (b *Browser) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch b.state {
	case StateAcquiring:
		if key.Matches(msg, b.keys.Cancel) {
			b.logger.Debug("cancel requested")
			b.prog.requestCancel()
			if b.cancelAcquire != nil {
				b.cancelAcquire()
			}
			if msg.String() == "ctrl+c" {
				b.quitAfter = true
			}
		}
		return b, nil

	case StateReporting:
		if msg.String() == "ctrl+c" {
			b.quitting = true
			return b, tea.Quit
		}
		b.state = StateBrowsing
		b.cursor.ShiftFocusByIndex(navtree.ParentIndex)
		b.refocus()
		return b, nil
	}

	t := b.cursor.Tree()
	cur := b.cursor.Current()
	switch {
	case key.Matches(msg, b.keys.Quit):
		b.quitting = true
		return b, tea.Quit
	case key.Matches(msg, b.keys.Up):
		if catalog.MenuMove(t, cur, -1) {
			b.refocus()
		}
	case key.Matches(msg, b.keys.Down):
		if catalog.MenuMove(t, cur, 1) {
			b.refocus()
		}
	case key.Matches(msg, b.keys.Select):
		return b, b.enter()
	case key.Matches(msg, b.keys.Back):
		if b.cursor.ShiftFocusByIndex(navtree.ParentIndex) {
			b.refocus()
		}
	}
	return b, nil
}

// enter descends into the selected entry of the current Menu.
func (b *Browser) enter() tea.Cmd {
	t := b.cursor.Tree()
	cur := b.cursor.Current()
	if catalog.MenuEntryCount(t, cur) == 0 {
		return nil
	}
	sel, _ := catalog.MenuSelected(t, cur)
	if !b.cursor.ShiftFocusByIndex(sel) {
		return nil
	}
	if catalog.KindOf(t, b.cursor.Current()) == catalog.KindDownloadable {
		return b.startAcquisition()
	}
	b.refocus()
	return nil
}

// startAcquisition focuses the current Downloadable on a goroutine. Until
// acquisitionDoneMsg arrives the update loop must not touch the tree.
func (b *Browser) startAcquisition() tea.Cmd {
	b.state = StateAcquiring
	b.quitAfter = false
	b.acquiringTitle = catalog.TitleOf(b.cursor.Tree(), b.cursor.Current())
	b.prog.reset()
	b.frame.reset()

	ctx, cancel := context.WithCancel(b.ctx)
	b.cancelAcquire = cancel
	cursor := b.cursor
	b.logger.Debug("acquisition started", "release", b.acquiringTitle)

	done := make(chan struct{})
	b.acquireDone = done
	go func() {
		defer close(done)
		cursor.Focus(ctx)
	}()

	wait := func() tea.Msg {
		<-done
		return acquisitionDoneMsg{}
	}
	return tea.Batch(wait, b.spin.Tick, tick())
}

// Wait cancels an acquisition that is still running and blocks until it
// has returned. Call it after the program exits and before the tree is
// destroyed.
func (b *Browser) Wait() {
	if b.cancelAcquire != nil {
		b.cancelAcquire()
	}
	if b.acquireDone != nil {
		<-b.acquireDone
	}
}

// refocus redraws the frame from the current node. Downloadable nodes are
// only focused through startAcquisition.
func (b *Browser) refocus() {
	b.frame.reset()
	if catalog.KindOf(b.cursor.Tree(), b.cursor.Current()) == catalog.KindDownloadable {
		return
	}
	b.cursor.Focus(b.ctx)
}

func tick() tea.Cmd {
	return tea.Tick(tickInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// View implements tea.Model.
func (b *Browser) View() string {
	if b.quitting {
		return ""
	}

	var body string
	switch b.state {
	case StateAcquiring:
		body = b.viewAcquiring()
	case StateReporting:
		body = b.viewReport()
	default:
		snap := b.frame.snapshot()
		body = snap.render(b.styles, b.renderNotes(snap.notes)) + "\n" + b.help.View(b.keys)
	}

	if b.status != "" {
		body += "\n" + b.styles.Status.Render(b.status)
	}
	return body
}

func (b *Browser) viewAcquiring() string {
	snap := b.prog.snapshot()

	var sb strings.Builder
	sb.WriteString(b.styles.Title.Render(b.acquiringTitle))
	sb.WriteString("\n")
	sb.WriteString("Downloading... Please be patient\n\n")
	if snap.count > 1 {
		fmt.Fprintf(&sb, "Downloading multiple files... (%d/%d)\n", snap.index+1, snap.count)
	}

	fmt.Fprintf(&sb, "%s %s", b.spin.View(), stageText(snap.stage))
	if snap.asset != "" {
		sb.WriteString(" " + b.styles.Subtle.Render(snap.asset))
	}
	sb.WriteString("\n")

	if snap.stage == acquire.StageDownloading {
		sb.WriteString(b.bar.ViewAs(snap.fraction()))
		if snap.total > 0 {
			fmt.Fprintf(&sb, "  %s / %s", FormatBytes(snap.done), FormatBytes(snap.total))
		} else if snap.done > 0 {
			fmt.Fprintf(&sb, "  %s", FormatBytes(snap.done))
		}
		sb.WriteString("\n")
	}

	sb.WriteString("\n")
	if snap.cancel {
		sb.WriteString(b.styles.Subtle.Render("Cancelling..."))
	} else {
		sb.WriteString(b.help.View(acquiringHelp{k: b.keys}))
	}
	return sb.String()
}

func (b *Browser) viewReport() string {
	snap := b.frame.snapshot()

	var sb strings.Builder
	sb.WriteString(b.styles.Title.Render(snap.reportTitle))
	sb.WriteString("\n")
	if snap.result == nil {
		sb.WriteString(b.styles.Message.Render("Nothing was acquired."))
	} else {
		style := b.styles.Error
		if snap.result.OK() {
			style = b.styles.Success
		}
		sb.WriteString(style.Render(DescribeResult(*snap.result)))
	}
	sb.WriteString("\n\n")
	sb.WriteString(b.styles.Subtle.Render("Press any key to continue"))
	return sb.String()
}

// renderNotes renders markdown once per distinct input and width.
func (b *Browser) renderNotes(md string) string {
	if strings.TrimSpace(md) == "" {
		return ""
	}
	if md == b.notesSource && b.width == b.notesWidth {
		return b.notesCache
	}
	out, err := renderMarkdown(md, b.notesStyle, b.width)
	if err != nil {
		b.logger.Debug("rendering release notes", "err", err)
		out = md
	}
	b.notesSource, b.notesWidth, b.notesCache = md, b.width, out
	return out
}

func stageText(s acquire.Stage) string {
	switch s {
	case acquire.StageResolving:
		return "Looking up release..."
	case acquire.StageDownloading:
		return "Downloading"
	case acquire.StageVerifying:
		return "Verifying..."
	case acquire.StageInstalling:
		return "Extracting..."
	default:
		return s.String()
	}
}

// FormatBytes renders n with a binary unit, e.g. "12.5 MiB".
func FormatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
