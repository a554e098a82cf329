// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"github.com/hdr-community/hdr-installer/internal/acquire"
	"github.com/hdr-community/hdr-installer/internal/issue"
	"github.com/hdr-community/hdr-installer/internal/tui"
)

type installParams struct {
	stdout  io.Writer
	stderr  io.Writer
	svc     *services
	confirm ConfirmFunc
	target  string
	tag     string
	yes     bool
}

func newInstallCommand(app *App, flags *rootFlags) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "install <channel|owner/repo> <tag>",
		Short: "Download and install one release",
		Long: `Download every asset of a release, verify it and unpack archives into the
install root. The first argument is a channel title or a repository.

Exit codes: 3 access denied, 4 release not found, 5 GitHub unreachable,
6 download failed or cancelled, 7 install or verification failed.`,
		Example: `  hdr-installer install "Install HDR" v1.2.0
  hdr-installer install blu-dev/HDR-Beta-Builds v1.3.0-beta.2 --yes`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := app.prepare(cmd.Context(), flags, cmd.ErrOrStderr())
			if err != nil {
				return &ExitError{Code: ExitUsage, Err: err}
			}
			return runInstall(cmd.Context(), installParams{
				stdout:  cmd.OutOrStdout(),
				stderr:  cmd.ErrOrStderr(),
				svc:     svc,
				confirm: app.Confirm,
				target:  args[0],
				tag:     args[1],
				yes:     yes,
			})
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "install without asking for confirmation")
	return cmd
}

func runInstall(ctx context.Context, p installParams) error {
	repo, err := resolveRepository(p.svc, p.target)
	if err != nil {
		return &ExitError{Code: ExitUsage, Err: err}
	}

	if !p.yes {
		ok, err := p.confirm(
			fmt.Sprintf("Install %s %s?", repo, p.tag),
			"Files are unpacked into "+p.svc.cfg.InstallRoot,
		)
		if errors.Is(err, tui.ErrNotInteractive) {
			return reportError(p.stderr, ExitUsage, issue.NewErrorContext().
				WithOperation("confirm install").
				WithResource(repo+" "+p.tag).
				WithIssue(issue.NotInteractiveId).
				WithSuggestion("Pass --yes to install without a prompt").
				Wrap(err).
				BuildError(), p.svc.verbose)
		}
		if err != nil {
			return &ExitError{Code: ExitUsage, Err: err}
		}
		if !ok {
			fmt.Fprintln(p.stdout, SubtitleStyle.Render("Cancelled."))
			return nil
		}
	}

	pipeline, err := p.svc.pipeline()
	if err != nil {
		return &ExitError{Code: ExitUsage, Err: err}
	}

	progress := newLineProgress(p.stderr)
	res := pipeline.Acquire(ctx, acquire.Descriptor{
		Token:      p.svc.token,
		Repository: repo,
		Tag:        p.tag,
	}, progress)
	progress.finish()

	if res.OK() {
		fmt.Fprintln(p.stdout, SuccessStyle.Render(tui.DescribeResult(res)))
		if p.svc.verbose {
			for _, path := range res.Installed {
				fmt.Fprintln(p.stdout, "  "+SubtitleStyle.Render(path))
			}
		}
		return nil
	}

	fmt.Fprintln(p.stderr, ErrorStyle.Render(tui.DescribeResult(res)))
	if id := tui.IssueFor(res); id != 0 {
		if rendered, err := issue.Get(id).Render(p.svc.cfg.UI.ColorScheme.String()); err == nil {
			fmt.Fprint(p.stderr, rendered)
		}
	}
	return &ExitError{Code: exitCodeFor(res), Err: res.Err, reported: true}
}

// resolveRepository maps a channel title or an owner/repo argument to a
// repository.
func resolveRepository(svc *services, target string) (string, error) {
	if ch, ok := findChannel(svc.cfg.Channels, target); ok {
		return ch.Repository, nil
	}
	owner, name, ok := strings.Cut(target, "/")
	if ok && owner != "" && name != "" && !strings.Contains(name, "/") {
		return target, nil
	}
	return "", fmt.Errorf("%q is neither a configured channel nor an owner/repo", target)
}

// lineProgress prints acquisition progress as plain lines, one per stage
// change and one per ten percent of a download.
type lineProgress struct {
	mu       sync.Mutex
	w        io.Writer
	asset    string
	lastStep int64
	printed  bool
}

func newLineProgress(w io.Writer) *lineProgress {
	return &lineProgress{w: w, lastStep: -1}
}

// Update implements acquire.Progress.
func (l *lineProgress) Update(done, total int64) acquire.Decision {
	l.mu.Lock()
	defer l.mu.Unlock()

	if total <= 0 {
		return acquire.Continue
	}
	step := done * 10 / total
	if step == l.lastStep {
		return acquire.Continue
	}
	l.lastStep = step
	fmt.Fprintf(l.w, "  %3d%%  %s / %s\n", step*10, tui.FormatBytes(done), tui.FormatBytes(total))
	l.printed = true
	return acquire.Continue
}

// Stage implements acquire.StageObserver.
func (l *lineProgress) Stage(stage acquire.Stage, asset string, index, count int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	switch stage {
	case acquire.StageDownloading:
		l.asset = asset
		l.lastStep = -1
		if count > 1 {
			fmt.Fprintf(l.w, "Downloading multiple files... (%d/%d) %s\n", index+1, count, asset)
		} else {
			fmt.Fprintf(l.w, "Downloading %s\n", asset)
		}
	case acquire.StageInstalling:
		fmt.Fprintln(l.w, "Extracting...")
	case acquire.StageVerifying:
		fmt.Fprintln(l.w, "Verifying...")
	default:
		return
	}
	l.printed = true
}

// finish separates progress output from the result line.
func (l *lineProgress) finish() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.printed {
		fmt.Fprintln(l.w)
	}
}
