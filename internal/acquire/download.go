// SPDX-License-Identifier: MPL-2.0

package acquire

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/hdr-community/hdr-installer/internal/github"
)

// stagingSuffix marks partially downloaded files in the install root.
const stagingSuffix = ".part"

// progressReader reports transfer progress and turns a Cancel decision into
// ErrCancelled on the next read.
type progressReader struct {
	r        io.Reader
	progress Progress
	done     int64
	total    int64
	reported int64
	interval time.Duration
	last     time.Time
	now      func() time.Time
}

func (pr *progressReader) Read(b []byte) (int, error) {
	n, err := pr.r.Read(b)
	pr.done += int64(n)
	if n > 0 && pr.due() {
		if pr.report() == Cancel {
			return n, ErrCancelled
		}
	}
	return n, err
}

func (pr *progressReader) due() bool {
	if pr.interval <= 0 {
		return true
	}
	return pr.now().Sub(pr.last) >= pr.interval
}

func (pr *progressReader) report() Decision {
	pr.last = pr.now()
	pr.reported = pr.done
	return pr.progress.Update(pr.done, pr.total)
}

// stagingPath derives the staging file from the asset's locator, so the same
// asset always stages to the same place.
func (p *Pipeline) stagingPath(a github.Asset) string {
	name := a.Name
	if u, err := url.Parse(a.URL); err == nil {
		if base := path.Base(u.Path); base != "." && base != "/" && base != ".." {
			name = base
		}
	}
	return filepath.Join(p.root, filepath.Base(name)+stagingSuffix)
}

// download streams one asset to its staging file. On any failure, including
// cancellation, the staging file is removed before returning.
func (p *Pipeline) download(ctx context.Context, token github.Token, a github.Asset, progress Progress) (_ string, err error) {
	staged := p.stagingPath(a)

	body, length, err := p.source.OpenAsset(ctx, token, a.URL)
	if err != nil {
		if ctx.Err() != nil {
			return "", fmt.Errorf("%w: %w", ErrCancelled, ctx.Err())
		}
		return "", fmt.Errorf("downloading %s: %w", a.Name, err)
	}
	defer func() { _ = body.Close() }() // read-only HTTP response body

	total := length
	if total <= 0 {
		total = max(a.Size, 0)
	}

	f, err := os.OpenFile(staged, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return "", fmt.Errorf("creating staging file: %w", err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("closing staging file: %w", closeErr)
		}
		if err != nil {
			removeStaged(staged)
		}
	}()

	pr := &progressReader{
		r:        body,
		progress: progress,
		total:    total,
		interval: p.interval,
		now:      p.now,
	}
	if pr.report() == Cancel {
		return "", ErrCancelled
	}

	if _, err := io.Copy(f, pr); err != nil {
		switch {
		case errors.Is(err, ErrCancelled):
			return "", err
		case ctx.Err() != nil:
			return "", fmt.Errorf("%w: %w", ErrCancelled, ctx.Err())
		default:
			return "", fmt.Errorf("downloading %s: %w", a.Name, err)
		}
	}

	if pr.reported != pr.done {
		if pr.report() == Cancel {
			return "", ErrCancelled
		}
	}

	return staged, nil
}

func removeStaged(path string) {
	if path == "" {
		return
	}
	_ = os.Remove(path) // best effort; the file may never have been created
}
