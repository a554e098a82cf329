// SPDX-License-Identifier: MPL-2.0

package acquire

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/hdr-community/hdr-installer/internal/github"
	"github.com/hdr-community/hdr-installer/internal/platform"
)

// install places a verified staging file. Archives are extracted into the
// root and the staging file removed; a gzip asset holding a single file is
// decompressed next to them. Anything else is renamed to its
// declared name, replacing an earlier install of the same file. The staging
// file never survives an install, successful or not.
func (p *Pipeline) install(a github.Asset, staged string) ([]string, error) {
	kind := classify(a)
	if kind == notArchive {
		final, err := p.place(a, staged)
		if err != nil {
			removeStaged(staged)
			return nil, err
		}
		return []string{final}, nil
	}

	defer removeStaged(staged)
	placed, err := extract(kind, staged, p.root)
	if errors.Is(err, errNotTar) {
		return p.placeGunzipped(a, staged)
	}
	if err != nil {
		return placed, &InstallError{Asset: a.Name, Op: "extracting " + kind.String(), Err: err}
	}
	return placed, nil
}

func (p *Pipeline) place(a github.Asset, staged string) (string, error) {
	name, err := safeName(a.Name)
	if err != nil {
		return "", &InstallError{Asset: a.Name, Op: "naming", Err: err}
	}
	final := filepath.Join(p.root, name)

	// os.Rename only replaces an existing file atomically on unix.
	if runtime.GOOS == "windows" {
		_ = os.Remove(final) // may not exist yet
	}
	if err := os.Rename(staged, final); err != nil {
		return "", &InstallError{Asset: a.Name, Op: "renaming into place", Err: err}
	}
	return final, nil
}

// placeGunzipped installs a gzip asset that holds a single file under its
// name minus the .gz suffix.
func (p *Pipeline) placeGunzipped(a github.Asset, staged string) ([]string, error) {
	name, err := safeName(strings.TrimSuffix(a.Name, ".gz"))
	if err != nil {
		return nil, &InstallError{Asset: a.Name, Op: "naming", Err: err}
	}
	final, err := gunzipInto(staged, p.root, name)
	if err != nil {
		return nil, &InstallError{Asset: a.Name, Op: "decompressing gzip", Err: err}
	}
	return []string{final}, nil
}

// safeName accepts a bare file name only.
func safeName(name string) (string, error) {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) || filepath.IsAbs(name) ||
		platform.IsReservedName(name) {
		return "", fmt.Errorf("%w: %q", ErrUnsafePath, name)
	}
	return name, nil
}
