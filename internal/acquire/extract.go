// SPDX-License-Identifier: MPL-2.0

package acquire

import (
	"archive/tar"
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zip"
	"github.com/klauspost/compress/zstd"

	"github.com/hdr-community/hdr-installer/internal/platform"
)

// maxEntryBytes caps a single extracted entry (4 GiB) to stop decompression
// bombs.
const maxEntryBytes int64 = 4 << 30

// errNotTar is returned when a gzip asset decompresses to something other
// than a tar stream.
var errNotTar = errors.New("gzip stream does not hold a tar archive")

// extract unpacks archivePath into root and returns the regular files it
// wrote. Every write goes through an os.Root, so neither archive entries nor
// symlinks already on disk can place a file outside root. Entries that would
// land outside root are rejected; the files already written stay in place.
func extract(kind archiveKind, archivePath, root string) ([]string, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("creating install root: %w", err)
	}
	dst, err := os.OpenRoot(root)
	if err != nil {
		return nil, fmt.Errorf("opening install root: %w", err)
	}
	defer func() { _ = dst.Close() }()

	switch kind {
	case zipArchive:
		return extractZip(archivePath, dst)
	case tarArchive, tarGzArchive, tarZstArchive:
		return extractTarFile(kind, archivePath, dst)
	default:
		return nil, fmt.Errorf("%s is not an archive", archivePath)
	}
}

func extractZip(archivePath string, dst *os.Root) ([]string, error) {
	// Non-local names are checked entry by entry below, with a precise error.
	zr, err := zip.OpenReader(archivePath)
	if err != nil && !errors.Is(err, zip.ErrInsecurePath) {
		return nil, fmt.Errorf("opening zip: %w", err)
	}
	defer func() { _ = zr.Close() }() // read-only archive

	var placed []string
	for _, f := range zr.File {
		rel, err := entryPath(dst.Name(), f.Name)
		if err != nil {
			return placed, err
		}

		mode := f.Mode()
		switch {
		case mode.IsDir():
			if err := mkdirAll(dst, rel); err != nil {
				return placed, err
			}
		case mode&os.ModeSymlink != 0:
			// Links are not needed for mod layouts and are the usual escape route.
			continue
		default:
			if err := writeZipEntry(dst, f, rel); err != nil {
				return placed, err
			}
			placed = append(placed, filepath.Join(dst.Name(), rel))
		}
	}
	return placed, nil
}

func writeZipEntry(dst *os.Root, f *zip.File, rel string) error {
	rc, err := f.Open()
	if err != nil {
		return fmt.Errorf("opening %s: %w", f.Name, err)
	}
	defer func() { _ = rc.Close() }() // read-only entry

	return writeFile(dst, rel, rc, f.Mode().Perm())
}

func extractTarFile(kind archiveKind, archivePath string, dst *os.Root) (_ []string, err error) {
	f, err := os.Open(archivePath)
	if err != nil {
		return nil, fmt.Errorf("opening archive: %w", err)
	}
	defer func() { _ = f.Close() }() // read-only file handle

	var r io.Reader = f
	switch kind {
	case tarGzArchive:
		gz, err := gzip.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("creating gzip reader: %w", err)
		}
		defer func() { _ = gz.Close() }() // wraps a read-only file

		br := bufio.NewReaderSize(gz, 4096)
		if head, _ := br.Peek(blockSize); !isTarHeader(head) {
			return nil, errNotTar
		}
		r = br
	case tarZstArchive:
		zr, err := zstd.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("creating zstd reader: %w", err)
		}
		defer zr.Close()
		r = zr
	}

	return extractTar(tar.NewReader(r), dst)
}

func extractTar(tr *tar.Reader, dst *os.Root) ([]string, error) {
	var placed []string
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return placed, nil
		}
		if err != nil {
			return placed, fmt.Errorf("reading tar entry: %w", err)
		}

		rel, err := entryPath(dst.Name(), hdr.Name)
		if err != nil {
			return placed, err
		}

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := mkdirAll(dst, rel); err != nil {
				return placed, err
			}
		case tar.TypeReg:
			if err := writeFile(dst, rel, tr, hdr.FileInfo().Mode().Perm()); err != nil {
				return placed, err
			}
			placed = append(placed, filepath.Join(dst.Name(), rel))
		case tar.TypeSymlink:
			if err := linkWithinRoot(dst, rel, hdr.Linkname); err != nil {
				return placed, err
			}
			placed = append(placed, filepath.Join(dst.Name(), rel))
		default:
			// Devices, fifos and hard links have no place in a release.
			continue
		}
	}
}

// linkWithinRoot creates a symlink and keeps it only if it resolves inside
// root. The lexical check catches plain escapes; resolving through dst
// catches chains that climb out through links created earlier.
func linkWithinRoot(dst *os.Root, rel, linkname string) error {
	if filepath.IsAbs(linkname) || !within(dst.Name(), filepath.Join(dst.Name(), filepath.Dir(rel), linkname)) {
		return fmt.Errorf("%w: link %s -> %s", ErrUnsafePath, rel, linkname)
	}
	if err := mkdirAll(dst, filepath.Dir(rel)); err != nil {
		return err
	}
	_ = dst.Remove(rel) // replace an earlier install
	if err := dst.Symlink(linkname, rel); err != nil {
		return fmt.Errorf("creating symlink %s: %w", rel, err)
	}

	// A dangling link is fine as long as resolution stays inside root.
	if _, err := dst.Stat(rel); err != nil && !errors.Is(err, fs.ErrNotExist) {
		_ = dst.Remove(rel)
		return fmt.Errorf("%w: link %s -> %s: %v", ErrUnsafePath, rel, linkname, err)
	}
	return nil
}

func mkdirAll(dst *os.Root, rel string) error {
	if rel == "." {
		return nil
	}
	if err := dst.MkdirAll(rel, 0o755); err != nil {
		return fmt.Errorf("creating directory %s: %w", rel, rootErr(err))
	}
	return nil
}

// writeFile writes r to rel under dst, replacing any existing file.
func writeFile(dst *os.Root, rel string, r io.Reader, perm os.FileMode) (err error) {
	if err := mkdirAll(dst, filepath.Dir(rel)); err != nil {
		return err
	}
	if perm&0o600 != 0o600 {
		perm |= 0o600
	}

	out, err := dst.OpenFile(rel, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm)
	if err != nil {
		return fmt.Errorf("creating %s: %w", rel, rootErr(err))
	}
	defer func() {
		if closeErr := out.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("closing %s: %w", rel, closeErr)
		}
	}()

	n, err := io.Copy(out, io.LimitReader(r, maxEntryBytes+1))
	if err != nil {
		return fmt.Errorf("writing %s: %w", rel, err)
	}
	if n > maxEntryBytes {
		return fmt.Errorf("%w: %s", ErrEntryTooLarge, rel)
	}
	return nil
}

// gunzipInto decompresses a gzip file that is not a tarball into name under
// root.
func gunzipInto(archivePath, root, name string) (_ string, err error) {
	f, err := os.Open(archivePath)
	if err != nil {
		return "", fmt.Errorf("opening archive: %w", err)
	}
	defer func() { _ = f.Close() }() // read-only file handle

	gz, err := gzip.NewReader(f)
	if err != nil {
		return "", fmt.Errorf("creating gzip reader: %w", err)
	}
	defer func() { _ = gz.Close() }()

	if err := os.MkdirAll(root, 0o755); err != nil {
		return "", fmt.Errorf("creating install root: %w", err)
	}
	dst, err := os.OpenRoot(root)
	if err != nil {
		return "", fmt.Errorf("opening install root: %w", err)
	}
	defer func() { _ = dst.Close() }()

	if err := writeFile(dst, name, gz, 0o644); err != nil {
		return "", err
	}
	return filepath.Join(root, name), nil
}

// safeJoin joins an archive entry name onto root, rejecting absolute names
// and names that climb out of root.
func safeJoin(root, name string) (string, error) {
	if name == "" || filepath.IsAbs(name) || strings.HasPrefix(name, "/") || strings.HasPrefix(name, `\`) ||
		filepath.VolumeName(name) != "" || platform.HasReservedComponent(name) {
		return "", fmt.Errorf("%w: %q", ErrUnsafePath, name)
	}
	target := filepath.Join(root, filepath.FromSlash(name))
	if !within(root, target) {
		return "", fmt.Errorf("%w: %q", ErrUnsafePath, name)
	}
	return target, nil
}

// entryPath is safeJoin relative to root, the form os.Root expects.
func entryPath(root, name string) (string, error) {
	target, err := safeJoin(root, name)
	if err != nil {
		return "", err
	}
	return filepath.Rel(filepath.Clean(root), target)
}

// rootErr marks os.Root failures other than missing or forbidden paths as
// escapes: a link on the way resolved outside the install root.
func rootErr(err error) error {
	if errors.Is(err, fs.ErrNotExist) || errors.Is(err, fs.ErrPermission) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrUnsafePath, err)
}

func within(root, target string) bool {
	rel, err := filepath.Rel(filepath.Clean(root), filepath.Clean(target))
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

const blockSize = 512

// isTarHeader reports whether block is a tar header with a valid checksum.
// The checksum is present in every tar dialect, unlike the ustar magic.
func isTarHeader(block []byte) bool {
	if len(block) < blockSize {
		return false
	}
	field := strings.Trim(string(block[148:156]), " \x00")
	want, err := strconv.ParseInt(field, 8, 64)
	if err != nil {
		return false
	}
	var sum int64
	for i, b := range block[:blockSize] {
		if i >= 148 && i < 156 {
			b = ' '
		}
		sum += int64(b)
	}
	return sum == want
}
