// SPDX-License-Identifier: MPL-2.0

package acquire

import (
	"archive/tar"
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"

	"github.com/hdr-community/hdr-installer/internal/github"
)

type (
	assetFixture struct {
		contentType string
		body        []byte
	}

	tarEntry struct {
		name     string
		body     string
		linkname string
		typeflag byte
	}
)

// newReleaseServer serves a public repository a/b whose v1.0.0 release
// carries the given assets.
func newReleaseServer(t *testing.T, assets map[string]assetFixture) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	var srv *httptest.Server
	mux.HandleFunc("GET /repos/a/b", func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"full_name": "a/b"})
	})
	mux.HandleFunc("GET /repos/a/b/releases/tags/v1.0.0", func(w http.ResponseWriter, _ *http.Request) {
		list := make([]map[string]any, 0, len(assets))
		for name, a := range assets {
			list = append(list, map[string]any{
				"url":          srv.URL + "/assets/" + name,
				"content_type": a.contentType,
				"name":         name,
				"size":         len(a.body),
			})
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"assets": list})
	})
	mux.HandleFunc("GET /assets/{name}", func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Accept"); got != "application/octet-stream" {
			t.Errorf("asset Accept = %q", got)
		}
		a, ok := assets[r.PathValue("name")]
		if !ok {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write(a.body)
	})

	srv = httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func buildTar(t *testing.T, entries []tarEntry) []byte {
	t.Helper()
	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	for _, e := range entries {
		hdr := &tar.Header{Name: e.name, Mode: 0o644, Typeflag: e.typeflag, Linkname: e.linkname}
		if e.typeflag == 0 {
			hdr.Typeflag = tar.TypeReg
		}
		if hdr.Typeflag == tar.TypeReg {
			hdr.Size = int64(len(e.body))
		}
		if hdr.Typeflag == tar.TypeDir {
			hdr.Mode = 0o755
		}
		if err := tw.WriteHeader(hdr); err != nil {
			t.Fatalf("tar header %s: %v", e.name, err)
		}
		if hdr.Typeflag == tar.TypeReg {
			if _, err := tw.Write([]byte(e.body)); err != nil {
				t.Fatalf("tar write %s: %v", e.name, err)
			}
		}
	}
	if err := tw.Close(); err != nil {
		t.Fatalf("tar close: %v", err)
	}
	return buf.Bytes()
}

func gzipBytes(t *testing.T, b []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(b); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func zstdBytes(t *testing.T, b []byte) []byte {
	t.Helper()
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = enc.Close() }()
	return enc.EncodeAll(b, nil)
}

func writeArchive(t *testing.T, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "archive")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestExtract_TarVariants(t *testing.T) {
	t.Parallel()

	raw := buildTar(t, []tarEntry{
		{name: "atmosphere/", typeflag: tar.TypeDir},
		{name: "atmosphere/plugin.nro", body: "plugin"},
		{name: "fifo", typeflag: tar.TypeFifo},
	})

	tests := []struct {
		name string
		kind archiveKind
		data []byte
	}{
		{"tar", tarArchive, raw},
		{"tar.gz", tarGzArchive, gzipBytes(t, raw)},
		{"tar.zst", tarZstArchive, zstdBytes(t, raw)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			root := t.TempDir()

			placed, err := extract(tt.kind, writeArchive(t, tt.data), root)
			if err != nil {
				t.Fatalf("extract() error = %v", err)
			}
			want := filepath.Join(root, "atmosphere", "plugin.nro")
			if len(placed) != 1 || placed[0] != want {
				t.Errorf("placed = %v, want [%s]", placed, want)
			}
			if got := readFile(t, want); got != "plugin" {
				t.Errorf("plugin.nro = %q", got)
			}
			if _, err := os.Lstat(filepath.Join(root, "fifo")); !os.IsNotExist(err) {
				t.Error("special file was extracted")
			}
		})
	}
}

func TestExtract_TarSymlinks(t *testing.T) {
	t.Parallel()
	if runtime.GOOS == "windows" {
		t.Skip("symlinks need elevated privileges on windows")
	}

	t.Run("inside root", func(t *testing.T) {
		t.Parallel()
		root := t.TempDir()
		data := buildTar(t, []tarEntry{
			{name: "lib/real.nro", body: "real"},
			{name: "lib/alias.nro", typeflag: tar.TypeSymlink, linkname: "real.nro"},
		})
		if _, err := extract(tarArchive, writeArchive(t, data), root); err != nil {
			t.Fatalf("extract() error = %v", err)
		}
		if got := readFile(t, filepath.Join(root, "lib", "alias.nro")); got != "real" {
			t.Errorf("alias.nro = %q", got)
		}
	})

	t.Run("escaping root", func(t *testing.T) {
		t.Parallel()
		root := t.TempDir()
		data := buildTar(t, []tarEntry{
			{name: "evil", typeflag: tar.TypeSymlink, linkname: "../../etc/passwd"},
		})
		_, err := extract(tarArchive, writeArchive(t, data), root)
		if !errors.Is(err, ErrUnsafePath) {
			t.Fatalf("extract() error = %v, want ErrUnsafePath", err)
		}
		if _, err := os.Lstat(filepath.Join(root, "evil")); !os.IsNotExist(err) {
			t.Error("escaping symlink was created")
		}
	})

	t.Run("chain through earlier link", func(t *testing.T) {
		t.Parallel()
		parent := t.TempDir()
		root := filepath.Join(parent, "root")
		data := buildTar(t, []tarEntry{
			{name: "d/l2", typeflag: tar.TypeSymlink, linkname: ".."},
			{name: "s", typeflag: tar.TypeSymlink, linkname: "d/l2/.."},
			{name: "s/evil.txt", body: "gotcha"},
		})
		_, err := extract(tarArchive, writeArchive(t, data), root)
		if !errors.Is(err, ErrUnsafePath) {
			t.Fatalf("extract() error = %v, want ErrUnsafePath", err)
		}
		if _, err := os.Lstat(filepath.Join(parent, "evil.txt")); !os.IsNotExist(err) {
			t.Error("entry was written outside the root")
		}
		if _, err := os.Lstat(filepath.Join(root, "s")); !os.IsNotExist(err) {
			t.Error("link resolving outside the root was kept")
		}
	})

	t.Run("through link already on disk", func(t *testing.T) {
		t.Parallel()
		outside := t.TempDir()
		root := t.TempDir()
		if err := os.Symlink(outside, filepath.Join(root, "out")); err != nil {
			t.Fatal(err)
		}
		data := buildTar(t, []tarEntry{{name: "out/evil.txt", body: "gotcha"}})
		_, err := extract(tarArchive, writeArchive(t, data), root)
		if !errors.Is(err, ErrUnsafePath) {
			t.Fatalf("extract() error = %v, want ErrUnsafePath", err)
		}
		if _, err := os.Lstat(filepath.Join(outside, "evil.txt")); !os.IsNotExist(err) {
			t.Error("entry was written through a link outside the root")
		}
	})

	t.Run("dangling inside root", func(t *testing.T) {
		t.Parallel()
		root := t.TempDir()
		data := buildTar(t, []tarEntry{
			{name: "lib/later.nro", typeflag: tar.TypeSymlink, linkname: "missing.nro"},
		})
		if _, err := extract(tarArchive, writeArchive(t, data), root); err != nil {
			t.Fatalf("extract() error = %v", err)
		}
		if _, err := os.Lstat(filepath.Join(root, "lib", "later.nro")); err != nil {
			t.Errorf("dangling link inside root was not created: %v", err)
		}
	})
}

func TestExtract_GzipWithoutTar(t *testing.T) {
	t.Parallel()

	_, err := extract(tarGzArchive, writeArchive(t, gzipBytes(t, []byte("just a file"))), t.TempDir())
	if !errors.Is(err, errNotTar) {
		t.Fatalf("extract() error = %v, want errNotTar", err)
	}
}

func TestIsTarHeader(t *testing.T) {
	t.Parallel()

	raw := buildTar(t, []tarEntry{{name: "a.nro", body: "a"}})
	if !isTarHeader(raw[:blockSize]) {
		t.Error("first tar block not recognised")
	}
	if isTarHeader(make([]byte, blockSize)) {
		t.Error("zero block recognised as a header")
	}
	if isTarHeader([]byte("short")) {
		t.Error("short input recognised as a header")
	}
	corrupt := bytes.Clone(raw[:blockSize])
	corrupt[0] ^= 0xff
	if isTarHeader(corrupt) {
		t.Error("header with a bad checksum recognised")
	}
}

func TestExtract_TarTraversal(t *testing.T) {
	t.Parallel()

	root := filepath.Join(t.TempDir(), "root")
	data := buildTar(t, []tarEntry{
		{name: "ok.txt", body: "ok"},
		{name: "../escaped.txt", body: "gotcha"},
	})

	placed, err := extract(tarArchive, writeArchive(t, data), root)
	if !errors.Is(err, ErrUnsafePath) {
		t.Fatalf("extract() error = %v, want ErrUnsafePath", err)
	}
	if len(placed) != 1 {
		t.Errorf("placed = %v, want the entry written before the rejection", placed)
	}
	if _, err := os.Stat(filepath.Join(filepath.Dir(root), "escaped.txt")); !os.IsNotExist(err) {
		t.Error("entry escaped the root")
	}
}

func TestSafeJoin(t *testing.T) {
	t.Parallel()

	root := filepath.Join(string(filepath.Separator), "mods")
	tests := []struct {
		name    string
		entry   string
		want    string
		wantErr bool
	}{
		{"plain", "a.nro", filepath.Join(root, "a.nro"), false},
		{"nested", "atmosphere/contents/a.nro", filepath.Join(root, "atmosphere", "contents", "a.nro"), false},
		{"dot segments inside", "x/../a.nro", filepath.Join(root, "a.nro"), false},
		{"parent", "../a.nro", "", true},
		{"deep parent", "x/../../a.nro", "", true},
		{"absolute", "/etc/passwd", "", true},
		{"backslash root", `\evil`, "", true},
		{"empty", "", "", true},
		{"reserved device name", "ultimate/aux/x.cfg", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := safeJoin(root, tt.entry)
			if tt.wantErr {
				if !errors.Is(err, ErrUnsafePath) {
					t.Errorf("safeJoin(%q) error = %v, want ErrUnsafePath", tt.entry, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("safeJoin(%q) error = %v", tt.entry, err)
			}
			if got != tt.want {
				t.Errorf("safeJoin(%q) = %q, want %q", tt.entry, got, tt.want)
			}
		})
	}
}

func TestClassify(t *testing.T) {
	t.Parallel()

	tests := []struct {
		contentType string
		want        archiveKind
	}{
		{"application/zip", zipArchive},
		{"application/x-zip-compressed", zipArchive},
		{"Application/ZIP; charset=binary", zipArchive},
		{"application/x-tar", tarArchive},
		{"application/gzip", tarGzArchive},
		{"application/x-gzip", tarGzArchive},
		{"application/zstd", tarZstArchive},
		{"application/octet-stream", notArchive},
		{"text/plain", notArchive},
		{"", notArchive},
	}

	for _, tt := range tests {
		t.Run(tt.contentType, func(t *testing.T) {
			t.Parallel()
			// The name must not influence classification.
			a := github.Asset{Name: "looks-like.zip", ContentType: tt.contentType}
			if got := classify(a); got != tt.want {
				t.Errorf("classify(%q) = %v, want %v", tt.contentType, got, tt.want)
			}
		})
	}
}

func TestPlanAssets(t *testing.T) {
	t.Parallel()

	plan := planAssets([]github.Asset{
		{Name: "b.zip"},
		{Name: "checksums.txt"},
		{Name: "a.nro"},
		{Name: "a.nro.minisig"},
		{Name: "a.nro.sha256"},
	})

	var names []string
	for _, a := range plan.install {
		names = append(names, a.Name)
	}
	if got := strings.Join(names, ","); got != "b.zip,a.nro" {
		t.Errorf("install = %s, want resolved order b.zip,a.nro", got)
	}
	if len(plan.checksums) != 2 {
		t.Errorf("checksums = %v", plan.checksums)
	}
	if _, ok := plan.signatures["a.nro"]; !ok {
		t.Errorf("signatures = %v", plan.signatures)
	}
}

func TestParseChecksums(t *testing.T) {
	t.Parallel()

	hashA := strings.Repeat("a", 64)
	hashB := strings.Repeat("B", 64)

	tests := []struct {
		name     string
		manifest string
		content  string
		want     map[string]string
	}{
		{
			name:     "text and binary mode",
			manifest: "checksums.txt",
			content:  hashA + "  a.zip\n" + hashB + " *b.nro\n",
			want:     map[string]string{"a.zip": hashA, "b.nro": strings.ToLower(hashB)},
		},
		{
			name:     "comments blank lines and junk",
			manifest: "SHA256SUMS",
			content:  "# release\n\nnot-a-hash  x\n" + hashA + "  a.zip\n",
			want:     map[string]string{"a.zip": hashA},
		},
		{
			name:     "bare hash in per-file manifest",
			manifest: "a.zip.sha256",
			content:  hashA + "\n",
			want:     map[string]string{"a.zip": hashA},
		},
		{
			name:     "bare hash in shared manifest",
			manifest: "checksums.txt",
			content:  hashA + "\n",
			want:     map[string]string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := make(checksumSet)
			parseChecksums(strings.NewReader(tt.content), tt.manifest, got)
			if len(got) != len(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			for k, v := range tt.want {
				if got[k] != v {
					t.Errorf("got[%q] = %q, want %q", k, got[k], v)
				}
			}
		})
	}
}

func TestSafeName(t *testing.T) {
	t.Parallel()

	for _, name := range []string{"", ".", "..", "a/b.nro", `a\b.nro`, "/abs", "NUL", "con.txt"} {
		if _, err := safeName(name); !errors.Is(err, ErrUnsafePath) {
			t.Errorf("safeName(%q) error = %v, want ErrUnsafePath", name, err)
		}
	}
	if got, err := safeName("hdr.nro"); err != nil || got != "hdr.nro" {
		t.Errorf("safeName(hdr.nro) = %q, %v", got, err)
	}
}
