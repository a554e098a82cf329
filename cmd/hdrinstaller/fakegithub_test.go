// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"github.com/klauspost/compress/zip"

	"github.com/hdr-community/hdr-installer/internal/catalog"
	"github.com/hdr-community/hdr-installer/internal/config"
	"github.com/hdr-community/hdr-installer/internal/session"
)

const testToken = "ghp_testtoken"

type (
	fakeAsset struct {
		contentType string
		body        []byte
	}

	fakeRelease struct {
		tag        string
		name       string
		body       string
		prerelease bool
		assets     map[string]fakeAsset
	}

	fakeRepo struct {
		private bool
		// tagStatus, when set, is returned for every release-by-tag lookup.
		tagStatus int
		releases  []fakeRelease
	}

	// staticProvider returns a copy of a fixed configuration.
	staticProvider struct {
		cfg *config.Config
		err error
	}
)

func (p staticProvider) Load(context.Context, config.LoadOptions) (*config.Config, error) {
	if p.err != nil {
		return nil, p.err
	}
	cfg := *p.cfg
	cfg.Channels = slices.Clone(p.cfg.Channels)
	return &cfg, nil
}

// newFakeGitHub serves the subset of the GitHub REST API the installer uses.
// Private repositories answer 404 unless the request carries testToken.
func newFakeGitHub(t *testing.T, repos map[string]*fakeRepo) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	var srv *httptest.Server

	lookup := func(w http.ResponseWriter, r *http.Request) (*fakeRepo, string, bool) {
		full := r.PathValue("owner") + "/" + r.PathValue("name")
		repo, ok := repos[full]
		if !ok || (repo.private && r.Header.Get("Authorization") != "Bearer "+testToken) {
			http.NotFound(w, r)
			return nil, "", false
		}
		return repo, full, true
	}
	releaseJSON := func(full string, rel fakeRelease) map[string]any {
		assets := make([]map[string]any, 0, len(rel.assets))
		for name, a := range rel.assets {
			assets = append(assets, map[string]any{
				"url":          srv.URL + "/assets/" + full + "/" + rel.tag + "/" + name,
				"content_type": a.contentType,
				"name":         name,
				"size":         len(a.body),
			})
		}
		return map[string]any{
			"name":         rel.name,
			"tag_name":     rel.tag,
			"body":         rel.body,
			"draft":        false,
			"prerelease":   rel.prerelease,
			"published_at": time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC).Format(time.RFC3339),
			"assets":       assets,
		}
	}

	mux.HandleFunc("GET /repos/{owner}/{name}", func(w http.ResponseWriter, r *http.Request) {
		if _, full, ok := lookup(w, r); ok {
			writeJSON(w, map[string]any{
				"full_name":   full,
				"permissions": map[string]bool{"admin": false, "push": false, "pull": true},
			})
		}
	})
	mux.HandleFunc("GET /repos/{owner}/{name}/releases", func(w http.ResponseWriter, r *http.Request) {
		repo, full, ok := lookup(w, r)
		if !ok {
			return
		}
		list := make([]map[string]any, 0, len(repo.releases))
		for _, rel := range repo.releases {
			list = append(list, releaseJSON(full, rel))
		}
		writeJSON(w, list)
	})
	mux.HandleFunc("GET /repos/{owner}/{name}/releases/tags/{tag}", func(w http.ResponseWriter, r *http.Request) {
		repo, full, ok := lookup(w, r)
		if !ok {
			return
		}
		if repo.tagStatus != 0 {
			w.WriteHeader(repo.tagStatus)
			return
		}
		for _, rel := range repo.releases {
			if rel.tag == r.PathValue("tag") {
				writeJSON(w, releaseJSON(full, rel))
				return
			}
		}
		http.NotFound(w, r)
	})
	mux.HandleFunc("GET /assets/{owner}/{name}/{tag}/{file}", func(w http.ResponseWriter, r *http.Request) {
		repo, _, ok := lookup(w, r)
		if !ok {
			return
		}
		for _, rel := range repo.releases {
			if a, found := rel.assets[r.PathValue("file")]; found && rel.tag == r.PathValue("tag") {
				_, _ = w.Write(a.body)
				return
			}
		}
		http.NotFound(w, r)
	})

	srv = httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func buildZip(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, body := range files {
		f, err := zw.Create(name)
		if err != nil {
			t.Fatalf("zip create %s: %v", name, err)
		}
		if _, err := f.Write([]byte(body)); err != nil {
			t.Fatalf("zip write %s: %v", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("zip close: %v", err)
	}
	return buf.Bytes()
}

// testChannels mirrors the three default channels on fake repositories.
func testChannels() []catalog.Channel {
	return []catalog.Channel{
		{Title: "Install HDR", Repository: "hdr/release", EmptyMessage: "No current release builds are available."},
		{Title: "Install HDR-Beta", Repository: "hdr/beta", EmptyMessage: "No current beta builds are available."},
		{Title: "Install HDR-Dev", Repository: "hdr/dev", EmptyMessage: "No current developer builds are available."},
	}
}

// newTestApp returns an App talking to srv with an isolated environment. When
// withToken is set, the token file holds testToken.
func newTestApp(t *testing.T, srv *httptest.Server, withToken bool) (*App, *config.Config) {
	t.Helper()

	t.Setenv(session.EnvToken, "")
	t.Setenv(session.EnvGitHubToken, "")
	config.SetConfigDirOverride(t.TempDir())
	t.Cleanup(config.Reset)

	cfg := config.DefaultConfig()
	cfg.API.BaseURL = srv.URL
	cfg.InstallRoot = t.TempDir()
	cfg.TokenFile = filepath.Join(t.TempDir(), "oauth.txt")
	cfg.Channels = testChannels()
	cfg.App.Repository = "hdr/installer"
	cfg.UI.ColorScheme = config.ColorSchemeDark
	cfg.UI.ProgressIntervalMS = 10

	if withToken {
		if err := os.WriteFile(cfg.TokenFile, []byte(testToken+"\n"), 0o600); err != nil {
			t.Fatalf("writing token: %v", err)
		}
	}

	app := NewApp(Dependencies{
		Config: staticProvider{cfg: cfg},
		Confirm: func(string, string) (bool, error) {
			t.Error("unexpected confirmation prompt")
			return false, nil
		},
	})
	return app, cfg
}

// execute runs the command tree with args and captures both streams.
func execute(t *testing.T, app *App, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	root := NewRootCommand(app)
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err = root.ExecuteContext(t.Context())
	return out.String(), errOut.String(), err
}
