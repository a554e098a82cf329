// SPDX-License-Identifier: MPL-2.0

package acquire

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/jedisct1/go-minisign"

	"github.com/hdr-community/hdr-installer/internal/github"
)

// defaultProgressInterval throttles progress callbacks.
const defaultProgressInterval = 100 * time.Millisecond

type (
	// Source is the release index the pipeline reads from. *github.Client
	// satisfies it.
	Source interface {
		CheckPermission(ctx context.Context, token github.Token, repo string, required github.Permission) bool
		ResolveAssets(ctx context.Context, token github.Token, repo, tag string) ([]github.Asset, error)
		OpenAsset(ctx context.Context, token github.Token, assetURL string) (io.ReadCloser, int64, error)
	}

	// FreeSpaceFunc reports the bytes available at path.
	FreeSpaceFunc func(ctx context.Context, path string) (uint64, error)

	// Pipeline resolves, downloads and installs releases into one root.
	// Acquisitions on the same Pipeline are serialized.
	Pipeline struct {
		source           Source
		root             string
		logger           *log.Logger
		minisignKey      string
		publicKey        *minisign.PublicKey
		requireChecksums bool
		freeSpace        FreeSpaceFunc
		interval         time.Duration
		now              func() time.Time

		mu sync.Mutex
	}

	// Option configures a Pipeline.
	Option func(*Pipeline)
)

// WithLogger sets the logger used for stage transitions and warnings.
func WithLogger(l *log.Logger) Option {
	return func(p *Pipeline) {
		p.logger = l
	}
}

// WithMinisignKey enables signature verification for assets that ship a
// "<name>.minisig" companion. key is the base64 public key line.
func WithMinisignKey(key string) Option {
	return func(p *Pipeline) {
		p.minisignKey = key
	}
}

// WithRequireChecksums makes an asset missing from a published checksum
// manifest a verification failure instead of a warning.
func WithRequireChecksums(require bool) Option {
	return func(p *Pipeline) {
		p.requireChecksums = require
	}
}

// WithFreeSpaceCheck replaces the disk-space probe. A nil func disables the
// preflight.
func WithFreeSpaceCheck(fn FreeSpaceFunc) Option {
	return func(p *Pipeline) {
		p.freeSpace = fn
	}
}

// WithProgressInterval sets the minimum time between progress callbacks.
// Zero reports after every read.
func WithProgressInterval(d time.Duration) Option {
	return func(p *Pipeline) {
		p.interval = d
	}
}

// NewPipeline creates a pipeline installing into root.
func NewPipeline(source Source, root string, opts ...Option) (*Pipeline, error) {
	p := &Pipeline{
		source:    source,
		root:      root,
		logger:    log.Default().WithPrefix("acquire"),
		freeSpace: diskFree,
		interval:  defaultProgressInterval,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}

	if p.minisignKey != "" {
		key, err := minisign.NewPublicKey(p.minisignKey)
		if err != nil {
			return nil, fmt.Errorf("parsing minisign public key: %w", err)
		}
		p.publicKey = &key
	}

	return p, nil
}

// Root returns the install root.
func (p *Pipeline) Root() string {
	return p.root
}

// Acquire resolves d, then downloads and installs each asset in order. It
// blocks until the acquisition finishes or is cancelled, either by progress
// returning Cancel or by ctx. It never panics on bad input or server
// responses; every failure is reported through the Result.
func (p *Pipeline) Acquire(ctx context.Context, d Descriptor, progress Progress) Result {
	p.mu.Lock()
	defer p.mu.Unlock()

	if progress == nil {
		progress = ProgressFunc(func(int64, int64) Decision { return Continue })
	}
	observe := func(Stage, string, int, int) {}
	if so, ok := progress.(StageObserver); ok {
		observe = so.Stage
	}
	logger := p.logger.With("repo", d.Repository, "tag", d.Tag)

	if ctx.Err() != nil {
		return cancelled(ctx.Err())
	}
	if !p.source.CheckPermission(ctx, d.Token, d.Repository, github.PermPull) {
		if ctx.Err() != nil {
			return cancelled(ctx.Err())
		}
		logger.Debug("access denied")
		return Result{Outcome: AccessDenied, Err: fmt.Errorf("reading %s: %w", d.Repository, github.ErrPermissionDenied)}
	}

	observe(StageResolving, "", 0, 0)
	logger.Debug("resolving")
	assets, err := p.source.ResolveAssets(ctx, d.Token, d.Repository, d.Tag)
	if err != nil {
		return classifyResolveError(ctx, err)
	}

	plan := planAssets(assets)
	if len(plan.install) == 0 {
		return Result{Outcome: DoesNotExist, Err: fmt.Errorf("%s@%s: %w", d.Repository, d.Tag, ErrNoAssets)}
	}

	if err := os.MkdirAll(p.root, 0o755); err != nil {
		return Result{Outcome: InstallFailed, Err: &InstallError{Asset: p.root, Op: "creating install root", Err: err}}
	}
	if err := p.preflight(ctx, logger, plan.install); err != nil {
		return Result{Outcome: InstallFailed, Err: err}
	}

	sums, err := p.fetchChecksums(ctx, d.Token, plan.checksums)
	if err != nil {
		if ctx.Err() != nil {
			return cancelled(ctx.Err())
		}
		return Result{Outcome: TransportError, Err: err}
	}

	var res Result
	count := len(plan.install)
	for i, asset := range plan.install {
		observe(StageDownloading, asset.Name, i, count)
		logger.Debug("downloading", "asset", asset.Name, "index", i+1, "count", count)
		staged, err := p.download(ctx, d.Token, asset, progress)
		if err != nil {
			res.Outcome = DownloadFailed
			res.Cancelled = errors.Is(err, ErrCancelled)
			res.Err = err
			return res
		}

		observe(StageVerifying, asset.Name, i, count)
		if err := p.verify(ctx, d.Token, asset, staged, sums, plan.signatures); err != nil {
			removeStaged(staged)
			if ctx.Err() != nil {
				return withInstalled(cancelled(ctx.Err()), res.Installed)
			}
			res.Outcome = VerificationFailed
			res.Err = err
			return res
		}

		observe(StageInstalling, asset.Name, i, count)
		logger.Debug("installing", "asset", asset.Name)
		placed, err := p.install(asset, staged)
		res.Installed = append(res.Installed, placed...)
		if err != nil {
			res.Outcome = InstallFailed
			res.Err = err
			return res
		}
	}

	logger.Info("release installed", "assets", count, "files", len(res.Installed))
	res.Outcome = Success
	return res
}

// classifyResolveError maps a resolution failure onto an Outcome. Parse
// failures count as transport failures.
func classifyResolveError(ctx context.Context, err error) Result {
	switch {
	case ctx.Err() != nil:
		return cancelled(ctx.Err())
	case errors.Is(err, github.ErrReleaseNotFound):
		return Result{Outcome: DoesNotExist, Err: err}
	case errors.Is(err, github.ErrPermissionDenied):
		return Result{Outcome: AccessDenied, Err: err}
	default:
		return Result{Outcome: TransportError, Err: err}
	}
}

func cancelled(cause error) Result {
	return Result{Outcome: DownloadFailed, Cancelled: true, Err: fmt.Errorf("%w: %w", ErrCancelled, cause)}
}

func withInstalled(r Result, installed []string) Result {
	r.Installed = installed
	return r
}
