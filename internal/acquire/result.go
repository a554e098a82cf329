// SPDX-License-Identifier: MPL-2.0

package acquire

import (
	"errors"
	"fmt"

	"github.com/hdr-community/hdr-installer/internal/github"
)

// Outcome classifies how an acquisition ended.
type Outcome int

const (
	// Success means every asset was downloaded and placed.
	Success Outcome = iota
	// TransportError means the release could not be resolved over the network.
	TransportError
	// DoesNotExist means the release is missing or has no installable assets.
	DoesNotExist
	// DownloadFailed means a transfer failed or was cancelled.
	DownloadFailed
	// AccessDenied means the token cannot read the repository.
	AccessDenied
	// InstallFailed means extraction, placement, or the space preflight failed.
	InstallFailed
	// VerificationFailed means a checksum or signature did not match.
	VerificationFailed
)

// Decision is returned by a progress callback.
type Decision int

const (
	// Continue lets the transfer go on.
	Continue Decision = iota
	// Cancel aborts the in-flight transfer.
	Cancel
)

// Stage names a step of an acquisition.
type Stage int

const (
	StageResolving Stage = iota
	StageDownloading
	StageVerifying
	StageInstalling
)

var (
	// ErrCancelled is reported when a progress callback or the context
	// cancels a transfer.
	ErrCancelled = errors.New("download cancelled")

	// ErrNoAssets is reported when a release lists nothing to install.
	ErrNoAssets = errors.New("release has no installable assets")

	// ErrInsufficientSpace is reported when the install root cannot hold the
	// declared asset sizes.
	ErrInsufficientSpace = errors.New("insufficient disk space")

	// ErrUnsafePath is reported for archive entries or asset names that
	// would land outside the install root.
	ErrUnsafePath = errors.New("path escapes install root")

	// ErrEntryTooLarge is reported for archive entries above the size cap.
	ErrEntryTooLarge = errors.New("archive entry exceeds size limit")

	// ErrChecksumMismatch is reported when a staged file's SHA-256 differs
	// from the release's checksum manifest.
	ErrChecksumMismatch = errors.New("checksum mismatch")

	// ErrChecksumMissing is reported when checksums are required but the
	// manifest has no entry for an asset.
	ErrChecksumMissing = errors.New("asset not listed in checksums")

	// ErrSignatureInvalid is reported when a minisign signature does not verify.
	ErrSignatureInvalid = errors.New("signature verification failed")
)

type (
	// Descriptor names a release to acquire. Assets are resolved from it at
	// acquisition time, so the result always reflects the server's current
	// state.
	Descriptor struct {
		Token      github.Token
		Repository string
		Tag        string
	}

	// Progress receives transfer progress for the asset being downloaded.
	// total is 0 when the size is unknown.
	Progress interface {
		Update(done, total int64) Decision
	}

	// ProgressFunc adapts a function to Progress.
	ProgressFunc func(done, total int64) Decision

	// StageObserver may additionally be implemented by a Progress to learn
	// which asset the pipeline is working on. index is zero-based.
	StageObserver interface {
		Stage(stage Stage, asset string, index, count int)
	}

	// Result is the outcome of one acquisition.
	Result struct {
		Outcome   Outcome
		Cancelled bool     // DownloadFailed because the user cancelled
		Installed []string // paths placed, including before a failure
		Err       error    // first failure; nil on Success
	}

	// InstallError describes a failure to place an asset.
	InstallError struct {
		Asset string
		Op    string
		Err   error
	}

	// VerificationError describes an asset that failed verification.
	VerificationError struct {
		Asset string
		Err   error
	}

	// ChecksumError carries both digests of a mismatch. It wraps
	// ErrChecksumMismatch.
	ChecksumError struct {
		Filename string
		Expected string
		Got      string
	}
)

// Update calls f.
func (f ProgressFunc) Update(done, total int64) Decision {
	return f(done, total)
}

func (o Outcome) String() string {
	switch o {
	case Success:
		return "success"
	case TransportError:
		return "transport error"
	case DoesNotExist:
		return "does not exist"
	case DownloadFailed:
		return "download failed"
	case AccessDenied:
		return "access denied"
	case InstallFailed:
		return "install failed"
	case VerificationFailed:
		return "verification failed"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

func (s Stage) String() string {
	switch s {
	case StageResolving:
		return "resolving"
	case StageDownloading:
		return "downloading"
	case StageVerifying:
		return "verifying"
	case StageInstalling:
		return "installing"
	default:
		return fmt.Sprintf("stage(%d)", int(s))
	}
}

// OK reports whether the acquisition succeeded.
func (r Result) OK() bool {
	return r.Outcome == Success
}

func (e *InstallError) Error() string {
	return fmt.Sprintf("installing %s: %s: %v", e.Asset, e.Op, e.Err)
}

func (e *InstallError) Unwrap() error {
	return e.Err
}

func (e *VerificationError) Error() string {
	return fmt.Sprintf("verifying %s: %v", e.Asset, e.Err)
}

func (e *VerificationError) Unwrap() error {
	return e.Err
}

func (e *ChecksumError) Error() string {
	return fmt.Sprintf("checksum verification failed for %s\nExpected: %s\nGot:      %s", e.Filename, e.Expected, e.Got)
}

// Unwrap returns ErrChecksumMismatch so callers can use errors.Is.
func (e *ChecksumError) Unwrap() error { return ErrChecksumMismatch }
