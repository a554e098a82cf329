// SPDX-License-Identifier: MPL-2.0

package tui

import (
	"errors"
	"fmt"

	"github.com/hdr-community/hdr-installer/internal/acquire"
	"github.com/hdr-community/hdr-installer/internal/github"
	"github.com/hdr-community/hdr-installer/internal/issue"
)

// DescribeResult returns the one-line user-facing text for res.
func DescribeResult(res acquire.Result) string {
	switch res.Outcome {
	case acquire.Success:
		if n := len(res.Installed); n > 0 {
			return fmt.Sprintf("Installed successfully (%d %s).", n, plural(n, "file", "files"))
		}
		return "Installed successfully."
	case acquire.AccessDenied:
		return "You do not have permission to access this release."
	case acquire.DoesNotExist:
		return "This release does not exist or has nothing to install."
	case acquire.TransportError:
		if errors.Is(res.Err, github.ErrRateLimited) {
			return "GitHub rate limit reached. Try again later or configure a token."
		}
		return withCause("Could not reach GitHub", res.Err)
	case acquire.DownloadFailed:
		if res.Cancelled {
			return "Download cancelled. Nothing from the interrupted file was installed."
		}
		return withCause("Download failed", res.Err)
	case acquire.InstallFailed:
		return withCause("Install failed", res.Err)
	case acquire.VerificationFailed:
		return withCause("Verification failed, the download was discarded", res.Err)
	default:
		return withCause("Unknown result", res.Err)
	}
}

// IssueFor returns the troubleshooting entry for a failed result, or 0 when
// there is none.
func IssueFor(res acquire.Result) issue.Id {
	switch res.Outcome {
	case acquire.AccessDenied:
		return issue.AccessDeniedId
	case acquire.DoesNotExist:
		return issue.ReleaseNotFoundId
	case acquire.TransportError:
		if errors.Is(res.Err, github.ErrRateLimited) {
			return issue.RateLimitedId
		}
		return issue.NetworkFailureId
	case acquire.DownloadFailed:
		if res.Cancelled {
			return 0
		}
		return issue.DownloadFailedId
	case acquire.InstallFailed:
		return issue.InstallFailedId
	case acquire.VerificationFailed:
		return issue.VerificationFailedId
	default:
		return 0
	}
}

func withCause(msg string, err error) string {
	if err == nil {
		return msg + "."
	}
	return msg + ": " + err.Error()
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
