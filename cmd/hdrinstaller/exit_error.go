// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"

	"github.com/hdr-community/hdr-installer/internal/acquire"
)

// Process exit codes. Each failed acquisition outcome has its own code so
// scripts can tell them apart.
const (
	ExitOK           = 0
	ExitUsage        = 1
	ExitAccessDenied = 3
	ExitDoesNotExist = 4
	ExitTransport    = 5
	ExitDownload     = 6
	ExitInstall      = 7
)

// ExitError signals a non-zero exit code without forcing os.Exit in RunE handlers.
type ExitError struct {
	Code int
	Err  error
	// reported is set when the command already printed the error.
	reported bool
}

// Error returns the error message for ExitError.
func (e *ExitError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return fmt.Sprintf("exit status %d", e.Code)
}

// Unwrap returns the underlying error, if any.
func (e *ExitError) Unwrap() error {
	return e.Err
}

// exitCodeFor maps an acquisition outcome to a process exit code.
func exitCodeFor(res acquire.Result) int {
	switch res.Outcome {
	case acquire.Success:
		return ExitOK
	case acquire.AccessDenied:
		return ExitAccessDenied
	case acquire.DoesNotExist:
		return ExitDoesNotExist
	case acquire.TransportError:
		return ExitTransport
	case acquire.DownloadFailed:
		return ExitDownload
	case acquire.InstallFailed, acquire.VerificationFailed:
		return ExitInstall
	default:
		return ExitUsage
	}
}
