// SPDX-License-Identifier: MPL-2.0

// Package testutil provides test helpers that fail the test on error instead
// of returning it: environment management (MustSetenv, SetHomeDir), working
// directory changes (MustChdir) and fixture files (MustWriteFile).
package testutil
