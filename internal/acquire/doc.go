// SPDX-License-Identifier: MPL-2.0

// Package acquire downloads and installs the assets of a release.
//
// An acquisition walks Resolving → Downloading → Verifying → Installing for
// each asset in the order the release lists them, strictly one asset at a
// time. Each asset is streamed to a staging file next to its final location;
// a failed or cancelled transfer removes the staging file and stops the
// acquisition. Archives are extracted into the install root and their staging
// file removed; every other asset is renamed into place under its declared
// name. Assets placed before a failure stay where they are.
package acquire
