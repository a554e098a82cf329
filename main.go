// SPDX-License-Identifier: MPL-2.0

// Command hdr-installer browses and installs HDR releases from GitHub.
package main

import cmd "github.com/hdr-community/hdr-installer/cmd/hdrinstaller"

func main() {
	cmd.Execute()
}
