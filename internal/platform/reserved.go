// SPDX-License-Identifier: MPL-2.0

// Package platform holds filesystem rules that depend on where an install
// root ends up, not on the host the installer runs on.
package platform

import "strings"

// reservedDeviceNames cannot be used as file names on Windows or on FAT
// volumes mounted there, whatever the extension.
var reservedDeviceNames = map[string]bool{
	"CON": true, "PRN": true, "AUX": true, "NUL": true,
	"COM1": true, "COM2": true, "COM3": true, "COM4": true,
	"COM5": true, "COM6": true, "COM7": true, "COM8": true, "COM9": true,
	"LPT1": true, "LPT2": true, "LPT3": true, "LPT4": true,
	"LPT5": true, "LPT6": true, "LPT7": true, "LPT8": true, "LPT9": true,
}

// IsReservedName reports whether a single path component names a device on
// Windows. "nul.txt" and "CON " are reserved as well.
func IsReservedName(component string) bool {
	stem, _, _ := strings.Cut(component, ".")
	stem = strings.TrimRight(stem, " ")
	return reservedDeviceNames[strings.ToUpper(stem)]
}

// HasReservedComponent reports whether any slash- or backslash-separated
// component of name is reserved.
func HasReservedComponent(name string) bool {
	for part := range strings.FieldsFuncSeq(name, func(r rune) bool { return r == '/' || r == '\\' }) {
		if IsReservedName(part) {
			return true
		}
	}
	return false
}
