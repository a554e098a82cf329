// SPDX-License-Identifier: MPL-2.0

// Package config handles application configuration using Viper with CUE as the file format.
//
// Configuration is loaded from $XDG_CONFIG_HOME/hdr-installer/config.cue (~/.config on
// Linux when unset, ~/Library/Application Support on macOS, %APPDATA% on Windows).
// Every key can be overridden from the environment with the HDR_INSTALLER_ prefix, for
// example HDR_INSTALLER_INSTALL_ROOT or HDR_INSTALLER_UI_VERBOSE.
//
// Files are validated against the embedded CUE schema (config_schema.cue) before they
// are merged over the defaults, so a typo in a key or a malformed repository name is
// reported with its path instead of being silently ignored.
package config
