// SPDX-License-Identifier: MPL-2.0

// Package tui is the interactive front-end. Browser is a bubbletea model that
// walks a catalog tree with a single cursor, renders whatever the focused node
// draws into its frame, and runs Downloadable focuses on a goroutine while it
// polls their progress.
//
// Confirm and DescribeResult are shared with the non-interactive commands.
package tui
