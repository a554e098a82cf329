// SPDX-License-Identifier: MPL-2.0

// Package github is a permission-gated client for the GitHub Releases API.
//
// Every accessor re-validates read permission on the repository before doing
// anything else, and every permission check fails closed: a transport error,
// an unexpected status, or a response that does not look like a repository
// is treated as "no permission". Decisions are never cached, because a
// token's authority can change between calls.
package github
