// SPDX-License-Identifier: MPL-2.0

// Package catalog gives navtree nodes their meaning.
//
// Every node carries one of three payloads: a Menu of labelled entries that
// parallels its children, a Downloadable release whose focus runs an
// acquisition, or an Empty placeholder with a message. Focus and destroy
// behaviour is dispatched on the payload's concrete type, and a payload is
// only ever attached together with that behaviour.
package catalog
