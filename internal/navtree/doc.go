// SPDX-License-Identifier: MPL-2.0

// Package navtree implements the ownership tree that backs interactive
// navigation.
//
// Nodes live in an arena owned by a Tree and are addressed by NodeID handles.
// A node owns its children exclusively; the parent link is a plain handle and
// never keeps a parent alive. Destruction is a post-order walk: a node is first
// detached from its parent, then every descendant is destroyed, and only then
// is the node's own destroy callback invoked on its payload.
//
// The tree has no rendering concern. A node may carry an on-focus callback, and
// whatever focusing a node means (drawing a menu, running a download) is owned
// entirely by that callback. A Cursor walks the tree one edge at a time, so
// navigation always mirrors tree adjacency.
package navtree
