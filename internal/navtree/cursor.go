// SPDX-License-Identifier: MPL-2.0

package navtree

import "context"

// ParentIndex is the index passed to ShiftFocusByIndex to move to the parent.
const ParentIndex = -1

// Cursor is the single focus pointer into a Tree. It only ever moves along
// one edge at a time: up to the current node's parent or down to one of its
// children.
type Cursor[P any] struct {
	tree    *Tree[P]
	current NodeID
}

// NewCursor returns a cursor positioned at start. A dead start handle falls
// back to the tree's root.
func NewCursor[P any](t *Tree[P], start NodeID) *Cursor[P] {
	if !t.Alive(start) {
		start = t.Root()
	}
	return &Cursor[P]{tree: t, current: start}
}

// Current returns the node the cursor points at.
func (c *Cursor[P]) Current() NodeID {
	return c.current
}

// Tree returns the tree the cursor walks.
func (c *Cursor[P]) Tree() *Tree[P] {
	return c.tree
}

// ShiftFocusTo moves the cursor to id when id is the current node's parent
// or one of its children. Any other target leaves the cursor where it is.
func (c *Cursor[P]) ShiftFocusTo(id NodeID) bool {
	if !c.tree.Alive(id) {
		return false
	}
	if parent, ok := c.tree.Parent(c.current); ok && parent == id {
		c.current = id
		return true
	}
	if parent, ok := c.tree.Parent(id); ok && parent == c.current {
		c.current = id
		return true
	}
	return false
}

// ShiftFocusByIndex moves to the parent when i is ParentIndex, or to the
// i-th child when 0 <= i < ChildCount. Other values fail.
func (c *Cursor[P]) ShiftFocusByIndex(i int) bool {
	if i == ParentIndex {
		parent, ok := c.tree.Parent(c.current)
		if !ok {
			return false
		}
		c.current = parent
		return true
	}
	child, ok := c.tree.Child(c.current, i)
	if !ok {
		return false
	}
	c.current = child
	return true
}

// Focus focuses the current node.
func (c *Cursor[P]) Focus(ctx context.Context) {
	c.tree.Focus(ctx, c.current)
}
