// SPDX-License-Identifier: MPL-2.0

package navtree

import (
	"context"
	"slices"
)

// NoNode is the handle returned when no node exists (root's parent, failed spawn).
const NoNode NodeID = -1

type (
	// NodeID is a handle to a node in a Tree. A handle stays valid until the
	// node it names is destroyed; after that every operation taking it fails.
	NodeID int

	// FocusFunc is invoked when a node receives focus. It receives the owning
	// tree so the callback can inspect the node and its neighbours.
	FocusFunc[P any] func(ctx context.Context, t *Tree[P], id NodeID)

	// DestroyFunc releases whatever the payload holds. It runs exactly once,
	// after all of the node's children have been destroyed.
	DestroyFunc[P any] func(payload P)

	node[P any] struct {
		parent    NodeID
		children  []NodeID
		payload   P
		onFocus   FocusFunc[P]
		onDestroy DestroyFunc[P]
	}

	// Tree is an arena of nodes with exclusive parent-to-child ownership.
	//
	// A Tree is not safe for concurrent mutation. Structural operations
	// (SpawnChild, RemoveChild, Destroy, Attach) are rejected while a focus
	// callback is running, so a callback can never reshape the tree under
	// its own dispatch.
	Tree[P any] struct {
		nodes    []*node[P]
		root     NodeID
		live     int
		focusing int
	}
)

// New creates a tree holding a single root node with a zero payload.
func New[P any]() *Tree[P] {
	t := &Tree[P]{root: NoNode}
	t.root = t.alloc(NoNode)
	return t
}

// Root returns the root handle, or NoNode once the root has been destroyed.
func (t *Tree[P]) Root() NodeID {
	if !t.Alive(t.root) {
		return NoNode
	}
	return t.root
}

// Len reports the number of live nodes.
func (t *Tree[P]) Len() int {
	return t.live
}

// Alive reports whether id names a live node.
func (t *Tree[P]) Alive(id NodeID) bool {
	return t.get(id) != nil
}

// Parent returns the parent of id. The root and dead handles have no parent.
func (t *Tree[P]) Parent(id NodeID) (NodeID, bool) {
	n := t.get(id)
	if n == nil || n.parent == NoNode {
		return NoNode, false
	}
	return n.parent, true
}

// Children returns a copy of id's children in order.
func (t *Tree[P]) Children(id NodeID) []NodeID {
	n := t.get(id)
	if n == nil {
		return nil
	}
	return slices.Clone(n.children)
}

// ChildCount returns the number of children of id, or 0 for a dead handle.
func (t *Tree[P]) ChildCount(id NodeID) int {
	n := t.get(id)
	if n == nil {
		return 0
	}
	return len(n.children)
}

// Child returns the i-th child of id.
func (t *Tree[P]) Child(id NodeID, i int) (NodeID, bool) {
	n := t.get(id)
	if n == nil || i < 0 || i >= len(n.children) {
		return NoNode, false
	}
	return n.children[i], true
}

// Payload returns the payload stored on id.
func (t *Tree[P]) Payload(id NodeID) (P, bool) {
	n := t.get(id)
	if n == nil {
		var zero P
		return zero, false
	}
	return n.payload, true
}

// Attach sets a node's payload together with its focus and destroy
// callbacks. Either callback may be nil. A payload is never observable
// without the behaviour that goes with it.
func (t *Tree[P]) Attach(id NodeID, payload P, onFocus FocusFunc[P], onDestroy DestroyFunc[P]) bool {
	n := t.get(id)
	if n == nil || t.focusing > 0 {
		return false
	}
	n.payload = payload
	n.onFocus = onFocus
	n.onDestroy = onDestroy
	return true
}

// SpawnChild creates a new node owned by parent and appends it to the
// parent's children.
func (t *Tree[P]) SpawnChild(parent NodeID) (NodeID, bool) {
	p := t.get(parent)
	if p == nil || t.focusing > 0 {
		return NoNode, false
	}
	id := t.alloc(parent)
	p.children = append(p.children, id)
	return id, true
}

// RemoveChild detaches child from parent and destroys it. It is a no-op
// returning false when child is not currently one of parent's children.
func (t *Tree[P]) RemoveChild(parent, child NodeID) bool {
	p := t.get(parent)
	if p == nil || t.focusing > 0 || !slices.Contains(p.children, child) {
		return false
	}
	return t.Destroy(child)
}

// Destroy detaches id from its parent, destroys all of its descendants
// depth-first, runs id's destroy callback, and frees the node. Destroying
// the root empties the tree.
func (t *Tree[P]) Destroy(id NodeID) bool {
	n := t.get(id)
	if n == nil || t.focusing > 0 {
		return false
	}
	if p := t.get(n.parent); p != nil {
		p.children = slices.DeleteFunc(p.children, func(c NodeID) bool { return c == id })
	}
	n.parent = NoNode
	t.teardown(id)
	return true
}

// Focus runs id's focus callback, if any.
func (t *Tree[P]) Focus(ctx context.Context, id NodeID) {
	n := t.get(id)
	if n == nil || n.onFocus == nil {
		return
	}
	t.focusing++
	defer func() { t.focusing-- }()
	n.onFocus(ctx, t, id)
}

// teardown destroys id's subtree post-order. The node must already be
// detached from its parent.
func (t *Tree[P]) teardown(id NodeID) {
	n := t.nodes[id]
	children := n.children
	n.children = nil
	for _, c := range children {
		t.nodes[c].parent = NoNode
		t.teardown(c)
	}
	if n.onDestroy != nil {
		n.onDestroy(n.payload)
	}
	t.nodes[id] = nil
	t.live--
}

// alloc never reuses a freed slot, so a stale handle cannot alias a newer node.
func (t *Tree[P]) alloc(parent NodeID) NodeID {
	t.live++
	t.nodes = append(t.nodes, &node[P]{parent: parent})
	return NodeID(len(t.nodes) - 1)
}

func (t *Tree[P]) get(id NodeID) *node[P] {
	if id < 0 || int(id) >= len(t.nodes) {
		return nil
	}
	return t.nodes[id]
}
