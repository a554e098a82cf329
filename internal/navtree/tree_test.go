// SPDX-License-Identifier: MPL-2.0

package navtree

import (
	"context"
	"slices"
	"testing"
)

// recorder collects destroy callbacks in the order they fire.
type recorder struct {
	order []string
}

func (r *recorder) destroy(payload string) {
	r.order = append(r.order, payload)
}

// buildSample builds:
//
//	root
//	├── a
//	│   ├── a1
//	│   └── a2
//	└── b
func buildSample(t *testing.T, rec *recorder) (tree *Tree[string], ids map[string]NodeID) {
	t.Helper()

	tree = New[string]()
	ids = map[string]NodeID{"root": tree.Root()}
	tree.Attach(tree.Root(), "root", nil, rec.destroy)

	spawn := func(parent, name string) {
		id, ok := tree.SpawnChild(ids[parent])
		if !ok {
			t.Fatalf("SpawnChild(%s) failed", parent)
		}
		if !tree.Attach(id, name, nil, rec.destroy) {
			t.Fatalf("Attach(%s) failed", name)
		}
		ids[name] = id
	}
	spawn("root", "a")
	spawn("a", "a1")
	spawn("a", "a2")
	spawn("root", "b")
	return tree, ids
}

func TestNew_HasRootOnly(t *testing.T) {
	t.Parallel()

	tree := New[int]()
	if tree.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", tree.Len())
	}
	if _, ok := tree.Parent(tree.Root()); ok {
		t.Error("root should have no parent")
	}
	if tree.ChildCount(tree.Root()) != 0 {
		t.Error("fresh root should have no children")
	}
}

func TestSpawnChild_AppendsInOrder(t *testing.T) {
	t.Parallel()

	tree, ids := buildSample(t, &recorder{})

	got := tree.Children(ids["a"])
	want := []NodeID{ids["a1"], ids["a2"]}
	if !slices.Equal(got, want) {
		t.Errorf("Children(a) = %v, want %v", got, want)
	}
	if p, ok := tree.Parent(ids["a2"]); !ok || p != ids["a"] {
		t.Errorf("Parent(a2) = %v, %v; want %v, true", p, ok, ids["a"])
	}
}

func TestSpawnChild_DeadParent(t *testing.T) {
	t.Parallel()

	tree, ids := buildSample(t, &recorder{})
	tree.Destroy(ids["b"])

	if id, ok := tree.SpawnChild(ids["b"]); ok || id != NoNode {
		t.Errorf("SpawnChild(dead) = %v, %v; want NoNode, false", id, ok)
	}
	if id, ok := tree.SpawnChild(NodeID(999)); ok || id != NoNode {
		t.Errorf("SpawnChild(out of range) = %v, %v; want NoNode, false", id, ok)
	}
}

func TestDestroy_PostOrderAndDetached(t *testing.T) {
	t.Parallel()

	rec := &recorder{}
	tree, ids := buildSample(t, rec)

	if !tree.Destroy(ids["a"]) {
		t.Fatal("Destroy(a) returned false")
	}

	// Children first, in order, then the node itself, each exactly once.
	want := []string{"a1", "a2", "a"}
	if !slices.Equal(rec.order, want) {
		t.Errorf("destroy order = %v, want %v", rec.order, want)
	}

	// a is gone from root's children exactly once; b remains.
	if got := tree.Children(ids["root"]); !slices.Equal(got, []NodeID{ids["b"]}) {
		t.Errorf("Children(root) = %v, want [%v]", got, ids["b"])
	}
	for _, name := range []string{"a", "a1", "a2"} {
		if tree.Alive(ids[name]) {
			t.Errorf("%s still alive after destroying its subtree", name)
		}
	}
	if tree.Len() != 2 {
		t.Errorf("Len() = %d, want 2", tree.Len())
	}

	// A second destroy of the same handle is rejected and fires nothing.
	if tree.Destroy(ids["a"]) {
		t.Error("second Destroy(a) should fail")
	}
	if len(rec.order) != 3 {
		t.Errorf("destroy callbacks fired %d times, want 3", len(rec.order))
	}
}

func TestDestroy_RootEmptiesTree(t *testing.T) {
	t.Parallel()

	rec := &recorder{}
	tree, ids := buildSample(t, rec)

	tree.Destroy(ids["root"])

	want := []string{"a1", "a2", "a", "b", "root"}
	if !slices.Equal(rec.order, want) {
		t.Errorf("destroy order = %v, want %v", rec.order, want)
	}
	if tree.Len() != 0 {
		t.Errorf("Len() = %d, want 0", tree.Len())
	}
	if tree.Root() != NoNode {
		t.Errorf("Root() = %v, want NoNode", tree.Root())
	}
}

func TestDestroy_HandlesAreNotReused(t *testing.T) {
	t.Parallel()

	tree, ids := buildSample(t, &recorder{})
	tree.Destroy(ids["b"])

	fresh, ok := tree.SpawnChild(ids["root"])
	if !ok {
		t.Fatal("SpawnChild failed")
	}
	if fresh == ids["b"] {
		t.Error("a destroyed handle was reused for a new node")
	}
	if tree.Alive(ids["b"]) {
		t.Error("stale handle reports alive")
	}
}

func TestRemoveChild(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		parent     string
		child      string
		wantOK     bool
		wantFreed  []string
		wantRemain int
	}{
		{name: "direct child", parent: "a", child: "a1", wantOK: true, wantFreed: []string{"a1"}, wantRemain: 4},
		{name: "grandchild is not a child", parent: "root", child: "a1", wantOK: false, wantRemain: 5},
		{name: "sibling is not a child", parent: "b", child: "a", wantOK: false, wantRemain: 5},
		{name: "subtree", parent: "root", child: "a", wantOK: true, wantFreed: []string{"a1", "a2", "a"}, wantRemain: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			rec := &recorder{}
			tree, ids := buildSample(t, rec)

			if got := tree.RemoveChild(ids[tt.parent], ids[tt.child]); got != tt.wantOK {
				t.Fatalf("RemoveChild() = %v, want %v", got, tt.wantOK)
			}
			if !slices.Equal(rec.order, tt.wantFreed) {
				t.Errorf("destroyed %v, want %v", rec.order, tt.wantFreed)
			}
			if tree.Len() != tt.wantRemain {
				t.Errorf("Len() = %d, want %d", tree.Len(), tt.wantRemain)
			}
		})
	}
}

func TestFocus_RunsCallback(t *testing.T) {
	t.Parallel()

	tree := New[int]()
	var focused []NodeID
	child, _ := tree.SpawnChild(tree.Root())
	tree.Attach(child, 7, func(_ context.Context, tr *Tree[int], id NodeID) {
		v, _ := tr.Payload(id)
		if v != 7 {
			t.Errorf("payload in focus callback = %d, want 7", v)
		}
		focused = append(focused, id)
	}, nil)

	tree.Focus(context.Background(), child)
	tree.Focus(context.Background(), tree.Root()) // no callback: no-op
	tree.Focus(context.Background(), NodeID(42))  // dead handle: no-op

	if !slices.Equal(focused, []NodeID{child}) {
		t.Errorf("focused = %v, want [%v]", focused, child)
	}
}

func TestFocus_RejectsMutationDuringDispatch(t *testing.T) {
	t.Parallel()

	rec := &recorder{}
	tree, ids := buildSample(t, rec)

	var spawned, removed, destroyed, attached bool
	tree.Attach(ids["a"], "a", func(_ context.Context, tr *Tree[string], id NodeID) {
		_, spawned = tr.SpawnChild(id)
		removed = tr.RemoveChild(id, ids["a1"])
		destroyed = tr.Destroy(ids["b"])
		attached = tr.Attach(id, "changed", nil, nil)
	}, rec.destroy)

	tree.Focus(context.Background(), ids["a"])

	if spawned || removed || destroyed || attached {
		t.Errorf("mutation during focus accepted: spawn=%v remove=%v destroy=%v attach=%v",
			spawned, removed, destroyed, attached)
	}
	if tree.Len() != 5 || len(rec.order) != 0 {
		t.Errorf("tree changed during focus: Len()=%d destroyed=%v", tree.Len(), rec.order)
	}

	// Outside dispatch the same operations work again.
	if _, ok := tree.SpawnChild(ids["a"]); !ok {
		t.Error("SpawnChild after focus returned false")
	}
}

func TestInvalidHandles(t *testing.T) {
	t.Parallel()

	tree := New[string]()
	for _, id := range []NodeID{NoNode, NodeID(-7), NodeID(100)} {
		if tree.Alive(id) {
			t.Errorf("Alive(%d) = true", id)
		}
		if tree.Children(id) != nil {
			t.Errorf("Children(%d) != nil", id)
		}
		if _, ok := tree.Child(id, 0); ok {
			t.Errorf("Child(%d, 0) ok", id)
		}
		if _, ok := tree.Payload(id); ok {
			t.Errorf("Payload(%d) ok", id)
		}
		if tree.Attach(id, "x", nil, nil) {
			t.Errorf("Attach(%d) ok", id)
		}
		if tree.Destroy(id) {
			t.Errorf("Destroy(%d) ok", id)
		}
	}
	if tree.Len() != 1 {
		t.Errorf("Len() = %d after rejected operations, want 1", tree.Len())
	}
}
