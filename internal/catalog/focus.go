// SPDX-License-Identifier: MPL-2.0

package catalog

import (
	"context"

	"github.com/hdr-community/hdr-installer/internal/navtree"
)

// focusPayload renders a Menu or Empty node, or acquires a Downloadable and
// reports the outcome. A Downloadable focus blocks until the acquisition
// finishes.
func focusPayload(ctx context.Context, env *Env, t *Tree, id navtree.NodeID) {
	if env == nil || env.Screen == nil {
		return
	}
	p, _ := t.Payload(id)

	switch p := p.(type) {
	case *Menu:
		env.Screen.Title(p.title)
		for i, label := range p.entries {
			env.Screen.Entry(label, i == p.selected)
		}
		if len(p.entries) == 0 {
			return
		}
		if child, ok := t.Child(id, p.selected); ok {
			if cp, _ := t.Payload(child); cp != nil {
				if d, ok := cp.(*Downloadable); ok {
					env.Screen.Notes(d.body)
				}
			}
		}

	case *Downloadable:
		env.Screen.Title(p.title)
		if env.Acquirer == nil {
			return
		}
		res := env.Acquirer.Acquire(ctx, p.download, env.Progress)
		env.Screen.Report(p.title, res)

	case *Empty:
		env.Screen.Title(p.title)
		env.Screen.Message(p.message)
	}
}

func destroyPayload(p Payload) {
	switch p := p.(type) {
	case *Menu:
		p.entries = nil
		p.selected = 0
	case *Downloadable:
		p.download.Token = ""
	case *Empty:
	}
}
