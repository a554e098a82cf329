// SPDX-License-Identifier: MPL-2.0

package tui

import (
	"sync"

	"github.com/hdr-community/hdr-installer/internal/acquire"
)

type (
	// progressState is shared between the acquisition goroutine, which
	// reports into it, and the update loop, which polls it on every tick.
	progressState struct {
		mu     sync.Mutex
		done   int64
		total  int64
		cancel bool
		stage  acquire.Stage
		asset  string
		index  int
		count  int
	}

	progressSnapshot struct {
		done   int64
		total  int64
		cancel bool
		stage  acquire.Stage
		asset  string
		index  int
		count  int
	}
)

var (
	_ acquire.Progress      = (*progressState)(nil)
	_ acquire.StageObserver = (*progressState)(nil)
)

// Update records a download position and returns Cancel once the user has
// asked to stop.
func (p *progressState) Update(done, total int64) acquire.Decision {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.done, p.total = done, total
	if p.cancel {
		return acquire.Cancel
	}
	return acquire.Continue
}

func (p *progressState) Stage(stage acquire.Stage, asset string, index, count int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stage, p.asset, p.index, p.count = stage, asset, index, count
	if stage == acquire.StageDownloading {
		p.done, p.total = 0, 0
	}
}

func (p *progressState) requestCancel() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cancel = true
}

func (p *progressState) reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.done, p.total, p.cancel = 0, 0, false
	p.stage, p.asset, p.index, p.count = acquire.StageResolving, "", 0, 0
}

func (p *progressState) snapshot() progressSnapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return progressSnapshot{
		done:   p.done,
		total:  p.total,
		cancel: p.cancel,
		stage:  p.stage,
		asset:  p.asset,
		index:  p.index,
		count:  p.count,
	}
}

// fraction is the completed share of the current asset; 0 when the size is
// unknown.
func (s progressSnapshot) fraction() float64 {
	if s.total <= 0 {
		return 0
	}
	f := float64(s.done) / float64(s.total)
	if f > 1 {
		return 1
	}
	return f
}
