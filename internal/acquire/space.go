// SPDX-License-Identifier: MPL-2.0

package acquire

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/shirou/gopsutil/v4/disk"

	"github.com/hdr-community/hdr-installer/internal/github"
)

func diskFree(ctx context.Context, path string) (uint64, error) {
	usage, err := disk.UsageWithContext(ctx, path)
	if err != nil {
		return 0, err
	}
	return usage.Free, nil
}

// preflight refuses an acquisition whose declared asset sizes already exceed
// the free space of the install root. Extracted archives need more than
// their declared size, so passing is no guarantee. An unreadable probe is
// only a warning.
func (p *Pipeline) preflight(ctx context.Context, logger *log.Logger, assets []github.Asset) error {
	if p.freeSpace == nil {
		return nil
	}

	var need uint64
	for _, a := range assets {
		if a.Size > 0 {
			need += uint64(a.Size)
		}
	}
	if need == 0 {
		return nil
	}

	free, err := p.freeSpace(ctx, p.root)
	if err != nil {
		logger.Warn("could not determine free space", "root", p.root, "err", err)
		return nil
	}
	if need > free {
		return &InstallError{
			Asset: p.root,
			Op:    "checking free space",
			Err:   fmt.Errorf("%w: need %d bytes, %d available", ErrInsufficientSpace, need, free),
		}
	}
	return nil
}
