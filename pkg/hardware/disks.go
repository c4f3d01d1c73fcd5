// Package hardware probes the host for candidate installation targets.
package hardware

import (
	"fmt"

	"github.com/jaypipes/ghw"
)

// Disk is a block device that could serve as an installation target.
type Disk struct {
	Device    string
	SizeBytes uint64
	Model     string
	Removable bool
}

// ListDisks enumerates the block devices on the host.
func ListDisks() ([]Disk, error) {
	block, err := ghw.Block()
	if err != nil {
		return nil, fmt.Errorf("probing block devices: %w", err)
	}

	disks := make([]Disk, 0, len(block.Disks))
	for _, d := range block.Disks {
		disks = append(disks, Disk{
			Device:    fmt.Sprintf("/dev/%s", d.Name),
			SizeBytes: d.SizeBytes,
			Model:     d.Model,
			Removable: d.IsRemovable,
		})
	}
	return disks, nil
}
