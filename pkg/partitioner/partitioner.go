// Package partitioner turns the configured partition table into real
// partitions: wipe, create, type, format, in strict order. It is
// destructive and performs no rollback; the caller confirms intent
// before invoking it.
package partitioner

import (
	"fmt"
	"os"
	"time"

	"github.com/avast/retry-go"

	internalUtils "github.com/archon-install/archon/internal/utils"
	"github.com/archon-install/archon/pkg/run"
	"github.com/archon-install/archon/pkg/schema"
)

const defaultWaitAttempts = 10

type Partitioner struct {
	Runner run.Runner
	// WaitAttempts bounds how long Apply waits for a freshly created
	// partition's device node before formatting. Zero means the
	// default.
	WaitAttempts uint
}

// Apply wipes each disk's partition table and creates, types and
// formats every partition in declaration order, so the 1-based
// positional index matches the resolved mount specs. Any command
// failure aborts the whole installation: no retry, no rollback.
func (p Partitioner) Apply(disks map[string][]schema.Partition) error {
	for _, disk := range schema.SortedDisks(disks) {
		if err := p.Runner.Run("sgdisk", "-Z", disk); err != nil {
			return err
		}

		for i, part := range disks[disk] {
			index := i + 1

			create := fmt.Sprintf("-n=%d:0:0", index)
			if part.Size > 0 {
				create = fmt.Sprintf("-n=%d:0:+%dM", index, part.Size)
			}
			if err := p.Runner.Run("sgdisk", create, disk); err != nil {
				return err
			}
			if err := p.Runner.Run("sgdisk", fmt.Sprintf("-t=%d:%s", index, part.Type), disk); err != nil {
				return err
			}

			device := schema.PartitionDevice(disk, index)
			p.waitForDevice(device)

			formatter := part.FileSystem.Formatter()
			args := append(append([]string{}, formatter[1:]...), device)
			if err := p.Runner.Run(formatter[0], args...); err != nil {
				return err
			}
		}
	}

	internalUtils.Sync()
	return nil
}

// waitForDevice gives udev a moment to surface the partition's device
// node. Formatting proceeds after the wait either way; mkfs reports its
// own error if the node never showed up.
func (p Partitioner) waitForDevice(device string) {
	attempts := p.WaitAttempts
	if attempts == 0 {
		attempts = defaultWaitAttempts
	}

	err := retry.Do(
		func() error {
			_, err := os.Stat(device)
			return err
		},
		retry.Attempts(attempts),
		retry.Delay(200*time.Millisecond),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		internalUtils.Log.Debug().Str("device", device).Msg("device node not visible yet")
	}
}
