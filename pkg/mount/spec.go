package mount

import (
	"fmt"
	"sort"
	"strings"

	"github.com/archon-install/archon/internal/constants"
	"github.com/archon-install/archon/pkg/schema"
)

// Spec points a canonical mount point at the physical partition backing
// it.
type Spec struct {
	Disk           string
	PartitionID    int
	FileSystemName string
}

// Partition returns the device node of the backing partition.
func (s Spec) Partition() string {
	return schema.PartitionDevice(s.Disk, s.PartitionID)
}

// Specs is the resolved view of the partition table. Root is always
// present; Boot and Home only when the table assigns their mount
// points.
type Specs struct {
	Root Spec
	Boot *Spec
	Home *Spec
}

// ResolveSpecs maps every partition to its normalized mount point and
// picks out the canonical roles. Partition ids are 1-based positions
// within each disk. Two partitions claiming the same mount point is a
// configuration error, raised before anything gets mounted.
func ResolveSpecs(disks map[string][]schema.Partition) (*Specs, error) {
	seen := map[string]Spec{}
	for _, disk := range schema.SortedDisks(disks) {
		for i, part := range disks[disk] {
			mp := strings.TrimRight(part.MountPoint, "/")
			if _, ok := seen[mp]; ok {
				return nil, fmt.Errorf("%w: %q", constants.ErrDuplicateMountPoint, part.MountPoint)
			}
			seen[mp] = Spec{
				Disk:           disk,
				PartitionID:    i + 1,
				FileSystemName: string(part.FileSystem),
			}
		}
	}

	root, ok := seen[""]
	if !ok {
		return nil, constants.ErrMissingRoot
	}
	specs := &Specs{Root: root}
	if boot, ok := seen["/boot"]; ok {
		specs.Boot = &boot
	}
	if home, ok := seen["/home"]; ok {
		specs.Home = &home
	}
	return specs, nil
}

// Entry is a single mount to perform: Source mounted at Target.
type Entry struct {
	Target string
	Source string
}

// Entries flattens the partition table into mount entries under root,
// sorted ascending by target path so a parent filesystem always mounts
// before anything nested under it.
func Entries(disks map[string][]schema.Partition, root string) []Entry {
	root = strings.TrimRight(root, "/")

	var entries []Entry
	for _, disk := range schema.SortedDisks(disks) {
		for i, part := range disks[disk] {
			entries = append(entries, Entry{
				Target: root + strings.TrimRight(part.MountPoint, "/"),
				Source: schema.PartitionDevice(disk, i+1),
			})
		}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Target < entries[j].Target })
	return entries
}
