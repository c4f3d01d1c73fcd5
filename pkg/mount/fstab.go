package mount

import (
	"path/filepath"

	"github.com/deniswernert/go-fstab"

	internalUtils "github.com/archon-install/archon/internal/utils"
)

// FstabEntries returns the persistent mount entries for the boot and
// home roles, in that declaration order. A role backed by the same disk
// as the root partition is skipped on purpose: the booted system
// discovers partitions on its own disk by itself.
func FstabEntries(specs *Specs) []*fstab.Mount {
	var entries []*fstab.Mount
	for _, role := range []struct {
		target string
		spec   *Spec
	}{
		{"/boot", specs.Boot},
		{"/home", specs.Home},
	} {
		if role.spec == nil || role.spec.Disk == specs.Root.Disk {
			continue
		}
		entries = append(entries, &fstab.Mount{
			Spec:    role.spec.Partition(),
			File:    role.target,
			VfsType: role.spec.FileSystemName,
			MntOps:  map[string]string{"defaults": ""},
			Freq:    0,
			PassNo:  0,
		})
	}
	return entries
}

// WriteFstab appends the persistent mount entries to <root>/etc/fstab.
func WriteFstab(specs *Specs, root string) error {
	for _, entry := range FstabEntries(specs) {
		if err := internalUtils.AppendLine(filepath.Join(root, "etc/fstab"), entry.String()); err != nil {
			return err
		}
	}
	return nil
}
