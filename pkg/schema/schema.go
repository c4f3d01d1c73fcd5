// Package schema holds the read-only installation configuration: which
// disks get which partitions, what goes into the installed system and
// who owns it. A Configuration is built once, validated, and passed
// explicitly to every component.
package schema

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	vfs "github.com/twpayne/go-vfs/v4"
	"gopkg.in/yaml.v3"
)

// FileSystem identifies a filesystem kind together with the tool that
// creates it.
type FileSystem string

const (
	Btrfs FileSystem = "btrfs"
	Ext4  FileSystem = "ext4"
	Fat32 FileSystem = "vfat"
)

// Formatter returns the command that creates the filesystem, ready to
// be invoked with the partition device appended.
func (f FileSystem) Formatter() []string {
	switch f {
	case Btrfs:
		return []string{"mkfs.btrfs", "-f"}
	case Ext4:
		return []string{"mkfs.ext4"}
	case Fat32:
		return []string{"mkfs.fat", "-F32"}
	default:
		return nil
	}
}

func (f FileSystem) Valid() bool { return f.Formatter() != nil }

// PartitionType is a GPT partition type code as understood by sgdisk.
type PartitionType string

const (
	LinuxHome      PartitionType = "8302"
	LinuxX8664Root PartitionType = "8304"
	EFISystem      PartitionType = "ef00"
)

func (p PartitionType) Valid() bool {
	switch p {
	case LinuxHome, LinuxX8664Root, EFISystem:
		return true
	}
	return false
}

// Desktop is a desktop environment selection carrying its package set
// and display manager unit.
type Desktop string

const KDE Desktop = "kde"

func (d Desktop) Packages() []string {
	switch d {
	case KDE:
		return []string{"alacritty", "dolphin", "plasma-desktop", "sddm", "xorg-server"}
	}
	return nil
}

func (d Desktop) DisplayManager() string {
	if d == KDE {
		return "sddm"
	}
	return ""
}

// Partition describes a single partition to create. Size is in MiB; a
// zero size means "use the rest of the disk" and such a partition must
// be the last one on its disk, since sgdisk appends sequentially.
type Partition struct {
	Size       uint64        `yaml:"size,omitempty"`
	Type       PartitionType `yaml:"type"`
	FileSystem FileSystem    `yaml:"filesystem"`
	MountPoint string        `yaml:"mountpoint"`
}

// User is the account created on the installed system.
type User struct {
	Name     string `yaml:"name"`
	FullName string `yaml:"fullname,omitempty"`
	Password string `yaml:"password,omitempty"`
}

// Configuration is the full description of an installation.
type Configuration struct {
	Disks    map[string][]Partition `yaml:"disks"`
	Packages []string               `yaml:"packages"`
	TimeZone string                 `yaml:"timezone"`
	Locale   string                 `yaml:"locale"`
	HostName string                 `yaml:"hostname"`
	User     User                   `yaml:"user"`
	Mirrors  []string               `yaml:"mirrors"`
	Desktop  Desktop                `yaml:"desktop,omitempty"`
	Drivers  []string               `yaml:"drivers,omitempty"`
}

// Load reads and validates a configuration file. It takes a vfs.FS so
// tests can feed it a fake filesystem.
func Load(fsys vfs.FS, path string) (*Configuration, error) {
	data, err := fsys.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading configuration: %w", err)
	}

	var c Configuration
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate checks everything that can be checked before touching a
// disk. In particular, a size-omitted partition is only allowed as the
// last entry of its disk.
func (c *Configuration) Validate() error {
	if len(c.Disks) == 0 {
		return errors.New("no disks configured")
	}
	for _, disk := range SortedDisks(c.Disks) {
		parts := c.Disks[disk]
		if len(parts) == 0 {
			return fmt.Errorf("disk %s has no partitions", disk)
		}
		for i, p := range parts {
			if !p.Type.Valid() {
				return fmt.Errorf("disk %s partition %d: unknown partition type %q", disk, i+1, p.Type)
			}
			if !p.FileSystem.Valid() {
				return fmt.Errorf("disk %s partition %d: unknown filesystem %q", disk, i+1, p.FileSystem)
			}
			if p.Size == 0 && i != len(parts)-1 {
				return fmt.Errorf("disk %s partition %d: only the last partition may omit its size", disk, i+1)
			}
		}
	}
	if c.Desktop != "" && c.Desktop.Packages() == nil {
		return fmt.Errorf("unknown desktop %q", c.Desktop)
	}
	if c.HostName == "" {
		return errors.New("no hostname configured")
	}
	if c.User.Name == "" {
		return errors.New("no user configured")
	}
	return nil
}

// ApplyEnv overrides selected fields from environment style settings so
// secrets can be kept out of the configuration file.
func (c *Configuration) ApplyEnv(env map[string]string) {
	if v := env["ARCHON_HOSTNAME"]; v != "" {
		c.HostName = v
	}
	if v := env["ARCHON_USER_PASSWORD"]; v != "" {
		c.User.Password = v
	}
}

// AllPackages returns the base packages plus drivers and, when a
// desktop is configured, its package set.
func (c *Configuration) AllPackages() []string {
	pkgs := append([]string{}, c.Packages...)
	pkgs = append(pkgs, c.Drivers...)
	if c.Desktop != "" {
		pkgs = append(pkgs, c.Desktop.Packages()...)
	}
	return pkgs
}

// SortedDisks returns the disk device paths in deterministic order.
func SortedDisks(disks map[string][]Partition) []string {
	out := make([]string, 0, len(disks))
	for disk := range disks {
		out = append(out, disk)
	}
	sort.Strings(out)
	return out
}

// PartitionDevice returns the device node of the 1-based partition
// index on disk. nvme and mmcblk devices separate the index with "p".
func PartitionDevice(disk string, index int) string {
	name := strings.TrimPrefix(disk, "/dev/")
	if strings.HasPrefix(name, "nvme") || strings.HasPrefix(name, "mmcblk") || strings.HasPrefix(name, "loop") {
		return fmt.Sprintf("%sp%d", disk, index)
	}
	return fmt.Sprintf("%s%d", disk, index)
}
