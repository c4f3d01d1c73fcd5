package constants

import "errors"

var (
	// ErrAlreadyMounted is returned when a mount target already has a
	// filesystem mounted on it.
	ErrAlreadyMounted = errors.New("already mounted")
	// ErrDuplicateMountPoint is returned when two partitions resolve to
	// the same normalized mount point.
	ErrDuplicateMountPoint = errors.New("duplicate mount point")
	// ErrMissingRoot is returned when no partition is assigned to the
	// root mount point.
	ErrMissingRoot = errors.New("no partition assigned to the root mount point")
	// ErrNotConfirmed is returned when install runs without --yes.
	ErrNotConfirmed = errors.New("refusing to wipe the configured disks without --yes")
)

const (
	OpConfigureMirrors  = "configure-mirrors"
	OpInstallPackages   = "install-packages"
	OpWriteFstab        = "write-fstab"
	OpConfigureTimezone = "configure-timezone"
	OpConfigureLocale   = "configure-locale"
	OpConfigureHostname = "configure-hostname"
	OpConfigureNetwork  = "configure-network"
	OpConfigureBoot     = "configure-boot"
	OpCreateUser        = "create-user"
	OpConfigureDesktop  = "configure-desktop"

	// DefaultRoot is where the target root partition gets mounted.
	DefaultRoot = "/mnt"

	DefaultConfigPath = "/etc/archon/install.yaml"

	// MirrorList is the pacman mirror list consumed by pacstrap on the
	// host, not under the target root.
	MirrorList = "/etc/pacman.d/mirrorlist"

	LogDir = "/var/log/archon"
)
