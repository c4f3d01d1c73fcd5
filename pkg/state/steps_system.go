package state

import (
	"context"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/spectrocloud-labs/herd"

	cnst "github.com/archon-install/archon/internal/constants"
	internalUtils "github.com/archon-install/archon/internal/utils"
)

var defaultRouteRegex = regexp.MustCompile(`^default(?:\s.*)*\sdev\s+(\S+)`)

// ConfigureTimezoneDagStep links /etc/localtime inside the target root.
func (s *State) ConfigureTimezoneDagStep(g *herd.Graph) error {
	return g.Add(cnst.OpConfigureTimezone,
		herd.WithDeps(cnst.OpInstallPackages),
		herd.WithCallback(
			func(_ context.Context) error {
				return s.Runner.Run("ln", "-s",
					filepath.Join("../usr/share/zoneinfo", s.Config.TimeZone),
					s.path("etc/localtime"))
			},
		))
}

// ConfigureLocaleDagStep uncomments the configured locale, generates it
// inside the target and sets LANG.
func (s *State) ConfigureLocaleDagStep(g *herd.Graph) error {
	return g.Add(cnst.OpConfigureLocale,
		herd.WithDeps(cnst.OpInstallPackages),
		herd.WithCallback(
			func(_ context.Context) error {
				pattern := fmt.Sprintf(`s/^#(%s\s.*)/\1/`, regexp.QuoteMeta(s.Config.Locale))
				if err := s.Runner.Run("sed", "-E", "-i", pattern, s.path("etc/locale.gen")); err != nil {
					return err
				}
				if err := s.Runner.Run("arch-chroot", s.Rootdir, "locale-gen"); err != nil {
					return err
				}
				return internalUtils.WriteFileLines(s.path("etc/locale.conf"),
					fmt.Sprintf("LANG=%s", s.Config.Locale))
			},
		))
}

// ConfigureHostnameDagStep writes /etc/hostname inside the target root.
func (s *State) ConfigureHostnameDagStep(g *herd.Graph) error {
	return g.Add(cnst.OpConfigureHostname,
		herd.WithDeps(cnst.OpInstallPackages),
		herd.WithCallback(
			func(_ context.Context) error {
				return internalUtils.WriteFileLines(s.path("etc/hostname"), s.Config.HostName)
			},
		))
}

// ConfigureNetworkDagStep sets up DHCP for the default interface and
// enables the systemd network stack on the installed system.
func (s *State) ConfigureNetworkDagStep(g *herd.Graph) error {
	return g.Add(cnst.OpConfigureNetwork,
		herd.WithDeps(cnst.OpInstallPackages),
		herd.WithCallback(
			func(_ context.Context) error {
				routes, err := s.Runner.Output("ip", "route")
				if err != nil {
					return err
				}
				iface, err := DefaultNetworkInterface(routes)
				if err != nil {
					return err
				}
				s.Logger.Info().Str("interface", iface).Msg("configuring network")

				err = internalUtils.WriteFileLines(
					s.path(fmt.Sprintf("etc/systemd/network/20-%s.network", iface)),
					"[Match]",
					fmt.Sprintf("Name=%s", iface),
					"",
					"[Network]",
					"DHCP=ipv4")
				if err != nil {
					return err
				}

				for _, link := range [][2]string{
					{"systemd-networkd.service", "dbus-org.freedesktop.network1.service"},
					{"systemd-networkd.service", "multi-user.target.wants/systemd-networkd.service"},
					{"systemd-networkd.socket", "sockets.target.wants/systemd-networkd.socket"},
					{"systemd-networkd-wait-online.service", "network-online.target.wants/systemd-networkd-wait-online.service"},
					{"systemd-resolved.service", "dbus-org.freedesktop.resolve1.service"},
					{"systemd-resolved.service", "multi-user.target.wants/systemd-resolved.service"},
					{"systemd-timesyncd.service", "dbus-org.freedesktop.timesync1.service"},
					{"systemd-timesyncd.service", "sysinit.target.wants/systemd-timesyncd.service"},
				} {
					if err := s.linkService(link[0], link[1]); err != nil {
						return err
					}
				}

				return s.Runner.Run("ln", "-fs", "/run/systemd/resolve/stub-resolv.conf", s.path("etc/resolv.conf"))
			},
		))
}

// ConfigureBootDagStep rebuilds the initramfs with the systemd hook and
// installs systemd-boot with a loader entry.
func (s *State) ConfigureBootDagStep(g *herd.Graph) error {
	return g.Add(cnst.OpConfigureBoot,
		herd.WithDeps(cnst.OpInstallPackages),
		herd.WithCallback(
			func(_ context.Context) error {
				if err := s.Runner.Run("sed", "-i", `/^HOOKS=/ s/\budev\b/systemd/`, s.path("etc/mkinitcpio.conf")); err != nil {
					return err
				}
				if err := s.Runner.Run("arch-chroot", s.Rootdir, "mkinitcpio", "-P"); err != nil {
					return err
				}
				if err := s.Runner.Run("arch-chroot", s.Rootdir, "bootctl", "install"); err != nil {
					return err
				}

				entry := s.path("boot/loader/entries/arch-linux.conf")
				for _, line := range []string{
					"title    Arch Linux",
					"linux    /vmlinuz-linux",
					"initrd   /initramfs-linux.img",
					"options  rw",
				} {
					if err := internalUtils.AppendLine(entry, line); err != nil {
						return err
					}
				}
				return nil
			},
		))
}

// CreateUserDagStep creates the configured account, puts it in wheel
// and allows passwordless sudo for the group.
func (s *State) CreateUserDagStep(g *herd.Graph) error {
	return g.Add(cnst.OpCreateUser,
		herd.WithDeps(cnst.OpInstallPackages),
		herd.WithCallback(
			func(_ context.Context) error {
				user := s.Config.User
				if err := s.Runner.Run("arch-chroot", s.Rootdir, "useradd", "-c", user.FullName, "-m", user.Name); err != nil {
					return err
				}
				if err := s.Runner.Run("arch-chroot", s.Rootdir, "usermod", "-aG", "wheel", user.Name); err != nil {
					return err
				}
				if err := s.Runner.Run("arch-chroot", s.Rootdir, "sed", "-E", "-i", `s/^#\s*(%wheel.*NOPASSWD.*)/\1/`, "/etc/sudoers"); err != nil {
					return err
				}

				passwordLine := fmt.Sprintf("%s:%s", user.Name, user.Password)
				return s.Runner.Run("arch-chroot", s.Rootdir, "sh", "-c",
					fmt.Sprintf("printf '%%s' %s | chpasswd", shellQuote(passwordLine)))
			},
		))
}

// ConfigureDesktopDagStep enables the display manager when a desktop is
// configured. Registered unconditionally so the graph shape stays
// stable; the callback is a no-op without a desktop.
func (s *State) ConfigureDesktopDagStep(g *herd.Graph) error {
	return g.Add(cnst.OpConfigureDesktop,
		herd.WithDeps(cnst.OpInstallPackages, cnst.OpCreateUser),
		herd.WithCallback(
			func(_ context.Context) error {
				if s.Config.Desktop == "" {
					return nil
				}
				dm := s.Config.Desktop.DisplayManager()
				return s.linkService(fmt.Sprintf("%s.service", dm), "display-manager.service")
			},
		))
}

// DefaultNetworkInterface extracts the device of the default route from
// `ip route` output.
func DefaultNetworkInterface(routes string) (string, error) {
	for _, line := range strings.Split(routes, "\n") {
		if match := defaultRouteRegex.FindStringSubmatch(line); match != nil {
			return match[1], nil
		}
	}
	return "", fmt.Errorf("unable to find the default network interface")
}

// linkService symlinks a unit from /usr/lib/systemd/system into the
// target root's /etc/systemd/system, creating intermediate wants dirs.
func (s *State) linkService(source, target string) error {
	full := s.path("etc/systemd/system", target)
	if err := s.Runner.Run("mkdir", "-p", filepath.Dir(full)); err != nil {
		return err
	}
	return s.Runner.Run("ln", "-s", filepath.Join("/usr/lib/systemd/system", source), full)
}

func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
