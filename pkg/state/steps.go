package state

import (
	"context"
	"fmt"

	"github.com/spectrocloud-labs/herd"

	cnst "github.com/archon-install/archon/internal/constants"
	internalUtils "github.com/archon-install/archon/internal/utils"
	"github.com/archon-install/archon/pkg/mount"
)

// ConfigureMirrorsDagStep writes the pacman mirror list used by
// pacstrap on the host.
func (s *State) ConfigureMirrorsDagStep(g *herd.Graph) error {
	return g.Add(cnst.OpConfigureMirrors, herd.WithCallback(
		func(_ context.Context) error {
			lines := make([]string, 0, len(s.Config.Mirrors))
			for _, mirror := range s.Config.Mirrors {
				lines = append(lines, fmt.Sprintf("Server = %s/$repo/os/$arch", mirror))
			}
			s.Logger.Info().Int("mirrors", len(lines)).Msg("writing mirror list")
			return internalUtils.WriteFileLines(s.mirrorList(), lines...)
		},
	))
}

// InstallPackagesDagStep bootstraps the base system plus drivers and
// desktop packages into the mounted root.
func (s *State) InstallPackagesDagStep(g *herd.Graph) error {
	return g.Add(cnst.OpInstallPackages,
		herd.WithDeps(cnst.OpConfigureMirrors),
		herd.WithCallback(
			func(_ context.Context) error {
				packages := s.Config.AllPackages()
				s.Logger.Info().Int("packages", len(packages)).Str("root", s.Rootdir).Msg("installing packages")
				return s.Runner.Run("pacstrap", append([]string{s.Rootdir}, packages...)...)
			},
		))
}

// WriteFstabDagStep persists mount entries for the optional roles that
// live on a different disk than the root partition.
func (s *State) WriteFstabDagStep(g *herd.Graph) error {
	return g.Add(cnst.OpWriteFstab,
		herd.WithDeps(cnst.OpInstallPackages),
		herd.WithCallback(
			func(_ context.Context) error {
				specs, err := mount.ResolveSpecs(s.Config.Disks)
				if err != nil {
					return err
				}
				return mount.WriteFstab(specs, s.Rootdir)
			},
		))
}

func (s *State) mirrorList() string {
	if s.MirrorList != "" {
		return s.MirrorList
	}
	return cnst.MirrorList
}
