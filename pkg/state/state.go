// Package state registers the in-scope installation steps on a herd
// graph. The graph runs while the target filesystems are mounted under
// Rootdir; everything here works through the command runner or writes
// files below the mounted root.
package state

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/spectrocloud-labs/herd"

	"github.com/archon-install/archon/pkg/run"
	"github.com/archon-install/archon/pkg/schema"
)

// State carries what the installation steps need: the read-only
// configuration, the target root, the command runner and the logger.
type State struct {
	Logger  zerolog.Logger
	Config  *schema.Configuration
	Rootdir string
	Runner  run.Runner

	// MirrorList overrides the host mirror list path, mainly for tests.
	MirrorList string
}

func (s *State) path(p ...string) string {
	return filepath.Join(append([]string{s.Rootdir}, p...)...)
}

// Register adds every installation step to the graph: mirrors first,
// then the package installation, then the system configuration steps
// that depend on the installed tree.
func (s *State) Register(g *herd.Graph) error {
	var err error

	err = s.LogIfErrorAndReturn(s.ConfigureMirrorsDagStep(g), "registering mirror configuration")
	if err != nil {
		return err
	}
	err = s.LogIfErrorAndReturn(s.InstallPackagesDagStep(g), "registering package installation")
	if err != nil {
		return err
	}

	s.LogIfError(s.WriteFstabDagStep(g), "registering fstab write")
	s.LogIfError(s.ConfigureTimezoneDagStep(g), "registering timezone configuration")
	s.LogIfError(s.ConfigureLocaleDagStep(g), "registering locale configuration")
	s.LogIfError(s.ConfigureHostnameDagStep(g), "registering hostname configuration")
	s.LogIfError(s.ConfigureNetworkDagStep(g), "registering network configuration")
	s.LogIfError(s.ConfigureBootDagStep(g), "registering boot configuration")
	s.LogIfError(s.CreateUserDagStep(g), "registering user creation")
	s.LogIfError(s.ConfigureDesktopDagStep(g), "registering desktop configuration")

	return nil
}

// Run executes the graph and surfaces the first step failure. Herd
// records step errors on the graph entries rather than aborting, so
// the layers are scanned after the run.
func (s *State) Run(ctx context.Context, g *herd.Graph) error {
	if err := g.Run(ctx); err != nil {
		return err
	}
	for _, layer := range g.Analyze() {
		for _, op := range layer {
			if op.Error != nil {
				return fmt.Errorf("step %s: %w", op.Name, op.Error)
			}
		}
	}
	return nil
}

// WriteDAG renders the graph layer by layer for dry runs and logs.
func (s *State) WriteDAG(g *herd.Graph) (out string) {
	for i, layer := range g.Analyze() {
		out += fmt.Sprintf("%d.\n", i+1)
		for _, op := range layer {
			if op.Error != nil {
				out += fmt.Sprintf(" <%s> (error: %s)\n", op.Name, op.Error.Error())
			} else {
				out += fmt.Sprintf(" <%s>\n", op.Name)
			}
		}
	}
	return
}

// LogIfError logs the error, if any, with the given message.
func (s *State) LogIfError(e error, msgContext string) {
	if e != nil {
		s.Logger.Err(e).Msg(msgContext)
	}
}

// LogIfErrorAndReturn logs the error, if any, with the given message,
// and hands it back.
func (s *State) LogIfErrorAndReturn(e error, msgContext string) error {
	if e != nil {
		s.Logger.Err(e).Msg(msgContext)
	}
	return e
}
