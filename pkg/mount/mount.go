// Package mount owns the mount lifecycle of an installation: resolving
// the partition table into mount specs, acquiring the target
// filesystems in hierarchical order under a guard that releases them in
// reverse on every exit path, and emitting the persistent fstab
// entries.
package mount

import (
	"github.com/moby/sys/mountinfo"

	"github.com/archon-install/archon/internal/constants"
	internalUtils "github.com/archon-install/archon/internal/utils"
	"github.com/archon-install/archon/pkg/run"
)

// Operation mounts a single source on a target through the command
// runner. PrepareCallback runs first, typically to create the target
// directory.
type Operation struct {
	Source          string
	Target          string
	PrepareCallback func() error
}

func (m Operation) Run(r run.Runner) error {
	l := internalUtils.Log.With().Str("what", m.Source).Str("where", m.Target).Logger()

	if m.PrepareCallback != nil {
		if err := m.PrepareCallback(); err != nil {
			l.Warn().Err(err).Msg("executing mount callback")
			return err
		}
	}

	// The target may not exist until the prepare step's mkdir ran on the
	// host, so a lookup error here only means "not mounted".
	if mounted, err := mountinfo.Mounted(m.Target); err == nil && mounted {
		l.Debug().Msg("Already mounted")
		return constants.ErrAlreadyMounted
	}

	l.Debug().Msg("mount ready")
	return r.Run("mount", m.Source, m.Target)
}
