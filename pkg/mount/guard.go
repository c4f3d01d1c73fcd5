package mount

import (
	"context"
	"fmt"

	"github.com/hashicorp/go-multierror"
	"github.com/rs/zerolog"

	"github.com/archon-install/archon/pkg/run"
)

// Guard owns the lifecycle of a set of nested mounts. Every acquired
// target is pushed on a stack so that every exit path releases them in
// reverse order of acquisition, exactly once.
type Guard struct {
	Runner run.Runner
	Logger zerolog.Logger

	active []string
}

// Run mounts every entry in order, runs body, and unmounts everything
// acquired in exact reverse order. The entries must already be sorted
// ascending by target path so parents mount before children; Entries
// produces them that way.
//
// Teardown runs on every exit: after body success, after a body error,
// after a failed acquisition partway through the sequence, and after
// ctx cancellation. A failing unmount does not stop the remaining
// unmounts; teardown failures are aggregated and attached after the
// body or acquisition error.
func (g *Guard) Run(ctx context.Context, entries []Entry, body func(context.Context) error) (err error) {
	defer func() {
		if terr := g.release(); terr != nil {
			err = multierror.Append(err, terr).ErrorOrNil()
		}
	}()

	for _, e := range entries {
		if cerr := ctx.Err(); cerr != nil {
			return cerr
		}

		op := Operation{
			Source: e.Source,
			Target: e.Target,
			PrepareCallback: func() error {
				return g.Runner.Run("mkdir", "-p", e.Target)
			},
		}
		g.Logger.Debug().Str("what", e.Source).Str("where", e.Target).Msg("acquiring mount")
		if merr := op.Run(g.Runner); merr != nil {
			return fmt.Errorf("mounting %s on %s: %w", e.Source, e.Target, merr)
		}
		g.active = append(g.active, e.Target)
	}

	return body(ctx)
}

// release unmounts every active mount, most recently acquired first. A
// failure leaves the remaining, shallower mounts to still be attempted.
func (g *Guard) release() error {
	var allErrors error
	for len(g.active) > 0 {
		curr := g.active[len(g.active)-1]
		g.active = g.active[:len(g.active)-1]

		g.Logger.Debug().Str("what", curr).Msg("releasing mount")
		if err := g.Runner.Run("umount", curr); err != nil {
			g.Logger.Err(err).Str("what", curr).Msg("error unmounting")
			allErrors = multierror.Append(allErrors, err)
		}
	}
	return allErrors
}
