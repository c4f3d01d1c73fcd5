package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spectrocloud-labs/herd"
	vfs "github.com/twpayne/go-vfs/v4"
	"github.com/urfave/cli/v2"

	"github.com/archon-install/archon/internal/constants"
	"github.com/archon-install/archon/internal/utils"
	"github.com/archon-install/archon/internal/version"
	"github.com/archon-install/archon/pkg/hardware"
	"github.com/archon-install/archon/pkg/mount"
	"github.com/archon-install/archon/pkg/partitioner"
	"github.com/archon-install/archon/pkg/run"
	"github.com/archon-install/archon/pkg/schema"
	"github.com/archon-install/archon/pkg/state"
)

var Commands = []*cli.Command{
	{
		Name:  "install",
		Usage: "partition and format the configured disks, then install the system onto them",
		Description: `
Wipes the configured disks, creates and formats their partitions, mounts the
new filesystems under the target root and installs and configures the system
inside. The mounts are released in reverse order on every outcome, including
failures and interrupts.
`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "config",
				Value: constants.DefaultConfigPath,
				Usage: "installation configuration file",
			},
			&cli.StringFlag{
				Name:  "env-file",
				Usage: "env file overriding selected configuration values",
			},
			&cli.StringFlag{
				Name:  "root",
				Value: constants.DefaultRoot,
				Usage: "directory the target root partition gets mounted on",
			},
			&cli.BoolFlag{
				Name:    "dry-run",
				EnvVars: []string{"ARCHON_DRY_RUN"},
				Usage:   "print the step graph without touching anything",
			},
			&cli.BoolFlag{
				Name:  "yes",
				Usage: "confirm that the configured disks may be wiped",
			},
		},
		Action: func(c *cli.Context) error {
			utils.SetLogger()

			v := version.Get()
			utils.Log.Info().Str("commit", v.GitCommit).Str("compiled with", v.GoVersion).Str("version", v.Version).Msg("Archon")

			cfg, err := schema.Load(vfs.OSFS, c.String("config"))
			if err != nil {
				utils.Log.Err(err).Send()
				return err
			}
			if envFile := c.String("env-file"); envFile != "" {
				env, err := utils.ReadEnv(envFile)
				if err != nil {
					utils.Log.Err(err).Str("file", envFile).Msg("reading env file")
					return err
				}
				cfg.ApplyEnv(env)
			}

			return install(c.Context, cfg, c.String("root"), c.Bool("dry-run"), c.Bool("yes"))
		},
	},
	{
		Name:  "disks",
		Usage: "list block devices that could serve as installation targets",
		Action: func(c *cli.Context) error {
			utils.SetLogger()
			disks, err := hardware.ListDisks()
			if err != nil {
				return err
			}
			for _, d := range disks {
				utils.Log.Info().
					Str("device", d.Device).
					Uint64("size", d.SizeBytes).
					Str("model", d.Model).
					Bool("removable", d.Removable).
					Msg("disk")
			}
			return nil
		},
	},
	{
		Name:  "version",
		Usage: "version",
		Action: func(c *cli.Context) error {
			v := version.Get()
			utils.Log.Info().Str("commit", v.GitCommit).Str("compiled with", v.GoVersion).Str("version", v.Version).Msg("Archon")
			return nil
		},
	},
}

// install drives the whole run: resolve the mount specs first so
// configuration errors surface before anything destructive, partition,
// then run the step graph inside the mount guard. An interrupt cancels
// the in-scope work; the guard still unwinds the mounts.
func install(ctx context.Context, cfg *schema.Configuration, root string, dryRun, yes bool) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	specs, err := mount.ResolveSpecs(cfg.Disks)
	if err != nil {
		utils.Log.Err(err).Msg("resolving mount specs")
		return err
	}
	utils.Log.Info().Str("root", specs.Root.Partition()).Msg("resolved mount specs")

	runner := run.ExecRunner{Logger: utils.Log}
	s := &state.State{
		Logger:  utils.Log,
		Config:  cfg,
		Rootdir: root,
		Runner:  runner,
	}

	g := herd.DAG(herd.EnableInit)
	if err := s.Register(g); err != nil {
		return err
	}

	utils.Log.Info().Msg(s.WriteDAG(g))
	if dryRun {
		return nil
	}
	if !yes {
		return constants.ErrNotConfirmed
	}

	p := partitioner.Partitioner{Runner: runner}
	if err := p.Apply(cfg.Disks); err != nil {
		utils.Log.Err(err).Msg("partitioning")
		return err
	}

	guard := &mount.Guard{Runner: runner, Logger: utils.Log}
	err = guard.Run(ctx, mount.Entries(cfg.Disks, root), func(ctx context.Context) error {
		return s.Run(ctx, g)
	})
	utils.Log.Info().Msg(s.WriteDAG(g))
	return err
}
