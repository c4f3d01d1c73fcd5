package cmd

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/archon-install/archon/internal/constants"
	"github.com/archon-install/archon/pkg/schema"
)

func installConfig() *schema.Configuration {
	return &schema.Configuration{
		Disks: map[string][]schema.Partition{
			"/dev/sda": {
				{Size: 256, Type: schema.EFISystem, FileSystem: schema.Fat32, MountPoint: "/boot"},
				{Type: schema.LinuxX8664Root, FileSystem: schema.Ext4, MountPoint: "/"},
			},
		},
		HostName: "box",
		User:     schema.User{Name: "tester"},
	}
}

var _ = Describe("install", func() {
	It("stops after printing the graph on a dry run", func() {
		Expect(install(context.Background(), installConfig(), "/mnt", true, false)).To(Succeed())
	})

	It("refuses to wipe disks without confirmation", func() {
		err := install(context.Background(), installConfig(), "/mnt", false, false)
		Expect(err).To(MatchError(constants.ErrNotConfirmed))
	})

	It("rejects duplicate mount points before touching anything", func() {
		cfg := installConfig()
		cfg.Disks["/dev/sdb"] = []schema.Partition{
			{Type: schema.LinuxHome, FileSystem: schema.Btrfs, MountPoint: "/boot"},
		}

		err := install(context.Background(), cfg, "/mnt", false, true)
		Expect(err).To(MatchError(constants.ErrDuplicateMountPoint))
	})

	It("rejects a configuration without a root partition", func() {
		cfg := installConfig()
		cfg.Disks = map[string][]schema.Partition{
			"/dev/sda": {
				{Type: schema.LinuxHome, FileSystem: schema.Btrfs, MountPoint: "/home"},
			},
		}

		err := install(context.Background(), cfg, "/mnt", false, true)
		Expect(err).To(MatchError(constants.ErrMissingRoot))
	})
})
