package schema_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/twpayne/go-vfs/v4/vfst"

	"github.com/archon-install/archon/pkg/schema"
)

const validConfig = `
disks:
  /dev/sda:
    - size: 256
      type: ef00
      filesystem: vfat
      mountpoint: /boot
    - size: 10240
      type: "8304"
      filesystem: ext4
      mountpoint: /
    - type: "8302"
      filesystem: btrfs
      mountpoint: /home
packages: [linux, pacman, sed, sudo]
timezone: Asia/Shanghai
locale: en_US.UTF-8
hostname: test-pc
user:
  name: tester
  fullname: Test User
  password: "1234"
mirrors:
  - https://mirrors.example.org/archlinux
desktop: kde
drivers: [xf86-video-fbdev]
`

func loadFromString(content string) (*schema.Configuration, error) {
	fs, cleanup, err := vfst.NewTestFS(map[string]interface{}{
		"/etc/archon/install.yaml": content,
	})
	Expect(err).ToNot(HaveOccurred())
	defer cleanup()
	return schema.Load(fs, "/etc/archon/install.yaml")
}

var _ = Describe("loading a configuration", func() {
	It("parses every section", func() {
		c, err := loadFromString(validConfig)
		Expect(err).ToNot(HaveOccurred())

		Expect(c.Disks).To(HaveKey("/dev/sda"))
		Expect(c.Disks["/dev/sda"]).To(HaveLen(3))
		Expect(c.Disks["/dev/sda"][0].Type).To(Equal(schema.EFISystem))
		Expect(c.Disks["/dev/sda"][2].Size).To(BeZero())
		Expect(c.TimeZone).To(Equal("Asia/Shanghai"))
		Expect(c.HostName).To(Equal("test-pc"))
		Expect(c.User.Name).To(Equal("tester"))
		Expect(c.Desktop).To(Equal(schema.KDE))
	})

	It("fails for a missing file", func() {
		fs, cleanup, err := vfst.NewTestFS(map[string]interface{}{})
		Expect(err).ToNot(HaveOccurred())
		defer cleanup()

		_, err = schema.Load(fs, "/etc/archon/install.yaml")
		Expect(err).To(HaveOccurred())
	})

	It("rejects a size-omitted partition that is not last", func() {
		_, err := loadFromString(`
disks:
  /dev/sda:
    - type: "8304"
      filesystem: ext4
      mountpoint: /
    - size: 256
      type: ef00
      filesystem: vfat
      mountpoint: /boot
hostname: test-pc
user:
  name: tester
`)
		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(ContainSubstring("only the last partition may omit its size"))
	})

	It("rejects unknown filesystems and partition types", func() {
		_, err := loadFromString(`
disks:
  /dev/sda:
    - size: 100
      type: "8304"
      filesystem: zfs
      mountpoint: /
hostname: test-pc
user:
  name: tester
`)
		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(ContainSubstring("unknown filesystem"))

		_, err = loadFromString(`
disks:
  /dev/sda:
    - size: 100
      type: "9999"
      filesystem: ext4
      mountpoint: /
hostname: test-pc
user:
  name: tester
`)
		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(ContainSubstring("unknown partition type"))
	})

	It("requires a hostname and a user", func() {
		_, err := loadFromString(`
disks:
  /dev/sda:
    - size: 100
      type: "8304"
      filesystem: ext4
      mountpoint: /
user:
  name: tester
`)
		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(ContainSubstring("hostname"))
	})
})

var _ = Describe("configuration values", func() {
	Context("ApplyEnv", func() {
		It("overrides hostname and password", func() {
			c := &schema.Configuration{HostName: "old", User: schema.User{Name: "x", Password: "old"}}
			c.ApplyEnv(map[string]string{
				"ARCHON_HOSTNAME":      "new-host",
				"ARCHON_USER_PASSWORD": "s3cret",
			})
			Expect(c.HostName).To(Equal("new-host"))
			Expect(c.User.Password).To(Equal("s3cret"))
		})

		It("keeps values without overrides", func() {
			c := &schema.Configuration{HostName: "old"}
			c.ApplyEnv(map[string]string{})
			Expect(c.HostName).To(Equal("old"))
		})
	})

	Context("AllPackages", func() {
		It("combines base packages, drivers and the desktop set", func() {
			c := &schema.Configuration{
				Packages: []string{"linux", "pacman"},
				Drivers:  []string{"xf86-video-fbdev"},
				Desktop:  schema.KDE,
			}
			all := c.AllPackages()
			Expect(all).To(ContainElements("linux", "pacman", "xf86-video-fbdev", "plasma-desktop", "sddm"))
		})

		It("leaves the desktop out when none is configured", func() {
			c := &schema.Configuration{Packages: []string{"linux"}}
			Expect(c.AllPackages()).To(Equal([]string{"linux"}))
		})
	})

	Context("PartitionDevice", func() {
		It("concatenates disk and index for plain devices", func() {
			Expect(schema.PartitionDevice("/dev/sda", 2)).To(Equal("/dev/sda2"))
		})
		It("inserts a p separator for nvme and mmcblk devices", func() {
			Expect(schema.PartitionDevice("/dev/nvme0n1", 1)).To(Equal("/dev/nvme0n1p1"))
			Expect(schema.PartitionDevice("/dev/mmcblk0", 3)).To(Equal("/dev/mmcblk0p3"))
		})
	})

	Context("FileSystem", func() {
		It("knows its formatter command", func() {
			Expect(schema.Btrfs.Formatter()).To(Equal([]string{"mkfs.btrfs", "-f"}))
			Expect(schema.Ext4.Formatter()).To(Equal([]string{"mkfs.ext4"}))
			Expect(schema.Fat32.Formatter()).To(Equal([]string{"mkfs.fat", "-F32"}))
		})
	})
})
