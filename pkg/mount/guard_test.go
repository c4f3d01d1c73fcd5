package mount_test

import (
	"context"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/rs/zerolog"

	"github.com/archon-install/archon/pkg/mount"
	"github.com/archon-install/archon/pkg/run"
)

var _ = Describe("the mount guard", func() {
	var recorder *run.Recorder
	var guard *mount.Guard
	var entries []mount.Entry

	BeforeEach(func() {
		recorder = &run.Recorder{}
		guard = &mount.Guard{Runner: recorder, Logger: zerolog.Nop()}
		// Targets below a path that does not exist on the test host, so
		// the mounted check never reports a stray mount.
		entries = []mount.Entry{
			{Target: "/archon-test", Source: "/dev/sda2"},
			{Target: "/archon-test/boot", Source: "/dev/sda1"},
			{Target: "/archon-test/home", Source: "/dev/sda3"},
		}
	})

	Context("when the body succeeds", func() {
		It("mounts ascending and unmounts in exact reverse order", func() {
			bodyRan := false
			err := guard.Run(context.Background(), entries, func(context.Context) error {
				bodyRan = true
				return nil
			})
			Expect(err).ToNot(HaveOccurred())
			Expect(bodyRan).To(BeTrue())

			Expect(recorder.Calls()).To(Equal([]string{
				"mkdir -p /archon-test",
				"mount /dev/sda2 /archon-test",
				"mkdir -p /archon-test/boot",
				"mount /dev/sda1 /archon-test/boot",
				"mkdir -p /archon-test/home",
				"mount /dev/sda3 /archon-test/home",
				"umount /archon-test/home",
				"umount /archon-test/boot",
				"umount /archon-test",
			}))
		})
	})

	Context("when the body fails", func() {
		It("still unmounts everything, innermost first, and propagates the body error", func() {
			bodyErr := errors.New("pacstrap exploded")
			err := guard.Run(context.Background(), entries, func(context.Context) error {
				return bodyErr
			})
			Expect(err).To(MatchError(bodyErr))

			calls := recorder.Calls()
			Expect(calls[len(calls)-3:]).To(Equal([]string{
				"umount /archon-test/home",
				"umount /archon-test/boot",
				"umount /archon-test",
			}))
		})
	})

	Context("when acquiring the k-th mount fails", func() {
		It("unwinds exactly the k-1 acquired mounts in reverse order", func() {
			recorder.FailMatch = "mount /dev/sda3"

			err := guard.Run(context.Background(), entries, func(context.Context) error {
				Fail("the body must not run when acquisition fails")
				return nil
			})
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("mounting /dev/sda3 on /archon-test/home"))

			Expect(recorder.Calls()).To(Equal([]string{
				"mkdir -p /archon-test",
				"mount /dev/sda2 /archon-test",
				"mkdir -p /archon-test/boot",
				"mount /dev/sda1 /archon-test/boot",
				"mkdir -p /archon-test/home",
				"mount /dev/sda3 /archon-test/home",
				"umount /archon-test/boot",
				"umount /archon-test",
			}))
		})
	})

	Context("when the scope gets canceled", func() {
		It("unmounts everything before reporting the cancellation", func() {
			ctx, cancel := context.WithCancel(context.Background())

			err := guard.Run(ctx, entries, func(ctx context.Context) error {
				cancel()
				return ctx.Err()
			})
			Expect(err).To(MatchError(context.Canceled))

			calls := recorder.Calls()
			Expect(calls[len(calls)-3:]).To(Equal([]string{
				"umount /archon-test/home",
				"umount /archon-test/boot",
				"umount /archon-test",
			}))
		})

		It("does not mount anything when already canceled", func() {
			ctx, cancel := context.WithCancel(context.Background())
			cancel()

			err := guard.Run(ctx, entries, func(context.Context) error { return nil })
			Expect(err).To(MatchError(context.Canceled))
			Expect(recorder.Calls()).To(BeEmpty())
		})
	})

	Context("when an unmount fails during teardown", func() {
		It("still attempts the remaining, shallower unmounts", func() {
			recorder.FailMatch = "umount /archon-test/boot"

			err := guard.Run(context.Background(), entries, func(context.Context) error {
				return nil
			})
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("umount /archon-test/boot"))

			calls := recorder.Calls()
			Expect(calls[len(calls)-3:]).To(Equal([]string{
				"umount /archon-test/home",
				"umount /archon-test/boot",
				"umount /archon-test",
			}))
		})

		It("keeps both the body error and the teardown failure", func() {
			recorder.FailMatch = "umount /archon-test/home"
			bodyErr := errors.New("inner work failed")

			err := guard.Run(context.Background(), entries, func(context.Context) error {
				return bodyErr
			})
			Expect(err).To(MatchError(bodyErr))
			Expect(err.Error()).To(ContainSubstring("umount /archon-test/home"))

			calls := recorder.Calls()
			Expect(calls[len(calls)-3:]).To(Equal([]string{
				"umount /archon-test/home",
				"umount /archon-test/boot",
				"umount /archon-test",
			}))
		})
	})
})
