//go:build linux

package scheduler

import (
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/itohio/armctl/pkg/logger"
)

const (
	schedFIFO        = 1
	rtThreadPriority = 99
)

type schedParam struct {
	priority int32
}

// configureRealTime attempts SCHED_FIFO at the highest priority,
// memory locking, and pinning to CPU 0, in that order, matching the
// original daemon's configureRealTimeThread. Each step degrades
// independently with a logged warning; the return value reports
// whether SCHED_FIFO was obtained.
func configureRealTime() bool {
	param := schedParam{priority: rtThreadPriority}
	_, _, errno := unix.Syscall(unix.SYS_SCHED_SETSCHEDULER, 0, uintptr(schedFIFO), uintptr(unsafe.Pointer(&param)))
	gotRT := errno == 0
	if !gotRT {
		logger.Log.Warn().Err(errno).Msg("SCHED_FIFO unavailable, falling back to default scheduling")
	}

	if err := unix.Mlockall(unix.MCL_CURRENT | unix.MCL_FUTURE); err != nil {
		logger.Log.Warn().Err(err).Msg("mlockall failed")
	}

	var cpus unix.CPUSet
	cpus.Set(0)
	if err := unix.SchedSetaffinity(0, &cpus); err != nil {
		logger.Log.Warn().Err(err).Msg("failed to set CPU affinity")
	}

	return gotRT
}
