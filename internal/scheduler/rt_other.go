//go:build !linux

package scheduler

import "github.com/itohio/armctl/pkg/logger"

// configureRealTime is a no-op outside Linux: SCHED_FIFO, mlockall and
// CPU pinning are Linux-specific, so other platforms always run
// best-effort.
func configureRealTime() bool {
	logger.Log.Warn().Msg("real-time scheduling is only implemented on linux")
	return false
}
