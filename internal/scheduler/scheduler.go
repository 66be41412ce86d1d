// Package scheduler implements the real-time control loop (C8): a
// single dedicated thread configured with SCHED_FIFO, CPU pinning and
// locked memory where the OS allows it, busy-waiting a fixed period
// and running the per-tick pipeline. Grounded on the original's
// controlThreadFunc (armatron_software/controls/src/real_time_daemon.cpp):
// the same configure-degrade-gracefully sequence and busy-wait deadline
// loop, reexpressed with golang.org/x/sys/unix instead of raw cgo/libc
// calls since the teacher's own x/devices/spi_linux.go favors syscall-
// level Linux access over a third-party hardware library.
package scheduler

import (
	"context"
	"time"

	"github.com/itohio/armctl/pkg/logger"
)

// Tick is invoked once per control period. The Loop sets broadcastDue
// when tickIndex%divider == 0, where divider is the integer truncation
// of controlRate/broadcastRate (at least 1).
type Tick func(ctx context.Context, tickIndex uint64, broadcastDue bool)

// Loop busy-waits a fixed period and calls fn each iteration until ctx
// is cancelled, per spec §4.8/§5: the control thread may only block on
// motor CAN I/O and its own mutex acquisitions, and it never sleeps
// between ticks.
type Loop struct {
	ControlRateHz   int
	BroadcastRateHz int

	fn Tick
}

// New builds a Loop at the given rates.
func New(controlRateHz, broadcastRateHz int, fn Tick) *Loop {
	return &Loop{ControlRateHz: controlRateHz, BroadcastRateHz: broadcastRateHz, fn: fn}
}

// Run configures the calling goroutine's OS thread for real-time
// scheduling (best-effort, degrading with a warning per spec §7(e))
// and then busy-waits the fixed period until ctx is cancelled. The
// caller must have already pinned this goroutine to its OS thread via
// runtime.LockOSThread, since SCHED_FIFO/affinity apply per-thread.
func (l *Loop) Run(ctx context.Context) {
	if !configureRealTime() {
		logger.Log.Warn().Msg("real-time scheduling unavailable, continuing best-effort")
	}

	period := time.Second / time.Duration(l.ControlRateHz)
	divider := l.ControlRateHz / l.BroadcastRateHz
	if divider <= 0 {
		divider = 1
	}

	next := time.Now()
	var tick uint64
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		for time.Now().Before(next) {
			// busy-wait: no sleep, to minimize scheduling jitter per §5.
		}
		next = next.Add(period)

		broadcastDue := tick%uint64(divider) == 0
		l.runTick(ctx, tick, broadcastDue)
		tick++
	}
}

// runTick invokes fn for one control period, recovering a panic so it
// is logged and the tick is skipped rather than killing the control
// thread, per spec §7's "no errors propagate out of the control
// thread". Ported from the teacher's handlePanic
// (pkg/robot/transport/transport.go).
func (l *Loop) runTick(ctx context.Context, tick uint64, broadcastDue bool) {
	defer func() {
		if r := recover(); r != nil {
			logger.Log.Error().Interface("panic", r).Uint64("tick", tick).Msg("recovered panic in control tick")
		}
	}()
	l.fn(ctx, tick, broadcastDue)
}
