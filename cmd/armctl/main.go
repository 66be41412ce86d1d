// Command armctl runs the real-time control core for the 7-DOF arm:
// it loads the motor/config table, opens a CAN transport, and starts
// the IPC server and the fixed-cadence control thread. Modeled on the
// teacher's cmd/manipulator/main.go flag/signal.NotifyContext shutdown
// pattern, generalized from a serial DNDM client to this binary's own
// CAN+Unix-socket transports.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/itohio/armctl/internal/canbus"
	"github.com/itohio/armctl/internal/canbus/loopback"
	"github.com/itohio/armctl/internal/config"
	"github.com/itohio/armctl/internal/robot"
	"github.com/itohio/armctl/internal/scheduler"
	"github.com/itohio/armctl/pkg/logger"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file (defaults baked in if omitted)")
	socketOverride := flag.String("socket", "", "override the configured IPC socket path")
	rateOverride := flag.Int("rate", 0, "override the configured control rate in Hz")
	canIface := flag.String("can", "", "override the configured CAN interface name")
	fakeBus := flag.Bool("fake-bus", false, "use the in-memory loopback CAN transport instead of a real CAN interface")
	jsonLogs := flag.Bool("json-logs", false, "emit line-delimited JSON logs instead of console output")
	flag.Parse()

	if *jsonLogs {
		logger.UseJSON()
	}

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			logger.Log.Fatal().Err(err).Msg("failed to load config")
		}
		cfg = loaded
	}
	if *socketOverride != "" {
		cfg.SocketPath = *socketOverride
	}
	if *rateOverride > 0 {
		cfg.ControlRateHz = *rateOverride
	}
	if *canIface != "" {
		cfg.CANInterface = *canIface
	}

	bus, closeBus, err := openBus(*fakeBus, cfg.CANInterface)
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("failed to open CAN transport")
	}
	defer closeBus()

	r := robot.New(cfg, bus)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := r.Start(ctx); err != nil {
		logger.Log.Fatal().Err(err).Msg("failed to start ipc server")
	}
	defer r.Stop()

	logger.Log.Info().
		Int("controlRateHz", cfg.ControlRateHz).
		Int("broadcastRateHz", cfg.BroadcastRateHz).
		Str("socket", cfg.SocketPath).
		Msg("armctl starting")

	loop := scheduler.New(cfg.ControlRateHz, cfg.BroadcastRateHz, r.Tick)

	done := make(chan struct{})
	go func() {
		defer close(done)
		runtime.LockOSThread()
		loop.Run(ctx)
	}()

	<-ctx.Done()
	logger.Log.Info().Msg("shutdown signal received")
	<-done
	logger.Log.Info().Msg("armctl stopped")
}

func openBus(fake bool, iface string) (canbus.Bus, func(), error) {
	if fake {
		b := loopback.New(nil)
		return b, func() {}, nil
	}
	return openSocketCAN(iface)
}
