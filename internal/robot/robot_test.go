package robot

import (
	"context"
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/itohio/armctl/internal/canbus"
	"github.com/itohio/armctl/internal/canbus/loopback"
	"github.com/itohio/armctl/internal/config"
	"github.com/itohio/armctl/internal/statemachine"
)

func echoBus() canbus.Bus {
	return loopback.New(func(sent canbus.Frame) (canbus.Frame, bool) { return sent, true })
}

func newTestRobot(t *testing.T) (*Robot, string) {
	t.Helper()
	cfg := config.Default()
	cfg.SocketPath = filepath.Join(t.TempDir(), "robot.sock")
	r := New(cfg, echoBus())

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	if err := r.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(r.Stop)
	return r, cfg.SocketPath
}

func dial(t *testing.T, path string) net.Conn {
	t.Helper()
	var conn net.Conn
	var err error
	for i := 0; i < 20; i++ {
		conn, err = net.Dial("unix", path)
		if err == nil {
			return conn
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("dial: %v", err)
	return nil
}

// TestTickDispatchesMoveCommandWithoutDeadlock is a regression test for
// a self-deadlock where Tick locked the state machine's mutex around
// the dispatch loop, and a setMultiJointAngles dispatch re-acquired the
// same (non-reentrant) mutex via BeginTrajectory. BeginTrajectory now
// assumes Tick's lock is already held and does not lock itself.
func TestTickDispatchesMoveCommandWithoutDeadlock(t *testing.T) {
	r, path := newTestRobot(t)
	conn := dial(t, path)
	defer conn.Close()

	payload := `{"cmd":"setMultiJointAngles","angles":[10,0,0,0,0,0,0]}` + "\n"
	if _, err := conn.Write([]byte(payload)); err != nil {
		t.Fatalf("write: %v", err)
	}

	ctx := context.Background()
	done := make(chan struct{})
	go func() {
		// Give the reader goroutine a moment to enqueue the command,
		// then run a handful of ticks.
		time.Sleep(20 * time.Millisecond)
		for i := uint64(0); i < 5; i++ {
			r.Tick(ctx, i, false)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Tick did not return; suspected deadlock dispatching a move command")
	}

	if r.machine.State() != statemachine.TrajectoryActive {
		t.Fatalf("expected TrajectoryActive after dispatching a move, got %v", r.machine.State())
	}
}

// TestStepTrajectoryUpdatesTwinMirror is a regression test for the
// twin visualization mirror staying all-zero: stepTrajectory must copy
// the OTG's per-joint output position into tracker.Twin.JointAnglesDeg
// every tick a trajectory is active, per spec §3/§4.5.
func TestStepTrajectoryUpdatesTwinMirror(t *testing.T) {
	r, path := newTestRobot(t)
	conn := dial(t, path)
	defer conn.Close()

	payload := `{"cmd":"setMultiJointAngles","angles":[10,0,0,0,0,0,0]}` + "\n"
	if _, err := conn.Write([]byte(payload)); err != nil {
		t.Fatalf("write: %v", err)
	}
	time.Sleep(20 * time.Millisecond)

	ctx := context.Background()
	for i := uint64(0); i < 50; i++ {
		r.Tick(ctx, i, false)
	}

	if r.tracker.Twin.JointAnglesDeg[0] == 0 {
		t.Fatal("expected stepTrajectory to have copied the OTG's output into the twin mirror")
	}
}

func TestSetMaxSpeedModifierUpdatesAllMotors(t *testing.T) {
	r, _ := newTestRobot(t)

	r.SetMaxSpeedModifier(0.5)
	for i, m := range r.motors {
		if m.Config.SpeedModifier != 0.5 {
			t.Fatalf("motor %d: SpeedModifier=%v, want 0.5", i, m.Config.SpeedModifier)
		}
	}
}

func TestDispatchDropsOutOfRangeMotorID(t *testing.T) {
	r, path := newTestRobot(t)
	conn := dial(t, path)
	defer conn.Close()

	conn.Write([]byte(`{"cmd":"setSpeed","motorID":99,"value":1}` + "\n"))
	time.Sleep(20 * time.Millisecond)

	// Should not panic and the command should simply be dropped; a
	// handful of ticks should run cleanly.
	for i := uint64(0); i < 3; i++ {
		r.Tick(context.Background(), i, false)
	}
}

func TestEmergencyEstopTransitionsStateMachine(t *testing.T) {
	r, path := newTestRobot(t)
	conn := dial(t, path)
	defer conn.Close()

	conn.Write([]byte(`{"cmd":"setESTOP"}` + "\n"))

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if r.machine.State() == statemachine.Estop {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("expected Estop state, got %v", r.machine.State())
}
