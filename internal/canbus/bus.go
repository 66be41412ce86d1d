package canbus

import (
	"context"
	"errors"
	"time"
)

// ErrTimeout is returned by Transact when no matching response arrives
// before the deadline.
var ErrTimeout = errors.New("canbus: transaction timed out")

// ErrMismatch is returned by Transact when a frame with the wrong
// arbitration id or command byte is read back; per the vendor protocol
// the driver does not retry, it simply reports the mismatch.
var ErrMismatch = errors.New("canbus: response frame mismatch")

// Bus is the minimal synchronous CAN transport the motor driver (C2)
// depends on. It is treated as an external collaborator by the
// specification: this package only defines the contract and a couple of
// reference implementations (loopback, socketcan) used for development
// and tests — a real deployment may substitute any implementation that
// satisfies this interface.
type Bus interface {
	// Send transmits a single frame, blocking until the driver layer
	// below has accepted it (not until any response arrives).
	Send(ctx context.Context, f Frame) error
	// Receive blocks until a frame is available or ctx is done.
	Receive(ctx context.Context) (Frame, error)
}

// Transact sends f and reads one response frame within the deadline
// (from spec §4.2, a 10ms ceiling per transaction). If that frame does
// not match (arbID, command) it returns ErrMismatch at once, without
// reading further or retrying the send, relying on the vendor
// protocol's synchronous-echo guarantee on a quiet bus.
func Transact(ctx context.Context, bus Bus, f Frame, wantArbID uint32, wantCmd byte, deadline time.Duration) (Frame, error) {
	ctx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	if err := bus.Send(ctx, f); err != nil {
		return Frame{}, err
	}

	resp, err := bus.Receive(ctx)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return Frame{}, ErrTimeout
		}
		return Frame{}, err
	}

	if resp.ArbitrationID != wantArbID || resp.Command() != wantCmd {
		return Frame{}, ErrMismatch
	}

	return resp, nil
}
