// Package loopback provides an in-memory canbus.Bus used for development
// without hardware and for unit tests. It does not simulate motors: it
// is a pure channel-based frame pipe a test can drive by handing it a
// responder function.
package loopback

import (
	"context"

	"github.com/itohio/armctl/internal/canbus"
)

// Responder computes the frame a simulated motor would emit in response
// to a frame sent by the driver. Returning ok=false means "no response",
// used to exercise the timeout path.
type Responder func(sent canbus.Frame) (resp canbus.Frame, ok bool)

// Bus is a loopback canbus.Bus: every Send is handed to Responder, and
// the resulting frame (if any) is queued for the next Receive.
type Bus struct {
	Respond Responder

	pending chan canbus.Frame
}

// New creates a loopback bus. If responder is nil, Send never produces a
// response (every Transact times out), useful for overrun tests.
func New(responder Responder) *Bus {
	return &Bus{
		Respond: responder,
		pending: make(chan canbus.Frame, 8),
	}
}

func (b *Bus) Send(ctx context.Context, f canbus.Frame) error {
	if b.Respond == nil {
		return nil
	}
	resp, ok := b.Respond(f)
	if !ok {
		return nil
	}
	select {
	case b.pending <- resp:
	case <-ctx.Done():
		return ctx.Err()
	}
	return nil
}

func (b *Bus) Receive(ctx context.Context) (canbus.Frame, error) {
	select {
	case f := <-b.pending:
		return f, nil
	case <-ctx.Done():
		return canbus.Frame{}, ctx.Err()
	}
}
