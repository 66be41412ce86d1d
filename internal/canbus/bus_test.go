package canbus

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/itohio/armctl/internal/canbus/loopback"
)

func TestTransactReturnsMatchingFrame(t *testing.T) {
	bus := loopback.New(func(sent Frame) (Frame, bool) {
		resp := sent
		resp.Data[1] = 0x42
		return resp, true
	})

	req := NewFrame(1, 0xA2)
	resp, err := Transact(context.Background(), bus, req, ArbitrationIDFor(1), 0xA2, 10*time.Millisecond)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Data[1] != 0x42 {
		t.Fatalf("expected echoed payload, got %v", resp.Data)
	}
}

func TestTransactMismatch(t *testing.T) {
	bus := loopback.New(func(sent Frame) (Frame, bool) {
		return NewFrame(1, 0x9C), true // wrong command
	})

	req := NewFrame(1, 0xA2)
	_, err := Transact(context.Background(), bus, req, ArbitrationIDFor(1), 0xA2, 10*time.Millisecond)
	if !errors.Is(err, ErrMismatch) {
		t.Fatalf("expected ErrMismatch, got %v", err)
	}
}

func TestTransactTimeout(t *testing.T) {
	bus := loopback.New(nil)

	req := NewFrame(1, 0xA2)
	_, err := Transact(context.Background(), bus, req, ArbitrationIDFor(1), 0xA2, 5*time.Millisecond)
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
}
