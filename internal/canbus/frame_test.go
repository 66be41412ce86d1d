package canbus

import "testing"

func TestArbitrationIDRoundTrip(t *testing.T) {
	for id := 1; id <= 7; id++ {
		arb := ArbitrationIDFor(id)
		got, ok := MotorIDFromArbitration(arb)
		if !ok {
			t.Fatalf("motor id %d: arbitration id %x did not decode", id, arb)
		}
		if got != id {
			t.Fatalf("motor id %d round-tripped to %d", id, got)
		}
	}
}

func TestMotorIDFromArbitrationOutOfRange(t *testing.T) {
	if _, ok := MotorIDFromArbitration(0x13F); ok {
		t.Fatal("expected arbitration id below base to be rejected")
	}
	if _, ok := MotorIDFromArbitration(BaseArbitrationID + 8); ok {
		t.Fatal("expected arbitration id for motor 8 to be rejected")
	}
}

func TestPackUnpack16RoundTrip(t *testing.T) {
	cases := []int16{0, 1, -1, 32767, -32768, 1234, -4321}
	for _, v := range cases {
		var f Frame
		f.Pack16(2, v)
		if got := Unpack16(f.Data, 2); got != v {
			t.Fatalf("Pack16/Unpack16(%d): got %d", v, got)
		}
	}
}

func TestPackUnpack32RoundTrip(t *testing.T) {
	cases := []int32{0, 1, -1, 2147483647, -2147483648, 123456, -654321}
	for _, v := range cases {
		var f Frame
		f.Pack32(4, v)
		if got := Unpack32(f.Data, 4); got != v {
			t.Fatalf("Pack32/Unpack32(%d): got %d", v, got)
		}
	}
}

func TestNewFrameSetsArbitrationAndCommand(t *testing.T) {
	f := NewFrame(3, 0xA2)
	if f.ArbitrationID != 0x143 {
		t.Fatalf("expected arbitration id 0x143, got %#x", f.ArbitrationID)
	}
	if f.Command() != 0xA2 {
		t.Fatalf("expected command 0xA2, got %#x", f.Command())
	}
}
