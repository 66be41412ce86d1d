//go:build linux

package main

import (
	"github.com/itohio/armctl/internal/canbus"
	"github.com/itohio/armctl/internal/canbus/socketcan"
)

func openSocketCAN(iface string) (canbus.Bus, func(), error) {
	b, err := socketcan.Open(iface)
	if err != nil {
		return nil, nil, err
	}
	return b, func() { _ = b.Close() }, nil
}
