//go:build !linux

package main

import (
	"fmt"

	"github.com/itohio/armctl/internal/canbus"
)

func openSocketCAN(iface string) (canbus.Bus, func(), error) {
	return nil, nil, fmt.Errorf("socketcan is only available on linux; run with -fake-bus on this platform")
}
