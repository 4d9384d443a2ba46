//go:build linux

package main

import "github.com/c35s/mhdp/bus"

// the controller's register space, and one page in the low-4K modes
const (
	devMemSize = 0x100000
	secMemSize = 0x1000
)

func openDevMem(mode bus.Mode, basePhys, secPhys int64) (base, sec bus.Regs, closer func(), err error) {
	size := devMemSize
	if mode == bus.Low4KAPB || mode == bus.Low4KSAPB {
		size = bus.WindowSize
	}

	bm, err := bus.OpenDevMem("/dev/mem", basePhys, size)
	if err != nil {
		return nil, nil, nil, err
	}

	if mode == bus.NormalAPB {
		return bm, nil, func() { bm.Close() }, nil
	}

	secSize := secMemSize
	if mode == bus.NormalSAPB {
		secSize = devMemSize
	}

	sm, err := bus.OpenDevMem("/dev/mem", secPhys, secSize)
	if err != nil {
		bm.Close()
		return nil, nil, nil, err
	}

	return bm, sm, func() { bm.Close(); sm.Close() }, nil
}
