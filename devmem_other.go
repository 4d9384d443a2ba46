//go:build !linux

package main

import (
	"errors"

	"github.com/c35s/mhdp/bus"
)

func openDevMem(mode bus.Mode, basePhys, secPhys int64) (base, sec bus.Regs, closer func(), err error) {
	return nil, nil, nil, errors.New("mhdp: devmem is only supported on linux")
}
