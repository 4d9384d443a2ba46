// Package bus serializes register access to the transmitter's APB/SAPB windows.
package bus

import (
	"errors"
	"fmt"
	"sync"
)

// Regs is a window of 32-bit registers. Offsets are in bytes.
type Regs interface {
	Read32(off uint32) uint32
	Write32(off uint32, v uint32)
}

// Mode selects how a register offset reaches the hardware.
type Mode int

const (
	NormalAPB  = Mode(0) // offset is used directly in the base window
	NormalSAPB = Mode(1) // offset is used directly in the secure window
	Low4KAPB   = Mode(2) // upper bits are paged through sec+0x8, low 12 bits go to base
	Low4KSAPB  = Mode(3) // upper bits are paged through sec+0xc, low 12 bits go to base
)

// page select registers in the secure window

const (
	RegRemapAPB  = 0x8
	RegRemapSAPB = 0xc
)

// WindowSize is the size of the base window in the low-4K modes.
const WindowSize = 0x1000

var ErrMode = errors.New("bus: invalid mode")

// Bus is the only path to the hardware. One access is in flight at a time.
type Bus struct {
	mode Mode
	base Regs
	sec  Regs

	mu    sync.Mutex
	read  func(off uint32) uint32
	write func(off, v uint32)
}

// New creates a bus for the given mode. The secure window may be nil in
// NormalAPB mode. The access path is fixed here; Read and Write never
// re-examine the mode.
func New(mode Mode, base, sec Regs) (*Bus, error) {
	b := &Bus{mode: mode, base: base, sec: sec}

	switch mode {
	case NormalAPB:
		if base == nil {
			return nil, fmt.Errorf("%w: %v: base window is not set", ErrMode, mode)
		}

		b.read = base.Read32
		b.write = base.Write32

	case NormalSAPB:
		if sec == nil {
			return nil, fmt.Errorf("%w: %v: secure window is not set", ErrMode, mode)
		}

		b.read = sec.Read32
		b.write = sec.Write32

	case Low4KAPB, Low4KSAPB:
		if base == nil || sec == nil {
			return nil, fmt.Errorf("%w: %v: needs base and secure windows", ErrMode, mode)
		}

		remap := uint32(RegRemapAPB)
		if mode == Low4KSAPB {
			remap = RegRemapSAPB
		}

		b.read = func(off uint32) uint32 {
			sec.Write32(remap, off>>12)
			return base.Read32(off & (WindowSize - 1))
		}

		b.write = func(off, v uint32) {
			sec.Write32(remap, off>>12)
			base.Write32(off&(WindowSize-1), v)
		}

	default:
		return nil, fmt.Errorf("%w: %d", ErrMode, mode)
	}

	return b, nil
}

// Read returns the register at off.
func (b *Bus) Read(off uint32) uint32 {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.read(off)
}

// Write sets the register at off to v.
func (b *Bus) Write(off uint32, v uint32) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.write(off, v)
}

// Mode returns the addressing mode chosen at construction.
func (b *Bus) Mode() Mode {
	return b.mode
}

// ParseMode parses the names printed by Mode.String.
func ParseMode(s string) (Mode, error) {
	for m := NormalAPB; m <= Low4KSAPB; m++ {
		if m.String() == s {
			return m, nil
		}
	}

	return 0, fmt.Errorf("%w: %q", ErrMode, s)
}

func (m Mode) String() string {
	switch m {
	case NormalAPB:
		return "normal-apb"

	case NormalSAPB:
		return "normal-sapb"

	case Low4KAPB:
		return "low4k-apb"

	case Low4KSAPB:
		return "low4k-sapb"

	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}
