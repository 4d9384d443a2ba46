//go:build linux

package bus

import (
	"fmt"
	"os"
	"sync/atomic"
	"unsafe"

	"golang.org/x/sys/unix"
)

// DevMem is a register window mapped from physical memory, usually /dev/mem.
type DevMem struct {
	f    *os.File
	mm   []byte
	off  int // offset of phys within mm
	size int
}

// OpenDevMem maps size bytes of physical memory starting at phys. The
// mapping is rounded out to the host page size.
func OpenDevMem(path string, phys int64, size int) (*DevMem, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_SYNC, 0)
	if err != nil {
		return nil, fmt.Errorf("bus: open %s: %w", path, err)
	}

	var (
		pgsz    = int64(os.Getpagesize())
		aligned = phys &^ (pgsz - 1)
		delta   = int(phys - aligned)
		mapLen  = (delta + size + int(pgsz) - 1) &^ (int(pgsz) - 1)
	)

	mm, err := unix.Mmap(int(f.Fd()), aligned, mapLen,
		unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)

	if err != nil {
		f.Close()
		return nil, fmt.Errorf("bus: mmap %#x+%#x: %w", phys, size, err)
	}

	return &DevMem{f: f, mm: mm, off: delta, size: size}, nil
}

func (m *DevMem) Read32(off uint32) uint32 {
	if int(off)+4 > m.size {
		return 0
	}

	return atomic.LoadUint32(m.reg(off))
}

func (m *DevMem) Write32(off uint32, v uint32) {
	if int(off)+4 > m.size {
		return
	}

	atomic.StoreUint32(m.reg(off), v)
}

func (m *DevMem) reg(off uint32) *uint32 {
	return (*uint32)(unsafe.Pointer(&m.mm[m.off+int(off&^3)]))
}

// Close unmaps the window.
func (m *DevMem) Close() error {
	if err := unix.Munmap(m.mm); err != nil {
		return err
	}

	m.mm = nil
	return m.f.Close()
}
