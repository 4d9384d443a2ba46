// Package sim is a register-level model of the transmitter controller and
// its firmware. It answers mailbox commands the way the firmware does and
// can be told to misbehave.
package sim

import (
	"encoding/binary"
	"sync"

	"github.com/c35s/mhdp/bus"
	"github.com/c35s/mhdp/dp"
	"github.com/c35s/mhdp/mailbox"
	"github.com/c35s/mhdp/mhdp"
)

// Config describes the simulated sink and firmware.
type Config struct {

	// EDID is what the sink returns, in whole blocks.
	// If EDID is nil, DefaultEDID() is used.
	EDID []byte

	// HPD is the hot plug state.
	HPD bool

	// Link is what training negotiates. Zero means HBR x4.
	Link dp.Link

	// TrainAfter is the READ_EVENT poll on which the equalization phase
	// finishes. Zero or less means training never converges.
	TrainAfter int

	// Version is reported in VER_* after boot.
	Version uint32

	// NoBoot keeps the heartbeat at zero after reset is released.
	NoBoot bool
}

// Override sees every complete request before the firmware does. If it
// returns true, resp is queued verbatim as the reply.
type Override func(h mailbox.Header, payload []byte) (resp []byte, ok bool)

// Controller is the simulated device. It is a bus.Regs over the logical
// register space; Windows exposes it as hardware windows for a bus mode.
type Controller struct {
	cfg Config

	mu    sync.Mutex
	apb   map[uint32]uint32 // APB configuration registers and memories
	regs  map[uint32]uint32 // registers reached through the firmware
	dpcd  map[uint32]byte
	rx    []byte // host to firmware
	tx    []byte // firmware to host
	wrote int

	booted    bool
	keepAlive uint32
	state     byte
	training  bool
	polls     int
	events    byte
	video     bool
	hostCap   []byte
	enabled   byte

	override   Override
	stallRead  bool
	stallWrite bool
	requests   []mailbox.Header
}

var be = binary.BigEndian

// New returns a powered-up controller with its firmware not yet loaded.
func New(cfg Config) *Controller {
	if cfg.EDID == nil {
		cfg.EDID = DefaultEDID()
	}

	if cfg.Link == (dp.Link{}) {
		cfg.Link = dp.Link{Rate: dp.RateHBR, Lanes: 4}
	}

	c := &Controller{
		cfg:  cfg,
		apb:  map[uint32]uint32{},
		regs: map[uint32]uint32{},
		dpcd: map[uint32]byte{},
	}

	c.dpcd[dp.DPCDRev] = 0x12
	c.dpcd[dp.DPCDMaxLinkRate] = dp.BWCode(cfg.Link.Rate)
	c.dpcd[dp.DPCDMaxLaneCount] = byte(cfg.Link.Lanes)

	return c
}

// Windows returns the base and secure windows a bus in mode m expects.
func (c *Controller) Windows(m bus.Mode) (base, sec bus.Regs) {
	switch m {
	case bus.NormalAPB:
		return c, bus.NewMem(bus.WindowSize)

	case bus.NormalSAPB:
		return bus.NewMem(bus.WindowSize), c

	default:
		remap := uint32(bus.RegRemapAPB)
		if m == bus.Low4KSAPB {
			remap = bus.RegRemapSAPB
		}

		p := &pager{remap: remap}
		return &window{c: c, p: p}, p
	}
}

// Bus returns a bus in mode m wired to the controller.
func (c *Controller) Bus(m bus.Mode) *bus.Bus {
	base, sec := c.Windows(m)

	b, err := bus.New(m, base, sec)
	if err != nil {
		panic(err)
	}

	return b
}

// pager is the secure window in the low-4K modes. Only its page select
// register does anything.
type pager struct {
	mu    sync.Mutex
	remap uint32
	page  uint32
}

func (p *pager) Read32(off uint32) uint32 {
	p.mu.Lock()
	defer p.mu.Unlock()

	if off == p.remap {
		return p.page
	}

	return 0
}

func (p *pager) Write32(off, v uint32) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if off == p.remap {
		p.page = v
	}
}

func (p *pager) addr(off uint32) uint32 {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.page<<12 | off&(bus.WindowSize-1)
}

// window is the base window in the low-4K modes.
type window struct {
	c *Controller
	p *pager
}

func (w *window) Read32(off uint32) uint32 {
	return w.c.Read32(w.p.addr(off))
}

func (w *window) Write32(off, v uint32) {
	w.c.Write32(w.p.addr(off), v)
}

// Read32 reads a register by its logical address.
func (c *Controller) Read32(off uint32) uint32 {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch off {
	case mailbox.RegFull:
		return b2u(c.stallWrite)

	case mailbox.RegEmpty:
		return b2u(c.stallRead || len(c.tx) == 0)

	case mailbox.RegRdData:
		if len(c.tx) == 0 {
			return 0
		}

		v := c.tx[0]
		c.tx = c.tx[1:]
		return uint32(v)

	case mhdp.RegKeepAlive:
		if c.booted {
			c.keepAlive++
		}

		return c.keepAlive

	case mhdp.RegVerL:
		return c.version(0)

	case mhdp.RegVerH:
		return c.version(8)

	case mhdp.RegVerLibL:
		return c.version(16)

	case mhdp.RegVerLibH:
		return c.version(24)

	case mhdp.RegSWEvents0:
		var ev uint32
		if c.cfg.HPD {
			ev |= mhdp.SWEventHPD
		}

		if c.events&mhdp.EQPhaseFinished != 0 {
			ev |= mhdp.SWEventTraining
		}

		return ev
	}

	return c.apb[off]
}

// Write32 writes a register by its logical address.
func (c *Controller) Write32(off, v uint32) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch off {
	case mailbox.RegWrData:
		c.wrote++
		c.rx = append(c.rx, byte(v))
		c.process()
		return

	case mhdp.RegAPBCtrl:
		if c.apb[off]&1 != 0 && v&1 == 0 {
			c.booted = !c.cfg.NoBoot
		}

		if v&1 != 0 {
			c.booted = false
			c.keepAlive = 0
		}
	}

	c.apb[off] = v
}

func (c *Controller) version(shift int) uint32 {
	if !c.booted {
		return 0
	}

	return c.cfg.Version >> shift & 0xff
}

// Booted reports whether firmware is running.
func (c *Controller) Booted() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.booted
}

// Mem returns n words of instruction or data memory starting at addr.
func (c *Controller) Mem(addr uint32, n int) []uint32 {
	c.mu.Lock()
	defer c.mu.Unlock()

	ww := make([]uint32, n)
	for i := range ww {
		ww[i] = c.apb[addr+uint32(i)*4]
	}

	return ww
}

func b2u(b bool) uint32 {
	if b {
		return 1
	}

	return 0
}
