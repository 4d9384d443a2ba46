// Package mailbox implements the byte FIFO between the host and the
// transmitter's microcontroller, and the framing carried over it.
//
// Every message starts with a 4-byte header: opcode, module id, and the
// big-endian payload length. The channel is a single byte stream shared by
// all commands, so a receiver that finds an unexpected header must drain
// its payload before giving up, or every later exchange would be misframed.
package mailbox

import (
	"errors"
	"fmt"
	"time"

	"github.com/c35s/mhdp/bus"
	"golang.org/x/sys/unix"
)

// mailbox register offsets

const (
	RegFull    = 0x08 // non-zero while the host-to-firmware FIFO is full (R)
	RegEmpty   = 0x0c // non-zero while the firmware-to-host FIFO is empty (R)
	RegWrData  = 0x10 // host-to-firmware data, low byte (W)
	RegRdData  = 0x14 // firmware-to-host data, low byte (R)
	RegIntMask = 0x34 // mailbox interrupt mask (RW)
	RegIntStat = 0x38 // mailbox interrupt status (R)
)

const (
	DefaultPollInterval = time.Millisecond
	DefaultTimeout      = 5 * time.Second
)

var (
	ErrTransportTimeout = errors.New("mailbox: flag wait timed out")
	ErrFramingMismatch  = errors.New("mailbox: unexpected response header")
)

// Timing bounds the flag polls. Zero fields take the defaults.
type Timing struct {
	PollInterval time.Duration
	Timeout      time.Duration
}

// Mailbox moves bytes and frames through the FIFO registers.
type Mailbox struct {
	bus    *bus.Bus
	timing Timing
}

// New creates a mailbox on b.
func New(b *bus.Bus, t Timing) *Mailbox {
	return &Mailbox{bus: b, timing: t.withDefaults()}
}

func (t Timing) withDefaults() Timing {
	if t.PollInterval == 0 {
		t.PollInterval = DefaultPollInterval
	}

	if t.Timeout == 0 {
		t.Timeout = DefaultTimeout
	}

	return t
}

// ReadByte waits for the firmware-to-host FIFO to have data and pops one byte.
func (m *Mailbox) ReadByte() (byte, error) {
	if err := m.waitClear(RegEmpty); err != nil {
		return 0, err
	}

	return byte(m.bus.Read(RegRdData)), nil
}

// WriteByte waits for room in the host-to-firmware FIFO and pushes b.
func (m *Mailbox) WriteByte(b byte) error {
	if err := m.waitClear(RegFull); err != nil {
		return err
	}

	m.bus.Write(RegWrData, uint32(b))
	return nil
}

// waitClear polls the flag register at off until it reads zero.
func (m *Mailbox) waitClear(off uint32) error {
	ok := Poll(m.timing.PollInterval, m.timing.Timeout, func() bool {
		return m.bus.Read(off) == 0
	})

	if !ok {
		return fmt.Errorf("%w: reg %#x: %w", ErrTransportTimeout, off, unix.ETIMEDOUT)
	}

	return nil
}

// Poll calls cond every interval until it returns true or timeout elapses.
// After the deadline cond is sampled one last time, so a condition that
// became true right at the boundary is not reported as a timeout.
func Poll(interval, timeout time.Duration, cond func() bool) bool {
	deadline := time.Now().Add(timeout)

	for {
		if cond() {
			return true
		}

		if time.Now().After(deadline) {
			return cond()
		}

		time.Sleep(interval)
	}
}
