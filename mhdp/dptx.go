package mhdp

import (
	"fmt"

	"github.com/c35s/mhdp/dp"
	"github.com/c35s/mhdp/edid"
	"golang.org/x/sys/unix"
)

// EDIDAttempts is how many times a block read is tried.
const EDIDAttempts = 4

// dpcdEchoSize is the {len u16, addr u24} header echoed before DPCD data.
const dpcdEchoSize = 5

func putBE24(b []byte, v uint32) {
	b[0] = byte(v >> 16)
	b[1] = byte(v >> 8)
	b[2] = byte(v)
}

func be24(b []byte) uint32 {
	return uint32(b[0])<<16 | uint32(b[1])<<8 | uint32(b[2])
}

// WriteField writes width bits of val at bit start of a controller
// register. The firmware does not acknowledge the write.
func (d *Device) WriteField(addr uint16, start, width uint8, val uint32) error {
	var req [8]byte
	be.PutUint16(req[:], addr)
	req[2] = start
	req[3] = width
	be.PutUint32(req[4:], val)

	if err := d.mbox.Send(ModuleDPTX, DPTXWriteField, req[:]); err != nil {
		return d.fail("write field", err, "addr", addr)
	}

	return nil
}

// ReadDPCD reads len(buf) bytes of sink DPCD starting at addr.
func (d *Device) ReadDPCD(addr uint32, buf []byte) error {
	if len(buf) == 0 || len(buf) > 0xffff-dpcdEchoSize || addr > 0xffffff {
		return d.fail("read dpcd", fmt.Errorf("%w: %d bytes at %#x: %w", ErrInvalidArgument, len(buf), addr, unix.EINVAL))
	}

	var req [5]byte
	be.PutUint16(req[:], uint16(len(buf)))
	putBE24(req[2:], addr)

	if err := d.mbox.Send(ModuleDPTX, DPTXReadDPCD, req[:]); err != nil {
		return d.fail("read dpcd", err, "addr", addr)
	}

	if err := d.mbox.ValidateReceive(ModuleDPTX, DPTXReadDPCD, uint16(dpcdEchoSize+len(buf))); err != nil {
		return d.fail("read dpcd", err, "addr", addr)
	}

	var echo [dpcdEchoSize]byte
	if err := d.mbox.ReadReceive(echo[:]); err != nil {
		return d.fail("read dpcd", err, "addr", addr)
	}

	if err := d.mbox.ReadReceive(buf); err != nil {
		return d.fail("read dpcd", err, "addr", addr)
	}

	if got := be24(echo[2:]); got != addr {
		err := fmt.Errorf("%w: dpcd %#x, got %#x: %w", ErrEchoMismatch, addr, got, unix.EINVAL)
		return d.fail("read dpcd", err, "addr", addr)
	}

	return nil
}

// WriteDPCD writes one byte of sink DPCD.
func (d *Device) WriteDPCD(addr uint32, val byte) error {
	if addr > 0xffffff {
		return d.fail("write dpcd", fmt.Errorf("%w: dpcd %#x: %w", ErrInvalidArgument, addr, unix.EINVAL))
	}

	var (
		req  [6]byte
		resp [dpcdEchoSize]byte
	)

	be.PutUint16(req[:], 1)
	putBE24(req[2:], addr)
	req[5] = val

	if err := d.exchange(ModuleDPTX, DPTXWriteDPCD, req[:], resp[:]); err != nil {
		return d.fail("write dpcd", err, "addr", addr)
	}

	if got := be24(resp[2:]); got != addr {
		err := fmt.Errorf("%w: dpcd %#x, got %#x: %w", ErrEchoMismatch, addr, got, unix.EINVAL)
		return d.fail("write dpcd", err, "addr", addr)
	}

	return nil
}

// ReadEDIDBlock reads one EDID block into buf. Each attempt starts over
// with a fresh request; the first response that echoes the requested
// length and segment wins.
func (d *Device) ReadEDIDBlock(block int, buf []byte) error {
	if block < 0 || block >= 0x200 || len(buf) == 0 || len(buf) > 0xff {
		return d.fail("read edid", fmt.Errorf("%w: block %d of %d bytes: %w", ErrInvalidArgument, block, len(buf), unix.EINVAL))
	}

	var err error
	for i := 0; i < EDIDAttempts; i++ {
		if err = d.readEDIDOnce(block, buf); err == nil {
			return nil
		}

		d.log.Debug("edid attempt failed", "block", block, "attempt", i+1, "err", err)
	}

	return d.fail("read edid", err, "block", block)
}

func (d *Device) readEDIDOnce(block int, buf []byte) error {
	segment := byte(block / 2)
	req := []byte{segment, byte(block % 2)}

	if err := d.mbox.Send(ModuleDPTX, DPTXGetEDID, req); err != nil {
		return err
	}

	if err := d.mbox.ValidateReceive(ModuleDPTX, DPTXGetEDID, uint16(2+len(buf))); err != nil {
		return err
	}

	var echo [2]byte
	if err := d.mbox.ReadReceive(echo[:]); err != nil {
		return err
	}

	if err := d.mbox.ReadReceive(buf); err != nil {
		return err
	}

	if int(echo[0]) != len(buf) || echo[1] != segment {
		return fmt.Errorf("%w: edid length %d segment %d, want %d and %d: %w",
			ErrEchoMismatch, echo[0], echo[1], len(buf), segment, unix.EINVAL)
	}

	return nil
}

// ReadEDID reads the base block and as many extension blocks as it
// announces, up to edid.MaxBlocks in all.
func (d *Device) ReadEDID() ([]byte, error) {
	b := make([]byte, edid.BlockSize, edid.BlockSize*edid.MaxBlocks)
	if err := d.ReadEDIDBlock(0, b); err != nil {
		return nil, err
	}

	if err := edid.Checksum(b); err != nil {
		return nil, d.fail("read edid", err, "block", 0)
	}

	n := 1 + int(b[0x7e])
	if n > edid.MaxBlocks {
		d.log.Debug("edid extensions truncated", "blocks", n, "max", edid.MaxBlocks)
		n = edid.MaxBlocks
	}

	for i := 1; i < n; i++ {
		ext := make([]byte, edid.BlockSize)
		if err := d.ReadEDIDBlock(i, ext); err != nil {
			return nil, err
		}

		b = append(b, ext...)
	}

	return b, nil
}

// SetHostCap advertises the current link and the transmitter's
// capabilities to the firmware. flip selects the mirrored lane mapping.
func (d *Device) SetHostCap(flip bool) error {
	if err := d.link.Validate(); err != nil {
		return d.fail("set host cap", fmt.Errorf("%w: %w", ErrInvalidArgument, err))
	}

	lanes := byte(laneMappingNormal)
	if flip {
		lanes = laneMappingFlipped
	}

	req := []byte{
		dp.BWCode(d.link.Rate),
		byte(d.link.Lanes) | scramblerEn,
		voltageLevel2,
		preEmphasisLevel3,
		pts1 | pts2 | pts3 | pts4,
		fastLTNotSupport,
		lanes,
		enhancedFraming,
	}

	if err := d.mbox.Send(ModuleDPTX, DPTXSetHostCapabilities, req); err != nil {
		return d.fail("set host cap", err)
	}

	return nil
}

// EventConfig enables hot plug and training events.
func (d *Device) EventConfig() error {
	req := make([]byte, 5)
	req[0] = EventEnableHPD | EventEnableTraining

	if err := d.mbox.Send(ModuleDPTX, DPTXEnableEvent, req); err != nil {
		return d.fail("event config", err)
	}

	return nil
}

// HPD reports whether a sink is plugged in.
func (d *Device) HPD() (bool, error) {
	var resp [1]byte
	if err := d.exchange(ModuleDPTX, DPTXHPDState, nil, resp[:]); err != nil {
		return false, d.fail("hpd", err)
	}

	return resp[0] != 0, nil
}

// SetVideoStatus starts or stops the video stream.
func (d *Device) SetVideoStatus(active bool) error {
	req := []byte{0}
	if active {
		req[0] = 1
	}

	if err := d.mbox.Send(ModuleDPTX, DPTXSetVideo, req); err != nil {
		return d.fail("set video status", err, "active", active)
	}

	return nil
}
