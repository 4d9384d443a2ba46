package mhdp

import (
	"encoding/binary"
	"fmt"

	"golang.org/x/sys/unix"
)

var be = binary.BigEndian

// exchange sends a request and reads a response of len(resp) bytes with
// the same module and opcode.
func (d *Device) exchange(module, opcode uint8, req, resp []byte) error {
	if err := d.mbox.Send(module, opcode, req); err != nil {
		return err
	}

	if err := d.mbox.ValidateReceive(module, opcode, uint16(len(resp))); err != nil {
		return err
	}

	return d.mbox.ReadReceive(resp)
}

// ReadReg reads a controller register through the firmware.
func (d *Device) ReadReg(addr uint32) (uint32, error) {
	if addr == 0 {
		return 0, d.fail("read register", fmt.Errorf("%w: address 0: %w", ErrInvalidArgument, unix.EINVAL))
	}

	var (
		req  [4]byte
		resp [8]byte
	)

	be.PutUint32(req[:], addr)

	if err := d.exchange(ModuleGeneral, GeneralReadRegister, req[:], resp[:]); err != nil {
		return 0, d.fail("read register", err, "addr", addr)
	}

	if got := be.Uint32(resp[:]); got != addr {
		err := fmt.Errorf("%w: register %#x, got %#x: %w", ErrEchoMismatch, addr, got, unix.EINVAL)
		return 0, d.fail("read register", err, "addr", addr)
	}

	return be.Uint32(resp[4:]), nil
}

// WriteReg writes a controller register through the firmware.
// The firmware does not acknowledge the write.
func (d *Device) WriteReg(addr, val uint32) error {
	var req [8]byte
	be.PutUint32(req[:], addr)
	be.PutUint32(req[4:], val)

	if err := d.mbox.Send(ModuleGeneral, GeneralWriteRegister, req[:]); err != nil {
		return d.fail("write register", err, "addr", addr)
	}

	return nil
}

// SetFirmwareActive moves the firmware between standby and active and
// returns the state it reports.
func (d *Device) SetFirmwareActive(active bool) (byte, error) {
	req := []byte{FWStandby}
	if active {
		req[0] = FWActive
	}

	var resp [1]byte
	if err := d.exchange(ModuleGeneral, GeneralMainControl, req, resp[:]); err != nil {
		return 0, d.fail("set firmware active", err, "active", active)
	}

	return resp[0], nil
}

// GeneralHPD asks the general module for the hot plug state.
func (d *Device) GeneralHPD() (bool, error) {
	var resp [1]byte
	if err := d.exchange(ModuleGeneral, GeneralGetHPDState, nil, resp[:]); err != nil {
		return false, d.fail("general hpd", err)
	}

	return resp[0] != 0, nil
}

// PHYRead reads a PHY analog front end register.
func (d *Device) PHYRead(addr uint32) (uint32, error) {
	return d.ReadReg(AddrPHYAFE + addr<<2)
}

// PHYWrite writes a PHY analog front end register.
func (d *Device) PHYWrite(addr, val uint32) error {
	return d.WriteReg(AddrPHYAFE+addr<<2, val)
}

// Event returns the latched firmware events.
func (d *Device) Event() uint32 {
	return d.bus.Read(RegSWEvents0)
}

// Command sends an arbitrary request and reads a response of size bytes
// with the same module and opcode.
func (d *Device) Command(module, opcode uint8, req []byte, size uint16) ([]byte, error) {
	resp := make([]byte, size)
	if err := d.exchange(module, opcode, req, resp); err != nil {
		return nil, d.fail("command", err, "module", module, "opcode", opcode)
	}

	return resp, nil
}
