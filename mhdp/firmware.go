package mhdp

import (
	"fmt"
	"time"

	"github.com/c35s/mhdp/firmware"
	"github.com/c35s/mhdp/mailbox"
	"golang.org/x/sys/unix"
)

// LoadFirmware holds the microcontroller in reset, writes img into its
// memories, releases it and waits for the heartbeat to start.
func (d *Device) LoadFirmware(img *firmware.Image) error {
	if img == nil {
		return d.fail("load firmware", fmt.Errorf("%w: no image", ErrInvalidArgument))
	}

	imem, dmem := img.Size()
	if imem > firmware.MaxImageSize || dmem > firmware.MaxImageSize {
		return d.fail("load firmware", fmt.Errorf("%w: image of %d+%d bytes", ErrInvalidArgument, imem, dmem))
	}

	d.bus.Write(RegAPBCtrl, apbIRAMPath|apbDRAMPath|apbXTReset)

	for i, w := range img.IMem {
		d.bus.Write(AddrIMem+uint32(i)*4, w)
	}

	for i, w := range img.DMem {
		d.bus.Write(AddrDMem+uint32(i)*4, w)
	}

	d.bus.Write(RegAPBCtrl, 0)

	var alive uint32
	ok := mailbox.Poll(d.timing.AlivePoll, d.timing.AliveTimeout, func() bool {
		alive = d.bus.Read(RegKeepAlive)
		return alive != 0
	})

	if !ok {
		err := fmt.Errorf("%w: keep alive %#x after %v: %w", ErrFirmwareBoot, alive, d.timing.AliveTimeout, unix.ETIMEDOUT)
		return d.fail("load firmware", err)
	}

	d.fwVersion = d.bus.Read(RegVerL)&0xff |
		(d.bus.Read(RegVerH)&0xff)<<8 |
		(d.bus.Read(RegVerLibL)&0xff)<<16 |
		(d.bus.Read(RegVerLibH)&0xff)<<24

	d.log.Debug("firmware loaded", "version", fmt.Sprintf("%#08x", d.fwVersion), "imem", imem, "dmem", dmem)
	return nil
}

// CheckAlive reports whether the firmware heartbeat moves within about
// a hundred microseconds.
func (d *Device) CheckAlive() bool {
	alive := d.bus.Read(RegKeepAlive)

	for i := 0; i < 50; i++ {
		time.Sleep(2 * time.Microsecond)

		if d.bus.Read(RegKeepAlive) != alive {
			return true
		}
	}

	return false
}

// ClockReset enables and releases the transmitter's clocks and unmasks the
// mailbox and PIF interrupts.
func (d *Device) ClockReset() {
	d.bus.Write(RegSourceDPTXCar, dptxFrmrDataClkRstnEn|dptxFrmrDataClkEn|
		dptxPHYDataRstnEn|dptxPHYDataClkEn|
		dptxPHYCharRstnEn|dptxPHYCharClkEn|
		sourceAUXSysClkRstnEn|sourceAUXSysClkEn|
		dptxSysClkRstnEn|dptxSysClkEn|
		cfgDPTXVIFClkRstnEn|cfgDPTXVIFClkEn)

	d.bus.Write(RegSourcePHYCar, sourcePHYRstnEn|sourcePHYClkEn)

	d.bus.Write(RegSourcePktCar, sourcePktSysRstnEn|sourcePktSysClkEn|
		sourcePktDataRstnEn|sourcePktDataClkEn)

	d.bus.Write(RegSourceAIFCar, spdifCDRClkRstnEn|spdifCDRClkEn|
		sourceAIFSysRstnEn|sourceAIFSysClkEn|
		sourceAIFClkRstnEn|sourceAIFClkEn)

	d.bus.Write(RegSourceCipherCar, sourceCipherSysRstnEn|sourceCipherSysClkEn|
		sourceCipherCharRstnEn|sourceCipherCharClkEn)

	d.bus.Write(RegSourceCryptoCar, sourceCryptoSysRstnEn|sourceCryptoSysClkEn)

	d.bus.Write(RegAPBIntMask, 0)
}

// FirmwareClock returns the firmware clock in MHz.
func (d *Device) FirmwareClock() uint32 {
	return d.bus.Read(RegSWClkH)
}

// SetFirmwareClock tells the firmware its clock rate in Hz.
func (d *Device) SetFirmwareClock(hz uint64) {
	d.bus.Write(RegSWClkH, uint32(hz/1000000))
}
