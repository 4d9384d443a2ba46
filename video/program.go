package video

import (
	"fmt"

	"github.com/c35s/mhdp/dp"
)

// source VIF, framer and stream register offsets

const (
	RegBndHSync2VSync     = 0x0b00
	RegHSync2VSyncPolCtrl = 0x0b10

	RegFramerTU       = 0x2208
	RegFramerPxlRepr  = 0x220c
	RegFramerSP       = 0x2210
	RegVBID           = 0x2258
	RegFrontBackPorch = 0x2278
	RegByteCount      = 0x227c
	RegMSAHorizontal0 = 0x2280
	RegMSAHorizontal1 = 0x2284
	RegMSAVertical0   = 0x2288
	RegMSAVertical1   = 0x228c
	RegMSAMisc        = 0x2290
	RegStreamConfig   = 0x2294
	RegDPHorizontal   = 0x22b0
	RegDPVertical0    = 0x22b4
	RegDPVertical1    = 0x22b8
	regVCTableBase    = 0x2218
)

// register bits

const (
	vifBypassInterlace = 1 << 13 // BND_HSYNC2VSYNC
	tuCntRstEn         = 1 << 15 // DP_FRAMER_TU
	framerSPHSP        = 1 << 1  // DP_FRAMER_SP
	framerSPVSP        = 1 << 0  // DP_FRAMER_SP
)

// RegVCTable returns the offset of virtual channel table entry n.
func RegVCTable(n int) uint32 {
	return regVCTableBase + uint32(n)<<2
}

// RegWrite is one register assignment.
type RegWrite struct {
	Addr uint32
	Val  uint32
}

func (w RegWrite) String() string {
	return fmt.Sprintf("%#06x = %#08x", w.Addr, w.Val)
}

// Program computes the register writes that configure the framer and MSA
// for mode on link, in the order they must be issued.
func Program(mode Mode, info Info, link dp.Link) ([]RegWrite, TU, error) {
	if err := mode.Validate(); err != nil {
		return nil, TU{}, err
	}

	if err := info.Validate(); err != nil {
		return nil, TU{}, err
	}

	if link.Lanes <= 0 || link.RateMHz() <= 0 {
		return nil, TU{}, fmt.Errorf("%w: link %+v", ErrInvalidArgument, link)
	}

	var (
		bpp  = info.BitsPerPixel()
		rate = link.RateMHz()
	)

	tu, err := TransferUnit(mode.Clock, bpp, link.Lanes, rate)
	if err != nil {
		return nil, TU{}, err
	}

	var (
		hsp = b2u(info.HSyncPolarity)
		vsp = b2u(info.VSyncPolarity)
		m   = mode
	)

	ww := []RegWrite{
		{RegBndHSync2VSync, vifBypassInterlace},
		{RegHSync2VSyncPolCtrl, 0},
		{RegFramerTU, uint32(tu.ValidSymbol) + uint32(tu.Size)<<8 | tuCntRstEn},
		{RegVCTable(15), FIFODepth(mode.Clock, tu.ValidSymbol, bpp, link.Lanes, rate)},
		{RegFramerPxlRepr, info.PixelRepr()},
		{RegFramerSP, hsp*framerSPHSP | vsp*framerSPVSP},
		{RegFrontBackPorch, u(m.HSyncStart-m.HDisplay)<<16 | u(m.HTotal-m.HSyncEnd)},
		{RegByteCount, u(m.HDisplay * bpp / 8)},
		{RegMSAHorizontal0, u(m.HTotal) | u(m.HTotal-m.HSyncStart)<<16},
		{RegMSAHorizontal1, u(m.HSyncEnd-m.HSyncStart) | u(m.HDisplay)<<16 | hsp<<15},
		{RegMSAVertical0, u(m.VTotal) | u(m.VTotal-m.VSyncStart)<<16},
		{RegMSAVertical1, u(m.VSyncEnd-m.VSyncStart) | u(m.VDisplay)<<16 | vsp<<15},
		{RegMSAMisc, info.MSAMisc()},
		{RegStreamConfig, 1},
		{RegDPHorizontal, u(m.HSyncEnd-m.HSyncStart) | u(m.HDisplay)<<16},
		{RegDPVertical0, u(m.VDisplay) | u(m.VTotal-m.VSyncStart)<<16},
		{RegDPVertical1, u(m.VTotal)},
	}

	return ww, tu, nil
}

func u(v int) uint32 {
	return uint32(v)
}

func b2u(b bool) uint32 {
	if b {
		return 1
	}

	return 0
}
