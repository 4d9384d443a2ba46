// Package video computes the framer and main stream attribute settings for a
// display mode on a trained link.
package video

import (
	"errors"
	"fmt"
)

// ColorFormat is the pixel encoding. The values are the framer's encoding.
type ColorFormat uint32

const (
	RGB      = ColorFormat(0x01)
	YCbCr444 = ColorFormat(0x02)
	YCbCr422 = ColorFormat(0x04)
	YCbCr420 = ColorFormat(0x08)
	YOnly    = ColorFormat(0x10)
)

// colorimetry for YCbCr formats
const (
	bt601 = 0
	bt709 = 1
)

// Info describes the pixel stream.
type Info struct {
	ColorFormat   ColorFormat
	ColorDepth    int // bits per component: 6, 8, 10, 12 or 16
	HSyncPolarity bool
	VSyncPolarity bool
}

// Mode is a display timing. Clock is the pixel clock in kHz.
type Mode struct {
	Clock      int
	HDisplay   int
	HSyncStart int
	HSyncEnd   int
	HTotal     int
	VDisplay   int
	VSyncStart int
	VSyncEnd   int
	VTotal     int
}

var (
	ErrInvalidArgument = errors.New("video: invalid argument")
	ErrTUSizeExceeded  = errors.New("video: no transfer unit size fits the stream")
)

// BitsPerPixel returns the bits per pixel on the wire.
func (i Info) BitsPerPixel() int {
	if i.ColorFormat == YCbCr422 {
		return i.ColorDepth * 2
	}

	return i.ColorDepth * 3
}

func (i Info) Validate() error {
	switch i.ColorFormat {
	case RGB, YCbCr444, YCbCr422, YCbCr420, YOnly:
	default:
		return fmt.Errorf("%w: color format %#x", ErrInvalidArgument, uint32(i.ColorFormat))
	}

	if _, ok := depthCode[i.ColorDepth]; !ok {
		return fmt.Errorf("%w: color depth %d", ErrInvalidArgument, i.ColorDepth)
	}

	return nil
}

// MSAMisc returns the MSA MISC0/MISC1 word for the stream.
func (i Info) MSAMisc() uint32 {
	var cs uint32

	switch i.ColorFormat {
	case RGB, YOnly:
		cs = 0

	// YCbCr defaults to BT.601 conversion
	case YCbCr444:
		cs = 6 + bt601*8

	case YCbCr422:
		cs = 5 + bt601*8

	case YCbCr420:
		cs = 5
	}

	misc := 2*cs + 32*depthCode[i.ColorDepth]
	if i.ColorFormat == YOnly {
		misc |= 1 << 14
	}

	return misc
}

// PixelRepr returns the DP_FRAMER_PXL_REPR word.
func (i Info) PixelRepr() uint32 {
	return bcs[i.ColorDepth] + uint32(i.ColorFormat)<<8
}

// MSA bit depth field
var depthCode = map[int]uint32{
	6:  0,
	8:  1,
	10: 2,
	12: 3,
	16: 4,
}

// framer bits-per-component select
var bcs = map[int]uint32{
	6:  0x01,
	8:  0x02,
	10: 0x04,
	12: 0x08,
	16: 0x10,
}

func (m Mode) Validate() error {
	if m.Clock <= 0 {
		return fmt.Errorf("%w: pixel clock %d", ErrInvalidArgument, m.Clock)
	}

	if !(0 < m.HDisplay && m.HDisplay <= m.HSyncStart && m.HSyncStart <= m.HSyncEnd && m.HSyncEnd <= m.HTotal) {
		return fmt.Errorf("%w: horizontal timing %d/%d/%d/%d", ErrInvalidArgument,
			m.HDisplay, m.HSyncStart, m.HSyncEnd, m.HTotal)
	}

	if !(0 < m.VDisplay && m.VDisplay <= m.VSyncStart && m.VSyncStart <= m.VSyncEnd && m.VSyncEnd <= m.VTotal) {
		return fmt.Errorf("%w: vertical timing %d/%d/%d/%d", ErrInvalidArgument,
			m.VDisplay, m.VSyncStart, m.VSyncEnd, m.VTotal)
	}

	return nil
}

// RefreshHz returns the vertical refresh rate.
func (m Mode) RefreshHz() float64 {
	if m.HTotal == 0 || m.VTotal == 0 {
		return 0
	}

	return float64(m.Clock) * 1000 / float64(m.HTotal*m.VTotal)
}

func (m Mode) String() string {
	return fmt.Sprintf("%dx%d@%.2f (%d kHz)", m.HDisplay, m.VDisplay, m.RefreshHz(), m.Clock)
}
