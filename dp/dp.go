// Package dp holds the DisplayPort link parameters shared by training and
// video configuration.
package dp

import (
	"errors"
	"fmt"
)

// Link rates in kHz of symbol clock, as DRM reports them.
const (
	RateRBR  = 162000 // 1.62 Gbps
	RateHBR  = 270000 // 2.7 Gbps
	RateHBR2 = 540000 // 5.4 Gbps
	RateHBR3 = 810000 // 8.1 Gbps
)

// Bandwidth codes (DPCD 0x001 / 0x100).
const (
	BWCodeRBR  = 0x06
	BWCodeHBR  = 0x0a
	BWCodeHBR2 = 0x14
	BWCodeHBR3 = 0x1e
)

// DPCD addresses used by the transmitter firmware.
const (
	DPCDRev           = 0x000
	DPCDMaxLinkRate   = 0x001
	DPCDMaxLaneCount  = 0x002
	DPCDLinkBWSet     = 0x100
	DPCDLaneCountSet  = 0x101
	DPCDLane01Status  = 0x202
	DPCDLane23Status  = 0x203
	DPCDAlignStatus   = 0x204
	DPCDSinkStatus    = 0x205
	DPCDAdjustReq01   = 0x206
	DPCDAdjustReq23   = 0x207
	DPCDSetPower      = 0x600
	DPCDLaneStatusLen = 6 // 0x202 through 0x207
)

var ErrLink = errors.New("dp: invalid link parameters")

// Link is the negotiated main link configuration.
type Link struct {
	Rate  int // kHz
	Lanes int
}

// BWCode returns the bandwidth code for a link rate.
func BWCode(rate int) uint8 {
	return uint8(rate / 27000)
}

// RateFromBWCode returns the link rate for a bandwidth code.
func RateFromBWCode(code uint8) int {
	return int(code) * 27000
}

// ValidLanes reports whether n is a lane count the transmitter supports.
func ValidLanes(n int) bool {
	return n == 1 || n == 2 || n == 4
}

// ValidRate reports whether rate has a bandwidth code.
func ValidRate(rate int) bool {
	switch rate {
	case RateRBR, RateHBR, RateHBR2, RateHBR3:
		return true
	}

	return false
}

func (l Link) Validate() error {
	if !ValidLanes(l.Lanes) {
		return fmt.Errorf("%w: %d lanes", ErrLink, l.Lanes)
	}

	if !ValidRate(l.Rate) {
		return fmt.Errorf("%w: rate %d kHz", ErrLink, l.Rate)
	}

	return nil
}

// RateMHz is the rate in the units the framer registers use.
func (l Link) RateMHz() int {
	return l.Rate / 1000
}

func (l Link) String() string {
	return fmt.Sprintf("%d.%02d Gbps x%d", l.Rate/100000, l.Rate/1000%100, l.Lanes)
}
