// Package edid decodes the base EDID block read from a sink.
package edid

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"strings"

	"github.com/c35s/mhdp/video"
)

// BlockSize is the size of one EDID block.
const BlockSize = 128

// MaxBlocks is the number of blocks the transmitter firmware can fetch.
const MaxBlocks = 4

var (
	ErrShort    = errors.New("edid: block too short")
	ErrHeader   = errors.New("edid: bad header")
	ErrChecksum = errors.New("edid: bad checksum")
)

var header = []byte{0x00, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0x00}

// display descriptor tags
const (
	TagSerial = 0xff
	TagText   = 0xfe
	TagName   = 0xfc
)

// EDID is the decoded base block.
type EDID struct {
	Manufacturer string
	ProductCode  uint16
	Serial       uint32
	Week         int
	Year         int
	Version      int
	Revision     int
	Extensions   int

	Descriptors [4]Descriptor
}

// Descriptor is one of the four 18-byte descriptors. Either Timing is set,
// or Tag identifies a display descriptor and Text holds its string.
type Descriptor struct {
	Timing        *video.Mode
	HSyncPositive bool
	VSyncPositive bool

	Tag  byte
	Text string
}

var le = binary.LittleEndian

// Parse decodes a base block. Only the first BlockSize bytes are examined.
func Parse(b []byte) (*EDID, error) {
	if len(b) < BlockSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrShort, len(b))
	}

	b = b[:BlockSize]

	if !bytes.Equal(b[:8], header) {
		return nil, ErrHeader
	}

	if err := Checksum(b); err != nil {
		return nil, err
	}

	e := &EDID{
		Manufacturer: manufacturer(binary.BigEndian.Uint16(b[0x08:])),
		ProductCode:  le.Uint16(b[0x0a:]),
		Serial:       le.Uint32(b[0x0c:]),
		Week:         int(b[0x10]),
		Year:         int(b[0x11]) + 1990,
		Version:      int(b[0x12]),
		Revision:     int(b[0x13]),
		Extensions:   int(b[0x7e]),
	}

	for i, off := range []int{0x36, 0x48, 0x5a, 0x6c} {
		e.Descriptors[i] = parseDescriptor(b[off : off+18])
	}

	return e, nil
}

// Checksum verifies that the block's bytes sum to zero.
func Checksum(block []byte) error {
	if len(block) < BlockSize {
		return fmt.Errorf("%w: %d bytes", ErrShort, len(block))
	}

	var sum byte
	for _, c := range block[:BlockSize] {
		sum += c
	}

	if sum != 0 {
		return fmt.Errorf("%w: sum %#02x", ErrChecksum, sum)
	}

	return nil
}

// PreferredMode returns the first detailed timing.
func (e *EDID) PreferredMode() (video.Mode, bool) {
	for _, d := range e.Descriptors {
		if d.Timing != nil {
			return *d.Timing, true
		}
	}

	return video.Mode{}, false
}

// Name returns the monitor name descriptor, if any.
func (e *EDID) Name() string {
	for _, d := range e.Descriptors {
		if d.Timing == nil && d.Tag == TagName {
			return d.Text
		}
	}

	return ""
}

// three 5-bit letters, 'A' is 1
func manufacturer(v uint16) string {
	return string([]byte{
		byte(v>>10&0x1f) + 'A' - 1,
		byte(v>>5&0x1f) + 'A' - 1,
		byte(v&0x1f) + 'A' - 1,
	})
}

func parseDescriptor(d []byte) Descriptor {
	pclk := le.Uint16(d)
	if pclk == 0 {
		var text string
		switch d[3] {
		case TagSerial, TagText, TagName:
			text = strings.TrimSpace(strings.TrimRight(string(d[5:18]), "\n\x00"))
		}

		return Descriptor{Tag: d[3], Text: text}
	}

	var (
		hActive = int(d[2]) | int(d[4]&0xf0)<<4
		hBlank  = int(d[3]) | int(d[4]&0x0f)<<8
		vActive = int(d[5]) | int(d[7]&0xf0)<<4
		vBlank  = int(d[6]) | int(d[7]&0x0f)<<8
		hSyncO  = int(d[8]) | int(d[11]&0xc0)<<2
		hSyncW  = int(d[9]) | int(d[11]&0x30)<<4
		vSyncO  = int(d[10]>>4) | int(d[11]&0x0c)<<2
		vSyncW  = int(d[10]&0x0f) | int(d[11]&0x03)<<4
		flags   = d[17]
	)

	m := &video.Mode{
		Clock:      int(pclk) * 10,
		HDisplay:   hActive,
		HSyncStart: hActive + hSyncO,
		HSyncEnd:   hActive + hSyncO + hSyncW,
		HTotal:     hActive + hBlank,
		VDisplay:   vActive,
		VSyncStart: vActive + vSyncO,
		VSyncEnd:   vActive + vSyncO + vSyncW,
		VTotal:     vActive + vBlank,
	}

	// digital separate sync carries both polarities
	digitalSeparate := flags&0x18 == 0x18

	return Descriptor{
		Timing:        m,
		HSyncPositive: digitalSeparate && flags&0x02 != 0,
		VSyncPositive: digitalSeparate && flags&0x04 != 0,
	}
}

func (d Descriptor) String() string {
	if d.Timing != nil {
		return "Detailed Timing: " + d.Timing.String()
	}

	switch d.Tag {
	case TagName:
		return "Monitor Name: " + d.Text

	case TagText:
		return "Text: " + d.Text

	case TagSerial:
		return "Monitor Serial: " + d.Text

	default:
		return fmt.Sprintf("Monitor Descriptor (Tag %#02x)", d.Tag)
	}
}
