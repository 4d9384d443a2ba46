package sim

import "github.com/c35s/mhdp/edid"

// DefaultEDID returns a single 1920x1080@60 block for a monitor named
// "SIM MONITOR".
func DefaultEDID() []byte {
	b := make([]byte, edid.BlockSize)

	copy(b, []byte{0x00, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0x00})

	// "SIM", product 0x1234, serial 1, week 1 of 2020, EDID 1.4
	b[0x08], b[0x09] = 0x4d, 0x2d
	b[0x0a], b[0x0b] = 0x34, 0x12
	b[0x0c] = 0x01
	b[0x10], b[0x11] = 1, 30
	b[0x12], b[0x13] = 1, 4

	// digital input, 8 bits per colour, DisplayPort
	b[0x14] = 0xa5

	copy(b[0x36:], []byte{
		0x02, 0x3a, 0x80, 0x18, 0x71, 0x38, 0x2d, 0x40,
		0x58, 0x2c, 0x45, 0x00, 0x40, 0x84, 0x63, 0x00,
		0x00, 0x1e,
	})

	copy(b[0x48:], []byte{0x00, 0x00, 0x00, edid.TagName, 0x00})
	copy(b[0x4d:], "SIM MONITOR\n ")

	copy(b[0x5a:], []byte{0x00, 0x00, 0x00, edid.TagSerial, 0x00})
	copy(b[0x5f:], "0001\n        ")

	copy(b[0x6c:], []byte{0x00, 0x00, 0x00, 0x10, 0x00})

	var sum byte
	for _, c := range b[:edid.BlockSize-1] {
		sum += c
	}

	b[edid.BlockSize-1] = -sum
	return b
}
