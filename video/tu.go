package video

import "fmt"

const (
	TUSizeBase = 30 // the search starts one step above this
	TUSizeMax  = 64
	tuSizeStep = 2

	// valid symbol fraction bounds, in thousandths
	vsFracMin = 100
	vsFracMax = 850
)

// TU is a transfer unit solution. ValidSymbol is the integer part of the
// valid symbol count; Remainder is its fraction in thousandths.
type TU struct {
	Size        int
	ValidSymbol int
	Remainder   int
}

// TransferUnit finds the smallest transfer unit size whose valid symbol
// count is above 1, leaves at least 4 stuffing symbols, and has a fraction
// that is not too close to an integer. clock is the pixel clock in kHz and
// rateMHz the link symbol rate in MHz.
//
// The arithmetic is integer division with remainder on the scaled product,
// matching what the framer expects bit for bit.
func TransferUnit(clock, bpp, lanes, rateMHz int) (TU, error) {
	if clock <= 0 || bpp <= 0 || lanes <= 0 || rateMHz <= 0 {
		return TU{}, fmt.Errorf("%w: clock %d, bpp %d, lanes %d, rate %d",
			ErrInvalidArgument, clock, bpp, lanes, rateMHz)
	}

	div := uint64(lanes) * uint64(rateMHz) * 8

	for tu := TUSizeBase + tuSizeStep; tu <= TUSizeMax; tu += tuSizeStep {
		symbol := uint64(tu) * uint64(clock) * uint64(bpp) / div
		rem := symbol % 1000
		vs := symbol / 1000

		if vs <= 1 || int64(tu)-int64(vs) < 4 || rem < vsFracMin || rem > vsFracMax {
			continue
		}

		return TU{Size: tu, ValidSymbol: int(vs), Remainder: int(rem)}, nil
	}

	return TU{}, fmt.Errorf("%w: clock %d, bpp %d, lanes %d, rate %d",
		ErrTUSizeExceeded, clock, bpp, lanes, rateMHz)
}

// FIFODepth returns the DP_VC_TABLE(15) value: the stream FIFO fill level
// to hold for a transfer unit with vs valid symbols. Unsigned 32-bit
// wraparound is intentional; the framer register is programmed with the
// same arithmetic.
func FIFODepth(clock, vs, bpp, lanes, rateMHz int) uint32 {
	val := uint32(uint64(clock)*uint64(vs+1)/1000) + uint32(rateMHz)
	val /= uint32(lanes * rateMHz)
	val = uint32(uint64(8*(vs+1))/uint64(bpp)) - val
	val += 2
	return val
}
