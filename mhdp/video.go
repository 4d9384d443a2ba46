package mhdp

import (
	"fmt"

	"github.com/c35s/mhdp/video"
)

// ConfigVideo programs the framer and MSA for mode on the current link and
// clears the no-video bit in VB-ID.
func (d *Device) ConfigVideo(mode video.Mode, info video.Info) error {
	ww, tu, err := video.Program(mode, info, d.link)
	if err != nil {
		return d.fail("config video", fmt.Errorf("%w: %w", ErrInvalidArgument, err), "mode", mode.String())
	}

	d.log.Debug("transfer unit", "size", tu.Size, "valid", tu.ValidSymbol, "remainder", tu.Remainder)

	for _, w := range ww {
		if err := d.WriteReg(w.Addr, w.Val); err != nil {
			return err
		}
	}

	if err := d.WriteField(video.RegVBID, 2, 1, 0); err != nil {
		return err
	}

	d.mode = mode
	d.video = info
	return nil
}

// VideoMode returns the mode set by the last successful ConfigVideo.
func (d *Device) VideoMode() (video.Mode, video.Info) {
	return d.mode, d.video
}
