package mhdp_test

import (
	"errors"
	"testing"

	"github.com/c35s/mhdp/bus"
	"github.com/c35s/mhdp/edid"
	"github.com/c35s/mhdp/mailbox"
	"github.com/c35s/mhdp/mhdp"
	"github.com/c35s/mhdp/sim"
	"github.com/google/go-cmp/cmp"
)

// failEDID answers the first n GET_EDID requests with the wrong segment.
func failEDID(c *sim.Controller, n int) {
	var seen int
	c.SetOverride(func(h mailbox.Header, p []byte) ([]byte, bool) {
		if h.Opcode != mhdp.DPTXGetEDID || seen >= n {
			return nil, false
		}

		seen++
		resp := append([]byte{edid.BlockSize, 7}, make([]byte, edid.BlockSize)...)
		return mailbox.EncodeFrame(mhdp.ModuleDPTX, mhdp.DPTXGetEDID, resp), true
	})
}

func TestReadEDIDBlockRetries(t *testing.T) {
	d, c := attach(t, sim.Config{}, bus.NormalAPB)
	failEDID(c, 3)

	buf := make([]byte, edid.BlockSize)
	if err := d.ReadEDIDBlock(0, buf); err != nil {
		t.Fatal(err)
	}

	if n := c.Count(mhdp.ModuleDPTX, mhdp.DPTXGetEDID); n != 4 {
		t.Errorf("%d requests", n)
	}

	if diff := cmp.Diff(sim.DefaultEDID(), buf); diff != "" {
		t.Errorf("block differs: %s", diff)
	}
}

func TestReadEDIDBlockGivesUp(t *testing.T) {
	d, c := attach(t, sim.Config{}, bus.NormalAPB)
	failEDID(c, 10)

	err := d.ReadEDIDBlock(0, make([]byte, edid.BlockSize))
	if !errors.Is(err, mhdp.ErrEchoMismatch) {
		t.Errorf("error isn't ErrEchoMismatch: %v", err)
	}

	if n := c.Count(mhdp.ModuleDPTX, mhdp.DPTXGetEDID); n != mhdp.EDIDAttempts {
		t.Errorf("%d requests", n)
	}
}

func TestReadEDID(t *testing.T) {
	d, _ := attach(t, sim.Config{}, bus.Low4KSAPB)

	b, err := d.ReadEDID()
	if err != nil {
		t.Fatal(err)
	}

	e, err := edid.Parse(b)
	if err != nil {
		t.Fatal(err)
	}

	if e.Name() != "SIM MONITOR" {
		t.Errorf("name %q", e.Name())
	}

	if len(b) != edid.BlockSize {
		t.Errorf("%d bytes", len(b))
	}
}

func TestReadEDIDExtensions(t *testing.T) {
	base := sim.DefaultEDID()
	base[0x7e] = 1
	base[0x7f]--

	ext := make([]byte, edid.BlockSize)
	ext[0], ext[1] = 0x02, 0x03

	d, c := attach(t, sim.Config{EDID: append(base, ext...)}, bus.NormalAPB)

	b, err := d.ReadEDID()
	if err != nil {
		t.Fatal(err)
	}

	if len(b) != 2*edid.BlockSize || b[edid.BlockSize] != 0x02 {
		t.Errorf("%d bytes, extension tag %#x", len(b), b[edid.BlockSize])
	}

	if n := c.Count(mhdp.ModuleDPTX, mhdp.DPTXGetEDID); n != 2 {
		t.Errorf("%d requests", n)
	}
}
