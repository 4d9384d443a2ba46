package edid_test

import (
	"errors"
	"testing"

	"github.com/c35s/mhdp/edid"
	"github.com/c35s/mhdp/sim"
	"github.com/c35s/mhdp/video"
	"github.com/google/go-cmp/cmp"
)

func TestParse(t *testing.T) {
	e, err := edid.Parse(sim.DefaultEDID())
	if err != nil {
		t.Fatal(err)
	}

	if e.Manufacturer != "SIM" || e.ProductCode != 0x1234 || e.Serial != 1 {
		t.Errorf("id %s %#x %d", e.Manufacturer, e.ProductCode, e.Serial)
	}

	if e.Year != 2020 || e.Version != 1 || e.Revision != 4 {
		t.Errorf("year %d version %d.%d", e.Year, e.Version, e.Revision)
	}

	want := video.Mode{
		Clock:      148500,
		HDisplay:   1920,
		HSyncStart: 2008,
		HSyncEnd:   2052,
		HTotal:     2200,
		VDisplay:   1080,
		VSyncStart: 1084,
		VSyncEnd:   1089,
		VTotal:     1125,
	}

	m, ok := e.PreferredMode()
	if !ok {
		t.Fatal("no detailed timing")
	}

	if diff := cmp.Diff(want, m); diff != "" {
		t.Errorf("mode differs: %s", diff)
	}

	if d := e.Descriptors[0]; !d.HSyncPositive || !d.VSyncPositive {
		t.Errorf("sync polarity %v %v", d.HSyncPositive, d.VSyncPositive)
	}

	if e.Name() != "SIM MONITOR" {
		t.Errorf("name %q", e.Name())
	}

	if d := e.Descriptors[2]; d.Tag != edid.TagSerial || d.Text != "0001" {
		t.Errorf("serial descriptor %v", d)
	}

	if s := e.Descriptors[3].String(); s != "Monitor Descriptor (Tag 0x10)" {
		t.Errorf("dummy descriptor %q", s)
	}
}

func TestParseErrors(t *testing.T) {
	if _, err := edid.Parse(make([]byte, 10)); !errors.Is(err, edid.ErrShort) {
		t.Errorf("error isn't ErrShort: %v", err)
	}

	if _, err := edid.Parse(make([]byte, edid.BlockSize)); !errors.Is(err, edid.ErrHeader) {
		t.Errorf("error isn't ErrHeader: %v", err)
	}

	b := sim.DefaultEDID()
	b[0x20]++
	if _, err := edid.Parse(b); !errors.Is(err, edid.ErrChecksum) {
		t.Errorf("error isn't ErrChecksum: %v", err)
	}
}
