package bus_test

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/c35s/mhdp/bus"
	"github.com/google/go-cmp/cmp"
)

// access records one register access on a window.
type access struct {
	Win   string
	Write bool
	Off   uint32
	Val   uint32
}

type recorder struct {
	name string
	log  *[]access
	mem  *bus.Mem
}

func (r recorder) Read32(off uint32) uint32 {
	v := r.mem.Read32(off)
	*r.log = append(*r.log, access{Win: r.name, Off: off, Val: v})
	return v
}

func (r recorder) Write32(off uint32, v uint32) {
	*r.log = append(*r.log, access{Win: r.name, Write: true, Off: off, Val: v})
	r.mem.Write32(off, v)
}

func TestModes(t *testing.T) {
	tests := []struct {
		mode bus.Mode
		want []access
	}{
		{
			mode: bus.NormalAPB,
			want: []access{
				{Win: "base", Write: true, Off: 0x2208, Val: 7},
				{Win: "base", Off: 0x2208, Val: 7},
			},
		},
		{
			mode: bus.NormalSAPB,
			want: []access{
				{Win: "sec", Write: true, Off: 0x2208, Val: 7},
				{Win: "sec", Off: 0x2208, Val: 7},
			},
		},
		{
			mode: bus.Low4KAPB,
			want: []access{
				{Win: "sec", Write: true, Off: 0x8, Val: 0x2},
				{Win: "base", Write: true, Off: 0x208, Val: 7},
				{Win: "sec", Write: true, Off: 0x8, Val: 0x2},
				{Win: "base", Off: 0x208, Val: 7},
			},
		},
		{
			mode: bus.Low4KSAPB,
			want: []access{
				{Win: "sec", Write: true, Off: 0xc, Val: 0x2},
				{Win: "base", Write: true, Off: 0x208, Val: 7},
				{Win: "sec", Write: true, Off: 0xc, Val: 0x2},
				{Win: "base", Off: 0x208, Val: 7},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.mode.String(), func(t *testing.T) {
			var log []access
			base := recorder{name: "base", log: &log, mem: bus.NewMem(0x4000)}
			sec := recorder{name: "sec", log: &log, mem: bus.NewMem(0x4000)}

			b, err := bus.New(tt.mode, base, sec)
			if err != nil {
				t.Fatal(err)
			}

			b.Write(0x2208, 7)
			if v := b.Read(0x2208); v != 7 {
				t.Errorf("read %d != 7", v)
			}

			if diff := cmp.Diff(tt.want, log); diff != "" {
				t.Errorf("accesses differ: %s", diff)
			}
		})
	}
}

func TestNewMissingWindow(t *testing.T) {
	mem := bus.NewMem(16)

	bad := []struct {
		mode      bus.Mode
		base, sec bus.Regs
	}{
		{bus.NormalAPB, nil, mem},
		{bus.NormalSAPB, mem, nil},
		{bus.Low4KAPB, mem, nil},
		{bus.Low4KSAPB, nil, mem},
		{bus.Mode(9), mem, mem},
	}

	for _, c := range bad {
		if _, err := bus.New(c.mode, c.base, c.sec); !errors.Is(err, bus.ErrMode) {
			t.Errorf("%v: error isn't ErrMode: %v", c.mode, err)
		}
	}
}

func TestParseMode(t *testing.T) {
	for m := bus.NormalAPB; m <= bus.Low4KSAPB; m++ {
		got, err := bus.ParseMode(m.String())
		if err != nil {
			t.Fatal(err)
		}

		if got != m {
			t.Errorf("%v != %v", got, m)
		}
	}

	if _, err := bus.ParseMode("pci"); !errors.Is(err, bus.ErrMode) {
		t.Errorf("error isn't ErrMode: %v", err)
	}
}

// pager models hardware where the base window shows the page selected
// through the secure window. Reads return the full address, so a page
// select that interleaves with another accessor shows up as a wrong value.
type pager struct {
	page uint32
}

type pagedBase struct{ p *pager }
type pagedSec struct{ p *pager }

func (b pagedBase) Read32(off uint32) uint32 { return b.p.page<<12 | off }
func (b pagedBase) Write32(off, v uint32)    {}
func (s pagedSec) Read32(off uint32) uint32  { return 0 }
func (s pagedSec) Write32(off, v uint32)     { s.p.page = v }

func TestWindowSelectIsAtomic(t *testing.T) {
	p := new(pager)
	b, err := bus.New(bus.Low4KAPB, pagedBase{p}, pagedSec{p})
	if err != nil {
		t.Fatal(err)
	}

	var (
		wg   sync.WaitGroup
		errs = make(chan error, 8)
	)

	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(page uint32) {
			defer wg.Done()
			for j := uint32(0); j < 1000; j++ {
				off := page<<12 | (j*4)&0xffc
				if v := b.Read(off); v != off {
					errs <- fmt.Errorf("read %#x got %#x", off, v)
					return
				}
			}
		}(uint32(i + 1))
	}

	wg.Wait()
	close(errs)

	for err := range errs {
		t.Error(err)
	}
}

func TestMemOutOfRange(t *testing.T) {
	m := bus.NewMem(8)
	m.Write32(6, 0xffffffff)
	m.Write32(4, 0x12345678)

	if v := m.Read32(4); v != 0x12345678 {
		t.Errorf("%#x != 0x12345678", v)
	}

	if v := m.Read32(8); v != 0 {
		t.Errorf("oob read %#x != 0", v)
	}
}
