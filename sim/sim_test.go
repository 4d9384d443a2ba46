package sim_test

import (
	"testing"

	"github.com/c35s/mhdp/bus"
	"github.com/c35s/mhdp/mailbox"
	"github.com/c35s/mhdp/mhdp"
	"github.com/c35s/mhdp/sim"
	"github.com/google/go-cmp/cmp"
)

func TestWindows(t *testing.T) {
	for _, mode := range []bus.Mode{bus.NormalAPB, bus.NormalSAPB, bus.Low4KAPB, bus.Low4KSAPB} {
		t.Run(mode.String(), func(t *testing.T) {
			c := sim.New(sim.Config{})
			b := c.Bus(mode)

			b.Write(mhdp.AddrDMem+8, 0xabcd)
			b.Write(mhdp.RegSWClkH, 100)

			if diff := cmp.Diff([]uint32{0, 0, 0xabcd}, c.Mem(mhdp.AddrDMem, 3)); diff != "" {
				t.Errorf("dmem differs: %s", diff)
			}

			if v := c.Read32(mhdp.RegSWClkH); v != 100 {
				t.Errorf("SW_CLK_H %d", v)
			}
		})
	}
}

func TestIdleFirmwareSwallowsRequests(t *testing.T) {
	c := sim.New(sim.Config{HPD: true})

	for _, v := range mailbox.EncodeFrame(mhdp.ModuleDPTX, mhdp.DPTXHPDState, nil) {
		c.Write32(mailbox.RegWrData, uint32(v))
	}

	if n := c.Pending(); n != 0 {
		t.Errorf("%d reply bytes before boot", n)
	}

	if n := c.Written(); n != mailbox.HeaderSize {
		t.Errorf("%d bytes written", n)
	}
}

func TestReplies(t *testing.T) {
	c := sim.New(sim.Config{HPD: true})
	c.Boot()

	for _, v := range mailbox.EncodeFrame(mhdp.ModuleDPTX, mhdp.DPTXHPDState, nil) {
		c.Write32(mailbox.RegWrData, uint32(v))
	}

	var got []byte
	for c.Read32(mailbox.RegEmpty) == 0 {
		got = append(got, byte(c.Read32(mailbox.RegRdData)))
	}

	want := mailbox.EncodeFrame(mhdp.ModuleDPTX, mhdp.DPTXHPDState, []byte{1})
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("reply differs: %s", diff)
	}

	if diff := cmp.Diff([]mailbox.Header{{Opcode: mhdp.DPTXHPDState, Module: mhdp.ModuleDPTX}}, c.Requests()); diff != "" {
		t.Errorf("request log differs: %s", diff)
	}
}

func TestStall(t *testing.T) {
	c := sim.New(sim.Config{})
	c.Inject([]byte{1})
	c.Stall(true, true)

	if c.Read32(mailbox.RegEmpty) == 0 || c.Read32(mailbox.RegFull) == 0 {
		t.Error("stalled FIFO looks ready")
	}

	c.Stall(false, false)

	if c.Read32(mailbox.RegEmpty) != 0 || c.Read32(mailbox.RegFull) != 0 {
		t.Error("FIFO still stalled")
	}
}
