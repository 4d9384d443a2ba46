package mhdp_test

import (
	"errors"
	"testing"
	"time"

	"github.com/c35s/mhdp/bus"
	"github.com/c35s/mhdp/dp"
	"github.com/c35s/mhdp/mailbox"
	"github.com/c35s/mhdp/mhdp"
	"github.com/c35s/mhdp/sim"
	"github.com/google/go-cmp/cmp"
	"golang.org/x/sys/unix"
)

func TestTrainingConvergesOnPollN(t *testing.T) {
	for _, n := range []int{1, 3, 7} {
		d, c := attach(t, sim.Config{TrainAfter: n}, bus.NormalAPB)

		if err := d.StartTraining(); err != nil {
			t.Fatalf("converge on poll %d: %v", n, err)
		}

		if got := c.Count(mhdp.ModuleDPTX, mhdp.DPTXReadEvent); got != n {
			t.Errorf("converge on poll %d: %d polls", n, got)
		}

		if st := d.TrainingState(); st != mhdp.TrainConverged {
			t.Errorf("state %v", st)
		}
	}
}

func TestTrainingTimeout(t *testing.T) {
	c := sim.New(sim.Config{})
	c.Boot()

	tm := testTiming
	tm.TrainPoll = 5 * time.Millisecond
	tm.TrainTimeout = 30 * time.Millisecond

	d, err := mhdp.New(mhdp.Config{Bus: c.Bus(bus.NormalAPB), Logger: quiet, Timing: tm})
	if err != nil {
		t.Fatal(err)
	}

	start := time.Now()
	err = d.StartTraining()

	if !errors.Is(err, mhdp.ErrTimeout) || !errors.Is(err, unix.ETIMEDOUT) {
		t.Errorf("error isn't a training timeout: %v", err)
	}

	if d.TrainingState() != mhdp.TrainTimedOut {
		t.Errorf("state %v", d.TrainingState())
	}

	if el := time.Since(start); el < tm.TrainTimeout {
		t.Errorf("gave up after %v", el)
	}

	// every poll waits first, so the budget bounds the poll count
	if n := c.Count(mhdp.ModuleDPTX, mhdp.DPTXReadEvent); n == 0 || n > 6 {
		t.Errorf("%d polls", n)
	}
}

func TestTrainingFailsOnForeignFrame(t *testing.T) {
	d, c := attach(t, sim.Config{TrainAfter: 5}, bus.NormalAPB)

	c.SetOverride(func(h mailbox.Header, p []byte) ([]byte, bool) {
		if h.Opcode != mhdp.DPTXReadEvent {
			return nil, false
		}

		return mailbox.EncodeFrame(mhdp.ModuleDPTX, mhdp.DPTXHPDState, []byte{1}), true
	})

	if err := d.StartTraining(); !errors.Is(err, mailbox.ErrFramingMismatch) {
		t.Errorf("error isn't ErrFramingMismatch: %v", err)
	}

	if st := d.TrainingState(); st != mhdp.TrainFailed {
		t.Errorf("state %v", st)
	}

	if n := c.Count(mhdp.ModuleDPTX, mhdp.DPTXReadEvent); n != 1 {
		t.Errorf("%d polls after failure", n)
	}
}

func TestTrainLink(t *testing.T) {
	want := dp.Link{Rate: dp.RateHBR2, Lanes: 2}
	d, _ := attach(t, sim.Config{TrainAfter: 2, Link: want}, bus.Low4KAPB)

	if err := d.TrainLink(); err != nil {
		t.Fatal(err)
	}

	if diff := cmp.Diff(want, d.Link()); diff != "" {
		t.Errorf("link differs: %s", diff)
	}
}

func TestGetTrainingStatus(t *testing.T) {
	d, _ := attach(t, sim.Config{Link: dp.Link{Rate: dp.RateRBR, Lanes: 1}}, bus.NormalAPB)

	st, err := d.GetTrainingStatus()
	if err != nil {
		t.Fatal(err)
	}

	if st[0] != dp.BWCodeRBR || st[1] != 1 {
		t.Errorf("status % x", st[:2])
	}

	if l := d.Link(); l.Rate != dp.RateRBR || l.Lanes != 1 {
		t.Errorf("link %v", l)
	}
}

func TestGetTrainingStatusRejectsLink(t *testing.T) {
	bad := []struct {
		name string
		stat []byte
	}{
		{"lanes", []byte{dp.BWCodeHBR, 3, 0, 0, 0, 0, 0, 0, 0, 0}},
		{"rate", []byte{0x07, 2, 0, 0, 0, 0, 0, 0, 0, 0}},
		{"no lanes", []byte{dp.BWCodeRBR, 0, 0, 0, 0, 0, 0, 0, 0, 0}},
	}

	for _, tt := range bad {
		t.Run(tt.name, func(t *testing.T) {
			d, c := attach(t, sim.Config{}, bus.NormalAPB)

			want := dp.Link{Rate: dp.RateHBR2, Lanes: 4}
			if err := d.SetLink(want); err != nil {
				t.Fatal(err)
			}

			c.SetOverride(func(h mailbox.Header, p []byte) ([]byte, bool) {
				if h.Opcode != mhdp.DPTXReadLinkStat {
					return nil, false
				}

				return mailbox.EncodeFrame(mhdp.ModuleDPTX, mhdp.DPTXReadLinkStat, tt.stat), true
			})

			_, err := d.GetTrainingStatus()
			if !errors.Is(err, mhdp.ErrEchoMismatch) || !errors.Is(err, dp.ErrLink) {
				t.Errorf("error isn't a bad link: %v", err)
			}

			if diff := cmp.Diff(want, d.Link()); diff != "" {
				t.Errorf("link changed: %s", diff)
			}
		})
	}
}

func TestAdjustTraining(t *testing.T) {
	d, c := attach(t, sim.Config{}, bus.NormalAPB)
	c.SetDPCD(dp.DPCDLane01Status, 0x77, 0x77, 0x81, 0x00, 0x11, 0x22)

	var req []byte
	c.SetOverride(func(h mailbox.Header, p []byte) ([]byte, bool) {
		if h.Opcode == mhdp.DPTXAdjustLT {
			req = p
		}

		return nil, false
	})

	st, err := d.AdjustTraining(2, 500, []byte{0x0a, 0x0b, 0xff, 0xff})
	if err != nil {
		t.Fatal(err)
	}

	if diff := cmp.Diff([]byte{2, 0x01, 0xf4, 0x0a, 0x0b, 0, 0}, req); diff != "" {
		t.Errorf("request differs: %s", diff)
	}

	if diff := cmp.Diff([6]byte{0x77, 0x77, 0x81, 0x00, 0x11, 0x22}, st); diff != "" {
		t.Errorf("lane status differs: %s", diff)
	}
}

func TestAdjustTrainingInvalidLanes(t *testing.T) {
	d, c := attach(t, sim.Config{}, bus.NormalAPB)
	data := []byte{1, 2, 3, 4, 5}

	for _, lanes := range []int{0, 3, 5} {
		if _, err := d.AdjustTraining(lanes, 100, data); !errors.Is(err, mhdp.ErrInvalidArgument) {
			t.Errorf("%d lanes: error isn't ErrInvalidArgument: %v", lanes, err)
		}
	}

	if n := c.Written(); n != 0 {
		t.Errorf("%d bytes sent", n)
	}
}

func TestAdjustTrainingWrongAddress(t *testing.T) {
	d, c := attach(t, sim.Config{}, bus.NormalAPB)

	c.SetOverride(func(h mailbox.Header, p []byte) ([]byte, bool) {
		if h.Opcode != mhdp.DPTXAdjustLT {
			return nil, false
		}

		resp := []byte{0, 6, 0, 0x02, 0x03, 1, 2, 3, 4, 5, 6}
		return mailbox.EncodeFrame(mhdp.ModuleDPTX, mhdp.DPTXReadDPCD, resp), true
	})

	if _, err := d.AdjustTraining(4, 100, []byte{1, 2, 3, 4}); !errors.Is(err, mhdp.ErrEchoMismatch) {
		t.Errorf("error isn't ErrEchoMismatch: %v", err)
	}
}

func TestAdjustTrainingWrongTag(t *testing.T) {
	d, c := attach(t, sim.Config{}, bus.NormalAPB)

	c.SetOverride(func(h mailbox.Header, p []byte) ([]byte, bool) {
		if h.Opcode != mhdp.DPTXAdjustLT {
			return nil, false
		}

		resp := []byte{0, 6, 0, 0x02, 0x02, 1, 2, 3, 4, 5, 6}
		return mailbox.EncodeFrame(mhdp.ModuleDPTX, mhdp.DPTXAdjustLT, resp), true
	})

	if _, err := d.AdjustTraining(1, 100, []byte{1}); !errors.Is(err, mailbox.ErrFramingMismatch) {
		t.Errorf("error isn't ErrFramingMismatch: %v", err)
	}

	if n := c.Pending(); n != 0 {
		t.Errorf("%d bytes left after drain", n)
	}
}
