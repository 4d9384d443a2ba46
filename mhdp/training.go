package mhdp

import (
	"fmt"
	"time"

	"github.com/c35s/mhdp/dp"
	"golang.org/x/sys/unix"
)

// TrainingState is where the last link training attempt ended up.
type TrainingState int

const (
	TrainIdle TrainingState = iota
	TrainRunning
	TrainConverged
	TrainTimedOut
	TrainFailed
)

func (s TrainingState) String() string {
	switch s {
	case TrainIdle:
		return "idle"
	case TrainRunning:
		return "running"
	case TrainConverged:
		return "converged"
	case TrainTimedOut:
		return "timed out"
	case TrainFailed:
		return "failed"
	default:
		return fmt.Sprintf("TrainingState(%d)", int(s))
	}
}

// LinkStatus is the READ_LINK_STAT response. Byte 0 is the bandwidth code
// and byte 1 the lane count; the rest is firmware specific.
type LinkStatus [10]byte

// TrainingState returns the state of the last training attempt.
func (d *Device) TrainingState() TrainingState {
	return d.training
}

// StartTraining runs link training in the firmware and polls its events
// until the equalization phase finishes or the training budget runs out.
func (d *Device) StartTraining() error {
	d.training = TrainRunning

	if err := d.mbox.Send(ModuleDPTX, DPTXTrainingControl, []byte{LinkTrainingRun}); err != nil {
		d.training = TrainFailed
		return d.fail("start training", err)
	}

	start := time.Now()
	for polls := 1; time.Since(start) < d.timing.TrainTimeout; polls++ {
		time.Sleep(d.timing.TrainPoll)

		var event [2]byte
		if err := d.exchange(ModuleDPTX, DPTXReadEvent, nil, event[:]); err != nil {
			d.training = TrainFailed
			return d.fail("start training", err, "polls", polls)
		}

		if event[1]&EQPhaseFinished != 0 {
			d.training = TrainConverged
			d.log.Debug("training converged", "polls", polls, "events", event[1])
			return nil
		}
	}

	d.training = TrainTimedOut

	err := fmt.Errorf("%w: training after %v: %w", ErrTimeout, d.timing.TrainTimeout, unix.ETIMEDOUT)
	return d.fail("start training", err)
}

// GetTrainingStatus reads the negotiated link from the firmware and makes
// it the device's link.
func (d *Device) GetTrainingStatus() (LinkStatus, error) {
	var st LinkStatus
	if err := d.exchange(ModuleDPTX, DPTXReadLinkStat, nil, st[:]); err != nil {
		return st, d.fail("get training status", err)
	}

	link := dp.Link{
		Rate:  dp.RateFromBWCode(st[0]),
		Lanes: int(st[1]),
	}

	if err := link.Validate(); err != nil {
		return st, d.fail("get training status", fmt.Errorf("%w: bw code %#x: %w", ErrEchoMismatch, st[0], err))
	}

	d.link = link
	return st, nil
}

// TrainLink trains the link and adopts the result.
func (d *Device) TrainLink() error {
	if err := d.StartTraining(); err != nil {
		return err
	}

	if _, err := d.GetTrainingStatus(); err != nil {
		return err
	}

	d.log.Debug("link trained", "rate", d.link.Rate, "lanes", d.link.Lanes)
	return nil
}

// AdjustTraining hands the firmware new drive settings for lanes and
// returns DPCD 0x202 through 0x207 as read back after delayUS.
// laneData holds one byte per lane.
func (d *Device) AdjustTraining(lanes int, delayUS uint16, laneData []byte) ([dp.DPCDLaneStatusLen]byte, error) {
	var status [dp.DPCDLaneStatusLen]byte

	if !dp.ValidLanes(lanes) || len(laneData) < lanes {
		err := fmt.Errorf("%w: %d lanes with %d bytes of lane data: %w", ErrInvalidArgument, lanes, len(laneData), unix.EINVAL)
		return status, d.fail("adjust training", err)
	}

	req := make([]byte, 7)
	req[0] = byte(lanes)
	be.PutUint16(req[1:], delayUS)
	copy(req[3:], laneData[:lanes])

	if err := d.mbox.Send(ModuleDPTX, DPTXAdjustLT, req); err != nil {
		return status, d.fail("adjust training", err)
	}

	// the firmware answers with a DPCD read of the lane status registers
	if err := d.mbox.ValidateReceive(ModuleDPTX, DPTXReadDPCD, dpcdEchoSize+dp.DPCDLaneStatusLen); err != nil {
		return status, d.fail("adjust training", err)
	}

	var echo [dpcdEchoSize]byte
	if err := d.mbox.ReadReceive(echo[:]); err != nil {
		return status, d.fail("adjust training", err)
	}

	if err := d.mbox.ReadReceive(status[:]); err != nil {
		return status, d.fail("adjust training", err)
	}

	if got := be24(echo[2:]); got != dp.DPCDLane01Status {
		err := fmt.Errorf("%w: dpcd %#x, got %#x: %w", ErrEchoMismatch, dp.DPCDLane01Status, got, unix.EINVAL)
		return status, d.fail("adjust training", err)
	}

	return status, nil
}
