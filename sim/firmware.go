package sim

import (
	"github.com/c35s/mhdp/dp"
	"github.com/c35s/mhdp/edid"
	"github.com/c35s/mhdp/mailbox"
	"github.com/c35s/mhdp/mhdp"
)

// process handles every complete frame in rx. Firmware that is not
// running swallows its input.
func (c *Controller) process() {
	for len(c.rx) >= mailbox.HeaderSize {
		var h mailbox.Header
		_ = h.UnmarshalBinary(c.rx[:mailbox.HeaderSize])

		n := mailbox.HeaderSize + int(h.Size)
		if len(c.rx) < n {
			return
		}

		payload := append([]byte(nil), c.rx[mailbox.HeaderSize:n]...)
		c.rx = c.rx[n:]

		if !c.booted {
			continue
		}

		c.requests = append(c.requests, h)

		if c.override != nil {
			if resp, ok := c.override(h, payload); ok {
				c.tx = append(c.tx, resp...)
				continue
			}
		}

		c.handle(h, payload)
	}
}

func (c *Controller) reply(module, opcode uint8, payload []byte) {
	c.tx = append(c.tx, mailbox.EncodeFrame(module, opcode, payload)...)
}

func (c *Controller) handle(h mailbox.Header, p []byte) {
	switch h.Module {
	case mhdp.ModuleGeneral:
		c.general(h.Opcode, p)

	case mhdp.ModuleDPTX:
		c.dptx(h.Opcode, p)
	}
}

func (c *Controller) general(op uint8, p []byte) {
	switch op {
	case mhdp.GeneralMainControl:
		if len(p) == 1 {
			c.state = p[0]
		}

		c.reply(mhdp.ModuleGeneral, op, []byte{c.state})

	case mhdp.GeneralTestEcho:
		c.reply(mhdp.ModuleGeneral, op, p)

	case mhdp.GeneralWriteRegister:
		if len(p) == 8 {
			c.regs[be.Uint32(p)] = be.Uint32(p[4:])
		}

	case mhdp.GeneralReadRegister:
		if len(p) != 4 {
			return
		}

		resp := make([]byte, 8)
		copy(resp, p)
		be.PutUint32(resp[4:], c.regs[be.Uint32(p)])
		c.reply(mhdp.ModuleGeneral, op, resp)

	case mhdp.GeneralGetHPDState:
		c.reply(mhdp.ModuleGeneral, op, []byte{byte(b2u(c.cfg.HPD))})
	}
}

func (c *Controller) dptx(op uint8, p []byte) {
	switch op {
	case mhdp.DPTXSetHostCapabilities:
		c.hostCap = append([]byte(nil), p...)

	case mhdp.DPTXEnableEvent:
		if len(p) > 0 {
			c.enabled = p[0]
		}

	case mhdp.DPTXWriteField:
		if len(p) != 8 {
			return
		}

		var (
			addr  = uint32(be.Uint16(p))
			start = uint32(p[2])
			width = uint32(p[3])
			val   = be.Uint32(p[4:])
			mask  = uint32(1<<width-1) << start
		)

		c.regs[addr] = c.regs[addr]&^mask | val<<start&mask

	case mhdp.DPTXReadDPCD:
		if len(p) != 5 {
			return
		}

		var (
			n    = int(be.Uint16(p))
			addr = be24(p[2:])
		)

		resp := append([]byte(nil), p...)
		for i := 0; i < n; i++ {
			resp = append(resp, c.dpcd[addr+uint32(i)])
		}

		c.reply(mhdp.ModuleDPTX, op, resp)

	case mhdp.DPTXWriteDPCD:
		if len(p) != 6 {
			return
		}

		c.dpcd[be24(p[2:])] = p[5]
		c.reply(mhdp.ModuleDPTX, op, p[:5])

	case mhdp.DPTXGetEDID:
		if len(p) != 2 {
			return
		}

		block := int(p[0])*2 + int(p[1])
		data := make([]byte, edid.BlockSize)
		if off := block * edid.BlockSize; off+edid.BlockSize <= len(c.cfg.EDID) {
			copy(data, c.cfg.EDID[off:])
		}

		c.reply(mhdp.ModuleDPTX, op, append([]byte{edid.BlockSize, p[0]}, data...))

	case mhdp.DPTXHPDState:
		c.reply(mhdp.ModuleDPTX, op, []byte{byte(b2u(c.cfg.HPD))})

	case mhdp.DPTXTrainingControl:
		c.training = len(p) == 1 && p[0] == mhdp.LinkTrainingRun
		c.polls = 0
		c.events = 0

	case mhdp.DPTXReadEvent:
		if c.training {
			c.polls++
			c.events = mhdp.FullLTStarted

			if c.cfg.TrainAfter > 0 && c.polls >= c.cfg.TrainAfter {
				c.events |= mhdp.ClkRecoveryFinished | mhdp.EQPhaseFinished
				c.training = false
			}
		}

		c.reply(mhdp.ModuleDPTX, op, []byte{0, c.events})

	case mhdp.DPTXReadLinkStat:
		resp := make([]byte, 10)
		resp[0] = dp.BWCode(c.cfg.Link.Rate)
		resp[1] = byte(c.cfg.Link.Lanes)
		c.reply(mhdp.ModuleDPTX, op, resp)

	case mhdp.DPTXSetVideo:
		c.video = len(p) == 1 && p[0] != 0

	case mhdp.DPTXAdjustLT:
		if len(p) != 7 {
			return
		}

		// answered as a DPCD read of the lane status block
		resp := []byte{0, dp.DPCDLaneStatusLen, 0, 0x02, 0x02}
		for i := uint32(0); i < dp.DPCDLaneStatusLen; i++ {
			resp = append(resp, c.dpcd[dp.DPCDLane01Status+i])
		}

		c.reply(mhdp.ModuleDPTX, mhdp.DPTXReadDPCD, resp)
	}
}

func be24(b []byte) uint32 {
	return uint32(b[0])<<16 | uint32(b[1])<<8 | uint32(b[2])
}
