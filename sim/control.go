package sim

import "github.com/c35s/mhdp/mailbox"

// SetOverride installs f, or removes the override if f is nil.
func (c *Controller) SetOverride(f Override) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.override = f
}

// Inject queues raw bytes for the host as if the firmware had sent them.
func (c *Controller) Inject(raw []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.tx = append(c.tx, raw...)
}

// Stall makes the FIFOs look permanently empty (read) or full (write).
func (c *Controller) Stall(read, write bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.stallRead = read
	c.stallWrite = write
}

// Requests returns the headers of every request the firmware received.
func (c *Controller) Requests() []mailbox.Header {
	c.mu.Lock()
	defer c.mu.Unlock()

	return append([]mailbox.Header(nil), c.requests...)
}

// Count returns how many requests arrived for module and opcode.
func (c *Controller) Count(module, opcode uint8) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	var n int
	for _, h := range c.requests {
		if h.Module == module && h.Opcode == opcode {
			n++
		}
	}

	return n
}

// Written returns the number of bytes the host pushed into the mailbox.
func (c *Controller) Written() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.wrote
}

// Pending returns the number of reply bytes the host has not read.
func (c *Controller) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.tx)
}

// Boot starts the firmware without a load sequence.
func (c *Controller) Boot() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.booted = true
}

// SetHPD changes the hot plug state.
func (c *Controller) SetHPD(plugged bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.cfg.HPD = plugged
}

// Reg returns a register as the firmware sees it.
func (c *Controller) Reg(addr uint32) uint32 {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.regs[addr]
}

// SetDPCD writes sink DPCD starting at addr.
func (c *Controller) SetDPCD(addr uint32, b ...byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i, v := range b {
		c.dpcd[addr+uint32(i)] = v
	}
}

// DPCD returns one byte of sink DPCD.
func (c *Controller) DPCD(addr uint32) byte {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.dpcd[addr]
}

// HostCap returns the last SET_HOST_CAPABILITIES payload.
func (c *Controller) HostCap() []byte {
	c.mu.Lock()
	defer c.mu.Unlock()

	return append([]byte(nil), c.hostCap...)
}

// EnabledEvents returns the event mask from the last ENABLE_EVENT.
func (c *Controller) EnabledEvents() byte {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.enabled
}

// VideoActive reports the last SET_VIDEO state.
func (c *Controller) VideoActive() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.video
}

// FirmwareState returns the last MAIN_CONTROL state.
func (c *Controller) FirmwareState() byte {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.state
}
