package mailbox

import (
	"encoding/binary"
	"fmt"
	"io"

	"golang.org/x/sys/unix"
)

// HeaderSize is the size of a frame header on the wire.
const HeaderSize = 4

// MaxPayload is the largest payload a header can describe.
const MaxPayload = 0xffff

// Header starts every mailbox message.
type Header struct {
	Opcode uint8
	Module uint8
	Size   uint16
}

var be = binary.BigEndian

func (h Header) MarshalBinary() ([]byte, error) {
	b := make([]byte, HeaderSize)
	h.put(b)
	return b, nil
}

func (h *Header) UnmarshalBinary(b []byte) error {
	if len(b) < HeaderSize {
		return io.ErrUnexpectedEOF
	}

	h.Opcode = b[0]
	h.Module = b[1]
	h.Size = be.Uint16(b[2:])
	return nil
}

func (h Header) put(b []byte) {
	b[0] = h.Opcode
	b[1] = h.Module
	be.PutUint16(b[2:], h.Size)
}

func (h Header) String() string {
	return fmt.Sprintf("module %#02x opcode %#02x size %d", h.Module, h.Opcode, h.Size)
}

// EncodeFrame returns the wire bytes of a complete message.
func EncodeFrame(module, opcode uint8, payload []byte) []byte {
	b := make([]byte, HeaderSize+len(payload))
	Header{Opcode: opcode, Module: module, Size: uint16(len(payload))}.put(b)
	copy(b[HeaderSize:], payload)
	return b
}

// Send writes a header and payload one byte at a time. It stops at the
// first byte that cannot be written; the peer is left to resynchronize on
// the partial frame.
func (m *Mailbox) Send(module, opcode uint8, payload []byte) error {
	if len(payload) > MaxPayload {
		return fmt.Errorf("mailbox: payload of %d bytes: %w", len(payload), unix.EMSGSIZE)
	}

	var hdr [HeaderSize]byte
	Header{Opcode: opcode, Module: module, Size: uint16(len(payload))}.put(hdr[:])

	for _, b := range hdr {
		if err := m.WriteByte(b); err != nil {
			return err
		}
	}

	for _, b := range payload {
		if err := m.WriteByte(b); err != nil {
			return err
		}
	}

	return nil
}

// ValidateReceive reads the next header and checks it against the expected
// module, opcode and payload size. On a mismatch the payload the header
// announces is read and thrown away, then ErrFramingMismatch is returned.
func (m *Mailbox) ValidateReceive(module, opcode uint8, size uint16) error {
	var hdr [HeaderSize]byte
	for i := range hdr {
		b, err := m.ReadByte()
		if err != nil {
			return err
		}

		hdr[i] = b
	}

	var got Header
	_ = got.UnmarshalBinary(hdr[:]) // cannot fail on a full header

	if got.Opcode != opcode || got.Module != module || got.Size != size {
		m.drain(int(got.Size))

		want := Header{Opcode: opcode, Module: module, Size: size}
		return fmt.Errorf("%w: got %v, want %v: %w", ErrFramingMismatch, got, want, unix.EINVAL)
	}

	return nil
}

// drain discards n bytes, stopping early if the FIFO stays empty.
func (m *Mailbox) drain(n int) {
	for i := 0; i < n; i++ {
		if _, err := m.ReadByte(); err != nil {
			return
		}
	}
}

// ReadReceive fills buf from the FIFO.
func (m *Mailbox) ReadReceive(buf []byte) error {
	for i := range buf {
		b, err := m.ReadByte()
		if err != nil {
			return err
		}

		buf[i] = b
	}

	return nil
}
