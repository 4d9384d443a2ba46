package bus

import "encoding/binary"

// Mem is a register window backed by a byte slice. Accesses outside the
// slice read as zero and are dropped on write.
type Mem struct {
	Bytes []byte
}

var le = binary.LittleEndian

// NewMem allocates a zeroed window of size bytes.
func NewMem(size int) *Mem {
	return &Mem{Bytes: make([]byte, size)}
}

func (m *Mem) Read32(off uint32) uint32 {
	if uint64(off)+4 > uint64(len(m.Bytes)) {
		return 0
	}

	return le.Uint32(m.Bytes[off:])
}

func (m *Mem) Write32(off uint32, v uint32) {
	if uint64(off)+4 > uint64(len(m.Bytes)) {
		return
	}

	le.PutUint32(m.Bytes[off:], v)
}
