package bus

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"sync"

	"github.com/mdlayher/vsock"
)

// Remote forwards register accesses to a Serve loop over a stream connection.
// It lets the library drive a controller that is only reachable from another
// machine or from the host side of a VM.
type Remote struct {
	mu   sync.Mutex
	conn net.Conn
	err  error
	req  [reqSize]byte
	resp [respSize]byte
}

type remoteWindow struct {
	r  *Remote
	id uint8
}

// wire format

const (
	opRead  = 0
	opWrite = 1

	reqSize  = 10 // op, window, off (be32), val (be32)
	respSize = 4  // val (be32)
)

var be = binary.BigEndian

var ErrRemote = errors.New("bus: remote register access failed")

// Dead is returned by reads after the connection fails. Flag registers
// read as set.
const Dead = 0xffffffff

// Dial connects to a register server. The network may be anything net.Dial
// accepts, or "vsock" with an address of the form "cid:port".
func Dial(network, addr string) (*Remote, error) {
	var (
		conn net.Conn
		err  error
	)

	switch network {
	case "vsock":
		cid, port, perr := parseVsockAddr(addr)
		if perr != nil {
			return nil, fmt.Errorf("%w: %w", ErrRemote, perr)
		}

		conn, err = vsock.Dial(cid, port, nil)

	default:
		conn, err = net.Dial(network, addr)
	}

	if err != nil {
		return nil, fmt.Errorf("%w: dial %s %s: %w", ErrRemote, network, addr, err)
	}

	return NewRemote(conn), nil
}

// NewRemote wraps an established connection.
func NewRemote(conn net.Conn) *Remote {
	return &Remote{conn: conn}
}

// Window returns the register window with the given index on the server.
// By convention 0 is the base window and 1 is the secure window.
func (r *Remote) Window(id int) Regs {
	return remoteWindow{r: r, id: uint8(id)}
}

// Err returns the first connection error. Once set, reads return Dead and
// writes are dropped.
func (r *Remote) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.err
}

func (r *Remote) Close() error {
	return r.conn.Close()
}

func (r *Remote) do(op, id uint8, off, v uint32) uint32 {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.err != nil {
		return Dead
	}

	r.req[0] = op
	r.req[1] = id
	be.PutUint32(r.req[2:], off)
	be.PutUint32(r.req[6:], v)

	if _, err := r.conn.Write(r.req[:]); err != nil {
		r.err = fmt.Errorf("%w: %w", ErrRemote, err)
		return Dead
	}

	if _, err := io.ReadFull(r.conn, r.resp[:]); err != nil {
		r.err = fmt.Errorf("%w: %w", ErrRemote, err)
		return Dead
	}

	return be.Uint32(r.resp[:])
}

func (w remoteWindow) Read32(off uint32) uint32 {
	return w.r.do(opRead, w.id, off, 0)
}

func (w remoteWindow) Write32(off uint32, v uint32) {
	w.r.do(opWrite, w.id, off, v)
}

func parseVsockAddr(s string) (cid, port uint32, err error) {
	c, p, ok := strings.Cut(s, ":")
	if !ok {
		return 0, 0, fmt.Errorf("vsock address %q is not cid:port", s)
	}

	cv, err := strconv.ParseUint(c, 0, 32)
	if err != nil {
		return 0, 0, fmt.Errorf("vsock cid: %w", err)
	}

	pv, err := strconv.ParseUint(p, 0, 32)
	if err != nil {
		return 0, 0, fmt.Errorf("vsock port: %w", err)
	}

	return uint32(cv), uint32(pv), nil
}
