package bus

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Serve answers Remote requests on lis until ctx is done. Each connection
// is served in its own goroutine; accesses from all connections are
// serialized. Serve returns nil when ctx is canceled.
func Serve(ctx context.Context, lis net.Listener, windows ...Regs) error {
	var mu sync.Mutex

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		<-ctx.Done()
		lis.Close()
		return nil
	})

	g.Go(func() error {
		for {
			conn, err := lis.Accept()
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}

				return err
			}

			g.Go(func() error {
				defer conn.Close()
				stop := context.AfterFunc(ctx, func() { conn.Close() })
				defer stop()

				if err := serveConn(conn, &mu, windows); err != nil && ctx.Err() == nil {
					slog.Error("register server connection failed",
						"remote", conn.RemoteAddr(), "err", err)
				}

				return nil
			})
		}
	})

	err := g.Wait()
	if errors.Is(err, net.ErrClosed) {
		return nil
	}

	return err
}

func serveConn(conn net.Conn, mu *sync.Mutex, windows []Regs) error {
	var (
		req  [reqSize]byte
		resp [respSize]byte
	)

	for {
		if _, err := io.ReadFull(conn, req[:]); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}

			return err
		}

		var (
			op  = req[0]
			id  = int(req[1])
			off = be.Uint32(req[2:])
			v   = be.Uint32(req[6:])
		)

		if id >= len(windows) || windows[id] == nil {
			return errors.New("bus: no such window")
		}

		mu.Lock()
		switch op {
		case opRead:
			v = windows[id].Read32(off)

		case opWrite:
			windows[id].Write32(off, v)

		default:
			mu.Unlock()
			return errors.New("bus: bad request op")
		}
		mu.Unlock()

		be.PutUint32(resp[:], v)
		if _, err := conn.Write(resp[:]); err != nil {
			return err
		}
	}
}
