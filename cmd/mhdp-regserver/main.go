// mhdp-regserver serves the register windows of a simulated transmitter so
// the mhdp tool can drive it over tcp, a unix socket or vsock.
package main

import (
	"context"
	"flag"
	"log/slog"
	"net"
	"os"
	"os/signal"

	"github.com/c35s/mhdp/bus"
	"github.com/c35s/mhdp/dp"
	"github.com/c35s/mhdp/sim"
	"github.com/mdlayher/vsock"
	"golang.org/x/sync/errgroup"
)

func main() {

	var (
		tcpAddr    = flag.String("tcp", "127.0.0.1:7474", "listen on a tcp address (empty to disable)")
		unixPath   = flag.String("unix", "", "listen on a unix socket")
		vsockPort  = flag.Uint("vsock", 0, "listen on a vsock port (0 to disable)")
		modeName   = flag.String("mode", "normal-apb", "bus mode the clients will use")
		edidPath   = flag.String("edid", "", "serve this EDID instead of the built-in one")
		trainAfter = flag.Int("train-after", 3, "event polls before training converges (0 never)")
		lanes      = flag.Int("lanes", 4, "lanes training negotiates")
		rate       = flag.Int("rate", dp.RateHBR, "link rate training negotiates in kHz")
		booted     = flag.Bool("booted", false, "start with firmware running")
	)

	flag.Parse()

	mode, err := bus.ParseMode(*modeName)
	if err != nil {
		panic(err)
	}

	cfg := sim.Config{
		HPD:        true,
		Link:       dp.Link{Rate: *rate, Lanes: *lanes},
		TrainAfter: *trainAfter,
		Version:    0x00340102,
	}

	if *edidPath != "" {
		if cfg.EDID, err = os.ReadFile(*edidPath); err != nil {
			panic(err)
		}
	}

	c := sim.New(cfg)
	if *booted {
		c.Boot()
	}

	base, sec := c.Windows(mode)

	var listeners []net.Listener

	if *tcpAddr != "" {
		lis, err := net.Listen("tcp", *tcpAddr)
		if err != nil {
			panic(err)
		}

		listeners = append(listeners, lis)
	}

	if *unixPath != "" {
		lis, err := net.Listen("unix", *unixPath)
		if err != nil {
			panic(err)
		}

		listeners = append(listeners, lis)
	}

	if *vsockPort != 0 {
		lis, err := vsock.Listen(uint32(*vsockPort), nil)
		if err != nil {
			panic(err)
		}

		listeners = append(listeners, lis)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	for _, lis := range listeners {
		lis := lis
		slog.Info("serving registers", "addr", lis.Addr(), "mode", mode)

		g.Go(func() error {
			return bus.Serve(ctx, lis, base, sec)
		})
	}

	if err := g.Wait(); err != nil {
		slog.Error("register server failed", "err", err)
		os.Exit(1)
	}
}
