package main

import (
	"bytes"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"

	"github.com/c35s/mhdp/bus"
	"github.com/c35s/mhdp/dp"
	"github.com/c35s/mhdp/edid"
	"github.com/c35s/mhdp/firmware"
	"github.com/c35s/mhdp/mhdp"
	"github.com/c35s/mhdp/script"
	"github.com/c35s/mhdp/sim"
	"github.com/c35s/mhdp/video"
	"golang.org/x/term"
)

var (
	busKind    = flag.String("bus", "sim", "register path: sim, devmem, tcp, unix or vsock")
	addr       = flag.String("addr", "", "register server address for tcp, unix or vsock (cid:port)")
	modeName   = flag.String("mode", "normal-apb", "bus mode: normal-apb, normal-sapb, low4k-apb or low4k-sapb")
	basePhys   = flag.Int64("base", 0, "physical address of the base window (devmem)")
	secPhys    = flag.Int64("sec", 0, "physical address of the secure window (devmem)")
	fwPath     = flag.String("fw", "", "load a firmware bundle from file or URL")
	fwClock    = flag.Uint64("fwclk", 200_000_000, "firmware clock in Hz")
	lanes      = flag.Int("lanes", 4, "lanes to advertise")
	rate       = flag.Int("rate", dp.RateHBR, "link rate to advertise in kHz")
	flip       = flag.Bool("flip", false, "use the flipped lane mapping")
	doEDID     = flag.Bool("edid", false, "read the sink's EDID")
	doTrain    = flag.Bool("train", false, "train the link")
	doVideo    = flag.Bool("video", false, "start video in the sink's preferred mode")
	scriptPath = flag.String("script", "", "run a Lua script against the device")
	verbose    = flag.Bool("v", false, "log debug messages")
)

func main() {
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	if err := run(); err != nil {
		slog.Error("mhdp", "err", err)
		os.Exit(1)
	}
}

func run() error {
	mode, err := bus.ParseMode(*modeName)
	if err != nil {
		return err
	}

	b, closeBus, err := openBus(mode)
	if err != nil {
		return err
	}

	defer closeBus()

	d, err := mhdp.New(mhdp.Config{Name: *busKind, Bus: b})
	if err != nil {
		return err
	}

	if *fwPath != "" {
		if err := loadFirmware(d); err != nil {
			return err
		}
	}

	if err := d.SetLink(dp.Link{Rate: *rate, Lanes: *lanes}); err != nil {
		return err
	}

	if err := d.SetHostCap(*flip); err != nil {
		return err
	}

	if err := d.EventConfig(); err != nil {
		return err
	}

	var info *edid.EDID
	if *doEDID || *doVideo {
		raw, err := d.ReadEDID()
		if err != nil {
			return err
		}

		if info, err = edid.Parse(raw); err != nil {
			return err
		}

		if *doEDID {
			printEDID(raw, info)
		}
	}

	if *doTrain || *doVideo {
		if err := d.TrainLink(); err != nil {
			return err
		}

		fmt.Fprintf(os.Stderr, "link: %v\n", d.Link())
	}

	if *doVideo {
		if err := startVideo(d, info); err != nil {
			return err
		}
	}

	if *scriptPath != "" {
		rr, err := script.RunFile(*scriptPath, d, script.Options{})
		if err != nil {
			return err
		}

		for _, r := range rr {
			fmt.Println(r.String())
		}
	}

	return nil
}

func openBus(mode bus.Mode) (b *bus.Bus, closer func(), err error) {
	var base, sec bus.Regs
	closer = func() {}

	switch *busKind {
	case "sim":
		c := sim.New(sim.Config{HPD: true, TrainAfter: 3, Version: 0x00340102})
		if *fwPath == "" {
			c.Boot()
		}

		base, sec = c.Windows(mode)

	case "devmem":
		base, sec, closer, err = openDevMem(mode, *basePhys, *secPhys)
		if err != nil {
			return nil, nil, err
		}

	case "tcp", "unix", "vsock":
		r, err := bus.Dial(*busKind, *addr)
		if err != nil {
			return nil, nil, err
		}

		base, sec = r.Window(0), r.Window(1)
		closer = func() {
			if err := r.Err(); err != nil {
				slog.Error("register connection failed", "err", err)
			}

			r.Close()
		}

	default:
		return nil, nil, fmt.Errorf("mhdp: unknown bus %q", *busKind)
	}

	b, err = bus.New(mode, base, sec)
	if err != nil {
		closer()
		return nil, nil, err
	}

	return b, closer, nil
}

func loadFirmware(d *mhdp.Device) error {
	bundle, err := readURL(*fwPath)
	if err != nil {
		return err
	}

	img, err := firmware.ReadBundle(bytes.NewReader(bundle))
	if err != nil {
		return err
	}

	d.ClockReset()
	d.SetFirmwareClock(*fwClock)

	if err := d.LoadFirmware(img); err != nil {
		return err
	}

	if _, err := d.SetFirmwareActive(true); err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "firmware: %#08x\n", d.FirmwareVersion())
	return nil
}

// printEDID decodes to a terminal and writes raw blocks anywhere else.
func printEDID(raw []byte, e *edid.EDID) {
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		os.Stdout.Write(raw)
		return
	}

	fmt.Printf("%s %04x serial %d, week %d %d, EDID %d.%d, %d extensions\n",
		e.Manufacturer, e.ProductCode, e.Serial, e.Week, e.Year, e.Version, e.Revision, e.Extensions)

	for _, d := range e.Descriptors {
		fmt.Println("  " + d.String())
	}
}

func startVideo(d *mhdp.Device, e *edid.EDID) error {
	var desc *edid.Descriptor
	for i := range e.Descriptors {
		if e.Descriptors[i].Timing != nil {
			desc = &e.Descriptors[i]
			break
		}
	}

	if desc == nil {
		return errors.New("mhdp: sink has no detailed timing")
	}

	info := video.Info{
		ColorFormat:   video.RGB,
		ColorDepth:    8,
		HSyncPolarity: desc.HSyncPositive,
		VSyncPolarity: desc.VSyncPositive,
	}

	if err := d.ConfigVideo(*desc.Timing, info); err != nil {
		return err
	}

	if err := d.SetVideoStatus(true); err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "video: %v\n", desc.Timing)
	return nil
}

func readURL(s string) (body []byte, err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("mhdp: read URL %s: %w", s, err)
		}
	}()

	u, err := url.Parse(s)
	if err != nil {
		return nil, err
	}

	switch u.Scheme {
	case "", "file":
		return os.ReadFile(u.Path)

	case "http", "https":
		res, err := http.Get(u.String())
		if err != nil {
			return nil, err
		}

		defer res.Body.Close()

		if res.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("response status %d != %d", res.StatusCode, http.StatusOK)
		}

		return io.ReadAll(res.Body)

	default:
		return nil, fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
}
