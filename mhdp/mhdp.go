// Package mhdp drives a DisplayPort transmitter through its microcontroller
// mailbox: firmware load, register and DPCD access, EDID, link training and
// video stream configuration.
//
// A Device is owned by one caller at a time. The bus lock keeps individual
// register accesses atomic, but a mailbox exchange spans many accesses, so
// callers must not issue commands concurrently.
package mhdp

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/c35s/mhdp/bus"
	"github.com/c35s/mhdp/dp"
	"github.com/c35s/mhdp/mailbox"
	"github.com/c35s/mhdp/video"
	"golang.org/x/sys/unix"
)

// Config describes a new Device.
type Config struct {

	// Name identifies the device in log records.
	Name string

	// Bus is the register path to the controller. It is required.
	Bus *bus.Bus

	// Logger receives failure and debug records.
	// If Logger is nil, slog.Default() is used.
	Logger *slog.Logger

	// Timing bounds the blocking waits. Zero fields take the defaults.
	Timing Timing
}

// Timing holds the poll intervals and budgets of the blocking operations.
type Timing struct {
	Mailbox mailbox.Timing

	TrainPoll    time.Duration
	TrainTimeout time.Duration

	AlivePoll    time.Duration
	AliveTimeout time.Duration
}

const (
	DefaultTrainPoll    = 20 * time.Millisecond
	DefaultTrainTimeout = 500 * time.Millisecond
	DefaultAlivePoll    = 2 * time.Millisecond
	DefaultAliveTimeout = time.Second
)

var (
	ErrConfig          = errors.New("mhdp: invalid config")
	ErrInvalidArgument = errors.New("mhdp: invalid argument")
	ErrEchoMismatch    = errors.New("mhdp: response does not echo the request")
	ErrTimeout         = errors.New("mhdp: timed out")
	ErrFirmwareBoot    = errors.New("mhdp: firmware did not start")
)

// Device is an attached transmitter.
type Device struct {
	name   string
	bus    *bus.Bus
	mbox   *mailbox.Mailbox
	log    *slog.Logger
	timing Timing

	fwVersion uint32
	link      dp.Link
	training  TrainingState

	mode  video.Mode
	video video.Info
}

// New attaches to the controller described by cfg. It performs no I/O.
func New(cfg Config) (*Device, error) {
	cfg = cfg.withDefaults()
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfig, err)
	}

	d := &Device{
		name:   cfg.Name,
		bus:    cfg.Bus,
		mbox:   mailbox.New(cfg.Bus, cfg.Timing.Mailbox),
		log:    cfg.Logger.With("device", cfg.Name),
		timing: cfg.Timing,
	}

	return d, nil
}

// Mailbox returns the device's mailbox for raw exchanges.
func (d *Device) Mailbox() *mailbox.Mailbox {
	return d.mbox
}

// Link returns the current link parameters.
func (d *Device) Link() dp.Link {
	return d.link
}

// SetLink sets the link parameters advertised by SetHostCap. Training
// overwrites them with what was negotiated.
func (d *Device) SetLink(l dp.Link) error {
	if err := l.Validate(); err != nil {
		return d.fail("set link", fmt.Errorf("%w: %w", ErrInvalidArgument, err))
	}

	d.link = l
	return nil
}

// FirmwareVersion returns the version read after the last firmware load.
func (d *Device) FirmwareVersion() uint32 {
	return d.fwVersion
}

// fail logs a failed operation with its error code and returns err unchanged.
func (d *Device) fail(op string, err error, args ...any) error {
	args = append(args, "op", op, "err", err)

	var errno unix.Errno
	if errors.As(err, &errno) {
		args = append(args, "errno", int(errno))
	}

	d.log.Error(op+" failed", args...)
	return err
}

func (cfg Config) validate() error {
	if cfg.Bus == nil {
		return errors.New("bus is not set")
	}

	t := cfg.Timing
	if t.TrainPoll <= 0 || t.TrainTimeout <= 0 || t.AlivePoll <= 0 || t.AliveTimeout <= 0 {
		return errors.New("timing must be positive")
	}

	return nil
}

func (cfg Config) withDefaults() Config {
	if cfg.Name == "" {
		cfg.Name = "mhdp"
	}

	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	t := &cfg.Timing
	if t.TrainPoll == 0 {
		t.TrainPoll = DefaultTrainPoll
	}

	if t.TrainTimeout == 0 {
		t.TrainTimeout = DefaultTrainTimeout
	}

	if t.AlivePoll == 0 {
		t.AlivePoll = DefaultAlivePoll
	}

	if t.AliveTimeout == 0 {
		t.AliveTimeout = DefaultAliveTimeout
	}

	return cfg
}
