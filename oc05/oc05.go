// Package oc05 drives the XinaBox OC05 8 channel servo board, a PCA9685
// wired to outputs LED8..LED15.
//
// Inputs outside their valid ranges are clamped, never rejected.
//
// # Datasheet
//
// https://www.nxp.com/docs/en/data-sheet/PCA9685.pdf
package oc05

import (
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/physic"
)

const (
	// DefaultOnStep and DefaultOffStep give a 50% duty pulse.
	DefaultOnStep  = 0
	DefaultOffStep = 2048

	// wakeDelay lets the oscillator settle before RESTART.
	wakeDelay = time.Second
)

// Opts holds the bus settings of a Dev.
type Opts struct {
	// Addr is the 7 bit device address.
	Addr uint16
	// Clock is applied to the bus with SetSpeed. Zero leaves the bus as is.
	Clock physic.Frequency
	// Logger receives bus failures. Nil uses the zerolog global logger.
	Logger *zerolog.Logger
}

// DefaultOpts is the board's factory configuration.
var DefaultOpts = Opts{
	Addr:  I2CAddr,
	Clock: DefaultClock,
}

// Dev is a handle to an OC05 board.
//
// Dev is not safe for concurrent use.
type Dev struct {
	c    conn.Conn
	name string
	hz   int
	log  zerolog.Logger

	sleep func(time.Duration)
}

// New returns a Dev talking to the board on bus. The bus stays owned by the
// caller.
func New(bus i2c.Bus, opts *Opts) (*Dev, error) {
	if bus == nil {
		return nil, errors.New("oc05: nil bus")
	}
	if opts == nil {
		opts = &DefaultOpts
	}
	addr := opts.Addr
	if addr == 0 {
		addr = I2CAddr
	}
	if opts.Clock != 0 {
		if err := bus.SetSpeed(opts.Clock); err != nil {
			return nil, fmt.Errorf("oc05: set bus speed %s: %w", opts.Clock, err)
		}
	}

	l := log.Logger
	if opts.Logger != nil {
		l = *opts.Logger
	}

	d := &Dev{
		c:     &i2c.Dev{Bus: bus, Addr: addr},
		name:  fmt.Sprintf("oc05{%s, 0x%02X}", bus, addr),
		hz:    DefaultFrequency,
		sleep: time.Sleep,
	}
	d.log = l.With().Str("dev", d.name).Logger()
	return d, nil
}

// String implements conn.Resource.
func (d *Dev) String() string {
	return d.name
}

// Halt zeroes every output through the ALL_LED registers.
//
// Halt implements conn.Resource.
func (d *Dev) Halt() error {
	return d.zeroAll("halt")
}

// Frequency returns the PWM output frequency in Hz.
func (d *Dev) Frequency() int {
	return d.hz
}

// Init puts the chip to sleep, programs the prescaler for freq, clears all
// outputs and restarts the oscillator. freq is clamped to [40Hz,1000Hz].
//
// Init blocks for one second while the oscillator settles.
func (d *Dev) Init(freq physic.Frequency) error {
	d.hz = clamp(int(freq/physic.Hertz), MinFrequency, MaxFrequency)
	prescale := CalcFreqPrescaler(d.hz)

	if err := d.writeReg("init", RegMode1, ModeSleep); err != nil {
		return err
	}
	if err := d.writeReg("init", RegPrescale, byte(prescale)); err != nil {
		return err
	}
	if err := d.zeroAll("init"); err != nil {
		return err
	}
	if err := d.writeReg("init", RegMode1, ModeWake); err != nil {
		return err
	}
	d.sleep(wakeDelay)
	if err := d.writeReg("init", RegMode1, ModeRestart); err != nil {
		return err
	}
	d.log.Debug().Int("hz", d.hz).Int("prescale", prescale).Msg("initialised")
	return nil
}

// SetPinPulseRange sets the tick at which channel turns on and off within
// each period. channel is clamped to [1,8] and steps to [0,4095].
//
// The four registers are written one by one; a failure leaves the earlier
// ones written.
func (d *Dev) SetPinPulseRange(channel, onStep, offStep int) error {
	base := ChannelBase(channel)
	onStep = clamp(onStep, 0, MaxStep)
	offStep = clamp(offStep, 0, MaxStep)

	regs := [4]struct {
		reg byte
		v   byte
	}{
		{base, byte(onStep & 0xFF)},
		{base + 1, byte(onStep >> 8)},
		{base + 2, byte(offStep & 0xFF)},
		{base + 3, byte(offStep >> 8)},
	}
	for _, r := range regs {
		if err := d.writeReg("pulse range", r.reg, r.v); err != nil {
			return err
		}
	}
	return nil
}

// SetServoPosition moves the servo on channel to degrees, clamped to [0,180].
func (d *Dev) SetServoPosition(channel, degrees int) error {
	degrees = clamp(degrees, MinDegrees, MaxDegrees)
	return d.SetPinPulseRange(channel, 0, Degrees180ToPWM(d.hz, degrees, ServoStartPct, ServoEndPct))
}

// SetCRServoPosition runs a continuous rotation servo on channel at speed,
// -100 (full reverse) to 100 (full forward). 0 stops it.
func (d *Dev) SetCRServoPosition(channel, speed int) error {
	return d.SetPinPulseRange(channel, 0, CRServoTicks(d.hz, speed))
}

func (d *Dev) zeroAll(op string) error {
	for _, reg := range []byte{RegAllLedOnL, RegAllLedOnH, RegAllLedOffL, RegAllLedOffH} {
		if err := d.writeReg(op, reg, 0); err != nil {
			return err
		}
	}
	return nil
}

func (d *Dev) writeReg(op string, reg, v byte) error {
	if err := d.c.Tx([]byte{reg, v}, nil); err != nil {
		d.log.Error().Err(err).Str("op", op).Hex("reg", []byte{reg}).Hex("val", []byte{v}).Msg("register write failed")
		return &BusError{Op: op, Reg: reg, Value: v, Err: err}
	}
	return nil
}

var _ conn.Resource = &Dev{}
