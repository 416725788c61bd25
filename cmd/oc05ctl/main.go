package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/host/v3"

	"github.com/coreman2200/oc05/internal/config"
	"github.com/coreman2200/oc05/internal/sim"
	"github.com/coreman2200/oc05/internal/sweep"
	"github.com/coreman2200/oc05/oc05"
)

type servo interface {
	SetPinPulseRange(channel, onStep, offStep int) error
	SetServoPosition(channel, degrees int) error
	SetCRServoPosition(channel, speed int) error
}

// settings are the effective parameters after flags and config are merged.
type settings struct {
	Driver   string
	Bus      string
	Addr     uint16
	Clock    physic.Frequency
	Freq     physic.Frequency
	Commands []config.Command
	Sweep    *config.Sweep
}

type flags struct {
	driver  string
	bus     string
	addr    string
	clockHz int64
	freqHz  int
	channel int
	degrees int
	speed   int
	on      int
	off     int
	sweep   bool
	simOnly bool
	set     map[string]bool
}

func main() {
	var f flags
	def := config.Default()
	configPath := flag.String("config", "", "path to config.yaml")
	flag.StringVar(&f.driver, "driver", def.Driver, "driver: i2c | sim")
	flag.StringVar(&f.bus, "bus", def.Bus, "I²C bus name; empty picks the first one")
	flag.StringVar(&f.addr, "addr", def.Addr, "device address")
	flag.Int64Var(&f.clockHz, "clock", def.ClockHz, "bus clock in Hz; 0 leaves the bus speed alone")
	flag.IntVar(&f.freqHz, "freq", def.FrequencyHz, "servo PWM frequency in Hz (40-1000)")
	flag.IntVar(&f.channel, "channel", 1, "channel (1-8)")
	flag.IntVar(&f.degrees, "degrees", 90, "move the servo on -channel to this angle (0-180)")
	flag.IntVar(&f.speed, "speed", 0, "run the continuous rotation servo on -channel (-100..100)")
	flag.IntVar(&f.on, "on", oc05.DefaultOnStep, "raw ON tick for -channel (0-4095)")
	flag.IntVar(&f.off, "off", oc05.DefaultOffStep, "raw OFF tick for -channel (0-4095)")
	flag.BoolVar(&f.sweep, "sweep", false, "sweep the servo on -channel until interrupted")
	flag.BoolVar(&f.simOnly, "sim-only", false, "force simulation (no hardware output)")
	verbose := flag.Bool("v", false, "debug logging")
	flag.Parse()

	f.set = map[string]bool{}
	flag.Visit(func(fl *flag.Flag) { f.set[fl.Name] = true })

	// ---- Logging ----
	zerolog.TimeFieldFormat = time.RFC3339
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if *verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.Kitchen})

	// ---- Load config.yaml (optional) ----
	var cfg *config.Config
	if *configPath != "" {
		if c, err := config.Load(*configPath); err != nil {
			log.Warn().Err(err).Str("path", *configPath).Msg("config load failed; proceeding with flags")
		} else {
			cfg = c
		}
	}

	s, err := resolve(f, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("bad settings")
	}
	if err := run(s, openBus); err != nil {
		log.Fatal().Err(err).Msg("oc05ctl failed")
	}
}

// run opens the bus with open, initialises the board and applies s. The bus
// is closed before run returns.
func run(s settings, open func(settings) (i2c.BusCloser, *sim.Bus)) error {
	bus, simBus := open(s)
	defer bus.Close()

	dev, err := oc05.New(bus, &oc05.Opts{Addr: s.Addr, Clock: s.Clock})
	if err != nil {
		return fmt.Errorf("open: %w", err)
	}
	log.Info().Str("dev", dev.String()).Str("freq", s.Freq.String()).Msg("initialising")
	if err := dev.Init(s.Freq); err != nil {
		return fmt.Errorf("init: %w", err)
	}

	for _, c := range s.Commands {
		if err := apply(dev, c); err != nil {
			return fmt.Errorf("%s on channel %d: %w", c.Kind, c.Channel, err)
		}
		log.Info().Str("kind", c.Kind).Int("channel", c.Channel).Msg("applied")
	}

	if s.Sweep != nil {
		ctx, cancel := context.WithCancel(context.Background())
		ch := make(chan os.Signal, 1)
		signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
		go func() {
			select {
			case sig := <-ch:
				log.Info().Str("signal", sig.String()).Msg("shutting down")
				cancel()
			case <-ctx.Done():
			}
		}()

		l := sweep.NewLooper(dev, s.Sweep.Channel)
		l.Min, l.Max = s.Sweep.Min, s.Sweep.Max
		if s.Sweep.Step > 0 {
			l.Step = s.Sweep.Step
		}
		if s.Sweep.PeriodMs > 0 {
			l.Period = time.Duration(s.Sweep.PeriodMs) * time.Millisecond
		}
		err := l.Run(ctx)
		signal.Stop(ch)
		cancel()
		if err != nil {
			log.Error().Err(err).Msg("sweep failed")
		}
		if err := dev.Halt(); err != nil {
			log.Warn().Err(err).Msg("halt failed")
		}
	}

	if simBus != nil {
		dumpChannels(simBus, s.Addr)
	}
	return nil
}

// resolve merges flags and config. Config values override flags where set,
// -sim-only overrides both.
func resolve(f flags, cfg *config.Config) (settings, error) {
	s := settings{
		Driver: f.driver,
		Bus:    f.bus,
		Clock:  physic.Frequency(f.clockHz) * physic.Hertz,
		Freq:   physic.Frequency(f.freqHz) * physic.Hertz,
	}
	addr := f.addr

	if cfg != nil {
		if cfg.Driver != "" {
			s.Driver = cfg.Driver
		}
		if cfg.Bus != "" {
			s.Bus = cfg.Bus
		}
		if cfg.Addr != "" {
			addr = cfg.Addr
		}
		if cfg.ClockHz != 0 {
			s.Clock = physic.Frequency(cfg.ClockHz) * physic.Hertz
		}
		if cfg.FrequencyHz != 0 {
			s.Freq = physic.Frequency(cfg.FrequencyHz) * physic.Hertz
		}
		s.Commands = append(s.Commands, cfg.Commands...)
		s.Sweep = cfg.Sweep
	}
	if f.simOnly {
		s.Driver = "sim"
	}
	switch s.Driver {
	case "i2c", "sim":
	default:
		return s, fmt.Errorf("unknown driver %q", s.Driver)
	}

	a, err := parseAddr(addr)
	if err != nil {
		return s, fmt.Errorf("invalid address %q: %w", addr, err)
	}
	s.Addr = a

	switch {
	case f.set["degrees"]:
		s.Commands = append(s.Commands, config.Command{Kind: config.Angle, Channel: f.channel, Degrees: f.degrees})
	case f.set["speed"]:
		s.Commands = append(s.Commands, config.Command{Kind: config.Speed, Channel: f.channel, Speed: f.speed})
	case f.set["on"] || f.set["off"]:
		s.Commands = append(s.Commands, config.Command{Kind: config.Pulse, Channel: f.channel, On: f.on, Off: f.off})
	}
	if f.sweep {
		s.Sweep = &config.Sweep{Channel: f.channel, Min: oc05.MinDegrees, Max: oc05.MaxDegrees, Step: 1}
	}
	return s, nil
}

// parseAddr accepts "0x78" style hex or "120" style decimal 7 bit addresses.
func parseAddr(s string) (uint16, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "" {
		return 0, fmt.Errorf("empty address")
	}
	var v uint64
	var err error
	if strings.HasPrefix(s, "0x") {
		v, err = strconv.ParseUint(s[2:], 16, 16)
	} else {
		v, err = strconv.ParseUint(s, 10, 16)
	}
	if err != nil {
		return 0, err
	}
	if v > 0x7F {
		return 0, fmt.Errorf("0x%X is not a 7 bit address", v)
	}
	return uint16(v), nil
}

// openBus returns the hardware bus, or a simulated one when asked for or
// when no bus can be opened. The sim bus is also returned so its registers
// can be printed.
func openBus(s settings) (i2c.BusCloser, *sim.Bus) {
	if s.Driver == "i2c" {
		if _, err := host.Init(); err != nil {
			log.Warn().Err(err).Msg("host init failed; falling back to SIM")
		} else if b, err := i2creg.Open(s.Bus); err != nil {
			log.Warn().Err(err).Str("bus", s.Bus).Msg("I²C open failed; falling back to SIM")
		} else {
			return b, nil
		}
	}
	sb := sim.New(nil)
	return sb, sb
}

func apply(dev servo, c config.Command) error {
	switch c.Kind {
	case config.Angle:
		return dev.SetServoPosition(c.Channel, c.Degrees)
	case config.Speed:
		return dev.SetCRServoPosition(c.Channel, c.Speed)
	case config.Pulse:
		return dev.SetPinPulseRange(c.Channel, c.On, c.Off)
	}
	return fmt.Errorf("unknown command kind %q", c.Kind)
}

func dumpChannels(b *sim.Bus, addr uint16) {
	log.Info().
		Uint8("prescale", b.Reg(addr, oc05.RegPrescale)).
		Uint8("mode1", b.Reg(addr, oc05.RegMode1)).
		Msg("sim registers")
	for ch := oc05.MinChannel; ch <= oc05.MaxChannel; ch++ {
		base := oc05.ChannelBase(ch)
		log.Info().
			Int("channel", ch).
			Uint16("on", b.Word(addr, base)).
			Uint16("off", b.Word(addr, base+2)).
			Msg("sim channel")
	}
}
