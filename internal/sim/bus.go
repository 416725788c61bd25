// Package sim is an in-memory I²C bus for running without hardware.
package sim

import (
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2ctest"
	"periph.io/x/conn/v3/physic"
)

// ErrInjected is returned by the transaction selected with FailAt.
var ErrInjected = errors.New("sim: injected bus failure")

// chip keeps the last byte written to each register, per device address.
// Writes and reads auto-increment the register pointer.
type chip struct {
	mu    sync.Mutex
	regs  map[uint16]*[256]byte
	speed physic.Frequency
}

func (c *chip) String() string {
	return "sim"
}

func (c *chip) Tx(addr uint16, w, r []byte) error {
	if len(w) == 0 {
		return fmt.Errorf("sim: tx to 0x%02X without register", addr)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	regs := c.regs[addr]
	if regs == nil {
		regs = &[256]byte{}
		c.regs[addr] = regs
	}
	reg := w[0]
	for _, v := range w[1:] {
		regs[reg] = v
		reg++
	}
	for i := range r {
		r[i] = regs[reg]
		reg++
	}
	return nil
}

func (c *chip) SetSpeed(f physic.Frequency) error {
	c.mu.Lock()
	c.speed = f
	c.mu.Unlock()
	return nil
}

// Bus records every transaction and mirrors writes into a register file.
type Bus struct {
	i2ctest.Record

	// FailAt fails the FailAt-th transaction (1 based) with ErrInjected.
	// Zero never fails.
	FailAt int

	mu   sync.Mutex
	n    int
	chip *chip
	log  zerolog.Logger
}

// New returns an empty simulated bus. A nil logger uses the global one.
func New(l *zerolog.Logger) *Bus {
	if l == nil {
		l = &log.Logger
	}
	c := &chip{regs: map[uint16]*[256]byte{}}
	b := &Bus{chip: c, log: l.With().Str("bus", "sim").Logger()}
	b.Record.Bus = c
	return b
}

func (b *Bus) String() string {
	return "sim"
}

// Tx implements i2c.Bus.
func (b *Bus) Tx(addr uint16, w, r []byte) error {
	b.mu.Lock()
	b.n++
	n := b.n
	b.mu.Unlock()
	if b.FailAt != 0 && n == b.FailAt {
		b.log.Warn().Int("tx", n).Hex("w", w).Msg("injecting failure")
		return ErrInjected
	}
	if err := b.Record.Tx(addr, w, r); err != nil {
		return err
	}
	b.log.Debug().Int("tx", n).Uint16("addr", addr).Hex("w", w).Hex("r", r).Msg("tx")
	return nil
}

// Close implements i2c.BusCloser.
func (b *Bus) Close() error {
	b.Lock()
	n := len(b.Ops)
	b.Unlock()
	b.log.Debug().Int("ops", n).Msg("closed")
	return nil
}

// Reg returns the last value written to reg of the device at addr.
func (b *Bus) Reg(addr uint16, reg byte) byte {
	b.chip.mu.Lock()
	defer b.chip.mu.Unlock()
	if regs := b.chip.regs[addr]; regs != nil {
		return regs[reg]
	}
	return 0
}

// Word returns the little endian 16 bit value at reg and reg+1.
func (b *Bus) Word(addr uint16, reg byte) uint16 {
	return uint16(b.Reg(addr, reg)) | uint16(b.Reg(addr, reg+1))<<8
}

// Speed returns the last speed set on the bus.
func (b *Bus) Speed() physic.Frequency {
	b.chip.mu.Lock()
	defer b.chip.mu.Unlock()
	return b.chip.speed
}

var _ i2c.BusCloser = &Bus{}
