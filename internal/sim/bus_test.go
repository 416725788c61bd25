package sim

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2ctest"
	"periph.io/x/conn/v3/physic"
)

func newBus() *Bus {
	l := zerolog.Nop()
	return New(&l)
}

func TestBusRegisterFile(t *testing.T) {
	b := newBus()
	d := &i2c.Dev{Bus: b, Addr: 0x78}

	require.NoError(t, d.Tx([]byte{0x26, 0x70}, nil))
	require.NoError(t, d.Tx([]byte{0x27, 0x01}, nil))
	require.NoError(t, d.Tx([]byte{0xFE, 100}, nil))

	assert.Equal(t, byte(0x70), b.Reg(0x78, 0x26))
	assert.Equal(t, byte(100), b.Reg(0x78, 0xFE))
	assert.Equal(t, uint16(0x170), b.Word(0x78, 0x26))
	assert.Equal(t, byte(0), b.Reg(0x40, 0x26), "other address untouched")

	assert.Equal(t, []i2ctest.IO{
		{Addr: 0x78, W: []byte{0x26, 0x70}},
		{Addr: 0x78, W: []byte{0x27, 0x01}},
		{Addr: 0x78, W: []byte{0xFE, 100}},
	}, b.Ops)
	assert.NoError(t, b.Close())
}

func TestBusAutoIncrement(t *testing.T) {
	b := newBus()
	require.NoError(t, b.Tx(0x40, []byte{0x06, 1, 2, 3, 4}, nil))
	assert.Equal(t, uint16(0x0201), b.Word(0x40, 0x06))
	assert.Equal(t, uint16(0x0403), b.Word(0x40, 0x08))

	r := make([]byte, 2)
	require.NoError(t, b.Tx(0x40, []byte{0x08}, r))
	assert.Equal(t, []byte{3, 4}, r)
	require.Len(t, b.Ops, 2)
	assert.Equal(t, []byte{3, 4}, b.Ops[1].R)
}

func TestBusFailAt(t *testing.T) {
	b := newBus()
	b.FailAt = 2
	assert.NoError(t, b.Tx(0x78, []byte{0x00, 0x11}, nil))
	assert.ErrorIs(t, b.Tx(0x78, []byte{0xFE, 100}, nil), ErrInjected)
	assert.NoError(t, b.Tx(0x78, []byte{0xFE, 101}, nil))

	assert.Len(t, b.Ops, 2)
	assert.Equal(t, byte(101), b.Reg(0x78, 0xFE))
}

func TestBusEmptyWrite(t *testing.T) {
	b := newBus()
	assert.Error(t, b.Tx(0x78, nil, nil))
	assert.Empty(t, b.Ops)
}

func TestBusSpeed(t *testing.T) {
	b := newBus()
	require.NoError(t, b.SetSpeed(100*physic.KiloHertz))
	assert.Equal(t, 100*physic.KiloHertz, b.Speed())
	assert.Equal(t, "sim", b.String())
}
