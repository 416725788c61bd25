package oc05

import "periph.io/x/conn/v3/physic"

// I2CAddr is the default I²C address of the OC05 board.
const I2CAddr uint16 = 0x78

// DefaultClock is the bus speed the board is specified for.
const DefaultClock = 100 * physic.KiloHertz

const (
	RegMode1    byte = 0x00
	RegMode2    byte = 0x01
	RegPrescale byte = 0xFE

	// Writes to the ALL_LED block apply to every output at once.
	RegAllLedOnL  byte = 0xFA
	RegAllLedOnH  byte = 0xFB
	RegAllLedOffL byte = 0xFC
	RegAllLedOffH byte = 0xFD

	// The board wires its 8 headers to chip outputs LED8..LED15, so channel 1
	// starts at LED8_ON_L.
	RegLedBlockStart byte = 0x26

	// Registers per channel: ON_L, ON_H, OFF_L, OFF_H.
	PinRegDistance = 4
)

const (
	Mode1Default byte = 0x01
	Mode2Default byte = 0x04

	mode1SleepBit   byte = 0x10
	mode1RestartBit byte = 0x80

	ModeSleep   = Mode1Default | mode1SleepBit
	ModeWake    = Mode1Default &^ mode1SleepBit
	ModeRestart = ModeWake | mode1RestartBit
)

const (
	MinChannel = 1
	MaxChannel = 8

	// MaxStep is the last tick of the 12 bit PWM period.
	MaxStep = 4095
)

// ChannelBase returns the ON_L register of channel, clamped to [1,8].
func ChannelBase(channel int) byte {
	channel = clamp(channel, MinChannel, MaxChannel)
	return RegLedBlockStart + byte(PinRegDistance*(channel-1))
}
