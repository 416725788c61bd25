package oc05_test

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"

	. "github.com/coreman2200/oc05/oc05"
)

func TestCalcFreqPrescaler(t *testing.T) {
	assert.Equal(t, 100, CalcFreqPrescaler(60))
	for hz := MinFrequency; hz <= MaxFrequency; hz++ {
		want := 25000000/(hz*4096) - 1
		assert.Equal(t, want, CalcFreqPrescaler(hz), "hz %d", hz)
		assert.Equal(t, CalcFreqPrescaler(hz), CalcFreqPrescaler(hz))
	}
}

func TestCalcFreqOffset(t *testing.T) {
	data := []struct {
		hz   int
		duty float64
		want float64
	}{
		{60, 5, 122.88},
		{60, 15, 368.64},
		{60, 25, 614.4},
		{50, 5, 102.4},
		{50, 25, 512},
	}
	for _, line := range data {
		assert.InDelta(t, line.want, CalcFreqOffset(line.hz, line.duty), 1e-9, "%d Hz %v%%", line.hz, line.duty)
	}
}

func TestChannelBase(t *testing.T) {
	assert.Equal(t, byte(0x26), ChannelBase(1))
	assert.Equal(t, byte(0x42), ChannelBase(8))
	assert.Equal(t, ChannelBase(1), ChannelBase(-3))
	assert.Equal(t, ChannelBase(8), ChannelBase(9))

	for c := MinChannel + 1; c <= MaxChannel; c++ {
		prev, cur := ChannelBase(c-1), ChannelBase(c)
		assert.Equal(t, byte(0x26+4*(c-1)), cur)
		assert.Equal(t, byte(PinRegDistance), cur-prev, "channel %d overlaps channel %d", c, c-1)
	}
	assert.Less(t, int(ChannelBase(MaxChannel))+3, int(RegAllLedOnL))
}

func TestDegrees180ToPWM(t *testing.T) {
	start := int(CalcFreqOffset(60, 5))
	end := int(CalcFreqOffset(60, 25))
	assert.Equal(t, start, Degrees180ToPWM(60, 0, 5, 25))
	assert.Equal(t, end, Degrees180ToPWM(60, 180, 5, 25))

	mid := (CalcFreqOffset(60, 5) + CalcFreqOffset(60, 25)) / 2
	assert.Equal(t, int(mid), Degrees180ToPWM(60, 90, 5, 25))
	assert.Equal(t, 368, Degrees180ToPWM(60, 90, 5, 25))
}

func TestDegrees180ToPWMClamps(t *testing.T) {
	assert.Equal(t, Degrees180ToPWM(60, 0, 5, 25), Degrees180ToPWM(60, -10, 5, 25))
	assert.Equal(t, Degrees180ToPWM(60, 180, 5, 25), Degrees180ToPWM(60, 400, 5, 25))
}

func TestDegrees180ToPWMMonotonic(t *testing.T) {
	for _, hz := range []int{40, 50, 60, 200, 1000} {
		t.Run(strconv.Itoa(hz), func(t *testing.T) {
			prev := Degrees180ToPWM(hz, 0, ServoStartPct, ServoEndPct)
			for deg := 1; deg <= 180; deg++ {
				cur := Degrees180ToPWM(hz, deg, ServoStartPct, ServoEndPct)
				assert.GreaterOrEqual(t, cur, prev, "%d degrees", deg)
				prev = cur
			}
		})
	}
}

func TestCRServoTicksStop(t *testing.T) {
	for _, hz := range []int{40, 60, 333, 1000} {
		assert.Equal(t, int(CalcFreqOffset(hz, ServoMidPct)), CRServoTicks(hz, 0), "hz %d", hz)
	}
}

func TestCRServoTicksAntisymmetric(t *testing.T) {
	for hz := MinFrequency; hz <= MaxFrequency; hz++ {
		mid := CRServoTicks(hz, 0)
		for s := 1; s <= 100; s++ {
			fwd := CRServoTicks(hz, s)
			rev := CRServoTicks(hz, -s)
			if !assert.Greater(t, fwd, mid, "%d Hz speed %d", hz, s) ||
				!assert.Less(t, rev, mid, "%d Hz speed %d", hz, s) ||
				!assert.Equal(t, fwd-mid, mid-rev, "%d Hz speed %d", hz, s) {
				return
			}
		}
	}
}

func TestCRServoTicks60Hz(t *testing.T) {
	data := []struct {
		speed int
		tick  int
	}{
		{-100, 123},
		{-50, 246},
		{-1, 366},
		{0, 368},
		{1, 370},
		{50, 490},
		{100, 613},
	}
	for _, line := range data {
		assert.Equal(t, line.tick, CRServoTicks(60, line.speed), "speed %d", line.speed)
	}
}

func TestCRServoTicksRange(t *testing.T) {
	// Full speed sits within one truncated tick of the pulse range ends.
	assert.InDelta(t, CalcFreqOffset(60, 25), CRServoTicks(60, 100), 1)
	assert.InDelta(t, CalcFreqOffset(60, 5), CRServoTicks(60, -100), 1)
	assert.Equal(t, CRServoTicks(60, 100), CRServoTicks(60, 1000))
	assert.Equal(t, CRServoTicks(60, -100), CRServoTicks(60, -1000))
}

func TestHelpersClampFrequency(t *testing.T) {
	data := []struct {
		in, as int
	}{
		{0, MinFrequency},
		{-60, MinFrequency},
		{39, MinFrequency},
		{1001, MaxFrequency},
		{50000, MaxFrequency},
	}
	for _, line := range data {
		t.Run(strconv.Itoa(line.in), func(t *testing.T) {
			assert.NotPanics(t, func() { CalcFreqPrescaler(line.in) })
			assert.Equal(t, CalcFreqPrescaler(line.as), CalcFreqPrescaler(line.in))
			assert.Equal(t, CalcFreqOffset(line.as, 15), CalcFreqOffset(line.in, 15))
			assert.Equal(t, Degrees180ToPWM(line.as, 90, 5, 25), Degrees180ToPWM(line.in, 90, 5, 25))
			assert.Equal(t, CRServoTicks(line.as, 50), CRServoTicks(line.in, 50))
		})
	}
	assert.Equal(t, 151, CalcFreqPrescaler(0))
}
