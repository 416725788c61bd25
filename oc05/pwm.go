package oc05

import "math"

const (
	// oscClock is the internal oscillator of the PCA9685 in Hz.
	oscClock = 25000000

	ticksPerPeriod = 4096

	MinFrequency     = 40
	MaxFrequency     = 1000
	DefaultFrequency = 60

	MinDegrees = 0
	MaxDegrees = 180

	MinSpeed = -100
	MaxSpeed = 100

	// Pulse range of a hobby servo, in the units CalcFreqOffset takes.
	ServoStartPct = 5
	ServoMidPct   = 15
	ServoEndPct   = 25
)

// CalcFreqPrescaler returns the PRESCALE register value for an output
// frequency of hz. hz is clamped to [40,1000].
func CalcFreqPrescaler(hz int) int {
	hz = clamp(hz, MinFrequency, MaxFrequency)
	return oscClock/(hz*ticksPerPeriod) - 1
}

// CalcFreqOffset converts dutyPercent of the period at hz into ticks. The
// result is not truncated.
func CalcFreqOffset(hz int, dutyPercent float64) float64 {
	hz = clamp(hz, MinFrequency, MaxFrequency)
	return dutyPercent * 1000 / (1000 / float64(hz)) * ticksPerPeriod / 10000
}

// Degrees180ToPWM maps degrees in [0,180] linearly onto the offsets of
// startPct and endPct.
func Degrees180ToPWM(hz, degrees int, startPct, endPct float64) int {
	start := CalcFreqOffset(hz, startPct)
	end := CalcFreqOffset(hz, endPct)
	spread := end - start

	v := float64(degrees)*spread/MaxDegrees + start
	return int(math.Max(start, math.Min(end, v)))
}

// CRServoTicks returns the OFF tick that drives a continuous rotation servo
// at speed percent. Zero is the stop point; the sign picks the direction.
//
// The stop point and the step away from it are truncated separately so that
// opposite speeds land the same number of ticks either side of the stop.
func CRServoTicks(hz, speed int) int {
	speed = clamp(speed, MinSpeed, MaxSpeed)
	start := CalcFreqOffset(hz, ServoStartPct)
	mid := CalcFreqOffset(hz, ServoMidPct)
	end := CalcFreqOffset(hz, ServoEndPct)
	stop := int(mid)
	if speed == 0 {
		return stop
	}

	mag := math.Abs(float64(speed))
	if speed < 0 {
		return stop - int(mag*(mid-start)/100)
	}
	return stop + int(mag*(end-mid)/100)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
