package sweep

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

const DFLT_PERIOD = 20 * time.Millisecond

// Positioner is satisfied by *oc05.Dev.
type Positioner interface {
	SetServoPosition(channel, degrees int) error
}

type Looper struct {
	Channel int
	Min     int
	Max     int
	Step    int
	Period  time.Duration

	dev   Positioner
	angle int
	dir   int
}

func NewLooper(dev Positioner, channel int) *Looper {
	return &Looper{
		Channel: channel,
		Min:     0,
		Max:     180,
		Step:    1,
		Period:  DFLT_PERIOD,
		dev:     dev,
	}
}

// Next advances the angle by Step, reversing at Min and Max.
func (l *Looper) Next() int {
	if l.dir == 0 {
		l.dir = 1
		l.angle = l.Min
		return l.angle
	}
	step := l.Step
	if step <= 0 {
		step = 1
	}
	if l.Max <= l.Min {
		return l.Min
	}

	a := l.angle + l.dir*step
	if a >= l.Max {
		a, l.dir = l.Max, -1
	} else if a <= l.Min {
		a, l.dir = l.Min, 1
	}
	l.angle = a
	return a
}

// Run moves the servo once per Period until ctx is done or a write fails.
func (l *Looper) Run(ctx context.Context) error {
	period := l.Period
	if period <= 0 {
		period = DFLT_PERIOD
	}
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	start := time.Now()
	moves := 0
	for {
		select {
		case <-ticker.C:
			a := l.Next()
			if err := l.dev.SetServoPosition(l.Channel, a); err != nil {
				log.Error().Err(err).Int("channel", l.Channel).Int("degrees", a).Msg("sweep stopped")
				return err
			}
			moves++

		case <-ctx.Done():
			log.Info().Int("moves", moves).Dur("elapsed", time.Since(start)).Msg("sweep done")
			return nil
		}
	}
}
