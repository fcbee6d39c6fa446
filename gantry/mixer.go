package gantry

import (
	"fmt"
	"math"
	"time"

	"github.com/jt05610/gantry/axis"
	"github.com/jt05610/gantry/clock"
	"github.com/jt05610/gantry/servo"
	"go.uber.org/zap"
)

// MixParams carries the arguments of a mix command. A servo mixer uses Count
// and Dwell; a stepper mixer uses Count, Displacement and Accel.
type MixParams struct {
	Count        int
	Dwell        time.Duration
	Displacement float64
	// Accel is in full steps/s² and is scaled by the aux axis microstepping.
	Accel float64
}

type mixer interface {
	mix(p MixParams) error
}

func newMixer(cfg MixerConfig, hw Hardware, c clock.Clock, logger *zap.Logger) (mixer, error) {
	switch cfg.Kind {
	case ServoMixer:
		if hw.Servo == nil {
			return nil, fmt.Errorf("servo mixer needs a servo")
		}
		m := &servoMixer{cfg: cfg.Servo, servo: hw.Servo, clock: c}
		if err := m.servo.Write(cfg.Servo.Home); err != nil {
			return nil, err
		}
		return m, nil
	case StepperMixer:
		if hw.Aux == nil {
			return nil, fmt.Errorf("stepper mixer needs an aux driver")
		}
		a, err := axis.New(cfg.Aux, hw.Aux, logger)
		if err != nil {
			return nil, err
		}
		return &stepperMixer{aux: a, logger: logger}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownMixer, cfg.Kind)
}

type servoMixer struct {
	cfg   ServoConfig
	servo servo.Servo
	clock clock.Clock
}

func (m *servoMixer) mix(p MixParams) error {
	a := m.cfg
	for i := 0; i < p.Count; i++ {
		if err := m.servo.Write(a.Home + a.Start); err != nil {
			return err
		}
		m.clock.Sleep(p.Dwell)
		if err := m.servo.Write(a.Home + a.End); err != nil {
			return err
		}
		m.clock.Sleep(p.Dwell)
	}
	return m.servo.Write(a.Home)
}

type stepperMixer struct {
	aux    *axis.Axis
	logger *zap.Logger
}

// Rounds is the number of out-and-back trips for a mix of count strokes.
func Rounds(count int) int {
	if count <= 0 {
		return 0
	}
	return int(math.Ceil(float64(count) / 2))
}

func (m *stepperMixer) mix(p MixParams) error {
	drv := m.aux.Driver()
	prevAccel := drv.Acceleration()
	drv.SetAcceleration(p.Accel * m.aux.Config().Drive.Microsteps)
	defer drv.SetAcceleration(prevAccel)

	start := m.aux.Position()
	end := m.aux.Steps(m.aux.Clamp(m.aux.Units() + p.Displacement))
	rounds := Rounds(p.Count)
	m.logger.Debug("stepper mix",
		zap.Int("rounds", rounds),
		zap.Int64("from", start),
		zap.Int64("to", end),
	)
	for i := 0; i < rounds; i++ {
		m.aux.MoveTo(end)
		m.aux.RunToCompletion()
		m.aux.MoveTo(start)
		m.aux.RunToCompletion()
	}
	return nil
}

// Mix runs the configured mixer and returns how long it took.
func (c *Controller) Mix(p MixParams) (time.Duration, error) {
	start := c.clock.Now()
	if c.cfg.Mixer.Kind == StepperMixer {
		if err := c.power.PowerOn(); err != nil {
			return 0, err
		}
	}
	c.logger.Info("mix", zap.Int("count", p.Count), zap.String("mixer", string(c.cfg.Mixer.Kind)))
	err := c.mixer.mix(p)
	return c.clock.Now().Sub(start), err
}
