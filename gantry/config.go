package gantry

import (
	"errors"
	"fmt"
	"time"

	"github.com/jt05610/gantry/axis"
	"gonum.org/v1/gonum/spatial/r3"
)

type MixerKind string

const (
	ServoMixer   MixerKind = "servo"
	StepperMixer MixerKind = "stepper"
)

// ServoConfig holds mixer angles in degrees. Start and End are relative to
// Home.
type ServoConfig struct {
	Home  int `yaml:"home"`
	Start int `yaml:"start"`
	End   int `yaml:"end"`
}

type MixerConfig struct {
	Kind  MixerKind
	Servo ServoConfig
	// Aux is the auxiliary axis oscillated by a stepper mixer.
	Aux axis.Config
}

// RopeConfig is in rack-axis revolutions.
type RopeConfig struct {
	Tension float64
	Pinch   float64
}

type Config struct {
	X    axis.Config
	Y    axis.Config
	Z    axis.Config
	Rack axis.Config

	Mixer MixerConfig
	Rope  RopeConfig

	// Drift is how far past the stop edge a soft home aims.
	Drift float64
	// CommandOffset is subtracted from every commanded move target.
	CommandOffset r3.Vec
	// Settle is the driver power-up and power-down delay.
	Settle time.Duration
}

var ErrUnknownMixer = errors.New("unknown mixer kind")

func (c *Config) Validate() error {
	for _, a := range []axis.Config{c.X, c.Y, c.Z, c.Rack} {
		if err := a.Validate(); err != nil {
			return err
		}
	}
	switch c.Mixer.Kind {
	case ServoMixer:
	case StepperMixer:
		if err := c.Mixer.Aux.Validate(); err != nil {
			return err
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownMixer, c.Mixer.Kind)
	}
	if c.Drift < 0 {
		return fmt.Errorf("drift must not be negative, got %v", c.Drift)
	}
	return nil
}
