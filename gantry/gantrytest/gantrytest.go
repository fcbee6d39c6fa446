// Package gantrytest provides a reference configuration and simulated
// hardware for tests that drive a gantry.Controller.
package gantrytest

import (
	"testing"
	"time"

	"github.com/jt05610/gantry/axis"
	"github.com/jt05610/gantry/clock"
	"github.com/jt05610/gantry/gantry"
	"github.com/jt05610/gantry/kinematics"
	"github.com/jt05610/gantry/power"
	"github.com/jt05610/gantry/servo"
	"github.com/jt05610/gantry/stepper"
	"go.uber.org/zap/zaptest"
)

func belt(dir kinematics.Direction) kinematics.Drive {
	return kinematics.Drive{
		Kind:         kinematics.Belt,
		Direction:    dir,
		StepsPerRev:  200,
		Microsteps:   4,
		PulleyRadius: 6.34,
	}
}

// Config is a gantry with X in [0, 150], Y in [0, 140] and Z in [-49, 0], a
// servo mixer and no command offset. Homing overtravel and offsets assume
// mechanical stops at X 160, Y 0 and Z 0.
func Config() gantry.Config {
	return gantry.Config{
		X: axis.Config{
			Name:   "x",
			Drive:  belt(kinematics.Forward),
			Min:    0,
			Max:    150,
			Normal: axis.Profile{MaxSpeed: 4000, Accel: 1400},
			Homing: axis.Profile{MaxSpeed: 200, Accel: 1400},
			Home:   axis.Homing{Toward: axis.StopMax, Overtravel: 14, Offset: -152},
		},
		Y: axis.Config{
			Name:   "y",
			Drive:  belt(kinematics.Forward),
			Min:    0,
			Max:    140,
			Normal: axis.Profile{MaxSpeed: 4000, Accel: 1400},
			Homing: axis.Profile{MaxSpeed: 200, Accel: 1400},
			Home:   axis.Homing{Toward: axis.StopMin, Overtravel: 10, Offset: 3},
		},
		Z: axis.Config{
			Name: "z",
			Drive: kinematics.Drive{
				Kind:        kinematics.ThreadedRod,
				Direction:   kinematics.Reverse,
				StepsPerRev: 200,
				Microsteps:  4,
				ThreadPitch: 2,
			},
			Min:    -49,
			Max:    0,
			Normal: axis.Profile{MaxSpeed: 6400, Accel: 2000},
			Homing: axis.Profile{MaxSpeed: 600, Accel: 2000},
			Home:   axis.Homing{Toward: axis.StopMax, Overtravel: 6, Offset: -3},
		},
		Rack: axis.Config{
			Name: "rack",
			Drive: kinematics.Drive{
				Kind:        kinematics.Rotary,
				Direction:   kinematics.Forward,
				StepsPerRev: 200,
				Microsteps:  4,
			},
			Normal: axis.Profile{MaxSpeed: 80, Accel: 1400},
		},
		Mixer: gantry.MixerConfig{
			Kind:  gantry.ServoMixer,
			Servo: gantry.ServoConfig{Home: 90, Start: 20, End: 50},
		},
		Rope:   gantry.RopeConfig{Tension: 0.25, Pinch: 0.08},
		Drift:  5,
		Settle: 200 * time.Millisecond,
	}
}

// StepperMixer is an auxiliary mixer on a 2 mm lead screw.
func StepperMixer() gantry.MixerConfig {
	return gantry.MixerConfig{
		Kind: gantry.StepperMixer,
		Aux: axis.Config{
			Name: "aux",
			Drive: kinematics.Drive{
				Kind:        kinematics.ThreadedRod,
				Direction:   kinematics.Forward,
				StepsPerRev: 200,
				Microsteps:  4,
				ThreadPitch: 2,
			},
			Min:    0,
			Max:    50,
			Normal: axis.Profile{MaxSpeed: 4000, Accel: 1400},
		},
	}
}

// Rig is a controller wired to simulated hardware and a fake clock.
type Rig struct {
	Controller *gantry.Controller
	X          *stepper.Sim
	Y          *stepper.Sim
	Z          *stepper.Sim
	Rack       *stepper.Sim
	Aux        *stepper.Sim
	Servo      *servo.Sim
	Relay      *power.SimRelay
	Clock      *clock.Fake
}

func NewRig(t testing.TB, cfg gantry.Config) *Rig {
	t.Helper()
	r := &Rig{
		X:     stepper.NewSim(),
		Y:     stepper.NewSim(),
		Z:     stepper.NewSim(),
		Rack:  stepper.NewSim(),
		Aux:   stepper.NewSim(),
		Servo: servo.NewSim(),
		Relay: &power.SimRelay{},
		Clock: clock.NewFake(time.Unix(1700000000, 0)),
	}
	ctrl, err := gantry.New(cfg, r.Hardware(), r.Clock, zaptest.NewLogger(t))
	if err != nil {
		t.Fatal(err)
	}
	r.Controller = ctrl
	return r
}

func (r *Rig) Hardware() gantry.Hardware {
	return gantry.Hardware{
		X:     r.X,
		Y:     r.Y,
		Z:     r.Z,
		Rack:  r.Rack,
		Aux:   r.Aux,
		Servo: r.Servo,
		Relay: r.Relay,
	}
}

// Positions returns the X, Y and Z step counters.
func (r *Rig) Positions() [3]int64 {
	return [3]int64{r.X.CurrentPosition(), r.Y.CurrentPosition(), r.Z.CurrentPosition()}
}
