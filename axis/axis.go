// Package axis wraps a stepper driver with the unit conversion, travel limits
// and speed profiles of one gantry axis.
package axis

import (
	"errors"
	"fmt"

	"github.com/jt05610/gantry/kinematics"
	"github.com/jt05610/gantry/stepper"
	"go.uber.org/zap"
)

// Profile is a speed limit in microsteps/s paired with an acceleration in
// microsteps/s².
type Profile struct {
	MaxSpeed float64 `yaml:"speed"`
	Accel    float64 `yaml:"accel"`
}

// Stop names the end of travel an axis homes against.
type Stop int

const (
	StopMax Stop = iota
	StopMin
)

func (s Stop) String() string {
	if s == StopMin {
		return "min"
	}
	return "max"
}

func (s Stop) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func ParseStop(s string) (Stop, error) {
	switch s {
	case "max", "":
		return StopMax, nil
	case "min":
		return StopMin, nil
	}
	return 0, fmt.Errorf("unknown stop %q, want min or max", s)
}

type Homing struct {
	Toward Stop
	// Overtravel is added to the full range so the traverse always reaches
	// the stop from anywhere in the workspace.
	Overtravel float64
	// Offset is the relative move from the stop to logical zero.
	Offset float64
}

type Config struct {
	Name   string
	Drive  kinematics.Drive
	Min    float64
	Max    float64
	Normal Profile
	Homing Profile
	Home   Homing
}

var ErrInvertedLimits = errors.New("axis min is greater than max")

func (c Config) Validate() error {
	if err := c.Drive.Validate(); err != nil {
		return fmt.Errorf("axis %s: %w", c.Name, err)
	}
	if c.Min > c.Max {
		return fmt.Errorf("axis %s: %w (%v > %v)", c.Name, ErrInvertedLimits, c.Min, c.Max)
	}
	return nil
}

type Axis struct {
	cfg    Config
	drv    stepper.Driver
	logger *zap.Logger
}

func New(cfg Config, drv stepper.Driver, logger *zap.Logger) (*Axis, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &Axis{
		cfg:    cfg,
		drv:    drv,
		logger: logger.With(zap.String("axis", cfg.Name)),
	}
	a.UseNormalProfile()
	return a, nil
}

func (a *Axis) Name() string {
	return a.cfg.Name
}

func (a *Axis) Config() Config {
	return a.cfg
}

func (a *Axis) Driver() stepper.Driver {
	return a.drv
}

func (a *Axis) MoveTo(target int64) {
	a.drv.MoveTo(target)
}

func (a *Axis) MoveBy(delta int64) {
	a.drv.Move(delta)
}

// RunToCompletion blocks until the pending target is reached.
func (a *Axis) RunToCompletion() {
	a.drv.RunToPosition()
}

func (a *Axis) SetSpeedProfile(maxSpeed, maxAccel float64) {
	a.drv.SetMaxSpeed(maxSpeed)
	a.drv.SetAcceleration(maxAccel)
}

func (a *Axis) UseHomingProfile() {
	a.SetSpeedProfile(a.cfg.Homing.MaxSpeed, a.cfg.Homing.Accel)
}

func (a *Axis) UseNormalProfile() {
	a.SetSpeedProfile(a.cfg.Normal.MaxSpeed, a.cfg.Normal.Accel)
}

// Zero makes the current location the logical origin.
func (a *Axis) Zero() {
	a.drv.SetCurrentPosition(0)
}

// Step advances the axis by one increment and reports whether distance
// remains.
func (a *Axis) Step() bool {
	return a.drv.Run()
}

func (a *Axis) Remaining() int64 {
	return a.drv.DistanceToGo()
}

func (a *Axis) Position() int64 {
	return a.drv.CurrentPosition()
}

// Units is the current position converted back to physical units.
func (a *Axis) Units() float64 {
	return a.cfg.Drive.ToUnits(a.drv.CurrentPosition())
}

// Clamp forces a requested position into the axis' travel limits.
func (a *Axis) Clamp(units float64) float64 {
	v := units
	if v < a.cfg.Min {
		v = a.cfg.Min
	} else if v > a.cfg.Max {
		v = a.cfg.Max
	}
	if v != units {
		a.logger.Debug("target clamped",
			zap.Float64("requested", units),
			zap.Float64("clamped", v),
		)
	}
	return v
}

func (a *Axis) Steps(units float64) int64 {
	return a.cfg.Drive.ToSteps(units)
}

// HomingTraverse is the relative move that drives the axis into its stop from
// anywhere in the workspace.
func (a *Axis) HomingTraverse() int64 {
	span := a.cfg.Max - a.cfg.Min + a.cfg.Home.Overtravel
	if a.cfg.Home.Toward == StopMin {
		span = -span
	}
	return a.Steps(span)
}

// SoftHomeTarget is the absolute target just past the stop edge by drift.
func (a *Axis) SoftHomeTarget(drift float64) int64 {
	if a.cfg.Home.Toward == StopMin {
		return a.Steps(a.cfg.Min - drift)
	}
	return a.Steps(a.cfg.Max + drift)
}

// HomeOffset is the relative move from the stop to logical zero.
func (a *Axis) HomeOffset() int64 {
	return a.Steps(a.cfg.Home.Offset)
}
