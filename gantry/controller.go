// Package gantry owns the gantry state: the X, Y and Z axes, the homing state
// machine, driver power, the mixer and the pipette rack.
package gantry

import (
	"fmt"
	"time"

	"github.com/jt05610/gantry/axis"
	"github.com/jt05610/gantry/clock"
	"github.com/jt05610/gantry/power"
	"github.com/jt05610/gantry/servo"
	"github.com/jt05610/gantry/stepper"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/spatial/r3"
)

// Hardware is the set of drivers a Controller runs on. Aux is only used by a
// stepper mixer and Servo only by a servo mixer.
type Hardware struct {
	X     stepper.Driver
	Y     stepper.Driver
	Z     stepper.Driver
	Rack  stepper.Driver
	Aux   stepper.Driver
	Servo servo.Servo
	Relay power.Relay
}

// Status is a snapshot of the controller for telemetry.
type Status struct {
	State    string  `json:"state"`
	Homed    bool    `json:"homed"`
	Power    string  `json:"power"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Z        float64 `json:"z"`
	Position r3.Vec  `json:"-"`
}

// Controller is not safe for concurrent use. It is owned by the control loop.
type Controller struct {
	cfg    Config
	x      *axis.Axis
	y      *axis.Axis
	z      *axis.Axis
	rack   *axis.Axis
	mixer  mixer
	power  *power.Sequencer
	clock  clock.Clock
	homing *machine
	homed  bool
	logger *zap.Logger
}

func New(cfg Config, hw Hardware, c clock.Clock, logger *zap.Logger) (*Controller, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if c == nil {
		c = clock.Real{}
	}
	ctrl := &Controller{
		cfg:    cfg,
		clock:  c,
		logger: logger,
		power:  power.NewSequencer(hw.Relay, c, cfg.Settle, logger.Named("power")),
	}
	var err error
	axes := []struct {
		dst **axis.Axis
		cfg axis.Config
		drv stepper.Driver
	}{
		{&ctrl.x, cfg.X, hw.X},
		{&ctrl.y, cfg.Y, hw.Y},
		{&ctrl.z, cfg.Z, hw.Z},
		{&ctrl.rack, cfg.Rack, hw.Rack},
	}
	for _, a := range axes {
		if a.drv == nil {
			return nil, fmt.Errorf("no driver for axis %s", a.cfg.Name)
		}
		if *a.dst, err = axis.New(a.cfg, a.drv, logger); err != nil {
			return nil, err
		}
	}
	if ctrl.mixer, err = newMixer(cfg.Mixer, hw, c, logger); err != nil {
		return nil, err
	}
	if ctrl.homing, err = newMachine(Transitions); err != nil {
		return nil, err
	}
	return ctrl, nil
}

func (c *Controller) Homed() bool {
	return c.homed
}

func (c *Controller) State() HomingState {
	return c.homing.state
}

func (c *Controller) Power() power.State {
	return c.power.State()
}

func (c *Controller) MixerKind() MixerKind {
	return c.cfg.Mixer.Kind
}

// Position is the logical position of X, Y and Z in physical units.
func (c *Controller) Position() r3.Vec {
	return r3.Vec{X: c.x.Units(), Y: c.y.Units(), Z: c.z.Units()}
}

func (c *Controller) Status() Status {
	p := c.Position()
	return Status{
		State:    c.State().String(),
		Homed:    c.homed,
		Power:    c.power.State().String(),
		X:        p.X,
		Y:        p.Y,
		Z:        p.Z,
		Position: p,
	}
}

func (c *Controller) PowerOn() error {
	return c.power.PowerOn()
}

func (c *Controller) PowerOff() error {
	return c.power.PowerOff()
}

func (c *Controller) fire(event string) error {
	if err := c.homing.fire(event, c.homed); err != nil {
		return err
	}
	if c.homing.state == Homed || c.homing.state == Unhomed {
		c.homed = c.homing.state == Homed
	}
	return nil
}

// Target applies the command offset and the joint limits to a requested
// position.
func (c *Controller) Target(requested r3.Vec) r3.Vec {
	t := r3.Sub(requested, c.cfg.CommandOffset)
	return r3.Vec{
		X: c.x.Clamp(t.X),
		Y: c.y.Clamp(t.Y),
		Z: c.z.Clamp(t.Z),
	}
}

// Move drives the gantry to the requested position and returns how long the
// move took.
func (c *Controller) Move(requested r3.Vec) (time.Duration, error) {
	start := c.clock.Now()
	target := c.Target(requested)
	c.logger.Info("move",
		zap.Float64("x", target.X),
		zap.Float64("y", target.Y),
		zap.Float64("z", target.Z),
		zap.Float64("distance", r3.Norm(r3.Sub(target, c.Position()))),
	)
	err := c.ExecuteMove(c.x.Steps(target.X), c.y.Steps(target.Y), c.z.Steps(target.Z))
	return c.clock.Now().Sub(start), err
}

// ExecuteMove runs Z to its target alone, then X and Y together. The gantry
// is unhomed before any axis moves; ExecuteMove returns once every axis has
// arrived.
func (c *Controller) ExecuteMove(x, y, z int64) error {
	if err := c.power.PowerOn(); err != nil {
		return err
	}
	if err := c.fire(EventMove); err != nil {
		return err
	}
	c.z.MoveTo(z)
	c.x.MoveTo(x)
	c.y.MoveTo(y)
	c.synchronize()
	return nil
}

// synchronize runs Z to completion, then advances X and Y one increment each
// per tick until neither has distance left.
func (c *Controller) synchronize() {
	c.z.RunToCompletion()
	for c.x.Remaining() != 0 || c.y.Remaining() != 0 {
		c.y.Step()
		c.x.Step()
	}
}

func (c *Controller) gantryAxes() []*axis.Axis {
	return []*axis.Axis{c.x, c.y, c.z}
}

// HardHome drives every axis into its mechanical stop, backs off by the home
// pose and zeroes there.
func (c *Controller) HardHome() error {
	return c.home(EventHardHome, c.gantryAxes(), func(a *axis.Axis) {
		a.MoveBy(a.HomingTraverse())
	})
}

// SoftHome is a hard home that only travels to just past the stop edge,
// assuming the current positions are roughly right.
func (c *Controller) SoftHome() error {
	return c.home(EventSoftHome, c.gantryAxes(), func(a *axis.Axis) {
		a.MoveTo(a.SoftHomeTarget(c.cfg.Drift))
	})
}

// ZQuickHome hard homes Z alone. The homed flag is left as it was.
func (c *Controller) ZQuickHome() error {
	return c.home(EventZQuickHome, []*axis.Axis{c.z}, func(a *axis.Axis) {
		a.MoveBy(a.HomingTraverse())
	})
}

func (c *Controller) home(event string, axes []*axis.Axis, approach func(a *axis.Axis)) error {
	if err := c.power.PowerOn(); err != nil {
		return err
	}
	if err := c.fire(event); err != nil {
		return err
	}
	c.logger.Info("homing", zap.String("mode", event), zap.Int("axes", len(axes)))
	for _, a := range axes {
		a.UseHomingProfile()
		approach(a)
	}
	c.synchronize()
	for _, a := range axes {
		a.MoveBy(a.HomeOffset())
	}
	c.synchronize()
	for _, a := range axes {
		a.Zero()
		a.UseNormalProfile()
	}
	return c.fire(EventDone)
}

// IdleRetreat parks the gantry: X to the middle of its range with Y and Z at
// zero, run Z then X then Y, then X back to zero. The gantry is marked homed
// without recalibrating.
func (c *Controller) IdleRetreat() error {
	if err := c.power.PowerOn(); err != nil {
		return err
	}
	if err := c.fire(EventRetreat); err != nil {
		return err
	}
	c.logger.Info("idle retreat")
	c.x.MoveTo(c.x.Steps((c.cfg.X.Min + c.cfg.X.Max) / 2))
	c.y.MoveTo(0)
	c.z.MoveTo(0)
	c.z.RunToCompletion()
	c.x.RunToCompletion()
	c.y.RunToCompletion()
	c.x.MoveTo(0)
	c.x.RunToCompletion()
	return c.fire(EventDone)
}
