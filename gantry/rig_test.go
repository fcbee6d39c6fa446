package gantry_test

import (
	"testing"
	"time"

	"github.com/jt05610/gantry/clock"
	"github.com/jt05610/gantry/gantry"
	"github.com/jt05610/gantry/gantry/gantrytest"
	"github.com/jt05610/gantry/power"
	"github.com/jt05610/gantry/servo"
	"github.com/jt05610/gantry/stepper"
	"go.uber.org/zap/zaptest"
)

// recorder notes which axis moved, in order, so tests can check sequencing.
type recorder struct {
	*stepper.Sim
	name   string
	log     *[]string
	accels  []float64
	targets []int64
	// moving is called whenever the axis steps.
	moving func()
}

func (r *recorder) note() {
	if r.moving != nil {
		r.moving()
	}
	if n := len(*r.log); n == 0 || (*r.log)[n-1] != r.name {
		*r.log = append(*r.log, r.name)
	}
}

func (r *recorder) Run() bool {
	before := r.CurrentPosition()
	more := r.Sim.Run()
	if r.CurrentPosition() != before {
		r.note()
	}
	return more
}

func (r *recorder) RunToPosition() {
	if r.DistanceToGo() != 0 {
		r.note()
		r.accels = append(r.accels, r.Acceleration())
		r.targets = append(r.targets, r.TargetPosition())
	}
	r.Sim.RunToPosition()
}

func testConfig() gantry.Config {
	return gantrytest.Config()
}

type rig struct {
	ctrl  *gantry.Controller
	x     *recorder
	y     *recorder
	z     *recorder
	rack  *recorder
	aux   *recorder
	servo *servo.Sim
	relay *power.SimRelay
	clock *clock.Fake
	log   []string
}

func newRig(t *testing.T, cfg gantry.Config, opts map[string][]stepper.SimOption) *rig {
	t.Helper()
	r := &rig{
		servo: servo.NewSim(),
		relay: &power.SimRelay{},
		clock: clock.NewFake(time.Unix(1700000000, 0)),
	}
	mk := func(name string) *recorder {
		return &recorder{Sim: stepper.NewSim(opts[name]...), name: name, log: &r.log}
	}
	r.x, r.y, r.z, r.rack, r.aux = mk("x"), mk("y"), mk("z"), mk("rack"), mk("aux")
	ctrl, err := gantry.New(cfg, gantry.Hardware{
		X:     r.x,
		Y:     r.y,
		Z:     r.z,
		Rack:  r.rack,
		Aux:   r.aux,
		Servo: r.servo,
		Relay: r.relay,
	}, r.clock, zaptest.NewLogger(t))
	if err != nil {
		t.Fatal(err)
	}
	r.ctrl = ctrl
	return r
}

func (r *rig) positions() [3]int64 {
	return [3]int64{r.x.CurrentPosition(), r.y.CurrentPosition(), r.z.CurrentPosition()}
}
